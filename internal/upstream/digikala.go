package upstream

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"unicode"
)

const unavailable = "ناموجود"

var digikalaNameKeys = []string{"title_fa", "title_en", "title"}

// DigikalaSearch searches Digikala for query.
func (g *Gateway) DigikalaSearch(ctx context.Context, query string) string {
	query = strings.TrimSpace(query)
	if query == "" {
		return g.msgs.NothingFound
	}
	rows, err := g.digikalaSearch(ctx, query)
	return g.reply("digikala_search", "🛒 نتایج دیجی‌کالا برای «"+query+"»", rows, err)
}

// DigikalaProduct looks up one Digikala product by its numeric id.
func (g *Gateway) DigikalaProduct(ctx context.Context, id string) string {
	id = strings.TrimPrefix(strings.ToLower(fromPersianDigits(strings.TrimSpace(id))), "dkp-")
	if !isDigits(id) {
		return g.msgs.NothingFound
	}
	rows, err := g.digikalaProduct(ctx, id)
	return g.reply("digikala_product", "🔢 محصول دیجی‌کالا "+ToPersianDigits(id), rows, err)
}

func (g *Gateway) digikalaSearch(ctx context.Context, query string) ([]Row, error) {
	u := g.digikalaBase() + "v1/search/?" + url.Values{"q": {query}}.Encode()
	env, err := g.cached(ctx, getRequest(u))
	if err != nil {
		return nil, err
	}
	if !env.IsJSON {
		return nil, fmt.Errorf("digikala search returned non-JSON body")
	}

	limit := g.maxResults()
	rows, ok := firstMatch(env.JSON,
		listRows(limit, digikalaNameKeys, digikalaPrice, "data", "products"),
		listRows(limit, digikalaNameKeys, digikalaPrice, "products"),
		listRows(limit, digikalaNameKeys, digikalaPrice, "data", "search_result", "products"),
	)
	if !ok {
		return nil, fmt.Errorf("unrecognised digikala search response shape")
	}
	return rows, nil
}

func (g *Gateway) digikalaProduct(ctx context.Context, id string) ([]Row, error) {
	env, err := g.cached(ctx, getRequest(g.digikalaBase()+"v2/product/"+id+"/"))
	if err != nil {
		return nil, err
	}
	if !env.IsJSON {
		return nil, fmt.Errorf("digikala product returned non-JSON body")
	}

	rows, ok := firstMatch(env.JSON,
		digikalaProductRow(id, "data", "product"),
		digikalaProductRow(id, "product"),
	)
	if !ok {
		return nil, fmt.Errorf("unrecognised digikala product response shape")
	}
	return rows, nil
}

func digikalaProductRow(id string, path ...string) Strategy {
	return func(v any) ([]Row, bool) {
		node, ok := lookup(v, path...)
		if !ok {
			return nil, false
		}
		obj, ok := asObject(node)
		if !ok {
			return nil, false
		}
		nameVal, ok := findFirst(obj, digikalaNameKeys...)
		if !ok || asString(nameVal) == "" {
			return nil, false
		}
		price, _ := digikalaPrice(obj)
		return []Row{
			{Name: asString(nameVal), Value: price},
			{Name: "🔗 https://www.digikala.com/product/dkp-" + id + "/"},
		}, true
	}
}

// digikalaPrice reads default_variant.price.selling_price, which is in rials.
// Products without a variant are listed as unavailable.
func digikalaPrice(obj map[string]any) (string, bool) {
	for _, path := range [][]string{
		{"default_variant", "price", "selling_price"},
		{"price", "selling_price"},
	} {
		if p, ok := lookup(obj, path...); ok {
			if f, ok := toFloat(p); ok && f > 0 {
				return formatToman(rialToToman(f)), true
			}
		}
	}
	return unavailable, true
}

func (g *Gateway) digikalaBase() string {
	return strings.TrimSuffix(g.cfg.DigikalaURL, "/") + "/"
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r > unicode.MaxASCII || !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
