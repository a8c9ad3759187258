package upstream

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

var basalamNameKeys = []string{"name", "title"}

// BasalamSearch searches Basalam for query.
func (g *Gateway) BasalamSearch(ctx context.Context, query string) string {
	query = strings.TrimSpace(query)
	if query == "" {
		return g.msgs.NothingFound
	}
	rows, err := g.basalamSearch(ctx, query)
	return g.reply("basalam_search", "🧺 نتایج باسلام برای «"+query+"»", rows, err)
}

func (g *Gateway) basalamSearch(ctx context.Context, query string) ([]Row, error) {
	limit := g.maxResults()
	q := url.Values{
		"productAds": {"false"},
		"q":          {query},
		"size":       {strconv.Itoa(limit)},
	}
	env, err := g.cached(ctx, getRequest(g.cfg.BasalamURL+"?"+q.Encode()))
	if err != nil {
		return nil, err
	}
	if !env.IsJSON {
		return nil, fmt.Errorf("basalam returned non-JSON body")
	}

	rows, ok := firstMatch(env.JSON,
		listRows(limit, basalamNameKeys, basalamPrice, "products"),
		listRows(limit, basalamNameKeys, basalamPrice, "data", "products"),
		listRows(limit, basalamNameKeys, basalamPrice, "data"),
	)
	if !ok {
		return nil, fmt.Errorf("unrecognised basalam response shape")
	}
	return rows, nil
}

// basalamPrice reads the price in rials, falling back to primaryPrice.
func basalamPrice(obj map[string]any) (string, bool) {
	if p, ok := findFirst(obj, "price", "primaryPrice"); ok {
		if f, ok := toFloat(p); ok && f > 0 {
			return formatToman(rialToToman(f)), true
		}
	}
	return unavailable, true
}
