package upstream

import (
	"context"
	"fmt"
	"net/url"
)

type unit int

const (
	unitToman unit = iota
	unitUSD
)

// rateItem maps one Navasan quote to a display name. Keys are tried in order.
type rateItem struct {
	name   string
	keys   []string
	unit   unit
	crypto bool
}

var currencyItems = []rateItem{
	{name: "💵 دلار آمریکا", keys: []string{"usd_sell", "usd"}},
	{name: "💶 یورو", keys: []string{"eur_sell", "eur"}},
	{name: "💷 پوند انگلیس", keys: []string{"gbp_sell", "gbp"}},
	{name: "💱 درهم امارات", keys: []string{"aed_sell", "aed"}},
	{name: "💱 لیر ترکیه", keys: []string{"try_sell", "try"}},
	{name: "💱 دلار کانادا", keys: []string{"cad_sell", "cad"}},
}

var goldItems = []rateItem{
	{name: "🪙 سکه امامی", keys: []string{"sekeb"}},
	{name: "🪙 سکه بهار آزادی", keys: []string{"sekeb1", "bahar"}},
	{name: "🪙 نیم سکه", keys: []string{"sekeb2", "nim"}},
	{name: "🪙 ربع سکه", keys: []string{"sekeb3", "rob"}},
	{name: "🥇 هر گرم طلای ۱۸ عیار", keys: []string{"geram18", "18ayar"}},
	{name: "🥇 مثقال طلا", keys: []string{"mithqal", "mesghal"}},
	{name: "🌍 اونس طلا", keys: []string{"usd_xau", "xau"}, unit: unitUSD},
}

var cryptoItems = []rateItem{
	{name: "₿ بیت‌کوین", keys: []string{"btc"}, unit: unitUSD, crypto: true},
	{name: "Ξ اتریوم", keys: []string{"eth"}, unit: unitUSD, crypto: true},
	{name: "💲 تتر", keys: []string{"usdt"}, crypto: true},
}

// Currency returns free-market exchange rates.
func (g *Gateway) Currency(ctx context.Context) string {
	rows, err := g.rates(ctx, currencyItems)
	return g.reply("navasan_currency", "💱 نرخ ارز", rows, err)
}

// Gold returns coin and gold prices.
func (g *Gateway) Gold(ctx context.Context) string {
	rows, err := g.rates(ctx, goldItems)
	return g.reply("navasan_gold", "🪙 قیمت طلا و سکه", rows, err)
}

// Crypto returns cryptocurrency prices.
func (g *Gateway) Crypto(ctx context.Context) string {
	rows, err := g.rates(ctx, cryptoItems)
	return g.reply("navasan_crypto", "₿ قیمت رمزارزها", rows, err)
}

// rates fetches the Navasan snapshot once per cache period; the three subsets share it.
func (g *Gateway) rates(ctx context.Context, items []rateItem) ([]Row, error) {
	q := url.Values{"dollar_rate": {"true"}}
	if g.cfg.NavasanAPIKey != "" {
		q.Set("api_key", g.cfg.NavasanAPIKey)
	}
	env, err := g.cached(ctx, getRequest(g.cfg.NavasanURL+"?"+q.Encode()))
	if err != nil {
		return nil, err
	}
	if !env.IsJSON {
		return nil, fmt.Errorf("navasan returned non-JSON body")
	}

	rows, _ := firstMatch(env.JSON,
		navasanRows(items, nil),
		navasanRows(items, []string{"data"}),
	)
	return rows, nil
}

// navasanRows reads a map of quote key to either {"value": ...} or a bare number.
func navasanRows(items []rateItem, path []string) Strategy {
	return func(v any) ([]Row, bool) {
		node, ok := lookup(v, path...)
		if !ok {
			return nil, false
		}
		quotes, ok := asObject(node)
		if !ok {
			return nil, false
		}
		var rows []Row
		for _, it := range items {
			q, ok := findFirst(quotes, it.keys...)
			if !ok {
				continue
			}
			if value, ok := quoteValue(q, it); ok {
				rows = append(rows, Row{Name: it.name, Value: value})
			}
		}
		return rows, len(rows) > 0
	}
}

func quoteValue(q any, it rateItem) (string, bool) {
	obj, isObj := asObject(q)
	if !isObj {
		f, ok := toFloat(q)
		if !ok {
			return "", false
		}
		return formatUnit(f, it.unit), true
	}

	if it.crypto {
		if f, ok := toFloat(obj["dollar_rate"]); ok && f > 0 {
			return formatUSD(f), true
		}
	}
	f, ok := toFloat(obj["value"])
	if !ok {
		return "", false
	}
	return formatUnit(f, it.unit), true
}

func formatUnit(f float64, u unit) string {
	if u == unitUSD {
		return formatUSD(f)
	}
	return formatToman(f)
}
