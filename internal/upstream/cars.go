package upstream

import (
	"context"
	"fmt"

	"github.com/youarebest/tgbot/internal/config"
)

var (
	carNameKeys  = []string{"خودرو", "نام خودرو", "مدل", "نام", "name", "col0"}
	carPriceKeys = []string{"قیمت بازار", "قیمت", "بازار", "price", "col1"}
)

// CarPrices returns market prices scraped from the car price table.
func (g *Gateway) CarPrices(ctx context.Context) string {
	rows, err := g.carPrices(ctx)
	return g.reply("car_prices", "🚗 قیمت روز خودرو", rows, err)
}

func (g *Gateway) carPrices(ctx context.Context) ([]Row, error) {
	env, err := g.cached(ctx, getRequest(g.cfg.CarPricesURL))
	if err != nil {
		return nil, err
	}
	if env.IsJSON {
		return nil, fmt.Errorf("car price page returned JSON instead of HTML")
	}

	cells, err := g.scraper.ScrapeRows(env.Raw)
	if err != nil {
		return nil, err
	}

	limit := g.maxResults() * 2
	var rows []Row
	for _, cell := range cells {
		name := firstCell(cell, carNameKeys)
		price := firstCell(cell, carPriceKeys)
		if name == "" || price == "" {
			continue
		}
		if f, ok := toFloat(price); ok {
			price = formatToman(f)
		}
		rows = append(rows, Row{Name: name, Value: price})
		if len(rows) == limit {
			break
		}
	}
	return rows, nil
}

func firstCell(cell map[string]string, keys []string) string {
	for _, k := range keys {
		if v := cell[k]; v != "" {
			return v
		}
	}
	return ""
}

func (g *Gateway) maxResults() int {
	if g.cfg.MaxResults > 0 {
		return g.cfg.MaxResults
	}
	return config.DefaultUpstreamMaxResults
}
