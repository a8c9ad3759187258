package upstream

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-universal/jalaali"
)

const (
	holidayYes = "🔴 امروز تعطیل رسمی است"
	holidayNo  = "🟢 امروز تعطیل رسمی نیست"
	holidayTag = "تعطیل"
)

// HolidaysToday reports whether today's Jalali date is a public holiday and lists its events.
func (g *Gateway) HolidaysToday(ctx context.Context) string {
	date := jalaali.New(g.now().In(g.loc)).Format("2006/01/02")
	rows, err := g.holidays(ctx, date)
	return g.reply("holidays", "📅 مناسبت‌های امروز "+ToPersianDigits(date), rows, err)
}

func (g *Gateway) holidays(ctx context.Context, date string) ([]Row, error) {
	env, err := g.cached(ctx, getRequest(strings.TrimSuffix(g.cfg.HolidaysURL, "/")+"/"+date))
	if err != nil {
		return nil, err
	}
	if !env.IsJSON {
		return nil, fmt.Errorf("holiday API returned non-JSON body")
	}

	rows, ok := firstMatch(env.JSON, holidayRows(), holidayRows("data"))
	if !ok {
		return nil, fmt.Errorf("unrecognised holiday response shape")
	}
	return rows, nil
}

// holidayRows reads {"is_holiday": bool, "events": [{"description": ..., "is_holiday": bool}]}.
// The first row states whether the day is a holiday.
func holidayRows(path ...string) Strategy {
	return func(v any) ([]Row, bool) {
		node, ok := lookup(v, path...)
		if !ok {
			return nil, false
		}
		obj, ok := asObject(node)
		if !ok {
			return nil, false
		}
		flag, hasFlag := obj["is_holiday"].(bool)
		events, hasEvents := asSlice(obj["events"])
		if !hasFlag && !hasEvents {
			return nil, false
		}

		status := holidayNo
		if flag {
			status = holidayYes
		}
		rows := []Row{{Name: status}}
		for _, e := range events {
			ev, ok := asObject(e)
			if !ok {
				continue
			}
			desc, ok := findFirst(ev, "description", "title", "name")
			if !ok || asString(desc) == "" {
				continue
			}
			row := Row{Name: asString(desc)}
			if off, _ := ev["is_holiday"].(bool); off {
				row.Value = holidayTag
			}
			rows = append(rows, row)
		}
		return rows, true
	}
}
