package upstream

import (
	"math"
	"strconv"
	"strings"
)

const (
	persianZero = '۰'
	tomanSuffix = " تومان"
)

// FormatRows renders a titled bullet list. It returns "" for no rows.
func FormatRows(title string, rows []Row) string {
	if len(rows) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(title)
	b.WriteString("\n")
	for _, r := range rows {
		b.WriteString("\n• ")
		b.WriteString(r.Name)
		if r.Value != "" {
			b.WriteString(": ")
			b.WriteString(r.Value)
		}
	}
	return b.String()
}

// ToPersianDigits replaces ASCII digits with Persian ones.
func ToPersianDigits(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return persianZero + (r - '0')
		}
		return r
	}, s)
}

func fromPersianDigits(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= persianZero && r <= persianZero+9 {
			return '0' + (r - persianZero)
		}
		return r
	}, s)
}

// formatToman renders a whole toman amount such as "۱۲۳,۴۵۰ تومان".
func formatToman(v float64) string {
	return ToPersianDigits(groupThousands(strconv.FormatInt(int64(math.Round(v)), 10))) + tomanSuffix
}

// formatUSD renders a dollar amount with two decimals.
func formatUSD(v float64) string {
	s := strconv.FormatFloat(math.Round(v*100)/100, 'f', 2, 64)
	intPart, frac, _ := strings.Cut(s, ".")
	return ToPersianDigits("$" + groupThousands(intPart) + "." + frac)
}

func rialToToman(v float64) float64 {
	return v / 10
}

// groupThousands inserts commas into a decimal integer string.
func groupThousands(s string) string {
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	if len(s) <= 3 {
		return sign + s
	}
	var b strings.Builder
	b.Grow(len(s) + len(s)/3 + 1)
	b.WriteString(sign)
	head := len(s) % 3
	if head == 0 {
		head = 3
	}
	b.WriteString(s[:head])
	for i := head; i < len(s); i += 3 {
		b.WriteByte(',')
		b.WriteString(s[i : i+3])
	}
	return b.String()
}
