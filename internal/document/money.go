package document

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

var currencySymbols = map[string]string{
	"USD": "$",
	"CAD": "CA$",
	"AUD": "A$",
	"EUR": "€",
	"GBP": "£",
}

// FormatMoney renders minor units with two decimals and thousands
// separators, e.g. 123456 USD is "$1,234.56".
func FormatMoney(minor int64, currency string) string {
	sign := ""
	if minor < 0 {
		sign = "-"
		minor = -minor
	}
	whole := groupThousands(strconv.FormatInt(minor/100, 10))
	amount := fmt.Sprintf("%s.%02d", whole, minor%100)

	code := strings.ToUpper(currency)
	if sym, ok := currencySymbols[code]; ok {
		return sign + sym + amount
	}
	if code == "" {
		return sign + amount
	}
	return sign + code + " " + amount
}

func groupThousands(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	lead := len(digits) % 3
	if lead > 0 {
		b.WriteString(digits[:lead])
	}
	for i := lead; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}

// ParseMoney reads a decimal amount such as "1,234.5" into minor units.
func ParseMoney(text string) (int64, error) {
	cleaned := strings.ReplaceAll(strings.TrimSpace(text), ",", "")
	for _, sym := range currencySymbols {
		cleaned = strings.TrimPrefix(cleaned, sym)
	}
	if cleaned == "" {
		return 0, fmt.Errorf("amount is empty")
	}
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q", text)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("invalid amount %q", text)
	}
	if math.Abs(v*100) >= math.MaxInt64 {
		return 0, fmt.Errorf("amount %q is out of range", text)
	}
	return round(v * 100), nil
}
