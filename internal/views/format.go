package views

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// Display layouts
const (
	DateTimeLayout = "2 Jan 2006, 15:04"
	DateLayout     = "Jan 2, 2006"
)

// NoEndDate is shown for open-ended prices
const NoEndDate = "no end date"

// Timestamps as the backend sends them
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02",
}

var printer = message.NewPrinter(language.Russian)

// FormatMoney renders an amount in roubles with Russian grouping
func FormatMoney(amount decimal.Decimal) string {
	return printer.Sprintf("%v ₽", number.Decimal(amount.InexactFloat64(), number.Scale(2)))
}

// FormatWeight renders a weight in kilograms with two decimals
func FormatWeight(weight decimal.Decimal) string {
	return printer.Sprintf("%v kg", number.Decimal(weight.InexactFloat64(), number.Scale(2)))
}

// FormatCount renders an integer with Russian grouping
func FormatCount(n int) string {
	return printer.Sprintf("%d", n)
}

func parseTimestamp(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// FormatDateTime renders a backend timestamp; unparsable input is returned as is
func FormatDateTime(raw string) string {
	t, ok := parseTimestamp(raw)
	if !ok {
		return raw
	}
	return t.Format(DateTimeLayout)
}

// FormatDate renders a price date. nil or blank means the price has no end.
func FormatDate(raw *string) string {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return NoEndDate
	}
	t, ok := parseTimestamp(*raw)
	if !ok {
		return *raw
	}
	return t.Format(DateLayout)
}
