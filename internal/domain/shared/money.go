package shared

import (
	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// DefaultCurrency is the storefront's display currency.
const DefaultCurrency = "USD"

var symbols = map[string]string{
	"USD": "$",
	"EUR": "€",
	"GBP": "£",
	"INR": "₹",
	"JPY": "¥",
}

var printer = message.NewPrinter(language.AmericanEnglish)

// Dec converts a wire amount to a decimal.
func Dec(amount float64) decimal.Decimal {
	return decimal.NewFromFloat(amount)
}

// Cents rounds a decimal to two places and returns it as a wire amount.
func Cents(d decimal.Decimal) float64 {
	f, _ := d.Round(2).Float64()
	return f
}

// FormatPrice renders an amount in the given ISO 4217 currency, e.g. $1,234.50.
// Unknown codes fall back to the default currency.
func FormatPrice(amount float64, code string) string {
	unit, err := currency.ParseISO(code)
	if err != nil {
		unit = currency.USD
	}
	sym, ok := symbols[unit.String()]
	if !ok {
		sym = unit.String() + " "
	}
	rounded := Cents(Dec(amount))
	if rounded < 0 {
		return "-" + sym + printer.Sprintf("%.2f", -rounded)
	}
	return sym + printer.Sprintf("%.2f", rounded)
}

// DiscountPercent returns the whole-number percentage saved when an item
// priced original sells for sale. Returns 0 when there is no discount.
func DiscountPercent(original, sale float64) int {
	if original <= 0 || sale <= 0 || sale >= original {
		return 0
	}
	pct := Dec(original).Sub(Dec(sale)).Div(Dec(original)).Mul(decimal.NewFromInt(100))
	return int(pct.Round(0).IntPart())
}
