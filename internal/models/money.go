package models

import "github.com/shopspring/decimal"

func init() {
	// The backend reads and writes monetary fields as JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true
}

// LineTotal is quantity x unit price, exact.
func LineTotal(qty int, unitPrice decimal.Decimal) decimal.Decimal {
	return unitPrice.Mul(decimal.NewFromInt(int64(qty)))
}

// FormatMoney renders an amount with two decimals.
func FormatMoney(d decimal.Decimal) string {
	return d.StringFixed(2)
}
