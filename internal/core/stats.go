package core

import "github.com/shopspring/decimal"

// CategoryStat is one row of the per-category spend statistics: the summed
// outcome amount for the category and its percentage share of the account's
// total spend. Categories without outcomes appear with a zero total and a
// zero percentage. Percentage carries two fractional digits and is not clamped.
type CategoryStat struct {
	CategoryID   int64
	CategoryName string
	Total        Money
	Percentage   decimal.Decimal
}
