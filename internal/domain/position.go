package domain

import "github.com/shopspring/decimal"

// Position is a holding priced at the current quote. It is derived on
// every valuation and never stored.
type Position struct {
	Symbol        string
	Quantity      decimal.Decimal
	CurrentPrice  decimal.Decimal
	CurrentValue  decimal.Decimal // Quantity × CurrentPrice
	Change        decimal.Decimal
	PercentChange decimal.Decimal
}

// Valuation is an account's cash plus its quotable positions.
type Valuation struct {
	Cash       decimal.Decimal
	Positions  []Position
	TotalValue decimal.Decimal // Cash + Σ CurrentValue
}
