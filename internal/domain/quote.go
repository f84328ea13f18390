package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Quote is a point-in-time market snapshot for one symbol.
type Quote struct {
	Symbol        string
	Price         decimal.Decimal
	Change        decimal.Decimal
	PercentChange decimal.Decimal // percentage points
	High          decimal.Decimal
	Low           decimal.Decimal
	Volume        int64
	Timestamp     time.Time // latest trading day or bar time, zero if unknown
}

// Bar is one daily OHLCV entry of a historical series.
type Bar struct {
	Date   time.Time
	Open   decimal.Decimal
	High   decimal.Decimal
	Low    decimal.Decimal
	Close  decimal.Decimal
	Volume int64
}
