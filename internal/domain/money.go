package domain

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// Decimal places kept from wire values; extra digits are rounded away.
const (
	PricePlaces    int32 = 4
	QuantityPlaces int32 = 6
)

// FromFloat converts a float64 coming off the wire into a decimal rounded
// half away from zero to places digits. It rejects NaN and infinities.
// The float is read through its shortest decimal representation so 1.10
// stays 1.1 rather than 1.1000000000000000888.
func FromFloat(f float64, places int32) (decimal.Decimal, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return decimal.Zero, fmt.Errorf("value must be a finite number")
	}
	return decimal.NewFromFloat(f).Round(places), nil
}

// Float converts a decimal to float64 for JSON responses.
func Float(d decimal.Decimal) float64 {
	return d.InexactFloat64()
}

// Round2 rounds a monetary amount to cents for display.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// Percent returns part / whole × 100, or zero when whole is zero.
func Percent(part, whole decimal.Decimal) decimal.Decimal {
	if whole.IsZero() {
		return decimal.Zero
	}
	return part.Div(whole).Mul(decimal.NewFromInt(100))
}
