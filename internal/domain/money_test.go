package domain

import (
	"math"
	"testing"

	"github.com/shopspring/decimal"
)

func TestFromFloat(t *testing.T) {
	tests := []struct {
		name    string
		input   float64
		places  int32
		want    string
		wantErr bool
	}{
		{"zero", 0.0, 2, "0", false},
		{"whole dollars", 100.0, 2, "100", false},
		{"one decimal place", 1.5, 2, "1.5", false},
		{"two decimal places", 148.50, 2, "148.5", false},
		{"small amount", 0.01, 2, "0.01", false},
		{"negative value", -50.25, 2, "-50.25", false},
		{"three decimal places rounds down", 1.234, 2, "1.23", false},
		{"three decimal places rounds up", 1.235, 2, "1.24", false},
		{"trailing precision issue 0.10", 0.10, 2, "0.1", false},
		{"1.10 precision", 1.10, 2, "1.1", false},
		{"price with four places", 187.1234, PricePlaces, "187.1234", false},
		{"price with five places", 50.12345, PricePlaces, "50.1235", false},
		{"float noise near a whole price", 49.999999, PricePlaces, "50", false},
		{"quantity below the smallest step", 0.0000001, QuantityPlaces, "0", false},
		{"fractional shares", 0.333333, QuantityPlaces, "0.333333", false},
		{"NaN", math.NaN(), 2, "", true},
		{"infinity", math.Inf(1), 2, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FromFloat(tt.input, tt.places)
			if tt.wantErr {
				if err == nil {
					t.Errorf("FromFloat(%v) expected error, got nil", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("FromFloat(%v) unexpected error: %v", tt.input, err)
			}
			if !got.Equal(decimal.RequireFromString(tt.want)) {
				t.Errorf("FromFloat(%v) = %s, want %s", tt.input, got, tt.want)
			}
		})
	}
}

func TestPercent(t *testing.T) {
	tests := []struct {
		name        string
		part, whole string
		want        string
	}{
		{"half", "50", "100", "50"},
		{"zero whole", "10", "0", "0"},
		{"third", "500", "1500", "33.33"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Round2(Percent(decimal.RequireFromString(tt.part), decimal.RequireFromString(tt.whole)))
			if !got.Equal(decimal.RequireFromString(tt.want)) {
				t.Errorf("Percent(%s, %s) = %s, want %s", tt.part, tt.whole, got, tt.want)
			}
		})
	}
}

func TestFloat(t *testing.T) {
	if got := Float(decimal.RequireFromString("24500.25")); math.Abs(got-24500.25) > 1e-9 {
		t.Errorf("Float() = %v, want 24500.25", got)
	}
}
