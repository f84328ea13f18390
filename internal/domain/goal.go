package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Goal is a savings target tracked for an account.
type Goal struct {
	ID         string
	Name       string
	Current    decimal.Decimal
	Target     decimal.Decimal
	Category   string
	TargetDate string // YYYY-MM-DD
}

// Percentage is progress toward the target, capped at 100.
func (g Goal) Percentage() decimal.Decimal {
	p := Percent(g.Current, g.Target)
	if p.GreaterThan(decimal.NewFromInt(100)) {
		return decimal.NewFromInt(100)
	}
	return p.Round(0)
}

// Validate checks a goal submitted by a client.
func (g Goal) Validate() error {
	if strings.TrimSpace(g.Name) == "" {
		return &ValidationError{Message: "goal name is required"}
	}
	if !g.Target.IsPositive() {
		return &ValidationError{Message: fmt.Sprintf("goal %q: target must be > 0", g.Name)}
	}
	if g.Current.IsNegative() {
		return &ValidationError{Message: fmt.Sprintf("goal %q: current must be >= 0", g.Name)}
	}
	if strings.TrimSpace(g.Category) == "" {
		return &ValidationError{Message: fmt.Sprintf("goal %q: category is required", g.Name)}
	}
	if _, err := time.Parse(time.DateOnly, g.TargetDate); err != nil {
		return &ValidationError{Message: fmt.Sprintf("goal %q: targetDate must be YYYY-MM-DD", g.Name)}
	}
	return nil
}

// DefaultGoals are the goals every new account starts with.
func DefaultGoals() []Goal {
	return []Goal{
		{ID: "1", Name: "Retirement Fund", Current: decimal.NewFromInt(250000), Target: decimal.NewFromInt(500000), Category: "retirement", TargetDate: "2050-01-01"},
		{ID: "2", Name: "Emergency Fund", Current: decimal.NewFromInt(15000), Target: decimal.NewFromInt(20000), Category: "emergency", TargetDate: "2024-12-31"},
		{ID: "3", Name: "House Down Payment", Current: decimal.NewFromInt(40000), Target: decimal.NewFromInt(100000), Category: "housing", TargetDate: "2025-06-01"},
	}
}
