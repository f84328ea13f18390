package domain

import (
	"errors"
	"testing"
)

func TestGoal_Percentage(t *testing.T) {
	tests := []struct {
		current, target, want string
	}{
		{"250000", "500000", "50"},
		{"15000", "20000", "75"},
		{"30", "20", "100"},
		{"1", "3", "33"},
	}
	for _, tt := range tests {
		g := Goal{Current: d(tt.current), Target: d(tt.target)}
		if got := g.Percentage(); !got.Equal(d(tt.want)) {
			t.Errorf("Percentage(%s/%s) = %s, want %s", tt.current, tt.target, got, tt.want)
		}
	}
}

func TestGoal_Validate(t *testing.T) {
	valid := Goal{Name: "Car", Current: d("0"), Target: d("10000"), Category: "other", TargetDate: "2030-01-01"}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid goal rejected: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Goal)
	}{
		{"no name", func(g *Goal) { g.Name = " " }},
		{"zero target", func(g *Goal) { g.Target = d("0") }},
		{"negative current", func(g *Goal) { g.Current = d("-1") }},
		{"no category", func(g *Goal) { g.Category = "" }},
		{"bad date", func(g *Goal) { g.TargetDate = "01/01/2030" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := valid
			tt.mutate(&g)
			var ve *ValidationError
			if err := g.Validate(); !errors.As(err, &ve) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
		})
	}
}

func TestDefaultGoals(t *testing.T) {
	goals := DefaultGoals()
	if len(goals) != 3 {
		t.Fatalf("expected 3 default goals, got %d", len(goals))
	}
	for _, g := range goals {
		if err := g.Validate(); err != nil {
			t.Errorf("default goal %q invalid: %v", g.Name, err)
		}
	}
}
