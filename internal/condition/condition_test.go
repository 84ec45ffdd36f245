package condition

import (
	"testing"

	"tradingalerts/internal/model"
)

func TestEvaluate(t *testing.T) {
	cases := []struct {
		name string
		v1   float64
		v2   float64
		cond model.Condition
		want bool
	}{
		{"above strict", 71, 70, model.CondAbove, true},
		{"above equal values", 70, 70, model.CondAbove, false},
		{"above lower", 69, 70, model.CondAbove, false},
		{"below strict", 69, 70, model.CondBelow, true},
		{"below equal values", 70, 70, model.CondBelow, false},
		{"equals exact", 70, 70, model.CondEquals, true},
		{"equals within epsilon", 70.00005, 70.0, model.CondEquals, true},
		{"equals outside epsilon", 70.01, 70.0, model.CondEquals, false},
		{"equals just outside epsilon", 70.0002, 70.0, model.CondEquals, false},
		{"equals negative values", -1.00002, -1.0, model.CondEquals, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Evaluate(tc.v1, tc.v2, tc.cond); got != tc.want {
				t.Errorf("Evaluate(%v, %v, %s) = %v, want %v", tc.v1, tc.v2, tc.cond, got, tc.want)
			}
		})
	}
}

func TestEvaluateCrossover(t *testing.T) {
	cases := []struct {
		name                     string
		prev1, prev2, cur1, cur2 float64
		cond                     model.Condition
		want                     bool
	}{
		{"bullish cross fires", 9, 10, 11, 10, model.CondAbove, true},
		{"already above does not fire", 11, 10, 12, 10, model.CondAbove, false},
		{"still below does not fire", 9, 10, 9.5, 10, model.CondAbove, false},
		{"touch without cross does not fire", 9, 10, 10, 10, model.CondAbove, false},
		{"bearish cross fires", 11, 10, 9, 10, model.CondBelow, true},
		{"already below does not fire", 9, 10, 8, 10, model.CondBelow, false},
		{"equals falls back to instantaneous", 5, 10, 10.00003, 10, model.CondEquals, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := EvaluateCrossover(tc.prev1, tc.prev2, tc.cur1, tc.cur2, tc.cond)
			if got != tc.want {
				t.Errorf("EvaluateCrossover(%v,%v → %v,%v, %s) = %v, want %v",
					tc.prev1, tc.prev2, tc.cur1, tc.cur2, tc.cond, got, tc.want)
			}
		})
	}
}
