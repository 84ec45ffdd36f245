// Package condition decides whether an alert's comparison between two
// indicator values holds.
package condition

import (
	"math"

	"tradingalerts/internal/model"
)

// EqualsEpsilon bounds the |v1−v2| distance treated as equal. Exact float
// equality on derived indicator values is almost never true, so "equals"
// is tolerance-based.
const EqualsEpsilon = 1e-4

// Evaluate applies the instantaneous comparison between two values.
func Evaluate(v1, v2 float64, cond model.Condition) bool {
	switch cond {
	case model.CondAbove:
		return v1 > v2
	case model.CondBelow:
		return v1 < v2
	case model.CondEquals:
		return math.Abs(v1-v2) < EqualsEpsilon
	}
	return false
}

// EvaluateCrossover requires the ordering of the two values to have flipped
// between the prior bar and the current one: a bullish crossover is
// prev1 < prev2 && cur1 > cur2, a bearish crossunder is the mirror.
// Equals has no crossover form and falls back to the instantaneous check
// on the current values.
func EvaluateCrossover(prev1, prev2, cur1, cur2 float64, cond model.Condition) bool {
	switch cond {
	case model.CondAbove:
		return prev1 < prev2 && cur1 > cur2
	case model.CondBelow:
		return prev1 > prev2 && cur1 < cur2
	case model.CondEquals:
		return Evaluate(cur1, cur2, cond)
	}
	return false
}
