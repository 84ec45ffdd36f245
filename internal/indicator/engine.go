package indicator

import (
	"math"

	"tradingalerts/internal/model"
)

// FromSpec builds a fresh indicator instance for a parsed spec. The spec's
// kind enum is closed, so the switch is exhaustive by construction.
func FromSpec(spec model.IndicatorSpec) Indicator {
	switch spec.Kind {
	case model.KindSMA:
		return NewSMA(spec.Period)
	case model.KindEMA:
		return NewEMA(spec.Period)
	case model.KindRSI:
		return NewRSI(spec.Period)
	case model.KindMACD:
		return NewMACD(spec.FastPeriod, spec.SlowPeriod, spec.SignalPeriod)
	case model.KindMACDSignal:
		return NewMACDSignal(spec.FastPeriod, spec.SlowPeriod, spec.SignalPeriod)
	case model.KindBollingerUpper:
		return NewBollinger(spec.Period, model.DefaultBollK, BollUpper)
	case model.KindBollingerLower:
		return NewBollinger(spec.Period, model.DefaultBollK, BollLower)
	case model.KindBollingerMiddle:
		return NewBollinger(spec.Period, model.DefaultBollK, BollMiddle)
	case model.KindATR:
		return NewATR(spec.Period)
	default:
		return NewPrice()
	}
}

// Latest resolves a spec to the most recent available value in the series.
// A series shorter than the indicator's minimum window yields ok=false —
// never zero, never an error.
func Latest(s *model.Series, spec model.IndicatorSpec) (float64, bool) {
	ind := FromSpec(spec)
	value, ok := 0.0, false
	for _, c := range s.Candles {
		ind.Update(c)
		if ind.Ready() {
			value, ok = ind.Value(), true
		}
	}
	return value, ok
}

// LatestPair returns the indicator value at the final two bars of the
// series, for crossover checks comparing the prior bar's ordering against
// the current one. Fewer than two available bars yields ok=false (no
// crossover signal, not an error).
func LatestPair(s *model.Series, spec model.IndicatorSpec) (prev, cur float64, ok bool) {
	n := len(s.Candles)
	if n < 2 {
		return 0, 0, false
	}
	ind := FromSpec(spec)
	for _, c := range s.Candles[:n-1] {
		ind.Update(c)
	}
	if !ind.Ready() {
		return 0, 0, false
	}
	prev = ind.Value()
	ind.Update(s.Candles[n-1])
	return prev, ind.Value(), true
}

// Annotate computes full derived columns for all requested specs, keyed by
// spec string (e.g. "SMA(20)"). Positions before an indicator's minimum
// window hold NaN.
func Annotate(s *model.Series, specs []model.IndicatorSpec) map[string][]float64 {
	out := make(map[string][]float64, len(specs))
	for _, spec := range specs {
		ind := FromSpec(spec)
		col := make([]float64, len(s.Candles))
		for i, c := range s.Candles {
			ind.Update(c)
			if ind.Ready() {
				col[i] = ind.Value()
			} else {
				col[i] = math.NaN()
			}
		}
		out[spec.String()] = col
	}
	return out
}
