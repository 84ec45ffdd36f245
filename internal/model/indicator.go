package model

import (
	"encoding/json"
	"fmt"
)

// IndicatorKind is the closed set of indicators an alert may reference.
// Unknown names fail at spec-parse time, not during evaluation.
type IndicatorKind string

const (
	KindSMA             IndicatorKind = "SMA"
	KindEMA             IndicatorKind = "EMA"
	KindRSI             IndicatorKind = "RSI"
	KindMACD            IndicatorKind = "MACD"
	KindMACDSignal      IndicatorKind = "MACDSignal"
	KindBollingerUpper  IndicatorKind = "BollingerUpper"
	KindBollingerLower  IndicatorKind = "BollingerLower"
	KindBollingerMiddle IndicatorKind = "BollingerMiddle"
	KindATR             IndicatorKind = "ATR"
	KindPrice           IndicatorKind = "Price"
)

// ParseIndicatorKind validates a stored indicator name.
func ParseIndicatorKind(s string) (IndicatorKind, error) {
	switch IndicatorKind(s) {
	case KindSMA, KindEMA, KindRSI, KindMACD, KindMACDSignal,
		KindBollingerUpper, KindBollingerLower, KindBollingerMiddle,
		KindATR, KindPrice:
		return IndicatorKind(s), nil
	}
	return "", fmt.Errorf("unknown indicator %q", s)
}

// Default parameter values, matching the upstream library defaults.
const (
	DefaultPeriod       = 14
	DefaultFastPeriod   = 12
	DefaultSlowPeriod   = 26
	DefaultSignalPeriod = 9
	DefaultBollPeriod   = 20
	DefaultBollK        = 2.0
)

// IndicatorSpec is one side of an alert condition: an indicator kind plus
// its numeric parameters.
type IndicatorSpec struct {
	Kind         IndicatorKind `json:"kind"`
	Period       int           `json:"period,omitempty"`
	FastPeriod   int           `json:"fast_period,omitempty"`
	SlowPeriod   int           `json:"slow_period,omitempty"`
	SignalPeriod int           `json:"signal_period,omitempty"`
}

// specParams mirrors the JSON parameter strings the store carries,
// e.g. `{"period": 14}` or `{"fast_period": 12, "slow_period": 26}`.
type specParams struct {
	Period       int `json:"period"`
	FastPeriod   int `json:"fast_period"`
	SlowPeriod   int `json:"slow_period"`
	SignalPeriod int `json:"signal_period"`
}

// ParseIndicatorSpec builds a spec from a stored indicator name and its
// JSON parameter string, applying per-kind defaults for absent values.
func ParseIndicatorSpec(name, paramsJSON string) (IndicatorSpec, error) {
	kind, err := ParseIndicatorKind(name)
	if err != nil {
		return IndicatorSpec{}, err
	}
	var p specParams
	if paramsJSON != "" {
		if err := json.Unmarshal([]byte(paramsJSON), &p); err != nil {
			return IndicatorSpec{}, fmt.Errorf("indicator %s params %q: %w", name, paramsJSON, err)
		}
	}
	spec := IndicatorSpec{
		Kind:         kind,
		Period:       p.Period,
		FastPeriod:   p.FastPeriod,
		SlowPeriod:   p.SlowPeriod,
		SignalPeriod: p.SignalPeriod,
	}
	spec.applyDefaults()
	return spec, nil
}

func (s *IndicatorSpec) applyDefaults() {
	switch s.Kind {
	case KindMACD, KindMACDSignal:
		if s.FastPeriod <= 0 {
			s.FastPeriod = DefaultFastPeriod
		}
		if s.SlowPeriod <= 0 {
			s.SlowPeriod = DefaultSlowPeriod
		}
		if s.SignalPeriod <= 0 {
			s.SignalPeriod = DefaultSignalPeriod
		}
	case KindBollingerUpper, KindBollingerLower, KindBollingerMiddle:
		if s.Period <= 0 {
			s.Period = DefaultBollPeriod
		}
	case KindPrice:
		// no parameters
	default:
		if s.Period <= 0 {
			s.Period = DefaultPeriod
		}
	}
}

// String renders the spec the way alert messages show it, e.g. "SMA(20)".
func (s IndicatorSpec) String() string {
	switch s.Kind {
	case KindPrice:
		return "Price"
	case KindMACD, KindMACDSignal:
		return fmt.Sprintf("%s(%d,%d,%d)", s.Kind, s.FastPeriod, s.SlowPeriod, s.SignalPeriod)
	default:
		return fmt.Sprintf("%s(%d)", s.Kind, s.Period)
	}
}
