package indicator

import "tradingalerts/internal/model"

// MACD calculates Moving Average Convergence Divergence:
//
//	line      = EMA(fast) − EMA(slow)
//	signal    = EMA(signalPeriod) of the line
//	histogram = line − signal
//
// Value() is the MACD line; Signal() and Histogram() expose the rest.
// Ready once slow+signal candles have been seen, the minimum window for a
// settled signal line.
type MACD struct {
	fast         *EMA
	slow         *EMA
	signal       *EMA
	slowPeriod   int
	signalPeriod int
	count        int
}

// NewMACD creates a MACD indicator. Zero parameters take the 12/26/9 defaults.
func NewMACD(fastPeriod, slowPeriod, signalPeriod int) *MACD {
	if fastPeriod <= 0 {
		fastPeriod = model.DefaultFastPeriod
	}
	if slowPeriod <= 0 {
		slowPeriod = model.DefaultSlowPeriod
	}
	if signalPeriod <= 0 {
		signalPeriod = model.DefaultSignalPeriod
	}
	return &MACD{
		fast:         NewEMA(fastPeriod),
		slow:         NewEMA(slowPeriod),
		signal:       NewEMA(signalPeriod),
		slowPeriod:   slowPeriod,
		signalPeriod: signalPeriod,
	}
}

func (m *MACD) Name() string { return "MACD" }

func (m *MACD) Update(c model.Candle) {
	m.count++
	m.fast.Update(c)
	m.slow.Update(c)
	line := m.fast.Value() - m.slow.Value()
	// The signal line is an EMA over MACD values, fed as a close series.
	m.signal.Update(model.Candle{Close: line})
}

func (m *MACD) Value() float64     { return m.fast.Value() - m.slow.Value() }
func (m *MACD) Signal() float64    { return m.signal.Value() }
func (m *MACD) Histogram() float64 { return m.Value() - m.Signal() }
func (m *MACD) Ready() bool        { return m.count >= m.slowPeriod+m.signalPeriod }

// macdSignal adapts MACD so the signal line itself is an Indicator,
// letting alerts compare MACD against MACDSignal.
type macdSignal struct{ *MACD }

// NewMACDSignal creates an indicator exposing the MACD signal line.
func NewMACDSignal(fastPeriod, slowPeriod, signalPeriod int) Indicator {
	return macdSignal{NewMACD(fastPeriod, slowPeriod, signalPeriod)}
}

func (s macdSignal) Name() string   { return "MACDSignal" }
func (s macdSignal) Value() float64 { return s.Signal() }
