// Package indicator provides technical indicator calculations over candle
// series: SMA, EMA, RSI, MACD (+signal/histogram), Bollinger bands and ATR.
//
// All indicators implement the Indicator interface, consuming candles in
// order and producing float64 values. A value is meaningful only once
// Ready() reports true; before the minimum window the indicator is
// unavailable, never zero.
package indicator

import "tradingalerts/internal/model"

// Indicator is the interface for all streaming technical indicators.
type Indicator interface {
	// Name returns the indicator kind, e.g. "SMA".
	Name() string

	// Update feeds the next candle and recalculates.
	Update(c model.Candle)

	// Value returns the current calculated value. Undefined before Ready.
	Value() float64

	// Ready returns true once the minimum window has been seen.
	Ready() bool
}

// Price exposes the raw close as an indicator so alerts can compare an
// indicator against price directly.
type Price struct {
	last  float64
	count int
}

func NewPrice() *Price { return &Price{} }

func (p *Price) Name() string { return "Price" }

func (p *Price) Update(c model.Candle) {
	p.last = c.Close
	p.count++
}

func (p *Price) Value() float64 { return p.last }
func (p *Price) Ready() bool    { return p.count > 0 }
