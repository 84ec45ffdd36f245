package indicator

import "tradingalerts/internal/model"

// EMA calculates Exponential Moving Average with smoothing 2/(period+1),
// seeded by the first close with no bias-correction term. The recursion is
// defined from the first candle, but Ready holds off until a full period
// has been seen so short series stay unavailable.
type EMA struct {
	period     int
	multiplier float64
	current    float64
	count      int
}

// NewEMA creates a new EMA indicator with the given period.
func NewEMA(period int) *EMA {
	return &EMA{
		period:     period,
		multiplier: 2.0 / float64(period+1),
	}
}

func (e *EMA) Name() string { return "EMA" }

func (e *EMA) Update(c model.Candle) {
	price := c.Close
	e.count++

	if e.count == 1 {
		e.current = price
		return
	}
	e.current = (price * e.multiplier) + (e.current * (1 - e.multiplier))
}

func (e *EMA) Value() float64 { return e.current }
func (e *EMA) Ready() bool    { return e.count >= e.period }
