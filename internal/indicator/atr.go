package indicator

import (
	"math"

	"tradingalerts/internal/model"
)

// ATR calculates Average True Range: the rolling mean over `period` bars of
// max(high−low, |high−prevClose|, |low−prevClose|). Needs period+1 candles
// since the first bar has no previous close.
type ATR struct {
	period    int
	buf       []float64
	idx       int
	trs       int
	sum       float64
	prevClose float64
	count     int
	current   float64
}

// NewATR creates a new ATR indicator with the given period (typically 14).
func NewATR(period int) *ATR {
	return &ATR{
		period: period,
		buf:    make([]float64, period),
	}
}

func (a *ATR) Name() string { return "ATR" }

func (a *ATR) Update(c model.Candle) {
	a.count++
	if a.count == 1 {
		a.prevClose = c.Close
		return
	}

	tr := c.High - c.Low
	if hc := math.Abs(c.High - a.prevClose); hc > tr {
		tr = hc
	}
	if lc := math.Abs(c.Low - a.prevClose); lc > tr {
		tr = lc
	}
	a.prevClose = c.Close

	if a.trs >= a.period {
		a.sum -= a.buf[a.idx]
	}
	a.buf[a.idx] = tr
	a.sum += tr
	a.idx = (a.idx + 1) % a.period
	a.trs++

	if a.trs >= a.period {
		a.current = a.sum / float64(a.period)
	}
}

func (a *ATR) Value() float64 { return a.current }
func (a *ATR) Ready() bool    { return a.trs >= a.period }
