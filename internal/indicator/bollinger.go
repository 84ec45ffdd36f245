package indicator

import (
	"math"

	"tradingalerts/internal/model"
)

// BollBand selects which band a Bollinger indicator reports.
type BollBand int

const (
	BollMiddle BollBand = iota
	BollUpper
	BollLower
)

// Bollinger calculates Bollinger bands over a rolling window:
// middle = SMA(period), upper/lower = middle ± k·stddev(period).
// The standard deviation is the population form (ddof=0), matching the
// upstream ta-library default.
type Bollinger struct {
	period int
	k      float64
	band   BollBand

	buf    []float64
	idx    int
	count  int
	sum    float64
	sumSq  float64
	middle float64
	dev    float64
}

// NewBollinger creates a Bollinger band indicator reporting the given band.
// Zero period/k take the 20/2.0 defaults.
func NewBollinger(period int, k float64, band BollBand) *Bollinger {
	if period <= 0 {
		period = model.DefaultBollPeriod
	}
	if k <= 0 {
		k = model.DefaultBollK
	}
	return &Bollinger{
		period: period,
		k:      k,
		band:   band,
		buf:    make([]float64, period),
	}
}

func (b *Bollinger) Name() string {
	switch b.band {
	case BollUpper:
		return "BollingerUpper"
	case BollLower:
		return "BollingerLower"
	}
	return "BollingerMiddle"
}

func (b *Bollinger) Update(c model.Candle) {
	price := c.Close

	if b.count >= b.period {
		old := b.buf[b.idx]
		b.sum -= old
		b.sumSq -= old * old
	}
	b.buf[b.idx] = price
	b.sum += price
	b.sumSq += price * price
	b.idx = (b.idx + 1) % b.period
	b.count++

	if b.count < b.period {
		return
	}
	n := float64(b.period)
	b.middle = b.sum / n
	variance := b.sumSq/n - b.middle*b.middle
	if variance < 0 {
		variance = 0 // guard against FP cancellation on flat series
	}
	b.dev = math.Sqrt(variance)
}

func (b *Bollinger) Value() float64 {
	switch b.band {
	case BollUpper:
		return b.middle + b.k*b.dev
	case BollLower:
		return b.middle - b.k*b.dev
	}
	return b.middle
}

func (b *Bollinger) Ready() bool { return b.count >= b.period }
