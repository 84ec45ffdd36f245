package indicator

import "tradingalerts/internal/model"

// RSI calculates the Relative Strength Index using plain rolling means of
// gains and losses over the last `period` price deltas (not Wilder
// smoothing). RS = avgGain/avgLoss; RSI = 100 − 100/(1+RS). A window with
// zero average loss is defined as RSI 100. Needs period+1 candles.
type RSI struct {
	period    int
	gains     []float64
	losses    []float64
	idx       int
	deltas    int
	gainSum   float64
	lossSum   float64
	prevClose float64
	count     int
	current   float64
}

// NewRSI creates a new RSI indicator with the given period (typically 14).
func NewRSI(period int) *RSI {
	return &RSI{
		period: period,
		gains:  make([]float64, period),
		losses: make([]float64, period),
	}
}

func (r *RSI) Name() string { return "RSI" }

func (r *RSI) Update(c model.Candle) {
	price := c.Close
	r.count++

	if r.count == 1 {
		r.prevClose = price
		return
	}

	delta := price - r.prevClose
	r.prevClose = price

	gain, loss := 0.0, 0.0
	if delta > 0 {
		gain = delta
	} else {
		loss = -delta
	}

	if r.deltas >= r.period {
		r.gainSum -= r.gains[r.idx]
		r.lossSum -= r.losses[r.idx]
	}
	r.gains[r.idx] = gain
	r.losses[r.idx] = loss
	r.gainSum += gain
	r.lossSum += loss
	r.idx = (r.idx + 1) % r.period
	r.deltas++

	if r.deltas < r.period {
		return
	}

	avgGain := r.gainSum / float64(r.period)
	avgLoss := r.lossSum / float64(r.period)
	if avgLoss == 0 {
		r.current = 100.0
		return
	}
	rs := avgGain / avgLoss
	r.current = 100.0 - (100.0 / (1.0 + rs))
}

func (r *RSI) Value() float64 { return r.current }
func (r *RSI) Ready() bool    { return r.deltas >= r.period }
