package model

import "time"

// SeriesSource tags where a candle series came from.
type SeriesSource string

const (
	SourceLive      SeriesSource = "live"
	SourceSynthetic SeriesSource = "synthetic"
)

// Candle represents one OHLCV bar for a time bucket.
// Prices are in rupees; immutable once fetched.
type Candle struct {
	TS     time.Time `json:"ts"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// Series is an ordered candle sequence for one symbol + timeframe.
// Timestamps are strictly increasing with no duplicates.
type Series struct {
	Symbol    string       `json:"symbol"`
	Exchange  string       `json:"exchange"`
	Timeframe Timeframe    `json:"timeframe"`
	Candles   []Candle     `json:"candles"`
	Source    SeriesSource `json:"source"`
	FetchedAt time.Time    `json:"fetched_at"`
}

// Len returns the number of candles.
func (s *Series) Len() int { return len(s.Candles) }

// Closes extracts the close column.
func (s *Series) Closes() []float64 {
	out := make([]float64, len(s.Candles))
	for i := range s.Candles {
		out[i] = s.Candles[i].Close
	}
	return out
}

// Synthetic reports whether this series was generated in degraded mode
// rather than fetched from the broker.
func (s *Series) Synthetic() bool { return s.Source == SourceSynthetic }
