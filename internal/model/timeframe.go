package model

import (
	"fmt"
	"time"
)

// Timeframe is the candle interval an alert is evaluated on.
type Timeframe string

const (
	TF1Min  Timeframe = "1min"
	TF5Min  Timeframe = "5min"
	TF15Min Timeframe = "15min"
	TF4H    Timeframe = "4h"
	TF1Day  Timeframe = "1day"
	TF1Week Timeframe = "1week"
)

// ParseTimeframe validates a stored timeframe string.
func ParseTimeframe(s string) (Timeframe, error) {
	switch Timeframe(s) {
	case TF1Min, TF5Min, TF15Min, TF4H, TF1Day, TF1Week:
		return Timeframe(s), nil
	}
	return "", fmt.Errorf("unknown timeframe %q", s)
}

// AngelInterval maps the timeframe to the closest interval the Angel One
// candle API supports. 4h and 1week have no native interval; they map to
// ONE_HOUR and ONE_DAY while BarDuration keeps the requested spacing for
// synthetic generation.
func (tf Timeframe) AngelInterval() string {
	switch tf {
	case TF1Min:
		return "ONE_MINUTE"
	case TF5Min:
		return "FIVE_MINUTE"
	case TF15Min:
		return "FIFTEEN_MINUTE"
	case TF4H:
		return "ONE_HOUR"
	case TF1Week:
		return "ONE_DAY"
	default:
		return "ONE_DAY"
	}
}

// BarDuration returns the nominal spacing between candles.
func (tf Timeframe) BarDuration() time.Duration {
	switch tf {
	case TF1Min:
		return time.Minute
	case TF5Min:
		return 5 * time.Minute
	case TF15Min:
		return 15 * time.Minute
	case TF4H:
		return 4 * time.Hour
	case TF1Week:
		return 7 * 24 * time.Hour
	default:
		return 24 * time.Hour
	}
}

// Intraday reports whether the timeframe is shorter than a trading day,
// in which case evaluation outside market hours is pointless.
func (tf Timeframe) Intraday() bool {
	switch tf {
	case TF1Min, TF5Min, TF15Min, TF4H:
		return true
	}
	return false
}
