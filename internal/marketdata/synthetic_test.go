package marketdata

import (
	"math"
	"testing"
	"time"

	"tradingalerts/internal/model"
)

func TestSyntheticDeterministicPerRequest(t *testing.T) {
	inst := model.Instrument{Symbol: "TCS", Token: "11536", Exchange: "NSE"}
	end := time.Date(2026, 8, 28, 15, 30, 0, 0, time.UTC)

	a := Synthetic(inst, model.TF1Day, 50, end)
	b := Synthetic(inst, model.TF1Day, 50, end)
	if a.Len() != b.Len() {
		t.Fatalf("lengths differ: %d vs %d", a.Len(), b.Len())
	}
	for i := range a.Candles {
		if a.Candles[i] != b.Candles[i] {
			t.Fatalf("candle %d differs across identical requests", i)
		}
	}

	other := Synthetic(model.Instrument{Symbol: "INFY"}, model.TF1Day, 50, end)
	same := true
	for i := range a.Candles {
		if a.Candles[i].Close != other.Candles[i].Close {
			same = false
			break
		}
	}
	if same {
		t.Error("different symbols produced identical walks")
	}
}

func TestSyntheticShape(t *testing.T) {
	inst := model.Instrument{Symbol: "RELIANCE", Token: "2885", Exchange: "NSE"}
	end := time.Date(2026, 8, 28, 15, 30, 0, 0, time.UTC)
	s := Synthetic(inst, model.TF5Min, 100, end)

	if !s.Synthetic() {
		t.Fatal("series not tagged synthetic")
	}
	if s.Len() != 100 {
		t.Fatalf("got %d candles, want 100", s.Len())
	}

	bar := model.TF5Min.BarDuration()
	for i, c := range s.Candles {
		if i > 0 {
			if got := c.TS.Sub(s.Candles[i-1].TS); got != bar {
				t.Fatalf("candle %d spacing = %s, want %s", i, got, bar)
			}
			// Per-bar move bounded at ±3%.
			ret := math.Abs(c.Close/s.Candles[i-1].Close - 1)
			if ret > 0.031 {
				t.Errorf("candle %d return %.4f exceeds volatility bound", i, ret)
			}
		}
		if c.High < c.Open || c.High < c.Close || c.Low > c.Open || c.Low > c.Close {
			t.Errorf("candle %d OHLC inconsistent: %+v", i, c)
		}
		if c.Close <= 0 || c.Volume <= 0 {
			t.Errorf("candle %d has non-positive close/volume: %+v", i, c)
		}
	}
}

func TestSyntheticMinimumLength(t *testing.T) {
	s := Synthetic(model.Instrument{Symbol: "X"}, model.TF1Day, 0, time.Now())
	if s.Len() < 2 {
		t.Errorf("got %d candles, want at least 2", s.Len())
	}
}
