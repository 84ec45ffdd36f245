package smartconnect

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// CandleRequest parameterizes a historical candle query.
type CandleRequest struct {
	Exchange    string // e.g. "NSE"
	SymbolToken string // broker's numeric instrument token
	Interval    string // e.g. "FIVE_MINUTE", "ONE_DAY"
	FromDate    string // "2006-01-02 15:04"
	ToDate      string
}

// CandleRow is one OHLCV bar from getCandleData.
type CandleRow struct {
	Timestamp time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
}

// CandleData fetches historical candles. The API returns row arrays
// [timestamp, open, high, low, close, volume]; rows that do not fit that
// shape are rejected, not silently zeroed.
func (sc *SmartConnect) CandleData(ctx context.Context, req CandleRequest) ([]CandleRow, error) {
	env, err := sc.post(ctx, "api.candle.data", map[string]string{
		"exchange":    req.Exchange,
		"symboltoken": req.SymbolToken,
		"interval":    req.Interval,
		"fromdate":    req.FromDate,
		"todate":      req.ToDate,
	})
	if err != nil {
		return nil, err
	}

	var rows [][]json.RawMessage
	if err := json.Unmarshal(env.Data, &rows); err != nil {
		return nil, fmt.Errorf("smartconnect: candle data shape: %w", err)
	}

	out := make([]CandleRow, 0, len(rows))
	for i, row := range rows {
		if len(row) < 6 {
			return nil, fmt.Errorf("smartconnect: candle row %d has %d fields, want 6", i, len(row))
		}
		var ts string
		if err := json.Unmarshal(row[0], &ts); err != nil {
			return nil, fmt.Errorf("smartconnect: candle row %d timestamp: %w", i, err)
		}
		t, err := time.Parse(time.RFC3339, ts)
		if err != nil {
			return nil, fmt.Errorf("smartconnect: candle row %d timestamp %q: %w", i, ts, err)
		}
		var v [5]float64
		for j := 1; j < 6; j++ {
			if err := json.Unmarshal(row[j], &v[j-1]); err != nil {
				return nil, fmt.Errorf("smartconnect: candle row %d field %d: %w", i, j, err)
			}
		}
		out = append(out, CandleRow{
			Timestamp: t,
			Open:      v[0],
			High:      v[1],
			Low:       v[2],
			Close:     v[3],
			Volume:    v[4],
		})
	}
	return out, nil
}

// LTPData is the last-traded-price snapshot for one instrument.
type LTPData struct {
	Exchange      string  `json:"exchange"`
	TradingSymbol string  `json:"tradingsymbol"`
	SymbolToken   string  `json:"symboltoken"`
	Open          float64 `json:"open"`
	High          float64 `json:"high"`
	Low           float64 `json:"low"`
	Close         float64 `json:"close"`
	LTP           float64 `json:"ltp"`
}

// LTP fetches the last traded price for a symbol.
func (sc *SmartConnect) LTP(ctx context.Context, exchange, tradingSymbol, symbolToken string) (*LTPData, error) {
	env, err := sc.post(ctx, "api.ltp.data", map[string]string{
		"exchange":      exchange,
		"tradingsymbol": tradingSymbol,
		"symboltoken":   symbolToken,
	})
	if err != nil {
		return nil, err
	}
	var data LTPData
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return nil, fmt.Errorf("smartconnect: ltp response: %w", err)
	}
	return &data, nil
}

// Quote fetches full market quotes for instrument tokens grouped by
// exchange, e.g. {"NSE": ["3045"]}. Mode is "LTP", "OHLC" or "FULL".
func (sc *SmartConnect) Quote(ctx context.Context, mode string, exchangeTokens map[string][]string) (map[string]any, error) {
	env, err := sc.post(ctx, "api.market.data", map[string]any{
		"mode":           mode,
		"exchangeTokens": exchangeTokens,
	})
	if err != nil {
		return nil, err
	}
	var data map[string]any
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return nil, fmt.Errorf("smartconnect: quote response: %w", err)
	}
	return data, nil
}

// OrderParams parameterizes a PlaceOrder call.
type OrderParams struct {
	Variety         string `json:"variety"`
	TradingSymbol   string `json:"tradingsymbol"`
	SymbolToken     string `json:"symboltoken"`
	TransactionType string `json:"transactiontype"` // BUY / SELL
	Exchange        string `json:"exchange"`
	OrderType       string `json:"ordertype"` // MARKET / LIMIT
	ProductType     string `json:"producttype"`
	Duration        string `json:"duration"`
	Quantity        int64  `json:"quantity"`
	Price           string `json:"price,omitempty"`
	TriggerPrice    string `json:"triggerprice,omitempty"`
}

// PlaceOrder submits an order and returns the order ID. Present for parity
// with the upstream API; the alert engine itself never trades.
func (sc *SmartConnect) PlaceOrder(ctx context.Context, params OrderParams) (string, error) {
	env, err := sc.post(ctx, "api.order.place", params)
	if err != nil {
		return "", err
	}
	var data struct {
		OrderID string `json:"orderid"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return "", fmt.Errorf("smartconnect: order response: %w", err)
	}
	if data.OrderID == "" {
		return "", fmt.Errorf("smartconnect: order accepted but no order id returned")
	}
	return data.OrderID, nil
}
