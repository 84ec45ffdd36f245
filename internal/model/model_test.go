package model

import "testing"

func TestParseIndicatorSpecAppliesDefaults(t *testing.T) {
	cases := []struct {
		name   string
		params string
		want   IndicatorSpec
	}{
		{"SMA", `{"period": 50}`, IndicatorSpec{Kind: KindSMA, Period: 50}},
		{"SMA", ``, IndicatorSpec{Kind: KindSMA, Period: 14}},
		{"RSI", `{}`, IndicatorSpec{Kind: KindRSI, Period: 14}},
		{"MACD", ``, IndicatorSpec{Kind: KindMACD, FastPeriod: 12, SlowPeriod: 26, SignalPeriod: 9}},
		{"MACD", `{"fast_period": 5}`, IndicatorSpec{Kind: KindMACD, FastPeriod: 5, SlowPeriod: 26, SignalPeriod: 9}},
		{"BollingerUpper", ``, IndicatorSpec{Kind: KindBollingerUpper, Period: 20}},
		{"Price", ``, IndicatorSpec{Kind: KindPrice}},
	}
	for _, tc := range cases {
		got, err := ParseIndicatorSpec(tc.name, tc.params)
		if err != nil {
			t.Errorf("ParseIndicatorSpec(%s, %q): %v", tc.name, tc.params, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseIndicatorSpec(%s, %q) = %+v, want %+v", tc.name, tc.params, got, tc.want)
		}
	}
}

func TestParseIndicatorSpecRejectsBadInput(t *testing.T) {
	if _, err := ParseIndicatorSpec("VWAP", ""); err == nil {
		t.Error("unknown indicator accepted")
	}
	if _, err := ParseIndicatorSpec("SMA", `{"period": `); err == nil {
		t.Error("malformed params accepted")
	}
}

func TestIndicatorSpecString(t *testing.T) {
	cases := []struct {
		spec IndicatorSpec
		want string
	}{
		{IndicatorSpec{Kind: KindSMA, Period: 20}, "SMA(20)"},
		{IndicatorSpec{Kind: KindMACD, FastPeriod: 12, SlowPeriod: 26, SignalPeriod: 9}, "MACD(12,26,9)"},
		{IndicatorSpec{Kind: KindPrice}, "Price"},
	}
	for _, tc := range cases {
		if got := tc.spec.String(); got != tc.want {
			t.Errorf("String() = %q, want %q", got, tc.want)
		}
	}
}

func TestAngelIntervalMapping(t *testing.T) {
	cases := []struct {
		tf   Timeframe
		want string
	}{
		{TF1Min, "ONE_MINUTE"},
		{TF5Min, "FIVE_MINUTE"},
		{TF15Min, "FIFTEEN_MINUTE"},
		{TF4H, "ONE_HOUR"},  // no native 4h interval
		{TF1Day, "ONE_DAY"},
		{TF1Week, "ONE_DAY"}, // no native weekly interval
	}
	for _, tc := range cases {
		if got := tc.tf.AngelInterval(); got != tc.want {
			t.Errorf("%s.AngelInterval() = %q, want %q", tc.tf, got, tc.want)
		}
	}
}

func TestAlertDefinitionValidate(t *testing.T) {
	single := AlertDefinition{Scope: ScopeSingle, Stock: Instrument{Symbol: "TCS"}}
	if err := single.Validate(); err != nil {
		t.Errorf("valid single alert rejected: %v", err)
	}
	single.Stock.Symbol = ""
	if err := single.Validate(); err == nil {
		t.Error("single alert without symbol accepted")
	}

	group := AlertDefinition{Scope: ScopeGroup, Members: []Instrument{{Symbol: "TCS"}}}
	if err := group.Validate(); err != nil {
		t.Errorf("valid group alert rejected: %v", err)
	}
	group.Members = nil
	if err := group.Validate(); err == nil {
		t.Error("group alert with empty member set accepted")
	}
}

func TestInstrumentsResolvesScope(t *testing.T) {
	a := AlertDefinition{
		Scope:   ScopeGroup,
		Stock:   Instrument{Symbol: "IGNORED"},
		Members: []Instrument{{Symbol: "TCS"}, {Symbol: "INFY"}},
	}
	if got := a.Instruments(); len(got) != 2 || got[0].Symbol != "TCS" {
		t.Errorf("group Instruments() = %+v", got)
	}
	a.Scope = ScopeSingle
	if got := a.Instruments(); len(got) != 1 || got[0].Symbol != "IGNORED" {
		t.Errorf("single Instruments() = %+v", got)
	}
}
