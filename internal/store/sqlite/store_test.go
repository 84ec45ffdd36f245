package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"tradingalerts/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(Config{DBPath: filepath.Join(t.TempDir(), "alerts.db")})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func seedStocks(t *testing.T, s *Store) {
	t.Helper()
	ctx := context.Background()
	for _, inst := range []model.Instrument{
		{Symbol: "RELIANCE", Token: "2885", Exchange: "NSE", Name: "Reliance Industries"},
		{Symbol: "TCS", Token: "11536", Exchange: "NSE", Name: "Tata Consultancy Services"},
		{Symbol: "INFY", Token: "1594", Exchange: "NSE"},
	} {
		if err := s.UpsertStock(ctx, inst); err != nil {
			t.Fatalf("upsert %s: %v", inst.Symbol, err)
		}
	}
}

func TestListActiveSingleAlert(t *testing.T) {
	s := openTestStore(t)
	seedStocks(t, s)
	ctx := context.Background()

	id, err := s.CreateAlert(ctx, AlertRow{
		UserID:     7,
		Scope:      model.ScopeSingle,
		Symbol:     "RELIANCE",
		Indicator1: "SMA",
		Params1:    `{"period": 20}`,
		Condition:  "above",
		Indicator2: "SMA",
		Params2:    `{"period": 50}`,
		Timeframe:  "1day",
	})
	if err != nil {
		t.Fatalf("create alert: %v", err)
	}

	alerts, err := s.ListActive(ctx)
	if err != nil {
		t.Fatalf("list active: %v", err)
	}
	if len(alerts) != 1 {
		t.Fatalf("got %d alerts, want 1", len(alerts))
	}
	a := alerts[0]
	if a.ID != id || a.UserID != 7 {
		t.Errorf("got id=%d user=%d, want id=%d user=7", a.ID, a.UserID, id)
	}
	if a.Stock.Token != "2885" {
		t.Errorf("stock token = %q, want 2885", a.Stock.Token)
	}
	if a.Indicator1.Kind != model.KindSMA || a.Indicator1.Period != 20 {
		t.Errorf("indicator1 = %s, want SMA(20)", a.Indicator1)
	}
	if a.Indicator2.Period != 50 {
		t.Errorf("indicator2 = %s, want SMA(50)", a.Indicator2)
	}
	if a.Condition != model.CondAbove || a.Timeframe != model.TF1Day {
		t.Errorf("got condition=%s timeframe=%s", a.Condition, a.Timeframe)
	}
}

func TestListActiveResolvesGroupMembers(t *testing.T) {
	s := openTestStore(t)
	seedStocks(t, s)
	ctx := context.Background()

	gid, err := s.CreateGroup(ctx, 3, "IT basket", []string{"TCS", "INFY"})
	if err != nil {
		t.Fatalf("create group: %v", err)
	}
	if _, err := s.CreateAlert(ctx, AlertRow{
		UserID:     3,
		Scope:      model.ScopeGroup,
		GroupID:    gid,
		Indicator1: "RSI",
		Params1:    `{"period": 14}`,
		Condition:  "below",
		Indicator2: "Price",
		Timeframe:  "15min",
	}); err != nil {
		t.Fatalf("create alert: %v", err)
	}

	alerts, err := s.ListActive(ctx)
	if err != nil {
		t.Fatalf("list active: %v", err)
	}
	if len(alerts) != 1 {
		t.Fatalf("got %d alerts, want 1", len(alerts))
	}
	a := alerts[0]
	if a.GroupName != "IT basket" {
		t.Errorf("group name = %q", a.GroupName)
	}
	if len(a.Members) != 2 || a.Members[0].Symbol != "INFY" || a.Members[1].Symbol != "TCS" {
		t.Errorf("members = %+v, want INFY and TCS", a.Members)
	}
}

func TestListActiveMixedScopesInOneBatch(t *testing.T) {
	s := openTestStore(t)
	seedStocks(t, s)
	ctx := context.Background()

	if _, err := s.CreateAlert(ctx, AlertRow{
		UserID: 1, Scope: model.ScopeSingle, Symbol: "RELIANCE",
		Indicator1: "Price", Condition: "above",
		Indicator2: "SMA", Params2: `{"period": 20}`, Timeframe: "1day",
	}); err != nil {
		t.Fatalf("create alert: %v", err)
	}
	gid, err := s.CreateGroup(ctx, 1, "IT basket", []string{"TCS", "INFY"})
	if err != nil {
		t.Fatalf("create group: %v", err)
	}
	if _, err := s.CreateAlert(ctx, AlertRow{
		UserID: 1, Scope: model.ScopeGroup, GroupID: gid,
		Indicator1: "RSI", Condition: "below",
		Indicator2: "Price", Timeframe: "1day",
	}); err != nil {
		t.Fatalf("create alert: %v", err)
	}
	if _, err := s.CreateAlert(ctx, AlertRow{
		UserID: 2, Scope: model.ScopeSingle, Symbol: "TCS",
		Indicator1: "EMA", Params1: `{"period": 9}`, Condition: "above",
		Indicator2: "EMA", Params2: `{"period": 21}`, Timeframe: "5min",
	}); err != nil {
		t.Fatalf("create alert: %v", err)
	}

	done := make(chan struct{})
	var alerts []model.AlertDefinition
	go func() {
		defer close(done)
		alerts, err = s.ListActive(ctx)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("ListActive did not return; scope lookups starved the connection pool")
	}
	if err != nil {
		t.Fatalf("list active: %v", err)
	}
	if len(alerts) != 3 {
		t.Fatalf("got %d alerts, want 3", len(alerts))
	}
	if alerts[0].Stock.Symbol != "RELIANCE" || len(alerts[1].Members) != 2 || alerts[2].Stock.Symbol != "TCS" {
		t.Errorf("resolved scopes = %+v", alerts)
	}
}

func TestListActiveSkipsMalformedRows(t *testing.T) {
	s := openTestStore(t)
	seedStocks(t, s)
	ctx := context.Background()

	// Bad params JSON, unknown indicator, unknown stock: each skipped.
	for _, row := range []AlertRow{
		{UserID: 1, Scope: model.ScopeSingle, Symbol: "RELIANCE", Indicator1: "SMA", Params1: `{"period": `, Condition: "above", Indicator2: "Price", Timeframe: "1day"},
		{UserID: 1, Scope: model.ScopeSingle, Symbol: "RELIANCE", Indicator1: "VWAP", Condition: "above", Indicator2: "Price", Timeframe: "1day"},
		{UserID: 1, Scope: model.ScopeSingle, Symbol: "NOSUCH", Indicator1: "SMA", Condition: "above", Indicator2: "Price", Timeframe: "1day"},
	} {
		if _, err := s.CreateAlert(ctx, row); err != nil {
			t.Fatalf("create alert: %v", err)
		}
	}
	good, err := s.CreateAlert(ctx, AlertRow{
		UserID: 1, Scope: model.ScopeSingle, Symbol: "TCS",
		Indicator1: "EMA", Params1: `{"period": 9}`, Condition: "above",
		Indicator2: "EMA", Params2: `{"period": 21}`, Timeframe: "5min",
	})
	if err != nil {
		t.Fatalf("create alert: %v", err)
	}

	alerts, err := s.ListActive(ctx)
	if err != nil {
		t.Fatalf("list active: %v", err)
	}
	if len(alerts) != 1 || alerts[0].ID != good {
		t.Fatalf("got %d alerts, want only the well-formed one (#%d)", len(alerts), good)
	}
}

func TestDeactivateFlipsExactlyOnce(t *testing.T) {
	s := openTestStore(t)
	seedStocks(t, s)
	ctx := context.Background()

	id, err := s.CreateAlert(ctx, AlertRow{
		UserID: 2, Scope: model.ScopeSingle, Symbol: "RELIANCE",
		Indicator1: "Price", Condition: "above",
		Indicator2: "SMA", Params2: `{"period": 20}`, Timeframe: "1day",
	})
	if err != nil {
		t.Fatalf("create alert: %v", err)
	}

	fired, err := s.Deactivate(ctx, id)
	if err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	if !fired {
		t.Fatal("first deactivate should report the transition")
	}

	again, err := s.Deactivate(ctx, id)
	if err != nil {
		t.Fatalf("second deactivate: %v", err)
	}
	if again {
		t.Error("second deactivate must not report the transition")
	}

	alerts, err := s.ListActive(ctx)
	if err != nil {
		t.Fatalf("list active: %v", err)
	}
	if len(alerts) != 0 {
		t.Errorf("deactivated alert still listed: %+v", alerts)
	}
}

func TestPreferencesDefaults(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	pref, err := s.Preferences(ctx, 42)
	if err != nil {
		t.Fatalf("preferences: %v", err)
	}
	if !pref.EmailEnabled || pref.SMSEnabled {
		t.Errorf("defaults = %+v, want email on, sms off", pref)
	}
	if pref.Frequency != "immediate" {
		t.Errorf("frequency = %q, want immediate", pref.Frequency)
	}
}

func TestPreferencesStoredAndSMSRequiresPhone(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.SetPreferences(ctx, model.NotificationPreference{
		UserID: 5, Email: "trader@example.com", EmailEnabled: true,
		SMSEnabled: true, PhoneNumber: "", Frequency: "daily",
	}); err != nil {
		t.Fatalf("set preferences: %v", err)
	}
	pref, err := s.Preferences(ctx, 5)
	if err != nil {
		t.Fatalf("preferences: %v", err)
	}
	if pref.SMSEnabled {
		t.Error("sms must stay off without a phone number")
	}
	if pref.Email != "trader@example.com" || pref.Frequency != "daily" {
		t.Errorf("stored prefs = %+v", pref)
	}

	if err := s.SetPreferences(ctx, model.NotificationPreference{
		UserID: 5, Email: "trader@example.com", EmailEnabled: false,
		SMSEnabled: true, PhoneNumber: "+919999999999", Frequency: "immediate",
	}); err != nil {
		t.Fatalf("set preferences: %v", err)
	}
	pref, err = s.Preferences(ctx, 5)
	if err != nil {
		t.Fatalf("preferences: %v", err)
	}
	if pref.EmailEnabled || !pref.SMSEnabled {
		t.Errorf("updated prefs = %+v, want email off, sms on", pref)
	}
}
