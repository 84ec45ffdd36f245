package sqlite

import (
	"context"
	"fmt"

	"tradingalerts/internal/model"
)

// Write-side helpers. The alert CRUD surface lives in the user-facing app;
// these exist for seeding and for integration tests against a real file.

// UpsertStock inserts or replaces an instrument row.
func (s *Store) UpsertStock(ctx context.Context, inst model.Instrument) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO stocks (symbol, token, exchange, name) VALUES (?, ?, ?, ?)
		ON CONFLICT(symbol) DO UPDATE SET token = excluded.token,
			exchange = excluded.exchange, name = excluded.name`,
		inst.Symbol, inst.Token, inst.Exchange, inst.Name)
	return err
}

// CreateGroup creates a stock group and returns its id.
func (s *Store) CreateGroup(ctx context.Context, userID int64, name string, symbols []string) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO stock_groups (user_id, name) VALUES (?, ?)`, userID, name)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	for _, sym := range symbols {
		if _, err := s.db.ExecContext(ctx,
			`INSERT OR IGNORE INTO stock_group_members (group_id, symbol) VALUES (?, ?)`, id, sym); err != nil {
			return 0, fmt.Errorf("add %s to group %q: %w", sym, name, err)
		}
	}
	return id, nil
}

// AlertRow is the raw shape accepted by CreateAlert. Indicator params are
// JSON objects like {"period": 20}.
type AlertRow struct {
	UserID     int64
	Scope      model.AlertScope
	Symbol     string // single scope
	GroupID    int64  // group scope
	Indicator1 string
	Params1    string
	Condition  string
	Crossover  bool
	Indicator2 string
	Params2    string
	Timeframe  string
}

// CreateAlert inserts an active alert and returns its id.
func (s *Store) CreateAlert(ctx context.Context, row AlertRow) (int64, error) {
	if row.Params1 == "" {
		row.Params1 = "{}"
	}
	if row.Params2 == "" {
		row.Params2 = "{}"
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO alerts (user_id, alert_type, stock_symbol, group_id,
			indicator1, indicator1_params, condition, crossover,
			indicator2, indicator2_params, timeframe, is_active)
		VALUES (?, ?, NULLIF(?, ''), NULLIF(?, 0), ?, ?, ?, ?, ?, ?, ?, 1)`,
		row.UserID, string(row.Scope), row.Symbol, row.GroupID,
		row.Indicator1, row.Params1, row.Condition, boolInt(row.Crossover),
		row.Indicator2, row.Params2, row.Timeframe)
	if err != nil {
		return 0, fmt.Errorf("create alert: %w", err)
	}
	return res.LastInsertId()
}

// SetPreferences stores the user's notification routing.
func (s *Store) SetPreferences(ctx context.Context, pref model.NotificationPreference) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO notification_prefs (user_id, email, email_enabled, sms_enabled, phone_number, frequency)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET email = excluded.email,
			email_enabled = excluded.email_enabled, sms_enabled = excluded.sms_enabled,
			phone_number = excluded.phone_number, frequency = excluded.frequency`,
		pref.UserID, pref.Email, boolInt(pref.EmailEnabled), boolInt(pref.SMSEnabled),
		pref.PhoneNumber, pref.Frequency)
	return err
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
