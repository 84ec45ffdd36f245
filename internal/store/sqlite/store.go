// Package sqlite persists alert definitions, stock groups and notification
// preferences. The CRUD layer owns these records; the evaluation engine
// reads them and performs exactly one write — flipping is_active when an
// alert fires.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	_ "github.com/mattn/go-sqlite3"

	"tradingalerts/internal/model"
)

// Config configures the alert store.
type Config struct {
	DBPath string // path to SQLite database file, e.g. "data/alerts.db"
}

// Store is a single-writer SQLite store.
type Store struct {
	db *sql.DB
}

// DB returns the underlying sql.DB for health checks.
func (s *Store) DB() *sql.DB { return s.db }

// New opens the database in WAL mode and ensures the schema exists.
func New(cfg Config) (*Store, error) {
	db, err := sql.Open("sqlite3", cfg.DBPath+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}

	// Single-writer pool
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := createSchema(db); err != nil {
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}

	log.Printf("[sqlite] opened alert store at %s", cfg.DBPath)
	return &Store{db: db}, nil
}

func createSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS stocks (
			symbol   TEXT PRIMARY KEY,
			token    TEXT NOT NULL,
			exchange TEXT NOT NULL DEFAULT 'NSE',
			name     TEXT
		);

		CREATE TABLE IF NOT EXISTS stock_groups (
			id      INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id INTEGER NOT NULL,
			name    TEXT    NOT NULL
		);

		CREATE TABLE IF NOT EXISTS stock_group_members (
			group_id INTEGER NOT NULL REFERENCES stock_groups(id),
			symbol   TEXT    NOT NULL REFERENCES stocks(symbol),
			PRIMARY KEY (group_id, symbol)
		);

		CREATE TABLE IF NOT EXISTS alerts (
			id                INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id           INTEGER NOT NULL,
			alert_type        TEXT    NOT NULL DEFAULT 'single',
			stock_symbol      TEXT,
			group_id          INTEGER,
			indicator1        TEXT    NOT NULL,
			indicator1_params TEXT    NOT NULL DEFAULT '{}',
			condition         TEXT    NOT NULL,
			crossover         INTEGER NOT NULL DEFAULT 0,
			indicator2        TEXT    NOT NULL,
			indicator2_params TEXT    NOT NULL DEFAULT '{}',
			timeframe         TEXT    NOT NULL,
			is_active         INTEGER NOT NULL DEFAULT 1,
			created_at        INTEGER NOT NULL DEFAULT (strftime('%s', 'now'))
		);

		CREATE TABLE IF NOT EXISTS notification_prefs (
			user_id       INTEGER PRIMARY KEY,
			email         TEXT    NOT NULL DEFAULT '',
			email_enabled INTEGER NOT NULL DEFAULT 1,
			sms_enabled   INTEGER NOT NULL DEFAULT 0,
			phone_number  TEXT    NOT NULL DEFAULT '',
			frequency     TEXT    NOT NULL DEFAULT 'immediate'
		);
	`)
	return err
}

// ListActive returns all active alerts with their scope resolved: the
// single stock's instrument row, or the group's member instruments. An
// alert with malformed indicator parameters or an unknown indicator name
// is logged and skipped, never fatal for the batch.
func (s *Store) ListActive(ctx context.Context) ([]model.AlertDefinition, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, alert_type, COALESCE(stock_symbol, ''), COALESCE(group_id, 0),
		       indicator1, indicator1_params, condition, crossover,
		       indicator2, indicator2_params, timeframe
		FROM alerts WHERE is_active = 1 ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list active alerts: %w", err)
	}
	defer rows.Close()

	// Drain the cursor before resolving scopes. The pool is capped at one
	// connection, which this cursor holds until closed; a nested query here
	// would wait on it forever.
	type pending struct {
		alert   model.AlertDefinition
		symbol  string
		groupID int64
	}
	var batch []pending
	for rows.Next() {
		var (
			p                                      pending
			scope                                  string
			ind1, params1, cond, ind2, params2, tf string
			crossover                              int
		)
		if err := rows.Scan(&p.alert.ID, &p.alert.UserID, &scope, &p.symbol, &p.groupID,
			&ind1, &params1, &cond, &crossover, &ind2, &params2, &tf); err != nil {
			return nil, fmt.Errorf("scan alert: %w", err)
		}

		p.alert.Scope = model.AlertScope(scope)
		p.alert.Crossover = crossover != 0
		p.alert.Active = true

		var perr error
		if p.alert.Indicator1, perr = model.ParseIndicatorSpec(ind1, params1); perr == nil {
			p.alert.Indicator2, perr = model.ParseIndicatorSpec(ind2, params2)
		}
		if perr == nil {
			p.alert.Condition, perr = model.ParseCondition(cond)
		}
		if perr == nil {
			p.alert.Timeframe, perr = model.ParseTimeframe(tf)
		}
		if perr != nil {
			log.Printf("[sqlite] skipping alert #%d: %v", p.alert.ID, perr)
			continue
		}
		batch = append(batch, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	var alerts []model.AlertDefinition
	for _, p := range batch {
		a := p.alert
		if a.Scope == model.ScopeSingle {
			if a.Stock, err = s.instrument(ctx, p.symbol); err != nil {
				log.Printf("[sqlite] skipping alert #%d: %v", a.ID, err)
				continue
			}
		} else {
			if a.GroupName, a.Members, err = s.groupMembers(ctx, p.groupID); err != nil {
				log.Printf("[sqlite] skipping alert #%d: %v", a.ID, err)
				continue
			}
		}
		if err := a.Validate(); err != nil {
			log.Printf("[sqlite] skipping alert #%d: %v", a.ID, err)
			continue
		}
		alerts = append(alerts, a)
	}
	return alerts, nil
}

func (s *Store) instrument(ctx context.Context, symbol string) (model.Instrument, error) {
	var inst model.Instrument
	err := s.db.QueryRowContext(ctx,
		`SELECT symbol, token, exchange, COALESCE(name, '') FROM stocks WHERE symbol = ?`, symbol).
		Scan(&inst.Symbol, &inst.Token, &inst.Exchange, &inst.Name)
	if err == sql.ErrNoRows {
		return inst, fmt.Errorf("unknown stock %q", symbol)
	}
	return inst, err
}

func (s *Store) groupMembers(ctx context.Context, groupID int64) (string, []model.Instrument, error) {
	var name string
	if err := s.db.QueryRowContext(ctx,
		`SELECT name FROM stock_groups WHERE id = ?`, groupID).Scan(&name); err != nil {
		if err == sql.ErrNoRows {
			return "", nil, fmt.Errorf("unknown stock group %d", groupID)
		}
		return "", nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT st.symbol, st.token, st.exchange, COALESCE(st.name, '')
		FROM stock_group_members m JOIN stocks st ON st.symbol = m.symbol
		WHERE m.group_id = ? ORDER BY st.symbol`, groupID)
	if err != nil {
		return "", nil, err
	}
	defer rows.Close()

	var members []model.Instrument
	for rows.Next() {
		var inst model.Instrument
		if err := rows.Scan(&inst.Symbol, &inst.Token, &inst.Exchange, &inst.Name); err != nil {
			return "", nil, err
		}
		members = append(members, inst)
	}
	return name, members, rows.Err()
}

// Deactivate flips is_active 1→0 for the alert. The WHERE guard makes the
// flip atomic across concurrent passes: only the call that performed the
// transition sees fired=true, so an alert fires at most once per activation.
func (s *Store) Deactivate(ctx context.Context, alertID int64) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE alerts SET is_active = 0 WHERE id = ? AND is_active = 1`, alertID)
	if err != nil {
		return false, fmt.Errorf("deactivate alert %d: %w", alertID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// Preferences returns the user's notification routing, or the defaults
// (email on, SMS off, immediate) when none are stored.
func (s *Store) Preferences(ctx context.Context, userID int64) (model.NotificationPreference, error) {
	pref := model.NotificationPreference{
		UserID:       userID,
		EmailEnabled: true,
		Frequency:    "immediate",
	}
	var emailEnabled, smsEnabled int
	err := s.db.QueryRowContext(ctx, `
		SELECT email, email_enabled, sms_enabled, phone_number, frequency
		FROM notification_prefs WHERE user_id = ?`, userID).
		Scan(&pref.Email, &emailEnabled, &smsEnabled, &pref.PhoneNumber, &pref.Frequency)
	if err == sql.ErrNoRows {
		return pref, nil
	}
	if err != nil {
		return pref, fmt.Errorf("preferences for user %d: %w", userID, err)
	}
	pref.EmailEnabled = emailEnabled != 0
	pref.SMSEnabled = smsEnabled != 0 && pref.PhoneNumber != ""
	return pref, nil
}

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }
