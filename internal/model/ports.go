package model

import (
	"context"
	"time"
)

// ── Port Interfaces ──
// These decouple the evaluation core from concrete collaborators
// (broker client, SQLite store, SMTP/Twilio delivery).

// Provider fetches candle series for an instrument. Implementations own
// session lifecycle, retries and the synthetic fallback; a returned Series
// carries its provenance in Source.
type Provider interface {
	Fetch(ctx context.Context, inst Instrument, tf Timeframe, from, to time.Time) (*Series, error)
}

// AlertStore is the externally-owned alert persistence the engine reads.
// The engine's only write is the one-time Deactivate flip.
type AlertStore interface {
	// ListActive returns all alerts with Active=true, scope resolved.
	ListActive(ctx context.Context) ([]AlertDefinition, error)

	// Deactivate flips Active false. Returns true only if this call
	// performed the 1→0 transition, so concurrent passes cannot both fire.
	Deactivate(ctx context.Context, alertID int64) (bool, error)

	// Preferences returns the user's notification routing, or defaults
	// (email on, SMS off) when none are stored.
	Preferences(ctx context.Context, userID int64) (NotificationPreference, error)
}

// Notifier delivers a rendered alert message. The returned map reports
// per-channel delivery status ("email", "sms"); a delivery failure never
// rolls back the alert's deactivation.
type Notifier interface {
	NotifyUser(ctx context.Context, pref NotificationPreference, subject, message string) map[string]error
}
