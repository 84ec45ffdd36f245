// Package notify delivers fired alerts to users over email and SMS,
// routed by each user's stored notification preferences.
package notify

import (
	"context"
	"log"

	"tradingalerts/internal/model"
)

// EmailSender delivers one email message.
type EmailSender interface {
	SendEmail(ctx context.Context, to, subject, body string) error
}

// SMSSender delivers one SMS message.
type SMSSender interface {
	SendSMS(ctx context.Context, to, body string) error
}

// Manager implements model.Notifier by fanning out to the configured
// channels. Either sender may be nil when that channel is not configured.
type Manager struct {
	email EmailSender
	sms   SMSSender
}

// NewManager builds a Manager from the configured senders.
func NewManager(email EmailSender, sms SMSSender) *Manager {
	return &Manager{email: email, sms: sms}
}

// NotifyUser delivers the message on every channel the preference enables
// and reports per-channel outcomes. Channel failures are independent: a
// dead SMS gateway never blocks the email. Users on a daily digest get the
// message logged for the digest run instead of an immediate send.
func (m *Manager) NotifyUser(ctx context.Context, pref model.NotificationPreference, subject, message string) map[string]error {
	results := make(map[string]error)

	if pref.Frequency == "daily" {
		log.Printf("[notify] user %d is on daily digest; queuing %q", pref.UserID, subject)
		return results
	}

	if pref.EmailEnabled && pref.Email != "" {
		if m.email == nil {
			log.Printf("[notify] email enabled for user %d but no sender configured", pref.UserID)
		} else {
			err := m.email.SendEmail(ctx, pref.Email, subject, message)
			results["email"] = err
			if err != nil {
				log.Printf("[notify] email to %s failed: %v", pref.Email, err)
			}
		}
	}

	if pref.SMSEnabled && pref.PhoneNumber != "" {
		if m.sms == nil {
			log.Printf("[notify] sms enabled for user %d but no sender configured", pref.UserID)
		} else {
			err := m.sms.SendSMS(ctx, pref.PhoneNumber, message)
			results["sms"] = err
			if err != nil {
				log.Printf("[notify] sms to %s failed: %v", pref.PhoneNumber, err)
			}
		}
	}

	return results
}

// LogSender writes messages to the process log instead of delivering them.
// Useful in development and as the default when no channel is configured.
type LogSender struct{}

func (LogSender) SendEmail(_ context.Context, to, subject, body string) error {
	log.Printf("[notify] email to=%s subject=%q\n%s", to, subject, body)
	return nil
}

func (LogSender) SendSMS(_ context.Context, to, body string) error {
	log.Printf("[notify] sms to=%s body=%q", to, body)
	return nil
}
