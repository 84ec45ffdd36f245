package notify

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"tradingalerts/internal/model"
)

type recordingSender struct {
	emails []string
	sms    []string
	err    error
}

func (r *recordingSender) SendEmail(_ context.Context, to, subject, body string) error {
	r.emails = append(r.emails, to)
	return r.err
}

func (r *recordingSender) SendSMS(_ context.Context, to, body string) error {
	r.sms = append(r.sms, to)
	return r.err
}

func TestNotifyUserRoutesByPreference(t *testing.T) {
	rec := &recordingSender{}
	m := NewManager(rec, rec)

	pref := model.NotificationPreference{
		UserID:       1,
		Email:        "a@example.com",
		EmailEnabled: true,
		SMSEnabled:   true,
		PhoneNumber:  "+911234567890",
		Frequency:    "immediate",
	}
	results := m.NotifyUser(context.Background(), pref, "subj", "msg")

	if len(rec.emails) != 1 || len(rec.sms) != 1 {
		t.Fatalf("got %d emails, %d sms; want 1 each", len(rec.emails), len(rec.sms))
	}
	if results["email"] != nil || results["sms"] != nil {
		t.Errorf("results = %v, want both nil", results)
	}
}

func TestNotifyUserSkipsDisabledChannels(t *testing.T) {
	rec := &recordingSender{}
	m := NewManager(rec, rec)

	pref := model.NotificationPreference{
		UserID:       1,
		Email:        "a@example.com",
		EmailEnabled: true,
		SMSEnabled:   false,
		PhoneNumber:  "+911234567890",
		Frequency:    "immediate",
	}
	results := m.NotifyUser(context.Background(), pref, "subj", "msg")

	if len(rec.sms) != 0 {
		t.Errorf("sms sent despite being disabled")
	}
	if _, ok := results["sms"]; ok {
		t.Errorf("sms present in results: %v", results)
	}
	if len(rec.emails) != 1 {
		t.Errorf("email not sent")
	}
}

func TestNotifyUserChannelFailuresAreIndependent(t *testing.T) {
	badSMS := &recordingSender{err: errors.New("gateway down")}
	goodEmail := &recordingSender{}
	m := NewManager(goodEmail, badSMS)

	pref := model.NotificationPreference{
		UserID:       1,
		Email:        "a@example.com",
		EmailEnabled: true,
		SMSEnabled:   true,
		PhoneNumber:  "+911234567890",
		Frequency:    "immediate",
	}
	results := m.NotifyUser(context.Background(), pref, "subj", "msg")

	if results["email"] != nil {
		t.Errorf("email error = %v, want nil", results["email"])
	}
	if results["sms"] == nil {
		t.Error("sms failure not reported")
	}
	if len(goodEmail.emails) != 1 {
		t.Error("email delivery blocked by sms failure")
	}
}

func TestNotifyUserDailyDigestQueues(t *testing.T) {
	rec := &recordingSender{}
	m := NewManager(rec, rec)

	pref := model.NotificationPreference{
		UserID:       1,
		Email:        "a@example.com",
		EmailEnabled: true,
		Frequency:    "daily",
	}
	results := m.NotifyUser(context.Background(), pref, "subj", "msg")
	if len(rec.emails) != 0 || len(results) != 0 {
		t.Errorf("daily-digest user received immediate delivery: %v", results)
	}
}

func TestTwilioSenderAcceptedOn201(t *testing.T) {
	var gotTo, gotFrom string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		gotTo = r.PostFormValue("To")
		gotFrom = r.PostFormValue("From")
		if u, _, ok := r.BasicAuth(); !ok || u != "AC123" {
			t.Errorf("basic auth user = %q", u)
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	s := NewTwilioSender(TwilioConfig{
		AccountSID: "AC123", AuthToken: "tok", FromNumber: "+15550001111", BaseURL: srv.URL,
	})
	if err := s.SendSMS(context.Background(), "+911234567890", "hello"); err != nil {
		t.Fatalf("send: %v", err)
	}
	if gotTo != "+911234567890" || gotFrom != "+15550001111" {
		t.Errorf("got to=%q from=%q", gotTo, gotFrom)
	}
}

func TestTwilioSenderRejectsNon201(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"message": "invalid number"}`))
	}))
	defer srv.Close()

	s := NewTwilioSender(TwilioConfig{
		AccountSID: "AC123", AuthToken: "tok", FromNumber: "+15550001111", BaseURL: srv.URL,
	})
	err := s.SendSMS(context.Background(), "bogus", "hello")
	if err == nil || !strings.Contains(err.Error(), "400") {
		t.Fatalf("err = %v, want status 400 failure", err)
	}
}

func TestTwilioSenderTruncatesLongBody(t *testing.T) {
	var gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		gotBody = r.PostFormValue("Body")
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	s := NewTwilioSender(TwilioConfig{
		AccountSID: "AC123", AuthToken: "tok", FromNumber: "+15550001111", BaseURL: srv.URL,
	})
	long := strings.Repeat("x", smsMaxLen+500)
	if err := s.SendSMS(context.Background(), "+911234567890", long); err != nil {
		t.Fatalf("send: %v", err)
	}
	if len(gotBody) != smsMaxLen {
		t.Errorf("body length = %d, want %d", len(gotBody), smsMaxLen)
	}
	if !strings.HasSuffix(gotBody, "...") {
		t.Error("truncated body should end with ellipsis")
	}
}

func TestBuildMessageHeaders(t *testing.T) {
	msg := buildMessage("alerts@example.com", "user@example.com", "RELIANCE alert", "body text")
	for _, want := range []string{
		"From: alerts@example.com\r\n",
		"To: user@example.com\r\n",
		"Subject: RELIANCE alert\r\n",
		"\r\n\r\nbody text",
	} {
		if !strings.Contains(msg, want) {
			t.Errorf("message missing %q:\n%s", want, msg)
		}
	}
}
