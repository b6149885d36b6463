// Package messaging delivers follow-up reminders to users.
//
// The Twilio-backed sender delivers reminders over SMS; the no-op sender
// keeps deployments without Twilio credentials working, logging what would
// have been sent.
package messaging

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

// Sender delivers one reminder message to a recipient.
type Sender interface {
	SendReminder(ctx context.Context, to string, body string) error
}

// Opts holds configuration options for the Twilio sender.
type Opts struct {
	AccountSID string
	AuthToken  string
	FromNumber string
}

// Option defines a configuration option for the Twilio sender.
type Option func(*Opts)

// WithAccountSID sets the Twilio account SID.
func WithAccountSID(sid string) Option {
	return func(o *Opts) { o.AccountSID = sid }
}

// WithAuthToken sets the Twilio auth token.
func WithAuthToken(token string) Option {
	return func(o *Opts) { o.AuthToken = token }
}

// WithFromNumber sets the number reminders are sent from.
func WithFromNumber(from string) Option {
	return func(o *Opts) { o.FromNumber = from }
}

// TwilioSender sends reminders as SMS through the Twilio REST API.
type TwilioSender struct {
	client     *twilio.RestClient
	fromNumber string
}

// NewTwilioSender creates a Twilio-backed sender. All credentials must be
// supplied through options; there is no environment fallback here.
func NewTwilioSender(opts ...Option) (*TwilioSender, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("Twilio sender config loaded",
		"AccountSID_set", cfg.AccountSID != "",
		"AuthToken_set", cfg.AuthToken != "",
		"FromNumber_set", cfg.FromNumber != "")

	if cfg.AccountSID == "" || cfg.AuthToken == "" {
		return nil, fmt.Errorf("account SID and auth token must be provided")
	}
	if cfg.FromNumber == "" {
		return nil, fmt.Errorf("from number must be provided")
	}

	client := twilio.NewRestClientWithParams(
		twilio.ClientParams{
			Username: cfg.AccountSID,
			Password: cfg.AuthToken,
		},
	)

	return &TwilioSender{
		client:     client,
		fromNumber: cfg.FromNumber,
	}, nil
}

// SendReminder sends one SMS reminder.
func (s *TwilioSender) SendReminder(ctx context.Context, to string, body string) error {
	params := &twilioApi.CreateMessageParams{}
	params.SetTo(to)
	params.SetFrom(s.fromNumber)
	params.SetBody(body)

	_, err := s.client.Api.CreateMessage(params)
	if err != nil {
		slog.Error("Twilio SendReminder failed", "to", to, "error", err)
		return fmt.Errorf("failed to send reminder to %s: %w", to, err)
	}

	slog.Debug("Twilio reminder sent", "to", to)
	return nil
}

// NoopSender logs reminders instead of delivering them.
type NoopSender struct{}

// SendReminder logs the reminder and succeeds.
func (NoopSender) SendReminder(ctx context.Context, to string, body string) error {
	slog.Info("Reminder delivery skipped (no sender configured)", "to", to, "body", body)
	return nil
}

// MockSender records reminders for tests.
type MockSender struct {
	Sent []SentReminder
	Err  error
}

// SentReminder is one recorded reminder.
type SentReminder struct {
	To   string
	Body string
}

func (m *MockSender) SendReminder(ctx context.Context, to string, body string) error {
	if m.Err != nil {
		return m.Err
	}
	m.Sent = append(m.Sent, SentReminder{To: to, Body: body})
	return nil
}
