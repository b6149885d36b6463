package messaging

import (
	"context"
	"testing"
)

func TestNewTwilioSenderRequiresCredentials(t *testing.T) {
	if _, err := NewTwilioSender(WithFromNumber("+15550001111")); err == nil {
		t.Error("expected error without account SID and auth token")
	}
	if _, err := NewTwilioSender(WithAccountSID("AC123"), WithAuthToken("secret")); err == nil {
		t.Error("expected error without from number")
	}
	if _, err := NewTwilioSender(WithAccountSID("AC123"), WithAuthToken("secret"), WithFromNumber("+15550001111")); err != nil {
		t.Errorf("expected no error with full credentials, got %v", err)
	}
}

func TestNoopSender(t *testing.T) {
	if err := (NoopSender{}).SendReminder(context.Background(), "+15550002222", "checking in"); err != nil {
		t.Errorf("NoopSender.SendReminder() error = %v", err)
	}
}

func TestMockSenderRecords(t *testing.T) {
	m := &MockSender{}
	if err := m.SendReminder(context.Background(), "+15550003333", "hello"); err != nil {
		t.Fatalf("SendReminder() error = %v", err)
	}
	if len(m.Sent) != 1 || m.Sent[0].Body != "hello" {
		t.Errorf("recorded = %+v", m.Sent)
	}
}
