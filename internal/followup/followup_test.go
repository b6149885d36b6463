package followup

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/BTreeMap/LifeDraft/internal/messaging"
	"github.com/BTreeMap/LifeDraft/internal/models"
	"github.com/BTreeMap/LifeDraft/internal/store"
)

func fixedClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}

func directiveWithSuggestion(days int) *models.FinalDirective {
	return &models.FinalDirective{
		FinalVerdict: "Go ahead.",
		FollowUpSuggestion: &models.FollowUpSuggestion{
			Days:     days,
			Question: "How is it going?",
		},
	}
}

func TestScheduleFromDirective(t *testing.T) {
	base := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	st := store.NewInMemoryStore()
	agent := NewAgent(st, &messaging.MockSender{}, WithClock(fixedClock(base)))

	f, err := agent.ScheduleFromDirective("v_1", "move cities", directiveWithSuggestion(14))
	if err != nil {
		t.Fatalf("ScheduleFromDirective() error = %v", err)
	}
	if f == nil {
		t.Fatal("no follow-up returned")
	}
	if want := base.AddDate(0, 0, 14); !f.ScheduledAt.Equal(want) {
		t.Errorf("ScheduledAt = %v, want %v", f.ScheduledAt, want)
	}

	stored, err := st.ListFollowUps()
	if err != nil {
		t.Fatalf("ListFollowUps() error = %v", err)
	}
	if len(stored) != 1 || stored[0].Question != "How is it going?" {
		t.Errorf("stored = %+v", stored)
	}
}

func TestScheduleFromDirectiveWithoutSuggestion(t *testing.T) {
	st := store.NewInMemoryStore()
	agent := NewAgent(st, &messaging.MockSender{})

	f, err := agent.ScheduleFromDirective("v_1", "move cities", &models.FinalDirective{FinalVerdict: "Go."})
	if err != nil {
		t.Fatalf("ScheduleFromDirective() error = %v", err)
	}
	if f != nil {
		t.Errorf("follow-up scheduled without a suggestion: %+v", f)
	}
}

func TestScheduleFromDirectiveRejectsBadDays(t *testing.T) {
	agent := NewAgent(store.NewInMemoryStore(), &messaging.MockSender{})
	if _, err := agent.ScheduleFromDirective("v_1", "move cities", directiveWithSuggestion(0)); err == nil {
		t.Error("zero-day suggestion accepted")
	}
}

func TestScanDeliversDueOnce(t *testing.T) {
	base := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	st := store.NewInMemoryStore()
	sender := &messaging.MockSender{}
	agent := NewAgent(st, sender, WithRecipient("+15550004444"), WithClock(fixedClock(base)))

	if err := st.AddFollowUp(models.FollowUp{
		ID: "f_due", DecisionLabel: "move cities",
		ScheduledAt: base.Add(-time.Hour), Question: "Settled in?",
	}); err != nil {
		t.Fatalf("AddFollowUp() error = %v", err)
	}
	if err := st.AddFollowUp(models.FollowUp{
		ID: "f_later", DecisionLabel: "move cities",
		ScheduledAt: base.Add(48 * time.Hour), Question: "Still happy?",
	}); err != nil {
		t.Fatalf("AddFollowUp() error = %v", err)
	}

	if err := agent.ScanAndDeliver(context.Background()); err != nil {
		t.Fatalf("ScanAndDeliver() error = %v", err)
	}
	if len(sender.Sent) != 1 {
		t.Fatalf("delivered %d reminders, want 1", len(sender.Sent))
	}
	if sender.Sent[0].To != "+15550004444" || !strings.Contains(sender.Sent[0].Body, "Settled in?") {
		t.Errorf("reminder = %+v", sender.Sent[0])
	}

	// A second scan must not repeat the reminder.
	if err := agent.ScanAndDeliver(context.Background()); err != nil {
		t.Fatalf("second ScanAndDeliver() error = %v", err)
	}
	if len(sender.Sent) != 1 {
		t.Errorf("reminder repeated: %d sent", len(sender.Sent))
	}
}

func TestScanRetriesAfterDeliveryFailure(t *testing.T) {
	base := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	st := store.NewInMemoryStore()
	sender := &messaging.MockSender{Err: errors.New("network down")}
	agent := NewAgent(st, sender, WithClock(fixedClock(base)))

	if err := st.AddFollowUp(models.FollowUp{
		ID: "f_due", ScheduledAt: base.Add(-time.Minute), Question: "Well?",
	}); err != nil {
		t.Fatalf("AddFollowUp() error = %v", err)
	}

	if err := agent.ScanAndDeliver(context.Background()); err != nil {
		t.Fatalf("ScanAndDeliver() error = %v", err)
	}
	if len(sender.Sent) != 0 {
		t.Fatalf("delivery recorded despite failure: %+v", sender.Sent)
	}

	// Once the sender recovers the next scan delivers.
	sender.Err = nil
	if err := agent.ScanAndDeliver(context.Background()); err != nil {
		t.Fatalf("recovery ScanAndDeliver() error = %v", err)
	}
	if len(sender.Sent) != 1 {
		t.Errorf("delivered %d reminders after recovery, want 1", len(sender.Sent))
	}
}

func TestCompleteStopsDelivery(t *testing.T) {
	base := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	st := store.NewInMemoryStore()
	sender := &messaging.MockSender{}
	agent := NewAgent(st, sender, WithClock(fixedClock(base)))

	if err := st.AddFollowUp(models.FollowUp{
		ID: "f_due", ScheduledAt: base.Add(-time.Minute), Question: "Well?",
	}); err != nil {
		t.Fatalf("AddFollowUp() error = %v", err)
	}
	if err := agent.Complete("f_due"); err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if err := agent.ScanAndDeliver(context.Background()); err != nil {
		t.Fatalf("ScanAndDeliver() error = %v", err)
	}
	if len(sender.Sent) != 0 {
		t.Errorf("completed follow-up delivered: %+v", sender.Sent)
	}
}
