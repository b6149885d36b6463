// Package followup schedules and delivers check-in reminders derived from
// final directives.
//
// When a directive proposes a follow-up, the agent stores it and a recurring
// due scan delivers the question once its day arrives. Delivery failures are
// retried on the next scan; a follow-up only stops firing once it is marked
// completed.
package followup

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/BTreeMap/LifeDraft/internal/messaging"
	"github.com/BTreeMap/LifeDraft/internal/models"
	"github.com/BTreeMap/LifeDraft/internal/scheduler"
	"github.com/BTreeMap/LifeDraft/internal/store"
	"github.com/BTreeMap/LifeDraft/internal/util"
)

// DefaultScanSchedule is how often the agent scans for due follow-ups.
const DefaultScanSchedule = "@every 1h"

// Agent owns the follow-up lifecycle: scheduling from directives, the
// recurring due scan, and reminder delivery.
type Agent struct {
	store     store.Store
	sender    messaging.Sender
	recipient string
	now       func() time.Time

	mu        sync.Mutex
	delivered map[string]bool
}

// Opts holds configuration options for the follow-up agent.
type Opts struct {
	Recipient string
	Now       func() time.Time
}

// Option defines a configuration option for the follow-up agent.
type Option func(*Opts)

// WithRecipient sets the number reminders are delivered to.
func WithRecipient(to string) Option {
	return func(o *Opts) { o.Recipient = to }
}

// WithClock overrides the agent's clock. Used in tests.
func WithClock(now func() time.Time) Option {
	return func(o *Opts) { o.Now = now }
}

// NewAgent creates a follow-up agent.
func NewAgent(st store.Store, sender messaging.Sender, opts ...Option) *Agent {
	cfg := Opts{Now: time.Now}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Agent{
		store:     st,
		sender:    sender,
		recipient: cfg.Recipient,
		now:       cfg.Now,
		delivered: make(map[string]bool),
	}
}

// ScheduleFromDirective stores a follow-up for the directive's suggestion, if
// it carries one. Returns the stored follow-up, or nil when the directive
// suggests none.
func (a *Agent) ScheduleFromDirective(consultationID, decisionLabel string, directive *models.FinalDirective) (*models.FollowUp, error) {
	if directive == nil || directive.FollowUpSuggestion == nil {
		return nil, nil
	}
	suggestion := directive.FollowUpSuggestion
	if suggestion.Days <= 0 {
		return nil, fmt.Errorf("follow-up suggestion has non-positive day count %d", suggestion.Days)
	}

	f := models.FollowUp{
		ID:             util.GenerateFollowUpID(),
		ConsultationID: consultationID,
		DecisionLabel:  decisionLabel,
		ScheduledAt:    a.now().AddDate(0, 0, suggestion.Days),
		Question:       suggestion.Question,
	}
	if err := a.store.AddFollowUp(f); err != nil {
		slog.Error("Failed to store follow-up", "error", err, "consultationID", consultationID)
		return nil, err
	}
	slog.Info("Follow-up scheduled", "id", f.ID, "decision", decisionLabel, "scheduledAt", f.ScheduledAt)
	return &f, nil
}

// Start registers the recurring due scan on the scheduler.
func (a *Agent) Start(sched *scheduler.Scheduler, schedule string) error {
	if schedule == "" {
		schedule = DefaultScanSchedule
	}
	return sched.AddJob(schedule, func() {
		if err := a.ScanAndDeliver(context.Background()); err != nil {
			slog.Error("Follow-up scan failed", "error", err)
		}
	})
}

// ScanAndDeliver delivers every due follow-up that has not been delivered in
// this process yet. A delivered follow-up keeps appearing in due scans until
// the user completes it, so the in-process set keeps reminders from repeating
// every scan.
func (a *Agent) ScanAndDeliver(ctx context.Context) error {
	due, err := a.store.DueFollowUps(a.now())
	if err != nil {
		return fmt.Errorf("failed to load due follow-ups: %w", err)
	}

	for _, f := range due {
		a.mu.Lock()
		seen := a.delivered[f.ID]
		a.mu.Unlock()
		if seen {
			continue
		}

		body := fmt.Sprintf("Checking in on %q: %s", f.DecisionLabel, f.Question)
		if err := a.sender.SendReminder(ctx, a.recipient, body); err != nil {
			slog.Error("Follow-up delivery failed", "error", err, "id", f.ID)
			continue
		}

		a.mu.Lock()
		a.delivered[f.ID] = true
		a.mu.Unlock()
		slog.Info("Follow-up delivered", "id", f.ID, "decision", f.DecisionLabel)
	}
	return nil
}

// Complete marks a follow-up handled so it stops firing.
func (a *Agent) Complete(id string) error {
	if err := a.store.CompleteFollowUp(id); err != nil {
		return err
	}
	a.mu.Lock()
	delete(a.delivered, id)
	a.mu.Unlock()
	return nil
}
