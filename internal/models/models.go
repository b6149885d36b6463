// Package models defines the core data structures for LifeDraft.
//
// It includes types for user decision input, pipeline artifacts, follow-up
// reminders, and chat transcripts, which are shared across modules.
package models

import (
	"errors"
	"fmt"
	"time"
)

// Validation constants for input validation
const (
	// ExactDriverCount defines the number of value drivers a user must select
	// before the simulate stage may run.
	ExactDriverCount = 5
	// ExactCrossroadCount defines the number of branch questions a simulation
	// must produce.
	ExactCrossroadCount = 10
	// ExactTrajectoryYears defines the number of trajectory nodes (years 1-5)
	// a simulation must produce, for both the chosen road and the inaction
	// scenario.
	ExactTrajectoryYears = 5
	// MaxAttachedImages defines the maximum number of image attachments
	// accepted on a decision input.
	MaxAttachedImages = 2
	// ExpectedActionPlanSteps defines the number of action plan steps a final
	// directive is expected to carry.
	ExpectedActionPlanSteps = 3
)

// Error variables for better error handling and testability
var (
	ErrMissingSituation     = errors.New("situation text is required")
	ErrMissingDecision      = errors.New("decision text is required")
	ErrTooManyImages        = errors.New("at most two image attachments are allowed")
	ErrEmptyImage           = errors.New("image attachment has no data")
	ErrDriverCount          = errors.New("exactly five value drivers must be selected")
	ErrDuplicateDriver      = errors.New("value drivers must be distinct")
	ErrUnknownDriver        = errors.New("value driver is not in the core value catalog")
	ErrNoArtifact           = errors.New("no reasoning artifact present; run interpret first")
	ErrNoSimulation         = errors.New("no simulation result present; run simulate first")
	ErrUnansweredCrossroads = errors.New("all ten crossroads must be answered")
	ErrCrossroadIndex       = errors.New("crossroad index out of range")
	ErrInvalidAnswer        = errors.New("crossroad answer must be yes or no")
	ErrMalformedResponse    = errors.New("model response did not match the expected structure")
)

// Attachment is an inline binary attachment (an image) tagged with its media
// type, passed to the model alongside the text payload.
type Attachment struct {
	Data     []byte `json:"data"`
	MIMEType string `json:"mime_type"`
}

// UserInput captures everything the user has told us about their decision.
// It is owned by the caller and passed by value into each pipeline stage.
type UserInput struct {
	Situation   string       `json:"situation"`
	Decision    string       `json:"decision"`
	Goals       string       `json:"goals,omitempty"`
	Fears       string       `json:"fears,omitempty"`
	Constraints string       `json:"constraints,omitempty"`
	Values      []string     `json:"values,omitempty"`
	Images      []Attachment `json:"images,omitempty"`
}

// Validate checks the fields required before the interpret stage may run.
// Driver selection is validated separately by ValidateDrivers because the
// user picks drivers after interpretation.
func (u *UserInput) Validate() error {
	if u.Situation == "" {
		return ErrMissingSituation
	}
	if u.Decision == "" {
		return ErrMissingDecision
	}
	if len(u.Images) > MaxAttachedImages {
		return ErrTooManyImages
	}
	for _, img := range u.Images {
		if len(img.Data) == 0 {
			return ErrEmptyImage
		}
	}
	return nil
}

// ValidateDrivers checks the driver-selection gate: exactly five distinct
// entries from the core value catalog.
func ValidateDrivers(values []string) error {
	if len(values) != ExactDriverCount {
		return ErrDriverCount
	}
	seen := make(map[string]bool, len(values))
	for _, v := range values {
		if seen[v] {
			return ErrDuplicateDriver
		}
		seen[v] = true
		if !IsKnownValue(v) {
			return fmt.Errorf("%w: %q", ErrUnknownDriver, v)
		}
	}
	return nil
}

// ReasoningArtifact is the structured output of the interpret stage. A
// refinement run replaces the artifact wholesale; fields are never merged.
type ReasoningArtifact struct {
	DecisionSummary    string   `json:"decisionSummary"`
	KeyTensions        []string `json:"keyTensions"`
	NonNegotiables     []string `json:"nonNegotiables"`
	UnclearAssumptions []string `json:"unclearAssumptions"`
	PressurePoints     []string `json:"pressurePoints"`
}

// Answer is a binary choice at a decision crossroad.
type Answer string

const (
	AnswerYes Answer = "yes"
	AnswerNo  Answer = "no"
)

// IsValidAnswer checks if the given answer is supported.
func IsValidAnswer(a Answer) bool {
	return a == AnswerYes || a == AnswerNo
}

// CrossroadAnswers maps a crossroad index (0-9) to the user's choice.
type CrossroadAnswers map[int]Answer

// Complete reports whether every crossroad index has an answer.
func (c CrossroadAnswers) Complete() bool {
	for i := 0; i < ExactCrossroadCount; i++ {
		if _, ok := c[i]; !ok {
			return false
		}
	}
	return true
}

// FollowUpSuggestion is an optional check-in proposed by the synthesis stage:
// ask the user Question after Days days.
type FollowUpSuggestion struct {
	Days     int    `json:"days"`
	Question string `json:"question"`
}

// FinalDirective is the synthesis stage's verdict for the chosen branch path.
type FinalDirective struct {
	FinalVerdict       string              `json:"finalVerdict"`
	ActionPlan         []string            `json:"actionPlan"`
	Reassurance        string              `json:"reassurance"`
	FollowUpSuggestion *FollowUpSuggestion `json:"followUpSuggestion,omitempty"`
}

// SavedConsultation is one archived pipeline run in the consultation vault.
type SavedConsultation struct {
	ID        string           `json:"id"`
	Timestamp time.Time        `json:"timestamp"`
	Input     UserInput        `json:"input"`
	Result    SimulationResult `json:"result"`
}

// FollowUp is a scheduled check-in derived from a directive's
// FollowUpSuggestion.
type FollowUp struct {
	ID             string    `json:"id"`
	ConsultationID string    `json:"consultation_id"`
	DecisionLabel  string    `json:"decision_label"`
	ScheduledAt    time.Time `json:"scheduled_at"`
	Question       string    `json:"question"`
	Completed      bool      `json:"completed"`
}

// Due reports whether the follow-up is due at the given time and still open.
func (f *FollowUp) Due(now time.Time) bool {
	return !f.Completed && !f.ScheduledAt.After(now)
}

// ChatRole identifies the author of a chat message.
type ChatRole string

const (
	ChatRoleUser  ChatRole = "user"
	ChatRoleModel ChatRole = "model"
)

// ChatMessage is one turn of the chat companion transcript.
type ChatMessage struct {
	Role ChatRole  `json:"role"`
	Body string    `json:"body"`
	Time time.Time `json:"time"`
}
