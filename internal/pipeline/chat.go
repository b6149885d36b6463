package pipeline

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/BTreeMap/LifeDraft/internal/models"
	"github.com/BTreeMap/LifeDraft/internal/retry"
)

// Persona selects the voice of a chat session.
type Persona string

const (
	// PersonaCompanion is the calm decision companion discussing the
	// current simulation and the archive.
	PersonaCompanion Persona = "companion"
	// PersonaFutureSelf speaks as the user's future self five years down
	// the chosen road.
	PersonaFutureSelf Persona = "future_self"
)

// ChatSession is one conversation with the chat companion. The session is
// constructed with its full context up front (current result, decision
// input, archive) and carries its own transcript; no state hides anywhere
// else. Safe for concurrent use: turns on the same session are serialized.
type ChatSession struct {
	gen    Generator
	policy retry.Policy
	system string
	now    func() time.Time

	mu      sync.Mutex
	history []models.ChatMessage
}

// ChatConfig carries the context a session is constructed with.
type ChatConfig struct {
	Persona Persona
	// Input is the decision being discussed.
	Input models.UserInput
	// Drivers are the life drivers selected for the current journey.
	Drivers []string
	// Result is the current simulation, if one exists.
	Result *models.SimulationResult
	// Archive supplies the decision labels of past consultations.
	Archive []models.SavedConsultation
	// Policy overrides the default retry policy.
	Policy retry.Policy
}

// NewChatSession creates a chat session with its context assembled into the
// system instruction.
func NewChatSession(gen Generator, cfg ChatConfig) *ChatSession {
	return &ChatSession{
		gen:    gen,
		policy: cfg.Policy,
		system: buildChatSystem(cfg),
		now:    time.Now,
	}
}

// Chat opens a chat session over the orchestrator's current state.
func (o *Orchestrator) Chat(persona Persona, archive []models.SavedConsultation) *ChatSession {
	return NewChatSession(o.gen, ChatConfig{
		Persona: persona,
		Input:   o.input,
		Drivers: o.drivers,
		Result:  o.result,
		Archive: archive,
		Policy:  o.policy,
	})
}

// Send appends the user's message to the transcript, sends the whole
// transcript to the model, and returns the reply. On failure the user turn is
// rolled back so a retry does not duplicate it. Concurrent Send calls on the
// same session queue behind each other; each model call sees a transcript
// ending in the turn it answers.
func (s *ChatSession) Send(ctx context.Context, text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("chat message is empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, models.ChatMessage{Role: models.ChatRoleUser, Body: text, Time: s.now()})

	reply, err := retry.Do(ctx, s.policy, func(ctx context.Context) (string, error) {
		return s.gen.GenerateChat(ctx, s.system, s.history)
	})
	if err != nil {
		s.history = s.history[:len(s.history)-1]
		return "", err
	}

	s.history = append(s.history, models.ChatMessage{Role: models.ChatRoleModel, Body: reply, Time: s.now()})
	return reply, nil
}

// History returns a copy of the session transcript.
func (s *ChatSession) History() []models.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.ChatMessage(nil), s.history...)
}

func buildChatSystem(cfg ChatConfig) string {
	if cfg.Persona == PersonaFutureSelf {
		return buildFutureSelfSystem(cfg)
	}

	historyContext := "No previous history."
	if len(cfg.Archive) > 0 {
		labels := make([]string, len(cfg.Archive))
		for i, c := range cfg.Archive {
			labels[i] = c.Input.Decision
		}
		historyContext = "PAST JOURNEYS IN ARCHIVE: " + strings.Join(labels, ", ")
	}

	simulationContext := "No active simulation data is available to discuss."
	if cfg.Result != nil {
		simulationContext = "CURRENT SIMULATION DATA (FOR EXPLANATION):\n" + marshalJSON(cfg.Result)
	}

	var b strings.Builder
	b.WriteString(chatbotInstruction)
	b.WriteString("\nUSER'S CONTEXT:\n")
	fmt.Fprintf(&b, "Current Decision: %s\n", cfg.Input.Decision)
	fmt.Fprintf(&b, "Current Context: %s\n", cfg.Input.Situation)
	fmt.Fprintf(&b, "Historical Context: %s\n\n", historyContext)
	b.WriteString(simulationContext)
	return b.String()
}

func buildFutureSelfSystem(cfg ChatConfig) string {
	outcome := "Integration"
	if cfg.Result != nil && len(cfg.Result.Trajectory) > 0 {
		if m := cfg.Result.Trajectory[len(cfg.Result.Trajectory)-1].Milestone; m != "" {
			outcome = m
		}
	}

	var b strings.Builder
	b.WriteString(futureReflectionInstruction)
	b.WriteString("\nBACKGROUND CONTEXT OF THIS TIMELINE:\n")
	fmt.Fprintf(&b, "PATH CHOSEN: %s\n", cfg.Input.Decision)
	drivers := cfg.Drivers
	if len(drivers) == 0 {
		drivers = cfg.Input.Values
	}
	fmt.Fprintf(&b, "CORE DRIVERS: %s\n", strings.Join(drivers, ", "))
	fmt.Fprintf(&b, "5-YEAR OUTCOME SUMMARY: %s\n", outcome)
	return b.String()
}
