package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/BTreeMap/LifeDraft/internal/models"
)

func TestChatSessionSend(t *testing.T) {
	gen := &scriptedGenerator{chatReply: "That tension is worth sitting with."}
	result := validResult()
	session := NewChatSession(gen, ChatConfig{
		Persona: PersonaCompanion,
		Input:   testInput(),
		Result:  &result,
		Policy:  noSleep,
	})

	reply, err := session.Send(context.Background(), "Why is the worst case so likely?")
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if reply != "That tension is worth sitting with." {
		t.Errorf("reply = %q", reply)
	}

	history := session.History()
	if len(history) != 2 {
		t.Fatalf("history length = %d, want 2", len(history))
	}
	if history[0].Role != models.ChatRoleUser || history[1].Role != models.ChatRoleModel {
		t.Errorf("history roles = %q, %q", history[0].Role, history[1].Role)
	}

	for _, want := range []string{
		"Current Decision: Move to City B for a new role",
		"CURRENT SIMULATION DATA (FOR EXPLANATION):",
	} {
		if !strings.Contains(gen.lastSystem, want) {
			t.Errorf("system instruction missing %q", want)
		}
	}
}

func TestChatSessionSendsWholeTranscript(t *testing.T) {
	gen := &scriptedGenerator{chatReply: "Noted."}
	session := NewChatSession(gen, ChatConfig{Input: testInput(), Policy: noSleep})

	for _, msg := range []string{"First question", "Second question"} {
		if _, err := session.Send(context.Background(), msg); err != nil {
			t.Fatalf("Send(%q) error = %v", msg, err)
		}
	}
	// Second call carries: user, model, user.
	if len(gen.lastHistory) != 3 {
		t.Fatalf("transcript length = %d, want 3", len(gen.lastHistory))
	}
	if gen.lastHistory[2].Body != "Second question" {
		t.Errorf("last turn = %q", gen.lastHistory[2].Body)
	}
}

func TestChatSessionErrorRollsBackTurn(t *testing.T) {
	gen := &scriptedGenerator{chatErr: errors.New("service unavailable")}
	session := NewChatSession(gen, ChatConfig{Input: testInput(), Policy: noSleep})

	if _, err := session.Send(context.Background(), "Hello?"); err == nil {
		t.Fatal("Send() did not surface the service error")
	}
	if len(session.History()) != 0 {
		t.Errorf("failed turn left %d messages in history", len(session.History()))
	}
}

func TestChatSessionRejectsEmptyMessage(t *testing.T) {
	gen := &scriptedGenerator{}
	session := NewChatSession(gen, ChatConfig{Input: testInput(), Policy: noSleep})

	if _, err := session.Send(context.Background(), "   "); err == nil {
		t.Fatal("Send() accepted a blank message")
	}
	if gen.chatCalls != 0 {
		t.Errorf("blank message reached the service %d times", gen.chatCalls)
	}
}

func TestChatSessionConcurrentSends(t *testing.T) {
	gen := &scriptedGenerator{chatReply: "Noted."}
	session := NewChatSession(gen, ChatConfig{Input: testInput(), Policy: noSleep})

	const senders = 8
	var wg sync.WaitGroup
	for i := 0; i < senders; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := session.Send(context.Background(), fmt.Sprintf("Question %d", i)); err != nil {
				t.Errorf("Send() error = %v", err)
			}
		}(i)
	}
	wg.Wait()

	history := session.History()
	if len(history) != 2*senders {
		t.Fatalf("history length = %d, want %d", len(history), 2*senders)
	}
	// Turns land as adjacent user/model pairs; no interleaving.
	for i, msg := range history {
		want := models.ChatRoleUser
		if i%2 == 1 {
			want = models.ChatRoleModel
		}
		if msg.Role != want {
			t.Fatalf("history[%d].Role = %q, want %q", i, msg.Role, want)
		}
	}
	if gen.chatCalls != senders {
		t.Errorf("chat calls = %d, want %d", gen.chatCalls, senders)
	}
}

func TestChatSystemArchiveContext(t *testing.T) {
	gen := &scriptedGenerator{chatReply: "ok"}
	archive := []models.SavedConsultation{
		{ID: "v_1", Input: models.UserInput{Decision: "Change careers"}},
		{ID: "v_2", Input: models.UserInput{Decision: "Buy the apartment"}},
	}
	session := NewChatSession(gen, ChatConfig{Input: testInput(), Archive: archive, Policy: noSleep})
	if _, err := session.Send(context.Background(), "What did I ask before?"); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if !strings.Contains(gen.lastSystem, "PAST JOURNEYS IN ARCHIVE: Change careers, Buy the apartment") {
		t.Errorf("archive labels missing from system instruction:\n%s", gen.lastSystem)
	}

	gen = &scriptedGenerator{chatReply: "ok"}
	session = NewChatSession(gen, ChatConfig{Input: testInput(), Policy: noSleep})
	if _, err := session.Send(context.Background(), "Anything on file?"); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if !strings.Contains(gen.lastSystem, "No previous history.") {
		t.Error("empty archive placeholder missing from system instruction")
	}
	if !strings.Contains(gen.lastSystem, "No active simulation data is available to discuss.") {
		t.Error("missing-simulation placeholder absent from system instruction")
	}
}

func TestFutureSelfSessionContext(t *testing.T) {
	gen := &scriptedGenerator{chatReply: "It worked out, mostly."}
	result := validResult()
	session := NewChatSession(gen, ChatConfig{
		Persona: PersonaFutureSelf,
		Input:   testInput(),
		Drivers: testDrivers(),
		Result:  &result,
		Policy:  noSleep,
	})

	if _, err := session.Send(context.Background(), "Was the move worth it?"); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	for _, want := range []string{
		"PATH CHOSEN: Move to City B for a new role",
		"CORE DRIVERS: Financial Growth, Security & Stability, Personal Autonomy, Deep Connections, Adventure & Exploration",
		"5-YEAR OUTCOME SUMMARY: Milestone for year 5",
	} {
		if !strings.Contains(gen.lastSystem, want) {
			t.Errorf("future-self system instruction missing %q", want)
		}
	}
}

func TestOrchestratorChatUsesCurrentState(t *testing.T) {
	gen := &scriptedGenerator{chatReply: "ok"}
	o := newTestOrchestrator(gen)
	advanceToBranchResolution(t, o, gen)

	session := o.Chat(PersonaCompanion, nil)
	if _, err := session.Send(context.Background(), "Explain the regret analysis."); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if !strings.Contains(gen.lastSystem, "CURRENT SIMULATION DATA (FOR EXPLANATION):") {
		t.Error("orchestrator chat session missing simulation context")
	}
	if !strings.Contains(gen.lastSystem, "A demanding but promising relocation.") {
		t.Error("orchestrator chat session missing the committed result")
	}
}
