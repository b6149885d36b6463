// Package api provides HTTP handlers for the LifeDraft pipeline endpoints.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/BTreeMap/LifeDraft/internal/models"
	"github.com/BTreeMap/LifeDraft/internal/pipeline"
	"github.com/BTreeMap/LifeDraft/internal/util"
)

type interpretRequest struct {
	models.UserInput
	// Refine re-runs interpretation with the current artifact as context.
	Refine bool `json:"refine,omitempty"`
}

func (s *Server) interpretHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	slog.Debug("Server.interpretHandler: processing request", "method", r.Method)
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req interpretRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Server.interpretHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	var prev *models.ReasoningArtifact
	if req.Refine {
		prev = s.orch.Artifact()
	}
	artifact, err := s.orch.Interpret(r.Context(), req.UserInput, prev)
	if err != nil {
		slog.Warn("Server.interpretHandler: interpret failed", "error", err)
		writeStageError(w, err)
		return
	}
	slog.Info("Server.interpretHandler: interpretation committed", "summary", artifact.DecisionSummary)
	writeJSONResponse(w, http.StatusOK, models.Success(artifact))
}

type driversRequest struct {
	Values []string `json:"values"`
}

func (s *Server) driversHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req driversRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Server.driversHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.orch.SelectDrivers(req.Values); err != nil {
		slog.Warn("Server.driversHandler: driver selection rejected", "error", err)
		writeStageError(w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("Drivers selected", nil))
}

func (s *Server) simulateHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	result, err := s.orch.Simulate(r.Context())
	if err != nil {
		slog.Error("Server.simulateHandler: simulation failed", "error", err)
		writeStageError(w, err)
		return
	}
	slog.Info("Server.simulateHandler: simulation committed", "crossroads", len(result.Crossroads))
	writeJSONResponse(w, http.StatusOK, models.Success(result))
}

type crossroadsRequest struct {
	Index   *int                    `json:"index,omitempty"`
	Answer  models.Answer           `json:"answer,omitempty"`
	Answers models.CrossroadAnswers `json:"answers,omitempty"`
}

func (s *Server) crossroadsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req crossroadsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Server.crossroadsHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	var err error
	switch {
	case len(req.Answers) > 0:
		err = s.orch.ResolveBranches(req.Answers)
	case req.Index != nil:
		err = s.orch.AnswerCrossroad(*req.Index, req.Answer)
	default:
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Missing required field: index or answers"))
		return
	}
	if err != nil {
		slog.Warn("Server.crossroadsHandler: answer rejected", "error", err)
		writeStageError(w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(map[string]any{
		"stage":   s.orch.Stage(),
		"answers": s.orch.Answers(),
	}))
}

func (s *Server) synthesizeHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	directive, err := s.orch.Synthesize(r.Context())
	if err != nil {
		slog.Error("Server.synthesizeHandler: synthesis failed", "error", err)
		writeStageError(w, err)
		return
	}

	// Archive the finished run and schedule any suggested follow-up.
	// Persistence problems are logged but never fail the synthesis the
	// user already has in hand.
	consultation := models.SavedConsultation{
		ID:        util.GenerateConsultationID(),
		Timestamp: time.Now(),
		Input:     s.orch.Input(),
		Result:    *s.orch.Result(),
	}
	if err := s.st.SaveConsultation(consultation); err != nil {
		slog.Error("Server.synthesizeHandler: failed to archive consultation", "error", err)
	} else if s.followUps != nil {
		if _, err := s.followUps.ScheduleFromDirective(consultation.ID, consultation.Input.Decision, directive); err != nil {
			slog.Error("Server.synthesizeHandler: failed to schedule follow-up", "error", err)
		}
	}

	slog.Info("Server.synthesizeHandler: directive produced", "plan_steps", len(directive.ActionPlan))
	writeJSONResponse(w, http.StatusOK, models.Success(directive))
}

func (s *Server) speakHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	payload, err := s.orch.SpeakDirective(r.Context())
	if err != nil {
		slog.Error("Server.speakHandler: speech synthesis failed", "error", err)
		writeStageError(w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(map[string]string{"audio": payload}))
}

type chatRequest struct {
	SessionID string           `json:"session_id,omitempty"`
	Persona   pipeline.Persona `json:"persona,omitempty"`
	Message   string           `json:"message"`
}

func (s *Server) chatHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Server.chatHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if req.Message == "" {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Missing required field: message"))
		return
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = util.GenerateSessionID()
	}
	session := s.chatSession(sessionID, req.Persona)

	reply, err := session.Send(r.Context(), req.Message)
	if err != nil {
		slog.Error("Server.chatHandler: chat call failed", "error", err, "sessionID", sessionID)
		writeStageError(w, err)
		return
	}

	// Best-effort transcript persistence.
	now := time.Now()
	if err := s.st.AppendChatMessage(sessionID, models.ChatMessage{Role: models.ChatRoleUser, Body: req.Message, Time: now}); err != nil {
		slog.Error("Server.chatHandler: failed to persist user turn", "error", err, "sessionID", sessionID)
	}
	if err := s.st.AppendChatMessage(sessionID, models.ChatMessage{Role: models.ChatRoleModel, Body: reply, Time: now}); err != nil {
		slog.Error("Server.chatHandler: failed to persist model turn", "error", err, "sessionID", sessionID)
	}

	writeJSONResponse(w, http.StatusOK, models.Success(map[string]string{
		"session_id": sessionID,
		"reply":      reply,
	}))
}

// chatSession returns the live session for the ID, constructing one from the
// pipeline's current state on first use.
func (s *Server) chatSession(sessionID string, persona pipeline.Persona) *pipeline.ChatSession {
	s.chatMu.Lock()
	defer s.chatMu.Unlock()
	if session, ok := s.chats[sessionID]; ok {
		return session
	}

	archive, err := s.st.ListConsultations()
	if err != nil {
		slog.Error("Server.chatSession: failed to load archive", "error", err)
		archive = nil
	}

	s.mu.Lock()
	session := s.orch.Chat(persona, archive)
	s.mu.Unlock()

	s.chats[sessionID] = session
	return session
}
