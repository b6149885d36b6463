// Package api provides HTTP handlers for the consultation vault and
// follow-up endpoints.
package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/BTreeMap/LifeDraft/internal/models"
	"github.com/BTreeMap/LifeDraft/internal/store"
)

func (s *Server) consultationsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	list, err := s.st.ListConsultations()
	if err != nil {
		slog.Error("Server.consultationsHandler: failed to list consultations", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to list consultations"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(list))
}

func (s *Server) consultationHandler(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/consultations/")
	if id == "" || strings.Contains(id, "/") {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid consultation ID"))
		return
	}

	switch r.Method {
	case http.MethodGet:
		c, err := s.st.GetConsultation(id)
		if errors.Is(err, store.ErrNotFound) {
			writeJSONResponse(w, http.StatusNotFound, models.Error("Consultation not found"))
			return
		}
		if err != nil {
			slog.Error("Server.consultationHandler: failed to get consultation", "error", err, "id", id)
			writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to get consultation"))
			return
		}
		writeJSONResponse(w, http.StatusOK, models.Success(c))
	case http.MethodDelete:
		err := s.st.DeleteConsultation(id)
		if errors.Is(err, store.ErrNotFound) {
			writeJSONResponse(w, http.StatusNotFound, models.Error("Consultation not found"))
			return
		}
		if err != nil {
			slog.Error("Server.consultationHandler: failed to delete consultation", "error", err, "id", id)
			writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to delete consultation"))
			return
		}
		slog.Info("Server.consultationHandler: consultation deleted", "id", id)
		writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("Consultation deleted", nil))
	default:
		w.Header().Set("Allow", "GET, DELETE")
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) followUpsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	list, err := s.st.ListFollowUps()
	if err != nil {
		slog.Error("Server.followUpsHandler: failed to list follow-ups", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to list follow-ups"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(list))
}

func (s *Server) followUpActionHandler(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/followups/")

	// POST /followups/{id}/complete
	if id, ok := strings.CutSuffix(rest, "/complete"); ok {
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", http.MethodPost)
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		err := s.followUps.Complete(id)
		if errors.Is(err, store.ErrNotFound) {
			writeJSONResponse(w, http.StatusNotFound, models.Error("Follow-up not found"))
			return
		}
		if err != nil {
			slog.Error("Server.followUpActionHandler: failed to complete follow-up", "error", err, "id", id)
			writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to complete follow-up"))
			return
		}
		writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("Follow-up completed", nil))
		return
	}

	// DELETE /followups/{id}
	if r.Method != http.MethodDelete {
		w.Header().Set("Allow", http.MethodDelete)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if rest == "" || strings.Contains(rest, "/") {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid follow-up ID"))
		return
	}
	err := s.st.DeleteFollowUp(rest)
	if errors.Is(err, store.ErrNotFound) {
		writeJSONResponse(w, http.StatusNotFound, models.Error("Follow-up not found"))
		return
	}
	if err != nil {
		slog.Error("Server.followUpActionHandler: failed to delete follow-up", "error", err, "id", rest)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to delete follow-up"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("Follow-up deleted", nil))
}
