// Package api provides HTTP handlers and the main API server logic for
// LifeDraft.
//
// It exposes RESTful endpoints for driving the decision pipeline, browsing
// the consultation vault, chatting about a simulation, and managing
// follow-ups. The API integrates with the pipeline, store, and followup
// modules.
package api

import (
	"errors"
	"log/slog"
	"net/http"
	"sync"

	"github.com/BTreeMap/LifeDraft/internal/followup"
	"github.com/BTreeMap/LifeDraft/internal/models"
	"github.com/BTreeMap/LifeDraft/internal/pipeline"
	"github.com/BTreeMap/LifeDraft/internal/store"
)

// DefaultAddr is the listen address used when none is configured.
const DefaultAddr = ":8080"

// Server holds the API's dependencies and the single active pipeline run.
type Server struct {
	st        store.Store
	followUps *followup.Agent
	addr      string

	// mu serializes pipeline access: the orchestrator mutates state one
	// transition at a time.
	mu   sync.Mutex
	orch *pipeline.Orchestrator

	chatMu sync.Mutex
	chats  map[string]*pipeline.ChatSession
}

// Opts holds configuration options for the API server.
type Opts struct {
	Addr string
}

// Option defines a configuration option for the API server.
type Option func(*Opts)

// WithAddr sets the listen address.
func WithAddr(addr string) Option {
	return func(o *Opts) { o.Addr = addr }
}

// NewServer creates the API server around an orchestrator, a store, and a
// follow-up agent.
func NewServer(orch *pipeline.Orchestrator, st store.Store, agent *followup.Agent, opts ...Option) *Server {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	addr := cfg.Addr
	if addr == "" {
		addr = DefaultAddr
	}
	return &Server{
		st:        st,
		followUps: agent,
		addr:      addr,
		orch:      orch,
		chats:     make(map[string]*pipeline.ChatSession),
	}
}

// Handler builds the route table. Exposed for tests.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/interpret", s.interpretHandler)
	mux.HandleFunc("/drivers", s.driversHandler)
	mux.HandleFunc("/simulate", s.simulateHandler)
	mux.HandleFunc("/crossroads", s.crossroadsHandler)
	mux.HandleFunc("/synthesize", s.synthesizeHandler)
	mux.HandleFunc("/speak", s.speakHandler)
	mux.HandleFunc("/chat", s.chatHandler)
	mux.HandleFunc("/consultations", s.consultationsHandler)
	mux.HandleFunc("/consultations/", s.consultationHandler)
	mux.HandleFunc("/followups", s.followUpsHandler)
	mux.HandleFunc("/followups/", s.followUpActionHandler)
	return mux
}

// Run starts the HTTP server and blocks until it exits.
func (s *Server) Run() error {
	slog.Info("LifeDraft API running", "addr", s.addr)
	return http.ListenAndServe(s.addr, s.Handler())
}

// writeStageError maps a pipeline failure onto an HTTP status: input
// validation problems are the client's fault, ordering violations mean the
// client skipped a stage, and anything else is the generative service
// misbehaving.
func writeStageError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrMissingSituation),
		errors.Is(err, models.ErrMissingDecision),
		errors.Is(err, models.ErrTooManyImages),
		errors.Is(err, models.ErrEmptyImage),
		errors.Is(err, models.ErrDriverCount),
		errors.Is(err, models.ErrDuplicateDriver),
		errors.Is(err, models.ErrUnknownDriver),
		errors.Is(err, models.ErrCrossroadIndex),
		errors.Is(err, models.ErrInvalidAnswer):
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
	case errors.Is(err, models.ErrNoArtifact),
		errors.Is(err, models.ErrNoSimulation),
		errors.Is(err, models.ErrUnansweredCrossroads):
		writeJSONResponse(w, http.StatusConflict, models.Error(err.Error()))
	default:
		writeJSONResponse(w, http.StatusBadGateway, models.Error(err.Error()))
	}
}
