// Package store provides storage backends for LifeDraft.
//
// It persists the consultation vault, chat transcripts, and scheduled
// follow-ups. An in-memory store backs tests and single-run usage; SQLite and
// PostgreSQL back persistent deployments.
package store

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/BTreeMap/LifeDraft/internal/models"
)

// ErrNotFound is returned when the requested record does not exist.
var ErrNotFound = errors.New("record not found")

// Store defines the persistence operations LifeDraft needs.
type Store interface {
	// SaveConsultation archives a completed run. A consultation with the
	// same situation and decision replaces the earlier entry.
	SaveConsultation(c models.SavedConsultation) error
	// ListConsultations returns the vault, newest first.
	ListConsultations() ([]models.SavedConsultation, error)
	// GetConsultation returns one archived run by ID.
	GetConsultation(id string) (*models.SavedConsultation, error)
	// DeleteConsultation removes one archived run by ID.
	DeleteConsultation(id string) error

	// AppendChatMessage records one chat turn in a session transcript.
	AppendChatMessage(sessionID string, msg models.ChatMessage) error
	// GetChatHistory returns a session transcript in order.
	GetChatHistory(sessionID string) ([]models.ChatMessage, error)

	// AddFollowUp schedules a check-in.
	AddFollowUp(f models.FollowUp) error
	// ListFollowUps returns every follow-up, soonest first.
	ListFollowUps() ([]models.FollowUp, error)
	// DueFollowUps returns open follow-ups scheduled at or before now.
	DueFollowUps(now time.Time) ([]models.FollowUp, error)
	// CompleteFollowUp marks a follow-up as handled.
	CompleteFollowUp(id string) error
	// DeleteFollowUp removes a follow-up.
	DeleteFollowUp(id string) error

	// Close releases backend resources.
	Close() error
}

// Opts holds configuration options for store implementations.
type Opts struct {
	DSN string
}

// Option defines a configuration option for store implementations.
type Option func(*Opts)

// WithDSN sets the database connection string.
func WithDSN(dsn string) Option {
	return func(o *Opts) { o.DSN = dsn }
}

// InMemoryStore keeps everything in process memory. Safe for concurrent use.
type InMemoryStore struct {
	mu            sync.RWMutex
	consultations []models.SavedConsultation
	chats         map[string][]models.ChatMessage
	followUps     []models.FollowUp
}

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{chats: make(map[string][]models.ChatMessage)}
}

func (s *InMemoryStore) SaveConsultation(c models.SavedConsultation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, existing := range s.consultations {
		if existing.Input.Situation == c.Input.Situation && existing.Input.Decision == c.Input.Decision {
			s.consultations[i] = c
			return nil
		}
	}
	s.consultations = append(s.consultations, c)
	return nil
}

func (s *InMemoryStore) ListConsultations() ([]models.SavedConsultation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := append([]models.SavedConsultation(nil), s.consultations...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	return out, nil
}

func (s *InMemoryStore) GetConsultation(id string) (*models.SavedConsultation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.consultations {
		if c.ID == id {
			out := c
			return &out, nil
		}
	}
	return nil, ErrNotFound
}

func (s *InMemoryStore) DeleteConsultation(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, c := range s.consultations {
		if c.ID == id {
			s.consultations = append(s.consultations[:i], s.consultations[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func (s *InMemoryStore) AppendChatMessage(sessionID string, msg models.ChatMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chats[sessionID] = append(s.chats[sessionID], msg)
	return nil
}

func (s *InMemoryStore) GetChatHistory(sessionID string) ([]models.ChatMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.ChatMessage(nil), s.chats[sessionID]...), nil
}

func (s *InMemoryStore) AddFollowUp(f models.FollowUp) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.followUps = append(s.followUps, f)
	return nil
}

func (s *InMemoryStore) ListFollowUps() ([]models.FollowUp, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := append([]models.FollowUp(nil), s.followUps...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].ScheduledAt.Before(out[j].ScheduledAt) })
	return out, nil
}

func (s *InMemoryStore) DueFollowUps(now time.Time) ([]models.FollowUp, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var due []models.FollowUp
	for _, f := range s.followUps {
		if f.Due(now) {
			due = append(due, f)
		}
	}
	sort.SliceStable(due, func(i, j int) bool { return due[i].ScheduledAt.Before(due[j].ScheduledAt) })
	return due, nil
}

func (s *InMemoryStore) CompleteFollowUp(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.followUps {
		if s.followUps[i].ID == id {
			s.followUps[i].Completed = true
			return nil
		}
	}
	return ErrNotFound
}

func (s *InMemoryStore) DeleteFollowUp(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.followUps {
		if s.followUps[i].ID == id {
			s.followUps = append(s.followUps[:i], s.followUps[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

// Close is a no-op for the in-memory store.
func (s *InMemoryStore) Close() error { return nil }
