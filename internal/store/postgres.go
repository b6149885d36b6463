// Package store provides storage backends for LifeDraft.
//
// This file implements the PostgreSQL-backed store.
package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "embed"

	"github.com/BTreeMap/LifeDraft/internal/models"
	_ "github.com/lib/pq"
)

// Database connection pool configuration constants
const (
	// DefaultMaxOpenConns is the default maximum number of open connections to the database
	DefaultMaxOpenConns = 25
	// DefaultMaxIdleConns is the default maximum number of idle connections in the pool
	DefaultMaxIdleConns = 25
	// DefaultConnMaxLifetime is the default maximum amount of time a connection may be reused
	DefaultConnMaxLifetime = 5 * time.Minute
)

//go:embed migrations_postgres.sql
var postgresMigrations string

type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new Postgres store based on provided options.
func NewPostgresStore(opts ...Option) (*PostgresStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("NewPostgresStore invoked", "DSN_set", cfg.DSN != "")

	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("PostgresStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		slog.Error("Failed to open Postgres connection", "error", err)
		return nil, err
	}

	db.SetMaxOpenConns(DefaultMaxOpenConns)
	db.SetMaxIdleConns(DefaultMaxIdleConns)
	db.SetConnMaxLifetime(DefaultConnMaxLifetime)

	if err := db.Ping(); err != nil {
		slog.Error("Postgres ping failed", "error", err)
		return nil, err
	}

	slog.Debug("Running Postgres migrations")
	if _, err := db.Exec(postgresMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("Postgres migrations applied successfully")
	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) SaveConsultation(c models.SavedConsultation) error {
	inputJSON, resultJSON, err := encodeConsultation(c)
	if err != nil {
		slog.Error("PostgresStore SaveConsultation encode failed", "error", err, "id", c.ID)
		return err
	}
	_, err = s.db.Exec(`INSERT INTO consultations (id, created_at, situation, decision, input_json, result_json)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (situation, decision) DO UPDATE SET
			id = EXCLUDED.id,
			created_at = EXCLUDED.created_at,
			input_json = EXCLUDED.input_json,
			result_json = EXCLUDED.result_json`,
		c.ID, c.Timestamp, c.Input.Situation, c.Input.Decision, inputJSON, resultJSON)
	if err != nil {
		slog.Error("PostgresStore SaveConsultation failed", "error", err, "id", c.ID)
		return fmt.Errorf("failed to insert consultation %s: %w", c.ID, err)
	}
	slog.Debug("PostgresStore SaveConsultation succeeded", "id", c.ID, "decision", c.Input.Decision)
	return nil
}

func (s *PostgresStore) ListConsultations() ([]models.SavedConsultation, error) {
	rows, err := s.db.Query(`SELECT id, created_at, input_json, result_json FROM consultations ORDER BY created_at DESC`)
	if err != nil {
		slog.Error("PostgresStore ListConsultations query failed", "error", err)
		return nil, fmt.Errorf("failed to query consultations: %w", err)
	}
	defer rows.Close()

	var out []models.SavedConsultation
	for rows.Next() {
		c, err := scanConsultation(rows)
		if err != nil {
			slog.Error("PostgresStore ListConsultations scan failed", "error", err)
			return nil, err
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate consultation rows: %w", err)
	}
	slog.Debug("PostgresStore ListConsultations succeeded", "count", len(out))
	return out, nil
}

func (s *PostgresStore) GetConsultation(id string) (*models.SavedConsultation, error) {
	row := s.db.QueryRow(`SELECT id, created_at, input_json, result_json FROM consultations WHERE id = $1`, id)
	c, err := scanConsultationRow(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		slog.Error("PostgresStore GetConsultation failed", "error", err, "id", id)
		return nil, err
	}
	return &c, nil
}

func (s *PostgresStore) DeleteConsultation(id string) error {
	res, err := s.db.Exec(`DELETE FROM consultations WHERE id = $1`, id)
	if err != nil {
		slog.Error("PostgresStore DeleteConsultation failed", "error", err, "id", id)
		return fmt.Errorf("failed to delete consultation %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) AppendChatMessage(sessionID string, msg models.ChatMessage) error {
	_, err := s.db.Exec(`INSERT INTO chat_messages (session_id, role, body, time) VALUES ($1, $2, $3, $4)`,
		sessionID, string(msg.Role), msg.Body, msg.Time)
	if err != nil {
		slog.Error("PostgresStore AppendChatMessage failed", "error", err, "sessionID", sessionID)
		return fmt.Errorf("failed to insert chat message for %s: %w", sessionID, err)
	}
	return nil
}

func (s *PostgresStore) GetChatHistory(sessionID string) ([]models.ChatMessage, error) {
	rows, err := s.db.Query(`SELECT role, body, time FROM chat_messages WHERE session_id = $1 ORDER BY id`, sessionID)
	if err != nil {
		slog.Error("PostgresStore GetChatHistory query failed", "error", err, "sessionID", sessionID)
		return nil, fmt.Errorf("failed to query chat history for %s: %w", sessionID, err)
	}
	defer rows.Close()

	var out []models.ChatMessage
	for rows.Next() {
		var m models.ChatMessage
		var role string
		if err := rows.Scan(&role, &m.Body, &m.Time); err != nil {
			return nil, fmt.Errorf("failed to scan chat message row: %w", err)
		}
		m.Role = models.ChatRole(role)
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate chat message rows: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) AddFollowUp(f models.FollowUp) error {
	_, err := s.db.Exec(`INSERT INTO follow_ups (id, consultation_id, decision_label, scheduled_at, question, completed)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		f.ID, f.ConsultationID, f.DecisionLabel, f.ScheduledAt, f.Question, f.Completed)
	if err != nil {
		slog.Error("PostgresStore AddFollowUp failed", "error", err, "id", f.ID)
		return fmt.Errorf("failed to insert follow-up %s: %w", f.ID, err)
	}
	return nil
}

func (s *PostgresStore) ListFollowUps() ([]models.FollowUp, error) {
	return s.queryFollowUps(`SELECT id, consultation_id, decision_label, scheduled_at, question, completed
		FROM follow_ups ORDER BY scheduled_at`)
}

func (s *PostgresStore) DueFollowUps(now time.Time) ([]models.FollowUp, error) {
	return s.queryFollowUps(`SELECT id, consultation_id, decision_label, scheduled_at, question, completed
		FROM follow_ups WHERE completed = FALSE AND scheduled_at <= $1 ORDER BY scheduled_at`, now)
}

func (s *PostgresStore) queryFollowUps(query string, args ...any) ([]models.FollowUp, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		slog.Error("PostgresStore follow-up query failed", "error", err)
		return nil, fmt.Errorf("failed to query follow-ups: %w", err)
	}
	defer rows.Close()

	var out []models.FollowUp
	for rows.Next() {
		f, err := scanFollowUp(rows)
		if err != nil {
			slog.Error("PostgresStore follow-up scan failed", "error", err)
			return nil, err
		}
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate follow-up rows: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) CompleteFollowUp(id string) error {
	res, err := s.db.Exec(`UPDATE follow_ups SET completed = TRUE WHERE id = $1`, id)
	if err != nil {
		slog.Error("PostgresStore CompleteFollowUp failed", "error", err, "id", id)
		return fmt.Errorf("failed to complete follow-up %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) DeleteFollowUp(id string) error {
	res, err := s.db.Exec(`DELETE FROM follow_ups WHERE id = $1`, id)
	if err != nil {
		slog.Error("PostgresStore DeleteFollowUp failed", "error", err, "id", id)
		return fmt.Errorf("failed to delete follow-up %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Close closes the Postgres database connection.
func (s *PostgresStore) Close() error {
	slog.Debug("Closing Postgres database connection")
	return s.db.Close()
}
