// Package store provides storage backends for LifeDraft.
//
// This file implements the SQLite-backed store.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "embed"

	"github.com/BTreeMap/LifeDraft/internal/models"
	_ "github.com/mattn/go-sqlite3"
)

// DefaultDirPermissions defines the default permissions for database directories.
const DefaultDirPermissions = 0755

//go:embed migrations_sqlite.sql
var sqliteMigrations string

type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store with the given DSN.
// The DSN is a file path to the SQLite database file; its directory is
// created if missing.
func NewSQLiteStore(opts ...Option) (*SQLiteStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("NewSQLiteStore invoked", "DSN_set", cfg.DSN != "")

	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("SQLiteStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	dir := filepath.Dir(dsn)
	if err := os.MkdirAll(dir, DefaultDirPermissions); err != nil {
		slog.Error("Failed to create database directory", "error", err, "dir", dir)
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		slog.Error("Failed to open SQLite connection", "error", err)
		return nil, err
	}
	if err := db.Ping(); err != nil {
		slog.Error("SQLite ping failed", "error", err)
		return nil, err
	}

	slog.Debug("Running SQLite migrations")
	if _, err := db.Exec(sqliteMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("SQLite migrations applied successfully")

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) SaveConsultation(c models.SavedConsultation) error {
	inputJSON, resultJSON, err := encodeConsultation(c)
	if err != nil {
		slog.Error("SQLiteStore SaveConsultation encode failed", "error", err, "id", c.ID)
		return err
	}
	// The unique index on (situation, decision) makes this replace an
	// earlier run of the same decision.
	_, err = s.db.Exec(`INSERT OR REPLACE INTO consultations (id, created_at, situation, decision, input_json, result_json)
		VALUES (?, ?, ?, ?, ?, ?)`,
		c.ID, c.Timestamp, c.Input.Situation, c.Input.Decision, inputJSON, resultJSON)
	if err != nil {
		slog.Error("SQLiteStore SaveConsultation failed", "error", err, "id", c.ID)
		return fmt.Errorf("failed to insert consultation %s: %w", c.ID, err)
	}
	slog.Debug("SQLiteStore SaveConsultation succeeded", "id", c.ID, "decision", c.Input.Decision)
	return nil
}

func (s *SQLiteStore) ListConsultations() ([]models.SavedConsultation, error) {
	rows, err := s.db.Query(`SELECT id, created_at, input_json, result_json FROM consultations ORDER BY created_at DESC`)
	if err != nil {
		slog.Error("SQLiteStore ListConsultations query failed", "error", err)
		return nil, fmt.Errorf("failed to query consultations: %w", err)
	}
	defer rows.Close()

	var out []models.SavedConsultation
	for rows.Next() {
		c, err := scanConsultation(rows)
		if err != nil {
			slog.Error("SQLiteStore ListConsultations scan failed", "error", err)
			return nil, err
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		slog.Error("SQLiteStore ListConsultations rows iteration failed", "error", err)
		return nil, fmt.Errorf("failed to iterate consultation rows: %w", err)
	}
	slog.Debug("SQLiteStore ListConsultations succeeded", "count", len(out))
	return out, nil
}

func (s *SQLiteStore) GetConsultation(id string) (*models.SavedConsultation, error) {
	row := s.db.QueryRow(`SELECT id, created_at, input_json, result_json FROM consultations WHERE id = ?`, id)
	c, err := scanConsultationRow(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		slog.Error("SQLiteStore GetConsultation failed", "error", err, "id", id)
		return nil, err
	}
	return &c, nil
}

func (s *SQLiteStore) DeleteConsultation(id string) error {
	res, err := s.db.Exec(`DELETE FROM consultations WHERE id = ?`, id)
	if err != nil {
		slog.Error("SQLiteStore DeleteConsultation failed", "error", err, "id", id)
		return fmt.Errorf("failed to delete consultation %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	slog.Debug("SQLiteStore DeleteConsultation succeeded", "id", id)
	return nil
}

func (s *SQLiteStore) AppendChatMessage(sessionID string, msg models.ChatMessage) error {
	_, err := s.db.Exec(`INSERT INTO chat_messages (session_id, role, body, time) VALUES (?, ?, ?, ?)`,
		sessionID, string(msg.Role), msg.Body, msg.Time)
	if err != nil {
		slog.Error("SQLiteStore AppendChatMessage failed", "error", err, "sessionID", sessionID)
		return fmt.Errorf("failed to insert chat message for %s: %w", sessionID, err)
	}
	return nil
}

func (s *SQLiteStore) GetChatHistory(sessionID string) ([]models.ChatMessage, error) {
	rows, err := s.db.Query(`SELECT role, body, time FROM chat_messages WHERE session_id = ? ORDER BY id`, sessionID)
	if err != nil {
		slog.Error("SQLiteStore GetChatHistory query failed", "error", err, "sessionID", sessionID)
		return nil, fmt.Errorf("failed to query chat history for %s: %w", sessionID, err)
	}
	defer rows.Close()

	var out []models.ChatMessage
	for rows.Next() {
		var m models.ChatMessage
		var role string
		if err := rows.Scan(&role, &m.Body, &m.Time); err != nil {
			slog.Error("SQLiteStore GetChatHistory scan failed", "error", err, "sessionID", sessionID)
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

func (s *SQLiteStore) AddFollowUp(f models.FollowUp) error {
	_, err := s.db.Exec(`INSERT INTO follow_ups (id, consultation_id, decision_label, scheduled_at, question, completed)
		VALUES (?, ?, ?, ?, ?, ?)`,
		f.ID, f.ConsultationID, f.DecisionLabel, f.ScheduledAt, f.Question, f.Completed)
	if err != nil {
		slog.Error("SQLiteStore AddFollowUp failed", "error", err, "id", f.ID)
		return fmt.Errorf("failed to insert follow-up %s: %w", f.ID, err)
	}
	slog.Debug("SQLiteStore AddFollowUp succeeded", "id", f.ID, "scheduledAt", f.ScheduledAt)
	return nil
}

func (s *SQLiteStore) ListFollowUps() ([]models.FollowUp, error) {
	return s.queryFollowUps(`SELECT id, consultation_id, decision_label, scheduled_at, question, completed
		FROM follow_ups ORDER BY scheduled_at`)
}

func (s *SQLiteStore) DueFollowUps(now time.Time) ([]models.FollowUp, error) {
	return s.queryFollowUps(`SELECT id, consultation_id, decision_label, scheduled_at, question, completed
		FROM follow_ups WHERE completed = 0 AND scheduled_at <= ? ORDER BY scheduled_at`, now)
}

func (s *SQLiteStore) queryFollowUps(query string, args ...any) ([]models.FollowUp, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		slog.Error("SQLiteStore follow-up query failed", "error", err)
		return nil, fmt.Errorf("failed to query follow-ups: %w", err)
	}
	defer rows.Close()

	var out []models.FollowUp
	for rows.Next() {
		f, err := scanFollowUp(rows)
		if err != nil {
			slog.Error("SQLiteStore follow-up scan failed", "error", err)
			return nil, err
		}
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate follow-up rows: %w", err)
	}
	return out, nil
}

func (s *SQLiteStore) CompleteFollowUp(id string) error {
	res, err := s.db.Exec(`UPDATE follow_ups SET completed = 1 WHERE id = ?`, id)
	if err != nil {
		slog.Error("SQLiteStore CompleteFollowUp failed", "error", err, "id", id)
		return fmt.Errorf("failed to complete follow-up %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	slog.Debug("SQLiteStore CompleteFollowUp succeeded", "id", id)
	return nil
}

func (s *SQLiteStore) DeleteFollowUp(id string) error {
	res, err := s.db.Exec(`DELETE FROM follow_ups WHERE id = ?`, id)
	if err != nil {
		slog.Error("SQLiteStore DeleteFollowUp failed", "error", err, "id", id)
		return fmt.Errorf("failed to delete follow-up %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Close closes the SQLite database connection.
func (s *SQLiteStore) Close() error {
	slog.Debug("Closing SQLite database connection")
	return s.db.Close()
}

// encodeConsultation serializes the input and result payloads for storage.
func encodeConsultation(c models.SavedConsultation) (string, string, error) {
	inputJSON, err := json.Marshal(c.Input)
	if err != nil {
		return "", "", fmt.Errorf("failed to marshal consultation input: %w", err)
	}
	resultJSON, err := json.Marshal(c.Result)
	if err != nil {
		return "", "", fmt.Errorf("failed to marshal consultation result: %w", err)
	}
	return string(inputJSON), string(resultJSON), nil
}
