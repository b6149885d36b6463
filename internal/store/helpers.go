package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/BTreeMap/LifeDraft/internal/models"
)

// scanConsultation scans a SavedConsultation from sql.Rows.
func scanConsultation(rows *sql.Rows) (models.SavedConsultation, error) {
	var c models.SavedConsultation
	var inputJSON, resultJSON string
	if err := rows.Scan(&c.ID, &c.Timestamp, &inputJSON, &resultJSON); err != nil {
		return c, fmt.Errorf("scan consultation failed: %w", err)
	}
	return decodeConsultation(c, inputJSON, resultJSON)
}

// scanConsultationRow scans a SavedConsultation from a single sql.Row.
func scanConsultationRow(row *sql.Row) (models.SavedConsultation, error) {
	var c models.SavedConsultation
	var inputJSON, resultJSON string
	if err := row.Scan(&c.ID, &c.Timestamp, &inputJSON, &resultJSON); err != nil {
		return c, err
	}
	return decodeConsultation(c, inputJSON, resultJSON)
}

func decodeConsultation(c models.SavedConsultation, inputJSON, resultJSON string) (models.SavedConsultation, error) {
	if err := json.Unmarshal([]byte(inputJSON), &c.Input); err != nil {
		return c, fmt.Errorf("failed to unmarshal consultation input: %w", err)
	}
	if err := json.Unmarshal([]byte(resultJSON), &c.Result); err != nil {
		return c, fmt.Errorf("failed to unmarshal consultation result: %w", err)
	}
	return c, nil
}

// scanFollowUp scans a FollowUp from sql.Rows.
func scanFollowUp(rows *sql.Rows) (models.FollowUp, error) {
	var f models.FollowUp
	if err := rows.Scan(&f.ID, &f.ConsultationID, &f.DecisionLabel, &f.ScheduledAt, &f.Question, &f.Completed); err != nil {
		return f, fmt.Errorf("scan follow-up failed: %w", err)
	}
	return f, nil
}
