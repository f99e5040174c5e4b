package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Replay log statuses
const (
	ReplayStatusDelivered = "delivered"
	ReplayStatusSkipped   = "skipped"
	ReplayStatusFailed    = "failed"
)

// ReplayLogEntry records one replay attempt. The payload itself is never stored.
type ReplayLogEntry struct {
	ID           uuid.UUID `json:"id"`
	FormID       uuid.UUID `json:"form_id"`
	SubmissionID uuid.UUID `json:"submission_id"`
	Status       string    `json:"status"`
	HTTPStatus   *int      `json:"http_status,omitempty"`
	ErrorMessage *string   `json:"error_message,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// RecordReplay stores the outcome of a replay attempt
func (db *DB) RecordReplay(ctx context.Context, entry *ReplayLogEntry) (uuid.UUID, error) {
	var id uuid.UUID
	err := db.pool.QueryRow(ctx,
		`INSERT INTO replay_log (form_id, submission_id, status, http_status, error_message)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id`,
		entry.FormID, entry.SubmissionID, entry.Status, entry.HTTPStatus, entry.ErrorMessage,
	).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to record replay: %w", err)
	}
	return id, nil
}

// ListReplays returns the most recent replay attempts of a form
func (db *DB) ListReplays(ctx context.Context, formID uuid.UUID, limit int) ([]ReplayLogEntry, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := db.pool.Query(ctx,
		`SELECT id, form_id, submission_id, status, http_status, error_message, created_at
		 FROM replay_log
		 WHERE form_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2`,
		formID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list replays: %w", err)
	}
	defer rows.Close()

	var entries []ReplayLogEntry
	for rows.Next() {
		var e ReplayLogEntry
		if err := rows.Scan(&e.ID, &e.FormID, &e.SubmissionID, &e.Status, &e.HTTPStatus, &e.ErrorMessage, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan replay: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate replays: %w", err)
	}
	return entries, nil
}

// NewReplayLogEntry builds a log entry from a replay outcome.
func NewReplayLogEntry(formID, submissionID uuid.UUID, status string, httpStatus int, replayErr error) *ReplayLogEntry {
	entry := &ReplayLogEntry{
		FormID:       formID,
		SubmissionID: submissionID,
		Status:       status,
	}
	if httpStatus != 0 {
		entry.HTTPStatus = &httpStatus
	}
	if replayErr != nil {
		msg := replayErr.Error()
		entry.ErrorMessage = &msg
	}
	return entry
}
