package server

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/webform-converter/internal/db"
	"github.com/jonathan/webform-converter/internal/forms"
	"github.com/jonathan/webform-converter/internal/replay"
	"github.com/jonathan/webform-converter/internal/types"
)

// maxConvertBody bounds the webform HTML accepted by POST /forms/convert.
const maxConvertBody = 2 << 20

// ConvertRequest is the body of POST /forms/convert.
type ConvertRequest struct {
	HTML string `json:"html"`
}

// FormSummary is the list view of a stored form.
type FormSummary struct {
	ID         uuid.UUID `json:"id"`
	Title      string    `json:"title"`
	PublicID   string    `json:"public_id,omitempty"`
	LegacyURL  string    `json:"legacy_url,omitempty"`
	FieldCount int       `json:"field_count"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func summarize(form types.StoredForm) FormSummary {
	publicID, _ := form.Schema.PublicID()
	legacyURL, _ := form.Schema.LegacyPostURL()
	return FormSummary{
		ID:         form.ID,
		Title:      form.Schema.Title,
		PublicID:   publicID,
		LegacyURL:  legacyURL,
		FieldCount: len(form.Schema.Fields),
		CreatedAt:  form.CreatedAt,
		UpdatedAt:  form.UpdatedAt,
	}
}

// handleConvert converts posted webform HTML and creates or updates the form.
func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxConvertBody)

	var req ConvertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, &ErrValidation{Field: "body", Message: "invalid JSON or body too large"})
		return
	}

	result, err := s.importer.Import(r.Context(), req.HTML)
	if err != nil {
		log.Printf("[CONVERT] Import failed: %v", err)
		writeError(w, err)
		return
	}

	status := http.StatusOK
	if result.Status == forms.StatusCreated {
		status = http.StatusCreated
	}
	writeJSON(w, status, result)
}

// handleListForms lists stored forms, oldest first
func (s *Server) handleListForms(w http.ResponseWriter, r *http.Request) {
	stored, err := s.store.ListForms(r.Context())
	if err != nil {
		writeError(w, &forms.StorageError{Operation: "list", Cause: err})
		return
	}

	summaries := make([]FormSummary, 0, len(stored))
	for _, form := range stored {
		summaries = append(summaries, summarize(form))
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"forms": summaries,
		"total": len(summaries),
	})
}

// handleGetForm returns a stored form with its schema
func (s *Server) handleGetForm(w http.ResponseWriter, r *http.Request) {
	id, ok := formID(w, r)
	if !ok {
		return
	}

	form, err := s.store.GetForm(r.Context(), id)
	if err != nil {
		writeError(w, &forms.StorageError{Operation: "get", Cause: err})
		return
	}
	if form == nil {
		writeError(w, &forms.NotFoundError{ID: id})
		return
	}

	writeJSON(w, http.StatusOK, form)
}

// handleDeleteForm removes a stored form
func (s *Server) handleDeleteForm(w http.ResponseWriter, r *http.Request) {
	id, ok := formID(w, r)
	if !ok {
		return
	}

	if err := s.store.DeleteForm(r.Context(), id); err != nil {
		var notFound *forms.NotFoundError
		if !errors.As(err, &notFound) {
			err = &forms.StorageError{Operation: "delete", Cause: err}
		}
		writeError(w, err)
		return
	}

	log.Printf("[FORMS] Deleted form %s", id)
	w.WriteHeader(http.StatusNoContent)
}

// handleReplaySubmission forwards a submission of a stored form to its legacy endpoint
func (s *Server) handleReplaySubmission(w http.ResponseWriter, r *http.Request) {
	id, ok := formID(w, r)
	if !ok {
		return
	}

	var submission types.Submission
	if err := json.NewDecoder(r.Body).Decode(&submission); err != nil {
		writeError(w, &ErrValidation{Field: "body", Message: "invalid JSON"})
		return
	}
	if submission.FormID != uuid.Nil && submission.FormID != id {
		writeError(w, &ErrValidation{Field: "form_id", Message: "does not match the form in the path"})
		return
	}
	submission.FormID = id
	if submission.ID == uuid.Nil {
		submission.ID = uuid.New()
	}

	form, err := s.store.GetForm(r.Context(), id)
	if err != nil {
		writeError(w, &forms.StorageError{Operation: "get", Cause: err})
		return
	}
	if form == nil {
		writeError(w, &forms.NotFoundError{ID: id})
		return
	}

	result, replayErr := s.replayer.Replay(r.Context(), &form.Schema, &submission)
	s.recordReplay(r, &submission, result, replayErr)

	if replayErr != nil {
		writeError(w, replayErr)
		return
	}

	status := http.StatusOK
	if result.Status == replay.StatusSkipped {
		status = http.StatusAccepted
	}
	writeJSON(w, status, map[string]any{
		"submission_id": submission.ID,
		"result":        result,
	})
}

// handleListReplays returns recent replay attempts of a form
func (s *Server) handleListReplays(w http.ResponseWriter, r *http.Request) {
	id, ok := formID(w, r)
	if !ok {
		return
	}
	if s.replayLog == nil {
		writeJSON(w, http.StatusOK, map[string]any{"replays": []db.ReplayLogEntry{}})
		return
	}

	limit := parseQueryInt(r, "limit", 50, 200)
	entries, err := s.replayLog.ListReplays(r.Context(), id, limit)
	if err != nil {
		writeError(w, &forms.StorageError{Operation: "list replays", Cause: err})
		return
	}
	if entries == nil {
		entries = []db.ReplayLogEntry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"replays": entries})
}

// recordReplay writes the replay outcome to the replay log. Failures to log
// do not change the response.
func (s *Server) recordReplay(r *http.Request, submission *types.Submission, result *replay.Result, replayErr error) {
	if s.replayLog == nil {
		return
	}

	status, httpStatus := db.ReplayStatusFailed, 0
	switch {
	case replayErr != nil:
		var delivery *replay.DeliveryError
		if errors.As(replayErr, &delivery) {
			httpStatus = delivery.StatusCode
		}
	case result.Status == replay.StatusSkipped:
		status = db.ReplayStatusSkipped
	default:
		status, httpStatus = db.ReplayStatusDelivered, result.StatusCode
	}

	entry := db.NewReplayLogEntry(submission.FormID, submission.ID, status, httpStatus, replayErr)
	if _, err := s.replayLog.RecordReplay(r.Context(), entry); err != nil {
		log.Printf("[REPLAY] Failed to record replay of %s: %v", submission.ID, err)
	}
}

func formID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, &ErrValidation{Field: "id", Message: "invalid form ID"})
		return uuid.Nil, false
	}
	return id, true
}

// parseQueryInt parses an integer query parameter with default and max values
func parseQueryInt(r *http.Request, key string, defaultValue, maxValue int) int {
	valStr := r.URL.Query().Get(key)
	if valStr == "" {
		return defaultValue
	}
	val, err := strconv.Atoi(valStr)
	if err != nil || val < 0 {
		return defaultValue
	}
	if maxValue > 0 && val > maxValue {
		return maxValue
	}
	return val
}
