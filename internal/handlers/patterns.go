package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/pcrane/taskloop/internal/models"
	"github.com/pcrane/taskloop/internal/recurrence"
	"github.com/pcrane/taskloop/internal/services/scheduler"
	"github.com/pcrane/taskloop/internal/validation"
)

// PatternManager is the lifecycle surface the recurrence handler drives.
type PatternManager interface {
	Create(ctx context.Context, taskID uuid.UUID, rule models.Rule, startDate *time.Time) (*models.RecurrencePattern, error)
	Get(ctx context.Context, taskID uuid.UUID) (*models.RecurrencePattern, error)
	Update(ctx context.Context, taskID uuid.UUID, upd models.RuleUpdate) (*models.RecurrencePattern, error)
	Delete(ctx context.Context, taskID uuid.UUID) (bool, error)
}

// Previewer projects upcoming occurrence dates without writing.
type Previewer interface {
	Preview(ctx context.Context, taskID uuid.UUID, count int) (*scheduler.Preview, error)
}

// RecurrenceHandler handles recurrence pattern requests
type RecurrenceHandler struct {
	patterns PatternManager
	preview  Previewer
}

// NewRecurrenceHandler creates a new recurrence handler
func NewRecurrenceHandler(patterns PatternManager, preview Previewer) *RecurrenceHandler {
	return &RecurrenceHandler{patterns: patterns, preview: preview}
}

// RegisterRoutes registers recurrence routes on the given router.
// The router should already have the /tasks/{id} prefix.
func (h *RecurrenceHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/recurrence", h.CreateRecurrence).Methods("POST")
	r.HandleFunc("/recurrence", h.GetRecurrence).Methods("GET")
	r.HandleFunc("/recurrence", h.UpdateRecurrence).Methods("PATCH")
	r.HandleFunc("/recurrence", h.DeleteRecurrence).Methods("DELETE")
	r.HandleFunc("/recurrence/preview", h.PreviewRecurrence).Methods("GET")
}

// CreateRecurrenceRequest represents a create recurrence request
type CreateRecurrenceRequest struct {
	Frequency  models.Frequency `json:"frequency" validate:"required,frequency"`
	Interval   int              `json:"interval" validate:"required,min=1,max=365"`
	DaysOfWeek []int            `json:"days_of_week,omitempty" validate:"omitempty,min=1,dive,min=0,max=6"`
	DayOfMonth *int             `json:"day_of_month,omitempty" validate:"omitempty,min=1,max=31"`
	EndDate    *time.Time       `json:"end_date,omitempty"`
	StartDate  *time.Time       `json:"start_date,omitempty"`
}

// CreateRecurrence attaches a recurrence pattern to a task
func (h *RecurrenceHandler) CreateRecurrence(w http.ResponseWriter, r *http.Request) {
	taskID, ok := taskIDFromRequest(w, r)
	if !ok {
		return
	}

	var req CreateRecurrenceRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if !validateRequest(w, req) {
		return
	}

	rule := models.Rule{
		Frequency:  req.Frequency,
		Interval:   req.Interval,
		DaysOfWeek: req.DaysOfWeek,
		DayOfMonth: req.DayOfMonth,
		EndDate:    req.EndDate,
	}

	pattern, err := h.patterns.Create(r.Context(), taskID, rule, req.StartDate)
	if err != nil {
		respondSchedulerError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, pattern)
}

// GetRecurrence returns the task's recurrence pattern
func (h *RecurrenceHandler) GetRecurrence(w http.ResponseWriter, r *http.Request) {
	taskID, ok := taskIDFromRequest(w, r)
	if !ok {
		return
	}

	pattern, err := h.patterns.Get(r.Context(), taskID)
	if err != nil {
		respondSchedulerError(w, err)
		return
	}
	if pattern == nil {
		respondJSONError(w, http.StatusNotFound, "Not Found", "Task has no recurrence pattern")
		return
	}

	respondJSON(w, http.StatusOK, pattern)
}

// UpdateRecurrenceRequest represents a partial recurrence update
type UpdateRecurrenceRequest struct {
	Frequency  *models.Frequency `json:"frequency,omitempty" validate:"omitempty,frequency"`
	Interval   *int              `json:"interval,omitempty" validate:"omitempty,min=1,max=365"`
	DaysOfWeek []int             `json:"days_of_week,omitempty" validate:"omitempty,min=1,dive,min=0,max=6"`
	DayOfMonth *int              `json:"day_of_month,omitempty" validate:"omitempty,min=1,max=31"`
	EndDate    *time.Time        `json:"end_date,omitempty"`
}

// UpdateRecurrence applies a partial rule change to the task's pattern
func (h *RecurrenceHandler) UpdateRecurrence(w http.ResponseWriter, r *http.Request) {
	taskID, ok := taskIDFromRequest(w, r)
	if !ok {
		return
	}

	var req UpdateRecurrenceRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if !validateRequest(w, req) {
		return
	}

	pattern, err := h.patterns.Update(r.Context(), taskID, models.RuleUpdate{
		Frequency:  req.Frequency,
		Interval:   req.Interval,
		DaysOfWeek: req.DaysOfWeek,
		DayOfMonth: req.DayOfMonth,
		EndDate:    req.EndDate,
	})
	if err != nil {
		respondSchedulerError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, pattern)
}

// DeleteRecurrence removes the task's recurrence pattern. Deleting a task
// with no pattern succeeds with no effect.
func (h *RecurrenceHandler) DeleteRecurrence(w http.ResponseWriter, r *http.Request) {
	taskID, ok := taskIDFromRequest(w, r)
	if !ok {
		return
	}

	if _, err := h.patterns.Delete(r.Context(), taskID); err != nil {
		respondSchedulerError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// PreviewRecurrence returns upcoming occurrence dates for the task's pattern
func (h *RecurrenceHandler) PreviewRecurrence(w http.ResponseWriter, r *http.Request) {
	taskID, ok := taskIDFromRequest(w, r)
	if !ok {
		return
	}

	count := 0
	if c := r.URL.Query().Get("count"); c != "" {
		parsed, err := strconv.Atoi(c)
		if err != nil || parsed < 0 {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", "count must be a non-negative integer")
			return
		}
		count = parsed
	}

	preview, err := h.preview.Preview(r.Context(), taskID, count)
	if err != nil {
		respondSchedulerError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, preview)
}

// taskIDFromRequest parses the {id} path variable. Writes a 400 and returns
// false when the ID is not a UUID.
func taskIDFromRequest(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	vars := mux.Vars(r)
	id, err := uuid.Parse(vars["id"])
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid task ID")
		return uuid.Nil, false
	}
	return id, true
}

// decodeBody decodes a JSON request body. Writes an error response and
// returns false on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(dst); err != nil {
		if maxBytesErr, ok := err.(*http.MaxBytesError); ok {
			respondJSONError(w, http.StatusRequestEntityTooLarge, "Request Entity Too Large", fmt.Sprintf("Request body exceeds maximum size of %d bytes", maxBytesErr.Limit))
			return false
		}
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid request body")
		return false
	}
	return true
}

// validateRequest runs the shared validator over a decoded request struct.
// Writes a 400 naming the first failing field and returns false on failure.
func validateRequest(w http.ResponseWriter, req any) bool {
	err := validation.Validate.Struct(req)
	if err == nil {
		return true
	}
	if validationErrors, ok := err.(validator.ValidationErrors); ok {
		for _, fieldError := range validationErrors {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", fmt.Sprintf("Validation failed: %s", fieldError.Error()))
			return false
		}
	}
	respondJSONError(w, http.StatusBadRequest, "Bad Request", "Validation failed")
	return false
}

// respondSchedulerError maps scheduler error taxonomy onto HTTP statuses.
func respondSchedulerError(w http.ResponseWriter, err error) {
	var ve *recurrence.ValidationError
	switch {
	case errors.As(err, &ve):
		respondJSONError(w, http.StatusBadRequest, "Bad Request", ve.Error())
	case errors.Is(err, recurrence.ErrTaskNotFound):
		respondJSONError(w, http.StatusNotFound, "Not Found", "Task not found")
	case errors.Is(err, recurrence.ErrPatternNotFound):
		respondJSONError(w, http.StatusNotFound, "Not Found", "Task has no recurrence pattern")
	case errors.Is(err, recurrence.ErrPatternExists):
		respondJSONError(w, http.StatusConflict, "Conflict", "Task already has a recurrence pattern")
	default:
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "An unexpected error occurred")
	}
}
