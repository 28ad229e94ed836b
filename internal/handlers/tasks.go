package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/pcrane/taskloop/internal/database"
	"github.com/pcrane/taskloop/internal/models"
	"github.com/pcrane/taskloop/internal/recurrence"
	"go.uber.org/zap"
)

// InstanceService generates the next occurrence of a recurring task.
type InstanceService interface {
	GenerateNext(ctx context.Context, taskID uuid.UUID) (*models.Task, error)
}

// TaskHandler handles task requests
type TaskHandler struct {
	tasks     database.TaskRepositoryInterface
	instances InstanceService
	logger    *zap.Logger
}

// NewTaskHandler creates a new task handler
func NewTaskHandler(tasks database.TaskRepositoryInterface, instances InstanceService, logger *zap.Logger) *TaskHandler {
	return &TaskHandler{tasks: tasks, instances: instances, logger: logger}
}

// RegisterRoutes registers task routes on the given router.
// The router should already have the /tasks prefix.
func (h *TaskHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("", h.CreateTask).Methods("POST")
	r.HandleFunc("/{id}", h.GetTask).Methods("GET")
	r.HandleFunc("/{id}/complete", h.CompleteTask).Methods("POST")
}

const (
	// MaxTitleLength is the maximum length for task titles
	MaxTitleLength = 500
	// MaxDescriptionLength is the maximum length for task descriptions
	MaxDescriptionLength = 10000
)

// CreateTaskRequest represents a create task request
type CreateTaskRequest struct {
	UserID      uuid.UUID           `json:"user_id" validate:"required"`
	Title       string              `json:"title" validate:"required,min=1,max=500"`
	Description string              `json:"description" validate:"omitempty,max=10000"`
	Priority    models.TaskPriority `json:"priority" validate:"omitempty,task_priority"`
	DueDate     *time.Time          `json:"due_date,omitempty"`
	Notes       string              `json:"notes" validate:"omitempty,max=10000"`
	TemplateID  *uuid.UUID          `json:"template_id,omitempty"`
}

// CreateTask creates a new task
func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	var req CreateTaskRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if !validateRequest(w, req) {
		return
	}

	priority := req.Priority
	if priority == "" {
		priority = models.TaskPriorityMedium
	}

	task := &models.Task{
		ID:          uuid.New(),
		UserID:      req.UserID,
		Title:       req.Title,
		Description: req.Description,
		Priority:    priority,
		DueDate:     req.DueDate,
		Notes:       req.Notes,
		TemplateID:  req.TemplateID,
		Status:      models.TaskStatusPending,
	}

	if err := h.tasks.Create(r.Context(), task); err != nil {
		h.logger.Error("task_create_failed", zap.Error(err))
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to create task")
		return
	}

	respondJSON(w, http.StatusCreated, task)
}

// GetTask retrieves a task by ID
func (h *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	id, ok := taskIDFromRequest(w, r)
	if !ok {
		return
	}

	task, err := h.tasks.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, recurrence.ErrTaskNotFound) {
			respondJSONError(w, http.StatusNotFound, "Not Found", "Task not found")
			return
		}
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve task")
		return
	}

	respondJSON(w, http.StatusOK, task)
}

// CompleteTaskResponse carries the completed task plus the generated next
// instance, when the task is recurring and its recurrence has not ended.
type CompleteTaskResponse struct {
	Task     *models.Task `json:"task"`
	NextTask *models.Task `json:"next_task,omitempty"`
}

// CompleteTask marks a task as completed. When the task is recurring,
// whether the original task or a generated instance, the next instance is
// generated synchronously; a generation failure is logged but does not undo
// the completion.
func (h *TaskHandler) CompleteTask(w http.ResponseWriter, r *http.Request) {
	id, ok := taskIDFromRequest(w, r)
	if !ok {
		return
	}

	ctx := r.Context()
	task, err := h.tasks.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, recurrence.ErrTaskNotFound) {
			respondJSONError(w, http.StatusNotFound, "Not Found", "Task not found")
			return
		}
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve task")
		return
	}

	if task.Status == models.TaskStatusCompleted {
		respondJSONError(w, http.StatusConflict, "Conflict", "Task is already completed")
		return
	}

	now := time.Now()
	task.Status = models.TaskStatusCompleted
	task.CompletedAt = &now

	if err := h.tasks.Update(ctx, task); err != nil {
		h.logger.Error("task_complete_failed", zap.Error(err))
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to complete task")
		return
	}

	response := CompleteTaskResponse{Task: task}

	next, err := h.instances.GenerateNext(ctx, id)
	switch {
	case errors.Is(err, recurrence.ErrPatternNotFound):
		// Not recurring; completion stands on its own.
	case err != nil:
		h.logger.Error("instance_generation_failed",
			zap.String("task_id", id.String()),
			zap.Error(err),
		)
	default:
		response.NextTask = next
	}

	respondJSON(w, http.StatusOK, response)
}
