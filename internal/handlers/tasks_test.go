package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/pcrane/taskloop/internal/database"
	"github.com/pcrane/taskloop/internal/models"
	"github.com/pcrane/taskloop/internal/recurrence"
	"go.uber.org/zap"
)

func newTaskRouter(tasks database.TaskRepositoryInterface, instances InstanceService) *mux.Router {
	r := mux.NewRouter()
	h := NewTaskHandler(tasks, instances, zap.NewNop())
	h.RegisterRoutes(r.PathPrefix("/api/v1/tasks").Subrouter())
	return r
}

func TestCreateTask(t *testing.T) {
	t.Parallel()

	t.Run("created with defaults", func(t *testing.T) {
		t.Parallel()

		var created *models.Task
		tasks := &fakeTaskRepo{
			createFn: func(_ context.Context, task *models.Task) error {
				created = task
				return nil
			},
		}

		router := newTaskRouter(tasks, nil)
		req := newTestRequest("POST", "/api/v1/tasks", map[string]any{
			"user_id": uuid.New().String(),
			"title":   "Water the plants",
		})
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Code != http.StatusCreated {
			t.Fatalf("status = %d, want 201 (body: %s)", w.Code, w.Body.String())
		}
		if created == nil {
			t.Fatal("task was not persisted")
		}
		if created.Status != models.TaskStatusPending {
			t.Errorf("status = %s, want pending", created.Status)
		}
		if created.Priority != models.TaskPriorityMedium {
			t.Errorf("priority = %s, want medium default", created.Priority)
		}
	})

	t.Run("missing title", func(t *testing.T) {
		t.Parallel()

		router := newTaskRouter(&fakeTaskRepo{}, nil)
		req := newTestRequest("POST", "/api/v1/tasks", map[string]any{
			"user_id": uuid.New().String(),
		})
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", w.Code)
		}
	})

	t.Run("invalid priority", func(t *testing.T) {
		t.Parallel()

		router := newTaskRouter(&fakeTaskRepo{}, nil)
		req := newTestRequest("POST", "/api/v1/tasks", map[string]any{
			"user_id":  uuid.New().String(),
			"title":    "Water the plants",
			"priority": "urgent",
		})
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", w.Code)
		}
	})
}

func TestGetTask(t *testing.T) {
	t.Parallel()

	id := uuid.New()

	t.Run("found", func(t *testing.T) {
		t.Parallel()

		tasks := &fakeTaskRepo{
			getFn: func(_ context.Context, taskID uuid.UUID) (*models.Task, error) {
				return &models.Task{ID: taskID, Title: "Water the plants", Status: models.TaskStatusPending}, nil
			},
		}

		router := newTaskRouter(tasks, nil)
		req := httptest.NewRequest("GET", "/api/v1/tasks/"+id.String(), nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("status = %d, want 200", w.Code)
		}
	})

	t.Run("not found", func(t *testing.T) {
		t.Parallel()

		tasks := &fakeTaskRepo{
			getFn: func(_ context.Context, _ uuid.UUID) (*models.Task, error) {
				return nil, recurrence.ErrTaskNotFound
			},
		}

		router := newTaskRouter(tasks, nil)
		req := httptest.NewRequest("GET", "/api/v1/tasks/"+id.String(), nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", w.Code)
		}
	})
}

func TestCompleteTask(t *testing.T) {
	t.Parallel()

	id := uuid.New()

	pendingTask := func() *models.Task {
		return &models.Task{ID: id, Title: "Water the plants", Status: models.TaskStatusPending}
	}

	t.Run("recurring task yields next instance", func(t *testing.T) {
		t.Parallel()

		var updated *models.Task
		tasks := &fakeTaskRepo{
			getFn: func(_ context.Context, _ uuid.UUID) (*models.Task, error) {
				return pendingTask(), nil
			},
			updateFn: func(_ context.Context, task *models.Task) error {
				updated = task
				return nil
			},
		}

		due := time.Date(2025, time.January, 8, 9, 0, 0, 0, time.UTC)
		instances := &fakeInstanceService{
			generateFn: func(_ context.Context, taskID uuid.UUID) (*models.Task, error) {
				return &models.Task{ID: uuid.New(), Title: "Water the plants", DueDate: &due, Status: models.TaskStatusPending}, nil
			},
		}

		router := newTaskRouter(tasks, instances)
		req := newTestRequest("POST", "/api/v1/tasks/"+id.String()+"/complete", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200 (body: %s)", w.Code, w.Body.String())
		}
		if updated == nil || updated.Status != models.TaskStatusCompleted || updated.CompletedAt == nil {
			t.Errorf("task not marked completed: %+v", updated)
		}

		var body struct {
			Data CompleteTaskResponse `json:"data"`
		}
		if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
			t.Fatalf("decoding response: %v", err)
		}
		if body.Data.NextTask == nil {
			t.Fatal("expected next_task in response")
		}
		if body.Data.NextTask.DueDate == nil || !body.Data.NextTask.DueDate.Equal(due) {
			t.Errorf("next_task due date = %v, want %v", body.Data.NextTask.DueDate, due)
		}
	})

	t.Run("non-recurring task completes without instance", func(t *testing.T) {
		t.Parallel()

		tasks := &fakeTaskRepo{
			getFn: func(_ context.Context, _ uuid.UUID) (*models.Task, error) {
				return pendingTask(), nil
			},
			updateFn: func(_ context.Context, _ *models.Task) error {
				return nil
			},
		}
		instances := &fakeInstanceService{
			generateFn: func(_ context.Context, _ uuid.UUID) (*models.Task, error) {
				return nil, recurrence.ErrPatternNotFound
			},
		}

		router := newTaskRouter(tasks, instances)
		req := newTestRequest("POST", "/api/v1/tasks/"+id.String()+"/complete", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", w.Code)
		}

		var body struct {
			Data CompleteTaskResponse `json:"data"`
		}
		if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
			t.Fatalf("decoding response: %v", err)
		}
		if body.Data.NextTask != nil {
			t.Errorf("expected no next_task, got %+v", body.Data.NextTask)
		}
	})

	t.Run("generation failure does not undo completion", func(t *testing.T) {
		t.Parallel()

		tasks := &fakeTaskRepo{
			getFn: func(_ context.Context, _ uuid.UUID) (*models.Task, error) {
				return pendingTask(), nil
			},
			updateFn: func(_ context.Context, _ *models.Task) error {
				return nil
			},
		}
		instances := &fakeInstanceService{
			generateFn: func(_ context.Context, _ uuid.UUID) (*models.Task, error) {
				return nil, errors.New("storage unavailable")
			},
		}

		router := newTaskRouter(tasks, instances)
		req := newTestRequest("POST", "/api/v1/tasks/"+id.String()+"/complete", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("status = %d, want 200 despite generation failure", w.Code)
		}
	})

	t.Run("already completed conflicts", func(t *testing.T) {
		t.Parallel()

		completedAt := time.Now()
		tasks := &fakeTaskRepo{
			getFn: func(_ context.Context, _ uuid.UUID) (*models.Task, error) {
				return &models.Task{ID: id, Status: models.TaskStatusCompleted, CompletedAt: &completedAt}, nil
			},
		}

		router := newTaskRouter(tasks, &fakeInstanceService{})
		req := newTestRequest("POST", "/api/v1/tasks/"+id.String()+"/complete", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Code != http.StatusConflict {
			t.Errorf("status = %d, want 409", w.Code)
		}
	})

	t.Run("unknown task", func(t *testing.T) {
		t.Parallel()

		tasks := &fakeTaskRepo{
			getFn: func(_ context.Context, _ uuid.UUID) (*models.Task, error) {
				return nil, recurrence.ErrTaskNotFound
			},
		}

		router := newTaskRouter(tasks, &fakeInstanceService{})
		req := newTestRequest("POST", "/api/v1/tasks/"+id.String()+"/complete", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", w.Code)
		}
	})
}
