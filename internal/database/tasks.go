package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/pcrane/taskloop/internal/models"
	"github.com/pcrane/taskloop/internal/recurrence"
)

// TaskRepository handles task database operations. Tasks belong to the
// surrounding task API; the scheduler only reads them and materializes
// recurrence instances into them.
type TaskRepository struct {
	db *DB
}

// NewTaskRepository creates a new task repository
func NewTaskRepository(db *DB) *TaskRepository {
	return &TaskRepository{db: db}
}

// executor is satisfied by both *sql.DB and *sql.Tx so task inserts can run
// inside the instance-generation transaction.
type executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func insertTask(ctx context.Context, e executor, task *models.Task) error {
	query := `
		INSERT INTO tasks (id, user_id, title, description, priority, due_date, notes, template_id, recurrence_pattern_id, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, now(), now())
		RETURNING created_at, updated_at
	`

	return e.QueryRowContext(ctx, query,
		task.ID,
		task.UserID,
		task.Title,
		task.Description,
		task.Priority,
		task.DueDate,
		task.Notes,
		task.TemplateID,
		task.RecurrencePatternID,
		task.Status,
	).Scan(&task.CreatedAt, &task.UpdatedAt)
}

// Create creates a new task
func (r *TaskRepository) Create(ctx context.Context, task *models.Task) error {
	if err := insertTask(ctx, r.db.DB, task); err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}
	return nil
}

// GetByID retrieves a task by ID
func (r *TaskRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Task, error) {
	task := &models.Task{}
	var dueDate, completedAt sql.NullTime
	var templateID, patternID uuid.NullUUID

	query := `
		SELECT id, user_id, title, description, priority, due_date, notes, template_id, recurrence_pattern_id, status, created_at, updated_at, completed_at
		FROM tasks
		WHERE id = $1
	`

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&task.ID,
		&task.UserID,
		&task.Title,
		&task.Description,
		&task.Priority,
		&dueDate,
		&task.Notes,
		&templateID,
		&patternID,
		&task.Status,
		&task.CreatedAt,
		&task.UpdatedAt,
		&completedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, recurrence.ErrTaskNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get task: %w", err)
	}

	if dueDate.Valid {
		task.DueDate = &dueDate.Time
	}
	if completedAt.Valid {
		task.CompletedAt = &completedAt.Time
	}
	if templateID.Valid {
		task.TemplateID = &templateID.UUID
	}
	if patternID.Valid {
		task.RecurrencePatternID = &patternID.UUID
	}

	return task, nil
}

// Update updates an existing task
func (r *TaskRepository) Update(ctx context.Context, task *models.Task) error {
	query := `
		UPDATE tasks
		SET title = $2, description = $3, priority = $4, due_date = $5, notes = $6, status = $7, completed_at = $8, updated_at = now()
		WHERE id = $1
		RETURNING updated_at
	`

	var completedAt sql.NullTime
	if task.CompletedAt != nil {
		completedAt = sql.NullTime{Time: *task.CompletedAt, Valid: true}
	}

	err := r.db.QueryRowContext(ctx, query,
		task.ID,
		task.Title,
		task.Description,
		task.Priority,
		task.DueDate,
		task.Notes,
		task.Status,
		completedAt,
	).Scan(&task.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return recurrence.ErrTaskNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}

	return nil
}
