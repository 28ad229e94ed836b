package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/pcrane/taskloop/internal/models"
	"github.com/pcrane/taskloop/internal/recurrence"
)

// PatternRepository handles recurrence pattern database operations
type PatternRepository struct {
	db *DB
}

// NewPatternRepository creates a new pattern repository
func NewPatternRepository(db *DB) *PatternRepository {
	return &PatternRepository{db: db}
}

const patternColumns = `id, task_id, frequency, "interval", days_of_week, day_of_month, end_date, next_occurrence_date, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPattern(row rowScanner, extra ...any) (*models.RecurrencePattern, error) {
	p := &models.RecurrencePattern{}
	var days pq.Int64Array
	var dayOfMonth sql.NullInt64
	var endDate sql.NullTime

	dest := []any{
		&p.ID,
		&p.TaskID,
		&p.Frequency,
		&p.Interval,
		&days,
		&dayOfMonth,
		&endDate,
		&p.NextOccurrenceDate,
		&p.CreatedAt,
		&p.UpdatedAt,
	}
	dest = append(dest, extra...)

	if err := row.Scan(dest...); err != nil {
		return nil, err
	}

	if len(days) > 0 {
		p.DaysOfWeek = make([]int, len(days))
		for i, d := range days {
			p.DaysOfWeek[i] = int(d)
		}
	}
	if dayOfMonth.Valid {
		v := int(dayOfMonth.Int64)
		p.DayOfMonth = &v
	}
	if endDate.Valid {
		t := endDate.Time
		p.EndDate = &t
	}

	return p, nil
}

func daysOfWeekParam(days []int) any {
	if len(days) == 0 {
		return nil
	}
	arr := make(pq.Int64Array, len(days))
	for i, d := range days {
		arr[i] = int64(d)
	}
	return arr
}

// Create inserts a pattern and links the owning task to it in one
// transaction. The unique constraint on task_id is the authority on the
// one-pattern-per-task invariant, so concurrent creates cannot both win.
func (r *PatternRepository) Create(ctx context.Context, p *models.RecurrencePattern) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			_ = rbErr
		}
	}()

	query := `
		INSERT INTO recurrence_patterns (id, task_id, frequency, "interval", days_of_week, day_of_month, end_date, next_occurrence_date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now(), now())
		RETURNING created_at, updated_at
	`

	err = tx.QueryRowContext(ctx, query,
		p.ID,
		p.TaskID,
		p.Frequency,
		p.Interval,
		daysOfWeekParam(p.DaysOfWeek),
		p.DayOfMonth,
		p.EndDate,
		p.NextOccurrenceDate,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return mapPatternWriteError(err)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE tasks SET recurrence_pattern_id = $2, updated_at = now() WHERE id = $1`,
		p.TaskID, p.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to link task to pattern: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit pattern create: %w", err)
	}
	return nil
}

// GetByTaskID retrieves the pattern owned by a task
func (r *PatternRepository) GetByTaskID(ctx context.Context, taskID uuid.UUID) (*models.RecurrencePattern, error) {
	query := `SELECT ` + patternColumns + ` FROM recurrence_patterns WHERE task_id = $1`

	p, err := scanPattern(r.db.QueryRowContext(ctx, query, taskID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, recurrence.ErrPatternNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get pattern: %w", err)
	}
	return p, nil
}

// GetByID retrieves a pattern by its own ID. Generated instances carry the
// pattern's ID rather than owning a pattern row, so this is how they are
// traced back to it.
func (r *PatternRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.RecurrencePattern, error) {
	query := `SELECT ` + patternColumns + ` FROM recurrence_patterns WHERE id = $1`

	p, err := scanPattern(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, recurrence.ErrPatternNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get pattern: %w", err)
	}
	return p, nil
}

// UpdateLocked loads the pattern under a row lock, lets apply mutate it, and
// writes the result back before releasing the lock. The callback must be
// pure; it runs inside the transaction.
func (r *PatternRepository) UpdateLocked(ctx context.Context, taskID uuid.UUID, apply func(*models.RecurrencePattern) error) (*models.RecurrencePattern, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			_ = rbErr
		}
	}()

	query := `SELECT ` + patternColumns + ` FROM recurrence_patterns WHERE task_id = $1 FOR UPDATE`
	p, err := scanPattern(tx.QueryRowContext(ctx, query, taskID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, recurrence.ErrPatternNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock pattern: %w", err)
	}

	if err := apply(p); err != nil {
		return nil, err
	}

	update := `
		UPDATE recurrence_patterns
		SET frequency = $2, "interval" = $3, days_of_week = $4, day_of_month = $5, end_date = $6, next_occurrence_date = $7, updated_at = now()
		WHERE id = $1
		RETURNING updated_at
	`
	err = tx.QueryRowContext(ctx, update,
		p.ID,
		p.Frequency,
		p.Interval,
		daysOfWeekParam(p.DaysOfWeek),
		p.DayOfMonth,
		p.EndDate,
		p.NextOccurrenceDate,
	).Scan(&p.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to update pattern: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit pattern update: %w", err)
	}
	return p, nil
}

// GenerateInstance runs one instance-generation cycle under the pattern's
// row lock: build receives the current pattern and returns the task to
// create plus the advanced pointer. A nil task means recurrence has ended;
// nothing is written. Instance insert and pointer advance commit together
// or not at all.
func (r *PatternRepository) GenerateInstance(ctx context.Context, taskID uuid.UUID, build InstanceBuilder) (*models.Task, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			_ = rbErr
		}
	}()

	query := `SELECT ` + patternColumns + ` FROM recurrence_patterns WHERE task_id = $1 FOR UPDATE`
	p, err := scanPattern(tx.QueryRowContext(ctx, query, taskID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, recurrence.ErrPatternNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock pattern: %w", err)
	}

	instance, next, err := build(p)
	if err != nil {
		return nil, err
	}
	if instance == nil {
		return nil, nil
	}

	if err := insertTask(ctx, tx, instance); err != nil {
		return nil, fmt.Errorf("failed to create task instance: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE recurrence_patterns SET next_occurrence_date = $2, updated_at = now() WHERE id = $1`,
		p.ID, next,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to advance pattern pointer: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit instance generation: %w", err)
	}
	return instance, nil
}

// DeleteByTaskID removes the pattern owned by a task, clearing the task's
// link to it. Reports whether a pattern was actually deleted; deleting an
// absent pattern is not an error.
func (r *PatternRepository) DeleteByTaskID(ctx context.Context, taskID uuid.UUID) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			_ = rbErr
		}
	}()

	result, err := tx.ExecContext(ctx, `DELETE FROM recurrence_patterns WHERE task_id = $1`, taskID)
	if err != nil {
		return false, fmt.Errorf("failed to delete pattern: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected > 0 {
		_, err = tx.ExecContext(ctx,
			`UPDATE tasks SET recurrence_pattern_id = NULL, updated_at = now() WHERE id = $1`,
			taskID,
		)
		if err != nil {
			return false, fmt.Errorf("failed to unlink task from pattern: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit pattern delete: %w", err)
	}
	return rowsAffected > 0, nil
}

// List retrieves all recurrence patterns joined with their owning task's
// title, oldest first.
func (r *PatternRepository) List(ctx context.Context) ([]*models.PatternListing, error) {
	query := `
		SELECT p.id, p.task_id, p.frequency, p."interval", p.days_of_week, p.day_of_month, p.end_date, p.next_occurrence_date, p.created_at, p.updated_at, t.title
		FROM recurrence_patterns p
		JOIN tasks t ON t.id = p.task_id
		ORDER BY p.created_at
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query patterns: %w", err)
	}
	defer rows.Close()

	var listings []*models.PatternListing
	for rows.Next() {
		var title string
		p, err := scanPattern(rows, &title)
		if err != nil {
			return nil, fmt.Errorf("failed to scan pattern: %w", err)
		}
		listings = append(listings, &models.PatternListing{RecurrencePattern: *p, TaskTitle: title})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating patterns: %w", err)
	}
	return listings, nil
}

func mapPatternWriteError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code.Name() {
		case "unique_violation":
			return fmt.Errorf("failed to create pattern: %w", recurrence.ErrPatternExists)
		case "foreign_key_violation":
			return fmt.Errorf("failed to create pattern: %w", recurrence.ErrTaskNotFound)
		}
	}
	return fmt.Errorf("failed to create pattern: %w", err)
}
