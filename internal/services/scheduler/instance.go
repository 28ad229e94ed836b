package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pcrane/taskloop/internal/database"
	"github.com/pcrane/taskloop/internal/models"
	"github.com/pcrane/taskloop/internal/recurrence"
	"go.uber.org/zap"
)

// InstanceGenerator materializes the next occurrence of a recurring task
// when the current one completes. It runs synchronously inside the
// completion request; a failure is logged by the caller and never rolls the
// completion back.
type InstanceGenerator struct {
	patterns database.PatternRepositoryInterface
	tasks    database.TaskRepositoryInterface
	logger   *zap.Logger
}

// NewInstanceGenerator creates a new instance generator
func NewInstanceGenerator(patterns database.PatternRepositoryInterface, tasks database.TaskRepositoryInterface, logger *zap.Logger) *InstanceGenerator {
	return &InstanceGenerator{
		patterns: patterns,
		tasks:    tasks,
		logger:   logger,
	}
}

// GenerateNext creates the next task instance for a completed recurring
// task and advances the pattern's pointer, atomically and under the
// pattern's row lock. The completed task may be the original recurring task
// or an instance generated from it; instances reach the pattern through
// their RecurrencePatternID link, so completing each generated instance
// keeps the chain going. Returns (nil, nil) when recurrence has ended past
// the pattern's end date: no instance, no mutation. Returns
// ErrPatternNotFound when the task is not recurring; callers treat that as
// normal, not as a failure. A pattern whose owning task is gone is a
// data-integrity fault and surfaces as ErrDataIntegrity.
//
// The new instance copies title, description, priority, notes and template
// from the pattern's owning task and inherits its user. Tags and subtasks
// are deliberately not copied.
func (g *InstanceGenerator) GenerateNext(ctx context.Context, taskID uuid.UUID) (*models.Task, error) {
	ownerID, err := g.patternOwner(ctx, taskID)
	if err != nil {
		return nil, err
	}

	instance, err := g.patterns.GenerateInstance(ctx, ownerID, func(p *models.RecurrencePattern) (*models.Task, time.Time, error) {
		if p.Ended() {
			return nil, time.Time{}, nil
		}

		source, err := g.tasks.GetByID(ctx, p.TaskID)
		if err != nil {
			if errors.Is(err, recurrence.ErrTaskNotFound) {
				return nil, time.Time{}, fmt.Errorf("pattern %s references missing task %s: %w", p.ID, p.TaskID, recurrence.ErrDataIntegrity)
			}
			return nil, time.Time{}, err
		}

		due := p.NextOccurrenceDate
		patternID := p.ID
		next := recurrence.Next(p.NextOccurrenceDate, p.Rule())

		return &models.Task{
			ID:                  uuid.New(),
			UserID:              source.UserID,
			Title:               source.Title,
			Description:         source.Description,
			Priority:            source.Priority,
			DueDate:             &due,
			Notes:               source.Notes,
			TemplateID:          source.TemplateID,
			RecurrencePatternID: &patternID,
			Status:              models.TaskStatusPending,
		}, next, nil
	})
	if err != nil {
		return nil, err
	}
	if instance == nil {
		g.logger.Info("recurrence_ended", zap.String("task_id", taskID.String()))
		return nil, nil
	}

	g.logger.Info("instance_generated",
		zap.String("task_id", taskID.String()),
		zap.String("instance_id", instance.ID.String()),
		zap.Timep("due_date", instance.DueDate),
	)
	return instance, nil
}

// patternOwner resolves the task whose pattern drives recurrence for the
// given completed task. The original recurring task owns its pattern
// directly. A generated instance has no pattern of its own; it carries the
// pattern's ID and is traced back to the owning task. A task with neither
// is not recurring. A dangling link, left behind when the pattern was
// deleted after the instance was generated, also reads as not recurring.
func (g *InstanceGenerator) patternOwner(ctx context.Context, taskID uuid.UUID) (uuid.UUID, error) {
	_, err := g.patterns.GetByTaskID(ctx, taskID)
	if err == nil {
		return taskID, nil
	}
	if !errors.Is(err, recurrence.ErrPatternNotFound) {
		return uuid.Nil, err
	}

	task, err := g.tasks.GetByID(ctx, taskID)
	if err != nil {
		return uuid.Nil, err
	}
	if task.RecurrencePatternID == nil {
		return uuid.Nil, recurrence.ErrPatternNotFound
	}

	pattern, err := g.patterns.GetByID(ctx, *task.RecurrencePatternID)
	if err != nil {
		return uuid.Nil, err
	}
	return pattern.TaskID, nil
}
