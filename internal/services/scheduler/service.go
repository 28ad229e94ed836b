// Package scheduler implements the recurring-task scheduler: pattern
// lifecycle, bounded previews of upcoming occurrences, and instance
// generation when a recurring task completes.
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
	"github.com/pcrane/taskloop/internal/validation"
	"go.uber.org/zap"
)

// PatternService owns the recurrence pattern lifecycle. All rule validation
// happens here, before anything reaches the occurrence calculator.
type PatternService struct {
	patterns database.PatternRepositoryInterface
	tasks    database.TaskRepositoryInterface
	logger   *zap.Logger
	now      func() time.Time
}

// PatternServiceOption configures a PatternService
type PatternServiceOption func(*PatternService)

// WithClock overrides the service clock. Tests use this to pin "now".
func WithClock(now func() time.Time) PatternServiceOption {
	return func(s *PatternService) {
		s.now = now
	}
}

// NewPatternService creates a new pattern service
func NewPatternService(patterns database.PatternRepositoryInterface, tasks database.TaskRepositoryInterface, logger *zap.Logger, opts ...PatternServiceOption) *PatternService {
	s := &PatternService{
		patterns: patterns,
		tasks:    tasks,
		logger:   logger,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create attaches a recurrence rule to a task. The initial pointer is the
// first occurrence computed from startDate, which defaults to the task's
// due date when it has one and to now otherwise. Returns ErrTaskNotFound
// for unknown tasks and ErrPatternExists when the task is already recurring.
func (s *PatternService) Create(ctx context.Context, taskID uuid.UUID, rule models.Rule, startDate *time.Time) (*models.RecurrencePattern, error) {
	if err := validation.ValidateRule(rule); err != nil {
		return nil, err
	}

	task, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		return nil, err
	}

	start := s.now()
	if startDate != nil {
		start = *startDate
	} else if task.DueDate != nil {
		start = *task.DueDate
	}

	pattern := &models.RecurrencePattern{
		ID:                 uuid.New(),
		TaskID:             taskID,
		Frequency:          rule.Frequency,
		Interval:           rule.Interval,
		DaysOfWeek:         rule.DaysOfWeek,
		DayOfMonth:         rule.DayOfMonth,
		EndDate:            rule.EndDate,
		NextOccurrenceDate: recurrence.Next(start, rule),
	}

	if err := s.patterns.Create(ctx, pattern); err != nil {
		return nil, err
	}

	s.logger.Info("pattern_created",
		zap.String("pattern_id", pattern.ID.String()),
		zap.String("task_id", taskID.String()),
		zap.String("frequency", string(pattern.Frequency)),
		zap.Int("interval", pattern.Interval),
		zap.Time("next_occurrence", pattern.NextOccurrenceDate),
	)
	return pattern, nil
}

// Get returns the task's pattern, or nil when the task is not recurring.
// Absence is not an error.
func (s *PatternService) Get(ctx context.Context, taskID uuid.UUID) (*models.RecurrencePattern, error) {
	pattern, err := s.patterns.GetByTaskID(ctx, taskID)
	if errors.Is(err, recurrence.ErrPatternNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return pattern, nil
}

// Update applies a partial rule change under the pattern's row lock. When
// any of frequency, interval, days_of_week or day_of_month is supplied, the
// pointer is recomputed anchored to the moment of the update, not to the
// previous pointer or the original start.
func (s *PatternService) Update(ctx context.Context, taskID uuid.UUID, upd models.RuleUpdate) (*models.RecurrencePattern, error) {
	pattern, err := s.patterns.UpdateLocked(ctx, taskID, func(p *models.RecurrencePattern) error {
		ruleChanged := false

		if upd.Frequency != nil {
			p.Frequency = *upd.Frequency
			ruleChanged = true
			// A frequency switch invalidates the old variant fields
			// unless this update re-supplies them.
			if p.Frequency != models.FrequencyWeekly && upd.DaysOfWeek == nil {
				p.DaysOfWeek = nil
			}
			if p.Frequency != models.FrequencyMonthly && upd.DayOfMonth == nil {
				p.DayOfMonth = nil
			}
		}
		if upd.Interval != nil {
			p.Interval = *upd.Interval
			ruleChanged = true
		}
		if upd.DaysOfWeek != nil {
			p.DaysOfWeek = upd.DaysOfWeek
			ruleChanged = true
		}
		if upd.DayOfMonth != nil {
			p.DayOfMonth = upd.DayOfMonth
			ruleChanged = true
		}
		if upd.EndDate != nil {
			p.EndDate = upd.EndDate
		}

		if err := validation.ValidateRule(p.Rule()); err != nil {
			return err
		}

		if ruleChanged {
			p.NextOccurrenceDate = recurrence.Next(s.now(), p.Rule())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("pattern_updated",
		zap.String("pattern_id", pattern.ID.String()),
		zap.String("task_id", taskID.String()),
		zap.Time("next_occurrence", pattern.NextOccurrenceDate),
	)
	return pattern, nil
}

// Delete removes the task's pattern if present. Idempotent: deleting an
// absent pattern reports deleted=false, never an error.
func (s *PatternService) Delete(ctx context.Context, taskID uuid.UUID) (bool, error) {
	deleted, err := s.patterns.DeleteByTaskID(ctx, taskID)
	if err != nil {
		return false, fmt.Errorf("failed to delete pattern for task %s: %w", taskID, err)
	}
	if deleted {
		s.logger.Info("pattern_deleted", zap.String("task_id", taskID.String()))
	}
	return deleted, nil
}
