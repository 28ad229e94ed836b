package handlers

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pcrane/taskloop/internal/database"
	"github.com/pcrane/taskloop/internal/models"
	"github.com/pcrane/taskloop/internal/services/scheduler"
)

// fakePatternManager stubs PatternManager with per-method functions.
type fakePatternManager struct {
	createFn func(ctx context.Context, taskID uuid.UUID, rule models.Rule, startDate *time.Time) (*models.RecurrencePattern, error)
	getFn    func(ctx context.Context, taskID uuid.UUID) (*models.RecurrencePattern, error)
	updateFn func(ctx context.Context, taskID uuid.UUID, upd models.RuleUpdate) (*models.RecurrencePattern, error)
	deleteFn func(ctx context.Context, taskID uuid.UUID) (bool, error)
}

var _ PatternManager = (*fakePatternManager)(nil)

func (f *fakePatternManager) Create(ctx context.Context, taskID uuid.UUID, rule models.Rule, startDate *time.Time) (*models.RecurrencePattern, error) {
	return f.createFn(ctx, taskID, rule, startDate)
}

func (f *fakePatternManager) Get(ctx context.Context, taskID uuid.UUID) (*models.RecurrencePattern, error) {
	return f.getFn(ctx, taskID)
}

func (f *fakePatternManager) Update(ctx context.Context, taskID uuid.UUID, upd models.RuleUpdate) (*models.RecurrencePattern, error) {
	return f.updateFn(ctx, taskID, upd)
}

func (f *fakePatternManager) Delete(ctx context.Context, taskID uuid.UUID) (bool, error) {
	return f.deleteFn(ctx, taskID)
}

type fakePreviewer struct {
	previewFn func(ctx context.Context, taskID uuid.UUID, count int) (*scheduler.Preview, error)
}

var _ Previewer = (*fakePreviewer)(nil)

func (f *fakePreviewer) Preview(ctx context.Context, taskID uuid.UUID, count int) (*scheduler.Preview, error) {
	return f.previewFn(ctx, taskID, count)
}

type fakeInstanceService struct {
	generateFn func(ctx context.Context, taskID uuid.UUID) (*models.Task, error)
}

var _ InstanceService = (*fakeInstanceService)(nil)

func (f *fakeInstanceService) GenerateNext(ctx context.Context, taskID uuid.UUID) (*models.Task, error) {
	return f.generateFn(ctx, taskID)
}

type fakeTaskRepo struct {
	createFn func(ctx context.Context, task *models.Task) error
	getFn    func(ctx context.Context, id uuid.UUID) (*models.Task, error)
	updateFn func(ctx context.Context, task *models.Task) error
}

var _ database.TaskRepositoryInterface = (*fakeTaskRepo)(nil)

func (f *fakeTaskRepo) Create(ctx context.Context, task *models.Task) error {
	return f.createFn(ctx, task)
}

func (f *fakeTaskRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Task, error) {
	return f.getFn(ctx, id)
}

func (f *fakeTaskRepo) Update(ctx context.Context, task *models.Task) error {
	return f.updateFn(ctx, task)
}
