package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pcrane/taskloop/internal/models"
)

// InstanceBuilder turns the locked pattern into the instance to create and
// the advanced pointer. Returning a nil task means recurrence has ended and
// nothing should be written.
type InstanceBuilder func(p *models.RecurrencePattern) (*models.Task, time.Time, error)

// PatternRepositoryInterface defines the interface for pattern repository
// operations. It enables service tests to run against in-memory mocks.
type PatternRepositoryInterface interface {
	Create(ctx context.Context, p *models.RecurrencePattern) error
	GetByTaskID(ctx context.Context, taskID uuid.UUID) (*models.RecurrencePattern, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.RecurrencePattern, error)
	UpdateLocked(ctx context.Context, taskID uuid.UUID, apply func(*models.RecurrencePattern) error) (*models.RecurrencePattern, error)
	GenerateInstance(ctx context.Context, taskID uuid.UUID, build InstanceBuilder) (*models.Task, error)
	DeleteByTaskID(ctx context.Context, taskID uuid.UUID) (bool, error)
	List(ctx context.Context) ([]*models.PatternListing, error)
}

// TaskRepositoryInterface defines the interface for task repository operations
type TaskRepositoryInterface interface {
	Create(ctx context.Context, task *models.Task) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Task, error)
	Update(ctx context.Context, task *models.Task) error
}

// Ensure concrete types implement the interfaces
var (
	_ PatternRepositoryInterface = (*PatternRepository)(nil)
	_ TaskRepositoryInterface    = (*TaskRepository)(nil)
)
