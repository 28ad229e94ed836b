package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pcrane/taskloop/internal/database"
	"github.com/pcrane/taskloop/internal/models"
	"github.com/pcrane/taskloop/internal/recurrence"
)

// memoryStore is an in-memory stand-in for the pattern and task
// repositories. The pattern mutex mirrors the row lock the real store takes
// around read-modify-write cycles; tasks have their own lock so instance
// builders can read the source task while the pattern is held, like the
// real store's pool reads.
type memoryStore struct {
	mu       sync.Mutex
	patterns map[uuid.UUID]*models.RecurrencePattern // keyed by task ID
	order    []uuid.UUID                             // pattern task IDs in creation order

	tmu   sync.Mutex
	tasks map[uuid.UUID]*models.Task
}

// memoryTaskRepo exposes the store's tasks through the task repository
// interface.
type memoryTaskRepo struct {
	store *memoryStore
}

var (
	_ database.PatternRepositoryInterface = (*memoryStore)(nil)
	_ database.TaskRepositoryInterface    = (*memoryTaskRepo)(nil)
)

func newMemoryStore() *memoryStore {
	return &memoryStore{
		patterns: make(map[uuid.UUID]*models.RecurrencePattern),
		tasks:    make(map[uuid.UUID]*models.Task),
	}
}

func (m *memoryStore) taskRepo() *memoryTaskRepo {
	return &memoryTaskRepo{store: m}
}

func clonePattern(p *models.RecurrencePattern) *models.RecurrencePattern {
	c := *p
	if p.DaysOfWeek != nil {
		c.DaysOfWeek = append([]int(nil), p.DaysOfWeek...)
	}
	if p.DayOfMonth != nil {
		v := *p.DayOfMonth
		c.DayOfMonth = &v
	}
	if p.EndDate != nil {
		t := *p.EndDate
		c.EndDate = &t
	}
	return &c
}

func cloneTask(t *models.Task) *models.Task {
	c := *t
	return &c
}

func (m *memoryStore) hasTask(id uuid.UUID) bool {
	m.tmu.Lock()
	defer m.tmu.Unlock()
	_, ok := m.tasks[id]
	return ok
}

func (m *memoryStore) Create(_ context.Context, p *models.RecurrencePattern) error {
	if !m.hasTask(p.TaskID) {
		return recurrence.ErrTaskNotFound
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.patterns[p.TaskID]; ok {
		return recurrence.ErrPatternExists
	}

	now := time.Now()
	p.CreatedAt = now
	p.UpdatedAt = now
	m.patterns[p.TaskID] = clonePattern(p)
	m.order = append(m.order, p.TaskID)
	return nil
}

func (m *memoryStore) GetByTaskID(_ context.Context, taskID uuid.UUID) (*models.RecurrencePattern, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.patterns[taskID]
	if !ok {
		return nil, recurrence.ErrPatternNotFound
	}
	return clonePattern(p), nil
}

func (m *memoryStore) GetByID(_ context.Context, id uuid.UUID) (*models.RecurrencePattern, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, p := range m.patterns {
		if p.ID == id {
			return clonePattern(p), nil
		}
	}
	return nil, recurrence.ErrPatternNotFound
}

func (m *memoryStore) UpdateLocked(_ context.Context, taskID uuid.UUID, apply func(*models.RecurrencePattern) error) (*models.RecurrencePattern, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.patterns[taskID]
	if !ok {
		return nil, recurrence.ErrPatternNotFound
	}

	p := clonePattern(stored)
	if err := apply(p); err != nil {
		return nil, err
	}
	p.UpdatedAt = time.Now()
	m.patterns[taskID] = clonePattern(p)
	return p, nil
}

func (m *memoryStore) GenerateInstance(_ context.Context, taskID uuid.UUID, build database.InstanceBuilder) (*models.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.patterns[taskID]
	if !ok {
		return nil, recurrence.ErrPatternNotFound
	}

	instance, next, err := build(clonePattern(stored))
	if err != nil {
		return nil, err
	}
	if instance == nil {
		return nil, nil
	}

	now := time.Now()
	instance.CreatedAt = now
	instance.UpdatedAt = now

	m.tmu.Lock()
	m.tasks[instance.ID] = cloneTask(instance)
	m.tmu.Unlock()

	stored.NextOccurrenceDate = next
	stored.UpdatedAt = now
	return instance, nil
}

func (m *memoryStore) DeleteByTaskID(_ context.Context, taskID uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.patterns[taskID]; !ok {
		return false, nil
	}
	delete(m.patterns, taskID)
	return true, nil
}

func (m *memoryStore) List(_ context.Context) ([]*models.PatternListing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*models.PatternListing
	for _, taskID := range m.order {
		p, ok := m.patterns[taskID]
		if !ok {
			continue
		}
		out = append(out, &models.PatternListing{
			RecurrencePattern: *clonePattern(p),
			TaskTitle:         m.taskTitle(taskID),
		})
	}
	return out, nil
}

func (m *memoryStore) taskTitle(id uuid.UUID) string {
	m.tmu.Lock()
	defer m.tmu.Unlock()
	if t, ok := m.tasks[id]; ok {
		return t.Title
	}
	return ""
}

func (r *memoryTaskRepo) Create(_ context.Context, task *models.Task) error {
	r.store.tmu.Lock()
	defer r.store.tmu.Unlock()

	r.store.tasks[task.ID] = cloneTask(task)
	return nil
}

func (r *memoryTaskRepo) GetByID(_ context.Context, id uuid.UUID) (*models.Task, error) {
	r.store.tmu.Lock()
	defer r.store.tmu.Unlock()

	t, ok := r.store.tasks[id]
	if !ok {
		return nil, recurrence.ErrTaskNotFound
	}
	return cloneTask(t), nil
}

func (r *memoryTaskRepo) Update(_ context.Context, task *models.Task) error {
	r.store.tmu.Lock()
	defer r.store.tmu.Unlock()

	if _, ok := r.store.tasks[task.ID]; !ok {
		return recurrence.ErrTaskNotFound
	}
	task.UpdatedAt = time.Now()
	r.store.tasks[task.ID] = cloneTask(task)
	return nil
}

// removeTask simulates a data-integrity fault: the task vanishes while its
// pattern remains.
func (m *memoryStore) removeTask(id uuid.UUID) {
	m.tmu.Lock()
	defer m.tmu.Unlock()
	delete(m.tasks, id)
}

// seedTask inserts a pending task and returns it.
func (m *memoryStore) seedTask(dueDate *time.Time) *models.Task {
	task := &models.Task{
		ID:          uuid.New(),
		UserID:      uuid.New(),
		Title:       "Water the plants",
		Description: "All of them, even the cactus",
		Priority:    models.TaskPriorityMedium,
		DueDate:     dueDate,
		Notes:       "kitchen shelf first",
		Status:      models.TaskStatusPending,
	}
	m.tmu.Lock()
	defer m.tmu.Unlock()
	m.tasks[task.ID] = cloneTask(task)
	return task
}
