package scheduler

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pcrane/taskloop/internal/database"
	"github.com/pcrane/taskloop/internal/recurrence"
)

const (
	// MaxPreviewCount caps how many occurrences a single preview may
	// project, regardless of what the caller asks for.
	MaxPreviewCount = 20
	// DefaultPreviewCount is used when the caller does not ask for a count
	DefaultPreviewCount = 5
)

// Preview is a bounded, read-only projection of upcoming occurrences.
type Preview struct {
	Dates []time.Time `json:"dates"`
	Count int         `json:"count"`
}

// PreviewGenerator projects upcoming occurrences from a pattern's pointer.
// It never writes; its output is a point-in-time snapshot.
type PreviewGenerator struct {
	patterns database.PatternRepositoryInterface
}

// NewPreviewGenerator creates a new preview generator
func NewPreviewGenerator(patterns database.PatternRepositoryInterface) *PreviewGenerator {
	return &PreviewGenerator{patterns: patterns}
}

// Preview returns up to count upcoming occurrences for the task's pattern,
// starting at the pattern's pointer. Generation stops early once a candidate
// passes the pattern's inclusive end date, so an ended pattern yields a
// short or empty list rather than an error. Returns ErrPatternNotFound when
// the task has no pattern.
func (g *PreviewGenerator) Preview(ctx context.Context, taskID uuid.UUID, count int) (*Preview, error) {
	if count <= 0 {
		count = DefaultPreviewCount
	}
	if count > MaxPreviewCount {
		count = MaxPreviewCount
	}

	pattern, err := g.patterns.GetByTaskID(ctx, taskID)
	if err != nil {
		return nil, err
	}

	rule := pattern.Rule()
	dates := make([]time.Time, 0, count)
	candidate := pattern.NextOccurrenceDate
	for len(dates) < count {
		if pattern.EndDate != nil && candidate.After(*pattern.EndDate) {
			break
		}
		dates = append(dates, candidate)
		candidate = recurrence.Next(candidate, rule)
	}

	return &Preview{Dates: dates, Count: len(dates)}, nil
}
