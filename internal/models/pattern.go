package models

import (
	"time"

	"github.com/google/uuid"
)

// Frequency represents how often a recurring task repeats
type Frequency string

const (
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
)

// RecurrencePattern is the persisted repeat rule for a single task, plus the
// cursor pointing at the next pending occurrence. There is exactly one
// pattern per recurring task, enforced by a unique constraint on TaskID.
type RecurrencePattern struct {
	ID        uuid.UUID `json:"id"`
	TaskID    uuid.UUID `json:"task_id"`
	Frequency Frequency `json:"frequency"`
	// Interval is "every N units" of the frequency, in [1, 365].
	Interval int `json:"interval"`
	// DaysOfWeek holds weekday indices 0=Monday..6=Sunday. Only meaningful
	// when Frequency is weekly; the calculator ignores it otherwise.
	DaysOfWeek []int `json:"days_of_week,omitempty"`
	// DayOfMonth is the target day in [1, 31]. Only meaningful when
	// Frequency is monthly.
	DayOfMonth *int `json:"day_of_month,omitempty"`
	// EndDate is an inclusive upper bound on occurrences.
	EndDate            *time.Time `json:"end_date,omitempty"`
	NextOccurrenceDate time.Time  `json:"next_occurrence_date"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// Rule is the caller-supplied portion of a recurrence pattern. Rules are
// checked by validation.ValidateRule; the HTTP request structs carry the
// per-field validate tags.
type Rule struct {
	Frequency  Frequency  `json:"frequency"`
	Interval   int        `json:"interval"`
	DaysOfWeek []int      `json:"days_of_week,omitempty"`
	DayOfMonth *int       `json:"day_of_month,omitempty"`
	EndDate    *time.Time `json:"end_date,omitempty"`
}

// RuleUpdate is a partial rule change. Nil fields are left untouched,
// distinguishing "not supplied" from zero values.
type RuleUpdate struct {
	Frequency  *Frequency `json:"frequency,omitempty"`
	Interval   *int       `json:"interval,omitempty"`
	DaysOfWeek []int      `json:"days_of_week,omitempty"`
	DayOfMonth *int       `json:"day_of_month,omitempty"`
	EndDate    *time.Time `json:"end_date,omitempty"`
}

// Rule returns the rule portion of the pattern.
func (p *RecurrencePattern) Rule() Rule {
	return Rule{
		Frequency:  p.Frequency,
		Interval:   p.Interval,
		DaysOfWeek: p.DaysOfWeek,
		DayOfMonth: p.DayOfMonth,
		EndDate:    p.EndDate,
	}
}

// PatternListing pairs a pattern with its owning task's title, for
// administrative listings.
type PatternListing struct {
	RecurrencePattern
	TaskTitle string `json:"task_title"`
}

// Ended reports whether the pattern's cursor has passed its inclusive end
// date. Patterns without an end date never end.
func (p *RecurrencePattern) Ended() bool {
	return p.EndDate != nil && p.NextOccurrenceDate.After(*p.EndDate)
}
