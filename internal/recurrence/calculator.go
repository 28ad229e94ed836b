// Package recurrence computes occurrence dates for repeating tasks. The
// calculator is pure: no clock reads, no I/O, safe for concurrent use.
package recurrence

import (
	"sort"
	"time"

	"github.com/pcrane/taskloop/internal/models"
)

// Next returns the first occurrence after from for the given rule. It is a
// total function: rules with an unrecognized frequency fall back to one day
// after from instead of failing. Callers are expected to validate rules
// before they reach this layer, so the fallback firing indicates an upstream
// validation gap.
func Next(from time.Time, rule models.Rule) time.Time {
	interval := rule.Interval
	if interval < 1 {
		interval = 1
	}

	switch rule.Frequency {
	case models.FrequencyDaily:
		return from.AddDate(0, 0, interval)
	case models.FrequencyWeekly:
		if len(rule.DaysOfWeek) == 0 {
			return nextWeeklySimple(from, interval)
		}
		return nextWeeklyOnDays(from, interval, rule.DaysOfWeek)
	case models.FrequencyMonthly:
		return nextMonthly(from, interval, rule.DayOfMonth)
	default:
		return from.AddDate(0, 0, 1)
	}
}

// nextWeeklySimple jumps a whole number of weeks, landing on the same
// weekday as from.
func nextWeeklySimple(from time.Time, interval int) time.Time {
	return from.AddDate(0, 0, 7*interval)
}

// nextWeeklyOnDays picks the soonest matching weekday strictly after from.
// Days use 0=Monday..6=Sunday. If a day in the set falls later in from's
// week, that day wins; otherwise the occurrence wraps to the first day of
// the set, interval weeks ahead.
func nextWeeklyOnDays(from time.Time, interval int, days []int) time.Time {
	sorted := make([]int, len(days))
	copy(sorted, days)
	sort.Ints(sorted)

	w := mondayIndexed(from.Weekday())
	for _, day := range sorted {
		if day > w {
			return from.AddDate(0, 0, day-w)
		}
	}

	// No matching day left this week: advance to the first day of the set
	// in week current+interval.
	first := sorted[0]
	return from.AddDate(0, 0, (7-w+first)+7*(interval-1))
}

// nextMonthly adds interval months with year carry, targeting dayOfMonth
// when given and from's own day otherwise. When the target day does not
// exist in the destination month (31 in April, 29-31 in a non-leap
// February), the day is walked back one at a time until it fits, with a
// floor at day 1. The walk is bounded: three steps cover the worst case.
func nextMonthly(from time.Time, interval int, dayOfMonth *int) time.Time {
	targetDay := from.Day()
	if dayOfMonth != nil {
		targetDay = *dayOfMonth
	}

	monthIndex := int(from.Month()) - 1 + interval
	year := from.Year() + monthIndex/12
	month := time.Month(monthIndex%12 + 1)

	day := targetDay
	last := daysIn(year, month)
	for day > last && day > 1 {
		day--
	}

	return time.Date(year, month, day,
		from.Hour(), from.Minute(), from.Second(), from.Nanosecond(), from.Location())
}

// mondayIndexed converts Go's Sunday-based weekday to the 0=Monday..6=Sunday
// indexing used by recurrence rules.
func mondayIndexed(d time.Weekday) int {
	return (int(d) + 6) % 7
}

// daysIn returns the number of days in the given month. Day zero of the
// following month normalizes to the last day of this one.
func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
