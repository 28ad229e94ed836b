package validation

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/pcrane/taskloop/internal/models"
	"github.com/pcrane/taskloop/internal/recurrence"
)

var (
	// Validate is a shared validator instance
	Validate *validator.Validate
)

func init() {
	Validate = validator.New()

	// Register custom validators for enums
	// These should never fail in normal operation
	if err := Validate.RegisterValidation("frequency", validateFrequency); err != nil {
		panic(fmt.Sprintf("failed to register frequency validator: %v", err))
	}
	if err := Validate.RegisterValidation("task_priority", validateTaskPriority); err != nil {
		panic(fmt.Sprintf("failed to register task_priority validator: %v", err))
	}
}

// validateFrequency validates that a string is a valid Frequency enum value
func validateFrequency(fl validator.FieldLevel) bool {
	switch models.Frequency(fl.Field().String()) {
	case models.FrequencyDaily, models.FrequencyWeekly, models.FrequencyMonthly:
		return true
	default:
		return false
	}
}

// validateTaskPriority validates that a string is a valid TaskPriority enum value
func validateTaskPriority(fl validator.FieldLevel) bool {
	switch models.TaskPriority(fl.Field().String()) {
	case models.TaskPriorityLow, models.TaskPriorityMedium, models.TaskPriorityHigh:
		return true
	default:
		return false
	}
}

// ValidateRule checks a complete rule against the field constraints the
// calculator assumes: a known frequency, interval in [1, 365], weekday
// indices in [0, 6] supplied only with weekly rules, and a day of month in
// [1, 31] supplied only with monthly rules.
func ValidateRule(rule models.Rule) error {
	switch rule.Frequency {
	case models.FrequencyDaily, models.FrequencyWeekly, models.FrequencyMonthly:
	default:
		return &recurrence.ValidationError{
			Field:  "frequency",
			Reason: fmt.Sprintf("%q is not one of 'daily', 'weekly', 'monthly'", rule.Frequency),
		}
	}

	if rule.Interval < 1 || rule.Interval > 365 {
		return &recurrence.ValidationError{
			Field:  "interval",
			Reason: fmt.Sprintf("%d is outside [1, 365]", rule.Interval),
		}
	}

	if rule.DaysOfWeek != nil {
		if rule.Frequency != models.FrequencyWeekly {
			return &recurrence.ValidationError{
				Field:  "days_of_week",
				Reason: "only valid with frequency 'weekly'",
			}
		}
		if len(rule.DaysOfWeek) == 0 {
			return &recurrence.ValidationError{
				Field:  "days_of_week",
				Reason: "must not be empty when supplied",
			}
		}
		for _, day := range rule.DaysOfWeek {
			if day < 0 || day > 6 {
				return &recurrence.ValidationError{
					Field:  "days_of_week",
					Reason: fmt.Sprintf("day %d is outside [0, 6]", day),
				}
			}
		}
	}

	if rule.DayOfMonth != nil {
		if rule.Frequency != models.FrequencyMonthly {
			return &recurrence.ValidationError{
				Field:  "day_of_month",
				Reason: "only valid with frequency 'monthly'",
			}
		}
		if *rule.DayOfMonth < 1 || *rule.DayOfMonth > 31 {
			return &recurrence.ValidationError{
				Field:  "day_of_month",
				Reason: fmt.Sprintf("%d is outside [1, 31]", *rule.DayOfMonth),
			}
		}
	}

	return nil
}
