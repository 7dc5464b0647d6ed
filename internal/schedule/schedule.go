// Package schedule holds the pure date arithmetic behind watering schedules.
// It never touches the network, the generative layer, or persistence; it is
// the deterministic ground truth that advice results may override for display
// but never mutate.
package schedule

import (
	"fmt"
	"time"
)

// Overdue is the terminal countdown state for a watering date in the past.
const Overdue = "Overdue"

// NextWateringDate returns the date a plant is next due for watering.
func NextWateringDate(lastWatered time.Time, frequencyDays int) time.Time {
	return lastWatered.AddDate(0, 0, frequencyDays)
}

// IsOverdue reports whether now is strictly past the next watering date.
// A plant due exactly now is not yet overdue.
func IsOverdue(now, next time.Time) bool {
	return now.After(next)
}

// Countdown renders the remaining time until the next watering date as a
// short human-readable string, or Overdue once the date has passed.
func Countdown(now, next time.Time) string {
	remaining := next.Sub(now)
	switch {
	case remaining < 0:
		return Overdue
	case remaining >= 48*time.Hour:
		return fmt.Sprintf("%d days", int(remaining.Hours()/24))
	case remaining >= 24*time.Hour:
		return "1 day"
	case remaining >= 2*time.Hour:
		return fmt.Sprintf("%d hours", int(remaining.Hours()))
	case remaining >= time.Hour:
		return "1 hour"
	case remaining >= time.Minute:
		return fmt.Sprintf("%d minutes", int(remaining.Minutes()))
	default:
		return "Due now"
	}
}
