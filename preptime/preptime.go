// Package preptime computes preparation windows for orders and line items.
// All functions are pure; the caller supplies the current time.
package preptime

import (
	"math"
	"time"

	"qrdine-api/models"
)

// Normalize coerces a dish prep time to a usable value. Anything below one
// minute (including the zero value from missing catalog data) falls back to
// the 15-minute default.
func Normalize(minutes int) int {
	if minutes < 1 {
		return models.DefaultPrepMinutes
	}
	return minutes
}

// Window is the order-level preparation window derived from all line items.
type Window struct {
	StartedAt  time.Time
	EndsAt     time.Time
	MaxMinutes int
}

// Stamp sets per-item preparation fields in place and returns the
// order-level window. All items share the same start time; the order window
// ends when the slowest item does (max, not sum).
func Stamp(items []models.OrderItem, now time.Time) Window {
	w := Window{StartedAt: now, EndsAt: now}
	for i := range items {
		minutes := Normalize(items[i].PrepTimeMinutes)
		items[i].PrepTimeMinutes = minutes
		items[i].Status = models.StatusPreparing
		items[i].PrepStartedAt = now
		items[i].PrepEndsAt = now.Add(time.Duration(minutes) * time.Minute)
		if minutes > w.MaxMinutes {
			w.MaxMinutes = minutes
			w.EndsAt = items[i].PrepEndsAt
		}
	}
	return w
}

// Percent reports preparation progress for display, clamped to [0, 100].
func Percent(start, end, now time.Time) int {
	total := end.Sub(start)
	if total <= 0 {
		return 100
	}
	p := int(math.Round(float64(now.Sub(start)) / float64(total) * 100))
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}

// RemainingMinutes reports whole minutes left in the window, never negative.
func RemainingMinutes(end, now time.Time) int {
	left := end.Sub(now)
	if left <= 0 {
		return 0
	}
	return int(math.Ceil(left.Minutes()))
}
