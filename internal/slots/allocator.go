// Package slots computes presentation slots under a per-period capacity cap.
package slots

import (
	"context"
	"fmt"
	"time"

	"github.com/tribu-research/challenge-backend/internal/calendar"
)

// Window selects how capacity is counted around a candidate slot.
type Window string

const (
	// WindowWeek counts presentations in [candidate, candidate+7d).
	WindowWeek Window = "week"
	// WindowDay counts presentations on the candidate's calendar date.
	WindowDay Window = "day"
)

// ParseWindow validates a configured window name.
func ParseWindow(s string) (Window, error) {
	switch w := Window(s); w {
	case WindowWeek, WindowDay:
		return w, nil
	default:
		return "", fmt.Errorf("unknown capacity window %q", s)
	}
}

// Counter counts scheduled presentations in [from, to).
type Counter interface {
	CountScheduled(ctx context.Context, from, to time.Time) (int, error)
}

// Allocator finds the first Tuesday slot with spare capacity.
type Allocator struct {
	MaxPerPeriod int
	Window       Window
	Hour         int
	Minute       int
}

// New returns an Allocator. maxPerPeriod below 1 is treated as 1.
func New(maxPerPeriod int, window Window, hour, minute int) *Allocator {
	if maxPerPeriod < 1 {
		maxPerPeriod = 1
	}
	if window == "" {
		window = WindowWeek
	}
	return &Allocator{MaxPerPeriod: maxPerPeriod, Window: window, Hour: hour, Minute: minute}
}

// First returns the candidate slot for ref before any capacity check.
func (a *Allocator) First(ref time.Time) time.Time {
	return calendar.NextSlot(ref, a.Hour, a.Minute)
}

// Bounds returns the counting range for a candidate slot.
func (a *Allocator) Bounds(candidate time.Time) (time.Time, time.Time) {
	if a.Window == WindowDay {
		day := calendar.StartOfDay(candidate)
		return day, day.AddDate(0, 0, 1)
	}
	return candidate, candidate.AddDate(0, 0, 7)
}

// Next returns the first slot at or after ref whose period holds fewer than
// MaxPerPeriod presentations. The search only moves forward, one period per
// step. Callers must hold the slot lock across Next and the insert.
func (a *Allocator) Next(ctx context.Context, ref time.Time, c Counter) (time.Time, error) {
	candidate := a.First(ref)
	for {
		if err := ctx.Err(); err != nil {
			return time.Time{}, err
		}
		from, to := a.Bounds(candidate)
		n, err := c.CountScheduled(ctx, from, to)
		if err != nil {
			return time.Time{}, fmt.Errorf("count scheduled from %s: %w", from.Format(calendar.DayLayout), err)
		}
		if n < a.MaxPerPeriod {
			return candidate, nil
		}
		candidate = candidate.AddDate(0, 0, 7)
	}
}
