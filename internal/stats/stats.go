// Package stats derives dashboard aggregates from a repository snapshot.
// Compute is a pure function and is re-run from scratch on every snapshot or
// window change: push events can arrive out of order or get lost during a
// disconnect, so incremental patching would accumulate drift.
package stats

import (
	"fmt"
	"strings"
	"time"

	"ordersync/internal/models"
	"ordersync/internal/repo"
)

// Window selects the revenue period.
type Window string

const (
	WindowDay   Window = "day"
	WindowWeek  Window = "week"
	WindowMonth Window = "month"
)

// ParseWindow validates a window name from the API surface.
func ParseWindow(raw string) (Window, error) {
	switch Window(strings.ToLower(strings.TrimSpace(raw))) {
	case WindowDay:
		return WindowDay, nil
	case WindowWeek:
		return WindowWeek, nil
	case WindowMonth:
		return WindowMonth, nil
	default:
		return "", fmt.Errorf("%w: window %q", models.ErrValidation, raw)
	}
}

// Stats are the dashboard aggregates. Revenue counts DELIVERED orders only.
type Stats struct {
	TotalOrders   int    `json:"totalOrders"`
	PendingOrders int    `json:"pendingOrders"`
	Revenue       int64  `json:"revenue"`
	Window        Window `json:"window"`
}

// Compute derives stats from the snapshot for the window ending at now.
// Windows: day is the same calendar date as now, week runs from the most
// recent Sunday 00:00:00, month is the same calendar month and year.
func Compute(snap repo.Snapshot, window Window, now time.Time) Stats {
	s := Stats{Window: window}
	for _, o := range snap.Orders {
		s.TotalOrders++
		if o.Status == models.StatusPending {
			s.PendingOrders++
		}
		if o.Status == models.StatusDelivered && inWindow(o.CreatedAt, window, now) {
			s.Revenue += o.Total
		}
	}
	return s
}

func inWindow(t time.Time, window Window, now time.Time) bool {
	t = t.In(now.Location())
	switch window {
	case WindowDay:
		return t.Year() == now.Year() && t.YearDay() == now.YearDay()
	case WindowWeek:
		return !t.Before(startOfWeek(now)) && !t.After(now)
	case WindowMonth:
		return t.Year() == now.Year() && t.Month() == now.Month()
	default:
		return false
	}
}

// startOfWeek returns the most recent Sunday at 00:00:00 local time.
func startOfWeek(now time.Time) time.Time {
	sunday := now.AddDate(0, 0, -int(now.Weekday()))
	return time.Date(sunday.Year(), sunday.Month(), sunday.Day(), 0, 0, 0, 0, now.Location())
}
