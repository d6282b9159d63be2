// Package view keeps UI-facing state consistent across snapshot refreshes.
// The selected-order pointer is identity-by-id, never a held copy, so detail
// views always show the fresh record after a background refresh.
package view

import (
	"sync"

	"ordersync/internal/models"
	"ordersync/internal/repo"
)

// Reconcile re-resolves a selected order id against a new snapshot. Found
// ids yield the fresh copy. An id that fell out of the snapshot falls back
// to the most recent order instead of dangling; an empty snapshot clears the
// selection.
func Reconcile(selectedID int64, snap repo.Snapshot) (models.Order, bool) {
	if o, ok := snap.Orders[selectedID]; ok {
		return o, true
	}
	sorted := snap.Sorted()
	if len(sorted) == 0 {
		return models.Order{}, false
	}
	return sorted[0], true
}

// RecentOrders returns the n most recent orders, newest first.
func RecentOrders(snap repo.Snapshot, n int) []models.Order {
	sorted := snap.Sorted()
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

// Selection owns the selected-order pointer and reconciles it synchronously
// on every repository change, before dependent views render.
type Selection struct {
	mu       sync.Mutex
	selected models.Order
	set      bool
}

// Track subscribes the selection to a repository and returns the unsubscribe
// func alongside the selection.
func Track(r *repo.Repository) (*Selection, func()) {
	s := &Selection{}
	unsubscribe := r.Subscribe(func(snap repo.Snapshot) {
		s.apply(snap)
	})
	return s, unsubscribe
}

func (s *Selection) apply(snap repo.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var id int64
	if s.set {
		id = s.selected.ID
	}
	s.selected, s.set = Reconcile(id, snap)
}

// Select points the selection at an order from the given snapshot.
func (s *Selection) Select(id int64, snap repo.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if o, ok := snap.Orders[id]; ok {
		s.selected, s.set = o, true
	}
}

// Current returns the selected order, if any.
func (s *Selection) Current() (models.Order, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selected, s.set
}
