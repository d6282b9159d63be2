// Package repo holds the client-side order cache: the last server-confirmed
// snapshot of every order visible to the session. It is the single source of
// truth for views; push events only ever mark it stale, they never write.
package repo

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"ordersync/internal/apiclient"
	"ordersync/internal/cart"
	"ordersync/internal/models"
	"ordersync/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// OrderAPI is the slice of the upstream client the repository needs.
type OrderAPI interface {
	ListOrders(ctx context.Context) ([]models.Order, error)
	CreateOrder(ctx context.Context, req *apiclient.CreateOrderRequest, idempotencyKey string) (*models.Order, error)
	CancelOrder(ctx context.Context, id int64) (*models.Order, error)
	UpdateOrderStatus(ctx context.Context, id int64, status models.Status) (*models.Order, error)
}

// Snapshot is an immutable point-in-time copy of the visible orders, tagged
// with the generation that produced it.
type Snapshot struct {
	Generation uint64
	Orders     map[int64]models.Order
}

// Sorted returns the orders most-recent-first, ties broken by id descending.
func (s Snapshot) Sorted() []models.Order {
	out := make([]models.Order, 0, len(s.Orders))
	for _, o := range s.Orders {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

// Listener is invoked synchronously after every applied snapshot change.
type Listener func(Snapshot)

type listenerEntry struct {
	id int64
	fn Listener
}

// Repository serializes all writes to the snapshot. Refreshes are tagged with
// a monotonically increasing generation; a response older than the last
// applied write is discarded so a slow fetch cannot clobber fresher data.
type Repository struct {
	api    OrderAPI
	logger *zap.Logger

	mu         sync.Mutex
	snapshot   Snapshot
	nextGen    uint64
	appliedGen uint64

	listenerMu   sync.Mutex
	listeners    []listenerEntry
	nextListener int64

	// notifyMu serializes listener dispatch so views observe snapshot
	// changes in apply order.
	notifyMu sync.Mutex
}

func New(api OrderAPI, logger *zap.Logger) *Repository {
	return &Repository{
		api:      api,
		logger:   logger,
		snapshot: Snapshot{Orders: map[int64]models.Order{}},
	}
}

// Snapshot returns a copy of the current snapshot.
func (r *Repository) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.copySnapshotLocked()
}

// Get looks up a single order by id in the current snapshot.
func (r *Repository) Get(id int64) (models.Order, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.snapshot.Orders[id]
	return o, ok
}

// Subscribe registers a snapshot listener and returns its unsubscribe func.
// Listeners run synchronously, in registration order.
func (r *Repository) Subscribe(fn Listener) func() {
	r.listenerMu.Lock()
	defer r.listenerMu.Unlock()
	id := r.nextListener
	r.nextListener++
	r.listeners = append(r.listeners, listenerEntry{id: id, fn: fn})
	return func() {
		r.listenerMu.Lock()
		defer r.listenerMu.Unlock()
		for i, e := range r.listeners {
			if e.id == id {
				r.listeners = append(r.listeners[:i], r.listeners[i+1:]...)
				return
			}
		}
	}
}

// Refresh fetches the entire visible snapshot and replaces the cache.
// Concurrent refreshes coalesce: each takes a generation up front and only
// the newest applied generation survives. Safe to call from any goroutine.
func (r *Repository) Refresh(ctx context.Context) error {
	ctx, span := util.StartSpan(ctx, "Repository.Refresh")
	defer span.End()

	r.mu.Lock()
	r.nextGen++
	gen := r.nextGen
	r.mu.Unlock()

	start := time.Now()
	orders, err := r.api.ListOrders(ctx)
	if err != nil {
		util.RefreshesFailedTotal.Inc()
		return fmt.Errorf("refresh failed: %w", err)
	}
	util.RefreshLatency.Observe(time.Since(start).Seconds())

	byID := make(map[int64]models.Order, len(orders))
	for _, o := range orders {
		byID[o.ID] = o
	}

	r.mu.Lock()
	if gen <= r.appliedGen {
		r.mu.Unlock()
		util.RefreshesDiscardedTotal.Inc()
		r.logger.Debug("Discarding superseded refresh", zap.Uint64("generation", gen))
		return nil
	}
	r.appliedGen = gen
	r.snapshot = Snapshot{Generation: gen, Orders: byID}
	snap := r.copySnapshotLocked()
	r.mu.Unlock()

	util.RefreshesTotal.Inc()
	r.logger.Debug("Snapshot refreshed",
		zap.Uint64("generation", gen),
		zap.Int("orders", len(byID)))
	r.notify(snap)
	return nil
}

// MarkStale is the push channel's entry point: the repository may be out of
// date, re-fetch authoritative state. Event payloads are never applied
// directly because push delivery is unordered and lossy.
func (r *Repository) MarkStale(ctx context.Context) {
	if err := r.Refresh(ctx); err != nil {
		r.logger.Warn("Stale-hint refresh failed, keeping last good snapshot", zap.Error(err))
	}
}

// ApplyConfirmed merges one server-confirmed order into the snapshot without
// a full re-fetch. The merge takes its own generation so an older in-flight
// refresh cannot overwrite it.
func (r *Repository) ApplyConfirmed(order models.Order) {
	r.mu.Lock()
	r.nextGen++
	r.appliedGen = r.nextGen
	orders := make(map[int64]models.Order, len(r.snapshot.Orders)+1)
	for id, o := range r.snapshot.Orders {
		orders[id] = o
	}
	orders[order.ID] = order
	r.snapshot = Snapshot{Generation: r.appliedGen, Orders: orders}
	snap := r.copySnapshotLocked()
	r.mu.Unlock()

	r.notify(snap)
}

// Submit converts the cart into an order request and posts it. On success the
// cart is cleared and the returned order merged into the snapshot; on any
// failure the cart is left intact for retry.
func (r *Repository) Submit(ctx context.Context, c *cart.Cart) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "Repository.Submit")
	defer span.End()

	if c.Empty() {
		return nil, fmt.Errorf("%w: cart is empty", models.ErrValidation)
	}

	lines := c.Lines()
	req := &apiclient.CreateOrderRequest{Items: make([]apiclient.CreateOrderItem, 0, len(lines))}
	for _, l := range lines {
		req.Items = append(req.Items, apiclient.CreateOrderItem{
			ProductID: l.ProductID,
			Quantity:  l.Quantity,
			Comment:   l.Comment,
		})
	}

	order, err := r.api.CreateOrder(ctx, req, uuid.New().String())
	if err != nil {
		return nil, fmt.Errorf("submit failed: %w", err)
	}

	c.Clear()
	r.ApplyConfirmed(*order)
	util.OrdersSubmittedTotal.Inc()
	r.logger.Info("Order submitted",
		zap.Int64("order_id", order.ID),
		zap.Int64("total", order.Total))
	return order, nil
}

// Cancel asks the server to cancel a PENDING order owned by the session. The
// transition is validated against the cached state first; a server-side
// stale-state rejection forces a full refresh instead of a retry.
func (r *Repository) Cancel(ctx context.Context, id int64) error {
	ctx, span := util.StartSpan(ctx, "Repository.Cancel")
	defer span.End()

	if cached, ok := r.Get(id); ok {
		if !cached.Status.Known() {
			return fmt.Errorf("%w: order %d", models.ErrUnknownStatus, id)
		}
		if !cached.Status.Cancellable() {
			return fmt.Errorf("%w: order %d is %s and can no longer be cancelled",
				models.ErrValidation, id, cached.Status)
		}
	}

	order, err := r.api.CancelOrder(ctx, id)
	if err != nil {
		return r.recoverMutation(ctx, "cancel", id, err)
	}

	if order != nil && order.ID != 0 {
		r.ApplyConfirmed(*order)
	} else {
		// Some upstreams return no body on cancel; re-fetch instead.
		r.MarkStale(ctx)
	}
	util.OrdersCancelledTotal.Inc()
	r.logger.Info("Order cancelled", zap.Int64("order_id", id))
	return nil
}

// UpdateStatus advances an order's lifecycle (staff operation). Validated
// locally against the cached state when available; the server remains
// authoritative.
func (r *Repository) UpdateStatus(ctx context.Context, id int64, next models.Status) error {
	ctx, span := util.StartSpan(ctx, "Repository.UpdateStatus")
	defer span.End()

	if !next.Known() {
		util.StatusUpdatesTotal.WithLabelValues("rejected").Inc()
		return fmt.Errorf("%w: target status", models.ErrUnknownStatus)
	}
	if cached, ok := r.Get(id); ok {
		if !cached.Status.Known() {
			util.StatusUpdatesTotal.WithLabelValues("rejected").Inc()
			return fmt.Errorf("%w: order %d", models.ErrUnknownStatus, id)
		}
		if !cached.Status.CanTransition(next) {
			util.StatusUpdatesTotal.WithLabelValues("rejected").Inc()
			return fmt.Errorf("%w: %s -> %s is not a valid transition",
				models.ErrValidation, cached.Status, next)
		}
	}

	order, err := r.api.UpdateOrderStatus(ctx, id, next)
	if err != nil {
		util.StatusUpdatesTotal.WithLabelValues("failed").Inc()
		return r.recoverMutation(ctx, "status update", id, err)
	}

	if order != nil && order.ID != 0 {
		r.ApplyConfirmed(*order)
	} else {
		r.MarkStale(ctx)
	}
	util.StatusUpdatesTotal.WithLabelValues("applied").Inc()
	r.logger.Info("Order status updated",
		zap.Int64("order_id", id),
		zap.String("status", next.String()))
	return nil
}

// recoverMutation handles a failed server mutation. Stale-state conflicts
// trigger a full refresh so the caller sees the concurrent change.
func (r *Repository) recoverMutation(ctx context.Context, op string, id int64, err error) error {
	if isStale(err) {
		r.logger.Warn("Server rejected mutation as stale, forcing refresh",
			zap.String("op", op), zap.Int64("order_id", id))
		r.MarkStale(ctx)
	}
	return fmt.Errorf("%s failed for order %d: %w", op, id, err)
}

func isStale(err error) bool {
	return errors.Is(err, models.ErrStaleState)
}

func (r *Repository) copySnapshotLocked() Snapshot {
	orders := make(map[int64]models.Order, len(r.snapshot.Orders))
	for id, o := range r.snapshot.Orders {
		orders[id] = o
	}
	return Snapshot{Generation: r.snapshot.Generation, Orders: orders}
}

func (r *Repository) notify(snap Snapshot) {
	r.listenerMu.Lock()
	entries := make([]listenerEntry, len(r.listeners))
	copy(entries, r.listeners)
	r.listenerMu.Unlock()

	r.notifyMu.Lock()
	defer r.notifyMu.Unlock()
	for _, e := range entries {
		e.fn(snap)
	}
}
