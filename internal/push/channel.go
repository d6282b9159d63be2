// Package push maintains the long-lived subscription to server-pushed order
// events. The channel owns connection lifecycle and handler dispatch; the
// wire protocol lives behind the Transport interface. On any event the
// handlers only signal staleness to the repository, keeping a single write
// path into the cache.
package push

import (
	"context"
	"fmt"
	"sync"
	"time"

	"ordersync/internal/models"
	"ordersync/internal/util"

	"go.uber.org/zap"
)

// ConnState is the channel's connection lifecycle state.
type ConnState int32

const (
	StateDisconnected ConnState = iota
	StateConnecting
	StateConnected
	StateReconnecting
)

func (s ConnState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	default:
		return "disconnected"
	}
}

// GroupAdmin is the broadcast scope every staff session joins.
const GroupAdmin = "orders.admin"

// UserGroup is the per-user broadcast scope.
func UserGroup(userID int64) string {
	return fmt.Sprintf("orders.user.%d", userID)
}

// GroupsFor derives the scopes to join from the actor's role. Membership is
// not persisted by the transport, so the channel re-joins on every connect.
func GroupsFor(actor models.Actor) []string {
	groups := []string{UserGroup(actor.ID)}
	if actor.Role == models.RoleAdmin {
		groups = append([]string{GroupAdmin}, groups...)
	}
	return groups
}

// Transport establishes one connection epoch. Connect joins the given groups
// and returns a channel that is closed when the connection is lost; Close
// tears the current connection down.
type Transport interface {
	Connect(ctx context.Context, groups []string) (<-chan models.PushEvent, error)
	Close() error
}

// Handler receives one event. Delivery is once per event per handler per
// connection epoch, in registration order.
type Handler func(models.PushEvent)

type handlerEntry struct {
	id int64
	fn Handler
}

// Options tune reconnection backoff.
type Options struct {
	BackoffBase time.Duration
	BackoffMax  time.Duration
}

func (o *Options) withDefaults() Options {
	out := Options{BackoffBase: 500 * time.Millisecond, BackoffMax: 30 * time.Second}
	if o == nil {
		return out
	}
	if o.BackoffBase > 0 {
		out.BackoffBase = o.BackoffBase
	}
	if o.BackoffMax > 0 {
		out.BackoffMax = o.BackoffMax
	}
	return out
}

// Channel is the process-wide push subscription. It is reference-counted:
// the first Acquire starts the run loop, the last Release stops it, so
// multiple views share one connection instead of opening their own.
type Channel struct {
	transport Transport
	groups    []string
	opts      Options
	logger    *zap.Logger

	mu       sync.Mutex
	state    ConnState
	refs     int
	cancel   context.CancelFunc
	done     chan struct{}
	handlers map[models.EventKind][]handlerEntry
	nextID   int64
}

func NewChannel(transport Transport, actor models.Actor, opts *Options, logger *zap.Logger) *Channel {
	return &Channel{
		transport: transport,
		groups:    GroupsFor(actor),
		opts:      opts.withDefaults(),
		logger:    logger,
		handlers:  make(map[models.EventKind][]handlerEntry),
	}
}

// State returns the current connection state.
func (c *Channel) State() ConnState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Subscribe registers a handler for one event kind and returns its
// unsubscribe func. Register handlers before the first Acquire so no event
// can fire into an empty registry.
func (c *Channel) Subscribe(kind models.EventKind, fn Handler) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextID
	c.nextID++
	c.handlers[kind] = append(c.handlers[kind], handlerEntry{id: id, fn: fn})
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		entries := c.handlers[kind]
		for i, e := range entries {
			if e.id == id {
				c.handlers[kind] = append(entries[:i], entries[i+1:]...)
				return
			}
		}
	}
}

// Acquire registers interest in the connection. The first acquirer starts
// the run loop; later acquirers share it.
func (c *Channel) Acquire(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.refs++
	if c.refs > 1 {
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.done = make(chan struct{})
	go c.run(runCtx, c.done)
}

// Release drops one interest. The connection is torn down only when the last
// interested subscriber detaches. Releasing below zero is a no-op.
func (c *Channel) Release() {
	c.mu.Lock()
	if c.refs == 0 {
		c.mu.Unlock()
		return
	}
	c.refs--
	if c.refs > 0 {
		c.mu.Unlock()
		return
	}
	cancel := c.cancel
	done := c.done
	c.cancel = nil
	c.done = nil
	c.mu.Unlock()

	cancel()
	_ = c.transport.Close()
	<-done
}

// run drives the Disconnected -> Connecting -> Connected lifecycle with
// backoff on failure and automatic reconnect on connection loss. Groups are
// re-joined on every successful connect via Transport.Connect.
func (c *Channel) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	defer c.setState(StateDisconnected)

	backoff := c.opts.BackoffBase
	connectedBefore := false

	for {
		if connectedBefore {
			c.setState(StateReconnecting)
		} else {
			c.setState(StateConnecting)
		}

		events, err := c.transport.Connect(ctx, c.groups)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.logger.Warn("Push connect failed, backing off",
				zap.Duration("backoff", backoff),
				zap.Error(err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			backoff *= 2
			if backoff > c.opts.BackoffMax {
				backoff = c.opts.BackoffMax
			}
			continue
		}

		c.setState(StateConnected)
		backoff = c.opts.BackoffBase
		if connectedBefore {
			util.PushReconnectsTotal.Inc()
		}
		connectedBefore = true
		c.logger.Info("Push channel connected", zap.Strings("groups", c.groups))

		if !c.consume(ctx, events) {
			return
		}
		c.logger.Warn("Push connection lost, reconnecting")
	}
}

// consume dispatches events until the connection drops (returns true) or the
// context is cancelled (returns false).
func (c *Channel) consume(ctx context.Context, events <-chan models.PushEvent) bool {
	for {
		select {
		case <-ctx.Done():
			return false
		case ev, ok := <-events:
			if !ok {
				return true
			}
			c.dispatch(ev)
		}
	}
}

func (c *Channel) dispatch(ev models.PushEvent) {
	if !models.KnownEventKind(ev.Kind) {
		c.logger.Debug("Ignoring unknown push event", zap.String("kind", string(ev.Kind)))
		return
	}
	util.PushEventsTotal.WithLabelValues(string(ev.Kind)).Inc()

	c.mu.Lock()
	entries := make([]handlerEntry, len(c.handlers[ev.Kind]))
	copy(entries, c.handlers[ev.Kind])
	c.mu.Unlock()

	if len(entries) == 0 {
		util.PushDroppedEventsTotal.Inc()
		return
	}
	for _, e := range entries {
		e.fn(ev)
	}
}

func (c *Channel) setState(s ConnState) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}
