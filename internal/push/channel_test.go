package push

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"ordersync/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeTransport scripts connection attempts. Each successful connect hands
// the test a feed channel to push events through or close to simulate a
// dropped connection.
type fakeTransport struct {
	mu         sync.Mutex
	failFirst  int
	attempts   int
	groupsSeen [][]string
	feeds      []chan models.PushEvent
	closed     int
}

func (f *fakeTransport) Connect(ctx context.Context, groups []string) (<-chan models.PushEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attempts++
	if f.attempts <= f.failFirst {
		return nil, errors.New("connection refused")
	}
	f.groupsSeen = append(f.groupsSeen, append([]string(nil), groups...))
	feed := make(chan models.PushEvent)
	f.feeds = append(f.feeds, feed)
	return feed, nil
}

func (f *fakeTransport) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed++
	return nil
}

func (f *fakeTransport) connects() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.groupsSeen)
}

func (f *fakeTransport) feed(i int) chan models.PushEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.feeds[i]
}

func (f *fakeTransport) groups(i int) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.groupsSeen[i]
}

func event(kind models.EventKind, orderID int64) models.PushEvent {
	return models.PushEvent{
		BaseEvent: models.BaseEvent{EventID: "e1", Kind: kind, Timestamp: time.Now()},
		OrderID:   orderID,
	}
}

func testOptions() *Options {
	return &Options{BackoffBase: time.Millisecond, BackoffMax: 5 * time.Millisecond}
}

func admin() models.Actor {
	return models.Actor{ID: 1, Name: "staff", Role: models.RoleAdmin}
}

func waitConnected(t *testing.T, c *Channel) {
	t.Helper()
	require.Eventually(t, func() bool { return c.State() == StateConnected }, time.Second, time.Millisecond)
}

func TestGroupsFor(t *testing.T) {
	assert.Equal(t, []string{"orders.admin", "orders.user.1"}, GroupsFor(admin()))
	assert.Equal(t, []string{"orders.user.42"},
		GroupsFor(models.Actor{ID: 42, Role: models.RoleUser}))
}

func TestHandlersReceiveEventsInRegistrationOrder(t *testing.T) {
	transport := &fakeTransport{}
	c := NewChannel(transport, admin(), testOptions(), zap.NewNop())

	var mu sync.Mutex
	var seen []string
	c.Subscribe(models.EventOrderCreated, func(models.PushEvent) {
		mu.Lock()
		seen = append(seen, "first")
		mu.Unlock()
	})
	c.Subscribe(models.EventOrderCreated, func(models.PushEvent) {
		mu.Lock()
		seen = append(seen, "second")
		mu.Unlock()
	})
	c.Subscribe(models.EventOrderStatusChanged, func(models.PushEvent) {
		mu.Lock()
		seen = append(seen, "other-kind")
		mu.Unlock()
	})

	c.Acquire(context.Background())
	defer c.Release()
	waitConnected(t, c)

	transport.feed(0) <- event(models.EventOrderCreated, 1)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) == 2
	}, time.Second, time.Millisecond)

	mu.Lock()
	assert.Equal(t, []string{"first", "second"}, seen)
	mu.Unlock()
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	transport := &fakeTransport{}
	c := NewChannel(transport, admin(), testOptions(), zap.NewNop())

	var mu sync.Mutex
	count := 0
	unsubscribe := c.Subscribe(models.EventAggregateDirty, func(models.PushEvent) {
		mu.Lock()
		count++
		mu.Unlock()
	})
	got := make(chan struct{}, 4)
	c.Subscribe(models.EventAggregateDirty, func(models.PushEvent) { got <- struct{}{} })

	c.Acquire(context.Background())
	defer c.Release()
	waitConnected(t, c)

	transport.feed(0) <- event(models.EventAggregateDirty, 0)
	<-got
	unsubscribe()
	transport.feed(0) <- event(models.EventAggregateDirty, 0)
	<-got

	mu.Lock()
	assert.Equal(t, 1, count)
	mu.Unlock()
}

func TestReconnectRejoinsGroups(t *testing.T) {
	transport := &fakeTransport{}
	c := NewChannel(transport, admin(), testOptions(), zap.NewNop())

	c.Acquire(context.Background())
	defer c.Release()
	waitConnected(t, c)

	// Drop the connection: the channel must reconnect and join again,
	// because the transport does not remember group membership.
	close(transport.feed(0))
	require.Eventually(t, func() bool { return transport.connects() == 2 }, time.Second, time.Millisecond)
	waitConnected(t, c)

	assert.Equal(t, transport.groups(0), transport.groups(1))
}

func TestConnectFailuresRetryWithBackoff(t *testing.T) {
	transport := &fakeTransport{failFirst: 3}
	c := NewChannel(transport, admin(), testOptions(), zap.NewNop())

	c.Acquire(context.Background())
	defer c.Release()
	waitConnected(t, c)

	transport.mu.Lock()
	attempts := transport.attempts
	transport.mu.Unlock()
	assert.GreaterOrEqual(t, attempts, 4)
}

func TestRefCountedLifecycle(t *testing.T) {
	transport := &fakeTransport{}
	c := NewChannel(transport, admin(), testOptions(), zap.NewNop())

	// Two interested views share one connection.
	c.Acquire(context.Background())
	c.Acquire(context.Background())
	waitConnected(t, c)
	assert.Equal(t, 1, transport.connects())

	c.Release()
	assert.Equal(t, StateConnected, c.State())

	c.Release()
	assert.Equal(t, StateDisconnected, c.State())

	// Releasing past zero stays a no-op.
	c.Release()
	assert.Equal(t, StateDisconnected, c.State())
}

func TestUnknownEventKindIgnored(t *testing.T) {
	transport := &fakeTransport{}
	c := NewChannel(transport, admin(), testOptions(), zap.NewNop())

	got := make(chan models.PushEvent, 1)
	c.Subscribe(models.EventOrderCreated, func(ev models.PushEvent) { got <- ev })

	c.Acquire(context.Background())
	defer c.Release()
	waitConnected(t, c)

	transport.feed(0) <- event(models.EventKind("CoffeeBreak"), 0)
	transport.feed(0) <- event(models.EventOrderCreated, 7)

	ev := <-got
	assert.Equal(t, int64(7), ev.OrderID)
}
