package push

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"ordersync/internal/models"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// RedisTransport delivers push events over redis pub/sub. Each group is one
// channel, so joining a group is simply subscribing to it.
type RedisTransport struct {
	rdb    *redis.Client
	logger *zap.Logger

	mu     sync.Mutex
	pubsub *redis.PubSub
}

// NewRedisTransport creates the transport and verifies connectivity.
func NewRedisTransport(addr, password string, db int, logger *zap.Logger) (*RedisTransport, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &RedisTransport{rdb: rdb, logger: logger}, nil
}

// Connect subscribes to the group channels and starts translating messages.
func (t *RedisTransport) Connect(ctx context.Context, groups []string) (<-chan models.PushEvent, error) {
	pubsub := t.rdb.Subscribe(ctx, groups...)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("redis subscribe failed: %w", err)
	}

	t.mu.Lock()
	if t.pubsub != nil {
		_ = t.pubsub.Close()
	}
	t.pubsub = pubsub
	t.mu.Unlock()

	out := make(chan models.PushEvent)
	go func() {
		defer close(out)
		for msg := range pubsub.Channel() {
			var ev models.PushEvent
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				t.logger.Warn("Dropping malformed push frame",
					zap.String("channel", msg.Channel),
					zap.Error(err))
				continue
			}
			select {
			case out <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// Close tears down the current subscription and the client.
func (t *RedisTransport) Close() error {
	t.mu.Lock()
	if t.pubsub != nil {
		_ = t.pubsub.Close()
		t.pubsub = nil
	}
	t.mu.Unlock()
	return t.rdb.Close()
}
