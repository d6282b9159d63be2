package push

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"ordersync/internal/models"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// kafkaEventTypes maps the order-events topic's type field onto push event
// kinds. Everything else on the topic is for other consumers.
var kafkaEventTypes = map[string]models.EventKind{
	"ORDER_CREATED":        models.EventOrderCreated,
	"ORDER_STATUS_CHANGED": models.EventOrderStatusChanged,
	"DASHBOARD_UPDATED":    models.EventAggregateDirty,
}

// kafkaEvent is the broker's envelope for order events.
type kafkaEvent struct {
	EventID   string        `json:"event_id"`
	EventType string        `json:"event_type"`
	Timestamp time.Time     `json:"timestamp"`
	OrderID   int64         `json:"order_id"`
	UserID    int64         `json:"user_id"`
	Status    models.Status `json:"status"`
}

// KafkaTransport consumes the order-events topic. Kafka has no server-side
// group scoping comparable to hub groups, so the transport filters events
// against the joined groups client-side.
type KafkaTransport struct {
	brokers []string
	topic   string
	groupID string
	logger  *zap.Logger

	mu     sync.Mutex
	reader *kafka.Reader
}

func NewKafkaTransport(brokers []string, topic, groupID string, logger *zap.Logger) *KafkaTransport {
	return &KafkaTransport{brokers: brokers, topic: topic, groupID: groupID, logger: logger}
}

// Connect opens a reader at the latest offset and starts the fetch loop.
func (t *KafkaTransport) Connect(ctx context.Context, groups []string) (<-chan models.PushEvent, error) {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        t.brokers,
		Topic:          t.topic,
		GroupID:        t.groupID,
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: time.Second,
		StartOffset:    kafka.LastOffset,
	})

	t.mu.Lock()
	if t.reader != nil {
		_ = t.reader.Close()
	}
	t.reader = reader
	t.mu.Unlock()

	admin := false
	userGroups := make(map[string]bool, len(groups))
	for _, g := range groups {
		if g == GroupAdmin {
			admin = true
		} else {
			userGroups[g] = true
		}
	}

	out := make(chan models.PushEvent)
	go func() {
		defer close(out)
		for {
			msg, err := reader.FetchMessage(ctx)
			if err != nil {
				if ctx.Err() == nil {
					t.logger.Warn("Kafka fetch failed", zap.Error(err))
				}
				return
			}

			var raw kafkaEvent
			if err := json.Unmarshal(msg.Value, &raw); err != nil {
				t.logger.Warn("Dropping malformed kafka event", zap.Error(err))
				_ = reader.CommitMessages(ctx, msg)
				continue
			}

			kind, known := kafkaEventTypes[raw.EventType]
			if known && (admin || userGroups[UserGroup(raw.UserID)]) {
				ev := models.PushEvent{
					BaseEvent: models.BaseEvent{
						EventID:   raw.EventID,
						Kind:      kind,
						Timestamp: raw.Timestamp,
					},
					OrderID: raw.OrderID,
					UserID:  raw.UserID,
					Status:  raw.Status,
				}
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
			}

			if err := reader.CommitMessages(ctx, msg); err != nil {
				t.logger.Warn("Kafka commit failed", zap.Error(err))
			}
		}
	}()
	return out, nil
}

// Close stops the current reader.
func (t *KafkaTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.reader != nil {
		err := t.reader.Close()
		t.reader = nil
		return err
	}
	return nil
}
