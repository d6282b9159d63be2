package models

import "time"

// EventKind names the three push notifications the engine consumes. The wire
// names match the upstream hub; AggregateDirty travels as "DashboardUpdated".
type EventKind string

const (
	EventOrderCreated       EventKind = "OrderCreated"
	EventOrderStatusChanged EventKind = "OrderStatusChanged"
	EventAggregateDirty     EventKind = "DashboardUpdated"
)

// KnownEventKind reports whether k is one of the three consumed kinds.
func KnownEventKind(k EventKind) bool {
	switch k {
	case EventOrderCreated, EventOrderStatusChanged, EventAggregateDirty:
		return true
	}
	return false
}

// BaseEvent contains common fields for all push events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	Kind      EventKind `json:"event"`
	Timestamp time.Time `json:"timestamp"`
}

// PushEvent is a freshness hint from the server. Payload fields are carried
// for logging only; the repository is always refreshed from the API, never
// patched from an event.
type PushEvent struct {
	BaseEvent
	OrderID int64  `json:"order_id,omitempty"`
	UserID  int64  `json:"user_id,omitempty"`
	Status  Status `json:"status,omitempty"`
}
