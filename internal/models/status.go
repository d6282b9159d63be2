package models

import (
	"encoding/json"
	"strings"
)

// Status is the closed order lifecycle enumeration. Anything the upstream
// sends outside the known set decodes to StatusUnknown rather than failing,
// and StatusUnknown is never actionable.
type Status int

const (
	StatusPending Status = iota
	StatusPreparing
	StatusDelivered
	StatusCancelled
	StatusUnknown Status = -1
)

var statusNames = map[Status]string{
	StatusPending:   "PENDING",
	StatusPreparing: "PREPARING",
	StatusDelivered: "DELIVERED",
	StatusCancelled: "CANCELLED",
}

// transitions is the full lifecycle: PENDING -> PREPARING -> DELIVERED, with
// CANCELLED reachable from PENDING only.
var transitions = map[Status][]Status{
	StatusPending:   {StatusPreparing, StatusCancelled},
	StatusPreparing: {StatusDelivered},
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return "UNKNOWN"
}

// Label returns a neutral display label; unknown values never surface raw.
func (s Status) Label() string {
	switch s {
	case StatusPending:
		return "Pending"
	case StatusPreparing:
		return "Preparing"
	case StatusDelivered:
		return "Delivered"
	case StatusCancelled:
		return "Cancelled"
	default:
		return "Unknown"
	}
}

// Known reports whether s is inside the closed enumeration.
func (s Status) Known() bool {
	_, ok := statusNames[s]
	return ok
}

// Terminal reports whether no further transitions exist.
func (s Status) Terminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// Cancellable reports whether the owning user may still cancel. Once
// preparation starts, cancellation is staff business.
func (s Status) Cancellable() bool {
	return s == StatusPending
}

// CanTransition reports whether s -> next is a legal lifecycle step.
func (s Status) CanTransition(next Status) bool {
	for _, t := range transitions[s] {
		if t == next {
			return true
		}
	}
	return false
}

// ParseStatus translates the upstream representation, which is inconsistently
// numeric or string, into the closed enum. "COMPLETED" is a legacy alias for
// DELIVERED still emitted by older records.
func ParseStatus(raw string) Status {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "0", "PENDING":
		return StatusPending
	case "1", "PREPARING":
		return StatusPreparing
	case "2", "DELIVERED", "COMPLETED":
		return StatusDelivered
	case "3", "CANCELLED":
		return StatusCancelled
	default:
		return StatusUnknown
	}
}

// MarshalJSON always emits the canonical string form.
func (s Status) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON accepts either the numeric or the string form and never
// errors on unknown values; those become StatusUnknown.
func (s *Status) UnmarshalJSON(data []byte) error {
	var n int
	if err := json.Unmarshal(data, &n); err == nil {
		if parsed := Status(n); parsed.Known() {
			*s = parsed
		} else {
			*s = StatusUnknown
		}
		return nil
	}
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		*s = StatusUnknown
		return nil
	}
	*s = ParseStatus(str)
	return nil
}
