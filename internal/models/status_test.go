package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransitions(t *testing.T) {
	tests := []struct {
		name    string
		from    Status
		to      Status
		allowed bool
	}{
		{"pending to preparing", StatusPending, StatusPreparing, true},
		{"pending to cancelled", StatusPending, StatusCancelled, true},
		{"pending to delivered skips preparing", StatusPending, StatusDelivered, false},
		{"preparing to delivered", StatusPreparing, StatusDelivered, true},
		{"preparing to cancelled", StatusPreparing, StatusCancelled, false},
		{"delivered is terminal", StatusDelivered, StatusPending, false},
		{"cancelled is terminal", StatusCancelled, StatusPreparing, false},
		{"unknown is non-actionable", StatusUnknown, StatusPreparing, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.allowed, tt.from.CanTransition(tt.to))
		})
	}
}

func TestFullLifecycle(t *testing.T) {
	s := StatusPending
	require.True(t, s.CanTransition(StatusPreparing))
	s = StatusPreparing
	require.True(t, s.CanTransition(StatusDelivered))
	s = StatusDelivered
	assert.True(t, s.Terminal())
}

func TestCancellable(t *testing.T) {
	assert.True(t, StatusPending.Cancellable())
	assert.False(t, StatusPreparing.Cancellable())
	assert.False(t, StatusDelivered.Cancellable())
	assert.False(t, StatusCancelled.Cancellable())
	assert.False(t, StatusUnknown.Cancellable())
}

func TestParseStatus(t *testing.T) {
	assert.Equal(t, StatusPending, ParseStatus("PENDING"))
	assert.Equal(t, StatusPending, ParseStatus("0"))
	assert.Equal(t, StatusPreparing, ParseStatus("preparing"))
	assert.Equal(t, StatusDelivered, ParseStatus("2"))
	assert.Equal(t, StatusDelivered, ParseStatus("COMPLETED"))
	assert.Equal(t, StatusCancelled, ParseStatus(" cancelled "))
	assert.Equal(t, StatusUnknown, ParseStatus("SHIPPED"))
	assert.Equal(t, StatusUnknown, ParseStatus(""))
}

func TestStatusJSONAcceptsNumericAndString(t *testing.T) {
	var s Status

	require.NoError(t, json.Unmarshal([]byte(`1`), &s))
	assert.Equal(t, StatusPreparing, s)

	require.NoError(t, json.Unmarshal([]byte(`"DELIVERED"`), &s))
	assert.Equal(t, StatusDelivered, s)

	// Out-of-range values decode to unknown, never to an error.
	require.NoError(t, json.Unmarshal([]byte(`9`), &s))
	assert.Equal(t, StatusUnknown, s)
	require.NoError(t, json.Unmarshal([]byte(`"SHIPPED"`), &s))
	assert.Equal(t, StatusUnknown, s)
	assert.False(t, s.Known())
	assert.Equal(t, "Unknown", s.Label())
}

func TestStatusJSONEmitsCanonicalString(t *testing.T) {
	data, err := json.Marshal(StatusPreparing)
	require.NoError(t, err)
	assert.Equal(t, `"PREPARING"`, string(data))
}

func TestOrderValidate(t *testing.T) {
	order := Order{
		ID:    42,
		Total: 1000,
		Lines: []OrderLine{
			{ProductID: 1, Quantity: 2, UnitPrice: 500, LineTotal: 1000},
		},
	}
	assert.NoError(t, order.Validate())

	order.Total = 900
	assert.Error(t, order.Validate())

	order.Total = 1000
	order.Lines[0].LineTotal = 999
	assert.Error(t, order.Validate())

	order.Lines[0].LineTotal = 1000
	order.Lines[0].Quantity = 0
	assert.Error(t, order.Validate())
}
