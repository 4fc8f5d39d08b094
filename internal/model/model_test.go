package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseKind(t *testing.T) {
	for _, s := range []string{"attendee_registration", "exhibitor_stand", "donation"} {
		kind, err := ParseKind(s)
		assert.NoError(t, err)
		assert.Equal(t, Kind(s), kind)
	}

	_, err := ParseKind("raffle")
	assert.Error(t, err)
}

func TestCanTransition_Monotonic(t *testing.T) {
	tests := []struct {
		from, next Status
		ok         bool
	}{
		{StatusPending, StatusPaymentPending, true},
		{StatusPending, StatusPaid, true},
		{StatusPending, StatusCompleted, true},
		{StatusPaymentPending, StatusPaid, true},
		{StatusPaid, StatusCompleted, true},
		{StatusPaymentFailed, StatusPaymentPending, true}, // retry after failure
		{StatusPaid, StatusPaymentPending, false},
		{StatusPaid, StatusPending, false},
		{StatusCompleted, StatusPaid, false},
		{StatusCompleted, StatusPending, false},
		{StatusPaid, StatusPaid, true}, // idempotent re-write
	}
	for _, tt := range tests {
		assert.Equal(t, tt.ok, CanTransition(tt.from, tt.next), "%s -> %s", tt.from, tt.next)
	}
}

func TestCanTransition_UnknownStatus(t *testing.T) {
	assert.False(t, CanTransition(StatusPending, Status("vanished")))
	assert.False(t, CanTransition(Status("vanished"), StatusPaid))
}

func TestStatusTerminal(t *testing.T) {
	assert.True(t, StatusPaid.Terminal())
	assert.True(t, StatusCompleted.Terminal())
	assert.False(t, StatusPending.Terminal())
	assert.False(t, StatusPaymentPending.Terminal())
	assert.False(t, StatusPaymentFailed.Terminal())
}
