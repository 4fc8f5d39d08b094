package workflow

import (
	"errors"
	"fmt"
)

// ErrAdminGate blocks the exhibitor-stand transition into payment until
// an administrator has confirmed the booking.
var ErrAdminGate = errors.New("awaiting administrator confirmation")

// ErrAmountMismatch marks a provider-verified payment whose amount or
// currency disagrees with the expected value. Treated as a failed
// payment and logged distinctly; the submission status is not advanced.
var ErrAmountMismatch = errors.New("verified payment amount does not match expected amount")

// ErrInFlight rejects a second advance on the same draft while its
// external side effect is still pending, so one logical submission
// never creates two records.
var ErrInFlight = errors.New("a submission for this draft is already in flight")

// ErrNotFinalized is returned when a badge is requested for a
// submission that has not reached a paid or completed status.
var ErrNotFinalized = errors.New("submission is not finalized")

// ErrPaymentRequired blocks the final attendee submit while the paid
// ticket tier still lacks a provider-confirmed payment.
var ErrPaymentRequired = errors.New("payment has not been completed")

// ValidationError reports a missing or malformed required field for the
// current step. It is local: nothing is sent to the store.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func missing(field string) *ValidationError {
	return &ValidationError{Field: field, Reason: "required"}
}
