// Package model defines the core domain types for the book-fair backend.
package model

import (
	"fmt"
	"time"
)

// Kind identifies which registration workflow a Submission belongs to.
type Kind string

const (
	KindAttendee Kind = "attendee_registration"
	KindStand    Kind = "exhibitor_stand"
	KindDonation Kind = "donation"
)

// ParseKind validates a kind string from a URL segment or request body.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindAttendee, KindStand, KindDonation:
		return Kind(s), nil
	}
	return "", fmt.Errorf("unknown submission kind %q", s)
}

// Status is the persisted lifecycle state of a Submission.
type Status string

const (
	StatusPending        Status = "pending"
	StatusPaymentFailed  Status = "payment_failed"
	StatusPaymentPending Status = "payment_pending"
	StatusPaid           Status = "paid"
	StatusCompleted      Status = "completed"
)

// statusRank orders statuses along the workflow. Transitions may never
// move to a lower rank; equal-rank overwrites are allowed so a failed
// attempt can move back into payment_pending on retry.
var statusRank = map[Status]int{
	StatusPending:        0,
	StatusPaymentFailed:  1,
	StatusPaymentPending: 1,
	StatusPaid:           2,
	StatusCompleted:      3,
}

// CanTransition reports whether moving from one status to the next
// respects the monotonic ordering of the workflow. Same-status writes
// are no-ops and always allowed.
func CanTransition(from, next Status) bool {
	fr, ok := statusRank[from]
	if !ok {
		return false
	}
	nr, ok := statusRank[next]
	if !ok {
		return false
	}
	return nr >= fr
}

// Terminal reports whether a Submission is finalized enough to carry
// a badge (paid or completed).
func (s Status) Terminal() bool {
	return s == StatusPaid || s == StatusCompleted
}

// Ticket types for attendee registration. The international ticket is
// the only paid tier; it triggers the extra payment step for visitors
// registering from outside the home country.
const (
	TicketFree          = "free"
	TicketInternational = "international"
)

// Payment methods for the exhibitor-stand flow.
const (
	PaymentMethodCard     = "card"
	PaymentMethodPayLater = "pay_later"
)

// Payload carries the kind-specific form fields of a Submission. It
// doubles as the in-progress form state in the workflow controller, so
// every field is optional at the JSON level and validated per step.
type Payload struct {
	// Shared contact fields
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
	Country   string `json:"country,omitempty"`

	// Attendee registration
	TicketType    string `json:"ticket_type,omitempty"`
	TermsAccepted bool   `json:"terms_accepted,omitempty"`

	// Exhibitor stand
	CompanyName   string `json:"company_name,omitempty"`
	ContactName   string `json:"contact_name,omitempty"`
	StandType     string `json:"stand_type,omitempty"`
	PaymentMethod string `json:"payment_method,omitempty"`

	// Donation cart: catalog item ID -> quantity (>= 1).
	Cart map[string]int `json:"cart,omitempty"`
}

// Submission is one persisted registration, stand booking, or donation.
type Submission struct {
	Reference      string     `json:"reference"`
	Kind           Kind       `json:"kind"`
	Payload        Payload    `json:"payload"`
	Status         Status     `json:"status"`
	AdminConfirmed bool       `json:"admin_confirmed"`
	PayBy          *time.Time `json:"pay_by,omitempty"`
	CheckedInAt    *time.Time `json:"checked_in_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// CatalogItem is one donatable book bundle with its unit price in major
// currency units. Totals are always recomputed from the live catalog.
type CatalogItem struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	UnitPrice int64     `json:"unit_price"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// ErrorResponse is a standard JSON error envelope.
type ErrorResponse struct {
	Error string `json:"error"`
}
