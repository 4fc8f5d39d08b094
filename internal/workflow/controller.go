// Package workflow implements the registration step state machines for
// the three submission kinds: attendee registration, exhibitor stand
// booking, and book donation. The controller decides which step the
// user is on, whether they may advance, and which persisted transition
// an advance triggers. Every external side effect either fully applies
// or fully no-ops; a failure leaves step and status untouched.
package workflow

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/bookfairhq/bookfair-backend/internal/draft"
	"github.com/bookfairhq/bookfair-backend/internal/model"
	"github.com/bookfairhq/bookfair-backend/internal/notify"
	"github.com/bookfairhq/bookfair-backend/internal/payment"
	"github.com/bookfairhq/bookfair-backend/internal/repository"
	"go.uber.org/zap"
)

// SubmissionStore is the durable record store the controller drives.
type SubmissionStore interface {
	Create(ctx context.Context, kind model.Kind, payload model.Payload) (*model.Submission, error)
	GetByReference(ctx context.Context, ref string) (*model.Submission, error)
	UpdateStatus(ctx context.Context, ref string, status model.Status) error
	SetAdminConfirmed(ctx context.Context, ref string) error
	SetPayBy(ctx context.Context, ref string, payBy time.Time) error
	UpdateFields(ctx context.Context, ref string, partial model.Payload) (*model.Submission, error)
	MarkCheckedIn(ctx context.Context, ref string) (bool, error)
	ListByKind(ctx context.Context, kind model.Kind) ([]model.Submission, error)
}

// CatalogStore prices donation carts against the live catalog.
type CatalogStore interface {
	ListActive(ctx context.Context) ([]model.CatalogItem, error)
	PricesFor(ctx context.Context, ids []string) (map[string]int64, error)
}

// PaymentGateway creates hosted checkout sessions and verifies results.
type PaymentGateway interface {
	CreateSession(ctx context.Context, req payment.SessionRequest) (*payment.Session, error)
	Verify(ctx context.Context, ref string) (*payment.VerifyResult, error)
}

// Notifier delivers transition events. Best-effort from the
// controller's point of view.
type Notifier interface {
	Notify(ctx context.Context, event notify.Event) error
}

// DraftCache holds pre-submission form drafts.
type DraftCache interface {
	Save(ctx context.Context, token string, d draft.Draft) (string, error)
	Load(ctx context.Context, token string) (*draft.Draft, error)
	Clear(ctx context.Context, token string) error
}

// BadgeIssuer encodes and decodes check-in tokens.
type BadgeIssuer interface {
	Encode(sub *model.Submission) string
	Decode(scanned string) (string, error)
}

// Pricing carries the fair's price list and branching rules.
type Pricing struct {
	HomeCountry         string
	Currency            string
	CurrencyMinorFactor int64
	InternationalTicket int64            // major units
	StandPrices         map[string]int64 // stand type -> major units
	PayLaterGrace       time.Duration
}

// Controller is one workflow engine serving all three kinds.
type Controller struct {
	store    SubmissionStore
	catalog  CatalogStore
	gateway  PaymentGateway
	notifier Notifier
	drafts   DraftCache
	badges   BadgeIssuer
	pricing  Pricing
	logger   *zap.Logger

	mu       sync.Mutex
	inflight map[string]struct{}
}

// NewController wires the controller to its collaborators.
func NewController(
	store SubmissionStore,
	catalog CatalogStore,
	gateway PaymentGateway,
	notifier Notifier,
	drafts DraftCache,
	badges BadgeIssuer,
	pricing Pricing,
	logger *zap.Logger,
) *Controller {
	return &Controller{
		store:    store,
		catalog:  catalog,
		gateway:  gateway,
		notifier: notifier,
		drafts:   drafts,
		badges:   badges,
		pricing:  pricing,
		logger:   logger,
		inflight: make(map[string]struct{}),
	}
}

// ErrStatusOrder rejects a requested status change that would move a
// submission backwards along its workflow.
var ErrStatusOrder = fmt.Errorf("status transition not allowed")

// creationSteps are the steps whose required fields must already be
// valid when a submission record is created directly.
func creationSteps(kind model.Kind) []Step {
	switch kind {
	case model.KindAttendee:
		return []Step{StepTicketSelection, StepPersonalDetails}
	case model.KindStand:
		return []Step{StepStandDetails}
	case model.KindDonation:
		return []Step{StepCart, StepDonorInfo}
	}
	return nil
}

// Create validates the kind-specific payload and persists a new pending
// submission.
func (c *Controller) Create(ctx context.Context, kind model.Kind, form model.Payload) (*model.Submission, error) {
	steps := creationSteps(kind)
	if steps == nil {
		return nil, &ValidationError{Field: "kind", Reason: "unknown submission kind"}
	}
	for _, s := range steps {
		if verr := Validate(kind, s, form); verr != nil {
			return nil, verr
		}
	}
	sub, err := c.store.Create(ctx, kind, form)
	if err != nil {
		return nil, fmt.Errorf("persist submission: %w", err)
	}
	c.emit(ctx, notify.EventSubmissionCreated, sub)
	return sub, nil
}

// Get fetches one submission, scoped to its kind.
func (c *Controller) Get(ctx context.Context, kind model.Kind, ref string) (*model.Submission, error) {
	sub, err := c.store.GetByReference(ctx, ref)
	if err != nil {
		return nil, err
	}
	if sub.Kind != kind {
		return nil, repository.ErrNotFound
	}
	return sub, nil
}

// Update applies a status change and/or a partial payload merge. Status
// changes that would regress the workflow are rejected.
func (c *Controller) Update(ctx context.Context, kind model.Kind, ref string, status *model.Status, fields *model.Payload) (*model.Submission, error) {
	sub, err := c.Get(ctx, kind, ref)
	if err != nil {
		return nil, err
	}
	if status != nil {
		if !model.CanTransition(sub.Status, *status) {
			return nil, fmt.Errorf("%s -> %s: %w", sub.Status, *status, ErrStatusOrder)
		}
		if err := c.store.UpdateStatus(ctx, ref, *status); err != nil {
			return nil, err
		}
	}
	if fields != nil {
		if _, err := c.store.UpdateFields(ctx, ref, *fields); err != nil {
			return nil, err
		}
	}
	return c.store.GetByReference(ctx, ref)
}

// CreatePaymentSession creates a hosted checkout for an existing
// submission, for clients driving the payment step directly.
func (c *Controller) CreatePaymentSession(ctx context.Context, req payment.SessionRequest) (*payment.Session, error) {
	if _, err := c.store.GetByReference(ctx, req.Reference); err != nil {
		return nil, err
	}
	session, err := c.gateway.CreateSession(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("create payment session: %w", err)
	}
	return session, nil
}

// AdvanceRequest asks to move past the given step with the current form.
type AdvanceRequest struct {
	Kind       model.Kind
	Step       int // 1-based index into the current sequence
	Reference  string
	DraftToken string
	Form       model.Payload
}

// AdvanceResult reports where the workflow landed. A non-empty
// AuthorizationURL means the browser must navigate there; the step has
// not advanced and control returns later via the payment callback.
type AdvanceResult struct {
	Step             int               `json:"step"`
	TotalSteps       int               `json:"total_steps"`
	Done             bool              `json:"done"`
	Reference        string            `json:"reference,omitempty"`
	AuthorizationURL string            `json:"authorization_url,omitempty"`
	Submission       *model.Submission `json:"submission,omitempty"`
}

// Advance validates the current step and performs its transition. Steps
// with external side effects (persist, payment session) run the side
// effect first and only advance once it succeeds.
func (c *Controller) Advance(ctx context.Context, req AdvanceRequest) (*AdvanceResult, error) {
	seq := Sequence(req.Kind, req.Form, c.pricing.HomeCountry)
	if len(seq) == 0 {
		return nil, &ValidationError{Field: "kind", Reason: "unknown submission kind"}
	}
	if req.Step < 1 || req.Step > len(seq) {
		return nil, &ValidationError{Field: "step", Reason: fmt.Sprintf("step must be between 1 and %d", len(seq))}
	}

	// The whole form up to this step must hold, not just the current
	// screen: steps like review and payment collect no fields of their
	// own, and nothing may persist off the back of an empty form.
	for i := 0; i < req.Step; i++ {
		if verr := Validate(req.Kind, seq[i], req.Form); verr != nil {
			return nil, verr
		}
	}
	stepID := seq[req.Step-1]

	switch req.Kind {
	case model.KindAttendee:
		return c.advanceAttendee(ctx, req, seq, stepID)
	case model.KindStand:
		return c.advanceStand(ctx, req, seq, stepID)
	case model.KindDonation:
		return c.advanceDonation(ctx, req, seq, stepID)
	}
	return nil, &ValidationError{Field: "kind", Reason: "unknown submission kind"}
}

func (c *Controller) advanceAttendee(ctx context.Context, req AdvanceRequest, seq []Step, stepID Step) (*AdvanceResult, error) {
	switch stepID {
	case StepTicketSelection, StepPersonalDetails:
		// Pure local advances; nothing is persisted until payment or
		// the final submit.
		return &AdvanceResult{Step: req.Step + 1, TotalSteps: len(seq), Reference: req.Reference}, nil

	case StepPayment:
		release, err := c.acquire(guardKey(req))
		if err != nil {
			return nil, err
		}
		defer release()

		sub, err := c.ensureSubmission(ctx, req)
		if err != nil {
			return nil, err
		}
		amount := c.pricing.InternationalTicket * c.pricing.CurrencyMinorFactor
		session, err := c.gateway.CreateSession(ctx, payment.SessionRequest{
			Email:            sub.Payload.Email,
			AmountMinorUnits: amount,
			Currency:         c.pricing.Currency,
			Reference:        sub.Reference,
			Metadata:         sessionMetadata(sub),
		})
		if err != nil {
			return nil, fmt.Errorf("create payment session: %w", err)
		}
		// Step stays put: the workflow suspends here until the
		// browser returns from the hosted checkout.
		return &AdvanceResult{
			Step:             req.Step,
			TotalSteps:       len(seq),
			Reference:        sub.Reference,
			AuthorizationURL: session.AuthorizationURL,
			Submission:       sub,
		}, nil

	case StepReview:
		release, err := c.acquire(guardKey(req))
		if err != nil {
			return nil, err
		}
		defer release()

		sub, err := c.ensureSubmission(ctx, req)
		if err != nil {
			return nil, err
		}
		// A paid tier may only finalize once the provider has confirmed
		// the payment. Both the submitted form and the stored payload
		// are consulted so a country flip cannot shake off the step.
		needsPayment := attendeeNeedsPayment(req.Form, c.pricing.HomeCountry) ||
			attendeeNeedsPayment(sub.Payload, c.pricing.HomeCountry)
		if needsPayment && !sub.Status.Terminal() {
			return nil, ErrPaymentRequired
		}
		if !model.CanTransition(sub.Status, model.StatusCompleted) {
			return nil, fmt.Errorf("submission %s cannot complete from status %s", sub.Reference, sub.Status)
		}
		if err := c.store.UpdateStatus(ctx, sub.Reference, model.StatusCompleted); err != nil {
			return nil, fmt.Errorf("complete registration: %w", err)
		}
		sub.Status = model.StatusCompleted
		c.clearDraft(ctx, req.DraftToken)
		c.emit(ctx, notify.EventRegistrationCompleted, sub)
		return &AdvanceResult{
			Step:       req.Step,
			TotalSteps: len(seq),
			Done:       true,
			Reference:  sub.Reference,
			Submission: sub,
		}, nil
	}
	return nil, &ValidationError{Field: "step", Reason: "unknown attendee step"}
}

func (c *Controller) advanceStand(ctx context.Context, req AdvanceRequest, seq []Step, stepID Step) (*AdvanceResult, error) {
	switch stepID {
	case StepStandDetails:
		release, err := c.acquire(guardKey(req))
		if err != nil {
			return nil, err
		}
		defer release()

		sub, err := c.ensureSubmission(ctx, req)
		if err != nil {
			return nil, err
		}
		c.clearDraft(ctx, req.DraftToken)
		return &AdvanceResult{Step: req.Step + 1, TotalSteps: len(seq), Reference: sub.Reference, Submission: sub}, nil

	case StepConfirmation:
		sub, err := c.store.GetByReference(ctx, req.Reference)
		if err != nil {
			return nil, err
		}
		// The gate is strict: the button is disabled until an
		// administrator has confirmed, no matter how valid the form is.
		if !sub.AdminConfirmed {
			return nil, ErrAdminGate
		}
		return &AdvanceResult{Step: req.Step + 1, TotalSteps: len(seq), Reference: sub.Reference, Submission: sub}, nil

	case StepPaymentSelection:
		sub, err := c.store.GetByReference(ctx, req.Reference)
		if err != nil {
			return nil, err
		}
		if !sub.AdminConfirmed {
			return nil, ErrAdminGate
		}
		if req.Form.PaymentMethod != "" && req.Form.PaymentMethod != sub.Payload.PaymentMethod {
			sub, err = c.store.UpdateFields(ctx, sub.Reference, model.Payload{PaymentMethod: req.Form.PaymentMethod})
			if err != nil {
				return nil, fmt.Errorf("record payment method: %w", err)
			}
		}

		switch sub.Payload.PaymentMethod {
		case model.PaymentMethodCard:
			amount, err := c.standAmountMinor(sub)
			if err != nil {
				return nil, err
			}
			session, err := c.gateway.CreateSession(ctx, payment.SessionRequest{
				Email:            sub.Payload.Email,
				AmountMinorUnits: amount,
				Currency:         c.pricing.Currency,
				Reference:        sub.Reference,
				Metadata:         sessionMetadata(sub),
			})
			if err != nil {
				return nil, fmt.Errorf("create payment session: %w", err)
			}
			return &AdvanceResult{
				Step:             req.Step,
				TotalSteps:       len(seq),
				Reference:        sub.Reference,
				AuthorizationURL: session.AuthorizationURL,
				Submission:       sub,
			}, nil

		case model.PaymentMethodPayLater:
			if err := c.store.UpdateStatus(ctx, sub.Reference, model.StatusPaymentPending); err != nil {
				return nil, fmt.Errorf("defer payment: %w", err)
			}
			payBy := time.Now().UTC().Add(c.pricing.PayLaterGrace)
			if err := c.store.SetPayBy(ctx, sub.Reference, payBy); err != nil {
				return nil, fmt.Errorf("record pay-by deadline: %w", err)
			}
			sub.Status = model.StatusPaymentPending
			sub.PayBy = &payBy
			c.emit(ctx, notify.EventPaymentDeferred, sub)
			return &AdvanceResult{Step: req.Step + 1, TotalSteps: len(seq), Reference: sub.Reference, Submission: sub}, nil
		}
		return nil, &ValidationError{Field: "payment_method", Reason: "payment method required"}

	case StepPreparation:
		// "Complete Registration" is a pure local advance; the
		// persisted status already reflects the payment outcome.
		return &AdvanceResult{Step: req.Step + 1, TotalSteps: len(seq), Done: true, Reference: req.Reference}, nil

	case StepExhibit:
		// Terminal step, nothing left to do.
		return &AdvanceResult{Step: req.Step, TotalSteps: len(seq), Done: true, Reference: req.Reference}, nil
	}
	return nil, &ValidationError{Field: "step", Reason: "unknown stand step"}
}

func (c *Controller) advanceDonation(ctx context.Context, req AdvanceRequest, seq []Step, stepID Step) (*AdvanceResult, error) {
	switch stepID {
	case StepCart:
		// Price the cart now so an emptied catalog fails here rather
		// than at handoff.
		if _, err := c.CartTotal(ctx, req.Form.Cart); err != nil {
			return nil, err
		}
		return &AdvanceResult{Step: req.Step + 1, TotalSteps: len(seq), Reference: req.Reference}, nil

	case StepDonorInfo:
		release, err := c.acquire(guardKey(req))
		if err != nil {
			return nil, err
		}
		defer release()

		// Total is computed freshly from the catalog on every read;
		// the cart never caches prices.
		total, err := c.CartTotal(ctx, req.Form.Cart)
		if err != nil {
			return nil, err
		}
		sub, err := c.ensureSubmission(ctx, req)
		if err != nil {
			return nil, err
		}
		session, err := c.gateway.CreateSession(ctx, payment.SessionRequest{
			Email:            sub.Payload.Email,
			AmountMinorUnits: total * c.pricing.CurrencyMinorFactor,
			Currency:         c.pricing.Currency,
			Reference:        sub.Reference,
			Metadata:         sessionMetadata(sub),
		})
		if err != nil {
			return nil, fmt.Errorf("create payment session: %w", err)
		}
		c.clearDraft(ctx, req.DraftToken)
		c.emit(ctx, notify.EventDonationHandoff, sub)
		// Handoff to the hosted payment page is the terminal
		// controller action for donations.
		return &AdvanceResult{
			Step:             req.Step + 1,
			TotalSteps:       len(seq),
			Reference:        sub.Reference,
			AuthorizationURL: session.AuthorizationURL,
			Submission:       sub,
		}, nil

	case StepPaymentHandoff:
		return &AdvanceResult{Step: req.Step, TotalSteps: len(seq), Done: true, Reference: req.Reference}, nil
	}
	return nil, &ValidationError{Field: "step", Reason: "unknown donation step"}
}

// ResumeResult rehydrates a returning client.
type ResumeResult struct {
	Step       int               `json:"step"`
	TotalSteps int               `json:"total_steps"`
	Form       model.Payload     `json:"form"`
	Submission *model.Submission `json:"submission"`
}

// Resume rebuilds step and form state from the persisted submission.
// For exhibitor stands returning from payment the landing step is
// driven by the durable payment outcome, not by sequential order: paid
// lands on preparation, unpaid back on payment selection.
func (c *Controller) Resume(ctx context.Context, kind model.Kind, ref string) (*ResumeResult, error) {
	sub, err := c.store.GetByReference(ctx, ref)
	if err != nil {
		return nil, err
	}
	if sub.Kind != kind {
		return nil, repository.ErrNotFound
	}

	seq := Sequence(kind, sub.Payload, c.pricing.HomeCountry)
	return &ResumeResult{
		Step:       c.stepFor(sub, seq),
		TotalSteps: len(seq),
		Form:       sub.Payload,
		Submission: sub,
	}, nil
}

func (c *Controller) stepFor(sub *model.Submission, seq []Step) int {
	switch sub.Kind {
	case model.KindStand:
		switch {
		case sub.Status == model.StatusCompleted:
			return indexOf(seq, StepExhibit)
		case sub.Status == model.StatusPaid, sub.Status == model.StatusPaymentPending:
			return indexOf(seq, StepPreparation)
		case sub.AdminConfirmed:
			return indexOf(seq, StepPaymentSelection)
		default:
			return indexOf(seq, StepConfirmation)
		}

	case model.KindAttendee:
		switch sub.Status {
		case model.StatusCompleted, model.StatusPaid:
			return indexOf(seq, StepReview)
		default:
			if i := indexOf(seq, StepPayment); i > 0 {
				return i
			}
			return indexOf(seq, StepReview)
		}

	case model.KindDonation:
		if sub.Status.Terminal() {
			return indexOf(seq, StepPaymentHandoff)
		}
		return indexOf(seq, StepDonorInfo)
	}
	return 1
}

func indexOf(seq []Step, step Step) int {
	for i, s := range seq {
		if s == step {
			return i + 1
		}
	}
	return 1
}

// Confirm is the administrator action that unblocks an exhibitor-stand
// booking for payment. Idempotent: re-confirming is a no-op. The
// notification is best-effort and never rolls back the confirmation.
func (c *Controller) Confirm(ctx context.Context, ref string) (*model.Submission, error) {
	sub, err := c.store.GetByReference(ctx, ref)
	if err != nil {
		return nil, err
	}
	if sub.Kind != model.KindStand {
		return nil, &ValidationError{Field: "reference", Reason: "only exhibitor-stand submissions require confirmation"}
	}
	if sub.AdminConfirmed {
		return sub, nil
	}
	if err := c.store.SetAdminConfirmed(ctx, ref); err != nil {
		return nil, err
	}
	sub.AdminConfirmed = true
	c.emit(ctx, notify.EventStandConfirmed, sub)
	return sub, nil
}

// PaymentOutcome is the result of verifying a returned payment.
type PaymentOutcome struct {
	Status     model.Status      `json:"status"`
	Step       int               `json:"step"`
	TotalSteps int               `json:"total_steps"`
	Submission *model.Submission `json:"submission"`
}

// VerifyPayment checks the provider's result for a submission's payment
// and applies the corresponding transition. A success whose amount or
// currency disagrees with the expected value is treated as failed and
// never advances the workflow.
func (c *Controller) VerifyPayment(ctx context.Context, ref string) (*PaymentOutcome, error) {
	sub, err := c.store.GetByReference(ctx, ref)
	if err != nil {
		return nil, err
	}

	expected, err := c.expectedAmountMinor(ctx, sub)
	if err != nil {
		return nil, err
	}

	res, err := c.gateway.Verify(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("verify payment: %w", err)
	}

	switch res.Status {
	case payment.StatusSuccess:
		if res.AmountMinorUnits != expected || !strings.EqualFold(res.Currency, c.pricing.Currency) {
			// Fraud/bug signal: logged apart from ordinary failures,
			// and the submission keeps its current status.
			c.logger.Error("payment amount mismatch",
				zap.String("reference", ref),
				zap.Int64("expected_minor_units", expected),
				zap.Int64("reported_minor_units", res.AmountMinorUnits),
				zap.String("expected_currency", c.pricing.Currency),
				zap.String("reported_currency", res.Currency),
			)
			return nil, ErrAmountMismatch
		}
		if sub.Status != model.StatusPaid && model.CanTransition(sub.Status, model.StatusPaid) {
			if err := c.store.UpdateStatus(ctx, ref, model.StatusPaid); err != nil {
				return nil, fmt.Errorf("record payment: %w", err)
			}
			sub.Status = model.StatusPaid
			c.emit(ctx, notify.EventPaymentSucceeded, sub)
		}

	case payment.StatusFailed:
		// A pay-later booking that tried a card keeps its
		// payment_pending status and deadline.
		if sub.Status == model.StatusPending {
			if err := c.store.UpdateStatus(ctx, ref, model.StatusPaymentFailed); err != nil {
				return nil, fmt.Errorf("record failed payment: %w", err)
			}
			sub.Status = model.StatusPaymentFailed
		}
		c.emit(ctx, notify.EventPaymentFailed, sub)

	case payment.StatusPending:
		// Nothing final yet; the user may re-initiate.
	}

	seq := Sequence(sub.Kind, sub.Payload, c.pricing.HomeCountry)
	return &PaymentOutcome{
		Status:     sub.Status,
		Step:       c.stepFor(sub, seq),
		TotalSteps: len(seq),
		Submission: sub,
	}, nil
}

// ScanResult is the record resolved from a badge scan.
type ScanResult struct {
	Reference        string            `json:"reference"`
	Admitted         bool              `json:"admitted"`
	AlreadyCheckedIn bool              `json:"already_checked_in"`
	Submission       *model.Submission `json:"submission"`
}

// Scan decodes a scanned badge and records the check-in. An unparseable
// code is an invalid-format error and never reaches the store; a valid
// code for an unknown reference surfaces as not-found.
func (c *Controller) Scan(ctx context.Context, scanned string) (*ScanResult, error) {
	ref, err := c.badges.Decode(scanned)
	if err != nil {
		return nil, err
	}
	sub, err := c.store.GetByReference(ctx, ref)
	if err != nil {
		return nil, err
	}
	if !sub.Status.Terminal() {
		return &ScanResult{Reference: ref, Admitted: false, Submission: sub}, nil
	}

	first, err := c.store.MarkCheckedIn(ctx, ref)
	if err != nil {
		return nil, err
	}
	if first {
		c.emit(ctx, notify.EventCheckedIn, sub)
	}
	return &ScanResult{
		Reference:        ref,
		Admitted:         true,
		AlreadyCheckedIn: !first,
		Submission:       sub,
	}, nil
}

// Badge returns the printable badge URL for a finalized submission.
func (c *Controller) Badge(ctx context.Context, ref string) (string, error) {
	sub, err := c.store.GetByReference(ctx, ref)
	if err != nil {
		return "", err
	}
	if !sub.Status.Terminal() {
		return "", ErrNotFinalized
	}
	return c.badges.Encode(sub), nil
}

// Export returns every submission of one kind for the admin export.
func (c *Controller) Export(ctx context.Context, kind model.Kind) ([]model.Submission, error) {
	return c.store.ListByKind(ctx, kind)
}

// Catalog lists the active donation catalog.
func (c *Controller) Catalog(ctx context.Context) ([]model.CatalogItem, error) {
	return c.catalog.ListActive(ctx)
}

// CartTotal prices a donation cart in major units against the live
// catalog. Missing or inactive items fail the whole cart.
func (c *Controller) CartTotal(ctx context.Context, cart map[string]int) (int64, error) {
	if len(cart) == 0 {
		return 0, &ValidationError{Field: "cart", Reason: "select at least one item"}
	}
	ids := make([]string, 0, len(cart))
	for id, qty := range cart {
		if qty < 1 {
			return 0, &ValidationError{Field: "cart", Reason: "quantity for " + id + " must be at least 1"}
		}
		ids = append(ids, id)
	}
	prices, err := c.catalog.PricesFor(ctx, ids)
	if err != nil {
		return 0, err
	}
	var total int64
	for id, qty := range cart {
		total += prices[id] * int64(qty)
	}
	return total, nil
}

// sessionMetadata tags a checkout session so the provider dashboard can
// tie a transaction back to its submission.
func sessionMetadata(sub *model.Submission) map[string]string {
	return map[string]string{
		"kind":      string(sub.Kind),
		"reference": sub.Reference,
	}
}

// ensureSubmission returns the existing record when the request carries
// a reference and creates one otherwise. The created event fires only
// here, so later transitions never repeat it.
func (c *Controller) ensureSubmission(ctx context.Context, req AdvanceRequest) (*model.Submission, error) {
	if req.Reference != "" {
		return c.store.GetByReference(ctx, req.Reference)
	}
	sub, err := c.store.Create(ctx, req.Kind, req.Form)
	if err != nil {
		return nil, fmt.Errorf("persist submission: %w", err)
	}
	c.emit(ctx, notify.EventSubmissionCreated, sub)
	return sub, nil
}

// guardKey picks the identity the in-flight guard tracks for an
// advance: the draft token when the client has one, otherwise the
// reference, otherwise the registrant's email, so a tokenless double
// click still collapses to one submission.
func guardKey(req AdvanceRequest) string {
	if req.DraftToken != "" {
		return req.DraftToken
	}
	if req.Reference != "" {
		return req.Reference
	}
	return string(req.Kind) + "|" + strings.ToLower(strings.TrimSpace(req.Form.Email))
}

func (c *Controller) expectedAmountMinor(ctx context.Context, sub *model.Submission) (int64, error) {
	switch sub.Kind {
	case model.KindAttendee:
		return c.pricing.InternationalTicket * c.pricing.CurrencyMinorFactor, nil
	case model.KindStand:
		return c.standAmountMinor(sub)
	case model.KindDonation:
		total, err := c.CartTotal(ctx, sub.Payload.Cart)
		if err != nil {
			return 0, err
		}
		return total * c.pricing.CurrencyMinorFactor, nil
	}
	return 0, fmt.Errorf("no pricing for kind %s", sub.Kind)
}

func (c *Controller) standAmountMinor(sub *model.Submission) (int64, error) {
	price, ok := c.pricing.StandPrices[sub.Payload.StandType]
	if !ok {
		return 0, &ValidationError{Field: "stand_type", Reason: "unknown stand type " + sub.Payload.StandType}
	}
	return price * c.pricing.CurrencyMinorFactor, nil
}

// acquire guards side-effecting advances against double submission: a
// second call for the same draft while the first is still in flight is
// rejected, so rapid double clicks create exactly one record. Drafts
// without a token skip the guard.
func (c *Controller) acquire(token string) (func(), error) {
	if token == "" {
		return func() {}, nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, busy := c.inflight[token]; busy {
		return nil, ErrInFlight
	}
	c.inflight[token] = struct{}{}
	return func() {
		c.mu.Lock()
		delete(c.inflight, token)
		c.mu.Unlock()
	}, nil
}

func (c *Controller) clearDraft(ctx context.Context, token string) {
	if token == "" || c.drafts == nil {
		return
	}
	if err := c.drafts.Clear(ctx, token); err != nil {
		c.logger.Warn("clear draft failed", zap.String("token", token), zap.Error(err))
	}
}

func (c *Controller) emit(ctx context.Context, eventType string, sub *model.Submission) {
	if c.notifier == nil {
		return
	}
	err := c.notifier.Notify(ctx, notify.Event{
		Type:       eventType,
		Reference:  sub.Reference,
		Kind:       sub.Kind,
		Email:      sub.Payload.Email,
		OccurredAt: time.Now().UTC(),
	})
	if err != nil {
		c.logger.Warn("notification delivery failed",
			zap.String("type", eventType),
			zap.String("reference", sub.Reference),
			zap.Error(err),
		)
	}
}

// ErrNotFound is re-exported from the repository so handlers can
// dispatch on controller errors with a single import.
var ErrNotFound = repository.ErrNotFound
