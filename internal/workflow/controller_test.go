package workflow

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/bookfairhq/bookfair-backend/internal/badge"
	"github.com/bookfairhq/bookfair-backend/internal/model"
	"github.com/bookfairhq/bookfair-backend/internal/notify"
	"github.com/bookfairhq/bookfair-backend/internal/payment"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type testEnv struct {
	store    *fakeStore
	catalog  *fakeCatalog
	gateway  *fakeGateway
	notifier *fakeNotifier
	drafts   *fakeDrafts
	issuer   *badge.Issuer
	ctrl     *Controller
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		store:    newFakeStore(),
		catalog:  &fakeCatalog{prices: map[string]int64{"item7": 1000, "item9": 2500}},
		gateway:  &fakeGateway{},
		notifier: &fakeNotifier{},
		drafts:   newFakeDrafts(),
		issuer:   badge.NewIssuer("https://fair.example.com/checkin", "test-secret"),
	}
	env.ctrl = NewController(
		env.store, env.catalog, env.gateway, env.notifier, env.drafts, env.issuer,
		Pricing{
			HomeCountry:         "Nigeria",
			Currency:            "NGN",
			CurrencyMinorFactor: 100,
			InternationalTicket: 1200,
			StandPrices:         map[string]int64{"2sqm": 400, "4sqm": 1200},
			PayLaterGrace:       48 * time.Hour,
		},
		zaptest.NewLogger(t),
	)
	return env
}

func standForm() model.Payload {
	return model.Payload{
		CompanyName: "Readmore Press",
		ContactName: "Bola Ige",
		Email:       "bola@readmore.example.com",
		Phone:       "+2348011111111",
		StandType:   "4sqm",
	}
}

// createStand submits step 1 of the exhibitor-stand flow.
func createStand(t *testing.T, env *testEnv) *model.Submission {
	t.Helper()
	res, err := env.ctrl.Advance(context.Background(), AdvanceRequest{
		Kind: model.KindStand,
		Step: 1,
		Form: standForm(),
	})
	require.NoError(t, err)
	require.NotNil(t, res.Submission)
	return res.Submission
}

func TestStandCreate_ReferenceAndInitialState(t *testing.T) {
	env := newTestEnv(t)
	sub := createStand(t, env)

	assert.Regexp(t, regexp.MustCompile(`^BS-[A-F0-9]{8}$`), sub.Reference)
	assert.Equal(t, model.StatusPending, sub.Status)
	assert.False(t, sub.AdminConfirmed)
	assert.Contains(t, env.notifier.types(), notify.EventSubmissionCreated)
}

func TestStandAdvance_AdminGateBlocks(t *testing.T) {
	env := newTestEnv(t)
	sub := createStand(t, env)

	// Everything about the form is valid; the gate alone blocks.
	_, err := env.ctrl.Advance(context.Background(), AdvanceRequest{
		Kind:      model.KindStand,
		Step:      2,
		Reference: sub.Reference,
		Form:      standForm(),
	})
	assert.ErrorIs(t, err, ErrAdminGate)
}

func TestStandConfirmThenPayLater(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	sub := createStand(t, env)

	_, err := env.ctrl.Confirm(ctx, sub.Reference)
	require.NoError(t, err)

	res, err := env.ctrl.Advance(ctx, AdvanceRequest{
		Kind: model.KindStand, Step: 2, Reference: sub.Reference, Form: standForm(),
	})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Step)

	form := standForm()
	form.PaymentMethod = model.PaymentMethodPayLater
	res, err = env.ctrl.Advance(ctx, AdvanceRequest{
		Kind: model.KindStand, Step: 3, Reference: sub.Reference, Form: form,
	})
	require.NoError(t, err)
	assert.Equal(t, 4, res.Step)
	assert.Empty(t, res.AuthorizationURL)
	assert.Equal(t, model.StatusPaymentPending, res.Submission.Status)
	require.NotNil(t, res.Submission.PayBy)
	assert.WithinDuration(t, time.Now().UTC().Add(48*time.Hour), *res.Submission.PayBy, time.Minute)
	assert.Contains(t, env.notifier.types(), notify.EventPaymentDeferred)
}

func TestStandAdvance_CardSuspendsOnRedirect(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	sub := createStand(t, env)
	_, err := env.ctrl.Confirm(ctx, sub.Reference)
	require.NoError(t, err)

	form := standForm()
	form.PaymentMethod = model.PaymentMethodCard
	res, err := env.ctrl.Advance(ctx, AdvanceRequest{
		Kind: model.KindStand, Step: 3, Reference: sub.Reference, Form: form,
	})
	require.NoError(t, err)

	// The step does not advance: control returns via the callback.
	assert.Equal(t, 3, res.Step)
	assert.NotEmpty(t, res.AuthorizationURL)

	require.Len(t, env.gateway.sessions, 1)
	session := env.gateway.sessions[0]
	assert.Equal(t, int64(120000), session.AmountMinorUnits)
	assert.Equal(t, "NGN", session.Currency)
	assert.Equal(t, sub.Reference, session.Reference)
}

func TestStandAdvance_GatewayFailureLeavesStatusUntouched(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	sub := createStand(t, env)
	_, err := env.ctrl.Confirm(ctx, sub.Reference)
	require.NoError(t, err)

	env.gateway.createErr = errors.New("gateway down")
	form := standForm()
	form.PaymentMethod = model.PaymentMethodCard
	_, err = env.ctrl.Advance(ctx, AdvanceRequest{
		Kind: model.KindStand, Step: 3, Reference: sub.Reference, Form: form,
	})
	require.Error(t, err)

	got, err := env.store.GetByReference(ctx, sub.Reference)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, got.Status)
}

func TestConfirm_IsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	sub := createStand(t, env)

	first, err := env.ctrl.Confirm(ctx, sub.Reference)
	require.NoError(t, err)
	assert.True(t, first.AdminConfirmed)

	second, err := env.ctrl.Confirm(ctx, sub.Reference)
	require.NoError(t, err)
	assert.True(t, second.AdminConfirmed)

	confirmations := 0
	for _, typ := range env.notifier.types() {
		if typ == notify.EventStandConfirmed {
			confirmations++
		}
	}
	assert.Equal(t, 1, confirmations)
}

func TestConfirm_RejectsOtherKinds(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	sub, err := env.ctrl.Create(ctx, model.KindDonation, model.Payload{
		FirstName: "Kofi", LastName: "Annan", Email: "kofi@example.com",
		Phone: "+233201111111", Cart: map[string]int{"item7": 1},
	})
	require.NoError(t, err)

	_, err = env.ctrl.Confirm(ctx, sub.Reference)
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestVerifyPayment_SuccessIsMonotonicAndIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	sub := createStand(t, env)
	_, err := env.ctrl.Confirm(ctx, sub.Reference)
	require.NoError(t, err)

	env.gateway.verify = &payment.VerifyResult{
		Status: payment.StatusSuccess, AmountMinorUnits: 120000, Currency: "NGN",
	}
	outcome, err := env.ctrl.VerifyPayment(ctx, sub.Reference)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPaid, outcome.Status)
	assert.Equal(t, 4, outcome.Step) // preparation

	// A second verification of the same payment changes nothing.
	outcome, err = env.ctrl.VerifyPayment(ctx, sub.Reference)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPaid, outcome.Status)

	successes := 0
	for _, typ := range env.notifier.types() {
		if typ == notify.EventPaymentSucceeded {
			successes++
		}
	}
	assert.Equal(t, 1, successes)
}

func TestVerifyPayment_AmountMismatchRejected(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	sub := createStand(t, env)
	_, err := env.ctrl.Confirm(ctx, sub.Reference)
	require.NoError(t, err)

	// Defer payment so the booking sits in payment_pending.
	form := standForm()
	form.PaymentMethod = model.PaymentMethodPayLater
	_, err = env.ctrl.Advance(ctx, AdvanceRequest{
		Kind: model.KindStand, Step: 3, Reference: sub.Reference, Form: form,
	})
	require.NoError(t, err)

	// Provider says success but for the wrong amount.
	env.gateway.verify = &payment.VerifyResult{
		Status: payment.StatusSuccess, AmountMinorUnits: 99900, Currency: "NGN",
	}
	_, err = env.ctrl.VerifyPayment(ctx, sub.Reference)
	assert.ErrorIs(t, err, ErrAmountMismatch)

	got, err := env.store.GetByReference(ctx, sub.Reference)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPaymentPending, got.Status)
}

func TestVerifyPayment_FailedCardKeepsPayLaterStatus(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	sub := createStand(t, env)
	_, err := env.ctrl.Confirm(ctx, sub.Reference)
	require.NoError(t, err)

	form := standForm()
	form.PaymentMethod = model.PaymentMethodPayLater
	_, err = env.ctrl.Advance(ctx, AdvanceRequest{
		Kind: model.KindStand, Step: 3, Reference: sub.Reference, Form: form,
	})
	require.NoError(t, err)

	env.gateway.verify = &payment.VerifyResult{
		Status: payment.StatusFailed, AmountMinorUnits: 120000, Currency: "NGN",
	}
	outcome, err := env.ctrl.VerifyPayment(ctx, sub.Reference)
	require.NoError(t, err)

	// The pay-later deadline stands; a failed card attempt does not
	// overwrite it.
	assert.Equal(t, model.StatusPaymentPending, outcome.Status)
}

func TestUpdate_RefusesStatusRegression(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	sub := createStand(t, env)
	require.NoError(t, env.store.UpdateStatus(ctx, sub.Reference, model.StatusPaid))

	regress := model.StatusPaymentPending
	_, err := env.ctrl.Update(ctx, model.KindStand, sub.Reference, &regress, nil)
	assert.ErrorIs(t, err, ErrStatusOrder)
}

func TestResume_IsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	sub := createStand(t, env)

	first, err := env.ctrl.Resume(ctx, model.KindStand, sub.Reference)
	require.NoError(t, err)
	second, err := env.ctrl.Resume(ctx, model.KindStand, sub.Reference)
	require.NoError(t, err)

	assert.Equal(t, first.Step, second.Step)
	assert.Equal(t, first.Form, second.Form)
}

func TestResume_StandLandsOnDurableOutcome(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	sub := createStand(t, env)

	// Unconfirmed: still waiting on the gate.
	res, err := env.ctrl.Resume(ctx, model.KindStand, sub.Reference)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Step)

	// Confirmed but unpaid: back on payment selection, not the next
	// sequential step.
	_, err = env.ctrl.Confirm(ctx, sub.Reference)
	require.NoError(t, err)
	res, err = env.ctrl.Resume(ctx, model.KindStand, sub.Reference)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Step)

	// Paid: jump straight to preparation.
	require.NoError(t, env.store.UpdateStatus(ctx, sub.Reference, model.StatusPaid))
	res, err = env.ctrl.Resume(ctx, model.KindStand, sub.Reference)
	require.NoError(t, err)
	assert.Equal(t, 4, res.Step)
	assert.Equal(t, model.StatusPaid, res.Submission.Status)
}

func TestResume_WrongKindIsNotFound(t *testing.T) {
	env := newTestEnv(t)
	sub := createStand(t, env)

	_, err := env.ctrl.Resume(context.Background(), model.KindDonation, sub.Reference)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDoubleSubmit_ExactlyOneCreate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.store.createStarted = make(chan struct{}, 1)
	env.store.createRelease = make(chan struct{})

	firstDone := make(chan error, 1)
	go func() {
		_, err := env.ctrl.Advance(ctx, AdvanceRequest{
			Kind: model.KindStand, Step: 1, DraftToken: "draft-1", Form: standForm(),
		})
		firstDone <- err
	}()

	// Wait until the first advance is inside its store call, then
	// fire the duplicate click.
	<-env.store.createStarted
	_, err := env.ctrl.Advance(ctx, AdvanceRequest{
		Kind: model.KindStand, Step: 1, DraftToken: "draft-1", Form: standForm(),
	})
	assert.ErrorIs(t, err, ErrInFlight)

	close(env.store.createRelease)
	require.NoError(t, <-firstDone)
	assert.Equal(t, 1, env.store.creates)
}

func TestDonation_SessionAmountFromLiveCatalog(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	form := model.Payload{
		FirstName: "Kofi", LastName: "Annan", Email: "kofi@example.com",
		Phone: "+233201111111",
		Cart:  map[string]int{"item7": 2, "item9": 1},
	}

	total, err := env.ctrl.CartTotal(ctx, form.Cart)
	require.NoError(t, err)
	assert.Equal(t, int64(4500), total)

	res, err := env.ctrl.Advance(ctx, AdvanceRequest{
		Kind: model.KindDonation, Step: 2, DraftToken: "d-tok", Form: form,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, res.AuthorizationURL)
	assert.Regexp(t, regexp.MustCompile(`^DN-[A-F0-9]{8}$`), res.Reference)

	require.Len(t, env.gateway.sessions, 1)
	assert.Equal(t, int64(450000), env.gateway.sessions[0].AmountMinorUnits)
	assert.Equal(t, res.Reference, env.gateway.sessions[0].Reference)

	// Draft is cleared once the handoff is created.
	_, err = env.drafts.Load(ctx, "d-tok")
	assert.Error(t, err)

	assert.Contains(t, env.notifier.types(), notify.EventSubmissionCreated)
	assert.Contains(t, env.notifier.types(), notify.EventDonationHandoff)
}

func TestDonation_UnknownCatalogItemFailsCart(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.ctrl.CartTotal(context.Background(), map[string]int{"ghost-item": 1})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAttendee_FreeTierCompletesAtReview(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	form := model.Payload{
		TicketType: model.TicketFree,
		FirstName:  "Jane", LastName: "Doe", Email: "jane@example.com",
		Phone: "+2348000000000", Country: "Nigeria", TermsAccepted: true,
	}

	res, err := env.ctrl.Advance(ctx, AdvanceRequest{Kind: model.KindAttendee, Step: 1, Form: form})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Step)
	assert.Equal(t, 3, res.TotalSteps)

	res, err = env.ctrl.Advance(ctx, AdvanceRequest{Kind: model.KindAttendee, Step: 2, Form: form})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Step)

	res, err = env.ctrl.Advance(ctx, AdvanceRequest{
		Kind: model.KindAttendee, Step: 3, DraftToken: "a-tok", Form: form,
	})
	require.NoError(t, err)
	assert.True(t, res.Done)
	assert.Equal(t, model.StatusCompleted, res.Submission.Status)
	assert.Regexp(t, regexp.MustCompile(`^AR-[A-F0-9]{8}$`), res.Reference)
	assert.Empty(t, env.gateway.sessions)
}

func TestAttendee_InternationalPaysThenCompletes(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	form := model.Payload{
		TicketType: model.TicketInternational,
		FirstName:  "Ama", LastName: "Mensah", Email: "ama@example.com",
		Phone: "+233200000000", Country: "Ghana", TermsAccepted: true,
	}

	// Step 3 is the payment step for a foreign international ticket.
	res, err := env.ctrl.Advance(ctx, AdvanceRequest{Kind: model.KindAttendee, Step: 3, Form: form})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Step)
	assert.Equal(t, 4, res.TotalSteps)
	assert.NotEmpty(t, res.AuthorizationURL)
	require.Len(t, env.gateway.sessions, 1)
	assert.Equal(t, int64(120000), env.gateway.sessions[0].AmountMinorUnits)

	ref := res.Reference
	env.gateway.verify = &payment.VerifyResult{
		Status: payment.StatusSuccess, AmountMinorUnits: 120000, Currency: "NGN",
	}
	outcome, err := env.ctrl.VerifyPayment(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPaid, outcome.Status)

	res, err = env.ctrl.Advance(ctx, AdvanceRequest{
		Kind: model.KindAttendee, Step: 4, Reference: ref, Form: form,
	})
	require.NoError(t, err)
	assert.True(t, res.Done)
	assert.Equal(t, model.StatusCompleted, res.Submission.Status)
}

func TestAttendee_UnpaidInternationalCannotComplete(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	form := model.Payload{
		TicketType: model.TicketInternational,
		FirstName:  "Ama", LastName: "Mensah", Email: "ama@example.com",
		Phone: "+233200000000", Country: "Ghana", TermsAccepted: true,
	}

	// Session created, never verified.
	res, err := env.ctrl.Advance(ctx, AdvanceRequest{Kind: model.KindAttendee, Step: 3, Form: form})
	require.NoError(t, err)
	require.NotEmpty(t, res.AuthorizationURL)
	ref := res.Reference

	_, err = env.ctrl.Advance(ctx, AdvanceRequest{
		Kind: model.KindAttendee, Step: 4, Reference: ref, Form: form,
	})
	assert.ErrorIs(t, err, ErrPaymentRequired)

	got, err := env.store.GetByReference(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, got.Status)
}

func TestAttendee_CountryFlipDoesNotShedPaymentStep(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	form := model.Payload{
		TicketType: model.TicketInternational,
		FirstName:  "Ama", LastName: "Mensah", Email: "ama@example.com",
		Phone: "+233200000000", Country: "Ghana", TermsAccepted: true,
	}
	res, err := env.ctrl.Advance(ctx, AdvanceRequest{Kind: model.KindAttendee, Step: 3, Form: form})
	require.NoError(t, err)

	// Resubmitting with the home country drops the payment step from the
	// sequence, but the stored payload still demands payment.
	flipped := form
	flipped.Country = "Nigeria"
	_, err = env.ctrl.Advance(ctx, AdvanceRequest{
		Kind: model.KindAttendee, Step: 3, Reference: res.Reference, Form: flipped,
	})
	assert.ErrorIs(t, err, ErrPaymentRequired)
}

func TestAdvance_FinalStepRevalidatesWholeForm(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// An empty form at the final step must fail the earliest invalid
	// step and never reach the store.
	_, err := env.ctrl.Advance(ctx, AdvanceRequest{Kind: model.KindAttendee, Step: 3, Form: model.Payload{}})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "ticket_type", verr.Field)
	assert.Equal(t, 0, env.store.creates)

	// A payment-step advance with no personal details must not create a
	// checkout session for an empty email.
	_, err = env.ctrl.Advance(ctx, AdvanceRequest{
		Kind: model.KindAttendee, Step: 3,
		Form: model.Payload{TicketType: model.TicketInternational, Country: "Ghana"},
	})
	require.ErrorAs(t, err, &verr)
	assert.Empty(t, env.gateway.sessions)
	assert.Equal(t, 0, env.store.creates)
}

func TestDoubleSubmit_TokenlessKeyedByEmail(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.store.createStarted = make(chan struct{}, 1)
	env.store.createRelease = make(chan struct{})

	firstDone := make(chan error, 1)
	go func() {
		_, err := env.ctrl.Advance(ctx, AdvanceRequest{
			Kind: model.KindStand, Step: 1, Form: standForm(),
		})
		firstDone <- err
	}()

	<-env.store.createStarted
	_, err := env.ctrl.Advance(ctx, AdvanceRequest{
		Kind: model.KindStand, Step: 1, Form: standForm(),
	})
	assert.ErrorIs(t, err, ErrInFlight)

	close(env.store.createRelease)
	require.NoError(t, <-firstDone)
	assert.Equal(t, 1, env.store.creates)
}

func TestAttendee_CompletionEventDistinctFromCreate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	form := model.Payload{
		TicketType: model.TicketFree,
		FirstName:  "Jane", LastName: "Doe", Email: "jane@example.com",
		Phone: "+2348000000000", Country: "Nigeria", TermsAccepted: true,
	}
	res, err := env.ctrl.Advance(ctx, AdvanceRequest{Kind: model.KindAttendee, Step: 3, Form: form})
	require.NoError(t, err)
	require.True(t, res.Done)

	created, completed := 0, 0
	for _, typ := range env.notifier.types() {
		switch typ {
		case notify.EventSubmissionCreated:
			created++
		case notify.EventRegistrationCompleted:
			completed++
		}
	}
	assert.Equal(t, 1, created)
	assert.Equal(t, 1, completed)
}

func TestScan_InvalidFormatNeverTouchesStore(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.ctrl.Scan(context.Background(), "not-a-valid-url")
	assert.ErrorIs(t, err, badge.ErrInvalidFormat)
	assert.Equal(t, 0, env.store.gets)
}

func TestScan_ChecksInExactlyOnce(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	sub := createStand(t, env)
	require.NoError(t, env.store.UpdateStatus(ctx, sub.Reference, model.StatusPaid))

	badgeURL, err := env.ctrl.Badge(ctx, sub.Reference)
	require.NoError(t, err)

	res, err := env.ctrl.Scan(ctx, badgeURL)
	require.NoError(t, err)
	assert.True(t, res.Admitted)
	assert.False(t, res.AlreadyCheckedIn)

	res, err = env.ctrl.Scan(ctx, badgeURL)
	require.NoError(t, err)
	assert.True(t, res.Admitted)
	assert.True(t, res.AlreadyCheckedIn)
}

func TestScan_UnknownReferenceIsNotFound(t *testing.T) {
	env := newTestEnv(t)
	ghost := &model.Submission{Reference: "BS-DEADBEEF"}
	scanned := env.issuer.Encode(ghost)

	_, err := env.ctrl.Scan(context.Background(), scanned)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestBadge_RequiresFinalizedStatus(t *testing.T) {
	env := newTestEnv(t)
	sub := createStand(t, env)

	_, err := env.ctrl.Badge(context.Background(), sub.Reference)
	assert.ErrorIs(t, err, ErrNotFinalized)
}

func TestNotificationFailureDoesNotRollBackConfirmation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	sub := createStand(t, env)

	env.notifier.err = errors.New("broker unreachable")
	confirmed, err := env.ctrl.Confirm(ctx, sub.Reference)
	require.NoError(t, err)
	assert.True(t, confirmed.AdminConfirmed)

	got, err := env.store.GetByReference(ctx, sub.Reference)
	require.NoError(t, err)
	assert.True(t, got.AdminConfirmed)
}
