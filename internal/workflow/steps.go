package workflow

import (
	"strings"

	"github.com/bookfairhq/bookfair-backend/internal/model"
)

// Step identifies one screen of a registration workflow.
type Step string

const (
	// Attendee registration
	StepTicketSelection Step = "ticket_selection"
	StepPersonalDetails Step = "personal_details"
	StepPayment         Step = "payment"
	StepReview          Step = "review"

	// Exhibitor stand
	StepStandDetails     Step = "stand_details"
	StepConfirmation     Step = "confirmation"
	StepPaymentSelection Step = "payment_selection"
	StepPreparation      Step = "preparation"
	StepExhibit          Step = "exhibit"

	// Donation
	StepCart           Step = "cart"
	StepDonorInfo      Step = "donor_info"
	StepPaymentHandoff Step = "payment_handoff"
)

// Sequence returns the ordered steps for one workflow given the current
// form state. All branch logic lives here: the attendee payment step
// exists only for international tickets bought from outside the home
// country, and its presence is recomputed whenever the form changes, so
// flipping the country back home shrinks the sequence without touching
// collected data.
func Sequence(kind model.Kind, form model.Payload, homeCountry string) []Step {
	switch kind {
	case model.KindAttendee:
		steps := []Step{StepTicketSelection, StepPersonalDetails}
		if attendeeNeedsPayment(form, homeCountry) {
			steps = append(steps, StepPayment)
		}
		return append(steps, StepReview)
	case model.KindStand:
		return []Step{StepStandDetails, StepConfirmation, StepPaymentSelection, StepPreparation, StepExhibit}
	case model.KindDonation:
		return []Step{StepCart, StepDonorInfo, StepPaymentHandoff}
	}
	return nil
}

// TotalSteps is the length of the current sequence.
func TotalSteps(kind model.Kind, form model.Payload, homeCountry string) int {
	return len(Sequence(kind, form, homeCountry))
}

func attendeeNeedsPayment(form model.Payload, homeCountry string) bool {
	return form.TicketType == model.TicketInternational &&
		!strings.EqualFold(strings.TrimSpace(form.Country), homeCountry)
}

// Validate checks the required fields for one step. A nil return means
// the user may advance past it.
func Validate(kind model.Kind, step Step, form model.Payload) *ValidationError {
	switch step {
	case StepTicketSelection:
		switch form.TicketType {
		case model.TicketFree, model.TicketInternational:
			return nil
		case "":
			return missing("ticket_type")
		}
		return &ValidationError{Field: "ticket_type", Reason: "unknown ticket type"}

	case StepPersonalDetails:
		if err := requireContact(form); err != nil {
			return err
		}
		if strings.TrimSpace(form.Country) == "" {
			return missing("country")
		}
		if !form.TermsAccepted {
			return &ValidationError{Field: "terms_accepted", Reason: "terms must be accepted"}
		}
		return nil

	case StepStandDetails:
		if strings.TrimSpace(form.CompanyName) == "" {
			return missing("company_name")
		}
		if strings.TrimSpace(form.ContactName) == "" {
			return missing("contact_name")
		}
		if !isValidEmail(form.Email) {
			return &ValidationError{Field: "email", Reason: "valid email required"}
		}
		if strings.TrimSpace(form.Phone) == "" {
			return missing("phone")
		}
		if strings.TrimSpace(form.StandType) == "" {
			return missing("stand_type")
		}
		return nil

	case StepPaymentSelection:
		switch form.PaymentMethod {
		case model.PaymentMethodCard, model.PaymentMethodPayLater:
			return nil
		case "":
			return missing("payment_method")
		}
		return &ValidationError{Field: "payment_method", Reason: "unknown payment method"}

	case StepCart:
		if len(form.Cart) == 0 {
			return &ValidationError{Field: "cart", Reason: "select at least one item"}
		}
		for id, qty := range form.Cart {
			if qty < 1 {
				return &ValidationError{Field: "cart", Reason: "quantity for " + id + " must be at least 1"}
			}
		}
		return nil

	case StepDonorInfo:
		return requireContact(form)

	// Confirmation, payment, preparation, exhibit, review and the
	// donation handoff collect no new fields.
	case StepConfirmation, StepPayment, StepPreparation, StepExhibit, StepReview, StepPaymentHandoff:
		return nil
	}
	return &ValidationError{Field: "step", Reason: "unknown step"}
}

func requireContact(form model.Payload) *ValidationError {
	if strings.TrimSpace(form.FirstName) == "" {
		return missing("first_name")
	}
	if strings.TrimSpace(form.LastName) == "" {
		return missing("last_name")
	}
	if !isValidEmail(form.Email) {
		return &ValidationError{Field: "email", Reason: "valid email required"}
	}
	if strings.TrimSpace(form.Phone) == "" {
		return missing("phone")
	}
	return nil
}

// isValidEmail checks the rough shape of an address; deliverability is
// the notification service's problem.
func isValidEmail(email string) bool {
	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return false
	}
	return len(parts[0]) > 0 && strings.Contains(parts[1], ".")
}
