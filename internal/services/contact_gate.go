package services

import (
	"swisswheels/app/internal/models"
)

// Required next steps returned by the contact gate when the viewer may not
// see contact methods yet.
const (
	StepSignIn      = "sign_in"
	StepVerifyPhone = "verify_phone"
)

// ContactDecision lists the contact affordances to render for a listing's
// seller, or the step the viewer must complete first.
type ContactDecision struct {
	RequiredStep string `json:"required_step,omitempty"`
	ShowEmail    bool   `json:"show_email"`
	Email        string `json:"email,omitempty"`
	ShowCall     bool   `json:"show_call"`
	ShowWhatsApp bool   `json:"show_whatsapp"`
	Phone        string `json:"phone,omitempty"`
}

// DecideContact is the contact gate: a pure display-gating decision tree.
// The verification mechanics themselves live in the verification service.
//
// Viewers without a verified phone see nothing except the step they must
// complete. Verified viewers see contact methods according to the seller's
// own sharing preference and account kind: professional sellers get a call
// affordance, private sellers a WhatsApp affordance, and an email affordance
// is offered whenever the seller record has an email.
func DecideContact(viewer models.VerificationState, seller *models.UserProfile) ContactDecision {
	switch viewer {
	case models.ViewerUnauthenticated:
		return ContactDecision{RequiredStep: StepSignIn}
	case models.ViewerAnonymous, models.ViewerUnverified:
		return ContactDecision{RequiredStep: StepVerifyPhone}
	}

	d := ContactDecision{}
	if seller.Email != "" {
		d.ShowEmail = true
		d.Email = seller.Email
	}
	if seller.SharePhoneNumber && seller.Phone != "" {
		d.Phone = seller.Phone
		if seller.AccountType == models.AccountProfessionnel {
			d.ShowCall = true
		} else {
			d.ShowWhatsApp = true
		}
	}
	return d
}
