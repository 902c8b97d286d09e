package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AccountType distinguishes private sellers from dealerships.
type AccountType string

const (
	AccountParticulier   AccountType = "particulier"
	AccountProfessionnel AccountType = "professionnel"
)

// UserProfile represents a user in the system. The ID doubles as the auth identity.
// Company fields are only meaningful for professionnel accounts; the user
// service clears them when the account switches back to particulier.
type UserProfile struct {
	ID               primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	Email            string             `bson:"email" json:"email"`
	DisplayName      string             `bson:"display_name" json:"display_name"`
	Phone            string             `bson:"phone" json:"phone"`
	SharePhoneNumber bool               `bson:"share_phone_number" json:"share_phone_number"`
	AccountType      AccountType        `bson:"account_type" json:"account_type"`
	CompanyName      string             `bson:"company_name,omitempty" json:"company_name,omitempty"`
	CompanyAddress   string             `bson:"company_address,omitempty" json:"company_address,omitempty"`
	CompanyWebsite   string             `bson:"company_website,omitempty" json:"company_website,omitempty"`
	PasswordHash     string             `bson:"password,omitempty" json:"-"`
	Anonymous        bool               `bson:"anonymous" json:"anonymous"`
	PhoneVerified    bool               `bson:"phone_verified" json:"phone_verified"`
	IsAdmin          bool               `bson:"is_admin" json:"is_admin"`
	CreatedAt        time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt        time.Time          `bson:"updated_at" json:"updated_at"`
}

// VerificationState is the viewer-side state consumed by the contact gate.
type VerificationState string

const (
	// ViewerUnauthenticated means no session at all.
	ViewerUnauthenticated VerificationState = "unauthenticated"
	// ViewerAnonymous means an anonymous session without a verified phone.
	ViewerAnonymous VerificationState = "anonymous"
	// ViewerUnverified means a full session whose phone is not verified yet.
	ViewerUnverified VerificationState = "unverified"
	// ViewerVerified means the phone has been verified.
	ViewerVerified VerificationState = "verified"
)

// ViewerStateOf derives the verification state for a session.
func ViewerStateOf(authenticated, anonymous, phoneVerified bool) VerificationState {
	switch {
	case !authenticated:
		return ViewerUnauthenticated
	case phoneVerified:
		return ViewerVerified
	case anonymous:
		return ViewerAnonymous
	default:
		return ViewerUnverified
	}
}
