package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ModerationStatus controls public visibility of a listing.
type ModerationStatus string

const (
	StatusPending  ModerationStatus = "pending"
	StatusApproved ModerationStatus = "approved"
	StatusRejected ModerationStatus = "rejected"
)

// Listing represents a vehicle-for-sale record.
type Listing struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	UserID        primitive.ObjectID `bson:"user_id" json:"user_id"`
	Make          string             `bson:"make" json:"make"`
	Model         string             `bson:"model" json:"model"`
	Year          int                `bson:"year" json:"year"`
	Price         int                `bson:"price" json:"price"` // CHF
	Mileage       int                `bson:"mileage" json:"mileage"`
	Fuel          FuelType           `bson:"fuel" json:"fuel"`
	Gearbox       Gearbox            `bson:"gearbox" json:"gearbox"`
	Canton        string             `bson:"canton" json:"canton"`
	Description   string             `bson:"description" json:"description"`
	Features      []string           `bson:"features" json:"features"`
	Images        []string           `bson:"images" json:"images"` // S3 keys
	Doors         int                `bson:"doors" json:"doors"`
	Seats         int                `bson:"seats" json:"seats"`
	Drive         DriveType          `bson:"drive" json:"drive"`
	PowerValue    int                `bson:"power_value" json:"power_value"`
	PowerUnit     PowerUnit          `bson:"power_unit" json:"power_unit"`
	ExteriorColor Color              `bson:"exterior_color" json:"exterior_color"`
	InteriorColor Color              `bson:"interior_color" json:"interior_color"`
	Condition     Condition          `bson:"condition" json:"condition"`
	NonSmoker     bool               `bson:"non_smoker" json:"non_smoker"`
	Published     bool               `bson:"published" json:"published"`
	Status        ModerationStatus   `bson:"status" json:"status"`
	CreatedAt     time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt     time.Time          `bson:"updated_at" json:"updated_at"`
}

// IsPubliclyVisible reports whether the listing may appear on browse/swipe surfaces.
func (l *Listing) IsPubliclyVisible() bool {
	return l.Published && l.Status == StatusApproved
}

// ArchivedListing is the soft-archive copy written when an owner deletes a listing.
type ArchivedListing struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	Listing        Listing            `bson:"listing" json:"listing"`
	DeletionReason string             `bson:"deletion_reason" json:"deletion_reason"`
	DeletedAt      time.Time          `bson:"deleted_at" json:"deleted_at"`
}
