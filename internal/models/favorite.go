package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Favorite is one entry of a user's favorites ledger. The (user_id,
// listing_id) pair is unique-indexed, which makes adds idempotent.
type Favorite struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	UserID    primitive.ObjectID `bson:"user_id" json:"user_id"`
	ListingID primitive.ObjectID `bson:"listing_id" json:"listing_id"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
}
