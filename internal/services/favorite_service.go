package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"swisswheels/app/internal/db"
	"swisswheels/app/internal/models"
	"swisswheels/app/internal/realtime"
)

// IFavoriteService defines the interface for the per-user favorites ledger.
type IFavoriteService interface {
	Add(ctx context.Context, userID, listingID primitive.ObjectID) error
	Remove(ctx context.Context, userID, listingID primitive.ObjectID) error
	Exists(ctx context.Context, userID, listingID primitive.ObjectID) (bool, error)
	ListByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Favorite, error)
	ListingIDsByUser(ctx context.Context, userID primitive.ObjectID) (map[primitive.ObjectID]bool, error)
}

const favoritesCollection = "favorites"

// favoriteService implements IFavoriteService.
type favoriteService struct {
	db     *mongo.Database
	broker realtime.Broker
}

// NewFavoriteService creates a new FavoriteService.
func NewFavoriteService(database *mongo.Database, broker realtime.Broker) IFavoriteService {
	return &favoriteService{db: database, broker: broker}
}

// Add puts a listing on the user's ledger. Adding an already-favorited
// listing is a no-op; the unique (user_id, listing_id) index enforces that.
func (s *favoriteService) Add(ctx context.Context, userID, listingID primitive.ObjectID) error {
	fav := models.Favorite{
		ID:        primitive.NewObjectID(),
		UserID:    userID,
		ListingID: listingID,
		CreatedAt: time.Now().UTC(),
	}
	_, err := s.db.Collection(favoritesCollection).InsertOne(ctx, fav)
	if err != nil {
		if db.IsDuplicateKeyError(err) {
			return nil
		}
		return fmt.Errorf("failed to add favorite %s for user %s: %w", listingID.Hex(), userID.Hex(), err)
	}

	s.publish(ctx, realtime.EventFavorited, userID, listingID)
	return nil
}

// Remove takes a listing off the user's ledger. Removing an absent entry is
// a no-op.
func (s *favoriteService) Remove(ctx context.Context, userID, listingID primitive.ObjectID) error {
	result, err := s.db.Collection(favoritesCollection).DeleteOne(ctx, bson.M{
		"user_id":    userID,
		"listing_id": listingID,
	})
	if err != nil {
		return fmt.Errorf("failed to remove favorite %s for user %s: %w", listingID.Hex(), userID.Hex(), err)
	}
	if result.DeletedCount == 0 {
		return nil
	}

	s.publish(ctx, realtime.EventUnfavorited, userID, listingID)
	return nil
}

// Exists reports whether the listing is on the user's ledger.
func (s *favoriteService) Exists(ctx context.Context, userID, listingID primitive.ObjectID) (bool, error) {
	err := s.db.Collection(favoritesCollection).FindOne(ctx, bson.M{
		"user_id":    userID,
		"listing_id": listingID,
	}).Err()
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check favorite %s for user %s: %w", listingID.Hex(), userID.Hex(), err)
	}
	return true, nil
}

// ListByUser returns the user's ledger, most recently added first.
func (s *favoriteService) ListByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Favorite, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cur, err := s.db.Collection(favoritesCollection).Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query favorites for user %s: %w", userID.Hex(), err)
	}
	defer cur.Close(ctx)

	var favorites []models.Favorite
	if err = cur.All(ctx, &favorites); err != nil {
		return nil, fmt.Errorf("failed to decode favorites for user %s: %w", userID.Hex(), err)
	}
	return favorites, nil
}

// ListingIDsByUser returns the set of listing IDs on the user's ledger.
// The discovery queue uses it to exclude already-liked listings.
func (s *favoriteService) ListingIDsByUser(ctx context.Context, userID primitive.ObjectID) (map[primitive.ObjectID]bool, error) {
	favorites, err := s.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	ids := make(map[primitive.ObjectID]bool, len(favorites))
	for _, f := range favorites {
		ids[f.ListingID] = true
	}
	return ids, nil
}

func (s *favoriteService) publish(ctx context.Context, kind string, userID, listingID primitive.ObjectID) {
	if s.broker == nil {
		return
	}
	ev := realtime.Event{
		Kind:      kind,
		ListingID: listingID.Hex(),
		UserID:    userID.Hex(),
		At:        time.Now().UTC(),
	}
	if err := s.broker.Publish(ctx, realtime.TopicFavorites(userID.Hex()), ev); err != nil {
		log.Printf("WARN: failed to publish favorite event %s/%s: %v", kind, listingID.Hex(), err)
	}
}
