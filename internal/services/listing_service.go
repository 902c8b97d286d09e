package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"swisswheels/app/internal/config"
	"swisswheels/app/internal/db"
	"swisswheels/app/internal/models"
	"swisswheels/app/internal/realtime"
)

// IListingService defines the interface for listing-related operations.
type IListingService interface {
	CreateListing(ctx context.Context, userID primitive.ObjectID, input ListingInput) (*models.Listing, error)
	FindListingByID(ctx context.Context, listingID primitive.ObjectID) (*models.Listing, error)
	FindListingForViewer(ctx context.Context, listingID, viewerID primitive.ObjectID, isAdmin bool) (*models.Listing, error)
	SearchListings(ctx context.Context, criteria *models.FilterCriteria, limit int, cursor string) ([]models.Listing, string, error)
	AllVisibleListings(ctx context.Context) ([]models.Listing, error)
	ModelsForMake(ctx context.Context, vehicleMake string) ([]string, error)
	UpdateListing(ctx context.Context, listingID, userID primitive.ObjectID, input ListingInput) (*models.Listing, error)
	SetPublished(ctx context.Context, listingID, userID primitive.ObjectID, published bool) error
	DeleteListing(ctx context.Context, listingID, userID primitive.ObjectID, reason string) error
	ApproveListing(ctx context.Context, listingID primitive.ObjectID) error
	RejectListing(ctx context.Context, listingID primitive.ObjectID) error
	FindPendingListings(ctx context.Context, limit int) ([]models.Listing, error)
	FindListingsByUserID(ctx context.Context, userID primitive.ObjectID) ([]models.Listing, error)
	AddImageToListing(ctx context.Context, listingID primitive.ObjectID, imageKey string) error
}

const (
	listingsCollection = "listings"
	archiveCollection  = "listings_archive"
)

// ListingInput carries the fields of the sell/edit form. Create and edit use
// the same shape.
type ListingInput struct {
	Make          string            `json:"make"`
	Model         string            `json:"model"`
	Year          int               `json:"year"`
	Price         int               `json:"price"`
	Mileage       int               `json:"mileage"`
	Fuel          models.FuelType   `json:"fuel"`
	Gearbox       models.Gearbox    `json:"gearbox"`
	Canton        string            `json:"canton"`
	Description   string            `json:"description"`
	Features      []string          `json:"features"`
	Doors         int               `json:"doors"`
	Seats         int               `json:"seats"`
	Drive         models.DriveType  `json:"drive"`
	PowerValue    int               `json:"power_value"`
	PowerUnit     models.PowerUnit  `json:"power_unit"`
	ExteriorColor models.Color      `json:"exterior_color"`
	InteriorColor models.Color      `json:"interior_color"`
	Condition     models.Condition  `json:"condition"`
	NonSmoker     bool              `json:"non_smoker"`
}

// Validate reports form problems field-by-field.
func (in *ListingInput) Validate() FieldErrors {
	fe := FieldErrors{}
	if strings.TrimSpace(in.Make) == "" {
		fe["make"] = "make is required"
	}
	if strings.TrimSpace(in.Model) == "" {
		fe["model"] = "model is required"
	}
	currentYear := time.Now().Year()
	if in.Year < 1900 || in.Year > currentYear+1 {
		fe["year"] = fmt.Sprintf("year must be between 1900 and %d", currentYear+1)
	}
	if in.Price <= 0 {
		fe["price"] = "price must be positive"
	}
	if in.Mileage < 0 {
		fe["mileage"] = "mileage cannot be negative"
	}
	if !models.IsValidFuelType(in.Fuel) {
		fe["fuel"] = "unknown fuel type"
	}
	if !models.IsValidGearbox(in.Gearbox) {
		fe["gearbox"] = "unknown gearbox"
	}
	if !models.IsValidCanton(in.Canton) {
		fe["canton"] = "unknown canton"
	}
	if !models.IsValidDoorCount(in.Doors) {
		fe["doors"] = "doors must be 3 or 5"
	}
	if !models.IsValidSeatCount(in.Seats) {
		fe["seats"] = "seats must be 2, 5 or 7"
	}
	if !models.IsValidDriveType(in.Drive) {
		fe["drive"] = "unknown drive type"
	}
	if in.PowerValue <= 0 {
		fe["power_value"] = "power must be positive"
	}
	if in.PowerUnit != models.PowerCh && in.PowerUnit != models.PowerKw {
		fe["power_unit"] = "power unit must be ch or kW"
	}
	if !models.IsValidColor(in.ExteriorColor) {
		fe["exterior_color"] = "unknown color"
	}
	if !models.IsValidColor(in.InteriorColor) {
		fe["interior_color"] = "unknown color"
	}
	if !models.IsValidCondition(in.Condition) {
		fe["condition"] = "unknown condition"
	}
	if len(fe) > 0 {
		return fe
	}
	return nil
}

// listingService implements IListingService.
type listingService struct {
	db     *mongo.Database
	cfg    *config.Config
	rdb    *redis.Client
	broker realtime.Broker
}

// NewListingService creates a new ListingService. rdb may be nil to disable
// the read cache.
func NewListingService(db *mongo.Database, cfg *config.Config, rdb *redis.Client, broker realtime.Broker) IListingService {
	return &listingService{db: db, cfg: cfg, rdb: rdb, broker: broker}
}

// CreateListing inserts a new listing. New listings start unpublished and
// pending moderation.
func (s *listingService) CreateListing(ctx context.Context, userID primitive.ObjectID, input ListingInput) (*models.Listing, error) {
	if fe := input.Validate(); fe != nil {
		return nil, fe
	}

	now := time.Now().UTC()
	listing := &models.Listing{
		UserID:        userID,
		Make:          input.Make,
		Model:         input.Model,
		Year:          input.Year,
		Price:         input.Price,
		Mileage:       input.Mileage,
		Fuel:          input.Fuel,
		Gearbox:       input.Gearbox,
		Canton:        input.Canton,
		Description:   input.Description,
		Features:      input.Features,
		Images:        []string{},
		Doors:         input.Doors,
		Seats:         input.Seats,
		Drive:         input.Drive,
		PowerValue:    input.PowerValue,
		PowerUnit:     input.PowerUnit,
		ExteriorColor: input.ExteriorColor,
		InteriorColor: input.InteriorColor,
		Condition:     input.Condition,
		NonSmoker:     input.NonSmoker,
		Published:     false,
		Status:        models.StatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if listing.Features == nil {
		listing.Features = []string{}
	}

	err := db.Try(func() error {
		listing.ID = primitive.NewObjectID()
		_, err := s.db.Collection(listingsCollection).InsertOne(ctx, listing)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to insert listing for user %s: %w", userID.Hex(), err)
	}

	s.publish(ctx, realtime.EventCreated, listing.ID)
	return listing, nil
}

// FindListingByID returns a publicly visible listing.
func (s *listingService) FindListingByID(ctx context.Context, listingID primitive.ObjectID) (*models.Listing, error) {
	if cached := s.cacheGet(ctx, listingID); cached != nil {
		return cached, nil
	}

	var listing models.Listing
	filter := bson.M{
		"_id":       listingID,
		"published": true,
		"status":    models.StatusApproved,
	}
	err := s.db.Collection(listingsCollection).FindOne(ctx, filter).Decode(&listing)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("error finding listing %s: %w", listingID.Hex(), err)
	}

	s.cacheSet(ctx, &listing)
	return &listing, nil
}

// FindListingForViewer returns a listing applying visibility rules: anyone
// may read an approved published listing, the owner and admins may also read
// unapproved or unpublished ones.
func (s *listingService) FindListingForViewer(ctx context.Context, listingID, viewerID primitive.ObjectID, isAdmin bool) (*models.Listing, error) {
	var listing models.Listing
	err := s.db.Collection(listingsCollection).FindOne(ctx, bson.M{"_id": listingID}).Decode(&listing)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("error finding listing %s: %w", listingID.Hex(), err)
	}

	if listing.IsPubliclyVisible() || listing.UserID == viewerID || isAdmin {
		return &listing, nil
	}
	return nil, ErrNotFound
}

// SearchListings queries publicly visible listings matching the criteria,
// newest first, with cursor pagination.
func (s *listingService) SearchListings(ctx context.Context, criteria *models.FilterCriteria, limit int, cursor string) ([]models.Listing, string, error) {
	filter := MongoFilterFor(criteria)

	if cursor != "" {
		if cursorTime, lastID, ok := parseCursor(cursor); ok {
			filter["$or"] = bson.A{
				bson.M{"created_at": cursorTime, "_id": bson.M{"$lt": lastID}},
				bson.M{"created_at": bson.M{"$lt": cursorTime}},
			}
		} else {
			log.Printf("WARN: invalid search cursor received: %s", cursor)
		}
	}

	opts := options.Find().
		SetLimit(int64(limit + 1)).
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})

	cur, err := s.db.Collection(listingsCollection).Find(ctx, filter, opts)
	if err != nil {
		return nil, "", fmt.Errorf("failed to execute listing search: %w", err)
	}
	defer cur.Close(ctx)

	var results []models.Listing
	if err = cur.All(ctx, &results); err != nil {
		return nil, "", fmt.Errorf("failed to decode listing search results: %w", err)
	}

	nextCursor := ""
	if len(results) > limit {
		last := results[limit-1]
		nextCursor = fmt.Sprintf("%d_%s", last.CreatedAt.UnixMilli(), last.ID.Hex())
		results = results[:limit]
	}
	return results, nextCursor, nil
}

// parseCursor decodes a "<unixMilli>_<hexID>" search cursor. Milliseconds
// match the precision Mongo stores for created_at; anything coarser would
// skip listings created between the truncated cursor time and the real one.
func parseCursor(cursor string) (time.Time, primitive.ObjectID, bool) {
	parts := strings.Split(cursor, "_")
	if len(parts) != 2 {
		return time.Time{}, primitive.NilObjectID, false
	}
	millis, tsErr := strconv.ParseInt(parts[0], 10, 64)
	lastID, idErr := primitive.ObjectIDFromHex(parts[1])
	if tsErr != nil || idErr != nil {
		return time.Time{}, primitive.NilObjectID, false
	}
	return time.UnixMilli(millis).UTC(), lastID, true
}

// AllVisibleListings returns every publicly visible listing, newest first.
// Feeds the discovery queue and the model-narrowing of the filter form.
func (s *listingService) AllVisibleListings(ctx context.Context) ([]models.Listing, error) {
	filter := bson.M{"published": true, "status": models.StatusApproved}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cur, err := s.db.Collection(listingsCollection).Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query visible listings: %w", err)
	}
	defer cur.Close(ctx)

	var listings []models.Listing
	if err = cur.All(ctx, &listings); err != nil {
		return nil, fmt.Errorf("failed to decode visible listings: %w", err)
	}
	return listings, nil
}

// ModelsForMake returns the models observed among visible listings of a make.
func (s *listingService) ModelsForMake(ctx context.Context, vehicleMake string) ([]string, error) {
	values, err := s.db.Collection(listingsCollection).Distinct(ctx, "model", bson.M{
		"published": true,
		"status":    models.StatusApproved,
		"make":      vehicleMake,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query models for make %s: %w", vehicleMake, err)
	}
	result := make([]string, 0, len(values))
	for _, v := range values {
		if m, ok := v.(string); ok && m != "" {
			result = append(result, m)
		}
	}
	return result, nil
}

// UpdateListing replaces the mutable fields of a listing owned by userID.
// The edit form has the same shape as the sell form. Moderation status is
// not touched here; status transitions go through Approve/RejectListing.
func (s *listingService) UpdateListing(ctx context.Context, listingID, userID primitive.ObjectID, input ListingInput) (*models.Listing, error) {
	if fe := input.Validate(); fe != nil {
		return nil, fe
	}

	filter := bson.M{"_id": listingID, "user_id": userID}
	update := bson.M{"$set": bson.M{
		"make":           input.Make,
		"model":          input.Model,
		"year":           input.Year,
		"price":          input.Price,
		"mileage":        input.Mileage,
		"fuel":           input.Fuel,
		"gearbox":        input.Gearbox,
		"canton":         input.Canton,
		"description":    input.Description,
		"features":       input.Features,
		"doors":          input.Doors,
		"seats":          input.Seats,
		"drive":          input.Drive,
		"power_value":    input.PowerValue,
		"power_unit":     input.PowerUnit,
		"exterior_color": input.ExteriorColor,
		"interior_color": input.InteriorColor,
		"condition":      input.Condition,
		"non_smoker":     input.NonSmoker,
		"updated_at":     time.Now().UTC(),
	}}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var updated models.Listing
	err := s.db.Collection(listingsCollection).FindOneAndUpdate(ctx, filter, update, opts).Decode(&updated)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, s.explainOwnershipFailure(ctx, listingID, userID)
		}
		return nil, fmt.Errorf("failed to update listing %s: %w", listingID.Hex(), err)
	}

	s.cacheInvalidate(ctx, listingID)
	s.publish(ctx, realtime.EventUpdated, listingID)
	return &updated, nil
}

// SetPublished toggles the publication flag of a listing owned by userID.
func (s *listingService) SetPublished(ctx context.Context, listingID, userID primitive.ObjectID, published bool) error {
	filter := bson.M{"_id": listingID, "user_id": userID}
	update := bson.M{"$set": bson.M{"published": published, "updated_at": time.Now().UTC()}}

	result, err := s.db.Collection(listingsCollection).UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("db error publishing listing %s: %w", listingID.Hex(), err)
	}
	if result.MatchedCount == 0 {
		return s.explainOwnershipFailure(ctx, listingID, userID)
	}

	s.cacheInvalidate(ctx, listingID)
	s.publish(ctx, realtime.EventUpdated, listingID)
	return nil
}

// DeleteListing soft-archives a listing: it copies the record to the archive
// collection with the supplied deletion reason, then removes the live record.
// Exactly one archive record is written per deletion.
func (s *listingService) DeleteListing(ctx context.Context, listingID, userID primitive.ObjectID, reason string) error {
	var listing models.Listing
	err := s.db.Collection(listingsCollection).FindOne(ctx, bson.M{"_id": listingID}).Decode(&listing)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return ErrNotFound
		}
		return fmt.Errorf("error finding listing %s for deletion: %w", listingID.Hex(), err)
	}
	if listing.UserID != userID {
		return ErrForbidden
	}

	archived := models.ArchivedListing{
		ID:             primitive.NewObjectID(),
		Listing:        listing,
		DeletionReason: reason,
		DeletedAt:      time.Now().UTC(),
	}
	if _, err := s.db.Collection(archiveCollection).InsertOne(ctx, archived); err != nil {
		return fmt.Errorf("failed to archive listing %s: %w", listingID.Hex(), err)
	}

	result, err := s.db.Collection(listingsCollection).DeleteOne(ctx, bson.M{"_id": listingID, "user_id": userID})
	if err != nil {
		return fmt.Errorf("failed to delete listing %s after archiving: %w", listingID.Hex(), err)
	}
	if result.DeletedCount == 0 {
		// Already gone; the archive record stands as the tombstone.
		log.Printf("WARN: listing %s vanished between archive and delete", listingID.Hex())
	}

	s.cacheInvalidate(ctx, listingID)
	s.publish(ctx, realtime.EventDeleted, listingID)
	return nil
}

// ApproveListing marks a pending listing as approved (moderation surface).
func (s *listingService) ApproveListing(ctx context.Context, listingID primitive.ObjectID) error {
	return s.setStatus(ctx, listingID, models.StatusApproved)
}

// RejectListing marks a listing as rejected (moderation surface).
func (s *listingService) RejectListing(ctx context.Context, listingID primitive.ObjectID) error {
	return s.setStatus(ctx, listingID, models.StatusRejected)
}

func (s *listingService) setStatus(ctx context.Context, listingID primitive.ObjectID, status models.ModerationStatus) error {
	update := bson.M{"$set": bson.M{"status": status, "updated_at": time.Now().UTC()}}
	result, err := s.db.Collection(listingsCollection).UpdateOne(ctx, bson.M{"_id": listingID}, update)
	if err != nil {
		return fmt.Errorf("db error setting status of listing %s: %w", listingID.Hex(), err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}

	s.cacheInvalidate(ctx, listingID)
	s.publish(ctx, realtime.EventUpdated, listingID)
	return nil
}

// FindPendingListings returns the moderation queue, oldest first.
func (s *listingService) FindPendingListings(ctx context.Context, limit int) ([]models.Listing, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: 1}}).
		SetLimit(int64(limit))
	cur, err := s.db.Collection(listingsCollection).Find(ctx, bson.M{"status": models.StatusPending}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending listings: %w", err)
	}
	defer cur.Close(ctx)

	var listings []models.Listing
	if err = cur.All(ctx, &listings); err != nil {
		return nil, fmt.Errorf("failed to decode pending listings: %w", err)
	}
	return listings, nil
}

// FindListingsByUserID returns all of a user's listings, including pending
// and unpublished ones. Owner-only surface.
func (s *listingService) FindListingsByUserID(ctx context.Context, userID primitive.ObjectID) ([]models.Listing, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cur, err := s.db.Collection(listingsCollection).Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query listings for user %s: %w", userID.Hex(), err)
	}
	defer cur.Close(ctx)

	var listings []models.Listing
	if err = cur.All(ctx, &listings); err != nil {
		return nil, fmt.Errorf("failed to decode listings for user %s: %w", userID.Hex(), err)
	}
	return listings, nil
}

// AddImageToListing appends a processed image key to a listing's image list.
// Called by the image worker once processing completes.
func (s *listingService) AddImageToListing(ctx context.Context, listingID primitive.ObjectID, imageKey string) error {
	update := bson.M{
		"$addToSet": bson.M{"images": imageKey},
		"$set":      bson.M{"updated_at": time.Now().UTC()},
	}
	result, err := s.db.Collection(listingsCollection).UpdateOne(ctx, bson.M{"_id": listingID}, update)
	if err != nil {
		return fmt.Errorf("db error adding image %s to listing %s: %w", imageKey, listingID.Hex(), err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}

	s.cacheInvalidate(ctx, listingID)
	s.publish(ctx, realtime.EventUpdated, listingID)
	return nil
}

// explainOwnershipFailure distinguishes "not found" from "not yours" after a
// guarded update matched nothing.
func (s *listingService) explainOwnershipFailure(ctx context.Context, listingID, userID primitive.ObjectID) error {
	var listing models.Listing
	err := s.db.Collection(listingsCollection).FindOne(ctx, bson.M{"_id": listingID}).Decode(&listing)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("error checking listing %s: %w", listingID.Hex(), err)
	}
	if listing.UserID != userID {
		return ErrForbidden
	}
	return fmt.Errorf("listing %s could not be updated", listingID.Hex())
}

// --- read cache ---

func (s *listingService) cacheKey(id primitive.ObjectID) string {
	return "listing:" + id.Hex()
}

func (s *listingService) cacheGet(ctx context.Context, id primitive.ObjectID) *models.Listing {
	if s.rdb == nil {
		return nil
	}
	data, err := s.rdb.Get(ctx, s.cacheKey(id)).Bytes()
	if err != nil {
		return nil // miss or Redis unavailable; fall through to Mongo
	}
	var listing models.Listing
	if err := json.Unmarshal(data, &listing); err != nil {
		return nil
	}
	return &listing
}

func (s *listingService) cacheSet(ctx context.Context, listing *models.Listing) {
	if s.rdb == nil {
		return
	}
	data, err := json.Marshal(listing)
	if err != nil {
		return
	}
	if err := s.rdb.Set(ctx, s.cacheKey(listing.ID), data, s.cfg.GetCacheTTL).Err(); err != nil {
		log.Printf("WARN: failed to cache listing %s: %v", listing.ID.Hex(), err)
	}
}

func (s *listingService) cacheInvalidate(ctx context.Context, id primitive.ObjectID) {
	if s.rdb == nil {
		return
	}
	if err := s.rdb.Del(ctx, s.cacheKey(id)).Err(); err != nil {
		log.Printf("WARN: failed to invalidate listing cache %s: %v", id.Hex(), err)
	}
}

func (s *listingService) publish(ctx context.Context, kind string, listingID primitive.ObjectID) {
	if s.broker == nil {
		return
	}
	ev := realtime.Event{Kind: kind, ListingID: listingID.Hex(), At: time.Now().UTC()}
	if err := s.broker.Publish(ctx, realtime.TopicListings, ev); err != nil {
		log.Printf("WARN: failed to publish listing event %s/%s: %v", kind, listingID.Hex(), err)
	}
}
