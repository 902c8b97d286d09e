package services_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"swisswheels/app/internal/config"
	"swisswheels/app/internal/models"
	"swisswheels/app/internal/services"
)

func TestListingService_DeleteWritesExactlyOneArchiveRecord(t *testing.T) {
	database := setupTestDB(t, "swisswheels_test_listings", "listings", "listings_archive")
	svc := services.NewListingService(database, &config.Config{}, nil, nil)
	ctx := context.Background()

	owner := primitive.NewObjectID()
	listing, err := svc.CreateListing(ctx, owner, validInput())
	require.NoError(t, err)

	// A non-owner is refused and nothing is archived.
	err = svc.DeleteListing(ctx, listing.ID, primitive.NewObjectID(), "sold")
	assert.ErrorIs(t, err, services.ErrForbidden)
	count, err := database.Collection("listings_archive").CountDocuments(ctx, bson.M{})
	require.NoError(t, err)
	assert.Zero(t, count)

	require.NoError(t, svc.DeleteListing(ctx, listing.ID, owner, "vendu ailleurs"))

	count, err = database.Collection("listings_archive").CountDocuments(ctx, bson.M{"listing._id": listing.ID})
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)

	var archived models.ArchivedListing
	require.NoError(t, database.Collection("listings_archive").
		FindOne(ctx, bson.M{"listing._id": listing.ID}).Decode(&archived))
	assert.Equal(t, "vendu ailleurs", archived.DeletionReason)
	assert.Equal(t, owner, archived.Listing.UserID)
	assert.False(t, archived.DeletedAt.IsZero())

	// The live record is gone, even for the owner.
	_, err = svc.FindListingForViewer(ctx, listing.ID, owner, false)
	assert.ErrorIs(t, err, services.ErrNotFound)

	// Deleting again finds nothing and writes no second archive record.
	assert.ErrorIs(t, svc.DeleteListing(ctx, listing.ID, owner, "encore"), services.ErrNotFound)
	count, err = database.Collection("listings_archive").CountDocuments(ctx, bson.M{"listing._id": listing.ID})
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
}
