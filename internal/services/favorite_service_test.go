package services_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"swisswheels/app/internal/services"
)

func TestFavoriteService_AddIsIdempotent(t *testing.T) {
	database := setupTestDB(t, "swisswheels_test_favorites", "favorites")
	svc := services.NewFavoriteService(database, nil)
	ctx := context.Background()

	userID := primitive.NewObjectID()
	listingID := primitive.NewObjectID()

	require.NoError(t, svc.Add(ctx, userID, listingID))
	// Second add hits the unique index and is swallowed.
	require.NoError(t, svc.Add(ctx, userID, listingID))

	favorites, err := svc.ListByUser(ctx, userID)
	require.NoError(t, err)
	assert.Len(t, favorites, 1)
	assert.Equal(t, listingID, favorites[0].ListingID)
}

func TestFavoriteService_RemoveAbsentIsNoOp(t *testing.T) {
	database := setupTestDB(t, "swisswheels_test_favorites", "favorites")
	svc := services.NewFavoriteService(database, nil)
	ctx := context.Background()

	userID := primitive.NewObjectID()
	listingID := primitive.NewObjectID()

	require.NoError(t, svc.Remove(ctx, userID, listingID))

	require.NoError(t, svc.Add(ctx, userID, listingID))
	require.NoError(t, svc.Remove(ctx, userID, listingID))

	exists, err := svc.Exists(ctx, userID, listingID)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestFavoriteService_LedgersAreSeparatePerUser(t *testing.T) {
	database := setupTestDB(t, "swisswheels_test_favorites", "favorites")
	svc := services.NewFavoriteService(database, nil)
	ctx := context.Background()

	alice := primitive.NewObjectID()
	bob := primitive.NewObjectID()
	listingID := primitive.NewObjectID()

	require.NoError(t, svc.Add(ctx, alice, listingID))
	require.NoError(t, svc.Add(ctx, bob, listingID))

	ids, err := svc.ListingIDsByUser(ctx, alice)
	require.NoError(t, err)
	assert.True(t, ids[listingID])

	require.NoError(t, svc.Remove(ctx, alice, listingID))

	existsBob, err := svc.Exists(ctx, bob, listingID)
	require.NoError(t, err)
	assert.True(t, existsBob)
}
