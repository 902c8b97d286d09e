package services_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"swisswheels/app/internal/models"
	"swisswheels/app/internal/services"
)

// stubListingService serves a fixed pool of visible listings.
type stubListingService struct {
	services.IListingService
	pool []models.Listing
}

func (s *stubListingService) AllVisibleListings(context.Context) ([]models.Listing, error) {
	return s.pool, nil
}

// stubFavoriteService keeps the ledger in a map.
type stubFavoriteService struct {
	services.IFavoriteService
	favorites map[primitive.ObjectID]bool
}

func (s *stubFavoriteService) Add(_ context.Context, _, listingID primitive.ObjectID) error {
	s.favorites[listingID] = true
	return nil
}

func (s *stubFavoriteService) ListingIDsByUser(context.Context, primitive.ObjectID) (map[primitive.ObjectID]bool, error) {
	return s.favorites, nil
}

func TestCandidateQueue_Exclusions(t *testing.T) {
	viewer := primitive.NewObjectID()

	own := sampleListing()
	own.UserID = viewer
	favorited := sampleListing()
	seen := sampleListing()
	fresh := sampleListing()

	pool := []models.Listing{own, favorited, seen, fresh}
	favorites := map[primitive.ObjectID]bool{favorited.ID: true}
	seenSet := map[string]bool{seen.ID.Hex(): true}

	candidates := services.CandidateQueue(pool, viewer, nil, favorites, seenSet)

	require.Len(t, candidates, 1)
	assert.Equal(t, fresh.ID, candidates[0].ID)
}

func TestCandidateQueue_AppliesCriteria(t *testing.T) {
	viewer := primitive.NewObjectID()
	audi := sampleListing()
	bmw := sampleListing()
	bmw.Make = "BMW"

	candidates := services.CandidateQueue(
		[]models.Listing{audi, bmw}, viewer,
		&models.FilterCriteria{Make: "BMW"}, nil, nil,
	)

	require.Len(t, candidates, 1)
	assert.Equal(t, bmw.ID, candidates[0].ID)
}

func TestDiscovery_PassShrinksTheDeckUntilExhausted(t *testing.T) {
	ctx := context.Background()
	viewer := primitive.NewObjectID()
	first := sampleListing()
	second := sampleListing()

	svc := services.NewDiscoveryService(
		&stubListingService{pool: []models.Listing{first, second}},
		&stubFavoriteService{favorites: map[primitive.ObjectID]bool{}},
		services.NewMemorySeenStore(),
	)

	next, err := svc.Next(ctx, viewer, nil)
	require.NoError(t, err)
	assert.Equal(t, first.ID, next.ID)

	require.NoError(t, svc.Pass(ctx, viewer, first.ID))
	next, err = svc.Next(ctx, viewer, nil)
	require.NoError(t, err)
	assert.Equal(t, second.ID, next.ID)

	require.NoError(t, svc.Pass(ctx, viewer, second.ID))
	_, err = svc.Next(ctx, viewer, nil)
	assert.ErrorIs(t, err, services.ErrDeckExhausted)
}

func TestDiscovery_LikeFavoritesAndRemovesFromDeck(t *testing.T) {
	ctx := context.Background()
	viewer := primitive.NewObjectID()
	listing := sampleListing()
	favorites := &stubFavoriteService{favorites: map[primitive.ObjectID]bool{}}

	svc := services.NewDiscoveryService(
		&stubListingService{pool: []models.Listing{listing}},
		favorites,
		services.NewMemorySeenStore(),
	)

	require.NoError(t, svc.Like(ctx, viewer, listing.ID))
	assert.True(t, favorites.favorites[listing.ID])

	_, err := svc.Next(ctx, viewer, nil)
	assert.ErrorIs(t, err, services.ErrDeckExhausted)
}

func TestDiscovery_ResetBringsPassedListingsBack(t *testing.T) {
	ctx := context.Background()
	viewer := primitive.NewObjectID()
	listing := sampleListing()

	svc := services.NewDiscoveryService(
		&stubListingService{pool: []models.Listing{listing}},
		&stubFavoriteService{favorites: map[primitive.ObjectID]bool{}},
		services.NewMemorySeenStore(),
	)

	require.NoError(t, svc.Pass(ctx, viewer, listing.ID))
	_, err := svc.Next(ctx, viewer, nil)
	require.ErrorIs(t, err, services.ErrDeckExhausted)

	require.NoError(t, svc.Reset(ctx, viewer))
	next, err := svc.Next(ctx, viewer, nil)
	require.NoError(t, err)
	assert.Equal(t, listing.ID, next.ID)
}
