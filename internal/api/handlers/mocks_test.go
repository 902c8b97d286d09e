package handlers_test

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"swisswheels/app/internal/models"
	"swisswheels/app/internal/services"
)

// --- Mocks ---

// MockListingService
type MockListingService struct {
	mock.Mock
}

func (m *MockListingService) CreateListing(ctx context.Context, userID primitive.ObjectID, input services.ListingInput) (*models.Listing, error) {
	args := m.Called(ctx, userID, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Listing), args.Error(1)
}

func (m *MockListingService) FindListingByID(ctx context.Context, listingID primitive.ObjectID) (*models.Listing, error) {
	args := m.Called(ctx, listingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Listing), args.Error(1)
}

func (m *MockListingService) FindListingForViewer(ctx context.Context, listingID, viewerID primitive.ObjectID, isAdmin bool) (*models.Listing, error) {
	args := m.Called(ctx, listingID, viewerID, isAdmin)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Listing), args.Error(1)
}

func (m *MockListingService) SearchListings(ctx context.Context, criteria *models.FilterCriteria, limit int, cursor string) ([]models.Listing, string, error) {
	args := m.Called(ctx, criteria, limit, cursor)
	if args.Get(0) == nil {
		return nil, args.String(1), args.Error(2)
	}
	return args.Get(0).([]models.Listing), args.String(1), args.Error(2)
}

func (m *MockListingService) AllVisibleListings(ctx context.Context) ([]models.Listing, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Listing), args.Error(1)
}

func (m *MockListingService) ModelsForMake(ctx context.Context, vehicleMake string) ([]string, error) {
	args := m.Called(ctx, vehicleMake)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockListingService) UpdateListing(ctx context.Context, listingID, userID primitive.ObjectID, input services.ListingInput) (*models.Listing, error) {
	args := m.Called(ctx, listingID, userID, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Listing), args.Error(1)
}

func (m *MockListingService) SetPublished(ctx context.Context, listingID, userID primitive.ObjectID, published bool) error {
	args := m.Called(ctx, listingID, userID, published)
	return args.Error(0)
}

func (m *MockListingService) DeleteListing(ctx context.Context, listingID, userID primitive.ObjectID, reason string) error {
	args := m.Called(ctx, listingID, userID, reason)
	return args.Error(0)
}

func (m *MockListingService) ApproveListing(ctx context.Context, listingID primitive.ObjectID) error {
	args := m.Called(ctx, listingID)
	return args.Error(0)
}

func (m *MockListingService) RejectListing(ctx context.Context, listingID primitive.ObjectID) error {
	args := m.Called(ctx, listingID)
	return args.Error(0)
}

func (m *MockListingService) FindPendingListings(ctx context.Context, limit int) ([]models.Listing, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Listing), args.Error(1)
}

func (m *MockListingService) FindListingsByUserID(ctx context.Context, userID primitive.ObjectID) ([]models.Listing, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Listing), args.Error(1)
}

func (m *MockListingService) AddImageToListing(ctx context.Context, listingID primitive.ObjectID, imageKey string) error {
	args := m.Called(ctx, listingID, imageKey)
	return args.Error(0)
}

// MockFavoriteService
type MockFavoriteService struct {
	mock.Mock
}

func (m *MockFavoriteService) Add(ctx context.Context, userID, listingID primitive.ObjectID) error {
	args := m.Called(ctx, userID, listingID)
	return args.Error(0)
}

func (m *MockFavoriteService) Remove(ctx context.Context, userID, listingID primitive.ObjectID) error {
	args := m.Called(ctx, userID, listingID)
	return args.Error(0)
}

func (m *MockFavoriteService) Exists(ctx context.Context, userID, listingID primitive.ObjectID) (bool, error) {
	args := m.Called(ctx, userID, listingID)
	return args.Bool(0), args.Error(1)
}

func (m *MockFavoriteService) ListByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Favorite, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Favorite), args.Error(1)
}

func (m *MockFavoriteService) ListingIDsByUser(ctx context.Context, userID primitive.ObjectID) (map[primitive.ObjectID]bool, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[primitive.ObjectID]bool), args.Error(1)
}

// MockUserService
type MockUserService struct {
	mock.Mock
}

func (m *MockUserService) CreateAnonymousUser(ctx context.Context) (*models.UserProfile, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.UserProfile), args.Error(1)
}

func (m *MockUserService) Register(ctx context.Context, email, password, displayName string) (*models.UserProfile, error) {
	args := m.Called(ctx, email, password, displayName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.UserProfile), args.Error(1)
}

func (m *MockUserService) PromoteAnonymous(ctx context.Context, userID primitive.ObjectID, email, password string) (*models.UserProfile, error) {
	args := m.Called(ctx, userID, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.UserProfile), args.Error(1)
}

func (m *MockUserService) Authenticate(ctx context.Context, email, password string) (*models.UserProfile, error) {
	args := m.Called(ctx, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.UserProfile), args.Error(1)
}

func (m *MockUserService) FindByID(ctx context.Context, userID primitive.ObjectID) (*models.UserProfile, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.UserProfile), args.Error(1)
}

func (m *MockUserService) FindByEmail(ctx context.Context, email string) (*models.UserProfile, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.UserProfile), args.Error(1)
}

func (m *MockUserService) GetOrCreateProfile(ctx context.Context, userID primitive.ObjectID) (*models.UserProfile, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.UserProfile), args.Error(1)
}

func (m *MockUserService) UpdateProfile(ctx context.Context, userID primitive.ObjectID, input services.ProfileInput) (*models.UserProfile, error) {
	args := m.Called(ctx, userID, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.UserProfile), args.Error(1)
}

func (m *MockUserService) MarkPhoneVerified(ctx context.Context, userID primitive.ObjectID, phone string) error {
	args := m.Called(ctx, userID, phone)
	return args.Error(0)
}

func (m *MockUserService) DeleteStaleAnonymousUsers(ctx context.Context, olderThan time.Duration) (int64, error) {
	args := m.Called(ctx, olderThan)
	return args.Get(0).(int64), args.Error(1)
}

// MockDiscoveryService
type MockDiscoveryService struct {
	mock.Mock
}

func (m *MockDiscoveryService) Next(ctx context.Context, userID primitive.ObjectID, criteria *models.FilterCriteria) (*models.Listing, error) {
	args := m.Called(ctx, userID, criteria)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Listing), args.Error(1)
}

func (m *MockDiscoveryService) Pass(ctx context.Context, userID, listingID primitive.ObjectID) error {
	args := m.Called(ctx, userID, listingID)
	return args.Error(0)
}

func (m *MockDiscoveryService) Like(ctx context.Context, userID, listingID primitive.ObjectID) error {
	args := m.Called(ctx, userID, listingID)
	return args.Error(0)
}

func (m *MockDiscoveryService) Reset(ctx context.Context, userID primitive.ObjectID) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

// MockVerificationService
type MockVerificationService struct {
	mock.Mock
}

func (m *MockVerificationService) StartVerification(ctx context.Context, userID primitive.ObjectID, phone string) error {
	args := m.Called(ctx, userID, phone)
	return args.Error(0)
}

func (m *MockVerificationService) ConfirmVerification(ctx context.Context, userID primitive.ObjectID, code string) error {
	args := m.Called(ctx, userID, code)
	return args.Error(0)
}
