package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"swisswheels/app/internal/config"
	"swisswheels/app/internal/models"
	"swisswheels/app/internal/services"
)

func userTestConfig() *config.Config {
	return &config.Config{PasswordRegexp: "^.{8,}$"}
}

func TestUserService_RegisterAndAuthenticate(t *testing.T) {
	database := setupTestDB(t, "swisswheels_test_users", "users")
	svc := services.NewUserService(database, userTestConfig())
	ctx := context.Background()

	user, err := svc.Register(ctx, "Alice@Example.CH", "correct horse battery", "Alice")
	require.NoError(t, err)
	assert.Equal(t, "alice@example.ch", user.Email)
	assert.False(t, user.Anonymous)

	got, err := svc.Authenticate(ctx, "alice@example.ch", "correct horse battery")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	_, err = svc.Authenticate(ctx, "alice@example.ch", "wrong password")
	assert.ErrorIs(t, err, services.ErrInvalidCredentials)
	_, err = svc.Authenticate(ctx, "nobody@example.ch", "correct horse battery")
	assert.ErrorIs(t, err, services.ErrInvalidCredentials)
}

func TestUserService_RegisterDuplicateEmail(t *testing.T) {
	database := setupTestDB(t, "swisswheels_test_users", "users")
	svc := services.NewUserService(database, userTestConfig())
	ctx := context.Background()

	_, err := svc.Register(ctx, "alice@example.ch", "correct horse battery", "Alice")
	require.NoError(t, err)

	_, err = svc.Register(ctx, "alice@example.ch", "another password!", "Imposter")
	assert.ErrorIs(t, err, services.ErrEmailTaken)
}

func TestUserService_PromoteAnonymousKeepsID(t *testing.T) {
	database := setupTestDB(t, "swisswheels_test_users", "users")
	svc := services.NewUserService(database, userTestConfig())
	ctx := context.Background()

	anon, err := svc.CreateAnonymousUser(ctx)
	require.NoError(t, err)
	require.True(t, anon.Anonymous)

	promoted, err := svc.PromoteAnonymous(ctx, anon.ID, "alice@example.ch", "correct horse battery")
	require.NoError(t, err)
	assert.Equal(t, anon.ID, promoted.ID)
	assert.False(t, promoted.Anonymous)
	assert.Equal(t, "alice@example.ch", promoted.Email)

	// A full account cannot be promoted again.
	_, err = svc.PromoteAnonymous(ctx, anon.ID, "other@example.ch", "correct horse battery")
	assert.ErrorIs(t, err, services.ErrNotFound)
}

func TestUserService_GetOrCreateProfileIsLazy(t *testing.T) {
	database := setupTestDB(t, "swisswheels_test_users", "users")
	svc := services.NewUserService(database, userTestConfig())
	ctx := context.Background()

	userID := primitive.NewObjectID()
	profile, err := svc.GetOrCreateProfile(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, userID, profile.ID)
	assert.Equal(t, models.AccountParticulier, profile.AccountType)

	again, err := svc.GetOrCreateProfile(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, profile.CreatedAt.Unix(), again.CreatedAt.Unix())
}

func TestUserService_UpdateProfileClearsCompanyFieldsForParticulier(t *testing.T) {
	database := setupTestDB(t, "swisswheels_test_users", "users")
	svc := services.NewUserService(database, userTestConfig())
	ctx := context.Background()

	anon, err := svc.CreateAnonymousUser(ctx)
	require.NoError(t, err)

	pro, err := svc.UpdateProfile(ctx, anon.ID, services.ProfileInput{
		DisplayName: "Garage Müller",
		AccountType: models.AccountProfessionnel,
		CompanyName: "Garage Müller AG",
	})
	require.NoError(t, err)
	assert.Equal(t, "Garage Müller AG", pro.CompanyName)

	private, err := svc.UpdateProfile(ctx, anon.ID, services.ProfileInput{
		DisplayName: "Hans",
		AccountType: models.AccountParticulier,
	})
	require.NoError(t, err)
	assert.Empty(t, private.CompanyName)
	assert.Empty(t, private.CompanyAddress)
	assert.Empty(t, private.CompanyWebsite)
}

func TestUserService_MarkPhoneVerified(t *testing.T) {
	database := setupTestDB(t, "swisswheels_test_users", "users")
	svc := services.NewUserService(database, userTestConfig())
	ctx := context.Background()

	anon, err := svc.CreateAnonymousUser(ctx)
	require.NoError(t, err)

	require.NoError(t, svc.MarkPhoneVerified(ctx, anon.ID, "+41791234567"))

	user, err := svc.FindByID(ctx, anon.ID)
	require.NoError(t, err)
	assert.True(t, user.PhoneVerified)
	assert.Equal(t, "+41791234567", user.Phone)

	assert.ErrorIs(t, svc.MarkPhoneVerified(ctx, primitive.NewObjectID(), "+41790000000"), services.ErrNotFound)
}

func TestUserService_DeleteStaleAnonymousUsers(t *testing.T) {
	database := setupTestDB(t, "swisswheels_test_users", "users")
	svc := services.NewUserService(database, userTestConfig())
	ctx := context.Background()

	stale, err := svc.CreateAnonymousUser(ctx)
	require.NoError(t, err)
	promotedAnon, err := svc.CreateAnonymousUser(ctx)
	require.NoError(t, err)
	_, err = svc.PromoteAnonymous(ctx, promotedAnon.ID, "kept@example.ch", "correct horse battery")
	require.NoError(t, err)

	// Everything created above is younger than an hour, so nothing goes.
	deleted, err := svc.DeleteStaleAnonymousUsers(ctx, time.Hour)
	require.NoError(t, err)
	assert.Zero(t, deleted)

	// With a zero cutoff the unpromoted anonymous account is swept.
	deleted, err = svc.DeleteStaleAnonymousUsers(ctx, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 1, deleted)

	_, err = svc.FindByID(ctx, stale.ID)
	assert.ErrorIs(t, err, services.ErrNotFound)
	_, err = svc.FindByEmail(ctx, "kept@example.ch")
	assert.NoError(t, err)
}
