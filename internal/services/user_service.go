package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"swisswheels/app/internal/auth"
	"swisswheels/app/internal/config"
	"swisswheels/app/internal/db"
	"swisswheels/app/internal/models"
)

// IUserService defines the interface for accounts and profiles.
type IUserService interface {
	CreateAnonymousUser(ctx context.Context) (*models.UserProfile, error)
	Register(ctx context.Context, email, password, displayName string) (*models.UserProfile, error)
	PromoteAnonymous(ctx context.Context, userID primitive.ObjectID, email, password string) (*models.UserProfile, error)
	Authenticate(ctx context.Context, email, password string) (*models.UserProfile, error)
	FindByID(ctx context.Context, userID primitive.ObjectID) (*models.UserProfile, error)
	FindByEmail(ctx context.Context, email string) (*models.UserProfile, error)
	GetOrCreateProfile(ctx context.Context, userID primitive.ObjectID) (*models.UserProfile, error)
	UpdateProfile(ctx context.Context, userID primitive.ObjectID, input ProfileInput) (*models.UserProfile, error)
	MarkPhoneVerified(ctx context.Context, userID primitive.ObjectID, phone string) error
	DeleteStaleAnonymousUsers(ctx context.Context, olderThan time.Duration) (int64, error)
}

const usersCollection = "users"

var (
	// ErrEmailTaken means the email already belongs to another account.
	ErrEmailTaken = errors.New("email already registered")
	// ErrInvalidCredentials means the email/password pair did not match.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// ProfileInput carries the editable profile fields.
type ProfileInput struct {
	DisplayName      string             `json:"display_name"`
	Phone            string             `json:"phone"`
	SharePhoneNumber bool               `json:"share_phone_number"`
	AccountType      models.AccountType `json:"account_type"`
	CompanyName      string             `json:"company_name"`
	CompanyAddress   string             `json:"company_address"`
	CompanyWebsite   string             `json:"company_website"`
}

// Validate reports profile form problems field-by-field.
func (in *ProfileInput) Validate() FieldErrors {
	fe := FieldErrors{}
	if in.AccountType != models.AccountParticulier && in.AccountType != models.AccountProfessionnel {
		fe["account_type"] = "account type must be particulier or professionnel"
	}
	if in.AccountType == models.AccountProfessionnel && strings.TrimSpace(in.CompanyName) == "" {
		fe["company_name"] = "company name is required for professional accounts"
	}
	if len(fe) > 0 {
		return fe
	}
	return nil
}

// userService implements IUserService.
type userService struct {
	db  *mongo.Database
	cfg *config.Config
}

// NewUserService creates a new UserService.
func NewUserService(database *mongo.Database, cfg *config.Config) IUserService {
	return &userService{db: database, cfg: cfg}
}

// CreateAnonymousUser inserts a minimal account backing an anonymous session.
// Anonymous accounts are swept by the background cleanup once they exceed the
// configured age without being promoted.
func (s *userService) CreateAnonymousUser(ctx context.Context) (*models.UserProfile, error) {
	now := time.Now().UTC()
	user := &models.UserProfile{
		AccountType: models.AccountParticulier,
		Anonymous:   true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	err := db.Try(func() error {
		user.ID = primitive.NewObjectID()
		_, err := s.db.Collection(usersCollection).InsertOne(ctx, user)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create anonymous user: %w", err)
	}
	return user, nil
}

// Register creates a full account with an email and password.
func (s *userService) Register(ctx context.Context, email, password, displayName string) (*models.UserProfile, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if err := s.validateCredentials(email, password); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now().UTC()
	user := &models.UserProfile{
		ID:           primitive.NewObjectID(),
		Email:        email,
		DisplayName:  displayName,
		AccountType:  models.AccountParticulier,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if _, err := s.db.Collection(usersCollection).InsertOne(ctx, user); err != nil {
		if db.IsDuplicateKeyError(err) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to register user %s: %w", email, err)
	}
	return user, nil
}

// PromoteAnonymous turns an anonymous account into a full one, keeping its ID
// so listings and favorites created during the anonymous session carry over.
func (s *userService) PromoteAnonymous(ctx context.Context, userID primitive.ObjectID, email, password string) (*models.UserProfile, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if err := s.validateCredentials(email, password); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	filter := bson.M{"_id": userID, "anonymous": true}
	update := bson.M{"$set": bson.M{
		"email":      email,
		"password":   hash,
		"anonymous":  false,
		"updated_at": time.Now().UTC(),
	}}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var user models.UserProfile
	err = s.db.Collection(usersCollection).FindOneAndUpdate(ctx, filter, update, opts).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		if db.IsDuplicateKeyError(err) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to promote anonymous user %s: %w", userID.Hex(), err)
	}
	return &user, nil
}

// Authenticate checks an email/password pair. It returns ErrInvalidCredentials
// on any mismatch, without distinguishing unknown emails from wrong passwords.
func (s *userService) Authenticate(ctx context.Context, email, password string) (*models.UserProfile, error) {
	user, err := s.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !auth.CheckPasswordHash(password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// FindByID returns a user by ID.
func (s *userService) FindByID(ctx context.Context, userID primitive.ObjectID) (*models.UserProfile, error) {
	var user models.UserProfile
	err := s.db.Collection(usersCollection).FindOne(ctx, bson.M{"_id": userID}).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("error finding user %s: %w", userID.Hex(), err)
	}
	return &user, nil
}

// FindByEmail returns a user by email.
func (s *userService) FindByEmail(ctx context.Context, email string) (*models.UserProfile, error) {
	var user models.UserProfile
	err := s.db.Collection(usersCollection).FindOne(ctx, bson.M{"email": email}).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("error finding user by email: %w", err)
	}
	return &user, nil
}

// GetOrCreateProfile returns the user's profile, materializing a default one
// on first access. Sessions exist before profiles do.
func (s *userService) GetOrCreateProfile(ctx context.Context, userID primitive.ObjectID) (*models.UserProfile, error) {
	now := time.Now().UTC()
	filter := bson.M{"_id": userID}
	update := bson.M{
		"$setOnInsert": bson.M{
			"account_type": models.AccountParticulier,
			"anonymous":    true,
			"created_at":   now,
			"updated_at":   now,
		},
	}

	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	var user models.UserProfile
	err := s.db.Collection(usersCollection).FindOneAndUpdate(ctx, filter, update, opts).Decode(&user)
	if err != nil {
		return nil, fmt.Errorf("failed to get or create profile %s: %w", userID.Hex(), err)
	}
	return &user, nil
}

// UpdateProfile replaces the editable profile fields. Switching the account
// back to particulier clears the company fields so stale dealership data
// never leaks into contact affordances.
func (s *userService) UpdateProfile(ctx context.Context, userID primitive.ObjectID, input ProfileInput) (*models.UserProfile, error) {
	if fe := input.Validate(); fe != nil {
		return nil, fe
	}

	set := bson.M{
		"display_name":       input.DisplayName,
		"phone":              input.Phone,
		"share_phone_number": input.SharePhoneNumber,
		"account_type":       input.AccountType,
		"updated_at":         time.Now().UTC(),
	}
	if input.AccountType == models.AccountProfessionnel {
		set["company_name"] = input.CompanyName
		set["company_address"] = input.CompanyAddress
		set["company_website"] = input.CompanyWebsite
	} else {
		set["company_name"] = ""
		set["company_address"] = ""
		set["company_website"] = ""
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var user models.UserProfile
	err := s.db.Collection(usersCollection).FindOneAndUpdate(ctx, bson.M{"_id": userID}, bson.M{"$set": set}, opts).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to update profile %s: %w", userID.Hex(), err)
	}
	return &user, nil
}

// MarkPhoneVerified records a successful phone verification. The verified
// number is stored on the profile; changing the number later clears the flag
// via UpdateProfile plus a fresh verification.
func (s *userService) MarkPhoneVerified(ctx context.Context, userID primitive.ObjectID, phone string) error {
	update := bson.M{"$set": bson.M{
		"phone":          phone,
		"phone_verified": true,
		"updated_at":     time.Now().UTC(),
	}}
	result, err := s.db.Collection(usersCollection).UpdateOne(ctx, bson.M{"_id": userID}, update)
	if err != nil {
		return fmt.Errorf("failed to mark phone verified for user %s: %w", userID.Hex(), err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteStaleAnonymousUsers removes anonymous accounts older than the cutoff.
// Called by the background cleanup task.
func (s *userService) DeleteStaleAnonymousUsers(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-olderThan)
	result, err := s.db.Collection(usersCollection).DeleteMany(ctx, bson.M{
		"anonymous":  true,
		"created_at": bson.M{"$lt": cutoff},
	})
	if err != nil {
		return 0, fmt.Errorf("failed to delete stale anonymous users: %w", err)
	}
	return result.DeletedCount, nil
}

func (s *userService) validateCredentials(email, password string) error {
	fe := FieldErrors{}
	if email == "" || !strings.Contains(email, "@") {
		fe["email"] = "a valid email is required"
	}
	matched, err := regexp.MatchString(s.cfg.PasswordRegexp, password)
	if err != nil {
		return fmt.Errorf("invalid password policy regexp: %w", err)
	}
	if !matched {
		fe["password"] = "password does not meet the policy"
	}
	if len(fe) > 0 {
		return fe
	}
	return nil
}
