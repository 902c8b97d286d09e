package services

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"swisswheels/app/internal/config"
	"swisswheels/app/internal/sms"
)

// Verification outcome errors. Handlers map these to 4xx responses.
var (
	// ErrCodeExpired means no active code exists for the user.
	ErrCodeExpired = errors.New("verification code expired")
	// ErrCodeMismatch means the submitted code does not match.
	ErrCodeMismatch = errors.New("verification code mismatch")
	// ErrTooManyAttempts means the attempt budget for this code is spent.
	ErrTooManyAttempts = errors.New("too many verification attempts")
	// ErrResendThrottled means a code was sent too recently to send another.
	ErrResendThrottled = errors.New("verification code resent too soon")
)

// CodeRecord is the state of one in-flight phone verification.
type CodeRecord struct {
	Phone    string    `json:"phone"`
	Code     string    `json:"code"`
	SentAt   time.Time `json:"sent_at"`
	Attempts int       `json:"attempts"`
}

// ICodeStore holds in-flight verification codes, keyed by user. Records
// expire on their own after the code TTL.
type ICodeStore interface {
	Save(ctx context.Context, userID string, rec CodeRecord, ttl time.Duration) error
	Get(ctx context.Context, userID string) (*CodeRecord, error)
	Touch(ctx context.Context, userID string, rec CodeRecord) error
	Delete(ctx context.Context, userID string) error
}

// redisCodeStore stores records as JSON with a TTL.
type redisCodeStore struct {
	rdb *redis.Client
}

// NewRedisCodeStore creates a Redis-backed code store.
func NewRedisCodeStore(rdb *redis.Client) ICodeStore {
	return &redisCodeStore{rdb: rdb}
}

func codeKey(userID string) string {
	return "otp:" + userID
}

func (s *redisCodeStore) Save(ctx context.Context, userID string, rec CodeRecord, ttl time.Duration) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal code record: %w", err)
	}
	if err := s.rdb.Set(ctx, codeKey(userID), data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to save code record for user %s: %w", userID, err)
	}
	return nil
}

func (s *redisCodeStore) Get(ctx context.Context, userID string) (*CodeRecord, error) {
	data, err := s.rdb.Get(ctx, codeKey(userID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load code record for user %s: %w", userID, err)
	}
	var rec CodeRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal code record for user %s: %w", userID, err)
	}
	return &rec, nil
}

// Touch rewrites the record without disturbing its remaining TTL.
func (s *redisCodeStore) Touch(ctx context.Context, userID string, rec CodeRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal code record: %w", err)
	}
	if err := s.rdb.Set(ctx, codeKey(userID), data, redis.KeepTTL).Err(); err != nil {
		return fmt.Errorf("failed to update code record for user %s: %w", userID, err)
	}
	return nil
}

func (s *redisCodeStore) Delete(ctx context.Context, userID string) error {
	if err := s.rdb.Del(ctx, codeKey(userID)).Err(); err != nil {
		return fmt.Errorf("failed to delete code record for user %s: %w", userID, err)
	}
	return nil
}

// memoryCodeStore is an in-process ICodeStore for tests.
type memoryCodeStore struct {
	mu   sync.Mutex
	recs map[string]memoryCodeEntry
}

type memoryCodeEntry struct {
	rec       CodeRecord
	expiresAt time.Time
}

// NewMemoryCodeStore creates an in-memory code store.
func NewMemoryCodeStore() ICodeStore {
	return &memoryCodeStore{recs: make(map[string]memoryCodeEntry)}
}

func (s *memoryCodeStore) Save(_ context.Context, userID string, rec CodeRecord, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recs[userID] = memoryCodeEntry{rec: rec, expiresAt: time.Now().Add(ttl)}
	return nil
}

func (s *memoryCodeStore) Get(_ context.Context, userID string) (*CodeRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.recs[userID]
	if !ok || time.Now().After(entry.expiresAt) {
		delete(s.recs, userID)
		return nil, nil
	}
	rec := entry.rec
	return &rec, nil
}

func (s *memoryCodeStore) Touch(_ context.Context, userID string, rec CodeRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if entry, ok := s.recs[userID]; ok {
		entry.rec = rec
		s.recs[userID] = entry
	}
	return nil
}

func (s *memoryCodeStore) Delete(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.recs, userID)
	return nil
}

// IVerificationService defines the interface for phone-number verification.
type IVerificationService interface {
	StartVerification(ctx context.Context, userID primitive.ObjectID, phone string) error
	ConfirmVerification(ctx context.Context, userID primitive.ObjectID, code string) error
}

// verificationService implements IVerificationService: it issues one-time
// codes over SMS and flips the profile's phone_verified flag on success.
type verificationService struct {
	cfg   *config.Config
	store ICodeStore
	smsTx sms.Sender
	users IUserService
}

// NewVerificationService creates a new VerificationService.
func NewVerificationService(cfg *config.Config, store ICodeStore, smsTx sms.Sender, users IUserService) IVerificationService {
	return &verificationService{cfg: cfg, store: store, smsTx: smsTx, users: users}
}

// StartVerification generates a fresh code and texts it to the given number.
// Re-requesting within the resend cooldown fails with ErrResendThrottled.
func (s *verificationService) StartVerification(ctx context.Context, userID primitive.ObjectID, phone string) error {
	if phone == "" {
		return FieldErrors{"phone": "phone number is required"}
	}

	existing, err := s.store.Get(ctx, userID.Hex())
	if err != nil {
		return err
	}
	if existing != nil && time.Since(existing.SentAt) < s.cfg.OtpResendCooldown {
		return ErrResendThrottled
	}

	code, err := generateCode()
	if err != nil {
		return fmt.Errorf("failed to generate verification code: %w", err)
	}

	rec := CodeRecord{Phone: phone, Code: code, SentAt: time.Now().UTC()}
	if err := s.store.Save(ctx, userID.Hex(), rec, s.cfg.OtpTTL); err != nil {
		return err
	}

	message := fmt.Sprintf("%s: votre code de vérification est %s", s.cfg.AppName, code)
	if err := s.smsTx.Send(ctx, phone, message); err != nil {
		return fmt.Errorf("failed to send verification SMS: %w", err)
	}
	return nil
}

// ConfirmVerification checks the submitted code against the active record.
// Each wrong attempt is counted; exceeding the budget invalidates the code.
func (s *verificationService) ConfirmVerification(ctx context.Context, userID primitive.ObjectID, code string) error {
	rec, err := s.store.Get(ctx, userID.Hex())
	if err != nil {
		return err
	}
	if rec == nil {
		return ErrCodeExpired
	}
	if rec.Attempts >= s.cfg.OtpMaxAttempts {
		return ErrTooManyAttempts
	}

	if rec.Code != code {
		rec.Attempts++
		if err := s.store.Touch(ctx, userID.Hex(), *rec); err != nil {
			return err
		}
		if rec.Attempts >= s.cfg.OtpMaxAttempts {
			return ErrTooManyAttempts
		}
		return ErrCodeMismatch
	}

	if err := s.users.MarkPhoneVerified(ctx, userID, rec.Phone); err != nil {
		return err
	}
	return s.store.Delete(ctx, userID.Hex())
}

// generateCode produces a 6-digit numeric code.
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
