package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"swisswheels/app/internal/config"
	"swisswheels/app/internal/services"
)

// recordingSmsSender captures outgoing messages.
type recordingSmsSender struct {
	to       []string
	messages []string
}

func (s *recordingSmsSender) Send(_ context.Context, to, message string) error {
	s.to = append(s.to, to)
	s.messages = append(s.messages, message)
	return nil
}

func (s *recordingSmsSender) lastCode() string {
	msg := s.messages[len(s.messages)-1]
	return msg[len(msg)-6:]
}

// stubUserService records phone verifications.
type stubUserService struct {
	services.IUserService
	verifiedPhone string
}

func (s *stubUserService) MarkPhoneVerified(_ context.Context, _ primitive.ObjectID, phone string) error {
	s.verifiedPhone = phone
	return nil
}

func verificationConfig() *config.Config {
	return &config.Config{
		AppName:           "SwissWheels",
		OtpTTL:            5 * time.Minute,
		OtpMaxAttempts:    3,
		OtpResendCooldown: time.Minute,
	}
}

func newVerificationFixture() (services.IVerificationService, *recordingSmsSender, *stubUserService) {
	sender := &recordingSmsSender{}
	users := &stubUserService{}
	svc := services.NewVerificationService(verificationConfig(), services.NewMemoryCodeStore(), sender, users)
	return svc, sender, users
}

func TestVerification_SuccessfulFlow(t *testing.T) {
	ctx := context.Background()
	userID := primitive.NewObjectID()
	svc, sender, users := newVerificationFixture()

	require.NoError(t, svc.StartVerification(ctx, userID, "+41791234567"))
	require.Len(t, sender.messages, 1)
	assert.Equal(t, "+41791234567", sender.to[0])

	require.NoError(t, svc.ConfirmVerification(ctx, userID, sender.lastCode()))
	assert.Equal(t, "+41791234567", users.verifiedPhone)

	// The code is single-use.
	assert.ErrorIs(t, svc.ConfirmVerification(ctx, userID, sender.lastCode()), services.ErrCodeExpired)
}

func TestVerification_MissingPhone(t *testing.T) {
	svc, _, _ := newVerificationFixture()

	err := svc.StartVerification(context.Background(), primitive.NewObjectID(), "")
	var fe services.FieldErrors
	require.ErrorAs(t, err, &fe)
	assert.Contains(t, fe, "phone")
}

func TestVerification_WrongCodeCountsAttempts(t *testing.T) {
	ctx := context.Background()
	userID := primitive.NewObjectID()
	svc, sender, users := newVerificationFixture()

	require.NoError(t, svc.StartVerification(ctx, userID, "+41791234567"))

	assert.ErrorIs(t, svc.ConfirmVerification(ctx, userID, "000000"), services.ErrCodeMismatch)
	assert.ErrorIs(t, svc.ConfirmVerification(ctx, userID, "000000"), services.ErrCodeMismatch)
	// Third failure exhausts the budget.
	assert.ErrorIs(t, svc.ConfirmVerification(ctx, userID, "000000"), services.ErrTooManyAttempts)
	// Even the right code no longer works.
	assert.ErrorIs(t, svc.ConfirmVerification(ctx, userID, sender.lastCode()), services.ErrTooManyAttempts)
	assert.Empty(t, users.verifiedPhone)
}

func TestVerification_NoActiveCode(t *testing.T) {
	svc, _, _ := newVerificationFixture()

	err := svc.ConfirmVerification(context.Background(), primitive.NewObjectID(), "123456")
	assert.ErrorIs(t, err, services.ErrCodeExpired)
}

func TestVerification_ResendThrottled(t *testing.T) {
	ctx := context.Background()
	userID := primitive.NewObjectID()
	svc, sender, _ := newVerificationFixture()

	require.NoError(t, svc.StartVerification(ctx, userID, "+41791234567"))
	assert.ErrorIs(t, svc.StartVerification(ctx, userID, "+41791234567"), services.ErrResendThrottled)
	assert.Len(t, sender.messages, 1)
}
