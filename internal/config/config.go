package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
type Config struct {
	// Environment
	RunMode string // Set via flag, not env

	// MongoDB
	MongoURI    string
	MongoDbName string

	// Redis
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// NATS
	NatsURL string

	// JWT
	JwtSecret string
	JwtTTL    time.Duration

	// Server
	ApiPort string

	// App-integrity attestation
	AttestVerifyURL   string
	AttestSecretKey   string
	IntegrityTokenTTL time.Duration
	AttestRequired    bool

	// Phone verification
	OtpTTL            time.Duration
	OtpMaxAttempts    int
	OtpResendCooldown time.Duration

	// Discovery (swipe mode)
	SeenSetTTL time.Duration

	// Email (enquiry relay)
	SmtpHost        string
	SmtpPort        int
	SmtpUsername    string
	SmtpPassword    string
	SmtpFromAddress string

	// AWS S3
	AwsAccessKeyID     string
	AwsSecretAccessKey string
	AwsRegion          string
	AwsS3Bucket        string
	ImageBaseURL       string
	ImageMaxDimension  int
	ImageMaxSizeMB     int

	// Rate limiting
	RateLimitSoftRefillRate int
	RateLimitSoftBucketSize int
	RateLimitHardRefillRate int
	RateLimitHardBucketSize int

	// App Defaults
	AppName        string
	PasswordRegexp string
	GetCacheTTL    time.Duration
	MaxAnonAge     time.Duration
}

// Load configuration from environment variables.
// RunMode needs to be passed in as it comes from command-line flags.
func Load(runMode string) (*Config, error) {
	// Load .env file, ignoring errors if it doesn't exist
	godotenv.Load()

	cfg := &Config{
		RunMode: runMode, // Set from flag
	}

	var err error

	getEnv := func(key, defaultValue string) string {
		if value, exists := os.LookupEnv(key); exists {
			return value
		}
		return defaultValue
	}

	getRequiredEnv := func(key string) (string, error) {
		value, exists := os.LookupEnv(key)
		if !exists {
			return "", fmt.Errorf("missing required environment variable: %s", key)
		}
		return value, nil
	}

	getDuration := func(key, defaultSeconds string) (time.Duration, error) {
		seconds, err := strconv.ParseInt(getEnv(key, defaultSeconds), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %w", key, err)
		}
		return time.Duration(seconds) * time.Second, nil
	}

	cfg.MongoURI, err = getRequiredEnv("MONGO_URI")
	if err != nil {
		return nil, err
	}
	cfg.MongoDbName = getEnv("MONGO_DB_NAME", "swisswheels")
	cfg.RedisAddr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.RedisPassword = getEnv("REDIS_PASSWORD", "")
	cfg.NatsURL = getEnv("NATS_URL", "")
	cfg.JwtSecret, err = getRequiredEnv("JWT_SECRET")
	if err != nil {
		return nil, err
	}
	cfg.ApiPort = getEnv("API_PORT", "8080")
	cfg.AttestVerifyURL = getEnv("ATTEST_VERIFY_URL", "")
	cfg.AttestSecretKey = getEnv("ATTEST_SECRET_KEY", "")
	cfg.SmtpHost = getEnv("SMTP_HOST", "")
	cfg.SmtpUsername = getEnv("SMTP_USERNAME", "")
	cfg.SmtpPassword = getEnv("SMTP_PASSWORD", "")
	cfg.SmtpFromAddress = getEnv("SMTP_FROM_ADDRESS", "noreply@swisswheels.example.com")
	cfg.AwsAccessKeyID = getEnv("AWS_ACCESS_KEY_ID", "")
	cfg.AwsSecretAccessKey = getEnv("AWS_SECRET_ACCESS_KEY", "")
	cfg.AwsRegion = getEnv("AWS_REGION", "")
	cfg.AwsS3Bucket = getEnv("AWS_S3_BUCKET", "")
	cfg.ImageBaseURL = getEnv("IMAGE_BASE_URL", "")
	cfg.AppName = getEnv("APP_NAME", "SwissWheels")
	cfg.PasswordRegexp = getEnv("PASSWORD_REGEXP", "^.{8,}$")

	cfg.RedisDB, err = strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg.JwtTTL, err = getDuration("JWT_TTL_SECONDS", "3600")
	if err != nil {
		return nil, err
	}

	cfg.IntegrityTokenTTL, err = getDuration("INTEGRITY_TOKEN_TTL_SECONDS", "1200")
	if err != nil {
		return nil, err
	}

	cfg.AttestRequired, err = strconv.ParseBool(getEnv("ATTEST_REQUIRED", "false"))
	if err != nil {
		return nil, fmt.Errorf("invalid ATTEST_REQUIRED: %w", err)
	}

	cfg.OtpTTL, err = getDuration("OTP_TTL_SECONDS", "300")
	if err != nil {
		return nil, err
	}

	cfg.OtpMaxAttempts, err = strconv.Atoi(getEnv("OTP_MAX_ATTEMPTS", "5"))
	if err != nil {
		return nil, fmt.Errorf("invalid OTP_MAX_ATTEMPTS: %w", err)
	}

	cfg.OtpResendCooldown, err = getDuration("OTP_RESEND_COOLDOWN_SECONDS", "60")
	if err != nil {
		return nil, err
	}

	cfg.SeenSetTTL, err = getDuration("SEEN_SET_TTL_SECONDS", "86400")
	if err != nil {
		return nil, err
	}

	cfg.SmtpPort, err = strconv.Atoi(getEnv("SMTP_PORT", "587"))
	if err != nil {
		return nil, fmt.Errorf("invalid SMTP_PORT: %w", err)
	}

	cfg.ImageMaxDimension, err = strconv.Atoi(getEnv("IMAGE_MAX_DIMENSION", "2048"))
	if err != nil {
		return nil, fmt.Errorf("invalid IMAGE_MAX_DIMENSION: %w", err)
	}

	cfg.ImageMaxSizeMB, err = strconv.Atoi(getEnv("IMAGE_MAX_SIZE_MB", "10"))
	if err != nil {
		return nil, fmt.Errorf("invalid IMAGE_MAX_SIZE_MB: %w", err)
	}

	cfg.RateLimitSoftRefillRate, err = strconv.Atoi(getEnv("RATE_LIMIT_SOFT_REFILL_RATE", "5"))
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_SOFT_REFILL_RATE: %w", err)
	}

	cfg.RateLimitSoftBucketSize, err = strconv.Atoi(getEnv("RATE_LIMIT_SOFT_BUCKET_SIZE", "20"))
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_SOFT_BUCKET_SIZE: %w", err)
	}

	cfg.RateLimitHardRefillRate, err = strconv.Atoi(getEnv("RATE_LIMIT_HARD_REFILL_RATE", "20"))
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_HARD_REFILL_RATE: %w", err)
	}

	cfg.RateLimitHardBucketSize, err = strconv.Atoi(getEnv("RATE_LIMIT_HARD_BUCKET_SIZE", "60"))
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_HARD_BUCKET_SIZE: %w", err)
	}

	cfg.GetCacheTTL, err = getDuration("GET_CACHE_TTL_SECONDS", "60")
	if err != nil {
		return nil, err
	}

	cfg.MaxAnonAge, err = getDuration("MAX_ANON_AGE_SECONDS", "172800")
	if err != nil {
		return nil, err
	}

	return cfg, nil
}
