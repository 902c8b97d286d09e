package storage

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	aws_config "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"swisswheels/app/internal/config"
)

// IStorage defines the interface for listing image storage.
type IStorage interface {
	GeneratePresignedPutURL(ctx context.Context, userID, listingID, filename, contentType string) (string, string, error)
	DeleteObject(ctx context.Context, key string) error
	PublicURL(key string) string
}

// s3Storage implements IStorage over S3 presigned PUT uploads.
type s3Storage struct {
	cfg           *config.Config
	s3Client      *s3.Client
	presignClient *s3.PresignClient
}

// NewS3Storage creates a new S3 storage service.
func NewS3Storage(cfg *config.Config) (IStorage, error) {
	awsCfg, err := aws_config.LoadDefaultConfig(context.TODO(),
		aws_config.WithRegion(cfg.AwsRegion),
		aws_config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AwsAccessKeyID,
			cfg.AwsSecretAccessKey,
			"", // session token
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	s3Client := s3.NewFromConfig(awsCfg)
	return &s3Storage{
		cfg:           cfg,
		s3Client:      s3Client,
		presignClient: s3.NewPresignClient(s3Client),
	}, nil
}

// GeneratePresignedPutURL creates a pre-signed URL for uploading a listing image.
// It returns the URL and the generated S3 object key.
func (s *s3Storage) GeneratePresignedPutURL(ctx context.Context, userID, listingID, filename, contentType string) (string, string, error) {
	// Strip any path components the client may have sent.
	filename = path.Base(strings.ReplaceAll(filename, "\\", "/"))
	objectKey := fmt.Sprintf("uploads/%s/%s/%s_%s", userID, listingID, uuid.NewString(), filename)

	presignParams := &s3.PutObjectInput{
		Bucket:      aws.String(s.cfg.AwsS3Bucket),
		Key:         aws.String(objectKey),
		ContentType: aws.String(contentType),
	}

	presignedReq, err := s.presignClient.PresignPutObject(ctx, presignParams, s3.WithPresignExpires(15*time.Minute))
	if err != nil {
		return "", "", fmt.Errorf("failed to generate presigned PUT URL for key %s: %w", objectKey, err)
	}

	return presignedReq.URL, objectKey, nil
}

// DeleteObject removes an uploaded image.
func (s *s3Storage) DeleteObject(ctx context.Context, key string) error {
	_, err := s.s3Client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.cfg.AwsS3Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete object %s: %w", key, err)
	}
	return nil
}

// PublicURL returns the durable URL for a processed image key.
func (s *s3Storage) PublicURL(key string) string {
	base := strings.TrimSuffix(s.cfg.ImageBaseURL, "/")
	return base + "/" + key
}
