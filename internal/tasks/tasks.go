package tasks

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"io"
	"log"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/hibiken/asynq"
	"github.com/nfnt/resize"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"swisswheels/app/internal/config"
	"swisswheels/app/internal/email"
	"swisswheels/app/internal/services"
)

// Task type names.
const (
	TypeImageProcess = "image:process"
	TypeEnquiryEmail = "email:enquiry"
	TypeAnonCleanup  = "user:anon:cleanup"
)

// Queue names. Image processing runs on its own queue so a backlog of large
// uploads never starves enquiry delivery.
const (
	QueueDefault = "default"
	QueueImages  = "images"
)

// NewClient creates an asynq client sharing the application's Redis target.
func NewClient(rdb *redis.Client) *asynq.Client {
	opts := rdb.Options()
	return asynq.NewClient(asynq.RedisClientOpt{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
}

// ImageTaskPayload carries one uploaded object to normalize.
type ImageTaskPayload struct {
	S3Key     string `json:"s3_key"`
	ListingID string `json:"listing_id"`
}

// EnquiryEmailPayload carries one buyer enquiry to relay to a seller.
type EnquiryEmailPayload struct {
	To        string `json:"to"`
	ListingID string `json:"listing_id"`
	FromName  string `json:"from_name"`
	ReplyTo   string `json:"reply_to"`
	Message   string `json:"message"`
}

// EnqueueImageProcess queues normalization of a freshly uploaded image.
func EnqueueImageProcess(client *asynq.Client, s3Key, listingID string) error {
	payload, err := json.Marshal(ImageTaskPayload{S3Key: s3Key, ListingID: listingID})
	if err != nil {
		return fmt.Errorf("failed to marshal image task payload: %w", err)
	}
	_, err = client.Enqueue(asynq.NewTask(TypeImageProcess, payload), asynq.Queue(QueueImages))
	if err != nil {
		return fmt.Errorf("failed to enqueue image task for %s: %w", s3Key, err)
	}
	return nil
}

// EnqueueEnquiryEmail queues delivery of a buyer enquiry.
func EnqueueEnquiryEmail(client *asynq.Client, p EnquiryEmailPayload) error {
	payload, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to marshal enquiry payload: %w", err)
	}
	_, err = client.Enqueue(asynq.NewTask(TypeEnquiryEmail, payload), asynq.Queue(QueueDefault))
	if err != nil {
		return fmt.Errorf("failed to enqueue enquiry email to %s: %w", p.To, err)
	}
	return nil
}

// TaskProcessor holds the dependencies task handlers need.
type TaskProcessor struct {
	cfg         *config.Config
	emailSender email.Sender
	listings    services.IListingService
	users       services.IUserService
	s3Client    *s3.Client
}

// NewTaskProcessor creates a TaskProcessor.
func NewTaskProcessor(cfg *config.Config, emailSender email.Sender, listings services.IListingService, users services.IUserService, s3Client *s3.Client) *TaskProcessor {
	return &TaskProcessor{
		cfg:         cfg,
		emailSender: emailSender,
		listings:    listings,
		users:       users,
		s3Client:    s3Client,
	}
}

// NewServer configures the asynq server and handler mux for the background
// worker mode. The caller runs it.
func NewServer(rdb *redis.Client, processor *TaskProcessor) (*asynq.Server, *asynq.ServeMux) {
	opts := rdb.Options()
	srv := asynq.NewServer(
		asynq.RedisClientOpt{Addr: opts.Addr, Password: opts.Password, DB: opts.DB},
		asynq.Config{
			Queues: map[string]int{
				QueueDefault: 5,
				QueueImages:  3,
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(_ context.Context, task *asynq.Task, err error) {
				log.Printf("[asynq] task %s failed: %v", task.Type(), err)
			}),
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeImageProcess, processor.HandleImageProcessTask)
	mux.HandleFunc(TypeEnquiryEmail, processor.HandleEnquiryEmailTask)
	mux.HandleFunc(TypeAnonCleanup, processor.HandleAnonCleanupTask)
	return srv, mux
}

// HandleImageProcessTask downloads an uploaded image, enforces the size cap,
// resizes it to the configured maximum dimension, re-uploads it and attaches
// the key to its listing.
func (p *TaskProcessor) HandleImageProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload ImageTaskPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal image task payload: %v: %w", err, asynq.SkipRetry)
	}

	listingID, err := primitive.ObjectIDFromHex(payload.ListingID)
	if err != nil {
		return fmt.Errorf("invalid listing ID %q in image task: %w", payload.ListingID, asynq.SkipRetry)
	}

	obj, err := p.s3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(p.cfg.AwsS3Bucket),
		Key:    aws.String(payload.S3Key),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return fmt.Errorf("s3 object %s not found: %w", payload.S3Key, asynq.SkipRetry)
		}
		return fmt.Errorf("failed to download %s: %w", payload.S3Key, err)
	}
	defer obj.Body.Close()

	maxSizeBytes := int64(p.cfg.ImageMaxSizeMB) * 1024 * 1024
	imgData, err := io.ReadAll(io.LimitReader(obj.Body, maxSizeBytes+1))
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", payload.S3Key, err)
	}
	if int64(len(imgData)) > maxSizeBytes {
		log.Printf("Image %s exceeds max size, deleting upload.", payload.S3Key)
		p.deleteQuietly(ctx, payload.S3Key)
		return fmt.Errorf("image exceeds max size: %w", asynq.SkipRetry)
	}

	img, _, err := image.Decode(bytes.NewReader(imgData))
	if err != nil {
		log.Printf("Image %s is not decodable, deleting upload.", payload.S3Key)
		p.deleteQuietly(ctx, payload.S3Key)
		return fmt.Errorf("unsupported or corrupt image: %w", asynq.SkipRetry)
	}

	maxDim := uint(p.cfg.ImageMaxDimension)
	processed := imgData
	contentType := "image/jpeg"
	if uint(img.Bounds().Dx()) > maxDim || uint(img.Bounds().Dy()) > maxDim {
		resized := resize.Thumbnail(maxDim, maxDim, img, resize.Lanczos3)
		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, resized, &jpeg.Options{Quality: 85}); err != nil {
			return fmt.Errorf("failed to re-encode %s: %w", payload.S3Key, err)
		}
		processed = buf.Bytes()
	} else if obj.ContentType != nil {
		contentType = *obj.ContentType
	}

	_, err = p.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(p.cfg.AwsS3Bucket),
		Key:         aws.String(payload.S3Key),
		Body:        bytes.NewReader(processed),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("failed to upload processed image %s: %w", payload.S3Key, err)
	}

	if err := p.listings.AddImageToListing(ctx, listingID, payload.S3Key); err != nil {
		if errors.Is(err, services.ErrNotFound) {
			log.Printf("Listing %s gone before image %s attached, deleting upload.", payload.ListingID, payload.S3Key)
			p.deleteQuietly(ctx, payload.S3Key)
			return fmt.Errorf("listing not found: %w", asynq.SkipRetry)
		}
		return fmt.Errorf("failed to attach image %s to listing %s: %w", payload.S3Key, payload.ListingID, err)
	}
	return nil
}

func (p *TaskProcessor) deleteQuietly(ctx context.Context, key string) {
	_, err := p.s3Client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(p.cfg.AwsS3Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		log.Printf("WARN: failed to delete rejected upload %s: %v", key, err)
	}
}

// HandleEnquiryEmailTask relays a buyer enquiry to the seller. The buyer's
// address goes into the body, not the envelope, so sellers reply manually.
func (p *TaskProcessor) HandleEnquiryEmailTask(ctx context.Context, t *asynq.Task) error {
	var payload EnquiryEmailPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal enquiry payload: %v: %w", err, asynq.SkipRetry)
	}

	subject := fmt.Sprintf("%s: nouvelle demande pour votre annonce", p.cfg.AppName)
	body := fmt.Sprintf(
		"Vous avez reçu une demande de %s concernant votre annonce %s.\n\n%s\n\nRépondre à: %s\n",
		payload.FromName, payload.ListingID, payload.Message, payload.ReplyTo,
	)
	if err := p.emailSender.Send(ctx, payload.To, subject, body); err != nil {
		return fmt.Errorf("failed to send enquiry email to %s: %w", payload.To, err)
	}
	return nil
}

// HandleAnonCleanupTask sweeps anonymous accounts that were never promoted.
func (p *TaskProcessor) HandleAnonCleanupTask(ctx context.Context, _ *asynq.Task) error {
	deleted, err := p.users.DeleteStaleAnonymousUsers(ctx, p.cfg.MaxAnonAge)
	if err != nil {
		return err
	}
	if deleted > 0 {
		log.Printf("Anonymous cleanup removed %d accounts.", deleted)
	}
	return nil
}
