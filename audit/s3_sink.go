package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	appConfig "github.com/kendall-kelly/restaurant-pos-api/config"
)

// ObjectStore defines the object storage operations the archive needs
type ObjectStore interface {
	PutObject(ctx context.Context, key string, body []byte, contentType string) error
}

// S3ObjectStore implements ObjectStore on AWS S3
type S3ObjectStore struct {
	client *s3.Client
	bucket string
}

// NewS3ObjectStore builds an S3 client from the application configuration
func NewS3ObjectStore(ctx context.Context, cfg *appConfig.Config) (*S3ObjectStore, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.AWSRegion),
	}
	if cfg.AWSAccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AWSAccessKeyID,
			cfg.AWSSecretAccessKey,
			"",
		)))
	}

	awsConfig, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &S3ObjectStore{
		client: s3.NewFromConfig(awsConfig),
		bucket: cfg.AWSS3Bucket,
	}, nil
}

// PutObject uploads body under key
func (s *S3ObjectStore) PutObject(ctx context.Context, key string, body []byte, contentType string) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("failed to upload to S3: %w", err)
	}
	return nil
}

// S3Sink archives each event as its own JSON object
type S3Sink struct {
	store ObjectStore
}

// NewS3Sink creates an archive sink over store
func NewS3Sink(store ObjectStore) *S3Sink {
	return &S3Sink{store: store}
}

// ObjectKey returns the archive key of event: audit/yyyy/mm/dd/<uuid>.json
func ObjectKey(event Event) string {
	return fmt.Sprintf("audit/%s/%s.json", event.Timestamp.UTC().Format("2006/01/02"), uuid.NewString())
}

// Write implements Sink
func (s *S3Sink) Write(ctx context.Context, event Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode audit event: %w", err)
	}
	return s.store.PutObject(ctx, ObjectKey(event), body, "application/json")
}
