package repository

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	appConfig "github.com/mansoorceksport/elearning-billing/internal/config"
)

// S3PayloadArchive implements domain.PayloadArchive on an S3-compatible store
type S3PayloadArchive struct {
	client *s3.Client
	bucket string
}

// NewS3PayloadArchive creates the archive and makes sure its bucket exists
func NewS3PayloadArchive(ctx context.Context, cfg appConfig.S3Config) (*S3PayloadArchive, error) {
	// Static placeholder credentials; SeaweedFS/MinIO still expect signed requests
	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider("any", "any", "")),
	)
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config, %v", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.Endpoint)
		o.UsePathStyle = true
	})

	archive := &S3PayloadArchive{
		client: client,
		bucket: cfg.Bucket,
	}

	if err := archive.ensureBucket(ctx); err != nil {
		return nil, err
	}

	return archive, nil
}

// Archive stores the raw payload under webhooks/<yyyy>/<mm>/<dd>/<eventID>.json and returns the key
func (a *S3PayloadArchive) Archive(ctx context.Context, eventID string, receivedAt time.Time, payload []byte) (string, error) {
	key := archiveKey(eventID, receivedAt)

	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(payload),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to archive webhook payload: %w", err)
	}
	return key, nil
}

func archiveKey(eventID string, receivedAt time.Time) string {
	return fmt.Sprintf("webhooks/%s/%s.json", receivedAt.UTC().Format("2006/01/02"), eventID)
}

// ensureBucket checks if bucket exists, creating it if necessary
func (a *S3PayloadArchive) ensureBucket(ctx context.Context) error {
	_, err := a.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(a.bucket),
	})
	if err != nil {
		_, err = a.client.CreateBucket(ctx, &s3.CreateBucketInput{
			Bucket: aws.String(a.bucket),
		})
		if err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", a.bucket, err)
		}
	}
	return nil
}
