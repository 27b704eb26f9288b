package provider

import (
	"bytes"
	"context"
	"fmt"
	"net/url"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/dharsanguruparan/RelayDrop/internal/config"
)

// S3 stores uploads in a MinIO/S3 bucket. Unlike the disposable hosts it is
// durable (no expiry) and supports remote deletion, which makes it the
// cleanup target for the worker.
type S3 struct {
	client *minio.Client
	bucket string
	region string
}

// NewS3 creates a MinIO-backed adapter from the Config.
func NewS3(cfg *config.Config) (*S3, error) {
	client, err := minio.New(cfg.S3Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.S3AccessKey, cfg.S3SecretKey, ""),
		Secure: cfg.S3UseSSL,
		Region: cfg.S3Region,
	})
	if err != nil {
		return nil, fmt.Errorf("init minio: %w", err)
	}
	return &S3{client: client, bucket: cfg.S3Bucket, region: cfg.S3Region}, nil
}

// Name identifies the host in records and diagnostics.
func (s *S3) Name() string { return "s3" }

// EnsureBucket makes sure the bucket exists before the first upload.
func (s *S3) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", s.bucket, err)
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: s.region}); err != nil {
			return fmt.Errorf("make bucket %s: %w", s.bucket, err)
		}
	}
	return nil
}

// Upload puts the payload under a unique object key and returns its public
// URL. The key doubles as the provider file id for later deletion.
func (s *S3) Upload(ctx context.Context, payload []byte, fileName, mimeType string) (*Outcome, error) {
	objectKey := fmt.Sprintf("uploads/%s/%s", uuid.NewString(), fileName)
	opts := minio.PutObjectOptions{ContentType: mimeType}
	if _, err := s.client.PutObject(ctx, s.bucket, objectKey, bytes.NewReader(payload), int64(len(payload)), opts); err != nil {
		return nil, fmt.Errorf("put object: %w", err)
	}
	endpoint := s.client.EndpointURL()
	objectURL := fmt.Sprintf("%s/%s/%s", endpoint.String(), s.bucket, escapePath(objectKey))
	return &Outcome{
		URL:            objectURL,
		DirectURL:      objectURL,
		ProviderFileID: objectKey,
	}, nil
}

// Delete removes the stored object.
func (s *S3) Delete(ctx context.Context, providerFileID string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, providerFileID, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("remove object: %w", err)
	}
	return nil
}

func escapePath(objectKey string) string {
	u := url.URL{Path: objectKey}
	return u.EscapedPath()
}
