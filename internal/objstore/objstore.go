// ABOUTME: Object storage client for generated artifacts, backed by MinIO
// ABOUTME: Handles bucket provisioning, uploads, presigned download URLs and deletes

package objstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// DefaultPresignTTL is the lifetime of presigned download URLs when the
// caller does not specify one.
const DefaultPresignTTL = time.Hour

// ErrEmptyKey is returned for operations on a blank object key.
var ErrEmptyKey = errors.New("object key is empty")

// Config holds the connection settings for the object store.
type Config struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	UseSSL    bool   `yaml:"use_ssl"`
}

// Storage is a bucket-scoped object store.
type Storage struct {
	client *minio.Client
	bucket string
	logger *slog.Logger
}

// New connects to the object store and ensures the configured bucket exists,
// retrying provisioning a few times so the gateway survives a storage
// backend that is still starting up.
func New(ctx context.Context, cfg Config, logger *slog.Logger) (*Storage, error) {
	if logger == nil {
		logger = slog.Default()
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("creating object store client: %w", err)
	}

	s := &Storage{
		client: client,
		bucket: cfg.Bucket,
		logger: logger.With("component", "objstore"),
	}
	if err := s.ensureBucket(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// ensureBucket creates the bucket if it does not exist yet. Creation races
// between replicas are tolerated: a bucket that exists on recheck is success.
func (s *Storage) ensureBucket(ctx context.Context) error {
	const attempts = 5

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		exists, err := s.client.BucketExists(ctx, s.bucket)
		if err == nil && exists {
			return nil
		}
		if err == nil {
			err = s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{})
			if err == nil {
				s.logger.Info("created artifact bucket", "bucket", s.bucket)
				return nil
			}
			if exists, checkErr := s.client.BucketExists(ctx, s.bucket); checkErr == nil && exists {
				return nil
			}
		}
		lastErr = err
		s.logger.Warn("bucket provisioning attempt failed",
			"bucket", s.bucket,
			"attempt", attempt,
			"error", err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(2 * time.Second):
		}
	}
	return fmt.Errorf("ensuring bucket %s after %d attempts: %w", s.bucket, attempts, lastErr)
}

// Upload stores an object and returns its key.
func (s *Storage) Upload(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	if key == "" {
		return "", ErrEmptyKey
	}

	_, err := s.client.PutObject(ctx, s.bucket, key,
		bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", fmt.Errorf("uploading %s: %w", key, err)
	}

	s.logger.Info("uploaded artifact",
		"key", key,
		"size_kb", len(data)/1024,
		"content_type", contentType)
	return key, nil
}

// PresignedURL returns a time-limited download URL for a stored object.
// A non-positive ttl falls back to DefaultPresignTTL.
func (s *Storage) PresignedURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	if key == "" {
		return "", ErrEmptyKey
	}
	if ttl <= 0 {
		ttl = DefaultPresignTTL
	}

	u, err := s.client.PresignedGetObject(ctx, s.bucket, key, ttl, url.Values{})
	if err != nil {
		return "", fmt.Errorf("presigning %s: %w", key, err)
	}
	return u.String(), nil
}

// Delete removes a stored object. Deleting a missing object is not an error.
func (s *Storage) Delete(ctx context.Context, key string) error {
	if key == "" {
		return ErrEmptyKey
	}
	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("deleting %s: %w", key, err)
	}
	return nil
}
