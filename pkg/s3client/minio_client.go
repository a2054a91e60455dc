package s3client

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/bstardust/flood-survey-collector/internal/logger"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinIOStore talks to MinIO (or any S3-compatible endpoint) through minio-go
type MinIOStore struct {
	client *minio.Client
	config Config
}

// NewMinIO connects to cfg.Endpoint and checks that the bucket exists
func NewMinIO(ctx context.Context, cfg Config) (ObjectStore, error) {
	host := cfg.Endpoint
	secure := cfg.UseSSL
	switch {
	case strings.HasPrefix(host, "https://"):
		host, secure = strings.TrimPrefix(host, "https://"), true
	case strings.HasPrefix(host, "http://"):
		host, secure = strings.TrimPrefix(host, "http://"), false
	}
	host = strings.TrimSuffix(host, "/")

	client, err := minio.New(host, &minio.Options{
		Creds:        credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure:       secure,
		Region:       cfg.Region,
		BucketLookup: minio.BucketLookupAuto,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	found, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket %s: %w", cfg.Bucket, err)
	}
	if !found {
		return nil, fmt.Errorf("%w: %s", ErrBucketNotFound, cfg.Bucket)
	}

	logger.Info("Connected to object store %s, bucket %s", host, cfg.Bucket)
	return &MinIOStore{client: client, config: cfg}, nil
}

// Put stores an object with its user metadata
func (s *MinIOStore) Put(ctx context.Context, reader io.Reader, key string, size int64, meta map[string]string, contentType string) error {
	full := fullKey(s.config.Prefix, key)

	info, err := s.client.PutObject(ctx, s.config.Bucket, full, reader, size, minio.PutObjectOptions{
		ContentType:  orOctetStream(contentType),
		UserMetadata: meta,
	})
	if err != nil {
		return fmt.Errorf("failed to put %s: %w", full, err)
	}

	logger.Debug("Stored %s (%d bytes, etag %s)", full, info.Size, info.ETag)
	return nil
}

// Stat returns an object's attributes and user metadata
func (s *MinIOStore) Stat(ctx context.Context, key string) (ObjectInfo, error) {
	info, err := s.client.StatObject(ctx, s.config.Bucket, fullKey(s.config.Prefix, key), minio.StatObjectOptions{})
	if err != nil {
		if IsNotFoundError(err) {
			return ObjectInfo{}, fmt.Errorf("%w: %s", ErrObjectNotFound, key)
		}
		return ObjectInfo{}, fmt.Errorf("failed to stat %s: %w", key, err)
	}

	return ObjectInfo{
		Key:          relativeKey(s.config.Prefix, info.Key),
		Size:         info.Size,
		LastModified: info.LastModified,
		ContentType:  info.ContentType,
		UserMetadata: info.UserMetadata,
	}, nil
}

// List returns every object under prefix, recursively
func (s *MinIOStore) List(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	opts := minio.ListObjectsOptions{
		Prefix:    listPrefix(s.config.Prefix, prefix),
		Recursive: true,
	}

	var out []ObjectInfo
	for obj := range s.client.ListObjects(ctx, s.config.Bucket, opts) {
		if obj.Err != nil {
			return nil, fmt.Errorf("failed to list %s: %w", s.config.Bucket, obj.Err)
		}
		out = append(out, ObjectInfo{
			Key:          relativeKey(s.config.Prefix, obj.Key),
			Size:         obj.Size,
			LastModified: obj.LastModified,
			ContentType:  obj.ContentType,
		})
	}
	return out, nil
}

// Delete removes an object
func (s *MinIOStore) Delete(ctx context.Context, key string) error {
	full := fullKey(s.config.Prefix, key)
	if err := s.client.RemoveObject(ctx, s.config.Bucket, full, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to delete %s: %w", full, err)
	}
	return nil
}

// PresignGet returns a time-limited download link
func (s *MinIOStore) PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error) {
	u, err := s.client.PresignedGetObject(ctx, s.config.Bucket, fullKey(s.config.Prefix, key), expiry, nil)
	if err != nil {
		return "", fmt.Errorf("failed to presign %s: %w", key, err)
	}
	return u.String(), nil
}

// Bucket returns the bucket name
func (s *MinIOStore) Bucket() string { return s.config.Bucket }

// Prefix returns the key prefix
func (s *MinIOStore) Prefix() string { return s.config.Prefix }

func orOctetStream(contentType string) string {
	if contentType == "" {
		return "application/octet-stream"
	}
	return contentType
}
