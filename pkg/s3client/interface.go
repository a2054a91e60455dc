package s3client

import (
	"context"
	"io"
	"time"
)

// ObjectInfo describes a stored object. Key is relative to the client prefix.
type ObjectInfo struct {
	Key          string
	Size         int64
	LastModified time.Time
	ContentType  string
	UserMetadata map[string]string
}

// ObjectStore is the slice of S3 the report storage needs. Keys passed in
// and returned are relative to the configured prefix.
type ObjectStore interface {
	Put(ctx context.Context, reader io.Reader, objectKey string, size int64, metadata map[string]string, contentType string) error
	Stat(ctx context.Context, objectKey string) (ObjectInfo, error)
	List(ctx context.Context, prefix string) ([]ObjectInfo, error)
	Delete(ctx context.Context, objectKey string) error
	PresignGet(ctx context.Context, objectKey string, expiry time.Duration) (string, error)
	Bucket() string
	Prefix() string
}
