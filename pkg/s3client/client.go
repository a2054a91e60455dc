package s3client

import (
	"context"
	"fmt"
	"path"
	"strings"
)

// Providers
const (
	ProviderMinIO = "minio"
	ProviderAWS   = "aws"
)

// Config represents the configuration for an S3 client
type Config struct {
	Provider  string
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Prefix    string
}

// Constructors, swappable in tests
var (
	NewMinIOFunc = NewMinIO
	NewAWSFunc   = NewAWS
)

// New creates a client for the configured provider
func New(ctx context.Context, cfg Config) (ObjectStore, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	switch cfg.Provider {
	case "", ProviderMinIO:
		return NewMinIOFunc(ctx, cfg)
	case ProviderAWS:
		return NewAWSFunc(ctx, cfg)
	default:
		return nil, fmt.Errorf("unsupported S3 provider %q", cfg.Provider)
	}
}

func (cfg Config) validate() error {
	if cfg.Bucket == "" {
		return fmt.Errorf("S3 bucket name is required")
	}
	if cfg.Provider != ProviderAWS && cfg.Endpoint == "" {
		return fmt.Errorf("S3 endpoint is required")
	}
	if cfg.Provider != ProviderAWS && (cfg.AccessKey == "" || cfg.SecretKey == "") {
		return fmt.Errorf("S3 access key and secret key are required")
	}
	return nil
}

// fullKey returns the object key with the prefix applied
func fullKey(prefix, key string) string {
	key = strings.TrimPrefix(key, "/")
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return key
	}
	return path.Join(prefix, key)
}

// relativeKey strips the prefix from a stored key
func relativeKey(prefix, key string) string {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return key
	}
	return strings.TrimPrefix(strings.TrimPrefix(key, prefix), "/")
}

// listPrefix is fullKey that keeps an empty key listing the whole prefix
func listPrefix(prefix, key string) string {
	p := fullKey(prefix, key)
	if key == "" && p != "" {
		return p + "/"
	}
	return p
}
