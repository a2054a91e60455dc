package s3client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/bstardust/flood-survey-collector/internal/logger"
)

// AWSStore represents an S3 client using AWS SDK v2
type AWSStore struct {
	client  *s3.Client
	presign *s3.PresignClient
	config  Config
}

// NewAWS creates a new AWS S3 client. An empty endpoint uses the AWS default
// resolution; otherwise the endpoint is used with path-style addressing.
func NewAWS(ctx context.Context, cfg Config) (ObjectStore, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	endpoint := cfg.Endpoint
	if endpoint != "" && !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		if cfg.UseSSL {
			endpoint = "https://" + endpoint
		} else {
			endpoint = "http://" + endpoint
		}
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})

	_, err = client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(cfg.Bucket)})
	if err != nil {
		return nil, fmt.Errorf("failed to check if bucket exists: %w", err)
	}

	logger.Info("Successfully connected to S3 endpoint %s, bucket %s using AWS SDK", endpoint, cfg.Bucket)

	return &AWSStore{
		client:  client,
		presign: s3.NewPresignClient(client),
		config:  cfg,
	}, nil
}

// Put stores an object with its user metadata
func (c *AWSStore) Put(ctx context.Context, reader io.Reader, objectKey string, size int64, metadata map[string]string, contentType string) error {
	objectKey = fullKey(c.config.Prefix, objectKey)

	if contentType == "" {
		contentType = "application/octet-stream"
	}

	// Payload signing needs a seekable body
	body, ok := reader.(io.ReadSeeker)
	if !ok {
		buf := &bytes.Buffer{}
		if _, err := io.Copy(buf, reader); err != nil {
			return fmt.Errorf("failed to buffer file: %w", err)
		}
		body = bytes.NewReader(buf.Bytes())
		size = int64(buf.Len())
	}

	_, err := c.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(c.config.Bucket),
		Key:           aws.String(objectKey),
		Body:          body,
		ContentLength: aws.Int64(size),
		ContentType:   aws.String(contentType),
		Metadata:      metadata,
	})
	if err != nil {
		return fmt.Errorf("failed to upload file: %w", err)
	}

	logger.Debug("Uploaded file to %s (%d bytes)", objectKey, size)
	return nil
}

// Stat returns an object's attributes and user metadata
func (c *AWSStore) Stat(ctx context.Context, objectKey string) (ObjectInfo, error) {
	full := fullKey(c.config.Prefix, objectKey)

	out, err := c.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(c.config.Bucket),
		Key:    aws.String(full),
	})
	if err != nil {
		var notFound *types.NotFound
		if errors.As(err, &notFound) {
			return ObjectInfo{}, fmt.Errorf("%w: %s", ErrObjectNotFound, objectKey)
		}
		return ObjectInfo{}, fmt.Errorf("failed to stat object: %w", err)
	}

	return ObjectInfo{
		Key:          objectKey,
		Size:         aws.ToInt64(out.ContentLength),
		LastModified: aws.ToTime(out.LastModified),
		ContentType:  aws.ToString(out.ContentType),
		UserMetadata: out.Metadata,
	}, nil
}

// List lists objects in the bucket with the given prefix
func (c *AWSStore) List(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	var objects []ObjectInfo

	paginator := s3.NewListObjectsV2Paginator(c.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(c.config.Bucket),
		Prefix: aws.String(listPrefix(c.config.Prefix, prefix)),
	})

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("error listing objects: %w", err)
		}
		for _, item := range page.Contents {
			objects = append(objects, ObjectInfo{
				Key:          relativeKey(c.config.Prefix, aws.ToString(item.Key)),
				Size:         aws.ToInt64(item.Size),
				LastModified: aws.ToTime(item.LastModified),
			})
		}
	}

	return objects, nil
}

// Delete removes an object from the bucket
func (c *AWSStore) Delete(ctx context.Context, objectKey string) error {
	objectKey = fullKey(c.config.Prefix, objectKey)

	_, err := c.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(c.config.Bucket),
		Key:    aws.String(objectKey),
	})
	if err != nil {
		return fmt.Errorf("failed to delete object: %w", err)
	}

	logger.Debug("Deleted object %s", objectKey)
	return nil
}

// PresignGet returns a time-limited download link
func (c *AWSStore) PresignGet(ctx context.Context, objectKey string, expiry time.Duration) (string, error) {
	req, err := c.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.config.Bucket),
		Key:    aws.String(fullKey(c.config.Prefix, objectKey)),
	}, s3.WithPresignExpires(expiry))
	if err != nil {
		return "", fmt.Errorf("failed to generate presigned URL: %w", err)
	}
	return req.URL, nil
}

// Bucket returns the bucket name
func (c *AWSStore) Bucket() string {
	return c.config.Bucket
}

// Prefix returns the key prefix
func (c *AWSStore) Prefix() string {
	return c.config.Prefix
}
