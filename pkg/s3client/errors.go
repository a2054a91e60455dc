package s3client

import (
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/minio/minio-go/v7"
)

var (
	ErrBucketNotFound = errors.New("bucket not found")
	ErrObjectNotFound = errors.New("object not found")
)

var notFoundCodes = map[string]bool{
	"NoSuchBucket": true,
	"NoSuchKey":    true,
	"NotFound":     true,
}

// IsNotFoundError reports whether err means a missing bucket or object, for
// either SDK.
func IsNotFoundError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrBucketNotFound) || errors.Is(err, ErrObjectNotFound) {
		return true
	}

	var minioErr minio.ErrorResponse
	if errors.As(err, &minioErr) {
		return notFoundCodes[minioErr.Code]
	}

	var noKey *types.NoSuchKey
	var noBucket *types.NoSuchBucket
	var notFound *types.NotFound
	if errors.As(err, &noKey) || errors.As(err, &noBucket) || errors.As(err, &notFound) {
		return true
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return notFoundCodes[apiErr.ErrorCode()]
	}
	return false
}

// FormatError renders SDK errors with their service code
func FormatError(err error) string {
	if err == nil {
		return ""
	}

	var minioErr minio.ErrorResponse
	if errors.As(err, &minioErr) {
		return fmt.Sprintf("S3 error: %s (code: %s)", minioErr.Message, minioErr.Code)
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return fmt.Sprintf("S3 error: %s (code: %s)", apiErr.ErrorMessage(), apiErr.ErrorCode())
	}

	return err.Error()
}
