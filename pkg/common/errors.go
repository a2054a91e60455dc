package common

import "fmt"

// ConfigError reports a missing or invalid setting.
type ConfigError struct {
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("Configuration Error: %s", e.Message)
}

// UploadError reports a rejected upload. Status is the HTTP status code when
// the rejection came from a transport response, 0 otherwise.
type UploadError struct {
	Status  int
	Message string
}

func (e *UploadError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("Upload Error: %s (status %d)", e.Message, e.Status)
	}
	return fmt.Sprintf("Upload Error: %s", e.Message)
}

// StorageError wraps a failure of the object store.
type StorageError struct {
	Message string
	Err     error
}

func (e *StorageError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("Storage Error: %s: %v", e.Message, e.Err)
	}
	return fmt.Sprintf("Storage Error: %s", e.Message)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// ErrEndpointNotConfigured is returned by the upload path when no storage
// endpoint has been set.
var ErrEndpointNotConfigured = &ConfigError{Message: "storage endpoint is not configured"}

func NewConfigError(message string) error {
	return &ConfigError{Message: message}
}

func NewUploadError(status int, message string) error {
	return &UploadError{Status: status, Message: message}
}

func NewStorageError(message string, err error) error {
	return &StorageError{Message: message, Err: err}
}
