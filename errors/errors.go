// Package errors provides error types and handling for object synchronization.
package errors

import (
	"context"
	"errors"
	"fmt"
)

// Error represents a sync error with context about the operation that failed.
// It wraps the underlying store or filesystem error with additional context for better debugging.
type Error struct {
	// Op is the operation that failed (e.g., "upload", "fingerprint", "recordMetadata")
	Op string

	// Container is the remote container name (if applicable)
	Container string

	// Key is the object key (if applicable)
	Key string

	// Code classifies the failure; empty means it is derived from Err
	Code ErrorCode

	// Err is the underlying error
	Err error
}

// Error implements the error interface by providing a formatted error message.
func (e *Error) Error() string {
	if e.Container != "" && e.Key != "" {
		return fmt.Sprintf("blobsync.%s %s/%s: %v", e.Op, e.Container, e.Key, e.Err)
	}
	if e.Container != "" {
		return fmt.Sprintf("blobsync.%s container %s: %v", e.Op, e.Container, e.Err)
	}
	if e.Key != "" {
		return fmt.Sprintf("blobsync.%s object %s: %v", e.Op, e.Key, e.Err)
	}
	return fmt.Sprintf("blobsync.%s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for error chaining support.
func (e *Error) Unwrap() error {
	return e.Err
}

// WithContainer adds container context to an existing error.
func (e *Error) WithContainer(container string) *Error {
	e.Container = container
	return e
}

// WithKey adds object key context to an existing error.
func (e *Error) WithKey(key string) *Error {
	e.Key = key
	return e
}

// WithCode sets an explicit error code.
func (e *Error) WithCode(code ErrorCode) *Error {
	e.Code = code
	return e
}

// WithMessage wraps the underlying error with a custom message.
func (e *Error) WithMessage(message string) *Error {
	e.Err = fmt.Errorf("%s: %w", message, e.Err)
	return e
}

// NewError creates a new Error with the given operation and underlying error.
func NewError(op string, err error) *Error {
	return &Error{
		Op:  op,
		Err: err,
	}
}

// NewObjectError creates a new Error with container and key context.
func NewObjectError(op, container, key string, err error) *Error {
	return &Error{
		Op:        op,
		Container: container,
		Key:       key,
		Err:       err,
	}
}

// NewConfigError creates an error for a configuration problem that aborts the run.
func NewConfigError(message string) *Error {
	return &Error{
		Op:   "configure",
		Code: CodeInvalidConfig,
		Err:  fmt.Errorf("%s: %w", message, ErrConfiguration),
	}
}

// NewValidationError creates an error for invalid caller input.
func NewValidationError(message string) *Error {
	return &Error{
		Op:   "validate",
		Code: CodeInvalidInput,
		Err:  fmt.Errorf("%s: %w", message, ErrInvalidInput),
	}
}

// Sentinel errors for common sync failures.
// These can be used with errors.Is() for error checking.
var (
	// ErrObjectNotFound indicates that the requested object does not exist
	ErrObjectNotFound = errors.New("blobsync: object not found")

	// ErrContainerNotFound indicates that the requested container does not exist
	ErrContainerNotFound = errors.New("blobsync: container not found")

	// ErrAccessDenied indicates that access to the resource is denied
	ErrAccessDenied = errors.New("blobsync: access denied")

	// ErrInvalidInput indicates that the provided input is invalid
	ErrInvalidInput = errors.New("blobsync: invalid input")

	// ErrInvalidContainerName indicates that the container name is invalid
	ErrInvalidContainerName = errors.New("blobsync: invalid container name")

	// ErrInvalidObjectKey indicates that the object key is invalid
	ErrInvalidObjectKey = errors.New("blobsync: invalid object key")

	// ErrConfiguration indicates an unreadable credential file or a missing required parameter
	ErrConfiguration = errors.New("blobsync: configuration error")

	// ErrTransient indicates a network or timeout failure talking to the store
	ErrTransient = errors.New("blobsync: transient store error")

	// ErrTooManyRequests indicates that the store throttled the request
	ErrTooManyRequests = errors.New("blobsync: too many requests")

	// ErrChunkFailed indicates a chunk could not be transferred after all retries
	ErrChunkFailed = errors.New("blobsync: chunk transfer failed")

	// ErrNotFinalized indicates an upload was abandoned before it was committed
	ErrNotFinalized = errors.New("blobsync: upload not finalized")

	// ErrPartialMetadata indicates content was uploaded but metadata could not be written
	ErrPartialMetadata = errors.New("blobsync: content uploaded, metadata stale")

	// ErrDuplicateKey indicates two local files map to the same object key
	ErrDuplicateKey = errors.New("blobsync: duplicate object key")

	// ErrSyncIncomplete indicates one or more files did not sync cleanly
	ErrSyncIncomplete = errors.New("blobsync: sync incomplete")
)

// CodeOf returns the error code carried by err, deriving one from sentinels
// when no explicit code was set.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) && e.Code != "" {
		return e.Code
	}
	switch {
	case errors.Is(err, context.Canceled):
		return CodeCanceled
	case errors.Is(err, context.DeadlineExceeded):
		return CodeTimeout
	case errors.Is(err, ErrObjectNotFound), errors.Is(err, ErrContainerNotFound):
		return CodeNotFound
	case errors.Is(err, ErrAccessDenied):
		return CodeForbidden
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrInvalidObjectKey), errors.Is(err, ErrInvalidContainerName):
		return CodeInvalidInput
	case errors.Is(err, ErrConfiguration):
		return CodeInvalidConfig
	case errors.Is(err, ErrTooManyRequests):
		return CodeRateLimit
	case errors.Is(err, ErrTransient):
		return CodeNetwork
	case errors.Is(err, ErrPartialMetadata):
		return CodePartialMetadata
	case errors.Is(err, ErrDuplicateKey):
		return CodeConflict
	case errors.Is(err, ErrChunkFailed), errors.Is(err, ErrNotFinalized):
		return CodeExecutionFailed
	default:
		return CodeUnknown
	}
}

// IsRetryable reports whether a store operation that failed with err may be retried.
func IsRetryable(err error) bool {
	return CodeOf(err).Retryable()
}

// IsObjectNotFound checks if an error indicates that an object was not found.
func IsObjectNotFound(err error) bool {
	return errors.Is(err, ErrObjectNotFound)
}

// IsConfiguration checks if an error is a run-level configuration error.
func IsConfiguration(err error) bool {
	return errors.Is(err, ErrConfiguration)
}

// IsPartialMetadata checks if an error reports uploaded content with stale metadata.
func IsPartialMetadata(err error) bool {
	return errors.Is(err, ErrPartialMetadata)
}
