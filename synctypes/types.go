// Package synctypes provides shared type definitions for the blobsync module.
package synctypes

import (
	"log/slog"
	"sort"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/prometheus/client_golang/prometheus"
)

// ContentInfo is the fingerprint of a local file or remote object.
// Digest is the base64-encoded MD5 of the content; an empty digest means unknown.
type ContentInfo struct {
	// Digest is the base64-encoded content digest, empty when not recorded
	Digest string

	// Length is the content length in bytes, -1 for an absent object
	Length int64
}

// Absent is the fingerprint of an object that does not exist.
var Absent = ContentInfo{Length: -1}

// IsAbsent reports whether c describes a missing object.
func (c ContentInfo) IsAbsent() bool {
	return c.Length < 0
}

// HasDigest reports whether a digest is known for c.
func (c ContentInfo) HasDigest() bool {
	return !c.IsAbsent() && c.Digest != ""
}

// ComparisonResult is the verdict of comparing a remote fingerprint with a local one.
type ComparisonResult int

const (
	// NotEqual means the remote copy is missing or differs from the local file.
	NotEqual ComparisonResult = iota

	// SizeMatchContentUnknown means lengths match but the remote digest is unknown.
	SizeMatchContentUnknown

	// LikelyEqual means lengths and digests match.
	LikelyEqual
)

// String returns the verdict name used in logs and reports.
func (r ComparisonResult) String() string {
	switch r {
	case NotEqual:
		return "not_equal"
	case SizeMatchContentUnknown:
		return "size_match_content_unknown"
	case LikelyEqual:
		return "likely_equal"
	default:
		return "unknown"
	}
}

// RequiresUpload reports whether the verdict forces an upload.
// Only LikelyEqual allows a file to be skipped.
func (r ComparisonResult) RequiresUpload() bool {
	return r != LikelyEqual
}

// Status is the terminal state of one file's sync pipeline.
type Status string

// Possible file outcomes
const (
	// StatusSkipped means the remote copy was judged equivalent
	StatusSkipped Status = "skipped"

	// StatusUploaded means content and metadata were both written
	StatusUploaded Status = "uploaded"

	// StatusMetadataStale means content was uploaded but metadata could not be written
	StatusMetadataStale Status = "metadata_stale"

	// StatusFailed means the file was not synced
	StatusFailed Status = "failed"

	// StatusWouldUpload is reported by dry runs for files that need uploading
	StatusWouldUpload Status = "would_upload"
)

// Outcome records what happened to a single file during a run.
// It is written once by the file's pipeline and never mutated afterwards.
type Outcome struct {
	// Key is the remote object key
	Key string

	// LocalPath is the local file the key was derived from
	LocalPath string

	// Status is the terminal state
	Status Status

	// Verdict is the comparison result, meaningful once the file was compared
	Verdict ComparisonResult

	// Size is the local file size in bytes
	Size int64

	// Digest is the local content digest, when computed
	Digest string

	// Err is the failure reason for failed and metadata_stale outcomes
	Err error

	// Duration is how long the pipeline took
	Duration time.Duration
}

// Result contains the outcome of a sync run.
type Result struct {
	// Outcomes maps each object key to its outcome
	Outcomes map[string]*Outcome

	// FilesUploaded is the number of files uploaded with fresh metadata
	FilesUploaded int

	// FilesSkipped is the number of files judged unchanged
	FilesSkipped int

	// FilesFailed is the number of files that failed
	FilesFailed int

	// FilesMetadataStale is the number of files uploaded with stale metadata
	FilesMetadataStale int

	// FilesWouldUpload is the number of files a dry run would upload
	FilesWouldUpload int

	// BytesUploaded is the total content bytes uploaded
	BytesUploaded int64

	// Duration is how long the run took
	Duration time.Duration
}

// NewResult creates an empty result.
func NewResult() *Result {
	return &Result{Outcomes: make(map[string]*Outcome)}
}

// Add records an outcome and updates the counters.
func (r *Result) Add(o *Outcome) {
	r.Outcomes[o.Key] = o
	switch o.Status {
	case StatusUploaded:
		r.FilesUploaded++
		r.BytesUploaded += o.Size
	case StatusMetadataStale:
		r.FilesMetadataStale++
		r.BytesUploaded += o.Size
	case StatusSkipped:
		r.FilesSkipped++
	case StatusWouldUpload:
		r.FilesWouldUpload++
	case StatusFailed:
		r.FilesFailed++
	}
}

// Succeeded reports whether every file reached a clean terminal state.
func (r *Result) Succeeded() bool {
	return r.FilesFailed == 0 && r.FilesMetadataStale == 0
}

// Keys returns the object keys in sorted order.
func (r *Result) Keys() []string {
	keys := make([]string, 0, len(r.Outcomes))
	for k := range r.Outcomes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Errors returns the errors of all failed and metadata_stale outcomes in key order.
func (r *Result) Errors() []error {
	var errs []error
	for _, k := range r.Keys() {
		if o := r.Outcomes[k]; o.Err != nil {
			errs = append(errs, o.Err)
		}
	}
	return errs
}

// Properties are the content properties written onto an uploaded object.
type Properties struct {
	// ContentType is the MIME type of the object
	ContentType string

	// ContentEncoding is the optional content encoding (e.g. "gzip")
	ContentEncoding string
}

// Attributes describe a remote object without its content.
type Attributes struct {
	// Length is the object size in bytes
	Length int64

	// Digest is the stored base64 MD5 digest, empty when the store has none
	Digest string

	// ContentType is the MIME type of the object
	ContentType string

	// ContentEncoding is the content encoding of the object
	ContentEncoding string

	// Metadata contains user-defined metadata
	Metadata map[string]string
}

// ProgressTracker defines the interface for tracking transfer progress.
// Implementations receive cumulative byte counts across the whole run.
type ProgressTracker interface {
	// Update is called after each file upload with cumulative progress
	Update(bytesTransferred, totalBytes int64)

	// Complete is called when the run finishes without failures
	Complete()

	// Error is called when the run finishes with failures
	Error(err error)
}

// Observer receives instrumentation events from a sync run.
// Implementations must be safe for concurrent use.
type Observer interface {
	// ObserveOutcome is called once per finalized file outcome
	ObserveOutcome(o *Outcome)

	// ObserveOperation is called after each store operation
	ObserveOperation(op string, duration time.Duration, err error)

	// ObserveChunkRetry is called before a failed chunk transfer is retried
	ObserveChunkRetry(key string)
}

// NopObserver is an Observer that discards all events.
type NopObserver struct{}

// ObserveOutcome implements Observer.
func (NopObserver) ObserveOutcome(*Outcome) {}

// ObserveOperation implements Observer.
func (NopObserver) ObserveOperation(string, time.Duration, error) {}

// ObserveChunkRetry implements Observer.
func (NopObserver) ObserveChunkRetry(string) {}

// RetryPolicy controls exponential backoff for chunk and whole-file transfers.
type RetryPolicy struct {
	// InitialInterval is the delay before the first retry
	InitialInterval time.Duration

	// MaxInterval caps the delay between retries
	MaxInterval time.Duration

	// MaxElapsedTime bounds the total time spent retrying one transfer
	MaxElapsedTime time.Duration

	// MaxRetries is the maximum number of retries per transfer
	MaxRetries uint64
}

// DefaultRetryPolicy returns the retry policy used when none is configured.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		InitialInterval: 100 * time.Millisecond,
		MaxInterval:     5 * time.Second,
		MaxElapsedTime:  30 * time.Second,
		MaxRetries:      5,
	}
}

// Backend selects the object store implementation.
type Backend string

// Supported backends
const (
	// BackendS3 uses the AWS SDK against S3 or an S3-compatible endpoint
	BackendS3 Backend = "s3"

	// BackendMinIO uses the MinIO client
	BackendMinIO Backend = "minio"
)

// Configuration types for functional options

// ClientConfig holds configuration for the sync client.
type ClientConfig struct {
	Backend          Backend
	Parallelism      int
	ChunkSize        int64
	ChunkParallelism int
	MaxInFlight      int
	RetryPolicy      RetryPolicy
	Logger           *slog.Logger
	Observer         Observer
	Metrics          prometheus.Registerer
	Filesystem       billy.Filesystem
}

// SyncOptionConfig holds configuration for a single sync run via functional options.
type SyncOptionConfig struct {
	ContentType       string
	ContentEncoding   string
	DestinationFolder string
	IncludePatterns   []string
	ExcludePatterns   []string
	QuickCheck        bool
	DryRun            bool
	ProgressTracker   ProgressTracker
	Parallelism       int
}

type (
	// Option is a functional option for configuring the sync client.
	Option func(*ClientConfig)
	// SyncOption is a functional option for configuring a sync run.
	SyncOption func(*SyncOptionConfig)
)
