package blobsync

import (
	"log/slog"

	"github.com/go-git/go-billy/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/input-output-hk/catalyst-forge-libs/blobsync/synctypes"
)

// WithBackend selects the object store implementation. Default is S3.
func WithBackend(backend synctypes.Backend) synctypes.Option {
	return func(c *synctypes.ClientConfig) {
		c.Backend = backend
	}
}

// WithParallelism sets how many files are processed concurrently.
// Default is 5.
func WithParallelism(n int) synctypes.Option {
	return func(c *synctypes.ClientConfig) {
		c.Parallelism = n
	}
}

// WithChunkSize sets the chunk size for large files. Files no larger than
// one chunk are uploaded in a single request. Default is 8MB; real
// backends require at least 5MB.
func WithChunkSize(size int64) synctypes.Option {
	return func(c *synctypes.ClientConfig) {
		c.ChunkSize = size
	}
}

// WithChunkParallelism sets how many chunks of one file are in flight at once.
// Default is 4.
func WithChunkParallelism(n int) synctypes.Option {
	return func(c *synctypes.ClientConfig) {
		c.ChunkParallelism = n
	}
}

// WithMaxInFlight caps the number of store operations in flight across all
// files. Defaults to parallelism times chunk parallelism; negative disables the cap.
func WithMaxInFlight(n int) synctypes.Option {
	return func(c *synctypes.ClientConfig) {
		c.MaxInFlight = n
	}
}

// WithRetryPolicy sets the backoff used for chunk and whole-file transfers.
func WithRetryPolicy(policy synctypes.RetryPolicy) synctypes.Option {
	return func(c *synctypes.ClientConfig) {
		c.RetryPolicy = policy
	}
}

// WithLogger sets the structured logger. Logging is discarded by default.
func WithLogger(logger *slog.Logger) synctypes.Option {
	return func(c *synctypes.ClientConfig) {
		c.Logger = logger
	}
}

// WithObserver receives outcomes, store operation timings and retries.
func WithObserver(observer synctypes.Observer) synctypes.Option {
	return func(c *synctypes.ClientConfig) {
		c.Observer = observer
	}
}

// WithMetrics registers Prometheus collectors for the client with reg.
func WithMetrics(reg prometheus.Registerer) synctypes.Option {
	return func(c *synctypes.ClientConfig) {
		c.Metrics = reg
	}
}

// WithFilesystem sets the filesystem local files are read from.
// This allows using in-memory filesystems for testing.
// If not specified, defaults to the OS filesystem.
func WithFilesystem(fs billy.Filesystem) synctypes.Option {
	return func(c *synctypes.ClientConfig) {
		c.Filesystem = fs
	}
}

// WithContentType sets the content type of every uploaded file.
// When unset it is detected per file from the extension or the content.
func WithContentType(contentType string) synctypes.SyncOption {
	return func(c *synctypes.SyncOptionConfig) {
		c.ContentType = contentType
	}
}

// WithContentEncoding sets the content encoding of every uploaded file (e.g. "gzip").
func WithContentEncoding(encoding string) synctypes.SyncOption {
	return func(c *synctypes.SyncOptionConfig) {
		c.ContentEncoding = encoding
	}
}

// WithDestinationFolder prefixes every object key with folder.
func WithDestinationFolder(folder string) synctypes.SyncOption {
	return func(c *synctypes.SyncOptionConfig) {
		c.DestinationFolder = folder
	}
}

// WithIncludePatterns limits tree sync to files matching one of the patterns.
// Patterns use doublestar syntax; a pattern without a slash also matches
// the file's base name.
func WithIncludePatterns(patterns ...string) synctypes.SyncOption {
	return func(c *synctypes.SyncOptionConfig) {
		c.IncludePatterns = append(c.IncludePatterns, patterns...)
	}
}

// WithExcludePatterns skips files matching any of the patterns. Excludes win
// over includes; a trailing slash excludes a whole directory.
func WithExcludePatterns(patterns ...string) synctypes.SyncOption {
	return func(c *synctypes.SyncOptionConfig) {
		c.ExcludePatterns = append(c.ExcludePatterns, patterns...)
	}
}

// WithQuickCheck trusts the recorded digest of a remote object whose size and
// LastModified metadata match the local file, without hashing the file.
func WithQuickCheck(enabled bool) synctypes.SyncOption {
	return func(c *synctypes.SyncOptionConfig) {
		c.QuickCheck = enabled
	}
}

// WithDryRun compares every file but uploads nothing.
func WithDryRun(dryRun bool) synctypes.SyncOption {
	return func(c *synctypes.SyncOptionConfig) {
		c.DryRun = dryRun
	}
}

// WithProgressTracker receives cumulative progress after each file.
func WithProgressTracker(tracker synctypes.ProgressTracker) synctypes.SyncOption {
	return func(c *synctypes.SyncOptionConfig) {
		c.ProgressTracker = tracker
	}
}

// WithSyncParallelism overrides the client's file parallelism for one run.
func WithSyncParallelism(n int) synctypes.SyncOption {
	return func(c *synctypes.SyncOptionConfig) {
		c.Parallelism = n
	}
}
