package sync

import (
	"log/slog"

	"github.com/input-output-hk/catalyst-forge-libs/blobsync/errors"
	"github.com/input-output-hk/catalyst-forge-libs/blobsync/internal/validation"
	"github.com/input-output-hk/catalyst-forge-libs/blobsync/synctypes"
)

// Config holds configuration for a sync run.
type Config struct {
	// Source is the local directory to sync; mutually exclusive with Files
	Source string

	// Files is an explicit list of local files keyed by basename
	Files []string

	// Prefix is the destination folder prepended to every key
	Prefix string

	// IncludePatterns are glob patterns for files to include
	IncludePatterns []string

	// ExcludePatterns are glob patterns for files to exclude
	ExcludePatterns []string

	// ContentType is applied to every file; detected per file when empty
	ContentType string

	// ContentEncoding is applied to every file when set
	ContentEncoding string

	// QuickCheck trusts the remote digest when size and LastModified match
	QuickCheck bool

	// DryRun stops every pipeline after comparison
	DryRun bool

	// ProgressTracker tracks sync progress
	ProgressTracker synctypes.ProgressTracker

	// Parallelism controls the number of concurrent file pipelines
	Parallelism int
}

// Validate checks the run parameters before any file is touched.
func (c *Config) Validate() error {
	switch {
	case c.Source == "" && len(c.Files) == 0:
		return errors.NewConfigError("either a source directory or a file list is required")
	case c.Source != "" && len(c.Files) > 0:
		return errors.NewConfigError("a source directory and a file list are mutually exclusive")
	case c.Parallelism < 0:
		return errors.NewConfigError("parallelism must not be negative")
	}
	if c.ContentType != "" {
		if err := validation.ValidateContentType(c.ContentType); err != nil {
			return err
		}
	}
	if c.ContentEncoding != "" {
		if err := validation.ValidateContentEncoding(c.ContentEncoding); err != nil {
			return err
		}
	}
	return nil
}

// Settings configure the components a Manager builds.
type Settings struct {
	// Parallelism is the default number of concurrent file pipelines
	Parallelism int

	// ChunkSize is the chunk size for large files
	ChunkSize int64

	// ChunkParallelism is the number of concurrent chunk transfers per file
	ChunkParallelism int

	// RetryPolicy controls chunk and whole-file retries
	RetryPolicy synctypes.RetryPolicy

	// Observer receives outcomes and retries
	Observer synctypes.Observer

	Logger *slog.Logger
}
