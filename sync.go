package blobsync

import (
	"context"
	"path/filepath"

	"github.com/input-output-hk/catalyst-forge-libs/blobsync/errors"
	"github.com/input-output-hk/catalyst-forge-libs/blobsync/internal/sync/sync"
	"github.com/input-output-hk/catalyst-forge-libs/blobsync/synctypes"
)

// Sync uploads every regular file under dir whose remote copy is missing or
// differs. Keys are the slash-separated paths relative to dir, optionally
// under a destination folder.
//
// The result holds one outcome per key. When any file failed or was uploaded
// with stale metadata, the populated result is returned together with an
// error wrapping errors.ErrSyncIncomplete. Configuration problems, an
// unusable container or an unreadable dir return a nil result.
//
// Errors:
//   - ErrConfiguration: invalid options or the container cannot be created
//   - ErrInvalidInput: dir is missing or not a directory
//   - ErrSyncIncomplete: one or more files did not sync cleanly
//
// Example:
//
//	result, err := client.Sync(ctx, "./public",
//	    blobsync.WithDestinationFolder("site"),
//	    blobsync.WithExcludePatterns("*.map", "drafts/"),
//	    blobsync.WithQuickCheck(true),
//	)
func (c *Client) Sync(ctx context.Context, dir string, opts ...synctypes.SyncOption) (*synctypes.Result, error) {
	if dir == "" {
		return nil, errors.NewValidationError("source directory cannot be empty")
	}
	dir, err := c.resolve(dir)
	if err != nil {
		return nil, err
	}

	config := newSyncConfig(opts)
	config.Source = dir
	return c.manager.Sync(ctx, config)
}

// SyncFiles uploads an explicit list of files. Each key is the file's base
// name, optionally under a destination folder; two files with the same base
// name both claim one key and that key fails with errors.ErrDuplicateKey.
//
// Results and errors follow Sync.
func (c *Client) SyncFiles(ctx context.Context, paths []string, opts ...synctypes.SyncOption) (*synctypes.Result, error) {
	if len(paths) == 0 {
		return nil, errors.NewValidationError("at least one file is required")
	}
	resolved := make([]string, len(paths))
	for i, p := range paths {
		r, err := c.resolve(p)
		if err != nil {
			return nil, err
		}
		resolved[i] = r
	}

	config := newSyncConfig(opts)
	config.Files = resolved
	return c.manager.Sync(ctx, config)
}

func (c *Client) resolve(path string) (string, error) {
	if !c.absPaths {
		return path, nil
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", errors.NewError("resolvePath", err).WithMessage(path)
	}
	return abs, nil
}

func newSyncConfig(opts []synctypes.SyncOption) *sync.Config {
	cfg := &synctypes.SyncOptionConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	return &sync.Config{
		Prefix:          cfg.DestinationFolder,
		IncludePatterns: cfg.IncludePatterns,
		ExcludePatterns: cfg.ExcludePatterns,
		ContentType:     cfg.ContentType,
		ContentEncoding: cfg.ContentEncoding,
		QuickCheck:      cfg.QuickCheck,
		DryRun:          cfg.DryRun,
		ProgressTracker: cfg.ProgressTracker,
		Parallelism:     cfg.Parallelism,
	}
}
