package scanner

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/input-output-hk/catalyst-forge-libs/blobsync/errors"
	"github.com/input-output-hk/catalyst-forge-libs/blobsync/internal/localfs"
)

// Entry is a discovered local file.
type Entry struct {
	// Key is the object key relative to the destination folder
	Key string

	// Path is the local path
	Path string

	Size    int64
	ModTime time.Time

	// Err is set when the file was listed but cannot be synced
	Err error
}

// Scanner enumerates local files.
type Scanner struct {
	fs             *localfs.FS
	patternMatcher *PatternMatcher
	logger         *slog.Logger
}

// NewScanner creates a new scanner reading from fs.
func NewScanner(fs *localfs.FS, logger *slog.Logger) *Scanner {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Scanner{
		fs:             fs,
		patternMatcher: NewPatternMatcher(),
		logger:         logger,
	}
}

// ScanTree returns every regular file below root that passes the include
// and exclude patterns. A file that cannot be inspected is returned with Err
// set; an unreadable directory fails the scan.
func (s *Scanner) ScanTree(
	ctx context.Context,
	root string,
	includePatterns []string,
	excludePatterns []string,
) ([]*Entry, error) {
	if errs := s.patternMatcher.ValidatePatterns(append(append([]string{}, includePatterns...), excludePatterns...)); len(errs) > 0 {
		return nil, errors.NewError("scan", stderrors.Join(errs...)).WithCode(errors.CodeInvalidInput)
	}

	info, err := s.fs.Stat(root)
	if err != nil {
		return nil, errors.NewError("scan", fmt.Errorf("%w: source directory: %w", errors.ErrInvalidInput, err))
	}
	if !info.IsDir() {
		return nil, errors.NewValidationError(fmt.Sprintf("source %q is not a directory", root))
	}

	var entries []*Entry
	err = s.fs.Walk(root, func(p string, info os.FileInfo, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		rel, relErr := filepath.Rel(root, p)
		if relErr != nil {
			return fmt.Errorf("relative path for %s: %w", p, relErr)
		}
		key := filepath.ToSlash(rel)

		if err != nil {
			if info != nil && info.IsDir() {
				return err
			}
			if s.patternMatcher.ShouldIncludeFile(key, includePatterns, excludePatterns) {
				entries = append(entries, &Entry{Key: key, Path: p, Err: err})
			}
			return nil
		}

		if info.IsDir() {
			return nil
		}
		if !info.Mode().IsRegular() {
			s.logger.Debug("skipping non-regular file", "path", p, "mode", info.Mode().String())
			return nil
		}
		if !s.patternMatcher.ShouldIncludeFile(key, includePatterns, excludePatterns) {
			return nil
		}

		entries = append(entries, &Entry{
			Key:     key,
			Path:    p,
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
		return nil
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, errors.NewError("scan", err)
	}

	s.logger.Debug("scanned source tree", "root", root, "files", len(entries))
	return entries, nil
}

// ScanFiles returns one entry per path, keyed by basename. Paths that are
// missing or are directories are returned with Err set.
func (s *Scanner) ScanFiles(ctx context.Context, paths []string) ([]*Entry, error) {
	entries := make([]*Entry, 0, len(paths))
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		entry := &Entry{Key: path.Base(filepath.ToSlash(p)), Path: p}
		info, err := s.fs.Stat(p)
		switch {
		case err != nil:
			entry.Err = errors.NewError("scan", err).WithKey(p)
		case !info.Mode().IsRegular():
			entry.Err = errors.NewValidationError(fmt.Sprintf("%q is not a regular file", p))
		default:
			entry.Size = info.Size()
			entry.ModTime = info.ModTime()
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
