// Package fingerprint computes content fingerprints for local files and
// remote objects.
//
// A fingerprint is the (digest, length) pair used by the comparator. Local
// fingerprints stream the file through MD5; remote fingerprints come from
// object attributes and never download content.
package fingerprint

import (
	"context"
	"crypto/md5" //nolint:gosec // content identity only, not security sensitive
	"encoding/base64"
	"fmt"
	"io"
	"log/slog"

	"github.com/input-output-hk/catalyst-forge-libs/blobsync/errors"
	"github.com/input-output-hk/catalyst-forge-libs/blobsync/internal/localfs"
	"github.com/input-output-hk/catalyst-forge-libs/blobsync/internal/pool"
	"github.com/input-output-hk/catalyst-forge-libs/blobsync/internal/store"
	"github.com/input-output-hk/catalyst-forge-libs/blobsync/synctypes"
)

// Fingerprinter computes fingerprints. It is safe for concurrent use.
type Fingerprinter struct {
	fs     *localfs.FS
	store  store.Store
	logger *slog.Logger
}

// New creates a Fingerprinter reading local files from fs and remote
// attributes from s.
func New(fs *localfs.FS, s store.Store, logger *slog.Logger) *Fingerprinter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Fingerprinter{fs: fs, store: s, logger: logger}
}

// Local streams the file at path through MD5 and counts its bytes.
func (f *Fingerprinter) Local(path string) (synctypes.ContentInfo, error) {
	file, err := f.fs.Open(path)
	if err != nil {
		return synctypes.ContentInfo{}, errors.NewError("fingerprint", err).WithKey(path)
	}
	defer file.Close()

	return Digest(file)
}

// Digest fingerprints everything read from r.
func Digest(r io.Reader) (synctypes.ContentInfo, error) {
	buf := pool.GetCopyBuffer()
	defer pool.PutCopyBuffer(buf)

	h := md5.New() //nolint:gosec // content identity only
	n, err := io.CopyBuffer(h, r, buf)
	if err != nil {
		return synctypes.ContentInfo{}, fmt.Errorf("digest content: %w", err)
	}
	return synctypes.ContentInfo{
		Digest: base64.StdEncoding.EncodeToString(h.Sum(nil)),
		Length: n,
	}, nil
}

// Remote fingerprints the object stored under key. A missing object yields
// synctypes.Absent without fetching attributes. A retryable failure of the
// existence check is also reported as Absent, which forces an upload.
// The returned attributes are nil when the object is absent.
func (f *Fingerprinter) Remote(ctx context.Context, key string) (synctypes.ContentInfo, *synctypes.Attributes, error) {
	exists, err := f.store.ObjectExists(ctx, key)
	switch {
	case err != nil && ctx.Err() == nil && errors.IsRetryable(err):
		f.logger.Warn("existence check failed, treating object as absent", "key", key, "error", err)
		return synctypes.Absent, nil, nil
	case err != nil:
		return synctypes.ContentInfo{}, nil, err
	case !exists:
		return synctypes.Absent, nil, nil
	}

	attrs, err := f.store.FetchAttributes(ctx, key)
	if err != nil {
		// Deleted between the two calls.
		if errors.IsObjectNotFound(err) {
			return synctypes.Absent, nil, nil
		}
		return synctypes.ContentInfo{}, nil, err
	}
	return synctypes.ContentInfo{Digest: attrs.Digest, Length: attrs.Length}, attrs, nil
}
