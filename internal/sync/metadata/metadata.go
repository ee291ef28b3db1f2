// Package metadata records content properties and sync metadata onto
// uploaded objects.
//
// Stores need two calls for this, one for properties and one for user
// metadata. Both are always attempted. When either fails the content is in
// place but its metadata is stale, which callers report distinctly from a
// failed upload.
package metadata

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/input-output-hk/catalyst-forge-libs/blobsync/errors"
	"github.com/input-output-hk/catalyst-forge-libs/blobsync/internal/store"
	"github.com/input-output-hk/catalyst-forge-libs/blobsync/synctypes"
)

// epochTicks is the number of 100ns ticks between 0001-01-01 and 1970-01-01 UTC.
const epochTicks int64 = 621_355_968_000_000_000

// Ticks encodes t as 100ns ticks since 0001-01-01 UTC, the LastModified
// format older tooling wrote and still reads.
func Ticks(t time.Time) int64 {
	t = t.UTC()
	return t.Unix()*10_000_000 + int64(t.Nanosecond())/100 + epochTicks
}

// FromTicks decodes a tick count produced by Ticks.
func FromTicks(ticks int64) time.Time {
	d := ticks - epochTicks
	return time.Unix(d/10_000_000, (d%10_000_000)*100).UTC()
}

// Recorder writes properties and metadata after a successful upload.
type Recorder struct {
	store  store.Store
	logger *slog.Logger
}

// NewRecorder creates a Recorder writing to s.
func NewRecorder(s store.Store, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Recorder{store: s, logger: logger}
}

// Values returns the metadata entries recorded for a file.
func Values(info synctypes.ContentInfo, modTime time.Time) map[string]string {
	return map[string]string{
		store.MetaLastModified: strconv.FormatInt(Ticks(modTime), 10),
		store.MetaContentMD5:   info.Digest,
	}
}

// Record sets props on key and then merges the digest and LastModified
// entries into its metadata. A failure of either call returns an error
// wrapping errors.ErrPartialMetadata.
func (r *Recorder) Record(
	ctx context.Context,
	key string,
	info synctypes.ContentInfo,
	modTime time.Time,
	props synctypes.Properties,
) error {
	propErr := r.store.SetProperties(ctx, key, props)
	if propErr != nil {
		r.logger.Warn("set properties failed", "key", key, "error", propErr)
	}

	metaErr := r.store.SetMetadata(ctx, key, Values(info, modTime))
	if metaErr != nil {
		r.logger.Warn("set metadata failed", "key", key, "error", metaErr)
	}

	if propErr == nil && metaErr == nil {
		return nil
	}
	return errors.NewObjectError("recordMetadata", r.store.Container(), key,
		fmt.Errorf("%w: %w", errors.ErrPartialMetadata, stderrors.Join(propErr, metaErr))).
		WithCode(errors.CodePartialMetadata)
}
