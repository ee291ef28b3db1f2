package multipart

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/sync/errgroup"

	"github.com/input-output-hk/catalyst-forge-libs/blobsync/errors"
	"github.com/input-output-hk/catalyst-forge-libs/blobsync/internal/pool"
	"github.com/input-output-hk/catalyst-forge-libs/blobsync/internal/store"
	"github.com/input-output-hk/catalyst-forge-libs/blobsync/synctypes"
)

const (
	// DefaultChunkSize is used when no chunk size is configured.
	DefaultChunkSize int64 = 8 * 1024 * 1024

	// MinChunkSize is the smallest chunk S3-compatible stores accept for
	// every chunk but the last.
	MinChunkSize int64 = 5 * 1024 * 1024

	// MaxChunks is the largest number of chunks a single upload may use.
	MaxChunks = 10000

	// DefaultParallelism is the number of concurrent chunk transfers per file.
	DefaultParallelism = 4
)

// ByteSource returns length bytes starting at offset.
type ByteSource func(offset, length int64) ([]byte, error)

// Chunk is a contiguous byte range of an upload.
type Chunk struct {
	Index  int
	Offset int64
	Length int64
}

// PlanChunks splits total bytes into contiguous, non-overlapping chunks of
// size bytes, the last one possibly shorter. The chunk size grows when more
// than MaxChunks chunks would be needed.
func PlanChunks(total, size int64) []Chunk {
	if total <= 0 {
		return nil
	}
	if size <= 0 {
		size = DefaultChunkSize
	}
	if (total+size-1)/size > MaxChunks {
		size = (total + MaxChunks - 1) / MaxChunks
	}

	chunks := make([]Chunk, 0, (total+size-1)/size)
	for offset, i := int64(0), 0; offset < total; offset, i = offset+size, i+1 {
		length := size
		if offset+length > total {
			length = total - offset
		}
		chunks = append(chunks, Chunk{Index: i, Offset: offset, Length: length})
	}
	return chunks
}

// Config configures an Uploader.
type Config struct {
	// ChunkSize is the size of each chunk; files no larger than this are
	// uploaded with a single put
	ChunkSize int64

	// Parallelism is the number of concurrent chunk transfers per file
	Parallelism int

	// RetryPolicy controls per-chunk and whole-file retries
	RetryPolicy synctypes.RetryPolicy

	// Observer is notified of chunk retries
	Observer synctypes.Observer

	Logger *slog.Logger
}

// Uploader uploads content to a store. It is safe for concurrent use.
type Uploader struct {
	store    store.Store
	cfg      Config
	buffers  *pool.BufferPool
	observer synctypes.Observer
	logger   *slog.Logger
}

// NewUploader creates an Uploader writing to s.
func NewUploader(s store.Store, cfg Config) *Uploader {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = DefaultChunkSize
	}
	if cfg.Parallelism <= 0 {
		cfg.Parallelism = DefaultParallelism
	}
	if cfg.RetryPolicy == (synctypes.RetryPolicy{}) {
		cfg.RetryPolicy = synctypes.DefaultRetryPolicy()
	}
	u := &Uploader{
		store:    s,
		cfg:      cfg,
		buffers:  pool.NewBufferPool(int(cfg.ChunkSize)),
		observer: cfg.Observer,
		logger:   cfg.Logger,
	}
	if u.observer == nil {
		u.observer = synctypes.NopObserver{}
	}
	if u.logger == nil {
		u.logger = slog.New(slog.DiscardHandler)
	}
	return u
}

// UploadReaderAt uploads size bytes read from r, with a single put when the
// content fits in one chunk and chunked otherwise.
func (u *Uploader) UploadReaderAt(
	ctx context.Context,
	key string,
	r io.ReaderAt,
	size int64,
	props synctypes.Properties,
) error {
	if size <= u.cfg.ChunkSize {
		return u.UploadFile(ctx, key, r, size, props)
	}

	source := func(offset, length int64) ([]byte, error) {
		buf := u.buffers.Get()
		if int64(cap(buf)) < length {
			buf = make([]byte, length)
		}
		buf = buf[:length]
		n, err := r.ReadAt(buf, offset)
		if int64(n) < length {
			u.buffers.Put(buf)
			if err == nil || err == io.EOF {
				err = io.ErrUnexpectedEOF
			}
			return nil, fmt.Errorf("read chunk at %d: %w", offset, err)
		}
		return buf, nil
	}
	return u.upload(ctx, key, source, size, u.cfg.Parallelism, props, u.buffers.Put)
}

// UploadFile uploads size bytes from r with a single put, retried as a whole.
func (u *Uploader) UploadFile(
	ctx context.Context,
	key string,
	r io.ReaderAt,
	size int64,
	props synctypes.Properties,
) error {
	body := io.NewSectionReader(r, 0, size)
	return u.retry(ctx, key, func() error {
		return u.store.PutObject(ctx, key, body, size, props)
	})
}

// Upload uploads total bytes produced by source in chunks, with up to
// parallelism chunk transfers in flight. The object is finalized only after
// every chunk succeeded; otherwise the upload is aborted and the returned
// error wraps errors.ErrChunkFailed and errors.ErrNotFinalized.
func (u *Uploader) Upload(
	ctx context.Context,
	key string,
	source ByteSource,
	total int64,
	parallelism int,
	props synctypes.Properties,
) error {
	return u.upload(ctx, key, source, total, parallelism, props, nil)
}

func (u *Uploader) upload(
	ctx context.Context,
	key string,
	source ByteSource,
	total int64,
	parallelism int,
	props synctypes.Properties,
	release func([]byte),
) error {
	chunks := PlanChunks(total, u.cfg.ChunkSize)
	if len(chunks) == 0 {
		return errors.NewObjectError("upload", u.store.Container(), key,
			fmt.Errorf("%w: nothing to upload in chunks", errors.ErrInvalidInput))
	}
	if parallelism <= 0 {
		parallelism = 1
	}

	writer, err := u.store.StartChunked(ctx, key, props)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parallelism)
	for _, c := range chunks {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			data, err := source(c.Offset, c.Length)
			if err != nil {
				return err
			}
			if release != nil {
				defer release(data)
			}
			return u.retry(gctx, key, func() error {
				return writer.UploadChunk(gctx, c.Index, c.Offset, data)
			})
		})
	}

	err = g.Wait()
	if err == nil {
		// A cancelled run may stop scheduling without any chunk failing.
		err = ctx.Err()
	}
	if err != nil {
		u.abort(ctx, key, writer)
		return errors.NewObjectError("upload", u.store.Container(), key,
			fmt.Errorf("%w: %w: %w", errors.ErrChunkFailed, errors.ErrNotFinalized, err))
	}

	if err := writer.Finalize(ctx); err != nil {
		u.abort(ctx, key, writer)
		return errors.NewObjectError("finalize", u.store.Container(), key,
			fmt.Errorf("%w: %w", errors.ErrNotFinalized, err))
	}

	u.logger.Debug("chunked upload finalized", "key", key, "chunks", len(chunks))
	return nil
}

// abort releases staged chunks; it runs even when ctx is already cancelled.
func (u *Uploader) abort(ctx context.Context, key string, writer store.ChunkWriter) {
	if err := writer.Abort(context.WithoutCancel(ctx)); err != nil {
		u.logger.Warn("abort chunked upload failed", "key", key, "error", err)
	}
}

// retry runs op with exponential backoff while its errors are retryable.
func (u *Uploader) retry(ctx context.Context, key string, op func() error) error {
	p := u.cfg.RetryPolicy
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = p.InitialInterval
	eb.MaxInterval = p.MaxInterval
	eb.MaxElapsedTime = p.MaxElapsedTime

	b := backoff.WithContext(backoff.WithMaxRetries(eb, p.MaxRetries), ctx)
	return backoff.RetryNotify(
		func() error {
			err := op()
			if err != nil && (ctx.Err() != nil || !errors.IsRetryable(err)) {
				return backoff.Permanent(err)
			}
			return err
		},
		b,
		func(err error, wait time.Duration) {
			u.observer.ObserveChunkRetry(key)
			u.logger.Debug("retrying transfer", "key", key, "wait", wait, "error", err)
		},
	)
}
