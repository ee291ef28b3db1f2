package store

import (
	"context"
	"io"

	"golang.org/x/sync/semaphore"

	"github.com/input-output-hk/catalyst-forge-libs/blobsync/synctypes"
)

// limitedStore bounds the number of store operations in flight across every
// pipeline sharing it. Each call holds exactly one permit and never nests.
type limitedStore struct {
	next Store
	sem  *semaphore.Weighted
}

// Limit wraps s so that no more than n operations run at once.
// A non-positive n returns s unchanged.
func Limit(s Store, n int) Store {
	if n <= 0 {
		return s
	}
	return &limitedStore{next: s, sem: semaphore.NewWeighted(int64(n))}
}

func (l *limitedStore) do(ctx context.Context, fn func() error) error {
	if err := l.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer l.sem.Release(1)
	return fn()
}

func (l *limitedStore) Container() string {
	return l.next.Container()
}

func (l *limitedStore) EnsureContainer(ctx context.Context) error {
	return l.do(ctx, func() error { return l.next.EnsureContainer(ctx) })
}

func (l *limitedStore) ObjectExists(ctx context.Context, key string) (bool, error) {
	var exists bool
	err := l.do(ctx, func() error {
		var err error
		exists, err = l.next.ObjectExists(ctx, key)
		return err
	})
	return exists, err
}

func (l *limitedStore) FetchAttributes(ctx context.Context, key string) (*synctypes.Attributes, error) {
	var attrs *synctypes.Attributes
	err := l.do(ctx, func() error {
		var err error
		attrs, err = l.next.FetchAttributes(ctx, key)
		return err
	})
	return attrs, err
}

func (l *limitedStore) PutObject(
	ctx context.Context,
	key string,
	body io.ReadSeeker,
	size int64,
	props synctypes.Properties,
) error {
	return l.do(ctx, func() error { return l.next.PutObject(ctx, key, body, size, props) })
}

//nolint:ireturn // decorators return the contract they wrap.
func (l *limitedStore) StartChunked(
	ctx context.Context,
	key string,
	props synctypes.Properties,
) (ChunkWriter, error) {
	var w ChunkWriter
	err := l.do(ctx, func() error {
		var err error
		w, err = l.next.StartChunked(ctx, key, props)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &limitedWriter{next: w, sem: l.sem}, nil
}

func (l *limitedStore) SetProperties(ctx context.Context, key string, props synctypes.Properties) error {
	return l.do(ctx, func() error { return l.next.SetProperties(ctx, key, props) })
}

func (l *limitedStore) SetMetadata(ctx context.Context, key string, metadata map[string]string) error {
	return l.do(ctx, func() error { return l.next.SetMetadata(ctx, key, metadata) })
}

type limitedWriter struct {
	next ChunkWriter
	sem  *semaphore.Weighted
}

func (w *limitedWriter) do(ctx context.Context, fn func() error) error {
	if err := w.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer w.sem.Release(1)
	return fn()
}

func (w *limitedWriter) UploadChunk(ctx context.Context, index int, offset int64, data []byte) error {
	return w.do(ctx, func() error { return w.next.UploadChunk(ctx, index, offset, data) })
}

func (w *limitedWriter) Finalize(ctx context.Context) error {
	return w.do(ctx, func() error { return w.next.Finalize(ctx) })
}

func (w *limitedWriter) Abort(ctx context.Context) error {
	return w.do(ctx, func() error { return w.next.Abort(ctx) })
}
