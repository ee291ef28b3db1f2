package store

import (
	"context"
	"io"
	"time"

	"github.com/input-output-hk/catalyst-forge-libs/blobsync/synctypes"
)

// Operation names reported to observers.
const (
	OpEnsureContainer = "ensure_container"
	OpObjectExists    = "object_exists"
	OpFetchAttributes = "fetch_attributes"
	OpPutObject       = "put_object"
	OpStartChunked    = "start_chunked"
	OpUploadChunk     = "upload_chunk"
	OpFinalize        = "finalize"
	OpAbort           = "abort"
	OpSetProperties   = "set_properties"
	OpSetMetadata     = "set_metadata"
)

type instrumentedStore struct {
	next Store
	obs  synctypes.Observer
}

// Instrument wraps s so that every operation's duration and error are
// reported to obs. A nil observer returns s unchanged.
func Instrument(s Store, obs synctypes.Observer) Store {
	if obs == nil {
		return s
	}
	return &instrumentedStore{next: s, obs: obs}
}

func observe(obs synctypes.Observer, op string, start time.Time, err error) {
	obs.ObserveOperation(op, time.Since(start), err)
}

func (s *instrumentedStore) Container() string {
	return s.next.Container()
}

func (s *instrumentedStore) EnsureContainer(ctx context.Context) error {
	start := time.Now()
	err := s.next.EnsureContainer(ctx)
	observe(s.obs, OpEnsureContainer, start, err)
	return err
}

func (s *instrumentedStore) ObjectExists(ctx context.Context, key string) (bool, error) {
	start := time.Now()
	exists, err := s.next.ObjectExists(ctx, key)
	observe(s.obs, OpObjectExists, start, err)
	return exists, err
}

func (s *instrumentedStore) FetchAttributes(ctx context.Context, key string) (*synctypes.Attributes, error) {
	start := time.Now()
	attrs, err := s.next.FetchAttributes(ctx, key)
	observe(s.obs, OpFetchAttributes, start, err)
	return attrs, err
}

func (s *instrumentedStore) PutObject(
	ctx context.Context,
	key string,
	body io.ReadSeeker,
	size int64,
	props synctypes.Properties,
) error {
	start := time.Now()
	err := s.next.PutObject(ctx, key, body, size, props)
	observe(s.obs, OpPutObject, start, err)
	return err
}

//nolint:ireturn // decorators return the contract they wrap.
func (s *instrumentedStore) StartChunked(
	ctx context.Context,
	key string,
	props synctypes.Properties,
) (ChunkWriter, error) {
	start := time.Now()
	w, err := s.next.StartChunked(ctx, key, props)
	observe(s.obs, OpStartChunked, start, err)
	if err != nil {
		return nil, err
	}
	return &instrumentedWriter{next: w, obs: s.obs}, nil
}

func (s *instrumentedStore) SetProperties(ctx context.Context, key string, props synctypes.Properties) error {
	start := time.Now()
	err := s.next.SetProperties(ctx, key, props)
	observe(s.obs, OpSetProperties, start, err)
	return err
}

func (s *instrumentedStore) SetMetadata(ctx context.Context, key string, metadata map[string]string) error {
	start := time.Now()
	err := s.next.SetMetadata(ctx, key, metadata)
	observe(s.obs, OpSetMetadata, start, err)
	return err
}

type instrumentedWriter struct {
	next ChunkWriter
	obs  synctypes.Observer
}

func (w *instrumentedWriter) UploadChunk(ctx context.Context, index int, offset int64, data []byte) error {
	start := time.Now()
	err := w.next.UploadChunk(ctx, index, offset, data)
	observe(w.obs, OpUploadChunk, start, err)
	return err
}

func (w *instrumentedWriter) Finalize(ctx context.Context) error {
	start := time.Now()
	err := w.next.Finalize(ctx)
	observe(w.obs, OpFinalize, start, err)
	return err
}

func (w *instrumentedWriter) Abort(ctx context.Context) error {
	start := time.Now()
	err := w.next.Abort(ctx)
	observe(w.obs, OpAbort, start, err)
	return err
}
