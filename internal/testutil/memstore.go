package testutil

import (
	"bytes"
	"context"
	"crypto/md5" //nolint:gosec // content identity only
	"encoding/base64"
	"fmt"
	"io"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/input-output-hk/catalyst-forge-libs/blobsync/errors"
	"github.com/input-output-hk/catalyst-forge-libs/blobsync/internal/store"
	"github.com/input-output-hk/catalyst-forge-libs/blobsync/synctypes"
)

// MemoryObject is a committed object held by a MemoryStore.
type MemoryObject struct {
	Data       []byte
	Properties synctypes.Properties
	Metadata   map[string]string
}

// fault fails an operation a limited number of times (negative means always).
type fault struct {
	err   error
	times int
}

func (f *fault) fire() error {
	if f == nil || f.times == 0 {
		return nil
	}
	if f.times > 0 {
		f.times--
	}
	return f.err
}

// MemoryStore is a concurrency-safe in-memory store.Store with fault
// injection and in-flight accounting. Chunked uploads stay invisible until
// Finalize; aborted uploads leave nothing behind.
type MemoryStore struct {
	container string

	mu      sync.Mutex
	objects map[string]*MemoryObject
	faults  map[string]*fault
	calls   map[string]int
	aborted map[string]int

	// NativeDigest makes FetchAttributes report the content MD5 even when no
	// ContentMD5 metadata was written, like an S3 single-part ETag.
	NativeDigest bool

	delay       time.Duration
	inFlight    atomic.Int64
	maxInFlight atomic.Int64
}

var _ store.Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty store bound to container.
func NewMemoryStore(container string) *MemoryStore {
	return &MemoryStore{
		container: container,
		objects:   make(map[string]*MemoryObject),
		faults:    make(map[string]*fault),
		calls:     make(map[string]int),
		aborted:   make(map[string]int),
	}
}

// Put seeds a committed object.
func (m *MemoryStore) Put(key string, data []byte, metadata map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = &MemoryObject{
		Data:     append([]byte(nil), data...),
		Metadata: copyMap(metadata),
	}
}

// Object returns a copy of the committed object under key.
func (m *MemoryStore) Object(key string) (*MemoryObject, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	obj, ok := m.objects[key]
	if !ok {
		return nil, false
	}
	return &MemoryObject{
		Data:       append([]byte(nil), obj.Data...),
		Properties: obj.Properties,
		Metadata:   copyMap(obj.Metadata),
	}, true
}

// Keys returns all committed object keys in sorted order.
func (m *MemoryStore) Keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.objects))
	for k := range m.objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Fail makes operation op on key fail with err the given number of times.
// Use a negative count to fail forever and an empty key for EnsureContainer.
// Chunk faults use ChunkOp(index) as op.
func (m *MemoryStore) Fail(op, key string, times int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.faults[op+"|"+key] = &fault{err: err, times: times}
}

// ChunkOp returns the fault name for a single chunk index.
func ChunkOp(index int) string {
	return fmt.Sprintf("%s[%d]", store.OpUploadChunk, index)
}

// SetDelay makes every operation take at least d, so concurrency is observable.
func (m *MemoryStore) SetDelay(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delay = d
}

// Calls returns how many times op was invoked.
func (m *MemoryStore) Calls(op string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[op]
}

// Aborted returns how many chunked uploads of key were aborted.
func (m *MemoryStore) Aborted(key string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.aborted[key]
}

// MaxInFlight returns the highest number of concurrently running operations.
func (m *MemoryStore) MaxInFlight() int64 {
	return m.maxInFlight.Load()
}

// enter records an operation start, applies delay and returns any injected fault.
func (m *MemoryStore) enter(ctx context.Context, op, key string) (func(), error) {
	n := m.inFlight.Add(1)
	for {
		cur := m.maxInFlight.Load()
		if n <= cur || m.maxInFlight.CompareAndSwap(cur, n) {
			break
		}
	}
	done := func() { m.inFlight.Add(-1) }

	m.mu.Lock()
	m.calls[op]++
	delay := m.delay
	err := m.faults[op+"|"+key].fire()
	m.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return done, ctx.Err()
		}
	}
	if err == nil {
		err = ctx.Err()
	}
	return done, err
}

// Container implements store.Store.
func (m *MemoryStore) Container() string {
	return m.container
}

// EnsureContainer implements store.Store.
func (m *MemoryStore) EnsureContainer(ctx context.Context) error {
	done, err := m.enter(ctx, store.OpEnsureContainer, "")
	defer done()
	return err
}

// ObjectExists implements store.Store.
func (m *MemoryStore) ObjectExists(ctx context.Context, key string) (bool, error) {
	done, err := m.enter(ctx, store.OpObjectExists, key)
	defer done()
	if err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects[key]
	return ok, nil
}

// FetchAttributes implements store.Store.
func (m *MemoryStore) FetchAttributes(ctx context.Context, key string) (*synctypes.Attributes, error) {
	done, err := m.enter(ctx, store.OpFetchAttributes, key)
	defer done()
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	obj, ok := m.objects[key]
	if !ok {
		return nil, errors.NewObjectError("fetchAttributes", m.container, key, errors.ErrObjectNotFound)
	}
	digest, _ := store.LookupMetadata(obj.Metadata, store.MetaContentMD5)
	if digest == "" && m.NativeDigest {
		digest = DigestOf(obj.Data)
	}
	return &synctypes.Attributes{
		Length:          int64(len(obj.Data)),
		Digest:          digest,
		ContentType:     obj.Properties.ContentType,
		ContentEncoding: obj.Properties.ContentEncoding,
		Metadata:        copyMap(obj.Metadata),
	}, nil
}

// PutObject implements store.Store.
func (m *MemoryStore) PutObject(
	ctx context.Context,
	key string,
	body io.ReadSeeker,
	size int64,
	props synctypes.Properties,
) error {
	done, err := m.enter(ctx, store.OpPutObject, key)
	defer done()
	if err != nil {
		return err
	}
	if _, err := body.Seek(0, io.SeekStart); err != nil {
		return err
	}
	data, err := io.ReadAll(io.LimitReader(body, size))
	if err != nil {
		return err
	}
	if int64(len(data)) != size {
		return fmt.Errorf("short body: got %d bytes, want %d", len(data), size)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = &MemoryObject{Data: data, Properties: props}
	return nil
}

// StartChunked implements store.Store.
//
//nolint:ireturn // the store contract returns the writer interface.
func (m *MemoryStore) StartChunked(ctx context.Context, key string, props synctypes.Properties) (store.ChunkWriter, error) {
	done, err := m.enter(ctx, store.OpStartChunked, key)
	defer done()
	if err != nil {
		return nil, err
	}
	return &memoryWriter{store: m, key: key, props: props, staged: make(map[int]stagedChunk)}, nil
}

// SetProperties implements store.Store.
func (m *MemoryStore) SetProperties(ctx context.Context, key string, props synctypes.Properties) error {
	done, err := m.enter(ctx, store.OpSetProperties, key)
	defer done()
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	obj, ok := m.objects[key]
	if !ok {
		return errors.NewObjectError("setProperties", m.container, key, errors.ErrObjectNotFound)
	}
	obj.Properties = props
	return nil
}

// SetMetadata implements store.Store.
func (m *MemoryStore) SetMetadata(ctx context.Context, key string, metadata map[string]string) error {
	done, err := m.enter(ctx, store.OpSetMetadata, key)
	defer done()
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	obj, ok := m.objects[key]
	if !ok {
		return errors.NewObjectError("setMetadata", m.container, key, errors.ErrObjectNotFound)
	}
	obj.Metadata = store.MergeMetadata(obj.Metadata, metadata)
	return nil
}

type stagedChunk struct {
	offset int64
	data   []byte
}

type memoryWriter struct {
	store *MemoryStore
	key   string
	props synctypes.Properties

	mu     sync.Mutex
	staged map[int]stagedChunk
	closed bool
}

func (w *memoryWriter) UploadChunk(ctx context.Context, index int, offset int64, data []byte) error {
	done, err := w.store.enter(ctx, ChunkOp(index), w.key)
	defer done()
	w.store.mu.Lock()
	w.store.calls[store.OpUploadChunk]++
	w.store.mu.Unlock()
	if err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return fmt.Errorf("upload of %s already closed", w.key)
	}
	w.staged[index] = stagedChunk{offset: offset, data: append([]byte(nil), data...)}
	return nil
}

func (w *memoryWriter) Finalize(ctx context.Context) error {
	done, err := w.store.enter(ctx, store.OpFinalize, w.key)
	defer done()
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return fmt.Errorf("upload of %s already closed", w.key)
	}

	var buf bytes.Buffer
	for i := 0; i < len(w.staged); i++ {
		c, ok := w.staged[i]
		if !ok {
			return fmt.Errorf("%w: chunk %d missing", errors.ErrNotFinalized, i)
		}
		if c.offset != int64(buf.Len()) {
			return fmt.Errorf("%w: chunk %d at offset %d, want %d", errors.ErrNotFinalized, i, c.offset, buf.Len())
		}
		buf.Write(c.data)
	}
	w.closed = true

	w.store.mu.Lock()
	defer w.store.mu.Unlock()
	w.store.objects[w.key] = &MemoryObject{Data: buf.Bytes(), Properties: w.props}
	return nil
}

func (w *memoryWriter) Abort(ctx context.Context) error {
	done, err := w.store.enter(ctx, store.OpAbort, w.key)
	defer done()

	w.mu.Lock()
	w.closed = true
	w.staged = nil
	w.mu.Unlock()

	w.store.mu.Lock()
	w.store.aborted[w.key]++
	w.store.mu.Unlock()
	return err
}

// DigestOf returns the base64 MD5 of data, the digest format used by the engine.
func DigestOf(data []byte) string {
	sum := md5.Sum(data) //nolint:gosec // content identity only
	return base64.StdEncoding.EncodeToString(sum[:])
}

func copyMap(in map[string]string) map[string]string {
	if in == nil {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
