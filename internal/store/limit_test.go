package store_test

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/input-output-hk/catalyst-forge-libs/blobsync/internal/store"
	"github.com/input-output-hk/catalyst-forge-libs/blobsync/internal/testutil"
	"github.com/input-output-hk/catalyst-forge-libs/blobsync/synctypes"
)

func TestLimitBoundsInFlightOperations(t *testing.T) {
	mem := testutil.NewMemoryStore("limits")
	mem.SetDelay(5 * time.Millisecond)
	limited := store.Limit(mem, 3)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = limited.ObjectExists(context.Background(), "k")
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, mem.MaxInFlight(), int64(3))
	assert.Equal(t, 20, mem.Calls(store.OpObjectExists))
}

func TestLimitCoversChunkWriters(t *testing.T) {
	mem := testutil.NewMemoryStore("limits")
	mem.SetDelay(2 * time.Millisecond)
	limited := store.Limit(mem, 2)
	ctx := context.Background()

	w, err := limited.StartChunked(ctx, "big", synctypes.Properties{})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, w.UploadChunk(ctx, i, int64(i), []byte{byte('a' + i)}))
		}(i)
	}
	wg.Wait()
	require.NoError(t, w.Finalize(ctx))

	obj, ok := mem.Object("big")
	require.True(t, ok)
	assert.Equal(t, "abcdefgh", string(obj.Data))
	assert.LessOrEqual(t, mem.MaxInFlight(), int64(2))
}

func TestLimitNonPositiveIsPassthrough(t *testing.T) {
	mem := testutil.NewMemoryStore("limits")
	assert.Same(t, store.Store(mem), store.Limit(mem, 0))
}

func TestLimitHonoursCancellation(t *testing.T) {
	mem := testutil.NewMemoryStore("limits")
	mem.SetDelay(50 * time.Millisecond)
	limited := store.Limit(mem, 1)

	ctx, cancel := context.WithCancel(context.Background())
	go func() { _, _ = limited.ObjectExists(context.Background(), "hold") }()
	time.Sleep(10 * time.Millisecond)
	cancel()

	err := limited.PutObject(ctx, "k", bytes.NewReader(nil), 0, synctypes.Properties{})
	assert.ErrorIs(t, err, context.Canceled)
}

type recordingObserver struct {
	synctypes.NopObserver
	mu  sync.Mutex
	ops []string
}

func (r *recordingObserver) ObserveOperation(op string, _ time.Duration, _ error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ops = append(r.ops, op)
}

func TestInstrumentReportsOperations(t *testing.T) {
	mem := testutil.NewMemoryStore("obs")
	obs := &recordingObserver{}
	s := store.Instrument(mem, obs)
	ctx := context.Background()

	require.NoError(t, s.EnsureContainer(ctx))
	w, err := s.StartChunked(ctx, "k", synctypes.Properties{})
	require.NoError(t, err)
	require.NoError(t, w.UploadChunk(ctx, 0, 0, []byte("x")))
	require.NoError(t, w.Finalize(ctx))
	require.NoError(t, s.SetMetadata(ctx, "k", map[string]string{"a": "b"}))

	assert.Equal(t, []string{
		store.OpEnsureContainer,
		store.OpStartChunked,
		store.OpUploadChunk,
		store.OpFinalize,
		store.OpSetMetadata,
	}, obs.ops)
}
