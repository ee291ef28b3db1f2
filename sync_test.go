package blobsync

import (
	"context"
	"os"
	"path/filepath"
	gosync "sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/input-output-hk/catalyst-forge-libs/blobsync/errors"
	"github.com/input-output-hk/catalyst-forge-libs/blobsync/internal/localfs"
	"github.com/input-output-hk/catalyst-forge-libs/blobsync/internal/store"
	"github.com/input-output-hk/catalyst-forge-libs/blobsync/internal/testutil"
	"github.com/input-output-hk/catalyst-forge-libs/blobsync/synctypes"
)

var testRetry = synctypes.RetryPolicy{
	InitialInterval: time.Millisecond,
	MaxInterval:     2 * time.Millisecond,
	MaxElapsedTime:  time.Second,
	MaxRetries:      2,
}

type countingObserver struct {
	synctypes.NopObserver
	mu       gosync.Mutex
	outcomes map[synctypes.Status]int
	ops      int
}

func (c *countingObserver) ObserveOutcome(o *synctypes.Outcome) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.outcomes == nil {
		c.outcomes = make(map[synctypes.Status]int)
	}
	c.outcomes[o.Status]++
}

func (c *countingObserver) ObserveOperation(string, time.Duration, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ops++
}

func newMemClient(t *testing.T, opts ...synctypes.Option) (*Client, *testutil.MemoryStore, *localfs.FS) {
	t.Helper()
	mfs := localfs.NewMemFS()
	mem := testutil.NewMemoryStore("site-assets")
	opts = append([]synctypes.Option{WithFilesystem(mfs), WithRetryPolicy(testRetry)}, opts...)
	client, err := NewWithStore(mem, opts...)
	require.NoError(t, err)
	return client, mem, localfs.New(mfs)
}

func TestClientSync(t *testing.T) {
	obs := &countingObserver{}
	client, mem, fs := newMemClient(t, WithObserver(obs))
	mtime := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, testutil.WriteFile(fs, "/site/index.html", []byte("<html/>"), mtime))
	require.NoError(t, testutil.WriteFile(fs, "/site/css/app.css", []byte("body{}"), mtime))
	require.NoError(t, testutil.WriteFile(fs, "/site/app.js.map", []byte("{}"), mtime))

	tracker := &testutil.MockProgressTracker{}
	result, err := client.Sync(context.Background(), "/site",
		WithDestinationFolder("v1"),
		WithExcludePatterns("*.map"),
		WithProgressTracker(tracker),
	)
	require.NoError(t, err)
	assert.Equal(t, []string{"v1/css/app.css", "v1/index.html"}, result.Keys())
	assert.Equal(t, []string{"v1/css/app.css", "v1/index.html"}, mem.Keys())
	assert.Equal(t, 2, result.FilesUploaded)
	assert.True(t, tracker.Completed())

	assert.Equal(t, 2, obs.outcomes[synctypes.StatusUploaded])
	assert.Positive(t, obs.ops)

	again, err := client.Sync(context.Background(), "/site", WithDestinationFolder("v1"), WithExcludePatterns("*.map"))
	require.NoError(t, err)
	assert.Equal(t, 2, again.FilesSkipped)
}

func TestClientSyncFiles(t *testing.T) {
	client, mem, fs := newMemClient(t)
	require.NoError(t, testutil.WriteFile(fs, "/build/out/app.zip", []byte("zip"), time.Time{}))
	require.NoError(t, testutil.WriteFile(fs, "/build/notes.txt", []byte("notes"), time.Time{}))

	result, err := client.SyncFiles(context.Background(),
		[]string{"/build/out/app.zip", "/build/notes.txt"},
		WithDestinationFolder("releases"),
		WithContentType("application/octet-stream"),
	)
	require.NoError(t, err)
	assert.Equal(t, 2, result.FilesUploaded)
	assert.Equal(t, []string{"releases/app.zip", "releases/notes.txt"}, mem.Keys())

	obj, ok := mem.Object("releases/notes.txt")
	require.True(t, ok)
	assert.Equal(t, "application/octet-stream", obj.Properties.ContentType)
}

func TestClientSyncReportsPartialFailure(t *testing.T) {
	client, mem, fs := newMemClient(t)
	require.NoError(t, testutil.WriteFile(fs, "/src/a.txt", []byte("a"), time.Time{}))
	require.NoError(t, testutil.WriteFile(fs, "/src/b.txt", []byte("b"), time.Time{}))
	mem.Fail(store.OpSetMetadata, "b.txt", -1, errors.ErrAccessDenied)

	result, err := client.Sync(context.Background(), "/src")
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrSyncIncomplete)
	require.NotNil(t, result)
	assert.Equal(t, synctypes.StatusUploaded, result.Outcomes["a.txt"].Status)
	assert.Equal(t, synctypes.StatusMetadataStale, result.Outcomes["b.txt"].Status)
}

func TestClientSyncInputErrors(t *testing.T) {
	client, _, _ := newMemClient(t)
	ctx := context.Background()

	_, err := client.Sync(ctx, "")
	assert.ErrorIs(t, err, errors.ErrInvalidInput)

	_, err = client.Sync(ctx, "/does/not/exist")
	assert.ErrorIs(t, err, errors.ErrInvalidInput)

	_, err = client.SyncFiles(ctx, nil)
	assert.ErrorIs(t, err, errors.ErrInvalidInput)

	_, err = client.Sync(ctx, "/", WithContentType("not a type"))
	assert.Error(t, err)
}

func TestClientSyncBoundsInFlightOperations(t *testing.T) {
	mfs := localfs.NewMemFS()
	fs := localfs.New(mfs)
	for i := 0; i < 12; i++ {
		require.NoError(t, testutil.WriteFile(fs, filepath.Join("/src", string(rune('a'+i))+".txt"), []byte("x"), time.Time{}))
	}
	mem := testutil.NewMemoryStore("site-assets")
	mem.SetDelay(2 * time.Millisecond)

	client, err := NewWithStore(mem,
		WithFilesystem(mfs),
		WithParallelism(6),
		WithMaxInFlight(2),
		WithRetryPolicy(testRetry),
	)
	require.NoError(t, err)

	result, err := client.Sync(context.Background(), "/src")
	require.NoError(t, err)
	assert.Equal(t, 12, result.FilesUploaded)
	assert.LessOrEqual(t, mem.MaxInFlight(), int64(2))
}

func TestClientSyncExportsMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	client, _, fs := newMemClient(t, WithMetrics(reg))
	require.NoError(t, testutil.WriteFile(fs, "/src/a.txt", []byte("hello"), time.Time{}))

	_, err := client.Sync(context.Background(), "/src")
	require.NoError(t, err)

	n, err := promtest.GatherAndCount(reg, "blobsync_file_outcomes_total", "blobsync_uploaded_bytes_total")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestClientSyncOnOSFilesystem(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("hello"), 0o600))

	mem := testutil.NewMemoryStore("site-assets")
	client, err := NewWithStore(mem, WithRetryPolicy(testRetry))
	require.NoError(t, err)

	result, err := client.Sync(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, 1, result.FilesUploaded)

	obj, ok := mem.Object("a.txt")
	require.True(t, ok)
	assert.Equal(t, "hello", string(obj.Data))
}

func TestSyncOptions(t *testing.T) {
	tracker := &testutil.MockProgressTracker{}
	cfg := newSyncConfig([]synctypes.SyncOption{
		WithContentType("text/html"),
		WithContentEncoding("gzip"),
		WithDestinationFolder("site"),
		WithIncludePatterns("*.html"),
		WithIncludePatterns("*.css"),
		WithExcludePatterns("tmp/"),
		WithQuickCheck(true),
		WithDryRun(true),
		WithProgressTracker(tracker),
		WithSyncParallelism(3),
	})

	assert.Equal(t, "text/html", cfg.ContentType)
	assert.Equal(t, "gzip", cfg.ContentEncoding)
	assert.Equal(t, "site", cfg.Prefix)
	assert.Equal(t, []string{"*.html", "*.css"}, cfg.IncludePatterns)
	assert.Equal(t, []string{"tmp/"}, cfg.ExcludePatterns)
	assert.True(t, cfg.QuickCheck)
	assert.True(t, cfg.DryRun)
	assert.Same(t, tracker, cfg.ProgressTracker)
	assert.Equal(t, 3, cfg.Parallelism)
}
