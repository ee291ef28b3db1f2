package blobsync

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/input-output-hk/catalyst-forge-libs/blobsync/errors"
	"github.com/input-output-hk/catalyst-forge-libs/blobsync/internal/testutil"
	"github.com/input-output-hk/catalyst-forge-libs/blobsync/synctypes"
)

const minioCreds = "AccessKeyId=minio\nSecretAccessKey=minio123\nEndpoint=http://localhost:9000\n"

func TestNew(t *testing.T) {
	ctx := context.Background()

	t.Run("minio backend", func(t *testing.T) {
		client, err := New(ctx, "site-assets", []byte(minioCreds), WithBackend(synctypes.BackendMinIO))
		require.NoError(t, err)
		assert.Equal(t, "site-assets", client.Container())
		assert.NoError(t, client.Close())
	})

	t.Run("invalid container", func(t *testing.T) {
		_, err := New(ctx, "Bad_Name", []byte(minioCreds), WithBackend(synctypes.BackendMinIO))
		assert.ErrorIs(t, err, errors.ErrInvalidContainerName)
	})

	t.Run("unknown backend", func(t *testing.T) {
		_, err := New(ctx, "site-assets", []byte(minioCreds), WithBackend("ftp"))
		assert.True(t, errors.IsConfiguration(err))
	})

	t.Run("chunk size below minimum", func(t *testing.T) {
		_, err := New(ctx, "site-assets", []byte(minioCreds),
			WithBackend(synctypes.BackendMinIO), WithChunkSize(1024))
		assert.True(t, errors.IsConfiguration(err))
	})

	t.Run("malformed credentials", func(t *testing.T) {
		_, err := New(ctx, "site-assets", []byte("AccessKeyId=only"), WithBackend(synctypes.BackendMinIO))
		assert.True(t, errors.IsConfiguration(err))
	})
}

func TestNewWithStoreValidatesOptions(t *testing.T) {
	tests := []struct {
		name string
		opts []synctypes.Option
	}{
		{name: "zero parallelism", opts: []synctypes.Option{WithParallelism(0)}},
		{name: "excessive parallelism", opts: []synctypes.Option{WithParallelism(1000)}},
		{name: "zero chunk parallelism", opts: []synctypes.Option{WithChunkParallelism(0)}},
		{name: "negative chunk size", opts: []synctypes.Option{WithChunkSize(-1)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewWithStore(testutil.NewMemoryStore("c"), tt.opts...)
			require.Error(t, err)
			assert.True(t, errors.IsConfiguration(err))
		})
	}
}

func TestClientConfigDefaults(t *testing.T) {
	cfg := newClientConfig(nil)
	assert.Equal(t, synctypes.BackendS3, cfg.Backend)
	assert.Equal(t, 5, cfg.Parallelism)
	assert.Equal(t, int64(8*1024*1024), cfg.ChunkSize)
	assert.Equal(t, 4, cfg.ChunkParallelism)
	assert.Equal(t, 20, cfg.MaxInFlight)
	assert.Equal(t, synctypes.DefaultRetryPolicy(), cfg.RetryPolicy)
	assert.NotNil(t, cfg.Logger)

	cfg = newClientConfig([]synctypes.Option{WithParallelism(2), WithChunkParallelism(3), WithMaxInFlight(4)})
	assert.Equal(t, 4, cfg.MaxInFlight)
}

func TestLoadCredentials(t *testing.T) {
	dir := t.TempDir()

	t.Run("reads blob unparsed", func(t *testing.T) {
		path := filepath.Join(dir, "creds")
		require.NoError(t, os.WriteFile(path, []byte(minioCreds), 0o600))
		blob, err := LoadCredentials(path)
		require.NoError(t, err)
		assert.Equal(t, minioCreds, string(blob))
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadCredentials(filepath.Join(dir, "nope"))
		require.Error(t, err)
		assert.True(t, errors.IsConfiguration(err))
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("empty file", func(t *testing.T) {
		path := filepath.Join(dir, "empty")
		require.NoError(t, os.WriteFile(path, nil, 0o600))
		_, err := LoadCredentials(path)
		assert.True(t, errors.IsConfiguration(err))
	})

	t.Run("empty path", func(t *testing.T) {
		_, err := LoadCredentials("")
		assert.True(t, errors.IsConfiguration(err))
	})
}

func TestNewFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "creds")
	require.NoError(t, os.WriteFile(path, []byte(minioCreds), 0o600))

	client, err := NewFromFile(context.Background(), "site-assets", path, WithBackend(synctypes.BackendMinIO))
	require.NoError(t, err)
	assert.Equal(t, "site-assets", client.Container())
}

func TestWithMetricsRegistersCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	mem := testutil.NewMemoryStore("c")
	obs := &countingObserver{}

	_, err := NewWithStore(mem, WithMetrics(reg), WithObserver(obs))
	require.NoError(t, err)

	// A second client on the same registry reuses the collectors.
	_, err = NewWithStore(mem, WithMetrics(reg))
	require.NoError(t, err)
}
