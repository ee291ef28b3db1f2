package main

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/input-output-hk/catalyst-forge-libs/blobsync"
	"github.com/input-output-hk/catalyst-forge-libs/blobsync/errors"
	"github.com/input-output-hk/catalyst-forge-libs/blobsync/internal/localfs"
	"github.com/input-output-hk/catalyst-forge-libs/blobsync/internal/testutil"
	"github.com/input-output-hk/catalyst-forge-libs/blobsync/synctypes"
)

type harness struct {
	store    *testutil.MemoryStore
	fs       *localfs.FS
	settings *settings
	out      bytes.Buffer
	app      *app
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	mfs := localfs.NewMemFS()
	h := &harness{
		store: testutil.NewMemoryStore("site-assets"),
		fs:    localfs.New(mfs),
	}
	h.app = &app{
		logger: slog.New(slog.DiscardHandler),
		level:  new(slog.LevelVar),
		newClient: func(_ context.Context, s *settings, opts ...synctypes.Option) (*blobsync.Client, error) {
			h.settings = s
			opts = append(opts, blobsync.WithFilesystem(mfs), blobsync.WithRetryPolicy(synctypes.RetryPolicy{
				InitialInterval: time.Millisecond,
				MaxInterval:     time.Millisecond,
				MaxElapsedTime:  time.Second,
				MaxRetries:      1,
			}))
			return blobsync.NewWithStore(h.store, opts...)
		},
	}
	return h
}

func (h *harness) execute(args ...string) error {
	cmd := newRootCmd(h.app)
	cmd.SetOut(&h.out)
	cmd.SetErr(&h.out)
	cmd.SetArgs(args)
	return cmd.ExecuteContext(context.Background())
}

func TestSyncCommand(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, testutil.WriteFile(h.fs, "/site/index.html", []byte("<html/>"), time.Time{}))
	require.NoError(t, testutil.WriteFile(h.fs, "/site/tmp/x.html", []byte("x"), time.Time{}))

	err := h.execute("sync", "/site",
		"--container", "site-assets",
		"--credentials", "/unused",
		"--destination", "web",
		"--exclude", "tmp/",
		"--chunk-size", "16MiB",
	)
	require.NoError(t, err)

	assert.Equal(t, []string{"web/index.html"}, h.store.Keys())
	assert.Equal(t, int64(16*1024*1024), h.settings.ChunkSize)
	assert.Regexp(t, `uploaded\s+web/index.html`, h.out.String())
	assert.Contains(t, h.out.String(), "site-assets: 1 uploaded")
}

func TestSyncCommandSourceFromEnvironment(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, testutil.WriteFile(h.fs, "/src/a.txt", []byte("a"), time.Time{}))
	t.Setenv("BLOBSYNC_SOURCE", "/src")
	t.Setenv("BLOBSYNC_CONTAINER", "site-assets")
	t.Setenv("BLOBSYNC_CREDENTIALS", "/unused")
	t.Setenv("BLOBSYNC_DRY_RUN", "true")

	require.NoError(t, h.execute("sync"))
	assert.True(t, h.settings.DryRun)
	assert.Empty(t, h.store.Keys())
	assert.Contains(t, h.out.String(), "would_upload")
}

func TestCopyCommand(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, testutil.WriteFile(h.fs, "/out/app.zip", []byte("zip"), time.Time{}))
	require.NoError(t, testutil.WriteFile(h.fs, "/out/docs/app.zip", []byte("other"), time.Time{}))
	require.NoError(t, testutil.WriteFile(h.fs, "/out/readme.md", []byte("# hi"), time.Time{}))

	err := h.execute("copy", "/out/app.zip", "/out/docs/app.zip", "/out/readme.md",
		"-b", "site-assets", "-k", "/unused")
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrDuplicateKey)
	assert.Equal(t, []string{"readme.md"}, h.store.Keys())
	assert.Contains(t, h.out.String(), "1 failed")
}

func TestMissingRequiredSettings(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{name: "no container", args: []string{"sync", "/src", "--credentials", "/c"}},
		{name: "no credentials", args: []string{"sync", "/src", "--container", "site-assets"}},
		{name: "no source", args: []string{"sync", "--container", "site-assets", "--credentials", "/c"}},
		{name: "bad chunk size", args: []string{"sync", "/src", "-b", "site-assets", "-k", "/c", "--chunk-size", "lots"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			err := h.execute(tt.args...)
			require.Error(t, err)
			assert.True(t, errors.IsConfiguration(err))
			assert.Empty(t, h.store.Keys())
		})
	}
}

func TestMetricsFile(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, testutil.WriteFile(h.fs, "/src/a.txt", []byte("hello"), time.Time{}))
	path := filepath.Join(t.TempDir(), "blobsync.prom")

	require.NoError(t, h.execute("sync", "/src", "-b", "site-assets", "-k", "/unused", "--metrics-file", path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `blobsync_file_outcomes_total{status="uploaded"} 1`)
}

func TestConfigFile(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, testutil.WriteFile(h.fs, "/src/a.txt", []byte("a"), time.Time{}))
	path := filepath.Join(t.TempDir(), "blobsync.yaml")
	require.NoError(t, os.WriteFile(path, []byte("container: site-assets\ncredentials: /unused\nparallelism: 2\n"), 0o600))

	require.NoError(t, h.execute("sync", "/src", "--config", path))
	assert.Equal(t, 2, h.settings.Parallelism)
	assert.Equal(t, []string{"a.txt"}, h.store.Keys())
}
