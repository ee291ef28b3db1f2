package fingerprint

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/input-output-hk/catalyst-forge-libs/blobsync/errors"
	"github.com/input-output-hk/catalyst-forge-libs/blobsync/internal/localfs"
	"github.com/input-output-hk/catalyst-forge-libs/blobsync/internal/store"
	"github.com/input-output-hk/catalyst-forge-libs/blobsync/internal/testutil"
	"github.com/input-output-hk/catalyst-forge-libs/blobsync/synctypes"
)

func TestLocal(t *testing.T) {
	fs := localfs.NewInMemoryFS()
	require.NoError(t, fs.WriteFile("/src/hello.txt", []byte("hello"), 0o644))
	require.NoError(t, fs.WriteFile("/src/empty", nil, 0o644))
	f := New(fs, testutil.NewMemoryStore("c"), nil)

	info, err := f.Local("/src/hello.txt")
	require.NoError(t, err)
	assert.Equal(t, synctypes.ContentInfo{Digest: "XUFAKrxLKna5cZ2REBfFkg==", Length: 5}, info)

	info, err = f.Local("/src/empty")
	require.NoError(t, err)
	assert.Equal(t, int64(0), info.Length)
	assert.Equal(t, "1B2M2Y8AsgTpgAmY7PhCfg==", info.Digest)

	_, err = f.Local("/src/missing")
	assert.Error(t, err)
}

func TestDigestStreamsLargeInput(t *testing.T) {
	data := bytes.Repeat([]byte("0123456789"), 100_000)
	info, err := Digest(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, int64(len(data)), info.Length)
	assert.Equal(t, testutil.DigestOf(data), info.Digest)
}

func TestDigestChangesWithOneByte(t *testing.T) {
	a, err := Digest(strings.NewReader("0123456789"))
	require.NoError(t, err)
	b, err := Digest(strings.NewReader("0123456788"))
	require.NoError(t, err)
	assert.Equal(t, a.Length, b.Length)
	assert.NotEqual(t, a.Digest, b.Digest)
}

func TestRemote(t *testing.T) {
	ctx := context.Background()

	t.Run("absent makes no attribute call", func(t *testing.T) {
		mem := testutil.NewMemoryStore("c")
		info, attrs, err := New(localfs.NewInMemoryFS(), mem, nil).Remote(ctx, "a.txt")
		require.NoError(t, err)
		assert.True(t, info.IsAbsent())
		assert.Nil(t, attrs)
		assert.Zero(t, mem.Calls(store.OpFetchAttributes))
	})

	t.Run("recorded digest", func(t *testing.T) {
		mem := testutil.NewMemoryStore("c")
		mem.Put("a.txt", []byte("0123456789"), map[string]string{store.MetaContentMD5: "D1"})
		info, attrs, err := New(localfs.NewInMemoryFS(), mem, nil).Remote(ctx, "a.txt")
		require.NoError(t, err)
		assert.Equal(t, synctypes.ContentInfo{Digest: "D1", Length: 10}, info)
		require.NotNil(t, attrs)
	})

	t.Run("no digest", func(t *testing.T) {
		mem := testutil.NewMemoryStore("c")
		mem.Put("a.txt", []byte("0123456789"), nil)
		info, _, err := New(localfs.NewInMemoryFS(), mem, nil).Remote(ctx, "a.txt")
		require.NoError(t, err)
		assert.False(t, info.HasDigest())
		assert.Equal(t, int64(10), info.Length)
	})

	t.Run("transient existence failure is absent", func(t *testing.T) {
		mem := testutil.NewMemoryStore("c")
		mem.Put("a.txt", []byte("x"), nil)
		mem.Fail(store.OpObjectExists, "a.txt", 1, errors.ErrTransient)
		info, _, err := New(localfs.NewInMemoryFS(), mem, nil).Remote(ctx, "a.txt")
		require.NoError(t, err)
		assert.True(t, info.IsAbsent())
	})

	t.Run("access denied fails", func(t *testing.T) {
		mem := testutil.NewMemoryStore("c")
		mem.Fail(store.OpObjectExists, "a.txt", 1, errors.ErrAccessDenied)
		_, _, err := New(localfs.NewInMemoryFS(), mem, nil).Remote(ctx, "a.txt")
		assert.ErrorIs(t, err, errors.ErrAccessDenied)
	})

	t.Run("attribute failure fails", func(t *testing.T) {
		mem := testutil.NewMemoryStore("c")
		mem.Put("a.txt", []byte("x"), nil)
		mem.Fail(store.OpFetchAttributes, "a.txt", 1, errors.ErrTransient)
		_, _, err := New(localfs.NewInMemoryFS(), mem, nil).Remote(ctx, "a.txt")
		assert.ErrorIs(t, err, errors.ErrTransient)
	})
}
