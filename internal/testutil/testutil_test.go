package testutil

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	syncerrors "github.com/input-output-hk/catalyst-forge-libs/blobsync/errors"
	"github.com/input-output-hk/catalyst-forge-libs/blobsync/internal/localfs"
	"github.com/input-output-hk/catalyst-forge-libs/blobsync/internal/store"
	"github.com/input-output-hk/catalyst-forge-libs/blobsync/synctypes"
)

func TestMemoryStorePutAndAttributes(t *testing.T) {
	ctx := context.Background()
	mem := NewMemoryStore("c")

	err := mem.PutObject(ctx, "a.txt", bytes.NewReader([]byte("hello")), 5, synctypes.Properties{ContentType: "text/plain"})
	require.NoError(t, err)
	require.NoError(t, mem.SetMetadata(ctx, "a.txt", map[string]string{store.MetaContentMD5: DigestOf([]byte("hello"))}))

	exists, err := mem.ObjectExists(ctx, "a.txt")
	require.NoError(t, err)
	assert.True(t, exists)

	attrs, err := mem.FetchAttributes(ctx, "a.txt")
	require.NoError(t, err)
	assert.Equal(t, int64(5), attrs.Length)
	assert.Equal(t, "XUFAKrxLKna5cZ2REBfFkg==", attrs.Digest)
	assert.Equal(t, "text/plain", attrs.ContentType)
	assert.Equal(t, []string{"a.txt"}, mem.Keys())
}

func TestMemoryStoreDigestRequiresMetadata(t *testing.T) {
	ctx := context.Background()
	mem := NewMemoryStore("c")
	mem.Put("k", []byte("abc"), nil)

	attrs, err := mem.FetchAttributes(ctx, "k")
	require.NoError(t, err)
	assert.Empty(t, attrs.Digest)

	mem.NativeDigest = true
	attrs, err = mem.FetchAttributes(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, DigestOf([]byte("abc")), attrs.Digest)
}

func TestMemoryStoreMissingObject(t *testing.T) {
	ctx := context.Background()
	mem := NewMemoryStore("c")

	_, err := mem.FetchAttributes(ctx, "nope")
	assert.True(t, syncerrors.IsObjectNotFound(err))
	assert.True(t, syncerrors.IsObjectNotFound(mem.SetMetadata(ctx, "nope", map[string]string{"a": "b"})))
	assert.True(t, syncerrors.IsObjectNotFound(mem.SetProperties(ctx, "nope", synctypes.Properties{})))
}

func TestMemoryStoreFaults(t *testing.T) {
	ctx := context.Background()
	mem := NewMemoryStore("c")
	boom := errors.New("boom")
	mem.Fail(store.OpObjectExists, "k", 2, boom)

	for i := 0; i < 2; i++ {
		_, err := mem.ObjectExists(ctx, "k")
		assert.ErrorIs(t, err, boom)
	}
	_, err := mem.ObjectExists(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, 3, mem.Calls(store.OpObjectExists))

	mem.Fail(store.OpEnsureContainer, "", -1, boom)
	for i := 0; i < 3; i++ {
		assert.ErrorIs(t, mem.EnsureContainer(ctx), boom)
	}
}

func TestMemoryStoreChunkedUpload(t *testing.T) {
	ctx := context.Background()
	mem := NewMemoryStore("c")

	w, err := mem.StartChunked(ctx, "big", synctypes.Properties{})
	require.NoError(t, err)
	require.NoError(t, w.UploadChunk(ctx, 1, 3, []byte("def")))
	require.NoError(t, w.UploadChunk(ctx, 0, 0, []byte("abc")))

	_, ok := mem.Object("big")
	assert.False(t, ok, "chunks stay invisible until finalized")

	require.NoError(t, w.Finalize(ctx))
	obj, ok := mem.Object("big")
	require.True(t, ok)
	assert.Equal(t, "abcdef", string(obj.Data))
}

func TestMemoryStoreChunkGapIsNotFinalized(t *testing.T) {
	ctx := context.Background()
	mem := NewMemoryStore("c")

	w, err := mem.StartChunked(ctx, "big", synctypes.Properties{})
	require.NoError(t, err)
	require.NoError(t, w.UploadChunk(ctx, 0, 0, []byte("abc")))
	require.NoError(t, w.UploadChunk(ctx, 2, 6, []byte("ghi")))

	assert.ErrorIs(t, w.Finalize(ctx), syncerrors.ErrNotFinalized)
	require.NoError(t, w.Abort(ctx))
	assert.Equal(t, 1, mem.Aborted("big"))
	assert.Empty(t, mem.Keys())
}

func TestMemoryStoreHonoursCancellation(t *testing.T) {
	mem := NewMemoryStore("c")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := mem.ObjectExists(ctx, "k")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMockProgressTrackerConcurrentUpdates(t *testing.T) {
	tracker := &MockProgressTracker{}

	var wg sync.WaitGroup
	for i := 1; i <= 50; i++ {
		wg.Add(1)
		go func(n int64) {
			defer wg.Done()
			tracker.Update(n, 50)
		}(int64(i))
	}
	wg.Wait()
	tracker.Complete()

	assert.Len(t, tracker.Updates(), 50)
	assert.Equal(t, int64(50), tracker.Last().Total)
	assert.True(t, tracker.Completed())
	assert.NoError(t, tracker.Err())
}

func TestGenerateTreeIsReproducible(t *testing.T) {
	mtime := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	fs1 := localfs.NewInMemoryFS()
	files1, err := NewTestDataGenerator(7).GenerateTree(fs1, "/src", 12, 64, mtime)
	require.NoError(t, err)

	fs2 := localfs.NewInMemoryFS()
	files2, err := NewTestDataGenerator(7).GenerateTree(fs2, "/src", 12, 64, mtime)
	require.NoError(t, err)

	assert.Equal(t, files1, files2)
	assert.Len(t, files1, 12)

	for key, data := range files1 {
		info, err := fs1.Stat("/src/" + key)
		require.NoError(t, err, key)
		assert.Equal(t, int64(len(data)), info.Size())
		assert.True(t, info.ModTime().Equal(mtime), key)
	}
}

func TestMockBuilder(t *testing.T) {
	ctx := context.Background()

	t.Run("known and unknown objects", func(t *testing.T) {
		mock := NewMockBuilder().WithObject("a.txt", []byte("hello"), "text/plain", nil).Build()

		out, err := mock.HeadObject(ctx, &s3.HeadObjectInput{Key: aws.String("a.txt")})
		require.NoError(t, err)
		assert.Equal(t, int64(5), aws.ToInt64(out.ContentLength))
		assert.Equal(t, CalculateETag([]byte("hello")), aws.ToString(out.ETag))

		_, err = mock.HeadObject(ctx, &s3.HeadObjectInput{Key: aws.String("b.txt")})
		var nf *types.NotFound
		assert.ErrorAs(t, err, &nf)
	})

	t.Run("successful upload sink", func(t *testing.T) {
		got := map[string]string{}
		mock := NewMockBuilder().WithSuccessfulUpload(func(key string, body []byte) {
			got[key] = string(body)
		}).Build()

		_, err := mock.PutObject(ctx, &s3.PutObjectInput{Key: aws.String("k"), Body: bytes.NewReader([]byte("data"))})
		require.NoError(t, err)
		assert.Equal(t, map[string]string{"k": "data"}, got)
	})

	t.Run("access denied", func(t *testing.T) {
		mock := NewMockBuilder().WithAccessDenied().Build()
		_, err := mock.HeadBucket(ctx, &s3.HeadBucketInput{})
		assert.Error(t, err)
	})
}
