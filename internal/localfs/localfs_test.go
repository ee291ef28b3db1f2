package localfs

import (
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteOpenStat(t *testing.T) {
	fs := NewInMemoryFS()
	require.NoError(t, fs.WriteFile("/site/css/app.css", []byte("body{}"), 0o644))

	f, err := fs.Open("/site/css/app.css")
	require.NoError(t, err)
	defer f.Close()

	data, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, "body{}", string(data))

	info, err := fs.Stat("/site/css")
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestOpenMissing(t *testing.T) {
	_, err := NewInMemoryFS().Open("/nope")
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestWalkVisitsFiles(t *testing.T) {
	fs := NewInMemoryFS()
	require.NoError(t, fs.WriteFile("/root/b.txt", []byte("b"), 0o644))
	require.NoError(t, fs.WriteFile("/root/a/c.txt", []byte("c"), 0o644))

	var files []string
	err := fs.Walk("/root", func(path string, info os.FileInfo, err error) error {
		require.NoError(t, err)
		if !info.IsDir() {
			files = append(files, filepath.ToSlash(path))
		}
		return nil
	})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"/root/a/c.txt", "/root/b.txt"}, files)
}

func TestChtimes(t *testing.T) {
	fs := NewInMemoryFS()
	require.NoError(t, fs.WriteFile("/f", []byte("x"), 0o644))

	mtime := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, fs.Chtimes("/f", mtime))

	info, err := fs.Stat("/f")
	require.NoError(t, err)
	assert.True(t, info.ModTime().Equal(mtime))
}

func TestInMemoryModTimes(t *testing.T) {
	fs := NewInMemoryFS()
	require.NoError(t, fs.WriteFile("/src/a/b.txt", []byte("x"), 0o644))

	first, err := fs.Stat("/src/a/b.txt")
	require.NoError(t, err)
	time.Sleep(2 * time.Millisecond)
	second, err := fs.Stat("/src/a/b.txt")
	require.NoError(t, err)
	assert.True(t, first.ModTime().Equal(second.ModTime()), "mtime must be stable between writes")

	mtime := time.Date(2009, 2, 13, 23, 31, 30, 0, time.UTC)
	require.NoError(t, fs.Chtimes("src/a/b.txt", mtime))

	var walked time.Time
	require.NoError(t, fs.Walk("/src", func(_ string, info os.FileInfo, err error) error {
		require.NoError(t, err)
		if !info.IsDir() {
			walked = info.ModTime()
		}
		return nil
	}))
	assert.True(t, walked.Equal(mtime))

	entries, err := NewMemFS().ReadDir("/")
	require.NoError(t, err)
	assert.Empty(t, entries)

	require.NoError(t, fs.WriteFile("/src/a/b.txt", []byte("y"), 0o644))
	info, err := fs.Stat("/src/a/b.txt")
	require.NoError(t, err)
	assert.True(t, info.ModTime().After(mtime), "a rewrite replaces the pinned mtime")
}

func TestInMemoryReadDirCarriesModTimes(t *testing.T) {
	mfs := NewMemFS()
	fs := New(mfs)
	mtime := time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC)
	require.NoError(t, fs.WriteFile("/d/x.txt", []byte("x"), 0o644))
	require.NoError(t, fs.Chtimes("/d/x.txt", mtime))

	entries, err := mfs.ReadDir("/d")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, entries[0].ModTime().Equal(mtime))

	require.NoError(t, mfs.Rename("/d/x.txt", "/d/y.txt"))
	info, err := fs.Stat("/d/y.txt")
	require.NoError(t, err)
	assert.True(t, info.ModTime().Equal(mtime))
}

func TestChtimesMissingFile(t *testing.T) {
	err := NewInMemoryFS().Chtimes("/nope", time.Now())
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestOSFS(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "x.txt"), []byte("hello"), 0o600))

	fs := NewOSFS(dir)
	info, err := fs.Stat("x.txt")
	require.NoError(t, err)
	assert.Equal(t, int64(5), info.Size())
}
