package testutil

import (
	"fmt"
	"math/rand"
	"path"
	"sort"
	"time"

	"github.com/input-output-hk/catalyst-forge-libs/blobsync/internal/localfs"
)

// TestDataGenerator produces reproducible local trees for sync tests.
type TestDataGenerator struct {
	rand *rand.Rand
}

// NewTestDataGenerator creates a new test data generator with a seeded random source.
func NewTestDataGenerator(seed int64) *TestDataGenerator {
	return &TestDataGenerator{
		rand: rand.New(rand.NewSource(seed)),
	}
}

// GenerateData returns size pseudo-random bytes.
func (g *TestDataGenerator) GenerateData(size int) []byte {
	data := make([]byte, size)
	_, _ = g.rand.Read(data)
	return data
}

// GenerateKeys returns count distinct slash-separated relative keys spread
// over a few nested directories, in sorted order.
func (g *TestDataGenerator) GenerateKeys(count int) []string {
	dirs := []string{"", "assets", "assets/css", "docs", "docs/api/v1"}
	exts := []string{".txt", ".css", ".js", ".json", ".bin"}

	keys := make([]string, 0, count)
	for i := 0; i < count; i++ {
		dir := dirs[g.rand.Intn(len(dirs))]
		name := fmt.Sprintf("file-%03d%s", i, exts[g.rand.Intn(len(exts))])
		keys = append(keys, path.Join(dir, name))
	}
	sort.Strings(keys)
	return keys
}

// GenerateTree writes count files of up to maxSize bytes under root and
// returns their contents keyed by relative path. Every file gets modTime.
func (g *TestDataGenerator) GenerateTree(
	fs *localfs.FS,
	root string,
	count, maxSize int,
	modTime time.Time,
) (map[string][]byte, error) {
	files := make(map[string][]byte, count)
	for _, key := range g.GenerateKeys(count) {
		data := g.GenerateData(g.rand.Intn(maxSize + 1))
		if err := WriteFile(fs, path.Join(root, key), data, modTime); err != nil {
			return nil, err
		}
		files[key] = data
	}
	return files, nil
}

// WriteFile writes data to name and pins its modification time.
// A zero modTime leaves the filesystem's own timestamp in place.
func WriteFile(fs *localfs.FS, name string, data []byte, modTime time.Time) error {
	if err := fs.WriteFile(name, data, 0o644); err != nil {
		return err
	}
	if modTime.IsZero() {
		return nil
	}
	return fs.Chtimes(name, modTime)
}
