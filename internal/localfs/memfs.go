package localfs

import (
	"os"
	"path"
	"path/filepath"
	"sync"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
)

// memFS is a memfs filesystem that keeps modification times. memfs reports
// the current time for every stat, so files get a time on each write and
// Chtimes overrides it.
type memFS struct {
	billy.Filesystem

	mu     sync.RWMutex
	mtimes map[string]time.Time
}

// NewMemFS returns an in-memory filesystem with stable modification times.
//
//nolint:ireturn // callers hand it to APIs taking billy.Filesystem.
func NewMemFS() billy.Filesystem {
	return &memFS{Filesystem: memfs.New(), mtimes: make(map[string]time.Time)}
}

func memKey(name string) string {
	return path.Clean("/" + filepath.ToSlash(name))
}

func (m *memFS) touch(name string, t time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mtimes[memKey(name)] = t
}

func (m *memFS) modTime(name string) (time.Time, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.mtimes[memKey(name)]
	return t, ok
}

func (m *memFS) withModTime(name string, info os.FileInfo) os.FileInfo {
	if t, ok := m.modTime(name); ok {
		return &timedInfo{FileInfo: info, mtime: t}
	}
	return info
}

//nolint:ireturn // billy contract.
func (m *memFS) Create(filename string) (billy.File, error) {
	f, err := m.Filesystem.Create(filename)
	if err == nil {
		m.touch(filename, time.Now())
	}
	return f, err
}

//nolint:ireturn // billy contract.
func (m *memFS) OpenFile(filename string, flag int, perm os.FileMode) (billy.File, error) {
	f, err := m.Filesystem.OpenFile(filename, flag, perm)
	if err == nil && flag&(os.O_WRONLY|os.O_RDWR|os.O_CREATE|os.O_TRUNC|os.O_APPEND) != 0 {
		m.touch(filename, time.Now())
	}
	return f, err
}

func (m *memFS) Stat(filename string) (os.FileInfo, error) {
	info, err := m.Filesystem.Stat(filename)
	if err != nil {
		return nil, err
	}
	return m.withModTime(filename, info), nil
}

func (m *memFS) Lstat(filename string) (os.FileInfo, error) {
	info, err := m.Filesystem.Lstat(filename)
	if err != nil {
		return nil, err
	}
	return m.withModTime(filename, info), nil
}

func (m *memFS) ReadDir(dir string) ([]os.FileInfo, error) {
	entries, err := m.Filesystem.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	for i, info := range entries {
		entries[i] = m.withModTime(m.Join(dir, info.Name()), info)
	}
	return entries, nil
}

func (m *memFS) Rename(from, to string) error {
	if err := m.Filesystem.Rename(from, to); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.mtimes[memKey(from)]; ok {
		m.mtimes[memKey(to)] = t
		delete(m.mtimes, memKey(from))
	}
	return nil
}

func (m *memFS) Remove(filename string) error {
	if err := m.Filesystem.Remove(filename); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.mtimes, memKey(filename))
	return nil
}

// Chtimes records mtime for filename. Access times are not kept.
func (m *memFS) Chtimes(filename string, _, mtime time.Time) error {
	if _, err := m.Filesystem.Lstat(filename); err != nil {
		return err
	}
	m.touch(filename, mtime)
	return nil
}

type timedInfo struct {
	os.FileInfo
	mtime time.Time
}

func (i *timedInfo) ModTime() time.Time { return i.mtime }
