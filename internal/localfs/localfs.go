// Package localfs adapts go-billy filesystems for the sync engine. Paths are
// slash or OS separated paths interpreted by the underlying filesystem.
package localfs

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"
)

// File is an open local file. Every billy file supports random access reads.
type File = billy.File

// FS wraps a go-billy filesystem.
type FS struct {
	fs billy.Filesystem
}

// New creates an FS over fsys.
func New(fsys billy.Filesystem) *FS {
	return &FS{fs: fsys}
}

// NewOSFS creates an FS over the host filesystem rooted at root.
func NewOSFS(root string) *FS {
	return &FS{fs: osfs.New(root)}
}

// NewInMemoryFS creates an empty in-memory FS that keeps modification times.
func NewInMemoryFS() *FS {
	return &FS{fs: NewMemFS()}
}

// Open opens name for reading.
//
//nolint:ireturn // billy files are interfaces.
func (f *FS) Open(name string) (File, error) {
	file, err := f.fs.Open(name)
	if err != nil {
		return nil, fmt.Errorf("localfs: open %q: %w", name, err)
	}
	return file, nil
}

// Stat returns file info for name.
func (f *FS) Stat(name string) (os.FileInfo, error) {
	info, err := f.fs.Stat(name)
	if err != nil {
		return nil, fmt.Errorf("localfs: stat %q: %w", name, err)
	}
	return info, nil
}

// Walk walks the tree rooted at root in lexical order.
func (f *FS) Walk(root string, walkFn filepath.WalkFunc) error {
	if err := util.Walk(f.fs, root, walkFn); err != nil {
		return fmt.Errorf("localfs: walk %q: %w", root, err)
	}
	return nil
}

// MkdirAll creates path and any missing parents.
func (f *FS) MkdirAll(path string, perm os.FileMode) error {
	if err := f.fs.MkdirAll(path, perm); err != nil {
		return fmt.Errorf("localfs: mkdirall %q: %w", path, err)
	}
	return nil
}

// WriteFile writes data to filename, creating parent directories as needed.
func (f *FS) WriteFile(filename string, data []byte, perm os.FileMode) error {
	if dir := filepath.Dir(filename); dir != "." && dir != string(filepath.Separator) {
		if err := f.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	if err := util.WriteFile(f.fs, filename, data, perm); err != nil {
		return fmt.Errorf("localfs: writefile %q: %w", filename, err)
	}
	return nil
}

// chtimer is the part of billy.Change that Chtimes needs.
type chtimer interface {
	Chtimes(name string, atime, mtime time.Time) error
}

// Chtimes sets the modification time of name when the filesystem supports it.
func (f *FS) Chtimes(name string, mtime time.Time) error {
	change, ok := f.fs.(chtimer)
	if !ok {
		return fmt.Errorf("localfs: chtimes %q: not supported", name)
	}
	if err := change.Chtimes(name, mtime, mtime); err != nil {
		return fmt.Errorf("localfs: chtimes %q: %w", name, err)
	}
	return nil
}
