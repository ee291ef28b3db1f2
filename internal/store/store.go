// Package store defines the object-store contract the sync engine requires.
// Backends live in subpackages; decorators in this package add concurrency
// bounds and instrumentation without the engine knowing which backend it talks to.
package store

import (
	"context"
	"io"

	"github.com/input-output-hk/catalyst-forge-libs/blobsync/synctypes"
)

// Store is a handle to one remote container. Implementations must be safe
// for concurrent use by many file pipelines.
type Store interface {
	// Container returns the container name the store is bound to.
	Container() string

	// EnsureContainer creates the container if it does not exist.
	EnsureContainer(ctx context.Context) error

	// ObjectExists reports whether an object exists under key.
	ObjectExists(ctx context.Context, key string) (bool, error)

	// FetchAttributes returns the object's length, stored digest and metadata
	// without downloading content. Returns ErrObjectNotFound when absent.
	FetchAttributes(ctx context.Context, key string) (*synctypes.Attributes, error)

	// PutObject writes a whole object in one request. body is read from the start.
	PutObject(ctx context.Context, key string, body io.ReadSeeker, size int64, props synctypes.Properties) error

	// StartChunked begins a chunked upload. Nothing is visible under key until
	// the returned writer is finalized.
	StartChunked(ctx context.Context, key string, props synctypes.Properties) (ChunkWriter, error)

	// SetProperties replaces the object's content properties.
	SetProperties(ctx context.Context, key string, props synctypes.Properties) error

	// SetMetadata merges metadata into the object's user metadata.
	SetMetadata(ctx context.Context, key string, metadata map[string]string) error
}

// ChunkWriter stages chunks of one object. UploadChunk may be called
// concurrently for different indices; Finalize and Abort are terminal.
type ChunkWriter interface {
	// UploadChunk stages the chunk at index covering data starting at offset.
	// Re-uploading an index replaces the staged chunk.
	UploadChunk(ctx context.Context, index int, offset int64, data []byte) error

	// Finalize commits all staged chunks, in index order, as the object content.
	Finalize(ctx context.Context) error

	// Abort discards all staged chunks.
	Abort(ctx context.Context) error
}
