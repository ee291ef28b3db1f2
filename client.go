package blobsync

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/input-output-hk/catalyst-forge-libs/blobsync/errors"
	"github.com/input-output-hk/catalyst-forge-libs/blobsync/internal/localfs"
	"github.com/input-output-hk/catalyst-forge-libs/blobsync/internal/metrics"
	"github.com/input-output-hk/catalyst-forge-libs/blobsync/internal/store"
	"github.com/input-output-hk/catalyst-forge-libs/blobsync/internal/store/miniostore"
	"github.com/input-output-hk/catalyst-forge-libs/blobsync/internal/store/s3store"
	"github.com/input-output-hk/catalyst-forge-libs/blobsync/internal/sync/executor"
	"github.com/input-output-hk/catalyst-forge-libs/blobsync/internal/sync/sync"
	"github.com/input-output-hk/catalyst-forge-libs/blobsync/internal/transfer/multipart"
	"github.com/input-output-hk/catalyst-forge-libs/blobsync/internal/validation"
	"github.com/input-output-hk/catalyst-forge-libs/blobsync/synctypes"
)

// Client syncs local files into one container. It is safe for concurrent use.
type Client struct {
	store   store.Store
	manager *sync.Manager
	logger  *slog.Logger

	// absPaths is set when the filesystem is the OS root, so relative
	// caller paths are resolved against the working directory.
	absPaths bool
}

// New creates a client for container using a plaintext credential blob.
// The blob is handed to the selected backend unparsed; see LoadCredentials.
//
// Example:
//
//	client, err := blobsync.New(ctx, "site-assets", creds,
//	    blobsync.WithBackend(synctypes.BackendMinIO),
//	    blobsync.WithChunkSize(16*1024*1024),
//	)
func New(ctx context.Context, container string, credentials []byte, opts ...synctypes.Option) (*Client, error) {
	if err := validation.ValidateContainerName(container); err != nil {
		return nil, err
	}

	cfg := newClientConfig(opts)
	if cfg.ChunkSize < multipart.MinChunkSize {
		return nil, errors.NewConfigError(fmt.Sprintf("chunk size %d is below the %d byte minimum",
			cfg.ChunkSize, multipart.MinChunkSize))
	}

	var (
		backend store.Store
		err     error
	)
	switch cfg.Backend {
	case synctypes.BackendS3, "":
		backend, err = s3store.New(ctx, container, credentials, cfg.Logger)
	case synctypes.BackendMinIO:
		backend, err = miniostore.New(container, credentials, cfg.Logger)
	default:
		return nil, errors.NewConfigError(fmt.Sprintf("unknown backend %q", cfg.Backend))
	}
	if err != nil {
		return nil, err
	}

	return newClient(backend, cfg)
}

// NewFromFile is New with the credential blob read from path.
func NewFromFile(ctx context.Context, container, path string, opts ...synctypes.Option) (*Client, error) {
	creds, err := LoadCredentials(path)
	if err != nil {
		return nil, err
	}
	return New(ctx, container, creds, opts...)
}

// NewWithStore creates a client around an existing store implementation.
// This is primarily used for testing with in-memory stores.
func NewWithStore(s store.Store, opts ...synctypes.Option) (*Client, error) {
	return newClient(s, newClientConfig(opts))
}

// LoadCredentials reads the credential blob at path. An unreadable or empty
// file is a configuration error.
func LoadCredentials(path string) ([]byte, error) {
	if path == "" {
		return nil, errors.NewConfigError("credentials file path is required")
	}
	blob, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewError("loadCredentials", fmt.Errorf("%w: %w", errors.ErrConfiguration, err)).
			WithCode(errors.CodeInvalidConfig)
	}
	if len(blob) == 0 {
		return nil, errors.NewConfigError(fmt.Sprintf("credentials file %s is empty", path))
	}
	return blob, nil
}

func newClientConfig(opts []synctypes.Option) *synctypes.ClientConfig {
	cfg := &synctypes.ClientConfig{
		Backend:          synctypes.BackendS3,
		Parallelism:      executor.DefaultConcurrency,
		ChunkSize:        multipart.DefaultChunkSize,
		ChunkParallelism: multipart.DefaultParallelism,
		RetryPolicy:      synctypes.DefaultRetryPolicy(),
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	if cfg.MaxInFlight == 0 {
		cfg.MaxInFlight = cfg.Parallelism * cfg.ChunkParallelism
	}
	return cfg
}

func newClient(backend store.Store, cfg *synctypes.ClientConfig) (*Client, error) {
	if cfg.Parallelism <= 0 {
		return nil, errors.NewConfigError("parallelism must be positive")
	}
	if err := executor.NewExecutor(cfg.Parallelism).ValidateConcurrency(); err != nil {
		return nil, errors.NewConfigError(err.Error())
	}
	if cfg.ChunkParallelism <= 0 {
		return nil, errors.NewConfigError("chunk parallelism must be positive")
	}
	if cfg.ChunkSize <= 0 {
		return nil, errors.NewConfigError("chunk size must be positive")
	}

	observer := cfg.Observer
	if cfg.Metrics != nil {
		prom, err := metrics.NewPrometheusObserver(metrics.DefaultNamespace, cfg.Metrics)
		if err != nil {
			return nil, errors.NewError("metrics", fmt.Errorf("%w: %w", errors.ErrConfiguration, err)).
				WithCode(errors.CodeInvalidConfig)
		}
		observer = joinObservers(observer, prom)
	}

	s := store.Limit(store.Instrument(backend, observer), cfg.MaxInFlight)

	var fs *localfs.FS
	absPaths := false
	if cfg.Filesystem != nil {
		fs = localfs.New(cfg.Filesystem)
	} else {
		fs = localfs.NewOSFS("/")
		absPaths = true
	}

	manager := sync.NewManager(s, fs, sync.Settings{
		Parallelism:      cfg.Parallelism,
		ChunkSize:        cfg.ChunkSize,
		ChunkParallelism: cfg.ChunkParallelism,
		RetryPolicy:      cfg.RetryPolicy,
		Observer:         observer,
		Logger:           cfg.Logger,
	})

	return &Client{
		store:    s,
		manager:  manager,
		logger:   cfg.Logger,
		absPaths: absPaths,
	}, nil
}

// Container returns the container the client writes to.
func (c *Client) Container() string {
	return c.store.Container()
}

// Close releases any resources held by the client.
// Currently a no-op but included for future extensibility.
func (c *Client) Close() error {
	return nil
}

// fanout forwards every event to each observer.
type fanout []synctypes.Observer

func joinObservers(observers ...synctypes.Observer) synctypes.Observer {
	var out fanout
	for _, o := range observers {
		if o != nil {
			out = append(out, o)
		}
	}
	switch len(out) {
	case 0:
		return nil
	case 1:
		return out[0]
	default:
		return out
	}
}

func (f fanout) ObserveOutcome(o *synctypes.Outcome) {
	for _, obs := range f {
		obs.ObserveOutcome(o)
	}
}

func (f fanout) ObserveOperation(op string, d time.Duration, err error) {
	for _, obs := range f {
		obs.ObserveOperation(op, d, err)
	}
}

func (f fanout) ObserveChunkRetry(key string) {
	for _, obs := range f {
		obs.ObserveChunkRetry(key)
	}
}
