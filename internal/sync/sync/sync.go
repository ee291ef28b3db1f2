package sync

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"mime"
	"path"
	gosync "sync"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gabriel-vasile/mimetype"
	"golang.org/x/sync/errgroup"

	"github.com/input-output-hk/catalyst-forge-libs/blobsync/errors"
	"github.com/input-output-hk/catalyst-forge-libs/blobsync/internal/localfs"
	"github.com/input-output-hk/catalyst-forge-libs/blobsync/internal/store"
	"github.com/input-output-hk/catalyst-forge-libs/blobsync/internal/sync/comparator"
	"github.com/input-output-hk/catalyst-forge-libs/blobsync/internal/sync/executor"
	"github.com/input-output-hk/catalyst-forge-libs/blobsync/internal/sync/fingerprint"
	"github.com/input-output-hk/catalyst-forge-libs/blobsync/internal/sync/metadata"
	"github.com/input-output-hk/catalyst-forge-libs/blobsync/internal/sync/planner"
	"github.com/input-output-hk/catalyst-forge-libs/blobsync/internal/sync/scanner"
	"github.com/input-output-hk/catalyst-forge-libs/blobsync/internal/transfer/multipart"
	"github.com/input-output-hk/catalyst-forge-libs/blobsync/synctypes"
)

// Manager coordinates sync runs against one container.
type Manager struct {
	store         store.Store
	fs            *localfs.FS
	scanner       *scanner.Scanner
	planner       *planner.Planner
	fingerprinter *fingerprint.Fingerprinter
	uploader      *multipart.Uploader
	recorder      *metadata.Recorder

	parallelism int
	observer    synctypes.Observer
	logger      *slog.Logger
}

// NewManager creates a sync manager writing to s and reading from fs.
func NewManager(s store.Store, fs *localfs.FS, settings Settings) *Manager {
	logger := settings.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	observer := settings.Observer
	if observer == nil {
		observer = synctypes.NopObserver{}
	}

	return &Manager{
		store:         s,
		fs:            fs,
		scanner:       scanner.NewScanner(fs, logger),
		planner:       planner.NewPlanner(),
		fingerprinter: fingerprint.New(fs, s, logger),
		uploader: multipart.NewUploader(s, multipart.Config{
			ChunkSize:   settings.ChunkSize,
			Parallelism: settings.ChunkParallelism,
			RetryPolicy: settings.RetryPolicy,
			Observer:    observer,
			Logger:      logger,
		}),
		recorder:    metadata.NewRecorder(s, logger),
		parallelism: settings.Parallelism,
		observer:    observer,
		logger:      logger.With("container", s.Container()),
	}
}

// Sync executes a complete run. The returned result holds one outcome per
// object key. When any file failed or has stale metadata the result is
// returned together with an error wrapping errors.ErrSyncIncomplete.
// Configuration problems and an unusable container abort the run before
// any file is processed and return a nil result.
func (sm *Manager) Sync(ctx context.Context, config *Config) (*synctypes.Result, error) {
	startTime := time.Now()

	if err := config.Validate(); err != nil {
		return nil, err
	}

	if err := sm.store.EnsureContainer(ctx); err != nil {
		return nil, errors.NewError("ensureContainer",
			fmt.Errorf("%w: %w", errors.ErrConfiguration, err)).
			WithContainer(sm.store.Container()).
			WithCode(errors.CodeInvalidConfig)
	}

	entries, err := sm.scan(ctx, config)
	if err != nil {
		return nil, err
	}

	jobs, conflicts := sm.planner.Plan(entries, config.Prefix)
	result := synctypes.NewResult()
	for _, c := range conflicts {
		o := &synctypes.Outcome{Key: c.Key, LocalPath: c.Paths[0], Status: synctypes.StatusFailed, Err: c.Err()}
		sm.logOutcome(o)
		sm.observer.ObserveOutcome(o)
		result.Add(o)
	}

	stats := sm.planner.GetStats(jobs)
	sm.logger.Info("sync started",
		"files", stats.Files,
		"size", humanize.Bytes(uint64(stats.Bytes)),
		"dry_run", config.DryRun)

	parallelism := config.Parallelism
	if parallelism <= 0 {
		parallelism = sm.parallelism
	}
	progress := &progress{tracker: config.ProgressTracker, total: stats.Bytes}

	var started gosync.Map
	outcomes := executor.NewExecutor(parallelism).Run(ctx, jobs, func(ctx context.Context, job *planner.Job) *synctypes.Outcome {
		started.Store(job.Key, struct{}{})
		o := sm.syncFile(ctx, config, job)
		progress.add(job.Size)
		return o
	})
	for _, o := range outcomes {
		if _, ok := started.Load(o.Key); !ok {
			sm.logOutcome(o)
			sm.observer.ObserveOutcome(o)
		}
		result.Add(o)
	}
	result.Duration = time.Since(startTime)

	sm.logger.Info("sync finished",
		"uploaded", result.FilesUploaded,
		"skipped", result.FilesSkipped,
		"failed", result.FilesFailed,
		"metadata_stale", result.FilesMetadataStale,
		"would_upload", result.FilesWouldUpload,
		"bytes", humanize.Bytes(uint64(result.BytesUploaded)),
		"duration", result.Duration)

	if !result.Succeeded() {
		err := errors.NewError("sync", fmt.Errorf("%w: %d failed, %d with stale metadata: %w",
			errors.ErrSyncIncomplete, result.FilesFailed, result.FilesMetadataStale,
			stderrors.Join(result.Errors()...))).
			WithContainer(sm.store.Container()).
			WithCode(errors.CodeExecutionFailed)
		progress.fail(err)
		return result, err
	}
	progress.complete()
	return result, nil
}

func (sm *Manager) scan(ctx context.Context, config *Config) ([]*scanner.Entry, error) {
	if config.Source != "" {
		return sm.scanner.ScanTree(ctx, config.Source, config.IncludePatterns, config.ExcludePatterns)
	}
	return sm.scanner.ScanFiles(ctx, config.Files)
}

// syncFile runs one file's pipeline: fingerprint, compare, upload, record.
func (sm *Manager) syncFile(ctx context.Context, config *Config, job *planner.Job) *synctypes.Outcome {
	start := time.Now()
	o := &synctypes.Outcome{Key: job.Key, LocalPath: job.LocalPath, Size: job.Size}
	finish := func(status synctypes.Status, err error) *synctypes.Outcome {
		o.Status = status
		o.Err = err
		o.Duration = time.Since(start)
		sm.logOutcome(o)
		sm.observer.ObserveOutcome(o)
		return o
	}

	local, remote, err := sm.fingerprints(ctx, config, job)
	if err != nil {
		return finish(synctypes.StatusFailed, err)
	}
	o.Size = local.Length
	o.Digest = local.Digest
	o.Verdict = comparator.Compare(remote, local)

	if !o.Verdict.RequiresUpload() {
		return finish(synctypes.StatusSkipped, nil)
	}
	if config.DryRun {
		return finish(synctypes.StatusWouldUpload, nil)
	}

	file, err := sm.fs.Open(job.LocalPath)
	if err != nil {
		return finish(synctypes.StatusFailed, errors.NewError("open", err).WithKey(job.Key))
	}
	defer file.Close()

	props := synctypes.Properties{ContentType: config.ContentType, ContentEncoding: config.ContentEncoding}
	if props.ContentType == "" {
		props.ContentType = detectContentType(job.Key, file)
	}

	if err := sm.uploader.UploadReaderAt(ctx, job.Key, file, local.Length, props); err != nil {
		return finish(synctypes.StatusFailed, err)
	}
	if err := sm.recorder.Record(ctx, job.Key, local, job.ModTime, props); err != nil {
		return finish(synctypes.StatusMetadataStale, err)
	}
	return finish(synctypes.StatusUploaded, nil)
}

// fingerprints returns the local and remote fingerprints of job. With quick
// check the remote side is fetched first and the local file is not read when
// the remote attributes already prove the content.
func (sm *Manager) fingerprints(
	ctx context.Context,
	config *Config,
	job *planner.Job,
) (synctypes.ContentInfo, synctypes.ContentInfo, error) {
	if config.QuickCheck {
		remote, attrs, err := sm.fingerprinter.Remote(ctx, job.Key)
		if err != nil {
			return synctypes.ContentInfo{}, synctypes.ContentInfo{}, err
		}
		if comparator.QuickCheck(attrs, job.Size, job.ModTime) {
			sm.logger.Debug("quick check matched", "key", job.Key)
			return remote, remote, nil
		}
		local, err := sm.fingerprinter.Local(job.LocalPath)
		return local, remote, err
	}

	var local, remote synctypes.ContentInfo
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		local, err = sm.fingerprinter.Local(job.LocalPath)
		return err
	})
	g.Go(func() error {
		var err error
		remote, _, err = sm.fingerprinter.Remote(gctx, job.Key)
		return err
	})
	if err := g.Wait(); err != nil {
		return synctypes.ContentInfo{}, synctypes.ContentInfo{}, err
	}
	return local, remote, nil
}

// detectContentType resolves a MIME type from the key's extension and
// falls back to sniffing the content.
func detectContentType(key string, file localfs.File) string {
	if t := mime.TypeByExtension(path.Ext(key)); t != "" {
		return t
	}
	mt, err := mimetype.DetectReader(file)
	if err != nil {
		return "application/octet-stream"
	}
	return mt.String()
}

func (sm *Manager) logOutcome(o *synctypes.Outcome) {
	attrs := []any{
		"key", o.Key,
		"status", string(o.Status),
		"size", humanize.Bytes(uint64(max(o.Size, 0))),
		"duration", o.Duration,
	}
	switch o.Status {
	case synctypes.StatusUploaded:
		sm.logger.Info("uploaded", append(attrs, "verdict", o.Verdict.String())...)
	case synctypes.StatusMetadataStale:
		sm.logger.Warn("uploaded with stale metadata", append(attrs, "error", o.Err)...)
	case synctypes.StatusFailed:
		sm.logger.Error("sync failed", append(attrs, "error", o.Err)...)
	default:
		sm.logger.Debug("compared", append(attrs, "verdict", o.Verdict.String())...)
	}
}

// progress reports cumulative processed bytes to an optional tracker.
type progress struct {
	tracker synctypes.ProgressTracker
	total   int64
	done    atomic.Int64
}

func (p *progress) add(n int64) {
	done := p.done.Add(n)
	if p.tracker != nil {
		p.tracker.Update(done, p.total)
	}
}

func (p *progress) complete() {
	if p.tracker != nil {
		p.tracker.Complete()
	}
}

func (p *progress) fail(err error) {
	if p.tracker != nil {
		p.tracker.Error(err)
	}
}
