package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/input-output-hk/catalyst-forge-libs/blobsync"
	"github.com/input-output-hk/catalyst-forge-libs/blobsync/errors"
	"github.com/input-output-hk/catalyst-forge-libs/blobsync/synctypes"
)

// settings are the resolved flag, environment and config file values.
type settings struct {
	Container        string
	Credentials      string
	Backend          string
	Parallelism      int
	ChunkSize        int64
	ChunkParallelism int
	MaxInFlight      int
	ContentType      string
	ContentEncoding  string
	Destination      string
	QuickCheck       bool
	DryRun           bool
	MetricsFile      string
}

type clientFactory func(ctx context.Context, s *settings, opts ...synctypes.Option) (*blobsync.Client, error)

// app carries process-wide dependencies into the commands.
type app struct {
	logger    *slog.Logger
	level     *slog.LevelVar
	newClient clientFactory
	v         *viper.Viper
}

func newClient(ctx context.Context, s *settings, opts ...synctypes.Option) (*blobsync.Client, error) {
	return blobsync.NewFromFile(ctx, s.Container, s.Credentials, opts...)
}

func newRootCmd(a *app) *cobra.Command {
	a.v = viper.New()

	cmd := &cobra.Command{
		Use:   "blobsync",
		Short: "Upload local files to an object store container, skipping unchanged ones",
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.loadConfig(cmd)
		},
	}

	flags := cmd.PersistentFlags()
	flags.SortFlags = false
	flags.String("config", "", "config file (yaml, json or toml)")
	flags.StringP("container", "b", "", "destination container (bucket) name")
	flags.StringP("credentials", "k", "", "path to the credentials file")
	flags.String("backend", string(synctypes.BackendS3), "store backend: s3 or minio")
	flags.StringP("destination", "d", "", "destination folder prefixed to every key")
	flags.String("content-type", "", "content type for every file (detected when empty)")
	flags.String("content-encoding", "", "content encoding for every file")
	flags.IntP("parallelism", "p", 5, "files processed concurrently")
	flags.String("chunk-size", "8MiB", "chunk size for large files")
	flags.Int("chunk-parallelism", 4, "chunks of one file in flight")
	flags.Int("max-in-flight", 0, "store operations in flight across all files (0 derives it)")
	flags.Bool("quick-check", false, "trust the remote digest when size and LastModified match")
	flags.Bool("dry-run", false, "compare only, upload nothing")
	flags.String("metrics-file", "", "write Prometheus metrics to this file after the run")
	flags.BoolP("verbose", "v", false, "debug logging")

	cmd.AddCommand(newSyncCmd(a), newCopyCmd(a))
	return cmd
}

// loadConfig binds flags, BLOBSYNC_ environment variables and an optional
// config file into the app's viper instance.
func (a *app) loadConfig(cmd *cobra.Command) error {
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		a.v.SetConfigFile(path)
		if err := a.v.ReadInConfig(); err != nil {
			return errors.NewConfigError(fmt.Sprintf("read config %s: %v", path, err))
		}
	}
	if err := a.v.BindPFlags(cmd.Flags()); err != nil {
		return err
	}
	a.v.SetEnvPrefix("BLOBSYNC")
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.v.AutomaticEnv()

	if a.v.GetBool("verbose") && a.level != nil {
		a.level.Set(slog.LevelDebug)
	}
	return nil
}

func (a *app) settings() (*settings, error) {
	s := &settings{
		Container:        a.v.GetString("container"),
		Credentials:      a.v.GetString("credentials"),
		Backend:          a.v.GetString("backend"),
		Parallelism:      a.v.GetInt("parallelism"),
		ChunkParallelism: a.v.GetInt("chunk-parallelism"),
		MaxInFlight:      a.v.GetInt("max-in-flight"),
		ContentType:      a.v.GetString("content-type"),
		ContentEncoding:  a.v.GetString("content-encoding"),
		Destination:      a.v.GetString("destination"),
		QuickCheck:       a.v.GetBool("quick-check"),
		DryRun:           a.v.GetBool("dry-run"),
		MetricsFile:      a.v.GetString("metrics-file"),
	}
	if s.Container == "" {
		return nil, errors.NewConfigError("--container is required")
	}
	if s.Credentials == "" {
		return nil, errors.NewConfigError("--credentials is required")
	}

	size, err := humanize.ParseBytes(a.v.GetString("chunk-size"))
	if err != nil {
		return nil, errors.NewConfigError(fmt.Sprintf("invalid --chunk-size: %v", err))
	}
	s.ChunkSize = int64(size)
	return s, nil
}

// run builds a client and executes one sync, then reports the outcome.
func (a *app) run(
	cmd *cobra.Command,
	do func(ctx context.Context, c *blobsync.Client, opts ...synctypes.SyncOption) (*synctypes.Result, error),
	extra ...synctypes.SyncOption,
) error {
	s, err := a.settings()
	if err != nil {
		return err
	}
	cmd.SilenceUsage = true

	registry := prometheus.NewRegistry()
	opts := []synctypes.Option{
		blobsync.WithBackend(synctypes.Backend(s.Backend)),
		blobsync.WithParallelism(s.Parallelism),
		blobsync.WithChunkSize(s.ChunkSize),
		blobsync.WithChunkParallelism(s.ChunkParallelism),
		blobsync.WithLogger(a.logger),
	}
	if s.MaxInFlight != 0 {
		opts = append(opts, blobsync.WithMaxInFlight(s.MaxInFlight))
	}
	if s.MetricsFile != "" {
		opts = append(opts, blobsync.WithMetrics(registry))
	}

	ctx := cmd.Context()
	client, err := a.newClient(ctx, s, opts...)
	if err != nil {
		return err
	}
	defer client.Close()

	syncOpts := append([]synctypes.SyncOption{
		blobsync.WithContentType(s.ContentType),
		blobsync.WithContentEncoding(s.ContentEncoding),
		blobsync.WithDestinationFolder(s.Destination),
		blobsync.WithQuickCheck(s.QuickCheck),
		blobsync.WithDryRun(s.DryRun),
	}, extra...)

	result, runErr := do(ctx, client, syncOpts...)
	if result != nil {
		printSummary(cmd, client.Container(), result)
	}
	if s.MetricsFile != "" {
		if err := prometheus.WriteToTextfile(s.MetricsFile, registry); err != nil {
			a.logger.Error("writing metrics file", "path", s.MetricsFile, "error", err)
			runErr = stderrors.Join(runErr, err)
		}
	}
	return runErr
}

func printSummary(cmd *cobra.Command, container string, r *synctypes.Result) {
	out := cmd.OutOrStdout()
	for _, key := range r.Keys() {
		o := r.Outcomes[key]
		if o.Err != nil {
			fmt.Fprintf(out, "%-14s %s: %v\n", o.Status, key, o.Err)
			continue
		}
		fmt.Fprintf(out, "%-14s %s\n", o.Status, key)
	}
	fmt.Fprintf(out, "%s: %d uploaded (%s), %d skipped, %d would upload, %d metadata stale, %d failed in %s\n",
		container,
		r.FilesUploaded, humanize.Bytes(uint64(r.BytesUploaded)),
		r.FilesSkipped, r.FilesWouldUpload, r.FilesMetadataStale, r.FilesFailed,
		r.Duration.Round(time.Millisecond))
}
