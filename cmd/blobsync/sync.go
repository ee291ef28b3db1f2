package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/input-output-hk/catalyst-forge-libs/blobsync"
	"github.com/input-output-hk/catalyst-forge-libs/blobsync/errors"
	"github.com/input-output-hk/catalyst-forge-libs/blobsync/synctypes"
)

func newSyncCmd(a *app) *cobra.Command {
	var include, exclude []string

	cmd := &cobra.Command{
		Use:   "sync DIR",
		Short: "Sync a directory tree into the container",
		Long: `Sync uploads every regular file under DIR whose remote copy is missing
or differs. Keys are paths relative to DIR, under --destination when set.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			source := a.v.GetString("source")
			if len(args) == 1 {
				source = args[0]
			}
			if source == "" {
				return errors.NewConfigError("a source directory is required")
			}
			return a.run(cmd, func(ctx context.Context, c *blobsync.Client, opts ...synctypes.SyncOption) (*synctypes.Result, error) {
				return c.Sync(ctx, source, opts...)
			}, blobsync.WithIncludePatterns(include...), blobsync.WithExcludePatterns(exclude...))
		},
	}

	cmd.Flags().StringP("source", "s", "", "source directory (alternative to the DIR argument)")
	cmd.Flags().StringSliceVarP(&include, "include", "i", nil, "only sync files matching these glob patterns")
	cmd.Flags().StringSliceVarP(&exclude, "exclude", "x", nil, "skip files matching these glob patterns")
	return cmd
}
