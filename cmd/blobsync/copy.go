package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/input-output-hk/catalyst-forge-libs/blobsync"
	"github.com/input-output-hk/catalyst-forge-libs/blobsync/synctypes"
)

func newCopyCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "copy FILE...",
		Short: "Upload an explicit list of files keyed by base name",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, func(ctx context.Context, c *blobsync.Client, opts ...synctypes.SyncOption) (*synctypes.Result, error) {
				return c.SyncFiles(ctx, args, opts...)
			})
		},
	}
}
