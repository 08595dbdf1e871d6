package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/radutopala/toolcatalog/internal/catalog"
	"github.com/radutopala/toolcatalog/internal/publish"
)

func newPublishCmd(opts *rootOptions) *cobra.Command {
	var outDir string
	var gzip, watch, timestamp bool

	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Write the static JSON API and browser data module",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := opts.cfg
			if cmd.Flags().Changed("out") {
				cfg.Publish.OutDir = outDir
			}
			if cmd.Flags().Changed("gzip") {
				cfg.Publish.Gzip = gzip
			}

			ctx, cancel := signalAwareContext(cmd.Context())
			defer cancel()

			cat, err := loadCatalog(ctx, opts)
			if err != nil {
				return err
			}

			newPublisher := func() *publish.Publisher {
				pubOpts := publish.Options{
					OutDir: cfg.Publish.OutDir,
					Gzip:   cfg.Publish.Gzip,
					Logger: opts.logger,
				}
				if timestamp {
					pubOpts.Updated = time.Now()
				}
				return publish.New(pubOpts)
			}

			snap := cat.Snapshot()
			if _, err := newPublisher().Publish(ctx, snap.Index); err != nil {
				return err
			}
			if !watch {
				return nil
			}

			cat.OnUpdate(func(ctx context.Context, snap *catalog.Snapshot) {
				if _, err := newPublisher().Publish(ctx, snap.Index); err != nil {
					opts.logger.Error("republish failed", zap.Uint64("revision", snap.Revision), zap.Error(err))
				}
			})
			return cat.Watch(ctx)
		},
	}
	cmd.Flags().StringVar(&outDir, "out", "", "output directory (default publish.outDir)")
	cmd.Flags().BoolVar(&gzip, "gzip", false, "also write .gz siblings")
	cmd.Flags().BoolVar(&watch, "watch", false, "republish whenever records change")
	cmd.Flags().BoolVar(&timestamp, "timestamp", false, "record the publish time in projects.json")
	return cmd
}
