package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/radutopala/toolcatalog/internal/catalog"
	"github.com/radutopala/toolcatalog/internal/config"
	"github.com/radutopala/toolcatalog/internal/loader"
	catalogmcp "github.com/radutopala/toolcatalog/internal/mcp"
	"github.com/radutopala/toolcatalog/internal/telemetry"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var transport, httpAddress string
	var watch bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the catalog over MCP (stdio or streamable HTTP)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := opts.cfg
			if cmd.Flags().Changed("transport") {
				cfg.Server.Transport = transport
			}
			if cmd.Flags().Changed("http-address") {
				cfg.Server.HTTPAddress = httpAddress
			}
			if cmd.Flags().Changed("watch") {
				cfg.Watch.Enabled = watch
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			ctx, cancel := signalAwareContext(cmd.Context())
			defer cancel()
			return serve(ctx, cfg, opts.logger)
		},
	}
	cmd.Flags().StringVar(&transport, "transport", config.TransportStdio, "transport: stdio or http")
	cmd.Flags().StringVar(&httpAddress, "http-address", "", "listen address for the http transport")
	cmd.Flags().BoolVar(&watch, "watch", false, "rebuild the index when records change")
	return cmd
}

func serve(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	source, err := loader.New(cfg.Records)
	if err != nil {
		return err
	}

	var metrics telemetry.Metrics = telemetry.NewNoopMetrics()
	registry := prometheus.NewRegistry()
	if cfg.Metrics.ListenAddress != "" {
		metrics = telemetry.NewPrometheusMetrics(registry)
	}

	cat := catalog.New(source, catalog.Options{
		Logger:   logger,
		Metrics:  metrics,
		Debounce: cfg.Watch.Debounce,
	})

	errs := make(chan error, 3)

	if cfg.Metrics.ListenAddress != "" {
		go func() {
			err := telemetry.StartHTTPServer(ctx, telemetry.HTTPServerOptions{
				Addr:     cfg.Metrics.ListenAddress,
				Registry: registry,
				Ready:    cat.Ready,
			}, logger)
			if err != nil {
				errs <- err
			}
		}()
	}

	// The server starts answering immediately; calls wait for this first
	// load. A failed initial build stops the process.
	go func() {
		if err := cat.Reload(ctx); err != nil {
			errs <- fmt.Errorf("initial load: %w", err)
			return
		}
		if !cfg.Watch.Enabled {
			return
		}
		if err := cat.Watch(ctx); err != nil && !errors.Is(err, catalog.ErrNotWatchable) {
			errs <- fmt.Errorf("watch: %w", err)
		}
	}()

	server := catalogmcp.NewCatalogServer(cat, catalogmcp.Options{
		Name:        cfg.Server.Name,
		Version:     cfg.Server.Version,
		ListLimit:   cfg.Limits.List,
		SearchLimit: cfg.Limits.Search,
		Logger:      logger,
		Metrics:     metrics,
	})

	go func() {
		logger.Info("starting catalog server",
			zap.String("name", cfg.Server.Name),
			zap.String("version", cfg.Server.Version),
			zap.String("transport", cfg.Server.Transport),
			zap.String("records", cfg.Records),
		)
		var err error
		switch cfg.Server.Transport {
		case config.TransportHTTP:
			err = server.ServeHTTP(ctx, cfg.Server.HTTPAddress)
		default:
			err = server.Run(ctx, &mcp.StdioTransport{})
		}
		errs <- err
	}()

	select {
	case err := <-errs:
		if err != nil {
			logger.Error("catalog server stopped", zap.Error(err))
		} else {
			logger.Info("catalog server finished")
		}
		return err
	case <-ctx.Done():
		logger.Info("catalog server shutting down")
		return nil
	}
}
