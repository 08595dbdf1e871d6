package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/radutopala/toolcatalog/internal/config"
	"github.com/radutopala/toolcatalog/internal/logging"
)

// rootOptions holds the persistent flags and the state built from them
// before any subcommand runs.
type rootOptions struct {
	configPath string
	records    string
	logLevel   string

	cfg    config.Config
	logger *zap.Logger
}

// silentError marks failures whose details were already written to stdout.
type silentError struct {
	err error
}

func (e silentError) Error() string { return e.err.Error() }

func main() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		var silent silentError
		if !errors.As(err, &silent) {
			fmt.Fprintln(os.Stderr, "error:", err)
		}
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{logger: zap.NewNop()}

	root := &cobra.Command{
		Use:           "toolcatalog",
		Short:         "Index, query, publish and serve a catalog of developer tools",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}
			if opts.records != "" {
				cfg.Records = opts.records
			}
			if opts.logLevel != "" {
				cfg.Log.Level = opts.logLevel
			}
			logger, err := logging.New(cfg.Log.Level, cfg.Log.File)
			if err != nil {
				return err
			}
			opts.cfg = cfg
			opts.logger = logger
			if cfg.File != "" {
				logger.Debug("config loaded", zap.String("path", cfg.File))
			}
			return nil
		},
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			_ = opts.logger.Sync()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "path to config file (default $"+config.PathEnv+" or "+config.DefaultPath+")")
	flags.StringVar(&opts.records, "records", "", "record directory or bundle file (overrides config)")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn, error")

	root.AddCommand(
		newServeCmd(opts),
		newPublishCmd(opts),
		newValidateCmd(opts),
		newListCmd(opts),
		newSearchCmd(opts),
		newGetCmd(opts),
		newCategoriesCmd(opts),
		newQueryCmd(opts),
	)
	return root
}

func signalAwareContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		defer signal.Stop(signals)
		select {
		case <-signals:
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}
