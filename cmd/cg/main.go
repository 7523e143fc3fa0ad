// Package main provides the cg CLI entry point.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/matsen/citegraph/internal/api"
	"github.com/matsen/citegraph/internal/app"
	"github.com/matsen/citegraph/internal/config"
	"github.com/matsen/citegraph/internal/notify"
	"github.com/matsen/citegraph/internal/state"
	"github.com/matsen/citegraph/internal/storage"
)

// Version is set at build time via ldflags
var Version = "dev"

var (
	humanOutput bool
	verbose     bool
	configPath  string
	serverFlag  string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(ExitError)
	}
}

var rootCmd = &cobra.Command{
	Use:   "cg",
	Short: "Citation graph viewer",
	Long: `cg renders and explores a citation graph served by a citation
backend.

Core features:
  - Force-directed and circular layouts rendered to SVG or HTML
  - Interactive viewer in the browser (cg serve)
  - Add papers and upload CSV/JSON bibliographies
  - Author, citation and influence queries
  - Local snapshot cache for offline rendering

All commands output JSON by default; use --human for readable text.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&humanOutput, "human", false, "Use human-readable output instead of JSON")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log debug output to stderr")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: "+config.Path()+")")
	rootCmd.PersistentFlags().StringVar(&serverFlag, "server", "", "Backend URL (overrides config)")
	rootCmd.Version = Version
}

// mustLoadConfig loads configuration, exits on error.
func mustLoadConfig() *config.Config {
	path := configPath
	if path == "" {
		path = config.Path()
	}
	cfg, err := config.Load(path)
	if err != nil {
		exitWithError(ExitConfigError, "loading config: %v", err)
	}
	if serverFlag != "" {
		cfg.Server = serverFlag
		if err := cfg.Validate(); err != nil {
			exitWithError(ExitConfigError, "%v", err)
		}
	}
	return cfg
}

// newLogger builds the CLI logger: warnings only, or everything with --verbose.
func newLogger() *zap.Logger {
	if verbose {
		logger, err := zap.NewDevelopment()
		if err == nil {
			return logger
		}
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

func newClient(cfg *config.Config, logger *zap.Logger) *api.Client {
	return api.NewClient(cfg.Server,
		api.WithTimeout(cfg.Timeout),
		api.WithRateLimit(cfg.RateLimit),
		api.WithLogger(logger.Named("api")),
	)
}

// mustOpenCache opens the snapshot cache, exits on error.
// The caller is responsible for calling Close() on the returned DB.
func mustOpenCache(cfg *config.Config) *storage.DB {
	db, err := storage.OpenDB(cfg.CacheDB)
	if err != nil {
		exitWithError(ExitError, "opening snapshot cache: %v", err)
	}
	db.SetSource(cfg.Server)
	return db
}

// mustNewController builds a controller sized and styled from cfg. A
// non-nil sink receives every graph a reload applies.
func mustNewController(cfg *config.Config, logger *zap.Logger, sink state.SnapshotSink) *app.Controller {
	opts := app.Options{
		Width:      cfg.Width,
		Height:     cfg.Height,
		Layout:     state.Layout(cfg.Layout),
		ShowLabels: cfg.ShowLabels,
		Sink:       sink,
		Notifier:   notify.New(notify.WithLogger(logger.Named("notify"))),
		Logger:     logger,
	}
	ctrl, err := app.New(newClient(cfg, logger), opts)
	if err != nil {
		exitWithError(ExitConfigError, "creating viewer: %v", err)
	}
	return ctrl
}

// exitOnRequestError exits with the code matching a backend call failure,
// using the user-facing message the viewer showed for it.
func exitOnRequestError(err error, message string) {
	if err == nil {
		return
	}
	if message == "" {
		message = err.Error()
	}
	exitWithError(exitCodeFor(err), "%s", message)
}

func exitCodeFor(err error) int {
	switch {
	case err == nil:
		return ExitSuccess
	case api.IsNotFound(err), errors.Is(err, storage.ErrNoSnapshot):
		return ExitNotFound
	case api.IsAPIError(err):
		return ExitAPIError
	case errors.Is(err, api.ErrNetwork), errors.Is(err, api.ErrInvalidResponse),
		errors.Is(err, context.DeadlineExceeded):
		return ExitNetworkError
	default:
		return ExitDataError
	}
}
