package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/matsen/citegraph/internal/app"
	"github.com/matsen/citegraph/internal/webui"
)

// ShutdownTimeout bounds graceful shutdown of cg serve.
const ShutdownTimeout = 10 * time.Second

var serveListen string

func init() {
	serveCmd.Flags().StringVarP(&serveListen, "listen", "l", "", "Listen address (default from config)")
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the interactive viewer in the browser",
	Long: `Serve the interactive citation graph viewer. The page drives the viewer
through UI event endpoints; requests under /api/ are forwarded to the
backend. Prometheus metrics are exposed at /metrics.

Examples:
  cg serve
  cg serve --listen :8080 --server http://graph.internal:5000`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := mustLoadConfig()
	if serveListen != "" {
		cfg.Listen = serveListen
	}
	logger := newLogger()
	defer logger.Sync()

	db := mustOpenCache(cfg)
	defer db.Close()
	ctrl := mustNewController(cfg, logger, db)
	defer ctrl.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// The viewer still starts when the backend is down; the page shows
	// the failure and can retry with Reload.
	if err := ctrl.Reload(ctx); err != nil {
		logger.Warn("initial graph load failed", zap.Error(err))
	}
	pruneCache(ctx, db, cfg.KeepSnapshots, logger)

	server, err := webui.NewServer(ctrl, cfg.Server, webui.WithLogger(logger.Named("http")))
	if err != nil {
		exitWithError(ExitConfigError, "%v", err)
	}

	httpServer := &http.Server{
		Addr:              cfg.Listen,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go server.Animate(ctx, app.DefaultFrame)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("serving viewer", zap.String("addr", cfg.Listen), zap.String("backend", cfg.Server))
		errCh <- httpServer.ListenAndServe()
	}()

	if humanOutput {
		fmt.Printf("%s http://%s\n", headerStyle.Sprint("Viewer at"), cfg.Listen)
	} else {
		outputJSON(map[string]string{"status": "serving", "listen": cfg.Listen, "backend": cfg.Server})
	}

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			exitWithError(ExitError, "serving: %v", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	logger.Info("viewer stopped")
	return nil
}
