package cmd

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
	"golang.org/x/sync/errgroup"

	"github.com/o0olele/breadcrumbs-go/server"
	"github.com/o0olele/breadcrumbs-go/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the session API over HTTP",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	storeCfg := store.DefaultConfig(cfg.Persistence.Path)
	storeCfg.InMemory = cfg.Persistence.InMemory
	storeCfg.Logger = logger
	trails, err := store.Open(storeCfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := trails.Close(); err != nil {
			logger.Warn("Failed to close trail store", zap.Error(err))
		}
	}()

	srv := server.New(server.Config{
		MaxSessions:    cfg.Server.MaxSessions,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	}, cfg.RouteOptions(), trails, logger)

	httpServer := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Server starting", zap.String("addr", cfg.Server.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		err := httpServer.Shutdown(shutdownCtx)
		if cerr := srv.Close(); cerr != nil {
			logger.Warn("Failed to save sessions", zap.Error(cerr))
		}
		return err
	})
	return g.Wait()
}
