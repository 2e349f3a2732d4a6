package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/intraceai/archive-viewer/internal/api"
	"github.com/intraceai/archive-viewer/internal/config"
	"github.com/intraceai/archive-viewer/internal/export"
	"github.com/intraceai/archive-viewer/internal/logger"
	"github.com/intraceai/archive-viewer/internal/renderer"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(stdout, stderr io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the archive viewer web server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if addr, _ := cmd.Flags().GetString("listen"); addr != "" {
				cfg.Server.ListenAddr = addr
			}

			level, _ := config.ParseLevel(cfg.Log.Level)
			log := logger.Init(stderr, level)

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return serve(ctx, cfg, log)
		},
	}
	cmd.Flags().String("listen", "", "Listen address (overrides LISTEN_ADDR)")
	return cmd
}

func serve(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	gin.SetMode(gin.ReleaseMode)

	client := newClient(cfg)
	snapshots, rdb := newCache(cfg)
	if rdb != nil {
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Warn("redis unreachable, cache lookups will miss", "addr", cfg.Redis.Addr, "error", err)
		}
	}

	jobs := export.NewJobs(export.NewWorkflow(export.WithStepDelay(cfg.Export.StepDelay)), cfg.Export.TTL)
	jobs.Start(ctx)
	defer jobs.Stop()

	server := api.NewServer(api.ServerConfig{
		Backend:     client,
		Cache:       snapshots,
		Jobs:        jobs,
		Renderer:    renderer.New(cfg.Server.SandboxURL),
		BackendURL:  client.BaseURL(),
		AllowDelete: cfg.Server.AllowDelete,
		Logger:      log,
	})

	servers := []*http.Server{{Addr: cfg.Server.ListenAddr, Handler: server.Handler()}}
	if cfg.Server.SandboxAddr != "" {
		servers = append(servers, &http.Server{Addr: cfg.Server.SandboxAddr, Handler: server.SandboxHandler()})
	}

	errCh := make(chan error, len(servers))
	for _, srv := range servers {
		go func(srv *http.Server) {
			log.Info("starting archive-viewer server", "addr", srv.Addr, "backend", client.BaseURL(),
				"stale_time", snapshots.Policy().StaleTime, "retry", snapshots.Policy().Retry)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("server %s: %w", srv.Addr, err)
			}
		}(srv)
	}

	var runErr error
	select {
	case <-ctx.Done():
		log.Info("shutting down...")
	case runErr = <-errCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	for _, srv := range servers {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("shutdown failed", "addr", srv.Addr, "error", err)
		}
	}
	return runErr
}
