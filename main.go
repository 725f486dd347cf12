// Command safespace runs the SafeSpace chat server: REST API, realtime
// WebSocket endpoint and the moderation pipeline in one process.
//
// Wire-up order:
//  1. config and logger
//  2. database and repositories
//  3. rate limiter backend
//  4. hub and services
//  5. handlers, routes, HTTP server
//  6. graceful shutdown
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/akinalp/safespace/config"
	"github.com/akinalp/safespace/pkg/logger"
	"github.com/akinalp/safespace/ws"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// No logger yet.
		_, _ = os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	log, err := logger.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		_, _ = os.Stderr.WriteString("failed to build logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Fatal("server exited", zap.Error(err))
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	mainLog := log.Named("main")
	mainLog.Info("safespace server starting", zap.Int("port", cfg.Server.Port), zap.String("driver", cfg.Database.Driver))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repos, err := initRepositories(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := repos.Close(closeCtx); err != nil {
			mainLog.Warn("failed to close database", zap.Error(err))
		}
	}()

	// Nobody is connected before the listener opens.
	if err := repos.User.ResetPresence(ctx); err != nil {
		return err
	}

	infra, err := initInfra(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer infra.Close()

	hub := ws.NewHub(log)

	svcs, err := initServices(ctx, cfg, repos, hub, log)
	if err != nil {
		return err
	}
	registerHubHandler(hub, svcs, repos.User, log)

	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()
	go hub.Run(hubCtx)

	if svcs.Sweeper != nil {
		go svcs.Sweeper.Run(hubCtx)
	}

	h := initHandlers(cfg, svcs, repos, infra, hub, log)

	srv := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           initRoutes(cfg, h, log),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		mainLog.Info("server listening", zap.String("addr", cfg.Server.Addr()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}

	mainLog.Info("shutting down")

	// Close sockets first so clients see the server going away, then drain
	// in-flight requests.
	hub.Shutdown()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	mainLog.Info("server stopped gracefully")
	return nil
}
