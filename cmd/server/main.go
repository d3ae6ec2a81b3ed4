package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"rnp-recruitment/internal/app"
	"rnp-recruitment/internal/platform/config"
	"rnp-recruitment/internal/platform/httpserver"
	"rnp-recruitment/internal/platform/logger"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal services packages.
func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Log)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	portal, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Error("failed to start recruitment portal", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := portal.Close(); err != nil {
			log.Warn("error while closing resources", "error", err)
		}
	}()

	srv := httpserver.New(cfg.Server.Addr, portal.Router)
	log.Info("starting rnp-recruitment", "addr", cfg.Server.Addr, "store_backend", cfg.Store.Backend)
	if err := httpserver.Run(ctx, srv, cfg.Server.ShutdownTimeout, log); err != nil {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}
