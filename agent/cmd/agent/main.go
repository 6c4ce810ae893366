package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/quietmark/quietmark/agent/internal/config"
	"github.com/quietmark/quietmark/agent/internal/shipper"
	"github.com/quietmark/quietmark/agent/internal/spool"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	slog.Info("quietmark-agent starting", "config", *configPath)

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}
	slog.Info("config loaded",
		"server_endpoint", cfg.Agent.ServerEndpoint,
		"spool_dir", cfg.Agent.SpoolDir,
		"buffer_size", cfg.Agent.BufferSize,
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Watch config file for hot-reload. Reconfiguring the spool dir
	// requires a restart; reloads are logged so drift is visible.
	go func() {
		if err := config.Watch(ctx, *configPath, func(updated *config.Config) {
			slog.Info("config hot-reloaded", "spool_dir", updated.Agent.SpoolDir)
		}); err != nil {
			slog.Error("config watcher stopped", "err", err)
		}
	}()

	// Shipper delivers audit records to the server until ctx is cancelled.
	ship := shipper.New(cfg.Agent)
	go ship.Run(ctx)

	// Spool watcher: audit every trace export dropped into the directory.
	proc := spool.New(ship.Ship)
	if err := proc.Run(ctx, cfg.Agent.SpoolDir); err != nil {
		slog.Error("spool watcher stopped", "err", err)
		os.Exit(1)
	}

	slog.Info("quietmark-agent shutting down")
}
