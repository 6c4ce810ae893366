package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/quietmark/quietmark/server/internal/alerts"
	"github.com/quietmark/quietmark/server/internal/api"
	"github.com/quietmark/quietmark/server/internal/auth"
	"github.com/quietmark/quietmark/server/internal/config"
	"github.com/quietmark/quietmark/server/internal/metrics"
	"github.com/quietmark/quietmark/server/internal/store"
	"github.com/quietmark/quietmark/server/internal/ws"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	slog.Info("quietmark-server starting", "config", *configPath)

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}

	slog.Info("config loaded",
		"http_port", cfg.Server.HTTPPort,
		"auth_mode", cfg.Server.Auth.Mode,
		"record_ttl", cfg.Server.Records.TTL,
		"alert_rules", len(cfg.Server.Alerts.Rules),
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Audit record store with background TTL eviction.
	st := store.New(cfg.Server.Records.TTL)
	go st.Run(ctx)

	// Alerts engine — evaluates rules on every ingested audit record.
	alertEngine := alerts.New(cfg.Server.Alerts)

	// WebSocket hub — pushes audit snapshots to dashboard clients.
	hub := ws.New(st, alertEngine, 5*time.Second)
	go hub.Run(ctx)

	reg := metrics.New()
	reg.RegisterGaugeFunc("quietmark_ws_clients",
		"WebSocket dashboard clients currently connected.",
		func() float64 { return float64(hub.Count()) })
	reg.RegisterGaugeFunc("quietmark_active_alerts",
		"Alert rules currently firing.",
		func() float64 { return float64(len(alertEngine.Active())) })

	authMW := auth.APIKey(
		cfg.Server.Auth.Mode,
		cfg.Server.Auth.EffectiveHeader(),
		cfg.Server.Auth.Key(),
	)

	// Combined HTTP server: REST API + /metrics + WebSocket hub on one port.
	mux := http.NewServeMux()
	mux.Handle("/", api.New(st, alertEngine, reg, authMW))
	mux.Handle("/ws/stream", hub)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler: mux,
	}
	go func() {
		slog.Info("HTTP server listening", "port", cfg.Server.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server stopped", "err", err)
		}
	}()

	<-ctx.Done()
	slog.Info("quietmark-server shutting down")
	srv.Shutdown(context.Background()) //nolint:errcheck
}
