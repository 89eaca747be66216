// Package main is the relayd binary: the websocket hub that carries
// inter-engine traffic for a multi-engine cluster.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/driftwood-mud/engine/internal/bus/relay"
	"github.com/driftwood-mud/engine/internal/config"
	"github.com/driftwood-mud/engine/internal/observability"
	"github.com/driftwood-mud/engine/internal/server"
)

func main() {
	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	addr := flag.String("addr", "0.0.0.0:9190", "listen address")
	path := flag.String("path", "/bus", "websocket endpoint path")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	hub := relay.New(logger)

	mux := http.NewServeMux()
	mux.Handle(*path, hub)
	srv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lifecycle := server.NewLifecycle(logger)
	lifecycle.Add(&server.FuncService{
		ServiceName: "relay",
		RunFn: func(ctx context.Context) error {
			logger.Info("relay listening",
				zap.String("addr", *addr),
				zap.String("path", *path),
			)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
		ShutdownFn: func(ctx context.Context) error {
			// Engine sockets are hijacked, so the hub closes them itself
			// before the HTTP listener goes away.
			hub.Close()
			logger.Info("relay stats",
				zap.Int64("routed", hub.Routed()),
				zap.Int64("dropped", hub.Dropped()),
			)
			return srv.Shutdown(ctx)
		},
	})

	if err := lifecycle.Run(context.Background()); err != nil {
		logger.Fatal("relay error", zap.Error(err))
	}
}
