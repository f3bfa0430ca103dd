// Command server runs the pulse API and live view endpoint.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"pulse/internal/config"
	"pulse/internal/observability"
	"pulse/internal/server"

	log "github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	observability.SetLevel(cfg.LogLevel)

	shutdownTracing, err := observability.InitTracing(observability.TracingConfig{
		ServiceName:    "pulse-api",
		ServiceVersion: "1.0.0",
		Environment:    cfg.Env,
		Enabled:        cfg.TracingEnabled,
		Exporter:       cfg.TracingExporter,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		SamplerRatio:   cfg.TracingSamplerRatio,
	})
	if err != nil {
		log.Fatalf("Failed to initialize tracing: %v", err)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			log.WithError(err).Warn("tracing shutdown failed")
		}
	}()

	srv, err := server.NewServer(context.Background(), cfg)
	if err != nil {
		log.Fatalf("Failed to create server: %v", err)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	if err := srv.Run(quit); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
