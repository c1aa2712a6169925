package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/speedwagon-io/vitalwatch/internal/api"
	"github.com/speedwagon-io/vitalwatch/internal/collector"
	"github.com/speedwagon-io/vitalwatch/internal/collector/adapters"
	"github.com/speedwagon-io/vitalwatch/internal/config"
	"github.com/speedwagon-io/vitalwatch/internal/health"
	"github.com/speedwagon-io/vitalwatch/internal/lib/logger/sl"
	"github.com/speedwagon-io/vitalwatch/internal/publish"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	dryRun := flag.Bool("dry-run", false, "log frames instead of publishing them")
	flag.Parse()

	cfg := config.MustLoad(*configPath)

	log := sl.SetupLogger(cfg.Log.Level, cfg.Log.Format)

	log.Info("starting vitalwatch",
		slog.String("env", cfg.Env),
		slog.String("backend", cfg.Backend.BaseURL),
		slog.Bool("dry_run", *dryRun),
	)

	backend := adapters.NewBackendAPI(log, cfg.Backend.BaseURL, cfg.Backend.Timeout)

	var publisher publish.Publisher
	switch {
	case *dryRun:
		publisher = publish.NewLogPublisher(log)
		log.Info("dry-run mode: frames will be logged instead of published")
	case cfg.Publish.Enabled:
		client := publish.NewRedisClient(&cfg.Publish.Redis)
		publisher = publish.NewRedisPublisher(log, client, &cfg.Publish)
		log.Info("publishing frames to redis",
			slog.String("addr", cfg.Publish.Redis.Addr),
			slog.String("channel", cfg.Publish.Channel),
		)
	}

	manager := collector.NewManager(log, &cfg.Views, backend, publisher)

	registry := health.NewRegistry()
	registry.AddChecker(health.NewBackendHealthChecker(backend.Health))
	if publisher != nil {
		registry.AddChecker(health.NewPublisherHealthChecker(publisher.Health))
	}
	for _, name := range manager.ViewNames() {
		view, _ := manager.View(name)
		registry.AddChecker(health.NewViewHealthChecker(name, func() (string, error) {
			st := view.Store().Get()
			return string(st.Phase), st.Err
		}))
	}
	registry.SetReadiness(manager.Ready)

	server := api.NewServer(log, &cfg.HTTP, manager, registry)
	if err := server.Start(); err != nil {
		log.Error("failed to start http server", sl.Err(err))
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		log.Info("received signal, shutting down", slog.String("signal", sig.String()))
		cancel()
	}()

	manager.Start(ctx)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Stop(shutdownCtx); err != nil {
		log.Error("failed to stop http server", sl.Err(err))
	}

	manager.Stop()

	if publisher != nil {
		if err := publisher.Close(); err != nil {
			log.Error("failed to close publisher", sl.Err(err))
		}
	}

	log.Info("vitalwatch stopped")
}
