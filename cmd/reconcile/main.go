// Command reconcile runs one auto-match batch over all unmatched invoice
// records and prints the run summary.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"conciliador/internal/application/matching"
	"conciliador/internal/infrastructure/config"
	"conciliador/internal/infrastructure/logging"
	"conciliador/internal/infrastructure/storage"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to config file")
	threshold := flag.Float64("threshold", 0, "Confidence threshold override in [0,1] (0 = use stored settings)")
	verbose := flag.Bool("verbose", false, "Verbose output")
	flag.Parse()

	cfg := config.LoadOrEnvWithPath(*configPath)

	loggingCfg := cfg.Logging
	if *verbose {
		loggingCfg.Level = "debug"
	}
	logger := logging.NewLoggerWithSystem(loggingCfg, "reconcile")

	store, err := storage.NewStorage(cfg.Storage.DatabasePath)
	if err != nil {
		logger.Error("failed to initialize storage", "error", err)
		os.Exit(1)
	}
	defer func() { _ = store.Close() }()

	settings, err := store.GetMatchSettings()
	if err != nil {
		logger.Error("failed to load match settings", "error", err)
		os.Exit(1)
	}
	if *threshold > 0 && *threshold <= 1 {
		settings.ConfidenceThreshold = *threshold
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	service := matching.NewService(store, logger)
	summary, err := service.RunAutoMatch(ctx, settings)
	if err != nil {
		logger.Error("auto-match run failed", "error", err)
		os.Exit(1)
	}

	logger.Info("done",
		"matched", summary.Matched,
		"ambiguous_skipped", summary.AmbiguousSkipped,
		"unmatched", summary.Unmatched)
}
