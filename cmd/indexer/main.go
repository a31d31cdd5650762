package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/Adithya-Monish-Kumar-K/file-indexer/internal/coordinator"
	"github.com/Adithya-Monish-Kumar-K/file-indexer/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/file-indexer/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/file-indexer/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/file-indexer/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/file-indexer/pkg/tracing"
)

func main() {
	os.Exit(run())
}

func run() int {
	prog := filepath.Base(os.Args[0])
	configPath := flag.String("config", "", "path to config file (defaults only when empty)")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "%s [<file list>]\n", prog)
		flag.PrintDefaults()
	}
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		return apperrors.ExitConfig
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)

	paths := flag.Args()
	if len(paths) == 0 {
		fmt.Fprintln(os.Stderr, "Invalid parameter")
		flag.Usage()
		return apperrors.ExitCode(apperrors.ErrNoInput)
	}
	for _, p := range paths {
		fmt.Printf("Found file: %s\n", p)
	}

	runID := tracing.NewTraceID()
	ctx := logger.WithRunID(context.Background(), runID)
	log := logger.FromContext(ctx)
	m := metrics.New()

	sinks, checker := openSinks(ctx, cfg, runID, m)

	var shutdownMetrics func(context.Context) error
	if cfg.Metrics.Enabled {
		shutdownMetrics = metrics.StartServer(cfg.Metrics.Port, map[string]http.HandlerFunc{
			"/health/live":  checker.LiveHandler(),
			"/health/ready": checker.ReadyHandler(),
		})
	}

	coord := coordinator.New(coordinator.Config{
		Indexer: cfg.Indexer,
		Tracing: cfg.Tracing.Enabled,
	}, os.Stdout, sinks, m)
	res, runErr := coord.Run(ctx, paths)
	<-coord.Done()

	if err := sinks.Close(); err != nil {
		log.Warn("closing log sinks", "error", err)
	}
	if shutdownMetrics != nil {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := shutdownMetrics(sctx); err != nil {
			log.Warn("metrics server shutdown", "error", err)
		}
		cancel()
	}

	if runErr != nil {
		log.Error("indexing run failed", "error", runErr)
		return apperrors.ExitCode(runErr)
	}
	slog.Debug("indexer exiting", "run_id", res.RunID, "duration", res.Duration)
	return apperrors.ExitOK
}
