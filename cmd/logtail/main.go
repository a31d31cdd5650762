// Command logtail prints indexer progress messages published by the Kafka
// or Redis log sinks.
//
// Usage:
//
//	go run ./cmd/logtail [-config configs/indexer.yaml] [-source kafka|redis] [-run <id>] [-from-start]
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/Adithya-Monish-Kumar-K/file-indexer/internal/logsink"
	"github.com/Adithya-Monish-Kumar-K/file-indexer/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/file-indexer/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/file-indexer/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/file-indexer/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/file-indexer/pkg/redis"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	source := flag.String("source", "kafka", "where to read log events from: kafka or redis")
	runFilter := flag.String("run", "", "only print events for this run ID")
	fromStart := flag.Bool("from-start", false, "read the Kafka topic from the oldest retained event")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(apperrors.ExitConfig)
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	handle := printEvents(os.Stdout, *runFilter)
	switch *source {
	case "kafka":
		consumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.LogTopic, *fromStart, handle)
		slog.Info("tailing kafka log topic", "topic", cfg.Kafka.LogTopic, "group", cfg.Kafka.ConsumerGroup)
		if err := consumer.Start(ctx); err != nil {
			slog.Error("consumer error", "error", err)
			os.Exit(apperrors.ExitFailure)
		}
	case "redis":
		if err := tailRedis(ctx, cfg.Redis, handle); err != nil {
			slog.Error("redis tail failed", "error", err)
			os.Exit(apperrors.ExitFailure)
		}
	default:
		fmt.Fprintf(os.Stderr, "unknown source %q\n", *source)
		os.Exit(apperrors.ExitUsage)
	}
	slog.Info("logtail stopped")
}

func tailRedis(ctx context.Context, cfg config.RedisConfig, handle kafka.MessageHandler) error {
	client, err := redis.NewClient(cfg)
	if err != nil {
		return err
	}
	defer client.Close()
	sub := client.Subscribe(ctx, cfg.Channel)
	defer sub.Close()
	slog.Info("tailing redis log channel", "channel", cfg.Channel)

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			if err := handle(ctx, nil, []byte(msg.Payload)); err != nil {
				slog.Warn("skipping malformed event", "error", err)
			}
		}
	}
}

// printEvents decodes LogEvents and writes one line per event to w,
// skipping events from other runs when runID is set.
func printEvents(w io.Writer, runID string) kafka.MessageHandler {
	return func(ctx context.Context, key []byte, value []byte) error {
		ev, err := kafka.DecodeJSON[logsink.LogEvent](value)
		if err != nil {
			return err
		}
		if runID != "" && ev.RunID != runID {
			return nil
		}
		_, err = fmt.Fprintln(w, ev.String())
		return err
	}
}
