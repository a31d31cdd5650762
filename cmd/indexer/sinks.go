package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/file-indexer/internal/logsink"
	"github.com/Adithya-Monish-Kumar-K/file-indexer/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/file-indexer/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/file-indexer/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/file-indexer/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/file-indexer/pkg/postgres"
	"github.com/Adithya-Monish-Kumar-K/file-indexer/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/file-indexer/pkg/resilience"
)

// remoteSink is an enabled remote backend waiting for its preflight result.
type remoteSink struct {
	name    string
	open    func() (logsink.Writer, error)
	release func()
}

var connectRetry = resilience.RetryConfig{
	MaxAttempts:  3,
	InitialDelay: 200 * time.Millisecond,
	MaxDelay:     2 * time.Second,
}

// openSinks builds the progress sink for a run: slog always, the log file
// when enabled, and every enabled remote backend that passes preflight. A
// backend that is down is skipped for this run only.
func openSinks(ctx context.Context, cfg *config.Config, runID string, m *metrics.Metrics) (logsink.Multi, *health.Checker) {
	sinks := logsink.Multi{logsink.NewSlogSink(slog.Default())}
	checker := health.NewChecker()

	if cfg.LogFile.Enabled {
		fw := logsink.NewFileWriter()
		if err := fw.SetLogFile(cfg.LogFile.Path); err != nil {
			slog.Warn("log file unavailable, using fallback", "requested", cfg.LogFile.Path, "path", fw.Path(), "error", err)
		}
		sinks = append(sinks, logsink.NewDispatcher(fw, logsink.DispatcherConfig{
			Name:          "file",
			BufferSize:    cfg.LogFile.BufferSize,
			BatchSize:     cfg.Sinks.BatchSize,
			FlushInterval: cfg.Sinks.FlushInterval,
			Lossless:      true,
		}, m))
	}

	var remotes []remoteSink
	if cfg.Sinks.Kafka {
		checker.Register("kafka", health.PingCheck(func(ctx context.Context) error {
			return kafka.Ping(ctx, cfg.Kafka.Brokers)
		}))
		remotes = append(remotes, remoteSink{
			name: "kafka",
			open: func() (logsink.Writer, error) {
				return logsink.NewKafkaWriter(kafka.NewProducer(cfg.Kafka, cfg.Kafka.LogTopic), runID), nil
			},
			release: func() {},
		})
	}
	if cfg.Sinks.Redis {
		client, err := resilience.RetryValue(ctx, "redis-connect", connectRetry, func() (*redis.Client, error) {
			return redis.NewClient(cfg.Redis)
		})
		checker.Register("redis", connectedCheck(err, func(ctx context.Context) error { return client.Ping(ctx) }))
		remotes = append(remotes, remoteSink{
			name: "redis",
			open: func() (logsink.Writer, error) {
				return logsink.NewRedisWriter(client, cfg.Redis.Channel, runID), nil
			},
			release: func() {
				if client != nil {
					client.Close()
				}
			},
		})
	}
	if cfg.Sinks.Postgres {
		client, err := resilience.RetryValue(ctx, "postgres-connect", connectRetry, func() (*postgres.Client, error) {
			return postgres.New(cfg.Postgres)
		})
		checker.Register("postgres", connectedCheck(err, func(ctx context.Context) error { return client.Ping(ctx) }))
		remotes = append(remotes, remoteSink{
			name: "postgres",
			open: func() (logsink.Writer, error) {
				return logsink.NewPostgresWriter(ctx, client, cfg.Postgres.LogTable, runID)
			},
			release: func() {
				if client != nil {
					client.Close()
				}
			},
		})
	}
	if len(remotes) == 0 {
		return sinks, checker
	}

	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	report := checker.Run(pctx)
	cancel()
	slog.Info("log sink preflight", "status", report.Status, "down", report.Down())

	for _, r := range remotes {
		if comp := report.Components[r.name]; comp.Status == health.StatusDown {
			slog.Warn("log sink disabled for this run", "sink", r.name, "reason", comp.Message)
			r.release()
			continue
		}
		w, err := r.open()
		if err != nil {
			slog.Warn("log sink disabled for this run", "sink", r.name, "error", err)
			r.release()
			continue
		}
		sinks = append(sinks, logsink.NewDispatcher(
			logsink.NewGuarded(r.name, w, cfg.Sinks.WriteTimeout, m),
			logsink.DispatcherConfig{
				Name:          r.name,
				BufferSize:    cfg.Sinks.BufferSize,
				BatchSize:     cfg.Sinks.BatchSize,
				FlushInterval: cfg.Sinks.FlushInterval,
			}, m))
	}
	return sinks, checker
}

// connectedCheck reports connErr as down without calling ping, so ping may
// assume a live client.
func connectedCheck(connErr error, ping func(ctx context.Context) error) health.Check {
	if connErr != nil {
		return func(context.Context) health.ComponentHealth {
			return health.ComponentHealth{Status: health.StatusDown, Message: connErr.Error()}
		}
	}
	return health.PingCheck(ping)
}
