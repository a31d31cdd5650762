package logsink

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Adithya-Monish-Kumar-K/file-indexer/pkg/redis"
)

type channelPublisher interface {
	PublishBatch(ctx context.Context, channel string, messages [][]byte) error
	Close() error
}

// RedisWriter publishes LogEvents on a pub/sub channel. Nothing is stored in
// Redis; a message with no subscriber is gone.
type RedisWriter struct {
	client  channelPublisher
	channel string
	runID   string
	seq     uint64
	now     func() time.Time
}

func NewRedisWriter(client *redis.Client, channel, runID string) *RedisWriter {
	return newRedisWriter(client, channel, runID)
}

func newRedisWriter(c channelPublisher, channel, runID string) *RedisWriter {
	return &RedisWriter{client: c, channel: channel, runID: runID, now: time.Now}
}

func (w *RedisWriter) Write(ctx context.Context, lines []string) error {
	ts := w.now().UTC()
	seq := w.seq
	payloads := make([][]byte, 0, len(lines))
	for _, line := range lines {
		seq++
		b, err := json.Marshal(LogEvent{RunID: w.runID, Seq: seq, Message: line, Timestamp: ts})
		if err != nil {
			return fmt.Errorf("encoding log event: %w", err)
		}
		payloads = append(payloads, b)
	}
	if err := w.client.PublishBatch(ctx, w.channel, payloads); err != nil {
		return err
	}
	w.seq = seq
	return nil
}

func (w *RedisWriter) Close() error {
	return w.client.Close()
}
