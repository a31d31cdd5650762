package logsink

import (
	"context"
	"fmt"
	"time"

	"github.com/Adithya-Monish-Kumar-K/file-indexer/pkg/kafka"
)

// LogEvent is the JSON record published for every message on the Kafka log
// topic and on the Redis log channel.
type LogEvent struct {
	RunID     string    `json:"run_id"`
	Seq       uint64    `json:"seq"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// String renders the event as one log-tail line.
func (e LogEvent) String() string {
	return fmt.Sprintf("%s [%s #%d] %s", e.Timestamp.Format(time.RFC3339Nano), e.RunID, e.Seq, e.Message)
}

type eventPublisher interface {
	PublishBatch(ctx context.Context, events []kafka.Event) error
	Close() error
}

// KafkaWriter publishes each message as a LogEvent keyed by run ID, so one
// run's messages land on a single partition in order.
type KafkaWriter struct {
	producer eventPublisher
	runID    string
	seq      uint64
	now      func() time.Time
}

func NewKafkaWriter(producer *kafka.Producer, runID string) *KafkaWriter {
	return newKafkaWriter(producer, runID)
}

func newKafkaWriter(p eventPublisher, runID string) *KafkaWriter {
	return &KafkaWriter{producer: p, runID: runID, now: time.Now}
}

// Write calls must not overlap. The sequence only advances past a batch
// once it is published, so a failed batch leaves no gap.
func (w *KafkaWriter) Write(ctx context.Context, lines []string) error {
	ts := w.now().UTC()
	seq := w.seq
	events := make([]kafka.Event, 0, len(lines))
	for _, line := range lines {
		seq++
		events = append(events, kafka.Event{
			Key: w.runID,
			Value: LogEvent{
				RunID:     w.runID,
				Seq:       seq,
				Message:   line,
				Timestamp: ts,
			},
		})
	}
	if err := w.producer.PublishBatch(ctx, events); err != nil {
		return err
	}
	w.seq = seq
	return nil
}

func (w *KafkaWriter) Close() error {
	return w.producer.Close()
}
