package logsink

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/file-indexer/pkg/metrics"
)

// Writer delivers a batch of messages to one destination.
type Writer interface {
	Write(ctx context.Context, lines []string) error
	Close() error
}

// DispatcherConfig controls buffering and batching for one Writer.
type DispatcherConfig struct {
	Name          string
	BufferSize    int
	BatchSize     int
	FlushInterval time.Duration
	WriteTimeout  time.Duration
	// Lossless makes Message block while the buffer is full instead of
	// dropping the message.
	Lossless bool
}

func (c DispatcherConfig) withDefaults() DispatcherConfig {
	if c.Name == "" {
		c.Name = "sink"
	}
	if c.BufferSize <= 0 {
		c.BufferSize = 1024
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 100
	}
	if c.FlushInterval <= 0 {
		c.FlushInterval = time.Second
	}
	return c
}

// Dispatcher is a Sink that hands messages to a single background goroutine,
// which writes them to its Writer in batches. Messages reach the Writer in
// the order Message was called.
type Dispatcher struct {
	cfg     DispatcherConfig
	writer  Writer
	metrics *metrics.Metrics
	logger  *slog.Logger

	mu     sync.RWMutex
	closed bool
	ch     chan string
	done   chan struct{}

	once     sync.Once
	closeErr error
}

// NewDispatcher starts the drain loop for w. m may be nil.
func NewDispatcher(w Writer, cfg DispatcherConfig, m *metrics.Metrics) *Dispatcher {
	cfg = cfg.withDefaults()
	d := &Dispatcher{
		cfg:     cfg,
		writer:  w,
		metrics: m,
		logger:  slog.Default().With("component", "log-dispatcher", "sink", cfg.Name),
		ch:      make(chan string, cfg.BufferSize),
		done:    make(chan struct{}),
	}
	go d.run()
	return d
}

// Message queues msg for delivery. Messages sent after Close are dropped.
func (d *Dispatcher) Message(msg string) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.count("dropped", 1)
		return
	}
	if d.cfg.Lossless {
		d.ch <- msg
		return
	}
	select {
	case d.ch <- msg:
	default:
		d.count("dropped", 1)
	}
}

// Close stops accepting messages, drains everything already queued and
// closes the Writer. Later calls wait for the first and return its error.
func (d *Dispatcher) Close() error {
	d.once.Do(func() {
		d.mu.Lock()
		d.closed = true
		close(d.ch)
		d.mu.Unlock()
		<-d.done
		d.closeErr = d.writer.Close()
	})
	return d.closeErr
}

func (d *Dispatcher) run() {
	defer close(d.done)
	ticker := time.NewTicker(d.cfg.FlushInterval)
	defer ticker.Stop()

	batch := make([]string, 0, d.cfg.BatchSize)
	for {
		select {
		case msg, ok := <-d.ch:
			if !ok {
				d.flush(batch)
				return
			}
			batch = append(batch, msg)
			if len(batch) >= d.cfg.BatchSize {
				d.flush(batch)
				batch = make([]string, 0, d.cfg.BatchSize)
			}
		case <-ticker.C:
			if len(batch) > 0 {
				d.flush(batch)
				batch = make([]string, 0, d.cfg.BatchSize)
			}
		}
	}
}

func (d *Dispatcher) flush(batch []string) {
	if len(batch) == 0 {
		return
	}
	ctx := context.Background()
	if d.cfg.WriteTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.cfg.WriteTimeout)
		defer cancel()
	}
	if err := d.writer.Write(ctx, batch); err != nil {
		d.logger.Warn("log batch write failed", "count", len(batch), "error", err)
		d.count("failed", len(batch))
		return
	}
	d.count("written", len(batch))
}

func (d *Dispatcher) count(status string, n int) {
	if d.metrics == nil {
		return
	}
	d.metrics.SinkMessagesTotal.WithLabelValues(d.cfg.Name, status).Add(float64(n))
}
