package logsink

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	apperrors "github.com/Adithya-Monish-Kumar-K/file-indexer/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/file-indexer/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/file-indexer/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/file-indexer/pkg/resilience"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

type memWriter struct {
	mu      sync.Mutex
	batches [][]string
	err     error
	closed  bool
	closes  int
	block   chan struct{}
}

func (w *memWriter) Write(ctx context.Context, lines []string) error {
	if w.block != nil {
		<-w.block
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.batches = append(w.batches, append([]string(nil), lines...))
	return nil
}

func (w *memWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	w.closes++
	return nil
}

func (w *memWriter) lines() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	var out []string
	for _, b := range w.batches {
		out = append(out, b...)
	}
	return out
}

func TestDispatcherPreservesOrderAndBatches(t *testing.T) {
	w := &memWriter{}
	d := NewDispatcher(w, DispatcherConfig{
		Name:          "mem",
		BufferSize:    64,
		BatchSize:     4,
		FlushInterval: time.Hour,
		Lossless:      true,
	}, nil)

	var want []string
	for i := 0; i < 10; i++ {
		msg := strings.Repeat("x", i)
		want = append(want, msg)
		d.Message(msg)
	}
	if err := d.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if got := w.lines(); !reflect.DeepEqual(got, want) {
		t.Fatalf("lines = %q, want %q", got, want)
	}
	for i, b := range w.batches {
		if len(b) > 4 {
			t.Errorf("batch %d has %d lines, limit 4", i, len(b))
		}
	}
	if !w.closed {
		t.Error("writer not closed")
	}
}

func TestDispatcherFlushesOnInterval(t *testing.T) {
	w := &memWriter{}
	d := NewDispatcher(w, DispatcherConfig{BatchSize: 100, FlushInterval: 10 * time.Millisecond}, nil)
	defer d.Close()

	d.Message("tick")
	deadline := time.Now().Add(2 * time.Second)
	for len(w.lines()) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("message not flushed by interval")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestDispatcherLossyDropsWhenFull(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewWithRegistry(reg)
	w := &memWriter{block: make(chan struct{})}
	d := NewDispatcher(w, DispatcherConfig{
		Name:          "slow",
		BufferSize:    1,
		BatchSize:     1,
		FlushInterval: time.Hour,
	}, m)

	// The first message is taken by the loop, which then blocks in Write.
	d.Message("first")
	deadline := time.Now().Add(2 * time.Second)
	for len(d.ch) != 0 {
		if time.Now().After(deadline) {
			t.Fatal("loop did not pick up first message")
		}
		time.Sleep(time.Millisecond)
	}
	d.Message("second")
	d.Message("third")
	close(w.block)
	d.Close()

	if got := testutil.ToFloat64(m.SinkMessagesTotal.WithLabelValues("slow", "dropped")); got != 1 {
		t.Errorf("dropped = %v, want 1", got)
	}
	if got := w.lines(); !reflect.DeepEqual(got, []string{"first", "second"}) {
		t.Errorf("lines = %q", got)
	}
}

func TestDispatcherCountsFailuresAndDropsAfterClose(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewWithRegistry(reg)
	w := &memWriter{err: errors.New("backend down")}
	d := NewDispatcher(w, DispatcherConfig{Name: "broken", BatchSize: 2}, m)
	d.Message("a")
	d.Message("b")
	d.Message("c")
	d.Close()
	d.Message("late")

	if got := testutil.ToFloat64(m.SinkMessagesTotal.WithLabelValues("broken", "failed")); got != 3 {
		t.Errorf("failed = %v, want 3", got)
	}
	if got := testutil.ToFloat64(m.SinkMessagesTotal.WithLabelValues("broken", "dropped")); got != 1 {
		t.Errorf("dropped = %v, want 1", got)
	}
}

func TestFileWriterDefaultName(t *testing.T) {
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd: %v", err)
	}
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatalf("Chdir: %v", err)
	}
	t.Cleanup(func() { os.Chdir(wd) })
	w := NewFileWriter()
	if w.Path() != DefaultLogFile {
		t.Fatalf("Path() = %q, want %q", w.Path(), DefaultLogFile)
	}
	if _, err := os.Stat(DefaultLogFile); !os.IsNotExist(err) {
		t.Fatalf("log file created before first write: %v", err)
	}
	if err := w.Write(context.Background(), []string{"hello"}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	w.Close()
	data, err := os.ReadFile(DefaultLogFile)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "hello\n" {
		t.Errorf("contents = %q", data)
	}
}

func TestFileWriterSwitchAndFallback(t *testing.T) {
	dir := t.TempDir()
	w := NewFileWriter()
	defer w.Close()

	first := filepath.Join(dir, "where-is-waldo.log")
	if err := w.SetLogFile(first); err != nil {
		t.Fatalf("SetLogFile: %v", err)
	}
	if w.Path() != first {
		t.Fatalf("Path() = %q, want %q", w.Path(), first)
	}

	err := w.SetLogFile(filepath.Join(dir, "missing", "x.log"))
	if !errors.Is(err, apperrors.ErrFileOpen) {
		t.Fatalf("SetLogFile(bad) = %v, want ErrFileOpen", err)
	}
	if w.Path() != first {
		t.Fatalf("Path() after failed switch = %q, want %q", w.Path(), first)
	}

	if err := w.Write(context.Background(), []string{"one", "two"}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	data, _ := os.ReadFile(first)
	if string(data) != "one\ntwo\n" {
		t.Errorf("contents = %q", data)
	}
}

func TestFileWriterAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.log")
	if err := os.WriteFile(path, []byte("old\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	w := NewFileWriter()
	if err := w.SetLogFile(path); err != nil {
		t.Fatal(err)
	}
	w.Write(context.Background(), []string{"new"})
	w.Close()
	data, _ := os.ReadFile(path)
	if string(data) != "old\nnew\n" {
		t.Errorf("contents = %q", data)
	}
}

type fakeProducer struct {
	events []kafka.Event
	err    error
	closed bool
}

func (p *fakeProducer) PublishBatch(_ context.Context, events []kafka.Event) error {
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, events...)
	return nil
}

func (p *fakeProducer) Close() error { p.closed = true; return nil }

func TestKafkaWriterKeysByRun(t *testing.T) {
	p := &fakeProducer{}
	w := newKafkaWriter(p, "run-1")
	fixed := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	w.now = func() time.Time { return fixed }

	w.Write(context.Background(), []string{"Starting File Indexing", "Found 3 words"})
	w.Write(context.Background(), []string{"Finished indexing"})

	if len(p.events) != 3 {
		t.Fatalf("published %d events, want 3", len(p.events))
	}
	for i, e := range p.events {
		if e.Key != "run-1" {
			t.Errorf("event %d key = %q", i, e.Key)
		}
		ev := e.Value.(LogEvent)
		if ev.Seq != uint64(i+1) || !ev.Timestamp.Equal(fixed) {
			t.Errorf("event %d = %+v", i, ev)
		}
	}
	if p.events[2].Value.(LogEvent).Message != "Finished indexing" {
		t.Errorf("last message = %+v", p.events[2].Value)
	}
	w.Close()
	if !p.closed {
		t.Error("producer not closed")
	}
}

func TestKafkaWriterSeqSkipsFailedBatches(t *testing.T) {
	p := &fakeProducer{err: errors.New("leader not available")}
	w := newKafkaWriter(p, "run-2")

	if err := w.Write(context.Background(), []string{"lost", "also lost"}); err == nil {
		t.Fatal("expected publish error")
	}
	p.err = nil
	if err := w.Write(context.Background(), []string{"kept"}); err != nil {
		t.Fatal(err)
	}
	if len(p.events) != 1 {
		t.Fatalf("published %d events, want 1", len(p.events))
	}
	if ev := p.events[0].Value.(LogEvent); ev.Seq != 1 || ev.Message != "kept" {
		t.Errorf("event = %+v, want seq 1", ev)
	}
}

type fakeChannel struct {
	channel  string
	payloads [][]byte
	err      error
}

func (c *fakeChannel) PublishBatch(_ context.Context, channel string, messages [][]byte) error {
	if c.err != nil {
		return c.err
	}
	c.channel = channel
	c.payloads = append(c.payloads, messages...)
	return nil
}

func (c *fakeChannel) Close() error { return nil }

func TestRedisWriterPublishesJSON(t *testing.T) {
	c := &fakeChannel{}
	w := newRedisWriter(c, "file-indexer:log", "run-9")
	if err := w.Write(context.Background(), []string{"the - 4 times"}); err != nil {
		t.Fatal(err)
	}
	if c.channel != "file-indexer:log" || len(c.payloads) != 1 {
		t.Fatalf("channel=%q payloads=%d", c.channel, len(c.payloads))
	}
	var ev LogEvent
	if err := json.Unmarshal(c.payloads[0], &ev); err != nil {
		t.Fatal(err)
	}
	if ev.RunID != "run-9" || ev.Message != "the - 4 times" || ev.Seq != 1 {
		t.Errorf("event = %+v", ev)
	}
}

func TestRedisWriterSeqSkipsFailedBatches(t *testing.T) {
	c := &fakeChannel{err: errors.New("connection reset")}
	w := newRedisWriter(c, "file-indexer:log", "run-9")
	if err := w.Write(context.Background(), []string{"lost"}); err == nil {
		t.Fatal("expected publish error")
	}
	c.err = nil
	if err := w.Write(context.Background(), []string{"kept"}); err != nil {
		t.Fatal(err)
	}
	var ev LogEvent
	if err := json.Unmarshal(c.payloads[0], &ev); err != nil {
		t.Fatal(err)
	}
	if ev.Seq != 1 {
		t.Errorf("seq = %d, want 1", ev.Seq)
	}
}

func TestGuardedOpensAfterFailures(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewWithRegistry(reg)
	w := &memWriter{err: errors.New("connection refused")}
	g := NewGuarded("redis", w, time.Second, m)

	for i := 0; i < 3; i++ {
		if err := g.Write(context.Background(), []string{"x"}); !errors.Is(err, apperrors.ErrSinkUnavailable) {
			t.Fatalf("write %d: %v", i, err)
		}
	}
	if g.State() != resilience.StateOpen {
		t.Fatalf("state = %v, want open", g.State())
	}
	err := g.Write(context.Background(), []string{"x"})
	if !errors.Is(err, resilience.ErrCircuitOpen) {
		t.Fatalf("write while open = %v", err)
	}
	if got := testutil.ToFloat64(m.CircuitBreakerState.WithLabelValues("redis")); got != float64(resilience.StateOpen) {
		t.Errorf("breaker gauge = %v", got)
	}
}

func TestGuardedTimesOut(t *testing.T) {
	w := &memWriter{block: make(chan struct{})}
	defer close(w.block)
	g := NewGuarded("kafka", w, 20*time.Millisecond, nil)
	err := g.Write(context.Background(), []string{"x"})
	if !errors.Is(err, apperrors.ErrTimeout) {
		t.Fatalf("err = %v, want ErrTimeout", err)
	}
}

// slowProducer ignores its deadline for a while after it expires and
// records whether calls into it ever overlapped.
type slowProducer struct {
	mu                sync.Mutex
	active            int
	maxActive         int
	calls             int
	closed            bool
	closedDuringWrite bool
}

func (p *slowProducer) PublishBatch(ctx context.Context, _ []kafka.Event) error {
	p.mu.Lock()
	p.active++
	p.calls++
	if p.active > p.maxActive {
		p.maxActive = p.active
	}
	p.mu.Unlock()

	<-ctx.Done()
	time.Sleep(15 * time.Millisecond)

	p.mu.Lock()
	p.active--
	p.mu.Unlock()
	return ctx.Err()
}

func (p *slowProducer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.active > 0 {
		p.closedDuringWrite = true
	}
	p.closed = true
	return nil
}

func TestGuardedSerialisesAbandonedWrites(t *testing.T) {
	p := &slowProducer{}
	kw := newKafkaWriter(p, "run-3")
	g := NewGuarded("kafka", kw, 10*time.Millisecond, nil)

	for i := 0; i < 3; i++ {
		if err := g.Write(context.Background(), []string{"x"}); !errors.Is(err, apperrors.ErrTimeout) {
			t.Fatalf("write %d: %v, want ErrTimeout", i, err)
		}
	}
	if err := g.Close(); err != nil {
		t.Fatal(err)
	}
	if err := g.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.maxActive != 1 {
		t.Errorf("%d writes overlapped", p.maxActive)
	}
	if !p.closed || p.closedDuringWrite {
		t.Errorf("closed=%v closedDuringWrite=%v", p.closed, p.closedDuringWrite)
	}
	if p.calls == 0 {
		t.Error("no write reached the producer")
	}
	if kw.seq != 0 {
		t.Errorf("seq = %d after only failed batches", kw.seq)
	}
}

func TestDispatcherClosesWriterOnce(t *testing.T) {
	w := &memWriter{}
	d := NewDispatcher(w, DispatcherConfig{Name: "file"}, nil)
	d.Message("a")
	if err := d.Close(); err != nil {
		t.Fatal(err)
	}
	if err := d.Close(); err != nil {
		t.Fatal(err)
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closes != 1 {
		t.Errorf("writer closed %d times, want 1", w.closes)
	}
	if len(w.batches) != 1 {
		t.Errorf("batches = %v", w.batches)
	}
}

type recorder struct {
	mu   sync.Mutex
	msgs []string
}

func (r *recorder) Message(msg string) {
	r.mu.Lock()
	r.msgs = append(r.msgs, msg)
	r.mu.Unlock()
}

func TestMultiFansOutAndCloses(t *testing.T) {
	a, b := &recorder{}, &recorder{}
	w := &memWriter{}
	d := NewDispatcher(w, DispatcherConfig{}, nil)
	m := Multi{a, b, d, Nop{}}
	m.Message("hello")
	if err := m.Close(); err != nil {
		t.Fatal(err)
	}
	if len(a.msgs) != 1 || len(b.msgs) != 1 {
		t.Errorf("a=%v b=%v", a.msgs, b.msgs)
	}
	if got := w.lines(); !reflect.DeepEqual(got, []string{"hello"}) {
		t.Errorf("dispatcher lines = %q", got)
	}
}
