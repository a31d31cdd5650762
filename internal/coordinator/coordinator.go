// Package coordinator runs one indexing job: it fans files out to a bounded
// pool of FileIndexers, reduces each result into the global word set as it
// arrives, then ranks the frozen set and writes the report.
package coordinator

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/Adithya-Monish-Kumar-K/file-indexer/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/file-indexer/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/file-indexer/internal/logsink"
	"github.com/Adithya-Monish-Kumar-K/file-indexer/internal/merger"
	"github.com/Adithya-Monish-Kumar-K/file-indexer/internal/ranker"
	"github.com/Adithya-Monish-Kumar-K/file-indexer/internal/report"
	"github.com/Adithya-Monish-Kumar-K/file-indexer/internal/stats"
	"github.com/Adithya-Monish-Kumar-K/file-indexer/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/file-indexer/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/file-indexer/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/file-indexer/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/file-indexer/pkg/tracing"
	"golang.org/x/sync/errgroup"
)

// State is the lifecycle phase of a Coordinator.
type State int32

const (
	StateIdle State = iota
	StateRunning
	StateFinalizing
	StateDone
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateFinalizing:
		return "finalizing"
	case StateDone:
		return "done"
	default:
		return "unknown"
	}
}

const slowestFiles = 5

// Config controls a run.
type Config struct {
	Indexer config.IndexerConfig
	// Tracing logs the run's span tree once it is done.
	Tracing bool
}

// Result is what a finished run produced.
type Result struct {
	RunID         string
	K             int
	Ranking       []index.Entry
	DistinctWords int
	TotalWords    uint64
	FilesReduced  int
	Shortfall     int
	Stats         stats.Summary
	Duration      time.Duration
}

// Coordinator drives a single run. It cannot be reused.
type Coordinator struct {
	cfg     Config
	out     io.Writer
	sink    logsink.Sink
	metrics *metrics.Metrics

	state atomic.Int32
	done  chan struct{}
}

// New creates an idle Coordinator writing its report to out. sink and m
// may be nil.
func New(cfg Config, out io.Writer, sink logsink.Sink, m *metrics.Metrics) *Coordinator {
	if cfg.Indexer.Workers <= 0 {
		cfg.Indexer.Workers = runtime.NumCPU()
	}
	if cfg.Indexer.TopK <= 0 {
		cfg.Indexer.TopK = ranker.DefaultK
	}
	if sink == nil {
		sink = logsink.Nop{}
	}
	return &Coordinator{
		cfg:     cfg,
		out:     out,
		sink:    sink,
		metrics: m,
		done:    make(chan struct{}),
	}
}

// State reports the current phase.
func (c *Coordinator) State() State {
	return State(c.state.Load())
}

// Done is closed exactly once, after the report has been written.
func (c *Coordinator) Done() <-chan struct{} {
	return c.done
}

// Run indexes paths and writes the ranking. It waits for every file; a file
// that fails to open or read contributes no words and never stops the run.
// ctx supplies the run ID and trace parent only; cancelling it does not
// interrupt the run. A second call returns ErrAlreadyRun.
func (c *Coordinator) Run(ctx context.Context, paths []string) (*Result, error) {
	if !c.state.CompareAndSwap(int32(StateIdle), int32(StateRunning)) {
		return nil, fmt.Errorf("coordinator in state %s: %w", c.State(), apperrors.ErrAlreadyRun)
	}
	defer close(c.done)
	defer c.state.Store(int32(StateDone))

	runID := logger.RunIDFromContext(ctx)
	if runID == "" {
		runID = tracing.NewTraceID()
		ctx = logger.WithRunID(ctx, runID)
	}
	ctx, span := tracing.StartSpan(ctx, "index-run", runID)
	log := logger.FromContext(ctx).With("component", "coordinator")
	k := c.cfg.Indexer.TopK
	res := &Result{RunID: runID, K: k}
	defer func() {
		span.SetAttr("files", len(paths))
		span.SetAttr("distinct_words", res.DistinctWords)
		span.End()
		res.Duration = span.Duration
		if c.metrics != nil {
			c.metrics.RunDuration.Observe(res.Duration.Seconds())
		}
		if c.cfg.Tracing {
			span.Log(log)
		}
	}()

	c.sink.Message("Starting File Indexing")
	log.Info("run started", "files", len(paths), "workers", c.cfg.Indexer.Workers, "top_k", k)

	if len(paths) == 0 {
		log.Warn("no files to index")
		c.sink.Message(report.NoFiles)
		if err := report.WriteNoFiles(c.out); err != nil {
			return res, fmt.Errorf("writing report: %w", err)
		}
		return res, nil
	}

	reducer := merger.New(c.metrics)
	collector := stats.NewCollector()
	fi := indexer.New(c.cfg.Indexer, c.sink, c.metrics)

	var g errgroup.Group
	g.SetLimit(c.cfg.Indexer.Workers)
	c.sink.Message("Waiting for indexing")
	for _, path := range paths {
		path := path
		g.Go(func() error {
			fctx, fspan := tracing.StartChildSpan(ctx, "index-file")
			defer fspan.End()
			fspan.SetAttr("path", path)
			ws, st := fi.Index(fctx, path)
			collector.Record(st)
			fspan.SetAttr("words", st.Words)
			if st.Err != nil {
				fspan.SetAttr("error", st.Err.Error())
			}
			return reducer.Reduce(ws)
		})
	}
	if err := g.Wait(); err != nil {
		return res, fmt.Errorf("reducing file results: %w", err)
	}

	c.state.Store(int32(StateFinalizing))
	_, fspan := tracing.StartChildSpan(ctx, "finalize")
	c.sink.Message("Finished indexing")
	global := reducer.Freeze()
	res.DistinctWords = global.Len()
	res.TotalWords = global.Total()
	res.FilesReduced = reducer.Merged()
	log.Debug("reduction finished", "files_reduced", res.FilesReduced, "total_words", res.TotalWords)
	c.sink.Message(fmt.Sprintf("Found %d words", res.DistinctWords))

	c.sink.Message("Building count-oriented listing")
	c.sink.Message(fmt.Sprintf("Generating Top-%d List", k))
	res.Ranking = ranker.TopK(global, k)
	res.Shortfall = ranker.Shortfall(k, len(res.Ranking))
	c.sink.Message(report.Header(k))
	for _, e := range res.Ranking {
		c.sink.Message(report.Line(e))
	}
	if res.Shortfall > 0 {
		c.sink.Message(report.ShortfallNotice(len(res.Ranking)))
	}
	fspan.End()

	res.Stats = collector.Summary(slowestFiles)
	log.Info("run finished",
		"files", res.Stats.Files,
		"failed_files", res.Stats.FailedFiles,
		"bytes", res.Stats.Bytes,
		"words", res.TotalWords,
		"distinct_words", res.DistinctWords,
		"p95_file_ms", res.Stats.P95LatencyMs,
	)
	logSlowest(log, res.Stats.Slowest)

	if err := report.Write(c.out, res.Ranking, k); err != nil {
		return res, fmt.Errorf("writing report: %w", err)
	}
	return res, nil
}

func logSlowest(log *slog.Logger, slowest []stats.FileLatency) {
	for i, f := range slowest {
		log.Debug("slow file", "rank", i+1, "path", f.Path, "duration_ms", f.DurationMs)
	}
}
