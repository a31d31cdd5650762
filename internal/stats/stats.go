// Package stats aggregates per-file indexing statistics into a run summary.
package stats

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// FileStats describes how one file was indexed.
type FileStats struct {
	Path     string        `json:"path"`
	Bytes    int64         `json:"bytes"`
	Chunks   int           `json:"chunks"`
	Words    uint64        `json:"words"`
	Distinct int           `json:"distinct"`
	Duration time.Duration `json:"duration"`
	// Err is set when the file could not be opened or a read failed.
	Err error `json:"-"`
}

// Failed reports whether the file could not be fully read.
func (s FileStats) Failed() bool {
	return s.Err != nil
}

// FileLatency is one entry in the slowest-files list.
type FileLatency struct {
	Path       string `json:"path"`
	DurationMs int64  `json:"duration_ms"`
}

// Summary is the aggregated view of a run.
type Summary struct {
	Files        int64         `json:"files"`
	FailedFiles  int64         `json:"failed_files"`
	Bytes        int64         `json:"bytes"`
	Chunks       int64         `json:"chunks"`
	Words        uint64        `json:"words"`
	AvgLatencyMs float64       `json:"avg_latency_ms"`
	P50LatencyMs int64         `json:"p50_latency_ms"`
	P95LatencyMs int64         `json:"p95_latency_ms"`
	P99LatencyMs int64         `json:"p99_latency_ms"`
	Slowest      []FileLatency `json:"slowest"`
}

// Collector accumulates FileStats from concurrent workers.
type Collector struct {
	files  atomic.Int64
	failed atomic.Int64
	bytes  atomic.Int64
	chunks atomic.Int64
	words  atomic.Uint64

	mu        sync.Mutex
	latencies []FileLatency
}

func NewCollector() *Collector {
	return &Collector{latencies: make([]FileLatency, 0, 64)}
}

// Record adds one file's stats.
func (c *Collector) Record(s FileStats) {
	c.files.Add(1)
	if s.Failed() {
		c.failed.Add(1)
	}
	c.bytes.Add(s.Bytes)
	c.chunks.Add(int64(s.Chunks))
	c.words.Add(s.Words)

	c.mu.Lock()
	c.latencies = append(c.latencies, FileLatency{Path: s.Path, DurationMs: s.Duration.Milliseconds()})
	c.mu.Unlock()
}

// Summary returns the aggregate of everything recorded so far, listing at
// most slowest files by duration.
func (c *Collector) Summary(slowest int) Summary {
	sum := Summary{
		Files:       c.files.Load(),
		FailedFiles: c.failed.Load(),
		Bytes:       c.bytes.Load(),
		Chunks:      c.chunks.Load(),
		Words:       c.words.Load(),
	}

	c.mu.Lock()
	lat := make([]FileLatency, len(c.latencies))
	copy(lat, c.latencies)
	c.mu.Unlock()
	if len(lat) == 0 {
		return sum
	}

	sorted := make([]int64, len(lat))
	var total int64
	for i, l := range lat {
		sorted[i] = l.DurationMs
		total += l.DurationMs
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	sum.AvgLatencyMs = float64(total) / float64(len(sorted))
	sum.P50LatencyMs = percentile(sorted, 50)
	sum.P95LatencyMs = percentile(sorted, 95)
	sum.P99LatencyMs = percentile(sorted, 99)

	sort.Slice(lat, func(i, j int) bool {
		if lat[i].DurationMs != lat[j].DurationMs {
			return lat[i].DurationMs > lat[j].DurationMs
		}
		return lat[i].Path < lat[j].Path
	})
	if slowest < len(lat) {
		lat = lat[:slowest]
	}
	sum.Slowest = lat
	return sum
}

func percentile(sorted []int64, pct int) int64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := (pct * len(sorted)) / 100
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}
