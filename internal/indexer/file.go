// Package indexer counts the words of a single file by streaming it through
// a ChunkTokenizer in fixed-size reads.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/Adithya-Monish-Kumar-K/file-indexer/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/file-indexer/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/file-indexer/internal/logsink"
	"github.com/Adithya-Monish-Kumar-K/file-indexer/internal/stats"
	"github.com/Adithya-Monish-Kumar-K/file-indexer/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/file-indexer/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/file-indexer/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/file-indexer/pkg/metrics"
)

const DefaultChunkSize = 32 * 1024

// FileIndexer turns one file into a WordSet. It holds no per-file state and
// is safe for concurrent use; each Index call owns its own tokenizer.
type FileIndexer struct {
	chunkSize     int
	progressEvery int
	sink          logsink.Sink
	metrics       *metrics.Metrics
	open          func(path string) (io.ReadCloser, error)
}

func openFile(path string) (io.ReadCloser, error) {
	return os.Open(path)
}

// New creates a FileIndexer. sink and m may be nil.
func New(cfg config.IndexerConfig, sink logsink.Sink, m *metrics.Metrics) *FileIndexer {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = DefaultChunkSize
	}
	if sink == nil {
		sink = logsink.Nop{}
	}
	return &FileIndexer{
		chunkSize:     cfg.ChunkSize,
		progressEvery: cfg.ProgressEvery,
		sink:          sink,
		metrics:       m,
		open:          openFile,
	}
}

// Index reads path to the end and returns its word counts. It never fails:
// a file that cannot be opened yields an empty WordSet, and a read error
// ends the stream early, keeping every word already completed. Both cases
// are reported to the sink and recorded in the returned FileStats.
func (fi *FileIndexer) Index(ctx context.Context, path string) (*index.WordSet, stats.FileStats) {
	start := time.Now()
	log := logger.FromContext(ctx).With("component", "file-indexer", "path", path)
	ws := index.NewWordSet()
	st := stats.FileStats{Path: path}
	defer func() {
		st.Distinct = ws.Len()
		st.Duration = time.Since(start)
		fi.observe(st)
	}()

	fi.fileMessage(path, "Received file for processing")
	f, err := fi.open(path)
	if err != nil {
		st.Err = fmt.Errorf("opening %s: %w: %w", path, apperrors.ErrFileOpen, err)
		log.Warn("failed to open file", "error", err)
		fi.fileMessage(path, fmt.Sprintf("Failed to open file: %v", err))
		return ws, st
	}
	defer f.Close()

	tok := tokenizer.New()
	buf := make([]byte, fi.chunkSize)
	for {
		n, err := f.Read(buf)
		if n > 0 {
			st.Chunks++
			st.Bytes += int64(n)
			st.Words += uint64(tok.Feed(buf[:n], false, ws))
			if fi.progressEvery > 0 && st.Chunks%fi.progressEvery == 0 {
				fi.fileMessage(path, fmt.Sprintf("Read chunk %d (%d bytes total)", st.Chunks, st.Bytes))
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				st.Err = fmt.Errorf("reading %s: %w: %w", path, apperrors.ErrFileRead, err)
				log.Warn("read failed, treating as end of file", "bytes", st.Bytes, "pending_bytes", tok.Pending(), "error", err)
				fi.fileMessage(path, fmt.Sprintf("Read failed after %d bytes: %v", st.Bytes, err))
			}
			break
		}
		if n == 0 {
			break
		}
	}
	st.Words += uint64(tok.Feed(nil, true, ws))

	log.Debug("file indexed", "bytes", st.Bytes, "chunks", st.Chunks, "words", st.Words, "distinct", ws.Len())
	fi.fileMessage(path, fmt.Sprintf("Completed processing: %d words, %d distinct", st.Words, ws.Len()))
	return ws, st
}

func (fi *FileIndexer) fileMessage(path, msg string) {
	fi.sink.Message(fmt.Sprintf("File Name: %s - %s", path, msg))
}

func (fi *FileIndexer) observe(st stats.FileStats) {
	if fi.metrics == nil {
		return
	}
	status := "ok"
	switch {
	case errors.Is(st.Err, apperrors.ErrFileOpen):
		status = "open_failed"
	case errors.Is(st.Err, apperrors.ErrFileRead):
		status = "read_failed"
	}
	fi.metrics.FilesIndexedTotal.WithLabelValues(status).Inc()
	fi.metrics.BytesReadTotal.Add(float64(st.Bytes))
	fi.metrics.ChunksReadTotal.Add(float64(st.Chunks))
	fi.metrics.WordsCountedTotal.Add(float64(st.Words))
	fi.metrics.FileIndexDuration.Observe(st.Duration.Seconds())
}
