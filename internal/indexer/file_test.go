package indexer

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/file-indexer/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/file-indexer/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/file-indexer/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/file-indexer/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func countsOf(ws *index.WordSet) map[string]uint64 {
	m := make(map[string]uint64, ws.Len())
	ws.Range(func(word string, count uint64) bool {
		m[word] = count
		return true
	})
	return m
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

func (r *recorder) contains(sub string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.msgs {
		if strings.Contains(m, sub) {
			return true
		}
	}
	return false
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestIndexCountsWords(t *testing.T) {
	path := writeFile(t, "a.txt", "The cat and THE hat.\nthe end, 42 times 42")
	fi := New(config.IndexerConfig{ChunkSize: 4}, nil, nil)

	ws, st := fi.Index(context.Background(), path)
	want := map[string]uint64{"the": 3, "cat": 1, "and": 1, "hat": 1, "end": 1, "42": 2, "times": 1}
	if ws.Len() != len(want) {
		t.Fatalf("Len() = %d, want %d (%v)", ws.Len(), len(want), countsOf(ws))
	}
	for w, c := range want {
		if got := ws.Get(w); got != c {
			t.Errorf("Get(%q) = %d, want %d", w, got, c)
		}
	}
	if st.Words != 10 || st.Err != nil {
		t.Errorf("stats = %+v", st)
	}
	if st.Bytes != int64(len("The cat and THE hat.\nthe end, 42 times 42")) {
		t.Errorf("Bytes = %d", st.Bytes)
	}
}

func TestIndexIsChunkSizeInvariant(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 500; i++ {
		sb.WriteString("alpha Beta gamma1 ")
		sb.WriteString(strings.Repeat("z", i%17))
		sb.WriteString("\t--\n")
	}
	path := writeFile(t, "big.txt", sb.String())

	ref, _ := New(config.IndexerConfig{ChunkSize: 1 << 20}, nil, nil).Index(context.Background(), path)
	for _, size := range []int{1, 2, 3, 7, 64, 4096} {
		ws, _ := New(config.IndexerConfig{ChunkSize: size}, nil, nil).Index(context.Background(), path)
		if !reflect.DeepEqual(countsOf(ws), countsOf(ref)) {
			t.Errorf("chunk size %d: counts differ from single read", size)
		}
	}
}

func TestIndexZeroByteFile(t *testing.T) {
	path := writeFile(t, "empty.txt", "")
	ws, st := New(config.IndexerConfig{}, nil, nil).Index(context.Background(), path)
	if ws.Len() != 0 || st.Err != nil || st.Chunks != 0 {
		t.Errorf("ws.Len()=%d stats=%+v", ws.Len(), st)
	}
}

func TestIndexMissingFile(t *testing.T) {
	rec := &recorder{}
	path := filepath.Join(t.TempDir(), "nope.txt")
	ws, st := New(config.IndexerConfig{}, rec, nil).Index(context.Background(), path)
	if ws.Len() != 0 {
		t.Errorf("Len() = %d, want 0", ws.Len())
	}
	if !errors.Is(st.Err, apperrors.ErrFileOpen) {
		t.Errorf("Err = %v, want ErrFileOpen", st.Err)
	}
	if !rec.contains("File Name: " + path + " - Failed to open file") {
		t.Errorf("messages = %q", rec.msgs)
	}
}

func TestIndexPermissionDenied(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("root ignores file permissions")
	}
	path := writeFile(t, "secret.txt", "hidden words")
	if err := os.Chmod(path, 0); err != nil {
		t.Fatal(err)
	}
	ws, st := New(config.IndexerConfig{}, nil, nil).Index(context.Background(), path)
	if ws.Len() != 0 || !errors.Is(st.Err, apperrors.ErrFileOpen) {
		t.Errorf("Len()=%d Err=%v", ws.Len(), st.Err)
	}
}

func TestIndexDirectoryIsReadFailure(t *testing.T) {
	ws, st := New(config.IndexerConfig{}, nil, nil).Index(context.Background(), t.TempDir())
	if ws.Len() != 0 {
		t.Errorf("Len() = %d", ws.Len())
	}
	if !errors.Is(st.Err, apperrors.ErrFileRead) {
		t.Errorf("Err = %v, want ErrFileRead", st.Err)
	}
}

type failingReader struct {
	r   io.Reader
	err error
}

func (f *failingReader) Read(p []byte) (int, error) {
	n, err := f.r.Read(p)
	if err == io.EOF {
		return n, f.err
	}
	return n, err
}

func (f *failingReader) Close() error { return nil }

func TestIndexReadFailureKeepsHeldWord(t *testing.T) {
	rec := &recorder{}
	fi := New(config.IndexerConfig{ChunkSize: 4}, rec, nil)
	fi.open = func(string) (io.ReadCloser, error) {
		return &failingReader{r: strings.NewReader("alpha be"), err: errors.New("device gone")}, nil
	}

	ws, st := fi.Index(context.Background(), "flaky.txt")
	want := map[string]uint64{"alpha": 1, "be": 1}
	if got := countsOf(ws); !reflect.DeepEqual(got, want) {
		t.Errorf("counts = %v, want %v", got, want)
	}
	if !errors.Is(st.Err, apperrors.ErrFileRead) {
		t.Errorf("Err = %v, want ErrFileRead", st.Err)
	}
	if st.Bytes != 8 || st.Words != 2 {
		t.Errorf("stats = %+v", st)
	}
	if !rec.contains("File Name: flaky.txt - Read failed after 8 bytes: device gone") {
		t.Errorf("messages = %q", rec.msgs)
	}
}

func TestIndexProgressAndMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewWithRegistry(reg)
	rec := &recorder{}
	path := writeFile(t, "p.txt", "one two three four")
	fi := New(config.IndexerConfig{ChunkSize: 5, ProgressEvery: 2}, rec, m)

	fi.Index(context.Background(), path)
	fi.Index(context.Background(), filepath.Join(t.TempDir(), "missing"))

	if !rec.contains("Read chunk 2 ") || !rec.contains("Read chunk 4 ") {
		t.Errorf("missing progress messages: %q", rec.msgs)
	}
	if rec.contains("Read chunk 1 ") {
		t.Errorf("progress reported off-interval: %q", rec.msgs)
	}
	if got := testutil.ToFloat64(m.FilesIndexedTotal.WithLabelValues("ok")); got != 1 {
		t.Errorf("ok files = %v", got)
	}
	if got := testutil.ToFloat64(m.FilesIndexedTotal.WithLabelValues("open_failed")); got != 1 {
		t.Errorf("open_failed files = %v", got)
	}
	if got := testutil.ToFloat64(m.WordsCountedTotal); got != 4 {
		t.Errorf("words = %v", got)
	}
	if got := testutil.ToFloat64(m.BytesReadTotal); got != 18 {
		t.Errorf("bytes = %v", got)
	}
}
