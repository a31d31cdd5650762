package logsink

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"

	apperrors "github.com/Adithya-Monish-Kumar-K/file-indexer/pkg/errors"
)

// DefaultLogFile is the file a FileWriter records to until SetLogFile is
// called.
const DefaultLogFile = ".application-logger.log"

// FileWriter appends messages, one per line, to a log file. The file is
// opened on first use so a writer that never receives a message never
// creates one.
type FileWriter struct {
	mu     sync.Mutex
	path   string
	file   *os.File
	logger *slog.Logger
}

func NewFileWriter() *FileWriter {
	return &FileWriter{
		path:   DefaultLogFile,
		logger: slog.Default().With("component", "log-file"),
	}
}

// SetLogFile switches to path. If path cannot be opened the writer keeps
// recording to the file it used before and returns an error wrapping
// ErrFileOpen.
func (f *FileWriter) SetLogFile(path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if path == "" {
		return fmt.Errorf("empty log file name: %w", apperrors.ErrFileOpen)
	}
	if path == f.path && f.file != nil {
		return nil
	}
	file, err := openAppend(path)
	if err != nil {
		f.logger.Warn("cannot switch log file, keeping previous", "requested", path, "current", f.path, "error", err)
		return fmt.Errorf("opening log file %s: %w: %w", path, apperrors.ErrFileOpen, err)
	}
	if f.file != nil {
		f.file.Close()
	}
	f.file = file
	f.path = path
	f.logger.Info("recording log to file", "path", path)
	return nil
}

// Path reports the file currently in use.
func (f *FileWriter) Path() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.path
}

func (f *FileWriter) Write(_ context.Context, lines []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.file == nil {
		file, err := openAppend(f.path)
		if err != nil {
			return fmt.Errorf("opening log file %s: %w: %w", f.path, apperrors.ErrFileOpen, err)
		}
		f.file = file
	}
	w := bufio.NewWriter(f.file)
	for _, line := range lines {
		w.WriteString(line)
		w.WriteByte('\n')
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("writing log file %s: %w", f.path, err)
	}
	return nil
}

func (f *FileWriter) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.file == nil {
		return nil
	}
	err := f.file.Close()
	f.file = nil
	return err
}

func openAppend(path string) (*os.File, error) {
	return os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
}
