// Package logsink carries the indexer's freeform progress messages to their
// destinations: a local log file and, optionally, Kafka, Redis pub/sub and
// PostgreSQL. Producers only see the Sink interface.
package logsink

import (
	"errors"
	"log/slog"
)

// Sink receives freeform progress messages. Message must be safe for
// concurrent use and must never fail the caller.
type Sink interface {
	Message(msg string)
}

// Closer is a Sink that holds resources which must be released once the run
// has signalled completion.
type Closer interface {
	Sink
	Close() error
}

// Nop discards every message.
type Nop struct{}

func (Nop) Message(string) {}

// Multi fans each message out to every sink in order.
type Multi []Sink

func (m Multi) Message(msg string) {
	for _, s := range m {
		s.Message(msg)
	}
}

// Close closes every member that implements Closer and joins their errors.
func (m Multi) Close() error {
	var errs []error
	for _, s := range m {
		if c, ok := s.(Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// SlogSink mirrors messages into structured logging at debug level.
type SlogSink struct {
	logger *slog.Logger
}

func NewSlogSink(logger *slog.Logger) *SlogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogSink{logger: logger.With("component", "progress")}
}

func (s *SlogSink) Message(msg string) {
	s.logger.Debug(msg)
}
