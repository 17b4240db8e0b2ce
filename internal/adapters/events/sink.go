// Package events publishes one record per ended session to an external sink.
package events

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dkeye/fieldcast/internal/config"
	"github.com/dkeye/fieldcast/internal/core"
	"github.com/dkeye/fieldcast/internal/domain"
	"github.com/rs/zerolog/log"
)

var ErrSinkClosed = errors.New("session sink closed")

// LogSink writes records to the process log only.
type LogSink struct{}

func (LogSink) SessionEnded(_ context.Context, rec domain.SessionRecord) error {
	log.Info().Str("module", "events").
		Str("identity", string(rec.Identity)).
		Str("conn_id", string(rec.ConnID)).
		Str("reason", string(rec.Reason)).
		Int64("duration_ms", rec.DurationMS).
		Int("transcript_len", len(rec.Transcript)).
		Msg("session record")
	return nil
}

func (LogSink) Close() error { return nil }

// AsyncSink queues records for a single worker so callers never wait on
// sink I/O. A full queue drops the record.
type AsyncSink struct {
	next  core.SessionSink
	queue chan domain.SessionRecord
	done  chan struct{}

	mu     sync.RWMutex
	closed bool
}

func NewAsyncSink(next core.SessionSink, buffer int) *AsyncSink {
	if buffer <= 0 {
		buffer = 1
	}
	s := &AsyncSink{
		next:  next,
		queue: make(chan domain.SessionRecord, buffer),
		done:  make(chan struct{}),
	}
	go s.run()
	return s
}

func (s *AsyncSink) run() {
	defer close(s.done)
	for rec := range s.queue {
		if err := s.next.SessionEnded(context.Background(), rec); err != nil {
			log.Error().Err(err).Str("module", "events").Str("identity", string(rec.Identity)).Msg("deliver session record")
		}
	}
}

func (s *AsyncSink) SessionEnded(_ context.Context, rec domain.SessionRecord) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrSinkClosed
	}
	select {
	case s.queue <- rec:
		return nil
	default:
		return fmt.Errorf("session record for %s: %w", rec.Identity, core.ErrBackpressure)
	}
}

// Close drains queued records, then closes the wrapped sink.
func (s *AsyncSink) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.queue)
	s.mu.Unlock()

	<-s.done
	return s.next.Close()
}

// New builds the sink named by cfg.Driver, wrapped in an AsyncSink.
func New(cfg config.SinkConfig) (*AsyncSink, error) {
	var (
		next core.SessionSink
		err  error
	)
	switch cfg.Driver {
	case "", "log":
		next = LogSink{}
	case "kafka":
		next, err = NewKafkaSink(cfg.Kafka.Brokers, cfg.Kafka.Topic)
	case "redis":
		next, err = NewRedisSink(cfg.Redis)
	default:
		return nil, fmt.Errorf("unknown sink driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}
	log.Info().Str("module", "events").Str("driver", cfg.Driver).Int("buffer", cfg.Buffer).Msg("session sink ready")
	return NewAsyncSink(next, cfg.Buffer), nil
}
