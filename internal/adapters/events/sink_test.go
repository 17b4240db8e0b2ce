package events

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/dkeye/fieldcast/internal/config"
	"github.com/dkeye/fieldcast/internal/core"
	"github.com/dkeye/fieldcast/internal/domain"
)

type memorySink struct {
	mu      sync.Mutex
	records []domain.SessionRecord
	closed  bool
	block   chan struct{}
}

func (m *memorySink) SessionEnded(_ context.Context, rec domain.SessionRecord) error {
	if m.block != nil {
		<-m.block
	}
	m.mu.Lock()
	m.records = append(m.records, rec)
	m.mu.Unlock()
	return nil
}

func (m *memorySink) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}

func TestAsyncSinkDrainsOnClose(t *testing.T) {
	mem := &memorySink{}
	s := NewAsyncSink(mem, 16)
	for _, id := range []domain.Identity{"alice", "bob", "carol"} {
		if err := s.SessionEnded(context.Background(), domain.SessionRecord{Identity: id}); err != nil {
			t.Fatalf("SessionEnded(%s) error = %v", id, err)
		}
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if len(mem.records) != 3 {
		t.Errorf("delivered = %d, want 3", len(mem.records))
	}
	if mem.records[0].Identity != "alice" || mem.records[2].Identity != "carol" {
		t.Errorf("order = %v, want alice..carol", mem.records)
	}
	if !mem.closed {
		t.Error("wrapped sink not closed")
	}
	if err := s.SessionEnded(context.Background(), domain.SessionRecord{}); !errors.Is(err, ErrSinkClosed) {
		t.Errorf("SessionEnded() after close error = %v, want ErrSinkClosed", err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}

func TestAsyncSinkFullQueue(t *testing.T) {
	mem := &memorySink{block: make(chan struct{})}
	s := NewAsyncSink(mem, 1)

	var err error
	// The worker holds one record and the queue holds one more.
	for range 3 {
		err = s.SessionEnded(context.Background(), domain.SessionRecord{Identity: "alice"})
	}
	if !errors.Is(err, core.ErrBackpressure) {
		t.Errorf("SessionEnded() on full queue error = %v, want ErrBackpressure", err)
	}
	close(mem.block)
	_ = s.Close()
}

func TestNewSelectsDriver(t *testing.T) {
	s, err := New(config.SinkConfig{Driver: "log", Buffer: 4})
	if err != nil {
		t.Fatalf("New(log) error = %v", err)
	}
	if err := s.SessionEnded(context.Background(), domain.SessionRecord{Identity: "alice", Reason: domain.ReasonExplicit}); err != nil {
		t.Errorf("SessionEnded() error = %v", err)
	}
	_ = s.Close()

	if _, err := New(config.SinkConfig{Driver: "carrier-pigeon"}); err == nil {
		t.Error("New(unknown) error = nil, want error")
	}
}
