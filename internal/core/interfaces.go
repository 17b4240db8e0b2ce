package core

import (
	"context"
	"errors"

	"github.com/dkeye/fieldcast/internal/domain"
)

var ErrBackpressure = errors.New("backpressure")

// Frame is one encoded outbound message.
type Frame []byte

// SignalConnection abstracts for a system messaging transport
// Owned by the adapter; the adapter must Close() it.
type SignalConnection interface {
	// TrySend queues f without blocking; a full queue yields ErrBackpressure.
	TrySend(Frame) error
	Close()
}

// PublishResult reports delivery stats/backpressure to orchestrator.
type PublishResult struct {
	SendTo  int
	Dropped []domain.ConnID
}

// SessionSink receives the "session ended" fact for durable storage.
type SessionSink interface {
	SessionEnded(ctx context.Context, rec domain.SessionRecord) error
	Close() error
}
