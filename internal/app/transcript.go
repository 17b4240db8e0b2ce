package app

import (
	"fmt"
	"strings"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/dkeye/fieldcast/internal/domain"
)

const (
	transcriptShards = 16
	DefaultSeparator = " "
)

// transcriptBuffer: committed only grows; pending is replaced wholesale.
type transcriptBuffer struct {
	committed strings.Builder
	pending   string
}

type transcriptShard struct {
	mu      sync.Mutex
	buffers map[domain.Identity]*transcriptBuffer
}

// Transcripts is the Transcript Merger. Partials are full re-transcriptions of
// the unconfirmed audio, so a late partial can only misdisplay until the next
// update; it never touches committed text.
type Transcripts struct {
	separator string
	shards    [transcriptShards]*transcriptShard
}

func NewTranscripts(separator string) *Transcripts {
	t := &Transcripts{separator: separator}
	for i := range t.shards {
		t.shards[i] = &transcriptShard{buffers: make(map[domain.Identity]*transcriptBuffer)}
	}
	return t
}

func (t *Transcripts) shard(id domain.Identity) *transcriptShard {
	return t.shards[xxhash.Sum64String(string(id))%transcriptShards]
}

// Open creates an empty buffer, discarding any leftover one.
func (t *Transcripts) Open(id domain.Identity) {
	sh := t.shard(id)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	sh.buffers[id] = &transcriptBuffer{}
}

func (t *Transcripts) AppendFinal(id domain.Identity, text string) error {
	return t.update(id, func(b *transcriptBuffer) {
		b.committed.WriteString(text)
		b.committed.WriteString(t.separator)
		b.pending = ""
	})
}

func (t *Transcripts) SetPartial(id domain.Identity, text string) error {
	return t.update(id, func(b *transcriptBuffer) {
		b.pending = text
	})
}

func (t *Transcripts) update(id domain.Identity, fn func(*transcriptBuffer)) error {
	sh := t.shard(id)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	b, ok := sh.buffers[id]
	if !ok {
		return fmt.Errorf("transcript %s: %w", id, domain.ErrNotFound)
	}
	fn(b)
	return nil
}

// CurrentView is committed text followed by the pending partial.
func (t *Transcripts) CurrentView(id domain.Identity) (string, error) {
	sh := t.shard(id)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	b, ok := sh.buffers[id]
	if !ok {
		return "", fmt.Errorf("transcript %s: %w", id, domain.ErrNotFound)
	}
	return b.committed.String() + b.pending, nil
}

// Pending exposes the unconfirmed partial.
func (t *Transcripts) Pending(id domain.Identity) (string, error) {
	sh := t.shard(id)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	b, ok := sh.buffers[id]
	if !ok {
		return "", fmt.Errorf("transcript %s: %w", id, domain.ErrNotFound)
	}
	return b.pending, nil
}

// Finalize returns the committed text and destroys the buffer.
func (t *Transcripts) Finalize(id domain.Identity) (string, bool) {
	sh := t.shard(id)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	b, ok := sh.buffers[id]
	if !ok {
		return "", false
	}
	delete(sh.buffers, id)
	return b.committed.String(), true
}
