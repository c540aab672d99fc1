package events

import (
	"log/slog"
	"sync"

	"github.com/aquamind/batchsim/pkg/simerr"
)

// BulkPublisher buffers envelopes in memory and flushes them to a Sink in
// batches, matching the "bulk modes are permitted" allowance in §6. A
// publisher failure is non-fatal per §7 (KindPublisher): Flush logs it and
// returns it, never blocking domain progress. The failed batch is dropped;
// nothing re-sends it.
type BulkPublisher struct {
	mu       sync.Mutex
	buffer   []Envelope
	flushAt  int
	sink     Sink
	log      *slog.Logger
}

// Sink receives flushed batches of envelopes, e.g. a file writer or the
// pgx-backed store's bulk insert path.
type Sink interface {
	WriteBatch(es []Envelope) error
}

// NewBulkPublisher builds a publisher flushing to sink every flushAt
// buffered envelopes (flushAt <= 0 disables automatic flushing; callers
// must call Flush explicitly, e.g. at end-of-batch).
func NewBulkPublisher(sink Sink, flushAt int) *BulkPublisher {
	return &BulkPublisher{sink: sink, flushAt: flushAt, log: slog.With("component", "events.BulkPublisher")}
}

// Publish buffers a single envelope, flushing automatically once flushAt is
// reached.
func (p *BulkPublisher) Publish(e Envelope) error {
	return p.PublishBulk([]Envelope{e})
}

// PublishBulk buffers multiple envelopes at once (the engine's preferred
// per-day call shape: one call per day covering all of that day's events).
func (p *BulkPublisher) PublishBulk(es []Envelope) error {
	p.mu.Lock()
	p.buffer = append(p.buffer, es...)
	shouldFlush := p.flushAt > 0 && len(p.buffer) >= p.flushAt
	p.mu.Unlock()

	if shouldFlush {
		return p.Flush()
	}
	return nil
}

// Flush writes all buffered envelopes to the sink and clears the buffer
// regardless of outcome (a publisher failure must not block domain
// progress — the caller logs and moves on).
func (p *BulkPublisher) Flush() error {
	p.mu.Lock()
	batch := p.buffer
	p.buffer = nil
	p.mu.Unlock()

	if len(batch) == 0 {
		return nil
	}
	if err := p.sink.WriteBatch(batch); err != nil {
		p.log.Warn("event sink write failed", "count", len(batch), "error", err)
		return simerr.Wrap(simerr.KindPublisher, "", 0, "", "", err)
	}
	return nil
}

// Buffered returns the number of envelopes currently held in memory
// (used by tests and by metrics collection).
func (p *BulkPublisher) Buffered() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.buffer)
}

// MemorySink is an in-memory Sink, useful for tests and for the
// assimilation pass (§4.7) which reads back the full emitted stream.
type MemorySink struct {
	mu   sync.Mutex
	All  []Envelope
}

// NewMemorySink builds an empty MemorySink.
func NewMemorySink() *MemorySink { return &MemorySink{} }

// WriteBatch appends a batch to the in-memory log.
func (s *MemorySink) WriteBatch(es []Envelope) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.All = append(s.All, es...)
	return nil
}

// Snapshot returns a copy of everything written so far.
func (s *MemorySink) Snapshot() []Envelope {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Envelope, len(s.All))
	copy(out, s.All)
	return out
}
