package counter

import (
	"context"
	"sync"
)

// Sink accumulates named counters.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: Increment is fire-and-forget and reports nothing; a sink that
//   cannot record an increment logs and drops it. Total may error for
//   sinks backed by remote storage.
type Sink interface {
	// Increment adds amount to the named counter. Amounts are positive;
	// batched increments (e.g. lines processed) pass the batch size.
	Increment(ctx context.Context, name string, amount int64)

	// Total returns the accumulated value of the named counter. An
	// unknown name reads as zero.
	Total(ctx context.Context, name string) (int64, error)
}

// MemorySink is an in-memory Sink.
type MemorySink struct {
	mu     sync.Mutex
	totals map[string]int64
}

// NewMemorySink creates an empty in-memory sink.
func NewMemorySink() *MemorySink {
	return &MemorySink{totals: make(map[string]int64)}
}

// Increment adds amount to the named counter.
func (s *MemorySink) Increment(_ context.Context, name string, amount int64) {
	s.mu.Lock()
	s.totals[name] += amount
	s.mu.Unlock()
}

// Total returns the accumulated value of the named counter.
func (s *MemorySink) Total(_ context.Context, name string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.totals[name], nil
}

// Ensure MemorySink implements Sink
var _ Sink = (*MemorySink)(nil)
