// Package idempotency deduplicates mint requests by caller-supplied key.
// A key is claimed atomically before any network I/O; completed results
// are replayed verbatim, failed records are retryable.
package idempotency

import (
	"context"
	"sync"
	"time"
)

// Status is the lifecycle state of one keyed request.
type Status string

const (
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Record is the stored state for a key. Result holds the serialized
// MintResult for terminal records.
type Record struct {
	Status    Status    `json:"status"`
	Result    []byte    `json:"result,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Outcome of a Begin call.
type Outcome int

const (
	// OutcomeFresh: the key was claimed; the caller owns processing.
	OutcomeFresh Outcome = iota
	// OutcomeInProgress: another request holds the claim.
	OutcomeInProgress
	// OutcomeCached: a completed result exists and should be replayed.
	OutcomeCached
)

// BeginResult carries the cached payload when Outcome is OutcomeCached.
type BeginResult struct {
	Outcome Outcome
	Cached  []byte
}

// Store abstracts idempotency persistence. Begin must be atomic: two
// concurrent calls with the same fresh key see exactly one OutcomeFresh.
type Store interface {
	Begin(ctx context.Context, key string) (BeginResult, error)
	Complete(ctx context.Context, key string, result []byte) error
	Fail(ctx context.Context, key string, result []byte) error
}

// MemoryStore keeps records for the process lifetime. There is no record
// expiry; the map grows with distinct keys.
type MemoryStore struct {
	mu   sync.Mutex
	data map[string]Record
	now  func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: make(map[string]Record),
		now:  time.Now,
	}
}

func (m *MemoryStore) Begin(_ context.Context, key string) (BeginResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.data[key]
	if ok {
		switch rec.Status {
		case StatusProcessing:
			return BeginResult{Outcome: OutcomeInProgress}, nil
		case StatusCompleted:
			return BeginResult{Outcome: OutcomeCached, Cached: rec.Result}, nil
		}
		// failed records fall through: the caller may retry
	}

	m.data[key] = Record{Status: StatusProcessing, CreatedAt: m.now()}
	return BeginResult{Outcome: OutcomeFresh}, nil
}

func (m *MemoryStore) Complete(_ context.Context, key string, result []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = Record{Status: StatusCompleted, Result: result, CreatedAt: m.now()}
	return nil
}

func (m *MemoryStore) Fail(_ context.Context, key string, result []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = Record{Status: StatusFailed, Result: result, CreatedAt: m.now()}
	return nil
}

// Get exposes the raw record, mostly for tests and diagnostics.
func (m *MemoryStore) Get(_ context.Context, key string) (*Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.data[key]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

var _ Store = (*MemoryStore)(nil)
