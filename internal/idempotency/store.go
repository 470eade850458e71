package idempotency

import (
	"context"
	"sync"
	"time"
)

// Record is what is remembered for one Idempotency-Key. A record without
// Done is a request still in flight.
type Record struct {
	Fingerprint string `json:"fingerprint"`
	Done        bool   `json:"done"`
	StatusCode  int    `json:"status_code,omitempty"`
	Body        []byte `json:"body,omitempty"`
}

// Store remembers responses of idempotent requests. Implementations must be
// safe for concurrent use.
type Store interface {
	// Reserve claims key for a new request. When the key is already taken it
	// returns the existing record and false.
	Reserve(ctx context.Context, key, fingerprint string) (*Record, bool, error)
	// Complete stores the final response under a reserved key.
	Complete(ctx context.Context, key string, rec Record) error
	// Release forgets key so the request can be retried.
	Release(ctx context.Context, key string) error
}

type memoryEntry struct {
	rec     Record
	expires time.Time
}

// MemoryStore is an in-process Store for development and single-instance
// deployments. Entries expire after the TTL and are dropped lazily.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	ttl     time.Duration
	now     func() time.Time
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an in-memory store whose entries live for ttl.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{entries: make(map[string]memoryEntry), ttl: ttl, now: time.Now}
}

// Reserve claims key unless a live entry exists.
func (s *MemoryStore) Reserve(_ context.Context, key, fingerprint string) (*Record, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if e, ok := s.entries[key]; ok && now.Before(e.expires) {
		rec := e.rec
		return &rec, false, nil
	}
	s.entries[key] = memoryEntry{rec: Record{Fingerprint: fingerprint}, expires: now.Add(s.ttl)}
	return nil, true, nil
}

// Complete stores rec under key and restarts its TTL.
func (s *MemoryStore) Complete(_ context.Context, key string, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec.Done = true
	s.entries[key] = memoryEntry{rec: rec, expires: s.now().Add(s.ttl)}
	return nil
}

// Release deletes key.
func (s *MemoryStore) Release(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}
