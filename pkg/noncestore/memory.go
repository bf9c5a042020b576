package noncestore

import (
	"sync"
	"time"
)

// MemoryStore is a mutex-guarded in-process Store that sweeps expired
// entries on every insertion attempt, grounded on the same pattern the
// teacher uses for its in-memory rate-limiter visitor map.
type MemoryStore struct {
	ttlSecs int64
	mu      sync.Mutex
	seen    map[string]int64 // nonce -> created
	now     func() int64
}

// NewMemoryStore returns a MemoryStore with the given TTL in seconds.
func NewMemoryStore(ttlSecs int64) *MemoryStore {
	return &MemoryStore{
		ttlSecs: ttlSecs,
		seen:    make(map[string]int64),
		now:     func() int64 { return time.Now().Unix() },
	}
}

// Seen reports whether nonce was already recorded within the TTL window,
// recording it otherwise. Expired entries are swept first so long-lived
// processes do not leak memory.
func (s *MemoryStore) Seen(nonce string, created int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for n, ts := range s.seen {
		if now-ts > s.ttlSecs {
			delete(s.seen, n)
		}
	}

	_, existed := s.seen[nonce]
	s.seen[nonce] = created
	return existed, nil
}
