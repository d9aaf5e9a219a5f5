package storage

import (
	"sort"
	"sync"
	"time"
)

// MemoryStore implements Store using an in-memory ring buffer.
// This is used when STORAGE=memory or as a fallback.
type MemoryStore struct {
	mu      sync.RWMutex
	samples []Sample
	maxRows int
	head    int // next write position
	count   int // actual count (may be less than len(samples) initially)
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore(maxRows int) *MemoryStore {
	if maxRows <= 0 {
		maxRows = 100000
	}
	return &MemoryStore{
		samples: make([]Sample, maxRows),
		maxRows: maxRows,
	}
}

// Insert adds samples, overwriting the oldest once the buffer is full.
func (s *MemoryStore) Insert(samples ...Sample) error {
	for _, smp := range samples {
		if smp.ProxyID == "" {
			return ErrMissingProxyID
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, smp := range samples {
		s.samples[s.head] = smp
		s.head = (s.head + 1) % s.maxRows
		if s.count < s.maxRows {
			s.count++
		}
	}
	return nil
}

// Range returns the samples of proxyID inside [from, to], oldest first.
func (s *MemoryStore) Range(proxyID string, from, to time.Time) ([]Sample, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	lo, hi := from.UnixMilli(), to.UnixMilli()
	var out []Sample
	for _, smp := range s.collectOrdered() {
		if smp.ProxyID != proxyID || smp.Timestamp < lo || smp.Timestamp > hi {
			continue
		}
		out = append(out, smp)
	}

	// Insert order is not timestamp order when clients backfill.
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp < out[j].Timestamp
	})
	return out, nil
}

// Proxies returns the distinct proxy ids held in the buffer.
func (s *MemoryStore) Proxies() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]struct{})
	for _, smp := range s.collectOrdered() {
		seen[smp.ProxyID] = struct{}{}
	}
	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// Close is a no-op for memory store.
func (s *MemoryStore) Close() error {
	return nil
}

// collectOrdered returns all samples in insertion order (oldest first).
func (s *MemoryStore) collectOrdered() []Sample {
	if s.count == 0 {
		return nil
	}

	result := make([]Sample, 0, s.count)
	start := (s.head - s.count + s.maxRows) % s.maxRows
	for i := 0; i < s.count; i++ {
		result = append(result, s.samples[(start+i)%s.maxRows])
	}
	return result
}
