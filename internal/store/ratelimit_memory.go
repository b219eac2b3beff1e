package store

import (
	"context"
	"sync"
	"time"
)

// RateLimitMemoryStore is an in-memory implementation of ratelimit.Store.
type RateLimitMemoryStore struct {
	mu       sync.Mutex
	requests map[string][]time.Time
	now      func() time.Time
}

// NewRateLimitMemoryStore creates a new in-memory rate limit store.
func NewRateLimitMemoryStore() *RateLimitMemoryStore {
	return &RateLimitMemoryStore{
		requests: make(map[string][]time.Time),
		now:      time.Now,
	}
}

// Record adds a hit for key and returns the number of hits inside window,
// including this one. Hits older than window are dropped in place.
func (s *RateLimitMemoryStore) Record(_ context.Context, key string, window time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	cutoff := now.Add(-window)

	hits := s.requests[key]

	// hits are appended in time order, so expired ones form a prefix
	first := 0
	for first < len(hits) && !hits[first].After(cutoff) {
		first++
	}

	hits = append(hits[first:], now)
	s.requests[key] = hits

	return int64(len(hits)), nil
}

// Keys returns how many clients currently have tracked hits.
func (s *RateLimitMemoryStore) Keys() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.requests)
}
