package agent

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dgraph-io/ristretto"
	"github.com/google/uuid"
)

// ============================================================================
// SESSION STORE
// ============================================================================

// ErrAnalysisInFlight is returned when a session already has an
// analysis running.
var ErrAnalysisInFlight = errors.New("analysis already in flight for session")

// ErrSessionNotFound is returned when no report exists for a session.
var ErrSessionNotFound = errors.New("session not found")

// defaultSessionTTL is how long a finished report stays retrievable.
const defaultSessionTTL = 30 * time.Minute

// Sessions stores finished reports keyed by session ID, bounded in size
// and evicted by TTL, and guards against two concurrent runs for the
// same session.
type Sessions struct {
	cache *ristretto.Cache
	ttl   time.Duration

	mu       sync.Mutex
	inFlight map[string]bool
}

// NewSessions creates a store holding up to maxSessions reports. TTL of
// zero means 30 minutes.
func NewSessions(maxSessions int64, ttl time.Duration) (*Sessions, error) {
	if maxSessions <= 0 {
		maxSessions = 1024
	}
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: maxSessions * 10,
		MaxCost:     maxSessions,
		BufferItems: 64,
		// each report is cost 1; without this ristretto adds its
		// internal per-item overhead and rejects every entry
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, fmt.Errorf("create session cache: %w", err)
	}
	return &Sessions{cache: cache, ttl: ttl, inFlight: map[string]bool{}}, nil
}

// NewID returns a fresh session identifier.
func (s *Sessions) NewID() string {
	return uuid.NewString()
}

// begin marks a session as running. Fails if it already is.
func (s *Sessions) begin(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inFlight[id] {
		return fmt.Errorf("%w: %s", ErrAnalysisInFlight, id)
	}
	s.inFlight[id] = true
	return nil
}

// finish clears the in-flight mark and, when report is non-nil, stores
// it under the session ID.
func (s *Sessions) finish(id string, report *Report) {
	s.mu.Lock()
	delete(s.inFlight, id)
	s.mu.Unlock()
	if report != nil {
		s.cache.SetWithTTL(id, report, 1, s.ttl)
		s.cache.Wait()
	}
}

// Get returns the stored report for a session.
func (s *Sessions) Get(id string) (*Report, error) {
	v, ok := s.cache.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	report, ok := v.(*Report)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return report, nil
}

// Drop evicts a session's report.
func (s *Sessions) Drop(id string) {
	s.cache.Del(id)
}

// Close releases the cache.
func (s *Sessions) Close() {
	s.cache.Close()
}
