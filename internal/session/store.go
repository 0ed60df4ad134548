package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/crash-data-engine/internal/observability"
	"github.com/couchcryptid/crash-data-engine/internal/query"
	"github.com/couchcryptid/crash-data-engine/internal/validation"
)

// ErrSessionNotFound reports a session ID with no live session behind it,
// including sessions already evicted for idling past the TTL.
var ErrSessionNotFound = errors.New("session not found")

// Session is one user's engine state: the primary filter and the drill-down
// selection, plus the bookkeeping TTL eviction runs on.
type Session struct {
	ID        string           `json:"id"`
	Filter    query.FilterSpec `json:"filter"`
	DrillDown DrillDownState   `json:"drill_down"`
	CreatedAt time.Time        `json:"created_at"`
	LastSeen  time.Time        `json:"last_seen"`
}

// Store is an in-memory session registry safe for concurrent use. Sessions
// idle past the TTL are evicted on access and by Sweep; every access
// refreshes the idle timer.
type Store struct {
	ttl     time.Duration
	clock   clockwork.Clock
	logger  *slog.Logger
	metrics *observability.Metrics

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewStore creates a Store evicting sessions idle longer than ttl.
func NewStore(ttl time.Duration, clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) *Store {
	return &Store{
		ttl:      ttl,
		clock:    clock,
		logger:   logger,
		metrics:  metrics,
		sessions: make(map[string]*Session),
	}
}

// Create registers a new session with the default filter and no drill-down
// selection, and returns it.
func (s *Store) Create() Session {
	now := s.clock.Now()
	sess := &Session{
		ID:        uuid.NewString(),
		Filter:    query.DefaultFilter(),
		CreatedAt: now,
		LastSeen:  now,
	}

	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()

	s.metrics.ActiveSessions.Inc()
	s.logger.Debug("session created", "session_id", sess.ID)
	return *sess
}

// Get returns a copy of the session and refreshes its idle timer. An expired
// session is evicted on sight.
func (s *Store) Get(id string) (Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.liveLocked(id)
	if !ok {
		return Session{}, false
	}
	sess.LastSeen = s.clock.Now()
	return *sess, true
}

// SetFilter validates and stores the session's primary filter.
func (s *Store) SetFilter(id string, spec query.FilterSpec) error {
	if err := validation.ValidateStruct(spec); err != nil {
		return fmt.Errorf("set filter: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.liveLocked(id)
	if !ok {
		return ErrSessionNotFound
	}
	sess.Filter = spec
	sess.LastSeen = s.clock.Now()
	return nil
}

// SetDrillDown stores the session's drill-down state, normally the output of
// Reduce or Coordinator.Apply.
func (s *Store) SetDrillDown(id string, state DrillDownState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.liveLocked(id)
	if !ok {
		return ErrSessionNotFound
	}
	sess.DrillDown = state
	sess.LastSeen = s.clock.Now()
	return nil
}

// Sweep evicts every expired session and returns how many went.
func (s *Store) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	evicted := 0
	for _, sess := range s.sessions {
		if s.expired(sess) {
			s.evictLocked(sess)
			evicted++
		}
	}
	if evicted > 0 {
		s.logger.Debug("sessions swept", "evicted", evicted, "remaining", len(s.sessions))
	}
	return evicted
}

// StartSweeping sweeps on the interval until ctx is done.
func (s *Store) StartSweeping(ctx context.Context, interval time.Duration) {
	ticker := s.clock.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.Chan():
				s.Sweep()
			}
		}
	}()
}

// Len returns the number of live sessions, counting expired ones not yet
// evicted.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// liveLocked resolves an ID to a live session, evicting it instead when it
// has expired. Callers hold s.mu.
func (s *Store) liveLocked(id string) (*Session, bool) {
	sess, ok := s.sessions[id]
	if !ok {
		return nil, false
	}
	if s.expired(sess) {
		s.evictLocked(sess)
		return nil, false
	}
	return sess, true
}

func (s *Store) expired(sess *Session) bool {
	return s.clock.Since(sess.LastSeen) > s.ttl
}

func (s *Store) evictLocked(sess *Session) {
	delete(s.sessions, sess.ID)
	s.metrics.ActiveSessions.Dec()
}
