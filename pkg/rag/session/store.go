package session

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"ai-docchat-be/pkg/apperrors"
	"ai-docchat-be/pkg/rag/index"
)

// DefaultTimeout is how long a session may sit idle before it expires.
const DefaultTimeout = 24 * time.Hour

// Stats summarizes the store, counting expired-but-unswept sessions.
type Stats struct {
	TotalSessions       int     `json:"total_sessions"`
	ActiveSessions      int     `json:"active_sessions"`
	ExpiredSessions     int     `json:"expired_sessions"`
	TotalMessages       int     `json:"total_messages"`
	SessionTimeoutHours float64 `json:"session_timeout_hours"`
}

// Store owns every live session. Safe for concurrent use: the map is guarded
// by an RWMutex, per-session state by the session's own lock. Expired
// sessions are removed lazily on Get and in bulk by Sweep.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	clock    Clock
	timeout  time.Duration
}

func NewStore(timeout time.Duration, clock Clock) *Store {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if clock == nil {
		clock = SystemClock{}
	}
	return &Store{
		sessions: make(map[string]*Session),
		clock:    clock,
		timeout:  timeout,
	}
}

// Create registers a new active session owning the given index.
func (s *Store) Create(ix *index.DocumentIndex, title, sourceURL string) *Session {
	sess := newSession(uuid.NewString(), title, sourceURL, ix, s.clock)
	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()
	return sess
}

// Get returns the session and refreshes its last access. Unknown ids and
// idle-expired sessions both report NotFound; expired ones are removed on
// the way out.
func (s *Store) Get(id string) (*Session, error) {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, apperrors.New(apperrors.KindNotFound, "Session not found or expired")
	}

	now := s.clock.Now()
	if sess.expired(now, s.timeout) {
		s.removeIfExpired(id, sess)
		return nil, apperrors.New(apperrors.KindNotFound, "Session not found or expired")
	}

	sess.touch(now)
	return sess, nil
}

// removeIfExpired deletes the session only if it is still the mapped one and
// still expired; a concurrent Get may have refreshed it in between.
func (s *Store) removeIfExpired(id string, sess *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.sessions[id]; ok && cur == sess && cur.expired(s.clock.Now(), s.timeout) {
		delete(s.sessions, id)
	}
}

// Delete removes the session unconditionally and reports whether it existed.
// Safe to call repeatedly and concurrently with Sweep.
func (s *Store) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.sessions[id]
	if ok {
		delete(s.sessions, id)
	}
	return ok
}

// Sweep removes every idle-expired session and returns how many went away.
func (s *Store) Sweep() int {
	now := s.clock.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, sess := range s.sessions {
		if sess.expired(now, s.timeout) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

// Info returns a read-only snapshot without refreshing last access, so
// inspection never keeps a dying session alive.
func (s *Store) Info(id string) (*Snapshot, error) {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, apperrors.New(apperrors.KindNotFound, "Session not found")
	}
	return sess.snapshot(s.clock.Now(), s.timeout), nil
}

// ListActive snapshots the non-expired sessions, ordered by creation time.
// Expired sessions are skipped but not removed; that is Sweep's job.
func (s *Store) ListActive() []*Snapshot {
	now := s.clock.Now()
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Snapshot, 0, len(s.sessions))
	for _, sess := range s.sessions {
		snap := sess.snapshot(now, s.timeout)
		if !snap.IsExpired {
			out = append(out, snap)
		}
	}
	sort.Slice(out, func(a, b int) bool {
		if !out[a].CreatedAt.Equal(out[b].CreatedAt) {
			return out[a].CreatedAt.Before(out[b].CreatedAt)
		}
		return out[a].SessionID < out[b].SessionID
	})
	return out
}

// Stats counts sessions and messages. Expired sessions that have not been
// swept yet still show up in the totals.
func (s *Store) Stats() Stats {
	now := s.clock.Now()
	s.mu.RLock()
	defer s.mu.RUnlock()
	stats := Stats{
		TotalSessions:       len(s.sessions),
		SessionTimeoutHours: s.timeout.Hours(),
	}
	for _, sess := range s.sessions {
		snap := sess.snapshot(now, s.timeout)
		if snap.IsExpired {
			stats.ExpiredSessions++
		} else {
			stats.ActiveSessions++
		}
		stats.TotalMessages += snap.MessageCount
	}
	return stats
}

// Len reports how many sessions the store currently holds, expired or not.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Timeout exposes the configured idle timeout.
func (s *Store) Timeout() time.Duration {
	return s.timeout
}
