package session

import (
	"context"
	"sync"
	"time"

	"ai-docchat-be/pkg/rag/index"
	"ai-docchat-be/pkg/store"
)

// Session holds the conversation state for one loaded document. The index is
// exclusively owned by the session and released with it. Mutable state is
// guarded by mu; pipeline execution is serialized by the gate, never by mu,
// so the data lock is never held across network calls.
type Session struct {
	ID        string
	Title     string
	SourceURL string
	CreatedAt time.Time
	Index     *index.DocumentIndex

	clock Clock
	gate  chan struct{}

	mu           sync.Mutex
	lastAccessed time.Time
	history      []store.Turn
	topicHistory []string
}

func newSession(id, title, sourceURL string, ix *index.DocumentIndex, clock Clock) *Session {
	now := clock.Now()
	return &Session{
		ID:           id,
		Title:        title,
		SourceURL:    sourceURL,
		CreatedAt:    now,
		Index:        ix,
		clock:        clock,
		gate:         make(chan struct{}, 1),
		lastAccessed: now,
	}
}

// AcquireGate claims the session's single-flight slot, blocking until the
// slot frees up or ctx is done. Concurrent requests on one session serialize
// here; different sessions never contend.
func (s *Session) AcquireGate(ctx context.Context) error {
	select {
	case s.gate <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ReleaseGate frees the slot claimed by AcquireGate.
func (s *Session) ReleaseGate() {
	<-s.gate
}

// AppendTurn records a completed exchange: the raw question, the answer, and
// the question's topic labels, refreshing last access. All of it lands
// atomically under the session lock.
func (s *Session) AppendTurn(question, answer string, labels []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, store.Turn{Question: question, Answer: answer})
	s.topicHistory = append(s.topicHistory, labels...)
	s.lastAccessed = s.clock.Now()
}

// History returns a copy of the completed turns, oldest first.
func (s *Session) History() []store.Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]store.Turn, len(s.history))
	copy(out, s.history)
	return out
}

// RecentTopics returns a copy of the last n recorded topic labels,
// oldest first.
func (s *Session) RecentTopics(n int) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n <= 0 || len(s.topicHistory) == 0 {
		return nil
	}
	if n > len(s.topicHistory) {
		n = len(s.topicHistory)
	}
	out := make([]string, n)
	copy(out, s.topicHistory[len(s.topicHistory)-n:])
	return out
}

func (s *Session) MessageCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.history)
}

func (s *Session) LastAccessed() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastAccessed
}

// touch refreshes last access.
func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastAccessed = now
}

// expired reports whether the session has been idle longer than timeout.
func (s *Session) expired(now time.Time, timeout time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return now.Sub(s.lastAccessed) > timeout
}

// snapshot captures read-only session facts without refreshing last access.
func (s *Session) snapshot(now time.Time, timeout time.Duration) *Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return &Snapshot{
		SessionID:    s.ID,
		Title:        s.Title,
		SourceURL:    s.SourceURL,
		CreatedAt:    s.CreatedAt,
		LastAccessed: s.lastAccessed,
		MessageCount: len(s.history),
		IsExpired:    now.Sub(s.lastAccessed) > timeout,
	}
}

// Snapshot is a point-in-time view of a session for inspection endpoints.
type Snapshot struct {
	SessionID    string    `json:"session_id"`
	Title        string    `json:"article_title"`
	SourceURL    string    `json:"article_url"`
	CreatedAt    time.Time `json:"created_at"`
	LastAccessed time.Time `json:"last_accessed"`
	MessageCount int       `json:"message_count"`
	IsExpired    bool      `json:"is_expired"`
}
