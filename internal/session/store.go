// Package session holds short-lived per-user conversational memory: a
// bounded window of turns, the single pending expense, and user
// preferences. Sessions are created lazily and evicted by a TTL sweep.
package session

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/maazq/expensebot/internal/domain"
)

// Session is one user's conversational state. It is owned exclusively by
// the Store; callers must hold the user's lock while reading or mutating it.
type Session struct {
	UserID          string
	Pending         *domain.PendingExpense
	Preferences     map[string]string
	LastInteraction time.Time

	history []domain.ConversationTurn
}

// History returns a copy of the turn window, oldest first.
func (s *Session) History() []domain.ConversationTurn {
	out := make([]domain.ConversationTurn, len(s.history))
	copy(out, s.history)
	return out
}

// Archiver receives a session's transcript just before TTL eviction
// discards it. Failures are logged and ignored; archiving never blocks
// eviction.
type Archiver interface {
	ArchiveTranscript(userID string, turns []domain.ConversationTurn) error
}

// Store keeps every live session plus one mutex per user. The per-user
// mutex is the concurrency discipline for the whole dialogue layer:
// messages from one user are processed strictly in sequence, while
// different users proceed in parallel.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	locks    map[string]*sync.Mutex

	capacity int
	now      func() time.Time
	archiver Archiver
	log      zerolog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithClock injects the time source, for deterministic TTL tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithArchiver sets the transcript archiver invoked on eviction.
func WithArchiver(a Archiver) Option {
	return func(s *Store) { s.archiver = a }
}

// NewStore creates a session store whose histories hold at most capacity
// turns each.
func NewStore(capacity int, log zerolog.Logger, opts ...Option) *Store {
	if capacity <= 0 {
		capacity = 10
	}
	s := &Store{
		sessions: make(map[string]*Session),
		locks:    make(map[string]*sync.Mutex),
		capacity: capacity,
		now:      time.Now,
		log:      log,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Lock acquires the per-user mutex. Every message-processing cycle and
// every sweep mutation for that user runs inside it.
func (s *Store) Lock(userID string) {
	s.userMutex(userID).Lock()
}

// Unlock releases the per-user mutex.
func (s *Store) Unlock(userID string) {
	s.userMutex(userID).Unlock()
}

func (s *Store) userMutex(userID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.locks[userID]
	if !ok {
		m = &sync.Mutex{}
		s.locks[userID] = m
	}
	return m
}

// GetOrCreate returns the user's session, creating an empty one on first
// contact. Creation is idempotent: repeated calls for the same userID
// return the same instance.
func (s *Store) GetOrCreate(userID string) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[userID]
	if !ok {
		sess = &Session{
			UserID:          userID,
			Preferences:     make(map[string]string),
			LastInteraction: s.now(),
		}
		s.sessions[userID] = sess
	}
	return sess
}

// RecordTurn appends a turn to the user's history, evicting the oldest
// entry past capacity, and bumps the last-interaction timestamp.
func (s *Store) RecordTurn(userID string, turn domain.ConversationTurn) {
	sess := s.GetOrCreate(userID)

	s.mu.Lock()
	defer s.mu.Unlock()

	sess.history = append(sess.history, turn)
	if len(sess.history) > s.capacity {
		sess.history = sess.history[len(sess.history)-s.capacity:]
	}
	sess.LastInteraction = s.now()
}

// Pending returns the user's pending expense, or nil.
func (s *Store) Pending(userID string) *domain.PendingExpense {
	sess := s.GetOrCreate(userID)

	s.mu.RLock()
	defer s.mu.RUnlock()
	return sess.Pending.Clone()
}

// SetPending replaces the user's pending expense; nil clears it.
func (s *Store) SetPending(userID string, p *domain.PendingExpense) {
	sess := s.GetOrCreate(userID)

	s.mu.Lock()
	defer s.mu.Unlock()
	sess.Pending = p.Clone()
}

// SetPreference stores a free-form user preference (e.g. display name).
func (s *Store) SetPreference(userID, key, value string) {
	sess := s.GetOrCreate(userID)

	s.mu.Lock()
	defer s.mu.Unlock()
	sess.Preferences[key] = value
}

// Preference reads a preference; the empty string means unset.
func (s *Store) Preference(userID, key string) string {
	sess := s.GetOrCreate(userID)

	s.mu.RLock()
	defer s.mu.RUnlock()
	return sess.Preferences[key]
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Sweep removes every session idle for at least ttl and returns the count
// removed. It takes each candidate's per-user lock before touching the
// session, so it is safe to run concurrently with message processing for
// other users.
func (s *Store) Sweep(ttl time.Duration) int {
	now := s.now()

	s.mu.RLock()
	var candidates []string
	for id, sess := range s.sessions {
		if now.Sub(sess.LastInteraction) >= ttl {
			candidates = append(candidates, id)
		}
	}
	s.mu.RUnlock()

	removed := 0
	for _, id := range candidates {
		s.Lock(id)

		s.mu.Lock()
		sess, ok := s.sessions[id]
		// Re-check under the lock: the user may have spoken since the scan.
		if ok && now.Sub(sess.LastInteraction) >= ttl {
			transcript := sess.history
			delete(s.sessions, id)
			s.mu.Unlock()

			if s.archiver != nil && len(transcript) > 0 {
				if err := s.archiver.ArchiveTranscript(id, transcript); err != nil {
					s.log.Warn().Err(err).Str("user_id", id).Msg("Transcript archive failed")
				}
			}
			removed++
		} else {
			s.mu.Unlock()
		}

		s.Unlock(id)
	}

	if removed > 0 {
		s.log.Info().Int("removed", removed).Msg("Session sweep completed")
	}
	return removed
}
