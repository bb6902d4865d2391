// Package chat implements the conversational session store and the
// orchestrator that turns a chat message into search context, detected
// intents, and a reply.
package chat

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"engram/internal/clock"
	"engram/internal/logging"
	"engram/internal/types"
)

// DefaultCapacity is the number of sessions kept in memory before the
// least-recently-touched one is evicted.
const DefaultCapacity = 100

// Writer is the persistence surface SessionStore writes through to.
// Satisfied by *store.LocalStore.
type Writer interface {
	UpsertSession(sess *types.Session) error
	DeleteSession(id string) error
}

// SessionStore is a capacity-bounded, mutex-guarded map of session id to
// Session, mirroring the in-memory-authority-plus-write-through pattern
// internal/action/task uses for tasks.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]*types.Session
	capacity int
	writer   Writer
	clock    clock.Clock
}

// NewSessionStore builds an empty store. writer may be nil (no
// write-through persistence, useful in tests).
func NewSessionStore(capacity int, writer Writer, c clock.Clock) *SessionStore {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &SessionStore{
		sessions: make(map[string]*types.Session),
		capacity: capacity,
		writer:   writer,
		clock:    c,
	}
}

// Get returns the session for id, if present.
func (s *SessionStore) Get(id string) (*types.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	return sess, ok
}

// GetOrCreate returns the existing session for id, or creates one. An empty
// id always creates a new session with a generated id.
func (s *SessionStore) GetOrCreate(id string) *types.Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id != "" {
		if sess, ok := s.sessions[id]; ok {
			return sess
		}
	}

	now := s.clock.Now()
	sess := &types.Session{
		ID:            nonEmptyOr(id, uuid.NewString()),
		StartedAt:     now,
		LastMessageAt: now,
	}

	if len(s.sessions) >= s.capacity {
		s.evictOldestLocked()
	}
	s.sessions[sess.ID] = sess
	s.writeThrough(sess)
	return sess
}

// Touch records a new turn: bumps last-message-at, increments the message
// count, and appends to the session's context blob.
func (s *SessionStore) Touch(id, contextAppend string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return
	}
	sess.LastMessageAt = s.clock.Now()
	sess.MessageCount++
	if sess.Context != "" {
		sess.Context += "\n"
	}
	sess.Context += contextAppend
	s.writeThrough(sess)
}

// Count reports the number of live sessions.
func (s *SessionStore) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *SessionStore) evictOldestLocked() {
	var oldestID string
	var oldestAt time.Time
	for id, sess := range s.sessions {
		if oldestID == "" || sess.LastMessageAt.Before(oldestAt) {
			oldestID = id
			oldestAt = sess.LastMessageAt
		}
	}
	if oldestID == "" {
		return
	}
	delete(s.sessions, oldestID)
	if s.writer != nil {
		if err := s.writer.DeleteSession(oldestID); err != nil {
			logging.ChatDebug("failed to delete evicted session %s: %v", oldestID, err)
		}
	}
}

func (s *SessionStore) writeThrough(sess *types.Session) {
	if s.writer == nil {
		return
	}
	if err := s.writer.UpsertSession(sess); err != nil {
		logging.ChatDebug("failed to persist session %s: %v", sess.ID, err)
	}
}

func nonEmptyOr(value, fallback string) string {
	if value != "" {
		return value
	}
	return fallback
}
