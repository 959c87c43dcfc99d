package session

import (
	"sync"
	"time"
)

// Session is what the bot remembers about one chat.
type Session struct {
	ChatID       int64
	Username     string
	BrandID      string
	LastActivity time.Time
}

type Options struct {
	// IdleTTL drops sessions untouched for longer than this. Zero keeps
	// them forever.
	IdleTTL time.Duration
	Now     func() time.Time
}

type Store struct {
	mu       sync.Mutex
	sessions map[int64]*Session
	idleTTL  time.Duration
	now      func() time.Time
}

func NewStore(opts Options) *Store {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Store{
		sessions: make(map[int64]*Session),
		idleTTL:  opts.IdleTTL,
		now:      now,
	}
}

func (s *Store) SetBrand(chatID int64, username, brandID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.getOrCreateLocked(chatID, username)
	sess.BrandID = brandID
}

// Brand returns the chat's active brand id.
func (s *Store) Brand(chatID int64) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[chatID]
	if !ok || s.expiredLocked(sess) {
		delete(s.sessions, chatID)
		return "", false
	}
	sess.LastActivity = s.now()
	return sess.BrandID, sess.BrandID != ""
}

func (s *Store) Clear(chatID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, chatID)
}

// Sweep removes idle sessions and reports how many were dropped.
func (s *Store) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, sess := range s.sessions {
		if s.expiredLocked(sess) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

func (s *Store) expiredLocked(sess *Session) bool {
	return s.idleTTL > 0 && s.now().Sub(sess.LastActivity) > s.idleTTL
}

func (s *Store) getOrCreateLocked(chatID int64, username string) *Session {
	now := s.now()
	if sess, ok := s.sessions[chatID]; ok {
		if sess.Username == "" && username != "" {
			sess.Username = username
		}
		sess.LastActivity = now
		return sess
	}

	sess := &Session{
		ChatID:       chatID,
		Username:     username,
		LastActivity: now,
	}
	s.sessions[chatID] = sess
	return sess
}
