package usecase

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rocketscienceinc/tictactoe-solo/internal/apperror"
)

const DefaultSessionIdleTTL = 30 * time.Minute

type session struct {
	game     *GameManager
	lastSeen time.Time
}

// SessionManager keeps independent games apart, one GameManager per session.
// Sessions untouched for longer than the idle TTL are dropped on the next Create.
type SessionManager struct {
	logger  *slog.Logger
	factory func() *GameManager

	idleTTL time.Duration
	now     func() time.Time

	mu       sync.Mutex
	sessions map[string]*session
}

func NewSessionManager(logger *slog.Logger, factory func() *GameManager, idleTTL time.Duration) *SessionManager {
	if idleTTL <= 0 {
		idleTTL = DefaultSessionIdleTTL
	}

	return &SessionManager{
		logger:   logger.With("component", "sessions"),
		factory:  factory,
		idleTTL:  idleTTL,
		now:      time.Now,
		sessions: make(map[string]*session),
	}
}

// Create opens a session with a game in NotStarted.
func (that *SessionManager) Create() (string, *GameManager) {
	id := uuid.NewString()
	game := that.factory()

	that.mu.Lock()
	now := that.now()
	evicted := that.evictIdle(now)
	that.sessions[id] = &session{game: game, lastSeen: now}
	total := len(that.sessions)
	that.mu.Unlock()

	that.logger.Info("session created", "sessionID", id, "sessions", total, "evicted", evicted)

	return id, game
}

// Get returns the session's game and marks the session as used.
func (that *SessionManager) Get(id string) (*GameManager, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	s, ok := that.sessions[id]
	if !ok {
		return nil, apperror.ErrSessionNotFound
	}
	s.lastSeen = that.now()

	return s.game, nil
}

// Delete drops the session. A game still in progress is abandoned.
func (that *SessionManager) Delete(id string) error {
	that.mu.Lock()
	s, ok := that.sessions[id]
	delete(that.sessions, id)
	that.mu.Unlock()

	if !ok {
		return apperror.ErrSessionNotFound
	}

	s.game.Reset()

	that.logger.Info("session deleted", "sessionID", id)

	return nil
}

func (that *SessionManager) Len() int {
	that.mu.Lock()
	defer that.mu.Unlock()

	return len(that.sessions)
}

// evictIdle must be called with mu held.
func (that *SessionManager) evictIdle(now time.Time) int {
	evicted := 0

	for id, s := range that.sessions {
		if now.Sub(s.lastSeen) <= that.idleTTL {
			continue
		}

		delete(that.sessions, id)
		s.game.Reset()
		evicted++

		that.logger.Info("session expired", "sessionID", id, "idle", now.Sub(s.lastSeen))
	}

	return evicted
}
