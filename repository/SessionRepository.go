package repository

import (
	"context"
	"sync"
	"time"

	"github.com/ThanawawEikQ/dark-vista-shop/entities"
	"github.com/ThanawawEikQ/dark-vista-shop/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SessionRepository keeps per-visitor state: the cart, pending
// notifications, the admin sandbox and checkout progress. Sessions expire
// after a TTL that is refreshed on every update.
type SessionRepository interface {
	CreateSession(ctx context.Context) (session entities.Session, err error)
	GetSession(ctx context.Context, sessionId string) (session entities.Session, exists bool, err error)
	// UpdateSession runs fn on the current session and stores the result
	// atomically. If fn fails nothing is written and its error is returned.
	UpdateSession(ctx context.Context, sessionId string, fn func(s *entities.Session) error) (session entities.Session, err error)
	DeleteSession(ctx context.Context, sessionId string) (err error)
	DeleteExpired(ctx context.Context) (removed int, err error)
}

type MemorySessionRepo struct {
	mu       sync.Mutex
	sessions map[string]entities.Session
	ttl      time.Duration
	now      func() time.Time
	log      *zap.Logger
}

// NewMemorySessionRepository keeps sessions in process memory. now may be nil.
func NewMemorySessionRepository(ttl time.Duration, logger *zap.Logger, now func() time.Time) SessionRepository {
	if now == nil {
		now = time.Now
	}
	return &MemorySessionRepo{
		sessions: make(map[string]entities.Session),
		ttl:      ttl,
		now:      now,
		log:      logger,
	}
}

func (m *MemorySessionRepo) CreateSession(ctx context.Context) (session entities.Session, err error) {
	session = entities.NewSession(uuid.NewString())

	m.mu.Lock()
	defer m.mu.Unlock()
	session.ExpiresAt = m.now().Add(m.ttl)
	m.sessions[session.Id] = session
	m.log.Debug("session created", zap.String("session_id", session.Id))
	return session.Clone(), nil
}

func (m *MemorySessionRepo) GetSession(ctx context.Context, sessionId string) (session entities.Session, exists bool, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.lookup(sessionId)
	if !ok {
		return
	}
	return s.Clone(), true, nil
}

func (m *MemorySessionRepo) UpdateSession(ctx context.Context, sessionId string, fn func(s *entities.Session) error) (session entities.Session, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.lookup(sessionId)
	if !ok {
		err = models.ErrNotFoundError
		return
	}

	next := s.Clone()
	if err = fn(&next); err != nil {
		return
	}
	next.Id = sessionId
	next.ExpiresAt = m.now().Add(m.ttl)
	m.sessions[sessionId] = next
	return next.Clone(), nil
}

func (m *MemorySessionRepo) DeleteSession(ctx context.Context, sessionId string) (err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, sessionId)
	return
}

func (m *MemorySessionRepo) DeleteExpired(ctx context.Context) (removed int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	for id, s := range m.sessions {
		if !now.Before(s.ExpiresAt) {
			delete(m.sessions, id)
			removed++
		}
	}
	if removed > 0 {
		m.log.Debug("expired sessions removed", zap.Int("count", removed))
	}
	return
}

// lookup must be called with mu held.
func (m *MemorySessionRepo) lookup(sessionId string) (entities.Session, bool) {
	s, ok := m.sessions[sessionId]
	if !ok {
		return entities.Session{}, false
	}
	if !m.now().Before(s.ExpiresAt) {
		delete(m.sessions, sessionId)
		return entities.Session{}, false
	}
	return s, true
}
