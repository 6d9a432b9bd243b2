package services

import (
	"context"

	"github.com/ThanawawEikQ/dark-vista-shop/entities"
	"github.com/ThanawawEikQ/dark-vista-shop/models"
	"github.com/ThanawawEikQ/dark-vista-shop/repository"

	"go.uber.org/zap"
)

type SessionService struct {
	sr  repository.SessionRepository
	log *zap.Logger
}

func NewSessionService(sessionRepo repository.SessionRepository, logger *zap.Logger) SessionService {
	return SessionService{
		sr:  sessionRepo,
		log: logger,
	}
}

// ResolveSession returns the session for sessionId, starting a fresh one
// when the id is empty, unknown or expired.
func (ss *SessionService) ResolveSession(ctx context.Context, sessionId string) (session entities.Session, created bool, err error) {
	if sessionId != "" {
		var exists bool
		session, exists, err = ss.sr.GetSession(ctx, sessionId)
		if err != nil || exists {
			return
		}
	}
	session, err = ss.sr.CreateSession(ctx)
	if err != nil {
		return
	}
	created = true
	return
}

func (ss *SessionService) GetSession(ctx context.Context, sessionId string) (session entities.Session, err error) {
	session, exists, err := ss.sr.GetSession(ctx, sessionId)
	if err != nil {
		return
	}
	if !exists {
		err = models.ErrNotFoundError
	}
	return
}

// DrainNotifications hands out the pending notifications once.
func (ss *SessionService) DrainNotifications(ctx context.Context, sessionId string) (notes []entities.Notification, err error) {
	_, err = ss.sr.UpdateSession(ctx, sessionId, func(s *entities.Session) error {
		notes = s.Notifications
		s.Notifications = nil
		return nil
	})
	if notes == nil {
		notes = []entities.Notification{}
	}
	return
}

func (ss *SessionService) SweepExpired(ctx context.Context) (removed int, err error) {
	removed, err = ss.sr.DeleteExpired(ctx)
	if err != nil {
		ss.log.Error("SweepExpired", zap.Error(err))
	}
	return
}
