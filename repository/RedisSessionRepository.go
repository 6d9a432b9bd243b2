package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ThanawawEikQ/dark-vista-shop/entities"
	"github.com/ThanawawEikQ/dark-vista-shop/models"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const sessionKeyPrefix = "session:"

// maxUpdateRetries bounds optimistic transaction retries when two requests
// of the same visitor race on one session.
const maxUpdateRetries = 10

type RedisSessionRepo struct {
	rdb *redis.Client
	ttl time.Duration
	log *zap.Logger
}

func NewRedisSessionRepository(ctx context.Context, redisConn *redis.Client, ttl time.Duration, logger *zap.Logger) (SessionRepository, error) {
	if redisConn == nil {
		return nil, errors.New("conn must be non-nil")
	}
	err := redisConn.Ping(ctx).Err()
	if err != nil {
		return nil, err
	}
	return &RedisSessionRepo{
		rdb: redisConn,
		ttl: ttl,
		log: logger,
	}, nil
}

func sessionKey(sessionId string) string {
	return sessionKeyPrefix + sessionId
}

func (r *RedisSessionRepo) CreateSession(ctx context.Context) (session entities.Session, err error) {
	session = entities.NewSession(uuid.NewString())
	session.ExpiresAt = time.Now().Add(r.ttl)

	jsonData, err := json.Marshal(session)
	if err != nil {
		r.log.Error("CreateSession: marshal", zap.Error(err))
		err = models.ErrServerError
		return
	}
	err = r.rdb.Set(ctx, sessionKey(session.Id), jsonData, r.ttl).Err()
	if err != nil {
		r.log.Error("CreateSession: redis set", zap.Error(err))
		err = models.ErrServerError
	}
	return
}

func (r *RedisSessionRepo) GetSession(ctx context.Context, sessionId string) (session entities.Session, exists bool, err error) {
	val, e := r.rdb.Get(ctx, sessionKey(sessionId)).Bytes()
	if e != nil {
		if errors.Is(e, redis.Nil) {
			return
		}
		r.log.Error("GetSession: redis get", zap.Error(e))
		err = models.ErrServerError
		return
	}
	err = json.Unmarshal(val, &session)
	if err != nil {
		r.log.Error("GetSession: unmarshal", zap.String("session_id", sessionId), zap.Error(err))
		err = models.ErrServerError
		return
	}
	exists = true
	return
}

func (r *RedisSessionRepo) UpdateSession(ctx context.Context, sessionId string, fn func(s *entities.Session) error) (session entities.Session, err error) {
	key := sessionKey(sessionId)

	txf := func(tx *redis.Tx) error {
		val, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return models.ErrNotFoundError
		}
		if err != nil {
			return fmt.Errorf("tx.Get: %w", err)
		}

		var next entities.Session
		if err := json.Unmarshal(val, &next); err != nil {
			return fmt.Errorf("json.Unmarshal: %w", err)
		}
		if err := fn(&next); err != nil {
			return err
		}
		next.Id = sessionId
		next.ExpiresAt = time.Now().Add(r.ttl)

		data, err := json.Marshal(next)
		if err != nil {
			return fmt.Errorf("json.Marshal: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, r.ttl)
			return nil
		})
		if err != nil {
			return err
		}
		session = next
		return nil
	}

	for i := 0; i < maxUpdateRetries; i++ {
		err = r.rdb.Watch(ctx, txf, key)
		if !errors.Is(err, redis.TxFailedErr) {
			break
		}
		r.log.Debug("UpdateSession: retrying after concurrent write", zap.String("session_id", sessionId))
	}
	if err != nil && isInfraError(err) {
		r.log.Error("UpdateSession", zap.String("session_id", sessionId), zap.Error(err))
		err = models.ErrServerError
	}
	return
}

func (r *RedisSessionRepo) DeleteSession(ctx context.Context, sessionId string) (err error) {
	err = r.rdb.Del(ctx, sessionKey(sessionId)).Err()
	if err != nil {
		r.log.Error("DeleteSession", zap.Error(err))
		err = models.ErrServerError
	}
	return
}

// DeleteExpired is a no-op: redis drops keys once their TTL runs out.
func (r *RedisSessionRepo) DeleteExpired(ctx context.Context) (removed int, err error) {
	return 0, nil
}

// isInfraError separates storage failures from the domain errors fn returns.
func isInfraError(err error) bool {
	for _, domainErr := range []error{models.ErrBadRequest, models.ErrNotFoundError, models.ErrNotAllowed, models.ErrServerError} {
		if errors.Is(err, domainErr) {
			return false
		}
	}
	return true
}
