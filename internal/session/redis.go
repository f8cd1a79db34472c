package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"catalog-admin/internal/domain"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	redisKeyPrefix = "catalog-admin:session:"

	maxUpdateAttempts = 3
)

// RedisStore keeps sessions as JSON values that expire with the session
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	now    func() time.Time

	// beforeWrite runs between the read and the write of an update
	beforeWrite func()
}

// NewRedisStore creates a store on client
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl, now: time.Now}
}

func redisKey(id uuid.UUID) string {
	return redisKeyPrefix + id.String()
}

func (s *RedisStore) Create(ctx context.Context, tokens domain.Tokens, email string) (*domain.Session, error) {
	sess, err := newSession(tokens, email, s.ttl, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.save(ctx, sess); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return sess, nil
}

func (s *RedisStore) Get(ctx context.Context, id uuid.UUID) (*domain.Session, error) {
	raw, err := s.client.Get(ctx, redisKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	var sess domain.Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}
	if !sess.ExpiresAt.After(s.now()) {
		return nil, ErrSessionNotFound
	}
	return &sess, nil
}

// UpdateAccessToken rewrites the session under WATCH, so a Delete that
// lands between the read and the write wins and the session stays gone.
func (s *RedisStore) UpdateAccessToken(ctx context.Context, id uuid.UUID, token string) error {
	key := redisKey(id)
	update := func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return ErrSessionNotFound
			}
			return err
		}

		var sess domain.Session
		if err := json.Unmarshal(raw, &sess); err != nil {
			return fmt.Errorf("failed to decode session: %w", err)
		}
		if !sess.ExpiresAt.After(s.now()) {
			return ErrSessionNotFound
		}
		sess.Tokens.AccessToken = token
		if raw, err = json.Marshal(&sess); err != nil {
			return err
		}

		if s.beforeWrite != nil {
			s.beforeWrite()
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.SetArgs(ctx, key, raw, redis.SetArgs{Mode: "XX", KeepTTL: true})
			return nil
		})
		return err
	}

	for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
		err := s.client.Watch(ctx, update, key)
		switch {
		case err == nil:
			return nil
		case errors.Is(err, redis.TxFailedErr):
			continue
		case errors.Is(err, ErrSessionNotFound), errors.Is(err, redis.Nil):
			return ErrSessionNotFound
		default:
			return fmt.Errorf("failed to update session: %w", err)
		}
	}
	return fmt.Errorf("failed to update session: %w", redis.TxFailedErr)
}

func (s *RedisStore) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.client.Del(ctx, redisKey(id)).Err(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

func (s *RedisStore) save(ctx context.Context, sess *domain.Session) error {
	ttl := sess.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return ErrSessionNotFound
	}

	raw, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, redisKey(sess.ID), raw, ttl).Err()
}
