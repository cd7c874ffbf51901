package session

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	fieldAccessToken  = "accessToken"
	fieldRefreshToken = "refreshToken"
	fieldSavedAt      = "savedAt"
)

// RedisStore keeps the session in a single Redis hash.
//
//	Key layout: <prefix>:<key> -> {accessToken, refreshToken, savedAt}
type RedisStore struct {
	redis  redis.UniversalClient
	prefix string
	key    string
	ttl    time.Duration
	now    func() time.Time

	// Warn, when set, is told when Redis cannot be read or holds half a
	// session. Set it before the store is shared.
	Warn WarnFunc
}

// NewRedisStore creates a [RedisStore]. key identifies the client installation
// (for example a device or profile name); ttl <= 0 stores the hash without expiry.
func NewRedisStore(client redis.UniversalClient, prefix, key string, ttl time.Duration) *RedisStore {
	if prefix == "" {
		prefix = "acs"
	}
	if key == "" {
		key = "default"
	}
	return &RedisStore{
		redis:  client,
		prefix: prefix,
		key:    key,
		ttl:    ttl,
		now:    time.Now,
	}
}

func (s *RedisStore) redisKey() string {
	return s.prefix + ":" + s.key
}

// Save writes both tokens inside one MULTI/EXEC so readers see either the old pair
// or the new pair.
//
//	Performance: 1 round-trip (DEL + HSET [+ PEXPIRE] in a transaction).
func (s *RedisStore) Save(ctx context.Context, accessToken, refreshToken string) error {
	if err := validatePair(accessToken, refreshToken); err != nil {
		return err
	}

	key := s.redisKey()
	_, err := s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.HSet(ctx, key,
			fieldAccessToken, accessToken,
			fieldRefreshToken, refreshToken,
			fieldSavedAt, s.now().Unix(),
		)
		if s.ttl > 0 {
			pipe.PExpire(ctx, key, s.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// Load returns the stored pair, or the empty session when the hash is missing,
// incomplete, or Redis cannot be reached.
//
//	Performance: 1 Redis HMGET.
func (s *RedisStore) Load(ctx context.Context) Session {
	values, err := s.redis.HMGet(ctx, s.redisKey(), fieldAccessToken, fieldRefreshToken).Result()
	if err != nil || len(values) != 2 {
		s.Warn.warn("session: redis read", "key", s.redisKey(), "error", err)
		return Session{}
	}

	access, _ := values[0].(string)
	refresh, _ := values[1].(string)
	sess := Session{AccessToken: access, RefreshToken: refresh}
	if !sess.Complete() {
		if !sess.Empty() {
			s.Warn.warn("session: incomplete hash", "key", s.redisKey())
		}
		return Session{}
	}
	return sess
}

// Clear deletes the hash. Deleting a missing key is not an error.
func (s *RedisStore) Clear(ctx context.Context) error {
	if err := s.redis.Del(ctx, s.redisKey()).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}
