package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const rotateScript = `
local current = redis.call("GET", KEYS[1])
if not current or current ~= ARGV[1] then
  return 0
end
redis.call("SET", KEYS[1], ARGV[2], "PX", ARGV[3])
return 1
`

var rotateLua = redis.NewScript(rotateScript)

// RedisStore keeps one key per identity. The key expires together with the
// refresh token it holds.
type RedisStore struct {
	redis  redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewRedisStore creates a store under the given key prefix.
func NewRedisStore(client redis.UniversalClient, prefix string, ttl time.Duration) *RedisStore {
	return &RedisStore{redis: client, prefix: prefix, ttl: ttl}
}

var _ Store = (*RedisStore)(nil)

func (s *RedisStore) key(identityID string) string {
	return s.prefix + ":" + identityID
}

func (s *RedisStore) Current(ctx context.Context, identityID string) (string, bool, error) {
	token, err := s.redis.Get(ctx, s.key(identityID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return token, true, nil
}

func (s *RedisStore) Set(ctx context.Context, identityID, token string) error {
	return s.redis.Set(ctx, s.key(identityID), token, s.ttl).Err()
}

func (s *RedisStore) Rotate(ctx context.Context, identityID, presented, next string) error {
	res, err := rotateLua.Run(ctx, s.redis, []string{s.key(identityID)}, presented, next, s.ttl.Milliseconds()).Int64()
	if err != nil {
		return fmt.Errorf("rotate refresh token: %w", err)
	}
	if res != 1 {
		return ErrStale
	}
	return nil
}

func (s *RedisStore) Clear(ctx context.Context, identityID string) error {
	return s.redis.Del(ctx, s.key(identityID)).Err()
}
