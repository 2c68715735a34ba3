package storage

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// TokenStore keeps one key per issued token id. Presence of the key means the
// credential is active; revocation deletes it, expiry is aligned with the
// token's own TTL so stale records age out on their own.
//
// key: rg:token:<jti>
type TokenStore struct {
	rdb *redis.Client
}

func NewTokenStore(rdb *redis.Client) *TokenStore {
	return &TokenStore{rdb: rdb}
}

func tokenKey(tokenID string) string { return "rg:token:" + tokenID }

func (s *TokenStore) Activate(ctx context.Context, tokenID string, ttl time.Duration) error {
	if ttl <= 0 {
		return errors.New("token ttl must be positive")
	}
	return s.rdb.Set(ctx, tokenKey(tokenID), "1", ttl).Err()
}

func (s *TokenStore) Revoke(ctx context.Context, tokenID string) error {
	return s.rdb.Del(ctx, tokenKey(tokenID)).Err()
}

func (s *TokenStore) IsActive(ctx context.Context, tokenID string) (bool, error) {
	val, err := s.rdb.Get(ctx, tokenKey(tokenID)).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return val == "1", nil
}
