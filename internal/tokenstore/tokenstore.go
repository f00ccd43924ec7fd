// Package tokenstore keeps short-lived auth state in redis: the access
// token blacklist consulted on every authenticated call, and one-shot
// password-reset codes.
package tokenstore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrCodeNotFound is returned when a reset code is unknown or expired.
var ErrCodeNotFound = errors.New("reset code not found or expired")

type Store struct {
	rdb *redis.Client
}

func New(rdb *redis.Client) *Store {
	return &Store{rdb: rdb}
}

// Tokens are hashed before use as keys so raw JWTs never land in redis.
func blacklistKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return "pettycash:jwt:blacklist:" + hex.EncodeToString(sum[:])
}

func resetCodeKey(code string) string {
	return "pettycash:reset:" + code
}

// BlacklistToken voids an access token until its natural expiry.
func (s *Store) BlacklistToken(ctx context.Context, token string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil // already expired, nothing to void
	}
	return s.rdb.Set(ctx, blacklistKey(token), "1", ttl).Err()
}

// IsBlacklisted reports whether the token was voided by a logout.
func (s *Store) IsBlacklisted(ctx context.Context, token string) (bool, error) {
	n, err := s.rdb.Exists(ctx, blacklistKey(token)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// SaveResetCode maps a password-reset code to a user id with a TTL.
func (s *Store) SaveResetCode(ctx context.Context, code, userID string, ttl time.Duration) error {
	return s.rdb.Set(ctx, resetCodeKey(code), userID, ttl).Err()
}

// ConsumeResetCode resolves a reset code to its user id and deletes it
// atomically so a code cannot be replayed.
func (s *Store) ConsumeResetCode(ctx context.Context, code string) (string, error) {
	userID, err := s.rdb.GetDel(ctx, resetCodeKey(code)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrCodeNotFound
	}
	if err != nil {
		return "", err
	}
	return userID, nil
}
