package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var ErrChallengeNotFound = errors.New("challenge not found or expired")

// NonceStore выдаёт одноразовые nonce для логина.
type NonceStore interface {
	Issue(ctx context.Context) (string, error)
	// Consume удаляет nonce. Повторное использование возвращает ErrChallengeNotFound.
	Consume(ctx context.Context, nonce string) error
}

type ChallengeStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewChallengeStore(rdb *redis.Client, ttl time.Duration) *ChallengeStore {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &ChallengeStore{rdb: rdb, ttl: ttl}
}

func challengeKey(nonce string) string {
	return "login:nonce:" + nonce
}

func (s *ChallengeStore) Issue(ctx context.Context) (string, error) {
	nonce := uuid.NewString()
	if err := s.rdb.Set(ctx, challengeKey(nonce), 1, s.ttl).Err(); err != nil {
		return "", fmt.Errorf("store challenge: %w", err)
	}
	return nonce, nil
}

func (s *ChallengeStore) Consume(ctx context.Context, nonce string) error {
	n, err := s.rdb.Del(ctx, challengeKey(nonce)).Result()
	if err != nil {
		return fmt.Errorf("consume challenge: %w", err)
	}
	if n == 0 {
		return ErrChallengeNotFound
	}
	return nil
}
