// Package session хранит токены сессий в Redis.
package session

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"ai-diary/internal/domain"
)

const (
	// Duration задаёт срок жизни сессии без активности.
	Duration  = 7 * 24 * time.Hour
	keyPrefix = "session:"
	tokenSize = 32
)

// RedisStore реализует domain.SessionStore.
type RedisStore struct {
	client redis.Cmdable
	ttl    time.Duration
}

var _ domain.SessionStore = (*RedisStore)(nil)

// NewRedisStore создаёт хранилище сессий. ttl <= 0 означает Duration.
func NewRedisStore(client redis.Cmdable, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = Duration
	}
	return &RedisStore{client: client, ttl: ttl}
}

// Create выдаёт новый токен для пользователя.
func (s *RedisStore) Create(ctx context.Context, userID string) (string, error) {
	token, err := NewToken()
	if err != nil {
		return "", err
	}
	if err := s.client.Set(ctx, keyPrefix+token, userID, s.ttl).Err(); err != nil {
		return "", fmt.Errorf("session: store: %w", err)
	}
	return token, nil
}

// Resolve возвращает пользователя по токену и продлевает сессию.
func (s *RedisStore) Resolve(ctx context.Context, token string) (string, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", domain.ErrUnauthorized
	}
	userID, err := s.client.GetEx(ctx, keyPrefix+token, s.ttl).Result()
	if errors.Is(err, redis.Nil) {
		return "", domain.ErrUnauthorized
	}
	if err != nil {
		return "", fmt.Errorf("session: resolve: %w", err)
	}
	return userID, nil
}

// Revoke удаляет сессию.
func (s *RedisStore) Revoke(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := s.client.Del(ctx, keyPrefix+token).Err(); err != nil {
		return fmt.Errorf("session: revoke: %w", err)
	}
	return nil
}

// NewToken генерирует случайный токен в base64url.
func NewToken() (string, error) {
	b := make([]byte, tokenSize)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("session: random: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
