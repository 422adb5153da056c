package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"confectionery/internal/domain/checkout"
	repo "confectionery/internal/repository"

	"github.com/redis/go-redis/v9"
)

type RedisCheckoutStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCheckoutStore(client *redis.Client, ttl time.Duration) *RedisCheckoutStore {
	return &RedisCheckoutStore{client: client, ttl: ttl}
}

var _ repo.CheckoutStore = (*RedisCheckoutStore)(nil)

// 無ければ最初のステップ
func (s *RedisCheckoutStore) Load(ctx context.Context, sessionID string) (checkout.Session, error) {
	data, err := s.client.Get(ctx, checkoutKey(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return checkout.NewSession(), nil
	}
	if err != nil {
		return checkout.Session{}, fmt.Errorf("redis get failed: %w", err)
	}

	var out checkout.Session
	if err := json.Unmarshal(data, &out); err != nil {
		return checkout.Session{}, fmt.Errorf("unmarshal checkout failed: %w", err)
	}
	return out, nil
}

func (s *RedisCheckoutStore) Save(ctx context.Context, sessionID string, cs checkout.Session) error {
	data, err := json.Marshal(cs)
	if err != nil {
		return fmt.Errorf("marshal checkout failed: %w", err)
	}
	if err := s.client.Set(ctx, checkoutKey(sessionID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (s *RedisCheckoutStore) Delete(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, checkoutKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

func checkoutKey(sessionID string) string {
	return fmt.Sprintf("checkout:%s", sessionID)
}
