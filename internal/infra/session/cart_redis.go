// Package session はセッション単位の状態（カート/チェックアウト）をRedisに置く。
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"confectionery/internal/domain/cart"
	repo "confectionery/internal/repository"

	"github.com/redis/go-redis/v9"
)

// 同時更新の再試行回数
const maxUpdateRetries = 5

type RedisCartStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCartStore(client *redis.Client, ttl time.Duration) *RedisCartStore {
	return &RedisCartStore{client: client, ttl: ttl}
}

var _ repo.CartStore = (*RedisCartStore)(nil)

func (s *RedisCartStore) Load(ctx context.Context, sessionID string) (cart.Cart, error) {
	return readCart(ctx, s.client, cartKey(sessionID))
}

// WATCHで楽観ロック。他の更新とぶつかったらやり直す。
func (s *RedisCartStore) Update(ctx context.Context, sessionID string, fn func(c *cart.Cart) error) (cart.Cart, error) {
	key := cartKey(sessionID)

	for i := 0; i < maxUpdateRetries; i++ {
		var out cart.Cart

		err := s.client.Watch(ctx, func(tx *redis.Tx) error {
			c, err := readCart(ctx, tx, key)
			if err != nil {
				return err
			}
			if err := fn(&c); err != nil {
				return err
			}

			data, err := json.Marshal(c)
			if err != nil {
				return fmt.Errorf("marshal cart failed: %w", err)
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				if c.IsEmpty() {
					pipe.Del(ctx, key)
					return nil
				}
				pipe.Set(ctx, key, data, s.ttl)
				return nil
			})
			out = c
			return err
		}, key)

		if err == nil {
			return out, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return cart.Cart{}, err
	}

	return cart.Cart{}, repo.ErrSessionBusy
}

func (s *RedisCartStore) Delete(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, cartKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

// 無ければ空カート
func readCart(ctx context.Context, c getter, key string) (cart.Cart, error) {
	data, err := c.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return cart.Cart{}, nil
	}
	if err != nil {
		return cart.Cart{}, fmt.Errorf("redis get failed: %w", err)
	}

	var out cart.Cart
	if err := json.Unmarshal(data, &out); err != nil {
		return cart.Cart{}, fmt.Errorf("unmarshal cart failed: %w", err)
	}
	return out, nil
}

func cartKey(sessionID string) string {
	return fmt.Sprintf("cart:%s", sessionID)
}
