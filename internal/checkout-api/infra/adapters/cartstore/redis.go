// Package cartstore implements ports.CartStore on Redis and in memory.
package cartstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jcmexdev/storefront-checkout/internal/checkout-api/core/domain/entity"
	"github.com/jcmexdev/storefront-checkout/internal/checkout-api/core/ports"
)

const maxMutateAttempts = 5

var _ ports.CartStore = (*RedisStore)(nil)

// watcher runs fn inside WATCH on keys; *redis.Client implements it.
type watcher interface {
	Watch(ctx context.Context, fn func(*redis.Tx) error, keys ...string) error
}

// RedisStore keeps each cart as a JSON document under cart:<session>.
// Mutations use WATCH/MULTI so concurrent writers retry instead of
// overwriting each other.
type RedisStore struct {
	client  *redis.Client
	watcher watcher
	ttl     time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, watcher: client, ttl: ttl}
}

func (s *RedisStore) key(sessionID string) string {
	return "cart:" + sessionID
}

func (s *RedisStore) Get(ctx context.Context, sessionID string) (*entity.Cart, error) {
	raw, err := s.client.Get(ctx, s.key(sessionID)).Bytes()
	return decodeCart(sessionID, raw, err)
}

func (s *RedisStore) Mutate(ctx context.Context, sessionID string, fn func(*entity.Cart) error) (*entity.Cart, error) {
	key := s.key(sessionID)
	var out *entity.Cart

	txf := func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		cart, err := decodeCart(sessionID, raw, err)
		if err != nil {
			return err
		}
		if err := fn(cart); err != nil {
			return err
		}
		data, err := json.Marshal(cart)
		if err != nil {
			return fmt.Errorf("cartstore: encode cart: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, s.ttl)
			return nil
		})
		out = cart
		return err
	}

	for attempt := 0; attempt < maxMutateAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		err := s.watcher.Watch(ctx, txf, key)
		if err == nil {
			return out, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return nil, err
	}
	return nil, entity.ErrCartStoreConflict
}

func (s *RedisStore) Clear(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, s.key(sessionID)).Err(); err != nil {
		return fmt.Errorf("cartstore: clear %s: %w", sessionID, err)
	}
	return nil
}

func decodeCart(sessionID string, raw []byte, err error) (*entity.Cart, error) {
	if errors.Is(err, redis.Nil) {
		return &entity.Cart{SessionID: sessionID}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cartstore: get %s: %w", sessionID, err)
	}
	var cart entity.Cart
	if err := json.Unmarshal(raw, &cart); err != nil {
		return nil, fmt.Errorf("cartstore: decode %s: %w", sessionID, err)
	}
	cart.SessionID = sessionID
	return &cart, nil
}
