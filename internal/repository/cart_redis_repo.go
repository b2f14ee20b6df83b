package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"restobook/internal/domain"

	"github.com/redis/go-redis/v9"
)

// CartRedisRepository stores each cart as a hash keyed by product id.
type CartRedisRepository struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewCartRedisRepository(client *redis.Client, prefix string, ttl time.Duration) *CartRedisRepository {
	if prefix == "" {
		prefix = "cart:"
	}
	return &CartRedisRepository{client: client, prefix: prefix, ttl: ttl}
}

type redisCartLine struct {
	domain.CartItem
	UserID  string `json:"userId,omitempty"`
	AddedAt int64  `json:"addedAt"`
}

func (r *CartRedisRepository) key(bookingID string) string {
	return r.prefix + bookingID
}

func (r *CartRedisRepository) Get(ctx context.Context, bookingID string) (*domain.Cart, error) {
	raw, err := r.client.HGetAll(ctx, r.key(bookingID)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis hgetall: %w", err)
	}

	lines := make([]redisCartLine, 0, len(raw))
	for productID, v := range raw {
		var line redisCartLine
		if err := json.Unmarshal([]byte(v), &line); err != nil {
			return nil, fmt.Errorf("decode cart line %s: %w", productID, err)
		}
		line.ProductID = productID
		lines = append(lines, line)
	}
	sort.Slice(lines, func(i, j int) bool {
		if lines[i].AddedAt == lines[j].AddedAt {
			return lines[i].ProductID < lines[j].ProductID
		}
		return lines[i].AddedAt < lines[j].AddedAt
	})

	cart := &domain.Cart{BookingID: bookingID, Items: make([]domain.CartItem, 0, len(lines))}
	for _, l := range lines {
		if cart.UserID == "" {
			cart.UserID = l.UserID
		}
		cart.Items = append(cart.Items, l.CartItem)
	}
	return cart, nil
}

func (r *CartRedisRepository) SetItem(ctx context.Context, bookingID, userID string, item domain.CartItem) error {
	key := r.key(bookingID)
	line := redisCartLine{CartItem: item, UserID: userID, AddedAt: time.Now().UnixNano()}

	prev, err := r.client.HGet(ctx, key, item.ProductID).Result()
	switch {
	case err == nil:
		var old redisCartLine
		if json.Unmarshal([]byte(prev), &old) == nil && old.AddedAt > 0 {
			line.AddedAt = old.AddedAt
		}
	case !errors.Is(err, redis.Nil):
		return fmt.Errorf("redis hget: %w", err)
	}

	body, err := json.Marshal(line)
	if err != nil {
		return err
	}
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, item.ProductID, body)
		if r.ttl > 0 {
			pipe.Expire(ctx, key, r.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis hset: %w", err)
	}
	return nil
}

func (r *CartRedisRepository) RemoveItem(ctx context.Context, bookingID, productID string) error {
	return r.client.HDel(ctx, r.key(bookingID), productID).Err()
}

func (r *CartRedisRepository) Clear(ctx context.Context, bookingID string) error {
	return r.client.Del(ctx, r.key(bookingID)).Err()
}
