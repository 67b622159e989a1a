package redisclient

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

type Client struct {
	rdb *redis.Client
}

// NewClient creates a new Redis client
func NewClient(addr, password string, db int) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Client{rdb: rdb}, nil
}

// GetClient returns the underlying Redis client
func (c *Client) GetClient() *redis.Client {
	return c.rdb
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

// SaveCart persists the serialized cart line list. Carts have no TTL; they
// survive until checkout success or explicit clearing.
func (c *Client) SaveCart(ctx context.Context, cartID string, payload []byte) error {
	return c.rdb.Set(ctx, fmt.Sprintf("cart:%s", cartID), payload, 0).Err()
}

// LoadCart returns the serialized cart, reporting whether one exists.
func (c *Client) LoadCart(ctx context.Context, cartID string) ([]byte, bool, error) {
	payload, err := c.rdb.Get(ctx, fmt.Sprintf("cart:%s", cartID)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return payload, true, nil
}

// DeleteCart removes a cart
func (c *Client) DeleteCart(ctx context.Context, cartID string) error {
	return c.rdb.Del(ctx, fmt.Sprintf("cart:%s", cartID)).Err()
}

// SetPendingSelection stores a plan selection across the login redirect.
// It expires on its own if never claimed.
func (c *Client) SetPendingSelection(ctx context.Context, token string, payload []byte, ttl time.Duration) error {
	return c.rdb.Set(ctx, fmt.Sprintf("pending_selection:%s", token), payload, ttl).Err()
}

// TakePendingSelection claims a pending selection, one shot: the read
// deletes the key.
func (c *Client) TakePendingSelection(ctx context.Context, token string) ([]byte, bool, error) {
	payload, err := c.rdb.GetDel(ctx, fmt.Sprintf("pending_selection:%s", token)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return payload, true, nil
}

// CacheCatalog stores the serialized published catalog with a TTL
func (c *Client) CacheCatalog(ctx context.Context, payload []byte, ttl time.Duration) error {
	return c.rdb.Set(ctx, "catalog:published", payload, ttl).Err()
}

// GetCachedCatalog returns the cached catalog, reporting whether it exists
func (c *Client) GetCachedCatalog(ctx context.Context) ([]byte, bool, error) {
	payload, err := c.rdb.Get(ctx, "catalog:published").Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return payload, true, nil
}

// InvalidateCatalog drops the cached catalog so the next read refills it
func (c *Client) InvalidateCatalog(ctx context.Context) error {
	return c.rdb.Del(ctx, "catalog:published").Err()
}
