package cart

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santia053/cafe-suroeste/internal/models"
	"github.com/santia053/cafe-suroeste/internal/redisclient"
)

// MemoryRepository keeps carts in a process-local map. Used in tests and
// wherever durability is not needed.
type MemoryRepository struct {
	mu    sync.RWMutex
	carts map[string][]models.CartLine
}

// NewMemoryRepository creates an empty in-memory cart repository
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{carts: make(map[string][]models.CartLine)}
}

func (r *MemoryRepository) Load(ctx context.Context, cartID string) ([]models.CartLine, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	lines := make([]models.CartLine, len(r.carts[cartID]))
	copy(lines, r.carts[cartID])
	return lines, nil
}

func (r *MemoryRepository) Save(ctx context.Context, cartID string, lines []models.CartLine) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := make([]models.CartLine, len(lines))
	copy(stored, lines)
	r.carts[cartID] = stored
	return nil
}

func (r *MemoryRepository) Delete(ctx context.Context, cartID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.carts, cartID)
	return nil
}

// RedisRepository persists carts as serialized line lists in Redis, one
// key per cart. This is the production store; a cart survives process
// restarts until checkout success or explicit clearing.
type RedisRepository struct {
	client *redisclient.Client
}

// NewRedisRepository creates a cart repository over the Redis client
func NewRedisRepository(client *redisclient.Client) *RedisRepository {
	return &RedisRepository{client: client}
}

func (r *RedisRepository) Load(ctx context.Context, cartID string) ([]models.CartLine, error) {
	payload, ok, err := r.client.LoadCart(ctx, cartID)
	if err != nil {
		return nil, fmt.Errorf("failed to load cart %s: %w", cartID, err)
	}
	if !ok {
		return []models.CartLine{}, nil
	}

	var lines []models.CartLine
	if err := json.Unmarshal(payload, &lines); err != nil {
		return nil, fmt.Errorf("failed to decode cart %s: %w", cartID, err)
	}
	return lines, nil
}

func (r *RedisRepository) Save(ctx context.Context, cartID string, lines []models.CartLine) error {
	payload, err := json.Marshal(lines)
	if err != nil {
		return fmt.Errorf("failed to encode cart %s: %w", cartID, err)
	}
	return r.client.SaveCart(ctx, cartID, payload)
}

func (r *RedisRepository) Delete(ctx context.Context, cartID string) error {
	return r.client.DeleteCart(ctx, cartID)
}
