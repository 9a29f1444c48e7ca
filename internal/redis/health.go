package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/omega-realm/scruffy/internal/cache"
)

// HealthCache is a cache.Cache stored in Redis. Each namespace (users,
// monsters) gets its own key space so ids of different roles never collide.
//
// Entries have no TTL; they live until flushed, like the in-process cache.
type HealthCache struct {
	client    *Client
	namespace string
}

func NewHealthCache(client *Client, namespace string) *HealthCache {
	return &HealthCache{client: client, namespace: namespace}
}

func (h *HealthCache) key(id int) string {
	return fmt.Sprintf("scruffy:%s:health:%d", h.namespace, id)
}

func (h *HealthCache) Get(ctx context.Context, id int) (int, bool, error) {
	health, err := h.client.Get(ctx, h.key(id)).Int()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("failed to get %s health: %w", h.namespace, err)
	}
	return health, true, nil
}

func (h *HealthCache) Set(ctx context.Context, id, health int) error {
	if err := h.client.Set(ctx, h.key(id), health, 0).Err(); err != nil {
		return fmt.Errorf("failed to set %s health: %w", h.namespace, err)
	}
	return nil
}

func (h *HealthCache) Remove(ctx context.Context, id int) error {
	deleted, err := h.client.Del(ctx, h.key(id)).Result()
	if err != nil {
		return fmt.Errorf("failed to remove %s health: %w", h.namespace, err)
	}
	if deleted == 0 {
		return cache.ErrKeyMissing
	}
	return nil
}

var _ cache.Cache = (*HealthCache)(nil)
