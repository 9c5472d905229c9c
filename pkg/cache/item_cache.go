package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	// ItemCacheTTL bounds how long a read model entry may outlive a missed
	// invalidation.
	ItemCacheTTL = time.Hour

	// generationTTL outlives any entry filled under an older generation.
	generationTTL = 24 * time.Hour

	itemCacheKeyPrefix = "circulation:item"
)

// CachedItem is the item read model stored in Redis as a hash.
type CachedItem struct {
	ID        uuid.UUID
	CatalogID string
	Title     string
	Author    string
	Status    string
	CreatedAt time.Time
}

// ItemCache reads and writes item read model entries.
// Key format: "circulation:item:{itemID}"
type ItemCache struct {
	client *RedisClient
}

// NewItemCache creates a new ItemCache backed by the given RedisClient.
func NewItemCache(r *RedisClient) *ItemCache {
	return &ItemCache{client: r}
}

// Get returns the cached item. Returns redis.Nil when the key does not
// exist or has expired.
func (c *ItemCache) Get(ctx context.Context, itemID uuid.UUID) (*CachedItem, error) {
	vals, err := c.client.Client().HGetAll(ctx, itemKey(itemID)).Result()
	if err != nil {
		return nil, fmt.Errorf("cache get: %w", err)
	}
	if len(vals) == 0 {
		return nil, redis.Nil
	}

	id, err := uuid.Parse(vals["id"])
	if err != nil {
		return nil, fmt.Errorf("cache parse id: %w", err)
	}
	createdAt, err := time.Parse(time.RFC3339Nano, vals["created_at"])
	if err != nil {
		return nil, fmt.Errorf("cache parse created_at: %w", err)
	}

	return &CachedItem{
		ID:        id,
		CatalogID: vals["catalog_id"],
		Title:     vals["title"],
		Author:    vals["author"],
		Status:    vals["status"],
		CreatedAt: createdAt,
	}, nil
}

// Generation returns the item's invalidation counter, 0 if it was never
// invalidated. Read it before loading the item from the record store and
// pass it to Fill.
func (c *ItemCache) Generation(ctx context.Context, itemID uuid.UUID) (int64, error) {
	return readGeneration(ctx, c.client.Client(), generationKey(itemID))
}

// Fill stores item only if the generation is still gen, so a snapshot taken
// before a borrow or return can never overwrite the invalidation that
// followed it. It reports whether the entry was written.
func (c *ItemCache) Fill(ctx context.Context, item *CachedItem, gen int64) (bool, error) {
	key, genKey := itemKey(item.ID), generationKey(item.ID)
	written := false
	err := c.client.Client().Watch(ctx, func(tx *redis.Tx) error {
		cur, err := readGeneration(ctx, tx, genKey)
		if err != nil || cur != gen {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, key)
			pipe.HSet(ctx, key,
				"id", item.ID.String(),
				"catalog_id", item.CatalogID,
				"title", item.Title,
				"author", item.Author,
				"status", item.Status,
				"created_at", item.CreatedAt.UTC().Format(time.RFC3339Nano),
			)
			pipe.Expire(ctx, key, ItemCacheTTL)
			return nil
		})
		written = err == nil
		return err
	}, genKey)
	if errors.Is(err, redis.TxFailedErr) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("cache fill: %w", err)
	}
	return written, nil
}

// Delete removes the cached item and bumps its generation.
func (c *ItemCache) Delete(ctx context.Context, itemID uuid.UUID) error {
	genKey := generationKey(itemID)
	pipe := c.client.Client().TxPipeline()
	pipe.Incr(ctx, genKey)
	pipe.Expire(ctx, genKey, generationTTL)
	pipe.Del(ctx, itemKey(itemID))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("cache delete: %w", err)
	}
	return nil
}

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func readGeneration(ctx context.Context, g getter, key string) (int64, error) {
	n, err := g.Get(ctx, key).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("cache generation: %w", err)
	}
	return n, nil
}

func generationKey(itemID uuid.UUID) string {
	return itemKey(itemID) + ":gen"
}

func itemKey(itemID uuid.UUID) string {
	return fmt.Sprintf("%s:%s", itemCacheKeyPrefix, itemID)
}
