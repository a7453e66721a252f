package question

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const defaultCacheTTL = 5 * time.Minute

// CachedPool fronts a slower Pool (usually Postgres) with Redis.
// Cache errors fall through to the backing pool.
type CachedPool struct {
	next   Pool
	client *redis.Client
	ttl    time.Duration
	logger zerolog.Logger
}

var _ Pool = (*CachedPool)(nil)

func NewCachedPool(next Pool, client *redis.Client, ttl time.Duration, logger zerolog.Logger) *CachedPool {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &CachedPool{
		next:   next,
		client: client,
		ttl:    ttl,
		logger: logger.With().Str("component", "question_cache").Logger(),
	}
}

func idsKey(difficulty string) string { return "questions:ids:" + difficulty }

func itemKey(id string) string { return "questions:item:" + id }

func (c *CachedPool) IDsByDifficulty(ctx context.Context, difficulty string) ([]string, error) {
	var ids []string
	if c.load(ctx, idsKey(difficulty), &ids) {
		return ids, nil
	}
	ids, err := c.next.IDsByDifficulty(ctx, difficulty)
	if err != nil {
		return nil, err
	}
	c.store(ctx, idsKey(difficulty), ids)
	return ids, nil
}

func (c *CachedPool) Get(ctx context.Context, id string) (*Question, error) {
	var q Question
	if c.load(ctx, itemKey(id), &q) {
		return &q, nil
	}
	found, err := c.next.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	c.store(ctx, itemKey(id), found)
	return found, nil
}

func (c *CachedPool) load(ctx context.Context, key string, dst interface{}) bool {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn().Err(err).Str("key", key).Msg("question cache read failed")
		}
		return false
	}
	if err := json.Unmarshal(data, dst); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("question cache entry corrupt")
		return false
	}
	return true
}

func (c *CachedPool) store(ctx context.Context, key string, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("question cache write failed")
	}
}
