package room

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/gokatarajesh/code-battle/internal/battle"
)

const defaultMirrorTTL = 2 * time.Hour

// RedisMirror records live room membership as a Redis hash per room so
// operators can inspect active rooms.
type RedisMirror struct {
	client *redis.Client
	ttl    time.Duration
}

var _ Mirror = (*RedisMirror)(nil)

func NewRedisMirror(client *redis.Client, ttl time.Duration) *RedisMirror {
	if ttl <= 0 {
		ttl = defaultMirrorTTL
	}
	return &RedisMirror{client: client, ttl: ttl}
}

func roomKey(code string) string {
	return fmt.Sprintf("battle:room:%s", code)
}

func (m *RedisMirror) Bind(ctx context.Context, code string, side battle.Side, connID string) error {
	key := roomKey(code)
	pipe := m.client.TxPipeline()
	pipe.HSet(ctx, key, string(side), connID)
	pipe.Expire(ctx, key, m.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("mirror bind: %w", err)
	}
	return nil
}

func (m *RedisMirror) Unbind(ctx context.Context, code string, side battle.Side) error {
	if err := m.client.HDel(ctx, roomKey(code), string(side)).Err(); err != nil {
		return fmt.Errorf("mirror unbind: %w", err)
	}
	return nil
}

func (m *RedisMirror) Drop(ctx context.Context, code string) error {
	if err := m.client.Del(ctx, roomKey(code)).Err(); err != nil {
		return fmt.Errorf("mirror drop: %w", err)
	}
	return nil
}

// Members reads back the mirrored slots of a room.
func (m *RedisMirror) Members(ctx context.Context, code string) (map[string]string, error) {
	members, err := m.client.HGetAll(ctx, roomKey(code)).Result()
	if err != nil {
		return nil, fmt.Errorf("mirror members: %w", err)
	}
	return members, nil
}
