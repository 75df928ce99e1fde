package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const redisStatePrefix = "conversation:state:"

// RedisStateStore keeps one JSON document per user in Redis, for
// deployments where the bot process is not alone on its disk.
type RedisStateStore struct {
	client *redis.Client
}

// NewRedisStateStore creates a Redis-backed store.
func NewRedisStateStore(client *redis.Client) *RedisStateStore {
	return &RedisStateStore{client: client}
}

func (s *RedisStateStore) Get(ctx context.Context, key string) (State, error) {
	data, err := s.client.Get(ctx, redisStatePrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return NewState(), nil
	}
	if err != nil {
		return State{}, fmt.Errorf("conversation: redis get state: %w", err)
	}

	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		return NewState(), nil
	}
	return st, nil
}

func (s *RedisStateStore) Put(ctx context.Context, key string, st State) error {
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("conversation: marshal state: %w", err)
	}
	if err := s.client.Set(ctx, redisStatePrefix+key, data, 0).Err(); err != nil {
		return fmt.Errorf("conversation: redis put state: %w", err)
	}
	return nil
}

var _ StateStore = (*RedisStateStore)(nil)
