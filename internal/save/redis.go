package save

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/levelkit/textquest/pkg/state"
)

// RedisStore keeps saves in Redis, keyed by slot name. Intended for
// hosted deployments where local disk is not durable.
type RedisStore struct {
	client *redis.Client
	logger *slog.Logger
}

var _ Store = (*RedisStore)(nil)

func NewRedisStore(addr string, logger *slog.Logger) *RedisStore {
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
	})
	return &RedisStore{client: rdb, logger: logger}
}

func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

// WaitForConnection waits for Redis to become available during startup.
func (s *RedisStore) WaitForConnection(ctx context.Context) error {
	maxRetries := 30
	retryDelay := 2 * time.Second

	for i := 0; i < maxRetries; i++ {
		if err := s.Ping(ctx); err != nil {
			s.logger.Debug("Redis not ready yet", "error", err, "attempt", i+1)

			select {
			case <-ctx.Done():
				return fmt.Errorf("context cancelled while waiting for redis: %w", ctx.Err())
			case <-time.After(retryDelay):
				continue
			}
		}

		s.logger.Info("Redis connection established")
		return nil
	}

	return fmt.Errorf("redis did not become available after %d attempts", maxRetries)
}

func key(slot string) string {
	return "save:" + slot
}

func (s *RedisStore) Save(ctx context.Context, slot string, gs *state.GameState) error {
	data, err := Encode(gs)
	if err != nil {
		s.logger.Error("Failed to encode save", "slot", slot, "error", err)
		return err
	}
	if err := s.client.Set(ctx, key(slot), string(data), 0).Err(); err != nil {
		s.logger.Error("Failed to save game", "slot", slot, "error", err)
		return fmt.Errorf("failed to save game: %w", err)
	}
	return nil
}

func (s *RedisStore) Load(ctx context.Context, slot string) (*state.GameState, error) {
	data, err := s.client.Get(ctx, key(slot)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		s.logger.Error("Failed to load game", "slot", slot, "error", err)
		return nil, fmt.Errorf("failed to load game: %w", err)
	}
	return Decode([]byte(data))
}

func (s *RedisStore) Delete(ctx context.Context, slot string) error {
	if err := s.client.Del(ctx, key(slot)).Err(); err != nil {
		s.logger.Error("Failed to delete save", "slot", slot, "error", err)
		return fmt.Errorf("failed to delete save: %w", err)
	}
	return nil
}

func (s *RedisStore) Close() error {
	if err := s.client.Close(); err != nil {
		s.logger.Error("Failed to close Redis connection", "error", err)
		return err
	}
	return nil
}
