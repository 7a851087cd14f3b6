package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/guildcare/internal/config"
)

// createScript stores the request and indexes it under its player only when
// the id is new.
var createScript = redis.NewScript(`
if redis.call('SETNX', KEYS[1], ARGV[1]) == 1 then
  redis.call('ZADD', KEYS[2], ARGV[2], ARGV[3])
  return 1
end
return 0
`)

// casScript replaces the request only while its stored status equals ARGV[1].
// Returns -1 when missing, 0 when the status moved on, 1 when written.
var casScript = redis.NewScript(`
local current = redis.call('GET', KEYS[1])
if not current then
  return -1
end
local doc = cjson.decode(current)
if doc['status'] ~= ARGV[1] then
  return 0
end
redis.call('SET', KEYS[1], ARGV[2])
return 1
`)

// NewRedisClient creates a client from the Redis configuration
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,

		// Connection pool settings
		PoolSize:        cfg.PoolSize,
		MinIdleConns:    5,
		ConnMaxLifetime: 30 * time.Minute,

		// Timeouts
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		PoolTimeout:  4 * time.Second,

		MaxRetries:      3,
		MinRetryBackoff: 8 * time.Millisecond,
		MaxRetryBackoff: 512 * time.Millisecond,
	})
}

// RedisStore persists requests as JSON documents in Redis
type RedisStore struct {
	client redis.Cmdable
	prefix string
}

// NewRedisStore creates a store over client with keys under prefix
func NewRedisStore(client redis.Cmdable, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) requestKey(id string) string {
	return s.prefix + ":request:" + id
}

func (s *RedisStore) playerKey(playerID string) string {
	return s.prefix + ":player:" + playerID
}

func (s *RedisStore) Create(ctx context.Context, req *CompensationRequest) (*CompensationRequest, bool, error) {
	data, err := json.Marshal(req)
	if err != nil {
		return nil, false, fmt.Errorf("failed to marshal request: %w", err)
	}

	keys := []string{s.requestKey(req.ID), s.playerKey(req.PlayerID)}
	created, err := createScript.Run(ctx, s.client, keys, data, req.CreatedAt.UnixNano(), req.ID).Int()
	if err != nil {
		return nil, false, fmt.Errorf("redis create failed: %w", err)
	}

	if created == 0 {
		existing, err := s.Get(ctx, req.ID)
		if err != nil {
			return nil, false, err
		}
		return existing, false, nil
	}
	return req.clone(), true, nil
}

func (s *RedisStore) Get(ctx context.Context, id string) (*CompensationRequest, error) {
	data, err := s.client.Get(ctx, s.requestKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}
	return decodeRequest(data)
}

func (s *RedisStore) CompareAndSetStatus(ctx context.Context, id string, from, to Status, mutate func(*CompensationRequest)) (*CompensationRequest, bool, error) {
	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, false, err
	}
	if current.Status != from {
		return current, false, nil
	}

	updated := current.clone()
	updated.Status = to
	if mutate != nil {
		mutate(updated)
	}
	data, err := json.Marshal(updated)
	if err != nil {
		return nil, false, fmt.Errorf("failed to marshal request: %w", err)
	}

	written, err := casScript.Run(ctx, s.client, []string{s.requestKey(id)}, string(from), data).Int()
	if err != nil {
		return nil, false, fmt.Errorf("redis compare-and-set failed: %w", err)
	}

	switch written {
	case -1:
		return nil, false, ErrNotFound
	case 0:
		// another writer won between the read and the script
		latest, err := s.Get(ctx, id)
		if err != nil {
			return nil, false, err
		}
		return latest, false, nil
	}
	return updated, true, nil
}

func (s *RedisStore) ListByPlayer(ctx context.Context, playerID string) ([]*CompensationRequest, error) {
	ids, err := s.client.ZRange(ctx, s.playerKey(playerID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis player index failed: %w", err)
	}
	if len(ids) == 0 {
		return []*CompensationRequest{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.requestKey(id)
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("redis mget failed: %w", err)
	}

	out := make([]*CompensationRequest, 0, len(values))
	for _, v := range values {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		req, err := decodeRequest([]byte(raw))
		if err != nil {
			return nil, err
		}
		out = append(out, req)
	}
	return out, nil
}

// Ping checks the Redis connection
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func decodeRequest(data []byte) (*CompensationRequest, error) {
	var req CompensationRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("failed to unmarshal request: %w", err)
	}
	return &req, nil
}
