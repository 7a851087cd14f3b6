package escalation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// maxUpdateAttempts bounds optimistic retries when writers race on one case
const maxUpdateAttempts = 5

// createScript stores the case and indexes it by creation time only when the id is new
var createScript = redis.NewScript(`
if redis.call('SETNX', KEYS[1], ARGV[1]) == 1 then
  redis.call('ZADD', KEYS[2], ARGV[2], ARGV[3])
  return 1
end
return 0
`)

// versionScript replaces the case only while its stored version equals ARGV[1].
// Returns -1 when missing, 0 when another writer got there first, 1 when written.
var versionScript = redis.NewScript(`
local current = redis.call('GET', KEYS[1])
if not current then
  return -1
end
local doc = cjson.decode(current)
if tonumber(doc['version'] or 0) ~= tonumber(ARGV[1]) then
  return 0
end
redis.call('SET', KEYS[1], ARGV[2])
return 1
`)

// RedisStore persists cases as JSON documents next to the ledger's requests
type RedisStore struct {
	client redis.Cmdable
	prefix string
}

// NewRedisStore creates a case store over client with keys under prefix
func NewRedisStore(client redis.Cmdable, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) caseKey(id string) string {
	return s.prefix + ":case:" + id
}

func (s *RedisStore) indexKey() string {
	return s.prefix + ":cases"
}

func (s *RedisStore) Create(ctx context.Context, c *Case) (*Case, bool, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return nil, false, fmt.Errorf("failed to marshal case: %w", err)
	}

	keys := []string{s.caseKey(c.ID), s.indexKey()}
	created, err := createScript.Run(ctx, s.client, keys, data, c.CreatedAt.UnixNano(), c.ID).Int()
	if err != nil {
		return nil, false, fmt.Errorf("redis case create failed: %w", err)
	}
	if created == 0 {
		existing, err := s.Get(ctx, c.ID)
		if err != nil {
			return nil, false, err
		}
		return existing, false, nil
	}
	return c.clone(), true, nil
}

func (s *RedisStore) Get(ctx context.Context, id string) (*Case, error) {
	data, err := s.client.Get(ctx, s.caseKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCaseNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis case get failed: %w", err)
	}
	return decodeCase(data)
}

func (s *RedisStore) Update(ctx context.Context, id string, fn func(*Case) bool) (*Case, bool, error) {
	for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
		current, err := s.Get(ctx, id)
		if err != nil {
			return nil, false, err
		}
		updated := current.clone()
		if !fn(updated) {
			return current, false, nil
		}
		updated.Version = current.Version + 1

		data, err := json.Marshal(updated)
		if err != nil {
			return nil, false, fmt.Errorf("failed to marshal case: %w", err)
		}
		written, err := versionScript.Run(ctx, s.client, []string{s.caseKey(id)}, current.Version, data).Int()
		if err != nil {
			return nil, false, fmt.Errorf("redis case update failed: %w", err)
		}
		switch written {
		case -1:
			return nil, false, ErrCaseNotFound
		case 1:
			return updated, true, nil
		}
	}
	return nil, false, fmt.Errorf("case %s: %d concurrent update attempts lost", id, maxUpdateAttempts)
}

func (s *RedisStore) List(ctx context.Context) ([]*Case, error) {
	ids, err := s.client.ZRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis case index failed: %w", err)
	}
	if len(ids) == 0 {
		return []*Case{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.caseKey(id)
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("redis case mget failed: %w", err)
	}

	out := make([]*Case, 0, len(values))
	for _, v := range values {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		c, err := decodeCase([]byte(raw))
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// Ping checks the Redis connection
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func decodeCase(data []byte) (*Case, error) {
	var c Case
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to unmarshal case: %w", err)
	}
	return &c, nil
}
