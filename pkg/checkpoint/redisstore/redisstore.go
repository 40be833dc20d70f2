// Package redisstore implements checkpoint.Store over Redis. CAS is
// implemented with a Lua script so the version check and write happen
// atomically, the same pattern the pack uses for distributed claims
// (compare-and-delete via EVAL in itsneelabh-gomind's HITL checkpoint
// store) generalized here to a compare-and-set.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/opsintent/intentcore/pkg/checkpoint"
)

// Store is a Redis-backed checkpoint.Store.
type Store struct {
	client    *redis.Client
	keyPrefix string
}

// New wraps an existing *redis.Client. keyPrefix namespaces every key this
// store touches (e.g. "intentcore").
func New(client *redis.Client, keyPrefix string) *Store {
	return &Store{client: client, keyPrefix: keyPrefix}
}

func (s *Store) fullKey(key string) string {
	return s.keyPrefix + ":" + key
}

type record struct {
	Payload json.RawMessage `json:"payload"`
	Version int64           `json:"version"`
}

// Save implements checkpoint.Store.
func (s *Store) Save(ctx context.Context, key string, payload []byte, ttl time.Duration) (int64, error) {
	existing, err := s.load(ctx, key)
	version := int64(1)
	if err == nil {
		version = existing.Version + 1
	} else if !errors.Is(err, checkpoint.ErrNotFound) {
		return 0, err
	}
	if err := s.write(ctx, key, payload, version, ttl); err != nil {
		return 0, err
	}
	return version, nil
}

// Load implements checkpoint.Store.
func (s *Store) Load(ctx context.Context, key string) (checkpoint.Entry, error) {
	rec, err := s.load(ctx, key)
	if err != nil {
		return checkpoint.Entry{}, err
	}
	return checkpoint.Entry{Key: key, Payload: []byte(rec.Payload), Version: rec.Version}, nil
}

func (s *Store) load(ctx context.Context, key string) (record, error) {
	raw, err := s.client.Get(ctx, s.fullKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return record{}, checkpoint.ErrNotFound
	}
	if err != nil {
		return record{}, fmt.Errorf("redisstore: get %s: %w", key, err)
	}
	var rec record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return record{}, fmt.Errorf("redisstore: decode %s: %w", key, err)
	}
	return rec, nil
}

func (s *Store) write(ctx context.Context, key string, payload []byte, version int64, ttl time.Duration) error {
	raw, err := json.Marshal(record{Payload: payload, Version: version})
	if err != nil {
		return fmt.Errorf("redisstore: encode %s: %w", key, err)
	}
	if err := s.client.Set(ctx, s.fullKey(key), raw, ttl).Err(); err != nil {
		return fmt.Errorf("redisstore: set %s: %w", key, err)
	}
	return nil
}

// casScript atomically checks the stored version against ARGV[2] (0 means
// "must not exist") before writing ARGV[1] (the new record JSON), with an
// optional TTL in ARGV[3] (milliseconds, 0 = no TTL). Returns 1 on success,
// 0 on version mismatch.
var casScript = redis.NewScript(`
local current = redis.call("GET", KEYS[1])
local expected = tonumber(ARGV[2])
if current == false then
  if expected ~= 0 then
    return 0
  end
else
  local ok, decoded = pcall(cjson.decode, current)
  if not ok or decoded["version"] ~= expected then
    return 0
  end
end
if tonumber(ARGV[3]) > 0 then
  redis.call("SET", KEYS[1], ARGV[1], "PX", ARGV[3])
else
  redis.call("SET", KEYS[1], ARGV[1])
end
return 1
`)

// CAS implements checkpoint.Store.
func (s *Store) CAS(ctx context.Context, key string, payload []byte, expectedVersion int64, ttl time.Duration) (int64, error) {
	newVersion := expectedVersion + 1
	raw, err := json.Marshal(record{Payload: payload, Version: newVersion})
	if err != nil {
		return 0, fmt.Errorf("redisstore: encode %s: %w", key, err)
	}

	ttlMS := int64(0)
	if ttl > 0 {
		ttlMS = ttl.Milliseconds()
	}

	res, err := casScript.Run(ctx, s.client, []string{s.fullKey(key)}, string(raw), expectedVersion, ttlMS).Int()
	if err != nil {
		return 0, fmt.Errorf("redisstore: cas %s: %w", key, err)
	}
	if res == 0 {
		return 0, checkpoint.ErrVersionConflict
	}
	return newVersion, nil
}

// List implements checkpoint.Store.
func (s *Store) List(ctx context.Context, prefix string) ([]checkpoint.Entry, error) {
	var out []checkpoint.Entry
	iter := s.client.Scan(ctx, 0, s.fullKey(prefix)+"*", 0).Iterator()
	for iter.Next(ctx) {
		fullKey := iter.Val()
		key := strings.TrimPrefix(fullKey, s.keyPrefix+":")
		raw, err := s.client.Get(ctx, fullKey).Bytes()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("redisstore: list get %s: %w", key, err)
		}
		var rec record
		if err := json.Unmarshal(raw, &rec); err != nil {
			return nil, fmt.Errorf("redisstore: list decode %s: %w", key, err)
		}
		out = append(out, checkpoint.Entry{Key: key, Payload: []byte(rec.Payload), Version: rec.Version})
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("redisstore: scan %s: %w", prefix, err)
	}
	return out, nil
}

// Delete implements checkpoint.Store.
func (s *Store) Delete(ctx context.Context, key string) (bool, error) {
	n, err := s.client.Del(ctx, s.fullKey(key)).Result()
	if err != nil {
		return false, fmt.Errorf("redisstore: delete %s: %w", key, err)
	}
	return n > 0, nil
}

// SweepExpired implements checkpoint.Store. Redis expires keys natively via
// TTL, so this is a no-op that satisfies the interface; it exists so the
// sweeper loop can be wired uniformly across backends.
func (s *Store) SweepExpired(_ context.Context) (int, error) {
	return 0, nil
}

var _ checkpoint.Store = (*Store)(nil)
