package ratelimit

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisOpTimeout = 250 * time.Millisecond

// RedisStore is an EntryStore backed by Redis, for deployments that need
// rate-limit state shared across processes. Entries are serialized as JSON
// and expire via Redis TTLs, so SweepExpired is a no-op.
//
// Backend errors degrade to a miss on read and a dropped write, logged at
// warn level. Failing open keeps an unavailable Redis from turning into a
// full outage of every guarded endpoint.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
	logger *slog.Logger
}

// NewRedisStore creates a Redis-backed EntryStore. The prefix namespaces
// keys so several limiters can share one Redis database.
func NewRedisStore(client redis.UniversalClient, prefix string, logger *slog.Logger) *RedisStore {
	if prefix == "" {
		prefix = "ratelimit:"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisStore{client: client, prefix: prefix, logger: logger}
}

func (s *RedisStore) Get(key string) (Entry, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	raw, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if err != nil {
		if err != redis.Nil {
			s.logger.Warn("ratelimit: redis get failed", "key", key, "err", err)
		}
		return Entry{}, false
	}

	var e Entry
	if err := json.Unmarshal(raw, &e); err != nil {
		s.logger.Warn("ratelimit: corrupt redis entry dropped", "key", key, "err", err)
		return Entry{}, false
	}
	return e, true
}

func (s *RedisStore) Set(key string, e Entry) {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	raw, err := json.Marshal(e)
	if err != nil {
		s.logger.Warn("ratelimit: failed to encode entry", "key", key, "err", err)
		return
	}

	ttl := time.Until(e.ExpiresAt)
	if ttl <= 0 {
		ttl = time.Second
	}

	if err := s.client.Set(ctx, s.prefix+key, raw, ttl).Err(); err != nil {
		s.logger.Warn("ratelimit: redis set failed", "key", key, "err", err)
	}
}

func (s *RedisStore) Delete(key string) {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	if err := s.client.Del(ctx, s.prefix+key).Err(); err != nil {
		s.logger.Warn("ratelimit: redis delete failed", "key", key, "err", err)
	}
}

// SweepExpired is a no-op: Redis evicts entries through key TTLs.
func (s *RedisStore) SweepExpired(time.Time) int { return 0 }

func (s *RedisStore) Clear() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	iter := s.client.Scan(ctx, 0, s.prefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		if err := s.client.Del(ctx, iter.Val()).Err(); err != nil {
			s.logger.Warn("ratelimit: redis clear failed", "key", iter.Val(), "err", err)
		}
	}
	if err := iter.Err(); err != nil {
		s.logger.Warn("ratelimit: redis scan failed", "err", err)
	}
}
