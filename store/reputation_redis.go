package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"mailprobe/verifier"
)

const reputationKeyPrefix = "mailprobe:reputation:"

// RedisReputationSink persists domain reputation snapshots to redis so the
// engine can resume with learned state after a restart. It implements
// verifier.ReputationSink.
type RedisReputationSink struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisReputationSink(client *redis.Client, ttl time.Duration) *RedisReputationSink {
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &RedisReputationSink{client: client, ttl: ttl}
}

// Save stores the snapshot. Callers treat failures as non-fatal.
func (s *RedisReputationSink) Save(domain string, rep *verifier.DomainReputation) error {
	payload, err := json.Marshal(rep)
	if err != nil {
		return fmt.Errorf("marshal reputation for %s: %w", domain, err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return s.client.Set(ctx, reputationKeyPrefix+domain, payload, s.ttl).Err()
}

// LoadAll reads every persisted snapshot, for seeding a fresh store at boot.
func (s *RedisReputationSink) LoadAll(ctx context.Context) (map[string]*verifier.DomainReputation, error) {
	out := make(map[string]*verifier.DomainReputation)

	var cursor uint64
	for {
		keys, next, err := s.client.Scan(ctx, cursor, reputationKeyPrefix+"*", 100).Result()
		if err != nil {
			return nil, fmt.Errorf("scan reputation keys: %w", err)
		}
		for _, key := range keys {
			payload, err := s.client.Get(ctx, key).Bytes()
			if err == redis.Nil {
				continue
			}
			if err != nil {
				return nil, fmt.Errorf("load %s: %w", key, err)
			}
			var rep verifier.DomainReputation
			if err := json.Unmarshal(payload, &rep); err != nil {
				// Skip corrupt entries rather than abort the whole restore.
				continue
			}
			out[key[len(reputationKeyPrefix):]] = &rep
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	return out, nil
}
