package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/redis/go-redis/v9"

	"github.com/storelink/affbridge/internal/models"
)

const (
	attributionKeyPrefix = "attribution:"
	tokenHashKey         = "tenant_tokens"
)

// RedisAttributionStore keeps captures in Redis so they survive restarts and
// are shared across instances.
type RedisAttributionStore struct {
	rdb *redis.Client
}

func NewRedisAttributionStore(rdb *redis.Client) *RedisAttributionStore {
	return &RedisAttributionStore{rdb: rdb}
}

func (s *RedisAttributionStore) Put(ctx context.Context, email string, rec models.AttributionRecord) error {
	b, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal attribution: %w", err)
	}
	return s.rdb.Set(ctx, attributionKeyPrefix+email, b, 0).Err()
}

func (s *RedisAttributionStore) Get(ctx context.Context, email string) (models.AttributionRecord, bool, error) {
	var rec models.AttributionRecord
	b, err := s.rdb.Get(ctx, attributionKeyPrefix+email).Bytes()
	if errors.Is(err, redis.Nil) {
		return rec, false, nil
	}
	if err != nil {
		return rec, false, err
	}
	if err := json.Unmarshal(b, &rec); err != nil {
		return rec, false, fmt.Errorf("unmarshal attribution: %w", err)
	}
	return rec, true, nil
}

type RedisTokenStore struct {
	rdb *redis.Client
}

func NewRedisTokenStore(rdb *redis.Client) *RedisTokenStore {
	return &RedisTokenStore{rdb: rdb}
}

func (s *RedisTokenStore) Set(ctx context.Context, storeID, token string) error {
	return s.rdb.HSet(ctx, tokenHashKey, storeID, token).Err()
}

func (s *RedisTokenStore) Get(ctx context.Context, storeID string) (string, bool, error) {
	tok, err := s.rdb.HGet(ctx, tokenHashKey, storeID).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return tok, true, nil
}

// List sorts the hash fields; Redis hashes have no insertion order, sorting
// keeps tenant selection deterministic.
func (s *RedisTokenStore) List(ctx context.Context) ([]string, error) {
	ids, err := s.rdb.HKeys(ctx, tokenHashKey).Result()
	if err != nil {
		return nil, err
	}
	sort.Strings(ids)
	return ids, nil
}
