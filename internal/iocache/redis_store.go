package iocache

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/geochange/landchange/internal/contract"
	"github.com/geochange/landchange/schema"
)

// redisTimeout bounds every round trip to Redis.
const redisTimeout = 5 * time.Second

// RedisCacheStore keeps results as Redis hashes, with a sorted set indexing keys by timestamp.
type RedisCacheStore struct {
	client *redis.Client
	prefix string
}

var _ contract.CacheStore = &RedisCacheStore{} // Compile-time check

// NewRedisCacheStore connects to the Redis URL and returns a CacheStore namespaced by name.
func NewRedisCacheStore(name, url string) (*RedisCacheStore, error) {
	if err := validateTableName(name); err != nil {
		return nil, err
	}
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w. Check connection format: redis://[:password@]host:port/db", err)
	}
	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), redisTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return &RedisCacheStore{client: client, prefix: name}, nil
}

func (rs *RedisCacheStore) entryKey(key string) string {
	return rs.prefix + ":entry:" + key
}

func (rs *RedisCacheStore) indexKey() string {
	return rs.prefix + ":index"
}

// Get retrieves a value by key. A miss returns redis.Nil.
func (rs *RedisCacheStore) Get(key string) ([]byte, int, int64, error) {
	ctx, cancel := context.WithTimeout(context.Background(), redisTimeout)
	defer cancel()

	fields, err := rs.client.HGetAll(ctx, rs.entryKey(key)).Result()
	if err != nil {
		return nil, 0, 0, err
	}
	if len(fields) == 0 {
		return nil, 0, 0, redis.Nil
	}
	version, err := strconv.Atoi(fields["version"])
	if err != nil {
		return nil, 0, 0, fmt.Errorf("corrupt version for %s: %w", key, err)
	}
	ts, err := strconv.ParseInt(fields["timestamp"], 10, 64)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("corrupt timestamp for %s: %w", key, err)
	}
	return []byte(fields["value"]), version, ts, nil
}

// Set writes the entry and its index record in one transaction.
func (rs *RedisCacheStore) Set(key string, value []byte, version int, timestamp int64) error {
	ctx, cancel := context.WithTimeout(context.Background(), redisTimeout)
	defer cancel()

	_, err := rs.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, rs.entryKey(key), "value", value, "version", version, "timestamp", timestamp)
		pipe.ZAdd(ctx, rs.indexKey(), redis.Z{Score: float64(timestamp), Member: key})
		return nil
	})
	return err
}

// GetStatus reports entry counts and age from the timestamp index.
func (rs *RedisCacheStore) GetStatus() (schema.CacheStatus, error) {
	status := schema.CacheStatus{Backend: string(schema.RedisBackend), Connected: true}
	ctx, cancel := context.WithTimeout(context.Background(), redisTimeout)
	defer cancel()

	total, err := rs.client.ZCard(ctx, rs.indexKey()).Result()
	if err != nil {
		return status, fmt.Errorf("failed to get total entries: %w", err)
	}
	status.TotalEntries = int(total)
	if total == 0 {
		return status, nil
	}

	oldest, err := rs.client.ZRangeWithScores(ctx, rs.indexKey(), 0, 0).Result()
	if err != nil {
		return status, fmt.Errorf("failed to get oldest entry: %w", err)
	}
	newest, err := rs.client.ZRevRangeWithScores(ctx, rs.indexKey(), 0, 0).Result()
	if err != nil {
		return status, fmt.Errorf("failed to get last entry: %w", err)
	}
	if len(oldest) > 0 {
		status.OldestEntryTime = time.Unix(int64(oldest[0].Score), 0)
	}
	if len(newest) > 0 {
		status.LastEntryTime = time.Unix(int64(newest[0].Score), 0)
	}
	status.TableSizeBytes = total * 1000 // Rough estimate
	return status, nil
}

// Clear removes every entry under this store's prefix.
func (rs *RedisCacheStore) Clear(ctx context.Context) error {
	keys, err := rs.client.ZRange(ctx, rs.indexKey(), 0, -1).Result()
	if err != nil {
		return fmt.Errorf("failed to list entries: %w", err)
	}
	toDelete := make([]string, 0, len(keys)+1)
	for _, k := range keys {
		toDelete = append(toDelete, rs.entryKey(k))
	}
	toDelete = append(toDelete, rs.indexKey())
	return rs.client.Del(ctx, toDelete...).Err()
}

// Close closes the Redis client.
func (rs *RedisCacheStore) Close() error {
	return rs.client.Close()
}
