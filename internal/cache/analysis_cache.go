package cache

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ItayBoros/Psychology-Session-Analyzer/internal/model"
)

// Key derives the cache key from the exact transcript text. Two jobs with
// byte-identical transcripts hash to the same key and share one analysis.
func Key(transcript string) string {
	sum := md5.Sum([]byte(transcript))
	return hex.EncodeToString(sum[:])
}

// AnalysisCache memoizes the expensive analysis call. Entries expire by TTL
// only; concurrent compute-then-set races resolve last-writer-wins.
type AnalysisCache interface {
	Get(ctx context.Context, key string) (*model.AnalysisResult, bool, error)
	Set(ctx context.Context, key string, result *model.AnalysisResult) error
}

// RedisCache implements AnalysisCache on Redis with a fixed TTL.
type RedisCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisCache(rdb *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{rdb: rdb, ttl: ttl}
}

func (c *RedisCache) Get(ctx context.Context, key string) (*model.AnalysisResult, bool, error) {
	data, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("cache read failed: %w", err)
	}

	var result model.AnalysisResult
	if err := json.Unmarshal(data, &result); err != nil {
		// A corrupt entry is treated as a miss so the job recomputes.
		return nil, false, nil
	}
	return &result, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, result *model.AnalysisResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal analysis result: %w", err)
	}
	if err := c.rdb.SetEx(ctx, key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache write failed: %w", err)
	}
	return nil
}
