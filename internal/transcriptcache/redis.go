package transcriptcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"signscribe/internal/source"
	"signscribe/internal/transcript"
)

const redisKeyPrefix = "signscribe:transcript:"

// RedisCache stores transcripts as JSON strings with a TTL.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache wraps an existing client.
func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

// DialRedis connects to addr and verifies the connection with PING.
func DialRedis(ctx context.Context, addr string, db int, ttl time.Duration) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:        addr,
		DB:          db,
		DialTimeout: 2 * time.Second,
		ReadTimeout: 2 * time.Second,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis %s: %w", addr, err)
	}
	return NewRedisCache(client, ttl), nil
}

// Get returns the cached transcript for id. A missing key is a miss, not an error.
func (c *RedisCache) Get(ctx context.Context, id source.VideoID) (transcript.Transcript, bool, error) {
	data, err := c.client.Get(ctx, redisKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return transcript.Transcript{}, false, nil
	}
	if err != nil {
		return transcript.Transcript{}, false, fmt.Errorf("redis get: %w", err)
	}
	t, err := decodeTranscript(data)
	if err != nil {
		return transcript.Transcript{}, false, err
	}
	return t, true, nil
}

// Put stores t under id with the configured TTL.
func (c *RedisCache) Put(ctx context.Context, id source.VideoID, t transcript.Transcript) error {
	if strings.TrimSpace(string(id)) == "" {
		return errors.New("video id cannot be empty")
	}
	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("marshal transcript: %w", err)
	}
	if err := c.client.Set(ctx, redisKey(id), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Close releases the client connection pool.
func (c *RedisCache) Close() error {
	return c.client.Close()
}

func redisKey(id source.VideoID) string {
	return redisKeyPrefix + strings.TrimSpace(string(id))
}

func decodeTranscript(data []byte) (transcript.Transcript, error) {
	var t transcript.Transcript
	if err := json.Unmarshal(data, &t); err != nil {
		return transcript.Transcript{}, fmt.Errorf("decode cached transcript: %w", err)
	}
	return t, nil
}
