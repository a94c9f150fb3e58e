// Package cache provides the Redis-backed post snapshot cache.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/isdelr/feed-api/internal/metrics"
	"github.com/isdelr/feed-api/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const postKeyPrefix = "feed:post:"

// Connect opens a Redis client for addr, which may be host:port or a redis:// URL,
// and verifies it with a ping.
func Connect(ctx context.Context, addr string) (*redis.Client, error) {
	var opts *redis.Options
	if strings.Contains(addr, "://") {
		parsed, err := redis.ParseURL(addr)
		if err != nil {
			return nil, err
		}
		opts = parsed
	} else {
		opts = &redis.Options{Addr: addr}
	}

	client := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}
	return client, nil
}

// PostCache stores JSON post snapshots with a fixed TTL. Redis failures are
// logged and behave like misses.
type PostCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewPostCache creates a PostCache over client.
func NewPostCache(client *redis.Client, ttl time.Duration) *PostCache {
	return &PostCache{client: client, ttl: ttl}
}

func postKey(postID string) string {
	return postKeyPrefix + postID
}

// Get returns the cached post, if any.
func (c *PostCache) Get(ctx context.Context, postID string) (models.Post, bool) {
	data, err := c.client.Get(ctx, postKey(postID)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Warn().Err(err).Str("post_id", postID).Msg("Post cache read failed")
		}
		metrics.CacheMissesTotal.Inc()
		return models.Post{}, false
	}

	var post models.Post
	if err := json.Unmarshal(data, &post); err != nil {
		log.Warn().Err(err).Str("post_id", postID).Msg("Discarding undecodable cache entry")
		c.Delete(ctx, postID)
		metrics.CacheMissesTotal.Inc()
		return models.Post{}, false
	}
	metrics.CacheHitsTotal.Inc()
	return post, true
}

// Set caches post under its id.
func (c *PostCache) Set(ctx context.Context, post models.Post) {
	data, err := json.Marshal(post)
	if err != nil {
		log.Warn().Err(err).Str("post_id", post.ID).Msg("Failed to encode post for cache")
		return
	}
	if err := c.client.Set(ctx, postKey(post.ID), data, c.ttl).Err(); err != nil {
		log.Warn().Err(err).Str("post_id", post.ID).Msg("Post cache write failed")
	}
}

// Delete evicts the post from the cache.
func (c *PostCache) Delete(ctx context.Context, postID string) {
	if err := c.client.Del(ctx, postKey(postID)).Err(); err != nil {
		log.Warn().Err(err).Str("post_id", postID).Msg("Post cache eviction failed")
	}
}
