// Package cache holds Redis-backed counters. A nil *Counter is valid and
// behaves as an always-empty cache.
package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	DefaultTTL = 10 * time.Minute

	// NoGeneration is returned when the generation could not be read.
	// SetCount ignores it.
	NoGeneration int64 = -1

	commentCountKey = "video:comment_count:%s"
	commentGenKey   = "video:comment_gen:%s"
	generationTTL   = 24 * time.Hour
	opTimeout       = 2 * time.Second
)

var errStaleGeneration = errors.New("comment count generation moved")

type Counter struct {
	client *redis.Client
	ttl    time.Duration
}

func NewCounter(client *redis.Client, ttl time.Duration) *Counter {
	if client == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Counter{client: client, ttl: ttl}
}

// Connect parses a redis:// URL and pings the server.
func Connect(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

func CommentCountKey(videoID string) string {
	return fmt.Sprintf(commentCountKey, videoID)
}

func CommentGenerationKey(videoID string) string {
	return fmt.Sprintf(commentGenKey, videoID)
}

// GetCount reports the cached comment total for a video. On a miss it also
// returns the video's write generation, which the caller hands back to
// SetCount after recounting. Errors count as a miss.
func (c *Counter) GetCount(ctx context.Context, videoID string) (n int64, gen int64, ok bool) {
	if c == nil {
		return 0, NoGeneration, false
	}
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	vals, err := c.client.MGet(ctx, CommentCountKey(videoID), CommentGenerationKey(videoID)).Result()
	if err != nil {
		slog.Warn("cache: get failed", "video_id", videoID, "error", err)
		return 0, NoGeneration, false
	}

	gen = 0
	if raw, isStr := vals[1].(string); isStr {
		if gen, err = strconv.ParseInt(raw, 10, 64); err != nil {
			return 0, NoGeneration, false
		}
	}
	raw, isStr := vals[0].(string)
	if !isStr {
		return 0, gen, false
	}
	if n, err = strconv.ParseInt(raw, 10, 64); err != nil {
		slog.Warn("cache: malformed count", "video_id", videoID, "value", raw)
		return 0, gen, false
	}
	return n, gen, true
}

// SetCount caches n unless a write has invalidated the video since gen was
// read. The generation check and the write run in one WATCH transaction.
func (c *Counter) SetCount(ctx context.Context, videoID string, n int64, gen int64) {
	if c == nil || gen < 0 {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	genKey := CommentGenerationKey(videoID)
	err := c.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, genKey).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if current != gen {
			return errStaleGeneration
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, CommentCountKey(videoID), n, c.ttl)
			return nil
		})
		return err
	}, genKey)

	switch {
	case err == nil:
	case errors.Is(err, errStaleGeneration), errors.Is(err, redis.TxFailedErr):
		slog.Debug("cache: dropped stale comment count", "video_id", videoID)
	default:
		slog.Warn("cache: set failed", "video_id", videoID, "error", err)
	}
}

// Invalidate bumps the video's write generation and drops its cached total.
func (c *Counter) Invalidate(ctx context.Context, videoID string) {
	if c == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	genKey := CommentGenerationKey(videoID)
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, genKey)
		pipe.Expire(ctx, genKey, generationTTL)
		pipe.Del(ctx, CommentCountKey(videoID))
		return nil
	})
	if err != nil {
		slog.Warn("cache: invalidate failed", "video_id", videoID, "error", err)
	}
}
