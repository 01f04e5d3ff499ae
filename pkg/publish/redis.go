package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rescp17/imageReceiver/pkg/transfer"
)

const (
	DefaultHistoryKey   = "imgrecv:history"
	DefaultHistoryLimit = 100
)

// HistoryClient is the subset of *redis.Client used for history.
type HistoryClient interface {
	LPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
	LTrim(ctx context.Context, key string, start, stop int64) *redis.StatusCmd
	LRange(ctx context.Context, key string, start, stop int64) *redis.StringSliceCmd
	HIncrBy(ctx context.Context, key, field string, incr int64) *redis.IntCmd
	HGetAll(ctx context.Context, key string) *redis.MapStringStringCmd
}

// RedisHistory keeps the most recent image metadata in a capped Redis list
// and counts outcomes in a hash next to it.
type RedisHistory struct {
	client  HistoryClient
	key     string
	limit   int64
	timeout time.Duration
}

// NewRedisHistory stores up to limit entries under key.
func NewRedisHistory(client HistoryClient, key string, limit int64) *RedisHistory {
	if key == "" {
		key = DefaultHistoryKey
	}
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return &RedisHistory{client: client, key: key, limit: limit, timeout: 5 * time.Second}
}

// ConnectRedis opens a client for addr and checks it with a ping.
func ConnectRedis(ctx context.Context, addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   0,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}
	slog.Info("Connected to Redis", "addr", addr)
	return client, nil
}

func (h *RedisHistory) statsKey() string { return h.key + ":outcomes" }

// Record prepends result's metadata and trims the list to the limit.
func (h *RedisHistory) Record(ctx context.Context, result transfer.ReconstructionResult) error {
	data, err := json.Marshal(NewMetadata(result))
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}
	if err := h.client.LPush(ctx, h.key, data).Err(); err != nil {
		return fmt.Errorf("failed to push history entry: %w", err)
	}
	if err := h.client.LTrim(ctx, h.key, 0, h.limit-1).Err(); err != nil {
		return fmt.Errorf("failed to trim history: %w", err)
	}
	if err := h.client.HIncrBy(ctx, h.statsKey(), result.Outcome.String(), 1).Err(); err != nil {
		return fmt.Errorf("failed to count outcome: %w", err)
	}
	return nil
}

// Recent returns up to n entries, newest first.
func (h *RedisHistory) Recent(ctx context.Context, n int64) ([]Metadata, error) {
	if n <= 0 || n > h.limit {
		n = h.limit
	}
	raw, err := h.client.LRange(ctx, h.key, 0, n-1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}
	entries := make([]Metadata, 0, len(raw))
	for _, item := range raw {
		var meta Metadata
		if err := json.Unmarshal([]byte(item), &meta); err != nil {
			slog.Warn("Skipping unreadable history entry", "error", err)
			continue
		}
		entries = append(entries, meta)
	}
	return entries, nil
}

// OutcomeCounts returns how many images ended with each outcome.
func (h *RedisHistory) OutcomeCounts(ctx context.Context) (map[string]string, error) {
	counts, err := h.client.HGetAll(ctx, h.statsKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read outcome counts: %w", err)
	}
	return counts, nil
}

// OnImageReady implements receiver.ImageHandler.
func (h *RedisHistory) OnImageReady(result transfer.ReconstructionResult) {
	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()
	if err := h.Record(ctx, result); err != nil {
		slog.Error("Failed to record image history", "session", result.SessionID, "error", err)
	}
}
