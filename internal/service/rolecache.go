package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/studentdesk/complaints/internal/model"
)

// RoleCache fronts the privileged role lookup. A miss is never an error:
// callers fall back to the database.
type RoleCache interface {
	Get(ctx context.Context, principalID string) (*model.RoleInfo, bool)
	Set(ctx context.Context, principalID string, info *model.RoleInfo)
	Invalidate(ctx context.Context, principalID string)
}

type memoryEntry struct {
	info      model.RoleInfo
	expiresAt time.Time
}

// MemoryRoleCache is a per-process TTL cache.
type MemoryRoleCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewMemoryRoleCache(ttl time.Duration) *MemoryRoleCache {
	return &MemoryRoleCache{
		ttl:     ttl,
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

func (c *MemoryRoleCache) Get(_ context.Context, principalID string) (*model.RoleInfo, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[principalID]
	if !ok {
		return nil, false
	}
	if !c.now().Before(entry.expiresAt) {
		delete(c.entries, principalID)
		return nil, false
	}
	info := entry.info
	return &info, true
}

func (c *MemoryRoleCache) Set(_ context.Context, principalID string, info *model.RoleInfo) {
	if c.ttl <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[principalID] = memoryEntry{info: *info, expiresAt: c.now().Add(c.ttl)}
}

func (c *MemoryRoleCache) Invalidate(_ context.Context, principalID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, principalID)
}

// RedisRoleCache shares role lookups between server instances.
// Values are stored as "<role>:<0|1>".
type RedisRoleCache struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

func NewRedisRoleCache(client *redis.Client, ttl time.Duration) *RedisRoleCache {
	return &RedisRoleCache{client: client, ttl: ttl, prefix: "desk:role:"}
}

// NewRedisClient parses a redis:// URL and verifies the server is reachable.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

func (c *RedisRoleCache) Get(ctx context.Context, principalID string) (*model.RoleInfo, bool) {
	value, err := c.client.Get(ctx, c.prefix+principalID).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			slog.Warn("role cache read failed", "user_id", principalID, "error", err)
		}
		return nil, false
	}

	role, active, ok := strings.Cut(value, ":")
	if !ok || !model.Role(role).Valid() {
		return nil, false
	}
	return &model.RoleInfo{Role: model.Role(role), IsActive: active == "1"}, true
}

func (c *RedisRoleCache) Set(ctx context.Context, principalID string, info *model.RoleInfo) {
	if c.ttl <= 0 {
		return
	}
	active := "0"
	if info.IsActive {
		active = "1"
	}
	if err := c.client.Set(ctx, c.prefix+principalID, string(info.Role)+":"+active, c.ttl).Err(); err != nil {
		slog.Warn("role cache write failed", "user_id", principalID, "error", err)
	}
}

func (c *RedisRoleCache) Invalidate(ctx context.Context, principalID string) {
	if err := c.client.Del(ctx, c.prefix+principalID).Err(); err != nil {
		slog.Warn("role cache invalidation failed", "user_id", principalID, "error", err)
	}
}
