package rbac

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

const grantKeyPrefix = "rbac:grants:"

// GrantCache keeps per-role grants in Redis in front of another GrantSource.
// Cache failures fall back to the source.
type GrantCache struct {
	client *redis.Client
	source GrantSource
	ttl    time.Duration
	logger *slog.Logger
	group  singleflight.Group
}

// NewGrantCache wraps source with a Redis cache. A nil client disables caching.
func NewGrantCache(client *redis.Client, source GrantSource, ttl time.Duration, logger *slog.Logger) *GrantCache {
	if logger == nil {
		logger = slog.Default()
	}
	return &GrantCache{client: client, source: source, ttl: ttl, logger: logger}
}

func grantKey(role RoleName) string { return grantKeyPrefix + string(role) }

// PermissionsByRoles serves cached roles from Redis and loads the rest once
// per concurrent burst.
func (c *GrantCache) PermissionsByRoles(ctx context.Context, roles []RoleName) (map[RoleName][]Permission, error) {
	if c.client == nil || len(roles) == 0 {
		return c.source.PermissionsByRoles(ctx, roles)
	}
	keys := make([]string, len(roles))
	for i, r := range roles {
		keys[i] = grantKey(r)
	}
	out := make(map[RoleName][]Permission, len(roles))
	var missing []RoleName
	values, err := c.client.MGet(ctx, keys...).Result()
	if err != nil {
		c.logger.Warn("rbac grant cache read", slog.Any("error", err))
		missing = append(missing, roles...)
	} else {
		for i, v := range values {
			raw, ok := v.(string)
			if !ok {
				missing = append(missing, roles[i])
				continue
			}
			var perms []Permission
			if err := json.Unmarshal([]byte(raw), &perms); err != nil {
				missing = append(missing, roles[i])
				continue
			}
			out[roles[i]] = perms
		}
	}
	if len(missing) == 0 {
		return out, nil
	}

	loaded, err := c.load(ctx, missing)
	if err != nil {
		return nil, err
	}
	for role, perms := range loaded {
		out[role] = perms
	}
	return out, nil
}

func (c *GrantCache) load(ctx context.Context, roles []RoleName) (map[RoleName][]Permission, error) {
	sorted := append([]RoleName(nil), roles...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	names := make([]string, len(sorted))
	for i, r := range sorted {
		names[i] = string(r)
	}
	bg := context.WithoutCancel(ctx)
	ch := c.group.DoChan(strings.Join(names, ","), func() (interface{}, error) {
		loaded, err := c.source.PermissionsByRoles(bg, sorted)
		if err != nil {
			return nil, err
		}
		pipe := c.client.Pipeline()
		for role, perms := range loaded {
			raw, err := json.Marshal(perms)
			if err != nil {
				return nil, fmt.Errorf("rbac: encode grants: %w", err)
			}
			pipe.Set(bg, grantKey(role), raw, c.ttl)
		}
		if _, err := pipe.Exec(bg); err != nil {
			c.logger.Warn("rbac grant cache write", slog.Any("error", err))
		}
		return loaded, nil
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(map[RoleName][]Permission), nil
	}
}

// Invalidate drops cached grants for the given roles.
func (c *GrantCache) Invalidate(ctx context.Context, roles ...RoleName) error {
	if c.client == nil || len(roles) == 0 {
		return nil
	}
	keys := make([]string, len(roles))
	for i, r := range roles {
		keys[i] = grantKey(r)
	}
	return c.client.Del(ctx, keys...).Err()
}
