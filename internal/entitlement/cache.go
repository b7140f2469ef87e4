// Package entitlement keeps the versioned, two-tier cache of
// resolved plan capabilities. Reuse vs. refetch is decided by
// comparing the snapshot version against the capabilities
// version hash carried inside the session token claims.
package entitlement

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/huzilerz/session-core/infra/storage"
	"github.com/huzilerz/session-core/internal/flight"
	"github.com/huzilerz/session-core/internal/model"
)

// Durable key prefix ; namespaced by user id
const storagePrefix = "huzilerz:entitlements:"

// API. Entitlements endpoint consumer.
type API interface {
	Capabilities(ctx context.Context) (*model.EntitlementSnapshot, error)
}

// Cache. Two-tier entitlement snapshot store:
// memory tier (O(1) predicates) over a durable tier
// (page-reload survival) over the network.
type Cache struct {
	api    API
	store  storage.Store
	mem    *expirable.LRU[int64, *model.EntitlementSnapshot]
	flight flight.Group[*model.EntitlementSnapshot]
	logs   *slog.Logger
}

type Option func(c *Cache)

// WithMemoryTTL bounds how long a memory-tier snapshot may be
// served without revisiting the durable tier ; default 1h.
func WithMemoryTTL(ttl time.Duration) Option {
	return func(c *Cache) {
		if ttl > 0 {
			c.mem = expirable.NewLRU[int64, *model.EntitlementSnapshot](0, nil, ttl)
		}
	}
}

func NewCache(api API, store storage.Store, logs *slog.Logger, opts ...Option) *Cache {
	if logs == nil {
		logs = slog.Default()
	}
	c := &Cache{
		api:   api,
		store: store,
		mem:   expirable.NewLRU[int64, *model.EntitlementSnapshot](0, nil, time.Hour),
		logs:  logs,
	}
	for _, option := range opts {
		option(c)
	}
	return c
}

func storageKey(userID int64) string {
	return fmt.Sprintf("%s%d", storagePrefix, userID)
}

// Get resolves the capability snapshot for [claims], cheapest
// tier first:
//
//  1. memory snapshot with matching version — returned as is ;
//  2. durable snapshot with matching version — promoted to
//     memory, returned ;
//  3. otherwise — one single-flight network fetch ; on success
//     both tiers are replaced atomically ; on failure the stale
//     cached value (any version) degrades gracefully instead of
//     blocking rendering.
//
// Nil claims mean no subscription grant: (nil, nil).
func (c *Cache) Get(ctx context.Context, claims *model.SubscriptionClaims, userID int64) (*model.EntitlementSnapshot, error) {
	if claims == nil || claims.CapabilitiesVersion == "" || userID == 0 {
		return nil, nil
	}
	version := claims.CapabilitiesVersion

	// [1] memory tier
	if snap, ok := c.mem.Get(userID); ok && snap.Version == version {
		return snap, nil
	}

	// [2] durable tier
	if snap := c.durable(ctx, userID); snap != nil && snap.Version == version {
		c.mem.Add(userID, snap)
		return snap, nil
	}

	// [3] network ; concurrent version-mismatch detections
	// from several mounting components collapse into one call
	kind := fmt.Sprintf("capabilities:%d:%s", userID, version)
	snap, err := c.flight.Do(ctx, kind, func(ctx context.Context) (*model.EntitlementSnapshot, error) {
		fresh, err := c.api.Capabilities(ctx)
		if err != nil {
			return nil, err
		}
		c.replace(ctx, userID, fresh)
		return fresh, nil
	})

	if err != nil {
		// degrade: serve stale if any cached value exists
		if stale, ok := c.mem.Get(userID); ok {
			c.logs.WarnContext(ctx, "entitlements: fetch failed ; serving stale",
				"user_id", userID,
				"stale_version", stale.Version,
				"want_version", version,
				"error", err,
			)
			return stale, nil
		}
		if stale := c.durable(ctx, userID); stale != nil {
			c.mem.Add(userID, stale)
			return stale, nil
		}
		return nil, err
	}

	return snap, nil
}

// Can reports whether [feature] is enabled. Memory tier only,
// O(1) ; returns false rather than ever touching I/O, because
// it is called pervasively in render paths.
func (c *Cache) Can(userID int64, feature string) bool {
	snap, ok := c.mem.Get(userID)
	return ok && snap.Can(feature)
}

// Value returns the raw capability value. Memory tier only.
func (c *Cache) Value(userID int64, feature string) (any, bool) {
	snap, ok := c.mem.Get(userID)
	if !ok {
		return nil, false
	}
	return snap.Value(feature)
}

// Forget drops the memory tier only, for [userID]. Remote
// sign-out path: the sending surface already cleared the
// shared durable key, deleting it again here could race a
// newer session's write.
func (c *Cache) Forget(userID int64) {
	if userID == 0 {
		return
	}
	c.mem.Remove(userID)
}

// Invalidate drops both tiers for [userID]. Logout path.
func (c *Cache) Invalidate(ctx context.Context, userID int64) {
	if userID == 0 {
		return
	}
	c.mem.Remove(userID)
	if c.store != nil {
		if err := c.store.Del(ctx, storageKey(userID)); err != nil {
			c.logs.WarnContext(ctx, "entitlements: durable invalidate failed",
				"user_id", userID,
				"error", err,
			)
		}
	}
}

// replace both tiers atomically: memory first, then durable ;
// a failed durable write degrades to memory-only caching.
func (c *Cache) replace(ctx context.Context, userID int64, snap *model.EntitlementSnapshot) {
	c.mem.Add(userID, snap)
	if c.store == nil {
		return
	}
	raw, err := json.Marshal(snap)
	if err == nil {
		err = c.store.Set(ctx, storageKey(userID), string(raw))
	}
	if err != nil {
		c.logs.WarnContext(ctx, "entitlements: durable write failed",
			"user_id", userID,
			"error", err,
		)
	}
}

func (c *Cache) durable(ctx context.Context, userID int64) *model.EntitlementSnapshot {
	if c.store == nil {
		return nil
	}
	raw, err := c.store.Get(ctx, storageKey(userID))
	if err != nil {
		if !storage.IsNotFound(err) {
			c.logs.WarnContext(ctx, "entitlements: durable read failed",
				"user_id", userID,
				"error", err,
			)
		}
		return nil
	}
	snap := new(model.EntitlementSnapshot)
	if err = json.Unmarshal([]byte(raw), snap); err != nil {
		// corrupted blob ; fail open to a refetch
		return nil
	}
	return snap
}
