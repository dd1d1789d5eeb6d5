package services

import (
	"context"
	"sync"

	"github.com/f3nation/f3map/modules/org/domain/org"
)

// Stamp pins a cached chain to the cache generation and the store's tree
// version it was read under. A chain is served only to readers holding the
// same stamp, so a write committed by any process retires it.
type Stamp struct {
	Gen     uint64
	Version int64
}

// AncestorCache holds raw ancestor chains (self first, inactive nodes
// included) keyed by org id. Invalidate starts a new generation, and Set under
// an older generation is dropped so a read that raced an org mutation cannot
// repopulate stale data.
type AncestorCache interface {
	// Generation reports the current generation. ok is false when the cache
	// is unavailable and should be bypassed.
	Generation(ctx context.Context) (gen uint64, ok bool)
	Get(ctx context.Context, stamp Stamp, orgID int64) ([]org.Node, bool)
	Set(ctx context.Context, stamp Stamp, orgID int64, chain []org.Node)
	Invalidate(ctx context.Context, reason string)
}

type memoryEntry struct {
	version int64
	chain   []org.Node
}

type memoryAncestorCache struct {
	mu      sync.RWMutex
	gen     uint64
	entries map[int64]memoryEntry
}

func NewMemoryAncestorCache() AncestorCache {
	return &memoryAncestorCache{entries: make(map[int64]memoryEntry)}
}

func (c *memoryAncestorCache) Generation(context.Context) (uint64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.gen, true
}

func (c *memoryAncestorCache) Get(_ context.Context, stamp Stamp, orgID int64) ([]org.Node, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if stamp.Gen != c.gen {
		recordCacheRequest("memory", false)
		return nil, false
	}
	entry, ok := c.entries[orgID]
	if ok && entry.version != stamp.Version {
		ok = false
	}
	recordCacheRequest("memory", ok)
	if !ok {
		return nil, false
	}
	return cloneChain(entry.chain), true
}

func (c *memoryAncestorCache) Set(_ context.Context, stamp Stamp, orgID int64, chain []org.Node) {
	if orgID <= 0 || len(chain) == 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if stamp.Gen != c.gen {
		return
	}
	c.entries[orgID] = memoryEntry{version: stamp.Version, chain: cloneChain(chain)}
}

func (c *memoryAncestorCache) Invalidate(_ context.Context, reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	c.entries = make(map[int64]memoryEntry)
	recordCacheInvalidate(reason)
}

type noopAncestorCache struct{}

// NewNoopAncestorCache disables ancestor caching.
func NewNoopAncestorCache() AncestorCache { return noopAncestorCache{} }

func (noopAncestorCache) Generation(context.Context) (uint64, bool) { return 0, false }

func (noopAncestorCache) Get(context.Context, Stamp, int64) ([]org.Node, bool) { return nil, false }

func (noopAncestorCache) Set(context.Context, Stamp, int64, []org.Node) {}

func (noopAncestorCache) Invalidate(context.Context, string) {}

func cloneChain(chain []org.Node) []org.Node {
	out := make([]org.Node, len(chain))
	copy(out, chain)
	for i := range out {
		if out[i].ParentID != nil {
			parent := *out[i].ParentID
			out[i].ParentID = &parent
		}
	}
	return out
}
