package browser

import (
	"context"
	"sync"
)

// StateCache owns the most recent ExtractionSnapshot. Snapshots are swapped
// atomically under the lock, never mutated, so Resolve always works against a
// single consistent pass.
//
// Resolve never triggers extraction; only GetOrRefresh does. This keeps index
// resolution inside one dispatch attempt pinned to one already-fetched
// snapshot.
type StateCache struct {
	mu        sync.RWMutex
	current   *ExtractionSnapshot
	extractor *Extractor
	transport Transport
}

// NewStateCache creates an empty cache bound to an extractor and transport.
func NewStateCache(extractor *Extractor, transport Transport) *StateCache {
	return &StateCache{extractor: extractor, transport: transport}
}

// Current returns the cached snapshot, or nil when the cache is empty.
func (c *StateCache) Current() *ExtractionSnapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current
}

// GetOrRefresh returns the cached snapshot, running a fresh extraction pass
// when the cache is empty or force is set.
func (c *StateCache) GetOrRefresh(ctx context.Context, force bool) (*ExtractionSnapshot, error) {
	if !force {
		if snap := c.Current(); snap != nil {
			return snap, nil
		}
	}

	snap, err := c.extractor.Extract(ctx, c.transport)
	if err != nil {
		return nil, err
	}
	c.Replace(snap)
	return snap, nil
}

// Replace installs a snapshot produced elsewhere (e.g. by a state request).
func (c *StateCache) Replace(snap *ExtractionSnapshot) {
	c.mu.Lock()
	c.current = snap
	c.mu.Unlock()
}

// Invalidate drops the cached snapshot. Called after navigation-class
// actions complete and on staleness signals.
func (c *StateCache) Invalidate() {
	c.mu.Lock()
	c.current = nil
	c.mu.Unlock()
}

// Resolve looks up an element by index in the current snapshot. It returns a
// StaleElementError when the cache is empty or the index is out of range for
// the current pass; it never guesses.
func (c *StateCache) Resolve(index int) (ElementRecord, error) {
	c.mu.RLock()
	snap := c.current
	c.mu.RUnlock()

	if snap == nil {
		return ElementRecord{}, &StaleElementError{Index: index, SnapshotID: "none"}
	}
	rec, ok := snap.Element(index)
	if !ok {
		return ElementRecord{}, &StaleElementError{Index: index, SnapshotID: snap.ID.String()}
	}
	return rec, nil
}
