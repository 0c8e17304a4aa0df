package realtime

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/samber/lo"

	"github.com/insightslm/insightslm/pkg/types"
)

// SourceCache is a notebook's source list kept current by change events.
// Items are ordered newest first.
type SourceCache struct {
	mu    sync.RWMutex
	items []types.Source
}

func NewSourceCache(initial []types.Source) *SourceCache {
	return &SourceCache{items: append([]types.Source(nil), initial...)}
}

// Insert prepends src unless a source with the same id is cached already.
func (c *SourceCache) Insert(src types.Source) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if lo.ContainsBy(c.items, func(s types.Source) bool { return s.ID == src.ID }) {
		return false
	}
	c.items = append([]types.Source{src}, c.items...)
	return true
}

// Update replaces the cached source with the same id.
func (c *SourceCache) Update(src types.Source) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.items {
		if c.items[i].ID == src.ID {
			c.items[i] = src
			return true
		}
	}
	return false
}

func (c *SourceCache) Delete(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	before := len(c.items)
	c.items = lo.Reject(c.items, func(s types.Source, _ int) bool { return s.ID == id })
	return len(c.items) != before
}

// Apply folds a change event of the sources table into the cache and
// reports whether the cached list changed.
func (c *SourceCache) Apply(ev Event) (bool, error) {
	switch ev.Type {
	case EventInsert, EventUpdate:
		var src types.Source
		if err := json.Unmarshal(ev.Record, &src); err != nil {
			return false, fmt.Errorf("decode source record: %w", err)
		}
		if ev.Type == EventInsert {
			return c.Insert(src), nil
		}
		return c.Update(src), nil
	case EventDelete:
		var old struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(ev.Old, &old); err != nil {
			return false, fmt.Errorf("decode deleted source: %w", err)
		}
		return c.Delete(old.ID), nil
	default:
		return false, fmt.Errorf("unknown event type %q", ev.Type)
	}
}

// Forward folds a sources topic message into the cache and reports whether
// the client still needs it. Events that leave the cache unchanged, such as
// an insert already present in the snapshot, are dropped. Messages of other
// kinds always pass.
func (c *SourceCache) Forward(msg Message) bool {
	if msg.Type != types.WS_EVENT_SOURCE_CHANGED {
		return true
	}
	ev, err := DecodeEvent(msg)
	if err != nil {
		return false
	}
	changed, err := c.Apply(ev)
	return err == nil && changed
}

// Snapshot copies the cached list. It is never nil.
func (c *SourceCache) Snapshot() []types.Source {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]types.Source, len(c.items))
	copy(out, c.items)
	return out
}

func (c *SourceCache) Get(id string) (types.Source, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return lo.Find(c.items, func(s types.Source) bool { return s.ID == id })
}

func (c *SourceCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}
