// Package catalog provides the validated event list every view reads from.
// Fetch and validation failures never reach callers: they see the last
// good list, or an empty one.
package catalog

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	appLog "uaoagenda/internal/log"
	"uaoagenda/internal/model"
)

// Observer receives refresh outcomes; metrics implements it.
type Observer interface {
	CatalogRefreshed(events, dropped int, fromCache bool)
	CatalogFailed()
}

// Catalog holds the current snapshot of validated events.
type Catalog struct {
	fetcher  *Fetcher
	src      Source
	observer Observer

	mu       sync.RWMutex
	events   []model.EventRecord
	version  uint64
	loadedAt time.Time
}

func New(fetcher *Fetcher, src Source, observer Observer) *Catalog {
	return &Catalog{fetcher: fetcher, src: src, observer: observer, events: []model.EventRecord{}}
}

// NewStatic serves a fixed list that never refreshes.
func NewStatic(events []model.EventRecord) *Catalog {
	c := &Catalog{events: append([]model.EventRecord{}, events...)}
	c.version = 1
	c.loadedAt = time.Now()
	return c
}

// Refresh fetches and validates the document. On failure the previous
// snapshot is kept (empty before the first success). It returns the number
// of events now served.
func (c *Catalog) Refresh(ctx context.Context) int {
	if c.fetcher == nil {
		return len(c.ListEvents())
	}
	res, err := c.fetcher.Fetch(ctx, c.src)
	if err != nil {
		appLog.Error("catalog refresh failed; keeping previous events", err, "served", len(c.ListEvents()))
		if c.observer != nil {
			c.observer.CatalogFailed()
		}
		return len(c.ListEvents())
	}

	events, dropped := Decode(res.Body)

	c.mu.Lock()
	c.events = events
	c.version++
	c.loadedAt = time.Now()
	c.mu.Unlock()

	appLog.Info("catalog refreshed", "events", len(events), "dropped", dropped, "from_cache", res.FromCache)
	if c.observer != nil {
		c.observer.CatalogRefreshed(len(events), dropped, res.FromCache)
	}
	return len(events)
}

// ListEvents returns a copy of the current snapshot.
func (c *Catalog) ListEvents() []model.EventRecord {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.events)
}

// Snapshot returns the events and the version they belong to, read under
// one lock so a concurrent Refresh cannot pair old events with a new version.
func (c *Catalog) Snapshot() ([]model.EventRecord, uint64) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.events), c.version
}

// Version increments on every successful refresh; derived-view caches key
// on it.
func (c *Catalog) Version() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.version
}

func (c *Catalog) LoadedAt() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loadedAt
}

// StartRefresher schedules Refresh on the standard 5-field cron spec. The
// returned stop function waits for a running refresh to finish.
func StartRefresher(ctx context.Context, c *Catalog, spec string) (func(), error) {
	cr := cron.New()
	if _, err := cr.AddFunc(spec, func() {
		c.Refresh(ctx)
	}); err != nil {
		return nil, err
	}
	cr.Start()
	appLog.Info("catalog refresher started", "schedule", spec)
	return func() {
		<-cr.Stop().Done()
		appLog.Info("catalog refresher stopped")
	}, nil
}
