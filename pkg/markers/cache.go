// Package markers holds the client-side marker state: the session cache,
// the add/edit form state machine and the map presentation model.
package markers

import (
	"context"
	"slices"
	"sync"

	"github.com/GregMSThompson/dockly/pkg/api"
	"github.com/GregMSThompson/dockly/pkg/logger"
)

// Lister fetches the full marker collection. *api.Client satisfies it.
type Lister interface {
	ListMarkers(ctx context.Context) ([]api.Marker, error)
}

// Patch is a partial marker update. Nil fields are left unchanged.
type Patch struct {
	Title       *string
	Latitude    *string
	Longitude   *string
	Description *string
	Rating      *int
	File        *string
}

// PatchFrom returns a patch that sets every field of m.
func PatchFrom(m api.Marker) Patch {
	return Patch{
		Title:       &m.Title,
		Latitude:    &m.Latitude,
		Longitude:   &m.Longitude,
		Description: &m.Description,
		Rating:      &m.Rating,
		File:        &m.File,
	}
}

func (p Patch) apply(m api.Marker) api.Marker {
	if p.Title != nil {
		m.Title = *p.Title
	}
	if p.Latitude != nil {
		m.Latitude = *p.Latitude
	}
	if p.Longitude != nil {
		m.Longitude = *p.Longitude
	}
	if p.Description != nil {
		m.Description = *p.Description
	}
	if p.Rating != nil {
		m.Rating = *p.Rating
	}
	if p.File != nil {
		m.File = *p.File
	}
	return m
}

type pending struct {
	seq    uint64
	create bool
	id     string
	marker api.Marker
	patch  Patch
}

// Cache is the session's marker collection. It keeps the last successful
// list (confirmed) and the optimistic local writes made since (pending).
// Current overlays pending on confirmed. A successful Refresh replaces
// confirmed and drops the pending writes applied before it started; a failed
// Refresh changes nothing.
type Cache struct {
	source Lister

	mu         sync.Mutex
	confirmed  []api.Marker
	pending    []pending
	seq        uint64
	loading    int
	refreshGen uint64
	appliedGen uint64
}

func NewCache(source Lister) *Cache {
	return &Cache{source: source}
}

// Current returns a copy of the visible collection.
func (c *Cache) Current() []api.Marker {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.currentLocked()
}

// Loading reports whether a refresh is in flight.
func (c *Cache) Loading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loading > 0
}

// Refresh replaces the confirmed collection with a fresh list. The returned
// collection is the visible one, also on error.
func (c *Cache) Refresh(ctx context.Context) ([]api.Marker, error) {
	c.mu.Lock()
	startSeq := c.seq
	c.refreshGen++
	gen := c.refreshGen
	c.loading++
	c.mu.Unlock()

	list, err := c.source.ListMarkers(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.loading--

	if err != nil {
		logger.FromContext(ctx).Warn("marker refresh failed, keeping local state", "error", err, "pending", len(c.pending))
		return c.currentLocked(), err
	}
	// a newer refresh already landed
	if gen < c.appliedGen {
		return c.currentLocked(), nil
	}

	c.appliedGen = gen
	c.confirmed = slices.Clone(list)
	c.pending = slices.DeleteFunc(c.pending, func(p pending) bool {
		return p.seq <= startSeq
	})
	return c.currentLocked(), nil
}

// ApplyOptimisticCreate appends a marker that the backend has just stored.
func (c *Cache) ApplyOptimisticCreate(m api.Marker) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	c.pending = append(c.pending, pending{seq: c.seq, create: true, id: m.ID, marker: m})
}

// ApplyOptimisticUpdate patches the marker with the given id.
func (c *Cache) ApplyOptimisticUpdate(id string, patch Patch) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	c.pending = append(c.pending, pending{seq: c.seq, id: id, patch: patch})
}

func (c *Cache) currentLocked() []api.Marker {
	out := slices.Clone(c.confirmed)
	if out == nil {
		out = []api.Marker{}
	}
	for _, p := range c.pending {
		i := slices.IndexFunc(out, func(m api.Marker) bool { return m.ID != "" && m.ID == p.id })
		switch {
		case p.create && i >= 0:
			out[i] = p.marker
		case p.create:
			out = append(out, p.marker)
		case i >= 0:
			out[i] = p.patch.apply(out[i])
		}
	}
	return out
}
