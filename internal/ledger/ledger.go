package ledger

import (
	"sort"
	"sync"
	"time"

	"github.com/five82/feeder/internal/model"
)

// Change describes the outcome of an Upsert.
type Change struct {
	model.Delta
	// Stale is set when the point was dropped because its version stamp
	// was not newer than the cached copy.
	Stale bool
	// Created is set when the point was not cached before.
	Created bool
	// Previous is the cached copy before the upsert, if any.
	Previous *model.FeedingPoint
}

// Ledger caches feeding points by ID. Writes are serialized; reads return
// deep copies so callers never share mutable state with the ledger.
type Ledger struct {
	mu     sync.RWMutex
	points map[string]model.FeedingPoint
	// deleted holds the version stamp of every removed point. Upserts
	// not newer than the mark are dropped.
	deleted     map[string]time.Time
	lastUpdated time.Time
}

// New returns an empty Ledger.
func New() *Ledger {
	return &Ledger{
		points:  make(map[string]model.FeedingPoint),
		deleted: make(map[string]time.Time),
	}
}

// Upsert stores point when it is newer than the cached copy and classifies
// the change. A point with the same or an older UpdatedAt is dropped.
func (l *Ledger) Upsert(point model.FeedingPoint) Change {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ensure()

	prev, ok := l.points[point.ID]
	if !ok {
		if mark, gone := l.deleted[point.ID]; gone {
			if !point.UpdatedAt.After(mark) {
				return Change{Delta: model.Delta{Kind: model.ChangeNone}, Stale: true}
			}
			delete(l.deleted, point.ID)
		}
		l.points[point.ID] = point.Clone()
		l.lastUpdated = time.Now()
		return Change{Delta: model.Delta{Kind: model.ChangeSubstantive}, Created: true}
	}
	if !point.UpdatedAt.After(prev.UpdatedAt) {
		return Change{Delta: model.Delta{Kind: model.ChangeNone}, Stale: true}
	}

	delta := model.Diff(prev, point)
	l.points[point.ID] = point.Clone()
	l.lastUpdated = time.Now()
	before := prev.Clone()
	return Change{Delta: delta, Previous: &before}
}

// ReplaceAll upserts every point in points and returns how many were
// substantively changed or created.
func (l *Ledger) ReplaceAll(points []model.FeedingPoint) int {
	changed := 0
	for _, p := range points {
		if c := l.Upsert(p); c.Kind == model.ChangeSubstantive {
			changed++
		}
	}
	return changed
}

// SetFavorite overwrites the local favorite flag without touching the
// version stamp. It returns the previous flag and whether the point exists.
func (l *Ledger) SetFavorite(id string, favorite bool) (bool, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ensure()

	p, ok := l.points[id]
	if !ok {
		return false, false
	}
	prev := p.IsFavorite
	p.IsFavorite = favorite
	l.points[id] = p
	return prev, true
}

// Remove drops a point deleted at version at and remembers the deletion,
// so an older update delivered later cannot bring the point back. A cached
// copy newer than at is kept. A zero at deletes whatever is cached. Remove
// reports whether a cached point was dropped.
func (l *Ledger) Remove(id string, at time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ensure()

	prev, ok := l.points[id]
	if ok && !at.IsZero() && prev.UpdatedAt.After(at) {
		return false
	}
	mark := at
	if ok && prev.UpdatedAt.After(mark) {
		mark = prev.UpdatedAt
	}
	if old, seen := l.deleted[id]; !seen || mark.After(old) {
		l.deleted[id] = mark
	}
	if !ok {
		return false
	}
	delete(l.points, id)
	l.lastUpdated = time.Now()
	return true
}

// Get returns a copy of the cached point.
func (l *Ledger) Get(id string) (model.FeedingPoint, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	p, ok := l.points[id]
	if !ok {
		return model.FeedingPoint{}, false
	}
	return p.Clone(), true
}

// All returns copies of every cached point ordered by name, then ID.
func (l *Ledger) All() []model.FeedingPoint {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if len(l.points) == 0 {
		return nil
	}
	out := make([]model.FeedingPoint, 0, len(l.points))
	for _, p := range l.points {
		out = append(out, p.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Len returns the number of cached points.
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.points)
}

// LastUpdated returns when the ledger content last changed.
func (l *Ledger) LastUpdated() time.Time {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.lastUpdated
}

func (l *Ledger) ensure() {
	if l.points == nil {
		l.points = make(map[string]model.FeedingPoint)
	}
	if l.deleted == nil {
		l.deleted = make(map[string]time.Time)
	}
}
