// Package rooms holds the in-memory availability engine: the per-room busy
// interval sets, the free-interval sweep, and the read queries served to
// the HTTP layer. All shared state lives in Catalog and is guarded by a
// single mutex; feed I/O never happens under that lock.
package rooms

import (
	"sort"
	"sync"

	"github.com/JLsquare/free-room-api/internal/model"
)

// room owns the busy-interval set of one named room. The set is fully
// replaced on each successful refresh pass for the source that surfaced it.
type room struct {
	busy map[model.Interval]struct{}
}

// sortedBusy snapshots the busy set as a slice sorted ascending by start
// (ties by end).
func (r *room) sortedBusy() []model.Interval {
	out := make([]model.Interval, 0, len(r.busy))
	for iv := range r.busy {
		out = append(out, iv)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Start != out[j].Start {
			return out[i].Start < out[j].Start
		}
		return out[i].End < out[j].End
	})
	return out
}

// Catalog is the process-wide room catalog. It is created empty at startup,
// written by the refresh coordinator and read by the query service.
type Catalog struct {
	mu    sync.Mutex
	rooms map[string]*room

	// surfaced records which room names each source produced on its last
	// successful pass, so rooms dropped from a feed can be emptied.
	surfaced map[string][]string
}

// NewCatalog returns an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{
		rooms:    make(map[string]*room),
		surfaced: make(map[string][]string),
	}
}

// ApplySource atomically installs the result of one source's successful
// ingestion: every surfaced room's busy set is replaced wholesale, and
// rooms the source surfaced on a previous pass but no longer mentions are
// emptied (cancelled events must vanish). Rooms belonging to other sources
// are untouched, so a failed source keeps serving its previous state by
// simply never reaching this call.
func (c *Catalog) ApplySource(sourceID string, bookings map[string][]model.Interval) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, name := range c.surfaced[sourceID] {
		if _, ok := bookings[name]; ok {
			continue
		}
		if r := c.rooms[name]; r != nil {
			r.busy = make(map[model.Interval]struct{})
		}
	}

	names := make([]string, 0, len(bookings))
	for name, intervals := range bookings {
		r := c.rooms[name]
		if r == nil {
			r = &room{}
			c.rooms[name] = r
		}
		set := make(map[model.Interval]struct{}, len(intervals))
		for _, iv := range intervals {
			if !iv.Valid() {
				continue
			}
			set[iv] = struct{}{}
		}
		r.busy = set
		names = append(names, name)
	}
	sort.Strings(names)
	c.surfaced[sourceID] = names
}

// Busy returns a sorted snapshot of a room's busy intervals, or nil if the
// room is unknown.
func (c *Catalog) Busy(name string) []model.Interval {
	c.mu.Lock()
	defer c.mu.Unlock()
	r := c.rooms[name]
	if r == nil {
		return nil
	}
	return r.sortedBusy()
}

// FreeIntervals computes the ordered, non-overlapping free complement of
// busy within [ref, horizon). busy need not be merged but must be sorted
// ascending by start; overlapping and nested intervals are absorbed by the
// cursor, which never moves backwards. Pure: no side effects, safe for
// concurrent callers.
func FreeIntervals(busy []model.Interval, ref, horizon int64) []model.Interval {
	free := make([]model.Interval, 0, len(busy)+1)
	cursor := ref
	for _, iv := range busy {
		if cursor >= horizon {
			break
		}
		if iv.Start > cursor {
			end := iv.Start
			if end > horizon {
				end = horizon
			}
			free = append(free, model.Interval{Start: cursor, End: end})
		}
		if iv.End > cursor {
			cursor = iv.End
		}
	}
	if cursor < horizon {
		free = append(free, model.Interval{Start: cursor, End: horizon})
	}
	return free
}
