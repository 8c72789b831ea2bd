package rooms

import (
	"regexp"
	"sort"
	"time"

	"github.com/JLsquare/free-room-api/internal/model"
)

// serviceDayStartHour is the local hour at which the service day begins;
// the "open" flag reports activity inside [today 08:00, tomorrow 08:00).
const serviceDayStartHour = 8

// ListFree returns the free intervals of every room whose name matches
// filter and that has at least one observed busy interval, computed from
// ref forward and bounded at horizon. A nil filter matches everything.
// Deterministic for a fixed catalog state and reference time.
func (c *Catalog) ListFree(filter *regexp.Regexp, ref, horizon int64) map[string][]model.Interval {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make(map[string][]model.Interval)
	for name, r := range c.rooms {
		if filter != nil && !filter.MatchString(name) {
			continue
		}
		if len(r.busy) == 0 {
			continue
		}
		out[name] = FreeIntervals(r.sortedBusy(), ref, horizon)
	}
	return out
}

// StatusAt reports, for every matching room, whether it is inside a booked
// interval at ref and how long until that changes. now supplies the
// service-day boundary for the "open" flag and is deliberately independent
// of ref: shifting the query by an hour offset does not move the day
// window. Results are sorted by room name.
func (c *Catalog) StatusAt(filter *regexp.Regexp, ref int64, now time.Time) []model.RoomStatus {
	dayStart := time.Date(now.Year(), now.Month(), now.Day(),
		serviceDayStartHour, 0, 0, 0, now.Location()).Unix()
	dayEnd := dayStart + 24*60*60

	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]model.RoomStatus, 0, len(c.rooms))
	for name, r := range c.rooms {
		if filter != nil && !filter.MatchString(name) {
			continue
		}
		busy := r.sortedBusy()
		status, duration := scanStatus(busy, ref)
		out = append(out, model.RoomStatus{
			Name:     name,
			Status:   status,
			Duration: duration,
			Open:     openDuring(busy, dayStart, dayEnd),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// scanStatus walks the sorted busy intervals and returns the first one that
// brackets or follows ref: inside a booking the room reports "available"
// until the booking's end, ahead of one it reports "unavailable" until the
// booking's start. With no data or only past bookings the duration is the
// unknown sentinel.
func scanStatus(busy []model.Interval, ref int64) (string, int64) {
	for _, iv := range busy {
		if iv.Contains(ref) {
			return model.StatusAvailable, iv.End - ref
		}
		if iv.Start > ref {
			return model.StatusUnavailable, iv.Start - ref
		}
	}
	return model.StatusUnavailable, model.DurationUnknown
}

// openDuring reports whether any busy interval falls fully inside
// [dayStart, dayEnd). Overlapping duplicates cannot double-count: one
// qualifying interval is enough.
func openDuring(busy []model.Interval, dayStart, dayEnd int64) bool {
	for _, iv := range busy {
		if iv.Start >= dayStart && iv.End <= dayEnd {
			return true
		}
	}
	return false
}
