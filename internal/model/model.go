package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// Interval is a half-open [Start, End) time range in unix seconds.
// Planning feeds publish second-granular times, so unix seconds keep the
// set semantics simple (Interval is a valid map key).
type Interval struct {
	Start int64
	End   int64
}

// NewInterval builds an Interval from two wall-clock times.
func NewInterval(start, end time.Time) Interval {
	return Interval{Start: start.Unix(), End: end.Unix()}
}

// Valid reports whether the interval is non-empty.
func (iv Interval) Valid() bool { return iv.Start < iv.End }

// Contains reports whether ts falls inside [Start, End).
func (iv Interval) Contains(ts int64) bool { return iv.Start <= ts && ts < iv.End }

// MarshalJSON encodes the interval as a two-element array [start, end],
// the wire shape expected by /api/all consumers.
func (iv Interval) MarshalJSON() ([]byte, error) {
	return []byte(fmt.Sprintf("[%d,%d]", iv.Start, iv.End)), nil
}

// UnmarshalJSON accepts the same two-element array form.
func (iv *Interval) UnmarshalJSON(data []byte) error {
	var pair [2]int64
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	iv.Start, iv.End = pair[0], pair[1]
	return nil
}

// Booking ties one busy interval to one named room, as extracted from a
// single planning-feed event.
type Booking struct {
	Room string
	Interval
}

// Room status strings exposed by /api/lite.
const (
	StatusAvailable   = "available"
	StatusUnavailable = "unavailable"
)

// DurationUnknown is the sentinel returned when no busy interval brackets
// or follows the reference timestamp.
const DurationUnknown int64 = -1

// RoomStatus is one row of the /api/lite response.
type RoomStatus struct {
	Name     string `json:"name"`
	Status   string `json:"status"`
	Duration int64  `json:"duration"`
	Open     bool   `json:"open"`
}
