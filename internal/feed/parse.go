package feed

import (
	"bytes"
	"errors"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	applog "github.com/JLsquare/free-room-api/internal/log"
	"github.com/JLsquare/free-room-api/internal/model"
)

// ParseBookings extracts busy bookings from one feed document. Every VEVENT
// contributes one booking per room named in its LOCATION property (several
// rooms may share a single event, separated by the iCal escaped comma).
// Recurring events are expanded into one booking per occurrence inside the
// window. Individually malformed events are logged and skipped; only an
// unparsable document is an error.
func ParseBookings(resource int, body []byte, w Window) ([]model.Booking, error) {
	if len(body) == 0 {
		return nil, errors.New("empty feed body")
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	bookings := make([]model.Booking, 0)

	for _, ve := range cal.Events() {
		start, err := ve.GetStartAt()
		if err != nil {
			applog.Warn("event missing start, skipping", "resource", resource, "reason", err)
			continue
		}
		end, err := ve.GetEndAt()
		if err != nil {
			applog.Warn("event missing end, skipping", "resource", resource, "reason", err)
			continue
		}

		names := eventRoomNames(ve)
		if len(names) == 0 {
			continue
		}

		intervals := eventIntervals(resource, ve, start, end, w)
		for _, iv := range intervals {
			if !iv.Valid() {
				continue
			}
			for _, name := range names {
				bookings = append(bookings, model.Booking{Room: name, Interval: iv})
			}
		}
	}

	applog.Debug("feed parsed", "resource", resource, "booking_count", len(bookings))
	return bookings, nil
}

// eventIntervals returns the concrete busy intervals of one event: a single
// interval for plain events, one per occurrence for RRULE events.
func eventIntervals(resource int, ve *ical.VEvent, start, end time.Time, w Window) []model.Interval {
	rruleProp := ve.GetProperty(ical.ComponentPropertyRrule)
	if rruleProp == nil || rruleProp.Value == "" {
		return []model.Interval{model.NewInterval(start, end)}
	}

	starts, truncated := expandRule(rruleProp.Value, start, eventExDates(ve), w)
	if truncated {
		applog.Warn("recurrence expansion truncated", "resource", resource, "rrule", rruleProp.Value)
	}

	duration := end.Sub(start)
	intervals := make([]model.Interval, 0, len(starts))
	for _, s := range starts {
		intervals = append(intervals, model.NewInterval(s, s.Add(duration)))
	}
	return intervals
}

// eventRoomNames extracts the room names of one event from its LOCATION
// property, split on the iCal escaped comma.
func eventRoomNames(ve *ical.VEvent) []string {
	prop := ve.GetProperty(ical.ComponentPropertyLocation)
	if prop == nil || prop.Value == "" {
		return nil
	}

	parts := strings.Split(prop.Value, `\,`)
	names := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			names = append(names, p)
		}
	}
	return names
}

// eventExDates collects EXDATE values; each property may carry a
// comma-separated list.
func eventExDates(ve *ical.VEvent) []time.Time {
	var out []time.Time
	for _, prop := range ve.GetProperties(ical.ComponentPropertyExdate) {
		for _, part := range strings.Split(prop.Value, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			if t, err := parseICSTime(part); err == nil {
				out = append(out, t)
			}
		}
	}
	return out
}

// parseICSTime parses the basic ICS date/date-time forms used by EXDATE.
func parseICSTime(v string) (time.Time, error) {
	switch {
	case strings.HasSuffix(v, "Z"):
		return time.Parse("20060102T150405Z", v)
	case strings.Contains(v, "T"):
		return time.ParseInLocation("20060102T150405", v, time.Local)
	default:
		return time.ParseInLocation("20060102", v, time.Local)
	}
}
