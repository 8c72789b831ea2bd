package feed

import (
	"time"

	"github.com/teambition/rrule-go"

	applog "github.com/JLsquare/free-room-api/internal/log"
)

// maxOccurrencesPerEvent caps recurrence expansion so a pathological rule
// cannot flood a room's busy set.
const maxOccurrencesPerEvent = 1000

// expandRule expands an RRULE into concrete occurrence start times within
// the window, honoring EXDATEs. The second return value reports whether the
// cap was hit. An unparsable rule yields no occurrences rather than failing
// the whole document.
func expandRule(rawRRule string, dtstart time.Time, exdates []time.Time, w Window) ([]time.Time, bool) {
	r, err := rrule.StrToRRule(rawRRule)
	if err != nil {
		applog.Warn("unparsable RRULE, skipping event", "rrule", rawRRule, "reason", err)
		return nil, false
	}
	r.DTStart(dtstart)

	var set rrule.Set
	set.RRule(r)
	for _, ex := range exdates {
		set.ExDate(ex.In(dtstart.Location()))
	}

	loc := dtstart.Location()
	starts := set.Between(w.First.In(loc), w.Last.In(loc), true)

	if len(starts) > maxOccurrencesPerEvent {
		return starts[:maxOccurrencesPerEvent], true
	}
	return starts, false
}
