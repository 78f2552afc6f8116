package ics

import (
	"time"

	"github.com/rs/zerolog"
	"github.com/teambition/rrule-go"

	"slotlink/internal/model"
)

// maxOccurrencesPerEvent bounds expansion of pathological rules. The
// window already caps enumeration in time; this caps it in count.
const maxOccurrencesPerEvent = 1000

// Expand turns one event into concrete busy intervals within the
// half-open window [windowStart, windowEnd). Transparent events
// contribute nothing.
func Expand(ev Event, windowStart, windowEnd time.Time, logger *zerolog.Logger) []model.BusyInterval {
	if !ev.Busy || !windowEnd.After(windowStart) {
		return nil
	}

	if ev.Rule == nil {
		if overlaps(ev.Start, ev.End, windowStart, windowEnd) {
			return []model.BusyInterval{{Start: ev.Start, End: ev.End}}
		}
		return nil
	}

	r, err := rrule.NewRRule(*ev.Rule)
	if err != nil {
		logger.Error().Err(err).Str("uid", ev.UID).Msg("skipping event with bad recurrence rule")
		return nil
	}

	dur := ev.Duration()
	exceptions := exceptionDateSet(ev)

	// Widen the lower bound so occurrences that start before the window
	// but still overlap it are enumerated. Between never runs past the
	// window end, so unbounded rules stay bounded.
	occStarts := r.Between(windowStart.Add(-dur), windowEnd, true)
	if len(occStarts) > maxOccurrencesPerEvent {
		logger.Error().Str("uid", ev.UID).Int("cap", maxOccurrencesPerEvent).Msg("recurrence expansion truncated")
		occStarts = occStarts[:maxOccurrencesPerEvent]
	}

	out := make([]model.BusyInterval, 0, len(occStarts))
	for _, occStart := range occStarts {
		if _, excluded := exceptions[dateKey(occStart, ev.Start.Location())]; excluded {
			continue
		}
		occEnd := occStart.Add(dur)
		if overlaps(occStart, occEnd, windowStart, windowEnd) {
			out = append(out, model.BusyInterval{Start: occStart, End: occEnd})
		}
	}
	return out
}

// ExpandAll expands every event in a feed. A single event's bad rule
// never aborts the rest: one broken recurring event must not make the
// whole page show zero availability.
func ExpandAll(events []Event, windowStart, windowEnd time.Time, logger *zerolog.Logger) []model.BusyInterval {
	var out []model.BusyInterval
	for _, ev := range events {
		out = append(out, Expand(ev, windowStart, windowEnd, logger)...)
	}
	return out
}

// exceptionDateSet keys exceptions by calendar date in the event's own
// timezone. Date-level matching tolerates the all-day/timezone skew
// real feeds carry; it is a known approximation near midnight.
func exceptionDateSet(ev Event) map[string]struct{} {
	if len(ev.ExceptionDates) == 0 {
		return nil
	}
	loc := ev.Start.Location()
	set := make(map[string]struct{}, len(ev.ExceptionDates))
	for _, ex := range ev.ExceptionDates {
		set[dateKey(ex, loc)] = struct{}{}
	}
	return set
}

func dateKey(t time.Time, loc *time.Location) string {
	return t.In(loc).Format("2006-01-02")
}

// overlaps is the standard half-open interval test.
func overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && aEnd.After(bStart)
}
