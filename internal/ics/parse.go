package ics

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/rs/zerolog"
	"github.com/teambition/rrule-go"
)

// ErrParse is returned when a feed contains no usable calendar
// envelope. Individual malformed VEVENT blocks are skipped instead.
var ErrParse = errors.New("feed parse failed")

// Event is the normalized representation of a VEVENT. Event contents
// (summary, description, attendees) are deliberately not carried: the
// engine only needs when time is blocked, never why.
type Event struct {
	UID    string
	Start  time.Time
	End    time.Time
	AllDay bool

	// Busy is derived from TRANSP; absent means busy. Unannotated
	// events must block time rather than silently disappear.
	Busy bool

	// Rule is the recurrence rule normalized at parse time, with
	// Dtstart already bound, so expansion has exactly one code path.
	// Nil for non-recurring events.
	Rule *rrule.ROption

	// ExceptionDates holds EXDATE values. Matching during expansion is
	// by calendar date, not instant.
	ExceptionDates []time.Time
}

// Duration returns the event's span, used to size each occurrence.
func (e Event) Duration() time.Duration {
	return e.End.Sub(e.Start)
}

// Parse parses raw iCalendar text into events. Malformed event blocks
// are logged and skipped; the parse as a whole fails only when no valid
// calendar envelope is found.
func Parse(body []byte, logger *zerolog.Logger) ([]Event, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, fmt.Errorf("%w: empty body", ErrParse)
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}

	events := make([]Event, 0, len(cal.Events()))
	for _, ve := range cal.Events() {
		ev, perr := parseVEvent(ve)
		if perr != nil {
			logger.Error().Err(perr).Msg("skipping malformed vevent")
			continue
		}
		events = append(events, ev)
	}
	return events, nil
}

func parseVEvent(ve *ical.VEvent) (Event, error) {
	var out Event

	if p := ve.GetProperty(ical.ComponentPropertyUniqueId); p != nil {
		out.UID = p.Value
	}

	start, err := ve.GetStartAt()
	if err != nil {
		return out, fmt.Errorf("dtstart: %w", err)
	}
	out.Start = start

	out.AllDay = isAllDay(ve)

	end, err := ve.GetEndAt()
	if err != nil || end.IsZero() {
		// DTEND is optional: all-day events default to one day,
		// timed events to a zero-length instant.
		if out.AllDay {
			end = start.Add(24 * time.Hour)
		} else {
			end = start
		}
	}
	if end.Before(start) {
		return out, fmt.Errorf("dtend %s before dtstart %s", end, start)
	}
	out.End = end

	out.Busy = true
	if p := ve.GetProperty("TRANSP"); p != nil && strings.EqualFold(strings.TrimSpace(p.Value), "TRANSPARENT") {
		out.Busy = false
	}

	if p := ve.GetProperty(ical.ComponentPropertyRrule); p != nil && p.Value != "" {
		opt, rerr := rrule.StrToROption(p.Value)
		if rerr != nil {
			// A bad rule drops this event's contribution, not the feed.
			return out, fmt.Errorf("rrule %q: %w", p.Value, rerr)
		}
		opt.Dtstart = start
		out.Rule = opt
	}

	for _, p := range ve.GetProperties(ical.ComponentPropertyExdate) {
		for _, part := range strings.Split(p.Value, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			t, terr := parseICSTime(part, start.Location())
			if terr != nil {
				return out, fmt.Errorf("exdate %q: %w", part, terr)
			}
			out.ExceptionDates = append(out.ExceptionDates, t)
		}
	}

	return out, nil
}

func isAllDay(ve *ical.VEvent) bool {
	p := ve.GetProperty(ical.ComponentPropertyDtStart)
	if p == nil {
		return false
	}
	if params := p.ICalParameters; params != nil {
		if vs, ok := params["VALUE"]; ok && len(vs) > 0 && strings.EqualFold(vs[0], "DATE") {
			return true
		}
	}
	return !strings.Contains(p.Value, "T")
}

// parseICSTime parses the basic DATE / DATE-TIME / UTC forms used by
// EXDATE. Values without an explicit zone are interpreted in loc, the
// event's own location, so exception matching stays within one clock.
func parseICSTime(v string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	switch {
	case strings.HasSuffix(v, "Z"):
		return time.Parse("20060102T150405Z", v)
	case strings.Contains(v, "T"):
		return time.ParseInLocation("20060102T150405", v, loc)
	default:
		return time.ParseInLocation("20060102", v, loc)
	}
}
