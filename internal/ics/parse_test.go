package ics

import (
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *zerolog.Logger {
	logger := zerolog.Nop()
	return &logger
}

func calendar(events ...string) []byte {
	lines := []string{"BEGIN:VCALENDAR", "VERSION:2.0", "PRODID:-//test//EN"}
	for _, ev := range events {
		lines = append(lines, "BEGIN:VEVENT")
		lines = append(lines, strings.Split(strings.TrimSpace(ev), "\n")...)
		lines = append(lines, "END:VEVENT")
	}
	lines = append(lines, "END:VCALENDAR")
	return []byte(strings.Join(lines, "\r\n") + "\r\n")
}

func TestParseSimpleEvent(t *testing.T) {
	body := calendar(`UID:ev-1
DTSTART:20260310T100000Z
DTEND:20260310T110000Z
SUMMARY:Dentist`)

	events, err := Parse(body, testLogger())
	require.NoError(t, err)
	require.Len(t, events, 1)

	ev := events[0]
	assert.Equal(t, "ev-1", ev.UID)
	assert.Equal(t, time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC), ev.Start.UTC())
	assert.Equal(t, time.Date(2026, 3, 10, 11, 0, 0, 0, time.UTC), ev.End.UTC())
	assert.True(t, ev.Busy, "events without TRANSP must default to busy")
	assert.Nil(t, ev.Rule)
	assert.False(t, ev.AllDay)
}

func TestParseTransparency(t *testing.T) {
	body := calendar(
		`UID:opaque
DTSTART:20260310T100000Z
DTEND:20260310T110000Z
TRANSP:OPAQUE`,
		`UID:transparent
DTSTART:20260310T120000Z
DTEND:20260310T130000Z
TRANSP:TRANSPARENT`,
	)

	events, err := Parse(body, testLogger())
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.True(t, events[0].Busy)
	assert.False(t, events[1].Busy)
}

func TestParseRecurrenceRuleNormalized(t *testing.T) {
	body := calendar(`UID:daily
DTSTART:20260302T090000Z
DTEND:20260302T093000Z
RRULE:FREQ=DAILY;COUNT=5`)

	events, err := Parse(body, testLogger())
	require.NoError(t, err)
	require.Len(t, events, 1)

	rule := events[0].Rule
	require.NotNil(t, rule)
	assert.Equal(t, 5, rule.Count)
	assert.Equal(t, events[0].Start, rule.Dtstart, "dtstart must be bound at parse time")
}

func TestParseExdates(t *testing.T) {
	body := calendar(`UID:weekly
DTSTART:20260302T140000Z
DTEND:20260302T150000Z
RRULE:FREQ=WEEKLY;COUNT=3
EXDATE:20260309T140000Z
EXDATE;VALUE=DATE:20260316`)

	events, err := Parse(body, testLogger())
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Len(t, events[0].ExceptionDates, 2)
	assert.Equal(t, time.Date(2026, 3, 9, 14, 0, 0, 0, time.UTC), events[0].ExceptionDates[0].UTC())
	assert.Equal(t, "2026-03-16", events[0].ExceptionDates[1].Format("2006-01-02"))
}

func TestParseAllDayDefaultsToOneDay(t *testing.T) {
	body := calendar(`UID:allday
DTSTART;VALUE=DATE:20260310`)

	events, err := Parse(body, testLogger())
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.True(t, events[0].AllDay)
	assert.Equal(t, 24*time.Hour, events[0].Duration())
}

func TestParseSkipsMalformedEvent(t *testing.T) {
	body := calendar(
		`UID:bad-rrule
DTSTART:20260310T100000Z
DTEND:20260310T110000Z
RRULE:FREQ=NONSENSE`,
		`UID:good
DTSTART:20260311T100000Z
DTEND:20260311T110000Z`,
	)

	events, err := Parse(body, testLogger())
	require.NoError(t, err, "one bad event must not fail the feed")
	require.Len(t, events, 1)
	assert.Equal(t, "good", events[0].UID)
}

func TestParseNoEnvelope(t *testing.T) {
	_, err := Parse([]byte("this is not a calendar"), testLogger())
	assert.ErrorIs(t, err, ErrParse)

	_, err = Parse([]byte("   \n"), testLogger())
	assert.ErrorIs(t, err, ErrParse)
}

func TestParseEmptyCalendar(t *testing.T) {
	events, err := Parse(calendar(), testLogger())
	require.NoError(t, err)
	assert.Empty(t, events)
}
