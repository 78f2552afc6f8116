package availability

import (
	"time"

	"slotlink/internal/model"
)

// Generate produces the ordered slot grid for the page. It is a pure
// function of its inputs: identical busy intervals, settings and now
// yield identical output, so the authoritative availability view and
// any settings preview share this one code path.
//
// All date arithmetic happens in now's location; callers pick the
// clock, Generate never consults another one.
func Generate(busy []model.BusyInterval, s model.AvailabilitySettings, now time.Time) []model.Slot {
	if s.SlotDurationMinutes <= 0 {
		return nil
	}

	loc := now.Location()
	slotDur := time.Duration(s.SlotDurationMinutes) * time.Minute
	step := slotDur + time.Duration(s.BufferMinutes)*time.Minute
	notice := now.Add(time.Duration(s.MinNoticeHours) * time.Hour)

	var slots []model.Slot
	for day := 0; day <= s.DateRangeDays; day++ {
		date := time.Date(now.Year(), now.Month(), now.Day()+day, 0, 0, 0, 0, loc)
		if !s.IncludeWeekends && isWeekend(date) {
			continue
		}

		dayStart := date.Add(time.Duration(s.WorkdayStartHour) * time.Hour)
		dayEnd := date.Add(time.Duration(s.WorkdayEndHour) * time.Hour)

		for cursor := dayStart; ; cursor = cursor.Add(step) {
			slotEnd := cursor.Add(slotDur)
			if slotEnd.After(dayEnd) {
				break
			}
			if cursor.Before(notice) {
				continue
			}
			if overlapsAny(cursor, slotEnd, busy) {
				continue
			}
			slots = append(slots, model.Slot{Start: cursor, End: slotEnd})
		}
	}
	return slots
}

func isWeekend(date time.Time) bool {
	wd := date.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

func overlapsAny(start, end time.Time, busy []model.BusyInterval) bool {
	for _, b := range busy {
		if start.Before(b.End) && end.After(b.Start) {
			return true
		}
	}
	return false
}
