// Package availability computes the offerable slot grid for a
// scheduling page from busy intervals and owner settings.
package availability

import (
	"sort"

	"slotlink/internal/model"
)

// Aggregate concatenates the busy intervals of every configured feed
// into one set sorted by start instant. Overlapping intervals are not
// coalesced; downstream overlap testing handles them implicitly. Exact
// duplicates are dropped to bound slot-generation cost.
func Aggregate(perFeed [][]model.BusyInterval) []model.BusyInterval {
	total := 0
	for _, intervals := range perFeed {
		total += len(intervals)
	}
	if total == 0 {
		return nil
	}

	all := make([]model.BusyInterval, 0, total)
	for _, intervals := range perFeed {
		all = append(all, intervals...)
	}

	sort.Slice(all, func(i, j int) bool {
		if !all[i].Start.Equal(all[j].Start) {
			return all[i].Start.Before(all[j].Start)
		}
		return all[i].End.Before(all[j].End)
	})

	out := all[:1]
	for _, iv := range all[1:] {
		last := out[len(out)-1]
		if iv.Start.Equal(last.Start) && iv.End.Equal(last.End) {
			continue
		}
		out = append(out, iv)
	}
	return out
}
