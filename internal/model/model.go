package model

import (
	"fmt"
	"time"
)

// BusyInterval is a concrete span of unavailability produced by
// recurrence expansion. It is never persisted; the read path recomputes
// it from live feeds on every view.
type BusyInterval struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Slot is a candidate bookable interval. It never overlaps a
// BusyInterval fed into the same computation.
type Slot struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// MaxDateRangeDays caps the availability window to bound expansion cost.
const MaxDateRangeDays = 180

// AvailabilitySettings are the owner-configured constraints for a
// scheduling page.
type AvailabilitySettings struct {
	SlotDurationMinutes int  `json:"slot_duration_minutes" yaml:"slot_duration_minutes"`
	BufferMinutes       int  `json:"buffer_minutes" yaml:"buffer_minutes"`
	MinNoticeHours      int  `json:"min_notice_hours" yaml:"min_notice_hours"`
	IncludeWeekends     bool `json:"include_weekends" yaml:"include_weekends"`
	DateRangeDays       int  `json:"date_range_days" yaml:"date_range_days"`
	WorkdayStartHour    int  `json:"workday_start_hour" yaml:"workday_start_hour"`
	WorkdayEndHour      int  `json:"workday_end_hour" yaml:"workday_end_hour"`
}

// DefaultAvailabilitySettings returns sensible defaults for a new page.
func DefaultAvailabilitySettings() AvailabilitySettings {
	return AvailabilitySettings{
		SlotDurationMinutes: 30,
		BufferMinutes:       0,
		MinNoticeHours:      24,
		IncludeWeekends:     false,
		DateRangeDays:       14,
		WorkdayStartHour:    9,
		WorkdayEndHour:      17,
	}
}

// Validate checks settings invariants.
func (s AvailabilitySettings) Validate() error {
	if s.SlotDurationMinutes <= 0 {
		return fmt.Errorf("slot_duration_minutes must be positive, got %d", s.SlotDurationMinutes)
	}
	if s.BufferMinutes < 0 {
		return fmt.Errorf("buffer_minutes must not be negative, got %d", s.BufferMinutes)
	}
	if s.MinNoticeHours < 0 {
		return fmt.Errorf("min_notice_hours must not be negative, got %d", s.MinNoticeHours)
	}
	if s.DateRangeDays <= 0 || s.DateRangeDays > MaxDateRangeDays {
		return fmt.Errorf("date_range_days must be in 1..%d, got %d", MaxDateRangeDays, s.DateRangeDays)
	}
	if s.WorkdayStartHour < 0 || s.WorkdayStartHour > 23 {
		return fmt.Errorf("workday_start_hour must be in 0..23, got %d", s.WorkdayStartHour)
	}
	if s.WorkdayEndHour < 1 || s.WorkdayEndHour > 24 {
		return fmt.Errorf("workday_end_hour must be in 1..24, got %d", s.WorkdayEndHour)
	}
	if s.WorkdayEndHour <= s.WorkdayStartHour {
		return fmt.Errorf("workday_end_hour %d must be after workday_start_hour %d", s.WorkdayEndHour, s.WorkdayStartHour)
	}
	return nil
}

// Page describes one scheduling page: the owner settings plus the feed
// URLs whose events block time on it.
type Page struct {
	Ref      string               `json:"ref" yaml:"ref"`
	Title    string               `json:"title" yaml:"title"`
	Settings AvailabilitySettings `json:"settings" yaml:"settings"`
	FeedURLs []string             `json:"feed_urls" yaml:"feed_urls"`
}

// PendingRequest is a slot request awaiting confirmation. It is keyed
// by its single-use token and held only by the pending store.
type PendingRequest struct {
	Token     string    `json:"token"`
	PageRef   string    `json:"page_ref"`
	Name      string    `json:"name"`
	Contact   string    `json:"contact"`
	Reason    string    `json:"reason"`
	Notes     string    `json:"notes,omitempty"`
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
	CreatedAt time.Time `json:"created_at"`
}

// Booking is a confirmed appointment. Append-only, immutable once
// created.
type Booking struct {
	ID        string    `json:"id"`
	PageRef   string    `json:"page_ref"`
	Name      string    `json:"name"`
	Contact   string    `json:"contact"`
	Reason    string    `json:"reason"`
	Notes     string    `json:"notes,omitempty"`
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
	CreatedAt time.Time `json:"created_at"`
}
