package availability

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"slotlink/internal/ics"
	"slotlink/internal/metrics"
	"slotlink/internal/model"
)

// ErrAllFeedsFailed is returned when a page has feeds configured and
// none of them produced usable events. With partial failure the page
// degrades to the remaining feeds instead.
var ErrAllFeedsFailed = errors.New("no calendar feed could be read")

// Availability is the read-path result: the offerable slots plus
// per-feed warnings for anything that was skipped.
type Availability struct {
	Slots    []model.Slot `json:"slots"`
	Warnings []string     `json:"warnings,omitempty"`
}

// Service runs the read path: fetch feeds, parse, expand, aggregate,
// generate. Each page view recomputes from live fetches.
type Service struct {
	fetcher *ics.Fetcher
	logger  *zerolog.Logger
}

func NewService(fetcher *ics.Fetcher, logger *zerolog.Logger) *Service {
	return &Service{fetcher: fetcher, logger: logger}
}

// GetAvailability computes the slot grid for a page at the given
// instant. Feeds are fetched concurrently; a failing feed degrades the
// result with a warning rather than failing the page, and only the
// loss of every feed is an error.
func (s *Service) GetAvailability(ctx context.Context, page *model.Page, now time.Time) (*Availability, error) {
	metrics.IncAvailabilityRequests()

	texts := make([]string, len(page.FeedURLs))
	errs := make([]error, len(page.FeedURLs))

	var wg sync.WaitGroup
	for i, feedURL := range page.FeedURLs {
		wg.Add(1)
		go func(i int, feedURL string) {
			defer wg.Done()
			texts[i], errs[i] = s.fetcher.Fetch(ctx, feedURL)
		}(i, feedURL)
	}
	wg.Wait()

	var warnings []string
	fetched := make([]string, 0, len(texts))
	for i, err := range errs {
		if err != nil {
			s.logger.Error().Err(err).Str("url", ics.RedactURL(page.FeedURLs[i])).Msg("feed fetch failed, degrading")
			warnings = append(warnings, fmt.Sprintf("calendar feed %d unavailable", i+1))
			continue
		}
		fetched = append(fetched, texts[i])
	}

	slots, computeWarnings, err := s.Compute(page.Settings, fetched, now)
	warnings = append(warnings, computeWarnings...)
	if err != nil {
		return nil, err
	}
	if len(page.FeedURLs) > 0 && allFailed(errs, computeWarnings, len(page.FeedURLs)) {
		return nil, ErrAllFeedsFailed
	}

	return &Availability{Slots: slots, Warnings: warnings}, nil
}

// Compute is the pure read-path entry: given already-fetched feed
// texts it parses, expands, aggregates and generates. Idempotent for
// identical inputs and now.
func (s *Service) Compute(settings model.AvailabilitySettings, feedTexts []string, now time.Time) ([]model.Slot, []string, error) {
	if err := settings.Validate(); err != nil {
		return nil, nil, err
	}

	loc := now.Location()
	windowStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	windowEnd := time.Date(now.Year(), now.Month(), now.Day()+settings.DateRangeDays+1, 0, 0, 0, 0, loc)

	var warnings []string
	perFeed := make([][]model.BusyInterval, 0, len(feedTexts))
	for i, text := range feedTexts {
		events, err := ics.Parse([]byte(text), s.logger)
		if err != nil {
			s.logger.Error().Err(err).Int("feed", i).Msg("feed parse failed, degrading")
			warnings = append(warnings, fmt.Sprintf("calendar feed %d unreadable", i+1))
			continue
		}
		perFeed = append(perFeed, ics.ExpandAll(events, windowStart, windowEnd, s.logger))
	}

	busy := Aggregate(perFeed)
	return Generate(busy, settings, now), warnings, nil
}

// allFailed reports whether every configured feed was lost to either a
// fetch or a parse failure.
func allFailed(fetchErrs []error, computeWarnings []string, feedCount int) bool {
	failures := len(computeWarnings)
	for _, err := range fetchErrs {
		if err != nil {
			failures++
		}
	}
	return failures >= feedCount
}
