// Package ics handles fetching, parsing and expanding iCalendar feeds
// into concrete busy intervals.
package ics

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"slotlink/internal/metrics"
)

// ErrFetch is the single category for all feed fetch failures: network
// errors, timeouts, non-2xx responses and oversized payloads. The
// caller may retry at a higher level; the fetcher itself never does.
var ErrFetch = errors.New("feed fetch failed")

// ErrUnsafeURL is returned when the injected URL guard rejects a feed
// URL before any request is made.
var ErrUnsafeURL = errors.New("feed url rejected by safety check")

const (
	maxFeedBytes = 2 << 20 // 2 MiB
	maxRedirects = 5
)

// URLGuard is the anti-SSRF precondition supplied by the caller. The
// fetcher invokes it before every network request.
type URLGuard func(url string) bool

// Fetcher retrieves raw iCalendar text over HTTP with a bounded timeout
// and an optional short-lived Redis body cache.
type Fetcher struct {
	client   *http.Client
	guard    URLGuard
	rdb      *redis.Client
	cacheTTL time.Duration
	logger   *zerolog.Logger
}

// NewFetcher creates a Fetcher. A zero timeout defaults to 5s.
func NewFetcher(timeout time.Duration, guard URLGuard, logger *zerolog.Logger) *Fetcher {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Fetcher{
		client: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= maxRedirects {
					return fmt.Errorf("stopped after %d redirects", maxRedirects)
				}
				return nil
			},
		},
		guard:  guard,
		logger: logger,
	}
}

// UseRedisCache configures optional caching of fetched feed bodies.
// A hit skips the network call entirely.
func (f *Fetcher) UseRedisCache(rdb *redis.Client, ttl time.Duration) {
	f.rdb = rdb
	f.cacheTTL = ttl
}

// Fetch returns the raw feed text for url. Every failure is reported
// under the ErrFetch category.
func (f *Fetcher) Fetch(ctx context.Context, feedURL string) (string, error) {
	if feedURL == "" {
		return "", fmt.Errorf("%w: empty url", ErrFetch)
	}
	if f.guard != nil && !f.guard(feedURL) {
		return "", ErrUnsafeURL
	}

	cacheKey := "feed:" + hashURL(feedURL)
	if body, ok := f.readCache(ctx, cacheKey); ok {
		metrics.IncFeedFetch("cache_hit")
		return body, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		metrics.IncFeedFetch("error")
		return "", fmt.Errorf("%w: %v", ErrFetch, err)
	}
	req.Header.Set("Accept", "text/calendar")

	resp, err := f.client.Do(req)
	if err != nil {
		metrics.IncFeedFetch("error")
		return "", fmt.Errorf("%w: %v", ErrFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		metrics.IncFeedFetch("error")
		return "", fmt.Errorf("%w: status %s", ErrFetch, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedBytes+1))
	if err != nil {
		metrics.IncFeedFetch("error")
		return "", fmt.Errorf("%w: %v", ErrFetch, err)
	}
	if len(body) > maxFeedBytes {
		metrics.IncFeedFetch("error")
		return "", fmt.Errorf("%w: payload exceeds %d bytes", ErrFetch, maxFeedBytes)
	}

	f.writeCache(ctx, cacheKey, body)
	metrics.IncFeedFetch("ok")
	f.logger.Debug().Str("url", RedactURL(feedURL)).Int("bytes", len(body)).Msg("feed fetched")

	return string(body), nil
}

func (f *Fetcher) readCache(ctx context.Context, key string) (string, bool) {
	if f.rdb == nil || f.cacheTTL <= 0 {
		return "", false
	}
	val, err := f.rdb.Get(ctx, key).Result()
	if err != nil {
		return "", false
	}
	return val, true
}

func (f *Fetcher) writeCache(ctx context.Context, key string, body []byte) {
	if f.rdb == nil || f.cacheTTL <= 0 {
		return
	}
	if err := f.rdb.Set(ctx, key, body, f.cacheTTL).Err(); err != nil {
		f.logger.Error().Err(err).Msg("feed cache write failed")
	}
}

func hashURL(u string) string {
	sum := sha256.Sum256([]byte(u))
	return hex.EncodeToString(sum[:8])
}

// RedactURL hides the path and query of a feed URL for logging. Feed
// URLs routinely embed private tokens.
func RedactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "(redacted)"
	}
	return u.Scheme + "://" + u.Host + "/...(redacted)"
}
