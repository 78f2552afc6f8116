// Package booking implements the double-opt-in confirmation workflow:
// a slot request becomes a durable booking exactly once, via a
// single-use, time-limited token.
package booking

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"slotlink/internal/metrics"
	"slotlink/internal/model"
	"slotlink/internal/notify"
)

// ErrValidation rejects malformed request input before a token is ever
// issued.
var ErrValidation = errors.New("invalid request")

// ErrTokenNotFound covers every negative confirm outcome: token never
// existed, already used, or past the TTL. The cases are deliberately
// not distinguished to the requester.
var ErrTokenNotFound = errors.New("link expired or already used")

// minReasonLength rejects empty or placeholder reasons.
const minReasonLength = 5

// Store is the persistence the workflow needs. TakePendingRequest must
// be atomic with respect to concurrent confirm attempts for the same
// token.
type Store interface {
	CreatePendingRequest(ctx context.Context, r *model.PendingRequest) error
	TakePendingRequest(ctx context.Context, token string) (*model.PendingRequest, error)
	PurgeExpiredPending(ctx context.Context, cutoff time.Time) (int64, error)
	CreateBooking(ctx context.Context, b *model.Booking) error
}

// SubmitInput carries a slot request from the requester.
type SubmitInput struct {
	PageRef string
	Name    string
	Contact string
	Reason  string
	Notes   string
	Start   time.Time
	End     time.Time
}

// Workflow owns the pending-request lifecycle and the purge timer. It
// is constructed once at process start and stopped on shutdown.
type Workflow struct {
	store         Store
	notifier      notify.Notifier
	ttl           time.Duration
	purgeInterval time.Duration
	baseURL       string
	logger        *zerolog.Logger

	// now is swappable in tests.
	now func() time.Time

	stopCh  chan struct{}
	wg      sync.WaitGroup
	mu      sync.Mutex
	running bool
}

func NewWorkflow(store Store, notifier notify.Notifier, ttl, purgeInterval time.Duration, baseURL string, logger *zerolog.Logger) *Workflow {
	if ttl <= 0 {
		ttl = time.Hour
	}
	if purgeInterval <= 0 {
		purgeInterval = 5 * time.Minute
	}
	return &Workflow{
		store:         store,
		notifier:      notifier,
		ttl:           ttl,
		purgeInterval: purgeInterval,
		baseURL:       strings.TrimRight(baseURL, "/"),
		logger:        logger,
		now:           time.Now,
		stopCh:        make(chan struct{}),
	}
}

// Submit validates the request, stores a pending request under a fresh
// unguessable token and dispatches the confirmation link. Delivery is
// not awaited beyond the send call itself; a send failure is logged and
// does not fail the submission.
func (w *Workflow) Submit(ctx context.Context, in SubmitInput) (string, error) {
	if err := validate(in); err != nil {
		return "", err
	}

	req := &model.PendingRequest{
		Token:     uuid.NewString(),
		PageRef:   in.PageRef,
		Name:      strings.TrimSpace(in.Name),
		Contact:   strings.TrimSpace(in.Contact),
		Reason:    strings.TrimSpace(in.Reason),
		Notes:     strings.TrimSpace(in.Notes),
		Start:     in.Start,
		End:       in.End,
		CreatedAt: w.now(),
	}

	if err := w.store.CreatePendingRequest(ctx, req); err != nil {
		return "", fmt.Errorf("store pending request: %w", err)
	}
	metrics.IncRequestsSubmitted()

	link := w.baseURL + "/confirm?token=" + url.QueryEscape(req.Token)
	if err := w.notifier.SendConfirmationLink(ctx, req.Contact, link, req); err != nil {
		w.logger.Error().Err(err).Str("page", req.PageRef).Msg("confirmation link send failed")
	}

	return req.Token, nil
}

// Confirm consumes a token and, if it was live, creates the booking.
// The fetch-and-remove is atomic, so a replayed or concurrent second
// click finds nothing and gets ErrTokenNotFound; a given token produces
// at most one booking.
func (w *Workflow) Confirm(ctx context.Context, token string) (*model.Booking, error) {
	req, err := w.store.TakePendingRequest(ctx, token)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			metrics.IncConfirmation("not_found")
			return nil, ErrTokenNotFound
		}
		return nil, fmt.Errorf("take pending request: %w", err)
	}

	now := w.now()
	if now.Sub(req.CreatedAt) > w.ttl {
		// The row is already consumed; expiry is terminal with no
		// side effects.
		metrics.IncConfirmation("expired")
		return nil, ErrTokenNotFound
	}

	b := &model.Booking{
		ID:        uuid.NewString(),
		PageRef:   req.PageRef,
		Name:      req.Name,
		Contact:   req.Contact,
		Reason:    req.Reason,
		Notes:     req.Notes,
		Start:     req.Start,
		End:       req.End,
		CreatedAt: now,
	}
	if err := w.store.CreateBooking(ctx, b); err != nil {
		return nil, fmt.Errorf("create booking: %w", err)
	}
	metrics.IncConfirmation("confirmed")

	// Owner notification is best-effort and never rolls back the
	// booking.
	if err := w.notifier.NotifyOwner(ctx, b); err != nil {
		w.logger.Error().Err(err).Str("booking_id", b.ID).Msg("owner notification failed")
	}

	return b, nil
}

func validate(in SubmitInput) error {
	if in.PageRef == "" {
		return fmt.Errorf("%w: page is required", ErrValidation)
	}
	if strings.TrimSpace(in.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrValidation)
	}
	if strings.TrimSpace(in.Contact) == "" {
		return fmt.Errorf("%w: contact is required", ErrValidation)
	}
	if len(strings.TrimSpace(in.Reason)) < minReasonLength {
		return fmt.Errorf("%w: reason must be at least %d characters", ErrValidation, minReasonLength)
	}
	if in.Start.IsZero() || !in.End.After(in.Start) {
		return fmt.Errorf("%w: slot end must be after slot start", ErrValidation)
	}
	return nil
}

// Start begins the background purge loop. Purging runs independently of
// request handling and never blocks it.
func (w *Workflow) Start() {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return
	}
	w.running = true
	w.mu.Unlock()

	w.wg.Add(1)
	go w.purgeLoop()

	w.logger.Info().
		Dur("ttl", w.ttl).
		Dur("interval", w.purgeInterval).
		Msg("pending purge loop started")
}

// Stop gracefully stops the purge loop.
func (w *Workflow) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopCh)
	w.wg.Wait()
	w.logger.Info().Msg("pending purge loop stopped")
}

func (w *Workflow) purgeLoop() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.purgeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.purgeOnce()
		case <-w.stopCh:
			return
		}
	}
}

func (w *Workflow) purgeOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	removed, err := w.store.PurgeExpiredPending(ctx, w.now().Add(-w.ttl))
	if err != nil {
		w.logger.Error().Err(err).Msg("pending purge failed")
		return
	}
	metrics.AddPendingPurged(int(removed))
	if removed > 0 {
		w.logger.Info().Int64("removed", removed).Msg("purged expired pending requests")
	}
}
