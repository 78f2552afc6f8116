// Package notify dispatches confirmation links and owner
// notifications. Both are fire-and-forget from the engine's
// perspective: failures are logged, never propagated as engine
// failures.
package notify

import (
	"context"

	"slotlink/internal/model"
)

// Notifier delivers the two outbound messages the engine produces.
type Notifier interface {
	// SendConfirmationLink delivers the confirmation URL for a pending
	// request to the requester contact.
	SendConfirmationLink(ctx context.Context, contact, link string, req *model.PendingRequest) error

	// NotifyOwner informs the page owner about a confirmed booking.
	NotifyOwner(ctx context.Context, booking *model.Booking) error
}
