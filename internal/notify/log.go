package notify

import (
	"context"

	"github.com/rs/zerolog"

	"slotlink/internal/model"
)

// LogNotifier writes notifications to the log. It is the default when
// no delivery channel is configured and keeps local development free of
// external dependencies.
type LogNotifier struct {
	logger *zerolog.Logger
}

func NewLogNotifier(logger *zerolog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) SendConfirmationLink(_ context.Context, contact, link string, req *model.PendingRequest) error {
	n.logger.Info().
		Str("contact", contact).
		Str("link", link).
		Str("page", req.PageRef).
		Time("slot_start", req.Start).
		Msg("confirmation link issued")
	return nil
}

func (n *LogNotifier) NotifyOwner(_ context.Context, booking *model.Booking) error {
	n.logger.Info().
		Str("booking_id", booking.ID).
		Str("page", booking.PageRef).
		Str("name", booking.Name).
		Time("start", booking.Start).
		Msg("booking confirmed")
	return nil
}
