package notify

import (
	"context"
	"fmt"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"slotlink/internal/model"
)

// TelegramNotifier sends owner notifications to a Telegram chat. When
// the requester contact is a numeric Telegram chat ID the confirmation
// link is sent there too; otherwise link delivery falls back to the
// log, since other channels are handled outside this engine.
type TelegramNotifier struct {
	bot         *tgbotapi.BotAPI
	ownerChatID int64
	fallback    *LogNotifier
	logger      *zerolog.Logger
}

func NewTelegramNotifier(token string, ownerChatID int64, logger *zerolog.Logger) (*TelegramNotifier, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram init: %w", err)
	}
	return &TelegramNotifier{
		bot:         bot,
		ownerChatID: ownerChatID,
		fallback:    NewLogNotifier(logger),
		logger:      logger,
	}, nil
}

func (n *TelegramNotifier) SendConfirmationLink(ctx context.Context, contact, link string, req *model.PendingRequest) error {
	chatID, err := strconv.ParseInt(contact, 10, 64)
	if err != nil {
		return n.fallback.SendConfirmationLink(ctx, contact, link, req)
	}

	text := fmt.Sprintf(
		"You requested an appointment on %s at %s.\n\nConfirm within one hour:\n%s",
		req.Start.Format("02.01.2006"),
		req.Start.Format("15:04"),
		link,
	)
	_, err = n.bot.Send(tgbotapi.NewMessage(chatID, text))
	return err
}

func (n *TelegramNotifier) NotifyOwner(_ context.Context, booking *model.Booking) error {
	text := fmt.Sprintf(`✅ New booking confirmed

📋 Page: %s
👤 %s (%s)
📅 %s, %s – %s
💬 %s`,
		booking.PageRef,
		booking.Name,
		booking.Contact,
		booking.Start.Format("02.01.2006"),
		booking.Start.Format("15:04"),
		booking.End.Format("15:04"),
		booking.Reason,
	)
	_, err := n.bot.Send(tgbotapi.NewMessage(n.ownerChatID, text))
	return err
}
