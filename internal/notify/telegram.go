package notify

import (
	"context"
	"errors"
	"fmt"

	"eventscan/internal/domain"
	"eventscan/internal/logging"
	"eventscan/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

// TelegramChannel posts each alert once to the configured manager chats.
type TelegramChannel struct {
	bot    domain.TelegramSender
	chats  []int64
	logger *zerolog.Logger
}

func NewTelegramChannel(bot domain.TelegramSender, chats []int64, logger *zerolog.Logger) *TelegramChannel {
	return &TelegramChannel{
		bot:    bot,
		chats:  chats,
		logger: logging.Component(logger, "telegram"),
	}
}

func (c *TelegramChannel) Broadcast(ctx context.Context, kind models.AlertKind, bookingID string) error {
	text := fmt.Sprintf("⚠️ Payment alert: %s\nBooking: %s", kind, bookingID)

	var errs []error
	for _, chatID := range c.chats {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if _, err := c.bot.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
			c.logger.Error().Err(err).Int64("chat_id", chatID).Msg("Failed to send alert to chat")
			errs = append(errs, fmt.Errorf("chat %d: %w", chatID, err))
		}
	}
	return errors.Join(errs...)
}
