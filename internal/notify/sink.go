package notify

import (
	"context"

	"eventscan/internal/config"
	"eventscan/internal/domain"
	"eventscan/internal/logging"
	"eventscan/internal/models"

	"github.com/rs/zerolog"
)

// LogSink stands in for the sender when NotificationAPI credentials are absent.
type LogSink struct {
	logger *zerolog.Logger
}

func NewLogSink(logger *zerolog.Logger) *LogSink {
	return &LogSink{logger: logging.Component(logger, "notify")}
}

func (s *LogSink) SendAdminAlert(_ context.Context, adminEmail string, kind models.AlertKind, bookingID string) error {
	s.logger.Error().
		Str("recipient", adminEmail).
		Str("alert", string(kind)).
		Str("booking_id", bookingID).
		Msg("Cannot send notification: missing NotificationAPI credentials")
	return ErrNotConfigured
}

func (s *LogSink) SendCustomerMessage(_ context.Context, customerEmail string, kind models.MessageKind, bookingID string) error {
	s.logger.Error().
		Str("recipient", customerEmail).
		Str("message", string(kind)).
		Str("booking_id", bookingID).
		Msg("Cannot send notification: missing NotificationAPI credentials")
	return ErrNotConfigured
}

// NewSink returns the NotificationAPI client, or a LogSink when it cannot be built.
func NewSink(cfg config.NotifyConfig, logger *zerolog.Logger) domain.NotificationSink {
	client, err := NewClient(cfg, nil, logger)
	if err != nil {
		return NewLogSink(logger)
	}
	return client
}
