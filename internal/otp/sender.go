package otp

import (
	"context"
	"log/slog"

	"github.com/hamzaiqbal/crmconnect/internal/models"
)

// Sender is the delivery collaborator boundary: it receives the raw code
// exactly once and owns getting it to the user's inbox or phone.
type Sender interface {
	Send(ctx context.Context, user *models.User, channel models.CodeChannel, code string) error
}

// LogSender is the development delivery mock: it prints the code instead
// of sending it.
type LogSender struct {
	Logger *slog.Logger
}

func (s LogSender) Send(ctx context.Context, user *models.User, channel models.CodeChannel, code string) error {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	switch channel {
	case models.CodeChannelEmail:
		logger.Info("mock email code", "to", user.Email, "code", code)
	case models.CodeChannelPhone:
		logger.Info("mock sms code", "to", user.Phone, "code", code)
	}
	return nil
}
