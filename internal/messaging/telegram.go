package messaging

import (
	"context"
	"fmt"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// TelegramSender delivers reminders over the Telegram Bot API. The
// recipient id is the numeric chat id in string form.
type TelegramSender struct {
	api     *tgbotapi.BotAPI
	limiter *rate.Limiter
	log     zerolog.Logger
}

func NewTelegramSender(token string, limiter *rate.Limiter, log zerolog.Logger) (*TelegramSender, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}
	log.Info().Str("account", api.Self.UserName).Msg("telegram bot authorized")
	return &TelegramSender{api: api, limiter: limiter, log: log}, nil
}

func (s *TelegramSender) SendText(ctx context.Context, chatID, text string) (string, error) {
	id, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return "", fmt.Errorf("telegram recipient %q is not a numeric chat id: %w", chatID, err)
	}

	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return "", &TransportError{Transport: "telegram", Err: err}
		}
	}

	sent, err := s.api.Send(tgbotapi.NewMessage(id, text))
	if err != nil {
		return "", &TransportError{Transport: "telegram", Err: err}
	}

	s.log.Debug().Int64("chat_id", id).Int("message_id", sent.MessageID).Msg("telegram message sent")
	return fmt.Sprintf("message_id=%d", sent.MessageID), nil
}
