package telegram

import (
	"context"
	"fmt"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

type messageSender interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
}

// Sender delivers reminder texts through the Bot API.
type Sender struct {
	client messageSender
}

// NewSender wraps a bot client, usually a *bot.Bot.
func NewSender(client messageSender) *Sender {
	return &Sender{client: client}
}

// SendReminder sends text to chatID as a plain message.
func (s *Sender) SendReminder(ctx context.Context, chatID int64, text string) error {
	if _, err := s.client.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: text}); err != nil {
		return fmt.Errorf("failed to send reminder to chat %d: %w", chatID, err)
	}
	return nil
}
