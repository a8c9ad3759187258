package handlers

import (
	"context"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/youarebest/tgbot/internal/router"
)

// NewStartHandler returns a handler for the /start command.
func NewStartHandler(deps HandlerDeps) bot.HandlerFunc {
	return startHandler{dispatcher{deps: deps}}.Handle
}

// startHandler greets the chat and shows the main keyboard.
type startHandler struct {
	dispatcher
}

func (h startHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	h.runCommand(ctx, b, update, router.ActionWelcome)
}
