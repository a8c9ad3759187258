package handlers

import (
	"context"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/youarebest/tgbot/internal/router"
)

// NewHelpHandler returns a handler for the /help command.
func NewHelpHandler(deps HandlerDeps) bot.HandlerFunc {
	return helpHandler{dispatcher{deps: deps}}.Handle
}

type helpHandler struct {
	dispatcher
}

func (h helpHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	h.runCommand(ctx, b, update, router.ActionHelp)
}
