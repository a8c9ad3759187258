package handlers

import (
	"context"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/youarebest/tgbot/internal/router"
)

// NewStatusHandler returns a handler for the /status command.
func NewStatusHandler(deps HandlerDeps) bot.HandlerFunc {
	return statusHandler{dispatcher{deps: deps}}.Handle
}

// statusHandler reports reminder and chat settings with the current Jalali time.
type statusHandler struct {
	dispatcher
}

func (h statusHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	h.runCommand(ctx, b, update, router.ActionStatus)
}
