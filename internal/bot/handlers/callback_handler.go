package handlers

import (
	"context"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// NewCallbackHandler returns a handler for inline keyboard presses.
func NewCallbackHandler(deps HandlerDeps) bot.HandlerFunc {
	return callbackHandler{dispatcher{deps: deps}}.Handle
}

type callbackHandler struct {
	dispatcher
}

func (h callbackHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	h.handle(ctx, b, update)
}

func (h callbackHandler) handle(ctx context.Context, m messenger, update *models.Update) {
	q := update.CallbackQuery
	if q == nil {
		return
	}
	log := h.deps.Logger.With("handler", "callback", "data", q.Data)

	// Answer first so the client stops its spinner even if the action fails.
	if _, err := m.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{CallbackQueryID: q.ID}); err != nil {
		log.WarnContext(ctx, "Failed to answer callback query", "error", err)
	}

	msg := q.Message.Message
	if msg == nil {
		log.WarnContext(ctx, "Callback query without an accessible message")
		return
	}

	out, err := h.dispatch(ctx, incoming{
		ChatID:   msg.Chat.ID,
		Text:     q.Data,
		Private:  msg.Chat.Type == models.ChatTypePrivate,
		Callback: true,
	})
	if err != nil {
		log.ErrorContext(ctx, "Failed to handle callback", "chat_id", msg.Chat.ID, "error", err)
		out = outgoing{Text: h.deps.Config.Messages.GeneralError}
	}
	h.send(ctx, m, msg.Chat.ID, 0, out)
}
