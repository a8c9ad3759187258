package handlers

import (
	"context"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/youarebest/tgbot/internal/router"
)

// NewDispatchHandler returns the default handler. Every message that no command
// handler claimed goes through the router.
func NewDispatchHandler(deps HandlerDeps) bot.HandlerFunc {
	return dispatchHandler{dispatcher{deps: deps}}.Handle
}

type dispatchHandler struct {
	dispatcher
}

func (h dispatchHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	h.handle(ctx, b, update)
}

func (h dispatchHandler) handle(ctx context.Context, m messenger, update *models.Update) {
	msg := update.Message
	if msg == nil {
		return
	}
	log := h.deps.Logger.With("handler", "dispatch", "chat_id", msg.Chat.ID)

	text := msg.Text
	if text == "" {
		text = msg.Caption
	}
	in := incoming{
		ChatID:     msg.Chat.ID,
		Text:       text,
		Private:    msg.Chat.Type == models.ChatTypePrivate,
		ReplyToBot: h.isReplyToBot(msg),
	}

	out, err := h.with(m).dispatch(ctx, in)
	if err != nil {
		log.ErrorContext(ctx, "Failed to handle message", "error", err)
		out = outgoing{Text: h.deps.Config.Messages.GeneralError}
	}
	h.send(ctx, m, msg.Chat.ID, replyTarget(msg), out)
}

func (h dispatchHandler) isReplyToBot(msg *models.Message) bool {
	info := h.deps.Config.Telegram.BotInfo
	reply := msg.ReplyToMessage
	return info != nil && reply != nil && reply.From != nil && reply.From.ID == info.ID
}

// replyTarget is the message a group answer should quote, so users can reply to it.
func replyTarget(msg *models.Message) int {
	if msg.Chat.Type == models.ChatTypePrivate {
		return 0
	}
	return msg.ID
}

// send delivers out to the chat. Nothing is sent for an empty reply.
func (d dispatcher) send(ctx context.Context, m messenger, chatID int64, replyTo int, out outgoing) {
	if out.Text == "" {
		return
	}
	params := &bot.SendMessageParams{ChatID: chatID, Text: out.Text, ReplyMarkup: out.Markup}
	if replyTo != 0 {
		params.ReplyParameters = &models.ReplyParameters{MessageID: replyTo, AllowSendingWithoutReply: true}
	}
	if _, err := m.SendMessage(ctx, params); err != nil {
		d.deps.Logger.ErrorContext(ctx, "Failed to send reply", "chat_id", chatID, "error", err)
	}
}

// runCommand answers a registered command with a fixed action. Commands cancel any
// pending flow.
func (d dispatcher) runCommand(ctx context.Context, m messenger, update *models.Update, action router.Action) {
	msg := update.Message
	if msg == nil {
		return
	}
	log := d.deps.Logger.With("handler", "command", "action", action.String())
	log.InfoContext(ctx, "Handling command", "chat_id", msg.Chat.ID)

	out, err := d.command(ctx, msg.Chat.ID, action)
	if err != nil {
		log.ErrorContext(ctx, "Failed to handle command", "chat_id", msg.Chat.ID, "error", err)
		out = outgoing{Text: d.deps.Config.Messages.GeneralError}
	}
	d.send(ctx, m, msg.Chat.ID, replyTarget(msg), out)
}

func (d dispatcher) command(ctx context.Context, chatID int64, action router.Action) (outgoing, error) {
	settings, err := d.deps.Store.GetChatSettings(ctx, chatID)
	if err != nil {
		return outgoing{}, err
	}
	return d.apply(ctx, chatID, settings, router.Decision{Action: action, ClearFlow: true})
}
