package handlers

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/youarebest/tgbot/internal/config"
	"github.com/youarebest/tgbot/internal/database"
)

// Reminders starts, stops and re-times per-chat reminders.
type Reminders interface {
	Start(ctx context.Context, chatID int64, interval time.Duration) error
	Stop(ctx context.Context, chatID int64) error
	ChangeInterval(ctx context.Context, chatID int64, interval time.Duration) (bool, error)
}

// Gateway answers price and search requests with ready-to-send text.
type Gateway interface {
	Currency(ctx context.Context) string
	Gold(ctx context.Context) string
	Crypto(ctx context.Context) string
	CarPrices(ctx context.Context) string
	HolidaysToday(ctx context.Context) string
	DigikalaSearch(ctx context.Context, query string) string
	DigikalaProduct(ctx context.Context, id string) string
	BasalamSearch(ctx context.Context, query string) string
}

// Assistant produces free-text chat replies.
type Assistant interface {
	Reply(ctx context.Context, chatID int64, text string) string
}

// HandlerDeps provides dependencies for Telegram handlers.
type HandlerDeps struct {
	Logger    *slog.Logger
	Config    *config.Config
	Store     database.Store
	Reminders Reminders
	Gateway   Gateway
	Assistant Assistant
	// Now defaults to time.Now.
	Now func() time.Time
}

func (d HandlerDeps) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

// messenger is the part of *bot.Bot the handlers use.
type messenger interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
	AnswerCallbackQuery(ctx context.Context, params *bot.AnswerCallbackQueryParams) (bool, error)
	SendChatAction(ctx context.Context, params *bot.SendChatActionParams) (bool, error)
}
