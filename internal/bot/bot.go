// Package bot wires the long-running components together and manages their
// lifecycle.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	tgbot "github.com/go-telegram/bot"
	"golang.org/x/sync/errgroup"

	"github.com/youarebest/tgbot/internal/config"
	"github.com/youarebest/tgbot/internal/telegram"
)

// Listener receives updates. *tgbot.Bot implements it.
type Listener interface {
	Start(ctx context.Context)
	StartWebhook(ctx context.Context)
	SetWebhook(ctx context.Context, params *tgbot.SetWebhookParams) (bool, error)
	DeleteWebhook(ctx context.Context, params *tgbot.DeleteWebhookParams) (bool, error)
}

// Reminders restores reminder jobs on startup and drops them on shutdown.
type Reminders interface {
	RestoreAll(ctx context.Context) (int, error)
	Shutdown()
}

// TaskScheduler runs the fixed background tasks.
type TaskScheduler interface {
	Start() error
	Stop() error
}

// HTTPServer serves /ping and, in webhook mode, /telegram until its context ends.
type HTTPServer interface {
	Run(ctx context.Context) error
}

// IdleCloser releases pooled outbound connections.
type IdleCloser interface {
	CloseIdleConnections()
}

// Components are the parts the orchestrator starts and stops.
type Components struct {
	Listener  Listener
	Server    HTTPServer
	Reminders Reminders
	Scheduler TaskScheduler
	Gateway   IdleCloser
}

// Bot represents the main bot application and manages its components' lifecycle.
type Bot struct {
	logger *slog.Logger
	cfg    *config.Config
	c      Components
}

// NewBot creates the orchestrator.
func NewBot(logger *slog.Logger, cfg *config.Config, c Components) *Bot {
	return &Bot{
		logger: logger.With("component", "bot_orchestrator"),
		cfg:    cfg,
		c:      c,
	}
}

// WebhookEndpoint joins the public base URL with the update path.
func WebhookEndpoint(base string) string {
	return strings.TrimRight(base, "/") + telegram.WebhookPath
}

// Run restores reminders, starts the scheduler, the listener and the HTTP server,
// and blocks until ctx is cancelled or a component fails.
func (b *Bot) Run(ctx context.Context) error {
	b.logger.Info("Starting bot orchestrator...")

	restored, err := b.c.Reminders.RestoreAll(ctx)
	if err != nil {
		b.logger.Error("Some reminders could not be restored", "restored", restored, "error", err)
	}

	if err := b.c.Scheduler.Start(); err != nil {
		b.c.Reminders.Shutdown()
		return fmt.Errorf("failed to start scheduler: %w", err)
	}

	webhook := b.cfg.Telegram.WebhookURL != ""
	if err := b.prepareListener(ctx, webhook); err != nil {
		b.shutdown()
		return err
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		b.logger.Info("Starting HTTP server...", "port", b.cfg.Server.Port)
		if err := b.c.Server.Run(gCtx); err != nil {
			b.logger.Error("HTTP server stopped with error", "error", err)
			return err
		}
		b.logger.Info("HTTP server stopped.")
		return nil
	})

	g.Go(func() error {
		b.logger.Info("Starting Telegram bot listener...", "webhook", webhook)
		if webhook {
			b.c.Listener.StartWebhook(gCtx)
		} else {
			b.c.Listener.Start(gCtx)
		}
		b.logger.Info("Telegram bot listener stopped.")

		if gCtx.Err() == nil {
			b.logger.Warn("Telegram bot listener stopped unexpectedly without context cancellation.")
			return fmt.Errorf("telegram listener stopped unexpectedly")
		}
		return nil
	})

	b.logger.Info("Bot orchestrator running. Waiting for shutdown signal or error...")
	err = g.Wait()
	b.shutdown()

	if err != nil && !errors.Is(err, context.Canceled) {
		b.logger.Error("Bot orchestrator stopped due to error", "error", err)
		return err
	}

	b.logger.Info("Bot orchestrator stopped gracefully.")
	return nil
}

// prepareListener registers the webhook, or removes a stale one so long polling works.
func (b *Bot) prepareListener(ctx context.Context, webhook bool) error {
	if webhook {
		url := WebhookEndpoint(b.cfg.Telegram.WebhookURL)
		if _, err := b.c.Listener.SetWebhook(ctx, &tgbot.SetWebhookParams{
			URL:         url,
			SecretToken: b.cfg.Telegram.WebhookSecret,
		}); err != nil {
			return fmt.Errorf("failed to set webhook: %w", err)
		}
		b.logger.Info("Webhook registered", "url", url)
		return nil
	}

	if _, err := b.c.Listener.DeleteWebhook(ctx, &tgbot.DeleteWebhookParams{}); err != nil {
		return fmt.Errorf("failed to delete webhook before polling: %w", err)
	}
	return nil
}

// shutdown releases what outlives the errgroup. The HTTP server and the listener
// have already returned.
func (b *Bot) shutdown() {
	b.logger.Info("Shutting down components...")
	b.c.Gateway.CloseIdleConnections()
	b.c.Reminders.Shutdown()
	if err := b.c.Scheduler.Stop(); err != nil {
		b.logger.Error("Error stopping scheduler", "error", err)
	}
}
