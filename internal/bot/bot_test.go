package bot

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	tgbot "github.com/go-telegram/bot"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/youarebest/tgbot/internal/config"
	"github.com/youarebest/tgbot/internal/logger"
)

// recorder collects lifecycle events in order.
type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) add(e string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) list() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

type fakeListener struct {
	rec        *recorder
	webhookURL string
	secret     string
	setErr     error
	started    chan struct{}
}

func (f *fakeListener) Start(ctx context.Context) {
	f.rec.add("polling")
	close(f.started)
	<-ctx.Done()
	f.rec.add("listener_stopped")
}

func (f *fakeListener) StartWebhook(ctx context.Context) {
	f.rec.add("webhook")
	close(f.started)
	<-ctx.Done()
	f.rec.add("listener_stopped")
}

func (f *fakeListener) SetWebhook(_ context.Context, p *tgbot.SetWebhookParams) (bool, error) {
	f.rec.add("set_webhook")
	f.webhookURL, f.secret = p.URL, p.SecretToken
	return f.setErr == nil, f.setErr
}

func (f *fakeListener) DeleteWebhook(context.Context, *tgbot.DeleteWebhookParams) (bool, error) {
	f.rec.add("delete_webhook")
	return true, nil
}

type fakeServer struct {
	rec *recorder
	err error
}

func (f *fakeServer) Run(ctx context.Context) error {
	if f.err != nil {
		return f.err
	}
	<-ctx.Done()
	f.rec.add("server_stopped")
	return nil
}

type fakeReminders struct {
	rec *recorder
	err error
}

func (f *fakeReminders) RestoreAll(context.Context) (int, error) {
	f.rec.add("restore")
	return 2, f.err
}

func (f *fakeReminders) Shutdown() { f.rec.add("reminders_shutdown") }

type fakeScheduler struct {
	rec      *recorder
	startErr error
}

func (f *fakeScheduler) Start() error {
	f.rec.add("scheduler_start")
	return f.startErr
}

func (f *fakeScheduler) Stop() error {
	f.rec.add("scheduler_stop")
	return nil
}

type fakeGateway struct{ rec *recorder }

func (f fakeGateway) CloseIdleConnections() { f.rec.add("gateway_closed") }

type fixture struct {
	rec       *recorder
	listener  *fakeListener
	server    *fakeServer
	reminders *fakeReminders
	scheduler *fakeScheduler
	cfg       *config.Config
}

func newFixture() *fixture {
	rec := &recorder{}
	return &fixture{
		rec:       rec,
		listener:  &fakeListener{rec: rec, started: make(chan struct{})},
		server:    &fakeServer{rec: rec},
		reminders: &fakeReminders{rec: rec},
		scheduler: &fakeScheduler{rec: rec},
		cfg:       &config.Config{Server: config.ServerConfig{Port: 10000}},
	}
}

func (f *fixture) bot() *Bot {
	return NewBot(logger.Discard(), f.cfg, Components{
		Listener:  f.listener,
		Server:    f.server,
		Reminders: f.reminders,
		Scheduler: f.scheduler,
		Gateway:   fakeGateway{rec: f.rec},
	})
}

// runUntilStarted runs the bot, cancels once the listener is up and returns Run's error.
func (f *fixture) runUntilStarted(t *testing.T) error {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- f.bot().Run(ctx) }()

	select {
	case <-f.listener.started:
	case <-time.After(5 * time.Second):
		t.Fatal("listener never started")
	}
	cancel()
	select {
	case err := <-done:
		return err
	case <-time.After(5 * time.Second):
		t.Fatal("bot did not stop")
		return nil
	}
}

func TestRunPollingLifecycle(t *testing.T) {
	t.Parallel()
	f := newFixture()
	require.NoError(t, f.runUntilStarted(t))

	events := f.rec.list()
	assert.Equal(t, []string{"restore", "scheduler_start", "delete_webhook"}, events[:3])
	assert.Contains(t, events, "polling")
	assert.Equal(t, []string{"gateway_closed", "reminders_shutdown", "scheduler_stop"}, events[len(events)-3:])
	assert.Contains(t, events, "server_stopped")
	assert.Contains(t, events, "listener_stopped")
}

func TestRunWebhookMode(t *testing.T) {
	t.Parallel()
	f := newFixture()
	f.cfg.Telegram = config.TelegramConfig{WebhookURL: "https://bot.example.com/", WebhookSecret: "s3cret"}
	require.NoError(t, f.runUntilStarted(t))

	assert.Equal(t, "https://bot.example.com/telegram", f.listener.webhookURL)
	assert.Equal(t, "s3cret", f.listener.secret)
	assert.Contains(t, f.rec.list(), "webhook")
	assert.NotContains(t, f.rec.list(), "delete_webhook")
}

func TestRunContinuesWhenSomeRemindersFailToRestore(t *testing.T) {
	t.Parallel()
	f := newFixture()
	f.reminders.err = errors.New("chat 7: scheduler closed")
	require.NoError(t, f.runUntilStarted(t))
	assert.Contains(t, f.rec.list(), "polling")
}

func TestRunFailsWhenWebhookCannotBeSet(t *testing.T) {
	t.Parallel()
	f := newFixture()
	f.cfg.Telegram.WebhookURL = "https://bot.example.com"
	f.listener.setErr = errors.New("bad webhook: HTTPS url must be provided")

	err := f.bot().Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, f.listener.setErr)
	assert.Contains(t, f.rec.list(), "scheduler_stop")
	assert.NotContains(t, f.rec.list(), "webhook")
}

func TestRunFailsWhenSchedulerCannotStart(t *testing.T) {
	t.Parallel()
	f := newFixture()
	f.scheduler.startErr = errors.New("already running")

	err := f.bot().Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, []string{"restore", "scheduler_start", "reminders_shutdown"}, f.rec.list())
}

func TestRunStopsWhenServerFails(t *testing.T) {
	t.Parallel()
	f := newFixture()
	f.server.err = errors.New("listen tcp :10000: address already in use")

	err := f.bot().Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, f.server.err)
	assert.Contains(t, f.rec.list(), "listener_stopped")
}

func TestWebhookEndpoint(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "https://x.example/telegram", WebhookEndpoint("https://x.example"))
	assert.Equal(t, "https://x.example/telegram", WebhookEndpoint("https://x.example//"))
}
