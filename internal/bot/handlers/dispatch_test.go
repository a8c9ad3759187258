package handlers

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/youarebest/tgbot/internal/config"
	"github.com/youarebest/tgbot/internal/database"
	"github.com/youarebest/tgbot/internal/logger"
	"github.com/youarebest/tgbot/internal/router"
)

const (
	botID       = 999
	privateChat = 5
	groupChat   = -100
)

type fakeMessenger struct {
	mu       sync.Mutex
	sent     []*tgbot.SendMessageParams
	answered []string
	actions  []int64
}

func (f *fakeMessenger) SendMessage(_ context.Context, p *tgbot.SendMessageParams) (*models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, p)
	return &models.Message{}, nil
}

func (f *fakeMessenger) AnswerCallbackQuery(_ context.Context, p *tgbot.AnswerCallbackQueryParams) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.answered = append(f.answered, p.CallbackQueryID)
	return true, nil
}

func (f *fakeMessenger) SendChatAction(_ context.Context, p *tgbot.SendChatActionParams) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.actions = append(f.actions, p.ChatID.(int64))
	return true, nil
}

func (f *fakeMessenger) last(t *testing.T) *tgbot.SendMessageParams {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.sent, "expected a reply")
	return f.sent[len(f.sent)-1]
}

// fakeReminders persists the active flag like the real scheduler does.
type fakeReminders struct {
	store     database.Store
	started   []time.Duration
	stopped   int
	intervals []time.Duration
	err       error
}

func (f *fakeReminders) Start(ctx context.Context, chatID int64, interval time.Duration) error {
	if f.err != nil {
		return f.err
	}
	f.started = append(f.started, interval)
	secs := int64(interval / time.Second)
	_, err := f.store.UpdateChatSettings(ctx, chatID, database.SettingsPatch{IsActive: database.Ptr(true), IntervalSeconds: &secs})
	return err
}

func (f *fakeReminders) Stop(ctx context.Context, chatID int64) error {
	f.stopped++
	_, err := f.store.UpdateChatSettings(ctx, chatID, database.SettingsPatch{IsActive: database.Ptr(false)})
	return err
}

func (f *fakeReminders) ChangeInterval(ctx context.Context, chatID int64, interval time.Duration) (bool, error) {
	f.intervals = append(f.intervals, interval)
	secs := int64(interval / time.Second)
	s, err := f.store.UpdateChatSettings(ctx, chatID, database.SettingsPatch{IntervalSeconds: &secs})
	if err != nil {
		return false, err
	}
	return s.IsActive, nil
}

type fakeGateway struct{}

func (fakeGateway) Currency(context.Context) string      { return "gw:currency" }
func (fakeGateway) Gold(context.Context) string          { return "gw:gold" }
func (fakeGateway) Crypto(context.Context) string        { return "gw:crypto" }
func (fakeGateway) CarPrices(context.Context) string     { return "gw:cars" }
func (fakeGateway) HolidaysToday(context.Context) string { return "gw:holidays" }
func (fakeGateway) DigikalaSearch(_ context.Context, q string) string {
	return "gw:digikala:" + q
}
func (fakeGateway) DigikalaProduct(_ context.Context, id string) string {
	return "gw:product:" + id
}
func (fakeGateway) BasalamSearch(_ context.Context, q string) string {
	return "gw:basalam:" + q
}

type fakeAssistant struct{}

func (fakeAssistant) Reply(_ context.Context, chatID int64, text string) string {
	return fmt.Sprintf("ai:%d:%s", chatID, text)
}

type testEnv struct {
	deps      HandlerDeps
	store     database.Store
	reminders *fakeReminders
	msgr      *fakeMessenger
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := database.NewDB(filepath.Join(t.TempDir(), "handlers.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.CloseDB(db) })
	store := database.NewStore(db, logger.Discard())

	cfg := &config.Config{
		Telegram: config.TelegramConfig{BotInfo: &models.User{ID: botID, Username: "mybot", IsBot: true}},
		Reminder: config.ReminderConfig{Timezone: "UTC"},
		Flow:     config.FlowConfig{TTL: 10 * time.Minute},
		Messages: config.DefaultMessages,
	}
	reminders := &fakeReminders{store: store}
	return &testEnv{
		deps: HandlerDeps{
			Logger:    logger.Discard(),
			Config:    cfg,
			Store:     store,
			Reminders: reminders,
			Gateway:   fakeGateway{},
			Assistant: fakeAssistant{},
		},
		store:     store,
		reminders: reminders,
		msgr:      &fakeMessenger{},
	}
}

func (e *testEnv) send(chatID int64, text string, mutate ...func(*models.Message)) {
	chatType := models.ChatTypePrivate
	if chatID < 0 {
		chatType = models.ChatTypeSupergroup
	}
	msg := &models.Message{ID: 10, Chat: models.Chat{ID: chatID, Type: chatType}, From: &models.User{ID: 1}, Text: text}
	for _, m := range mutate {
		m(msg)
	}
	dispatchHandler{dispatcher{deps: e.deps}}.handle(context.Background(), e.msgr, &models.Update{ID: 1, Message: msg})
}

func (e *testEnv) press(chatID int64, data string) {
	update := &models.Update{ID: 2, CallbackQuery: &models.CallbackQuery{
		ID:   "cb-1",
		Data: data,
		Message: models.MaybeInaccessibleMessage{
			Message: &models.Message{ID: 11, Chat: models.Chat{ID: chatID, Type: models.ChatTypePrivate}},
		},
	}}
	callbackHandler{dispatcher{deps: e.deps}}.handle(context.Background(), e.msgr, update)
}

func TestDispatchStartAndStopReminders(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()

	env.send(privateChat, router.LabelStartReminders)
	assert.Equal(t, fmt.Sprintf(config.DefaultMessages.RemindersStarted, 60), env.msgr.last(t).Text)
	assert.Equal(t, []time.Duration{time.Hour}, env.reminders.started)
	assert.Nil(t, env.msgr.last(t).ReplyParameters, "private replies do not quote")

	settings, err := env.store.GetChatSettings(ctx, privateChat)
	require.NoError(t, err)
	assert.True(t, settings.IsActive)

	env.send(privateChat, router.LabelStopReminders)
	assert.Equal(t, config.DefaultMessages.RemindersStopped, env.msgr.last(t).Text)
	assert.Equal(t, 1, env.reminders.stopped)
}

func TestDispatchGroupGating(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	env.send(groupChat, "just chatting")
	assert.Empty(t, env.msgr.sent, "unaddressed group text is ignored")

	env.send(groupChat, "@mybot what's new")
	assert.Contains(t, env.msgr.actions, int64(groupChat), "typing is shown while the assistant answers")
	last := env.msgr.last(t)
	assert.Equal(t, fmt.Sprintf("ai:%d:what's new", groupChat), last.Text)
	require.NotNil(t, last.ReplyParameters)
	assert.Equal(t, 10, last.ReplyParameters.MessageID)

	env.send(groupChat, "and then?", func(m *models.Message) {
		m.ReplyToMessage = &models.Message{ID: 9, From: &models.User{ID: botID}}
	})
	assert.Equal(t, fmt.Sprintf("ai:%d:and then?", groupChat), env.msgr.last(t).Text)

	before := len(env.msgr.sent)
	env.send(groupChat, "replying to someone else", func(m *models.Message) {
		m.ReplyToMessage = &models.Message{ID: 8, From: &models.User{ID: 2}}
	})
	assert.Len(t, env.msgr.sent, before)
}

func TestDispatchSearchFlow(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()

	env.send(privateChat, router.LabelDigikalaSearch)
	assert.Equal(t, config.DefaultMessages.AskSearchQuery, env.msgr.last(t).Text)

	flow, err := env.store.GetFlow(ctx, privateChat)
	require.NoError(t, err)
	require.NotNil(t, flow)
	assert.Equal(t, string(router.FlowDigikalaQuery), flow.State)

	env.send(privateChat, router.LabelStatus)
	assert.Equal(t, "gw:digikala:"+router.LabelStatus, env.msgr.last(t).Text, "a pending flow consumes even a label")

	flow, err = env.store.GetFlow(ctx, privateChat)
	require.NoError(t, err)
	assert.Nil(t, flow)

	env.send(privateChat, router.LabelDigikalaProduct)
	assert.Equal(t, config.DefaultMessages.AskProductID, env.msgr.last(t).Text)
	env.send(privateChat, "12345")
	assert.Equal(t, "gw:product:12345", env.msgr.last(t).Text)
}

func TestDispatchExpiredFlowIsCleared(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()

	require.NoError(t, env.store.SetFlow(ctx, privateChat, string(router.FlowBasalamQuery)))
	env.deps.Now = func() time.Time { return time.Now().Add(time.Hour) }

	env.send(privateChat, router.LabelCurrency)
	assert.Equal(t, "gw:currency", env.msgr.last(t).Text)

	flow, err := env.store.GetFlow(ctx, privateChat)
	require.NoError(t, err)
	assert.Nil(t, flow)
}

func TestDispatchChatToggle(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	env.send(privateChat, "hello")
	assert.Equal(t, fmt.Sprintf("ai:%d:hello", privateChat), env.msgr.last(t).Text)

	env.send(privateChat, router.LabelDisableChat)
	assert.Equal(t, config.DefaultMessages.ChatDisabled, env.msgr.last(t).Text)

	env.send(privateChat, "hello again")
	assert.Equal(t, config.DefaultMessages.Unknown, env.msgr.last(t).Text)

	env.send(privateChat, router.LabelEnableChat)
	assert.Equal(t, config.DefaultMessages.ChatEnabled, env.msgr.last(t).Text)
}

func TestDispatchIntervalCallback(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()

	env.send(privateChat, router.LabelIntervalMenu)
	menu := env.msgr.last(t)
	assert.Equal(t, config.DefaultMessages.IntervalMenu, menu.Text)
	kb, ok := menu.ReplyMarkup.(*models.InlineKeyboardMarkup)
	require.True(t, ok)
	assert.Equal(t, "int_15", kb.InlineKeyboard[0][0].CallbackData)

	env.press(privateChat, "int_30")
	assert.Equal(t, []string{"cb-1"}, env.msgr.answered)
	assert.Equal(t, fmt.Sprintf(config.DefaultMessages.IntervalSet, 30), env.msgr.last(t).Text)
	assert.Equal(t, []time.Duration{30 * time.Minute}, env.reminders.intervals)
	assert.Empty(t, env.reminders.started, "changing the interval does not start reminders")

	settings, err := env.store.GetChatSettings(ctx, privateChat)
	require.NoError(t, err)
	assert.Equal(t, int64(1800), settings.IntervalSeconds)

	env.press(privateChat, "int_0")
	assert.Equal(t, config.DefaultMessages.Unknown, env.msgr.last(t).Text)
}

func TestDispatchStatus(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	env.deps.Now = func() time.Time { return time.Date(2025, 3, 21, 8, 30, 0, 0, time.UTC) }

	env.send(privateChat, router.LabelStatus)
	text := env.msgr.last(t).Text
	assert.Contains(t, text, config.DefaultMessages.StateOff)
	assert.Contains(t, text, config.DefaultMessages.StateOn, "chat is enabled by default")
	assert.Contains(t, text, "60")
	assert.Contains(t, text, "۰۸:۳۰")
}

type failingStore struct {
	database.Store
}

func (failingStore) GetChatSettings(context.Context, int64) (*database.ChatSettings, error) {
	return nil, errors.New("database is locked")
}

func TestDispatchPersistenceErrorSendsApology(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	env.deps.Store = failingStore{env.store}

	env.send(privateChat, router.LabelStatus)
	assert.Equal(t, config.DefaultMessages.GeneralError, env.msgr.last(t).Text)

	env.press(privateChat, "int_30")
	assert.Equal(t, config.DefaultMessages.GeneralError, env.msgr.last(t).Text)
}

func TestDispatchReminderErrorSendsApology(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	env.reminders.err = errors.New("scheduler closed")

	env.send(privateChat, router.LabelStartReminders)
	assert.Equal(t, config.DefaultMessages.GeneralError, env.msgr.last(t).Text)
}

func TestCommandsClearFlowAndShowKeyboard(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()
	require.NoError(t, env.store.SetFlow(ctx, privateChat, string(router.FlowChatPrompt)))

	update := &models.Update{Message: &models.Message{ID: 3, Chat: models.Chat{ID: privateChat, Type: models.ChatTypePrivate}, Text: "/start"}}
	dispatcher{deps: env.deps}.runCommand(ctx, env.msgr, update, router.ActionWelcome)

	last := env.msgr.last(t)
	assert.Equal(t, config.DefaultMessages.Welcome, last.Text)
	kb, ok := last.ReplyMarkup.(*models.ReplyKeyboardMarkup)
	require.True(t, ok)
	assert.Equal(t, router.LabelStartReminders, kb.Keyboard[0][0].Text)
	assert.True(t, kb.ResizeKeyboard)

	flow, err := env.store.GetFlow(ctx, privateChat)
	require.NoError(t, err)
	assert.Nil(t, flow)
}

func TestRecoverMiddleware(t *testing.T) {
	t.Parallel()
	called := false
	h := Recover(logger.Discard())(func(context.Context, *tgbot.Bot, *models.Update) {
		called = true
		panic("boom")
	})

	assert.NotPanics(t, func() { h(context.Background(), nil, &models.Update{ID: 7}) })
	assert.True(t, called)
}

func TestRegisterAllCommands(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	registered := RegisterAllCommands(env.deps)

	for _, key := range []string{"/start", "/help", "/status", "interval_callback"} {
		require.Contains(t, registered, key)
		assert.NotNil(t, registered[key].Handler)
	}
	assert.Equal(t, tgbot.HandlerTypeCallbackQueryData, registered["interval_callback"].HandlerType)
	assert.Equal(t, router.IntervalCallbackPrefix, registered["interval_callback"].Pattern)
}
