package telegram

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/youarebest/tgbot/internal/bot/handlers"
	"github.com/youarebest/tgbot/internal/config"
	"github.com/youarebest/tgbot/internal/logger"
)

func TestPingAndWebhookRoutes(t *testing.T) {
	t.Parallel()
	var hits int
	webhook := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits++
		w.WriteHeader(http.StatusOK)
	})
	mux := newMux(webhook)

	tests := []struct {
		name   string
		method string
		path   string
		status int
		body   string
	}{
		{name: "ping", method: http.MethodGet, path: "/ping", status: http.StatusOK, body: "pong"},
		{name: "ping wrong method", method: http.MethodPost, path: "/ping", status: http.StatusMethodNotAllowed},
		{name: "webhook", method: http.MethodPost, path: WebhookPath, status: http.StatusOK},
		{name: "webhook get", method: http.MethodGet, path: WebhookPath, status: http.StatusMethodNotAllowed},
		{name: "unknown", method: http.MethodGet, path: "/nope", status: http.StatusNotFound},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))
		assert.Equal(t, tt.status, rec.Code, tt.name)
		if tt.body != "" {
			assert.Equal(t, tt.body, rec.Body.String(), tt.name)
		}
	}
	assert.Equal(t, 1, hits)
}

func TestPollingModeHasNoWebhookRoute(t *testing.T) {
	t.Parallel()
	rec := httptest.NewRecorder()
	newMux(nil).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, WebhookPath, strings.NewReader("{}")))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServerStopsOnCancel(t *testing.T) {
	t.Parallel()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	s := NewServer(config.ServerConfig{Port: 1, ShutdownTimeout: time.Second}, nil, logger.Discard())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/ping")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, "pong", string(body))

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

type fakeClient struct {
	params *bot.SendMessageParams
	err    error
}

func (f *fakeClient) SendMessage(_ context.Context, p *bot.SendMessageParams) (*models.Message, error) {
	f.params = p
	return &models.Message{}, f.err
}

func TestSenderSendReminder(t *testing.T) {
	t.Parallel()
	client := &fakeClient{}
	require.NoError(t, NewSender(client).SendReminder(context.Background(), 42, "stretch"))
	assert.Equal(t, int64(42), client.params.ChatID)
	assert.Equal(t, "stretch", client.params.Text)

	client.err = errors.New("forbidden: bot was blocked by the user")
	err := NewSender(client).SendReminder(context.Background(), 42, "stretch")
	require.Error(t, err)
	assert.ErrorIs(t, err, client.err)
}

type recordingRegistrar struct {
	patterns []string
}

func (r *recordingRegistrar) RegisterHandler(_ bot.HandlerType, pattern string, _ bot.MatchType, _ bot.HandlerFunc, _ ...bot.Middleware) string {
	r.patterns = append(r.patterns, pattern)
	return pattern
}

func TestRegisterHandlersSkipsNil(t *testing.T) {
	t.Parallel()
	noop := func(context.Context, *bot.Bot, *models.Update) {}
	reg := &recordingRegistrar{}
	err := RegisterHandlers(reg, logger.Discard(), map[string]handlers.RegisteredHandler{
		"/start": {HandlerType: bot.HandlerTypeMessageText, Pattern: "start", Handler: noop, MatchType: bot.MatchTypeCommandStartOnly},
		"broken": {Pattern: "broken"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"start"}, reg.patterns)
}

func TestApplyMiddlewareOrder(t *testing.T) {
	t.Parallel()
	var order []string
	mw := func(name string) bot.Middleware {
		return func(next bot.HandlerFunc) bot.HandlerFunc {
			return func(ctx context.Context, b *bot.Bot, u *models.Update) {
				order = append(order, name)
				next(ctx, b, u)
			}
		}
	}
	h := applyMiddleware(func(context.Context, *bot.Bot, *models.Update) { order = append(order, "handler") },
		[]bot.Middleware{mw("outer"), mw("inner")})
	h(context.Background(), nil, &models.Update{})
	assert.Equal(t, []string{"outer", "inner", "handler"}, order)
}

func TestTokenPrefix(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "12345678...", tokenPrefix("12345678:abcdef"))
	assert.Equal(t, "...", tokenPrefix("short"))
}
