// Package assistant answers free-text chat messages through a language model and keeps
// a per-chat conversation thread in the database.
package assistant

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/youarebest/tgbot/internal/database"
	"github.com/youarebest/tgbot/internal/sanitize"
)

// MetaAssistantID is the global_meta key holding the process-wide assistant identifier.
const MetaAssistantID = "assistant_id"

// Store is the persistence the assistant needs.
type Store interface {
	GetChatSettings(ctx context.Context, chatID int64) (*database.ChatSettings, error)
	UpdateChatSettings(ctx context.Context, chatID int64, patch database.SettingsPatch) (*database.ChatSettings, error)
	GetOrCreateMeta(ctx context.Context, key string, create func() (string, error)) (string, error)
	AppendTurn(ctx context.Context, turn *database.ConversationTurn) error
	RecentTurns(ctx context.Context, threadID string, limit int) ([]*database.ConversationTurn, error)
}

// Options configures a Service.
type Options struct {
	// HistoryLimit is how many earlier turns are sent with each prompt.
	HistoryLimit int
	// Apology is returned whenever a reply cannot be produced.
	Apology string
	// Timeout bounds one model call. Zero means no extra bound.
	Timeout time.Duration
}

// Service produces chat replies. Reply never fails; errors turn into the apology.
type Service struct {
	store  Store
	gen    Generator
	opts   Options
	clean  *sanitize.Policy
	logger *slog.Logger

	mu          sync.Mutex
	assistantID string
}

// NewService creates a Service.
func NewService(store Store, gen Generator, opts Options, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		store:  store,
		gen:    gen,
		opts:   opts,
		clean:  sanitize.NewTelegramPolicy(),
		logger: log.With("component", "assistant"),
	}
}

// Reply answers text in the context of the chat's thread.
func (s *Service) Reply(ctx context.Context, chatID int64, text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return s.opts.Apology
	}

	reply, err := s.reply(ctx, chatID, text)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to produce chat reply", "chat_id", chatID, "error", err)
		return s.opts.Apology
	}
	return reply
}

func (s *Service) reply(ctx context.Context, chatID int64, text string) (string, error) {
	assistantID, err := s.ensureAssistant(ctx)
	if err != nil {
		return "", err
	}
	threadID, err := s.ensureThread(ctx, chatID)
	if err != nil {
		return "", err
	}

	history, err := s.store.RecentTurns(ctx, threadID, s.opts.HistoryLimit)
	if err != nil {
		return "", fmt.Errorf("failed to load thread history: %w", err)
	}

	genCtx := ctx
	if s.opts.Timeout > 0 {
		var cancel context.CancelFunc
		genCtx, cancel = context.WithTimeout(ctx, s.opts.Timeout)
		defer cancel()
	}
	answer, err := s.gen.Generate(genCtx, history, text)
	if err != nil {
		return "", fmt.Errorf("failed to generate reply: %w", err)
	}

	for _, turn := range []*database.ConversationTurn{
		{ThreadID: threadID, Role: database.RoleUser, Content: text},
		{ThreadID: threadID, Role: database.RoleModel, Content: answer},
	} {
		if err := s.store.AppendTurn(ctx, turn); err != nil {
			s.logger.WarnContext(ctx, "Failed to store conversation turn", "thread_id", threadID, "error", err)
			break
		}
	}

	s.logger.DebugContext(ctx, "Chat reply generated",
		"chat_id", chatID, "thread_id", threadID, "assistant_id", assistantID, "history", len(history))
	return s.clean.Text(answer), nil
}

// ensureAssistant returns the global assistant id, creating it on first use.
func (s *Service) ensureAssistant(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.assistantID != "" {
		return s.assistantID, nil
	}

	id, err := s.store.GetOrCreateMeta(ctx, MetaAssistantID, func() (string, error) {
		return "asst_" + uuid.NewString(), nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to get assistant id: %w", err)
	}
	s.assistantID = id
	s.logger.InfoContext(ctx, "Assistant ready", "assistant_id", id)
	return id, nil
}

// ensureThread returns the chat's thread id, creating and storing one on first use.
func (s *Service) ensureThread(ctx context.Context, chatID int64) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	settings, err := s.store.GetChatSettings(ctx, chatID)
	if err != nil {
		return "", fmt.Errorf("failed to load chat settings: %w", err)
	}
	if settings.ExternalThreadID.Valid && settings.ExternalThreadID.String != "" {
		return settings.ExternalThreadID.String, nil
	}

	threadID := uuid.NewString()
	if _, err := s.store.UpdateChatSettings(ctx, chatID, database.SettingsPatch{ExternalThreadID: &threadID}); err != nil {
		return "", fmt.Errorf("failed to store thread id: %w", err)
	}
	s.logger.InfoContext(ctx, "Created conversation thread", "chat_id", chatID, "thread_id", threadID)
	return threadID, nil
}
