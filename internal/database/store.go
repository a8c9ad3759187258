package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/youarebest/tgbot/internal/logger"
)

// ErrInvalidInterval is returned when a patch sets a non-positive reminder interval.
var ErrInvalidInterval = errors.New("interval must be positive")

// Store defines the interface for database operations.
// Methods accept context.Context for cancellation and timeouts.
type Store interface {
	// Ping checks the database connection.
	Ping(ctx context.Context) error

	// GetChatSettings returns the settings of a chat, creating the default row on first access.
	GetChatSettings(ctx context.Context, chatID int64) (*ChatSettings, error)

	// UpdateChatSettings upserts the chat row and applies the non-nil fields of patch.
	UpdateChatSettings(ctx context.Context, chatID int64, patch SettingsPatch) (*ChatSettings, error)

	// ListActive returns every chat whose reminder should be running.
	ListActive(ctx context.Context) ([]ActiveReminder, error)

	// GetMeta returns a global value and whether it exists.
	GetMeta(ctx context.Context, key string) (string, bool, error)

	// SetMeta stores a global value, replacing any previous one.
	SetMeta(ctx context.Context, key, value string) error

	// GetOrCreateMeta returns the stored value for key, calling create and storing its
	// result only when the key is absent.
	GetOrCreateMeta(ctx context.Context, key string, create func() (string, error)) (string, error)

	// GetFlow returns the chat's pending flow, or nil if there is none.
	GetFlow(ctx context.Context, chatID int64) (*ChatFlow, error)

	// SetFlow records the chat's pending flow.
	SetFlow(ctx context.Context, chatID int64, state string) error

	// ClearFlow drops the chat's pending flow.
	ClearFlow(ctx context.Context, chatID int64) error

	// PurgeFlowsBefore removes flows last touched before cutoff.
	PurgeFlowsBefore(ctx context.Context, cutoff time.Time) (int64, error)

	// AppendTurn stores one message of an assistant thread.
	AppendTurn(ctx context.Context, turn *ConversationTurn) error

	// RecentTurns returns up to limit most recent turns of a thread, oldest first.
	RecentTurns(ctx context.Context, threadID string, limit int) ([]*ConversationTurn, error)

	// RunSQLMaintenance performs database maintenance tasks like VACUUM.
	RunSQLMaintenance(ctx context.Context) error
}

// sqlxStore provides an implementation of the Store interface using sqlx.
type sqlxStore struct {
	db              *sqlx.DB
	logger          *slog.Logger
	now             func() time.Time
	defaultInterval int64
}

// StoreOption customizes a Store.
type StoreOption func(*sqlxStore)

// WithDefaultInterval sets the reminder interval given to newly seen chats.
// Values under a second are ignored.
func WithDefaultInterval(d time.Duration) StoreOption {
	return func(s *sqlxStore) {
		if secs := int64(d / time.Second); secs > 0 {
			s.defaultInterval = secs
		}
	}
}

// NewStore creates a new Store implementation backed by sqlx.
func NewStore(db *sqlx.DB, log *slog.Logger, opts ...StoreOption) Store {
	if log == nil {
		log = logger.Discard()
	}
	s := &sqlxStore{
		db:              db,
		logger:          log.With("component", "store"),
		now:             func() time.Time { return time.Now().UTC().Truncate(time.Second) },
		defaultInterval: DefaultIntervalSeconds,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ping checks the database connection.
func (s *sqlxStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

const selectChatSettings = `
	SELECT chat_id, interval_seconds, is_active, chat_enabled, external_thread_id, created_at, updated_at
	FROM chat_settings WHERE chat_id = ?`

const insertDefaultChatSettings = `
	INSERT OR IGNORE INTO chat_settings (chat_id, interval_seconds, is_active, chat_enabled, external_thread_id, created_at, updated_at)
	VALUES (?, ?, 0, ?, NULL, ?, ?)`

func (s *sqlxStore) GetChatSettings(ctx context.Context, chatID int64) (*ChatSettings, error) {
	now := s.now()
	if _, err := s.db.ExecContext(ctx, insertDefaultChatSettings, chatID, s.defaultInterval, DefaultChatEnabled, now, now); err != nil {
		s.logger.ErrorContext(ctx, "Failed to upsert default chat settings", "chat_id", chatID, "error", err)
		return nil, fmt.Errorf("failed to upsert chat settings (chat %d): %w", chatID, err)
	}

	var settings ChatSettings
	if err := s.db.GetContext(ctx, &settings, selectChatSettings, chatID); err != nil {
		s.logger.ErrorContext(ctx, "Failed to load chat settings", "chat_id", chatID, "error", err)
		return nil, fmt.Errorf("failed to load chat settings (chat %d): %w", chatID, err)
	}
	return &settings, nil
}

func (s *sqlxStore) UpdateChatSettings(ctx context.Context, chatID int64, patch SettingsPatch) (*ChatSettings, error) {
	if patch.IntervalSeconds != nil && *patch.IntervalSeconds <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidInterval, *patch.IntervalSeconds)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if rollbackErr := tx.Rollback(); rollbackErr != nil && !errors.Is(rollbackErr, sql.ErrTxDone) {
			s.logger.WarnContext(ctx, "Error rolling back transaction", "error", rollbackErr)
		}
	}()

	now := s.now()
	if _, err := tx.ExecContext(ctx, insertDefaultChatSettings, chatID, s.defaultInterval, DefaultChatEnabled, now, now); err != nil {
		return nil, fmt.Errorf("failed to upsert chat settings (chat %d): %w", chatID, err)
	}

	if !patch.IsEmpty() {
		sets := []string{"updated_at = ?"}
		args := []any{now}
		if patch.IntervalSeconds != nil {
			sets = append(sets, "interval_seconds = ?")
			args = append(args, *patch.IntervalSeconds)
		}
		if patch.IsActive != nil {
			sets = append(sets, "is_active = ?")
			args = append(args, *patch.IsActive)
		}
		if patch.ChatEnabled != nil {
			sets = append(sets, "chat_enabled = ?")
			args = append(args, *patch.ChatEnabled)
		}
		if patch.ExternalThreadID != nil {
			sets = append(sets, "external_thread_id = ?")
			args = append(args, *patch.ExternalThreadID)
		}
		args = append(args, chatID)

		query := "UPDATE chat_settings SET " + strings.Join(sets, ", ") + " WHERE chat_id = ?"
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			s.logger.ErrorContext(ctx, "Failed to update chat settings", "chat_id", chatID, "error", err)
			return nil, fmt.Errorf("failed to update chat settings (chat %d): %w", chatID, err)
		}
	}

	var settings ChatSettings
	if err := tx.GetContext(ctx, &settings, selectChatSettings, chatID); err != nil {
		return nil, fmt.Errorf("failed to reload chat settings (chat %d): %w", chatID, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit chat settings (chat %d): %w", chatID, err)
	}

	s.logger.DebugContext(ctx, "Updated chat settings", "chat_id", chatID,
		"interval_seconds", settings.IntervalSeconds, "is_active", settings.IsActive, "chat_enabled", settings.ChatEnabled)
	return &settings, nil
}

func (s *sqlxStore) ListActive(ctx context.Context) ([]ActiveReminder, error) {
	var rows []ActiveReminder
	err := s.db.SelectContext(ctx, &rows,
		`SELECT chat_id, interval_seconds FROM chat_settings WHERE is_active = 1 ORDER BY chat_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list active reminders: %w", err)
	}
	return rows, nil
}

func (s *sqlxStore) GetMeta(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.GetContext(ctx, &value, `SELECT value FROM global_meta WHERE key = ?`, key)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return "", false, nil
	case err != nil:
		return "", false, fmt.Errorf("failed to get meta %q: %w", key, err)
	}
	return value, true, nil
}

func (s *sqlxStore) SetMeta(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO global_meta (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	if err != nil {
		return fmt.Errorf("failed to set meta %q: %w", key, err)
	}
	return nil
}

func (s *sqlxStore) GetOrCreateMeta(ctx context.Context, key string, create func() (string, error)) (string, error) {
	if value, ok, err := s.GetMeta(ctx, key); err != nil || ok {
		return value, err
	}

	value, err := create()
	if err != nil {
		return "", fmt.Errorf("failed to create meta %q: %w", key, err)
	}

	// A concurrent creator may have won; the stored row is authoritative.
	if _, err := s.db.ExecContext(ctx, `INSERT OR IGNORE INTO global_meta (key, value) VALUES (?, ?)`, key, value); err != nil {
		return "", fmt.Errorf("failed to store meta %q: %w", key, err)
	}
	stored, _, err := s.GetMeta(ctx, key)
	if err != nil {
		return "", err
	}
	s.logger.InfoContext(ctx, "Created global meta value", "key", key)
	return stored, nil
}

func (s *sqlxStore) GetFlow(ctx context.Context, chatID int64) (*ChatFlow, error) {
	var flow ChatFlow
	err := s.db.GetContext(ctx, &flow, `SELECT chat_id, state, updated_at FROM chat_flows WHERE chat_id = ?`, chatID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("failed to get flow (chat %d): %w", chatID, err)
	}
	return &flow, nil
}

func (s *sqlxStore) SetFlow(ctx context.Context, chatID int64, state string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO chat_flows (chat_id, state, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(chat_id) DO UPDATE SET state = excluded.state, updated_at = excluded.updated_at`,
		chatID, state, s.now())
	if err != nil {
		return fmt.Errorf("failed to set flow (chat %d): %w", chatID, err)
	}
	return nil
}

func (s *sqlxStore) ClearFlow(ctx context.Context, chatID int64) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM chat_flows WHERE chat_id = ?`, chatID); err != nil {
		return fmt.Errorf("failed to clear flow (chat %d): %w", chatID, err)
	}
	return nil
}

func (s *sqlxStore) PurgeFlowsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM chat_flows WHERE updated_at < ?`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to purge flows: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count purged flows: %w", err)
	}
	return n, nil
}

func (s *sqlxStore) AppendTurn(ctx context.Context, turn *ConversationTurn) error {
	if turn == nil {
		return fmt.Errorf("cannot save nil turn")
	}
	if turn.ThreadID == "" {
		return fmt.Errorf("turn must have a thread id")
	}
	if turn.CreatedAt.IsZero() {
		turn.CreatedAt = s.now()
	}

	res, err := s.db.NamedExecContext(ctx,
		`INSERT INTO conversation_turns (thread_id, role, content, created_at)
		 VALUES (:thread_id, :role, :content, :created_at)`, turn)
	if err != nil {
		return fmt.Errorf("failed to save turn (thread %s): %w", turn.ThreadID, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read turn id: %w", err)
	}
	turn.ID = id
	return nil
}

func (s *sqlxStore) RecentTurns(ctx context.Context, threadID string, limit int) ([]*ConversationTurn, error) {
	if limit <= 0 {
		return []*ConversationTurn{}, nil
	}

	var turns []*ConversationTurn
	err := s.db.SelectContext(ctx, &turns,
		`SELECT id, thread_id, role, content, created_at FROM (
			SELECT id, thread_id, role, content, created_at FROM conversation_turns
			WHERE thread_id = ? ORDER BY id DESC LIMIT ?
		) ORDER BY id ASC`, threadID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load turns (thread %s): %w", threadID, err)
	}
	return turns, nil
}

// RunSQLMaintenance executes a VACUUM command on the SQLite database.
func (s *sqlxStore) RunSQLMaintenance(ctx context.Context) error {
	if ctx.Err() != nil {
		s.logger.WarnContext(ctx, "Context cancelled or timed out before starting VACUUM", "error", ctx.Err())
		return ctx.Err()
	}

	s.logger.InfoContext(ctx, "Starting database maintenance (VACUUM)...")

	// VACUUM must run outside a transaction.
	_, err := s.db.ExecContext(ctx, "VACUUM;")
	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled):
		s.logger.WarnContext(ctx, "VACUUM operation timed out or was cancelled", "error", err)
		return fmt.Errorf("database maintenance (VACUUM) timed out: %w", err)
	case err != nil:
		s.logger.ErrorContext(ctx, "Database maintenance (VACUUM) failed", "error", err)
		return fmt.Errorf("failed to execute VACUUM: %w", err)
	}

	s.logger.InfoContext(ctx, "Database maintenance (VACUUM) completed successfully")
	return nil
}
