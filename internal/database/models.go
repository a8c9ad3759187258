package database

import (
	"database/sql"
	"time"
)

// Default values of a chat_settings row created on first access.
const (
	DefaultIntervalSeconds = 3600
	DefaultChatEnabled     = true
)

// ChatSettings is the persisted per-chat configuration.
// IsActive is the source of truth for whether a reminder job should exist for the chat.
type ChatSettings struct {
	ChatID           int64          `db:"chat_id"`
	IntervalSeconds  int64          `db:"interval_seconds"`
	IsActive         bool           `db:"is_active"`
	ChatEnabled      bool           `db:"chat_enabled"`
	ExternalThreadID sql.NullString `db:"external_thread_id"`
	CreatedAt        time.Time      `db:"created_at"`
	UpdatedAt        time.Time      `db:"updated_at"`
}

// Interval returns the reminder period as a duration.
func (s *ChatSettings) Interval() time.Duration {
	return time.Duration(s.IntervalSeconds) * time.Second
}

// SettingsPatch carries a partial update; nil fields are left untouched.
type SettingsPatch struct {
	IntervalSeconds  *int64
	IsActive         *bool
	ChatEnabled      *bool
	ExternalThreadID *string
}

// IsEmpty reports whether the patch changes nothing.
func (p SettingsPatch) IsEmpty() bool {
	return p.IntervalSeconds == nil && p.IsActive == nil && p.ChatEnabled == nil && p.ExternalThreadID == nil
}

// ActiveReminder is one row of ListActive.
type ActiveReminder struct {
	ChatID          int64 `db:"chat_id"`
	IntervalSeconds int64 `db:"interval_seconds"`
}

// ChatFlow is the in-progress multi-step flow of a chat.
type ChatFlow struct {
	ChatID    int64     `db:"chat_id"`
	State     string    `db:"state"`
	UpdatedAt time.Time `db:"updated_at"`
}

// ConversationTurn is one stored message of an assistant thread.
type ConversationTurn struct {
	ID        int64     `db:"id"`
	ThreadID  string    `db:"thread_id"`
	Role      string    `db:"role"`
	Content   string    `db:"content"`
	CreatedAt time.Time `db:"created_at"`
}

// Conversation roles stored in conversation_turns.
const (
	RoleUser  = "user"
	RoleModel = "model"
)

// Ptr returns a pointer to v. Used to build SettingsPatch values.
func Ptr[T any](v T) *T {
	return &v
}
