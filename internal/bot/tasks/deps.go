// Package tasks implements the fixed background tasks of the bot.
package tasks

import (
	"log/slog"
	"time"

	"github.com/youarebest/tgbot/internal/database"
)

// TaskDeps contains the dependencies required by scheduled tasks.
type TaskDeps struct {
	Logger  *slog.Logger
	Store   database.Store
	FlowTTL time.Duration
}
