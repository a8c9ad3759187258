package logger

import (
	"log/slog"

	"github.com/go-co-op/gocron/v2"
)

// schedulerLogger routes gocron's internal logging into slog.
type schedulerLogger struct {
	log *slog.Logger
}

var _ gocron.Logger = schedulerLogger{}

// NewSchedulerLogger adapts log for gocron.WithLogger.
func NewSchedulerLogger(log *slog.Logger) gocron.Logger {
	if log == nil {
		log = Discard()
	}
	return schedulerLogger{log: log.With("source", "gocron")}
}

func (l schedulerLogger) Debug(msg string, args ...any) { l.log.Debug(msg, args...) }
func (l schedulerLogger) Info(msg string, args ...any)  { l.log.Info(msg, args...) }
func (l schedulerLogger) Warn(msg string, args ...any)  { l.log.Warn(msg, args...) }
func (l schedulerLogger) Error(msg string, args ...any) { l.log.Error(msg, args...) }
