// Package reminder keeps at most one recurring reminder job per chat on top of gocron.
package reminder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"

	"github.com/youarebest/tgbot/internal/database"
	"github.com/youarebest/tgbot/internal/logger"
)

// Tag carried by every reminder job, used to find them in the shared gocron scheduler.
const Tag = "reminder"

const fireTimeout = 30 * time.Second

var (
	// ErrInvalidInterval is returned for intervals shorter than one second.
	ErrInvalidInterval = errors.New("reminder interval must be at least one second")
	// ErrClosed is returned by Start after Shutdown.
	ErrClosed = errors.New("reminder scheduler is shut down")
)

// Store is the subset of the settings store the scheduler needs.
type Store interface {
	UpdateChatSettings(ctx context.Context, chatID int64, patch database.SettingsPatch) (*database.ChatSettings, error)
	ListActive(ctx context.Context) ([]database.ActiveReminder, error)
}

// Sender delivers a reminder text to a chat.
type Sender interface {
	SendReminder(ctx context.Context, chatID int64, text string) error
}

// Options configures a Scheduler.
type Options struct {
	Quiet    QuietHours
	Messages []string
}

type entry struct {
	jobID    uuid.UUID
	interval time.Duration
	gen      uint64
}

// Scheduler owns the chat → job table. The table never holds two jobs for one chat.
type Scheduler struct {
	cron     gocron.Scheduler
	store    Store
	sender   Sender
	quiet    QuietHours
	messages []string
	logger   *slog.Logger

	now  func() time.Time
	pick func(n int) int

	mu     sync.Mutex
	jobs   map[int64]entry
	gen    uint64
	closed bool

	// chatMu serialises Start, Stop and delivery per chat. It is taken before mu.
	chatMu map[int64]*sync.Mutex
}

// New creates a reminder scheduler that registers its jobs on cron.
func New(cron gocron.Scheduler, store Store, sender Sender, opts Options, log *slog.Logger) *Scheduler {
	if log == nil {
		log = logger.Discard()
	}
	return &Scheduler{
		cron:     cron,
		store:    store,
		sender:   sender,
		quiet:    opts.Quiet,
		messages: slices.Clone(opts.Messages),
		logger:   log.With("component", "reminder_scheduler"),
		now:      time.Now,
		pick:     rand.IntN,
		jobs:     make(map[int64]entry),
		chatMu:   make(map[int64]*sync.Mutex),
	}
}

func (s *Scheduler) chatLock(chatID int64) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.chatMu[chatID]
	if !ok {
		m = &sync.Mutex{}
		s.chatMu[chatID] = m
	}
	return m
}

func chatTag(chatID int64) string {
	return "chat:" + strconv.FormatInt(chatID, 10)
}

// Start arms a reminder for chatID firing every interval, the first one interval from now.
// An existing reminder for the chat is cancelled first. is_active and the interval are persisted.
func (s *Scheduler) Start(ctx context.Context, chatID int64, interval time.Duration) error {
	if interval < time.Second {
		return fmt.Errorf("%w: %s", ErrInvalidInterval, interval)
	}

	cl := s.chatLock(chatID)
	cl.Lock()
	defer cl.Unlock()
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}

	s.cancelLocked(chatID)

	s.gen++
	gen := s.gen
	job, err := s.cron.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(s.run, chatID, gen),
		gocron.WithName("reminder:"+strconv.FormatInt(chatID, 10)),
		gocron.WithTags(Tag, chatTag(chatID)),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("failed to schedule reminder (chat %d): %w", chatID, err)
	}
	s.jobs[chatID] = entry{jobID: job.ID(), interval: interval, gen: gen}

	secs := int64(interval / time.Second)
	if _, err := s.store.UpdateChatSettings(ctx, chatID, database.SettingsPatch{
		IsActive:        database.Ptr(true),
		IntervalSeconds: &secs,
	}); err != nil {
		s.cancelLocked(chatID)
		return fmt.Errorf("failed to persist reminder start (chat %d): %w", chatID, err)
	}

	s.logger.InfoContext(ctx, "Reminder started", "chat_id", chatID, "interval", interval, "job_id", job.ID())
	return nil
}

// Stop cancels the chat's reminder if one is armed and persists is_active=false.
// A delivery already in progress finishes before Stop returns; none starts after.
func (s *Scheduler) Stop(ctx context.Context, chatID int64) error {
	cl := s.chatLock(chatID)
	cl.Lock()
	defer cl.Unlock()
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cancelLocked(chatID)

	if _, err := s.store.UpdateChatSettings(ctx, chatID, database.SettingsPatch{IsActive: database.Ptr(false)}); err != nil {
		return fmt.Errorf("failed to persist reminder stop (chat %d): %w", chatID, err)
	}

	s.logger.InfoContext(ctx, "Reminder stopped", "chat_id", chatID)
	return nil
}

// ChangeInterval stores a new interval and, only when the chat's reminder is active,
// re-arms it with that interval. It reports whether the reminder is active.
func (s *Scheduler) ChangeInterval(ctx context.Context, chatID int64, interval time.Duration) (bool, error) {
	if interval < time.Second {
		return false, fmt.Errorf("%w: %s", ErrInvalidInterval, interval)
	}

	secs := int64(interval / time.Second)
	settings, err := s.store.UpdateChatSettings(ctx, chatID, database.SettingsPatch{IntervalSeconds: &secs})
	if err != nil {
		return false, fmt.Errorf("failed to persist interval (chat %d): %w", chatID, err)
	}
	if !settings.IsActive {
		return false, nil
	}
	if err := s.Start(ctx, chatID, interval); err != nil {
		return true, err
	}
	return true, nil
}

// cancelLocked removes the chat's job. s.mu must be held.
func (s *Scheduler) cancelLocked(chatID int64) {
	e, ok := s.jobs[chatID]
	if !ok {
		return
	}
	delete(s.jobs, chatID)
	if err := s.cron.RemoveJob(e.jobID); err != nil && !errors.Is(err, gocron.ErrJobNotFound) {
		s.logger.Warn("Failed to remove reminder job", "chat_id", chatID, "job_id", e.jobID, "error", err)
	}
}

// run is the gocron task. A job replaced or stopped since it was armed does nothing.
func (s *Scheduler) run(chatID int64, gen uint64) {
	cl := s.chatLock(chatID)
	cl.Lock()
	defer cl.Unlock()

	s.mu.Lock()
	e, ok := s.jobs[chatID]
	s.mu.Unlock()
	if !ok || e.gen != gen {
		s.logger.Debug("Skipping stale reminder job", "chat_id", chatID)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), fireTimeout)
	defer cancel()
	if _, err := s.Fire(ctx, chatID); err != nil {
		s.logger.ErrorContext(ctx, "Reminder delivery failed", "chat_id", chatID, "error", err)
	}
}

// Fire sends one reminder to chatID unless the current time is inside quiet hours.
// It reports whether a message was sent. It never reschedules anything.
func (s *Scheduler) Fire(ctx context.Context, chatID int64) (bool, error) {
	now := s.now()
	if s.quiet.ContainsTime(now) {
		s.logger.DebugContext(ctx, "Reminder muted by quiet hours", "chat_id", chatID, "hour", now.In(s.location()).Hour())
		return false, nil
	}
	if len(s.messages) == 0 {
		return false, fmt.Errorf("no reminder messages configured")
	}

	text := s.messages[s.pick(len(s.messages))]
	if err := s.sender.SendReminder(ctx, chatID, text); err != nil {
		return false, fmt.Errorf("failed to send reminder (chat %d): %w", chatID, err)
	}
	s.logger.DebugContext(ctx, "Reminder sent", "chat_id", chatID)
	return true, nil
}

func (s *Scheduler) location() *time.Location {
	if s.quiet.Location == nil {
		return time.UTC
	}
	return s.quiet.Location
}

// RestoreAll arms a reminder for every active chat in the store. It must run before
// updates are processed. Failures for single chats are collected, not fatal.
func (s *Scheduler) RestoreAll(ctx context.Context) (int, error) {
	rows, err := s.store.ListActive(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list active reminders: %w", err)
	}

	var errs []error
	restored := 0
	for _, row := range rows {
		if err := s.Start(ctx, row.ChatID, time.Duration(row.IntervalSeconds)*time.Second); err != nil {
			errs = append(errs, err)
			continue
		}
		restored++
	}

	s.logger.InfoContext(ctx, "Reminders restored", "restored", restored, "failed", len(errs))
	return restored, errors.Join(errs...)
}

// Interval returns the armed interval for chatID.
func (s *Scheduler) Interval(chatID int64) (time.Duration, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.jobs[chatID]
	return e.interval, ok
}

// Active returns the chats with an armed reminder, sorted.
func (s *Scheduler) Active() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]int64, 0, len(s.jobs))
	for id := range s.jobs {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Shutdown removes every reminder job and refuses further Starts. Persisted state is
// left alone so RestoreAll re-arms the same reminders on the next run.
func (s *Scheduler) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for chatID := range s.jobs {
		s.cancelLocked(chatID)
	}
	s.closed = true
	s.logger.Info("Reminder scheduler shut down")
}
