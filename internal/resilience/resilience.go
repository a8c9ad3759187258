// Package resilience keeps one circuit breaker per upstream dependency. After
// enough consecutive failures a dependency is skipped until its cooldown ends.
package resilience

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/sony/gobreaker"
)

// Defaults used when Config leaves a field at zero.
const (
	DefaultMaxFailures = 5
	DefaultCooldown    = 30 * time.Second
)

// ErrOpen is returned while a breaker rejects calls.
var ErrOpen = errors.New("circuit breaker is open")

// CircuitState is the state of one breaker.
type CircuitState int

const (
	StateClosed CircuitState = iota
	StateHalfOpen
	StateOpen
)

func (s CircuitState) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateHalfOpen:
		return "half-open"
	case StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

func mapState(state gobreaker.State) CircuitState {
	switch state {
	case gobreaker.StateHalfOpen:
		return StateHalfOpen
	case gobreaker.StateOpen:
		return StateOpen
	default:
		return StateClosed
	}
}

// Config tunes every breaker in a set.
type Config struct {
	// MaxFailures is the number of consecutive failures that opens a breaker.
	MaxFailures int
	// Cooldown is how long an open breaker rejects calls before letting one through.
	Cooldown time.Duration
	// Healthy reports errors that say nothing about the dependency, such as a
	// rejected request. They reach the caller without counting as failures.
	// Cancellation is always treated this way.
	Healthy func(error) bool
}

// Breakers is a lazily populated set of named breakers.
type Breakers struct {
	cfg    Config
	logger *slog.Logger

	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker
}

// New creates an empty set.
func New(cfg Config, log *slog.Logger) *Breakers {
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = DefaultMaxFailures
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = DefaultCooldown
	}
	if log == nil {
		log = slog.Default()
	}
	return &Breakers{
		cfg:      cfg,
		logger:   log.With("component", "circuit_breaker"),
		breakers: make(map[string]*gobreaker.CircuitBreaker),
	}
}

func (b *Breakers) get(name string) *gobreaker.CircuitBreaker {
	b.mu.Lock()
	defer b.mu.Unlock()
	if cb, ok := b.breakers[name]; ok {
		return cb
	}
	maxFailures := uint32(b.cfg.MaxFailures)
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     b.cfg.Cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		IsSuccessful: b.isSuccessful,
		OnStateChange: func(name string, from, to gobreaker.State) {
			b.logger.Warn("Circuit breaker state changed", "name", name, "from", mapState(from).String(), "to", mapState(to).String())
		},
	})
	b.breakers[name] = cb
	return cb
}

func (b *Breakers) isSuccessful(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return true
	}
	return b.cfg.Healthy != nil && b.cfg.Healthy(err)
}

// Execute runs op through the breaker called name. While the breaker is open op is
// not called and the error wraps ErrOpen.
func (b *Breakers) Execute(ctx context.Context, name string, op func(context.Context) error) error {
	_, err := b.get(name).Execute(func() (any, error) {
		return nil, op(ctx)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return errors.Join(ErrOpen, err)
	}
	return err
}

// State reports the state of the breaker called name. Unknown names are closed.
func (b *Breakers) State(name string) CircuitState {
	b.mu.Lock()
	cb, ok := b.breakers[name]
	b.mu.Unlock()
	if !ok {
		return StateClosed
	}
	return mapState(cb.State())
}
