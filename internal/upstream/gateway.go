// Package upstream talks to the third-party price, calendar and shop APIs the bot
// relays. Every public method returns text ready to send: failures become the
// configured apology and empty results the "nothing found" message.
package upstream

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/youarebest/tgbot/internal/config"
	"github.com/youarebest/tgbot/internal/resilience"
)

const userAgent = "Mozilla/5.0 (compatible; YouAreBestBot/1.0)"

type cacheEntry struct {
	env     Envelope
	expires time.Time
}

// Gateway owns the shared HTTP client and the response cache for all integrations.
type Gateway struct {
	client   *http.Client
	cfg      config.UpstreamConfig
	msgs     config.MessagesConfig
	loc      *time.Location
	cache    *expirable.LRU[string, cacheEntry]
	breakers *resilience.Breakers
	scraper  TableScraper
	logger   *slog.Logger
	now      func() time.Time
}

// Option customises a Gateway.
type Option func(*Gateway)

// WithHTTPClient replaces the default client.
func WithHTTPClient(c *http.Client) Option {
	return func(g *Gateway) { g.client = c }
}

// WithScraper replaces the HTML table scraper used for car prices.
func WithScraper(s TableScraper) Option {
	return func(g *Gateway) { g.scraper = s }
}

// WithClock replaces the wall clock used for cache expiry and today's date.
func WithClock(now func() time.Time) Option {
	return func(g *Gateway) { g.now = now }
}

// New builds a Gateway. loc is the zone "today" is computed in.
func New(cfg *config.UpstreamConfig, msgs *config.MessagesConfig, loc *time.Location, log *slog.Logger, opts ...Option) *Gateway {
	if log == nil {
		log = slog.Default()
	}
	if loc == nil {
		loc = time.UTC
	}
	size := cfg.CacheSize
	if size <= 0 {
		size = config.DefaultUpstreamCacheSize
	}

	g := &Gateway{
		client: &http.Client{Timeout: cfg.Timeout},
		cfg:    *cfg,
		msgs:   *msgs,
		loc:    loc,
		cache:  expirable.NewLRU[string, cacheEntry](size, nil, cfg.CacheTTL),
		breakers: resilience.New(resilience.Config{
			MaxFailures: cfg.BreakerFailures,
			Cooldown:    cfg.BreakerCooldown,
			Healthy:     rejectedRequest,
		}, log),
		scraper: htmlTableScraper{},
		logger:  log.With("component", "upstream"),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// CloseIdleConnections releases pooled connections of the shared client.
func (g *Gateway) CloseIdleConnections() {
	g.client.CloseIdleConnections()
}

// cached serves req from the cache while its entry is fresh, fetching otherwise.
// Only successful responses are stored. Fetches go through the breaker of the
// request's host.
func (g *Gateway) cached(ctx context.Context, req request) (Envelope, error) {
	key := req.cacheKey()
	if e, ok := g.cache.Get(key); ok && g.now().Before(e.expires) {
		return e.env, nil
	}

	var env Envelope
	err := g.breakers.Execute(ctx, req.host(), func(ctx context.Context) error {
		var err error
		env, err = g.fetch(ctx, req)
		return err
	})
	if err != nil {
		return Envelope{}, err
	}
	if g.cfg.CacheTTL > 0 {
		g.cache.Add(key, cacheEntry{env: env, expires: g.now().Add(g.cfg.CacheTTL)})
	}
	return env, nil
}

// reply turns an integration result into the text sent to the user.
func (g *Gateway) reply(integration, title string, rows []Row, err error) string {
	if err != nil {
		g.logger.Warn("Upstream call failed", "integration", integration, "error", err)
		return g.msgs.UpstreamError
	}
	if len(rows) == 0 {
		g.logger.Debug("Upstream returned no rows", "integration", integration)
		return g.msgs.NothingFound
	}
	return FormatRows(title, rows)
}
