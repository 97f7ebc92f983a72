package ratelimit

import (
	"hash/fnv"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// DefaultSweepInterval is how often the background sweep removes fully
// elapsed entries. Sweeping is a liveness optimization; admission stays
// correct even if it never runs because stale entries reset lazily.
const DefaultSweepInterval = 5 * time.Minute

// lockStripes is the size of the striped mutex table serializing per-key
// read-modify-writes. Two concurrent requests for the same key are always
// ordered; distinct keys rarely contend.
const lockStripes = 64

// Limiter applies a per-category admission strategy to keyed request
// streams. Keys combine a subject ("user:<id>" or "ip:<addr>") with the
// endpoint category, so exhausting one user's allowance never affects
// another.
type Limiter struct {
	store    EntryStore
	configs  map[string]Config
	fallback Config

	now           func() time.Time
	logger        *slog.Logger
	sweepInterval time.Duration

	locks   [lockStripes]sync.Mutex
	buckets sync.Map // key -> *rate.Limiter, TokenBucket strategy only

	stopCh chan struct{}
	doneCh chan struct{}
}

// Option customises a Limiter at construction.
type Option func(*Limiter)

// WithClock replaces the limiter's time source. For tests.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) { l.now = now }
}

// WithSweepInterval overrides the background sweep cadence.
func WithSweepInterval(d time.Duration) Option {
	return func(l *Limiter) {
		if d > 0 {
			l.sweepInterval = d
		}
	}
}

// WithFallback sets the config used for categories missing from the table.
func WithFallback(cfg Config) Option {
	return func(l *Limiter) { l.fallback = cfg }
}

// WithLogger sets the logger used by the sweep and admin operations.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Limiter) { l.logger = logger }
}

// New creates a Limiter over the given store and per-category config table.
func New(store EntryStore, configs map[string]Config, opts ...Option) *Limiter {
	l := &Limiter{
		store:   store,
		configs: configs,
		fallback: Config{
			Window:   time.Minute,
			Max:      60,
			Strategy: FixedWindow,
		},
		now:           time.Now,
		logger:        slog.Default(),
		sweepInterval: DefaultSweepInterval,
		stopCh:        make(chan struct{}),
		doneCh:        make(chan struct{}),
	}

	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Admit decides whether one request for subject under category may proceed.
// The returned Result always carries the limit, remaining allowance, and
// reset time; on rejection the error is a *LimitError with the same Result.
func (l *Limiter) Admit(category, subject string) (Result, error) {
	cfg := l.configFor(category)
	key := subject + ":" + category

	if cfg.Strategy == TokenBucket {
		return l.admitBucket(key, cfg)
	}

	mu := l.lockFor(key)
	mu.Lock()
	defer mu.Unlock()

	now := l.now()
	entry, ok := l.store.Get(key)

	switch cfg.Strategy {
	case SlidingWindow:
		return l.admitSliding(key, cfg, entry, now)
	case Progressive:
		return l.admitProgressive(key, cfg, entry, ok, now)
	default:
		return l.admitFixed(key, cfg, entry, ok, now)
	}
}

func (l *Limiter) admitFixed(key string, cfg Config, e Entry, ok bool, now time.Time) (Result, error) {
	if !ok || !now.Before(e.WindowReset) {
		e = Entry{WindowReset: now.Add(cfg.Window), FirstAttempt: now}
	}

	if e.Count >= cfg.Max {
		res := Result{
			Limit:      cfg.Max,
			ResetAt:    e.WindowReset,
			RetryAfter: retryAfterSeconds(e.WindowReset, now),
		}
		return res, &LimitError{Result: res}
	}

	e.Count++
	e.ExpiresAt = e.WindowReset
	l.store.Set(key, e)

	return Result{
		Admitted:  true,
		Limit:     cfg.Max,
		Remaining: cfg.Max - e.Count,
		ResetAt:   e.WindowReset,
	}, nil
}

func (l *Limiter) admitSliding(key string, cfg Config, e Entry, now time.Time) (Result, error) {
	cutoff := now.Add(-cfg.Window)

	kept := e.Timestamps[:0]
	for _, ts := range e.Timestamps {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}

	if len(kept) >= cfg.Max {
		resetAt := kept[0].Add(cfg.Window)
		res := Result{
			Limit:      cfg.Max,
			ResetAt:    resetAt,
			RetryAfter: retryAfterSeconds(resetAt, now),
		}

		e.Timestamps = kept
		e.Count = len(kept)
		e.ExpiresAt = kept[len(kept)-1].Add(cfg.Window)
		l.store.Set(key, e)

		return res, &LimitError{Result: res}
	}

	kept = append(kept, now)
	if e.FirstAttempt.IsZero() {
		e.FirstAttempt = now
	}
	e.Timestamps = kept
	e.Count = len(kept)
	e.ExpiresAt = now.Add(cfg.Window)
	l.store.Set(key, e)

	return Result{
		Admitted:  true,
		Limit:     cfg.Max,
		Remaining: cfg.Max - len(kept),
		ResetAt:   kept[0].Add(cfg.Window),
	}, nil
}

func (l *Limiter) admitProgressive(key string, cfg Config, e Entry, ok bool, now time.Time) (Result, error) {
	// Each recorded violation shrinks the allowance by one (floor 1) and
	// stretches the window by half a base window.
	effMax := max(1, cfg.Max-e.Violations)
	effWindow := time.Duration(float64(cfg.Window) * (1 + float64(e.Violations)*0.5))

	if !ok || !now.Before(e.WindowReset) {
		e = Entry{
			WindowReset:  now.Add(effWindow),
			FirstAttempt: now,
			Violations:   e.Violations,
		}
	}

	if e.Count >= effMax {
		e.Violations++

		res := Result{
			Limit:      effMax,
			ResetAt:    e.WindowReset,
			RetryAfter: retryAfterSeconds(e.WindowReset, now),
		}

		// Violation memory persists one extra penalty window past the
		// reset so repeat offenders meet the tightened config next time.
		e.ExpiresAt = e.WindowReset.Add(effWindow)
		l.store.Set(key, e)

		return res, &LimitError{Result: res}
	}

	e.Count++
	e.ExpiresAt = e.WindowReset.Add(effWindow)
	l.store.Set(key, e)

	return Result{
		Admitted:  true,
		Limit:     effMax,
		Remaining: effMax - e.Count,
		ResetAt:   e.WindowReset,
	}, nil
}

func (l *Limiter) admitBucket(key string, cfg Config) (Result, error) {
	lim := l.bucketFor(key, cfg)
	now := l.now()

	if !lim.Allow() {
		// Peek at when the next token lands without consuming it.
		reservation := lim.Reserve()
		delay := reservation.Delay()
		reservation.Cancel()

		resetAt := now.Add(delay)
		res := Result{
			Limit:      cfg.Max,
			ResetAt:    resetAt,
			RetryAfter: retryAfterSeconds(resetAt, now),
		}
		return res, &LimitError{Result: res}
	}

	return Result{
		Admitted:  true,
		Limit:     cfg.Max,
		Remaining: int(lim.Tokens()),
		ResetAt:   now.Add(cfg.Window),
	}, nil
}

func (l *Limiter) bucketFor(key string, cfg Config) *rate.Limiter {
	if lim, ok := l.buckets.Load(key); ok {
		return lim.(*rate.Limiter)
	}

	perSecond := float64(cfg.Max) / cfg.Window.Seconds()
	lim := rate.NewLimiter(rate.Limit(perSecond), cfg.Max)
	actual, _ := l.buckets.LoadOrStore(key, lim)
	return actual.(*rate.Limiter)
}

// ReportOutcome tells the limiter how the guarded operation ended. For
// categories configured with SkipSuccessful, a successful outcome uncounts
// the attempt recorded at Admit time so only failures consume the allowance.
func (l *Limiter) ReportOutcome(category, subject string, success bool) {
	cfg := l.configFor(category)
	if !cfg.SkipSuccessful || !success {
		return
	}
	if cfg.Strategy == TokenBucket {
		// Buckets refill continuously; there is no discrete count to return.
		return
	}

	key := subject + ":" + category
	mu := l.lockFor(key)
	mu.Lock()
	defer mu.Unlock()

	e, ok := l.store.Get(key)
	if !ok {
		return
	}
	now := l.now()

	switch cfg.Strategy {
	case SlidingWindow:
		if n := len(e.Timestamps); n > 0 {
			e.Timestamps = e.Timestamps[:n-1]
			e.Count = len(e.Timestamps)
			l.store.Set(key, e)
		}
	default:
		if e.Count > 0 && now.Before(e.WindowReset) {
			e.Count--
			l.store.Set(key, e)
		}
	}
}

// Status returns a read-only snapshot of a key's state without consuming
// any allowance. The second return is false when no live entry exists.
func (l *Limiter) Status(category, subject string) (Result, bool) {
	cfg := l.configFor(category)
	key := subject + ":" + category

	if cfg.Strategy == TokenBucket {
		lim, ok := l.buckets.Load(key)
		if !ok {
			return Result{}, false
		}
		tokens := lim.(*rate.Limiter).Tokens()
		return Result{
			Admitted:  tokens >= 1,
			Limit:     cfg.Max,
			Remaining: min(max(int(tokens), 0), cfg.Max),
			ResetAt:   l.now().Add(cfg.Window),
		}, true
	}

	mu := l.lockFor(key)
	mu.Lock()
	defer mu.Unlock()

	e, ok := l.store.Get(key)
	if !ok {
		return Result{}, false
	}
	now := l.now()

	switch cfg.Strategy {
	case SlidingWindow:
		live := 0
		cutoff := now.Add(-cfg.Window)
		resetAt := now
		for _, ts := range e.Timestamps {
			if ts.After(cutoff) {
				if live == 0 {
					resetAt = ts.Add(cfg.Window)
				}
				live++
			}
		}
		return Result{
			Admitted:  live < cfg.Max,
			Limit:     cfg.Max,
			Remaining: max(cfg.Max-live, 0),
			ResetAt:   resetAt,
		}, true
	case Progressive:
		effMax := max(1, cfg.Max-e.Violations)
		return Result{
			Admitted:  e.Count < effMax && now.Before(e.WindowReset),
			Limit:     effMax,
			Remaining: max(effMax-e.Count, 0),
			ResetAt:   e.WindowReset,
		}, true
	default:
		return Result{
			Admitted:  e.Count < cfg.Max || !now.Before(e.WindowReset),
			Limit:     cfg.Max,
			Remaining: max(cfg.Max-e.Count, 0),
			ResetAt:   e.WindowReset,
		}, true
	}
}

// Reset clears the state for a single key, leaving all other keys intact.
func (l *Limiter) Reset(category, subject string) {
	key := subject + ":" + category

	mu := l.lockFor(key)
	mu.Lock()
	defer mu.Unlock()

	l.store.Delete(key)
	l.buckets.Delete(key)
}

// Clear drops every key. Admin use only.
func (l *Limiter) Clear() {
	l.store.Clear()
	l.buckets.Range(func(key, _ any) bool {
		l.buckets.Delete(key)
		return true
	})
}

// Start launches the background sweep. Call Stop during shutdown; the
// limiter never installs its own signal handlers.
func (l *Limiter) Start() {
	go l.run()
	l.logger.Info("rate limiter sweep started", "interval", l.sweepInterval)
}

// Stop halts the background sweep and blocks until it has exited.
func (l *Limiter) Stop() {
	close(l.stopCh)
	<-l.doneCh
	l.logger.Info("rate limiter sweep stopped")
}

func (l *Limiter) run() {
	defer close(l.doneCh)

	ticker := time.NewTicker(l.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-l.stopCh:
			return
		case <-ticker.C:
			l.sweep()
		}
	}
}

func (l *Limiter) sweep() {
	removed := l.store.SweepExpired(l.now())

	// A bucket with a full allowance has been idle for at least one window.
	l.buckets.Range(func(key, value any) bool {
		lim := value.(*rate.Limiter)
		if lim.Tokens() >= float64(lim.Burst()) {
			l.buckets.Delete(key)
			removed++
		}
		return true
	})

	if removed > 0 {
		l.logger.Debug("rate limit sweep", "removed", removed)
	}
}

func (l *Limiter) configFor(category string) Config {
	if cfg, ok := l.configs[category]; ok {
		return cfg
	}
	return l.fallback
}

func (l *Limiter) lockFor(key string) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return &l.locks[h.Sum32()%lockStripes]
}
