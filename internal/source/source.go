// Package source discovers candidate companies and people from external
// signal sources. Each source is an Adapter; the Dispatcher fans out across
// all of them with bounded concurrency, per-source rate limits, retries, and
// circuit breakers.
package source

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/toolscout/prospector/internal/events"
	"github.com/toolscout/prospector/internal/model"
	"github.com/toolscout/prospector/internal/resilience"
)

// Adapter fetches raw candidates from one external source. Implementations
// must be safe for concurrent use and honor ctx cancellation.
type Adapter interface {
	Name() string
	Fetch(ctx context.Context, criteria model.SearchCriteria) ([]model.Candidate, error)
}

// DispatcherConfig tunes the fan-out behavior. Zero values fall back to
// conservative defaults.
type DispatcherConfig struct {
	MaxInflight int
	Timeout     time.Duration
	RatePerSec  float64
	RateBurst   int
	Retry       resilience.RetryConfig
	Breaker     resilience.CircuitBreakerConfig
}

// Dispatcher runs every registered adapter for a criteria set and merges
// their candidates into one slice with global discovery order.
type Dispatcher struct {
	adapters []Adapter
	cfg      DispatcherConfig
	sem      *semaphore.Weighted
	breakers *resilience.ServiceBreakers

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewDispatcher creates a dispatcher over the given adapters.
func NewDispatcher(cfg DispatcherConfig, adapters ...Adapter) *Dispatcher {
	if cfg.MaxInflight <= 0 {
		cfg.MaxInflight = 4
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 25 * time.Second
	}
	if cfg.RatePerSec <= 0 {
		cfg.RatePerSec = 2
	}
	if cfg.RateBurst <= 0 {
		cfg.RateBurst = 4
	}
	return &Dispatcher{
		adapters: adapters,
		cfg:      cfg,
		sem:      semaphore.NewWeighted(int64(cfg.MaxInflight)),
		breakers: resilience.NewServiceBreakers(cfg.Breaker),
		limiters: make(map[string]*rate.Limiter),
	}
}

// Breakers exposes the per-source circuit breakers for health reporting.
func (d *Dispatcher) Breakers() *resilience.ServiceBreakers { return d.breakers }

func (d *Dispatcher) limiter(name string) *rate.Limiter {
	d.mu.Lock()
	defer d.mu.Unlock()
	lim, ok := d.limiters[name]
	if !ok {
		lim = rate.NewLimiter(rate.Limit(d.cfg.RatePerSec), d.cfg.RateBurst)
		d.limiters[name] = lim
	}
	return lim
}

// Dispatch runs all adapters in parallel and merges their candidates.
// A failing or timed-out adapter contributes nothing and emits a warning
// event; the run itself never fails on a source error. Candidates are
// numbered in adapter registration order so ranking tie-breaks are stable
// across runs.
func (d *Dispatcher) Dispatch(ctx context.Context, criteria model.SearchCriteria, rec *events.Recorder) []model.Candidate {
	results := make([][]model.Candidate, len(d.adapters))

	g, gctx := errgroup.WithContext(ctx)
	for i, adapter := range d.adapters {
		g.Go(func() error {
			results[i] = d.runAdapter(gctx, adapter, criteria, rec)
			return nil
		})
	}
	// Goroutines never return errors; failures are degraded to warnings.
	_ = g.Wait()

	var merged []model.Candidate
	for _, batch := range results {
		merged = append(merged, batch...)
	}
	for i := range merged {
		merged[i].DiscoveryOrder = i
	}
	return merged
}

func (d *Dispatcher) runAdapter(ctx context.Context, adapter Adapter, criteria model.SearchCriteria, rec *events.Recorder) []model.Candidate {
	name := adapter.Name()

	if err := d.sem.Acquire(ctx, 1); err != nil {
		return nil
	}
	defer d.sem.Release(1)

	breaker := d.breakers.Get(name)
	if breaker.State() == resilience.CircuitOpen {
		rec.Append(model.EventWarning, fmt.Sprintf("Skipping %s: source temporarily unavailable", name))
		return nil
	}

	if err := d.limiter(name).Wait(ctx); err != nil {
		return nil
	}

	rec.Append(model.EventSearching, fmt.Sprintf("Searching %s...", name))

	fetchCtx, cancel := context.WithTimeout(ctx, d.cfg.Timeout)
	defer cancel()

	cfg := d.cfg.Retry
	cfg.OnRetry = resilience.RetryLogger(name, "fetch")
	candidates, err := resilience.DoVal(fetchCtx, cfg, func(ctx context.Context) ([]model.Candidate, error) {
		return resilience.ExecuteVal(ctx, breaker, func(ctx context.Context) ([]model.Candidate, error) {
			return adapter.Fetch(ctx, criteria)
		})
	})
	if err != nil {
		d.reportFailure(name, err, rec)
		return nil
	}

	for i := range candidates {
		candidates[i].Source = name
	}
	rec.Append(model.EventInfo, fmt.Sprintf("%s returned %d candidates", name, len(candidates)))
	return candidates
}

func (d *Dispatcher) reportFailure(name string, err error, rec *events.Recorder) {
	switch {
	case errors.Is(err, resilience.ErrCircuitOpen):
		rec.Append(model.EventWarning, fmt.Sprintf("Skipping %s: source temporarily unavailable", name))
	case errors.Is(err, context.DeadlineExceeded):
		err = &model.SourceFailure{Source: name, Timeout: true, Err: err}
		rec.Append(model.EventWarning, fmt.Sprintf("%s timed out, continuing without it", name))
	default:
		err = &model.SourceFailure{Source: name, Err: err}
		rec.Append(model.EventWarning, fmt.Sprintf("%s failed, continuing without it", name))
	}
	zap.L().Warn("source adapter failed",
		zap.String("source", name),
		zap.Error(err))
}
