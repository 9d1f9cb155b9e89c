package source

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toolscout/prospector/internal/events"
	"github.com/toolscout/prospector/internal/model"
	"github.com/toolscout/prospector/internal/resilience"
)

// stubAdapter drives dispatcher tests with canned behavior.
type stubAdapter struct {
	name  string
	fetch func(ctx context.Context, criteria model.SearchCriteria) ([]model.Candidate, error)
}

func (s *stubAdapter) Name() string { return s.name }

func (s *stubAdapter) Fetch(ctx context.Context, criteria model.SearchCriteria) ([]model.Candidate, error) {
	return s.fetch(ctx, criteria)
}

func companiesNamed(names ...string) []model.Candidate {
	out := make([]model.Candidate, len(names))
	for i, n := range names {
		out[i] = model.Candidate{Kind: model.KindCompany, Name: n, URL: "https://" + n + ".example"}
	}
	return out
}

func fastRetry() resilience.RetryConfig {
	return resilience.RetryConfig{
		MaxAttempts:    2,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
		Multiplier:     2,
		JitterFraction: 0.01,
	}
}

func testDispatcher(adapters ...Adapter) *Dispatcher {
	return NewDispatcher(DispatcherConfig{
		MaxInflight: 4,
		Timeout:     time.Second,
		RatePerSec:  1000,
		RateBurst:   100,
		Retry:       fastRetry(),
		Breaker:     resilience.CircuitBreakerConfig{FailureThreshold: 3, ResetTimeout: time.Minute},
	}, adapters...)
}

func TestDispatch_MergesInRegistrationOrder(t *testing.T) {
	a := &stubAdapter{name: "alpha", fetch: func(context.Context, model.SearchCriteria) ([]model.Candidate, error) {
		return companiesNamed("one", "two"), nil
	}}
	b := &stubAdapter{name: "beta", fetch: func(context.Context, model.SearchCriteria) ([]model.Candidate, error) {
		time.Sleep(10 * time.Millisecond)
		return companiesNamed("three"), nil
	}}

	rec := events.NewRecorder(0)
	got := testDispatcher(a, b).Dispatch(context.Background(), model.SearchCriteria{}, rec)

	require.Len(t, got, 3)
	assert.Equal(t, []string{"one", "two", "three"}, []string{got[0].Name, got[1].Name, got[2].Name})
	for i, c := range got {
		assert.Equal(t, i, c.DiscoveryOrder)
		assert.NotEmpty(t, c.Source)
	}
}

func TestDispatch_FailingAdapterDegrades(t *testing.T) {
	ok := &stubAdapter{name: "ok", fetch: func(context.Context, model.SearchCriteria) ([]model.Candidate, error) {
		return companiesNamed("survivor"), nil
	}}
	bad := &stubAdapter{name: "bad", fetch: func(context.Context, model.SearchCriteria) ([]model.Candidate, error) {
		return nil, errors.New("boom")
	}}

	rec := events.NewRecorder(0)
	got := testDispatcher(ok, bad).Dispatch(context.Background(), model.SearchCriteria{}, rec)

	require.Len(t, got, 1)
	assert.Equal(t, "survivor", got[0].Name)

	var sawWarning bool
	for _, e := range rec.Events() {
		if e.Kind == model.EventWarning && strings.Contains(e.Message, "bad") {
			sawWarning = true
		}
	}
	assert.True(t, sawWarning)
}

func TestDispatch_TransientErrorRetried(t *testing.T) {
	var calls atomic.Int32
	flaky := &stubAdapter{name: "flaky", fetch: func(context.Context, model.SearchCriteria) ([]model.Candidate, error) {
		if calls.Add(1) == 1 {
			return nil, resilience.NewTransientError(errors.New("upstream hiccup"), 503)
		}
		return companiesNamed("recovered"), nil
	}}

	rec := events.NewRecorder(0)
	got := testDispatcher(flaky).Dispatch(context.Background(), model.SearchCriteria{}, rec)

	require.Len(t, got, 1)
	assert.Equal(t, "recovered", got[0].Name)
	assert.Equal(t, int32(2), calls.Load())
}

func TestDispatch_OpenBreakerSkips(t *testing.T) {
	var calls atomic.Int32
	down := &stubAdapter{name: "down", fetch: func(context.Context, model.SearchCriteria) ([]model.Candidate, error) {
		calls.Add(1)
		return nil, resilience.NewTransientError(errors.New("unavailable"), 503)
	}}

	d := testDispatcher(down)
	rec := events.NewRecorder(0)

	// Trip the breaker. Threshold 3; two dispatches at two attempts each.
	d.Dispatch(context.Background(), model.SearchCriteria{}, rec)
	d.Dispatch(context.Background(), model.SearchCriteria{}, rec)
	require.Equal(t, resilience.CircuitOpen, d.Breakers().Get("down").State())

	before := calls.Load()
	d.Dispatch(context.Background(), model.SearchCriteria{}, rec)
	assert.Equal(t, before, calls.Load(), "open breaker must skip the fetch entirely")

	var sawSkip bool
	for _, e := range rec.Events() {
		if e.Kind == model.EventWarning && strings.Contains(e.Message, "Skipping down") {
			sawSkip = true
		}
	}
	assert.True(t, sawSkip)
}

func TestDispatch_TimeoutDegrades(t *testing.T) {
	slow := &stubAdapter{name: "slow", fetch: func(ctx context.Context, _ model.SearchCriteria) ([]model.Candidate, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}}

	d := NewDispatcher(DispatcherConfig{
		MaxInflight: 2,
		Timeout:     20 * time.Millisecond,
		RatePerSec:  1000,
		RateBurst:   100,
		Retry:       resilience.RetryConfig{MaxAttempts: 1},
	}, slow)

	rec := events.NewRecorder(0)
	got := d.Dispatch(context.Background(), model.SearchCriteria{}, rec)
	assert.Empty(t, got)

	var sawTimeout bool
	for _, e := range rec.Events() {
		if e.Kind == model.EventWarning && strings.Contains(e.Message, "timed out") {
			sawTimeout = true
		}
	}
	assert.True(t, sawTimeout)
}

func TestDispatch_RespectsMaxInflight(t *testing.T) {
	var inflight, peak atomic.Int32
	var mu sync.Mutex

	mk := func(name string) *stubAdapter {
		return &stubAdapter{name: name, fetch: func(context.Context, model.SearchCriteria) ([]model.Candidate, error) {
			cur := inflight.Add(1)
			mu.Lock()
			if cur > peak.Load() {
				peak.Store(cur)
			}
			mu.Unlock()
			time.Sleep(20 * time.Millisecond)
			inflight.Add(-1)
			return nil, nil
		}}
	}

	d := NewDispatcher(DispatcherConfig{
		MaxInflight: 2,
		Timeout:     time.Second,
		RatePerSec:  1000,
		RateBurst:   100,
		Retry:       resilience.RetryConfig{MaxAttempts: 1},
	}, mk("a"), mk("b"), mk("c"), mk("d"), mk("e"))

	rec := events.NewRecorder(0)
	d.Dispatch(context.Background(), model.SearchCriteria{}, rec)
	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestDispatch_EmitsSearchingEvents(t *testing.T) {
	a := &stubAdapter{name: "alpha", fetch: func(context.Context, model.SearchCriteria) ([]model.Candidate, error) {
		return nil, nil
	}}
	rec := events.NewRecorder(0)
	testDispatcher(a).Dispatch(context.Background(), model.SearchCriteria{}, rec)

	var sawSearching bool
	for _, e := range rec.Events() {
		if e.Kind == model.EventSearching && strings.Contains(e.Message, "alpha") {
			sawSearching = true
		}
	}
	assert.True(t, sawSearching)
}
