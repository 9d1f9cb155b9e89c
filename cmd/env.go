package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/toolscout/prospector/internal/aggregate"
	"github.com/toolscout/prospector/internal/campaign"
	"github.com/toolscout/prospector/internal/detect"
	"github.com/toolscout/prospector/internal/extract"
	"github.com/toolscout/prospector/internal/resilience"
	"github.com/toolscout/prospector/internal/score"
	"github.com/toolscout/prospector/internal/search"
	"github.com/toolscout/prospector/internal/server"
	"github.com/toolscout/prospector/internal/source"
	"github.com/toolscout/prospector/internal/store"
	"github.com/toolscout/prospector/internal/vocab"
	anthropicpkg "github.com/toolscout/prospector/pkg/anthropic"
	"github.com/toolscout/prospector/pkg/reader"
	"github.com/toolscout/prospector/pkg/serper"
)

// searchEnv holds the initialized clients and the assembled pipeline
// needed by the search/serve/campaigns commands.
type searchEnv struct {
	Store     store.Store // nil unless withStore
	Runner    *search.Runner
	Campaigns *campaign.Manager // nil unless withStore
	Features  server.Features
}

// Close releases resources held by the environment.
func (se *searchEnv) Close() {
	if se.Campaigns != nil {
		se.Campaigns.Close()
	}
	if se.Store != nil {
		_ = se.Store.Close()
	}
}

// initEnv sets up the API clients, source adapters, and the search runner.
// withStore additionally opens the campaign store and manager. Callers
// should defer env.Close().
func initEnv(ctx context.Context, mode string, withStore bool) (*searchEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	v := vocab.Default()
	anthropicClient := anthropicpkg.NewClient(cfg.Anthropic.Key)
	serperClient := serper.NewClient(cfg.Serper.Key, serper.WithBaseURL(cfg.Serper.BaseURL))
	readerClient := reader.NewClient(cfg.Reader.Key, reader.WithBaseURL(cfg.Reader.BaseURL))

	adapters := []source.Adapter{
		source.NewWebSearchAdapter(serperClient, cfg.Sources.MaxQueriesPerSource, cfg.Serper.MaxResults),
		source.NewProfileCrawlAdapter(serperClient, readerClient, cfg.Sources.MaxProfilesPerSearch),
	}

	features := server.Features{
		LLMExtraction: cfg.Anthropic.Key != "",
		WebSearch:     cfg.Serper.Key != "",
		ProfileCrawl:  cfg.Reader.Key != "",
	}

	// Directory source is optional; most deployments have no listing site.
	if cfg.Sources.DirectoryBaseURL != "" {
		adapters = append(adapters, source.NewDirectoryAdapter(cfg.Sources.DirectoryBaseURL, cfg.Sources.MaxResultsPerCompany))
		zap.L().Info("directory source enabled", zap.String("base_url", cfg.Sources.DirectoryBaseURL))
	}

	dispatcher := source.NewDispatcher(dispatcherConfig(), adapters...)

	extractor := extract.New(anthropicClient, v, cfg.Anthropic.Model, int64(cfg.Anthropic.MaxTokens))
	scorer := score.New(score.Config{
		ToolBand:    cfg.Scoring.ToolBand,
		RoleBand:    cfg.Scoring.RoleBand,
		ContextBand: cfg.Scoring.ContextBand,
	})
	runner := search.NewRunner(extractor, dispatcher, detect.New(v), scorer, aggregate.Aggregator{MinConfidence: cfg.Scoring.MinScore})

	env := &searchEnv{Runner: runner, Features: features}

	if withStore {
		st, err := store.Open(ctx, cfg.Store.Driver, cfg.Store.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := st.Migrate(ctx); err != nil {
			_ = st.Close()
			return nil, eris.Wrap(err, "migrate store")
		}
		env.Store = st
		env.Campaigns = campaign.NewManager(st, runner, anthropicClient, cfg.Anthropic.Model, cfg.Events.Retention)
		env.Features.Campaigns = true
	}

	return env, nil
}

func dispatcherConfig() source.DispatcherConfig {
	return source.DispatcherConfig{
		MaxInflight: cfg.Sources.MaxInflight,
		Timeout:     time.Duration(cfg.Sources.TimeoutSecs) * time.Second,
		RatePerSec:  cfg.Sources.RatePerSec,
		RateBurst:   cfg.Sources.RateBurst,
		Retry:       resilience.FromRetryConfig(cfg.Sources.RetryMaxAttempts, cfg.Sources.RetryInitialMs, cfg.Sources.RetryMaxMs, 0, -1),
		Breaker:     resilience.FromCircuitConfig(cfg.Sources.BreakerThreshold, cfg.Sources.BreakerResetSecs),
	}
}
