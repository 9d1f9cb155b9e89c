// Package campaign manages named, persisted, repeatable search campaigns
// and their lifecycle: draft -> running -> paused/completed/failed.
package campaign

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/toolscout/prospector/internal/events"
	"github.com/toolscout/prospector/internal/model"
	"github.com/toolscout/prospector/internal/search"
	"github.com/toolscout/prospector/internal/store"
	"github.com/toolscout/prospector/pkg/anthropic"
)

// Pipeline runs the search pipeline for structured criteria and re-scores
// existing results against refined criteria. The progress callback receives
// live counts as the pass yields them.
type Pipeline interface {
	RunCriteria(ctx context.Context, criteria model.SearchCriteria, rec *events.Recorder, progress search.ProgressFunc) *model.SearchResult
	Rescore(result *model.SearchResult, criteria model.SearchCriteria) *model.SearchResult
}

// Manager owns campaign lifecycle and live state. All transitions for one
// campaign are serialized through its per-id state lock; the store holds the
// durable record.
type Manager struct {
	store     store.Store
	pipeline  Pipeline
	llm       anthropic.Client
	llmModel  string
	retention int

	mu     sync.Mutex
	states map[string]*campaignState
}

// campaignState is the in-memory side of a campaign: its event recorder,
// the cancel hook for a running pipeline, and the last finished result.
type campaignState struct {
	mu         sync.Mutex
	cancel     context.CancelFunc
	runSeq     uint64
	rec        *events.Recorder
	lastResult *model.SearchResult
}

// NewManager creates a campaign manager. llm may be nil; chat refinement
// then answers from the keyword path only.
func NewManager(st store.Store, pipeline Pipeline, llm anthropic.Client, llmModel string, eventRetention int) *Manager {
	return &Manager{
		store:     st,
		pipeline:  pipeline,
		llm:       llm,
		llmModel:  llmModel,
		retention: eventRetention,
		states:    make(map[string]*campaignState),
	}
}

func (m *Manager) state(id string) *campaignState {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.states[id]
	if !ok {
		st = &campaignState{rec: events.NewRecorder(m.retention)}
		m.states[id] = st
	}
	return st
}

// Create validates and persists a new draft campaign.
func (m *Manager) Create(ctx context.Context, name string, req model.CampaignRequest) (*model.Campaign, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return m.store.CreateCampaign(ctx, name, req)
}

// Get returns one campaign by id.
func (m *Manager) Get(ctx context.Context, id string) (*model.Campaign, error) {
	return m.store.GetCampaign(ctx, id)
}

// List returns all campaigns, newest first.
func (m *Manager) List(ctx context.Context) ([]model.Campaign, error) {
	return m.store.ListCampaigns(ctx)
}

// Events returns the recorded event timeline for a campaign.
func (m *Manager) Events(id string) []model.SearchEvent {
	return m.state(id).rec.Events()
}

// Subscribe attaches a live event listener for a campaign. The returned
// cancel func must be called when the listener goes away.
func (m *Manager) Subscribe(id string) (<-chan model.SearchEvent, func()) {
	return m.state(id).rec.Subscribe()
}

// Start transitions a campaign to running and launches the pipeline in the
// background. Valid from draft and paused only.
func (m *Manager) Start(ctx context.Context, id string) (*model.Campaign, error) {
	st := m.state(id)
	st.mu.Lock()
	defer st.mu.Unlock()

	campaign, err := m.store.GetCampaign(ctx, id)
	if err != nil {
		return nil, err
	}
	if campaign.Status != model.CampaignDraft && campaign.Status != model.CampaignPaused {
		return nil, &model.InvalidStateError{ID: id, Status: campaign.Status, Op: "start"}
	}

	if err := m.store.UpdateCampaignStatus(ctx, id, model.CampaignRunning); err != nil {
		return nil, err
	}
	campaign.Status = model.CampaignRunning

	// The run outlives the request context.
	runCtx, cancel := context.WithCancel(context.Background())
	st.cancel = cancel
	st.runSeq++
	st.rec.Append(model.EventInfo, "Campaign started: "+campaign.Name)

	go m.run(runCtx, id, campaign.Request, st, st.runSeq)

	return campaign, nil
}

// run executes one campaign search pass and records the terminal state.
// seq identifies this run; a pause-then-resume can supersede it, and a
// superseded run must not clobber the cancel hook of its successor.
func (m *Manager) run(ctx context.Context, id string, req model.CampaignRequest, st *campaignState, seq uint64) {
	// Persist counts as the pipeline yields them, so list and status reads
	// see live progress while the run is still going. Superseded runs stop
	// reporting; their successor owns the counters.
	report := func(matched, searched int) {
		st.mu.Lock()
		current := st.runSeq == seq
		st.mu.Unlock()
		if !current {
			return
		}
		m.persistProgress(id, model.CampaignProgress{
			ProspectsFound: matched,
			TotalSearched:  searched,
		})
	}
	result := m.pipeline.RunCriteria(ctx, req.Criteria(), st.rec, report)

	st.mu.Lock()
	defer st.mu.Unlock()
	if st.runSeq != seq {
		return
	}
	st.cancel = nil
	st.lastResult = result

	m.persistProgress(id, model.CampaignProgress{
		ProspectsFound: result.CriteriaMatched,
		TotalSearched:  result.TotalFound,
	})

	if ctx.Err() != nil {
		// Paused mid-run; Pause already set the status.
		st.rec.Append(model.EventInfo, "Campaign paused")
		return
	}

	status := model.CampaignCompleted
	kind := model.EventSuccess
	message := "Campaign completed: " + result.Summary
	if !result.Success && result.TotalFound == 0 {
		status = model.CampaignFailed
		kind = model.EventError
		message = "Campaign failed: " + result.Summary
	}
	if err := m.store.UpdateCampaignStatus(context.Background(), id, status); err != nil {
		zap.L().Error("campaign status update failed", zap.String("id", id), zap.Error(err))
	}
	st.rec.Append(kind, message)
}

func (m *Manager) persistProgress(id string, progress model.CampaignProgress) {
	if err := m.store.UpdateCampaignProgress(context.Background(), id, progress); err != nil {
		zap.L().Error("campaign progress update failed", zap.String("id", id), zap.Error(err))
	}
}

// Pause cancels a running campaign's pipeline. Valid from running only.
func (m *Manager) Pause(ctx context.Context, id string) (*model.Campaign, error) {
	st := m.state(id)
	st.mu.Lock()
	defer st.mu.Unlock()

	campaign, err := m.store.GetCampaign(ctx, id)
	if err != nil {
		return nil, err
	}
	if campaign.Status != model.CampaignRunning {
		return nil, &model.InvalidStateError{ID: id, Status: campaign.Status, Op: "pause"}
	}

	if err := m.store.UpdateCampaignStatus(ctx, id, model.CampaignPaused); err != nil {
		return nil, err
	}
	campaign.Status = model.CampaignPaused

	if st.cancel != nil {
		st.cancel()
		st.cancel = nil
	}
	return campaign, nil
}

// LastResult returns the most recent finished pipeline result, or nil.
func (m *Manager) LastResult(id string) *model.SearchResult {
	st := m.state(id)
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.lastResult
}

// Close cancels all running campaigns and their recorders.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, st := range m.states {
		st.mu.Lock()
		if st.cancel != nil {
			st.cancel()
			st.cancel = nil
		}
		st.rec.Close()
		st.mu.Unlock()
	}
}
