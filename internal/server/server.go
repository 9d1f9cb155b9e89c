// Package server exposes the search pipeline and campaign manager over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/toolscout/prospector/internal/events"
	"github.com/toolscout/prospector/internal/model"
)

// Searcher runs one search pass, recording progress into rec.
type Searcher interface {
	Run(ctx context.Context, query string, rec *events.Recorder) *model.SearchResult
}

// CampaignService is the slice of the campaign manager the API needs.
type CampaignService interface {
	Create(ctx context.Context, name string, req model.CampaignRequest) (*model.Campaign, error)
	Get(ctx context.Context, id string) (*model.Campaign, error)
	List(ctx context.Context) ([]model.Campaign, error)
	Start(ctx context.Context, id string) (*model.Campaign, error)
	Pause(ctx context.Context, id string) (*model.Campaign, error)
	Chat(ctx context.Context, id, message string) (*model.ChatMessage, error)
	Events(id string) []model.SearchEvent
	Subscribe(id string) (<-chan model.SearchEvent, func())
}

// Features reports which optional capabilities this deployment has wired.
// Served on /health so clients can degrade before issuing requests.
type Features struct {
	LLMExtraction bool `json:"llm_extraction"`
	WebSearch     bool `json:"web_search"`
	ProfileCrawl  bool `json:"profile_crawl"`
	Campaigns     bool `json:"campaigns"`
}

// Server holds the handlers' dependencies.
type Server struct {
	searcher  Searcher
	campaigns CampaignService
	features  Features
	retention int
}

// New creates a server. campaigns may be nil when campaign persistence is
// not configured; the campaign routes then return 404.
func New(searcher Searcher, campaigns CampaignService, features Features, eventRetention int) *Server {
	return &Server{
		searcher:  searcher,
		campaigns: campaigns,
		features:  features,
		retention: eventRetention,
	}
}

// Router builds the chi route tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", s.handleHealth)
	r.Post("/search-companies", s.handleSearch)
	r.Get("/search-companies/stream", s.handleSearchStream)

	if s.campaigns != nil {
		r.Route("/campaigns", func(r chi.Router) {
			r.Get("/", s.handleListCampaigns)
			r.Post("/", s.handleCreateCampaign)
			r.Get("/{id}", s.handleGetCampaign)
			r.Post("/{id}/start", s.handleStartCampaign)
			r.Post("/{id}/pause", s.handlePauseCampaign)
			r.Post("/{id}/chat", s.handleChat)
			r.Get("/{id}/events", s.handleCampaignEvents)
		})
	}
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"features": s.features,
	})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Query string `json:"query"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, &model.ValidationError{Field: "body", Reason: "invalid JSON"})
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeError(w, &model.ValidationError{Field: "query", Reason: "must not be empty"})
		return
	}

	result := s.searcher.Run(r.Context(), req.Query, events.NewRecorder(s.retention))
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleCreateCampaign(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
		model.CampaignRequest
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, &model.ValidationError{Field: "body", Reason: "invalid JSON"})
		return
	}

	campaign, err := s.campaigns.Create(r.Context(), req.Name, req.CampaignRequest)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, struct {
		CampaignID string `json:"campaign_id"`
		*model.Campaign
	}{campaign.ID, campaign})
}

func (s *Server) handleListCampaigns(w http.ResponseWriter, r *http.Request) {
	campaigns, err := s.campaigns.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"campaigns": campaigns})
}

func (s *Server) handleGetCampaign(w http.ResponseWriter, r *http.Request) {
	campaign, err := s.campaigns.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, campaign)
}

func (s *Server) handleStartCampaign(w http.ResponseWriter, r *http.Request) {
	campaign, err := s.campaigns.Start(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, campaign)
}

func (s *Server) handlePauseCampaign(w http.ResponseWriter, r *http.Request) {
	campaign, err := s.campaigns.Pause(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, campaign)
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, &model.ValidationError{Field: "body", Reason: "invalid JSON"})
		return
	}

	reply, err := s.campaigns.Chat(r.Context(), chi.URLParam(r, "id"), req.Message)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"response": reply.Content})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Error("response encode failed", zap.Error(err))
	}
}

// writeError maps the error taxonomy onto HTTP statuses. Everything the
// handlers surface is JSON, including failures.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError

	var verr *model.ValidationError
	var nfe *model.NotFoundError
	var serr *model.InvalidStateError
	switch {
	case errors.As(err, &verr):
		status = http.StatusBadRequest
	case errors.As(err, &nfe):
		status = http.StatusNotFound
	case errors.As(err, &serr):
		status = http.StatusConflict
	default:
		zap.L().Error("request failed", zap.Error(err))
	}

	writeJSON(w, status, map[string]string{"error": err.Error()})
}
