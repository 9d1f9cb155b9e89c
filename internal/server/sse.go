package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/toolscout/prospector/internal/events"
	"github.com/toolscout/prospector/internal/model"
)

// handleSearchStream runs a search and streams its events over SSE, ending
// with a "result" event carrying the full search result.
func (s *Server) handleSearchStream(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("query"))
	if query == "" {
		writeError(w, &model.ValidationError{Field: "query", Reason: "must not be empty"})
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, &model.ValidationError{Field: "accept", Reason: "streaming unsupported"})
		return
	}
	sseHeaders(w)

	rec := events.NewRecorder(s.retention)
	stream, cancel := rec.Subscribe()
	defer cancel()

	done := make(chan *model.SearchResult, 1)
	go func() {
		done <- s.searcher.Run(r.Context(), query, rec)
	}()

	for {
		select {
		case ev := <-stream:
			writeSSE(w, flusher, string(ev.Kind), ev)
		case result := <-done:
			// Drain events appended before the run returned.
			for {
				select {
				case ev := <-stream:
					writeSSE(w, flusher, string(ev.Kind), ev)
					continue
				default:
				}
				break
			}
			writeSSE(w, flusher, "result", result)
			return
		case <-r.Context().Done():
			return
		}
	}
}

// handleCampaignEvents streams a campaign's event timeline: the retained
// backlog first, then live events until the client disconnects.
func (s *Server) handleCampaignEvents(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := s.campaigns.Get(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, &model.ValidationError{Field: "accept", Reason: "streaming unsupported"})
		return
	}

	// Subscribe before snapshotting so nothing lands in the gap. Events
	// seen in both are deduplicated by id.
	stream, cancel := s.campaigns.Subscribe(id)
	defer cancel()

	sseHeaders(w)

	seen := make(map[string]bool)
	for _, ev := range s.campaigns.Events(id) {
		seen[ev.ID] = true
		writeSSE(w, flusher, string(ev.Kind), ev)
	}

	for {
		select {
		case ev, open := <-stream:
			if !open {
				return
			}
			if seen[ev.ID] {
				continue
			}
			writeSSE(w, flusher, string(ev.Kind), ev)
		case <-r.Context().Done():
			return
		}
	}
}

func sseHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
}

func writeSSE(w http.ResponseWriter, flusher http.Flusher, event string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	w.Write([]byte("event: " + event + "\n"))
	w.Write([]byte("data: " + string(data) + "\n\n"))
	flusher.Flush()
}
