package model

import "time"

// EventKind classifies a pipeline event for the reasoning trail.
type EventKind string

const (
	EventInfo      EventKind = "info"
	EventSuccess   EventKind = "success"
	EventWarning   EventKind = "warning"
	EventError     EventKind = "error"
	EventSearching EventKind = "searching"
	EventAnalyzing EventKind = "analyzing"
)

// SearchEvent is one entry in the append-only pipeline timeline. Events are
// never mutated after emission; ordering within a single writer is emission
// order.
type SearchEvent struct {
	ID        string    `json:"id"`
	Kind      EventKind `json:"type"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}
