package model

import (
	"fmt"
	"time"
)

// ExtractionError means criteria parsing failed or produced an invalid or
// empty criteria set. Fatal to the search run.
type ExtractionError struct {
	Reason string
	Err    error
}

func (e *ExtractionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("extraction failed: %s: %v", e.Reason, e.Err)
	}
	return "extraction failed: " + e.Reason
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// SourceFailure means a single source adapter failed or timed out. Recovered
// locally; degrades result completeness but never aborts the run.
type SourceFailure struct {
	Source  string
	Timeout bool
	Err     error
}

func (e *SourceFailure) Error() string {
	if e.Timeout {
		return fmt.Sprintf("source %s timed out", e.Source)
	}
	return fmt.Sprintf("source %s failed: %v", e.Source, e.Err)
}

func (e *SourceFailure) Unwrap() error { return e.Err }

// RateLimitError signals upstream throttling. Retried with backoff before
// being surfaced as a SourceFailure.
type RateLimitError struct {
	Source     string
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("source %s rate limited (retry after %s)", e.Source, e.RetryAfter)
}

// ValidationError means a caller-supplied request was malformed. Surfaced
// immediately, never retried.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// NotFoundError means the referenced entity does not exist.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.ID)
}

// InvalidStateError means a campaign lifecycle operation is not permitted
// from the campaign's current status.
type InvalidStateError struct {
	ID     string
	Status CampaignStatus
	Op     string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("campaign %s: cannot %s while %s", e.ID, e.Op, e.Status)
}
