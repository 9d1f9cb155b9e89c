// Package search orchestrates the full pipeline: criteria extraction, source
// dispatch, tool detection, scoring, aggregation, and result shaping.
package search

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/toolscout/prospector/internal/aggregate"
	"github.com/toolscout/prospector/internal/detect"
	"github.com/toolscout/prospector/internal/events"
	"github.com/toolscout/prospector/internal/model"
	"github.com/toolscout/prospector/internal/score"
)

// Result caps mirror what a reviewer can realistically work through per run.
const (
	maxCompanies = 15
	maxPeople    = 20
)

// CriteriaExtractor parses a free-text query into structured criteria.
type CriteriaExtractor interface {
	Extract(ctx context.Context, query string, rec *events.Recorder) (model.SearchCriteria, error)
}

// CandidateSource produces raw candidates for a criteria set.
type CandidateSource interface {
	Dispatch(ctx context.Context, criteria model.SearchCriteria, rec *events.Recorder) []model.Candidate
}

// ProgressFunc receives running counts as a pipeline pass yields them: once
// when dispatch completes (matched still zero) and once after aggregation.
// Nil is allowed.
type ProgressFunc func(matched, searched int)

// Runner executes one search end to end. A run never returns an unhandled
// fault: extraction failures and empty coverage produce a Success:false
// result with an explanatory summary instead of an error. A completed pass
// that matched nothing is still Success:true.
type Runner struct {
	extractor CriteriaExtractor
	sources   CandidateSource
	detector  *detect.Detector
	scorer    *score.Scorer
	agg       aggregate.Aggregator
}

// NewRunner wires the pipeline stages together.
func NewRunner(extractor CriteriaExtractor, sources CandidateSource, detector *detect.Detector, scorer *score.Scorer, agg aggregate.Aggregator) *Runner {
	return &Runner{
		extractor: extractor,
		sources:   sources,
		detector:  detector,
		scorer:    scorer,
		agg:       agg,
	}
}

// Run executes the pipeline for query, recording progress into rec. Pass a
// fresh recorder per run; its events end up in the result.
func (r *Runner) Run(ctx context.Context, query string, rec *events.Recorder) *model.SearchResult {
	if rec == nil {
		rec = events.NewRecorder(0)
	}
	start := time.Now()

	criteria, err := r.extractor.Extract(ctx, query, rec)
	if err != nil {
		return r.failed(rec, criteria, err, start)
	}

	return r.RunCriteria(ctx, criteria, rec, nil)
}

// RunCriteria executes the pipeline for already-structured criteria.
// Campaign runs enter here, skipping extraction. progress, when non-nil, is
// called with live counts as the pass yields them.
func (r *Runner) RunCriteria(ctx context.Context, criteria model.SearchCriteria, rec *events.Recorder, progress ProgressFunc) *model.SearchResult {
	if rec == nil {
		rec = events.NewRecorder(0)
	}
	if progress == nil {
		progress = func(int, int) {}
	}
	start := time.Now()

	candidates := r.sources.Dispatch(ctx, criteria, rec)
	totalFound := len(candidates)
	progress(0, totalFound)
	if totalFound == 0 {
		rec.Append(model.EventWarning, "No candidates found. Try broader search terms.")
		return &model.SearchResult{
			Criteria:      criteria,
			Summary:       "No results found matching your criteria",
			Reasoning:     fmt.Sprintf("All sources returned empty in %.1fs", time.Since(start).Seconds()),
			Events:        rec.Events(),
			ExecutionTime: time.Since(start).Seconds(),
		}
	}

	rec.Append(model.EventInfo, fmt.Sprintf("Analyzing %d candidates", totalFound))
	scored := r.scoreCandidates(criteria, candidates)
	ranked := r.agg.Aggregate(scored)

	companies, people := partition(ranked)
	if len(companies) > maxCompanies {
		companies = companies[:maxCompanies]
	}
	if len(people) > maxPeople {
		people = people[:maxPeople]
	}

	matched := len(companies) + len(people)
	progress(matched, totalFound)
	if matched > 0 {
		rec.Append(model.EventSuccess, fmt.Sprintf("Found %d matches (%d high confidence)",
			matched, highConfidence(companies)+highConfidence(people)))
	} else {
		rec.Append(model.EventWarning, "No candidates met the match criteria. Try broader search terms.")
	}

	elapsed := time.Since(start).Seconds()
	result := &model.SearchResult{
		Companies:       companies,
		People:          people,
		Criteria:        criteria,
		TableData:       buildTable(companies, people),
		Summary:         summarize(criteria, matched),
		Reasoning:       fmt.Sprintf("Dispatched all sources, analyzed %d candidates in %.1fs", totalFound, elapsed),
		Events:          rec.Events(),
		CriteriaMatched: matched,
		TotalFound:      totalFound,
		ExecutionTime:   elapsed,
		// Sources delivered and the pass completed; a zero-match outcome
		// is still a successful run, just an empty one.
		Success: true,
	}
	return result
}

// Rescore re-scores and re-ranks an existing result against refined
// criteria, reusing the evidence already attached to each candidate. Used by
// campaign chat refinement; no sources are re-queried.
func (r *Runner) Rescore(result *model.SearchResult, criteria model.SearchCriteria) *model.SearchResult {
	previous := append(append([]model.ScoredCandidate(nil), result.Companies...), result.People...)

	rescored := make([]model.ScoredCandidate, 0, len(previous))
	for _, c := range previous {
		if criteria.StrictMatching {
			if missing := score.MissingTools(criteria, c.Mentions); len(missing) > 0 {
				continue
			}
		}
		value, reasons := r.scorer.Score(c.Candidate, criteria, c.Mentions)
		c.ConfidenceScore = value
		c.MatchReasons = reasons
		rescored = append(rescored, c)
	}
	ranked := r.agg.Aggregate(rescored)
	companies, people := partition(ranked)

	updated := *result
	updated.Companies = companies
	updated.People = people
	updated.Criteria = criteria
	updated.TableData = buildTable(companies, people)
	updated.CriteriaMatched = len(companies) + len(people)
	updated.Summary = summarize(criteria, updated.CriteriaMatched)
	return &updated
}

// scoreCandidates runs detection and scoring per candidate. Strict matching
// drops candidates missing any required tool before they are scored.
func (r *Runner) scoreCandidates(criteria model.SearchCriteria, candidates []model.Candidate) []model.ScoredCandidate {
	scored := make([]model.ScoredCandidate, 0, len(candidates))
	for _, c := range candidates {
		mentions := r.detector.Detect(c.RawText)
		if criteria.StrictMatching {
			if missing := score.MissingTools(criteria, mentions); len(missing) > 0 {
				zap.L().Debug("strict match excluded candidate",
					zap.String("name", c.Name),
					zap.Strings("missing", missing))
				continue
			}
		}
		value, reasons := r.scorer.Score(c, criteria, mentions)
		scored = append(scored, model.ScoredCandidate{
			Candidate:       c,
			ConfidenceScore: value,
			MatchReasons:    reasons,
			Mentions:        mentions,
		})
	}
	return scored
}

func (r *Runner) failed(rec *events.Recorder, criteria model.SearchCriteria, err error, start time.Time) *model.SearchResult {
	var xerr *model.ExtractionError
	summary := "Search failed"
	if errors.As(err, &xerr) {
		summary = "Could not understand the search request"
	}
	zap.L().Warn("search run failed", zap.Error(err))
	return &model.SearchResult{
		Criteria:      criteria,
		Summary:       summary,
		Reasoning:     err.Error(),
		Events:        rec.Events(),
		ExecutionTime: time.Since(start).Seconds(),
	}
}

func partition(ranked []model.ScoredCandidate) (companies, people []model.ScoredCandidate) {
	for _, c := range ranked {
		switch c.Kind {
		case model.KindCompany:
			companies = append(companies, c)
		case model.KindPerson:
			people = append(people, c)
		}
	}
	return companies, people
}

func highConfidence(list []model.ScoredCandidate) int {
	n := 0
	for _, c := range list {
		if c.ConfidenceScore >= 70 {
			n++
		}
	}
	return n
}

func summarize(criteria model.SearchCriteria, matched int) string {
	subject := "specified tools"
	if len(criteria.RequiredTools) > 0 {
		subject = strings.Join(criteria.RequiredTools, ", ")
	}
	if matched == 0 {
		return "No results found matching your criteria"
	}
	return fmt.Sprintf("Found %d matches using %s", matched, subject)
}
