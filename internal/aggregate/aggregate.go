// Package aggregate deduplicates scored candidates across sources, merges
// their evidence, and ranks the result deterministically.
package aggregate

import (
	"sort"
	"strings"

	"github.com/toolscout/prospector/internal/model"
	"github.com/toolscout/prospector/internal/vocab"
)

// Aggregator merges and ranks scored candidates. Stateless.
type Aggregator struct {
	// MinConfidence drops candidates scoring below it after merge. Zero
	// keeps everything.
	MinConfidence int
}

// Aggregate dedups by identity, merges colliding evidence, filters, and
// ranks. Idempotent: aggregating its own output returns the same sequence.
func (a *Aggregator) Aggregate(in []model.ScoredCandidate) []model.ScoredCandidate {
	byKey := make(map[string]*model.ScoredCandidate, len(in))
	var order []string

	for i := range in {
		c := in[i]
		key := identityKey(c.Candidate)
		existing, ok := byKey[key]
		if !ok {
			merged := c
			merged.Mentions = append([]model.ToolMention(nil), c.Mentions...)
			merged.MatchReasons = append([]string(nil), c.MatchReasons...)
			byKey[key] = &merged
			order = append(order, key)
			continue
		}
		mergeInto(existing, c)
	}

	out := make([]model.ScoredCandidate, 0, len(order))
	for _, key := range order {
		c := *byKey[key]
		if c.ConfidenceScore < a.MinConfidence {
			continue
		}
		out = append(out, c)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].ConfidenceScore != out[j].ConfidenceScore {
			return out[i].ConfidenceScore > out[j].ConfidenceScore
		}
		if len(out[i].Mentions) != len(out[j].Mentions) {
			return len(out[i].Mentions) > len(out[j].Mentions)
		}
		return out[i].DiscoveryOrder < out[j].DiscoveryOrder
	})
	return out
}

// mergeInto folds src into dst: union of mentions by canonical tool, union
// of reasons by text, max score, earliest discovery order.
func mergeInto(dst *model.ScoredCandidate, src model.ScoredCandidate) {
	haveTool := make(map[string]bool, len(dst.Mentions))
	for _, m := range dst.Mentions {
		haveTool[vocab.Fold(m.Tool)] = true
	}
	for _, m := range src.Mentions {
		if key := vocab.Fold(m.Tool); !haveTool[key] {
			haveTool[key] = true
			dst.Mentions = append(dst.Mentions, m)
		}
	}

	haveReason := make(map[string]bool, len(dst.MatchReasons))
	for _, r := range dst.MatchReasons {
		haveReason[r] = true
	}
	for _, r := range src.MatchReasons {
		if !haveReason[r] {
			haveReason[r] = true
			dst.MatchReasons = append(dst.MatchReasons, r)
		}
	}

	if src.ConfidenceScore > dst.ConfidenceScore {
		dst.ConfidenceScore = src.ConfidenceScore
	}
	if src.DiscoveryOrder < dst.DiscoveryOrder {
		dst.DiscoveryOrder = src.DiscoveryOrder
	}

	// Prefer the richer record for detail fields the first source lacked.
	if dst.Candidate.RawText == "" {
		dst.Candidate.RawText = src.Candidate.RawText
	}
	if dst.Candidate.Location == "" {
		dst.Candidate.Location = src.Candidate.Location
	}
	if dst.Candidate.Company == nil && src.Candidate.Company != nil {
		dst.Candidate.Company = src.Candidate.Company
	}
	if dst.Candidate.Person == nil && src.Candidate.Person != nil {
		dst.Candidate.Person = src.Candidate.Person
	}
}

// identityKey produces the dedup key: people collapse on profile URL,
// companies on website domain, both falling back to the folded name.
func identityKey(c model.Candidate) string {
	switch c.Kind {
	case model.KindPerson:
		if u := normalizeURL(c.URL); u != "" {
			return "person|" + u
		}
		return "person|" + vocab.Fold(c.Name)
	default:
		if d := domainOf(c.URL); d != "" {
			return "company|" + d
		}
		return "company|" + vocab.Fold(c.Name)
	}
}

func normalizeURL(raw string) string {
	u := strings.ToLower(strings.TrimSpace(raw))
	u = strings.TrimPrefix(u, "https://")
	u = strings.TrimPrefix(u, "http://")
	u = strings.TrimPrefix(u, "www.")
	return strings.TrimSuffix(u, "/")
}

func domainOf(raw string) string {
	u := normalizeURL(raw)
	if u == "" {
		return ""
	}
	if i := strings.IndexAny(u, "/?#"); i >= 0 {
		u = u[:i]
	}
	return u
}
