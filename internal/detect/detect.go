// Package detect scans free text for tool mentions using multi-pattern
// matching over the tool vocabulary.
package detect

import (
	"strings"

	"github.com/cloudflare/ahocorasick"

	"github.com/toolscout/prospector/internal/model"
	"github.com/toolscout/prospector/internal/vocab"
)

const snippetRadius = 60

// Detector finds tool mentions in text. Safe for concurrent use.
type Detector struct {
	matcher *ahocorasick.Matcher
	aliases []vocab.Alias
	keys    []string
}

// New builds a detector over the given vocabulary. Alias surfaces are folded
// the same way lookup keys are, so matching is case- and
// punctuation-insensitive.
func New(v *vocab.Vocabulary) *Detector {
	aliases := v.Aliases()
	keys := make([]string, len(aliases))
	for i, a := range aliases {
		keys[i] = vocab.Fold(a.Surface)
	}
	return &Detector{
		matcher: ahocorasick.NewStringMatcher(keys),
		aliases: aliases,
		keys:    keys,
	}
}

// Detect returns one mention per tool found in text, keeping the first
// matching surface form for each canonical name. Every alias must sit on
// token boundaries, so "organize" never reads as "ga" and "zoomed" never
// reads as "zoom". Folding already tolerates punctuation and hyphenation
// inside multi-word aliases.
func (d *Detector) Detect(text string) []model.ToolMention {
	if text == "" {
		return nil
	}
	folded := vocab.Fold(text)
	hits := d.matcher.Match([]byte(folded))
	if len(hits) == 0 {
		return nil
	}

	seen := make(map[string]bool, len(hits))
	var mentions []model.ToolMention
	for _, idx := range hits {
		alias := d.aliases[idx]
		if seen[alias.Canonical] {
			continue
		}
		key := d.keys[idx]
		pos := boundedIndex(folded, key)
		if pos < 0 {
			continue
		}
		seen[alias.Canonical] = true
		mentions = append(mentions, model.ToolMention{
			Tool:    alias.Canonical,
			Surface: alias.Surface,
			Snippet: snippet(folded, pos, len(key)),
		})
	}
	return mentions
}

// DetectTools returns just the canonical tool names found in text.
func (d *Detector) DetectTools(text string) []string {
	mentions := d.Detect(text)
	names := make([]string, 0, len(mentions))
	for _, m := range mentions {
		names = append(names, m.Tool)
	}
	return names
}

// boundedIndex finds the first occurrence of key in folded text that sits on
// token boundaries. Folded text has single spaces as its only separators.
func boundedIndex(text, key string) int {
	from := 0
	for {
		i := strings.Index(text[from:], key)
		if i < 0 {
			return -1
		}
		pos := from + i
		if onBoundary(text, pos, len(key)) {
			return pos
		}
		from = pos + 1
	}
}

func onBoundary(text string, pos, n int) bool {
	if pos > 0 && text[pos-1] != ' ' {
		return false
	}
	if end := pos + n; end < len(text) && text[end] != ' ' {
		return false
	}
	return true
}

func snippet(text string, pos, n int) string {
	start := pos - snippetRadius
	if start < 0 {
		start = 0
	}
	end := pos + n + snippetRadius
	if end > len(text) {
		end = len(text)
	}
	return strings.TrimSpace(text[start:end])
}
