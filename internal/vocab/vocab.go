// Package vocab provides the static tool vocabulary: canonical tool names
// and the surface forms under which they appear in profile and company text.
package vocab

import (
	"sort"
	"strings"
	"unicode"
)

// Alias pairs one surface form with its canonical tool name.
type Alias struct {
	Surface   string
	Canonical string
}

// Vocabulary maps surface forms to canonical tool names. Read-only after
// construction; safe for concurrent use across adapters and detectors.
type Vocabulary struct {
	byKey   map[string]string
	aliases []Alias
	tools   []string
}

// defaultEntries is the seed vocabulary of customer-facing SaaS tools the
// pipeline knows how to detect, with the surface variations people actually
// write in bios and company pages.
var defaultEntries = map[string][]string{
	"Intercom":         {"intercom", "intercom.io", "intercom.com", "intercom messenger", "intercom chat"},
	"Klaus":            {"klaus", "zendeskqa", "zendesk qa", "klaus qa", "zendesk quality"},
	"Zendesk":          {"zendesk", "zendesk.com", "zendesk support", "zendesk chat"},
	"Salesforce":       {"salesforce", "salesforce.com", "sfdc", "sales cloud", "service cloud"},
	"HubSpot":          {"hubspot", "hubspot.com", "hub spot"},
	"Slack":            {"slack", "slack.com"},
	"Stripe":           {"stripe", "stripe.com"},
	"Shopify":          {"shopify", "shopify.com"},
	"Zoom":             {"zoom", "zoom.us"},
	"Notion":           {"notion", "notion.so"},
	"Pipedrive":        {"pipedrive", "pipe drive"},
	"Outreach":         {"outreach", "outreach.io"},
	"Apollo":           {"apollo", "apollo.io"},
	"Google Analytics": {"google analytics", "ga"},
}

// Default returns the built-in vocabulary.
func Default() *Vocabulary {
	return New(defaultEntries)
}

// New builds a vocabulary from canonical-name to alias-list entries. The
// canonical name itself is always included as an alias. Extra entries merge
// into (and override) nothing: duplicate surface forms keep their first
// canonical binding in sorted-canonical order, so construction is
// deterministic.
func New(entries map[string][]string) *Vocabulary {
	v := &Vocabulary{byKey: make(map[string]string)}

	canonicals := make([]string, 0, len(entries))
	for name := range entries {
		canonicals = append(canonicals, name)
	}
	sort.Strings(canonicals)

	for _, name := range canonicals {
		v.tools = append(v.tools, name)
		surfaces := append([]string{name}, entries[name]...)
		seen := make(map[string]bool, len(surfaces))
		for _, s := range surfaces {
			key := Fold(s)
			if key == "" || seen[key] {
				continue
			}
			seen[key] = true
			if _, taken := v.byKey[key]; taken {
				continue
			}
			v.byKey[key] = name
			v.aliases = append(v.aliases, Alias{Surface: strings.ToLower(s), Canonical: name})
		}
	}
	return v
}

// Merge returns a new vocabulary containing the receiver's entries plus the
// given extras (canonical name to alias list), for config-supplied tools.
func (v *Vocabulary) Merge(extra map[string][]string) *Vocabulary {
	combined := make(map[string][]string, len(v.tools)+len(extra))
	for _, a := range v.aliases {
		combined[a.Canonical] = append(combined[a.Canonical], a.Surface)
	}
	for name, surfaces := range extra {
		combined[name] = append(combined[name], surfaces...)
	}
	return New(combined)
}

// Normalize resolves a surface form to its canonical tool name. Matching is
// case-insensitive and punctuation-insensitive, so "Intercom.io" and
// "intercom" both resolve to "Intercom".
func (v *Vocabulary) Normalize(surface string) (string, bool) {
	name, ok := v.byKey[Fold(surface)]
	return name, ok
}

// Aliases returns every (surface, canonical) pair in deterministic order.
func (v *Vocabulary) Aliases() []Alias {
	return v.aliases
}

// Tools returns the canonical tool names in sorted order.
func (v *Vocabulary) Tools() []string {
	return v.tools
}

// Fold lowercases a surface form and collapses punctuation to single spaces,
// producing the lookup key used for alias matching.
func Fold(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	lastSpace := true
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		if unicode.IsLetter(r) || unicode.IsNumber(r) {
			b.WriteRune(r)
			lastSpace = false
			continue
		}
		if !lastSpace {
			b.WriteByte(' ')
			lastSpace = true
		}
	}
	return strings.TrimSpace(b.String())
}
