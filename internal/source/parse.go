package source

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	countPattern = regexp.MustCompile(`(\d{1,3}(?:,\d{3})*|\d+)\+?\s*employees`)
	rangePattern = regexp.MustCompile(`(\d{1,3}(?:,\d{3})*)\s*-\s*(\d{1,3}(?:,\d{3})*)\s*employees`)
	yearPattern  = regexp.MustCompile(`(?:founded|established|since)\s*(?:in\s*)?((?:19|20)\d{2})`)
)

// skipPatterns mark search results that are never a usable company or
// profile page: job boards, listicles, login walls, and media sites that
// show up for "uses X" queries.
var skipPatterns = []string{
	"/jobs",
	"/careers",
	"/login",
	"/signup",
	"/pulse/",
	"/posts/",
	"linkedin.com/learning",
	"youtube.com",
	"reddit.com",
	"quora.com",
	"pinterest.",
	"facebook.com",
	"glassdoor.",
	"indeed.com",
	"wikipedia.org",
	"medium.com/tag",
	"top 10",
	"best alternatives",
	"vs ",
}

// skippable reports whether a search result is noise rather than a
// candidate. title is matched lowercased, url as-is.
func skippable(link, title string) bool {
	lower := strings.ToLower(title)
	for _, p := range skipPatterns {
		if strings.Contains(link, p) || strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

// employeeCount extracts a headcount from free text. Range phrasings like
// "51-200 employees" return the range string and its midpoint.
func employeeCount(text string) (count int, rangeStr string) {
	lower := strings.ToLower(text)
	if m := rangePattern.FindStringSubmatch(lower); m != nil {
		lo := parseCommaInt(m[1])
		hi := parseCommaInt(m[2])
		if lo > 0 && hi >= lo {
			return (lo + hi) / 2, m[1] + "-" + m[2]
		}
	}
	if m := countPattern.FindStringSubmatch(lower); m != nil {
		return parseCommaInt(m[1]), ""
	}
	return 0, ""
}

// foundedYear extracts a founding year from free text, or "".
func foundedYear(text string) string {
	if m := yearPattern.FindStringSubmatch(strings.ToLower(text)); m != nil {
		return m[1]
	}
	return ""
}

func parseCommaInt(s string) int {
	n, _ := strconv.Atoi(strings.ReplaceAll(s, ",", ""))
	return n
}

// nameFromSlug recovers a display name from a URL slug like
// "acme-corp-12345" or "jane-doe-b2a61049".
func nameFromSlug(slug string) string {
	slug = strings.Trim(slug, "/")
	if idx := strings.LastIndex(slug, "/"); idx >= 0 {
		slug = slug[idx+1:]
	}
	parts := strings.Split(slug, "-")
	var words []string
	for _, p := range parts {
		if p == "" || isSlugNoise(p) {
			continue
		}
		words = append(words, strings.ToUpper(p[:1])+p[1:])
	}
	return strings.Join(words, " ")
}

// isSlugNoise reports whether a slug segment is an ID suffix rather than
// part of the name: pure digits, or hex-looking runs of 6+ characters.
func isSlugNoise(s string) bool {
	digits := 0
	hexOnly := true
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case r >= 'a' && r <= 'f':
		default:
			hexOnly = false
		}
	}
	if digits == len(s) {
		return true
	}
	return hexOnly && digits > 0 && len(s) >= 6
}

// splitPersonTitle parses LinkedIn-style result titles of the form
// "Jane Doe - Head of Support - Acme | LinkedIn".
func splitPersonTitle(title string) (name, role, company string) {
	title = strings.TrimSuffix(title, "| LinkedIn")
	title = strings.TrimSuffix(strings.TrimSpace(title), "- LinkedIn")
	parts := strings.Split(title, " - ")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	switch len(parts) {
	case 0:
		return "", "", ""
	case 1:
		return parts[0], "", ""
	case 2:
		return parts[0], parts[1], ""
	default:
		return parts[0], parts[1], strings.Join(parts[2:], " - ")
	}
}

// companyFromTitle strips marketing suffixes from a search result title,
// keeping the part before the first separator.
func companyFromTitle(title string) string {
	for _, sep := range []string{" | ", " - ", " – ", ": "} {
		if idx := strings.Index(title, sep); idx > 0 {
			return strings.TrimSpace(title[:idx])
		}
	}
	return strings.TrimSpace(title)
}

// isProfileURL reports whether link points at an individual profile page.
func isProfileURL(link string) bool {
	return strings.Contains(link, "linkedin.com/in/")
}

// isCompanyPageURL reports whether link points at a company page on a
// professional network.
func isCompanyPageURL(link string) bool {
	return strings.Contains(link, "linkedin.com/company/")
}
