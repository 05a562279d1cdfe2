package extract

import (
	"regexp"
	"sort"
	"strings"

	"github.com/raphaelgruber/askdocs-go/internal/models"
)

// DefaultMaxSections caps how many sections survive per crawl.
const DefaultMaxSections = 500

// DefaultDedupKeyChars is the normalized content prefix length used as
// the duplicate detection key.
const DefaultDedupKeyChars = 160

var wsCollapse = regexp.MustCompile(`\s+`)

// Deduplicate enforces the section cap. Under the cap the input comes
// back untouched. Over it, sections are ranked (longer content first,
// priority categories break ties), near-duplicates are dropped by a
// normalized content-prefix key, and the survivors are returned in
// page order capped at maxSections.
func Deduplicate(sections []models.Section, maxSections, keyChars int) []models.Section {
	if maxSections <= 0 {
		maxSections = DefaultMaxSections
	}
	if keyChars <= 0 {
		keyChars = DefaultDedupKeyChars
	}
	if len(sections) <= maxSections {
		return sections
	}

	ranked := make([]models.Section, len(sections))
	copy(ranked, sections)
	sort.SliceStable(ranked, func(i, j int) bool {
		li, lj := len(ranked[i].Content), len(ranked[j].Content)
		if li != lj {
			return li > lj
		}
		pi, pj := priorityCategories[ranked[i].Category], priorityCategories[ranked[j].Category]
		if pi != pj {
			return pi
		}
		return false
	})

	seen := make(map[string]bool, maxSections)
	kept := make([]models.Section, 0, maxSections)
	for _, s := range ranked {
		key := dedupKey(&s, keyChars)
		if seen[key] {
			continue
		}
		seen[key] = true
		kept = append(kept, s)
		if len(kept) == maxSections {
			break
		}
	}

	// Restore page order so positions stay monotonic within each page.
	sort.SliceStable(kept, func(i, j int) bool {
		if kept[i].SourceURL != kept[j].SourceURL {
			return kept[i].SourceURL < kept[j].SourceURL
		}
		return kept[i].Position < kept[j].Position
	})
	return kept
}

// dedupKey normalizes a section's content to a compact comparable form:
// lowercased, whitespace collapsed, truncated prefix.
func dedupKey(s *models.Section, keyChars int) string {
	text := s.Content
	if text == "" {
		text = s.CodeSnippet
	}
	text = strings.ToLower(wsCollapse.ReplaceAllString(text, " "))
	text = strings.TrimSpace(text)
	if len(text) > keyChars {
		text = text[:keyChars]
	}
	return text
}
