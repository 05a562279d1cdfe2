package embedding

import (
	"regexp"
	"strings"

	"github.com/raphaelgruber/askdocs-go/internal/models"
)

// maxExcerptChars bounds the cleaned content excerpt in the embedding
// input. Compact inputs embed better than raw page dumps.
const maxExcerptChars = 300

var (
	mdLink      = regexp.MustCompile(`\[([^\]]*)\]\([^)]*\)`)
	fencedBlock = regexp.MustCompile("(?s)```[a-zA-Z0-9+]*\n?(.*?)```")
)

// BuildInput assembles the text that gets embedded for a section:
// heading context, a type-aware descriptor, and a cleaned excerpt.
func BuildInput(s *models.Section) string {
	var b strings.Builder

	if s.Heading != "" {
		b.WriteString(s.Heading)
		b.WriteString("\n")
	}
	if s.ParentHeading != "" && s.ParentHeading != s.Heading {
		b.WriteString(s.ParentHeading)
		b.WriteString("\n")
	}

	if s.HasCode() {
		b.WriteString("code example ")
		b.WriteString(s.Heading)
	} else {
		b.WriteString(strings.ToLower(s.Heading))
	}
	b.WriteString("\n")

	excerpt := CleanContent(s.Content)
	if excerpt == "" && s.HasCode() {
		excerpt = s.CodeSnippet
		if len(excerpt) > maxExcerptChars {
			excerpt = excerpt[:maxExcerptChars]
		}
	}
	b.WriteString(excerpt)

	return strings.TrimSpace(b.String())
}

// CleanContent strips markdown links down to their text, collapses
// fenced code blocks to their raw code, and truncates the result.
func CleanContent(content string) string {
	content = mdLink.ReplaceAllString(content, "$1")
	content = fencedBlock.ReplaceAllString(content, "$1")
	content = strings.TrimSpace(content)
	if len(content) > maxExcerptChars {
		content = content[:maxExcerptChars]
	}
	return content
}
