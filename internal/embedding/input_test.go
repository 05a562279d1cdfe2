package embedding

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/raphaelgruber/askdocs-go/internal/models"
)

func TestBuildInputProse(t *testing.T) {
	s := &models.Section{
		Heading:       "Configuration",
		ParentHeading: "Getting Started",
		Content:       "Set the [API key](https://example.com/keys) in your environment.",
	}
	in := BuildInput(s)

	assert.Contains(t, in, "Configuration")
	assert.Contains(t, in, "Getting Started")
	assert.Contains(t, in, "configuration", "prose sections get a lowercased descriptor")
	assert.Contains(t, in, "Set the API key in your environment.")
	assert.NotContains(t, in, "https://example.com/keys", "link targets are stripped")
}

func TestBuildInputCode(t *testing.T) {
	s := &models.Section{
		Heading:     "Install",
		CodeSnippet: "npm install example",
		Type:        models.SectionTypeCode,
	}
	in := BuildInput(s)

	assert.Contains(t, in, "code example Install")
	assert.Contains(t, in, "npm install example", "code-only sections fall back to the snippet")
}

func TestCleanContentCollapsesFences(t *testing.T) {
	got := CleanContent("Run this:\n```bash\necho hi\n```\ndone")
	assert.Contains(t, got, "echo hi")
	assert.NotContains(t, got, "```")
}

func TestCleanContentTruncates(t *testing.T) {
	got := CleanContent(strings.Repeat("a", 1000))
	assert.Len(t, got, maxExcerptChars)
}
