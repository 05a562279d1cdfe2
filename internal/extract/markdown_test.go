package extract

import (
	"strings"
	"testing"

	"github.com/raphaelgruber/askdocs-go/internal/models"
)

var testPage = Page{
	SourceURL: "https://docs.example.com/guide",
	BaseURL:   "https://docs.example.com/",
	DocName:   "example",
}

func TestFromMarkdownBasic(t *testing.T) {
	md := `# Getting Started

Welcome to the project. This guide walks you through the basics.

## Installation

Install the package with your package manager of choice.

` + "```bash\nnpm install example-pkg --save\n```" + `

## Usage

Import the module and call the main entry point to get going.
`

	sections := FromMarkdown(md, testPage, DefaultOptions())
	if len(sections) != 3 {
		t.Fatalf("got %d sections, want 3", len(sections))
	}

	install := sections[1]
	if install.Heading != "Installation" {
		t.Errorf("heading = %q, want Installation", install.Heading)
	}
	if install.SourceURL != "https://docs.example.com/guide#installation" {
		t.Errorf("source url = %q, want heading anchor", install.SourceURL)
	}
	if install.ParentHeading != "Getting Started" {
		t.Errorf("parent = %q, want Getting Started", install.ParentHeading)
	}
	if install.Level != 2 {
		t.Errorf("level = %d, want 2", install.Level)
	}
	if install.CodeSnippet != "npm install example-pkg --save" {
		t.Errorf("code = %q", install.CodeSnippet)
	}
	if install.Language != "bash" {
		t.Errorf("language = %q, want bash", install.Language)
	}
	if install.Type != models.SectionTypeCode {
		t.Errorf("type = %q, want code (short prose + code block)", install.Type)
	}
	if install.Category != models.CategoryInstallation {
		t.Errorf("category = %q, want installation", install.Category)
	}
}

func TestFromMarkdownPositions(t *testing.T) {
	filler := strings.Repeat("Enough explanatory text to make this section substantial. ", 6)
	md := "# A\n\n" + filler + "\n\n## B\n\n" + filler + "\n\n## C\n\n" + filler + "\n"
	sections := FromMarkdown(md, testPage, DefaultOptions())
	if len(sections) < 2 {
		t.Fatalf("got %d sections, want at least 2", len(sections))
	}
	for i := 1; i < len(sections); i++ {
		if sections[i].Position <= sections[i-1].Position {
			t.Errorf("position %d not after %d", sections[i].Position, sections[i-1].Position)
		}
	}
}

func TestFromMarkdownMixedType(t *testing.T) {
	prose := strings.Repeat("This section explains the API in detail. ", 5)
	md := "## API Reference\n\n" + prose + "\n\n```go\nfunc Do(ctx context.Context) error {\n\treturn nil\n}\n```\n"

	sections := FromMarkdown(md, testPage, DefaultOptions())
	if len(sections) != 1 {
		t.Fatalf("got %d sections, want 1", len(sections))
	}
	if sections[0].Type != models.SectionTypeMixed {
		t.Errorf("type = %q, want mixed", sections[0].Type)
	}
	if sections[0].Language != "go" {
		t.Errorf("language = %q, want go", sections[0].Language)
	}
}

func TestFromMarkdownCodeBounds(t *testing.T) {
	tiny := "## Example\n\nAn example follows right here.\n\n```\nx=1\n```\n"
	sections := FromMarkdown(tiny, testPage, DefaultOptions())
	if len(sections) != 1 {
		t.Fatalf("got %d sections, want 1", len(sections))
	}
	if sections[0].CodeSnippet != "" {
		t.Errorf("code below minimum length kept: %q", sections[0].CodeSnippet)
	}

	huge := "## Example\n\nAnother example follows.\n\n```\n" + strings.Repeat("x", 3000) + "\n```\n"
	sections = FromMarkdown(huge, testPage, DefaultOptions())
	if len(sections) != 1 {
		t.Fatalf("got %d sections, want 1", len(sections))
	}
	if sections[0].CodeSnippet != "" {
		t.Error("code above maximum length kept")
	}
}

func TestFromMarkdownFrontmatter(t *testing.T) {
	md := "---\ntitle: My Page\ntags: [a, b]\n---\n\n# Getting Started\n\nContent after the frontmatter block stays intact.\n"
	sections := FromMarkdown(md, testPage, DefaultOptions())
	if len(sections) != 1 {
		t.Fatalf("got %d sections, want 1", len(sections))
	}
	if strings.Contains(sections[0].Content, "title:") {
		t.Error("frontmatter leaked into section content")
	}
}

func TestFromMarkdownSkipsEmptyPreamble(t *testing.T) {
	body := strings.Repeat("Actual documentation content lives here in this section. ", 6)
	md := "Home\n\n# Real Section\n\n" + body + "\n"
	sections := FromMarkdown(md, testPage, DefaultOptions())
	if len(sections) != 1 {
		t.Fatalf("got %d sections, want 1 (preamble dropped)", len(sections))
	}
	if sections[0].Heading != "Real Section" {
		t.Errorf("heading = %q", sections[0].Heading)
	}
}

func TestFromMarkdownHeadingInsideFenceIgnored(t *testing.T) {
	md := "## Shell\n\nRun the script shown below to get started with the tool.\n\n```bash\n# not a heading\necho hello world\n```\n"
	sections := FromMarkdown(md, testPage, DefaultOptions())
	if len(sections) != 1 {
		t.Fatalf("got %d sections, want 1", len(sections))
	}
	if !strings.Contains(sections[0].CodeSnippet, "# not a heading") {
		t.Errorf("fence content mangled: %q", sections[0].CodeSnippet)
	}
}

func TestFromMarkdownDropsUnimportantProse(t *testing.T) {
	md := "## Miscellaneous\n\nTiny filler sentence.\n"
	sections := FromMarkdown(md, testPage, DefaultOptions())
	if len(sections) != 0 {
		t.Fatalf("got %d sections, want 0 (short code-free general section)", len(sections))
	}

	// Priority category keeps even short prose.
	md = "## Installation\n\nTiny filler sentence.\n"
	sections = FromMarkdown(md, testPage, DefaultOptions())
	if len(sections) != 1 {
		t.Fatalf("got %d sections, want 1 (installation is priority)", len(sections))
	}

	// Long prose keeps a general section.
	md = "## Miscellaneous\n\n" + strings.Repeat("Plenty of detail in this paragraph. ", 10) + "\n"
	sections = FromMarkdown(md, testPage, DefaultOptions())
	if len(sections) != 1 {
		t.Fatalf("got %d sections, want 1 (long prose is important)", len(sections))
	}
}

func TestFromMarkdownContentIsFullText(t *testing.T) {
	md := "## Installation\n\nInstall the package first.\n\n```bash\nnpm install example-pkg --save\n```\n"
	sections := FromMarkdown(md, testPage, DefaultOptions())
	if len(sections) != 1 {
		t.Fatalf("got %d sections, want 1", len(sections))
	}

	content := sections[0].Content
	for _, part := range []string{"Installation", "Install the package first.", "```bash\nnpm install example-pkg --save\n```"} {
		if !strings.Contains(content, part) {
			t.Errorf("content missing %q:\n%s", part, content)
		}
	}
}

func TestFromMarkdownAnchoredSourceURL(t *testing.T) {
	md := "## Getting Started\n\nA quick tour of the basics to orient new users of the project.\n"
	sections := FromMarkdown(md, testPage, DefaultOptions())
	if len(sections) != 1 {
		t.Fatalf("got %d sections, want 1", len(sections))
	}
	want := testPage.SourceURL + "#getting-started"
	if sections[0].SourceURL != want {
		t.Errorf("source url = %q, want %q", sections[0].SourceURL, want)
	}
}

func TestGuessLanguage(t *testing.T) {
	tests := []struct {
		name string
		code string
		want string
	}{
		{"shebang", "#!/bin/sh\necho hi", "bash"},
		{"npm", "npm install left-pad", "bash"},
		{"go", "func main() {\n\tx := 1\n}", "go"},
		{"python", "def main():\n    pass", "python"},
		{"javascript", "const x = () => 1", "javascript"},
		{"typescript", "interface User {\n  name: string\n}", "typescript"},
		{"curl", "curl -X POST https://api.example.com/v1", "bash"},
		{"html", "<div class=\"hero\">Welcome</div>", "html"},
		{"json", `{"key": "value"}`, "json"},
		{"sql", "SELECT * FROM users WHERE id = 1", "sql"},
		{"unknown", "some plain text", "text"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := guessLanguage(tt.code); got != tt.want {
				t.Errorf("guessLanguage(%q) = %q, want %q", tt.code, got, tt.want)
			}
		})
	}
}
