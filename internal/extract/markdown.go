// Package extract turns crawled documentation pages into embeddable sections.
package extract

import (
	"bufio"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/raphaelgruber/askdocs-go/internal/models"
)

// Options bounds what counts as a usable code block.
type Options struct {
	MinCodeChars int
	MaxCodeChars int
}

// DefaultOptions returns the extraction defaults.
func DefaultOptions() Options {
	return Options{
		MinCodeChars: 15,
		MaxCodeChars: 2500,
	}
}

// Page identifies where extracted sections came from.
type Page struct {
	SourceURL string
	BaseURL   string
	DocName   string
}

var headingRegex = regexp.MustCompile(`^(#{1,6})\s+(.+)$`)

// FromMarkdown parses a Markdown page into sections, one per heading.
// Positions are assigned in page order, starting at 0.
func FromMarkdown(content string, page Page, opts Options) []models.Section {
	content = stripFrontmatter(content)

	var sections []models.Section

	scanner := bufio.NewScanner(strings.NewReader(content))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var heading string
	var level int
	var parents []string // heading text per level, index = level-1
	var prose strings.Builder
	var codeBlocks []codeBlock

	var inFence bool
	var fenceLang string
	var fenceBody strings.Builder

	position := 0

	flush := func() {
		s := buildSection(heading, parentOf(parents, level), level, prose.String(), codeBlocks, page, opts)
		if s != nil {
			s.Position = position
			position++
			sections = append(sections, *s)
		}
		prose.Reset()
		codeBlocks = nil
	}

	for scanner.Scan() {
		line := scanner.Text()

		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			if inFence {
				codeBlocks = append(codeBlocks, codeBlock{
					Lang: fenceLang,
					Code: strings.TrimRight(fenceBody.String(), "\n"),
				})
				fenceBody.Reset()
				inFence = false
			} else {
				inFence = true
				fenceLang = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), "```"))
			}
			continue
		}
		if inFence {
			fenceBody.WriteString(line)
			fenceBody.WriteString("\n")
			continue
		}

		if match := headingRegex.FindStringSubmatch(line); len(match) > 0 {
			flush()
			level = len(match[1])
			heading = strings.TrimSpace(match[2])
			for len(parents) < level {
				parents = append(parents, "")
			}
			parents = parents[:level]
			parents[level-1] = heading
			continue
		}

		prose.WriteString(line)
		prose.WriteString("\n")
	}

	// Unclosed fence at EOF still counts as a code block.
	if inFence {
		codeBlocks = append(codeBlocks, codeBlock{
			Lang: fenceLang,
			Code: strings.TrimRight(fenceBody.String(), "\n"),
		})
	}
	flush()

	return sections
}

type codeBlock struct {
	Lang string
	Code string
}

// parentOf returns the nearest enclosing heading above the given level.
func parentOf(parents []string, level int) string {
	for i := level - 2; i >= 0; i-- {
		if i < len(parents) && parents[i] != "" {
			return parents[i]
		}
	}
	return ""
}

// buildSection assembles one section from the accumulated prose and code
// blocks under a heading. Returns nil when there is nothing worth keeping.
func buildSection(heading, parent string, level int, prose string, blocks []codeBlock, page Page, opts Options) *models.Section {
	prose = strings.TrimSpace(prose)

	// Pick the first code block within the size bounds.
	var code, lang string
	for _, b := range blocks {
		if len(b.Code) >= opts.MinCodeChars && len(b.Code) <= opts.MaxCodeChars {
			code = b.Code
			lang = b.Lang
			break
		}
	}
	if lang == "" && code != "" {
		lang = guessLanguage(code)
	}

	if prose == "" && code == "" {
		return nil
	}

	anchor := heading
	if heading == "" {
		heading = "Overview"
		level = 1
	}
	if level == 0 {
		level = 1
	}

	category := categorize(heading, parent)
	important := isImportant(category, prose)

	// Code-free sections earn their place only as priority material or
	// substantial prose; the rest is usually nav and filler.
	if code == "" && !important {
		return nil
	}

	typ := models.SectionTypeSection
	switch {
	case code != "" && len(prose) < 100:
		typ = models.SectionTypeCode
	case code != "":
		typ = models.SectionTypeMixed
	}

	sourceURL := page.SourceURL
	if anchor != "" {
		if slug := models.Slugify(anchor); slug != "" {
			sourceURL += "#" + slug
		}
	}

	return &models.Section{
		Content:       fullText(heading, prose, code, lang),
		Type:          typ,
		Heading:       heading,
		ParentHeading: parent,
		Level:         level,
		CodeSnippet:   code,
		Language:      lang,
		SourceURL:     sourceURL,
		BaseURL:       page.BaseURL,
		DocName:       page.DocName,
		Category:      category,
		Important:     important,
	}
}

// fullText serializes a section back into self-contained text, heading
// and fenced code included, so the stored content reads on its own.
func fullText(heading, prose, code, lang string) string {
	var b strings.Builder
	b.WriteString(heading)
	if prose != "" {
		b.WriteString("\n\n")
		b.WriteString(prose)
	}
	if code != "" {
		b.WriteString("\n\n```")
		b.WriteString(lang)
		b.WriteString("\n")
		b.WriteString(code)
		b.WriteString("\n```")
	}
	return b.String()
}

// stripFrontmatter drops a leading YAML frontmatter block if present.
// The YAML is parsed only to confirm the block is real frontmatter and
// not a stray thematic break.
func stripFrontmatter(content string) string {
	if !strings.HasPrefix(content, "---\n") {
		return content
	}
	endIdx := strings.Index(content[4:], "\n---")
	if endIdx < 0 {
		return content
	}
	var fm map[string]any
	if err := yaml.Unmarshal([]byte(content[4:4+endIdx]), &fm); err != nil {
		return content
	}
	return strings.TrimPrefix(content[4+endIdx+4:], "\n")
}
