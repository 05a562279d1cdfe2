package extract

import (
	"html"
	"regexp"
	"strings"

	"github.com/raphaelgruber/askdocs-go/internal/models"
)

// Pre-compiled regular expressions for HTML parsing performance.
var (
	scriptTag     = regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`)
	styleTag      = regexp.MustCompile(`(?is)<style[^>]*>.*?</style>`)
	noscriptTag   = regexp.MustCompile(`(?is)<noscript[^>]*>.*?</noscript>`)
	headTag       = regexp.MustCompile(`(?is)<head[^>]*>.*?</head>`)
	svgTag        = regexp.MustCompile(`(?is)<svg[^>]*>.*?</svg>`)
	navTag        = regexp.MustCompile(`(?is)<nav[^>]*>.*?</nav>`)
	footerTag     = regexp.MustCompile(`(?is)<footer[^>]*>.*?</footer>`)
	htmlComments  = regexp.MustCompile(`(?s)<!--.*?-->`)
	headingTag    = regexp.MustCompile(`(?is)<h([1-6])[^>]*>(.*?)</h[1-6]>`)
	preCodeTag    = regexp.MustCompile(`(?is)<pre[^>]*>\s*(?:<code([^>]*)>)?(.*?)(?:</code>)?\s*</pre>`)
	codeClassAttr = regexp.MustCompile(`(?i)class="[^"]*(?:language|lang)-([a-zA-Z0-9+]+)[^"]*"`)
	blockClose    = regexp.MustCompile(`(?i)</(p|div|br|hr|li|tr|blockquote|table|section|article)>`)
	blockOpen     = regexp.MustCompile(`(?i)<(p|div|li|tr|blockquote|table|section|article)[^>]*>`)
	brTags        = regexp.MustCompile(`(?i)<br\s*/?>`)
	hrTags        = regexp.MustCompile(`(?i)<hr\s*/?>`)
	allTags       = regexp.MustCompile(`<[^>]+>`)
	multiSpaces   = regexp.MustCompile(`[ \t]+`)
	multiNewlines = regexp.MustCompile(`\n{3,}`)
)

// FromHTML converts an HTML page to Markdown and extracts sections from it.
func FromHTML(content string, page Page, opts Options) []models.Section {
	return FromMarkdown(HTMLToMarkdown(content), page, opts)
}

// HTMLToMarkdown reduces an HTML document to Markdown-shaped text:
// headings become #-prefixed lines, pre/code blocks become fenced code,
// everything else is stripped to plain text.
func HTMLToMarkdown(content string) string {
	content = scriptTag.ReplaceAllString(content, "")
	content = styleTag.ReplaceAllString(content, "")
	content = noscriptTag.ReplaceAllString(content, "")
	content = headTag.ReplaceAllString(content, "")
	content = svgTag.ReplaceAllString(content, "")
	content = navTag.ReplaceAllString(content, "")
	content = footerTag.ReplaceAllString(content, "")
	content = htmlComments.ReplaceAllString(content, "")

	// Code blocks first, before tag stripping eats their contents.
	content = preCodeTag.ReplaceAllStringFunc(content, func(m string) string {
		sub := preCodeTag.FindStringSubmatch(m)
		lang := ""
		if cm := codeClassAttr.FindStringSubmatch(sub[1]); len(cm) > 1 {
			lang = strings.ToLower(cm[1])
		}
		code := html.UnescapeString(allTags.ReplaceAllString(sub[2], ""))
		return "\n```" + lang + "\n" + strings.TrimRight(code, "\n") + "\n```\n"
	})

	content = headingTag.ReplaceAllStringFunc(content, func(m string) string {
		sub := headingTag.FindStringSubmatch(m)
		text := strings.TrimSpace(html.UnescapeString(allTags.ReplaceAllString(sub[2], "")))
		if text == "" {
			return "\n"
		}
		return "\n" + strings.Repeat("#", int(sub[1][0]-'0')) + " " + text + "\n"
	})

	content = blockOpen.ReplaceAllString(content, "\n")
	content = blockClose.ReplaceAllString(content, "\n")
	content = brTags.ReplaceAllString(content, "\n")
	content = hrTags.ReplaceAllString(content, "\n")

	// Protect fenced code from the remaining passes.
	parts := strings.Split(content, "```")
	for i := range parts {
		if i%2 == 1 {
			continue // inside a fence
		}
		p := allTags.ReplaceAllString(parts[i], "")
		p = html.UnescapeString(p)
		p = multiSpaces.ReplaceAllString(p, " ")
		lines := strings.Split(p, "\n")
		for j, line := range lines {
			lines[j] = strings.TrimSpace(line)
		}
		p = strings.Join(lines, "\n")
		parts[i] = multiNewlines.ReplaceAllString(p, "\n\n")
	}
	return strings.TrimSpace(strings.Join(parts, "```"))
}
