package extract

import (
	"strings"
	"testing"

	"github.com/raphaelgruber/askdocs-go/internal/models"
)

func TestHTMLToMarkdown(t *testing.T) {
	html := `<!DOCTYPE html>
<html>
<head><title>Docs</title><style>body { color: red; }</style></head>
<body>
<nav><a href="/">Home</a><a href="/docs">Docs</a></nav>
<h1>Installation</h1>
<p>Install the CLI with the command below to get started quickly.</p>
<pre><code class="language-bash">curl -fsSL https://example.com/install.sh | sh</code></pre>
<h2>Verify &amp; Run</h2>
<p>Check the installed version.</p>
<script>trackPageView();</script>
<footer>Copyright</footer>
</body>
</html>`

	md := HTMLToMarkdown(html)

	if strings.Contains(md, "color: red") || strings.Contains(md, "trackPageView") {
		t.Errorf("script/style leaked into output:\n%s", md)
	}
	if strings.Contains(md, "Home") || strings.Contains(md, "Copyright") {
		t.Errorf("nav/footer leaked into output:\n%s", md)
	}
	if !strings.Contains(md, "# Installation") {
		t.Errorf("missing h1 conversion:\n%s", md)
	}
	if !strings.Contains(md, "## Verify & Run") {
		t.Errorf("missing h2 conversion with entity decoding:\n%s", md)
	}
	if !strings.Contains(md, "```bash\ncurl -fsSL") {
		t.Errorf("missing fenced code conversion:\n%s", md)
	}
}

func TestFromHTML(t *testing.T) {
	html := `<h1>Quickstart</h1>
<p>Follow these steps to set up the client library in your project.</p>
<pre><code class="language-python">import example
client = example.Client()</code></pre>`

	sections := FromHTML(html, testPage, DefaultOptions())
	if len(sections) != 1 {
		t.Fatalf("got %d sections, want 1", len(sections))
	}
	s := sections[0]
	if s.Heading != "Quickstart" {
		t.Errorf("heading = %q", s.Heading)
	}
	if s.Language != "python" {
		t.Errorf("language = %q, want python", s.Language)
	}
	if s.Category != models.CategoryGuide {
		t.Errorf("category = %q, want guide", s.Category)
	}
	if !strings.Contains(s.CodeSnippet, "example.Client()") {
		t.Errorf("code = %q", s.CodeSnippet)
	}
}
