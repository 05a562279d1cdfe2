package crawler

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"
)

// ErrNoPages is returned when discovery finds nothing crawlable.
var ErrNoPages = errors.New("no pages found")

// minSitemapURLs is the sitemap yield below which discovery falls back
// to breadth-first link scraping.
const minSitemapURLs = 5

const maxSitemapNesting = 3

// sitemapPaths are probed in order, relative to the crawl scope.
var sitemapPaths = []string{
	"/sitemap.xml",
	"/sitemap_index.xml",
	"/sitemap.txt",
	"/docs/sitemap.xml",
	"/api/sitemap.xml",
	"/sitemap",
}

// Discoverer finds in-scope page URLs for a documentation site.
type Discoverer struct {
	client   *http.Client
	log      *slog.Logger
	maxPages int
	maxDepth int
}

// NewDiscoverer creates a Discoverer. A nil client gets a default with
// a conservative timeout.
func NewDiscoverer(client *http.Client, log *slog.Logger, maxPages, maxDepth int) *Discoverer {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	if log == nil {
		log = slog.Default()
	}
	return &Discoverer{client: client, log: log, maxPages: maxPages, maxDepth: maxDepth}
}

// Discover returns the ordered, capped list of in-scope page URLs for
// baseURL, trying sitemaps first and falling back to BFS link scraping.
// Returns ErrNoPages if nothing crawlable is found.
func (d *Discoverer) Discover(ctx context.Context, baseURL string) ([]string, error) {
	scope, err := NewScope(baseURL)
	if err != nil {
		return nil, fmt.Errorf("derive scope: %w", err)
	}

	candidates := d.fromSitemaps(ctx, scope)
	urls := finalizeURLs(candidates, scope, d.maxPages)
	if len(urls) >= minSitemapURLs {
		d.log.Info("discovery via sitemap", "base_url", baseURL, "pages", len(urls))
		return urls, nil
	}

	d.log.Info("sitemap yield too low, falling back to link crawl",
		"base_url", baseURL, "sitemap_pages", len(urls))

	candidates = append(candidates, d.fromLinks(ctx, baseURL, scope)...)
	urls = finalizeURLs(candidates, scope, d.maxPages)
	if len(urls) == 0 {
		return nil, ErrNoPages
	}
	return urls, nil
}

// fromSitemaps probes conventional sitemap locations under the scope.
func (d *Discoverer) fromSitemaps(ctx context.Context, scope *Scope) []string {
	var all []string
	for _, p := range sitemapPaths {
		loc := scope.Origin + p
		if !scope.rootCrawl {
			loc = scope.Origin + strings.TrimSuffix(scope.PathPrefix, "/") + p
		}
		urls, err := d.fetchSitemap(ctx, loc, 0)
		if err != nil {
			d.log.Debug("sitemap probe failed", "url", loc, "error", err)
			continue
		}
		all = append(all, urls...)
		if len(all) >= d.maxPages {
			break
		}
	}
	return all
}

type sitemapURLSet struct {
	URLs []struct {
		Loc string `xml:"loc"`
	} `xml:"url"`
}

type sitemapIndex struct {
	Sitemaps []struct {
		Loc string `xml:"loc"`
	} `xml:"sitemap"`
}

// fetchSitemap retrieves one sitemap, recursing into index files.
func (d *Discoverer) fetchSitemap(ctx context.Context, loc string, nesting int) ([]string, error) {
	if nesting > maxSitemapNesting {
		return nil, fmt.Errorf("sitemap nesting exceeds %d", maxSitemapNesting)
	}

	body, err := d.get(ctx, loc)
	if err != nil {
		return nil, err
	}

	trimmed := strings.TrimSpace(body)
	if !strings.HasPrefix(trimmed, "<") {
		return parseTextSitemap(trimmed), nil
	}

	if strings.Contains(trimmed, "<sitemapindex") {
		var idx sitemapIndex
		if err := xml.Unmarshal([]byte(trimmed), &idx); err != nil {
			return nil, fmt.Errorf("parse sitemap index: %w", err)
		}
		var all []string
		for _, sm := range idx.Sitemaps {
			nested, err := d.fetchSitemap(ctx, strings.TrimSpace(sm.Loc), nesting+1)
			if err != nil {
				d.log.Debug("nested sitemap failed", "url", sm.Loc, "error", err)
				continue
			}
			all = append(all, nested...)
		}
		return all, nil
	}

	var set sitemapURLSet
	if err := xml.Unmarshal([]byte(trimmed), &set); err != nil {
		return nil, fmt.Errorf("parse sitemap: %w", err)
	}
	urls := make([]string, 0, len(set.URLs))
	for _, u := range set.URLs {
		if loc := strings.TrimSpace(u.Loc); loc != "" {
			urls = append(urls, loc)
		}
	}
	return urls, nil
}

func parseTextSitemap(body string) []string {
	var urls []string
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "http://") || strings.HasPrefix(line, "https://") {
			urls = append(urls, line)
		}
	}
	return urls
}

var hrefRegex = regexp.MustCompile(`(?i)href\s*=\s*["']([^"'#]+)["']`)

// fromLinks crawls breadth-first from the base URL, collecting in-scope
// anchors up to maxDepth and maxPages.
func (d *Discoverer) fromLinks(ctx context.Context, baseURL string, scope *Scope) []string {
	type queued struct {
		url   string
		depth int
	}

	visited := map[string]bool{baseURL: true}
	queue := []queued{{baseURL, 0}}
	var found []string

	for len(queue) > 0 && len(found) < d.maxPages {
		item := queue[0]
		queue = queue[1:]

		body, err := d.get(ctx, item.url)
		if err != nil {
			d.log.Debug("link crawl fetch failed", "url", item.url, "error", err)
			continue
		}
		found = append(found, item.url)

		base, err := url.Parse(item.url)
		if err != nil {
			continue
		}
		for _, m := range hrefRegex.FindAllStringSubmatch(body, -1) {
			ref, err := url.Parse(strings.TrimSpace(m[1]))
			if err != nil {
				continue
			}
			abs := base.ResolveReference(ref).String()
			if visited[abs] || !scope.Allow(abs) {
				continue
			}
			visited[abs] = true
			if item.depth+1 <= d.maxDepth {
				queue = append(queue, queued{abs, item.depth + 1})
			}
		}
	}
	return found
}

func (d *Discoverer) get(ctx context.Context, rawURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", fallbackUserAgent)

	resp, err := d.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("GET %s: status %d", rawURL, resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return "", err
	}
	return string(body), nil
}
