// Package crawler discovers and fetches documentation pages.
package crawler

import (
	"net/url"
	"sort"
	"strings"

	"github.com/raphaelgruber/askdocs-go/internal/models"
)

// Scope bounds a crawl to the root URL's origin and path prefix.
// A root path of "/" scopes to the whole origin.
type Scope struct {
	Origin     string // scheme://host
	PathPrefix string
	rootCrawl  bool
}

// NewScope derives the crawl scope from a normalized base URL.
func NewScope(baseURL string) (*Scope, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, err
	}
	prefix := u.Path
	if prefix == "" {
		prefix = "/"
	}
	return &Scope{
		Origin:     u.Scheme + "://" + u.Host,
		PathPrefix: prefix,
		rootCrawl:  prefix == "/",
	}, nil
}

// foreignLangSegments match path segments pointing at translated docs.
var foreignLangSegments = map[string]bool{
	"ja": true, "zh": true, "zh-cn": true, "zh-tw": true, "ko": true,
	"fr": true, "de": true, "es": true, "pt": true, "pt-br": true,
	"ru": true, "it": true, "pl": true, "tr": true, "vi": true,
	"id": true, "th": true, "ar": true, "he": true, "nl": true,
}

// nonDocSegments match pages that are part of a site but not its docs.
// Root crawls apply the full list; scoped crawls only the narrow subset,
// since an explicit path prefix already expresses the user's intent.
var nonDocSegments = map[string]bool{
	"blog": true, "pricing": true, "careers": true, "jobs": true,
	"about": true, "contact": true, "press": true, "customers": true,
	"newsletter": true, "events": true, "community": true,
}

var authLegalSegments = map[string]bool{
	"login": true, "signin": true, "signup": true, "register": true,
	"logout": true, "account": true, "legal": true, "privacy": true,
	"terms": true, "cookies": true,
}

// Allow reports whether a candidate URL belongs in the crawl: in scope,
// English, and documentation-shaped. The input should be normalized.
func (s *Scope) Allow(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	if u.Scheme+"://"+u.Host != s.Origin {
		return false
	}
	path := u.Path
	if path == "" {
		path = "/"
	}
	if !s.rootCrawl && path != s.PathPrefix && !strings.HasPrefix(path, s.PathPrefix+"/") {
		return false
	}

	for _, seg := range strings.Split(strings.Trim(strings.ToLower(path), "/"), "/") {
		if foreignLangSegments[seg] || authLegalSegments[seg] {
			return false
		}
		if s.rootCrawl && nonDocSegments[seg] {
			return false
		}
	}
	if lang := u.Query().Get("lang"); lang != "" && lang != "en" && !strings.HasPrefix(lang, "en-") {
		return false
	}
	return true
}

// pathDepth counts non-empty path segments.
func pathDepth(raw string) int {
	u, err := url.Parse(raw)
	if err != nil {
		return 0
	}
	depth := 0
	for _, seg := range strings.Split(u.Path, "/") {
		if seg != "" {
			depth++
		}
	}
	return depth
}

// finalizeURLs normalizes, dedupes, scope-filters, sorts (shallow paths
// first, then lexicographic) and caps a candidate list.
func finalizeURLs(candidates []string, scope *Scope, maxPages int) []string {
	seen := make(map[string]bool, len(candidates))
	var urls []string
	for _, c := range candidates {
		norm, err := models.NormalizeURL(c)
		if err != nil {
			continue
		}
		if seen[norm] || !scope.Allow(norm) {
			continue
		}
		seen[norm] = true
		urls = append(urls, norm)
	}
	sort.Slice(urls, func(i, j int) bool {
		di, dj := pathDepth(urls[i]), pathDepth(urls[j])
		if di != dj {
			return di < dj
		}
		return urls[i] < urls[j]
	})
	if maxPages > 0 && len(urls) > maxPages {
		urls = urls[:maxPages]
	}
	return urls
}
