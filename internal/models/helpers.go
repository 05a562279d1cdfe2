// Package models defines data structures for the askdocs indexing pipeline.
package models

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// RecordIDString safely extracts the string ID from a SurrealDB RecordID.
// Returns an error if the ID is not a string type.
func RecordIDString(id surrealmodels.RecordID) (string, error) {
	s, ok := id.ID.(string)
	if !ok {
		return "", fmt.Errorf("unexpected ID type: %T (expected string)", id.ID)
	}
	return s, nil
}

// MustRecordIDString extracts the string ID, panicking if not a string.
// Use only when you're certain the ID is a string (e.g., after DB operations that return strings).
func MustRecordIDString(id surrealmodels.RecordID) string {
	s, err := RecordIDString(id)
	if err != nil {
		panic(err)
	}
	return s
}

var slugStrip = regexp.MustCompile(`[^a-z0-9\-:]`)

// Slugify normalizes a name for use in record IDs.
func Slugify(name string) string {
	s := strings.ToLower(name)
	s = strings.ReplaceAll(s, " ", "-")
	s = strings.ReplaceAll(s, "_", "-")
	return slugStrip.ReplaceAllString(s, "")
}

// trackingParams are query parameters stripped during URL normalization.
var trackingParams = map[string]bool{
	"utm_source":   true,
	"utm_medium":   true,
	"utm_campaign": true,
	"utm_term":     true,
	"utm_content":  true,
	"gclid":        true,
	"fbclid":       true,
	"ref":          true,
}

// NormalizeURL canonicalizes a documentation URL: lowercases scheme and
// host, drops the fragment and tracking query parameters, and strips the
// trailing slash except at the root path. Applying it twice yields the
// same result as applying it once.
func NormalizeURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("empty URL")
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parse URL %q: %w", raw, err)
	}
	if u.Host == "" {
		return "", fmt.Errorf("URL %q has no host", raw)
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""

	if u.RawQuery != "" {
		q := u.Query()
		for param := range q {
			if trackingParams[strings.ToLower(param)] {
				q.Del(param)
			}
		}
		u.RawQuery = q.Encode()
	}

	if u.Path != "/" {
		u.Path = strings.TrimSuffix(u.Path, "/")
	}
	if u.Path == "" {
		u.Path = "/"
	}
	return u.String(), nil
}

// genericLabels are hostname and path tokens too common to identify a doc.
var genericLabels = map[string]bool{
	"docs":       true,
	"doc":        true,
	"www":        true,
	"api":        true,
	"dev":        true,
	"developer":  true,
	"developers": true,
	"guide":      true,
	"guides":     true,
	"help":       true,
	"learn":      true,
}

// DocNameFromURL derives a short human-readable name for a documentation
// site from its URL, e.g. "https://docs.stripe.com/api" -> "stripe".
func DocNameFromURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return Slugify(raw)
	}
	host := strings.ToLower(u.Hostname())
	labels := strings.Split(host, ".")
	// Drop the TLD, then take the first non-generic label.
	if len(labels) > 1 {
		labels = labels[:len(labels)-1]
	}
	for _, l := range labels {
		if !genericLabels[l] && l != "" {
			return Slugify(l)
		}
	}
	// Host was all-generic; fall back to path segments.
	for _, seg := range strings.Split(strings.Trim(u.Path, "/"), "/") {
		if seg != "" && !genericLabels[seg] {
			return Slugify(seg)
		}
	}
	return Slugify(host)
}

// DocIdentifiers derives the match tokens used for query-target
// disambiguation: the domain's first meaningful label plus up to two
// leading path segments, filtered of generic terms.
func DocIdentifiers(raw string) []string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return nil
	}
	var ids []string
	seen := map[string]bool{}
	add := func(tok string) {
		tok = strings.ToLower(tok)
		if tok == "" || genericLabels[tok] || seen[tok] {
			return
		}
		seen[tok] = true
		ids = append(ids, tok)
	}
	host := strings.ToLower(u.Hostname())
	if labels := strings.Split(host, "."); len(labels) > 0 {
		add(labels[0])
		if genericLabels[labels[0]] && len(labels) > 1 {
			add(labels[1])
		}
	}
	segs := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i := 0; i < len(segs) && i < 2; i++ {
		add(segs[i])
	}
	return ids
}
