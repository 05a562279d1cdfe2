package crawler

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScopeAllow(t *testing.T) {
	scoped, err := NewScope("https://docs.example.com/docs")
	require.NoError(t, err)

	tests := []struct {
		name string
		url  string
		want bool
	}{
		{"in scope", "https://docs.example.com/docs/install", true},
		{"scope root itself", "https://docs.example.com/docs", true},
		{"outside prefix", "https://docs.example.com/blog/post", false},
		{"prefix is not a segment match", "https://docs.example.com/docsother", false},
		{"other origin", "https://other.example.com/docs/install", false},
		{"foreign language segment", "https://docs.example.com/docs/ja/install", false},
		{"auth page", "https://docs.example.com/docs/login", false},
		{"non-english lang param", "https://docs.example.com/docs/install?lang=fr", false},
		{"english lang param", "https://docs.example.com/docs/install?lang=en", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, scoped.Allow(tt.url))
		})
	}

	root, err := NewScope("https://docs.example.com/")
	require.NoError(t, err)
	assert.True(t, root.Allow("https://docs.example.com/anything/here"))
	assert.False(t, root.Allow("https://docs.example.com/blog/post"), "root crawls exclude marketing pages")
	assert.False(t, root.Allow("https://docs.example.com/pricing"))
}

func TestDiscoverViaSitemap(t *testing.T) {
	var srv *httptest.Server
	mux := http.NewServeMux()
	mux.HandleFunc("/sitemap.xml", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `<?xml version="1.0"?>
<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <url><loc>%[1]s/guide</loc></url>
  <url><loc>%[1]s/guide/install</loc></url>
  <url><loc>%[1]s/guide/config</loc></url>
  <url><loc>%[1]s/api</loc></url>
  <url><loc>%[1]s/api/client</loc></url>
  <url><loc>%[1]s/blog/roadmap</loc></url>
  <url><loc>%[1]s/ja/guide</loc></url>
</urlset>`, srv.URL)
	})
	srv = httptest.NewServer(mux)
	defer srv.Close()

	d := NewDiscoverer(srv.Client(), nil, 50, 3)
	urls, err := d.Discover(context.Background(), srv.URL+"/")
	require.NoError(t, err)

	assert.Len(t, urls, 5, "blog and translated pages filtered out")
	for _, u := range urls {
		assert.False(t, strings.Contains(u, "/blog/"))
		assert.False(t, strings.Contains(u, "/ja/"))
	}
	// Shallow paths sort first.
	assert.Equal(t, srv.URL+"/api", urls[0])
}

func TestDiscoverSitemapIndex(t *testing.T) {
	var srv *httptest.Server
	mux := http.NewServeMux()
	mux.HandleFunc("/sitemap.xml", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `<sitemapindex xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <sitemap><loc>%[1]s/sitemap-docs.xml</loc></sitemap>
</sitemapindex>`, srv.URL)
	})
	mux.HandleFunc("/sitemap-docs.xml", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `<urlset>
  <url><loc>%[1]s/a</loc></url>
  <url><loc>%[1]s/b</loc></url>
  <url><loc>%[1]s/c</loc></url>
  <url><loc>%[1]s/d</loc></url>
  <url><loc>%[1]s/e</loc></url>
</urlset>`, srv.URL)
	})
	srv = httptest.NewServer(mux)
	defer srv.Close()

	d := NewDiscoverer(srv.Client(), nil, 50, 3)
	urls, err := d.Discover(context.Background(), srv.URL+"/")
	require.NoError(t, err)
	assert.Len(t, urls, 5)
}

func TestDiscoverTextSitemap(t *testing.T) {
	var srv *httptest.Server
	mux := http.NewServeMux()
	mux.HandleFunc("/sitemap.txt", func(w http.ResponseWriter, r *http.Request) {
		for _, p := range []string{"/a", "/b", "/c", "/d", "/e"} {
			fmt.Fprintln(w, srv.URL+p)
		}
	})
	srv = httptest.NewServer(mux)
	defer srv.Close()

	d := NewDiscoverer(srv.Client(), nil, 50, 3)
	urls, err := d.Discover(context.Background(), srv.URL+"/")
	require.NoError(t, err)
	assert.Len(t, urls, 5)
}

func TestDiscoverFallbackToLinks(t *testing.T) {
	var srv *httptest.Server
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/":
			fmt.Fprintf(w, `<html><body>
<a href="/install">Install</a>
<a href="/guide">Guide</a>
<a href="https://elsewhere.example.com/off-origin">Off</a>
</body></html>`)
		case "/install":
			fmt.Fprintf(w, `<html><body><a href="/install/linux">Linux</a></body></html>`)
		default:
			fmt.Fprintf(w, `<html><body>page</body></html>`)
		}
	})
	srv = httptest.NewServer(mux)
	defer srv.Close()

	d := NewDiscoverer(srv.Client(), nil, 50, 3)
	urls, err := d.Discover(context.Background(), srv.URL+"/")
	require.NoError(t, err)

	assert.Contains(t, urls, srv.URL+"/install")
	assert.Contains(t, urls, srv.URL+"/guide")
	assert.Contains(t, urls, srv.URL+"/install/linux")
	for _, u := range urls {
		assert.True(t, strings.HasPrefix(u, srv.URL) || u == srv.URL+"/", "out of scope: %s", u)
	}
}

func TestDiscoverNoPages(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	d := NewDiscoverer(srv.Client(), nil, 50, 3)
	_, err := d.Discover(context.Background(), srv.URL+"/")
	assert.ErrorIs(t, err, ErrNoPages)
}

func TestDiscoverRespectsPageCap(t *testing.T) {
	var srv *httptest.Server
	mux := http.NewServeMux()
	mux.HandleFunc("/sitemap.xml", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<urlset>`)
		for i := 0; i < 100; i++ {
			fmt.Fprintf(w, `<url><loc>%s/page-%03d</loc></url>`, srv.URL, i)
		}
		fmt.Fprint(w, `</urlset>`)
	})
	srv = httptest.NewServer(mux)
	defer srv.Close()

	d := NewDiscoverer(srv.Client(), nil, 10, 3)
	urls, err := d.Discover(context.Background(), srv.URL+"/")
	require.NoError(t, err)
	assert.Len(t, urls, 10)
}