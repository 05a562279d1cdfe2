package crawler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const fallbackUserAgent = "Mozilla/5.0 (compatible; DocumentationCrawler/1.0)"

// ContentType tags what representation a fetch produced.
type ContentType string

const (
	ContentMarkdown ContentType = "markdown"
	ContentHTML     ContentType = "html"
)

// FetchResult is one successfully fetched page.
type FetchResult struct {
	Content     string
	ContentType ContentType
	Fallback    bool // true when the direct GET path was used
}

// errPoolExhausted signals that every extraction-service key hit its
// rate limit for this job.
var errPoolExhausted = errors.New("extraction service key pool exhausted")

// keyPool rotates extraction-service API keys, retiring ones that hit
// a rate limit for the remainder of the job.
type keyPool struct {
	mu        sync.Mutex
	keys      []string
	exhausted []bool
	uses      []int
	next      int
}

func newKeyPool(keys []string) *keyPool {
	return &keyPool{
		keys:      keys,
		exhausted: make([]bool, len(keys)),
		uses:      make([]int, len(keys)),
	}
}

// get returns the next live key and its index, or errPoolExhausted.
func (p *keyPool) get() (string, int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for range p.keys {
		i := p.next
		p.next = (p.next + 1) % len(p.keys)
		if !p.exhausted[i] {
			p.uses[i]++
			return p.keys[i], i, nil
		}
	}
	return "", 0, errPoolExhausted
}

func (p *keyPool) markExhausted(i int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.exhausted[i] = true
}

// KeyUsage reports how often one extraction-service key was handed out
// and whether it ended the job rate limited.
type KeyUsage struct {
	Index     int
	Uses      int
	Exhausted bool
}

func (p *keyPool) usage() []KeyUsage {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]KeyUsage, len(p.keys))
	for i := range p.keys {
		out[i] = KeyUsage{Index: i, Uses: p.uses[i], Exhausted: p.exhausted[i]}
	}
	return out
}

func (p *keyPool) live() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, ex := range p.exhausted {
		if !ex {
			n++
		}
	}
	return n
}

// Fetcher retrieves page content, preferring a hosted extraction
// service that returns clean Markdown and falling back to a direct GET.
type Fetcher struct {
	client     *http.Client
	log        *slog.Logger
	pool       *keyPool
	serviceURL string
	limiter    *rate.Limiter
}

// NewFetcher creates a Fetcher. With no API keys every fetch goes
// through the direct GET path.
func NewFetcher(client *http.Client, log *slog.Logger, serviceURL string, apiKeys []string, rps float64) *Fetcher {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if log == nil {
		log = slog.Default()
	}
	if rps <= 0 {
		rps = 2
	}
	return &Fetcher{
		client:     client,
		log:        log,
		pool:       newKeyPool(apiKeys),
		serviceURL: serviceURL,
		limiter:    rate.NewLimiter(rate.Limit(rps), 1),
	}
}

// FetchPage retrieves one page. Rate-limited keys are rotated out and
// the direct GET path is the terminal fallback; only a failure of both
// paths returns an error, which callers should treat as skip-the-page.
func (f *Fetcher) FetchPage(ctx context.Context, pageURL string) (*FetchResult, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	for f.pool.live() > 0 {
		key, idx, err := f.pool.get()
		if err != nil {
			break
		}
		md, err := f.fetchService(ctx, pageURL, key)
		if err == nil {
			return &FetchResult{Content: md, ContentType: ContentMarkdown}, nil
		}
		if errors.Is(err, errRateLimited) {
			f.log.Warn("extraction service key rate limited, rotating",
				"key_index", idx, "remaining", f.pool.live()-1)
			f.pool.markExhausted(idx)
			continue
		}
		f.log.Debug("extraction service failed, using fallback fetch",
			"url", pageURL, "error", err)
		break
	}

	return f.fetchDirect(ctx, pageURL)
}

// Usage returns the per-key call counts accumulated so far. Empty when
// the fetcher was built without API keys.
func (f *Fetcher) Usage() []KeyUsage {
	return f.pool.usage()
}

var errRateLimited = errors.New("rate limited")

type scrapeRequest struct {
	URL     string   `json:"url"`
	Formats []string `json:"formats"`
}

type scrapeResponse struct {
	Success bool `json:"success"`
	Data    struct {
		Markdown string `json:"markdown"`
	} `json:"data"`
	Error string `json:"error,omitempty"`
}

func (f *Fetcher) fetchService(ctx context.Context, pageURL, apiKey string) (string, error) {
	payload, err := json.Marshal(scrapeRequest{URL: pageURL, Formats: []string{"markdown"}})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		f.serviceURL+"/v1/scrape", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := f.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return "", errRateLimited
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("scrape %s: status %d", pageURL, resp.StatusCode)
	}

	var sr scrapeResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return "", fmt.Errorf("decode scrape response: %w", err)
	}
	if !sr.Success || sr.Data.Markdown == "" {
		return "", fmt.Errorf("scrape %s: empty result (%s)", pageURL, sr.Error)
	}
	return sr.Data.Markdown, nil
}

func (f *Fetcher) fetchDirect(ctx context.Context, pageURL string) (*FetchResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", fallbackUserAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("GET %s: status %d", pageURL, resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return nil, err
	}
	if len(body) == 0 {
		return nil, fmt.Errorf("GET %s: empty body", pageURL)
	}
	return &FetchResult{Content: string(body), ContentType: ContentHTML, Fallback: true}, nil
}
