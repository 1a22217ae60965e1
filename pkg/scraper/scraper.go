// Package scraper fetches tracked pages over HTTP and captures the raw
// markup snapshots the change detector compares.
package scraper

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/mchen/pagewatch/pkg/textdiff"
)

// FetchOptions configures the behavior of a Fetch call.
type FetchOptions struct {
	UserAgent  string            `yaml:"user_agent"`
	Timeout    time.Duration     `yaml:"timeout"`
	RetryCount int               `yaml:"retry_count"`
	Headers    map[string]string `yaml:"headers"`
}

// DefaultFetchOptions returns sensible defaults for fetching.
func DefaultFetchOptions() *FetchOptions {
	return &FetchOptions{
		UserAgent:  "PageWatch/1.0 (compatible; Bot; +https://github.com/mchen/pagewatch)",
		Timeout:    15 * time.Second,
		RetryCount: 2,
	}
}

// FetchResult holds one captured snapshot of a tracked page.
type FetchResult struct {
	URL        string        `json:"url"`
	StatusCode int           `json:"status_code"`
	RawHTML    string        `json:"raw_html"`
	CleanText  string        `json:"clean_text"`
	Title      string        `json:"title"`
	FetchedAt  time.Time     `json:"fetched_at"`
	Duration   time.Duration `json:"duration"`
}

// Fetcher defines the interface for fetching web content.
type Fetcher interface {
	Fetch(ctx context.Context, url string, opts *FetchOptions) (*FetchResult, error)
}

// HTTPFetcher implements Fetcher using standard HTTP.
type HTTPFetcher struct {
	client *http.Client
}

// NewHTTPFetcher creates a new HTTP-based fetcher.
func NewHTTPFetcher() *HTTPFetcher {
	return &HTTPFetcher{
		client: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// Fetch retrieves a URL and derives the normalized text the change metric
// compares. CleanText always comes from textdiff.ExtractText so every part
// of the system agrees on what the "visible text" of a page is.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string, opts *FetchOptions) (*FetchResult, error) {
	if opts == nil {
		opts = DefaultFetchOptions()
	}
	f.client.Timeout = opts.Timeout

	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", opts.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	for k, v := range opts.Headers {
		req.Header.Set(k, v)
	}

	var resp *http.Response
	var lastErr error
	for attempt := 0; attempt <= opts.RetryCount; attempt++ {
		resp, lastErr = f.client.Do(req)
		if lastErr == nil {
			break
		}
		if attempt < opts.RetryCount {
			time.Sleep(time.Duration(attempt+1) * time.Second)
		}
	}
	if lastErr != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, lastErr)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	rawHTML := string(body)
	return &FetchResult{
		URL:        url,
		StatusCode: resp.StatusCode,
		RawHTML:    rawHTML,
		CleanText:  textdiff.ExtractText(rawHTML),
		Title:      extractTitle(rawHTML),
		FetchedAt:  time.Now(),
		Duration:   time.Since(start),
	}, nil
}

// extractTitle pulls the <title> text out of a page, if any.
func extractTitle(htmlContent string) string {
	doc, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		return ""
	}
	return findTitle(doc)
}

func findTitle(n *html.Node) string {
	if n.Type == html.ElementNode && n.Data == "title" {
		if n.FirstChild != nil {
			return strings.TrimSpace(n.FirstChild.Data)
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if title := findTitle(c); title != "" {
			return title
		}
	}
	return ""
}
