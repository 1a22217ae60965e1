package tracker

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ValidateResult holds the result of URL validation.
type ValidateResult struct {
	URL   string // normalized URL
	Valid bool
	Error string
}

// ValidateURL normalizes and validates a target URL before it is stored.
// Reachability problems are soft failures: the target is still accepted and
// retried on the next scan, only malformed URLs are rejected outright.
func ValidateURL(ctx context.Context, rawURL string) ValidateResult {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return ValidateResult{Error: "URL must not be empty"}
	}

	if !strings.Contains(rawURL, "://") {
		rawURL = "https://" + rawURL
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return ValidateResult{Error: fmt.Sprintf("malformed URL: %v", err)}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ValidateResult{Error: fmt.Sprintf("unsupported scheme: %s (only http/https)", u.Scheme)}
	}
	if u.Host == "" {
		return ValidateResult{Error: "URL has no host"}
	}

	u.Fragment = ""
	if u.Path == "/" {
		u.Path = ""
	}
	normalized := u.String()

	host := u.Hostname()
	if _, err := net.LookupHost(host); err != nil {
		return ValidateResult{URL: normalized, Error: fmt.Sprintf("host does not resolve: %s", host)}
	}

	// Soft HTTP check. Many sites block HEAD, so fall back to GET before
	// giving up, and accept network errors since the host resolves.
	client := &http.Client{Timeout: 10 * time.Second}
	req, err := http.NewRequestWithContext(ctx, "HEAD", normalized, nil)
	if err != nil {
		return ValidateResult{URL: normalized, Valid: true, Error: fmt.Sprintf("request build failed: %v (added anyway)", err)}
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; PageWatch/1.0)")

	resp, err := client.Do(req)
	if err != nil {
		req.Method = "GET"
		resp, err = client.Do(req)
		if err != nil {
			return ValidateResult{URL: normalized, Valid: true, Error: "temporarily unreachable (added, will retry on scan)"}
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return ValidateResult{URL: normalized, Valid: true, Error: fmt.Sprintf("HTTP %d (added, check the URL)", resp.StatusCode)}
	}
	return ValidateResult{URL: normalized, Valid: true}
}

// ExtractDomain extracts the host from a URL, for display names.
func ExtractDomain(rawURL string) string {
	if !strings.Contains(rawURL, "://") {
		rawURL = "https://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	return u.Hostname()
}
