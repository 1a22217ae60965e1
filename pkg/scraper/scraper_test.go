package scraper

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestFetch_CapturesRawAndCleanText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><head><title>Status Page</title></head>` +
			`<body><script>var x = 1;</script><p>All systems operational</p></body></html>`))
	}))
	defer srv.Close()

	f := NewHTTPFetcher()
	res, err := f.Fetch(context.Background(), srv.URL, nil)
	if err != nil {
		t.Fatal(err)
	}

	if res.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", res.StatusCode)
	}
	if !strings.Contains(res.RawHTML, "<p>All systems operational</p>") {
		t.Fatalf("raw HTML not preserved: %s", res.RawHTML)
	}
	if strings.Contains(res.CleanText, "var x") {
		t.Fatalf("script content leaked into clean text: %s", res.CleanText)
	}
	if !strings.Contains(res.CleanText, "All systems operational") {
		t.Fatalf("expected visible text in clean text, got: %s", res.CleanText)
	}
	if res.Title != "Status Page" {
		t.Fatalf("expected title 'Status Page', got %q", res.Title)
	}
}

func TestFetch_CustomHeaders(t *testing.T) {
	var gotUA, gotCustom string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotCustom = r.Header.Get("X-Watch")
		w.Write([]byte("<p>ok</p>"))
	}))
	defer srv.Close()

	opts := DefaultFetchOptions()
	opts.Headers = map[string]string{"X-Watch": "1"}

	f := NewHTTPFetcher()
	if _, err := f.Fetch(context.Background(), srv.URL, opts); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(gotUA, "PageWatch") {
		t.Fatalf("expected PageWatch user agent, got %q", gotUA)
	}
	if gotCustom != "1" {
		t.Fatalf("custom header not sent, got %q", gotCustom)
	}
}

func TestExtractTitle(t *testing.T) {
	html := `<html><head><title>My Page Title</title></head><body></body></html>`
	title := extractTitle(html)
	if title != "My Page Title" {
		t.Errorf("expected 'My Page Title', got '%s'", title)
	}
}
