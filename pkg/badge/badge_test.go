package badge

import (
	"bytes"
	"testing"
)

func TestRender_ProducesPNG(t *testing.T) {
	r := NewRenderer()
	for _, status := range []Status{StatusChanged, StatusUnchanged, StatusError} {
		var buf bytes.Buffer
		if err := r.Render(&buf, "example.com", status, 42); err != nil {
			t.Fatalf("render %s: %v", status, err)
		}
		if !bytes.HasPrefix(buf.Bytes(), []byte("\x89PNG")) {
			t.Fatalf("missing PNG signature for %s", status)
		}
	}
}

func TestTruncateName(t *testing.T) {
	if got := truncateName("short"); got != "short" {
		t.Fatalf("unexpected truncation: %q", got)
	}
	if got := truncateName("a-very-long-target-name"); len([]rune(got)) != 14 {
		t.Fatalf("expected 14 runes, got %q", got)
	}
}
