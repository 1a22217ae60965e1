package textdiff

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestTokenize(t *testing.T) {
	got := tokenize("<p>Hello  world</p>")
	want := []token{
		{tokenTag, "<p>"},
		{tokenWord, "Hello"},
		{tokenWhitespace, "  "},
		{tokenWord, "world"},
		{tokenTag, "</p>"},
	}
	if diff := cmp.Diff(want, got, cmp.AllowUnexported(token{})); diff != "" {
		t.Fatalf("token mismatch (-want +got):\n%s", diff)
	}
}

func TestTokenize_LosslessOnWellFormedInput(t *testing.T) {
	in := "<div class=\"x\">some text,\n\twith <b>bold</b> words </div>"
	var sb strings.Builder
	for _, tok := range tokenize(in) {
		sb.WriteString(tok.text)
	}
	if sb.String() != in {
		t.Fatalf("token concatenation differs from input:\n%q\n%q", sb.String(), in)
	}
}

func TestTokenize_DropsStrayBracket(t *testing.T) {
	// A '<' that never closes matches no token class and is dropped.
	got := tokenize("a < b")
	want := []token{
		{tokenWord, "a"},
		{tokenWhitespace, " "},
		{tokenWhitespace, " "},
		{tokenWord, "b"},
	}
	if diff := cmp.Diff(want, got, cmp.AllowUnexported(token{})); diff != "" {
		t.Fatalf("token mismatch (-want +got):\n%s", diff)
	}
}

func TestHighlightChanges_EdgeCases(t *testing.T) {
	if got := HighlightChanges("", "<p>new</p>", "#ffff66"); got != "<p>new</p>" {
		t.Fatalf("empty old should pass through new markup, got %q", got)
	}
	if got := HighlightChanges("<p>old</p>", "", "#ffff66"); got != "" {
		t.Fatalf("empty new should yield empty string, got %q", got)
	}
	same := "<p>identical</p>"
	if got := HighlightChanges(same, same, "#ffff66"); got != same {
		t.Fatalf("identical markup should pass through, got %q", got)
	}
}

func TestHighlightChanges_AddedWord(t *testing.T) {
	got := HighlightChanges("<p>Hello</p>", "<p>Hello world</p>", "#ffff66")

	for _, want := range []string{"world", "background-color: #ffff66", "<p>", "</p>"} {
		if !strings.Contains(got, want) {
			t.Fatalf("output missing %q:\n%s", want, got)
		}
	}
	want := `<p>Hello <span style="background-color: #ffff66">world</span></p>`
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestHighlightChanges_RunCoalescing(t *testing.T) {
	got := HighlightChanges("<p>a</p>", "<p>a brand new thing</p>", "#ffff66")
	// Consecutive added words each sit in their own span because whitespace
	// closes the wrapper; no span may swallow the separating space.
	if n := strings.Count(got, "<span"); n != 3 {
		t.Fatalf("expected 3 spans, got %d:\n%s", n, got)
	}
	if strings.Contains(got, "brand new") {
		t.Fatalf("span swallowed whitespace between added words:\n%s", got)
	}
}

func TestHighlightChanges_SpanNeverCrossesTag(t *testing.T) {
	got := HighlightChanges("<p>keep</p>", "<p>added<b>inner</b>tail</p>", "#ffcc00")

	// Every opened span closes before the next tag token.
	for rest := got; ; {
		i := strings.Index(rest, "<span")
		if i < 0 {
			break
		}
		rest = rest[i:]
		end := strings.Index(rest, "</span>")
		if end < 0 {
			t.Fatalf("unclosed span in output:\n%s", got)
		}
		body := rest[strings.Index(rest, ">")+1 : end]
		if strings.ContainsAny(body, "<>") {
			t.Fatalf("span body %q contains a tag:\n%s", body, got)
		}
		rest = rest[end+len("</span>"):]
	}
}

func TestHighlightChanges_ClosesAtEndOfStream(t *testing.T) {
	got := HighlightChanges("old content", "old content extra", "#ffff66")
	if !strings.HasSuffix(got, "</span>") {
		t.Fatalf("trailing added word must close its span: %q", got)
	}
	if strings.Count(got, "<span") != strings.Count(got, "</span>") {
		t.Fatalf("unbalanced spans: %q", got)
	}
}

func TestHighlightChanges_MembershipNotPositional(t *testing.T) {
	// "two" exists somewhere in old, so its moved occurrence is not marked.
	got := HighlightChanges("one two three", "three two one", "#ffff66")
	if strings.Contains(got, "<span") {
		t.Fatalf("reordered words must not be highlighted: %q", got)
	}
}

func TestHighlightChanges_SwappedArgumentsMarkRemovals(t *testing.T) {
	oldMarkup := "<p>kept removed</p>"
	newMarkup := "<p>kept</p>"

	got := HighlightChanges(newMarkup, oldMarkup, "#ff9999")
	want := `<p>kept <span style="background-color: #ff9999">removed</span></p>`
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}
