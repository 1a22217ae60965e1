package textdiff

import "testing"

func TestExtractText_Empty(t *testing.T) {
	if got := ExtractText(""); got != "" {
		t.Fatalf("expected empty string, got %q", got)
	}
}

func TestExtractText_StripsTags(t *testing.T) {
	if got := ExtractText("<p>Hello world</p>"); got != "Hello world" {
		t.Fatalf("expected %q, got %q", "Hello world", got)
	}
}

func TestExtractText_RemovesScriptContent(t *testing.T) {
	got := ExtractText("<p>Hello</p><script>alert(1)</script><p>World</p>")
	if got != "Hello World" {
		t.Fatalf("expected %q, got %q", "Hello World", got)
	}
}

func TestExtractText_RemovesStyleContent(t *testing.T) {
	got := ExtractText("<style>body{color:red}</style><p>Content</p>")
	if got != "Content" {
		t.Fatalf("expected %q, got %q", "Content", got)
	}
}

func TestExtractText_ScriptAttributesAndCase(t *testing.T) {
	got := ExtractText(`<SCRIPT type="text/javascript">
		var x = "<p>not text</p>";
	</SCRIPT>Visible`)
	if got != "Visible" {
		t.Fatalf("expected %q, got %q", "Visible", got)
	}
}

func TestExtractText_DecodesEntities(t *testing.T) {
	got := ExtractText("<p>Hello&nbsp;world&amp;test</p>")
	if got != "Hello world&test" {
		t.Fatalf("expected %q, got %q", "Hello world&test", got)
	}
}

func TestExtractText_EntitySet(t *testing.T) {
	got := ExtractText("a&lt;b &gt;c &quot;d&quot;")
	if got != `a<b >c "d"` {
		t.Fatalf("unexpected decode result: %q", got)
	}
	// Entities outside the fixed set pass through literally.
	if got := ExtractText("caf&eacute;"); got != "caf&eacute;" {
		t.Fatalf("expected passthrough, got %q", got)
	}
}

func TestExtractText_CollapsesWhitespace(t *testing.T) {
	got := ExtractText("  <div>\n\tHello\r\n   world \n</div>  ")
	if got != "Hello world" {
		t.Fatalf("expected %q, got %q", "Hello world", got)
	}
}

func TestExtractText_IdempotentOnPlainText(t *testing.T) {
	once := ExtractText("<h1>Release notes</h1><p>Version 2 is out &amp; live</p>")
	twice := ExtractText(once)
	if once != twice {
		t.Fatalf("re-extraction changed text: %q vs %q", once, twice)
	}
}

func TestExtractText_MalformedMarkup(t *testing.T) {
	// No panic, no error: unterminated constructs degrade gracefully.
	for _, in := range []string{"<p>unterminated", "<script>never closed", "just < a stray bracket"} {
		_ = ExtractText(in)
	}
}
