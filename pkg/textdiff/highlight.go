package textdiff

import (
	"regexp"
	"strings"
)

// tokenKind classifies a run of markup. Tokens partition the input; the rare
// character that matches none of the three patterns (a stray unterminated
// '<') is dropped, mirroring the extractor's tolerance of malformed input.
type tokenKind int

const (
	tokenTag tokenKind = iota
	tokenWord
	tokenWhitespace
)

type token struct {
	kind tokenKind
	text string
}

var tokenRe = regexp.MustCompile(`(?s)<[^>]*>|[^\s<]+|\s+`)

func tokenize(markup string) []token {
	matches := tokenRe.FindAllString(markup, -1)
	tokens := make([]token, 0, len(matches))
	for _, m := range matches {
		var kind tokenKind
		switch {
		case m[0] == '<':
			kind = tokenTag
		case isSpace(m[0]):
			kind = tokenWhitespace
		default:
			kind = tokenWord
		}
		tokens = append(tokens, token{kind: kind, text: m})
	}
	return tokens
}

func isSpace(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\r', '\f', '\v':
		return true
	}
	return false
}

// spanState tracks whether the serializer is inside an open highlight span.
// Modeled explicitly so the "never cross a tag or whitespace boundary"
// invariant lives in one switch instead of a flag threaded through the loop.
type spanState int

const (
	spanClosed spanState = iota
	spanOpen
)

// HighlightChanges re-emits newMarkup with every word absent from oldMarkup
// wrapped in an inline-styled highlight span. A span covers a maximal run of
// consecutive added words and closes before any tag, whitespace, or
// unchanged word, so the output stays structurally parseable.
//
// Removed-content rendering for the old panel is this same function with
// the arguments swapped: words present in old but absent from new are then
// the "added" ones. There is no separate removal algorithm.
//
// Membership is by word value, not position: a word that merely moved, or
// whose value occurs anywhere in the old markup, is never highlighted. That
// approximation is deliberate and load-bearing for consumers.
func HighlightChanges(oldMarkup, newMarkup, color string) string {
	if oldMarkup == "" {
		return newMarkup
	}
	if newMarkup == "" {
		return ""
	}
	if oldMarkup == newMarkup {
		return newMarkup
	}

	oldWords := make(map[string]struct{})
	for _, tok := range tokenize(oldMarkup) {
		if tok.kind == tokenWord {
			oldWords[tok.text] = struct{}{}
		}
	}

	var sb strings.Builder
	sb.Grow(len(newMarkup) + len(newMarkup)/4)

	state := spanClosed
	for _, tok := range tokenize(newMarkup) {
		added := false
		if tok.kind == tokenWord {
			_, seen := oldWords[tok.text]
			added = !seen
		}

		switch state {
		case spanClosed:
			if added {
				sb.WriteString(`<span style="background-color: `)
				sb.WriteString(color)
				sb.WriteString(`">`)
				state = spanOpen
			}
		case spanOpen:
			if !added {
				sb.WriteString("</span>")
				state = spanClosed
			}
		}
		sb.WriteString(tok.text)
	}
	if state == spanOpen {
		sb.WriteString("</span>")
	}
	return sb.String()
}
