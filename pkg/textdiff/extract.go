// Package textdiff implements the change-detection core for tracked pages:
// plain-text extraction from raw markup, an adaptive change-distance metric,
// and a word-level highlight renderer used for visual comparison.
//
// All functions are pure and allocation-local; they are safe to call
// concurrently and never return an error. Malformed markup degrades to a
// best-effort result rather than failing.
package textdiff

import (
	"regexp"
	"strings"
)

var (
	scriptRe = regexp.MustCompile(`(?is)<script\b[^>]*>.*?</script>`)
	styleRe  = regexp.MustCompile(`(?is)<style\b[^>]*>.*?</style>`)
	tagRe    = regexp.MustCompile(`<[^>]*>`)
	spaceRe  = regexp.MustCompile(`\s+`)
)

// Entities are deliberately limited to the handful that show up in page text
// all the time. This is not a general HTML entity decoder.
var entityReplacer = strings.NewReplacer(
	"&nbsp;", " ",
	"&amp;", "&",
	"&lt;", "<",
	"&gt;", ">",
	"&quot;", `"`,
)

// ExtractText converts raw markup into normalized plain text: script and
// style regions are removed before tag stripping (so their contents never
// leak into the text), remaining tags become a single space, a fixed entity
// set is decoded, and whitespace runs collapse to one ASCII space.
func ExtractText(markup string) string {
	if markup == "" {
		return ""
	}
	s := scriptRe.ReplaceAllString(markup, "")
	s = styleRe.ReplaceAllString(s, "")
	s = tagRe.ReplaceAllString(s, " ")
	s = entityReplacer.Replace(s)
	s = spaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}
