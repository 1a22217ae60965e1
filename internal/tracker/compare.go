package tracker

import (
	"fmt"
	"strings"

	"github.com/mchen/pagewatch/pkg/textdiff"
)

// Default highlight colors for the two comparison panels.
const (
	DefaultAddedColor   = "#ffff66"
	DefaultRemovedColor = "#ff9999"
)

// Comparison holds the two highlighted panels of a before/after view.
type Comparison struct {
	OldPanel string // old markup with removed words highlighted
	NewPanel string // new markup with added words highlighted
}

// RenderComparison builds both panels from the stored snapshots. The old
// panel reuses the same highlighter with swapped arguments: words present
// in old but absent from new are "added relative to new", which is exactly
// the removed set.
func RenderComparison(oldMarkup, newMarkup, addedColor, removedColor string) Comparison {
	if addedColor == "" {
		addedColor = DefaultAddedColor
	}
	if removedColor == "" {
		removedColor = DefaultRemovedColor
	}
	return Comparison{
		OldPanel: textdiff.HighlightChanges(newMarkup, oldMarkup, removedColor),
		NewPanel: textdiff.HighlightChanges(oldMarkup, newMarkup, addedColor),
	}
}

// ComparisonPage wraps a Comparison in a standalone side-by-side HTML
// document for the API and the CLI export.
func ComparisonPage(title string, c Comparison) string {
	var sb strings.Builder
	sb.WriteString("<!DOCTYPE html><html><head><meta charset=\"utf-8\">")
	sb.WriteString(fmt.Sprintf("<title>%s</title>", title))
	sb.WriteString(`<style>
body { font-family: sans-serif; margin: 0; }
.panes { display: flex; }
.pane { flex: 1; padding: 16px; overflow-x: auto; }
.pane + .pane { border-left: 1px solid #ccc; }
.pane h2 { font-size: 14px; color: #666; }
</style></head><body><div class="panes">`)
	sb.WriteString(`<div class="pane"><h2>Before</h2>`)
	sb.WriteString(c.OldPanel)
	sb.WriteString(`</div><div class="pane"><h2>After</h2>`)
	sb.WriteString(c.NewPanel)
	sb.WriteString(`</div></div></body></html>`)
	return sb.String()
}
