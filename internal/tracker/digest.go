package tracker

import (
	"fmt"
	"strings"

	"github.com/mchen/pagewatch/pkg/notify"
)

// ComposeDigest merges all change events from one scan round into a single
// notification with plain-text and HTML bodies.
func ComposeDigest(events []ChangeEvent) notify.Message {
	if len(events) == 0 {
		return notify.Message{}
	}

	var body strings.Builder
	var htmlBody strings.Builder

	body.WriteString(fmt.Sprintf("%d tracked page(s) changed:\n\n", len(events)))

	htmlBody.WriteString(`<!DOCTYPE html><html><body style="font-family:Arial,sans-serif;background:#1a1a2e;color:#e0e0e0;padding:20px;">`)
	htmlBody.WriteString(`<h2 style="color:#eee;">PageWatch report</h2>`)
	htmlBody.WriteString(fmt.Sprintf(`<p style="color:#aaa;">%d tracked page(s) changed</p><hr style="border-color:#333;">`, len(events)))

	for _, e := range events {
		name := e.Target.Name
		if e.Title != "" {
			name = fmt.Sprintf("%s (%s)", e.Target.Name, e.Title)
		}

		body.WriteString(fmt.Sprintf("* %s\n", name))
		if e.Distance > 0 {
			body.WriteString(fmt.Sprintf("  distance %d (threshold %d)\n", e.Distance, e.Target.Threshold))
		}
		body.WriteString(fmt.Sprintf("  %s\n\n", e.Target.URL))

		htmlBody.WriteString(`<div style="background:#23233a;border-radius:8px;padding:16px;margin:12px 0;">`)
		htmlBody.WriteString(fmt.Sprintf(`<h3 style="color:#eee;margin:0 0 4px;">%s</h3>`, name))
		if e.Distance > 0 {
			htmlBody.WriteString(fmt.Sprintf(`<p style="color:#aaa;margin:4px 0;">distance %d (threshold %d)</p>`, e.Distance, e.Target.Threshold))
		}
		htmlBody.WriteString(fmt.Sprintf(`<a href="%s" style="color:#4a9eff;">%s</a>`, e.Target.URL, e.Target.URL))
		htmlBody.WriteString(`</div>`)
	}
	htmlBody.WriteString(`</body></html>`)

	title := fmt.Sprintf("PageWatch: %d page(s) changed", len(events))
	if len(events) == 1 {
		title = fmt.Sprintf("PageWatch: %s changed", events[0].Target.Name)
	}

	return notify.Message{
		Title:    title,
		Body:     body.String(),
		HTMLBody: htmlBody.String(),
		Format:   "plain",
	}
}
