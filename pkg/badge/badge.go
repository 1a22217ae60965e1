// Package badge renders PNG status badges for tracked targets.
package badge

import (
	"fmt"
	"image/color"
	"io"
	"strings"

	"github.com/fogleman/gg"
)

// Status is the state a badge reports.
type Status string

const (
	StatusChanged   Status = "changed"
	StatusUnchanged Status = "unchanged"
	StatusError     Status = "error"
)

// Renderer draws small two-segment badges (label on the left, status on the
// right) in the style of CI shields.
type Renderer struct {
	Width    float64
	Height   float64
	FontSize float64
}

// NewRenderer returns a renderer with the default badge geometry.
func NewRenderer() *Renderer {
	return &Renderer{
		Width:    240,
		Height:   40,
		FontSize: 16,
	}
}

// Render draws a badge for the given target name and status and writes the
// PNG to w. distance is only shown for StatusChanged.
func (r *Renderer) Render(w io.Writer, name string, status Status, distance int) error {
	dc := gg.NewContext(int(r.Width), int(r.Height))

	split := r.Width * 0.5

	// Label segment
	dc.SetColor(hexColor("#2d2d3a"))
	dc.DrawRoundedRectangle(0, 0, r.Width, r.Height, 6)
	dc.Fill()

	// Status segment
	dc.SetColor(statusColor(status))
	dc.DrawRoundedRectangle(split, 0, r.Width-split, r.Height, 6)
	dc.Fill()
	dc.DrawRectangle(split, 0, 8, r.Height)
	dc.Fill()

	r.loadFont(dc, r.FontSize)

	dc.SetColor(hexColor("#e0e0e0"))
	dc.DrawStringAnchored(truncateName(name), split/2, r.Height/2, 0.5, 0.4)

	dc.SetColor(hexColor("#101018"))
	dc.DrawStringAnchored(statusText(status, distance), split+(r.Width-split)/2, r.Height/2, 0.5, 0.4)

	return dc.EncodePNG(w)
}

func statusText(status Status, distance int) string {
	switch status {
	case StatusChanged:
		return fmt.Sprintf("changed (%d)", distance)
	case StatusUnchanged:
		return "no change"
	default:
		return "error"
	}
}

func statusColor(status Status) color.Color {
	switch status {
	case StatusChanged:
		return hexColor("#e8b339")
	case StatusUnchanged:
		return hexColor("#3fb950")
	default:
		return hexColor("#f85149")
	}
}

func truncateName(name string) string {
	runes := []rune(name)
	if len(runes) > 14 {
		return string(runes[:13]) + "…"
	}
	return name
}

func (r *Renderer) loadFont(dc *gg.Context, size float64) {
	// Best-effort: fall back through common font locations; gg keeps its
	// basic built-in face when none load.
	for _, path := range []string{
		"/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf",
		"/System/Library/Fonts/Helvetica.ttc",
	} {
		if err := dc.LoadFontFace(path, size); err == nil {
			return
		}
	}
}

func hexColor(hex string) color.Color {
	hex = strings.TrimPrefix(hex, "#")
	var cr, cg, cb uint8
	fmt.Sscanf(hex, "%02x%02x%02x", &cr, &cg, &cb)
	return color.RGBA{cr, cg, cb, 255}
}
