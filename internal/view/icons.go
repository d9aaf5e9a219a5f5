package view

import (
	g "maragu.dev/gomponents"

	"github.com/xraph/forgeui/icons"
)

// IconKind is the category an icon is looked up by.
type IconKind string

const (
	IconSuccess  IconKind = "success"
	IconWarning  IconKind = "warning"
	IconHealth   IconKind = "health"
	IconActivity IconKind = "activity"
	IconChart    IconKind = "chart"
)

// IconSet looks up an icon by category.
type IconSet interface {
	Icon(kind IconKind) g.Node
}

// IconSetFunc adapts a function to IconSet.
type IconSetFunc func(kind IconKind) g.Node

// Icon implements IconSet.
func (f IconSetFunc) Icon(kind IconKind) g.Node { return f(kind) }

// ForgeIcons is the default icon set, backed by forgeui's lucide icons.
type ForgeIcons struct {
	Size int
}

// Icon implements IconSet.
func (fi ForgeIcons) Icon(kind IconKind) g.Node {
	size := fi.Size
	if size <= 0 {
		size = 16
	}
	switch kind {
	case IconSuccess:
		return circleCheck(size)
	case IconHealth:
		return icons.HeartPulse(icons.WithSize(size))
	case IconActivity:
		return icons.Activity(icons.WithSize(size))
	case IconChart:
		return icons.ChartLine(icons.WithSize(size))
	default:
		return icons.TriangleAlert(icons.WithSize(size))
	}
}

// circleCheck draws lucide's circle-check glyph.
func circleCheck(size int) g.Node {
	return g.El("svg",
		g.Attr("xmlns", "http://www.w3.org/2000/svg"),
		g.Attr("width", itoa(size)),
		g.Attr("height", itoa(size)),
		g.Attr("viewBox", "0 0 24 24"),
		g.Attr("fill", "none"),
		g.Attr("stroke", "currentColor"),
		g.Attr("stroke-width", "2"),
		g.Attr("stroke-linecap", "round"),
		g.Attr("stroke-linejoin", "round"),
		g.Attr("data-icon", "circle-check"),
		g.El("circle", g.Attr("cx", "12"), g.Attr("cy", "12"), g.Attr("r", "10")),
		g.El("path", g.Attr("d", "m9 12 2 2 4-4")),
	)
}
