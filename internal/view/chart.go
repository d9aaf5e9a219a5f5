package view

import (
	"math"
	"strconv"
	"strings"

	g "maragu.dev/gomponents"
	"maragu.dev/gomponents/html"

	"proxy-metrics-panel/internal/util"
)

// Series is one line of a chart.
type Series struct {
	Name   string
	Color  string
	Values []float64
}

// Chart is a set of series plotted against a shared time axis. Labels are
// the opaque x-axis labels, one per point.
type Chart struct {
	Title  string
	Labels []string
	Series []Series
	// Format renders y-axis values. Nil uses util.FormatFloat.
	Format func(float64) string
}

// ChartRenderer draws a chart.
type ChartRenderer interface {
	Render(c Chart) g.Node
}

// ChartRendererFunc adapts a function to ChartRenderer.
type ChartRendererFunc func(c Chart) g.Node

// Render implements ChartRenderer.
func (f ChartRendererFunc) Render(c Chart) g.Node { return f(c) }

// SVGChart renders an inline SVG line chart.
type SVGChart struct {
	Width  int
	Height int
}

const (
	padLeft   = 56
	padRight  = 16
	padTop    = 12
	padBottom = 28

	gridLines  = 4
	maxXLabels = 6
)

// Render implements ChartRenderer.
func (sc SVGChart) Render(c Chart) g.Node {
	w, h := sc.Width, sc.Height
	if w <= 0 {
		w = 640
	}
	if h <= 0 {
		h = 256
	}
	format := c.Format
	if format == nil {
		format = util.FormatFloat
	}

	n := len(c.Labels)
	for _, s := range c.Series {
		if len(s.Values) > n {
			n = len(s.Values)
		}
	}
	if n == 0 {
		return html.Div(
			html.Class("flex h-64 items-center justify-center text-sm text-muted-foreground"),
			g.Attr("data-chart", c.Title),
			g.Attr("data-points", "0"),
			g.Text("No data for this timeframe"),
		)
	}

	lo, hi := 0.0, 0.0
	for _, s := range c.Series {
		for _, v := range s.Values {
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
	}
	if hi == lo {
		hi = lo + 1
	}

	plotW := float64(w - padLeft - padRight)
	plotH := float64(h - padTop - padBottom)
	x := func(i int) float64 {
		if n == 1 {
			return padLeft + plotW/2
		}
		return padLeft + plotW*float64(i)/float64(n-1)
	}
	y := func(v float64) float64 {
		return padTop + plotH*(1-(v-lo)/(hi-lo))
	}

	var nodes []g.Node

	for i := 0; i <= gridLines; i++ {
		v := lo + (hi-lo)*float64(i)/gridLines
		yy := y(v)
		nodes = append(nodes,
			g.El("line",
				g.Attr("x1", ftoa(padLeft)), g.Attr("x2", ftoa(padLeft+plotW)),
				g.Attr("y1", ftoa(yy)), g.Attr("y2", ftoa(yy)),
				g.Attr("stroke", "#e5e7eb"), g.Attr("stroke-dasharray", "3 3"),
			),
			g.El("text",
				g.Attr("x", ftoa(padLeft-6)), g.Attr("y", ftoa(yy+4)),
				g.Attr("text-anchor", "end"), g.Attr("font-size", "10"), g.Attr("fill", "#6b7280"),
				g.Text(format(v)),
			),
		)
	}

	step := 1
	if n > maxXLabels {
		step = int(math.Ceil(float64(n) / maxXLabels))
	}
	for i := 0; i < len(c.Labels); i += step {
		nodes = append(nodes, g.El("text",
			g.Attr("x", ftoa(x(i))), g.Attr("y", itoa(h-padBottom+16)),
			g.Attr("text-anchor", "middle"), g.Attr("font-size", "10"), g.Attr("fill", "#6b7280"),
			g.Text(c.Labels[i]),
		))
	}

	for _, s := range c.Series {
		if len(s.Values) == 0 {
			continue
		}
		if len(s.Values) == 1 {
			nodes = append(nodes, g.El("circle",
				g.Attr("cx", ftoa(x(0))), g.Attr("cy", ftoa(y(s.Values[0]))), g.Attr("r", "3"),
				g.Attr("fill", s.Color), g.Attr("data-series", s.Name),
			))
			continue
		}
		pts := make([]string, len(s.Values))
		for i, v := range s.Values {
			pts[i] = ftoa(x(i)) + "," + ftoa(y(v))
		}
		nodes = append(nodes, g.El("polyline",
			g.Attr("points", strings.Join(pts, " ")),
			g.Attr("fill", "none"), g.Attr("stroke", s.Color), g.Attr("stroke-width", "2"),
			g.Attr("data-series", s.Name),
		))
	}

	legend := make([]g.Node, 0, len(c.Series))
	for _, s := range c.Series {
		legend = append(legend, html.Span(
			html.Class("flex items-center gap-1"),
			html.Span(html.Class("inline-block h-2 w-4 rounded-sm"), html.Style("background-color:"+s.Color)),
			g.Text(s.Name),
		))
	}

	return html.Div(
		html.Class("h-64"),
		g.Attr("data-chart", c.Title),
		g.Attr("data-points", itoa(n)),
		g.El("svg",
			g.Attr("xmlns", "http://www.w3.org/2000/svg"),
			g.Attr("viewBox", "0 0 "+itoa(w)+" "+itoa(h)),
			g.Attr("preserveAspectRatio", "none"),
			g.Attr("role", "img"),
			g.Attr("aria-label", c.Title),
			html.Class("h-56 w-full"),
			g.Group(nodes),
		),
		html.Div(html.Class("flex justify-center gap-4 text-xs text-muted-foreground"), g.Group(legend)),
	)
}

func itoa(i int) string { return strconv.Itoa(i) }

func ftoa(f float64) string { return strconv.FormatFloat(f, 'f', 1, 64) }
