// Package view renders a panel.ViewState as HTML with gomponents and the
// forgeui component kit. Rendering is pure: the same state, tab and props
// always produce the same markup.
package view

import (
	"math"

	"github.com/dustin/go-humanize"
	g "maragu.dev/gomponents"
	"maragu.dev/gomponents/html"

	"github.com/xraph/forgeui"
	"github.com/xraph/forgeui/components/badge"
	"github.com/xraph/forgeui/components/card"

	"proxy-metrics-panel/internal/panel"
)

// Series colors.
const (
	colorRequests = "#2563eb"
	colorLatency  = "#7c3aed"
	colorErrors   = "#dc2626"
	colorIncoming = "#2563eb"
	colorOutgoing = "#16a34a"
)

// Props carries the routing context the markup links to.
type Props struct {
	// PanelURL is the session path, e.g. /panels/{id}.
	PanelURL string
	Tab      Tab
}

// Renderer renders panel states.
type Renderer struct {
	charts ChartRenderer
	icons  IconSet
}

// RendererOption configures a Renderer.
type RendererOption func(*Renderer)

// WithCharts replaces the chart renderer.
func WithCharts(c ChartRenderer) RendererOption {
	return func(r *Renderer) {
		if c != nil {
			r.charts = c
		}
	}
}

// WithIcons replaces the icon set.
func WithIcons(i IconSet) RendererOption {
	return func(r *Renderer) {
		if i != nil {
			r.icons = i
		}
	}
}

// NewRenderer returns a Renderer using SVGChart and ForgeIcons unless
// overridden.
func NewRenderer(opts ...RendererOption) *Renderer {
	r := &Renderer{
		charts: SVGChart{},
		icons:  ForgeIcons{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Render renders the panel body for st.
func (r *Renderer) Render(st panel.ViewState, p Props) g.Node {
	switch st.Status {
	case panel.StatusReady:
		if st.Snapshot != nil {
			return r.ready(st, p)
		}
	case panel.StatusError:
		return html.Div(
			g.Attr("data-status", string(panel.StatusError)),
			alertBox("destructive", r.icons.Icon(IconWarning), st.Err),
		)
	}
	return html.Div(
		html.Class("p-4"),
		g.Attr("data-status", string(panel.StatusLoading)),
		g.Text("Loading metrics..."),
	)
}

func (r *Renderer) ready(st panel.ViewState, p Props) g.Node {
	snap := st.Snapshot
	tab := ParseTab(string(p.Tab))

	return html.Div(
		html.Class("space-y-6"),
		g.Attr("data-status", string(panel.StatusReady)),
		r.healthOverview(snap),
		r.performance(snap, st.Timeframe, tab, p.PanelURL),
		r.insights(snap.Insights()),
	)
}

func (r *Renderer) healthOverview(snap *panel.Snapshot) g.Node {
	health := snap.Health()

	return html.Div(
		g.Attr("data-region", "health-overview"),
		card.Card(
			card.Header(
				html.Div(
					html.Class("flex items-center justify-between"),
					html.Div(
						html.Class("flex items-center gap-2 text-lg font-semibold"),
						r.icons.Icon(IconActivity),
						g.Text("Health Overview"),
					),
					healthBadge(health),
				),
			),
			card.Content(
				html.Div(
					html.Class("grid grid-cols-1 gap-4 md:grid-cols-3"),
					tile(snap.ScoreText()+"%", "Health Score", healthClass(health),
						g.Attr("data-health", string(health))),
					tile(snap.Uptime()+"%", "Uptime", "text-blue-500"),
					tile(snap.ResponseTime()+"ms", "Avg Response Time", "text-purple-500"),
				),
			),
		),
	)
}

func tile(value, label, color string, attrs ...g.Node) g.Node {
	return html.Div(
		html.Class("rounded-lg bg-background p-4 text-center"),
		g.Attr("data-tile", label),
		html.Div(
			html.Class("text-4xl font-bold "+color),
			g.Group(attrs),
			g.Text(value),
		),
		html.Div(
			html.Class("mt-1 text-sm text-muted-foreground"),
			g.Text(label),
		),
	)
}

func healthBadge(h panel.Health) g.Node {
	var variant forgeui.Variant
	switch h {
	case panel.HealthHealthy:
		variant = forgeui.VariantDefault
	case panel.HealthDegraded:
		variant = forgeui.VariantSecondary
	default:
		variant = forgeui.VariantDestructive
	}
	return badge.Badge(healthLabel(h), badge.WithVariant(variant))
}

func healthLabel(h panel.Health) string {
	switch h {
	case panel.HealthHealthy:
		return "Healthy"
	case panel.HealthDegraded:
		return "Degraded"
	default:
		return "Unhealthy"
	}
}

func healthClass(h panel.Health) string {
	switch h {
	case panel.HealthHealthy:
		return "text-green-500"
	case panel.HealthDegraded:
		return "text-yellow-500"
	default:
		return "text-red-500"
	}
}

func (r *Renderer) performance(snap *panel.Snapshot, tf panel.Timeframe, tab Tab, panelURL string) g.Node {
	return html.Div(
		g.Attr("data-region", "performance"),
		card.Card(
			card.Header(
				html.Div(
					html.Class("flex items-center justify-between"),
					html.Div(
						html.Class("flex items-center gap-2 text-lg font-semibold"),
						r.icons.Icon(IconChart),
						g.Text("Performance Metrics"),
					),
					timeframeSelector(tf, tab, panelURL),
				),
			),
			card.Content(
				html.Nav(
					html.Class("mb-4 inline-flex rounded-md bg-muted p-1 text-sm"),
					g.Attr("role", "tablist"),
					g.Group(tabTriggers(tab, panelURL)),
				),
				html.Div(
					g.Attr("role", "tabpanel"),
					g.Attr("data-tab", string(tab)),
					r.charts.Render(chartFor(snap, tab)),
				),
			),
		),
	)
}

func timeframeSelector(current panel.Timeframe, tab Tab, panelURL string) g.Node {
	opts := panel.TimeframeOptions()
	options := make([]g.Node, 0, len(opts))
	for _, o := range opts {
		options = append(options, html.Option(
			html.Value(string(o.Value)),
			g.If(o.Value == current, html.Selected()),
			g.Text(o.Label),
		))
	}

	return html.Form(
		html.Method("post"),
		html.Action(panelURL+"/timeframe"),
		html.Class("flex items-center gap-2"),
		g.Attr("data-timeframe-form", ""),
		html.Input(html.Type("hidden"), html.Name("tab"), html.Value(string(tab))),
		html.Select(
			html.Name("timeframe"),
			html.Class("w-32 rounded-md border bg-background px-2 py-1 text-sm"),
			g.Attr("aria-label", "Timeframe"),
			g.Group(options),
		),
		html.Button(
			html.Type("submit"),
			html.Class("rounded-md border px-2 py-1 text-sm"),
			g.Attr("data-js-hide", ""),
			g.Text("Apply"),
		),
	)
}

func tabTriggers(active Tab, panelURL string) []g.Node {
	nodes := make([]g.Node, 0, len(tabOrder))
	for _, t := range tabOrder {
		cls := "rounded-sm px-3 py-1 text-muted-foreground"
		selected := "false"
		if t == active {
			cls = "rounded-sm bg-background px-3 py-1 font-medium text-foreground shadow-sm"
			selected = "true"
		}
		nodes = append(nodes, html.A(
			html.Href(panelURL+"?tab="+string(t)),
			html.Class(cls),
			g.Attr("role", "tab"),
			g.Attr("aria-selected", selected),
			g.Attr("data-tab-trigger", string(t)),
			g.Text(t.Label()),
		))
	}
	return nodes
}

func chartFor(snap *panel.Snapshot, tab Tab) Chart {
	if tab == TabBandwidth {
		pts := snap.Bandwidth()
		c := Chart{
			Title:  tab.Label(),
			Labels: make([]string, len(pts)),
			Series: []Series{
				{Name: "Incoming", Color: colorIncoming, Values: make([]float64, len(pts))},
				{Name: "Outgoing", Color: colorOutgoing, Values: make([]float64, len(pts))},
			},
			Format: formatBytes,
		}
		for i, p := range pts {
			c.Labels[i] = p.Label()
			c.Series[0].Values[i] = p.Incoming
			c.Series[1].Values[i] = p.Outgoing
		}
		return c
	}

	var (
		pts    []panel.Point
		color  string
		format = formatCount
	)
	switch tab {
	case TabLatency:
		pts, color, format = snap.Latency(), colorLatency, formatMillis
	case TabErrors:
		pts, color = snap.Errors(), colorErrors
	default:
		pts, color = snap.Requests(), colorRequests
	}

	c := Chart{
		Title:  tab.Label(),
		Labels: make([]string, len(pts)),
		Series: []Series{{Name: tab.Label(), Color: color, Values: make([]float64, len(pts))}},
		Format: format,
	}
	for i, p := range pts {
		c.Labels[i] = p.Label()
		c.Series[0].Values[i] = p.Value
	}
	return c
}

func formatCount(v float64) string {
	return humanize.CommafWithDigits(v, 1)
}

func formatMillis(v float64) string {
	return humanize.CommafWithDigits(v, 1) + "ms"
}

func formatBytes(v float64) string {
	return humanize.Bytes(uint64(math.Max(v, 0)))
}

func (r *Renderer) insights(list []panel.Insight) g.Node {
	alerts := make([]g.Node, 0, len(list))
	for _, in := range list {
		kind := IconWarning
		if in.Success() {
			kind = IconSuccess
		}
		alerts = append(alerts, alertBox(in.Type, r.icons.Icon(kind), in.Message))
	}

	return html.Div(
		g.Attr("data-region", "insights"),
		card.Card(
			card.Header(card.Title("Insights")),
			card.Content(
				html.Div(
					html.Class("space-y-4"),
					g.Group(alerts),
				),
			),
		),
	)
}

func alertBox(variant string, icon g.Node, message string) g.Node {
	return html.Div(
		g.Attr("role", "alert"),
		g.Attr("data-variant", variant),
		html.Class("relative flex w-full items-start gap-3 rounded-lg border p-4 "+alertClass(variant)),
		icon,
		html.Div(html.Class("text-sm"), g.Text(message)),
	)
}

func alertClass(variant string) string {
	switch variant {
	case "success":
		return "border-green-500/50 text-green-700 dark:text-green-400"
	case "warning":
		return "border-yellow-500/50 text-yellow-700 dark:text-yellow-400"
	case "destructive":
		return "border-destructive/50 text-destructive"
	default:
		return "bg-background text-foreground"
	}
}
