package view

import (
	"net/url"

	g "maragu.dev/gomponents"
	"maragu.dev/gomponents/html"

	"github.com/xraph/forgeui/theme"
)

// PageProps describes the document around a panel.
type PageProps struct {
	Title    string
	ProxyID  string
	PanelURL string
	Tab      Tab
	// StaticPrefix is where panel.js and panel.css are served.
	StaticPrefix string
}

// Page wraps a rendered panel body in a full HTML document. The #panel
// element carries the URLs panel.js uses to follow state changes.
func Page(pp PageProps, body g.Node) g.Node {
	static := pp.StaticPrefix
	if static == "" {
		static = "/static"
	}
	title := pp.Title
	if title == "" {
		title = "Proxy Metrics"
	}
	tab := ParseTab(string(pp.Tab))

	return html.Doctype(html.HTML(
		html.Lang("en"),
		html.Head(
			theme.HeadContent(theme.DefaultLight(), theme.DefaultDark()),
			html.TitleEl(g.Text(title)),
			html.Script(html.Src("https://cdn.tailwindcss.com")),
			theme.TailwindConfigScript(),
			theme.StyleTag(theme.DefaultLight(), theme.DefaultDark()),
			html.Link(html.Rel("stylesheet"), html.Href(static+"/panel.css")),
		),
		html.Body(
			html.Class("min-h-screen bg-background text-foreground antialiased"),
			html.Main(
				html.Class("container space-y-6 py-6 md:py-8"),
				html.H1(
					html.Class("text-xl font-bold md:text-2xl"),
					g.Text(title),
					g.If(pp.ProxyID != "", html.Span(
						html.Class("ml-2 text-muted-foreground"),
						g.Text(pp.ProxyID),
					)),
				),
				html.Div(
					html.ID("panel"),
					g.Attr("data-fragment-url", pp.PanelURL+"/fragment?"+url.Values{"tab": {string(tab)}}.Encode()),
					g.Attr("data-events-url", pp.PanelURL+"/events"),
					body,
				),
			),
			html.Script(html.Src(static+"/panel.js"), html.Defer()),
		),
	))
}
