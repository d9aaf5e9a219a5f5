package view

import (
	"strings"
	"testing"

	g "maragu.dev/gomponents"
	"maragu.dev/gomponents/html"

	"proxy-metrics-panel/internal/panel"
)

type chartRecorder struct {
	charts []Chart
}

func (cr *chartRecorder) Render(c Chart) g.Node {
	cr.charts = append(cr.charts, c)
	return html.Div(g.Attr("data-chart", c.Title))
}

var markerIcons = IconSetFunc(func(kind IconKind) g.Node {
	return html.Span(g.Attr("data-icon-kind", string(kind)))
})

func render(t *testing.T, n g.Node) string {
	t.Helper()
	var b strings.Builder
	if err := n.Render(&b); err != nil {
		t.Fatalf("render: %v", err)
	}
	return b.String()
}

func readyState(t *testing.T, body string, tf panel.Timeframe) panel.ViewState {
	t.Helper()
	snap, err := panel.DecodeSnapshot([]byte(body))
	if err != nil {
		t.Fatalf("DecodeSnapshot: %v", err)
	}
	return panel.ViewState{Status: panel.StatusReady, Snapshot: snap, Timeframe: tf, Token: 1}
}

func TestRender_EndToEndScenario(t *testing.T) {
	st := readyState(t, `{
		"health":{"score":45},
		"summary":{"uptime":"99.5","response_time":"120"},
		"requests":[{"timestamp":"10:00","value":5}],
		"insights":[]
	}`, panel.Timeframe1h)

	rec := &chartRecorder{}
	out := render(t, NewRenderer(WithCharts(rec)).Render(st, Props{PanelURL: "/panels/abc"}))

	for _, want := range []string{
		`data-health="unhealthy"`,
		`45%`,
		`99.5%`,
		`120ms`,
		`text-red-500`,
		`Unhealthy`,
		`data-region="insights"`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q", want)
		}
	}

	if len(rec.charts) != 1 {
		t.Fatalf("rendered %d charts, want 1", len(rec.charts))
	}
	c := rec.charts[0]
	if c.Title != "Requests" || len(c.Series) != 1 {
		t.Fatalf("chart = %+v, want single-series Requests", c)
	}
	if len(c.Labels) != 1 || c.Labels[0] != "10:00" || c.Series[0].Values[0] != 5 {
		t.Errorf("chart data = %v/%v, want [10:00]/[5]", c.Labels, c.Series[0].Values)
	}
	if c.Series[0].Color != "#2563eb" {
		t.Errorf("requests color = %s", c.Series[0].Color)
	}

	insights := out[strings.Index(out, `data-region="insights"`):]
	if strings.Contains(insights, `role="alert"`) {
		t.Error("empty insights should render no alerts")
	}
}

func TestRender_DefaultSummary(t *testing.T) {
	st := readyState(t, `{"summary":{}}`, panel.Timeframe1h)
	out := render(t, NewRenderer().Render(st, Props{}))

	for _, want := range []string{`100%`, `0ms`, `data-health="unhealthy"`, `>0%<`} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q", want)
		}
	}
}

func TestRender_HealthColors(t *testing.T) {
	tests := []struct {
		score string
		class string
		cat   string
	}{
		{"85", "text-green-500", "healthy"},
		{"80", "text-yellow-500", "degraded"},
		{"61", "text-yellow-500", "degraded"},
		{"60", "text-red-500", "unhealthy"},
		{"45.50", "text-red-500", "unhealthy"},
		{"92.0", "text-green-500", "healthy"},
	}

	for _, tt := range tests {
		st := readyState(t, `{"health":{"score":`+tt.score+`}}`, panel.Timeframe1h)
		out := render(t, NewRenderer().Render(st, Props{}))
		if !strings.Contains(out, `text-4xl font-bold `+tt.class+`" data-health="`+tt.cat+`"`) {
			t.Errorf("score %s: expected %s/%s tile", tt.score, tt.class, tt.cat)
		}
		if !strings.Contains(out, ">"+tt.score+"%<") {
			t.Errorf("score %s: tile text missing", tt.score)
		}
	}
}

func TestRender_RegionsInOrder(t *testing.T) {
	st := readyState(t, `{}`, panel.Timeframe7d)
	out := render(t, NewRenderer().Render(st, Props{}))

	health := strings.Index(out, `data-region="health-overview"`)
	perf := strings.Index(out, `data-region="performance"`)
	ins := strings.Index(out, `data-region="insights"`)
	if health < 0 || perf < 0 || ins < 0 {
		t.Fatalf("missing region: health=%d performance=%d insights=%d", health, perf, ins)
	}
	if !(health < perf && perf < ins) {
		t.Errorf("regions out of order: %d %d %d", health, perf, ins)
	}
}

func TestRender_Loading(t *testing.T) {
	st := panel.ViewState{Status: panel.StatusLoading, Timeframe: panel.Timeframe1h}
	out := render(t, NewRenderer().Render(st, Props{}))

	if !strings.Contains(out, "Loading metrics...") {
		t.Error("loading indicator missing")
	}
	if strings.Contains(out, "data-region") || strings.Contains(out, `role="alert"`) {
		t.Errorf("loading should render the indicator only: %s", out)
	}
}

func TestRender_Error(t *testing.T) {
	st := panel.ViewState{Status: panel.StatusError, Err: "Failed to fetch metrics"}
	out := render(t, NewRenderer(WithIcons(markerIcons)).Render(st, Props{}))

	if !strings.Contains(out, "Failed to fetch metrics") {
		t.Error("error message missing")
	}
	if !strings.Contains(out, `data-variant="destructive"`) {
		t.Error("error alert should be destructive")
	}
	if !strings.Contains(out, `data-icon-kind="warning"`) {
		t.Error("error alert should use the warning icon")
	}
	if strings.Contains(out, "data-region") {
		t.Error("error should render the alert only")
	}
}

func TestRender_InsightsFidelity(t *testing.T) {
	st := readyState(t, `{"insights":[
		{"type":"success","message":"OK"},
		{"type":"warning","message":"High latency"}
	]}`, panel.Timeframe1h)

	out := render(t, NewRenderer(WithIcons(markerIcons)).Render(st, Props{}))
	region := out[strings.Index(out, `data-region="insights"`):]

	if n := strings.Count(region, `role="alert"`); n != 2 {
		t.Fatalf("rendered %d insight alerts, want 2", n)
	}

	first := strings.Index(region, `data-variant="success"`)
	second := strings.Index(region, `data-variant="warning"`)
	if first < 0 || second < 0 || first > second {
		t.Fatalf("variants out of order: success=%d warning=%d", first, second)
	}
	okIcon := strings.Index(region, `data-icon-kind="success"`)
	warnIcon := strings.Index(region, `data-icon-kind="warning"`)
	if !(first < okIcon && okIcon < second && second < warnIcon) {
		t.Errorf("icons not paired with their insights: %d %d %d %d", first, okIcon, second, warnIcon)
	}

	if !strings.Contains(region, ">OK<") || !strings.Contains(region, ">High latency<") {
		t.Error("insight messages not rendered verbatim")
	}
	if strings.Index(region, ">OK<") > strings.Index(region, ">High latency<") {
		t.Error("insight messages out of order")
	}
}

func TestRender_UnknownInsightTypeUsesWarningIcon(t *testing.T) {
	st := readyState(t, `{"insights":[{"type":"info","message":"Traffic steady"}]}`, panel.Timeframe1h)
	out := render(t, NewRenderer(WithIcons(markerIcons)).Render(st, Props{}))
	region := out[strings.Index(out, `data-region="insights"`):]

	if !strings.Contains(region, `data-variant="info"`) {
		t.Error("variant should be the insight type verbatim")
	}
	if !strings.Contains(region, `data-icon-kind="warning"`) {
		t.Error("non-success insight should use the warning icon")
	}
}

func TestRender_TabsSelectChart(t *testing.T) {
	st := readyState(t, `{
		"requests":[{"timestamp":"a","value":1}],
		"latency":[{"timestamp":"a","value":2},{"timestamp":"b","value":3}],
		"errors":[{"timestamp":"a","value":0}],
		"bandwidth":[{"timestamp":"a","incoming":10,"outgoing":20}]
	}`, panel.Timeframe1h)

	tests := []struct {
		tab    Tab
		title  string
		series []string
		colors []string
		points int
	}{
		{TabRequests, "Requests", []string{"Requests"}, []string{"#2563eb"}, 1},
		{TabLatency, "Latency", []string{"Latency"}, []string{"#7c3aed"}, 2},
		{TabErrors, "Errors", []string{"Errors"}, []string{"#dc2626"}, 1},
		{TabBandwidth, "Bandwidth", []string{"Incoming", "Outgoing"}, []string{"#2563eb", "#16a34a"}, 1},
		{"bogus", "Requests", []string{"Requests"}, []string{"#2563eb"}, 1},
	}

	for _, tt := range tests {
		t.Run(string(tt.tab), func(t *testing.T) {
			rec := &chartRecorder{}
			out := render(t, NewRenderer(WithCharts(rec)).Render(st, Props{PanelURL: "/panels/x", Tab: tt.tab}))

			if len(rec.charts) != 1 {
				t.Fatalf("rendered %d charts, want exactly 1", len(rec.charts))
			}
			c := rec.charts[0]
			if c.Title != tt.title {
				t.Errorf("title = %s, want %s", c.Title, tt.title)
			}
			if len(c.Series) != len(tt.series) {
				t.Fatalf("series = %d, want %d", len(c.Series), len(tt.series))
			}
			for i, s := range c.Series {
				if s.Name != tt.series[i] || s.Color != tt.colors[i] {
					t.Errorf("series %d = %s/%s, want %s/%s", i, s.Name, s.Color, tt.series[i], tt.colors[i])
				}
				if len(s.Values) != tt.points {
					t.Errorf("series %d has %d points, want %d", i, len(s.Values), tt.points)
				}
			}

			active := ParseTab(string(tt.tab))
			if !strings.Contains(out, `aria-selected="true" data-tab-trigger="`+string(active)+`"`) {
				t.Errorf("tab %s not marked active", active)
			}
			if n := strings.Count(out, `aria-selected="true"`); n != 1 {
				t.Errorf("%d active tabs, want 1", n)
			}
		})
	}
}

func TestRender_TimeframeSelector(t *testing.T) {
	st := readyState(t, `{}`, panel.Timeframe24h)
	out := render(t, NewRenderer().Render(st, Props{PanelURL: "/panels/abc", Tab: TabErrors}))

	for _, want := range []string{
		`action="/panels/abc/timeframe"`,
		`<option value="24h" selected>24 Hours</option>`,
		`<option value="1h">Last Hour</option>`,
		`<option value="7d">7 Days</option>`,
		`<option value="30d">30 Days</option>`,
		`name="tab" value="errors"`,
		`href="/panels/abc?tab=bandwidth"`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q", want)
		}
	}
}

func TestSVGChart(t *testing.T) {
	sc := SVGChart{}

	empty := render(t, sc.Render(Chart{Title: "Requests"}))
	if !strings.Contains(empty, "No data for this timeframe") {
		t.Error("empty chart should say there is no data")
	}

	single := render(t, sc.Render(Chart{
		Title:  "Requests",
		Labels: []string{"10:00"},
		Series: []Series{{Name: "Requests", Color: "#2563eb", Values: []float64{5}}},
	}))
	if !strings.Contains(single, "<circle") || !strings.Contains(single, `data-points="1"`) {
		t.Errorf("single point should render as a dot: %s", single)
	}

	multi := render(t, sc.Render(Chart{
		Title:  "Bandwidth",
		Labels: []string{"a", "b", "c"},
		Series: []Series{
			{Name: "Incoming", Color: "#2563eb", Values: []float64{1, 2, 3}},
			{Name: "Outgoing", Color: "#16a34a", Values: []float64{3, 2, 1}},
		},
		Format: formatBytes,
	}))
	if strings.Count(multi, "<polyline") != 2 {
		t.Error("expected one polyline per series")
	}
	for _, want := range []string{`stroke="#2563eb"`, `stroke="#16a34a"`, ">Incoming<", ">Outgoing<", ">a<", ">c<", `data-points="3"`} {
		if !strings.Contains(multi, want) {
			t.Errorf("chart missing %q", want)
		}
	}
}

func TestForgeIcons(t *testing.T) {
	icons := ForgeIcons{Size: 16}

	ok := render(t, icons.Icon(IconSuccess))
	if !strings.Contains(ok, `data-icon="circle-check"`) {
		t.Error("success should render the circle-check icon")
	}
	warn := render(t, icons.Icon(IconWarning))
	if !strings.Contains(warn, "<svg") || strings.Contains(warn, "circle-check") {
		t.Error("warning should render a different svg icon")
	}
}

func TestParseTab(t *testing.T) {
	for _, tab := range Tabs() {
		if ParseTab(string(tab)) != tab {
			t.Errorf("ParseTab(%q) = %q", tab, ParseTab(string(tab)))
		}
	}
	if ParseTab("") != TabRequests || ParseTab("cpu") != TabRequests {
		t.Error("unknown tabs should fall back to requests")
	}
}

func TestPage(t *testing.T) {
	out := render(t, Page(PageProps{
		ProxyID:  "p1",
		PanelURL: "/panels/abc",
		Tab:      TabLatency,
	}, html.Div(g.Text("body"))))

	for _, want := range []string{
		`<html lang="en">`,
		`id="panel"`,
		`data-fragment-url="/panels/abc/fragment?tab=latency"`,
		`data-events-url="/panels/abc/events"`,
		`src="/static/panel.js"`,
		`>p1<`,
		`>body<`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("page missing %q", want)
		}
	}
	if !strings.HasPrefix(out, "<!doctype html>") {
		t.Errorf("page should start with a doctype: %.40q", out)
	}
}
