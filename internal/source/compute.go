// Package source is the reference metrics source: it stores proxy traffic
// samples and serves GET /metrics/proxy/{proxyId}/data snapshots computed
// from them.
package source

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"proxy-metrics-panel/internal/panel"
	"proxy-metrics-panel/internal/storage"
)

// Recommendation thresholds.
const (
	slowResponseMs        = 500
	highErrorRatePct      = 5
	largeTransferPerReq   = 1_000_000
	maxAcceptableResponse = 1000
)

// Insight messages.
const (
	MsgSlowResponses = "Consider optimizing proxy configuration for better response times"
	MsgHighErrorRate = "Investigate error patterns and implement error handling improvements"
	MsgLargeTransfer = "Consider implementing response compression to reduce data transfer"
	MsgAllGood       = "Proxy is operating within normal parameters"
)

// Summary aggregates the samples of one window.
type Summary struct {
	TotalRequests   int     `json:"total_requests"`
	TotalBytesIn    int64   `json:"total_bytes_in"`
	TotalBytesOut   int64   `json:"total_bytes_out"`
	AvgResponseTime float64 `json:"avg_response_time"`
	ErrorRate       float64 `json:"error_rate"`
	SuccessRate     float64 `json:"success_rate"`
}

// Summarize aggregates samples. Every sample counts as one request and a
// sample with any errors counts as one failed request. An empty window is
// fully successful.
func Summarize(samples []storage.Sample) Summary {
	if len(samples) == 0 {
		return Summary{SuccessRate: 100}
	}

	var sum Summary
	var respTotal float64
	var failed int
	for _, smp := range samples {
		sum.TotalBytesIn += smp.IncomingBytes
		sum.TotalBytesOut += smp.OutgoingBytes
		respTotal += smp.ResponseTimeMs
		if smp.ErrorCount > 0 {
			failed++
		}
	}
	sum.TotalRequests = len(samples)
	sum.AvgResponseTime = respTotal / float64(len(samples))
	sum.ErrorRate = float64(failed) / float64(len(samples)) * 100
	sum.SuccessRate = 100 - sum.ErrorRate
	return sum
}

// HealthScore weighs success rate (40%), response time (30%, linear down to
// zero at one second) and error rate (30%) into a 0-100 score.
func HealthScore(sum Summary) float64 {
	respScore := math.Max(0, 100*(1-sum.AvgResponseTime/maxAcceptableResponse))
	score := 0.4*sum.SuccessRate + 0.3*respScore + 0.3*(100-sum.ErrorRate)
	return math.Min(100, math.Max(0, score))
}

// Series holds the binned chart data of one window.
type Series struct {
	Requests  []panel.Point
	Latency   []panel.Point
	Errors    []panel.Point
	Bandwidth []panel.BandwidthPoint
}

// Bin groups samples into the fixed bins used for window. Bins end at the
// bin containing now; samples outside the bins are ignored.
func Bin(samples []storage.Sample, window time.Duration, now time.Time) Series {
	bins, interval := storage.GetBinConfig(window)
	start := now.Truncate(interval).Add(-time.Duration(bins-1) * interval)

	counts := make([]int64, bins)
	errs := make([]int64, bins)
	resp := make([]float64, bins)
	in := make([]int64, bins)
	out := make([]int64, bins)

	for _, smp := range samples {
		d := smp.Time().Sub(start)
		if d < 0 {
			continue
		}
		idx := int(d / interval)
		if idx >= bins {
			continue
		}
		counts[idx]++
		errs[idx] += smp.ErrorCount
		resp[idx] += smp.ResponseTimeMs
		in[idx] += smp.IncomingBytes
		out[idx] += smp.OutgoingBytes
	}

	s := Series{
		Requests:  make([]panel.Point, bins),
		Latency:   make([]panel.Point, bins),
		Errors:    make([]panel.Point, bins),
		Bandwidth: make([]panel.BandwidthPoint, bins),
	}
	for i := 0; i < bins; i++ {
		label := panel.TextScalar(binLabel(start.Add(time.Duration(i)*interval), window))
		var avg float64
		if counts[i] > 0 {
			avg = round2(resp[i] / float64(counts[i]))
		}
		s.Requests[i] = panel.Point{Timestamp: label, Value: float64(counts[i])}
		s.Latency[i] = panel.Point{Timestamp: label, Value: avg}
		s.Errors[i] = panel.Point{Timestamp: label, Value: float64(errs[i])}
		s.Bandwidth[i] = panel.BandwidthPoint{Timestamp: label, Incoming: float64(in[i]), Outgoing: float64(out[i])}
	}
	return s
}

func binLabel(t time.Time, window time.Duration) string {
	t = t.UTC()
	switch {
	case window <= 24*time.Hour:
		return t.Format("15:04")
	case window <= 7*24*time.Hour:
		return t.Format("Jan 2 15:04")
	default:
		return t.Format("Jan 2")
	}
}

// Trend compares the request volume of the second half of the series with
// the first half.
func Trend(requests []panel.Point) string {
	if len(requests) < 2 {
		return "stable"
	}
	first, second := halves(requests)
	switch {
	case second > first:
		return "increasing"
	case second < first:
		return "decreasing"
	default:
		return "stable"
	}
}

func halves(points []panel.Point) (first, second float64) {
	mid := len(points) / 2
	for i, p := range points {
		if i < mid {
			first += p.Value
		} else {
			second += p.Value
		}
	}
	return first, second
}

// Insights derives the observations shown under the charts, most severe
// first. A window that triggers no recommendation gets one success insight.
// Peak and quiet traffic bins follow as info insights.
func Insights(sum Summary, requests []panel.Point) []panel.Insight {
	var out []panel.Insight

	if sum.ErrorRate > highErrorRatePct {
		out = append(out, panel.Insight{Type: "destructive", Message: MsgHighErrorRate})
	}
	if sum.AvgResponseTime > slowResponseMs {
		out = append(out, panel.Insight{Type: "warning", Message: MsgSlowResponses})
	}
	if sum.TotalRequests > 0 {
		perReq := float64(sum.TotalBytesIn+sum.TotalBytesOut) / float64(sum.TotalRequests)
		if perReq > largeTransferPerReq {
			out = append(out, panel.Insight{Type: "warning", Message: MsgLargeTransfer})
		}
	}
	if Trend(requests) == "increasing" {
		first, second := halves(requests)
		out = append(out, panel.Insight{
			Type: "warning",
			Message: "Traffic is increasing: " + humanize.Comma(int64(second)) +
				" requests in the recent half of the window against " + humanize.Comma(int64(first)) + " before",
		})
	}

	if len(out) == 0 {
		out = append(out, panel.Insight{Type: "success", Message: MsgAllGood})
	}

	p := Pattern(requests)
	if len(p.PeakBins) > 0 {
		out = append(out, panel.Insight{
			Type: "info",
			Message: "Peak traffic at " + joinLabels(p.PeakBins) + " (peak " + humanize.Comma(int64(p.Peak)) +
				" requests per interval, average " + humanize.CommafWithDigits(p.Avg, 2) + ")",
		})
	}
	if len(p.QuietBins) > 0 {
		out = append(out, panel.Insight{
			Type:    "info",
			Message: "Quiet traffic at " + joinLabels(p.QuietBins),
		})
	}
	return out
}

// maxPatternLabels bounds how many bins one pattern insight names.
const maxPatternLabels = 5

// TrafficPattern describes how requests spread over the bins of a window.
type TrafficPattern struct {
	Avg  float64
	Peak float64
	// PeakBins and QuietBins are the labels of bins more than one standard
	// deviation above or below Avg, in series order.
	PeakBins  []string
	QuietBins []string
}

// Pattern finds the peak and quiet bins of a requests series.
func Pattern(requests []panel.Point) TrafficPattern {
	var p TrafficPattern
	if len(requests) == 0 {
		return p
	}

	var total float64
	for _, pt := range requests {
		total += pt.Value
		if pt.Value > p.Peak {
			p.Peak = pt.Value
		}
	}
	n := float64(len(requests))
	p.Avg = total / n

	var variance float64
	for _, pt := range requests {
		d := pt.Value - p.Avg
		variance += d * d
	}
	std := math.Sqrt(variance / n)

	for _, pt := range requests {
		switch {
		case pt.Value > p.Avg+std:
			p.PeakBins = append(p.PeakBins, pt.Label())
		case pt.Value < p.Avg-std:
			p.QuietBins = append(p.QuietBins, pt.Label())
		}
	}
	return p
}

func joinLabels(labels []string) string {
	if len(labels) <= maxPatternLabels {
		return strings.Join(labels, ", ")
	}
	return strings.Join(labels[:maxPatternLabels], ", ") + " and " + strconv.Itoa(len(labels)-maxPatternLabels) + " more"
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}

func formatPercent(f float64) string {
	return strconv.FormatFloat(round2(f), 'f', -1, 64)
}

func formatMillis(f float64) string {
	return strconv.FormatInt(int64(math.Round(f)), 10)
}
