// Package panel implements the metrics panel core: the snapshot model, the
// fetch lifecycle of a single panel and the values derived from a snapshot.
package panel

import (
	"bytes"
	"encoding/json"

	"proxy-metrics-panel/internal/util"
)

// Defaults used when a summary field is missing or empty.
const (
	DefaultUptime       = "100"
	DefaultResponseTime = "0"
)

// Scalar is a JSON string or number kept as received.
// Any other JSON type (null, bool, object, array) reads as absent.
type Scalar struct {
	v any // string or json.Number
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *Scalar) UnmarshalJSON(b []byte) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return err
	}
	switch v.(type) {
	case string, json.Number:
		s.v = v
	default:
		s.v = nil
	}
	return nil
}

// MarshalJSON implements json.Marshaler.
func (s Scalar) MarshalJSON() ([]byte, error) {
	if s.v == nil {
		return []byte("null"), nil
	}
	return json.Marshal(s.v)
}

// TextScalar returns a string Scalar.
func TextScalar(s string) Scalar {
	return Scalar{v: s}
}

// Text returns the value as it appeared in the payload.
func (s Scalar) Text() (string, bool) {
	return util.ToString(s.v)
}

// Float returns the numeric value, parsing numeric strings.
func (s Scalar) Float() (float64, bool) {
	return util.ToFloat64(s.v)
}

// truthy reports whether the value would survive a `value || default`
// fallback: empty strings and numeric zero do not.
func (s Scalar) truthy() bool {
	switch x := s.v.(type) {
	case string:
		return x != ""
	case json.Number:
		f, err := x.Float64()
		return err == nil && f != 0
	default:
		return false
	}
}

// Point is one sample of a single-valued series.
type Point struct {
	Timestamp Scalar  `json:"timestamp"`
	Value     float64 `json:"value"`
}

// UnmarshalJSON implements json.Unmarshaler. Numeric strings are accepted
// as values; any other non-numeric value reads as 0.
func (p *Point) UnmarshalJSON(b []byte) error {
	var raw struct {
		Timestamp Scalar `json:"timestamp"`
		Value     Scalar `json:"value"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	p.Timestamp = raw.Timestamp
	p.Value, _ = raw.Value.Float()
	return nil
}

// Label returns the opaque timestamp label of the point.
func (p Point) Label() string {
	s, _ := p.Timestamp.Text()
	return s
}

// BandwidthPoint is one sample of the bandwidth series.
type BandwidthPoint struct {
	Timestamp Scalar  `json:"timestamp"`
	Incoming  float64 `json:"incoming"`
	Outgoing  float64 `json:"outgoing"`
}

// UnmarshalJSON implements json.Unmarshaler with the same value coercion
// as Point.
func (p *BandwidthPoint) UnmarshalJSON(b []byte) error {
	var raw struct {
		Timestamp Scalar `json:"timestamp"`
		Incoming  Scalar `json:"incoming"`
		Outgoing  Scalar `json:"outgoing"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	p.Timestamp = raw.Timestamp
	p.Incoming, _ = raw.Incoming.Float()
	p.Outgoing, _ = raw.Outgoing.Float()
	return nil
}

// Label returns the opaque timestamp label of the point.
func (p BandwidthPoint) Label() string {
	s, _ := p.Timestamp.Text()
	return s
}

// Insight is a categorized observation attached to a snapshot.
type Insight struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// Success reports whether the insight is of the affirmative "success" type.
func (i Insight) Success() bool {
	return i.Type == "success"
}

// snapshotJSON mirrors the wire shape of GET /metrics/proxy/{id}/data.
type snapshotJSON struct {
	Health *struct {
		Score Scalar `json:"score"`
	} `json:"health"`
	Summary *struct {
		Uptime       Scalar `json:"uptime"`
		ResponseTime Scalar `json:"response_time"`
	} `json:"summary"`
	Requests  []Point          `json:"requests"`
	Latency   []Point          `json:"latency"`
	Errors    []Point          `json:"errors"`
	Bandwidth []BandwidthPoint `json:"bandwidth"`
	Insights  []Insight        `json:"insights"`
}

// Snapshot is one immutable metrics payload for a proxy and timeframe.
// All accessors are total: missing fields return their documented defaults
// and slices are returned as copies.
type Snapshot struct {
	raw snapshotJSON
}

// DecodeSnapshot parses a metrics payload.
func DecodeSnapshot(b []byte) (*Snapshot, error) {
	var raw snapshotJSON
	if err := util.DecodeJSON(b, &raw); err != nil {
		return nil, err
	}
	return &Snapshot{raw: raw}, nil
}

// HealthScore returns health.score, or 0 when it is absent or not numeric.
func (s *Snapshot) HealthScore() float64 {
	if s.raw.Health == nil {
		return 0
	}
	f, ok := s.raw.Health.Score.Float()
	if !ok {
		return 0
	}
	return f
}

// ScoreText returns health.score as it appeared in the payload, or "0"
// when HealthScore would be 0 for lack of a number.
func (s *Snapshot) ScoreText() string {
	if s.raw.Health == nil {
		return "0"
	}
	if _, ok := s.raw.Health.Score.Float(); !ok {
		return "0"
	}
	v, _ := s.raw.Health.Score.Text()
	return v
}

// Health classifies HealthScore.
func (s *Snapshot) Health() Health {
	return ClassifyHealth(s.HealthScore())
}

// Uptime returns summary.uptime verbatim, or DefaultUptime.
func (s *Snapshot) Uptime() string {
	if s.raw.Summary == nil || !s.raw.Summary.Uptime.truthy() {
		return DefaultUptime
	}
	v, _ := s.raw.Summary.Uptime.Text()
	return v
}

// ResponseTime returns summary.response_time verbatim, or DefaultResponseTime.
func (s *Snapshot) ResponseTime() string {
	if s.raw.Summary == nil || !s.raw.Summary.ResponseTime.truthy() {
		return DefaultResponseTime
	}
	v, _ := s.raw.Summary.ResponseTime.Text()
	return v
}

// Requests returns the request-count series.
func (s *Snapshot) Requests() []Point { return clonePoints(s.raw.Requests) }

// Latency returns the latency series.
func (s *Snapshot) Latency() []Point { return clonePoints(s.raw.Latency) }

// Errors returns the error-count series.
func (s *Snapshot) Errors() []Point { return clonePoints(s.raw.Errors) }

// Bandwidth returns the incoming/outgoing bandwidth series.
func (s *Snapshot) Bandwidth() []BandwidthPoint {
	if len(s.raw.Bandwidth) == 0 {
		return nil
	}
	out := make([]BandwidthPoint, len(s.raw.Bandwidth))
	copy(out, s.raw.Bandwidth)
	return out
}

// Insights returns the insights in source order.
func (s *Snapshot) Insights() []Insight {
	if len(s.raw.Insights) == 0 {
		return nil
	}
	out := make([]Insight, len(s.raw.Insights))
	copy(out, s.raw.Insights)
	return out
}

func clonePoints(in []Point) []Point {
	if len(in) == 0 {
		return nil
	}
	out := make([]Point, len(in))
	copy(out, in)
	return out
}
