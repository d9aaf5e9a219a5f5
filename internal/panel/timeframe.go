package panel

import (
	"fmt"
	"time"
)

// Timeframe is the lookback window requested from the metrics source.
type Timeframe string

const (
	Timeframe1h  Timeframe = "1h"
	Timeframe24h Timeframe = "24h"
	Timeframe7d  Timeframe = "7d"
	Timeframe30d Timeframe = "30d"

	DefaultTimeframe = Timeframe1h
)

// TimeframeOption is one entry of the timeframe selector.
type TimeframeOption struct {
	Value Timeframe
	Label string
}

var timeframeOptions = []TimeframeOption{
	{Timeframe1h, "Last Hour"},
	{Timeframe24h, "24 Hours"},
	{Timeframe7d, "7 Days"},
	{Timeframe30d, "30 Days"},
}

// TimeframeOptions returns the selector options in display order.
func TimeframeOptions() []TimeframeOption {
	out := make([]TimeframeOption, len(timeframeOptions))
	copy(out, timeframeOptions)
	return out
}

// ParseTimeframe validates s as one of the four supported timeframes.
func ParseTimeframe(s string) (Timeframe, error) {
	tf := Timeframe(s)
	if !tf.Valid() {
		return "", fmt.Errorf("invalid timeframe %q (must be 1h|24h|7d|30d)", s)
	}
	return tf, nil
}

// Valid reports whether tf is a supported timeframe.
func (tf Timeframe) Valid() bool {
	switch tf {
	case Timeframe1h, Timeframe24h, Timeframe7d, Timeframe30d:
		return true
	}
	return false
}

// Duration returns the length of the window.
func (tf Timeframe) Duration() time.Duration {
	switch tf {
	case Timeframe24h:
		return 24 * time.Hour
	case Timeframe7d:
		return 7 * 24 * time.Hour
	case Timeframe30d:
		return 30 * 24 * time.Hour
	default:
		return time.Hour
	}
}

// Label returns the selector label.
func (tf Timeframe) Label() string {
	for _, o := range timeframeOptions {
		if o.Value == tf {
			return o.Label
		}
	}
	return string(tf)
}
