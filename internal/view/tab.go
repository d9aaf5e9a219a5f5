package view

// Tab selects which chart the performance card shows.
type Tab string

const (
	TabRequests  Tab = "requests"
	TabLatency   Tab = "latency"
	TabErrors    Tab = "errors"
	TabBandwidth Tab = "bandwidth"

	DefaultTab = TabRequests
)

var tabOrder = []Tab{TabRequests, TabLatency, TabErrors, TabBandwidth}

// Tabs returns the tabs in display order.
func Tabs() []Tab {
	out := make([]Tab, len(tabOrder))
	copy(out, tabOrder)
	return out
}

// ParseTab returns the tab named s, or DefaultTab for anything unknown.
func ParseTab(s string) Tab {
	t := Tab(s)
	for _, known := range tabOrder {
		if t == known {
			return t
		}
	}
	return DefaultTab
}

// Label returns the tab trigger text.
func (t Tab) Label() string {
	switch t {
	case TabLatency:
		return "Latency"
	case TabErrors:
		return "Errors"
	case TabBandwidth:
		return "Bandwidth"
	default:
		return "Requests"
	}
}
