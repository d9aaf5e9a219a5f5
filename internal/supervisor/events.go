package supervisor

import (
	"encoding/json"
	"sync"
	"time"
)

// EventType represents the type of panel lifecycle event.
type EventType string

const (
	EventPanelMounted   EventType = "panel_mounted"
	EventStateChanged   EventType = "state_changed"
	EventPanelUnmounted EventType = "panel_unmounted"
)

// Event represents a lifecycle event for a mounted panel.
type Event struct {
	Type      EventType `json:"type"`
	PanelID   string    `json:"panel_id"`
	ProxyID   string    `json:"proxy_id"`
	Timestamp time.Time `json:"timestamp"`
	Status    string    `json:"status,omitempty"`
	Timeframe string    `json:"timeframe,omitempty"`
	Token     uint64    `json:"token,omitempty"`
	Error     string    `json:"error,omitempty"`
}

// EventBus manages event publishing and subscription for SSE consumers.
type EventBus struct {
	events      chan Event
	subscribers map[chan Event]struct{}
	mu          sync.RWMutex
	shutdown    chan struct{}
	once        sync.Once
}

// NewEventBus creates a new event bus with the specified buffer size.
func NewEventBus(bufferSize int) *EventBus {
	eb := &EventBus{
		events:      make(chan Event, bufferSize),
		subscribers: make(map[chan Event]struct{}),
		shutdown:    make(chan struct{}),
	}

	go eb.forward()

	return eb
}

// forward forwards events from the main channel to all subscribers.
func (eb *EventBus) forward() {
	for {
		select {
		case event, ok := <-eb.events:
			if !ok {
				return
			}
			eb.mu.RLock()
			subs := make([]chan Event, 0, len(eb.subscribers))
			for ch := range eb.subscribers {
				subs = append(subs, ch)
			}
			eb.mu.RUnlock()

			// Send to all subscribers (non-blocking)
			for _, ch := range subs {
				select {
				case ch <- event:
				default:
					// Subscriber channel is full, skip (fail-open)
				}
			}
		case <-eb.shutdown:
			return
		}
	}
}

// Publish publishes an event. This is non-blocking and will drop events if the buffer is full.
func (eb *EventBus) Publish(event Event) {
	select {
	case <-eb.shutdown:
		return
	default:
	}
	select {
	case eb.events <- event:
	default:
		// Buffer full, drop event (fail-open)
	}
}

// Subscribe creates a new subscription channel for SSE consumers.
func (eb *EventBus) Subscribe() chan Event {
	ch := make(chan Event, 10)
	eb.mu.Lock()
	eb.subscribers[ch] = struct{}{}
	eb.mu.Unlock()
	return ch
}

// Unsubscribe removes a subscription channel and closes it.
func (eb *EventBus) Unsubscribe(ch chan Event) {
	eb.mu.Lock()
	if _, exists := eb.subscribers[ch]; exists {
		delete(eb.subscribers, ch)
		close(ch)
	}
	eb.mu.Unlock()
}

// Shutdown stops the forward goroutine and closes every subscriber channel.
// The events channel is left open so a late Publish never panics.
func (eb *EventBus) Shutdown() {
	eb.once.Do(func() {
		close(eb.shutdown)

		eb.mu.Lock()
		for ch := range eb.subscribers {
			close(ch)
		}
		eb.subscribers = make(map[chan Event]struct{})
		eb.mu.Unlock()
	})
}

// FormatSSEEvent formats an event as Server-Sent Events format.
func FormatSSEEvent(event Event) (string, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return "", err
	}
	return "event: " + string(event.Type) + "\ndata: " + string(data) + "\n\n", nil
}
