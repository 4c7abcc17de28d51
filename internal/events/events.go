// Package events carries search progress to optional listeners. Publishing
// never blocks the search that emits the event.
package events

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

type EventType string

const (
	SearchStarted   EventType = "search.started"
	SourceCompleted EventType = "search.source_completed"
	SourceFailed    EventType = "search.source_failed"
	SearchCompleted EventType = "search.completed"
	SearchCancelled EventType = "search.cancelled"
	SearchFailed    EventType = "search.failed"
)

type Event struct {
	SessionID string    `json:"session_id"`
	Type      EventType `json:"type"`
	Payload   any       `json:"payload,omitempty"`
	At        time.Time `json:"at"`
}

type Sink interface {
	Publish(sessionID string, eventType EventType, payload any)
}

type NopSink struct{}

func (NopSink) Publish(string, EventType, any) {}

// Multi fans an event out to several sinks.
type Multi []Sink

func (m Multi) Publish(sessionID string, eventType EventType, payload any) {
	for _, s := range m {
		s.Publish(sessionID, eventType, payload)
	}
}

type LogSink struct {
	logger zerolog.Logger
}

func NewLogSink(logger zerolog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Publish(sessionID string, eventType EventType, payload any) {
	s.logger.Debug().
		Str("session_id", sessionID).
		Str("event", string(eventType)).
		Interface("payload", payload).
		Msg("search event")
}

// Hub delivers events to per-session subscribers through buffered channels.
// When a subscriber's buffer is full the event is dropped for that
// subscriber.
type Hub struct {
	mu      sync.RWMutex
	subs    map[string]map[chan Event]struct{}
	buffer  int
	dropped atomic.Int64
}

func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = 16
	}
	return &Hub{
		subs:   make(map[string]map[chan Event]struct{}),
		buffer: buffer,
	}
}

func (h *Hub) Publish(sessionID string, eventType EventType, payload any) {
	ev := Event{SessionID: sessionID, Type: eventType, Payload: payload, At: time.Now().UTC()}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for ch := range h.subs[sessionID] {
		select {
		case ch <- ev:
		default:
			h.dropped.Add(1)
		}
	}
}

// Subscribe returns a channel of events for one session and a function that
// ends the subscription and closes the channel.
func (h *Hub) Subscribe(sessionID string) (<-chan Event, func()) {
	ch := make(chan Event, h.buffer)

	h.mu.Lock()
	if h.subs[sessionID] == nil {
		h.subs[sessionID] = make(map[chan Event]struct{})
	}
	h.subs[sessionID][ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs[sessionID], ch)
			if len(h.subs[sessionID]) == 0 {
				delete(h.subs, sessionID)
			}
			h.mu.Unlock()
			close(ch)
		})
	}
}

func (h *Hub) Dropped() int64 {
	return h.dropped.Load()
}

// Terminal reports whether no further events follow an event of this type.
func Terminal(t EventType) bool {
	return t == SearchCompleted || t == SearchCancelled || t == SearchFailed
}
