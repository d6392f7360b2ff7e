package realtime

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// EventType mirrors the row-level change kinds of the storage tables.
type EventType string

const (
	EventInsert EventType = "INSERT"
	EventUpdate EventType = "UPDATE"
	EventDelete EventType = "DELETE"
)

// Event describes one change notification.
type Event struct {
	Table    string    `json:"table"`
	Type     EventType `json:"type"`
	RecordID string    `json:"record_id,omitempty"`
	At       time.Time `json:"at"`
}

// Filter selects events; empty fields match everything.
type Filter struct {
	Table string
	Type  EventType
}

// Match reports whether the event passes the filter.
func (f Filter) Match(e Event) bool {
	if f.Table != "" && f.Table != e.Table {
		return false
	}
	if f.Type != "" && f.Type != e.Type {
		return false
	}
	return true
}

type subscription struct {
	filter Filter
	ch     chan Event
}

// Hub fans change events out to in-process subscribers.
// Publish never blocks; a subscriber whose buffer is full misses the event.
type Hub struct {
	mu     sync.RWMutex
	subs   map[uint64]*subscription
	nextID uint64
	logger *zap.Logger
	now    func() time.Time
}

// NewHub creates an empty hub.
func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		subs:   make(map[uint64]*subscription),
		logger: logger,
		now:    time.Now,
	}
}

// Subscribe registers a filtered subscription. The returned cancel func
// unregisters it and closes the channel; it is safe to call more than once.
func (h *Hub) Subscribe(filter Filter, buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = 1
	}
	sub := &subscription{filter: filter, ch: make(chan Event, buffer)}

	h.mu.Lock()
	h.nextID++
	id := h.nextID
	h.subs[id] = sub
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			h.mu.Unlock()
			close(sub.ch)
		})
	}
	return sub.ch, cancel
}

// Publish delivers the event to every matching subscriber.
func (h *Hub) Publish(e Event) {
	if h == nil {
		return
	}
	if e.At.IsZero() {
		e.At = h.now()
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, sub := range h.subs {
		if !sub.filter.Match(e) {
			continue
		}
		select {
		case sub.ch <- e:
		default:
			h.logger.Warn("realtime subscriber is full, dropping event",
				zap.String("table", e.Table), zap.String("type", string(e.Type)))
		}
	}
}

// Subscribers returns the number of live subscriptions.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
