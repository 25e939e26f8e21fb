// Package realtime delivers row change events to subscribers. Delivery is best
// effort: events may be dropped, duplicated or reordered, and subscribers must
// tolerate all three.
package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"
)

type EventType string

const (
	EventInsert EventType = "INSERT"
	EventUpdate EventType = "UPDATE"
)

const (
	TableTickets         = "tickets"
	TableChatMessages    = "chat_messages"
	TableLogs            = "logs"
	TableRecommendations = "recommendations"
)

// Event describes one inserted or updated row
type Event struct {
	Table      string          `json:"table"`
	Type       EventType       `json:"type"`
	TicketID   uint            `json:"ticket_id,omitempty"`
	Record     json.RawMessage `json:"record,omitempty"`
	OccurredAt time.Time       `json:"occurred_at"`
}

// NewEvent serialises record into an event
func NewEvent(table string, typ EventType, ticketID uint, record any) (Event, error) {
	raw, err := json.Marshal(record)
	if err != nil {
		return Event{}, err
	}
	return Event{
		Table:      table,
		Type:       typ,
		TicketID:   ticketID,
		Record:     raw,
		OccurredAt: time.Now().UTC(),
	}, nil
}

// Publisher accepts events for delivery
type Publisher interface {
	Publish(ctx context.Context, evt Event) error
}

// Filter selects the events a subscriber wants; nil matches everything
type Filter func(Event) bool

// ForTicket matches events scoped to one ticket
func ForTicket(ticketID uint) Filter {
	return func(evt Event) bool {
		return evt.TicketID == ticketID
	}
}

type subscription struct {
	table  string
	filter Filter
	fn     func(Event)
}

// Hub fans events out to in-process subscribers
type Hub struct {
	mu   sync.RWMutex
	next uint64
	subs map[uint64]subscription
}

func NewHub() *Hub {
	return &Hub{subs: make(map[uint64]subscription)}
}

// Subscribe registers fn for events on table that pass filter. The returned
// function removes the subscription and is safe to call more than once.
func (h *Hub) Subscribe(table string, filter Filter, fn func(Event)) func() {
	h.mu.Lock()
	id := h.next
	h.next++
	h.subs[id] = subscription{table: table, filter: filter, fn: fn}
	h.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			h.mu.Unlock()
		})
	}
}

// Publish calls every matching subscriber on the caller's goroutine
func (h *Hub) Publish(_ context.Context, evt Event) error {
	h.mu.RLock()
	matched := make([]func(Event), 0, len(h.subs))
	for _, sub := range h.subs {
		if sub.table != evt.Table {
			continue
		}
		if sub.filter != nil && !sub.filter(evt) {
			continue
		}
		matched = append(matched, sub.fn)
	}
	h.mu.RUnlock()

	for _, fn := range matched {
		fn(evt)
	}
	return nil
}

// Subscribers returns the number of live subscriptions
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Stream subscribes until ctx is done and returns the events on a buffered
// channel. A full buffer drops events instead of blocking the publisher. The
// channel is never closed; readers select on ctx.Done as well.
func (h *Hub) Stream(ctx context.Context, table string, filter Filter, buffer int) <-chan Event {
	if buffer <= 0 {
		buffer = 16
	}
	ch := make(chan Event, buffer)
	unsubscribe := h.Subscribe(table, filter, func(evt Event) {
		select {
		case ch <- evt:
		default:
		}
	})
	go func() {
		<-ctx.Done()
		unsubscribe()
	}()
	return ch
}

// Fanout publishes each event to every publisher in order
type Fanout []Publisher

func (f Fanout) Publish(ctx context.Context, evt Event) error {
	var errs []error
	for _, p := range f {
		if err := p.Publish(ctx, evt); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Discard drops every event
type Discard struct{}

func (Discard) Publish(context.Context, Event) error { return nil }
