// Package events carries structured events (forwarded log lines and the
// like) from supervision code to whoever renders or records them.
package events

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/SmritiSatyan/garden/internal/logbuf"
)

// Emitter publishes a named event.
type Emitter interface {
	Emit(name string, payload any)
}

// EmitterFunc adapts a function to Emitter.
type EmitterFunc func(name string, payload any)

func (f EmitterFunc) Emit(name string, payload any) { f(name, payload) }

// Discard drops every event.
var Discard Emitter = EmitterFunc(func(string, any) {})

// Event is one emitted event.
type Event struct {
	Name    string
	Payload any
}

// Handler receives events.
type Handler func(Event)

// Bus is a synchronous in-process Emitter. Handlers run on the emitting
// goroutine in registration order; a panicking handler is logged and skipped.
type Bus struct {
	mu       sync.RWMutex
	next     uint64
	handlers map[string]map[uint64]Handler
	logger   *slog.Logger
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{
		handlers: make(map[string]map[uint64]Handler),
		logger:   slog.With("component", "events"),
	}
}

// On registers h for events called name. "*" receives every event.
func (b *Bus) On(name string, h Handler) (off func()) {
	b.mu.Lock()
	id := b.next
	b.next++
	if b.handlers[name] == nil {
		b.handlers[name] = make(map[uint64]Handler)
	}
	b.handlers[name][id] = h
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.handlers[name], id)
			b.mu.Unlock()
		})
	}
}

func (b *Bus) Emit(name string, payload any) {
	ev := Event{Name: name, Payload: payload}
	for _, h := range b.snapshot(name) {
		b.call(h, ev)
	}
}

func (b *Bus) snapshot(name string) []Handler {
	b.mu.RLock()
	defer b.mu.RUnlock()

	type entry struct {
		id uint64
		h  Handler
	}
	var entries []entry
	for _, key := range []string{name, "*"} {
		if key == "*" && name == "*" {
			continue
		}
		for id, h := range b.handlers[key] {
			entries = append(entries, entry{id, h})
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].id < entries[j].id })

	hs := make([]Handler, len(entries))
	for i, e := range entries {
		hs[i] = e.h
	}
	return hs
}

func (b *Bus) call(h Handler, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event handler panicked", "event", ev.Name, "panic", fmt.Sprint(r))
		}
	}()
	h(ev)
}

// History keeps the most recent events it receives.
type History struct {
	ring *logbuf.Ring[Event]
}

// NewHistory returns a History holding up to n events.
func NewHistory(n int) *History {
	return &History{ring: logbuf.New[Event](n)}
}

// Handle records ev. It satisfies Handler.
func (h *History) Handle(ev Event) { h.ring.Add(ev) }

// Last returns up to n of the most recent events, oldest first.
func (h *History) Last(n int) []Event { return h.ring.Last(n) }

// All returns every retained event, oldest first.
func (h *History) All() []Event { return h.ring.All() }
