package proc

import "sync"

// DefaultHistoryLimit bounds the output retained per stream for replay.
const DefaultHistoryLimit = 1 << 20

// hub fans output chunks out to registered listeners.
//
// Every chunk is also kept in a per-stream history bounded by limit bytes
// (oldest chunks dropped first). A new listener is handed the retained
// history before any live chunk, so attaching after the process started, or
// after it exited, loses nothing that is still retained.
type hub struct {
	limit int

	mu        sync.Mutex
	next      uint64
	listeners [2]map[uint64]func([]byte)
	history   [2][][]byte
	size      [2]int
	closed    bool

	// deliver serializes delivery per stream so the replay and live chunks
	// never interleave.
	deliver [2]sync.Mutex
}

func newHub(limit int) *hub {
	if limit == 0 {
		limit = DefaultHistoryLimit
	}
	h := &hub{limit: limit}
	for i := range h.listeners {
		h.listeners[i] = make(map[uint64]func([]byte))
	}
	return h
}

func (h *hub) add(s Stream, fn func([]byte)) func() {
	if s != Stdout && s != Stderr {
		return func() {}
	}

	h.deliver[s].Lock()
	defer h.deliver[s].Unlock()

	h.mu.Lock()
	replay := make([][]byte, len(h.history[s]))
	copy(replay, h.history[s])
	closed := h.closed
	id := h.next
	if !closed {
		h.next++
		h.listeners[s][id] = fn
	}
	h.mu.Unlock()

	for _, chunk := range replay {
		fn(chunk)
	}
	if closed {
		return func() {}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.listeners[s], id)
			h.mu.Unlock()
		})
	}
}

func (h *hub) dispatch(s Stream, chunk []byte) {
	h.deliver[s].Lock()
	defer h.deliver[s].Unlock()

	h.mu.Lock()
	h.retain(s, chunk)
	fns := make([]func([]byte), 0, len(h.listeners[s]))
	for _, fn := range h.listeners[s] {
		fns = append(fns, fn)
	}
	h.mu.Unlock()

	for _, fn := range fns {
		fn(chunk)
	}
}

// retain must be called with mu held.
func (h *hub) retain(s Stream, chunk []byte) {
	if h.limit < 0 {
		return
	}
	h.history[s] = append(h.history[s], chunk)
	h.size[s] += len(chunk)
	for h.size[s] > h.limit && len(h.history[s]) > 1 {
		h.size[s] -= len(h.history[s][0])
		h.history[s][0] = nil
		h.history[s] = h.history[s][1:]
	}
}

// close drops every listener. The history stays available for replay.
func (h *hub) close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for i := range h.listeners {
		h.listeners[i] = make(map[uint64]func([]byte))
	}
}

func (h *hub) listenerCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.listeners[Stdout]) + len(h.listeners[Stderr])
}
