// Package warnings emits user-facing warnings that should be shown at most
// once per process.
package warnings

import (
	"context"
	"log/slog"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

var style = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))

// History remembers which warning messages have already been emitted.
type History struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

// NewHistory returns an empty History.
func NewHistory() *History {
	return &History{seen: make(map[string]struct{})}
}

// EmitNonRepeatable logs msg at warn level on logger unless the same message
// was emitted through h before.
func (h *History) EmitNonRepeatable(ctx context.Context, logger *slog.Logger, msg string) bool {
	h.mu.Lock()
	if _, ok := h.seen[msg]; ok {
		h.mu.Unlock()
		return false
	}
	h.seen[msg] = struct{}{}
	h.mu.Unlock()

	logger.WarnContext(ctx, style.Render(msg), "symbol", "warning")
	return true
}

// Seen reports whether msg has been emitted.
func (h *History) Seen(msg string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, ok := h.seen[msg]
	return ok
}

// Reset forgets every emitted message.
func (h *History) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	clear(h.seen)
}

var global = NewHistory()

// EmitNonRepeatable emits msg through the process-wide History.
func EmitNonRepeatable(ctx context.Context, logger *slog.Logger, msg string) bool {
	return global.EmitNonRepeatable(ctx, logger, msg)
}

// Reset clears the process-wide History.
func Reset() {
	global.Reset()
}
