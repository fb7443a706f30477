package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/SmritiSatyan/garden/internal/action"
	"github.com/SmritiSatyan/garden/internal/config"
	"github.com/SmritiSatyan/garden/internal/events"
	"github.com/SmritiSatyan/garden/internal/supervise"
)

// loadProject resolves --project to a project file and loads it.
func loadProject() (*config.Project, error) {
	path := projectPath
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("cannot access %s: %w", path, err)
	}
	if info.IsDir() {
		path, err = config.FindProject(path)
		if err != nil {
			return nil, fmt.Errorf("%w in %s or its parents", err, projectPath)
		}
	}
	return config.LoadProject(path)
}

// newBus returns an event bus that renders log lines and action status
// changes through the default logger.
func newBus() *events.Bus {
	bus := events.NewBus()
	lines := supervise.SlogEmitter(slog.Default())
	bus.On(supervise.LogEvent, func(ev events.Event) {
		lines.Emit(ev.Name, ev.Payload)
	})
	bus.On(action.StatusEvent, func(ev events.Event) {
		st, ok := ev.Payload.(action.Status)
		if !ok {
			return
		}
		attrs := []any{"action", st.Action, "state", st.State}
		if st.Error != "" {
			attrs = append(attrs, "error", st.Error)
		}
		slog.Debug("action status", attrs...)
	})
	return bus
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
