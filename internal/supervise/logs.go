package supervise

import (
	"context"
	"log/slog"
	"time"

	"github.com/SmritiSatyan/garden/internal/events"
	"github.com/SmritiSatyan/garden/internal/log"
	"github.com/SmritiSatyan/garden/internal/logbuf"
	"github.com/SmritiSatyan/garden/internal/proc"
)

// LogEvent is the event name under which forwarded lines are emitted.
const LogEvent = "log"

// LogLine is one forwarded line of process output.
type LogLine struct {
	Timestamp time.Time   `json:"timestamp"`
	Origin    string      `json:"origin"`
	Level     log.Level   `json:"level"`
	Message   string      `json:"msg"`
	Stream    proc.Stream `json:"-"`
}

type streamLogsConfig struct {
	level log.Level
	now   func() time.Time
}

// StreamLogsOption configures StreamLogs.
type StreamLogsOption func(*streamLogsConfig)

// WithLevel sets the level attached to forwarded lines. The default is verbose.
func WithLevel(level log.Level) StreamLogsOption {
	return func(c *streamLogsConfig) {
		if level != "" {
			c.level = level
		}
	}
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) StreamLogsOption {
	return func(c *streamLogsConfig) {
		c.now = now
	}
}

// StreamLogs forwards every line h writes, on either stream, to emitter as a
// LogEvent carrying a LogLine. Lines are split per stream; a trailing
// partial line is emitted when the process closes. It returns immediately
// and does not influence any completion detector attached to h.
func StreamLogs(h proc.Handle, origin string, emitter events.Emitter, opts ...StreamLogsOption) {
	cfg := streamLogsConfig{
		level: log.LevelVerbose,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	splitters := make([]*logbuf.Splitter, 0, len(proc.Streams))
	removes := make([]func(), 0, len(proc.Streams))
	for _, s := range proc.Streams {
		sp := logbuf.NewSplitter(func(line string) {
			emitter.Emit(LogEvent, LogLine{
				Timestamp: cfg.now(),
				Origin:    origin,
				Level:     cfg.level,
				Message:   line,
				Stream:    s,
			})
		})
		splitters = append(splitters, sp)
		removes = append(removes, h.OnOutput(s, func(chunk []byte) {
			_, _ = sp.Write(chunk)
		}))
	}

	go func() {
		<-h.Closed()
		for _, remove := range removes {
			remove()
		}
		for _, sp := range splitters {
			sp.Flush()
		}
	}()
}

// SlogEmitter returns an Emitter that writes forwarded lines to logger at the
// slog level matching each line's Level. Other events are dropped.
func SlogEmitter(logger *slog.Logger) events.Emitter {
	return events.EmitterFunc(func(name string, payload any) {
		line, ok := payload.(LogLine)
		if !ok || name != LogEvent {
			return
		}
		logger.Log(context.Background(), log.SlogLevel(line.Level), line.Message,
			"origin", line.Origin, "stream", line.Stream.String())
	})
}
