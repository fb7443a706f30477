package logbuf

import (
	"bytes"
	"strings"
	"sync"
	"unicode/utf8"
)

// Splitter turns arbitrary byte chunks into complete lines. A line is only
// emitted once its trailing newline arrives, or when Flush is called at the
// end of the stream.
type Splitter struct {
	mu sync.Mutex
	fn func(line string)
	// partial holds an incomplete line (no trailing newline yet)
	partial bytes.Buffer
}

// NewSplitter returns a Splitter calling fn for each line, without the
// trailing newline or carriage return.
func NewSplitter(fn func(line string)) *Splitter {
	return &Splitter{fn: fn}
}

// Write implements io.Writer. It never fails.
func (s *Splitter) Write(p []byte) (int, error) {
	s.mu.Lock()
	var lines []string
	s.partial.Write(p)
	for {
		i := bytes.IndexByte(s.partial.Bytes(), '\n')
		if i < 0 {
			break
		}
		line := s.partial.Next(i + 1)
		lines = append(lines, decode(line[:i]))
	}
	if s.partial.Len() == 0 {
		s.partial.Reset()
	}
	s.mu.Unlock()

	for _, line := range lines {
		s.fn(line)
	}
	return len(p), nil
}

// Flush emits the buffered partial line, if any.
func (s *Splitter) Flush() {
	s.mu.Lock()
	if s.partial.Len() == 0 {
		s.mu.Unlock()
		return
	}
	line := decode(s.partial.Bytes())
	s.partial.Reset()
	s.mu.Unlock()

	s.fn(line)
}

// decode trims a trailing carriage return and replaces invalid UTF-8.
func decode(b []byte) string {
	b = bytes.TrimSuffix(b, []byte("\r"))
	if utf8.Valid(b) {
		return string(b)
	}
	return strings.ToValidUTF8(string(b), string(utf8.RuneError))
}
