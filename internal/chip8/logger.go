package chip8

import (
	"log"
	"os"
)

// Logger receives the VM's non-fatal runtime warnings: unknown opcodes,
// out-of-range key lookups, and returns from an empty stack. Kept as a
// narrow interface so a host can swap in its own sink without the core
// depending on any particular logging library.
type Logger interface {
	Printf(format string, args ...any)
}

// stdLogger wraps the standard library's log.Logger, matching the plain
// fmt/log-based diagnostics the rest of this pack's examples use.
type stdLogger struct {
	l *log.Logger
}

// NewStdLogger returns a Logger that writes to stderr with a "chip8: "
// prefix.
func NewStdLogger() Logger {
	return &stdLogger{l: log.New(os.Stderr, "chip8: ", 0)}
}

func (s *stdLogger) Printf(format string, args ...any) {
	s.l.Printf(format, args...)
}

// dedupLogger wraps a Logger and suppresses repeat warnings for a key it
// has already seen, satisfying "at most once per distinct opcode/key".
type dedupLogger struct {
	inner Logger
	seen  map[string]bool
}

func newDedupLogger(inner Logger) *dedupLogger {
	return &dedupLogger{inner: inner, seen: make(map[string]bool)}
}

func (d *dedupLogger) warnOnce(key, format string, args ...any) {
	if d.seen[key] {
		return
	}
	d.seen[key] = true
	d.inner.Printf(format, args...)
}
