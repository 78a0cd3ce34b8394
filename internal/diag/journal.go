// Package diag aggregates per-worker log output for one engine run.
//
// Each worker writes through its own logiface logger into a private buffer, so
// the hot path never contends on a shared lock. The buffers are merged by
// timestamp when the run is flushed.
package diag

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
)

// Logger is the structured logger handed to workers and models.
type Logger = logiface.Logger[*stumpy.Event]

// TimeLayout is the timestamp format of flushed journal lines.
const TimeLayout = "2006-01-02 15:04:05.000000000"

// Level names accepted by ParseLevel.
const (
	LevelNone       = "none"
	LevelStatus     = "status"
	LevelDiagnostic = "diagnostic"
)

// ParseLevel maps a configured level name onto a logiface level. Unknown
// names fall back to status.
func ParseLevel(name string) logiface.Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case LevelNone, "off", "disabled":
		return logiface.LevelDisabled
	case LevelDiagnostic, "debug":
		return logiface.LevelDebug
	case "trace":
		return logiface.LevelTrace
	default:
		return logiface.LevelInformational
	}
}

// Entry is one captured log event.
type Entry struct {
	ID   int
	Time time.Time
	Line string
}

// Journal collects entries from every logger it has handed out.
type Journal struct {
	level logiface.Level
	echo  io.Writer
	now   func() time.Time

	mu    sync.Mutex
	sinks []*sink
}

// Option configures a Journal.
type Option func(*Journal)

// WithEcho copies every entry to w as it is written, in addition to buffering.
func WithEcho(w io.Writer) Option {
	return func(j *Journal) { j.echo = w }
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(j *Journal) { j.now = now }
}

// NewJournal returns an empty journal that logs at level and above.
func NewJournal(level logiface.Level, opts ...Option) *Journal {
	j := &Journal{level: level, now: time.Now}
	for _, o := range opts {
		o(j)
	}
	return j
}

// Level reports the configured level.
func (j *Journal) Level() logiface.Level { return j.level }

// Logger returns a new logger whose events are tagged with id.
func (j *Journal) Logger(id int) *Logger {
	s := &sink{id: id, journal: j}
	j.mu.Lock()
	j.sinks = append(j.sinks, s)
	j.mu.Unlock()
	return stumpy.L.New(
		stumpy.L.WithStumpy(
			stumpy.WithWriter(s),
			stumpy.WithTimeField(``),
		),
		stumpy.L.WithLevel(j.level),
	)
}

// Entries merges every sink by time. Entries with equal timestamps keep
// the order of their ids.
func (j *Journal) Entries() []Entry {
	j.mu.Lock()
	sinks := slices.Clone(j.sinks)
	j.mu.Unlock()

	var merged []Entry
	for _, s := range sinks {
		merged = append(merged, s.snapshot()...)
	}
	slices.SortStableFunc(merged, func(a, b Entry) int {
		if c := a.Time.Compare(b.Time); c != 0 {
			return c
		}
		return a.ID - b.ID
	})
	return merged
}

// WriteTo writes the merged journal to w, one line per entry.
func (j *Journal) WriteTo(w io.Writer) (int64, error) {
	bw := bufio.NewWriter(w)
	var n int64
	for _, e := range j.Entries() {
		c, err := fmt.Fprintf(bw, "[%d] %s: %s\n", e.ID, e.Time.Format(TimeLayout), e.Line)
		n += int64(c)
		if err != nil {
			return n, err
		}
	}
	return n, bw.Flush()
}

// Flush writes the merged journal to path. An empty path is a no-op.
func (j *Journal) Flush(path string) error {
	if path == "" {
		return nil
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("diag: create journal: %w", err)
	}
	if _, err := j.WriteTo(f); err != nil {
		_ = f.Close()
		return fmt.Errorf("diag: write journal: %w", err)
	}
	return f.Close()
}

type sink struct {
	id      int
	journal *Journal

	mu      sync.Mutex
	entries []Entry
}

// Write receives one complete stumpy event per call.
func (s *sink) Write(p []byte) (int, error) {
	line := string(bytes.TrimRight(p, "\n"))
	e := Entry{ID: s.id, Time: s.journal.now(), Line: line}
	s.mu.Lock()
	s.entries = append(s.entries, e)
	s.mu.Unlock()
	if w := s.journal.echo; w != nil {
		fmt.Fprintf(w, "[%d] %s: %s\n", e.ID, e.Time.Format(TimeLayout), e.Line)
	}
	return len(p), nil
}

func (s *sink) snapshot() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.entries)
}

// NewConsole returns a logger that writes stumpy JSON lines straight to w,
// for command-line progress rather than run diagnostics.
func NewConsole(w io.Writer, level logiface.Level) *Logger {
	return stumpy.L.New(
		stumpy.L.WithStumpy(stumpy.WithWriter(w)),
		stumpy.L.WithLevel(level),
	)
}
