// Package record collects typed per-tick rows from every worker of a run and
// flushes them as CSV or into a SQLite table.
package record

import (
	"cmp"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Row is one model-defined record. Format returns the column values in the
// order of the header given to NewBook.
type Row interface {
	Format() []string
}

// Entry is a row stamped with the tick and the wall time it was recorded at.
type Entry[R Row] struct {
	Tick uint64
	Time time.Time
	Row  R
}

// Book is the per-run aggregator of every Recorder it has created.
type Book[R Row] struct {
	header []string
	now    func() time.Time

	mu        sync.Mutex
	recorders []*Recorder[R]
}

// NewBook returns an empty book whose flushed output uses header after the
// leading tick and time columns.
func NewBook[R Row](header []string) *Book[R] {
	return &Book[R]{header: slices.Clone(header), now: time.Now}
}

// Header returns the full column list including tick and time.
func (b *Book[R]) Header() []string {
	return append([]string{"tick", "time"}, b.header...)
}

// Recorder returns a new recorder that reads the current tick from tick.
// A Recorder must only be used by one goroutine at a time.
func (b *Book[R]) Recorder(tick func() uint64) *Recorder[R] {
	r := &Recorder[R]{tick: tick, now: b.now}
	b.mu.Lock()
	b.recorders = append(b.recorders, r)
	b.mu.Unlock()
	return r
}

// Entries merges every recorder ordered by tick, then time. It must only be
// called once the recorders have stopped, normally after the engine drained.
func (b *Book[R]) Entries() []Entry[R] {
	b.mu.Lock()
	recorders := slices.Clone(b.recorders)
	b.mu.Unlock()

	var merged []Entry[R]
	for _, r := range recorders {
		merged = append(merged, r.entries...)
	}
	slices.SortStableFunc(merged, func(a, c Entry[R]) int {
		if n := cmp.Compare(a.Tick, c.Tick); n != 0 {
			return n
		}
		return a.Time.Compare(c.Time)
	})
	return merged
}

// Len is the number of rows recorded. Like Entries it must only be called
// once the recorders have stopped.
func (b *Book[R]) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, r := range b.recorders {
		n += len(r.entries)
	}
	return n
}

// WriteCSV writes the merged rows to w.
func (b *Book[R]) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(b.Header()); err != nil {
		return err
	}
	for _, e := range b.Entries() {
		row := append([]string{strconv.FormatUint(e.Tick, 10), formatTime(e.Time)}, e.Row.Format()...)
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Flush writes the merged rows to path. Paths ending in .db, .sqlite or
// .sqlite3 are written as a SQLite table, anything else as CSV. An empty path
// is a no-op.
func (b *Book[R]) Flush(path string) error {
	if path == "" {
		return nil
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("record: %w", err)
		}
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".db", ".sqlite", ".sqlite3":
		return b.writeSQLite(path)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("record: create: %w", err)
	}
	if err := b.WriteCSV(f); err != nil {
		_ = f.Close()
		return fmt.Errorf("record: write csv: %w", err)
	}
	return f.Close()
}

func formatTime(t time.Time) string {
	return t.Format("2006-01-02 15:04:05.000000000")
}

// Recorder is the per-worker sink handed to models.
type Recorder[R Row] struct {
	tick    func() uint64
	now     func() time.Time
	entries []Entry[R]
}

// Record stamps row with the current tick and time.
func (r *Recorder[R]) Record(row R) {
	if r == nil {
		return
	}
	r.entries = append(r.entries, Entry[R]{Tick: r.tick(), Time: r.now(), Row: row})
}
