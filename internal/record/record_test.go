package record

import (
	"bytes"
	"database/sql"
	"encoding/csv"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type event struct {
	Kind  string
	Index int
}

func (e event) Format() []string { return []string{e.Kind, strconv.Itoa(e.Index)} }

func newTestBook(t *testing.T) (*Book[event], *uint64) {
	t.Helper()
	var tick uint64
	b := NewBook[event]([]string{"Kind", "Index"})
	a := b.Recorder(func() uint64 { return tick })
	c := b.Recorder(func() uint64 { return tick })

	tick = 2
	a.Record(event{"late", 1})
	tick = 0
	c.Record(event{"early", 2})
	tick = 1
	a.Record(event{"middle", 3})
	return b, &tick
}

func TestEntriesOrderedByTick(t *testing.T) {
	b, _ := newTestBook(t)
	entries := b.Entries()
	require.Len(t, entries, 3)
	assert.Equal(t, "early", entries[0].Row.Kind)
	assert.Equal(t, "middle", entries[1].Row.Kind)
	assert.Equal(t, "late", entries[2].Row.Kind)
	assert.Equal(t, 3, b.Len())
}

func TestWriteCSV(t *testing.T) {
	b, _ := newTestBook(t)
	var buf bytes.Buffer
	require.NoError(t, b.WriteCSV(&buf))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, []string{"tick", "time", "Kind", "Index"}, rows[0])
	assert.Equal(t, "0", rows[1][0])
	assert.Equal(t, []string{"early", "2"}, rows[1][2:])
	assert.Equal(t, []string{"late", "1"}, rows[3][2:])
}

func TestNilRecorderIsNoop(t *testing.T) {
	var r *Recorder[event]
	assert.NotPanics(t, func() { r.Record(event{"x", 1}) })
}

func TestFlushEmptyPath(t *testing.T) {
	b, _ := newTestBook(t)
	assert.NoError(t, b.Flush(""))
}

func TestFlushSQLite(t *testing.T) {
	b, _ := newTestBook(t)
	path := filepath.Join(t.TempDir(), "out", "records.db")
	require.NoError(t, b.Flush(path))

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	defer db.Close()

	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM "+Table).Scan(&count))
	assert.Equal(t, 3, count)

	var kind string
	var tick int64
	require.NoError(t, db.QueryRow(`SELECT "tick", "Kind" FROM `+Table+` ORDER BY "tick" DESC LIMIT 1`).Scan(&tick, &kind))
	assert.Equal(t, int64(2), tick)
	assert.Equal(t, "late", kind)
}
