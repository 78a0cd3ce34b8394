package record

import (
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

// Table is the SQLite table that Flush writes into.
const Table = "records"

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func (b *Book[R]) writeSQLite(path string) (err error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return fmt.Errorf("record: open sqlite: %w", err)
	}
	defer func() {
		if cerr := db.Close(); err == nil && cerr != nil {
			err = cerr
		}
	}()

	cols := []string{`"tick" INTEGER NOT NULL`, `"time" TEXT NOT NULL`}
	names := []string{`"tick"`, `"time"`}
	for _, h := range b.header {
		cols = append(cols, quoteIdent(h)+" TEXT")
		names = append(names, quoteIdent(h))
	}
	if _, err = db.Exec("DROP TABLE IF EXISTS " + Table); err != nil {
		return fmt.Errorf("record: drop table: %w", err)
	}
	if _, err = db.Exec("CREATE TABLE " + Table + " (" + strings.Join(cols, ", ") + ")"); err != nil {
		return fmt.Errorf("record: create table: %w", err)
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("record: begin: %w", err)
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(names)), ", ")
	stmt, err := tx.Prepare("INSERT INTO " + Table + " (" + strings.Join(names, ", ") + ") VALUES (" + placeholders + ")")
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("record: prepare: %w", err)
	}
	defer stmt.Close()

	args := make([]any, len(names))
	for _, e := range b.Entries() {
		args[0] = int64(e.Tick)
		args[1] = formatTime(e.Time)
		values := e.Row.Format()
		for i := range b.header {
			args[2+i] = nil
			if i < len(values) {
				args[2+i] = values[i]
			}
		}
		if _, err = stmt.Exec(args...); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record: insert: %w", err)
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("record: commit: %w", err)
	}
	return nil
}
