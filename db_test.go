// Shared test fixtures.
//
// Every test builds a fresh in-process database; there is no state to
// clean up beyond letting it go out of scope. The helpers below construct
// small records and drain queries, which nearly every test needs.
package whitedb

import (
	"io"
	"log/slog"
	"testing"
)

// newTestDB creates a fresh database with a quiet logger. Used by nearly
// every test in the suite.
func newTestDB(t *testing.T) *DB {
	t.Helper()
	return New(Config{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
}

// makeRec creates a record holding the given encoded values.
func makeRec(t *testing.T, db *DB, values ...Value) RecordId {
	t.Helper()
	rec, err := db.CreateRecord(len(values))
	if err != nil {
		t.Fatalf("CreateRecord: %v", err)
	}
	for i, v := range values {
		if err := db.SetField(rec, i, v); err != nil {
			t.Fatalf("SetField(%d): %v", i, err)
		}
	}
	return rec
}

// fetchAll drains a query into a slice.
func fetchAll(q *Query) []RecordId {
	var out []RecordId
	for {
		rec, ok := q.Fetch()
		if !ok {
			return out
		}
		out = append(out, rec)
	}
}

// countRecords walks the data records.
func countRecords(db *DB) int {
	n := 0
	for rec, ok := db.FirstRecord(); ok; rec, ok = db.NextRecord(rec) {
		n++
	}
	return n
}
