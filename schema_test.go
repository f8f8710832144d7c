// Schema layer tests.
//
// Parameter records must stay invisible; document traversal must find the
// root from any depth; recursive deletion must take exactly the records
// of the document and nothing else.
package whitedb

import (
	"errors"
	"testing"
)

func TestCreateTriple(t *testing.T) {
	db := newTestDB(t)
	rec, err := db.CreateTriple(db.EncodeStr("s", ""), db.EncodeStr("p", ""),
		db.EncodeStr("o", ""), false)
	if err != nil {
		t.Fatalf("CreateTriple: %v", err)
	}
	if db.RecordLen(rec) != 3 {
		t.Errorf("triple length = %d", db.RecordLen(rec))
	}
	if got := db.DecodeStr(db.GetField(rec, 1)); got != "p" {
		t.Errorf("property = %q", got)
	}

	kv, err := db.CreateKVPair(db.EncodeStr("k", ""), db.EncodeInt(1), false)
	if err != nil {
		t.Fatalf("CreateKVPair: %v", err)
	}
	if db.GetField(kv, 0) != Null {
		t.Errorf("kv-pair subject should be NULL")
	}
}

// TestParamRecordsInvisible: notdata|match records must not appear in
// scans, queries or indexes.
func TestParamRecordsInvisible(t *testing.T) {
	db := newTestDB(t)
	idx, err := db.CreateIndex([]int{1}, IndexTypeTTree, nil)
	if err != nil {
		t.Fatalf("CreateIndex: %v", err)
	}
	if _, err := db.CreateTriple(Null, db.EncodeInt(42), Null, true); err != nil {
		t.Fatalf("CreateTriple param: %v", err)
	}
	if n := countRecords(db); n != 0 {
		t.Errorf("param record visible to scan, count = %d", n)
	}
	if _, ok := db.SearchTTree(idx, db.EncodeInt(42)); ok {
		t.Errorf("param record entered the index")
	}
	q, err := db.MakeQuery(nil, nil)
	if err != nil {
		t.Fatalf("MakeQuery: %v", err)
	}
	if rows := fetchAll(q); len(rows) != 0 {
		t.Errorf("param record visible to query: %v", rows)
	}
}

func TestFindDocument(t *testing.T) {
	db := newTestDB(t)
	doc, err := db.ParseJSONDocument([]byte(`{"a": {"b": {"c": 1}}}`))
	if err != nil {
		t.Fatalf("ParseJSONDocument: %v", err)
	}
	// Walk down to the deepest kv-pair.
	rec := doc
	depth := 0
	for {
		var child RecordId
		n := db.RecordLen(rec)
		for i := 0; i < n; i++ {
			if v := db.GetField(rec, i); v.Type() == TypeRecord {
				child = v.DecodeRecord()
			}
		}
		if child == 0 {
			break
		}
		rec = child
		depth++
	}
	if depth < 3 {
		t.Fatalf("fixture should nest at least 3 levels, got %d", depth)
	}
	if got, ok := db.FindDocument(rec); !ok || got != doc {
		t.Errorf("FindDocument from depth %d = %d, %v; want %d", depth, got, ok, doc)
	}
	if got, ok := db.FindDocument(doc); !ok || got != doc {
		t.Errorf("FindDocument on the root = %d, %v", got, ok)
	}
}

// TestDeleteDocument: the row count drops by exactly the document's
// record count, and nothing reachable from the root survives.
func TestDeleteDocument(t *testing.T) {
	db := newTestDB(t)
	keep, err := db.ParseJSONDocument([]byte(`{"keep": 1}`))
	if err != nil {
		t.Fatalf("ParseJSONDocument: %v", err)
	}
	doc, err := db.ParseJSONDocument([]byte(`{"a": {"b": 55.0}, "c": "hello", "d": [7, 8, 9]}`))
	if err != nil {
		t.Fatalf("ParseJSONDocument: %v", err)
	}

	before := countRecords(db)
	reachable := countReachable(db, doc)
	if err := db.DeleteDocument(doc); err != nil {
		t.Fatalf("DeleteDocument: %v", err)
	}
	after := countRecords(db)
	if before-after != reachable {
		t.Errorf("row count dropped by %d, want %d", before-after, reachable)
	}

	// The untouched document is intact.
	got := jsonQueryDocs(t, db, []JSONArg{
		{Key: db.EncodeStr("keep", ""), Value: db.EncodeInt(1)},
	})
	if len(got) != 1 || !got[keep] {
		t.Errorf("sibling document damaged by delete: %v", got)
	}
	// The deleted one matches nothing.
	got = jsonQueryDocs(t, db, []JSONArg{
		{Key: db.EncodeStr("c", ""), Value: db.EncodeStr("hello", "")},
	})
	if len(got) != 0 {
		t.Errorf("deleted document still queryable: %v", got)
	}
}

// countReachable counts the records of a document tree.
func countReachable(db *DB, rec RecordId) int {
	seen := make(map[RecordId]bool)
	var walk func(RecordId)
	walk = func(r RecordId) {
		if seen[r] {
			return
		}
		seen[r] = true
		n := db.RecordLen(r)
		for i := 0; i < n; i++ {
			if v := db.GetField(r, i); v.Type() == TypeRecord {
				walk(v.DecodeRecord())
			}
		}
	}
	walk(rec)
	return len(seen)
}

func TestDeleteDocumentValidation(t *testing.T) {
	db := newTestDB(t)
	plain := makeRec(t, db, db.EncodeInt(1))
	if err := db.DeleteDocument(plain); !errors.Is(err, ErrNotDocument) {
		t.Errorf("DeleteDocument on plain record: err = %v", err)
	}
}

// TestDeleteDocumentWithIndex: deletion must scrub every index entry of
// the document's records.
func TestDeleteDocumentWithIndex(t *testing.T) {
	db := newTestDB(t)
	if _, err := db.CreateIndex([]int{SchemaKeyOffset, SchemaValueOffset},
		IndexTypeHashJSON, nil); err != nil {
		t.Fatalf("CreateIndex: %v", err)
	}
	kidx, err := db.CreateIndex([]int{SchemaKeyOffset}, IndexTypeTTree, nil)
	if err != nil {
		t.Fatalf("CreateIndex: %v", err)
	}
	doc, err := db.ParseJSONDocument([]byte(`{"a": {"b": 55.0}, "d": [7, 8]}`))
	if err != nil {
		t.Fatalf("ParseJSONDocument: %v", err)
	}
	if err := db.DeleteDocument(doc); err != nil {
		t.Fatalf("DeleteDocument: %v", err)
	}
	if _, ok := db.SearchTTree(kidx, db.EncodeStr("a", "")); ok {
		t.Errorf("key index still holds deleted kv-pair")
	}
	if err := db.ValidateIndex(kidx); err != nil {
		t.Errorf("ValidateIndex: %v", err)
	}
}

// TestRecordDeleteGuards: a record referenced from a field cannot be
// deleted until the reference is cleared.
func TestRecordDeleteGuards(t *testing.T) {
	db := newTestDB(t)
	child := makeRec(t, db, db.EncodeInt(1))
	parent := makeRec(t, db, EncodeRecord(child))
	if err := db.DeleteRecord(child); !errors.Is(err, ErrHasReferences) {
		t.Fatalf("deleting referenced record: err = %v", err)
	}
	if err := db.SetField(parent, 0, Null); err != nil {
		t.Fatalf("SetField: %v", err)
	}
	if err := db.DeleteRecord(child); err != nil {
		t.Errorf("DeleteRecord after clearing reference: %v", err)
	}
}
