// Document query tests.
//
// The same clause lists run under every access path — full scan, key
// T-tree, JSON hash index, and the rescan ladder for record-valued
// clauses — and must produce the same documents. The fixture document
// matches the shapes the engine special-cases: nested objects, literal
// values and arrays.
package whitedb

import (
	"fmt"
	"testing"
)

func buildFixtureDocs(t *testing.T, db *DB) (doc1, doc2 RecordId) {
	t.Helper()
	var err error
	doc1, err = db.ParseJSONDocument([]byte(
		`{"a": {"b": 55.0}, "c": "hello", "d": [7, 8, 9]}`))
	if err != nil {
		t.Fatalf("ParseJSONDocument: %v", err)
	}
	doc2, err = db.ParseJSONDocument([]byte(
		`{"b": 56.0, "c": "hello", "d": [10, 11]}`))
	if err != nil {
		t.Fatalf("ParseJSONDocument: %v", err)
	}
	return doc1, doc2
}

func jsonQueryDocs(t *testing.T, db *DB, args []JSONArg) map[RecordId]bool {
	t.Helper()
	q, err := db.MakeJSONQuery(args)
	if err != nil {
		t.Fatalf("MakeJSONQuery: %v", err)
	}
	out := make(map[RecordId]bool)
	for _, rec := range fetchAll(q) {
		out[rec] = true
	}
	return out
}

// runJSONQueryScenario pins the fixture queries; the caller chooses which
// indexes exist first.
func runJSONQueryScenario(t *testing.T, db *DB) {
	doc1, doc2 := buildFixtureDocs(t, db)

	b55 := []JSONArg{{Key: db.EncodeStr("b", ""), Value: db.EncodeDouble(55.0)}}
	got := jsonQueryDocs(t, db, b55)
	if len(got) != 1 || !got[doc1] {
		t.Errorf(`("b",55.0) matched %v, want {%d}`, got, doc1)
	}

	two := []JSONArg{
		{Key: db.EncodeStr("b", ""), Value: db.EncodeDouble(55.0)},
		{Key: db.EncodeStr("c", ""), Value: db.EncodeStr("hello", "")},
	}
	got = jsonQueryDocs(t, db, two)
	if len(got) != 1 || !got[doc1] {
		t.Errorf(`("b",55.0)+("c","hello") matched %v, want {%d}`, got, doc1)
	}

	none := []JSONArg{{Key: db.EncodeStr("b", ""), Value: db.EncodeDouble(57.0)}}
	if got := jsonQueryDocs(t, db, none); len(got) != 0 {
		t.Errorf(`("b",57.0) matched %v, want nothing`, got)
	}

	hello := []JSONArg{{Key: db.EncodeStr("c", ""), Value: db.EncodeStr("hello", "")}}
	got = jsonQueryDocs(t, db, hello)
	if len(got) != 2 || !got[doc1] || !got[doc2] {
		t.Errorf(`("c","hello") matched %v, want both documents`, got)
	}

	// Array element clause: 8 occurs only inside doc1's "d" array.
	eight := []JSONArg{{Key: db.EncodeStr("d", ""), Value: db.EncodeInt(8)}}
	got = jsonQueryDocs(t, db, eight)
	if len(got) != 1 || !got[doc1] {
		t.Errorf(`("d",8) matched %v, want {%d}`, got, doc1)
	}
}

func TestJSONQueryFullScan(t *testing.T) {
	db := newTestDB(t)
	runJSONQueryScenario(t, db)
}

func TestJSONQueryWithHashIndex(t *testing.T) {
	db := newTestDB(t)
	if _, err := db.CreateIndex([]int{SchemaKeyOffset, SchemaValueOffset},
		IndexTypeHashJSON, nil); err != nil {
		t.Fatalf("CreateIndex: %v", err)
	}
	runJSONQueryScenario(t, db)
}

func TestJSONQueryWithKeyTTree(t *testing.T) {
	db := newTestDB(t)
	if _, err := db.CreateIndex([]int{SchemaKeyOffset}, IndexTypeTTree, nil); err != nil {
		t.Fatalf("CreateIndex: %v", err)
	}
	runJSONQueryScenario(t, db)
}

// TestJSONQueryIndexOverExistingDocs builds the index after the data, so
// the scenario covers the build-time scan of schema records too.
func TestJSONQueryIndexOverExistingDocs(t *testing.T) {
	db := newTestDB(t)
	doc1, _ := buildFixtureDocs(t, db)
	if _, err := db.CreateIndex([]int{SchemaKeyOffset, SchemaValueOffset},
		IndexTypeHashJSON, nil); err != nil {
		t.Fatalf("CreateIndex: %v", err)
	}
	got := jsonQueryDocs(t, db, []JSONArg{
		{Key: db.EncodeStr("b", ""), Value: db.EncodeDouble(55.0)},
	})
	if len(got) != 1 || !got[doc1] {
		t.Errorf("query after late index build matched %v, want {%d}", got, doc1)
	}
}

// TestJSONQueryManyDocuments intersects clauses across enough documents
// to push the set algebra over its hash-join thresholds, with and without
// an index (the indexed run produces two large sets and a real
// intersection; the unindexed run takes the rescan path).
func TestJSONQueryManyDocuments(t *testing.T) {
	for _, indexed := range []bool{false, true} {
		name := "rescan"
		if indexed {
			name = "hash-intersect"
		}
		t.Run(name, func(t *testing.T) {
			db := newTestDB(t)
			if indexed {
				if _, err := db.CreateIndex([]int{SchemaKeyOffset, SchemaValueOffset},
					IndexTypeHashJSON, nil); err != nil {
					t.Fatalf("CreateIndex: %v", err)
				}
			}
			var want []RecordId
			for i := 0; i < 200; i++ {
				kind := "even"
				if i%2 == 1 {
					kind = "odd"
				}
				text := fmt.Sprintf(`{"group": %d, "kind": %q}`, i%4, kind)
				doc, err := db.ParseJSONDocument([]byte(text))
				if err != nil {
					t.Fatalf("ParseJSONDocument: %v", err)
				}
				if i%4 == 1 {
					want = append(want, doc) // group 1 documents are all odd
				}
			}
			got := jsonQueryDocs(t, db, []JSONArg{
				{Key: db.EncodeStr("group", ""), Value: db.EncodeInt(1)},
				{Key: db.EncodeStr("kind", ""), Value: db.EncodeStr("odd", "")},
			})
			if len(got) != len(want) {
				t.Fatalf("intersection matched %d docs, want %d", len(got), len(want))
			}
			for _, doc := range want {
				if !got[doc] {
					t.Errorf("intersection missed document %d", doc)
				}
			}
		})
	}
}
