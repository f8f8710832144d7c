// Comparison ordering tests.
//
// The T-tree trusts Compare to be a total order; a single antisymmetry or
// transitivity violation lets nodes sort differently on insert and on
// search, which surfaces as records that exist but cannot be found. The
// corpus below crosses every type and storage variant.
package whitedb

import (
	"math"
	"testing"
)

// compareCorpus builds one value of as many encodings as possible.
func compareCorpus(t *testing.T, db *DB) []Value {
	t.Helper()
	fix1, _ := EncodeFixpoint(-3.25)
	fix2, _ := EncodeFixpoint(500000.5)
	recA := makeRec(t, db, db.EncodeInt(1))
	recB := makeRec(t, db, db.EncodeInt(2))
	recC := makeRec(t, db, db.EncodeInt(1), db.EncodeInt(2))
	return []Value{
		Null,
		EncodeRecord(recA), EncodeRecord(recB), EncodeRecord(recC),
		db.EncodeInt(-5), db.EncodeInt(0), db.EncodeInt(5),
		db.EncodeInt(math.MaxInt64), db.EncodeInt(math.MinInt64),
		db.EncodeDouble(-0.5), db.EncodeDouble(3.75),
		db.EncodeStr("", ""), db.EncodeStr("abc", ""),
		db.EncodeStr("abcdefgh", ""), db.EncodeStr("abd", "en"),
		db.EncodeXMLLiteral("1", "xsd:int"), db.EncodeXMLLiteral("1", ""),
		db.EncodeURI("x", ""), db.EncodeURI("x", "urn:"),
		db.EncodeBlob([]byte{1, 2}, ""), db.EncodeBlob([]byte{1, 2, 3}, ""),
		EncodeChar('a'), EncodeChar('z'),
		fix1, fix2,
		EncodeDate(0), EncodeDate(20000),
		EncodeTime(0), EncodeTime(100),
		EncodeVar(0), EncodeVar(3),
		EncodeAnonConst(1), EncodeAnonConst(2),
	}
}

func TestCompareAntisymmetry(t *testing.T) {
	db := newTestDB(t)
	corpus := compareCorpus(t, db)
	for _, a := range corpus {
		for _, b := range corpus {
			ab := db.Compare(a, b)
			ba := db.Compare(b, a)
			if ab != -ba {
				t.Errorf("Compare(%x,%x)=%d but Compare(%x,%x)=%d", a, b, ab, b, a, ba)
			}
		}
	}
}

func TestCompareTransitivity(t *testing.T) {
	db := newTestDB(t)
	corpus := compareCorpus(t, db)
	for _, a := range corpus {
		for _, b := range corpus {
			for _, c := range corpus {
				if db.Compare(a, b) == Less && db.Compare(b, c) == Less {
					if db.Compare(a, c) != Less {
						t.Fatalf("transitivity broken: %x < %x < %x but Compare(a,c)=%d",
							a, b, c, db.Compare(a, c))
					}
				}
			}
		}
	}
}

func TestCompareReflexive(t *testing.T) {
	db := newTestDB(t)
	for _, v := range compareCorpus(t, db) {
		if db.Compare(v, v) != Equal {
			t.Errorf("Compare(%x, itself) != Equal", v)
		}
	}
}

// TestCompareNumericOrder pins a few orderings that queries rely on
// directly.
func TestCompareNumericOrder(t *testing.T) {
	db := newTestDB(t)
	if db.Compare(db.EncodeInt(3), db.EncodeInt(10)) != Less {
		t.Errorf("3 should compare less than 10")
	}
	// Equal large integers land in distinct store slots but still
	// compare equal.
	a := db.EncodeInt(math.MaxInt32 + 7)
	b := db.EncodeInt(math.MaxInt32 + 7)
	if a == b {
		t.Fatalf("large ints should be distinct words")
	}
	if db.Compare(a, b) != Equal {
		t.Errorf("equal large ints should compare Equal")
	}
	if db.Compare(db.EncodeStr("ab", ""), db.EncodeStr("b", "")) != Less {
		t.Errorf("lexicographic order broken")
	}
	// A missing extra component is less than any non-empty one.
	if db.Compare(db.EncodeURI("x", ""), db.EncodeURI("x", "urn:")) != Less {
		t.Errorf("URI with no prefix should sort first")
	}
}

// TestCompareRecords covers the record recursion: length first, then
// pairwise fields.
func TestCompareRecords(t *testing.T) {
	db := newTestDB(t)
	short := makeRec(t, db, db.EncodeInt(9))
	long := makeRec(t, db, db.EncodeInt(1), db.EncodeInt(1))
	a := makeRec(t, db, db.EncodeInt(1), db.EncodeInt(2))
	b := makeRec(t, db, db.EncodeInt(1), db.EncodeInt(3))
	eq := makeRec(t, db, db.EncodeInt(1), db.EncodeInt(2))

	if db.Compare(EncodeRecord(short), EncodeRecord(long)) != Less {
		t.Errorf("shorter record should compare less")
	}
	if db.Compare(EncodeRecord(a), EncodeRecord(b)) != Less {
		t.Errorf("field order should decide equal-length records")
	}
	if db.Compare(EncodeRecord(a), EncodeRecord(eq)) != Equal {
		t.Errorf("records with equal fields should compare Equal")
	}
}
