// Total ordering of encoded values.
//
// The ordering serves T-tree placement and query bounds, so it must be
// antisymmetric and transitive over every encoding — not necessarily
// meaningful across types. Bitwise-equal words are equal without decoding;
// differing types order by their type codes; equal types compare decoded
// payloads.
package whitedb

// Comparison results.
const (
	Less    = -1
	Equal   = 0
	Greater = 1
)

// Compare orders two encoded values. Never fails: exotic encodings fall
// back to raw word order, which is consistent if not meaningful.
func (db *DB) Compare(a, b Value) int {
	if a == b {
		return Equal
	}
	return db.compare(a, b, CompareDepth)
}

func rawOrder(a, b Value) int {
	if a > b {
		return Greater
	}
	return Less
}

func (db *DB) compare(a, b Value, depth int) int {
	if a == b {
		return Equal
	}
	ta, tb := a.Type(), b.Type()
	if ta != tb {
		if ta > tb {
			return Greater
		}
		return Less
	}

	switch ta {
	case TypeNull:
		return Equal

	case TypeInt:
		da, dbv := db.DecodeInt(a), db.DecodeInt(b)
		switch {
		case da == dbv:
			return Equal // large ints can be equal
		case da > dbv:
			return Greater
		}
		return Less

	case TypeDouble:
		da, dbv := db.DecodeDouble(a), db.DecodeDouble(b)
		switch {
		case da == dbv:
			return Equal
		case da > dbv:
			return Greater
		}
		return Less

	case TypeFixpoint:
		if a.payload56() > b.payload56() {
			return Greater
		}
		return Less

	case TypeDate, TypeTime, TypeVar:
		if a.payload32() > b.payload32() {
			return Greater
		}
		return Less

	case TypeRecord:
		return db.compareRecords(a.DecodeRecord(), b.DecodeRecord(), depth)

	case TypeString, TypeURI, TypeXMLLiteral, TypeChar, TypeBlob:
		return db.compareStrings(a, b, ta)
	}

	// Anon consts and unknown future types: raw order keeps the result
	// consistent between (a,b) and (b,a).
	return rawOrder(a, b)
}

// compareRecords orders record references. With depth exhausted the raw
// handles decide; the result is deterministic but not stable across
// rebuilds, so callers needing stable order keep depth high enough.
func (db *DB) compareRecords(ra, rb RecordId, depth int) int {
	if depth <= 0 {
		if ra > rb {
			return Greater
		}
		return Less
	}
	la, lb := db.RecordLen(ra), db.RecordLen(rb)
	if la != lb {
		// Differing lengths order without comparing elements.
		if la > lb {
			return Greater
		}
		return Less
	}
	for i := 0; i < la; i++ {
		ea := db.GetField(ra, i)
		eb := db.GetField(rb, i)
		if ea != eb {
			if cr := db.compare(ea, eb, depth-1); cr != Equal {
				return cr
			}
		}
	}
	return Equal
}

// compareStrings orders string-family values. The extra component (URI
// prefix, xsd type) is significant and compared first; a missing extra is
// less than any non-empty one. Plain strings ignore the language tag.
func (db *DB) compareStrings(a, b Value, t Type) int {
	var sa, sb string
	switch t {
	case TypeChar:
		ca, cb := a.DecodeChar(), b.DecodeChar()
		sa, sb = string(ca), string(cb)
	case TypeString:
		sa = db.DecodeStr(a)
		sb = db.DecodeStr(b)
	case TypeURI:
		var exa, exb string
		sa, exa = db.DecodeURI(a)
		sb, exb = db.DecodeURI(b)
		if cr := compareBytes(exa, exb); cr != Equal {
			return cr
		}
	case TypeXMLLiteral:
		var exa, exb string
		sa, exa = db.DecodeXMLLiteral(a)
		sb, exb = db.DecodeXMLLiteral(b)
		if cr := compareBytes(exa, exb); cr != Equal {
			return cr
		}
	case TypeBlob:
		da, _ := db.DecodeBlob(a)
		dbb, _ := db.DecodeBlob(b)
		sa, sb = string(da), string(dbb)
	}
	if cr := compareBytes(sa, sb); cr != Equal {
		return cr
	}
	// Equal bytes but unequal words: interning makes this rare (distinct
	// language tags, or an inline vs interned form of the same bytes).
	return Equal
}

func compareBytes(a, b string) int {
	switch {
	case a == b:
		return Equal
	case a > b:
		return Greater
	}
	return Less
}
