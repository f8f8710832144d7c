// Encoded value round-trip tests.
//
// Every scalar type must decode back to the exact value it was encoded
// from, across storage variants: inline and out-of-line integers, short
// and long strings, compressed and verbatim blobs. If a round trip bends a
// value, indexes built over it silently diverge from the data.
package whitedb

import (
	"bytes"
	"math"
	"strings"
	"testing"
)

func TestIntRoundTrip(t *testing.T) {
	db := newTestDB(t)
	cases := []int64{0, 1, -1, 4095, -4096, math.MaxInt32, math.MinInt32,
		math.MaxInt32 + 1, math.MinInt32 - 1, math.MaxInt64, math.MinInt64}
	for _, want := range cases {
		enc := db.EncodeInt(want)
		if got := db.DecodeInt(enc); got != want {
			t.Errorf("DecodeInt(EncodeInt(%d)) = %d", want, got)
		}
		if enc.Type() != TypeInt {
			t.Errorf("EncodeInt(%d).Type() = %d, want TypeInt", want, enc.Type())
		}
	}
}

func TestDoubleRoundTrip(t *testing.T) {
	db := newTestDB(t)
	for _, want := range []float64{0, 1.5, -1.5, math.MaxFloat64, math.SmallestNonzeroFloat64} {
		if got := db.DecodeDouble(db.EncodeDouble(want)); got != want {
			t.Errorf("DecodeDouble = %v, want %v", got, want)
		}
	}
}

func TestFixpointRoundTrip(t *testing.T) {
	for _, want := range []float64{0, 1.5, -273.15, 799999.9999, -799999.9999} {
		enc, err := EncodeFixpoint(want)
		if err != nil {
			t.Fatalf("EncodeFixpoint(%v): %v", want, err)
		}
		if got := enc.DecodeFixpoint(); math.Abs(got-want) > 1.0/fixpointDiv {
			t.Errorf("DecodeFixpoint = %v, want %v", got, want)
		}
	}
	if _, err := EncodeFixpoint(800000); err == nil {
		t.Errorf("EncodeFixpoint(800000) should fail")
	}
}

// TestStrRoundTrip covers both storage variants: NUL-free strings up to 7
// bytes stay inline, everything else is interned.
func TestStrRoundTrip(t *testing.T) {
	db := newTestDB(t)
	cases := []struct {
		s, lang string
	}{
		{"", ""},
		{"a", ""},
		{"seven77", ""},
		{"eight888", ""},
		{"longer than seven bytes", ""},
		{"hello", "en"},
		{"", "en"},
		{"with\x00nul", ""},
		{strings.Repeat("x", 500), ""},
	}
	for _, c := range cases {
		enc := db.EncodeStr(c.s, c.lang)
		s, lang := db.DecodeStrLang(enc)
		if s != c.s || lang != c.lang {
			t.Errorf("DecodeStrLang(%q, %q) = (%q, %q)", c.s, c.lang, s, lang)
		}
	}
}

func TestURIAndXMLLiteralRoundTrip(t *testing.T) {
	db := newTestDB(t)
	u := db.EncodeURI("example.org/x", "http://")
	if uri, prefix := db.DecodeURI(u); uri != "example.org/x" || prefix != "http://" {
		t.Errorf("DecodeURI = (%q, %q)", uri, prefix)
	}
	x := db.EncodeXMLLiteral("42", "xsd:integer")
	if data, xsd := db.DecodeXMLLiteral(x); data != "42" || xsd != "xsd:integer" {
		t.Errorf("DecodeXMLLiteral = (%q, %q)", data, xsd)
	}
}

// TestBlobRoundTrip includes a payload large enough to cross the
// compression threshold; the compressed form must decode bit-exact.
func TestBlobRoundTrip(t *testing.T) {
	db := newTestDB(t)
	small := []byte{0, 1, 2, 0xff}
	big := bytes.Repeat([]byte("abcdefgh"), 1024) // 8KB, compresses well
	for _, want := range [][]byte{small, big} {
		enc := db.EncodeBlob(want, "bin")
		data, tag := db.DecodeBlob(enc)
		if !bytes.Equal(data, want) || tag != "bin" {
			t.Errorf("DecodeBlob: %d bytes, tag %q; want %d bytes, tag bin",
				len(data), tag, len(want))
		}
	}
}

func TestInlineScalarsRoundTrip(t *testing.T) {
	if got := EncodeChar('x').DecodeChar(); got != 'x' {
		t.Errorf("DecodeChar = %q", got)
	}
	if got := EncodeDate(-719162).DecodeDate(); got != -719162 {
		t.Errorf("DecodeDate = %d", got)
	}
	if got := EncodeTime(8639999).DecodeTime(); got != 8639999 {
		t.Errorf("DecodeTime = %d", got)
	}
	if got := EncodeVar(7).DecodeVar(); got != 7 {
		t.Errorf("DecodeVar = %d", got)
	}
}

// TestIllegalDistinct pins the sentinel property: Illegal is not a legal
// encoding and in particular is not NULL.
func TestIllegalDistinct(t *testing.T) {
	if Illegal == Null {
		t.Fatalf("Illegal must differ from Null")
	}
	if Illegal.Type() != TypeIllegal {
		t.Errorf("Illegal.Type() = %d", Illegal.Type())
	}
	if Null.Type() != TypeNull {
		t.Errorf("Null.Type() = %d", Null.Type())
	}
}

// TestStringInterning verifies that equal long strings share one stored
// object and that the reference count governs eviction.
func TestStringInterning(t *testing.T) {
	db := newTestDB(t)
	a := db.EncodeStr("interned beyond seven bytes", "")
	b := db.EncodeStr("interned beyond seven bytes", "")
	if a != b {
		t.Fatalf("equal strings should share an encoding: %x vs %x", a, b)
	}
	id := strId(a.payload())
	if rc := db.strs.entries[id].refcount; rc != 2 {
		t.Fatalf("refcount = %d, want 2", rc)
	}
	db.release(a)
	if rc := db.strs.entries[id].refcount; rc != 1 {
		t.Fatalf("refcount after release = %d, want 1", rc)
	}
	db.release(b)
	if db.strs.entries[id].inuse {
		t.Errorf("entry should be evicted at refcount zero")
	}
}
