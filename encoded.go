// Encoded value model.
//
// Every field of every record holds a Value: a single 64-bit word whose low
// byte is a storage tag and whose upper 56 bits carry either an inline
// payload or a handle into one of the out-of-line stores. The tag alone
// determines the decoding procedure. The low nibble of the tag is the
// semantic type code; the high nibble distinguishes storage variants of the
// same type (small/full integer, short/long string), so values of one type
// may still differ in representation.
package whitedb

import "math"

// Value is an encoded scalar or record reference.
type Value uint64

// Illegal is distinct from every legal encoding, including the encoded
// NULL. It doubles as the "unbounded" marker in range queries and as the
// min/max sentinel of an empty T-tree root.
const Illegal Value = 0xff

// Null is the encoded NULL value.
const Null Value = Value(tagNull)

// Type is a semantic type code. The codes order values of differing types
// in the total ordering used by indexes.
type Type uint8

// Semantic type codes.
const (
	TypeIllegal    Type = 0
	TypeNull       Type = 1
	TypeRecord     Type = 2
	TypeInt        Type = 3
	TypeDouble     Type = 4
	TypeString     Type = 5
	TypeXMLLiteral Type = 6
	TypeURI        Type = 7
	TypeBlob       Type = 8
	TypeChar       Type = 9
	TypeFixpoint   Type = 10
	TypeDate       Type = 11
	TypeTime       Type = 12
	TypeAnonConst  Type = 13
	TypeVar        Type = 14
)

// Storage tags. The low nibble is the semantic type code.
const (
	tagNull       = 0x01
	tagRecord     = 0x02
	tagSmallInt   = 0x03 // payload fits in 32 bits, inline
	tagFullInt    = 0x13 // handle into the int store
	tagDouble     = 0x04 // handle into the double store
	tagShortStr   = 0x05 // up to 7 NUL-free bytes, inline
	tagLongStr    = 0x15 // handle into the long-string store
	tagXMLLiteral = 0x06
	tagURI        = 0x07
	tagBlob       = 0x08
	tagChar       = 0x09
	tagFixpoint   = 0x0a // scaled integer, inline
	tagDate       = 0x0b
	tagTime       = 0x0c
	tagAnonConst  = 0x0d
	tagVar        = 0x0e
)

// Fixed point values carry four decimals and are bounded to keep the
// scaled form well inside the inline payload.
const (
	fixpointDiv = 10000
	fixpointMax = 800000
)

func (v Value) tag() uint8 { return uint8(v) }

func (v Value) payload() uint64 { return uint64(v) >> 8 }

// payload32 decodes a signed 32-bit inline payload.
func (v Value) payload32() int32 { return int32(uint32(v >> 8)) }

func packTag(tag uint8, payload uint64) Value {
	return Value(payload<<8 | uint64(tag))
}

func pack32(tag uint8, payload int32) Value {
	return Value(uint64(uint32(payload))<<8 | uint64(tag))
}

// pack56/payload56 carry a signed value in the full 56-bit payload, for
// scalars that outgrow 32 bits (scaled fixpoint reaches ±8e9).
func pack56(tag uint8, payload int64) Value {
	return Value(uint64(payload)<<8 | uint64(tag))
}

func (v Value) payload56() int64 {
	return int64(v) >> 8 // arithmetic shift sign-extends
}

// Type returns the semantic type of an encoded value.
func (v Value) Type() Type {
	if v == Illegal {
		return TypeIllegal
	}
	return Type(v.tag() & 0x0f)
}

// EncodeRecord encodes a reference to a record.
func EncodeRecord(id RecordId) Value {
	return packTag(tagRecord, uint64(uint32(id)))
}

// DecodeRecord returns the record referenced by an encoded value.
func (v Value) DecodeRecord() RecordId {
	return RecordId(int32(uint32(v.payload())))
}

// EncodeChar encodes a single byte character.
func EncodeChar(c byte) Value { return packTag(tagChar, uint64(c)) }

// DecodeChar decodes a character value.
func (v Value) DecodeChar() byte { return byte(v.payload()) }

// EncodeDate encodes a date as days since epoch.
func EncodeDate(days int) Value { return pack32(tagDate, int32(days)) }

// DecodeDate decodes a date value.
func (v Value) DecodeDate() int { return int(v.payload32()) }

// EncodeTime encodes a time of day in centiseconds since midnight.
func EncodeTime(cs int) Value { return pack32(tagTime, int32(cs)) }

// DecodeTime decodes a time value.
func (v Value) DecodeTime() int { return int(v.payload32()) }

// EncodeVar encodes a variable id. Variables act as wildcards in match
// records and templates.
func EncodeVar(id int) Value { return pack32(tagVar, int32(id)) }

// DecodeVar decodes a variable id.
func (v Value) DecodeVar() int { return int(v.payload32()) }

// EncodeAnonConst encodes an anonymous constant id.
func EncodeAnonConst(id int) Value { return pack32(tagAnonConst, int32(id)) }

// DecodeAnonConst decodes an anonymous constant id.
func (v Value) DecodeAnonConst() int { return int(v.payload32()) }

// EncodeFixpoint encodes a fixed point number with four decimals.
// Values outside ±fixpointMax cannot be represented.
func EncodeFixpoint(d float64) (Value, error) {
	if d >= fixpointMax || d <= -fixpointMax || math.IsNaN(d) {
		return Illegal, ErrInvalidValue
	}
	scaled := int64(math.Round(d * fixpointDiv))
	return pack56(tagFixpoint, scaled), nil
}

// DecodeFixpoint decodes a fixed point value.
func (v Value) DecodeFixpoint() float64 {
	return float64(v.payload56()) / fixpointDiv
}

// EncodeInt encodes an integer. Values that fit in 32 bits are stored
// inline; larger values go to the out-of-line int store.
func (db *DB) EncodeInt(x int64) Value {
	if x >= math.MinInt32 && x <= math.MaxInt32 {
		return pack32(tagSmallInt, int32(x))
	}
	return packTag(tagFullInt, uint64(db.allocInt(x)))
}

// DecodeInt decodes an integer value.
func (db *DB) DecodeInt(v Value) int64 {
	if v.tag() == tagSmallInt {
		return int64(v.payload32())
	}
	return db.ints[v.payload()]
}

// EncodeDouble encodes a double. Doubles are always out-of-line.
func (db *DB) EncodeDouble(d float64) Value {
	return packTag(tagDouble, uint64(db.allocDouble(d)))
}

// DecodeDouble decodes a double value.
func (db *DB) DecodeDouble(v Value) float64 {
	return db.doubles[v.payload()]
}

// EncodeStr encodes a string with an optional language tag. NUL-free
// strings of up to 7 bytes with no language are stored inline; everything
// else is interned in the long-string store.
func (db *DB) EncodeStr(s, lang string) Value {
	if lang == "" && len(s) <= 7 {
		inline := true
		for i := 0; i < len(s); i++ {
			if s[i] == 0 {
				inline = false
				break
			}
		}
		if inline {
			var payload uint64
			for i := len(s) - 1; i >= 0; i-- {
				payload = payload<<8 | uint64(s[i])
			}
			return packTag(tagShortStr, payload)
		}
	}
	return packTag(tagLongStr, uint64(db.strs.intern(TypeString, s, lang)))
}

// DecodeStr decodes a string value, dropping any language tag.
func (db *DB) DecodeStr(v Value) string {
	s, _ := db.DecodeStrLang(v)
	return s
}

// DecodeStrLang decodes a string value and its language tag.
func (db *DB) DecodeStrLang(v Value) (s, lang string) {
	if v.tag() == tagShortStr {
		var buf [7]byte
		payload := v.payload()
		n := 0
		for n < 7 {
			b := byte(payload)
			if b == 0 {
				break
			}
			buf[n] = b
			payload >>= 8
			n++
		}
		return string(buf[:n]), ""
	}
	return db.strs.get(strId(v.payload()))
}

// EncodeURI encodes a URI with an optional namespace prefix.
func (db *DB) EncodeURI(uri, prefix string) Value {
	return packTag(tagURI, uint64(db.strs.intern(TypeURI, uri, prefix)))
}

// DecodeURI decodes a URI value and its prefix.
func (db *DB) DecodeURI(v Value) (uri, prefix string) {
	return db.strs.get(strId(v.payload()))
}

// EncodeXMLLiteral encodes an XML literal with its xsd type.
func (db *DB) EncodeXMLLiteral(data, xsdtype string) Value {
	return packTag(tagXMLLiteral, uint64(db.strs.intern(TypeXMLLiteral, data, xsdtype)))
}

// DecodeXMLLiteral decodes an XML literal and its xsd type.
func (db *DB) DecodeXMLLiteral(v Value) (data, xsdtype string) {
	return db.strs.get(strId(v.payload()))
}

// EncodeBlob encodes a length-prefixed byte string with an optional type
// tag. Large payloads are stored compressed.
func (db *DB) EncodeBlob(data []byte, typetag string) Value {
	return packTag(tagBlob, uint64(db.strs.intern(TypeBlob, string(data), typetag)))
}

// DecodeBlob decodes a blob value.
func (db *DB) DecodeBlob(v Value) (data []byte, typetag string) {
	s, extra := db.strs.get(strId(v.payload()))
	return []byte(s), extra
}

// release decrements the reference count behind a stored value, evicting
// the interned object when it drops to zero. Int and double store slots
// are reclaimed immediately since they are never shared.
func (db *DB) release(v Value) {
	switch v.tag() {
	case tagLongStr, tagURI, tagXMLLiteral, tagBlob:
		db.strs.release(strId(v.payload()))
	case tagFullInt:
		db.freeInt(int32(v.payload()))
	case tagDouble:
		db.freeDouble(int32(v.payload()))
	}
}
