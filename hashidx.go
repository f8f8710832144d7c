// Hash index engine.
//
// A hash index maps the concatenated byte encoding of one or more columns
// to a list of record handles. The byte codec lives in decodeForHashing
// and nowhere else: equal values must hash identically regardless of their
// storage variant, so every scalar is canonicalised through its decoded
// form. Fields are joined with a single zero separator byte.
//
// The JSON variant unwraps array values: when a plain record's indexed
// field points at a record carrying the array meta bit, one hash entry is
// emitted per array element, substituted in place of the original value.
// Unwrapping applies only at top level, never inside arrays.
package whitedb

import (
	"encoding/binary"
	"math"
)

// idxHash is a chaining hash table over byte-string keys. Each entry holds
// the key and a list of record handles chained through list cells.
type idxHash struct {
	buckets []int32
	entries []hashEntry
	free    []int32
}

type hashEntry struct {
	key     string
	next    int32  // bucket chain
	records listId // cell chain of record handles
	inuse   bool
}

func newIdxHash(buckets int) *idxHash {
	return &idxHash{
		buckets: make([]int32, buckets),
		entries: make([]hashEntry, 1), // entry 0 reserved as nil
	}
}

func (h *idxHash) bucket(db *DB, key []byte) *int32 {
	return &h.buckets[hashBytes(key, db.config.HashAlgorithm)%uint64(len(h.buckets))]
}

// idxhashStore associates a record handle with a byte key, chaining
// duplicates on the same key.
func (db *DB) idxhashStore(h *idxHash, key []byte, rec RecordId) {
	head := h.bucket(db, key)
	for id := *head; id != 0; id = h.entries[id].next {
		if h.entries[id].key == string(key) {
			db.chainInsert(chainPos{anchor: &h.entries[id].records}, int32(rec))
			return
		}
	}
	var id int32
	if n := len(h.free); n > 0 {
		id = h.free[n-1]
		h.free = h.free[:n-1]
	} else {
		h.entries = append(h.entries, hashEntry{})
		id = int32(len(h.entries) - 1)
	}
	h.entries[id] = hashEntry{key: string(key), next: *head, inuse: true}
	db.chainInsert(chainPos{anchor: &h.entries[id].records}, int32(rec))
	*head = id
}

// idxhashRemove drops a record handle from the key's list; the entry is
// freed when its list empties.
func (db *DB) idxhashRemove(h *idxHash, key []byte, rec RecordId) error {
	head := h.bucket(db, key)
	for id := *head; id != 0; id = h.entries[id].next {
		e := &h.entries[id]
		if e.key != string(key) {
			continue
		}
		if !db.removeFromList(&e.records, int32(rec)) {
			return ErrNotFound
		}
		if e.records == 0 {
			// Unchain and recycle the emptied entry.
			prev := head
			for *prev != id {
				prev = &h.entries[*prev].next
			}
			*prev = e.next
			*e = hashEntry{}
			h.free = append(h.free, id)
		}
		return nil
	}
	return ErrNotFound
}

// idxhashFind returns the record handles stored under a byte key.
func (db *DB) idxhashFind(h *idxHash, key []byte) []RecordId {
	for id := *h.bucket(db, key); id != 0; id = h.entries[id].next {
		if h.entries[id].key == string(key) {
			var out []RecordId
			for l := h.entries[id].records; l != 0; l = db.cells[l].cdr {
				out = append(out, RecordId(db.cells[l].car))
			}
			return out
		}
	}
	return nil
}

/* ---------------- field codec ---------------- */

// decodeForHashing canonicalises an encoded value into bytes: one type
// byte followed by the decoded payload. Storage variants of the same value
// (small/full int, short/long string) produce identical bytes.
func (db *DB) decodeForHashing(v Value) ([]byte, error) {
	t := v.Type()
	out := []byte{byte(t)}
	switch t {
	case TypeNull:
		return out, nil
	case TypeRecord:
		return binary.BigEndian.AppendUint64(out, uint64(v.DecodeRecord())), nil
	case TypeInt:
		return binary.BigEndian.AppendUint64(out, uint64(db.DecodeInt(v))), nil
	case TypeDouble:
		bits := math.Float64bits(db.DecodeDouble(v))
		return binary.BigEndian.AppendUint64(out, bits), nil
	case TypeFixpoint:
		return binary.BigEndian.AppendUint64(out, uint64(v.payload56())), nil
	case TypeDate, TypeTime, TypeVar, TypeAnonConst:
		return binary.BigEndian.AppendUint64(out, uint64(int64(v.payload32()))), nil
	case TypeChar:
		return append(out, v.DecodeChar()), nil
	case TypeString:
		s, lang := db.DecodeStrLang(v)
		return appendExtra(append(out, s...), lang), nil
	case TypeURI:
		s, prefix := db.DecodeURI(v)
		return appendExtra(append(out, s...), prefix), nil
	case TypeXMLLiteral:
		s, xsd := db.DecodeXMLLiteral(v)
		return appendExtra(append(out, s...), xsd), nil
	case TypeBlob:
		data, tag := db.DecodeBlob(v)
		return appendExtra(append(out, data...), tag), nil
	}
	return nil, ErrInvalidValue
}

// appendExtra attaches a secondary component when present; the 0xff guard
// byte keeps (value, extra) splits unambiguous against a bare value.
func appendExtra(b []byte, extra string) []byte {
	if extra == "" {
		return b
	}
	b = append(b, 0xff)
	return append(b, extra...)
}

/* ---------------- index operations ---------------- */

// hashOp selects what hashRecurse does with each completed key.
const (
	hashOpStore = iota
	hashOpRemove
)

// hashAddRow inserts a record into a hash index, expanding JSON arrays
// when the index type calls for it.
func (db *DB) hashAddRow(index IndexId, rec RecordId) error {
	return db.hashWalkRow(index, rec, hashOpStore)
}

// hashRemoveRow removes all entries a record contributed. Symmetric to
// hashAddRow: the same keys are computed, then dropped.
func (db *DB) hashRemoveRow(index IndexId, rec RecordId) error {
	return db.hashWalkRow(index, rec, hashOpRemove)
}

func (db *DB) hashWalkRow(index IndexId, rec RecordId, op int) error {
	hdr := &db.indexes[index]
	values := make([]Value, len(hdr.columns))
	for i, c := range hdr.columns {
		values[i] = db.GetField(rec, c)
	}
	expand := hdr.typ == IndexTypeHashJSON
	return db.hashRecurse(hdr, nil, values, rec, op, expand)
}

// hashRecurse builds the byte key field by field and applies op when it is
// complete. With expand set, array-valued fields multiply the key: one
// recursion per element. Expansion never nests.
func (db *DB) hashRecurse(hdr *indexHeader, prefix []byte, values []Value, rec RecordId, op int, expand bool) error {
	if len(values) == 0 {
		switch op {
		case hashOpStore:
			db.idxhashStore(hdr.hash, prefix, rec)
			return nil
		default:
			return db.idxhashRemove(hdr.hash, prefix, rec)
		}
	}

	next := values[0]
	if expand && next.Type() == TypeRecord {
		valrec := next.DecodeRecord()
		if db.isSchemaArray(valrec) {
			// Substitute each element for the array. The array record
			// itself is not hashed; only its offset would be usable.
			n := db.RecordLen(valrec)
			for i := 0; i < n; i++ {
				err := db.hashExtendPrefix(hdr, prefix,
					db.GetField(valrec, i), values[1:], rec, op, expand)
				if err != nil {
					return err
				}
			}
			return nil
		}
	}
	return db.hashExtendPrefix(hdr, prefix, next, values[1:], rec, op, expand)
}

// hashExtendPrefix appends one field's canonical bytes (and the separator)
// and continues the recursion.
func (db *DB) hashExtendPrefix(hdr *indexHeader, prefix []byte, next Value, rest []Value, rec RecordId, op int, expand bool) error {
	fld, err := db.decodeForHashing(next)
	if err != nil {
		return db.indexError("failed to decode a field value for hash")
	}
	key := make([]byte, 0, len(prefix)+len(fld)+1)
	if len(prefix) > 0 {
		key = append(key, prefix...)
		key = append(key, 0)
	}
	key = append(key, fld...)
	return db.hashRecurse(hdr, key, rest, rec, op, expand)
}

// SearchHash probes a hash index with one encoded value per indexed
// column. Returns the matching record handles, nil when there are none.
func (db *DB) SearchHash(index IndexId, values []Value) ([]RecordId, error) {
	hdr, err := db.indexHdr(index)
	if err != nil {
		return nil, err
	}
	if hdr.typ != IndexTypeHash && hdr.typ != IndexTypeHashJSON {
		return nil, ErrInvalidIndexType
	}
	if len(values) != len(hdr.columns) {
		return nil, ErrFieldCount
	}
	var key []byte
	for i, v := range values {
		fld, err := db.decodeForHashing(v)
		if err != nil {
			return nil, err
		}
		if i > 0 {
			key = append(key, 0)
		}
		key = append(key, fld...)
	}
	return db.idxhashFind(hdr.hash, key), nil
}

/* ---------------- index lifecycle ---------------- */

// createHashIndex initialises the table and inserts existing records.
// JSON variants skip array and object records; their contents are indexed
// through the plain records that reference them.
func (db *DB) createHashIndex(index IndexId) error {
	hdr := &db.indexes[index]
	hdr.hash = newIdxHash(db.config.IndexBuckets)

	firstcol := hdr.columns[0]
	rows := 0
	for rec, ok := db.FirstRecord(); ok; rec, ok = db.NextRecord(rec) {
		if firstcol >= db.RecordLen(rec) {
			continue
		}
		if !db.matchIndexTemplate(hdr.template, rec) {
			continue
		}
		if hdr.typ == IndexTypeHashJSON && !db.isPlain(rec) {
			continue
		}
		if err := db.hashAddRow(index, rec); err != nil {
			return err
		}
		rows++
	}
	db.logger.Debug("hash index created",
		"columns", hdr.columns, "index", int32(index), "rows", rows)
	return nil
}

// dropHashIndex detaches the table without reclaiming its record-list
// cells. Documented limitation: the cells stay allocated until the
// database goes away, so dropping hash indexes repeatedly leaks arena
// space.
func (db *DB) dropHashIndex(index IndexId) {
	db.logger.Warn("index error: hash index storage is not reclaimed")
	db.indexes[index].hash = nil
}
