// Records and field mutation.
//
// A record is a fixed-length array of encoded values plus a meta word with
// independent bits: array, object, document (schema roles), notdata and
// match (parameter/template records). Records carrying notdata or match
// are invisible to scans and never enter indexes.
//
// All mutation goes through the field-set API so that indexes stay in
// lockstep with record data: the column's indexes drop the old value
// before the write and pick up the new value after it. Skipping this API
// is the only way indexes can become inconsistent.
package whitedb

// RecordId is a handle to a record. 0 is the nil record.
type RecordId int32

// Record meta bits. Independent; a record may carry any combination.
const (
	MetaArray   = 1
	MetaObject  = 2
	MetaDoc     = 4
	MetaNotData = 8
	MetaMatch   = 16

	metaSpecial = MetaNotData | MetaMatch
)

type record struct {
	fields []Value
	meta   uint8
	inuse  bool
}

func (db *DB) rec(id RecordId) *record { return &db.records[id] }

// CreateRecord allocates a record of the given length with all fields NULL
// and enters it into every applicable index.
func (db *DB) CreateRecord(length int) (RecordId, error) {
	id, err := db.createRawRecord(length)
	if err != nil {
		return 0, err
	}
	if err := db.indexAddRec(id); err != nil {
		return 0, err
	}
	return id, nil
}

// createRawRecord allocates a record without touching indexes. Used for
// match records and by the schema layer, which sets meta bits first.
func (db *DB) createRawRecord(length int) (RecordId, error) {
	if length < 1 {
		return 0, ErrInvalidValue
	}
	var id RecordId
	if n := len(db.recFree); n > 0 {
		id = db.recFree[n-1]
		db.recFree = db.recFree[:n-1]
	} else {
		db.records = append(db.records, record{})
		id = RecordId(len(db.records) - 1)
	}
	fields := make([]Value, length)
	for i := range fields {
		fields[i] = Null
	}
	db.records[id] = record{fields: fields, inuse: true}
	return id, nil
}

// DeleteRecord removes a record from all indexes and frees it. Records
// still referenced from other records' fields cannot be deleted.
func (db *DB) DeleteRecord(id RecordId) error {
	r := db.rec(id)
	if len(db.backlinks[id]) > 0 {
		return ErrHasReferences
	}
	if r.meta&metaSpecial == 0 {
		if err := db.indexDelRec(id); err != nil {
			return err
		}
	}
	for i, v := range r.fields {
		if v.Type() == TypeRecord {
			db.dropBacklink(v.DecodeRecord(), id)
		}
		db.release(v)
		r.fields[i] = Null
	}
	delete(db.backlinks, id)
	db.records[id] = record{}
	db.recFree = append(db.recFree, id)
	return nil
}

// RecordLen returns the number of fields in a record.
func (db *DB) RecordLen(id RecordId) int {
	return len(db.rec(id).fields)
}

// RecordMeta returns the meta bits of a record.
func (db *DB) RecordMeta(id RecordId) int {
	return int(db.rec(id).meta)
}

func (db *DB) isSpecial(id RecordId) bool {
	return db.rec(id).meta&metaSpecial != 0
}

// isPlain reports whether a record is neither a schema array/object nor a
// parameter record. Only plain records are hashed by JSON indexes.
func (db *DB) isPlain(id RecordId) bool {
	return db.rec(id).meta&(MetaArray|MetaObject|metaSpecial) == 0
}

func (db *DB) isSchemaArray(id RecordId) bool {
	return db.rec(id).meta&MetaArray != 0
}

func (db *DB) isSchemaDocument(id RecordId) bool {
	return db.rec(id).meta&MetaDoc != 0
}

// GetField returns the encoded value of a field.
func (db *DB) GetField(id RecordId, column int) Value {
	r := db.rec(id)
	if column < 0 || column >= len(r.fields) {
		return Illegal
	}
	return r.fields[column]
}

// SetField stores an encoded value into a field, maintaining indexes and
// backlinks. Ownership of out-of-line storage behind value transfers to
// the field; encode a value once per field it is stored in.
func (db *DB) SetField(id RecordId, column int, value Value) error {
	r := db.rec(id)
	if column < 0 || column >= len(r.fields) {
		return ErrColumnOutOfRange
	}
	special := r.meta&metaSpecial != 0

	old := r.fields[column]
	if old == value {
		return nil
	}
	if !special && column <= MaxIndexedFieldNr {
		if err := db.indexDelField(id, column); err != nil {
			return err
		}
	}
	if old.Type() == TypeRecord {
		db.dropBacklink(old.DecodeRecord(), id)
	}
	db.release(old)

	r.fields[column] = value
	if value.Type() == TypeRecord {
		db.addBacklink(value.DecodeRecord(), id)
	}
	if !special && column <= MaxIndexedFieldNr {
		if err := db.indexAddField(id, column); err != nil {
			return err
		}
	}
	return nil
}

/* ---------------- backlinks ---------------- */

func (db *DB) addBacklink(target, from RecordId) {
	db.backlinks[target] = append(db.backlinks[target], from)
}

func (db *DB) dropBacklink(target, from RecordId) {
	links := db.backlinks[target]
	for i, l := range links {
		if l == from {
			links[i] = links[len(links)-1]
			links = links[:len(links)-1]
			break
		}
	}
	if len(links) == 0 {
		delete(db.backlinks, target)
	} else {
		db.backlinks[target] = links
	}
}
