// Structured data (schema) layer.
//
// Documents are trees of records: a root carrying the document bit,
// object records whose slots point at three-slot kv-pair records, and
// array records whose slots hold the elements directly. Triples and
// kv-pairs share one shape: (subject, key, value) with a null subject for
// kv-pairs. Parameter variants carry notdata|match and stay invisible to
// scans and indexes.
package whitedb

// Slot positions within triple/kv-pair records.
const (
	SchemaTripleOffset = 0
	SchemaKeyOffset    = 1
	SchemaValueOffset  = 2
	schemaTripleSize   = 3
)

// CreateTriple creates a (subject, property, object) record. With isparam
// set the record is not indexed, now or on later updates.
func (db *DB) CreateTriple(subj, prop, ob Value, isparam bool) (RecordId, error) {
	rec, err := db.createRawRecord(schemaTripleSize)
	if err != nil {
		return 0, err
	}
	if isparam {
		db.rec(rec).meta |= metaSpecial
	} else if err := db.indexAddRec(rec); err != nil {
		return 0, err
	}
	if err := db.SetField(rec, SchemaTripleOffset, subj); err != nil {
		return 0, err
	}
	if err := db.SetField(rec, SchemaTripleOffset+1, prop); err != nil {
		return 0, err
	}
	if err := db.SetField(rec, SchemaTripleOffset+2, ob); err != nil {
		return 0, err
	}
	return rec, nil
}

// CreateKVPair creates a key-value pair record: a triple with a null
// subject.
func (db *DB) CreateKVPair(key, value Value, isparam bool) (RecordId, error) {
	return db.CreateTriple(Null, key, value, isparam)
}

// CreateArray creates an empty array record of the given size. With
// isdocument set the record roots a document tree.
func (db *DB) CreateArray(size int, isdocument, isparam bool) (RecordId, error) {
	return db.createSchemaRecord(size, MetaArray, isdocument, isparam)
}

// CreateObject creates an empty object record of the given size.
func (db *DB) CreateObject(size int, isdocument, isparam bool) (RecordId, error) {
	return db.createSchemaRecord(size, MetaObject, isdocument, isparam)
}

func (db *DB) createSchemaRecord(size int, bit uint8, isdocument, isparam bool) (RecordId, error) {
	rec, err := db.createRawRecord(size)
	if err != nil {
		return 0, err
	}
	meta := bit
	if isdocument {
		meta |= MetaDoc
	}
	if isparam {
		meta |= metaSpecial
	}
	db.rec(rec).meta |= meta
	if !isparam {
		if err := db.indexAddRec(rec); err != nil {
			return 0, err
		}
	}
	return rec, nil
}

// FindDocument walks the backlink chains depth-first to the enclosing
// record with the document bit. A document that links into another
// document's contents can hijack it here; priority follows backlink
// order.
func (db *DB) FindDocument(rec RecordId) (RecordId, bool) {
	return db.findDocumentRecursive(rec, CompareDepth-1)
}

func (db *DB) findDocumentRecursive(rec RecordId, depth int) (RecordId, bool) {
	if db.isSchemaDocument(rec) {
		return rec, true
	}
	if depth > 0 {
		for _, parent := range db.backlinks[rec] {
			if doc, ok := db.findDocumentRecursive(parent, depth-1); ok {
				return doc, true
			}
		}
	}
	return 0, false
}

// DeleteDocument deletes a document root and every record reachable from
// it. Record-valued fields are cleared first so that the backlinks
// holding the children in place are gone by the time the children die.
func (db *DB) DeleteDocument(doc RecordId) error {
	if !db.isSchemaDocument(doc) {
		return ErrNotDocument
	}
	return db.deleteRecordRecursive(doc, CompareDepth)
}

func (db *DB) deleteRecordRecursive(rec RecordId, depth int) error {
	if depth <= 0 {
		return ErrTooDeep
	}
	reclen := db.RecordLen(rec)
	for i := 0; i < reclen; i++ {
		enc := db.GetField(rec, i)
		if enc.Type() == TypeRecord {
			child := enc.DecodeRecord()
			if err := db.SetField(rec, i, Null); err != nil {
				return err
			}
			if err := db.deleteRecordRecursive(child, depth-1); err != nil {
				return err
			}
		}
	}
	return db.DeleteRecord(rec)
}
