// Sequential record traversal.
//
// FirstRecord/NextRecord walk the record arena in allocation order,
// skipping parameter records (notdata or match bits set). Full-scan query
// plans, index builds and the convenience finders are all driven through
// this pair.
package whitedb

// FirstRecord returns the first data record, or false when the database
// holds none.
func (db *DB) FirstRecord() (RecordId, bool) {
	return db.nextFrom(1)
}

// NextRecord returns the data record following id in allocation order.
func (db *DB) NextRecord(id RecordId) (RecordId, bool) {
	return db.nextFrom(id + 1)
}

func (db *DB) nextFrom(start RecordId) (RecordId, bool) {
	for i := int(start); i < len(db.records); i++ {
		r := &db.records[i]
		if r.inuse && r.meta&metaSpecial == 0 {
			return RecordId(i), true
		}
	}
	return 0, false
}

// FindRecord returns the first data record after lastrecord whose column
// satisfies (cond, value). Pass lastrecord 0 to start from the beginning.
// Builds a fresh query per call; loops that visit many rows should build
// one query and Fetch from it instead.
func (db *DB) FindRecord(column int, cond Cond, value Value, lastrecord RecordId) (RecordId, bool) {
	args := []QueryArg{{Column: column, Cond: cond, Value: value}}
	q, err := db.buildQuery(nil, args, false, 0)
	if err != nil {
		return 0, false
	}
	passed := lastrecord == 0
	for {
		rec, ok := q.Fetch()
		if !ok {
			return 0, false
		}
		if passed {
			return rec, true
		}
		if rec == lastrecord {
			passed = true
		}
	}
}

// FindRecordInt is FindRecord over an integer key.
func (db *DB) FindRecordInt(column int, cond Cond, value int64, lastrecord RecordId) (RecordId, bool) {
	return db.FindRecord(column, cond, db.EncodeInt(value), lastrecord)
}

// FindRecordStr is FindRecord over a string key.
func (db *DB) FindRecordStr(column int, cond Cond, value string, lastrecord RecordId) (RecordId, bool) {
	return db.FindRecord(column, cond, db.EncodeStr(value, ""), lastrecord)
}
