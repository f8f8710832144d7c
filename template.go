// Index templates.
//
// A template is a match record: fixed slots restrict an index to records
// whose corresponding fields compare equal, VAR slots are wildcards.
// Templates are deduplicated in a master list kept sorted by fixed-column
// count, descending, so candidate picking can stop at the first match.
package whitedb

// templateId is a handle to an index template. 0 means no template.
type templateId int32

type indexTemplate struct {
	matchRec     RecordId
	fixedColumns int
	refcount     int
	inuse        bool
}

func (db *DB) tmpl(id templateId) *indexTemplate { return &db.tmpls[id] }

// templateShape validates a match record and returns its fixed-column
// count and the length with trailing wildcards trimmed.
func (db *DB) templateShape(matchrec []Value) (fixed, reclen int, err error) {
	last := 0
	for i, v := range matchrec {
		t := v.Type()
		if t == TypeRecord {
			// Record links in templates would drag document comparison
			// into every index update. Banned.
			return 0, 0, ErrInvalidValue
		}
		if t != TypeVar {
			fixed++
			last = i
		}
	}
	if fixed == 0 {
		return 0, 0, ErrEmptyTemplate
	}
	return fixed, last + 1, nil
}

// scanTemplateList finds a template equal to matchrec. When none exists it
// returns the position where a new one keeps the list sorted.
func (db *DB) scanTemplateList(matchrec []Value, fixed, reclen int) (found templateId, pos chainPos) {
	pos = chainPos{anchor: &db.templateList}
	for {
		head := db.chainHead(pos)
		if head == 0 {
			return 0, pos
		}
		elem := db.cells[head]
		t := db.tmpl(templateId(elem.car))
		if t.fixedColumns < fixed {
			// New template is more selective; insert ahead.
			return 0, pos
		}
		if t.fixedColumns == fixed && reclen == db.RecordLen(t.matchRec) {
			match := true
			for i := 0; i < reclen; i++ {
				if matchrec[i].Type() == TypeVar {
					continue
				}
				if db.Compare(matchrec[i], db.GetField(t.matchRec, i)) != Equal {
					match = false
					break
				}
			}
			if match {
				return templateId(elem.car), pos
			}
		}
		pos = chainPos{anchor: pos.anchor, pred: head}
	}
}

// addIndexTemplate deduplicates matchrec against the master template list
// and returns the (possibly pre-existing) template.
func (db *DB) addIndexTemplate(matchrec []Value) (templateId, error) {
	fixed, reclen, err := db.templateShape(matchrec)
	if err != nil {
		return 0, err
	}
	found, pos := db.scanTemplateList(matchrec, fixed, reclen)
	if found != 0 {
		return found, nil
	}

	// Materialise the match record; the notdata|match bits keep it out of
	// scans and indexes. SetField takes ownership of each value's
	// out-of-line storage.
	rec, err := db.createRawRecord(reclen)
	if err != nil {
		return 0, err
	}
	db.rec(rec).meta |= metaSpecial
	for i := 0; i < reclen; i++ {
		if err := db.SetField(rec, i, matchrec[i]); err != nil {
			return 0, err
		}
	}

	var id templateId
	if n := len(db.tmplFree); n > 0 {
		id = db.tmplFree[n-1]
		db.tmplFree = db.tmplFree[:n-1]
	} else {
		db.tmpls = append(db.tmpls, indexTemplate{})
		id = templateId(len(db.tmpls) - 1)
	}
	db.tmpls[id] = indexTemplate{matchRec: rec, fixedColumns: fixed, inuse: true}
	db.chainInsert(pos, int32(id))
	return id, nil
}

// findIndexTemplate is the read-only counterpart of addIndexTemplate.
func (db *DB) findIndexTemplate(matchrec []Value) (templateId, error) {
	fixed, reclen, err := db.templateShape(matchrec)
	if err != nil {
		return 0, err
	}
	found, _ := db.scanTemplateList(matchrec, fixed, reclen)
	if found == 0 {
		return 0, ErrNotFound
	}
	return found, nil
}

// removeIndexTemplate frees a template no index references anymore.
func (db *DB) removeIndexTemplate(id templateId) {
	t := db.tmpl(id)
	rec := t.matchRec
	db.removeFromList(&db.templateList, int32(id))
	db.tmpls[id] = indexTemplate{}
	db.tmplFree = append(db.tmplFree, id)
	db.DeleteRecord(rec)
}

// matchIndexTemplate checks a record against an index's template; indexes
// without one match everything. Fields beyond the template always match;
// records shorter than the template never do, since templates end in a
// fixed column.
func (db *DB) matchIndexTemplate(id templateId, rec RecordId) bool {
	if id == 0 {
		return true
	}
	t := db.tmpl(id)
	mreclen := db.RecordLen(t.matchRec)
	reclen := db.RecordLen(rec)
	if mreclen > reclen {
		return false
	}
	for i := 0; i < mreclen; i++ {
		enc := db.GetField(t.matchRec, i)
		if enc.Type() == TypeVar {
			continue
		}
		if db.Compare(enc, db.GetField(rec, i)) != Equal {
			return false
		}
	}
	return true
}
