// Index registry.
//
// Every index hangs off the per-column chains of its columns and off a
// master list. Chains are kept ordered by the template's fixed-column
// count, descending, indexes without templates last, so that candidate
// picking can stop at the first match. Indexes whose template fixes a
// column additionally appear in that column's template chain: a field
// update on such a column can flip the record in or out of the template
// and the registry must hear about it.
//
// Whole-record callbacks touch each index exactly once per record: the
// walk over the record's columns only acts on an index at its last column
// (which also guarantees the record is long enough for a multi-column
// index). Field callbacks act on every index of the changed column whose
// last column the record reaches.
package whitedb

import "errors"

// IndexId is a handle to an index. It doubles as the index id in the
// public API.
type IndexId int32

// IndexType selects the index engine.
type IndexType int

// Index type codes.
const (
	IndexTypeTTree     IndexType = 50
	IndexTypeTTreeJSON IndexType = 51
	IndexTypeHash      IndexType = 60
	IndexTypeHashJSON  IndexType = 61
)

type indexHeader struct {
	typ      IndexType
	columns  []int // sorted, unique
	template templateId
	inuse    bool

	// T-tree control block
	root    nodeId
	minNode nodeId
	maxNode nodeId

	// hash control block
	hash *idxHash
}

func (db *DB) indexHdr(id IndexId) (*indexHeader, error) {
	if id <= 0 || int(id) >= len(db.indexes) || !db.indexes[id].inuse {
		return nil, ErrIndexNotFound
	}
	return &db.indexes[id], nil
}

// sortColumns sorts and deduplicates a column list.
func sortColumns(columns []int) ([]int, error) {
	sorted := make([]int, 0, len(columns))
	prev := -1
	for range columns {
		lowest, found := 0, false
		for _, c := range columns {
			if c > prev && (!found || c < lowest) {
				lowest, found = c, true
			}
		}
		if !found {
			break
		}
		sorted = append(sorted, lowest)
		prev = lowest
	}
	if len(sorted) < len(columns) {
		return nil, ErrDuplicateColumn
	}
	return sorted, nil
}

// CreateIndex creates an index over the given columns and enters every
// matching record into it. A non-nil matchrec restricts the index to
// records matching the template; indexed columns must be wildcards there.
func (db *DB) CreateIndex(columns []int, typ IndexType, matchrec []Value) (IndexId, error) {
	if len(columns) < 1 {
		return 0, ErrColumnOutOfRange
	}
	if len(columns) > maxIndexFields {
		return 0, ErrColumnOutOfRange
	}
	if len(columns) > 1 && (typ == IndexTypeTTree || typ == IndexTypeTTreeJSON) {
		// T-tree indexes are single-column.
		return 0, ErrDuplicateColumn
	}
	switch typ {
	case IndexTypeTTree, IndexTypeHash, IndexTypeHashJSON:
	default:
		return 0, ErrInvalidIndexType
	}
	sorted, err := sortColumns(columns)
	if err != nil {
		return 0, err
	}
	for _, c := range sorted {
		if c > MaxIndexedFieldNr {
			return 0, ErrColumnOutOfRange
		}
	}

	var template templateId
	fixed := 0
	if matchrec != nil {
		if len(matchrec) == 0 {
			return 0, ErrEmptyTemplate
		}
		if len(matchrec) > MaxIndexedFieldNr+1 {
			return 0, ErrColumnOutOfRange
		}
		for _, c := range sorted {
			if c < len(matchrec) && matchrec[c].Type() != TypeVar {
				return 0, ErrInvalidValue // indexed column fixed in template
			}
		}
		template, err = db.addIndexTemplate(matchrec)
		if err != nil {
			return 0, err
		}
		fixed = db.tmpl(template).fixedColumns
	}

	// Find the insertion position in every column chain; the first
	// column's walk also detects an identical existing index.
	positions := make([]chainPos, len(sorted))
	for i, column := range sorted {
		pos := chainPos{anchor: &db.indexTable[column]}
		for {
			head := db.chainHead(pos)
			if head == 0 {
				break
			}
			hdr := &db.indexes[db.cells[head].car]
			if i == 0 && hdr.typ == typ && hdr.template == template &&
				len(hdr.columns) == len(sorted) {
				match := true
				for j := range sorted {
					if hdr.columns[j] != sorted[j] {
						match = false
						break
					}
				}
				if match {
					return 0, ErrIndexExists
				}
			}
			if hdr.template != 0 {
				if db.tmpl(hdr.template).fixedColumns < fixed {
					break // new template is more selective, insert here
				}
			} else if fixed > 0 {
				// Templated indexes sort before bare ones.
				break
			}
			pos = chainPos{anchor: pos.anchor, pred: head}
		}
		positions[i] = pos
	}

	// Allocate the header and splice it in.
	var id IndexId
	if n := len(db.idxFree); n > 0 {
		id = db.idxFree[n-1]
		db.idxFree = db.idxFree[:n-1]
	} else {
		db.indexes = append(db.indexes, indexHeader{})
		id = IndexId(len(db.indexes) - 1)
	}
	db.indexes[id] = indexHeader{typ: typ, columns: sorted, template: template, inuse: true}
	for i := range sorted {
		db.chainInsert(positions[i], int32(id))
	}

	switch typ {
	case IndexTypeTTree:
		err = db.createTTreeIndex(id)
	case IndexTypeHash, IndexTypeHashJSON:
		err = db.createHashIndex(id)
	}
	if err != nil {
		// Unwind the partially created index.
		db.unlinkIndex(id)
		return 0, err
	}

	db.chainInsert(chainPos{anchor: &db.indexList}, int32(id))
	if template != 0 {
		t := db.tmpl(template)
		mreclen := db.RecordLen(t.matchRec)
		for i := 0; i < mreclen; i++ {
			if db.GetField(t.matchRec, i).Type() != TypeVar {
				db.chainInsert(chainPos{anchor: &db.templateTable[i]}, int32(id))
			}
		}
		t.refcount++
	}
	db.indexCount++
	return id, nil
}

// unlinkIndex removes a header from the column chains and frees it.
func (db *DB) unlinkIndex(id IndexId) {
	hdr := &db.indexes[id]
	for _, column := range hdr.columns {
		db.removeFromList(&db.indexTable[column], int32(id))
	}
	db.indexes[id] = indexHeader{}
	db.idxFree = append(db.idxFree, id)
}

// DropIndex removes an index from the registry and releases its storage.
func (db *DB) DropIndex(id IndexId) error {
	hdr, err := db.indexHdr(id)
	if err != nil {
		return err
	}
	if !db.removeFromList(&db.indexList, int32(id)) {
		return ErrIndexNotFound
	}
	template := hdr.template
	if template != 0 {
		t := db.tmpl(template)
		mreclen := db.RecordLen(t.matchRec)
		for i := 0; i < mreclen; i++ {
			if db.GetField(t.matchRec, i).Type() != TypeVar {
				db.removeFromList(&db.templateTable[i], int32(id))
			}
		}
	}
	switch hdr.typ {
	case IndexTypeTTree, IndexTypeTTreeJSON:
		db.dropTTreeIndex(id)
	case IndexTypeHash, IndexTypeHashJSON:
		db.dropHashIndex(id)
	}
	db.unlinkIndex(id)
	if template != 0 {
		t := db.tmpl(template)
		t.refcount--
		if t.refcount == 0 {
			db.removeIndexTemplate(template)
		}
	}
	db.indexCount--
	return nil
}

// ColumnToIndex finds an index over exactly the given columns. A zero typ
// matches any type; a non-nil matchrec requires an index restricted by an
// equal template.
func (db *DB) ColumnToIndex(columns []int, typ IndexType, matchrec []Value) (IndexId, error) {
	var template templateId
	if matchrec != nil {
		var err error
		template, err = db.findIndexTemplate(matchrec)
		if err != nil {
			return 0, ErrIndexNotFound
		}
	}
	if len(columns) < 1 || len(columns) > maxIndexFields {
		return 0, ErrColumnOutOfRange
	}
	sorted, err := sortColumns(columns)
	if err != nil {
		return 0, err
	}
	for _, c := range sorted {
		if c > MaxIndexedFieldNr {
			return 0, ErrColumnOutOfRange
		}
	}

	for l := db.indexTable[sorted[0]]; l != 0; l = db.cells[l].cdr {
		id := IndexId(db.cells[l].car)
		hdr := &db.indexes[id]
		if typ != 0 && typ != hdr.typ {
			continue
		}
		if hdr.template != template {
			continue
		}
		if len(hdr.columns) != len(sorted) {
			continue
		}
		match := true
		for i := range sorted {
			if hdr.columns[i] != sorted[i] {
				match = false
				break
			}
		}
		if match {
			return id, nil
		}
	}
	return 0, ErrIndexNotFound
}

// GetIndexType returns the type of an index.
func (db *DB) GetIndexType(id IndexId) (IndexType, error) {
	hdr, err := db.indexHdr(id)
	if err != nil {
		return 0, err
	}
	return hdr.typ, nil
}

// GetIndexTemplate returns a copy of the index's template fields, or nil
// when the index has none.
func (db *DB) GetIndexTemplate(id IndexId) ([]Value, error) {
	hdr, err := db.indexHdr(id)
	if err != nil {
		return nil, err
	}
	if hdr.template == 0 {
		return nil, nil
	}
	rec := db.tmpl(hdr.template).matchRec
	out := make([]Value, db.RecordLen(rec))
	for i := range out {
		out[i] = db.GetField(rec, i)
	}
	return out, nil
}

// GetAllIndexes returns the ids of all indexes, grouped by column order.
func (db *DB) GetAllIndexes() []IndexId {
	if db.indexCount == 0 {
		return nil
	}
	res := make([]IndexId, 0, db.indexCount)
	for column := 0; column <= MaxIndexedFieldNr; column++ {
		for l := db.indexTable[column]; l != 0; l = db.cells[l].cdr {
			res = append(res, IndexId(db.cells[l].car))
		}
	}
	// Multi-column indexes appear once per column; keep the first sighting.
	seen := make(map[IndexId]bool, len(res))
	out := res[:0]
	for _, id := range res {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	if len(out) != db.indexCount {
		db.logger.Error("index error: index control area is corrupted")
	}
	return out
}

/* ---------------- mutation dispatch ---------------- */

// indexDispatch runs the engine-specific add or remove for one index.
// JSON variants only see plain records; ErrNotFound from removals is
// tolerated (template transitions remove speculatively).
func (db *DB) indexDispatch(id IndexId, rec RecordId, add bool) error {
	hdr := &db.indexes[id]
	var err error
	switch hdr.typ {
	case IndexTypeTTree:
		if add {
			err = db.ttreeAddRow(id, rec)
		} else {
			err = db.ttreeRemoveRow(id, rec)
		}
	case IndexTypeTTreeJSON:
		if db.isPlain(rec) {
			if add {
				err = db.ttreeAddRow(id, rec)
			} else {
				err = db.ttreeRemoveRow(id, rec)
			}
		}
	case IndexTypeHash, IndexTypeHashJSON:
		if hdr.typ == IndexTypeHash || db.isPlain(rec) {
			if add {
				err = db.hashAddRow(id, rec)
			} else {
				err = db.hashRemoveRow(id, rec)
			}
		}
	default:
		db.logger.Warn("index error: unknown index type, ignoring",
			"type", int(hdr.typ))
	}
	if err != nil && !add && errors.Is(err, ErrNotFound) {
		return nil
	}
	return err
}

// indexAddField enters one field of a record into the indexes of its
// column, including templated indexes the record may just have become
// compatible with.
func (db *DB) indexAddField(rec RecordId, column int) error {
	return db.indexFieldOp(rec, column, true)
}

// indexDelField removes one field of a record from the indexes of its
// column. Called before the field changes, while the old value is still
// in place.
func (db *DB) indexDelField(rec RecordId, column int) error {
	return db.indexFieldOp(rec, column, false)
}

func (db *DB) indexFieldOp(rec RecordId, column int, add bool) error {
	if column > MaxIndexedFieldNr || column >= db.RecordLen(rec) {
		return ErrColumnOutOfRange
	}
	if db.isSpecial(rec) {
		return nil
	}
	reclen := db.RecordLen(rec)

	for l := db.indexTable[column]; l != 0; l = db.cells[l].cdr {
		id := IndexId(db.cells[l].car)
		hdr := &db.indexes[id]
		if reclen > hdr.columns[len(hdr.columns)-1] {
			if db.matchIndexTemplate(hdr.template, rec) {
				if err := db.indexDispatch(id, rec, add); err != nil {
					return err
				}
			}
		}
	}

	// Indexes whose template fixes this column: the update can flip the
	// record in or out of the template.
	for l := db.templateTable[column]; l != 0; l = db.cells[l].cdr {
		id := IndexId(db.cells[l].car)
		hdr := &db.indexes[id]
		if reclen > hdr.columns[len(hdr.columns)-1] {
			if db.matchIndexTemplate(hdr.template, rec) {
				if err := db.indexDispatch(id, rec, add); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// indexAddRec enters an entire record into all applicable indexes. Each
// index is visited once: only when the loop reaches its last column.
func (db *DB) indexAddRec(rec RecordId) error {
	return db.indexRecOp(rec, true)
}

// indexDelRec removes an entire record from all applicable indexes.
func (db *DB) indexDelRec(rec RecordId) error {
	return db.indexRecOp(rec, false)
}

func (db *DB) indexRecOp(rec RecordId, add bool) error {
	if db.isSpecial(rec) {
		return nil
	}
	reclen := db.RecordLen(rec)
	if reclen > MaxIndexedFieldNr {
		reclen = MaxIndexedFieldNr + 1
	}
	for i := 0; i < reclen; i++ {
		for l := db.indexTable[i]; l != 0; l = db.cells[l].cdr {
			id := IndexId(db.cells[l].car)
			hdr := &db.indexes[id]
			if hdr.columns[len(hdr.columns)-1] != i {
				continue
			}
			if db.RecordLen(rec) <= i {
				continue
			}
			if db.matchIndexTemplate(hdr.template, rec) {
				if err := db.indexDispatch(id, rec, add); err != nil {
					return err
				}
			}
		}
	}
	return nil
}
