// List cells.
//
// The index registry chains index ids, template ids and hash-bucket record
// lists through cons cells allocated from a shared arena. A listId of 0 is
// the empty list.
//
// Insertion positions are expressed as a stable anchor plus an optional
// predecessor cell, never as a pointer into the cell arena: inserting
// allocates, and allocation may move the arena.
package whitedb

type listId int32

type cell struct {
	car   int32
	cdr   listId
	inuse bool
}

// chainPos addresses a link of a chain: the anchor when pred is 0,
// otherwise the cdr of cell pred. The anchor pointer must not point into
// the cell arena.
type chainPos struct {
	anchor *listId
	pred   listId
}

func (db *DB) chainHead(p chainPos) listId {
	if p.pred == 0 {
		return *p.anchor
	}
	return db.cells[p.pred].cdr
}

// chainInsert splices a new cell in at the given position.
func (db *DB) chainInsert(p chainPos, value int32) listId {
	var id listId
	if n := len(db.cellFree); n > 0 {
		id = db.cellFree[n-1]
		db.cellFree = db.cellFree[:n-1]
	} else {
		db.cells = append(db.cells, cell{})
		id = listId(len(db.cells) - 1)
	}
	if p.pred == 0 {
		db.cells[id] = cell{car: value, cdr: *p.anchor, inuse: true}
		*p.anchor = id
	} else {
		db.cells[id] = cell{car: value, cdr: db.cells[p.pred].cdr, inuse: true}
		db.cells[p.pred].cdr = id
	}
	return id
}

// deleteFromList unlinks and frees the element *head points to. Safe while
// walking with pointers: deletion never allocates.
func (db *DB) deleteFromList(head *listId) {
	id := *head
	*head = db.cells[id].cdr
	db.cells[id] = cell{}
	db.cellFree = append(db.cellFree, id)
}

// removeFromList finds value in the list anchored at head and deletes its
// cell. Reports whether the value was present.
func (db *DB) removeFromList(head *listId, value int32) bool {
	for *head != 0 {
		if db.cells[*head].car == value {
			db.deleteFromList(head)
			return true
		}
		head = &db.cells[*head].cdr
	}
	return false
}
