// Index validation.
//
// ValidateIndex re-derives every structural invariant of an index and
// reports the first breach. Used by the index tool and the test suite; it
// touches nothing, so it is safe to run on a live database between
// mutations.
package whitedb

import "fmt"

// ValidateIndex checks the structural invariants of an index: for T-trees
// the node/array/chain invariants, for hash indexes the membership of
// every indexed record.
func (db *DB) ValidateIndex(id IndexId) error {
	hdr, err := db.indexHdr(id)
	if err != nil {
		return err
	}
	switch hdr.typ {
	case IndexTypeTTree, IndexTypeTTreeJSON:
		return db.validateTTree(id)
	case IndexTypeHash, IndexTypeHashJSON:
		return db.validateHash(id)
	}
	return ErrInvalidIndexType
}

func (db *DB) validateTTree(id IndexId) error {
	hdr := &db.indexes[id]
	column := hdr.columns[0]
	if hdr.root == 0 {
		return fmt.Errorf("%w: no root node", ErrCorruptIndex)
	}

	visited := make(map[nodeId]bool)
	if _, err := db.validateTNode(hdr.root, 0, column, visited); err != nil {
		return err
	}

	// The chain must visit every node exactly once in key order and
	// terminate at the header's min/max.
	chained := 0
	var prev nodeId
	for id := hdr.minNode; id != 0; id = db.node(id).succ {
		n := db.node(id)
		if !visited[id] {
			return fmt.Errorf("%w: chain visits node outside the tree", ErrCorruptIndex)
		}
		if n.pred != prev {
			return fmt.Errorf("%w: chain pred/succ mismatch", ErrCorruptIndex)
		}
		if prev != 0 && n.count > 0 {
			p := db.node(prev)
			if p.count > 0 && db.Compare(p.currentMax, n.currentMin) == Greater {
				return fmt.Errorf("%w: chain out of key order", ErrCorruptIndex)
			}
		}
		prev = id
		chained++
	}
	if prev != hdr.maxNode {
		return fmt.Errorf("%w: chain does not end at max node", ErrCorruptIndex)
	}
	if chained != len(visited) {
		return fmt.Errorf("%w: chain misses %d nodes", ErrCorruptIndex, len(visited)-chained)
	}
	return nil
}

// validateTNode checks one node and returns the subtree height.
func (db *DB) validateTNode(id, parent nodeId, column int, visited map[nodeId]bool) (int, error) {
	if visited[id] {
		return 0, fmt.Errorf("%w: node visited twice", ErrCorruptIndex)
	}
	visited[id] = true
	n := db.node(id)
	if n.parent != parent {
		return 0, fmt.Errorf("%w: parent pointer mismatch", ErrCorruptIndex)
	}
	if n.count == 0 && parent != 0 {
		return 0, fmt.Errorf("%w: empty non-root node", ErrCorruptIndex)
	}
	if n.left != 0 && n.right != 0 && n.count == 0 {
		return 0, fmt.Errorf("%w: empty internal node", ErrCorruptIndex)
	}

	if n.count > 0 {
		for i := 0; i < n.count-1; i++ {
			a := db.columnValue(n.values[i], column)
			b := db.columnValue(n.values[i+1], column)
			if db.Compare(a, b) == Greater {
				return 0, fmt.Errorf("%w: node array not sorted", ErrCorruptIndex)
			}
		}
		if db.Compare(n.currentMin, db.columnValue(n.values[0], column)) != Equal {
			return 0, fmt.Errorf("%w: current_min out of sync", ErrCorruptIndex)
		}
		if db.Compare(n.currentMax, db.columnValue(n.values[n.count-1], column)) != Equal {
			return 0, fmt.Errorf("%w: current_max out of sync", ErrCorruptIndex)
		}
	}

	lh, rh := 0, 0
	if n.left != 0 {
		var err error
		if lh, err = db.validateTNode(n.left, id, column, visited); err != nil {
			return 0, err
		}
	}
	if n.right != 0 {
		var err error
		if rh, err = db.validateTNode(n.right, id, column, visited); err != nil {
			return 0, err
		}
	}
	if lh != n.leftHeight || rh != n.rightHeight {
		return 0, fmt.Errorf("%w: stored subtree heights stale", ErrCorruptIndex)
	}
	if lh-rh > 1 || rh-lh > 1 {
		return 0, fmt.Errorf("%w: tree out of balance", ErrCorruptIndex)
	}
	return max(lh, rh) + 1, nil
}

// validateHash verifies that every record the index should cover is
// reachable through a search on its column values.
func (db *DB) validateHash(id IndexId) error {
	hdr := &db.indexes[id]
	for rec, ok := db.FirstRecord(); ok; rec, ok = db.NextRecord(rec) {
		if db.RecordLen(rec) <= hdr.columns[len(hdr.columns)-1] {
			continue
		}
		if !db.matchIndexTemplate(hdr.template, rec) {
			continue
		}
		if hdr.typ == IndexTypeHashJSON && !db.isPlain(rec) {
			continue
		}
		values := make([]Value, len(hdr.columns))
		unwrap := false
		for i, c := range hdr.columns {
			values[i] = db.GetField(rec, c)
			if hdr.typ == IndexTypeHashJSON && values[i].Type() == TypeRecord &&
				db.isSchemaArray(values[i].DecodeRecord()) {
				unwrap = true
			}
		}
		if unwrap {
			// Array-valued fields are covered by per-element entries;
			// checked through the element searches in tests.
			continue
		}
		rows, err := db.SearchHash(id, values)
		if err != nil {
			return err
		}
		found := false
		for _, r := range rows {
			if r == rec {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("%w: record %d missing from hash index", ErrCorruptIndex, rec)
		}
	}
	return nil
}
