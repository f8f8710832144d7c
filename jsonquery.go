// Document (JSON) queries.
//
// A clause (key, value) selects documents containing a kv-pair whose key
// equals the clause key and whose value equals the clause value — or, when
// the stored value is an array record, contains it as an element, matching
// what the JSON hash index does at insert time.
//
// Clause evaluation picks the cheapest available access path: a two-column
// JSON hash index on (key, value) for literal values, a T-tree on the key
// column, a rescan of the running result, or a full scan. Each clause's
// rows are dedup'd (one document can contain a pair many times), then
// intersected with the running result.
package whitedb

// JSONArg is one clause of a document query.
type JSONArg struct {
	Key   Value
	Value Value
}

// checkAndMergeByKV tests a record's key and value against a clause and
// appends the enclosing document on match. Array-valued fields match when
// any element equals the clause value. Returns whether a row was merged.
func (db *DB) checkAndMergeByKV(rec RecordId, arg JSONArg, next *resultSet) (bool, error) {
	if db.RecordLen(rec) <= SchemaValueOffset {
		return false, nil
	}
	if db.Compare(db.GetField(rec, SchemaKeyOffset), arg.Key) != Equal {
		return false, nil
	}
	return db.mergeByValue(rec, arg, next)
}

// checkAndMergeByKey is checkAndMergeByKV without the key comparison; the
// caller is iterating a key index.
func (db *DB) checkAndMergeByKey(rec RecordId, arg JSONArg, next *resultSet) (bool, error) {
	if db.RecordLen(rec) <= SchemaValueOffset {
		return false, nil
	}
	return db.mergeByValue(rec, arg, next)
}

func (db *DB) mergeByValue(rec RecordId, arg JSONArg, next *resultSet) (bool, error) {
	v := db.GetField(rec, SchemaValueOffset)
	if db.Compare(v, arg.Value) == Equal {
		return true, db.addDocToResultSet(rec, next)
	}
	if v.Type() == TypeRecord {
		arec := v.DecodeRecord()
		if db.isSchemaArray(arec) {
			n := db.RecordLen(arec)
			for i := 0; i < n; i++ {
				if db.Compare(db.GetField(arec, i), arg.Value) == Equal {
					return true, db.addDocToResultSet(rec, next)
				}
			}
		}
	}
	return false, nil
}

// checkAndMergeRecursively matches a record or any of its descendants
// against a clause, stopping at the first match.
func (db *DB) checkAndMergeRecursively(rec RecordId, arg JSONArg, next *resultSet, depth int) (bool, error) {
	matched, err := db.checkAndMergeByKV(rec, arg, next)
	if matched || err != nil {
		return matched, err
	}
	if depth <= 0 {
		db.logger.Error("query error: scanning document: recursion too deep")
		return false, ErrTooDeep
	}
	reclen := db.RecordLen(rec)
	for i := 0; i < reclen; i++ {
		enc := db.GetField(rec, i)
		if enc.Type() == TypeRecord {
			matched, err = db.checkAndMergeRecursively(enc.DecodeRecord(), arg, next, depth-1)
			if matched || err != nil {
				return matched, err
			}
		}
	}
	return false, nil
}

func (db *DB) addDocToResultSet(rec RecordId, set *resultSet) error {
	doc, ok := db.FindDocument(rec)
	if !ok {
		return db.queryError("failed to retrieve the document")
	}
	set.append(doc)
	return nil
}

// prepareJSONArglist sorts literal-valued clauses ahead of record-valued
// ones (only the former can use the hash index) and locates the usable
// indexes: the (key, value) JSON hash and, when some clause cannot use it,
// a T-tree on the key column.
func (db *DB) prepareJSONArglist(arglist []JSONArg) (sorted []JSONArg, hashIndex, keyIndex IndexId) {
	kvCols := []int{SchemaKeyOffset, SchemaValueOffset}
	if id, err := db.ColumnToIndex(kvCols, IndexTypeHashJSON, nil); err == nil {
		hashIndex = id
	}

	needTTree := false
	if len(arglist) > 1 {
		sorted = make([]JSONArg, 0, len(arglist))
		for _, arg := range arglist {
			if arg.Value.Type() != TypeRecord {
				sorted = append(sorted, arg)
			}
		}
		if len(sorted) < len(arglist) {
			needTTree = true
		}
		for _, arg := range arglist {
			if arg.Value.Type() == TypeRecord {
				sorted = append(sorted, arg)
			}
		}
	} else {
		sorted = arglist
		// Complex structures are not present in the hash index.
		if arglist[0].Value.Type() == TypeRecord {
			needTTree = true
		}
	}

	if hashIndex == 0 || needTTree {
		if id, err := db.ColumnToIndex([]int{SchemaKeyOffset}, IndexTypeTTree, nil); err == nil {
			keyIndex = id
		}
	}
	return sorted, hashIndex, keyIndex
}

// MakeJSONQuery finds the documents containing every given key-value
// pair. The result is a prefetch query over document roots.
func (db *DB) MakeJSONQuery(arglist []JSONArg) (*Query, error) {
	if len(arglist) < 1 {
		return nil, ErrInvalidValue
	}
	sorted, hashIndex, keyIndex := db.prepareJSONArglist(arglist)

	var currRes *resultSet
	for _, arg := range sorted {
		nextSet := newResultSet()
		skipIntersect := false

		switch {
		case hashIndex > 0 && arg.Value.Type() != TypeRecord:
			// Probe the hash, then climb to each row's document.
			rows, err := db.SearchHash(hashIndex, []Value{arg.Key, arg.Value})
			if err != nil {
				return nil, err
			}
			for _, rec := range rows {
				if err := db.addDocToResultSet(rec, nextSet); err != nil {
					return nil, err
				}
			}

		case keyIndex > 0:
			// Hash not usable; scan the key range of a T-tree to cut the
			// records visited, testing values (with array unwrap) as we go.
			co, cs, eo, es, err := db.findTTreeBounds(keyIndex, SchemaKeyOffset,
				arg.Key, arg.Key, true, true)
			if err != nil {
				co = 0
			}
			for co != 0 {
				n := db.node(co)
				rec := n.values[cs]
				if _, err := db.checkAndMergeByKey(rec, arg, nextSet); err != nil {
					return nil, err
				}
				if co == eo && cs == es {
					break
				}
				cs++
				if cs >= n.count {
					if eo == co {
						db.queryError("end slot mismatch, possible bug")
						break
					}
					co = n.succ
					cs = 0
				}
			}

		case currRes != nil:
			// No index; rescan the documents already selected. next is a
			// subset of the running result, so the intersect step would
			// be a no-op.
			currRes.rewind()
			for rec := currRes.fetch(); rec != 0; rec = currRes.fetch() {
				if _, err := db.checkAndMergeRecursively(rec, arg, nextSet, CompareDepth); err != nil {
					return nil, err
				}
			}
			currRes = nil
			skipIntersect = true

		default:
			// Nothing else to lean on: full scan.
			for rec, ok := db.FirstRecord(); ok; rec, ok = db.NextRecord(rec) {
				if _, err := db.checkAndMergeByKV(rec, arg, nextSet); err != nil {
					return nil, err
				}
			}
		}

		// One document may match a clause many times.
		nextSet = uniqueResultSet(nextSet)

		if currRes != nil && !skipIntersect {
			currRes = intersectResultSet(currRes, nextSet)
		} else {
			currRes = nextSet
		}
	}

	// Wrap the final set as a prefetch query.
	query := &Query{
		db:       db,
		qtype:    qtypePrefetch,
		column:   -1,
		pool:     currRes.pool,
		currPage: currRes.first,
		resCount: currRes.count,
	}
	return query, nil
}
