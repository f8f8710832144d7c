// Query engine.
//
// A query is built from an optional match record and an argument list,
// normalised into one list of (column, condition, value) clauses. Plan
// selection scores each column by its clauses, finds the best usable
// T-tree index, folds the clauses on the chosen column into the tightest
// range bounds, and keeps the rest for per-row re-checking. With no usable
// index the plan is a full scan.
//
// The public constructors prefetch: the plan runs to completion up front
// and the rows are materialised in result pages, so a Query exposes only a
// page cursor and stays valid however the underlying data changes later.
package whitedb

// Cond is a query condition code. The codes are bit-distinct so that
// future condition unions stay representable.
type Cond int

// Condition codes.
const (
	CondEqual        Cond = 0x01
	CondNotEqual     Cond = 0x02
	CondLess         Cond = 0x04
	CondGreater      Cond = 0x08
	CondLessEqual    Cond = 0x10
	CondGreaterEqual Cond = 0x20
)

// QueryArg is one clause of an argument list.
type QueryArg struct {
	Column int
	Cond   Cond
	Value  Value
}

// Query types.
const (
	qtypeTTree    = 0x01
	qtypeScan     = 0x04
	qtypePrefetch = 0x80
)

// Plan scoring. Kept in one table so the planner stays data-driven;
// conditions not listed score zero (NOT_EQUAL is near useless for
// narrowing an index range).
var condScore = map[Cond]int{
	CondEqual:        5,
	CondLess:         2,
	CondGreater:      2,
	CondLessEqual:    2,
	CondGreaterEqual: 2,
}

const (
	scoreNullPenalty   = -1 // NULL values are likely to be abundant
	scoreTemplateMatch = 5  // per matching fixed column in a template
)

// Query is a compiled, possibly prefetched query.
type Query struct {
	db      *DB
	qtype   int
	arglist []QueryArg // checked against each candidate row
	column  int        // index column, -1 when the full arglist applies

	// T-tree cursor
	currNode  nodeId
	currSlot  int
	endNode   nodeId
	endSlot   int
	direction int

	// full scan cursor
	currRecord RecordId

	// prefetch pages
	pool     *memPool
	currPage *resultPage
	currPidx int
	resCount int
}

/* ---------------- plan selection ---------------- */

// mostRestrictingColumn scores every column of the argument list and
// returns the best one that has a usable T-tree index.
func (db *DB) mostRestrictingColumn(arglist []QueryArg) (int, IndexId) {
	type columnScore struct {
		column int
		score  int
		index  IndexId
	}
	scores := make([]columnScore, 0, len(arglist))

	slot := func(column int) *columnScore {
		for i := range scores {
			if scores[i].column == column {
				return &scores[i]
			}
		}
		scores = append(scores, columnScore{column: column})
		return &scores[len(scores)-1]
	}

	for _, arg := range arglist {
		sc := slot(arg.Column)
		sc.score += condScore[arg.Cond]
		if arg.Cond == CondEqual && arg.Value == Null {
			sc.score += scoreNullPenalty
		}
	}

	mrc, mrcScore := -1, -1
	var mrcIndex IndexId
	for i := range scores {
		sc := &scores[i]
		if sc.column <= MaxIndexedFieldNr {
		chains:
			for l := db.indexTable[sc.column]; l != 0; l = db.cells[l].cdr {
				id := IndexId(db.cells[l].car)
				hdr := &db.indexes[id]
				if hdr.typ != IndexTypeTTree {
					continue
				}
				if hdr.template != 0 {
					// Every fixed column of the template needs a
					// compatible EQ clause, or the index is unusable.
					// The chain is sorted by selectivity, so the first
					// usable template index ends the search.
					matchrec := db.tmpl(hdr.template).matchRec
					mreclen := db.RecordLen(matchrec)
					for j := 0; j < mreclen; j++ {
						enc := db.GetField(matchrec, j)
						if enc.Type() == TypeVar {
							continue
						}
						match := false
						for _, arg := range arglist {
							if arg.Column != j {
								continue
							}
							if arg.Cond == CondEqual &&
								db.Compare(enc, arg.Value) == Equal {
								match = true
							} else {
								continue chains
							}
						}
						if !match {
							continue chains
						}
						sc.score += scoreTemplateMatch
						if enc == Null {
							sc.score += scoreNullPenalty
						}
					}
				}
				sc.index = id
				break
			}
		}
		if sc.index == 0 {
			sc.score = 0 // no index, score reset
		}
		if sc.score > mrcScore {
			mrcScore = sc.score
			mrc = sc.column
			mrcIndex = sc.index
		}
	}
	return mrc, mrcIndex
}

// checkArglist tests a record against a list of clauses. Rows shorter than
// a clause's column fail it, the way comparisons to SQL NULL fail.
func (db *DB) checkArglist(rec RecordId, arglist []QueryArg) bool {
	reclen := db.RecordLen(rec)
	for _, arg := range arglist {
		if arg.Column >= reclen {
			return false
		}
		encoded := db.GetField(rec, arg.Column)
		cr := db.Compare(encoded, arg.Value)
		switch arg.Cond {
		case CondEqual:
			if cr != Equal {
				return false
			}
		case CondNotEqual:
			if cr == Equal {
				return false
			}
		case CondLess:
			if cr != Less {
				return false
			}
		case CondGreater:
			if cr != Greater {
				return false
			}
		case CondLessEqual:
			if cr == Greater {
				return false
			}
		case CondGreaterEqual:
			if cr == Less {
				return false
			}
		}
	}
	return true
}

// prepareParams folds the match record into the argument list: every
// non-wildcard slot becomes an EQ clause. The result is a fresh slice the
// query owns.
func prepareParams(matchrec []Value, arglist []QueryArg) []QueryArg {
	full := make([]QueryArg, 0, len(arglist)+len(matchrec))
	full = append(full, arglist...)
	for i, v := range matchrec {
		if v.Type() != TypeVar {
			full = append(full, QueryArg{Column: i, Cond: CondEqual, Value: v})
		}
	}
	return full
}

/* ---------------- T-tree range bounds ---------------- */

// findTTreeBounds locates the node and slot of both ends of a range in a
// T-tree index. Either bound may be Illegal for "unbounded". A zero start
// node means the range is empty.
func (db *DB) findTTreeBounds(index IndexId, col int,
	startBound, endBound Value, startIncl, endIncl bool) (curNode nodeId, curSlot int, endNode nodeId, endSlot int, err error) {

	hdr := &db.indexes[index]

	var co nodeId
	var cs int
	if startBound == Illegal {
		co = hdr.minNode
		cs = 0 // leftmost slot
	} else if startIncl {
		// Inclusive start: leftmost node with the value, first slot that
		// is equal or greater.
		var boundtype int
		co, boundtype = db.searchTTreeLeftmost(hdr.root, startBound, 0)
		switch boundtype {
		case boundingNode:
			cs = db.searchTNodeFirst(co, startBound, col)
			if cs == -1 {
				return 0, 0, 0, 0, db.queryError("starting index node was bad")
			}
		case deadEndRightNotBounding:
			// No exact match; the next node starts the range.
			co = db.node(co).succ
			cs = 0
		case deadEndLeftNotBounding:
			cs = 0
		}
	} else {
		// Non-inclusive start: rightmost node with the value, last
		// slot+1, possibly overflowing into the successor.
		var boundtype int
		co, boundtype = db.searchTTreeRightmost(hdr.root, startBound, 0)
		switch boundtype {
		case boundingNode:
			cs = db.searchTNodeLast(co, startBound, col)
			if cs == -1 {
				return 0, 0, 0, 0, db.queryError("starting index node was bad")
			}
			cs++
			n := db.node(co)
			if n.count <= cs {
				co = n.succ
				cs = 0
			}
		case deadEndRightNotBounding:
			co = db.node(co).succ
			cs = 0
		case deadEndLeftNotBounding:
			cs = 0
		}
	}

	var eo nodeId
	var es int
	if endBound == Illegal {
		eo = hdr.maxNode
		if eo != 0 {
			es = db.node(eo).count - 1 // rightmost slot
		}
	} else if endIncl {
		var boundtype int
		eo, boundtype = db.searchTTreeRightmost(hdr.root, endBound, 0)
		switch boundtype {
		case boundingNode:
			es = db.searchTNodeLast(eo, endBound, col)
			if es == -1 {
				return 0, 0, 0, 0, db.queryError("ending index node was bad")
			}
		case deadEndRightNotBounding:
			es = db.node(eo).count - 1
		case deadEndLeftNotBounding:
			// Previous node ends the range.
			eo = db.node(eo).pred
			if eo != 0 {
				es = db.node(eo).count - 1
			}
		}
	} else {
		var boundtype int
		eo, boundtype = db.searchTTreeLeftmost(hdr.root, endBound, 0)
		switch boundtype {
		case boundingNode:
			es = db.searchTNodeFirst(eo, endBound, col)
			if es == -1 {
				return 0, 0, 0, 0, db.queryError("ending index node was bad")
			}
			es--
			if es < 0 {
				eo = db.node(eo).pred
				if eo != 0 {
					es = db.node(eo).count - 1
				}
			}
		case deadEndRightNotBounding:
			es = db.node(eo).count - 1
		case deadEndLeftNotBounding:
			eo = db.node(eo).pred
			if eo != 0 {
				es = db.node(eo).count - 1
			}
		}
	}

	// Collapse the cases where the searches produced an empty range: the
	// bounds meet inside one node in the wrong order, one end ran off the
	// tree, or the range fell into the gap between two nodes.
	if co != 0 {
		if eo == co && es < cs {
			co, eo = 0, 0
		} else if eo == 0 {
			co = 0
		} else if eo == db.node(co).pred {
			co, eo = 0, 0
		}
	} else {
		eo = 0
	}
	return co, cs, eo, es, nil
}

/* ---------------- query building ---------------- */

// buildQuery compiles a plan for the unified argument list and optionally
// prefetches the rows.
func (db *DB) buildQuery(matchrec []Value, arglist []QueryArg, prefetch bool, rowlimit int) (*Query, error) {
	full := prepareParams(matchrec, arglist)

	query := &Query{db: db, direction: 1}

	col, index := -1, IndexId(0)
	if len(full) > 0 {
		col, index = db.mostRestrictingColumn(full)
	}

	if index > 0 {
		query.qtype = qtypeTTree
		query.column = col
		query.currSlot = -1
		query.endSlot = -1

		// Fold every clause on the chosen column into the tightest
		// bounds. EQ tightens both ends inclusively; NE cannot be
		// satisfied by a contiguous range, so it forces the full
		// argument list onto every row while the index still provides
		// the ordering.
		startBound, endBound := Illegal, Illegal
		startIncl, endIncl := false, false
		for _, arg := range full {
			if arg.Column != col {
				continue
			}
			switch arg.Cond {
			case CondEqual:
				if startBound == Illegal || db.Compare(startBound, arg.Value) == Less {
					startBound = arg.Value
					startIncl = true
				}
				if endBound == Illegal || db.Compare(endBound, arg.Value) == Greater {
					endBound = arg.Value
					endIncl = true
				}
			case CondLess:
				if endBound == Illegal || db.Compare(endBound, arg.Value) != Less {
					endBound = arg.Value
					endIncl = false
				}
			case CondGreater:
				if startBound == Illegal || db.Compare(startBound, arg.Value) != Greater {
					startBound = arg.Value
					startIncl = false
				}
			case CondLessEqual:
				if endBound == Illegal || db.Compare(endBound, arg.Value) == Greater {
					endBound = arg.Value
					endIncl = true
				}
			case CondGreaterEqual:
				if startBound == Illegal || db.Compare(startBound, arg.Value) == Less {
					startBound = arg.Value
					startIncl = true
				}
			case CondNotEqual:
				query.column = -1
			}
		}

		// Contradictory bounds yield zero rows without touching the tree.
		if startBound != Illegal && endBound != Illegal &&
			db.Compare(startBound, endBound) == Greater {
			return query, nil
		}

		var err error
		query.currNode, query.currSlot, query.endNode, query.endSlot, err =
			db.findTTreeBounds(index, col, startBound, endBound, startIncl, endIncl)
		if err != nil {
			return nil, err
		}
	} else {
		query.qtype = qtypeScan
		query.column = -1
		if rec, ok := db.FirstRecord(); ok {
			query.currRecord = rec
		}
	}

	// Attach the residual argument list: clauses already satisfied by the
	// index bounds are dropped, the rest re-check every candidate row.
	if query.column == -1 {
		query.arglist = full
	} else {
		for _, arg := range full {
			if arg.Column != query.column {
				query.arglist = append(query.arglist, arg)
			}
		}
	}

	if prefetch {
		query.prefetch(rowlimit)
	}
	return query, nil
}

// prefetch drains the plan into result pages and converts the query.
func (q *Query) prefetch(rowlimit int) {
	q.pool = newMemPool()
	var first, curr *resultPage
	i := resultSetPageSize
	for {
		rec, ok := q.Fetch()
		if !ok {
			break
		}
		if i >= resultSetPageSize {
			page := q.pool.allocPage()
			if curr != nil {
				curr.next = page
			} else {
				first = page
			}
			curr = page
			i = 0
		}
		curr.rows[i] = rec
		i++
		q.resCount++
		if rowlimit > 0 && q.resCount >= rowlimit {
			break
		}
	}
	q.qtype = qtypePrefetch
	q.currPage = first
	q.currPidx = 0
}

// MakeQuery builds a query from an optional match record (wildcard slots
// are VAR values) and an argument list, and prefetches all rows. Row
// count is available via Count; rows come from Fetch.
func (db *DB) MakeQuery(matchrec []Value, arglist []QueryArg) (*Query, error) {
	return db.buildQuery(matchrec, arglist, true, 0)
}

// MakeQueryWithLimit is MakeQuery stopping after rowlimit rows.
func (db *DB) MakeQueryWithLimit(matchrec []Value, arglist []QueryArg, rowlimit int) (*Query, error) {
	return db.buildQuery(matchrec, arglist, true, rowlimit)
}

// Count returns the number of prefetched rows.
func (q *Query) Count() int { return q.resCount }

// Fetch returns the next record of the query, or false when the result
// set is exhausted.
func (q *Query) Fetch() (RecordId, bool) {
	db := q.db
	switch q.qtype {
	case qtypeScan:
		for {
			if q.currRecord == 0 {
				return 0, false
			}
			rec := q.currRecord
			if next, ok := db.NextRecord(rec); ok {
				q.currRecord = next
			} else {
				q.currRecord = 0
			}
			if len(q.arglist) == 0 || db.checkArglist(rec, q.arglist) {
				return rec, true
			}
		}

	case qtypeTTree:
		for {
			if q.currNode == 0 {
				return 0, false
			}
			node := db.node(q.currNode)
			rec := node.values[q.currSlot]

			// Advance before filtering; a non-matching row must not
			// stall the cursor.
			if q.currNode == q.endNode && q.currSlot == q.endSlot {
				q.currNode = 0
			} else {
				q.currSlot += q.direction
				if q.currSlot < 0 {
					q.currNode = node.pred
					if q.currNode != 0 {
						q.currSlot = db.node(q.currNode).count - 1
					}
				} else if q.currSlot >= node.count {
					if q.endNode == q.currNode {
						// Walking past the end node means the bounds
						// were inconsistent.
						db.queryError("end slot mismatch, possible bug")
						q.currNode = 0
					} else {
						q.currNode = node.succ
						q.currSlot = 0
					}
				}
			}

			if len(q.arglist) == 0 || db.checkArglist(rec, q.arglist) {
				return rec, true
			}
		}

	case qtypePrefetch:
		if q.currPage == nil {
			return 0, false
		}
		rec := q.currPage.rows[q.currPidx]
		if rec == 0 {
			// Page not filled completely.
			q.currPage = nil
			return 0, false
		}
		q.currPidx++
		if q.currPidx >= resultSetPageSize {
			q.currPage = q.currPage.next
			q.currPidx = 0
		}
		return rec, true
	}
	db.queryError("unsupported query type")
	return 0, false
}

// Free releases the prefetched pages. Optional: a dropped Query is
// reclaimed either way, but long-lived callers can return the memory
// early.
func (q *Query) Free() {
	q.pool = nil
	q.currPage = nil
	q.arglist = nil
	q.qtype = 0
}

// queryError logs a query-engine diagnostic and returns ErrCorruptIndex.
func (db *DB) queryError(msg string) error {
	db.logger.Error("query error: " + msg)
	return ErrCorruptIndex
}
