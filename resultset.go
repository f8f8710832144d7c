// Materialised result sets.
//
// A result set is a sequence of record handles in fixed-size pages from a
// memory pool. Read and write cursors are independent; the read cursor can
// be rewound without touching the pages. A zero row terminates a partially
// filled page, which is why record handle 0 stays reserved.
//
// The set algebra below (uniqueness, intersection) switches between a
// nested loop and a hash-based strategy on size thresholds: tiny sets are
// cheaper to walk than to hash.
package whitedb

// resultSetPageSize keeps a page plus its next pointer within a pool
// chunk-friendly size.
const resultSetPageSize = 63

type resultPage struct {
	rows [resultSetPageSize]RecordId
	next *resultPage
}

type resultCursor struct {
	page *resultPage
	pidx int
}

type resultSet struct {
	pool    *memPool
	first   *resultPage
	rcursor resultCursor
	wcursor resultCursor
	count   int
}

func newResultSet() *resultSet {
	return &resultSet{
		pool:    newMemPool(),
		wcursor: resultCursor{pidx: resultSetPageSize}, // new page needed
	}
}

// rewind resets the read cursor to the first page.
func (s *resultSet) rewind() {
	s.rcursor = resultCursor{page: s.first}
}

// append adds a record handle at the write cursor.
func (s *resultSet) append(rec RecordId) {
	if s.wcursor.pidx >= resultSetPageSize {
		page := s.pool.allocPage()
		if s.wcursor.page != nil {
			s.wcursor.page.next = page
		} else {
			s.first = page
			s.rcursor.page = page
		}
		s.wcursor = resultCursor{page: page}
	}
	s.wcursor.page.rows[s.wcursor.pidx] = rec
	s.wcursor.pidx++
	s.count++
}

// fetch returns the next record handle at the read cursor, 0 when the set
// is exhausted.
func (s *resultSet) fetch() RecordId {
	if s.rcursor.page == nil {
		return 0
	}
	rec := s.rcursor.page.rows[s.rcursor.pidx]
	if rec == 0 {
		// Page not filled completely: set exhausted.
		s.rcursor.page = nil
		return 0
	}
	s.rcursor.pidx++
	if s.rcursor.pidx >= resultSetPageSize {
		s.rcursor.page = s.rcursor.page.next
		s.rcursor.pidx = 0
	}
	return rec
}

// Strategy crossover points: expected inner iterations above which the
// hash-based strategy wins.
const (
	uniqueHashThreshold    = 20
	intersectHashThreshold = 200
)

// uniqueResultSet builds a set with duplicates removed.
func uniqueResultSet(set *resultSet) *resultSet {
	unique := newResultSet()
	set.rewind()

	if set.count >= uniqueHashThreshold {
		seen := make(map[RecordId]struct{}, set.count)
		for rec := set.fetch(); rec != 0; rec = set.fetch() {
			if _, ok := seen[rec]; !ok {
				seen[rec] = struct{}{}
				unique.append(rec)
			}
		}
		return unique
	}

	for rec := set.fetch(); rec != 0; rec = set.fetch() {
		found := false
		unique.rewind()
		for u := unique.fetch(); u != 0; u = unique.fetch() {
			if u == rec {
				found = true
				break
			}
		}
		if !found {
			// The read cursor is exhausted, appending is safe.
			unique.append(rec)
		}
	}
	return unique
}

// intersectResultSet builds the intersection of two sets. Above the
// threshold the smaller set is hashed and the larger probed; below it a
// nested loop wins.
func intersectResultSet(seta, setb *resultSet) *resultSet {
	intersection := newResultSet()

	if seta.count*setb.count >= intersectHashThreshold {
		if seta.count > setb.count {
			seta, setb = setb, seta
		}
		members := make(map[RecordId]struct{}, seta.count)
		seta.rewind()
		for rec := seta.fetch(); rec != 0; rec = seta.fetch() {
			members[rec] = struct{}{}
		}
		setb.rewind()
		for rec := setb.fetch(); rec != 0; rec = setb.fetch() {
			if _, ok := members[rec]; ok {
				intersection.append(rec)
			}
		}
		return intersection
	}

	seta.rewind()
	for a := seta.fetch(); a != 0; a = seta.fetch() {
		setb.rewind()
		for b := setb.fetch(); b != 0; b = setb.fetch() {
			if a == b {
				intersection.append(a)
				break
			}
		}
	}
	return intersection
}
