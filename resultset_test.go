// Result set and cursor tests.
//
// The page cursor math has off-by-one territory at exactly one page, one
// row short of a page, and one row past it; each boundary gets a case.
// The set algebra is checked on both sides of its strategy thresholds.
package whitedb

import "testing"

func fillSet(n int, start RecordId) *resultSet {
	s := newResultSet()
	for i := 0; i < n; i++ {
		s.append(start + RecordId(i))
	}
	return s
}

func drainSet(s *resultSet) []RecordId {
	s.rewind()
	var out []RecordId
	for rec := s.fetch(); rec != 0; rec = s.fetch() {
		out = append(out, rec)
	}
	return out
}

func TestResultSetPageBoundaries(t *testing.T) {
	for _, n := range []int{0, 1, resultSetPageSize - 1, resultSetPageSize,
		resultSetPageSize + 1, 3*resultSetPageSize + 5} {
		s := fillSet(n, 1)
		if s.count != n {
			t.Fatalf("count = %d, want %d", s.count, n)
		}
		rows := drainSet(s)
		if len(rows) != n {
			t.Fatalf("drained %d rows, want %d", len(rows), n)
		}
		for i, rec := range rows {
			if rec != RecordId(i+1) {
				t.Fatalf("row %d = %d, want %d (order must be insertion order)", i, rec, i+1)
			}
		}
	}
}

func TestResultSetRewind(t *testing.T) {
	s := fillSet(10, 1)
	if got := len(drainSet(s)); got != 10 {
		t.Fatalf("first drain = %d rows", got)
	}
	if got := len(drainSet(s)); got != 10 {
		t.Errorf("drain after rewind = %d rows, want 10", got)
	}
}

func TestUniqueResultSet(t *testing.T) {
	for _, n := range []int{5, 100} { // below and above the hash threshold
		s := newResultSet()
		for i := 0; i < n; i++ {
			s.append(RecordId(i%7 + 1))
		}
		u := uniqueResultSet(s)
		want := 7
		if n < 7 {
			want = n
		}
		if u.count != want {
			t.Errorf("unique of %d rows over 7 values = %d, want %d", n, u.count, want)
		}
	}
}

func TestIntersectResultSet(t *testing.T) {
	for _, n := range []int{10, 100} { // below and above the hash threshold
		a := fillSet(n, 1)               // 1..n
		b := fillSet(n, RecordId(n/2)+1) // n/2+1..n/2+n
		got := drainSet(intersectResultSet(a, b))
		want := n - n/2
		if len(got) != want {
			t.Errorf("intersection size = %d, want %d", len(got), want)
		}
	}
}

func TestMemPoolPagesStable(t *testing.T) {
	p := newMemPool()
	pages := make([]*resultPage, 0, 3*mpoolChunkPages)
	for i := 0; i < 3*mpoolChunkPages; i++ {
		page := p.allocPage()
		page.rows[0] = RecordId(i + 1)
		pages = append(pages, page)
	}
	for i, page := range pages {
		if page.rows[0] != RecordId(i+1) {
			t.Fatalf("page %d moved or was reused", i)
		}
	}
}
