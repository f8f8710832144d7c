// Memory pool for query results.
//
// Result pages are handed out from chunk allocations so that building a
// large result set does not reallocate per row, and dropping the pool
// releases everything at once. Pages are fixed-size; the pool never moves
// a page once handed out.
package whitedb

const mpoolChunkPages = 8

type memPool struct {
	chunks [][]resultPage
	used   int // pages handed out from the last chunk
}

func newMemPool() *memPool {
	return &memPool{}
}

// allocPage returns a zeroed page owned by the pool.
func (p *memPool) allocPage() *resultPage {
	if len(p.chunks) == 0 || p.used == mpoolChunkPages {
		p.chunks = append(p.chunks, make([]resultPage, mpoolChunkPages))
		p.used = 0
	}
	page := &p.chunks[len(p.chunks)-1][p.used]
	p.used++
	return page
}
