// Long-string interning store.
//
// Out-of-line values (long strings, URIs, XML literals, blobs) are interned
// here: one entry per distinct (type, payload, extra) triple, shared by
// reference count. Entries hang off a fixed bucket table in hash chains so
// that lookup cost stays flat as the store grows. The extra component
// carries the language tag, URI prefix, xsd type or blob type tag.
//
// Blob payloads at or above the compression threshold are stored Zstd-compressed;
// the flag travels with the entry so decode is transparent.
package whitedb

type strId int32

type strEntry struct {
	semtype    Type
	val        string // payload bytes (compressed when flagged)
	extra      string
	refcount   int
	next       strId // bucket chain
	compressed bool
	inuse      bool
}

type stringStore struct {
	buckets  []strId
	entries  []strEntry
	free     []strId
	alg      int
	comprMin int
}

func newStringStore(buckets, alg, comprMin int) *stringStore {
	return &stringStore{
		buckets:  make([]strId, buckets),
		entries:  make([]strEntry, 1), // entry 0 reserved as nil
		alg:      alg,
		comprMin: comprMin,
	}
}

// bucket selects the chain for (semtype, val, extra). The type byte keeps
// equal bytes of differing types in distinct chains.
func (st *stringStore) bucket(semtype Type, val, extra string) int {
	key := make([]byte, 0, len(val)+len(extra)+2)
	key = append(key, byte(semtype))
	key = append(key, val...)
	key = append(key, 0)
	key = append(key, extra...)
	return int(hashBytes(key, st.alg) % uint64(len(st.buckets)))
}

// intern returns the id of the entry holding (semtype, val, extra),
// creating it if absent and bumping the refcount if present.
func (st *stringStore) intern(semtype Type, val, extra string) strId {
	b := st.bucket(semtype, val, extra)
	for id := st.buckets[b]; id != 0; id = st.entries[id].next {
		e := &st.entries[id]
		if e.semtype == semtype && e.extra == extra && st.payload(e) == val {
			e.refcount++
			return id
		}
	}

	stored := val
	compressed := false
	if semtype == TypeBlob && len(val) >= st.comprMin {
		c := compress([]byte(val))
		if len(c) < len(val) {
			stored = string(c)
			compressed = true
		}
	}

	var id strId
	if n := len(st.free); n > 0 {
		id = st.free[n-1]
		st.free = st.free[:n-1]
	} else {
		st.entries = append(st.entries, strEntry{})
		id = strId(len(st.entries) - 1)
	}
	st.entries[id] = strEntry{
		semtype:    semtype,
		val:        stored,
		extra:      extra,
		refcount:   1,
		next:       st.buckets[b],
		compressed: compressed,
		inuse:      true,
	}
	st.buckets[b] = id
	return id
}

// payload returns the uncompressed payload of an entry.
func (st *stringStore) payload(e *strEntry) string {
	if !e.compressed {
		return e.val
	}
	out, err := decompress([]byte(e.val))
	if err != nil {
		return ""
	}
	return string(out)
}

// get returns the payload and extra component of an entry.
func (st *stringStore) get(id strId) (val, extra string) {
	e := &st.entries[id]
	return st.payload(e), e.extra
}

// release drops one reference; the entry is unchained and its slot
// recycled when the count reaches zero.
func (st *stringStore) release(id strId) {
	e := &st.entries[id]
	e.refcount--
	if e.refcount > 0 {
		return
	}
	b := st.bucket(e.semtype, st.payload(e), e.extra)
	prev := &st.buckets[b]
	for *prev != 0 {
		if *prev == id {
			*prev = e.next
			break
		}
		prev = &st.entries[*prev].next
	}
	*e = strEntry{}
	st.free = append(st.free, id)
}
