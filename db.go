// Core database type and lifecycle operations.
//
// DB owns every arena: records, T-tree nodes, list cells, index headers,
// templates, the long-string store and the scalar overflow stores. All
// intra-database references are int32 handles into these arenas; handle 0
// is reserved as nil in each of them, so a zero field or pointer always
// means "nothing". Handles stay valid for the life of the object.
//
// The core is single-threaded cooperative. Locking is the caller's job:
// mutations (record create/update/delete, index create/drop) need exclusive
// access, reads need shared access. No operation blocks, suspends or does
// I/O, so caller-held locks are never held across anything slow.
package whitedb

import "log/slog"

// Limits of the index subsystem.
const (
	// MaxIndexedFieldNr is the largest column number that can be indexed.
	MaxIndexedFieldNr = 31

	// maxIndexFields bounds the number of columns per index.
	maxIndexFields = 10

	// CompareDepth bounds record recursion in comparison and document
	// traversal.
	CompareDepth = 7
)

// Config holds database configuration options.
type Config struct {
	HashAlgorithm     int          // 1=xxHash3, 2=FNV1a, 3=Blake2b
	StringBuckets     int          // bucket count of the interning store (default 1024)
	IndexBuckets      int          // bucket count of idxhash tables (default 1024)
	TNodeArraySize    int          // slots per T-tree node (default 8)
	CompressThreshold int          // blobs at or above this size are compressed (default 4096)
	Logger            *slog.Logger // diagnostic sink (default slog.Default())
}

// DB is an in-process database instance. A DB is not safe for concurrent
// use; callers serialise access with their own locks.
type DB struct {
	config Config
	logger *slog.Logger

	records []record
	recFree []RecordId

	nodes    []tnode
	nodeFree []nodeId

	cells    []cell
	cellFree []listId

	indexes  []indexHeader
	idxFree  []IndexId
	tmpls    []indexTemplate
	tmplFree []templateId

	ints     []int64
	intFree  []int32
	doubles  []float64
	dblFree  []int32

	strs *stringStore

	// backlinks maps a record to the records whose fields reference it.
	// Relations, not ownership: deletion consults this read-only.
	backlinks map[RecordId][]RecordId

	// index control area
	indexTable    [MaxIndexedFieldNr + 1]listId // per-column index chains
	templateTable [MaxIndexedFieldNr + 1]listId // per-column template-index chains
	indexList     listId                        // master list of all indexes
	templateList  listId                        // master template list
	indexCount    int
}

// New creates an empty database. Zero-value config fields get defaults.
func New(config Config) *DB {
	if config.HashAlgorithm == 0 {
		config.HashAlgorithm = AlgXXHash3
	}
	if config.StringBuckets == 0 {
		config.StringBuckets = 1024
	}
	if config.IndexBuckets == 0 {
		config.IndexBuckets = 1024
	}
	if config.TNodeArraySize < 6 {
		// The delete path borrows below 5 elements; smaller arrays
		// would underflow permanently.
		config.TNodeArraySize = 8
	}
	if config.CompressThreshold == 0 {
		config.CompressThreshold = 4096
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	db := &DB{
		config:    config,
		logger:    config.Logger,
		records:   make([]record, 1), // slot 0 reserved as nil
		nodes:     make([]tnode, 1),
		cells:     make([]cell, 1),
		indexes:   make([]indexHeader, 1),
		tmpls:     make([]indexTemplate, 1),
		ints:      make([]int64, 1),
		doubles:   make([]float64, 1),
		backlinks: make(map[RecordId][]RecordId),
	}
	db.strs = newStringStore(config.StringBuckets, config.HashAlgorithm,
		config.CompressThreshold)
	return db
}

/* ---------------- scalar overflow stores ---------------- */

func (db *DB) allocInt(x int64) int32 {
	if n := len(db.intFree); n > 0 {
		id := db.intFree[n-1]
		db.intFree = db.intFree[:n-1]
		db.ints[id] = x
		return id
	}
	db.ints = append(db.ints, x)
	return int32(len(db.ints) - 1)
}

func (db *DB) freeInt(id int32) {
	db.ints[id] = 0
	db.intFree = append(db.intFree, id)
}

func (db *DB) allocDouble(d float64) int32 {
	if n := len(db.dblFree); n > 0 {
		id := db.dblFree[n-1]
		db.dblFree = db.dblFree[:n-1]
		db.doubles[id] = d
		return id
	}
	db.doubles = append(db.doubles, d)
	return int32(len(db.doubles) - 1)
}

func (db *DB) freeDouble(id int32) {
	db.doubles[id] = 0
	db.dblFree = append(db.dblFree, id)
}
