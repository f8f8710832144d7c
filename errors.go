// Package whitedb provides an in-process record database with secondary
// indexes, a JSON document layer and a query engine.
//
// Data lives in typed arenas owned by the DB handle. Records are fixed-slot
// arrays of encoded values; T-tree and hash indexes are kept in lockstep
// with record data by the field-set API. Queries pick the most restricting
// index, fall back to a full scan, and materialise results in fixed-size
// pages backed by a memory pool.
package whitedb

import "errors"

// Sentinel errors returned by database operations.
var (
	// ErrNotFound is returned when a record or index entry does not exist.
	ErrNotFound = errors.New("not found")

	// ErrColumnOutOfRange is returned when a column number exceeds the
	// indexable maximum or the record length.
	ErrColumnOutOfRange = errors.New("column out of range")

	// ErrDuplicateColumn is returned when an index is requested on a
	// column list containing duplicates.
	ErrDuplicateColumn = errors.New("duplicate columns not allowed")

	// ErrEmptyTemplate is returned for a zero-length or all-wildcard
	// match record.
	ErrEmptyTemplate = errors.New("not a legal match record")

	// ErrInvalidIndexType is returned for an unknown index type code.
	ErrInvalidIndexType = errors.New("invalid index type")

	// ErrIndexExists is returned when an identical index already exists.
	ErrIndexExists = errors.New("identical index already exists")

	// ErrIndexNotFound is returned when an index id does not resolve.
	ErrIndexNotFound = errors.New("index not found")

	// ErrFieldCount is returned when the number of search values does not
	// match the index cardinality.
	ErrFieldCount = errors.New("field count does not match index")

	// ErrCorruptIndex is returned when an index invariant is breached.
	// The database should be considered corrupt.
	ErrCorruptIndex = errors.New("index corrupt")

	// ErrTooDeep is returned when document traversal exceeds the
	// recursion budget.
	ErrTooDeep = errors.New("recursion too deep")

	// ErrNotDocument is returned when a document operation is applied to
	// a record without the document meta bit.
	ErrNotDocument = errors.New("not a document")

	// ErrHasReferences is returned when deleting a record that is still
	// pointed to by other records.
	ErrHasReferences = errors.New("record has references")

	// ErrInvalidValue is returned when a value cannot be encoded or is
	// not usable in the requested context.
	ErrInvalidValue = errors.New("invalid value")

	// ErrDecompress is returned when a stored blob payload cannot be
	// decompressed.
	ErrDecompress = errors.New("decompress failed")
)
