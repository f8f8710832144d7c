// JSON text layer.
//
// Builds document trees from JSON text and renders them back. Objects
// become object records whose slots reference kv-pair records; arrays
// become array records holding elements directly; the top-level record of
// a document carries the document bit. The parameter variant produces
// notdata|match records that never touch indexes or scans, for use as
// query parameters.
//
// JSON booleans have no encoded type of their own and are stored as the
// integers 0 and 1.
package whitedb

import (
	"bytes"
	"fmt"

	json "github.com/goccy/go-json"
)

// ParseJSONDocument parses JSON text into a new document tree and returns
// the document root.
func (db *DB) ParseJSONDocument(data []byte) (RecordId, error) {
	return db.parseJSON(data, true, false)
}

// ParseJSONFragment parses JSON text into records without marking the top
// level as a document.
func (db *DB) ParseJSONFragment(data []byte) (RecordId, error) {
	return db.parseJSON(data, false, false)
}

// ParseJSONParam parses JSON text into parameter records, invisible to
// indexes and scans.
func (db *DB) ParseJSONParam(data []byte) (RecordId, error) {
	return db.parseJSON(data, false, true)
}

func (db *DB) parseJSON(data []byte, isdocument, isparam bool) (RecordId, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return 0, fmt.Errorf("parse json: %w", err)
	}
	if dec.More() {
		return 0, fmt.Errorf("parse json: %w: trailing data after document", ErrInvalidValue)
	}
	switch v.(type) {
	case map[string]any, []any:
	default:
		return 0, fmt.Errorf("parse json: %w: top level must be an object or array", ErrInvalidValue)
	}
	return db.buildJSONRecord(v, isdocument, isparam)
}

func (db *DB) buildJSONRecord(v any, isdocument, isparam bool) (RecordId, error) {
	switch val := v.(type) {
	case map[string]any:
		rec, err := db.CreateObject(len(val), isdocument, isparam)
		if err != nil {
			return 0, err
		}
		i := 0
		for k, elem := range val {
			enc, err := db.encodeJSONValue(elem, isparam)
			if err != nil {
				return 0, err
			}
			pair, err := db.CreateKVPair(db.EncodeStr(k, ""), enc, isparam)
			if err != nil {
				return 0, err
			}
			if err := db.SetField(rec, i, EncodeRecord(pair)); err != nil {
				return 0, err
			}
			i++
		}
		return rec, nil

	case []any:
		rec, err := db.CreateArray(len(val), isdocument, isparam)
		if err != nil {
			return 0, err
		}
		for i, elem := range val {
			enc, err := db.encodeJSONValue(elem, isparam)
			if err != nil {
				return 0, err
			}
			if err := db.SetField(rec, i, enc); err != nil {
				return 0, err
			}
		}
		return rec, nil
	}
	return 0, ErrInvalidValue
}

// encodeJSONValue encodes a parsed scalar, or builds a nested record for
// containers.
func (db *DB) encodeJSONValue(v any, isparam bool) (Value, error) {
	switch val := v.(type) {
	case nil:
		return Null, nil
	case bool:
		if val {
			return db.EncodeInt(1), nil
		}
		return db.EncodeInt(0), nil
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return db.EncodeInt(i), nil
		}
		f, err := val.Float64()
		if err != nil {
			return Illegal, fmt.Errorf("parse json: %w: %s", ErrInvalidValue, val)
		}
		return db.EncodeDouble(f), nil
	case string:
		return db.EncodeStr(val, ""), nil
	case map[string]any, []any:
		rec, err := db.buildJSONRecord(val, false, isparam)
		if err != nil {
			return Illegal, err
		}
		return EncodeRecord(rec), nil
	}
	return Illegal, ErrInvalidValue
}

// GenerateJSON renders a document tree back to indented JSON text.
func (db *DB) GenerateJSON(rec RecordId) ([]byte, error) {
	v, err := db.jsonValueOf(rec, CompareDepth)
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(v, "", "  ")
}

func (db *DB) jsonValueOf(rec RecordId, depth int) (any, error) {
	if depth <= 0 {
		return nil, ErrTooDeep
	}
	n := db.RecordLen(rec)
	if db.isSchemaArray(rec) {
		out := make([]any, n)
		for i := 0; i < n; i++ {
			v, err := db.decodeJSONValue(db.GetField(rec, i), depth)
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil
	}
	// Objects and plain records render as maps of their kv-pairs.
	out := make(map[string]any, n)
	for i := 0; i < n; i++ {
		enc := db.GetField(rec, i)
		if enc.Type() != TypeRecord {
			continue
		}
		pair := enc.DecodeRecord()
		if db.RecordLen(pair) <= SchemaValueOffset {
			continue
		}
		key := db.DecodeStr(db.GetField(pair, SchemaKeyOffset))
		v, err := db.decodeJSONValue(db.GetField(pair, SchemaValueOffset), depth)
		if err != nil {
			return nil, err
		}
		out[key] = v
	}
	return out, nil
}

func (db *DB) decodeJSONValue(enc Value, depth int) (any, error) {
	switch enc.Type() {
	case TypeNull:
		return nil, nil
	case TypeInt:
		return db.DecodeInt(enc), nil
	case TypeDouble:
		return db.DecodeDouble(enc), nil
	case TypeFixpoint:
		return enc.DecodeFixpoint(), nil
	case TypeString:
		return db.DecodeStr(enc), nil
	case TypeURI:
		uri, prefix := db.DecodeURI(enc)
		return prefix + uri, nil
	case TypeXMLLiteral:
		data, _ := db.DecodeXMLLiteral(enc)
		return data, nil
	case TypeChar:
		return string(enc.DecodeChar()), nil
	case TypeDate:
		return enc.DecodeDate(), nil
	case TypeTime:
		return enc.DecodeTime(), nil
	case TypeBlob:
		data, _ := db.DecodeBlob(enc)
		return string(data), nil
	case TypeRecord:
		return db.jsonValueOf(enc.DecodeRecord(), depth-1)
	}
	return nil, nil
}
