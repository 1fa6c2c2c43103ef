package indexing

import (
	"bytes"

	"github.com/autom8ter/cursorkit/kv/kvutil"
	"github.com/autom8ter/cursorkit/model"
)

const sep = "\x00"

// Path is a key prefix made of plain segments followed by encoded keys
type Path struct {
	segments []string
	keys     [][]byte
}

// NewPath returns a path made of the given segments
func NewPath(segments ...string) Path {
	return Path{segments: segments}
}

// RecordsPath is the prefix of every record of a store
func RecordsPath(db, store string) Path {
	return NewPath(db, "store", store)
}

// IndexPath is the prefix of every entry of a store's index
func IndexPath(db, store, index string) Path {
	return NewPath(db, "index", store, index)
}

// SequencePath is the key holding a store's auto increment counter
func SequencePath(db, store string) Path {
	return NewPath(db, "seq", store)
}

// SchemaPath is the key holding a database's schema
func SchemaPath(db string) Path {
	return NewPath("internal", "schema", db)
}

// Append returns a copy of the path with an encoded key appended
func (p Path) Append(value any) (Path, error) {
	encoded, err := EncodeKey(value)
	if err != nil {
		return Path{}, err
	}
	keys := make([][]byte, len(p.keys), len(p.keys)+1)
	copy(keys, p.keys)
	return Path{segments: p.segments, keys: append(keys, encoded)}, nil
}

// Bytes returns the path's key
func (p Path) Bytes() []byte {
	var buf bytes.Buffer
	for _, s := range p.segments {
		buf.WriteString(s)
		buf.WriteString(sep)
	}
	for _, k := range p.keys {
		buf.Write(k)
	}
	return buf.Bytes()
}

// Interval returns the half open byte interval [start, end) of the keys under this path that fall in r.
// A nil range covers the whole path.
func (p Path) Interval(r *model.KeyRange) (start, end []byte, err error) {
	prefix := p.Bytes()
	start, end = prefix, kvutil.NextPrefix(prefix)
	if r == nil {
		return start, end, nil
	}
	if r.Lower != nil {
		lower, err := p.Append(r.Lower)
		if err != nil {
			return nil, nil, err
		}
		start = lower.Bytes()
		if r.LowerOpen {
			start = kvutil.NextPrefix(start)
		}
	}
	if r.Upper != nil {
		upper, err := p.Append(r.Upper)
		if err != nil {
			return nil, nil, err
		}
		end = upper.Bytes()
		if !r.UpperOpen {
			end = kvutil.NextPrefix(end)
		}
	}
	return start, end, nil
}

// IndexValue returns the value a record is indexed under. Composite indexes yield an array of their fields.
// Records missing a field, or holding a value that cannot be a key, are not indexed.
func IndexValue(rec model.Record, idx model.IndexDescriptor) (any, bool) {
	fields := idx.Fields()
	if !idx.Composite() {
		v, ok := rec.Lookup(fields[0])
		if !ok || !ValidKey(v) {
			return nil, false
		}
		return v, true
	}
	values := make([]any, 0, len(fields))
	for _, f := range fields {
		v, ok := rec.Lookup(f)
		if !ok || !ValidKey(v) {
			return nil, false
		}
		values = append(values, v)
	}
	return values, true
}
