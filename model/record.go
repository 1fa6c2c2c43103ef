package model

import (
	"strings"
)

// Reserved record fields
const (
	TagField      = "_tag"
	OldValueField = "_oldValue"
	ErrorField    = "_error"
	OldErrorField = "_oldError"
)

// Record is an open field map persisted in a store. One of its fields is the store's primary key.
type Record map[string]any

// Clone returns a copy of the record. Nested maps are copied up to maxDepth levels, slices are always copied one level deep.
func (r Record) Clone(maxDepth int) Record {
	return cloneMap(r, maxDepth)
}

func cloneMap(source map[string]any, maxDepth int) map[string]any {
	if source == nil {
		return nil
	}
	result := make(map[string]any, len(source))
	for k, v := range source {
		switch v := v.(type) {
		case []any:
			result[k] = append([]any{}, v...)
		case Record:
			if maxDepth > 0 {
				result[k] = Record(cloneMap(v, maxDepth-1))
			} else {
				result[k] = v
			}
		case map[string]any:
			if maxDepth > 0 {
				result[k] = cloneMap(v, maxDepth-1)
			} else {
				result[k] = v
			}
		default:
			result[k] = v
		}
	}
	return result
}

// Get returns the value at the given field. Dotted paths walk nested maps.
func (r Record) Get(field string) any {
	val, _ := r.Lookup(field)
	return val
}

// Lookup returns the value at the given field and whether it is set
func (r Record) Lookup(field string) (any, bool) {
	if v, ok := r[field]; ok || !strings.Contains(field, ".") {
		return v, ok
	}
	var current any = map[string]any(r)
	for _, part := range strings.Split(field, ".") {
		switch m := current.(type) {
		case Record:
			v, ok := m[part]
			if !ok {
				return nil, false
			}
			current = v
		case map[string]any:
			v, ok := m[part]
			if !ok {
				return nil, false
			}
			current = v
		default:
			return nil, false
		}
	}
	return current, true
}

// Set sets the value at the given field. Dotted paths create intermediate maps as needed.
func (r Record) Set(field string, value any) {
	if !strings.Contains(field, ".") {
		r[field] = value
		return
	}
	parts := strings.Split(field, ".")
	current := map[string]any(r)
	for _, part := range parts[:len(parts)-1] {
		switch next := current[part].(type) {
		case map[string]any:
			current = next
		case Record:
			current = next
		default:
			m := map[string]any{}
			current[part] = m
			current = m
		}
	}
	current[parts[len(parts)-1]] = value
}

// Tag returns the record's lifecycle tag
func (r Record) Tag() TagState {
	return toTag(r[TagField])
}

// Direction is the direction a cursor walks an index
type Direction string

const (
	Next Direction = "next"
	Prev Direction = "prev"
)

// Reverse reports whether the direction walks keys in descending order
func (d Direction) Reverse() bool {
	return d == Prev
}

// Info describes the extent of a scan
type Info struct {
	// StartIndex is the number of positions skipped before evaluating records
	StartIndex int `json:"startIndex"`
	// EndIndex is the cursor offset the next page resumes from
	EndIndex int `json:"endIndex"`
}
