package memset

import (
	"github.com/autom8ter/cursorkit/model"
	"github.com/nqd/flat"
	"github.com/samber/lo"
	"github.com/spf13/cast"
)

// Mix copies every field of source onto target
func Mix(target, source model.Record) model.Record {
	for k, v := range source {
		target[k] = v
	}
	return target
}

// Cut projects the record onto fields. Dotted fields are nested in the result.
func Cut(rec model.Record, fields []string) model.Record {
	out := make(map[string]any, len(fields))
	for _, f := range fields {
		out[f] = rec.Get(f)
	}
	nested, err := flat.Unflatten(out, nil)
	if err != nil {
		return out
	}
	return nested
}

// Join merges the fields of other into records and returns records.
// other may be a list joined on key, a list joined by position when key is empty, or a single record merged into every record.
func Join(records []model.Record, other any, key string) []model.Record {
	switch other := other.(type) {
	case []model.Record:
		if key != "" {
			byKey := lo.KeyBy(other, func(r model.Record) string {
				return cast.ToString(r[key])
			})
			for _, rec := range records {
				if ex, ok := byKey[cast.ToString(rec[key])]; ok {
					Mix(rec, ex)
				}
			}
			return records
		}
		for i, rec := range records {
			if i < len(other) {
				Mix(rec, other[i])
			}
		}
	case model.Record:
		for _, rec := range records {
			Mix(rec, other)
		}
	case map[string]any:
		return Join(records, model.Record(other), key)
	}
	return records
}

// Set is an in-memory record set
type Set []model.Record

// Find returns the records matching the selector, projected onto fields when any are given
func (s Set) Find(sel Selector, fields ...string) []model.Record {
	conds := ParseQuery(sel)
	matched := lo.Filter(s, func(rec model.Record, _ int) bool {
		return IsMatch(rec, conds)
	})
	if len(fields) == 0 {
		return matched
	}
	return lo.Map(matched, func(rec model.Record, _ int) model.Record {
		return Cut(rec, fields)
	})
}
