package cursorkit

import (
	"bytes"
	"sort"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig/v3"
	"github.com/autom8ter/cursorkit/errors"
	"github.com/autom8ter/cursorkit/model"
	"github.com/samber/lo"
	"github.com/spf13/cast"
)

// TSVRow renders the record's fields as one tab separated line. Lists are comma joined, nested objects are
// rendered as "object" and unset fields as an empty cell.
func TSVRow(rec model.Record, keys []string) string {
	cells := lo.Map(keys, func(key string, _ int) string {
		switch v := rec.Get(key).(type) {
		case nil:
			return ""
		case []any:
			return strings.Join(lo.Map(v, func(item any, _ int) string { return cast.ToString(item) }), ",")
		case map[string]any, model.Record:
			return "object"
		default:
			return cast.ToString(v)
		}
	})
	return strings.Join(cells, "\t")
}

// TSV renders records as a tab separated table with a header line. keys default to the sorted fields of the
// first record; fields starting with "__" are never rendered.
func TSV(records []model.Record, keys []string) string {
	if len(records) == 0 {
		return ""
	}
	if len(keys) == 0 {
		keys = lo.Keys(records[0])
		sort.Strings(keys)
	}
	keys = lo.Filter(keys, func(key string, _ int) bool {
		return !strings.HasPrefix(key, "__")
	})
	lines := []string{strings.Join(keys, "\t")}
	for _, rec := range records {
		lines = append(lines, TSVRow(rec, keys))
	}
	return strings.Join(lines, "\n")
}

// Render executes a go template with the sprig function set against data
func Render(tmpl string, data any) (string, error) {
	t, err := template.New("").Funcs(sprig.TxtFuncMap()).Parse(tmpl)
	if err != nil {
		return "", errors.Wrap(err, errors.Validation, "invalid template")
	}
	buf := bytes.NewBuffer(nil)
	if err := t.Execute(buf, data); err != nil {
		return "", errors.Wrap(err, errors.Validation, "failed to render template")
	}
	return buf.String(), nil
}
