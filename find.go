package cursorkit

import (
	"context"

	"github.com/autom8ter/cursorkit/errors"
	"github.com/autom8ter/cursorkit/future"
	"github.com/autom8ter/cursorkit/memset"
	"github.com/autom8ter/cursorkit/model"
	"github.com/autom8ter/cursorkit/substrate"
)

// Result is the outcome of a find, update or remove
type Result struct {
	Records []model.Record `json:"records"`
	Info    model.Info     `json:"info"`
	// Failed lists the records a write could not persist
	Failed []Failure `json:"failed,omitempty"`
}

// Failure is a record a write could not persist
type Failure struct {
	// Index is the record's position in its input list, or -1 when the record came from a scan
	Index  int          `json:"index"`
	Key    any          `json:"key,omitempty"`
	Record model.Record `json:"record,omitempty"`
	Err    error        `json:"-"`
	Error  string       `json:"error"`
}

func newFailure(index int, key any, rec model.Record, err error) Failure {
	return Failure{Index: index, Key: key, Record: rec, Err: err, Error: err.Error()}
}

type scanState int

const (
	stateInit scanState = iota
	stateRanging
	stateAdvancing
	stateScanning
	stateDone
)

func (s scanState) String() string {
	switch s {
	case stateInit:
		return "init"
	case stateRanging:
		return "ranging"
	case stateAdvancing:
		return "advancing"
	case stateScanning:
		return "scanning"
	default:
		return "done"
	}
}

// cursor is the part of a substrate cursor a scan drives
type cursor interface {
	Valid() bool
	Value() model.Record
	Continue(ctx context.Context) error
	Advance(ctx context.Context, n int) error
	Close()
}

// keyCursor walks a list of primary keys, skipping keys without a record
type keyCursor struct {
	store *substrate.ObjectStore
	keys  []any
	pos   int
	value model.Record
}

func newKeyCursor(ctx context.Context, store *substrate.ObjectStore, keys []any) (*keyCursor, error) {
	k := &keyCursor{store: store, keys: keys, pos: -1}
	return k, k.Continue(ctx)
}

func (k *keyCursor) Valid() bool {
	return k.value != nil
}

func (k *keyCursor) Value() model.Record {
	return k.value
}

func (k *keyCursor) Continue(ctx context.Context) error {
	k.value = nil
	for k.pos+1 < len(k.keys) {
		k.pos++
		rec, err := k.store.Get(ctx, k.keys[k.pos])
		if err != nil {
			if errors.HasCode(err, errors.Validation) {
				continue
			}
			return err
		}
		if rec != nil {
			k.value = rec
			return nil
		}
	}
	return nil
}

func (k *keyCursor) Advance(ctx context.Context, n int) error {
	for i := 0; i < n && k.Valid(); i++ {
		if err := k.Continue(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (k *keyCursor) Close() {}

// scan drives a cursor through init, ranging, advancing, scanning and done, collecting the matching records
type scan struct {
	d      *DB
	c      *Context
	store  *substrate.ObjectStore
	sel    memset.Selector
	write  bool
	plan   Plan
	conds  []memset.Condition
	cur    cursor
	state  scanState
	result *Result
}

func (s *scan) run(ctx context.Context) (*Result, error) {
	defer func() {
		if s.cur != nil {
			s.cur.Close()
		}
	}()
	for s.state != stateDone {
		var err error
		switch s.state {
		case stateInit:
			err = s.init(ctx)
		case stateRanging:
			err = s.ranging(ctx)
		case stateAdvancing:
			err = s.advancing(ctx)
		case stateScanning:
			err = s.scanning(ctx)
		}
		if err != nil {
			return nil, errors.Wrap(err, 0, "scan of %s failed while %s", s.store.Name(), s.state)
		}
	}
	s.result.Info.EndIndex = s.c.EndIndex
	return s.result, nil
}

func (s *scan) init(ctx context.Context) error {
	s.plan = plan(s.store.Descriptor(), s.sel)
	s.conds = memset.ParseQuery(s.plan.Residual)
	start := s.c.startIndex()
	s.c.EndIndex = start
	s.result = &Result{Records: []model.Record{}, Info: model.Info{StartIndex: start}}
	s.d.logger.Debug(ctx, "planned scan", map[string]any{
		"plan":      s.plan.Kind(),
		"index":     s.plan.Index,
		"range":     s.plan.Range,
		"residual":  s.plan.Residual,
		"direction": s.c.direction(),
	})
	s.state = stateRanging
	return nil
}

func (s *scan) ranging(ctx context.Context) error {
	var err error
	switch {
	case s.plan.Index != "":
		var idx *substrate.Index
		idx, err = s.store.Index(s.plan.Index)
		if err != nil {
			return err
		}
		s.cur, err = idx.OpenCursor(ctx, s.plan.Range, s.c.direction())
	case s.plan.Get != nil:
		s.cur, err = newKeyCursor(ctx, s.store, []any{s.plan.Get})
	case s.plan.PrimaryKeys != nil:
		s.cur, err = newKeyCursor(ctx, s.store, s.plan.PrimaryKeys)
	default:
		s.cur, err = s.store.OpenCursor(ctx, nil, s.c.direction())
	}
	if err != nil {
		return err
	}
	s.state = stateAdvancing
	return nil
}

func (s *scan) advancing(ctx context.Context) error {
	if start := s.c.startIndex(); start > 0 {
		if err := s.cur.Advance(ctx, start); err != nil {
			return err
		}
	}
	s.state = stateScanning
	return nil
}

func (s *scan) scanning(ctx context.Context) error {
	for s.cur.Valid() && (s.c.Count <= 0 || len(s.result.Records) < s.c.Count) {
		s.c.EndIndex++
		rec := s.cur.Value()
		matched := len(s.conds) == 0 || memset.IsMatch(rec, s.conds)
		if matched && s.c.Filter != nil {
			matched = s.c.Filter(rec)
		}
		if matched {
			if !s.write && len(s.c.Fields) > 0 {
				rec = memset.Cut(rec, s.c.Fields)
			}
			s.result.Records = append(s.result.Records, rec)
		}
		if err := s.cur.Continue(ctx); err != nil {
			return err
		}
	}
	s.state = stateDone
	return nil
}

func (d *DB) scan(ctx context.Context, c *Context, txn *substrate.Txn, sel memset.Selector, write bool) (*Result, error) {
	store, err := txn.ObjectStore(c.Store)
	if err != nil {
		return nil, err
	}
	s := &scan{d: d, c: c, store: store, sel: sel, write: write}
	return s.run(ctx)
}

// Find returns the records matching sel. The first clause of sel may be served by an index; the rest is
// matched in memory. c.Skip positions are passed before matching and at most c.Count records are returned.
// The resolved Info.EndIndex is the Skip of the next page.
func (d *DB) Find(ctx context.Context, sel memset.Selector, c *Context) *future.Future[*Result] {
	return run(d, ctx, c, func(ctx context.Context) (*Result, error) {
		var result *Result
		err := d.withTxn(ctx, c, substrate.ReadOnly, func(txn *substrate.Txn) error {
			var err error
			result, err = d.scan(ctx, c, txn, sel, false)
			return err
		})
		return result, err
	})
}

// GetItem returns the records stored under ids, in order. Missing records are nil.
func (d *DB) GetItem(ctx context.Context, ids []any, c *Context) *future.Future[[]model.Record] {
	return run(d, ctx, c, func(ctx context.Context) ([]model.Record, error) {
		records := make([]model.Record, len(ids))
		err := d.withTxn(ctx, c, substrate.ReadOnly, func(txn *substrate.Txn) error {
			store, err := txn.ObjectStore(c.Store)
			if err != nil {
				return err
			}
			for i, id := range ids {
				if records[i], err = store.Get(ctx, id); err != nil {
					return err
				}
			}
			return nil
		})
		return records, err
	})
}

// Contains resolves, per selector whose first clause is the primary key or an index, the primary key of the
// first record matching it. Results are keyed by that first field.
func (d *DB) Contains(ctx context.Context, selectors []memset.Selector, c *Context) *future.Future[map[string]any] {
	return run(d, ctx, c, func(ctx context.Context) (map[string]any, error) {
		found := map[string]any{}
		err := d.withTxn(ctx, c, substrate.ReadOnly, func(txn *substrate.Txn) error {
			store, err := txn.ObjectStore(c.Store)
			if err != nil {
				return err
			}
			for _, sel := range selectors {
				first, ok := sel.First()
				if !ok {
					continue
				}
				switch {
				case first.Field == store.KeyPath():
					rec, err := store.Get(ctx, first.Value)
					if err != nil && !errors.HasCode(err, errors.Validation) {
						return err
					}
					if rec != nil {
						found[first.Field] = rec.Get(store.KeyPath())
					}
				case store.HasIndex(first.Field):
					key, err := firstMatch(ctx, store, first.Field, sel)
					if err != nil {
						return err
					}
					if key != nil {
						found[first.Field] = key
					}
				}
			}
			return nil
		})
		return found, err
	})
}

func firstMatch(ctx context.Context, store *substrate.ObjectStore, index string, sel memset.Selector) (any, error) {
	idx, err := store.Index(index)
	if err != nil {
		return nil, err
	}
	first, _ := sel.First()
	cur, err := idx.OpenCursor(ctx, GetRange(first.Value), model.Next)
	if err != nil {
		return nil, err
	}
	defer cur.Close()
	conds := memset.ParseQuery(sel)
	for cur.Valid() {
		if memset.IsMatch(cur.Value(), conds) {
			return cur.PrimaryKey(), nil
		}
		if err := cur.Continue(ctx); err != nil {
			return nil, err
		}
	}
	return nil, nil
}
