package cursorkit

import (
	"context"
	"sync"

	"github.com/autom8ter/cursorkit/memset"
	"github.com/autom8ter/cursorkit/model"
)

// DefaultPageSize is the page size of views created without one
const DefaultPageSize = 100

// Loader incrementally loads the records of a selector, one find per batch. Each batch resumes from the
// EndIndex of the previous one.
type Loader struct {
	mu         sync.Mutex
	store      *Store
	sel        memset.Selector
	params     *Context
	pageSize   int
	startIndex int
	records    []model.Record
	exhausted  bool
}

// NewLoader returns a loader fetching pageSize records per batch
func NewLoader(store *Store, sel memset.Selector, pageSize int, params *Context) *Loader {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Loader{store: store, sel: sel, params: params, pageSize: pageSize}
}

// Load fetches the next batch and returns it
func (l *Loader) Load(ctx context.Context) ([]model.Record, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.load(ctx)
}

func (l *Loader) load(ctx context.Context) ([]model.Record, error) {
	if l.exhausted {
		return nil, nil
	}
	c := l.store.context(l.params)
	c.Skip, c.StartIndex = l.startIndex, 0
	c.Count = l.pageSize
	res, err := l.store.Find(ctx, l.sel, c).Await(ctx)
	if err != nil {
		return nil, err
	}
	l.records = append(l.records, res.Records...)
	l.startIndex = res.Info.EndIndex
	if len(res.Records) < l.pageSize {
		l.exhausted = true
	}
	return res.Records, nil
}

// Page returns the records of page pageIndex (starting at 0), loading batches until it is complete or the
// selector has no more records
func (l *Loader) Page(ctx context.Context, pageIndex int) ([]model.Record, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	start := pageIndex * l.pageSize
	end := start + l.pageSize
	for len(l.records) < end && !l.exhausted {
		if _, err := l.load(ctx); err != nil {
			return nil, err
		}
	}
	if start >= len(l.records) {
		return []model.Record{}, nil
	}
	if end > len(l.records) {
		end = len(l.records)
	}
	return l.records[start:end], nil
}

// Total returns the number of records loaded so far
func (l *Loader) Total() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.records)
}

// Exhausted reports whether every matching record was loaded
func (l *Loader) Exhausted() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.exhausted
}

// View is a paginated window over the records matching a selector
type View struct {
	Selector memset.Selector
	PageSize int
	loader   *Loader
}

// NewView returns a view of sel on store
func NewView(store *Store, sel memset.Selector, pageSize int, params *Context) *View {
	loader := NewLoader(store, sel, pageSize, params)
	return &View{Selector: sel, PageSize: loader.pageSize, loader: loader}
}

// Page returns page pageIndex of the view
func (v *View) Page(ctx context.Context, pageIndex int) ([]model.Record, error) {
	return v.loader.Page(ctx, pageIndex)
}

// PageCount returns the number of pages loaded so far
func (v *View) PageCount() int {
	total := v.loader.Total()
	return (total + v.PageSize - 1) / v.PageSize
}

// Loader returns the view's loader
func (v *View) Loader() *Loader {
	return v.loader
}
