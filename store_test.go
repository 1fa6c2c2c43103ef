package cursorkit_test

import (
	"context"
	"testing"

	"github.com/autom8ter/cursorkit"
	"github.com/autom8ter/cursorkit/errors"
	"github.com/autom8ter/cursorkit/memset"
	"github.com/autom8ter/cursorkit/model"
	"github.com/autom8ter/cursorkit/testutil"
	"github.com/segmentio/ksuid"
	"github.com/spf13/cast"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore(t *testing.T) {
	t.Run("json schema validation", func(t *testing.T) {
		assert.Nil(t, testutil.TestDB(func(ctx context.Context, db *cursorkit.DB) {
			users, err := db.Store("users")
			require.NoError(t, err)
			same, err := db.Store("users")
			require.NoError(t, err)
			assert.Same(t, users, same)

			_, err = users.Insert(ctx, []model.Record{testutil.NewUser(), {"name": "no contact"}}, nil).Await(ctx)
			require.Error(t, err)
			assert.True(t, errors.HasCode(err, errors.Validation))
			var verr *cursorkit.ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Contains(t, verr.Errors, 1)
			assert.NotContains(t, verr.Errors, 0)
			n, err := users.Count(ctx, nil, nil).Await(ctx)
			assert.NoError(t, err)
			assert.Equal(t, 0, n)

			user := testutil.NewUser()
			res, err := users.Insert(ctx, []model.Record{user}, nil).Await(ctx)
			require.NoError(t, err)
			assert.Empty(t, res.Failed)
			id := cast.ToString(user["_id"])
			_, err = ksuid.Parse(id)
			assert.NoError(t, err)
			found, err := users.FindByID(ctx, id, nil).Await(ctx)
			assert.NoError(t, err)
			assert.Equal(t, user["name"], found["name"])
		}))
	})
	t.Run("missing store", func(t *testing.T) {
		assert.Nil(t, testutil.TestDB(func(ctx context.Context, db *cursorkit.DB) {
			_, err := db.Store("missing")
			assert.True(t, errors.HasCode(err, errors.NotFound))
		}))
	})
	t.Run("find by ids and remove by ids", func(t *testing.T) {
		assert.Nil(t, testutil.TestDB(func(ctx context.Context, db *cursorkit.DB) {
			items, err := db.Store("items")
			require.NoError(t, err)
			_, err = items.Insert(ctx, testutil.NewItems(4), nil).Await(ctx)
			require.NoError(t, err)
			records, err := items.FindByIDs(ctx, []any{2, 4}, nil).Await(ctx)
			assert.NoError(t, err)
			assert.Equal(t, []int{2, 4}, ids(records, "id"))
			missing, err := items.FindByID(ctx, 9, nil).Await(ctx)
			assert.NoError(t, err)
			assert.Nil(t, missing)

			_, err = items.RemoveByID(ctx, 1, nil).Await(ctx)
			assert.NoError(t, err)
			_, err = items.RemoveByIDs(ctx, []any{2, 3}, nil).Await(ctx)
			assert.NoError(t, err)
			n, err := items.Count(ctx, nil, nil).Await(ctx)
			assert.NoError(t, err)
			assert.Equal(t, 1, n)
		}))
	})
	t.Run("count dispatch", func(t *testing.T) {
		assert.Nil(t, testutil.TestDB(func(ctx context.Context, db *cursorkit.DB) {
			items, err := db.Store("items")
			require.NoError(t, err)
			_, err = items.Insert(ctx, []model.Record{
				{"id": 1, "x": 5, "name": "a"},
				{"id": 2, "x": 15, "name": "b"},
				{"id": 3, "x": 25, "name": "b"},
			}, nil).Await(ctx)
			require.NoError(t, err)

			n, err := items.Count(ctx, nil, nil).Await(ctx)
			assert.NoError(t, err)
			assert.Equal(t, 3, n)

			n, err = items.Count(ctx, memset.S("x", memset.O("$gte", 10)), nil).Await(ctx)
			assert.NoError(t, err)
			assert.Equal(t, 2, n)

			n, err = items.Count(ctx, memset.S("x", memset.O("$gte", 10), "name", "a"), nil).Await(ctx)
			assert.NoError(t, err)
			assert.Equal(t, 0, n)

			c := cursorkit.NewContext("items")
			c.Mix = true
			n, err = items.Count(ctx, memset.S("name", "b"), c).Await(ctx)
			assert.NoError(t, err)
			assert.Equal(t, 2, n)

			_, err = items.Count(ctx, memset.S("color", "red"), nil).Await(ctx)
			assert.True(t, errors.HasCode(err, errors.Planning))
		}))
	})
	t.Run("defaults", func(t *testing.T) {
		assert.Nil(t, testutil.TestDB(func(ctx context.Context, db *cursorkit.DB) {
			items, err := db.Store("items")
			require.NoError(t, err)
			_, err = items.Insert(ctx, testutil.NewItems(5), nil).Await(ctx)
			require.NoError(t, err)
			reversed := items.WithDefaults(&cursorkit.Context{Direction: model.Prev, Count: 2})
			res, err := reversed.Find(ctx, memset.S("x", nil), nil).Await(ctx)
			assert.NoError(t, err)
			assert.Equal(t, []int{5, 4}, ids(res.Records, "x"))
		}))
	})
	t.Run("update and remove", func(t *testing.T) {
		assert.Nil(t, testutil.TestDB(func(ctx context.Context, db *cursorkit.DB) {
			items, err := db.Store("items")
			require.NoError(t, err)
			_, err = items.Insert(ctx, testutil.NewItems(3), nil).Await(ctx)
			require.NoError(t, err)
			c := cursorkit.NewContext("items")
			c.Set = memset.S("name", "same")
			_, err = items.Update(ctx, memset.S("x", memset.O("$lte", 2)), c).Await(ctx)
			require.NoError(t, err)
			res, err := items.Find(ctx, memset.S("name", "same"), nil).Await(ctx)
			assert.NoError(t, err)
			assert.Equal(t, []int{1, 2}, ids(res.Records, "id"))
			_, err = items.Remove(ctx, memset.S("name", "same"), nil).Await(ctx)
			assert.NoError(t, err)
			found, err := items.Contains(ctx, []memset.Selector{memset.S("_tag", int(model.TagRemove))}, nil).Await(ctx)
			assert.NoError(t, err)
			assert.Contains(t, found, "_tag")
			_, err = items.Clear(ctx).Await(ctx)
			assert.NoError(t, err)
			n, err := items.Count(ctx, nil, nil).Await(ctx)
			assert.NoError(t, err)
			assert.Equal(t, 0, n)
		}))
	})
}

func TestView(t *testing.T) {
	assert.Nil(t, testutil.TestDB(func(ctx context.Context, db *cursorkit.DB) {
		items, err := db.Store("items")
		require.NoError(t, err)
		_, err = items.Insert(ctx, testutil.NewItems(250), nil).Await(ctx)
		require.NoError(t, err)
		sel := memset.S("x", memset.O("$gt", 0))
		view := items.Page(sel, 100, nil)
		assert.Same(t, view, items.Page(sel, 100, nil))
		assert.Same(t, view, items.Page(sel, 0, nil), "0 is the default page size")

		small := items.Page(sel, 10, nil)
		assert.NotSame(t, view, small)
		assert.Equal(t, 10, small.PageSize)
		reverse := items.Page(sel, 100, &cursorkit.Context{Direction: model.Prev})
		assert.NotSame(t, view, reverse)
		assert.Same(t, reverse, items.Page(sel, 100, &cursorkit.Context{Direction: model.Prev}))
		page, err := reverse.Page(ctx, 0)
		require.NoError(t, err)
		assert.Equal(t, 250, cast.ToInt(page[0]["x"]))

		page, err = view.Page(ctx, 1)
		require.NoError(t, err)
		assert.Len(t, page, 100)
		assert.Equal(t, 101, cast.ToInt(page[0]["x"]))
		assert.False(t, view.Loader().Exhausted())
		assert.Equal(t, 2, view.PageCount())

		page, err = view.Page(ctx, 2)
		require.NoError(t, err)
		assert.Len(t, page, 50)
		assert.True(t, view.Loader().Exhausted())
		assert.Equal(t, 3, view.PageCount())

		page, err = view.Page(ctx, 5)
		require.NoError(t, err)
		assert.Empty(t, page)
	}))
}

func TestFormat(t *testing.T) {
	records := []model.Record{
		{"id": 1, "name": "a", "tags": []any{"x", "y"}, "meta": map[string]any{"k": 1}, "__hidden": true},
		{"id": 2, "name": "b"},
	}
	assert.Equal(t, "id\tmeta\tname\ttags\n1\tobject\ta\tx,y\n2\t\tb\t", cursorkit.TSV(records, nil))
	assert.Equal(t, "a\t1", cursorkit.TSVRow(records[0], []string{"name", "id"}))
	assert.Equal(t, "", cursorkit.TSV(nil, nil))

	out, err := cursorkit.Render(`{{ range . }}{{ .name | upper }}{{ end }}`, records)
	assert.NoError(t, err)
	assert.Equal(t, "AB", out)
	_, err = cursorkit.Render(`{{ .name `, records)
	assert.True(t, errors.HasCode(err, errors.Validation))
}
