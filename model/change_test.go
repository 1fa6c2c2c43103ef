package model_test

import (
	"testing"

	"github.com/autom8ter/cursorkit/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChangelog(t *testing.T) {
	rec := model.Record{"id": 1, "name": "a", "count": 2}
	cl, err := model.Changelog(rec)
	require.NoError(t, err)
	assert.Empty(t, cl)

	model.UpdateTag(rec, model.TagUpdate)
	rec["name"] = "b"
	cl, err = model.Changelog(rec)
	require.NoError(t, err)
	require.Len(t, cl, 1)
	assert.Equal(t, []string{"name"}, cl[0].Path)
	assert.Equal(t, "a", cl[0].From)
	assert.Equal(t, "b", cl[0].To)
}
