package errors_test

import (
	"fmt"
	"testing"

	"github.com/autom8ter/cursorkit/errors"
	"github.com/stretchr/testify/assert"
)

func TestErrors(t *testing.T) {
	t.Run("wrap nil error", func(t *testing.T) {
		var err error
		err = errors.Wrap(err, errors.NotFound, "")
		assert.Nil(t, err)
	})
	t.Run("wrap error", func(t *testing.T) {
		var err = fmt.Errorf("not found")
		err = errors.Wrap(err, errors.NotFound, "")
		assert.Equal(t, errors.NotFound, errors.Extract(err).Code)
	})
	t.Run("new error", func(t *testing.T) {
		err := errors.New(errors.NotFound, "not found")
		assert.Equal(t, errors.NotFound, errors.Extract(err).Code)
	})
	t.Run("new error then wrap", func(t *testing.T) {
		err := errors.New(0, "not found")
		err = errors.Wrap(err, errors.NotFound, "")
		assert.Equal(t, errors.NotFound, errors.Extract(err).Code)
	})
	t.Run("new error then wrap then remove", func(t *testing.T) {
		err := errors.New(0, "not found")
		err = errors.Wrap(err, errors.NotFound, "")
		e := errors.Extract(err).RemoveError()
		assert.Empty(t, e.Err)
	})
	t.Run("error json string", func(t *testing.T) {
		err := errors.New(0, "not found")
		err = errors.Wrap(err, errors.NotFound, "")
		e := errors.Extract(err).RemoveError()
		assert.JSONEq(t, `{ "code":404, "messages": ["not found"]}`, e.Error())
	})
	t.Run("has code", func(t *testing.T) {
		err := errors.New(errors.Planning, "no index")
		assert.True(t, errors.HasCode(err, errors.Planning))
		assert.False(t, errors.HasCode(err, errors.Aborted))
		assert.False(t, errors.HasCode(nil, errors.Planning))
	})
	t.Run("unwrap", func(t *testing.T) {
		base := fmt.Errorf("disk full")
		err := errors.Wrap(base, errors.Internal, "put failed")
		assert.ErrorIs(t, err, base)
	})
}

func TestIs(t *testing.T) {
	sentinel := fmt.Errorf("key exists")
	err := errors.Wrap(sentinel, errors.Validation, "put failed")
	assert.True(t, errors.Is(err, sentinel))
	var e *errors.Error
	assert.True(t, errors.As(err, &e))
	assert.Equal(t, errors.Validation, e.Code)
}
