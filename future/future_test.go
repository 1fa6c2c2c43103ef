package future_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/autom8ter/cursorkit/future"
	"github.com/stretchr/testify/assert"
)

func TestFuture(t *testing.T) {
	ctx := context.Background()
	t.Run("first settlement wins", func(t *testing.T) {
		f := future.New[int]()
		assert.True(t, f.Resolve(1))
		assert.False(t, f.Resolve(2))
		assert.False(t, f.Reject(fmt.Errorf("late")))
		v, err := f.Await(ctx)
		assert.NoError(t, err)
		assert.Equal(t, 1, v)
	})
	t.Run("continuations before settlement", func(t *testing.T) {
		f := future.New[string]()
		var got []string
		f.Then(func(s string) { got = append(got, "then:"+s) })
		f.Catch(func(err error) { got = append(got, "catch") })
		f.Finally(func(s string, err error) { got = append(got, "finally") })
		f.Resolve("a")
		assert.Equal(t, []string{"then:a", "finally"}, got)
	})
	t.Run("continuations after settlement", func(t *testing.T) {
		f := future.Rejected[string](fmt.Errorf("boom"))
		var caught error
		f.Catch(func(err error) { caught = err })
		assert.EqualError(t, caught, "boom")
	})
	t.Run("await from another goroutine", func(t *testing.T) {
		f := future.New[int]()
		go func() {
			time.Sleep(10 * time.Millisecond)
			f.Resolve(42)
		}()
		v, err := f.Await(ctx)
		assert.NoError(t, err)
		assert.Equal(t, 42, v)
		assert.True(t, f.Settled())
	})
	t.Run("await honors the context", func(t *testing.T) {
		f := future.New[int]()
		ctx, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
		defer cancel()
		_, err := f.Await(ctx)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})
	t.Run("concurrent settlement settles once", func(t *testing.T) {
		f := future.New[int]()
		var (
			wg  sync.WaitGroup
			mu  sync.Mutex
			won int
		)
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				if f.Resolve(i) {
					mu.Lock()
					won++
					mu.Unlock()
				}
			}(i)
		}
		wg.Wait()
		assert.Equal(t, 1, won)
	})
	t.Run("map", func(t *testing.T) {
		f := future.Resolved(2)
		doubled := future.Map(f, func(v int) (string, error) {
			return fmt.Sprint(v * 2), nil
		})
		v, err := doubled.Await(ctx)
		assert.NoError(t, err)
		assert.Equal(t, "4", v)
		failed := future.Map(future.Rejected[int](fmt.Errorf("nope")), func(v int) (int, error) {
			return v, nil
		})
		_, err = failed.Await(ctx)
		assert.EqualError(t, err, "nope")
	})
}
