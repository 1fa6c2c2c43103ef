package safe_test

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/autom8ter/cursorkit/internal/safe"
	"github.com/stretchr/testify/assert"
)

func TestMap(t *testing.T) {
	m := safe.NewMap(map[string]int{})
	assert.False(t, m.Exists("1"))
	for i := 0; i < 10; i++ {
		m.Set(fmt.Sprint(i), i)
	}
	assert.Equal(t, 10, m.Len())
	assert.Equal(t, 7, m.Get("7"))
	assert.Equal(t, []string{"0", "1", "2"}, m.Keys()[:3])
	m.Del("7")
	assert.False(t, m.Exists("7"))
	m.Clear()
	assert.Equal(t, 0, m.Len())

	var zero safe.Map[string]
	zero.Set("a", "b")
	assert.Equal(t, "b", zero.Get("a"))
}

func TestGetOrSet(t *testing.T) {
	m := safe.NewMap[*int](nil)
	var built int64
	wg := sync.WaitGroup{}
	results := make([]*int, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = m.GetOrSet("view", func() *int {
				atomic.AddInt64(&built, 1)
				v := i
				return &v
			})
		}(i)
	}
	wg.Wait()
	assert.Equal(t, int64(1), built)
	for _, r := range results {
		assert.Same(t, results[0], r)
	}
}
