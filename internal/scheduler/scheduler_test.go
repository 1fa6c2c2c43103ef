package scheduler_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/autom8ter/cursorkit/internal/scheduler"
	"github.com/autom8ter/machine/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduler(t *testing.T) {
	t.Run("fifo", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		s := scheduler.New(ctx, machine.New())
		var (
			mu  sync.Mutex
			got []int
			wg  sync.WaitGroup
		)
		for i := 0; i < 100; i++ {
			i := i
			wg.Add(1)
			require.NoError(t, s.Submit(func(ctx context.Context) {
				defer wg.Done()
				mu.Lock()
				got = append(got, i)
				mu.Unlock()
			}))
		}
		wg.Wait()
		for i := range got {
			assert.Equal(t, i, got[i])
		}
	})
	t.Run("resubmitted continuations run after queued tasks", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		s := scheduler.New(ctx, machine.New())
		var (
			got  []string
			wg   sync.WaitGroup
			gate = make(chan struct{})
		)
		wg.Add(3)
		require.NoError(t, s.Submit(func(ctx context.Context) {
			<-gate
			got = append(got, "chunk-1")
			wg.Done()
			assert.NoError(t, s.Submit(func(ctx context.Context) {
				got = append(got, "chunk-2")
				wg.Done()
			}))
		}))
		require.NoError(t, s.Submit(func(ctx context.Context) {
			got = append(got, "other")
			wg.Done()
		}))
		close(gate)
		wg.Wait()
		assert.Equal(t, []string{"chunk-1", "other", "chunk-2"}, got)
	})
	t.Run("close drains the queue", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		m := machine.New()
		s := scheduler.New(ctx, m)
		ran := 0
		for i := 0; i < 10; i++ {
			require.NoError(t, s.Submit(func(ctx context.Context) {
				time.Sleep(time.Millisecond)
				ran++
			}))
		}
		closeCtx, closeCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer closeCancel()
		require.NoError(t, s.Close(closeCtx))
		assert.Equal(t, 10, ran)
		assert.Error(t, s.Submit(func(ctx context.Context) {}))
	})
}
