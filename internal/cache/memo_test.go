package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemo_CachesResult(t *testing.T) {
	ctx := context.Background()
	var calls int
	var hits, misses int
	memo := NewMemo[string](NewLRUCache[string](4, time.Minute)).OnLookup(func(hit bool) {
		if hit {
			hits++
		} else {
			misses++
		}
	})
	load := func(context.Context) (string, error) {
		calls++
		return "table", nil
	}

	for i := 0; i < 3; i++ {
		v, err := memo.Do(ctx, "warehouse", load)
		require.NoError(t, err)
		assert.Equal(t, "table", v)
	}
	assert.Equal(t, 1, calls)
	assert.Equal(t, 2, hits)
	assert.Equal(t, 1, misses)
}

func TestMemo_ErrorsAreNotCached(t *testing.T) {
	ctx := context.Background()
	memo := NewMemo[string](NewLRUCache[string](4, time.Minute))
	boom := errors.New("connection refused")

	var calls int
	_, err := memo.Do(ctx, "crm", func(context.Context) (string, error) {
		calls++
		return "", boom
	})
	assert.ErrorIs(t, err, boom)

	v, err := memo.Do(ctx, "crm", func(context.Context) (string, error) {
		calls++
		return "recovered", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "recovered", v)
	assert.Equal(t, 2, calls)
}

func TestMemo_DeduplicatesConcurrentCalls(t *testing.T) {
	ctx := context.Background()
	memo := NewMemo[int](nil)

	var calls atomic.Int32
	release := make(chan struct{})
	started := make(chan struct{})
	var once sync.Once
	load := func(context.Context) (int, error) {
		calls.Add(1)
		once.Do(func() { close(started) })
		<-release
		return 42, nil
	}

	var wg sync.WaitGroup
	results := make([]int, 5)
	wg.Add(1)
	go func() {
		defer wg.Done()
		results[0], _ = memo.Do(ctx, "erp", load)
	}()
	<-started
	for i := 1; i < len(results); i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = memo.Do(ctx, "erp", load)
		}(i)
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	for _, r := range results {
		assert.Equal(t, 42, r)
	}
}

func TestMemo_Clear(t *testing.T) {
	ctx := context.Background()
	memo := NewMemo[int](NewLRUCache[int](4, time.Minute))
	var calls int
	load := func(context.Context) (int, error) {
		calls++
		return calls, nil
	}

	v, _ := memo.Do(ctx, "crm", load)
	assert.Equal(t, 1, v)
	v, _ = memo.Do(ctx, "crm", load)
	assert.Equal(t, 1, v)
	memo.Clear(ctx)
	v, _ = memo.Do(ctx, "crm", load)
	assert.Equal(t, 2, v)
}

func TestMemo_CancelledCallerDoesNotFailOthers(t *testing.T) {
	memo := NewMemo[string](NewLRUCache[string](4, time.Minute))
	started := make(chan struct{})
	release := make(chan struct{})
	load := func(ctx context.Context) (string, error) {
		close(started)
		select {
		case <-release:
			return "table", nil
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	leaderCtx, cancel := context.WithCancel(context.Background())
	leaderErr := make(chan error, 1)
	go func() {
		_, err := memo.Do(leaderCtx, "warehouse", load)
		leaderErr <- err
	}()
	<-started

	type result struct {
		v   string
		err error
	}
	follower := make(chan result, 1)
	go func() {
		v, err := memo.Do(context.Background(), "warehouse", load)
		follower <- result{v, err}
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-leaderErr, context.Canceled)

	close(release)
	got := <-follower
	require.NoError(t, got.err)
	assert.Equal(t, "table", got.v)

	// The shared load completed, so it was stored.
	v, err := memo.Do(context.Background(), "warehouse", func(context.Context) (string, error) {
		return "", errors.New("should be cached")
	})
	require.NoError(t, err)
	assert.Equal(t, "table", v)
}

func TestMemo_ClearDuringLoadDropsResult(t *testing.T) {
	ctx := context.Background()
	memo := NewMemo[string](NewLRUCache[string](4, time.Minute))
	started := make(chan struct{})
	release := make(chan struct{})

	done := make(chan string, 1)
	go func() {
		v, _ := memo.Do(ctx, "erp", func(context.Context) (string, error) {
			close(started)
			<-release
			return "stale", nil
		})
		done <- v
	}()
	<-started
	memo.Clear(ctx)
	close(release)
	assert.Equal(t, "stale", <-done, "the running caller still gets its result")

	v, err := memo.Do(ctx, "erp", func(context.Context) (string, error) {
		return "fresh", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "fresh", v)
}
