package queue

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/LouYuanbo1/socialagent/internal/faults"
	"github.com/LouYuanbo1/socialagent/param"
)

func TestEnqueueReturnsOpResult(t *testing.T) {
	q := InitQueue(8, zap.NewNop())
	defer q.Close()

	result, err := q.Enqueue(context.Background(),
		Metadata{Kind: param.InteractionSendMessage},
		func(ctx context.Context) (Result, error) {
			return Result{Status: "done", ID: "jane-doe"}, nil
		})
	require.NoError(t, err)
	assert.Equal(t, "done", result.Status)
	assert.Equal(t, "jane-doe", result.ID)
}

// 任意并发提交下,同一时刻最多只有一个动作在执行
func TestSingleWorkerNeverOverlaps(t *testing.T) {
	q := InitQueue(64, zap.NewNop())
	defer q.Close()

	var active, maxActive, total int64
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := q.Enqueue(context.Background(), Metadata{}, func(ctx context.Context) (Result, error) {
				cur := atomic.AddInt64(&active, 1)
				for {
					prev := atomic.LoadInt64(&maxActive)
					if cur <= prev || atomic.CompareAndSwapInt64(&maxActive, prev, cur) {
						break
					}
				}
				time.Sleep(time.Millisecond)
				atomic.AddInt64(&active, -1)
				atomic.AddInt64(&total, 1)
				return Result{Status: "done"}, nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, int64(1), atomic.LoadInt64(&maxActive))
	assert.Equal(t, int64(32), atomic.LoadInt64(&total))
}

// 失败的动作只影响自己的调用方,队列继续消费后续任务
func TestFailureSettlesOnlyItsCaller(t *testing.T) {
	q := InitQueue(8, zap.NewNop())
	defer q.Close()

	_, err := q.Enqueue(context.Background(), Metadata{}, func(ctx context.Context) (Result, error) {
		return Result{}, faults.New(faults.Browser, "页面崩了")
	})
	require.Error(t, err)
	assert.True(t, faults.Is(err, faults.Browser))

	result, err := q.Enqueue(context.Background(), Metadata{}, func(ctx context.Context) (Result, error) {
		return Result{Status: "done", ID: "next"}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, "next", result.ID)
}

// 调用方放弃等待不会卡住工作协程,后续任务照常执行
func TestAbandonedCallerDoesNotBlockWorker(t *testing.T) {
	q := InitQueue(8, zap.NewNop())
	defer q.Close()

	started := make(chan struct{})
	release := make(chan struct{})
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-started
		cancel()
		close(release)
	}()

	_, err := q.Enqueue(ctx, Metadata{}, func(ctx context.Context) (Result, error) {
		close(started)
		<-release
		time.Sleep(5 * time.Millisecond)
		return Result{Status: "done"}, nil
	})
	require.Error(t, err)
	assert.True(t, faults.Is(err, faults.Transient))

	result, err := q.Enqueue(context.Background(), Metadata{}, func(ctx context.Context) (Result, error) {
		return Result{Status: "done", ID: "after"}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, "after", result.ID)
}

// 严格按入队顺序执行
func TestFIFOOrder(t *testing.T) {
	q := InitQueue(8, zap.NewNop())
	defer q.Close()

	var mu sync.Mutex
	var got []int

	gate := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, _ = q.Enqueue(context.Background(), Metadata{}, func(ctx context.Context) (Result, error) {
			<-gate
			mu.Lock()
			got = append(got, 0)
			mu.Unlock()
			return Result{}, nil
		})
	}()
	// 第一个任务占住工作协程,后续任务按固定顺序进入缓冲
	time.Sleep(10 * time.Millisecond)
	for i := 1; i <= 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = q.Enqueue(context.Background(), Metadata{}, func(ctx context.Context) (Result, error) {
				mu.Lock()
				got = append(got, i)
				mu.Unlock()
				return Result{}, nil
			})
		}()
		time.Sleep(10 * time.Millisecond)
	}
	close(gate)
	wg.Wait()
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5}, got)
}
