package queue

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/LouYuanbo1/socialagent/internal/faults"
	"github.com/LouYuanbo1/socialagent/param"
)

type Result struct {
	Status string `json:"status"`
	ID     string `json:"id"`
}

type Metadata struct {
	RequestID string
	UserID    string
	Kind      param.InteractionKind
}

// Operation 入队的交互动作,由唯一的工作协程执行
type Operation func(ctx context.Context) (Result, error)

type settled struct {
	result Result
	err    error
}

type task struct {
	meta       Metadata
	op         Operation
	resp       chan settled
	enqueuedAt time.Time
}

// InteractionQueue 全部交互动作共用一个已登录页面,并发操作会互相破坏页面状态,
// 所以用单工作协程严格按入队顺序执行,而不是细粒度锁
type InteractionQueue struct {
	tasks     chan *task
	done      chan struct{}
	closeOnce sync.Once
	log       *zap.Logger
}

func InitQueue(buffer int, log *zap.Logger) *InteractionQueue {
	q := &InteractionQueue{
		tasks: make(chan *task, buffer),
		done:  make(chan struct{}),
		log:   log.Named("queue"),
	}
	go q.run()
	return q
}

func (q *InteractionQueue) run() {
	defer close(q.done)
	for t := range q.tasks {
		start := time.Now()
		// 动作一旦开始执行就不再受调用方取消影响,避免页面停在中间状态
		result, err := t.op(context.Background())
		if err != nil {
			q.log.Warn("交互任务失败",
				zap.String("request_id", t.meta.RequestID),
				zap.String("kind", string(t.meta.Kind)),
				zap.Error(err))
		} else {
			q.log.Info("交互任务完成",
				zap.String("request_id", t.meta.RequestID),
				zap.String("kind", string(t.meta.Kind)),
				zap.Duration("queued", start.Sub(t.enqueuedAt)),
				zap.Duration("elapsed", time.Since(start)))
		}
		// resp带缓冲,调用方放弃等待也不会卡住工作协程
		t.resp <- settled{result: result, err: err}
	}
}

// Enqueue 入队并等待结果;调用方取消等待不影响任务本身的执行顺序和执行结果
func (q *InteractionQueue) Enqueue(ctx context.Context, meta Metadata, op Operation) (Result, error) {
	if meta.RequestID == "" {
		meta.RequestID = uuid.NewString()
	}
	t := &task{
		meta:       meta,
		op:         op,
		resp:       make(chan settled, 1),
		enqueuedAt: time.Now(),
	}
	select {
	case q.tasks <- t:
	case <-ctx.Done():
		return Result{}, faults.Mark(faults.Transient, ctx.Err(), "入队被取消")
	}
	select {
	case s := <-t.resp:
		return s.result, s.err
	case <-ctx.Done():
		q.log.Warn("调用方放弃等待结果", zap.String("request_id", meta.RequestID))
		return Result{}, faults.Mark(faults.Transient, ctx.Err(), "等待结果被取消")
	}
}

// Close 关闭队列并等待已入队任务全部执行完;Close之后不得再Enqueue
func (q *InteractionQueue) Close() {
	q.closeOnce.Do(func() { close(q.tasks) })
	<-q.done
}
