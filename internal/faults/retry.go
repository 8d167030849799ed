package faults

import (
	"context"
	"math/rand"
	"time"
)

// RetryPolicy 有界指数退避
type RetryPolicy struct {
	Attempts int
	BaseWait time.Duration
	MaxWait  time.Duration
}

// 网络抖动: 多次短退避; 平台限流: 少次长退避
var (
	TransientPolicy   = RetryPolicy{Attempts: 4, BaseWait: 2 * time.Second, MaxWait: 30 * time.Second}
	RateLimitedPolicy = RetryPolicy{Attempts: 2, BaseWait: 30 * time.Second, MaxWait: 2 * time.Minute}
)

// Retry 按策略执行fn,仅对Retryable分类的错误重试,其余错误立即返回
func Retry(ctx context.Context, policy RetryPolicy, fn func(ctx context.Context) error) error {
	var lastErr error
	wait := policy.BaseWait
	for attempt := 0; attempt < policy.Attempts; attempt++ {
		if attempt > 0 {
			jitter := time.Duration(rand.Int63n(int64(wait) / 2))
			select {
			case <-time.After(wait + jitter):
			case <-ctx.Done():
				return Mark(Transient, ctx.Err(), "重试等待被取消")
			}
			wait = min(wait*2, policy.MaxWait)
		}
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if !Retryable(lastErr) {
			return lastErr
		}
	}
	return lastErr
}
