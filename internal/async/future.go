// Package async 提供带 panic 恢复的泛型 Future。
package async

import (
	"context"
	"errors"
	"fmt"

	"github.com/sourcegraph/conc"
)

// ErrPanicRecovered 表示异步任务中恢复的 panic。
var ErrPanicRecovered = errors.New("async task panic recovered")

// Future 代表一个异步计算的结果。
type Future[T any] struct {
	result T
	err    error
	done   chan struct{}
}

// Go 在新 goroutine 中执行 fn，ctx 原样传入。fn 中的 panic 被恢复并
// 转为 ErrPanicRecovered。
func Go[T any](ctx context.Context, fn func(ctx context.Context) (T, error)) *Future[T] {
	f := &Future[T]{done: make(chan struct{})}
	go func() {
		defer close(f.done)
		var wg conc.WaitGroup
		wg.Go(func() {
			f.result, f.err = fn(ctx)
		})
		if rec := wg.WaitAndRecover(); rec != nil {
			var zero T
			f.result = zero
			f.err = fmt.Errorf("%w: %v", ErrPanicRecovered, rec.Value)
		}
	}()
	return f
}

// Resolved 返回一个已完成的 Future。
func Resolved[T any](v T, err error) *Future[T] {
	f := &Future[T]{result: v, err: err, done: make(chan struct{})}
	close(f.done)
	return f
}

// Get 阻塞等待计算完成并返回结果；ctx 取消时提前返回 ctx.Err()。
func (f *Future[T]) Get(ctx context.Context) (T, error) {
	select {
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	case <-f.done:
		return f.result, f.err
	}
}

// Done 在计算完成后关闭。
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}
