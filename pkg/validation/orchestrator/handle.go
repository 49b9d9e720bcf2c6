package orchestrator

import (
	"context"
	"errors"
	"time"

	"katydid-async-validation/pkg/validation/core"
)

var (
	// ErrTimeout 等待运行结束超时
	ErrTimeout = errors.New("orchestrator: timed out waiting for validation run")

	// ErrClosed 编排器已关闭，不再接受新的运行
	ErrClosed = errors.New("orchestrator: closed")
)

// Handle 一次验证运行的异步句柄
// 运行总会结束：评估异常被收敛在运行内部，句柄只会携带结果，不会携带异常
type Handle struct {
	info   core.RunInfo
	done   chan struct{}
	result core.RunResult
}

// newHandle 创建句柄
func newHandle(info core.RunInfo) *Handle {
	return &Handle{info: info, done: make(chan struct{})}
}

// settle 写入结果并结束句柄，只能调用一次
func (h *Handle) settle(result core.RunResult) {
	h.result = result
	close(h.done)
}

// Info 运行元数据
func (h *Handle) Info() core.RunInfo {
	return h.info
}

// Done 运行结束时关闭的通道
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// IsComplete 非阻塞检查运行是否结束
func (h *Handle) IsComplete() bool {
	select {
	case <-h.done:
		return true
	default:
		return false
	}
}

// Await 等待运行结束
func (h *Handle) Await() core.RunResult {
	<-h.done
	return h.result
}

// AwaitContext 等待运行结束或 ctx 结束
// 只有 ctx 结束时返回错误，运行本身不会返回错误
func (h *Handle) AwaitContext(ctx context.Context) (core.RunResult, error) {
	select {
	case <-h.done:
		return h.result, nil
	case <-ctx.Done():
		return core.RunResult{Info: h.info}, ctx.Err()
	}
}

// AwaitWithTimeout 带超时等待
func (h *Handle) AwaitWithTimeout(timeout time.Duration) (core.RunResult, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-h.done:
		return h.result, nil
	case <-timer.C:
		return core.RunResult{Info: h.info}, ErrTimeout
	}
}
