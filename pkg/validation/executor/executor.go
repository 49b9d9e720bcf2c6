package executor

import (
	"errors"
	"sync"

	"katydid-async-validation/pkg/validation/core"
)

// ErrClosed 执行器已关闭
var ErrClosed = errors.New("executor: closed")

// ============================================================================
// 就地执行器
// ============================================================================

type inline struct{}

// Inline 在调用方 goroutine 中直接执行任务
// 作为默认的调用方上下文，也用于测试
func Inline() core.Executor {
	return inline{}
}

// Execute 实现 core.Executor
func (inline) Execute(task func()) {
	task()
}

// ============================================================================
// goroutine 执行器
// ============================================================================

type goExecutor struct{}

// Go 每个任务启动一个 goroutine
// 默认的工作上下文
func Go() core.Executor {
	return goExecutor{}
}

// Execute 实现 core.Executor
func (goExecutor) Execute(task func()) {
	go task()
}

// ============================================================================
// 有界工作池
// ============================================================================

// Pool 有界工作池
// 最多 size 个任务同时执行；Execute 从不阻塞调用方，超出的任务排队等待名额
type Pool struct {
	sem chan struct{}
	wg  sync.WaitGroup
}

// NewPool 创建工作池
func NewPool(size int) *Pool {
	return &Pool{sem: make(chan struct{}, max(size, 1))}
}

// Execute 实现 core.Executor
func (p *Pool) Execute(task func()) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()

		p.sem <- struct{}{}
		defer func() { <-p.sem }()

		task()
	}()
}

// Size 并发上限
func (p *Pool) Size() int {
	return cap(p.sem)
}

// Wait 等待所有已提交任务结束
func (p *Pool) Wait() {
	p.wg.Wait()
}

// ============================================================================
// 串行队列
// ============================================================================

// Serial 串行队列执行器
// 单个 goroutine 按提交顺序执行任务，用于模拟 UI 线程等调用方上下文
type Serial struct {
	mu     sync.Mutex
	tasks  []func()
	wake   chan struct{}
	closed bool
	done   chan struct{}
}

// NewSerial 创建串行队列并启动执行 goroutine
func NewSerial() *Serial {
	s := &Serial{
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
	go s.loop()
	return s
}

// Execute 实现 core.Executor
// 队列无界，提交从不阻塞；关闭后提交的任务在调用方 goroutine 中就地执行，保证完成任务不会丢失
func (s *Serial) Execute(task func()) {
	if err := s.Submit(task); err != nil {
		task()
	}
}

// Submit 提交任务，关闭后返回 ErrClosed
func (s *Serial) Submit(task func()) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	s.tasks = append(s.tasks, task)
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
	return nil
}

// loop 执行循环
func (s *Serial) loop() {
	defer close(s.done)

	for {
		s.mu.Lock()
		tasks := s.tasks
		s.tasks = nil
		closed := s.closed
		s.mu.Unlock()

		for _, task := range tasks {
			task()
		}

		if len(tasks) == 0 {
			if closed {
				return
			}
			<-s.wake
		}
	}
}

// Close 停止接收任务，执行完已排队任务后返回
// 不能在队列自身的任务中调用
func (s *Serial) Close() {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
	}
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
	<-s.done
}
