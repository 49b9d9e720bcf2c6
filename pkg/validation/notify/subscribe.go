package notify

import (
	"context"
	"slices"
	"sync"

	"katydid-async-validation/pkg/validation/core"
)

// ============================================================================
// 订阅辅助函数 - 按名称过滤通知流
// ============================================================================

// SubscribeProperty 订阅单个属性的变更
// IsValidating 的状态变更也会匹配
func (d *Dispatcher) SubscribeProperty(name string, fn func()) (unsubscribe func()) {
	if fn == nil {
		return func() {}
	}

	return d.Subscribe(ListenerFunc(func(event Event) {
		if event.Kind != EventErrorsChanged && event.Name == name {
			fn()
		}
	}))
}

// SubscribeProperties 订阅多个属性中任意一个的变更
// 未提供属性名时不订阅
func (d *Dispatcher) SubscribeProperties(fn func(), names ...string) (unsubscribe func()) {
	if fn == nil || len(names) == 0 {
		return func() {}
	}

	watched := slices.Clone(names)
	return d.Subscribe(ListenerFunc(func(event Event) {
		if event.Kind != EventErrorsChanged && slices.Contains(watched, event.Name) {
			fn()
		}
	}))
}

// SubscribeErrorsChanged 订阅字段错误变更
func (d *Dispatcher) SubscribeErrorsChanged(fn func(key core.FieldKey)) (unsubscribe func()) {
	if fn == nil {
		return func() {}
	}

	return d.Subscribe(ListenerFunc(func(event Event) {
		if event.Kind == EventErrorsChanged {
			fn(event.Name)
		}
	}))
}

// SubscribeHasErrorsChanged 订阅 HasErrors 变更
func (d *Dispatcher) SubscribeHasErrorsChanged(fn func()) (unsubscribe func()) {
	return d.SubscribeProperty(core.PropertyHasErrors, fn)
}

// SubscribeIsValidatingChanged 订阅 IsValidating 变更
func (d *Dispatcher) SubscribeIsValidatingChanged(fn func(isValidating bool)) (unsubscribe func()) {
	if fn == nil {
		return func() {}
	}

	return d.Subscribe(ListenerFunc(func(event Event) {
		if event.Kind == EventValidatingChanged {
			fn(event.Validating)
		}
	}))
}

// ============================================================================
// 通道订阅 - 供远端消费者使用
// ============================================================================

// streamListener 通道监听器
// 缓冲区满时丢弃该消费者的事件，不阻塞分发
type streamListener struct {
	mu     sync.Mutex
	ch     chan Event
	closed bool
}

// OnEvent 实现 Listener
func (s *streamListener) OnEvent(event Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}

	select {
	case s.ch <- event:
	default:
	}
}

// close 关闭通道
func (s *streamListener) close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.closed {
		s.closed = true
		close(s.ch)
	}
}

// Stream 以通道形式订阅所有事件
// ctx 结束时自动取消订阅并关闭通道
func (d *Dispatcher) Stream(ctx context.Context, buffer int) <-chan Event {
	s := &streamListener{ch: make(chan Event, max(buffer, 1))}

	unsubscribe := d.Subscribe(s)
	go func() {
		<-ctx.Done()
		unsubscribe()
		s.close()
	}()

	return s.ch
}
