package notify

import (
	"sync"

	"go.uber.org/zap"

	"katydid-async-validation/pkg/validation/core"
)

// EventKind 通知类型
type EventKind int

const (
	EventPropertyChanged   EventKind = iota // 属性变更
	EventErrorsChanged                      // 字段错误变更
	EventValidatingChanged                  // 验证状态变更
)

// String 实现 fmt.Stringer
func (k EventKind) String() string {
	switch k {
	case EventPropertyChanged:
		return "property_changed"
	case EventErrorsChanged:
		return "errors_changed"
	case EventValidatingChanged:
		return "validating_changed"
	default:
		return "unknown"
	}
}

// MarshalText JSON 中以名称输出
func (k EventKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Event 通知事件
type Event struct {
	Kind EventKind `json:"kind"`

	// Name 属性名或字段标识
	Name string `json:"name"`

	// Validating 仅 EventValidatingChanged 有效
	Validating bool `json:"validating,omitempty"`
}

// Listener 事件监听器
type Listener interface {
	OnEvent(event Event)
}

// ListenerFunc 以函数实现 Listener
type ListenerFunc func(event Event)

// OnEvent 实现 Listener
func (f ListenerFunc) OnEvent(event Event) {
	f(event)
}

// registration 监听器注册项
type registration struct {
	listener Listener
}

// Dispatcher 事件分发器
// 职责：把编排器发出的通知按顺序分发给所有监听器
// 设计模式：观察者模式
// 监听器列表写时复制，分发时不持有锁，监听器回调中可以安全地订阅/取消订阅
type Dispatcher struct {
	mu        sync.RWMutex
	listeners []*registration
	logger    *zap.Logger
}

var _ core.ObserverSink = (*Dispatcher)(nil)

// DispatcherOption 分发器选项
type DispatcherOption func(*Dispatcher)

// WithLogger 设置日志器
func WithLogger(logger *zap.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// NewDispatcher 创建事件分发器
func NewDispatcher(opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// PropertyChanged 实现 core.ObserverSink
func (d *Dispatcher) PropertyChanged(name string) {
	d.Dispatch(Event{Kind: EventPropertyChanged, Name: name})
}

// ErrorsChanged 实现 core.ObserverSink
func (d *Dispatcher) ErrorsChanged(key core.FieldKey) {
	d.Dispatch(Event{Kind: EventErrorsChanged, Name: key})
}

// ValidatingChanged 实现 core.ObserverSink
func (d *Dispatcher) ValidatingChanged(isValidating bool) {
	d.Dispatch(Event{Kind: EventValidatingChanged, Name: core.PropertyIsValidating, Validating: isValidating})
}

// Dispatch 分发事件
// 同步、按注册顺序通知；单个监听器 panic 不影响其他监听器
func (d *Dispatcher) Dispatch(event Event) {
	d.mu.RLock()
	listeners := d.listeners
	d.mu.RUnlock()

	for _, reg := range listeners {
		d.deliver(reg, event)
	}
}

// deliver 通知单个监听器
func (d *Dispatcher) deliver(reg *registration, event Event) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("listener panic",
				zap.Stringer("kind", event.Kind),
				zap.String("name", event.Name),
				zap.Any("panic", r),
			)
		}
	}()

	reg.listener.OnEvent(event)
}

// Subscribe 订阅所有事件
// 返回取消订阅函数，可重复调用
func (d *Dispatcher) Subscribe(listener Listener) (unsubscribe func()) {
	if listener == nil {
		return func() {}
	}

	reg := &registration{listener: listener}

	d.mu.Lock()
	next := make([]*registration, len(d.listeners), len(d.listeners)+1)
	copy(next, d.listeners)
	d.listeners = append(next, reg)
	d.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			d.remove(reg)
		})
	}
}

// remove 移除监听器
func (d *Dispatcher) remove(target *registration) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for i, reg := range d.listeners {
		if reg == target {
			next := make([]*registration, 0, len(d.listeners)-1)
			next = append(next, d.listeners[:i]...)
			d.listeners = append(next, d.listeners[i+1:]...)
			return
		}
	}
}

// Len 当前监听器数量
func (d *Dispatcher) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return len(d.listeners)
}
