package httpbind

import (
	"time"

	"go.uber.org/zap"

	"katydid-async-validation/pkg/validation/core"
	"katydid-async-validation/pkg/validation/notify"
	"katydid-async-validation/pkg/validation/orchestrator"
)

// ObjectField 路由中表示对象级错误的字段名
const ObjectField = "_object"

// FieldBinder 绑定层的值转换与写入
// 转换失败作为绑定异常报告给编排器，不进入规则评估
type FieldBinder interface {
	ConvertValue(key core.FieldKey, raw any) (any, error)
	Apply(key core.FieldKey, value any) error
}

// Binding HTTP 绑定适配器
// 职责：把错误表、验证入口和通知流暴露为 HTTP 接口
type Binding struct {
	orch        *orchestrator.Orchestrator
	events      *notify.Dispatcher
	binder      FieldBinder
	logger      *zap.Logger
	runTimeout  time.Duration
	eventBuffer int
}

// Option 绑定选项
type Option func(*Binding)

// WithBinder 设置值转换与写入
func WithBinder(binder FieldBinder) Option {
	return func(b *Binding) {
		b.binder = binder
	}
}

// WithLogger 设置日志器
func WithLogger(logger *zap.Logger) Option {
	return func(b *Binding) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithRunTimeout 单次验证运行的超时，0 表示只跟随请求上下文
func WithRunTimeout(timeout time.Duration) Option {
	return func(b *Binding) {
		b.runTimeout = timeout
	}
}

// WithEventBuffer 每个事件流订阅方的缓冲大小
func WithEventBuffer(size int) Option {
	return func(b *Binding) {
		if size > 0 {
			b.eventBuffer = size
		}
	}
}

// New 创建 HTTP 绑定
// events 必须是编排器的通知接收方，事件流才能收到通知
func New(orch *orchestrator.Orchestrator, events *notify.Dispatcher, opts ...Option) *Binding {
	b := &Binding{
		orch:        orch,
		events:      events,
		logger:      zap.NewNop(),
		eventBuffer: 64,
	}

	for _, opt := range opts {
		opt(b)
	}

	return b
}

// fieldKey 路由参数转换为字段标识
func fieldKey(param string) core.FieldKey {
	if param == ObjectField {
		return core.ObjectLevel
	}
	return param
}
