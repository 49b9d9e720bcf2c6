package orchestrator

import (
	"go.uber.org/zap"

	"katydid-async-validation/pkg/validation/core"
	"katydid-async-validation/pkg/validation/store"
)

// Option 编排器选项
type Option func(*Orchestrator)

// WithStore 设置错误存储
func WithStore(s *store.ErrorStore) Option {
	return func(o *Orchestrator) {
		if s != nil {
			o.store = s
		}
	}
}

// WithSink 设置通知接收方
func WithSink(sink core.ObserverSink) Option {
	return func(o *Orchestrator) {
		if sink != nil {
			o.sink = sink
		}
	}
}

// WithPresenter 设置错误展示器
func WithPresenter(presenter core.ErrorPresenter) Option {
	return func(o *Orchestrator) {
		o.presenter = presenter
	}
}

// WithShowErrorInDialog 设置评估异常是否交给错误展示器
func WithShowErrorInDialog(enabled bool) Option {
	return func(o *Orchestrator) {
		o.showErrorInDialog.Store(enabled)
	}
}

// WithWorker 设置工作上下文（执行规则评估）
func WithWorker(worker core.Executor) Option {
	return func(o *Orchestrator) {
		if worker != nil {
			o.worker = worker
		}
	}
}

// WithCaller 设置调用方上下文（投递通知和完成回调）
func WithCaller(caller core.Executor) Option {
	return func(o *Orchestrator) {
		if caller != nil {
			o.caller = caller
		}
	}
}

// WithPlugins 设置插件
func WithPlugins(plugins ...core.Plugin) Option {
	return func(o *Orchestrator) {
		o.plugins = append(o.plugins, plugins...)
	}
}

// WithIDGenerator 设置运行标识生成器，默认 UUID
func WithIDGenerator(ids core.IDGenerator) Option {
	return func(o *Orchestrator) {
		if ids != nil {
			o.ids = ids
		}
	}
}

// WithLogger 设置日志器
func WithLogger(logger *zap.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}
