package core

import "context"

// ============================================================================
// 协作方接口 - 由外部实现
// ============================================================================

// RuleEvaluator 规则评估器接口
// 职责：执行具体的验证规则，返回评估结果
// ctx 是取消信号，评估器可以提前结束
type RuleEvaluator interface {
	// EvaluateObject 评估整个对象
	EvaluateObject(ctx context.Context) Outcome

	// EvaluateField 使用给定值评估单个字段
	EvaluateField(ctx context.Context, value any, key FieldKey) Outcome
}

// ErrorPresenter 错误展示接口（对话框等）
// 仅在开启错误展示时调用
type ErrorPresenter interface {
	Show(err error)
}

// ObserverSink 通知接收方接口
// 职责：接收属性变更、错误变更、验证状态变更三类通知
type ObserverSink interface {
	// PropertyChanged 属性变更
	PropertyChanged(name string)

	// ErrorsChanged 字段错误变更
	ErrorsChanged(key FieldKey)

	// ValidatingChanged 验证状态变更
	ValidatingChanged(isValidating bool)
}

// Executor 执行上下文接口
// 工作上下文负责执行规则评估，调用方上下文负责投递通知和完成回调
type Executor interface {
	Execute(task func())
}

// Plugin 插件接口
// 职责：在每次验证运行前后执行附加逻辑（日志、指标）
type Plugin interface {
	// Name 插件名称
	Name() string

	// BeforeRun 运行开始
	BeforeRun(info RunInfo)

	// AfterRun 运行结束（通知已发出）
	AfterRun(result RunResult)
}

// IDGenerator 运行标识生成器
type IDGenerator interface {
	NewID() string
}

// ============================================================================
// 函数适配器
// ============================================================================

// EvaluatorFuncs 以函数实现 RuleEvaluator
// 未设置的函数返回空的成功结果
type EvaluatorFuncs struct {
	Object func(ctx context.Context) Outcome
	Field  func(ctx context.Context, value any, key FieldKey) Outcome
}

// EvaluateObject 实现 RuleEvaluator
func (f EvaluatorFuncs) EvaluateObject(ctx context.Context) Outcome {
	if f.Object == nil {
		return Success()
	}
	return f.Object(ctx)
}

// EvaluateField 实现 RuleEvaluator
func (f EvaluatorFuncs) EvaluateField(ctx context.Context, value any, key FieldKey) Outcome {
	if f.Field == nil {
		return Success()
	}
	return f.Field(ctx, value, key)
}

// PresenterFunc 以函数实现 ErrorPresenter
type PresenterFunc func(err error)

// Show 实现 ErrorPresenter
func (f PresenterFunc) Show(err error) {
	f(err)
}

// IDGeneratorFunc 以函数实现 IDGenerator
type IDGeneratorFunc func() string

// NewID 实现 IDGenerator
func (f IDGeneratorFunc) NewID() string {
	return f()
}

// ExecutorFunc 以函数实现 Executor
type ExecutorFunc func(task func())

// Execute 实现 Executor
func (f ExecutorFunc) Execute(task func()) {
	f(task)
}
