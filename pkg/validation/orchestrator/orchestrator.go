package orchestrator

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"katydid-async-validation/pkg/validation/core"
	"katydid-async-validation/pkg/validation/executor"
	"katydid-async-validation/pkg/validation/store"
)

// defaultConversionMessage 绑定异常没有携带错误时使用的消息
const defaultConversionMessage = "value conversion failed"

// Orchestrator 异步验证编排器
// 职责：驱动整体/单字段验证运行，维护忙碌计数，把结果写入错误存储并发出通知，收敛评估异常
// 每个被验证对象持有自己的编排器，实例之间不共享状态
type Orchestrator struct {
	store     *store.ErrorStore
	busy      atomic.Int64
	evaluator core.RuleEvaluator
	sink      core.ObserverSink
	presenter core.ErrorPresenter
	worker    core.Executor
	caller    core.Executor
	plugins   []core.Plugin
	ids       core.IDGenerator
	logger    *zap.Logger

	showErrorInDialog atomic.Bool

	// closed 与 runs.Add 互斥，Close 之后不再登记新的运行
	mu     sync.Mutex
	closed bool
	runs   sync.WaitGroup
}

// New 创建验证编排器
// 默认：goroutine 工作上下文、就地调用方上下文、空通知接收方
func New(evaluator core.RuleEvaluator, opts ...Option) (*Orchestrator, error) {
	if evaluator == nil {
		return nil, core.ErrNilEvaluator
	}

	o := &Orchestrator{
		store:     store.New(),
		evaluator: evaluator,
		sink:      nopSink{},
		worker:    executor.Go(),
		caller:    executor.Inline(),
		ids:       core.IDGeneratorFunc(uuid.NewString),
		logger:    zap.NewNop(),
	}

	for _, opt := range opts {
		opt(o)
	}

	return o, nil
}

// ============================================================================
// 验证入口
// ============================================================================

// ValidateAll 异步验证整个对象
// 先清空全部错误再评估；onComplete 在所有存储变更和通知之后、于调用方上下文中执行
func (o *Orchestrator) ValidateAll(ctx context.Context, onComplete func()) *Handle {
	info := o.newRunInfo(core.RunKindObject, core.ObjectLevel)

	return o.run(ctx, info, onComplete,
		o.store.ClearAll,
		func(ctx context.Context) core.Outcome {
			return o.evaluator.EvaluateObject(ctx)
		},
	)
}

// ValidateField 使用给定值异步验证单个字段
// 只清除该字段自己的错误，其他字段的错误保持不变
func (o *Orchestrator) ValidateField(ctx context.Context, value any, key core.FieldKey, onComplete func()) *Handle {
	info := o.newRunInfo(core.RunKindField, key)

	return o.run(ctx, info, onComplete,
		func() { o.store.Clear(key) },
		func(ctx context.Context) core.Outcome {
			return o.evaluator.EvaluateField(ctx, value, key)
		},
	)
}

// run 执行一次验证运行
// 顺序：计数+1 -> 调用方上下文（忙碌通知）-> 工作上下文（清除、评估）-> 调用方上下文（写入、通知、计数-1、回调）
// 编排器关闭后直接返回已结束的句柄，Fault 为 ErrClosed
func (o *Orchestrator) run(
	ctx context.Context,
	info core.RunInfo,
	onComplete func(),
	reset func(),
	evaluate func(ctx context.Context) core.Outcome,
) *Handle {
	if ctx == nil {
		ctx = context.Background()
	}

	handle := newHandle(info)

	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		handle.settle(core.RunResult{Info: info, Fault: ErrClosed})
		return handle
	}
	o.runs.Add(1)
	o.mu.Unlock()

	o.busy.Add(1)
	o.caller.Execute(o.publishValidating)
	o.pluginsBefore(info)

	o.worker.Execute(func() {
		reset()
		outcome := o.evaluate(ctx, info, evaluate)

		o.caller.Execute(func() {
			defer o.runs.Done()

			result := o.complete(ctx, info, outcome)
			if onComplete != nil {
				o.callback(info, onComplete)
			}
			handle.settle(result)
		})
	})

	return handle
}

// evaluate 调用规则评估器，panic 被转换为评估异常
func (o *Orchestrator) evaluate(ctx context.Context, info core.RunInfo, fn func(ctx context.Context) core.Outcome) (outcome core.Outcome) {
	defer func() {
		if r := recover(); r != nil {
			outcome = core.Faulted(core.FaultFromPanic(info.Kind, info.Field, r))
		}
	}()

	// 运行开始前已取消：跳过评估，视为空的成功结果
	if ctx.Err() != nil {
		return core.Success()
	}

	return fn(ctx)
}

// complete 写入结果、发出通知、结束计数
func (o *Orchestrator) complete(ctx context.Context, info core.RunInfo, outcome core.Outcome) core.RunResult {
	result := core.RunResult{Info: info}

	fault := outcome.Fault
	if fault != nil && ctx.Err() != nil && isContextError(fault) {
		// 由本次运行自身的取消引起，不算异常
		fault = nil
	}
	result.Canceled = ctx.Err() != nil

	switch {
	case fault != nil:
		failure, evalFault := o.applyFault(info, fault)
		result.Fault = evalFault
		result.Failures = []core.Failure{failure}
		result.Notified = []core.FieldKey{info.Field}
	case outcome.IsFault():
		// 取消：没有失败项，只通知本次运行的字段
		result.Notified = []core.FieldKey{info.Field}
	default:
		result.Failures = outcome.Failures
		result.Notified = o.applyFailures(info, outcome.Failures)
	}

	o.emit(func() { o.sink.PropertyChanged(core.PropertyHasErrors) })
	for _, key := range result.Notified {
		o.emit(func() {
			o.sink.ErrorsChanged(key)
			o.sink.PropertyChanged(key)
		})
	}

	o.busy.Add(-1)
	o.publishValidating()

	result.Duration = time.Since(info.StartedAt)
	o.pluginsAfter(result)

	return result
}

// applyFailures 把规则失败写入存储，返回需要通知的字段集合
func (o *Orchestrator) applyFailures(info core.RunInfo, failures []core.Failure) []core.FieldKey {
	switch info.Kind {
	case core.RunKindField:
		// 被验证的字段拥有本次运行的全部失败项
		o.store.Append(info.Field, failures...)
	default:
		for _, failure := range failures {
			o.store.Append(failure.Key(), failure)
		}
	}

	return notificationSet(failures, info.Field)
}

// applyFault 记录评估异常，必要时交给错误展示器
func (o *Orchestrator) applyFault(info core.RunInfo, fault error) (core.Failure, *core.EvaluationFault) {
	var evalFault *core.EvaluationFault
	if !errors.As(fault, &evalFault) {
		evalFault = core.NewEvaluationFault(info.Kind, info.Field, fault)
	}

	o.logger.Warn("validation evaluation fault",
		zap.String("run_id", info.ID),
		zap.String("kind", string(info.Kind)),
		zap.String("field", info.Field),
		zap.Bool("panic", evalFault.IsPanic()),
		zap.Error(evalFault),
	)

	if o.showErrorInDialog.Load() && o.presenter != nil {
		o.emit(func() { o.presenter.Show(evalFault) })
	}

	failure := core.NewFailure(evalFault.Error(), faultFields(info)...)
	o.store.Append(info.Field, failure)
	return failure, evalFault
}

// ============================================================================
// 绑定异常
// ============================================================================

// ReportBindingFault 报告值转换等绑定层异常
// count > 0 时以异常消息作为字段错误，否则清除该字段错误；存储同步更新，通知在调用方上下文中发出
func (o *Orchestrator) ReportBindingFault(key core.FieldKey, count int, err error) {
	o.store.Clear(key)
	if count > 0 {
		message := defaultConversionMessage
		if err != nil {
			message = err.Error()
		}
		o.store.Append(key, core.NewFailure(message, key))
	}

	o.caller.Execute(func() {
		o.emit(func() {
			o.sink.PropertyChanged(core.PropertyHasErrors)
			o.sink.ErrorsChanged(key)
			o.sink.PropertyChanged(key)
		})
	})
}

// ============================================================================
// 状态读取
// ============================================================================

// HasErrors 是否存在任何错误
func (o *Orchestrator) HasErrors() bool {
	return o.store.HasAnyErrors()
}

// IsValidating 是否有验证运行在进行中
func (o *Orchestrator) IsValidating() bool {
	return o.busy.Load() > 0
}

// Errors 获取字段当前的错误
func (o *Orchestrator) Errors(key core.FieldKey) []core.Failure {
	failures, _ := o.store.Get(key)
	return failures
}

// IsFieldValid 字段是否没有错误
func (o *Orchestrator) IsFieldValid(key core.FieldKey) bool {
	return o.store.IsFieldValid(key)
}

// Store 底层错误存储（只应用于读取）
func (o *Orchestrator) Store() *store.ErrorStore {
	return o.store
}

// ShowErrorInDialog 评估异常是否交给错误展示器
func (o *Orchestrator) ShowErrorInDialog() bool {
	return o.showErrorInDialog.Load()
}

// SetShowErrorInDialog 设置评估异常是否交给错误展示器
func (o *Orchestrator) SetShowErrorInDialog(enabled bool) {
	o.showErrorInDialog.Store(enabled)
}

// Close 拒绝新的运行并等待所有进行中的运行结束，可重复调用
// 不能在调用方上下文的任务中调用
func (o *Orchestrator) Close() {
	o.mu.Lock()
	o.closed = true
	o.mu.Unlock()

	o.runs.Wait()
}

// ============================================================================
// 内部辅助
// ============================================================================

// newRunInfo 创建运行元数据
func (o *Orchestrator) newRunInfo(kind core.RunKind, field core.FieldKey) core.RunInfo {
	return core.RunInfo{
		ID:        o.ids.NewID(),
		Kind:      kind,
		Field:     field,
		StartedAt: time.Now(),
	}
}

// emit 调用外部协作方，panic 被记录而不中断计数和通知
func (o *Orchestrator) emit(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("observer panic", zap.Any("panic", r))
		}
	}()

	fn()
}

// publishValidating 发出忙碌状态，值在发出时读取
// 发出后状态已被并发运行改变时再发一次，保证监听器最后收到的值与 IsValidating 一致
func (o *Orchestrator) publishValidating() {
	for {
		validating := o.IsValidating()
		o.emit(func() { o.sink.ValidatingChanged(validating) })
		if o.IsValidating() == validating {
			return
		}
	}
}

// callback 执行完成回调
func (o *Orchestrator) callback(info core.RunInfo, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("completion callback panic",
				zap.String("run_id", info.ID),
				zap.Any("panic", r),
			)
		}
	}()

	fn()
}

// pluginsBefore 执行插件前置钩子
func (o *Orchestrator) pluginsBefore(info core.RunInfo) {
	for _, plugin := range o.plugins {
		o.emit(func() { plugin.BeforeRun(info) })
	}
}

// pluginsAfter 执行插件后置钩子
func (o *Orchestrator) pluginsAfter(result core.RunResult) {
	for _, plugin := range o.plugins {
		o.emit(func() { plugin.AfterRun(result) })
	}
}

// notificationSet 计算需要通知的字段集合
// 包含所有失败项涉及的字段（未指定字段的失败项计为对象级），并且总是包含 always
func notificationSet(failures []core.Failure, always core.FieldKey) []core.FieldKey {
	keys := make([]core.FieldKey, 0, len(failures)+1)
	seen := make(map[core.FieldKey]struct{}, len(failures)+1)

	add := func(key core.FieldKey) {
		if _, ok := seen[key]; !ok {
			seen[key] = struct{}{}
			keys = append(keys, key)
		}
	}

	for _, failure := range failures {
		if len(failure.Fields) == 0 {
			add(core.ObjectLevel)
			continue
		}
		for _, field := range failure.Fields {
			add(field)
		}
	}
	add(always)

	return keys
}

// faultFields 评估异常失败项的字段
func faultFields(info core.RunInfo) []core.FieldKey {
	if info.Kind == core.RunKindField {
		return []core.FieldKey{info.Field}
	}
	return nil
}

// isContextError 是否为上下文取消/超时错误
func isContextError(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// nopSink 空通知接收方
type nopSink struct{}

func (nopSink) PropertyChanged(string)      {}
func (nopSink) ErrorsChanged(core.FieldKey) {}
func (nopSink) ValidatingChanged(bool)      {}
