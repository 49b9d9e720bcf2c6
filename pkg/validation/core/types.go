package core

import (
	"time"
)

// FieldKey 字段标识
// 空字符串表示对象级（整体）错误
type FieldKey = string

const (
	// ObjectLevel 对象级错误的字段标识
	ObjectLevel FieldKey = ""

	// PropertyHasErrors HasErrors 属性名
	PropertyHasErrors = "HasErrors"

	// PropertyIsValidating IsValidating 属性名
	PropertyIsValidating = "IsValidating"
)

// Failure 验证失败项
// 职责：描述一条被规则拒绝的结果（消息 + 受影响字段）
// Fields 为空时视为对象级错误
type Failure struct {
	Message string     `json:"message"`
	Fields  []FieldKey `json:"fields,omitempty"`
}

// NewFailure 创建验证失败项
func NewFailure(message string, fields ...FieldKey) Failure {
	return Failure{Message: message, Fields: fields}
}

// Key 错误存放的字段：第一个非空字段名，没有则为对象级
func (f Failure) Key() FieldKey {
	for _, field := range f.Fields {
		if field != "" {
			return field
		}
	}
	return ObjectLevel
}

// Error 实现 error 接口
func (f Failure) Error() string {
	return f.Message
}

// Outcome 一次规则评估的结果
// 两种形态：成功（Fault 为 nil，Failures 可以为空）或评估异常（Fault 非 nil）
type Outcome struct {
	Failures []Failure
	Fault    error
}

// Success 创建成功结果
func Success(failures ...Failure) Outcome {
	return Outcome{Failures: failures}
}

// Faulted 创建评估异常结果
func Faulted(err error) Outcome {
	return Outcome{Fault: err}
}

// IsFault 是否为评估异常
func (o Outcome) IsFault() bool {
	return o.Fault != nil
}

// RunKind 验证运行类型
type RunKind string

const (
	RunKindObject RunKind = "object" // 整体验证
	RunKindField  RunKind = "field"  // 单字段验证
)

// RunInfo 一次验证运行的元数据
type RunInfo struct {
	ID        string
	Kind      RunKind
	Field     FieldKey // 仅单字段验证有效
	StartedAt time.Time
}

// RunResult 一次验证运行的最终结果
type RunResult struct {
	Info RunInfo

	// Failures 本次写入错误存储的失败项
	Failures []Failure

	// Notified 本次发出通知的字段集合（有序，去重）
	Notified []FieldKey

	// Fault 评估异常（已被收敛，不会向调用方抛出）
	Fault error

	// Canceled 运行是否因取消而提前结束
	Canceled bool

	Duration time.Duration
}

// Outcome 结果分类，用于日志和指标
func (r RunResult) Outcome() string {
	switch {
	case r.Fault != nil:
		return "fault"
	case r.Canceled:
		return "canceled"
	case len(r.Failures) > 0:
		return "invalid"
	default:
		return "valid"
	}
}
