package core

import (
	"errors"
	"fmt"
)

// ErrNilEvaluator 未提供规则评估器
var ErrNilEvaluator = errors.New("validation: rule evaluator is nil")

// EvaluationFault 评估异常
// 职责：包装评估过程中的意外错误或 panic，在编排器边界被收敛
type EvaluationFault struct {
	Kind  RunKind
	Field FieldKey
	Cause error
	Panic any // 非 nil 表示由 panic 恢复而来
}

// NewEvaluationFault 创建评估异常
func NewEvaluationFault(kind RunKind, field FieldKey, cause error) *EvaluationFault {
	return &EvaluationFault{Kind: kind, Field: field, Cause: cause}
}

// FaultFromPanic 将 recover 得到的值转换为评估异常
func FaultFromPanic(kind RunKind, field FieldKey, r any) *EvaluationFault {
	var cause error
	switch v := r.(type) {
	case error:
		cause = v
	case string:
		cause = errors.New(v)
	default:
		cause = fmt.Errorf("%v", v)
	}
	return &EvaluationFault{Kind: kind, Field: field, Cause: cause, Panic: r}
}

// Error 实现 error 接口，直接使用底层错误消息
func (e *EvaluationFault) Error() string {
	if e.Cause == nil {
		return "validation: evaluation fault"
	}
	return e.Cause.Error()
}

// Unwrap 支持 errors.Is / errors.As
func (e *EvaluationFault) Unwrap() error {
	return e.Cause
}

// IsPanic 是否由 panic 恢复而来
func (e *EvaluationFault) IsPanic() bool {
	return e.Panic != nil
}
