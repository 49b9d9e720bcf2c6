package engine

import (
	"context"
	"fmt"

	"katydid-async-validation/pkg/validation/core"
)

// ============================================================================
// 业务层接口 - 由被验证对象实现
// ============================================================================

// RuleProvider 规则提供者
// 返回格式：map[字段名]规则字符串，规则语法与 validate 标签一致
type RuleProvider interface {
	ValidationRules() map[core.FieldKey]string
}

// ObjectRuleValidator 对象级业务规则（跨字段、整体约束）
// 只在标签规则全部通过后执行
type ObjectRuleValidator interface {
	ValidateObject(ctx context.Context) []core.Failure
}

// FieldRuleValidator 字段级业务规则，接收待验证的新值
type FieldRuleValidator interface {
	ValidateField(ctx context.Context, key core.FieldKey, value any) []core.Failure
}

// ============================================================================
// 自定义字段规则
// ============================================================================

// FieldRule 注册到引擎的字段规则
// 返回 error 表示规则无法完成评估（例如远程查询失败），会成为评估异常
type FieldRule interface {
	Check(ctx context.Context, key core.FieldKey, value any) ([]core.Failure, error)
}

// FieldRuleFunc 函数适配器
type FieldRuleFunc func(ctx context.Context, key core.FieldKey, value any) ([]core.Failure, error)

// Check 实现 FieldRule
func (f FieldRuleFunc) Check(ctx context.Context, key core.FieldKey, value any) ([]core.Failure, error) {
	return f(ctx, key, value)
}

// SetLookup 集合查询
type SetLookup interface {
	Contains(ctx context.Context, value string) (bool, error)
}

// UniqueRule 唯一性规则：值已存在于集合中时失败
// 空值不检查；message 为空时使用 "<field> is already in use"
func UniqueRule(lookup SetLookup, message string) FieldRule {
	return FieldRuleFunc(func(ctx context.Context, key core.FieldKey, value any) ([]core.Failure, error) {
		if value == nil {
			return nil, nil
		}
		text := fmt.Sprint(value)
		if text == "" {
			return nil, nil
		}

		exists, err := lookup.Contains(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("unique rule for %s: %w", key, err)
		}
		if !exists {
			return nil, nil
		}

		msg := message
		if msg == "" {
			msg = key + " is already in use"
		}
		return []core.Failure{core.NewFailure(msg, key)}, nil
	})
}
