package engine

import (
	"github.com/go-playground/validator/v10"

	"katydid-async-validation/pkg/validation/core"
)

// Option 评估器选项
type Option func(*PlaygroundEvaluator)

// WithValidate 使用已配置的底层验证器（自定义标签、别名）
func WithValidate(v *validator.Validate) Option {
	return func(e *PlaygroundEvaluator) {
		if v != nil {
			e.validate = v
		}
	}
}

// WithFormatter 设置消息格式化器
func WithFormatter(f MessageFormatter) Option {
	return func(e *PlaygroundEvaluator) {
		if f != nil {
			e.formatter = f
		}
	}
}

// WithLocale 使用指定语言的默认消息
func WithLocale(locale string) Option {
	return func(e *PlaygroundEvaluator) {
		e.formatter = NewLocaleFormatter(locale)
	}
}

// WithValidateAllProperties 整体验证是否检查全部规则，false 时只检查 required
func WithValidateAllProperties(enabled bool) Option {
	return func(e *PlaygroundEvaluator) {
		e.validateAll = enabled
	}
}

// WithFieldRule 注册字段规则
func WithFieldRule(key core.FieldKey, rule FieldRule) Option {
	return func(e *PlaygroundEvaluator) {
		if rule != nil {
			e.fieldRules[key] = append(e.fieldRules[key], rule)
		}
	}
}

// WithLocker 拷贝被验证对象时持有的读锁
func WithLocker(l RLocker) Option {
	return func(e *PlaygroundEvaluator) {
		e.locker = l
	}
}
