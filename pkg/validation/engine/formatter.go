package engine

import (
	"strings"
	"sync"
)

// Violation 单条规则违反
// 职责：描述被哪个字段的哪条规则拒绝，供格式化器生成消息
type Violation struct {
	Field   string // 字段标识（结构体字段名，嵌套用 . 分隔）
	Display string // 展示名（json 名），为空时使用 Field
	Tag     string // 规则标签（如 required, min, eqfield）
	Param   string // 规则参数（如 min=3 中的 "3"）
	Value   any
}

// Name 消息中使用的字段名
func (v Violation) Name() string {
	if v.Display != "" {
		return v.Display
	}
	return v.Field
}

// MessageFormatter 错误消息格式化器
type MessageFormatter interface {
	Format(v Violation) string
}

// MessageProvider 由被验证对象实现，为特定字段和规则提供自定义消息
type MessageProvider interface {
	ValidationMessage(field, tag string) (string, bool)
}

// LocaleFormatter 多语言消息格式化器
// 模板占位符：{field} {param} {tag}
type LocaleFormatter struct {
	mu       sync.RWMutex
	locale   string
	messages map[string]map[string]string // map[locale]map[tag]template
}

// NewLocaleFormatter 创建多语言格式化器，未知语言回退到 en
func NewLocaleFormatter(locale string) *LocaleFormatter {
	f := &LocaleFormatter{
		locale:   locale,
		messages: make(map[string]map[string]string),
	}
	f.loadDefaultMessages()
	return f
}

// loadDefaultMessages 加载默认消息
func (f *LocaleFormatter) loadDefaultMessages() {
	f.messages["en"] = map[string]string{
		"required":  "{field} is required",
		"min":       "{field} must be at least {param}",
		"max":       "{field} must be at most {param}",
		"len":       "{field} must be exactly {param} long",
		"gt":        "{field} must be greater than {param}",
		"gte":       "{field} must be at least {param}",
		"lt":        "{field} must be less than {param}",
		"lte":       "{field} must be at most {param}",
		"email":     "{field} must be a valid email address",
		"url":       "{field} must be a valid URL",
		"alphanum":  "{field} may only contain letters and digits",
		"numeric":   "{field} must be numeric",
		"oneof":     "{field} must be one of [{param}]",
		"eqfield":   "{field} must match {param}",
		"nefield":   "{field} must differ from {param}",
		"gtfield":   "{field} must be greater than {param}",
		"gtefield":  "{field} must be greater than or equal to {param}",
		"ltfield":   "{field} must be less than {param}",
		"ltefield":  "{field} must be less than or equal to {param}",
		"eqcsfield": "{field} must match {param}",
		"necsfield": "{field} must differ from {param}",
		"unique":    "{field} is already in use",
	}

	f.messages["zh"] = map[string]string{
		"required":  "{field} 不能为空",
		"min":       "{field} 不能小于 {param}",
		"max":       "{field} 不能大于 {param}",
		"len":       "{field} 长度必须为 {param}",
		"gt":        "{field} 必须大于 {param}",
		"gte":       "{field} 不能小于 {param}",
		"lt":        "{field} 必须小于 {param}",
		"lte":       "{field} 不能大于 {param}",
		"email":     "{field} 格式不正确",
		"url":       "{field} 不是有效的 URL",
		"alphanum":  "{field} 只能包含字母和数字",
		"numeric":   "{field} 必须是数字",
		"oneof":     "{field} 必须是 [{param}] 之一",
		"eqfield":   "{field} 必须与 {param} 一致",
		"nefield":   "{field} 不能与 {param} 相同",
		"gtfield":   "{field} 必须大于 {param}",
		"gtefield":  "{field} 不能小于 {param}",
		"ltfield":   "{field} 必须小于 {param}",
		"ltefield":  "{field} 不能大于 {param}",
		"eqcsfield": "{field} 必须与 {param} 一致",
		"necsfield": "{field} 不能与 {param} 相同",
		"unique":    "{field} 已被占用",
	}
}

// SetMessage 设置某个语言下规则的消息模板
func (f *LocaleFormatter) SetMessage(locale, tag, template string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.messages[locale] == nil {
		f.messages[locale] = make(map[string]string)
	}
	f.messages[locale][tag] = template
}

// Format 格式化单条违反
func (f *LocaleFormatter) Format(v Violation) string {
	template := f.template(v.Tag)
	if template == "" {
		template = "{field} failed the '{tag}' rule"
	}

	return strings.NewReplacer(
		"{field}", v.Name(),
		"{param}", v.Param,
		"{tag}", v.Tag,
	).Replace(template)
}

// template 查找模板：当前语言 -> en
func (f *LocaleFormatter) template(tag string) string {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if msg, ok := f.messages[f.locale][tag]; ok {
		return msg
	}
	return f.messages["en"][tag]
}
