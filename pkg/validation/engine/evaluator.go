package engine

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"slices"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"katydid-async-validation/pkg/validation/core"
)

var (
	// ErrTargetNotStruct 被验证对象不是结构体指针
	ErrTargetNotStruct = errors.New("engine: target must be a non-nil pointer to a struct")

	// ErrUnknownField 字段不存在或不可导出
	ErrUnknownField = errors.New("engine: unknown field")

	// ErrValueType 值无法转换为字段类型
	ErrValueType = errors.New("engine: value type mismatch")
)

// crossFieldTags 引用同级字段的规则，失败项同时指向两个字段
var crossFieldTags = map[string]bool{
	"eqfield":       true,
	"nefield":       true,
	"gtfield":       true,
	"gtefield":      true,
	"ltfield":       true,
	"ltefield":      true,
	"fieldcontains": true,
	"fieldexcludes": true,
}

// crossStructTags 引用顶层对象命名空间下字段的规则
var crossStructTags = map[string]bool{
	"eqcsfield":  true,
	"necsfield":  true,
	"gtcsfield":  true,
	"gtecsfield": true,
	"ltcsfield":  true,
	"ltecsfield": true,
}

// RLocker 读锁，用于在拷贝被验证对象时与写入方互斥
type RLocker interface {
	RLock()
	RUnlock()
}

// PlaygroundEvaluator 基于 go-playground/validator 的规则评估器
// 设计模式：适配器模式 - 把 validate 标签、规则提供者、业务规则和自定义字段规则适配为 core.RuleEvaluator
// 每次评估都作用在被验证对象的浅拷贝上，单字段评估把新值写入拷贝而不是原对象
type PlaygroundEvaluator struct {
	target    any
	validate  *validator.Validate
	formatter MessageFormatter
	locker    RLocker

	validateAll bool

	mu         sync.RWMutex
	fieldRules map[core.FieldKey][]FieldRule
}

// NewPlaygroundEvaluator 创建规则评估器
func NewPlaygroundEvaluator(target any, opts ...Option) (*PlaygroundEvaluator, error) {
	rv := reflect.ValueOf(target)
	if !rv.IsValid() || rv.Kind() != reflect.Ptr || rv.IsNil() || rv.Elem().Kind() != reflect.Struct {
		return nil, ErrTargetNotStruct
	}

	e := &PlaygroundEvaluator{
		target:      target,
		formatter:   NewLocaleFormatter("en"),
		validateAll: true,
		fieldRules:  make(map[core.FieldKey][]FieldRule),
	}

	for _, opt := range opts {
		opt(e)
	}

	if e.validate == nil {
		e.validate = NewValidate()
	}

	return e, nil
}

// NewValidate 创建底层验证器，消息中的字段名使用 json 名
func NewValidate() *validator.Validate {
	v := validator.New()

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	return v
}

// AddFieldRule 注册字段规则
func (e *PlaygroundEvaluator) AddFieldRule(key core.FieldKey, rule FieldRule) {
	if rule == nil {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.fieldRules[key] = append(e.fieldRules[key], rule)
}

// RegisterValidation 注册自定义验证标签
func (e *PlaygroundEvaluator) RegisterValidation(tag string, fn validator.Func) error {
	return e.validate.RegisterValidation(tag, fn)
}

// RegisterAlias 注册规则别名
func (e *PlaygroundEvaluator) RegisterAlias(alias, tags string) {
	e.validate.RegisterAlias(alias, tags)
}

// ValidateAllProperties 整体验证是否检查全部规则（false 时只检查 required）
func (e *PlaygroundEvaluator) ValidateAllProperties() bool {
	return e.validateAll
}

// ConvertValue 把原始输入转换为字段类型
// 绑定层在调用单字段验证前使用，转换失败即为绑定异常
func (e *PlaygroundEvaluator) ConvertValue(key core.FieldKey, raw any) (any, error) {
	typ, err := fieldType(reflect.TypeOf(e.target), key)
	if err != nil {
		return nil, err
	}

	v, err := convertValue(raw, typ)
	if err != nil {
		return nil, err
	}
	return v.Interface(), nil
}

// Apply 把值写入被验证对象
// 值先按字段类型转换；配置的锁同时实现 sync.Locker 时写入期间持有写锁
func (e *PlaygroundEvaluator) Apply(key core.FieldKey, raw any) error {
	if l, ok := e.locker.(sync.Locker); ok {
		l.Lock()
		defer l.Unlock()
	}

	field, err := settableField(reflect.ValueOf(e.target).Elem(), key, false)
	if err != nil {
		return err
	}
	v, err := convertValue(raw, field.Type())
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	field.Set(v)
	return nil
}

// ============================================================================
// core.RuleEvaluator 实现
// ============================================================================

// EvaluateObject 整体验证
// 顺序：标签规则 -> 规则提供者 -> 对象业务规则（前两步通过时）-> 字段规则
func (e *PlaygroundEvaluator) EvaluateObject(ctx context.Context) core.Outcome {
	snapshot := e.snapshot()

	requiredOnly := !e.validateAll

	failures, err := e.structFailures(e.validate.StructCtx(ctx, snapshot.Interface()), snapshot, requiredOnly)
	if err != nil {
		return core.Faulted(err)
	}

	provided, err := e.providedFailures(ctx, snapshot, nil, requiredOnly)
	if err != nil {
		return core.Faulted(err)
	}
	failures = append(failures, provided...)

	if err := ctx.Err(); err != nil {
		return core.Success(failures...)
	}

	if len(failures) == 0 {
		if v, ok := snapshot.Interface().(ObjectRuleValidator); ok {
			failures = append(failures, v.ValidateObject(ctx)...)
		}
	}

	for _, key := range e.ruleKeys() {
		if err := ctx.Err(); err != nil {
			return core.Success(failures...)
		}

		value, err := fieldValue(snapshot, key)
		if err != nil {
			return core.Faulted(err)
		}
		ruleFailures, err := e.runFieldRules(ctx, key, value)
		if err != nil {
			return core.Faulted(err)
		}
		failures = append(failures, ruleFailures...)
	}

	return core.Success(failures...)
}

// EvaluateField 使用新值验证单个字段
// 新值写入对象拷贝后以 StructPartial 检查该字段，跨字段规则仍能看到其他字段的当前值
func (e *PlaygroundEvaluator) EvaluateField(ctx context.Context, value any, key core.FieldKey) core.Outcome {
	snapshot := e.snapshot()

	field, err := settableField(snapshot.Elem(), key, true)
	if err != nil {
		return core.Faulted(err)
	}
	converted, err := convertValue(value, field.Type())
	if err != nil {
		return core.Faulted(fmt.Errorf("%s: %w", key, err))
	}
	field.Set(converted)
	typed := converted.Interface()

	failures, err := e.structFailures(e.validate.StructPartialCtx(ctx, snapshot.Interface(), key), snapshot, false)
	if err != nil {
		return core.Faulted(err)
	}

	provided, err := e.providedFailures(ctx, snapshot, &key, false)
	if err != nil {
		return core.Faulted(err)
	}
	failures = append(failures, provided...)

	if err := ctx.Err(); err != nil {
		return core.Success(failures...)
	}

	ruleFailures, err := e.runFieldRules(ctx, key, typed)
	if err != nil {
		return core.Faulted(err)
	}
	failures = append(failures, ruleFailures...)

	if v, ok := snapshot.Interface().(FieldRuleValidator); ok {
		failures = append(failures, v.ValidateField(ctx, key, typed)...)
	}

	return core.Success(failures...)
}

// ============================================================================
// 内部实现
// ============================================================================

// snapshot 拷贝被验证对象，返回指向拷贝的指针
func (e *PlaygroundEvaluator) snapshot() reflect.Value {
	if e.locker != nil {
		e.locker.RLock()
		defer e.locker.RUnlock()
	}

	src := reflect.ValueOf(e.target)
	dst := reflect.New(src.Elem().Type())
	dst.Elem().Set(src.Elem())
	return dst
}

// structFailures 把 validator 的错误转换为失败项；requiredOnly 时只保留 required
func (e *PlaygroundEvaluator) structFailures(err error, snapshot reflect.Value, requiredOnly bool) ([]core.Failure, error) {
	if err == nil {
		return nil, nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil, err
	}

	failures := make([]core.Failure, 0, len(verrs))
	for _, fe := range verrs {
		if requiredOnly && fe.Tag() != "required" {
			continue
		}

		key := fieldKey(fe)
		v := Violation{
			Field:   key,
			Display: fe.Field(),
			Tag:     fe.Tag(),
			Param:   fe.Param(),
			Value:   fe.Value(),
		}
		failures = append(failures, core.NewFailure(e.message(snapshot, v), failureFields(key, fe.Tag(), fe.Param())...))
	}

	return failures, nil
}

// providedFailures 执行规则提供者返回的规则；only 非 nil 时只检查该字段，requiredOnly 时只保留 required
func (e *PlaygroundEvaluator) providedFailures(ctx context.Context, snapshot reflect.Value, only *core.FieldKey, requiredOnly bool) ([]core.Failure, error) {
	provider, ok := snapshot.Interface().(RuleProvider)
	if !ok {
		return nil, nil
	}

	rules := provider.ValidationRules()
	keys := make([]core.FieldKey, 0, len(rules))
	for key := range rules {
		if only == nil || *only == key {
			keys = append(keys, key)
		}
	}
	slices.Sort(keys)

	var failures []core.Failure
	for _, key := range keys {
		tags := rules[key]
		if tags == "" {
			continue
		}

		value, err := fieldValue(snapshot, key)
		if err != nil {
			return nil, err
		}

		err = e.validate.VarCtx(ctx, value, tags)
		if err == nil {
			continue
		}

		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return nil, fmt.Errorf("rules for %s: %w", key, err)
		}
		for _, fe := range verrs {
			if requiredOnly && fe.Tag() != "required" {
				continue
			}
			v := Violation{Field: key, Tag: fe.Tag(), Param: fe.Param(), Value: fe.Value()}
			failures = append(failures, core.NewFailure(e.message(snapshot, v), key))
		}
	}

	return failures, nil
}

// runFieldRules 执行某字段的自定义规则
func (e *PlaygroundEvaluator) runFieldRules(ctx context.Context, key core.FieldKey, value any) ([]core.Failure, error) {
	e.mu.RLock()
	rules := append([]FieldRule(nil), e.fieldRules[key]...)
	e.mu.RUnlock()

	var failures []core.Failure
	for _, rule := range rules {
		ruleFailures, err := rule.Check(ctx, key, value)
		if err != nil {
			return nil, err
		}
		failures = append(failures, ruleFailures...)
	}
	return failures, nil
}

// ruleKeys 注册了自定义规则的字段（已排序）
func (e *PlaygroundEvaluator) ruleKeys() []core.FieldKey {
	e.mu.RLock()
	defer e.mu.RUnlock()

	keys := make([]core.FieldKey, 0, len(e.fieldRules))
	for key := range e.fieldRules {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	return keys
}

// message 生成消息：对象自定义消息优先
func (e *PlaygroundEvaluator) message(snapshot reflect.Value, v Violation) string {
	if provider, ok := snapshot.Interface().(MessageProvider); ok {
		if msg, ok := provider.ValidationMessage(v.Field, v.Tag); ok {
			return msg
		}
	}
	return e.formatter.Format(v)
}

// fieldKey 去掉顶层类型名后的结构体命名空间，例如 Account.Address.City -> Address.City
func fieldKey(fe validator.FieldError) core.FieldKey {
	ns := fe.StructNamespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return fe.StructField()
}

// failureFields 失败项涉及的字段：跨字段规则同时指向被比较的字段
func failureFields(key core.FieldKey, tag, param string) []core.FieldKey {
	switch {
	case crossFieldTags[tag] && param != "":
		other := param
		if i := strings.LastIndexByte(key, '.'); i >= 0 {
			other = key[:i+1] + param
		}
		return []core.FieldKey{key, other}
	case crossStructTags[tag] && param != "":
		return []core.FieldKey{key, param}
	default:
		return []core.FieldKey{key}
	}
}
