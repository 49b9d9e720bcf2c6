package engine

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
)

// fieldType 按路径查找字段类型，路径用 . 分隔，可以穿过结构体指针
func fieldType(t reflect.Type, path string) (reflect.Type, error) {
	for _, name := range strings.Split(path, ".") {
		for t.Kind() == reflect.Ptr {
			t = t.Elem()
		}
		if t.Kind() != reflect.Struct {
			return nil, fmt.Errorf("%w: %s", ErrUnknownField, path)
		}

		sf, ok := t.FieldByName(name)
		if !ok || !sf.IsExported() {
			return nil, fmt.Errorf("%w: %s", ErrUnknownField, path)
		}
		t = sf.Type
	}
	return t, nil
}

// fieldValue 按路径读取字段值，路径上遇到 nil 指针时返回 nil
func fieldValue(root reflect.Value, path string) (any, error) {
	cur := root
	for _, name := range strings.Split(path, ".") {
		for cur.Kind() == reflect.Ptr {
			if cur.IsNil() {
				return nil, nil
			}
			cur = cur.Elem()
		}
		if cur.Kind() != reflect.Struct {
			return nil, fmt.Errorf("%w: %s", ErrUnknownField, path)
		}

		sf, ok := cur.Type().FieldByName(name)
		if !ok || !sf.IsExported() {
			return nil, fmt.Errorf("%w: %s", ErrUnknownField, path)
		}
		cur = cur.FieldByIndex(sf.Index)
	}
	return cur.Interface(), nil
}

// settableField 按路径定位可写字段，路径上的 nil 指针会被分配
// detach 为 true 时路径上的指针会被替换为新分配的副本，用于在浅拷贝上写入而不影响原对象
func settableField(root reflect.Value, path string, detach bool) (reflect.Value, error) {
	cur := root
	for _, name := range strings.Split(path, ".") {
		for cur.Kind() == reflect.Ptr {
			if detach || cur.IsNil() {
				fresh := reflect.New(cur.Type().Elem())
				if !cur.IsNil() {
					fresh.Elem().Set(cur.Elem())
				}
				cur.Set(fresh)
			}
			cur = cur.Elem()
		}
		if cur.Kind() != reflect.Struct {
			return reflect.Value{}, fmt.Errorf("%w: %s", ErrUnknownField, path)
		}

		sf, ok := cur.Type().FieldByName(name)
		if !ok || !sf.IsExported() {
			return reflect.Value{}, fmt.Errorf("%w: %s", ErrUnknownField, path)
		}
		cur = cur.FieldByIndex(sf.Index)
	}

	if !cur.CanSet() {
		return reflect.Value{}, fmt.Errorf("%w: %s", ErrUnknownField, path)
	}
	return cur, nil
}

// convertValue 把原始值转换为字段类型
// 支持：可直接赋值、数值之间（整数不能有小数部分且不能溢出）、字符串解析为数值和布尔、指针包装
func convertValue(raw any, typ reflect.Type) (reflect.Value, error) {
	if raw == nil {
		return reflect.Zero(typ), nil
	}

	v := reflect.ValueOf(raw)
	if v.Type().AssignableTo(typ) {
		return v, nil
	}

	if typ.Kind() == reflect.Ptr {
		elem, err := convertValue(raw, typ.Elem())
		if err != nil {
			return reflect.Value{}, err
		}
		ptr := reflect.New(typ.Elem())
		ptr.Elem().Set(elem)
		return ptr, nil
	}

	if v.Kind() == reflect.String && typ.Kind() != reflect.String {
		return parseString(v.String(), typ)
	}

	switch {
	case isNumber(v.Kind()) && isNumber(typ.Kind()):
		return convertNumber(v, typ)
	case v.Kind() == reflect.String && typ.Kind() == reflect.String,
		v.Kind() == reflect.Bool && typ.Kind() == reflect.Bool:
		return v.Convert(typ), nil
	}

	return reflect.Value{}, fmt.Errorf("%w: cannot use %T as %s", ErrValueType, raw, typ)
}

// parseString 文本输入转换（表单、查询参数）
func parseString(s string, typ reflect.Type) (reflect.Value, error) {
	s = strings.TrimSpace(s)
	out := reflect.New(typ).Elem()

	switch {
	case isInt(typ.Kind()):
		n, err := strconv.ParseInt(s, 10, typ.Bits())
		if err != nil {
			return reflect.Value{}, fmt.Errorf("%w: %q is not a valid integer", ErrValueType, s)
		}
		out.SetInt(n)
	case isUint(typ.Kind()):
		n, err := strconv.ParseUint(s, 10, typ.Bits())
		if err != nil {
			return reflect.Value{}, fmt.Errorf("%w: %q is not a valid unsigned integer", ErrValueType, s)
		}
		out.SetUint(n)
	case isFloat(typ.Kind()):
		n, err := strconv.ParseFloat(s, typ.Bits())
		if err != nil {
			return reflect.Value{}, fmt.Errorf("%w: %q is not a valid number", ErrValueType, s)
		}
		out.SetFloat(n)
	case typ.Kind() == reflect.Bool:
		b, err := strconv.ParseBool(s)
		if err != nil {
			return reflect.Value{}, fmt.Errorf("%w: %q is not a valid boolean", ErrValueType, s)
		}
		out.SetBool(b)
	default:
		return reflect.Value{}, fmt.Errorf("%w: cannot parse %q as %s", ErrValueType, s, typ)
	}

	return out, nil
}

// convertNumber 数值转换，拒绝截断和溢出
func convertNumber(v reflect.Value, typ reflect.Type) (reflect.Value, error) {
	out := reflect.New(typ).Elem()

	switch {
	case isInt(typ.Kind()):
		var n int64
		switch {
		case isFloat(v.Kind()):
			f := v.Float()
			if f != math.Trunc(f) || f < math.MinInt64 || f >= math.MaxInt64 {
				return reflect.Value{}, fmt.Errorf("%w: %v is not a valid integer", ErrValueType, f)
			}
			n = int64(f)
		case isUint(v.Kind()):
			if v.Uint() > math.MaxInt64 {
				return reflect.Value{}, fmt.Errorf("%w: %v overflows %s", ErrValueType, v.Uint(), typ)
			}
			n = int64(v.Uint())
		default:
			n = v.Int()
		}
		if out.OverflowInt(n) {
			return reflect.Value{}, fmt.Errorf("%w: %d overflows %s", ErrValueType, n, typ)
		}
		out.SetInt(n)
	case isUint(typ.Kind()):
		var n uint64
		switch {
		case isFloat(v.Kind()):
			f := v.Float()
			if f != math.Trunc(f) || f < 0 || f >= math.MaxUint64 {
				return reflect.Value{}, fmt.Errorf("%w: %v is not a valid unsigned integer", ErrValueType, f)
			}
			n = uint64(f)
		case isInt(v.Kind()):
			if v.Int() < 0 {
				return reflect.Value{}, fmt.Errorf("%w: %d is negative", ErrValueType, v.Int())
			}
			n = uint64(v.Int())
		default:
			n = v.Uint()
		}
		if out.OverflowUint(n) {
			return reflect.Value{}, fmt.Errorf("%w: %d overflows %s", ErrValueType, n, typ)
		}
		out.SetUint(n)
	case typ.Kind() == reflect.Float32 && isFloat(v.Kind()):
		f := v.Float()
		if !math.IsInf(f, 0) && math.Abs(f) > math.MaxFloat32 {
			return reflect.Value{}, fmt.Errorf("%w: %v overflows %s", ErrValueType, f, typ)
		}
		out.SetFloat(f)
	default:
		return v.Convert(typ), nil
	}

	return out, nil
}

func isInt(k reflect.Kind) bool {
	return k >= reflect.Int && k <= reflect.Int64
}

func isUint(k reflect.Kind) bool {
	return k >= reflect.Uint && k <= reflect.Uintptr
}

func isFloat(k reflect.Kind) bool {
	return k == reflect.Float32 || k == reflect.Float64
}

func isNumber(k reflect.Kind) bool {
	return isInt(k) || isUint(k) || isFloat(k)
}
