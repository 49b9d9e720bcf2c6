package httpbind

import (
	"katydid-async-validation/pkg/validation/core"
)

// ErrorsResponse 错误表
type ErrorsResponse struct {
	HasErrors    bool                             `json:"has_errors"`
	IsValidating bool                             `json:"is_validating"`
	Errors       map[core.FieldKey][]core.Failure `json:"errors"`
}

// FieldErrorsResponse 单个字段的错误
type FieldErrorsResponse struct {
	Field  core.FieldKey  `json:"field"`
	Valid  bool           `json:"valid"`
	Errors []core.Failure `json:"errors"`
}

// RunResponse 一次验证运行的结果
type RunResponse struct {
	RunID      string          `json:"run_id"`
	Kind       core.RunKind    `json:"kind"`
	Field      core.FieldKey   `json:"field,omitempty"`
	Outcome    string          `json:"outcome"`
	Failures   []core.Failure  `json:"failures"`
	Notified   []core.FieldKey `json:"notified"`
	Fault      string          `json:"fault,omitempty"`
	DurationMS float64         `json:"duration_ms"`
	HasErrors  bool            `json:"has_errors"`
}

// ErrorResponse 请求错误
type ErrorResponse struct {
	Error  string         `json:"error"`
	Field  core.FieldKey  `json:"field,omitempty"`
	Errors []core.Failure `json:"errors,omitempty"`
}

// newRunResponse 转换运行结果
func newRunResponse(result core.RunResult, hasErrors bool) RunResponse {
	resp := RunResponse{
		RunID:      result.Info.ID,
		Kind:       result.Info.Kind,
		Field:      result.Info.Field,
		Outcome:    result.Outcome(),
		Failures:   nonNil(result.Failures),
		Notified:   result.Notified,
		DurationMS: float64(result.Duration.Microseconds()) / 1000,
		HasErrors:  hasErrors,
	}
	if result.Fault != nil {
		resp.Fault = result.Fault.Error()
	}
	return resp
}

func nonNil(failures []core.Failure) []core.Failure {
	if failures == nil {
		return []core.Failure{}
	}
	return failures
}
