package httpbind

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"katydid-async-validation/pkg/validation/core"
	"katydid-async-validation/pkg/validation/engine"
	"katydid-async-validation/pkg/validation/orchestrator"
)

// fieldRequest 单字段验证请求
type fieldRequest struct {
	Value any `json:"value"`
}

// Register 注册路由
func (b *Binding) Register(r gin.IRouter) {
	r.GET("/errors", b.listErrors)
	r.GET("/errors/:field", b.fieldErrors)
	r.POST("/validate", b.validateAll)
	r.POST("/fields/:field", b.validateField)
	r.GET("/events", b.streamEvents)
}

// listErrors GET /errors
func (b *Binding) listErrors(c *gin.Context) {
	c.JSON(http.StatusOK, ErrorsResponse{
		HasErrors:    b.orch.HasErrors(),
		IsValidating: b.orch.IsValidating(),
		Errors:       b.orch.Store().Snapshot(),
	})
}

// fieldErrors GET /errors/:field
func (b *Binding) fieldErrors(c *gin.Context) {
	key := fieldKey(c.Param("field"))
	c.JSON(http.StatusOK, FieldErrorsResponse{
		Field:  key,
		Valid:  b.orch.IsFieldValid(key),
		Errors: nonNil(b.orch.Errors(key)),
	})
}

// validateAll POST /validate
func (b *Binding) validateAll(c *gin.Context) {
	ctx, cancel := b.runContext(c)
	defer cancel()

	b.await(ctx, c, b.orch.ValidateAll(ctx, nil))
}

// validateField POST /fields/:field
// 请求体：{"value": ...}
func (b *Binding) validateField(c *gin.Context) {
	key := fieldKey(c.Param("field"))

	var req fieldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	value := req.Value
	if b.binder != nil {
		converted, err := b.binder.ConvertValue(key, req.Value)
		if err != nil {
			b.bindingFault(c, key, err)
			return
		}
		if err := b.binder.Apply(key, converted); err != nil {
			b.bindingFault(c, key, err)
			return
		}
		value = converted
	}

	ctx, cancel := b.runContext(c)
	defer cancel()

	b.await(ctx, c, b.orch.ValidateField(ctx, value, key, nil))
}

// bindingFault 值无法转换时报告绑定异常；字段不存在时返回 404
func (b *Binding) bindingFault(c *gin.Context, key core.FieldKey, err error) {
	if errors.Is(err, engine.ErrUnknownField) {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error(), Field: key})
		return
	}

	b.orch.ReportBindingFault(key, 1, err)
	b.logger.Debug("binding fault", zap.String("field", key), zap.Error(err))

	c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
		Error:  err.Error(),
		Field:  key,
		Errors: b.orch.Errors(key),
	})
}

// runContext 运行上下文：跟随请求，配置了超时时叠加超时
func (b *Binding) runContext(c *gin.Context) (context.Context, context.CancelFunc) {
	if b.runTimeout > 0 {
		return context.WithTimeout(c.Request.Context(), b.runTimeout)
	}
	return context.WithCancel(c.Request.Context())
}

// await 等待运行结束并写出结果
func (b *Binding) await(ctx context.Context, c *gin.Context, h *orchestrator.Handle) {
	result, err := h.AwaitContext(ctx)
	if err != nil {
		b.logger.Warn("validation run did not finish in time",
			zap.String("run_id", h.Info().ID),
			zap.Error(err),
		)
		c.JSON(http.StatusGatewayTimeout, ErrorResponse{Error: err.Error(), Field: h.Info().Field})
		return
	}

	c.JSON(http.StatusOK, newRunResponse(result, b.orch.HasErrors()))
}
