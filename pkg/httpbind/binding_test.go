package httpbind

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"katydid-async-validation/pkg/validation/core"
	"katydid-async-validation/pkg/validation/engine"
	"katydid-async-validation/pkg/validation/notify"
	"katydid-async-validation/pkg/validation/orchestrator"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type profile struct {
	Name string `json:"name" validate:"required"`
	Age  int    `json:"age" validate:"gte=18"`
}

type fixture struct {
	mu      sync.RWMutex
	model   *profile
	orch    *orchestrator.Orchestrator
	events  *notify.Dispatcher
	router  *gin.Engine
	binding *Binding
}

func newFixture(t *testing.T, model *profile) *fixture {
	t.Helper()

	f := &fixture{model: model, events: notify.NewDispatcher()}

	evaluator, err := engine.NewPlaygroundEvaluator(model, engine.WithLocker(&f.mu))
	require.NoError(t, err)

	f.orch, err = orchestrator.New(evaluator, orchestrator.WithSink(f.events))
	require.NoError(t, err)
	t.Cleanup(f.orch.Close)

	f.binding = New(f.orch, f.events, WithBinder(evaluator), WithEventBuffer(16))
	f.router = NewRouter(f.binding)
	return f
}

func (f *fixture) do(method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v))
	return v
}

func TestListErrors_Empty(t *testing.T) {
	f := newFixture(t, &profile{Name: "alice", Age: 30})

	w := f.do(http.MethodGet, "/errors", "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"has_errors":false,"is_validating":false,"errors":{}}`, w.Body.String())
}

func TestValidateAll(t *testing.T) {
	f := newFixture(t, &profile{Age: 10})

	w := f.do(http.MethodPost, "/validate", "")

	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[RunResponse](t, w)
	assert.Equal(t, core.RunKindObject, resp.Kind)
	assert.Equal(t, "invalid", resp.Outcome)
	assert.True(t, resp.HasErrors)
	assert.Len(t, resp.Failures, 2)
	assert.ElementsMatch(t, []core.FieldKey{"Name", "Age", ""}, resp.Notified)
	assert.NotEmpty(t, resp.RunID)

	w = f.do(http.MethodGet, "/errors", "")
	list := decode[ErrorsResponse](t, w)
	assert.True(t, list.HasErrors)
	assert.Equal(t, []core.Failure{core.NewFailure("name is required", "Name")}, list.Errors["Name"])
	assert.Equal(t, []core.Failure{core.NewFailure("age must be at least 18", "Age")}, list.Errors["Age"])

	w = f.do(http.MethodGet, "/errors/Age", "")
	field := decode[FieldErrorsResponse](t, w)
	assert.False(t, field.Valid)
	assert.Len(t, field.Errors, 1)

	w = f.do(http.MethodGet, "/errors/"+ObjectField, "")
	field = decode[FieldErrorsResponse](t, w)
	assert.Equal(t, core.ObjectLevel, field.Field)
	assert.True(t, field.Valid)
	assert.Empty(t, field.Errors)
}

func TestValidateField_AppliesAndValidates(t *testing.T) {
	model := &profile{Name: "alice", Age: 30}
	f := newFixture(t, model)

	w := f.do(http.MethodPost, "/fields/Age", `{"value": 12}`)

	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[RunResponse](t, w)
	assert.Equal(t, "invalid", resp.Outcome)
	assert.Equal(t, "Age", resp.Field)
	assert.Equal(t, []core.FieldKey{"Age"}, resp.Notified)

	f.mu.RLock()
	assert.Equal(t, 12, model.Age)
	f.mu.RUnlock()

	w = f.do(http.MethodPost, "/fields/Age", `{"value": "40"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "valid", decode[RunResponse](t, w).Outcome)
	assert.True(t, f.orch.IsFieldValid("Age"))
}

func TestValidateField_BindingFault(t *testing.T) {
	model := &profile{Name: "alice", Age: 30}
	f := newFixture(t, model)

	w := f.do(http.MethodPost, "/fields/Age", `{"value": "abc"}`)

	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	resp := decode[ErrorResponse](t, w)
	assert.Equal(t, "Age", resp.Field)
	require.Len(t, resp.Errors, 1)
	assert.Contains(t, resp.Errors[0].Message, `"abc" is not a valid integer`)

	assert.True(t, f.orch.HasErrors())
	assert.Equal(t, 30, model.Age)
}

func TestValidateField_UnknownField(t *testing.T) {
	f := newFixture(t, &profile{Name: "alice", Age: 30})

	w := f.do(http.MethodPost, "/fields/Nope", `{"value": 1}`)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.False(t, f.orch.HasErrors())
}

func TestValidateField_BadJSON(t *testing.T) {
	f := newFixture(t, &profile{Name: "alice", Age: 30})

	w := f.do(http.MethodPost, "/fields/Age", `{"value":`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestValidateAll_Timeout(t *testing.T) {
	events := notify.NewDispatcher()
	orch, err := orchestrator.New(core.EvaluatorFuncs{
		Object: func(ctx context.Context) core.Outcome {
			<-ctx.Done()
			return core.Faulted(ctx.Err())
		},
	}, orchestrator.WithSink(events))
	require.NoError(t, err)
	defer orch.Close()

	router := NewRouter(New(orch, events, WithRunTimeout(20*time.Millisecond)))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/validate", nil))

	assert.Equal(t, http.StatusGatewayTimeout, w.Code)
}

func TestStreamEvents(t *testing.T) {
	f := newFixture(t, &profile{Name: "alice", Age: 30})

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/events", nil).WithContext(ctx)
	w := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		defer close(done)
		f.router.ServeHTTP(w, req)
	}()

	require.Eventually(t, func() bool { return f.events.Len() == 1 }, time.Second, 5*time.Millisecond)

	f.orch.ReportBindingFault("Age", 1, nil)

	require.Eventually(t, func() bool { return f.orch.HasErrors() }, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	cancel()
	<-done

	body := w.Body.String()
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))
	assert.Contains(t, body, "event:errors_changed")
	assert.Contains(t, body, `"name":"Age"`)
	assert.Contains(t, body, "event:property_changed")
	assert.Eventually(t, func() bool { return f.events.Len() == 0 }, time.Second, 5*time.Millisecond)
}

func TestRouter_RequestID(t *testing.T) {
	f := newFixture(t, &profile{Name: "alice", Age: 30})

	w := f.do(http.MethodGet, "/errors", "")
	generated := w.Header().Get(RequestIDHeader)
	assert.Len(t, generated, 36)

	req := httptest.NewRequest(http.MethodGet, "/errors", nil)
	req.Header.Set(RequestIDHeader, "req-42")
	w = httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	assert.Equal(t, "req-42", w.Header().Get(RequestIDHeader))
}
