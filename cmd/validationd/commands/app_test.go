package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"katydid-async-validation/pkg/config"
	"katydid-async-validation/pkg/httpbind"
	"katydid-async-validation/pkg/idgen"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load("")
	require.NoError(t, err)
	return cfg
}

func newTestApp(t *testing.T, cfg *config.Config, account *Account) *app {
	t.Helper()
	a, err := newApp(context.Background(), cfg, zaptest.NewLogger(t), account)
	require.NoError(t, err)
	t.Cleanup(a.Close)
	return a
}

func request(a *app, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func validAccount() *Account {
	return &Account{
		Username:        "alice",
		Email:           "alice@example.com",
		Password:        "correct-horse",
		ConfirmPassword: "correct-horse",
		Age:             30,
		Country:         "NZ",
	}
}

func TestApp_Healthz(t *testing.T) {
	a := newTestApp(t, testConfig(t), nil)

	w := request(a, http.MethodGet, "/healthz", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestApp_ValidateEmptyAccount(t *testing.T) {
	a := newTestApp(t, testConfig(t), nil)

	w := request(a, http.MethodPost, "/validate", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp httpbind.RunResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "invalid", resp.Outcome)
	assert.True(t, resp.HasErrors)

	assert.False(t, a.orch.IsFieldValid(FieldUsername))
	assert.False(t, a.orch.IsFieldValid(FieldEmail))
	assert.False(t, a.orch.IsFieldValid(FieldPassword))
	assert.True(t, a.orch.IsFieldValid(FieldCountry))

	w = request(a, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `katydid_validation_runs_total{kind="object",outcome="invalid"} 1`)
}

func TestApp_MetricsDisabled(t *testing.T) {
	cfg := testConfig(t)
	cfg.Metrics.Enabled = false
	a := newTestApp(t, cfg, nil)

	w := request(a, http.MethodGet, "/metrics", "")

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestApp_PasswordContainsUsername(t *testing.T) {
	account := validAccount()
	account.Password = "alice-secret"
	account.ConfirmPassword = "alice-secret"
	a := newTestApp(t, testConfig(t), account)

	w := request(a, http.MethodPost, "/validate", "")
	require.Equal(t, http.StatusOK, w.Code)

	errs := a.orch.Errors(FieldPassword)
	require.Len(t, errs, 1)
	assert.Equal(t, "password must not contain the username", errs[0].Message)
	assert.True(t, a.orch.IsFieldValid(FieldUsername))
}

func TestApp_FieldUpdate(t *testing.T) {
	a := newTestApp(t, testConfig(t), validAccount())

	w := request(a, http.MethodPost, "/fields/Age", `{"value": "12"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, a.orch.IsFieldValid(FieldAge))

	w = request(a, http.MethodGet, "/account", "")
	require.Equal(t, http.StatusOK, w.Code)
	var got Account
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, 12, got.Age)
}

func TestApp_UniqueEmail(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig(t)
	cfg.Redis.Enabled = true
	cfg.Redis.URL = "redis://" + mr.Addr() + "/0"
	_, err := mr.SAdd(cfg.Redis.SetKey, "taken@example.com")
	require.NoError(t, err)

	a := newTestApp(t, cfg, validAccount())

	w := request(a, http.MethodPost, "/fields/Email", `{"value": "taken@example.com"}`)
	require.Equal(t, http.StatusOK, w.Code)
	errs := a.orch.Errors(FieldEmail)
	require.Len(t, errs, 1)
	assert.Equal(t, "email is already registered", errs[0].Message)

	w = request(a, http.MethodPost, "/fields/Email", `{"value": "fresh@example.com"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, a.orch.IsFieldValid(FieldEmail))

	w = request(a, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, w.Code)

	mr.Close()
	w = request(a, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestApp_RedisUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	cfg := testConfig(t)
	cfg.Redis.Enabled = true
	cfg.Redis.URL = "redis://" + addr + "/0"
	cfg.Redis.RetryAttempts = 1
	cfg.Redis.RetryInterval = 0

	_, err := newApp(context.Background(), cfg, zaptest.NewLogger(t), nil)

	assert.ErrorContains(t, err, "connect redis")
}

func runCheck(t *testing.T, doc string) (map[string]any, error) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "account.json")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	var out bytes.Buffer
	cmd := NewRootCmd(BuildInfo{Version: "test"})
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"check", "--file", path})
	runErr := cmd.Execute()

	var report map[string]any
	if out.Len() > 0 {
		require.NoError(t, json.Unmarshal(out.Bytes(), &report))
	}
	return report, runErr
}

func TestCheckCmd_Valid(t *testing.T) {
	doc, err := json.Marshal(validAccount())
	require.NoError(t, err)

	report, err := runCheck(t, string(doc))

	require.NoError(t, err)
	assert.Equal(t, true, report["valid"])
	assert.Empty(t, report["errors"])
}

func TestCheckCmd_Invalid(t *testing.T) {
	report, err := runCheck(t, `{"username":"al","email":"nope","age":5}`)

	require.ErrorIs(t, err, errInvalid)
	assert.Equal(t, false, report["valid"])

	errs, ok := report["errors"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, errs, "Username")
	assert.Contains(t, errs, "Email")
	assert.Contains(t, errs, "Age")
}

func TestCheckCmd_MissingFile(t *testing.T) {
	cmd := NewRootCmd(BuildInfo{})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"check", "--file", filepath.Join(t.TempDir(), "missing.json")})

	assert.ErrorContains(t, cmd.Execute(), "read account")
}

func TestApp_RunIDsAreSnowflake(t *testing.T) {
	cfg := testConfig(t)
	cfg.Validation.RunIDs.WorkerID = 9
	a := newTestApp(t, cfg, validAccount())

	w := request(a, http.MethodPost, "/validate", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp httpbind.RunResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "valid", resp.Outcome)

	info, err := idgen.ParseString(resp.RunID)
	require.NoError(t, err)
	assert.Equal(t, int64(9), info.WorkerID)
}
