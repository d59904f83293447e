package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newthinker/risklab/internal/api/response"
	"github.com/newthinker/risklab/internal/core"
	"github.com/newthinker/risklab/internal/metrics"
	"github.com/newthinker/risklab/internal/runner"
	"github.com/newthinker/risklab/internal/storage/strategy"
)

type stubRunner struct {
	result *runner.Result
	err    error
	input  map[string]any
}

func (s *stubRunner) Run(ctx context.Context, st *core.Strategy, input map[string]any) (*runner.Result, error) {
	s.input = input
	return s.result, s.err
}

func strPtr(s string) *string { return &s }

func seedStrategy(t *testing.T, store strategy.Store, name string) *core.Strategy {
	t.Helper()
	s, err := store.Create(context.Background(), core.StrategyInput{
		Name:       strPtr(name),
		PythonCode: strPtr("import json,sys\nprint(json.dumps({'approved': True}))"),
	})
	require.NoError(t, err)
	return s
}

func do(h http.HandlerFunc, method, target, body string, pathID string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if pathID != "" {
		req.SetPathValue("id", pathID)
	}
	w := httptest.NewRecorder()
	h(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) response.ErrorDetail {
	t.Helper()
	var resp response.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp.Error
}

func TestStrategiesHandler_List(t *testing.T) {
	store := strategy.NewMemoryStore()
	for _, name := range []string{"a", "b", "c"} {
		seedStrategy(t, store, name)
	}
	h := NewStrategiesHandler(store, &stubRunner{}, nil, nil)

	w := do(h.List, "GET", "/api/strategies?skip=1&limit=1", "", "")
	require.Equal(t, http.StatusOK, w.Code)

	var got []core.Strategy
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "b", got[0].Name)
}

func TestStrategiesHandler_List_ZeroLimit(t *testing.T) {
	store := strategy.NewMemoryStore()
	seedStrategy(t, store, "a")
	h := NewStrategiesHandler(store, &stubRunner{}, nil, nil)

	w := do(h.List, "GET", "/api/strategies?limit=0", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, "[]", w.Body.String())
}

func TestStrategiesHandler_List_EmptyIsArray(t *testing.T) {
	h := NewStrategiesHandler(strategy.NewMemoryStore(), &stubRunner{}, nil, nil)

	w := do(h.List, "GET", "/api/strategies", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, "[]", w.Body.String())
}

func TestStrategiesHandler_List_BadQuery(t *testing.T) {
	h := NewStrategiesHandler(strategy.NewMemoryStore(), &stubRunner{}, nil, nil)

	w := do(h.List, "GET", "/api/strategies?limit=abc", "", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_REQUEST", decodeError(t, w).Code)
}

func TestStrategiesHandler_CRUD(t *testing.T) {
	store := strategy.NewMemoryStore()
	h := NewStrategiesHandler(store, &stubRunner{}, nil, nil)

	w := do(h.Create, "POST", "/api/strategies", `{"name":"score gate","python_code":"print(1)"}`, "")
	require.Equal(t, http.StatusCreated, w.Code)
	var created core.Strategy
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, "score gate", created.Name)
	assert.Equal(t, core.StrategyInactive, created.Status)

	w = do(h.Update, "PUT", "/api/strategies/1", `{"status":"active"}`, "1")
	require.Equal(t, http.StatusOK, w.Code)
	var updated core.Strategy
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &updated))
	assert.Equal(t, core.StrategyActive, updated.Status)
	assert.Equal(t, "score gate", updated.Name)
	assert.NotNil(t, updated.UpdatedAt)

	w = do(h.Get, "GET", "/api/strategies/1", "", "1")
	require.Equal(t, http.StatusOK, w.Code)

	w = do(h.Delete, "DELETE", "/api/strategies/1", "", "1")
	require.Equal(t, http.StatusOK, w.Code)
	var deleted core.Strategy
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &deleted))
	assert.Equal(t, created.ID, deleted.ID)

	w = do(h.Get, "GET", "/api/strategies/1", "", "1")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "STRATEGY_NOT_FOUND", decodeError(t, w).Code)
}

func TestStrategiesHandler_Create_Invalid(t *testing.T) {
	h := NewStrategiesHandler(strategy.NewMemoryStore(), &stubRunner{}, nil, nil)

	tests := []struct {
		name string
		body string
		code string
	}{
		{"empty body", "", "INVALID_REQUEST"},
		{"malformed", "{", "INVALID_REQUEST"},
		{"missing name", `{"python_code":"x"}`, "MISSING_FIELD"},
		{"bad status", `{"name":"x","status":"paused"}`, "INVALID_REQUEST"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(h.Create, "POST", "/api/strategies", tt.body, "")
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, tt.code, decodeError(t, w).Code)
		})
	}
}

func TestStrategiesHandler_BadID(t *testing.T) {
	h := NewStrategiesHandler(strategy.NewMemoryStore(), &stubRunner{}, nil, nil)

	w := do(h.Get, "GET", "/api/strategies/abc", "", "abc")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStrategiesHandler_Test(t *testing.T) {
	store := strategy.NewMemoryStore()
	seedStrategy(t, store, "gate")
	run := &stubRunner{result: &runner.Result{
		Status:   runner.StatusSuccess,
		Stdout:   "{\"approved\": true}\n",
		Duration: 30 * time.Millisecond,
	}}
	reg := metrics.NewRegistry()
	h := NewStrategiesHandler(store, run, reg, nil)

	w := do(h.Test, "POST", "/api/strategies/1/test", `{"test_data":{"credit_score":720}}`, "1")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"success","stdout":"{\"approved\": true}\n","stderr":""}`, w.Body.String())
	assert.Equal(t, float64(720), run.input["credit_score"])
}

func TestStrategiesHandler_Test_RunErrors(t *testing.T) {
	store := strategy.NewMemoryStore()
	seedStrategy(t, store, "gate")

	tests := []struct {
		name string
		run  *stubRunner
		want string
	}{
		{
			name: "non-zero exit",
			run:  &stubRunner{result: &runner.Result{Status: runner.StatusError, Stderr: "Traceback", ExitCode: 1}},
			want: `{"status":"error","stdout":"","stderr":"Traceback"}`,
		},
		{
			name: "timeout",
			run:  &stubRunner{err: core.WrapError(core.ErrExecutionTimeout, context.DeadlineExceeded)},
			want: `{"status":"error","message":"execution timed out"}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewStrategiesHandler(store, tt.run, nil, nil)
			w := do(h.Test, "POST", "/api/strategies/1/test", `{"test_data":{}}`, "1")
			require.Equal(t, http.StatusOK, w.Code)
			assert.JSONEq(t, tt.want, w.Body.String())
		})
	}
}

func TestStrategiesHandler_Test_MissingData(t *testing.T) {
	store := strategy.NewMemoryStore()
	seedStrategy(t, store, "gate")
	h := NewStrategiesHandler(store, &stubRunner{}, nil, nil)

	w := do(h.Test, "POST", "/api/strategies/1/test", `{}`, "1")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "MISSING_FIELD", decodeError(t, w).Code)
}

func TestStrategiesHandler_Test_UnknownStrategy(t *testing.T) {
	h := NewStrategiesHandler(strategy.NewMemoryStore(), &stubRunner{}, nil, nil)

	w := do(h.Test, "POST", "/api/strategies/9/test", `{"test_data":{}}`, "9")
	assert.Equal(t, http.StatusNotFound, w.Code)
}
