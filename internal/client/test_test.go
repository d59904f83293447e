package client

import (
	"context"
	"net/http"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTestAPI_Requests(t *testing.T) {
	genConfig := map[string]any{"count": 3.0, "include_edge_cases": false}
	batch := map[string]any{
		"name":        "smoke",
		"strategy_id": 4.0,
		"test_cases":  []any{map[string]any{"input_data": map[string]any{"credit_score": 700.0}}},
	}

	tests := []struct {
		name       string
		call       func(ctx context.Context, a *TestAPI) (json.RawMessage, error)
		wantMethod string
		wantPath   string
		wantBody   any
	}{
		{
			name: "generate data",
			call: func(ctx context.Context, a *TestAPI) (json.RawMessage, error) {
				return a.GenerateTestData(ctx, genConfig)
			},
			wantMethod: http.MethodPost,
			wantPath:   "/api/tests/generate-data",
			wantBody:   genConfig,
		},
		{
			name:       "create batch",
			call:       func(ctx context.Context, a *TestAPI) (json.RawMessage, error) { return a.CreateTestBatch(ctx, batch) },
			wantMethod: http.MethodPost,
			wantPath:   "/api/tests/batches",
			wantBody:   batch,
		},
		{
			name:       "get batch",
			call:       func(ctx context.Context, a *TestAPI) (json.RawMessage, error) { return a.GetTestBatch(ctx, "12") },
			wantMethod: http.MethodGet,
			wantPath:   "/api/tests/batches/12",
		},
		{
			name:       "get report",
			call:       func(ctx context.Context, a *TestAPI) (json.RawMessage, error) { return a.GetTestReport(ctx, "12") },
			wantMethod: http.MethodGet,
			wantPath:   "/api/tests/batches/12/report",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, rec := newTestServer(t, http.StatusOK, `{"id":12}`)
			c := New(WithBaseURL(srv.URL))

			got, err := tt.call(context.Background(), c.Tests())
			require.NoError(t, err)
			assert.JSONEq(t, `{"id":12}`, string(got))

			req := rec.last(t)
			assert.Equal(t, tt.wantMethod, req.Method)
			assert.Equal(t, tt.wantPath, req.RawPath)
			if tt.wantBody == nil {
				assert.Empty(t, req.Body)
				return
			}
			var sent any
			require.NoError(t, json.Unmarshal(req.Body, &sent))
			assert.Equal(t, tt.wantBody, sent)
		})
	}
}

func TestTestAPI_EmptyResponseBody(t *testing.T) {
	srv, _ := newTestServer(t, http.StatusNoContent, ``)
	c := New(WithBaseURL(srv.URL))

	got, err := c.Tests().GetTestReport(context.Background(), "1")
	require.NoError(t, err)
	assert.Nil(t, got)
}
