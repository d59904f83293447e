package client

import (
	"context"
	"net/http"

	json "github.com/goccy/go-json"
)

const (
	generateDataPath = "/api/tests/generate-data"
	batchesPath      = "/api/tests/batches"
)

// TestAPI maps test data and batch operations to /api/tests.
type TestAPI struct {
	c *Client
}

// GenerateTestData asks the server to generate synthetic inputs from config.
func (a *TestAPI) GenerateTestData(ctx context.Context, config any) (json.RawMessage, error) {
	return a.c.do(ctx, http.MethodPost, generateDataPath, config)
}

// CreateTestBatch creates a batch from data.
func (a *TestAPI) CreateTestBatch(ctx context.Context, data any) (json.RawMessage, error) {
	return a.c.do(ctx, http.MethodPost, batchesPath, data)
}

// GetTestBatch fetches a batch with its cases.
func (a *TestAPI) GetTestBatch(ctx context.Context, id string) (json.RawMessage, error) {
	return a.c.do(ctx, http.MethodGet, resourcePath(batchesPath, id), nil)
}

// GetTestReport fetches the report for a batch.
func (a *TestAPI) GetTestReport(ctx context.Context, id string) (json.RawMessage, error) {
	return a.c.do(ctx, http.MethodGet, resourcePath(batchesPath, id, "report"), nil)
}
