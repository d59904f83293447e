package client

import (
	"context"
	"net/http"

	json "github.com/goccy/go-json"
)

const strategiesPath = "/api/strategies"

// StrategyAPI maps strategy operations to /api/strategies.
type StrategyAPI struct {
	c *Client
}

// List fetches every strategy.
func (a *StrategyAPI) List(ctx context.Context) (json.RawMessage, error) {
	return a.c.do(ctx, http.MethodGet, strategiesPath, nil)
}

// Get fetches one strategy.
func (a *StrategyAPI) Get(ctx context.Context, id string) (json.RawMessage, error) {
	return a.c.do(ctx, http.MethodGet, resourcePath(strategiesPath, id), nil)
}

// Create posts data and returns the created strategy.
func (a *StrategyAPI) Create(ctx context.Context, data any) (json.RawMessage, error) {
	return a.c.do(ctx, http.MethodPost, strategiesPath, data)
}

// Update replaces the strategy with data.
func (a *StrategyAPI) Update(ctx context.Context, id string, data any) (json.RawMessage, error) {
	return a.c.do(ctx, http.MethodPut, resourcePath(strategiesPath, id), data)
}

// Delete removes the strategy.
func (a *StrategyAPI) Delete(ctx context.Context, id string) (json.RawMessage, error) {
	return a.c.do(ctx, http.MethodDelete, resourcePath(strategiesPath, id), nil)
}

// RunTest runs the strategy once against testData.
func (a *StrategyAPI) RunTest(ctx context.Context, id string, testData any) (json.RawMessage, error) {
	return a.c.do(ctx, http.MethodPost, resourcePath(strategiesPath, id, "test"), testData)
}
