package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/newthinker/risklab/internal/api/response"
	"github.com/newthinker/risklab/internal/core"
	"github.com/newthinker/risklab/internal/logger"
	"github.com/newthinker/risklab/internal/metrics"
	"github.com/newthinker/risklab/internal/runner"
	"github.com/newthinker/risklab/internal/storage/strategy"
)

// TestResult is the outcome of a single ad-hoc strategy run. Stdout and
// Stderr are absent when the run could not complete; Message explains why.
type TestResult struct {
	Status  runner.Status `json:"status"`
	Stdout  *string       `json:"stdout,omitempty"`
	Stderr  *string       `json:"stderr,omitempty"`
	Message string        `json:"message,omitempty"`
}

// StrategiesHandler handles strategy CRUD and ad-hoc runs.
type StrategiesHandler struct {
	store   strategy.Store
	runner  runner.Runner
	metrics *metrics.Registry
	log     *zap.Logger
}

// NewStrategiesHandler creates a strategies handler. metrics may be nil.
func NewStrategiesHandler(store strategy.Store, run runner.Runner, m *metrics.Registry, log *zap.Logger) *StrategiesHandler {
	return &StrategiesHandler{store: store, runner: run, metrics: m, log: logger.OrNop(log)}
}

// List returns a page of strategies ordered by ID.
func (h *StrategiesHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var filter strategy.ListFilter
	var err error
	if filter.Skip, err = queryInt(q.Get("skip"), 0); err != nil {
		response.Fail(w, err)
		return
	}
	if raw := q.Get("limit"); raw != "" {
		limit, err := queryInt(raw, strategy.DefaultLimit)
		if err != nil {
			response.Fail(w, err)
			return
		}
		filter.Limit = &limit
	}

	strategies, err := h.store.List(r.Context(), filter)
	if err != nil {
		response.Fail(w, err)
		return
	}
	if strategies == nil {
		strategies = []core.Strategy{}
	}
	response.JSON(w, http.StatusOK, strategies)
}

// Get returns one strategy.
func (h *StrategiesHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		response.Fail(w, err)
		return
	}

	s, err := h.store.Get(r.Context(), id)
	if err != nil {
		response.Fail(w, err)
		return
	}
	response.JSON(w, http.StatusOK, s)
}

// Create stores a new strategy.
func (h *StrategiesHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in core.StrategyInput
	if err := decodeBody(w, r, &in); err != nil {
		response.Fail(w, err)
		return
	}

	s, err := h.store.Create(r.Context(), in)
	if err != nil {
		response.Fail(w, err)
		return
	}
	h.log.Info("strategy created", zap.Int64("id", s.ID), zap.String("name", s.Name))
	response.JSON(w, http.StatusCreated, s)
}

// Update applies the fields present in the body.
func (h *StrategiesHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		response.Fail(w, err)
		return
	}

	var in core.StrategyInput
	if err := decodeBody(w, r, &in); err != nil {
		response.Fail(w, err)
		return
	}

	s, err := h.store.Update(r.Context(), id, in)
	if err != nil {
		response.Fail(w, err)
		return
	}
	response.JSON(w, http.StatusOK, s)
}

// Delete removes a strategy and returns it.
func (h *StrategiesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		response.Fail(w, err)
		return
	}

	s, err := h.store.Delete(r.Context(), id)
	if err != nil {
		response.Fail(w, err)
		return
	}
	h.log.Info("strategy deleted", zap.Int64("id", s.ID))
	response.JSON(w, http.StatusOK, s)
}

// Test runs a strategy once against the posted test_data. Execution
// failures are reported in the body with status "error", not as HTTP errors.
func (h *StrategiesHandler) Test(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		response.Fail(w, err)
		return
	}

	var req core.StrategyTestRequest
	if err := decodeBody(w, r, &req); err != nil {
		response.Fail(w, err)
		return
	}
	if req.TestData == nil {
		response.Fail(w, core.WrapError(core.ErrMissingField, errors.New("test_data is required")))
		return
	}

	s, err := h.store.Get(r.Context(), id)
	if err != nil {
		response.Fail(w, err)
		return
	}

	res, err := h.runner.Run(r.Context(), s, req.TestData)
	out := testResult(res, err)

	if h.metrics != nil {
		var seconds float64
		if res != nil {
			seconds = res.Duration.Seconds()
		}
		h.metrics.RecordStrategyRun("adhoc", string(out.Status), seconds)
	}
	if err != nil {
		h.log.Warn("strategy run failed", zap.Int64("id", id), zap.Error(err))
	}
	response.JSON(w, http.StatusOK, out)
}

func testResult(res *runner.Result, err error) TestResult {
	switch {
	case errors.Is(err, core.ErrExecutionTimeout):
		return TestResult{Status: runner.StatusError, Message: "execution timed out"}
	case err != nil:
		return TestResult{Status: runner.StatusError, Message: err.Error()}
	}
	return TestResult{Status: res.Status, Stdout: &res.Stdout, Stderr: &res.Stderr}
}

func pathID(r *http.Request) (int64, error) {
	raw := r.PathValue("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, core.WrapError(core.ErrInvalidRequest, fmt.Errorf("invalid id %q", raw))
	}
	return id, nil
}

func queryInt(raw string, def int) (int, error) {
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, core.WrapError(core.ErrInvalidRequest, fmt.Errorf("invalid query value %q", raw))
	}
	return n, nil
}
