package api

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/newthinker/risklab/internal/api/response"
	"github.com/newthinker/risklab/internal/core"
	"github.com/newthinker/risklab/internal/generator"
	"github.com/newthinker/risklab/internal/logger"
	"github.com/newthinker/risklab/internal/report"
	"github.com/newthinker/risklab/internal/storage/strategy"
	"github.com/newthinker/risklab/internal/storage/testbatch"
)

// Scheduler runs a stored batch in the background.
type Scheduler interface {
	Submit(batchID int64) error
}

// TestsHandler handles test data generation and test batches.
type TestsHandler struct {
	strategies strategy.Store
	batches    testbatch.Store
	generator  *generator.Generator
	scheduler  Scheduler
	log        *zap.Logger
	now        func() time.Time
}

// NewTestsHandler creates a tests handler.
func NewTestsHandler(strategies strategy.Store, batches testbatch.Store, gen *generator.Generator, sched Scheduler, log *zap.Logger) *TestsHandler {
	return &TestsHandler{
		strategies: strategies,
		batches:    batches,
		generator:  gen,
		scheduler:  sched,
		log:        logger.OrNop(log),
		now:        time.Now,
	}
}

// GenerateData returns synthetic inputs. An empty body uses the defaults.
func (h *TestsHandler) GenerateData(w http.ResponseWriter, r *http.Request) {
	var cfg generator.Config
	if err := decodeOptionalBody(w, r, &cfg); err != nil {
		response.Fail(w, err)
		return
	}

	cases, err := h.generator.Generate(cfg)
	if err != nil {
		response.Fail(w, err)
		return
	}
	response.JSON(w, http.StatusOK, cases)
}

// CreateBatch stores a batch and schedules its run.
func (h *TestsHandler) CreateBatch(w http.ResponseWriter, r *http.Request) {
	var in core.TestBatchInput
	if err := decodeBody(w, r, &in); err != nil {
		response.Fail(w, err)
		return
	}
	if err := in.Validate(); err != nil {
		response.Fail(w, err)
		return
	}
	if _, err := h.strategies.Get(r.Context(), in.StrategyID); err != nil {
		response.Fail(w, err)
		return
	}

	b, err := h.batches.Create(r.Context(), in)
	if err != nil {
		response.Fail(w, err)
		return
	}
	log := h.log.With(zap.Int64("batch_id", b.ID))

	if err := h.scheduler.Submit(b.ID); err != nil {
		log.Warn("batch not scheduled", zap.Error(err))
		if serr := h.batches.SetStatus(r.Context(), b.ID, core.BatchFailed); serr != nil {
			log.Error("failed to mark unscheduled batch", zap.Error(serr))
		}
		response.Fail(w, core.WrapError(core.ErrBusy, fmt.Errorf("batch %d not scheduled: %w", b.ID, err)))
		return
	}

	log.Info("batch scheduled", zap.Int64("strategy_id", b.StrategyID), zap.Int("cases", len(b.TestCases)))
	response.JSON(w, http.StatusCreated, b)
}

// GetBatch returns a batch with its cases.
func (h *TestsHandler) GetBatch(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		response.Fail(w, err)
		return
	}

	b, err := h.batches.Get(r.Context(), id)
	if err != nil {
		response.Fail(w, err)
		return
	}
	response.JSON(w, http.StatusOK, b)
}

// GetReport summarises a batch as it currently stands.
func (h *TestsHandler) GetReport(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		response.Fail(w, err)
		return
	}

	b, err := h.batches.Get(r.Context(), id)
	if err != nil {
		if !errors.Is(err, core.ErrBatchNotFound) {
			h.log.Error("failed to load batch", zap.Int64("batch_id", id), zap.Error(err))
		}
		response.Fail(w, err)
		return
	}
	response.JSON(w, http.StatusOK, report.Generate(b, h.now().UTC()))
}
