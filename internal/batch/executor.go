// Package batch runs the test cases of a batch against its strategy.
package batch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/newthinker/risklab/internal/config"
	"github.com/newthinker/risklab/internal/core"
	"github.com/newthinker/risklab/internal/metrics"
	"github.com/newthinker/risklab/internal/notifier"
	"github.com/newthinker/risklab/internal/report"
	"github.com/newthinker/risklab/internal/runner"
	"github.com/newthinker/risklab/internal/storage/archive"
	"github.com/newthinker/risklab/internal/storage/strategy"
	"github.com/newthinker/risklab/internal/storage/testbatch"
)

// ErrQueueFull is returned by Submit when MaxQueued runs are already pending.
var ErrQueueFull = errors.New("batch queue full")

// ErrClosed is returned by Submit after Close.
var ErrClosed = errors.New("executor closed")

// Deps are the collaborators of an Executor. Archive, Notifiers and Metrics
// are optional.
type Deps struct {
	Strategies strategy.Store
	Batches    testbatch.Store
	Runner     runner.Runner
	Archive    archive.Storage
	Notifiers  *notifier.Registry
	Metrics    *metrics.Registry
	Logger     *zap.Logger
}

// Executor runs test batches.
type Executor struct {
	cfg        config.ExecutorConfig
	strategies strategy.Store
	batches    testbatch.Store
	runner     runner.Runner
	archive    archive.Storage
	notifiers  *notifier.Registry
	metrics    *metrics.Registry
	log        *zap.Logger
	limiter    *rate.Limiter
	now        func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	queue  chan struct{}

	mu     sync.Mutex
	closed bool
}

// New creates an Executor. Background runs started by Submit live until
// Close.
func New(cfg config.ExecutorConfig, deps Deps) *Executor {
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.MaxWorkers < 1 {
		cfg.MaxWorkers = 1
	}
	if cfg.MaxQueued < 1 {
		cfg.MaxQueued = 1
	}

	limit := rate.Inf
	if cfg.RatePerSec > 0 {
		limit = rate.Limit(cfg.RatePerSec)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Executor{
		cfg:        cfg,
		strategies: deps.Strategies,
		batches:    deps.Batches,
		runner:     deps.Runner,
		archive:    deps.Archive,
		notifiers:  deps.Notifiers,
		metrics:    deps.Metrics,
		log:        log,
		limiter:    rate.NewLimiter(limit, cfg.MaxWorkers),
		now:        time.Now,
		ctx:        ctx,
		cancel:     cancel,
		queue:      make(chan struct{}, cfg.MaxQueued),
	}
}

// Submit schedules batchID to run in the background.
func (e *Executor) Submit(batchID int64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return ErrClosed
	}

	select {
	case e.queue <- struct{}{}:
	default:
		return ErrQueueFull
	}

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		defer func() { <-e.queue }()

		if _, err := e.Run(e.ctx, batchID); err != nil {
			e.log.Error("batch run failed", zap.Int64("batch_id", batchID), zap.Error(err))
		}
	}()
	return nil
}

// Close cancels background runs and waits for them to record their outcome.
func (e *Executor) Close() {
	e.mu.Lock()
	e.closed = true
	e.mu.Unlock()

	e.cancel()
	e.wg.Wait()
}

// Run executes every case of batchID and returns the generated report.
// Case failures are recorded on the batch, not returned.
func (e *Executor) Run(ctx context.Context, batchID int64) (*report.Report, error) {
	b, err := e.batches.Get(ctx, batchID)
	if err != nil {
		return nil, fmt.Errorf("load batch: %w", err)
	}

	if e.cfg.BatchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.BatchTimeout)
		defer cancel()
	}
	// Outcomes are stored even when ctx has expired.
	store := context.WithoutCancel(ctx)

	log := e.log.With(zap.Int64("batch_id", b.ID), zap.Int64("strategy_id", b.StrategyID))
	started := e.now()

	if err := e.batches.SetStatus(store, b.ID, core.BatchRunning); err != nil {
		return nil, fmt.Errorf("mark batch running: %w", err)
	}
	if e.metrics != nil {
		e.metrics.BatchStarted()
	}
	log.Info("batch started", zap.Int("cases", len(b.TestCases)))

	status := core.BatchCompleted
	s, err := e.strategies.Get(ctx, b.StrategyID)
	if err != nil {
		log.Error("strategy unavailable", zap.Error(err))
		status = core.BatchFailed
		e.abortCases(store, b.TestCases, err)
	} else if !e.runCases(ctx, store, s, b.TestCases) {
		status = core.BatchFailed
	}

	if err := e.batches.SetStatus(store, b.ID, status); err != nil {
		return nil, fmt.Errorf("mark batch %s: %w", status, err)
	}
	elapsed := e.now().Sub(started)
	if e.metrics != nil {
		e.metrics.BatchFinished(string(status), elapsed.Seconds())
	}
	log.Info("batch finished", zap.String("status", string(status)), zap.Duration("elapsed", elapsed))

	final, err := e.batches.Get(store, b.ID)
	if err != nil {
		return nil, fmt.Errorf("reload batch: %w", err)
	}
	rep := report.Generate(final, e.now())

	event := notifier.BatchEvent{
		BatchID:     final.ID,
		StrategyID:  final.StrategyID,
		Name:        final.Name,
		Status:      final.Status,
		Statistics:  rep.Statistics,
		CompletedAt: rep.CreatedAt,
	}
	if path, ok := e.archiveReport(store, log, rep); ok {
		event.ReportPath = path
	}
	e.notify(store, log, event)

	return rep, nil
}

// runCases executes cases on a bounded pool and reports whether all passed.
func (e *Executor) runCases(ctx, store context.Context, s *core.Strategy, cases []core.TestCase) bool {
	outcomes := make([]core.CaseStatus, len(cases))

	p := pool.New().WithMaxGoroutines(e.cfg.MaxWorkers)
	for i := range cases {
		tc := cases[i]
		p.Go(func() {
			outcomes[i] = e.runCase(ctx, store, s, tc)
		})
	}
	p.Wait()

	for _, st := range outcomes {
		if st != core.CasePassed {
			return false
		}
	}
	return true
}

func (e *Executor) runCase(ctx, store context.Context, s *core.Strategy, tc core.TestCase) core.CaseStatus {
	log := e.log.With(zap.Int64("batch_id", tc.BatchID), zap.Int64("case_id", tc.ID))

	if err := e.limiter.Wait(ctx); err != nil {
		tc.Status = core.CaseError
		tc.ErrorMessage = ptr(fmt.Sprintf("not started: %v", err))
		e.saveCase(store, log, tc)
		return tc.Status
	}

	tc.Status = core.CaseRunning
	e.saveCase(store, log, tc)

	start := e.now()
	res, err := e.runner.Run(ctx, s, tc.InputData)
	elapsed := e.now().Sub(start)
	tc.ExecutionTime = ptr(elapsed.Milliseconds())

	switch {
	case err != nil:
		tc.Status = core.CaseError
		tc.ErrorMessage = ptr(err.Error())
	case res.Status != runner.StatusSuccess:
		tc.Status = core.CaseFailed
		msg := strings.TrimSpace(res.Stderr)
		if msg == "" {
			msg = fmt.Sprintf("exit code %d", res.ExitCode)
		}
		tc.ErrorMessage = ptr(msg)
	default:
		var out map[string]any
		if jerr := json.Unmarshal([]byte(res.Stdout), &out); jerr != nil {
			tc.Status = core.CaseError
			tc.ErrorMessage = ptr(fmt.Sprintf("invalid output: %v", jerr))
		} else {
			tc.Status = core.CasePassed
			tc.ActualOutput = out
		}
	}

	if e.metrics != nil {
		runStatus := string(runner.StatusSuccess)
		if tc.Status != core.CasePassed {
			runStatus = string(runner.StatusError)
		}
		e.metrics.RecordStrategyRun("batch", runStatus, elapsed.Seconds())
		e.metrics.RecordTestCase(string(tc.Status))
	}
	log.Debug("case finished", zap.String("status", string(tc.Status)), zap.Duration("elapsed", elapsed))

	e.saveCase(store, log, tc)
	return tc.Status
}

func (e *Executor) abortCases(store context.Context, cases []core.TestCase, cause error) {
	for _, tc := range cases {
		tc.Status = core.CaseError
		tc.ErrorMessage = ptr(cause.Error())
		e.saveCase(store, e.log, tc)
		if e.metrics != nil {
			e.metrics.RecordTestCase(string(tc.Status))
		}
	}
}

func (e *Executor) saveCase(ctx context.Context, log *zap.Logger, tc core.TestCase) {
	if err := e.batches.UpdateCase(ctx, tc); err != nil {
		log.Warn("failed to store case", zap.Int64("case_id", tc.ID), zap.Error(err))
	}
}

func (e *Executor) archiveReport(ctx context.Context, log *zap.Logger, rep *report.Report) (string, bool) {
	if e.archive == nil {
		return "", false
	}

	path := archive.ReportPath(rep.BatchID)
	data, err := json.Marshal(rep)
	if err == nil {
		err = e.archive.Write(ctx, path, data)
	}

	status := "success"
	if err != nil {
		status = "error"
		log.Warn("failed to archive report", zap.String("path", path), zap.Error(err))
	}
	if e.metrics != nil {
		e.metrics.RecordReportArchived(status)
	}
	return path, err == nil
}

func (e *Executor) notify(ctx context.Context, log *zap.Logger, event notifier.BatchEvent) {
	if e.notifiers == nil || e.notifiers.Len() == 0 {
		return
	}

	errs := e.notifiers.NotifyAll(ctx, event)
	for _, name := range e.notifiers.Names() {
		status := "success"
		if err, failed := errs[name]; failed {
			status = "error"
			log.Warn("notification failed", zap.String("notifier", name), zap.Error(err))
		}
		if e.metrics != nil {
			e.metrics.RecordNotification(name, status)
		}
	}
}

func ptr[T any](v T) *T { return &v }
