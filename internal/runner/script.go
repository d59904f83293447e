package runner

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dop251/goja"
	json "github.com/goccy/go-json"
	"github.com/newthinker/risklab/internal/core"
	"github.com/newthinker/risklab/internal/logger"
	"go.uber.org/zap"
)

// EntryPoint is the function a JavaScript strategy must define.
const EntryPoint = "evaluate"

// ScriptRunner evaluates JavaScript strategies in an embedded goja VM.
// Every run gets a fresh runtime.
type ScriptRunner struct {
	timeout time.Duration
	logger  *zap.Logger
}

// NewScriptRunner creates a runner that interrupts scripts after timeout.
func NewScriptRunner(timeout time.Duration, log *zap.Logger) *ScriptRunner {
	return &ScriptRunner{timeout: timeout, logger: logger.OrNop(log)}
}

// Run compiles the strategy, calls evaluate(input) and renders the returned
// value as JSON on Stdout. console output is collected on Stderr.
func (r *ScriptRunner) Run(ctx context.Context, s *core.Strategy, input map[string]any) (*Result, error) {
	if s == nil || !hasCode(s.JavaScriptCode) {
		return nil, core.WrapError(core.ErrExecutionFailed, fmt.Errorf("strategy has no javascript code"))
	}

	start := time.Now()
	program, err := goja.Compile(fmt.Sprintf("strategy-%d.js", s.ID), *s.JavaScriptCode, true)
	if err != nil {
		return &Result{Status: StatusError, Stderr: err.Error(), ExitCode: 1, Duration: time.Since(start)}, nil
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	rt := goja.New()
	rt.SetFieldNameMapper(goja.TagFieldNameMapper("json", true))

	stop := context.AfterFunc(ctx, func() { rt.Interrupt(ctx.Err()) })
	defer stop()

	var console strings.Builder
	out, runErr := evaluate(rt, program, input, &console)
	result := &Result{Stderr: console.String(), Duration: time.Since(start)}

	var interrupted *goja.InterruptedError
	switch {
	case errors.As(runErr, &interrupted):
		r.logger.Warn("script run interrupted",
			zap.Int64("strategy_id", s.ID), zap.Duration("duration", result.Duration))
		return nil, core.WrapError(core.ErrExecutionTimeout, ctx.Err())
	case runErr != nil:
		result.Status = StatusError
		result.ExitCode = 1
		if result.Stderr != "" && !strings.HasSuffix(result.Stderr, "\n") {
			result.Stderr += "\n"
		}
		result.Stderr += runErr.Error()
		return result, nil
	}

	result.Status = StatusSuccess
	result.Stdout = string(out) + "\n"
	return result, nil
}

func evaluate(rt *goja.Runtime, program *goja.Program, input map[string]any, console *strings.Builder) ([]byte, error) {
	exports, err := installModule(rt, console)
	if err != nil {
		return nil, err
	}
	if _, err := rt.RunProgram(program); err != nil {
		return nil, err
	}

	fn, ok := lookupEntryPoint(rt, exports)
	if !ok {
		return nil, fmt.Errorf("strategy must define %s(input)", EntryPoint)
	}
	value, err := fn(goja.Undefined(), rt.ToValue(input))
	if err != nil {
		return nil, err
	}
	if goja.IsUndefined(value) || goja.IsNull(value) {
		return nil, fmt.Errorf("%s returned no result", EntryPoint)
	}

	out, err := json.Marshal(value.Export())
	if err != nil {
		return nil, fmt.Errorf("encoding %s result: %w", EntryPoint, err)
	}
	return out, nil
}

// installModule exposes CommonJS-style module.exports and a console that
// writes to console.
func installModule(rt *goja.Runtime, console *strings.Builder) (*goja.Object, error) {
	module := rt.NewObject()
	exports := rt.NewObject()
	if err := module.Set("exports", exports); err != nil {
		return nil, fmt.Errorf("module init: %w", err)
	}
	if err := rt.Set("exports", exports); err != nil {
		return nil, fmt.Errorf("module init: %w", err)
	}
	if err := rt.Set("module", module); err != nil {
		return nil, fmt.Errorf("module init: %w", err)
	}

	logFn := func(call goja.FunctionCall) goja.Value {
		parts := make([]string, len(call.Arguments))
		for i, arg := range call.Arguments {
			parts[i] = arg.String()
		}
		console.WriteString(strings.Join(parts, " "))
		console.WriteByte('\n')
		return goja.Undefined()
	}
	c := rt.NewObject()
	for _, name := range []string{"log", "info", "warn", "error"} {
		_ = c.Set(name, logFn)
	}
	if err := rt.Set("console", c); err != nil {
		return nil, fmt.Errorf("module init: %w", err)
	}
	return module, nil
}

// lookupEntryPoint prefers module.exports.evaluate and falls back to a
// global function.
func lookupEntryPoint(rt *goja.Runtime, module *goja.Object) (goja.Callable, bool) {
	if exports := module.Get("exports"); exports != nil && !goja.IsUndefined(exports) && !goja.IsNull(exports) {
		obj := exports.ToObject(rt)
		if fn, ok := goja.AssertFunction(obj.Get(EntryPoint)); ok {
			return fn, true
		}
		if fn, ok := goja.AssertFunction(exports); ok {
			return fn, true
		}
	}
	return goja.AssertFunction(rt.Get(EntryPoint))
}
