// Package runner executes strategy code against one input document.
//
// The input is passed to the strategy as JSON. A Python strategy reads it
// from stdin and prints its decision as JSON on stdout; a JavaScript
// strategy defines evaluate(input) and returns the decision object.
package runner

import (
	"context"
	"strings"
	"time"

	"github.com/newthinker/risklab/internal/core"
)

// Status is the outcome of a run.
type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// Result captures what a strategy produced.
type Result struct {
	Status   Status        `json:"status"`
	Stdout   string        `json:"stdout"`
	Stderr   string        `json:"stderr"`
	ExitCode int           `json:"exit_code"`
	Duration time.Duration `json:"-"`
}

// Runner executes a strategy.
//
// A strategy that runs and fails (non-zero exit, thrown exception) yields a
// Result with StatusError and a nil error. The error return is reserved for
// runs that could not complete: core.ErrExecutionTimeout when the time limit
// or ctx expired, core.ErrExecutionFailed when the code could not be started.
type Runner interface {
	Run(ctx context.Context, s *core.Strategy, input map[string]any) (*Result, error)
}

// Select picks the script runner for strategies carrying JavaScript code and
// the process runner otherwise.
func Select(s *core.Strategy, process, script Runner) Runner {
	if s != nil && hasCode(s.JavaScriptCode) {
		return script
	}
	return process
}

// Dispatcher routes every run through Select.
type Dispatcher struct {
	process Runner
	script  Runner
}

// NewDispatcher creates a Runner that delegates by strategy language.
func NewDispatcher(process, script Runner) *Dispatcher {
	return &Dispatcher{process: process, script: script}
}

// Run implements Runner.
func (d *Dispatcher) Run(ctx context.Context, s *core.Strategy, input map[string]any) (*Result, error) {
	return Select(s, d.process, d.script).Run(ctx, s, input)
}

func hasCode(code *string) bool {
	return code != nil && strings.TrimSpace(*code) != ""
}
