package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/newthinker/risklab/internal/config"
	"github.com/newthinker/risklab/internal/core"
	"github.com/newthinker/risklab/internal/logger"
	"go.uber.org/zap"
)

// waitDelay bounds how long Run waits for output pipes after the process
// is killed.
const waitDelay = time.Second

// ProcessRunner runs Python strategy code in a child interpreter.
type ProcessRunner struct {
	command []string
	timeout time.Duration
	workDir string
	logger  *zap.Logger
}

// NewProcessRunner creates a runner from config. PythonCommand may carry
// extra arguments, e.g. "python3 -I".
func NewProcessRunner(cfg config.RunnerConfig, log *zap.Logger) *ProcessRunner {
	command := strings.Fields(cfg.PythonCommand)
	if len(command) == 0 {
		command = []string{"python3"}
	}
	return &ProcessRunner{
		command: command,
		timeout: cfg.Timeout,
		workDir: cfg.WorkDir,
		logger:  logger.OrNop(log),
	}
}

// Run writes the strategy's Python code to a temp file and executes it with
// input as JSON on stdin.
func (p *ProcessRunner) Run(ctx context.Context, s *core.Strategy, input map[string]any) (*Result, error) {
	if s == nil || !hasCode(s.PythonCode) {
		return nil, core.WrapError(core.ErrExecutionFailed, fmt.Errorf("strategy has no python code"))
	}

	stdin, err := json.Marshal(input)
	if err != nil {
		return nil, core.WrapError(core.ErrInvalidRequest, fmt.Errorf("encoding input: %w", err))
	}

	script, err := p.writeScript(*s.PythonCode)
	if err != nil {
		return nil, core.WrapError(core.ErrExecutionFailed, err)
	}
	defer func() {
		if err := os.Remove(script); err != nil {
			p.logger.Warn("removing strategy script", zap.String("path", script), zap.Error(err))
		}
	}()

	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	args := append(append([]string(nil), p.command[1:]...), script)
	cmd := exec.CommandContext(ctx, p.command[0], args...)
	cmd.Stdin = bytes.NewReader(stdin)
	cmd.Dir = p.workDir
	cmd.WaitDelay = waitDelay

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	runErr := cmd.Run()
	result := &Result{
		Status:   StatusSuccess,
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		p.logger.Warn("strategy run aborted",
			zap.Int64("strategy_id", s.ID), zap.Duration("duration", result.Duration), zap.Error(ctxErr))
		return nil, core.WrapError(core.ErrExecutionTimeout, ctxErr)
	}

	var exitErr *exec.ExitError
	switch {
	case runErr == nil:
	case errors.As(runErr, &exitErr):
		result.Status = StatusError
		result.ExitCode = exitErr.ExitCode()
	default:
		return nil, core.WrapError(core.ErrExecutionFailed, fmt.Errorf("starting %s: %w", p.command[0], runErr))
	}

	p.logger.Debug("strategy run finished",
		zap.Int64("strategy_id", s.ID),
		zap.String("status", string(result.Status)),
		zap.Int("exit_code", result.ExitCode),
		zap.Duration("duration", result.Duration))
	return result, nil
}

func (p *ProcessRunner) writeScript(code string) (string, error) {
	f, err := os.CreateTemp(p.workDir, "strategy-*.py")
	if err != nil {
		return "", fmt.Errorf("creating script file: %w", err)
	}
	if _, err := f.WriteString(code); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("writing script file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("closing script file: %w", err)
	}
	// cmd.Dir is workDir, so a relative temp path would resolve twice.
	return filepath.Abs(f.Name())
}
