package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// ExecutionResult is the outcome of one command invocation.
type ExecutionResult struct {
	ExitCode int
	Output   string
}

// CommandExecutor runs an external command in a working directory.
// A non-zero exit code is a normal result. An error is returned only if
// the process could not be run at all.
type CommandExecutor interface {
	Execute(ctx context.Context, dir string, name string, args ...string) (ExecutionResult, error)
}

// ProcessExecutor runs commands as host processes with stdout and stderr
// merged into one captured stream.
type ProcessExecutor struct {
	// Env is appended to the current process environment.
	Env []string
	Log *logrus.Logger
}

// NewProcessExecutor returns an executor whose subprocesses never prompt
// for credentials.
func NewProcessExecutor(logger *logrus.Logger) *ProcessExecutor {
	return &ProcessExecutor{
		Env: []string{
			"GIT_TERMINAL_PROMPT=0",
			"GCM_INTERACTIVE=never",
		},
		Log: logger,
	}
}

func (e *ProcessExecutor) Execute(ctx context.Context, dir string, name string, args ...string) (ExecutionResult, error) {
	commandLine := strings.TrimSpace(name + " " + strings.Join(args, " "))

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), e.Env...)
	// Children of a killed process may keep the output pipe open.
	cmd.WaitDelay = 5 * time.Second

	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output

	if err := cmd.Start(); err != nil {
		return ExecutionResult{}, &InfrastructureError{Op: "start " + commandLine, Err: err}
	}

	err := cmd.Wait()

	if ctxErr := ctx.Err(); ctxErr != nil {
		return ExecutionResult{ExitCode: -1, Output: output.String()},
			&InfrastructureError{Op: "run " + commandLine, Err: fmt.Errorf("command timed out or was cancelled: %w", ctxErr)}
	}

	result := ExecutionResult{Output: output.String()}
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return result, &InfrastructureError{Op: "wait for " + commandLine, Err: err}
		}
		result.ExitCode = exitErr.ExitCode()
	}

	if e.Log != nil {
		e.Log.WithFields(logrus.Fields{
			"cmd":    commandLine,
			"dir":    dir,
			"exit":   result.ExitCode,
			"output": len(result.Output),
		}).Debug("Command finished")
	}

	return result, nil
}
