package aerospace

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
)

// RunResult holds the outcome of one external command invocation.
type RunResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Runner executes external commands. Tests substitute a fake.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (RunResult, error)
}

// execRunner shells out via os/exec.
type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) (RunResult, error) {
	cmd := exec.CommandContext(ctx, name, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	result := RunResult{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}

	if err != nil {
		var exitErr *exec.ExitError
		switch {
		case errors.Is(ctx.Err(), context.DeadlineExceeded):
			return result, ErrTimeout
		case errors.Is(err, exec.ErrNotFound):
			return result, ErrNotInstalled
		case errors.As(err, &exitErr):
			result.ExitCode = exitErr.ExitCode()
			return result, nil
		default:
			return result, err
		}
	}

	return result, nil
}
