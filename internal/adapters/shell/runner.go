// Package shell runs the external stylesheet tools.
package shell

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"

	"go.trai.ch/zerr"
)

// Runner runs external commands and captures their output.
type Runner struct{}

// NewRunner creates a new Runner.
func NewRunner() *Runner {
	return &Runner{}
}

// Run executes name with args in dir and returns its standard output.
// On failure the command's standard error becomes the error message, so
// compiler diagnostics such as file and line reach the user intact.
func (r *Runner) Run(ctx context.Context, dir, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec // binary comes from the settings file
	cmd.Dir = dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}

		exitCode := -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		}

		cause := err
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			cause = errors.New(msg)
		}
		wrapped := zerr.With(zerr.Wrap(cause, "command failed"), "command", name)
		return nil, zerr.With(wrapped, "exit_code", exitCode)
	}

	return stdout.Bytes(), nil
}
