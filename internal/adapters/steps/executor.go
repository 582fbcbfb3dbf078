// Package steps provides the leaf build steps and the executor that dispatches tasks to them.
package steps

import (
	"context"
	"io"

	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.Executor = (*Executor)(nil)

// Executor implements ports.Executor by running the step bound to a task's name.
type Executor struct {
	steps *ports.StepSet
}

// NewExecutor creates an Executor over the given steps.
func NewExecutor(steps *ports.StepSet) *Executor {
	return &Executor{steps: steps}
}

// Execute runs the step bound to task.
func (e *Executor) Execute(ctx context.Context, task *domain.Task, out io.Writer) error {
	if e.steps == nil {
		return zerr.With(domain.ErrStepNotFound, "task", task.Name)
	}

	step, ok := e.steps.Steps[task.Name]
	if !ok {
		return zerr.With(domain.ErrStepNotFound, "task", task.Name)
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	return step.Run(ctx, out)
}
