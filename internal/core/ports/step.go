package ports

import (
	"context"
	"io"
)

// Step is a single unit of build work bound to a leaf task.
//
//go:generate mockgen -source=step.go -destination=mocks/mock_step.go -package=mocks
type Step interface {
	// Run performs the step. Progress lines are written to out.
	Run(ctx context.Context, out io.Writer) error
}

// PageRenderer is the page step. Its parsed layouts, partials, data and
// helpers are memoised between runs.
type PageRenderer interface {
	Step
	// Invalidate drops the memoised templates and data so the next run reloads them from disk.
	Invalidate()
}

// StepSet binds leaf task names to their steps.
type StepSet struct {
	Steps map[string]Step
	Pages PageRenderer
}
