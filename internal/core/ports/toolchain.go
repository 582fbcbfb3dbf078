package ports

import "go.trai.ch/kiln/internal/core/domain"

// Toolchain builds the config-bound collaborators of a run.
//
//go:generate mockgen -source=toolchain.go -destination=mocks/mock_toolchain.go -package=mocks
type Toolchain interface {
	// Steps returns the leaf steps for cfg. Steps that push reload events use reloader.
	Steps(cfg *domain.Config, reloader Reloader) (*StepSet, error)
	// Executor returns an executor dispatching tasks to steps.
	Executor(steps *StepSet) Executor
	// DevServer returns the development server for cfg.
	DevServer(cfg *domain.Config) DevServer
	// Watcher returns a fresh file system watcher.
	Watcher() (Watcher, error)
}
