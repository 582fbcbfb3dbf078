// Package toolchain assembles the config-bound collaborators of a build.
package toolchain

import (
	"go.trai.ch/kiln/internal/adapters/devserver"
	"go.trai.ch/kiln/internal/adapters/fs"
	"go.trai.ch/kiln/internal/adapters/images"
	"go.trai.ch/kiln/internal/adapters/pages"
	"go.trai.ch/kiln/internal/adapters/shell"
	"go.trai.ch/kiln/internal/adapters/steps"
	"go.trai.ch/kiln/internal/adapters/styles"
	"go.trai.ch/kiln/internal/adapters/watcher"
	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/core/ports"
)

var _ ports.Toolchain = (*Toolchain)(nil)

// Toolchain implements ports.Toolchain for the project at root.
type Toolchain struct {
	root   string
	walker *fs.Walker
	runner styles.CommandRunner
	logger ports.Logger
}

// New creates a Toolchain for the project at root.
func New(root string, walker *fs.Walker, logger ports.Logger) *Toolchain {
	return &Toolchain{
		root:   root,
		walker: walker,
		runner: shell.NewRunner(),
		logger: logger,
	}
}

// Steps binds every leaf task to its step. The asset globs are validated
// up front so a bad pattern fails before anything is removed.
func (t *Toolchain) Steps(cfg *domain.Config, reloader ports.Reloader) (*ports.StepSet, error) {
	if _, err := fs.NewGlobSet(cfg.Paths.Assets...); err != nil {
		return nil, err
	}

	renderer := pages.NewRenderer(cfg, t.root, t.logger)
	return &ports.StepSet{
		Steps: map[string]ports.Step{
			domain.TaskClean:  steps.NewClean(cfg, t.root),
			domain.TaskCopy:   steps.NewCopy(cfg, t.root),
			domain.TaskPages:  renderer,
			domain.TaskImages: images.NewOptimizer(cfg, t.root, t.walker),
			domain.TaskSass:   styles.NewPipeline(cfg, t.root, t.runner, reloader, t.logger),
		},
		Pages: renderer,
	}, nil
}

// Executor returns an executor dispatching tasks to set.
func (t *Toolchain) Executor(set *ports.StepSet) ports.Executor {
	return steps.NewExecutor(set)
}

// DevServer returns the development server for cfg.
func (t *Toolchain) DevServer(cfg *domain.Config) ports.DevServer {
	return devserver.NewServer(cfg, t.root, t.logger)
}

// Watcher returns a watcher reporting paths relative to the project root.
func (t *Toolchain) Watcher() (ports.Watcher, error) {
	w, err := watcher.NewWatcher(t.root, t.walker, t.logger)
	if err != nil {
		return nil, err
	}
	return w, nil
}
