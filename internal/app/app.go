// Package app implements the application layer for kiln.
package app

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"go.trai.ch/kiln/internal/adapters/detector"
	"go.trai.ch/kiln/internal/adapters/fs"
	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/core/ports"
	"go.trai.ch/kiln/internal/engine/scheduler"
	"go.trai.ch/zerr"
	"golang.org/x/sync/errgroup"
)

// App represents the main application logic.
type App struct {
	configLoader ports.ConfigLoader
	toolchain    ports.Toolchain
	tracer       ports.Tracer
	renderer     ports.Renderer
	hasher       ports.Hasher
	logger       ports.Logger
	root         string
}

// New creates a new App for the project at root.
func New(
	loader ports.ConfigLoader,
	toolchain ports.Toolchain,
	tracer ports.Tracer,
	renderer ports.Renderer,
	hasher ports.Hasher,
	log ports.Logger,
	root string,
) *App {
	return &App{
		configLoader: loader,
		toolchain:    toolchain,
		tracer:       tracer,
		renderer:     renderer,
		hasher:       hasher,
		logger:       log,
		root:         root,
	}
}

// Options configures a single command.
type Options struct {
	// ConfigPath is the settings file, relative to the project root unless absolute.
	ConfigPath string
	// Production selects the production pipeline.
	Production bool
	// JSON forces JSON log lines.
	JSON bool
}

type jsonSwitcher interface {
	SetJSON(enable bool)
}

// Build runs the full build graph once.
func (a *App) Build(ctx context.Context, opts Options) error {
	cfg, err := a.loadConfig(opts)
	if err != nil {
		return err
	}

	set, err := a.toolchain.Steps(cfg, nil)
	if err != nil {
		return err
	}

	return a.build(ctx, cfg, set)
}

// Run executes the named tasks without their dependencies, ordered by the
// edges among them.
func (a *App) Run(ctx context.Context, targetNames []string, opts Options) error {
	if len(targetNames) == 0 {
		return domain.ErrNoTargetsSpecified
	}

	cfg, err := a.loadConfig(opts)
	if err != nil {
		return err
	}

	set, err := a.toolchain.Steps(cfg, nil)
	if err != nil {
		return err
	}

	return a.execute(ctx, set, targetNames, true)
}

// Serve builds the site, then serves it with live reload and rebuilds on
// source changes until ctx is cancelled. A failing initial build is
// logged and the development loop starts anyway.
func (a *App) Serve(ctx context.Context, opts Options) error {
	cfg, err := a.loadConfig(opts)
	if err != nil {
		return err
	}

	server := a.toolchain.DevServer(cfg)
	set, err := a.toolchain.Steps(cfg, server)
	if err != nil {
		return err
	}

	if err := a.build(ctx, cfg, set); err != nil {
		if ctx.Err() != nil {
			return err
		}
		a.logger.Error(err)
	}

	assets, err := fs.NewGlobSet(cfg.Paths.Assets...)
	if err != nil {
		return err
	}

	w, err := a.toolchain.Watcher()
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return server.Serve(ctx)
	})

	g.Go(func() error {
		defer func() {
			_ = w.Stop()
		}()

		dirs := append([]string{domain.SourceDir}, assets.Bases()...)
		if err := w.Start(ctx, dirs...); err != nil {
			return err
		}
		return a.watch(ctx, w, set, server, domain.DefaultWatchBindings(cfg))
	})

	return g.Wait()
}

func (a *App) loadConfig(opts Options) (*domain.Config, error) {
	if detector.ResolveMode(detector.DetectEnvironment(), opts.JSON) == detector.ModeJSON {
		if s, ok := a.logger.(jsonSwitcher); ok {
			s.SetJSON(true)
		}
	}

	path := opts.ConfigPath
	if path == "" {
		path = domain.ConfigFileName
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(a.root, path)
	}

	cfg, err := a.configLoader.Load(path)
	if err != nil {
		return nil, zerr.Wrap(err, "failed to load configuration")
	}
	return cfg.WithProduction(opts.Production), nil
}

func (a *App) build(ctx context.Context, cfg *domain.Config, set *ports.StepSet) error {
	start := time.Now()
	if err := a.execute(ctx, set, []string{domain.TaskBuild}, false); err != nil {
		return err
	}

	dist := cfg.DistDir(a.root)
	fingerprint, err := a.hasher.Fingerprint(dist)
	if err != nil {
		return zerr.With(zerr.Wrap(err, "failed to fingerprint output"), "path", dist)
	}

	mode := "development"
	if cfg.Production {
		mode = "production"
	}
	a.logger.Info(fmt.Sprintf("%s build finished in %s (output %s)",
		mode, time.Since(start).Round(time.Millisecond), fingerprint))
	return nil
}

// execute runs targets through a fresh scheduler while the renderer is live.
func (a *App) execute(ctx context.Context, set *ports.StepSet, targets []string, skipDeps bool) error {
	graph, err := domain.NewSiteGraph(a.root)
	if err != nil {
		return err
	}

	for _, name := range targets {
		if _, ok := graph.GetTask(name); !ok && name != "all" {
			return zerr.With(domain.ErrTaskNotFound, "task", name)
		}
	}

	sched := scheduler.NewScheduler(a.toolchain.Executor(set), a.tracer)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := a.renderer.Start(ctx); err != nil {
			return err
		}
		return a.renderer.Wait()
	})

	g.Go(func() error {
		defer func() {
			_ = a.renderer.Stop()
		}()

		err := sched.Run(ctx, graph, targets, scheduler.RunOptions{
			Parallelism:      runtime.NumCPU(),
			SkipDependencies: skipDeps,
		})
		if err != nil {
			return errors.Join(domain.ErrBuildExecutionFailed, err)
		}
		return nil
	})

	err = g.Wait()
	if errors.Is(err, domain.ErrBuildExecutionFailed) {
		if skipped := notStarted(sched, graph); len(skipped) > 0 {
			a.logger.Warn("not run after failure: " + strings.Join(skipped, ", "))
		}
	}
	return err
}

// notStarted lists the step tasks of the last run that never began.
func notStarted(sched *scheduler.Scheduler, graph *domain.Graph) []string {
	var names []string
	for task := range graph.Walk() {
		if task.IsGroup() {
			continue
		}
		if status, ok := sched.Status(task.Name); ok && status == scheduler.StatusPending {
			names = append(names, task.Name)
		}
	}
	return names
}
