package app

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.trai.ch/kiln/internal/adapters/fs"
	"go.trai.ch/kiln/internal/adapters/watcher"
	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/core/ports"
)

// binding re-runs the targets of one watch binding. Runs never overlap; a
// change that lands during a run queues exactly one follow-up run.
type binding struct {
	app       *App
	ctx       context.Context
	spec      domain.WatchBinding
	globs     *fs.GlobSet
	set       *ports.StepSet
	server    ports.DevServer
	debouncer *watcher.Debouncer
	wg        *sync.WaitGroup

	mu      sync.Mutex
	running bool
	queued  bool
	closed  bool
}

// watch dispatches watcher events to the bindings until the event stream ends.
func (a *App) watch(
	ctx context.Context,
	w ports.Watcher,
	set *ports.StepSet,
	server ports.DevServer,
	specs []domain.WatchBinding,
) error {
	var wg sync.WaitGroup
	bindings := make([]*binding, 0, len(specs))

	defer func() {
		for _, b := range bindings {
			b.close()
		}
		wg.Wait()
	}()

	for _, spec := range specs {
		globs, err := fs.NewGlobSet(spec.Patterns...)
		if err != nil {
			return err
		}
		b := &binding{
			app:    a,
			ctx:    ctx,
			spec:   spec,
			globs:  globs,
			set:    set,
			server: server,
			wg:     &wg,
		}
		b.debouncer = watcher.NewDebouncer(domain.WatchDebounce, b.trigger)
		bindings = append(bindings, b)
	}

	a.logger.Info("watching for changes")

	for event := range w.Events() {
		for _, b := range bindings {
			if b.globs.Match(event.Path) {
				b.debouncer.Add(event.Path)
			}
		}
	}
	return nil
}

func (b *binding) trigger(paths []string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	if b.running {
		b.queued = true
		return
	}

	b.running = true
	b.wg.Add(1)
	go b.loop(paths)
}

func (b *binding) loop(paths []string) {
	defer b.wg.Done()

	for {
		b.runOnce(paths)

		b.mu.Lock()
		if !b.queued || b.closed {
			b.running = false
			b.queued = false
			b.mu.Unlock()
			return
		}
		b.queued = false
		b.mu.Unlock()
		paths = nil
	}
}

func (b *binding) runOnce(paths []string) {
	if len(paths) > 0 {
		b.app.logger.Info(fmt.Sprintf("%s changed, running %s", describe(paths), strings.Join(b.spec.Targets, ", ")))
	}

	if b.spec.ResetPages && b.set.Pages != nil {
		b.set.Pages.Invalidate()
	}

	start := time.Now()
	err := b.app.execute(b.ctx, b.set, b.spec.Targets, true)
	b.server.RecordRun(b.spec.Name, time.Since(start), err)

	if err != nil {
		if b.ctx.Err() == nil {
			b.app.logger.Error(err)
		}
		return
	}

	if b.spec.Reload != domain.ReloadNone {
		b.server.Reload(domain.ReloadEvent{Kind: b.spec.Reload})
	}
}

// close stops the debouncer and lets an in-flight run finish without a follow-up.
func (b *binding) close() {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()
	b.debouncer.Stop()
}

func describe(paths []string) string {
	if len(paths) == 1 {
		return paths[0]
	}
	return fmt.Sprintf("%s and %d more", paths[0], len(paths)-1)
}
