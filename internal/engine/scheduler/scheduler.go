// Package scheduler runs the tasks of a graph in dependency order.
package scheduler

import (
	"context"
	"errors"
	"slices"
	"sync"

	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/core/ports"
	"go.trai.ch/zerr"
)

// TaskStatus represents the status of a task.
type TaskStatus string

const (
	// StatusPending indicates the task is waiting to be executed.
	StatusPending TaskStatus = "Pending"
	// StatusRunning indicates the task is currently executing.
	StatusRunning TaskStatus = "Running"
	// StatusCompleted indicates the task has finished successfully.
	StatusCompleted TaskStatus = "Completed"
	// StatusFailed indicates the task execution failed.
	StatusFailed TaskStatus = "Failed"
	// StatusCanceled indicates the task was stopped because another task failed.
	StatusCanceled TaskStatus = "Canceled"
)

// RunOptions configures a single scheduler run.
type RunOptions struct {
	// Parallelism bounds the number of tasks executing at once.
	Parallelism int
	// SkipDependencies runs only the named targets, ordered by the edges among them.
	SkipDependencies bool
}

// Scheduler manages the execution of tasks in the dependency graph.
type Scheduler struct {
	executor ports.Executor
	tracer   ports.Tracer

	mu         sync.RWMutex
	taskStatus map[string]TaskStatus
}

// NewScheduler creates a new Scheduler with the given dependencies.
func NewScheduler(executor ports.Executor, tracer ports.Tracer) *Scheduler {
	return &Scheduler{
		executor:   executor,
		tracer:     tracer,
		taskStatus: make(map[string]TaskStatus),
	}
}

// Status returns the status of the named task in the most recent run.
func (s *Scheduler) Status(name string) (TaskStatus, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	status, ok := s.taskStatus[name]
	return status, ok
}

func (s *Scheduler) initTaskStatuses(tasks []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	clear(s.taskStatus)
	for _, task := range tasks {
		s.taskStatus[task] = StatusPending
	}
}

func (s *Scheduler) updateStatus(name string, status TaskStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.taskStatus[name] = status
}

// Run executes the target tasks of the graph.
// If targetNames contains "all", all tasks in the graph are executed.
// Unless opts.SkipDependencies is set, the transitive dependencies of the targets run too.
// The first failing task cancels the tasks still running and no further tasks are started.
func (s *Scheduler) Run(ctx context.Context, graph *domain.Graph, targetNames []string, opts RunOptions) error {
	if len(targetNames) == 0 {
		return domain.ErrNoTargetsSpecified
	}

	if err := graph.Validate(); err != nil {
		return err
	}

	if opts.Parallelism < 1 {
		opts.Parallelism = 1
	}

	tasksToRun, err := resolveTasksToRun(graph, targetNames, opts.SkipDependencies)
	if err != nil {
		return err
	}

	// Filter the graph's full topological order to only include tasks in this run.
	plannedTasks := make([]string, 0, len(tasksToRun))
	depMap := make(map[string][]string, len(tasksToRun))
	for task := range graph.Walk() {
		if !tasksToRun[task.Name] {
			continue
		}
		plannedTasks = append(plannedTasks, task.Name)
		deps := make([]string, 0, len(task.Dependencies))
		for _, dep := range task.Dependencies {
			if tasksToRun[dep] {
				deps = append(deps, dep)
			}
		}
		depMap[task.Name] = deps
	}

	s.tracer.EmitPlan(ctx, plannedTasks, depMap, targetNames)
	s.initTaskStatuses(plannedTasks)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	state := newRunState(runCtx, cancel, s, graph, tasksToRun, opts.Parallelism)
	err = state.runExecutionLoop()
	if ctx.Err() != nil {
		err = errors.Join(err, ctx.Err())
	}
	return err
}

type result struct {
	task string
	err  error
}

type runState struct {
	s           *Scheduler
	graph       *domain.Graph
	ctx         context.Context
	cancel      context.CancelFunc
	inDegree    map[string]int
	tasks       map[string]domain.Task
	ready       []string
	active      int
	parallelism int
	resultsCh   chan result
	failed      bool
	errs        error
}

func newRunState(
	ctx context.Context,
	cancel context.CancelFunc,
	s *Scheduler,
	graph *domain.Graph,
	tasksToRun map[string]bool,
	parallelism int,
) *runState {
	inDegree := make(map[string]int, len(tasksToRun))
	tasks := make(map[string]domain.Task, len(tasksToRun))

	for name := range tasksToRun {
		task, _ := graph.GetTask(name)
		tasks[name] = task

		// Only dependencies that are part of this run hold a task back.
		degree := 0
		for _, dep := range task.Dependencies {
			if tasksToRun[dep] {
				degree++
			}
		}
		inDegree[name] = degree
	}

	var ready []string
	for name, degree := range inDegree {
		if degree == 0 {
			ready = append(ready, name)
		}
	}
	slices.Sort(ready)

	return &runState{
		s:           s,
		graph:       graph,
		ctx:         ctx,
		cancel:      cancel,
		inDegree:    inDegree,
		tasks:       tasks,
		ready:       ready,
		parallelism: parallelism,
		resultsCh:   make(chan result, parallelism),
	}
}

func resolveTasksToRun(graph *domain.Graph, targetNames []string, skipDeps bool) (map[string]bool, error) {
	tasksToRun := make(map[string]bool)

	if slices.Contains(targetNames, "all") {
		for task := range graph.Walk() {
			tasksToRun[task.Name] = true
		}
		return tasksToRun, nil
	}

	for _, name := range targetNames {
		if _, ok := graph.GetTask(name); !ok {
			return nil, zerr.With(domain.ErrTaskNotFound, "task", name)
		}
		tasksToRun[name] = true
	}

	if skipDeps {
		return tasksToRun, nil
	}

	// Use a queue for BFS to collect all dependencies.
	queue := slices.Clone(targetNames)
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		task, _ := graph.GetTask(current)
		for _, dep := range task.Dependencies {
			if !tasksToRun[dep] {
				tasksToRun[dep] = true
				queue = append(queue, dep)
			}
		}
	}

	return tasksToRun, nil
}

func (state *runState) runExecutionLoop() error {
	for !state.isDone() {
		state.schedule()

		if state.isDone() {
			break
		}

		if state.ctx.Err() != nil && state.active == 0 {
			break
		}

		select {
		case res := <-state.resultsCh:
			state.handleResult(res)
		case <-state.ctx.Done():
			// Drain in-flight tasks; they observe the same context.
			for state.active > 0 {
				state.handleResult(<-state.resultsCh)
			}
		}
	}

	return state.errs
}

func (state *runState) isDone() bool {
	return state.active == 0 && len(state.ready) == 0
}

func (state *runState) schedule() {
	for len(state.ready) > 0 && state.active < state.parallelism && state.ctx.Err() == nil {
		taskName := state.ready[0]
		state.ready = state.ready[1:]

		state.active++
		state.s.updateStatus(taskName, StatusRunning)

		t := state.tasks[taskName]
		go state.executeTask(&t)
	}
}

func (state *runState) executeTask(t *domain.Task) {
	// The span is ended before the result is sent so the renderer sees
	// the completion before the run returns.
	res := func() result {
		if t.IsGroup() {
			return result{task: t.Name}
		}

		ctx, span := state.s.tracer.Start(state.ctx, t.Name, ports.WithDescription(t.Description))
		defer span.End()
		if len(t.Dependencies) > 0 {
			span.SetAttribute("task.dependencies", t.Dependencies)
		}

		err := state.s.executor.Execute(ctx, t, span)
		if err != nil {
			span.RecordError(err)
		}
		return result{task: t.Name, err: err}
	}()

	state.resultsCh <- res
}

func (state *runState) handleResult(res result) {
	state.active--

	if res.err == nil {
		state.handleSuccess(res)
		return
	}

	if state.failed && errors.Is(res.err, context.Canceled) {
		state.s.updateStatus(res.task, StatusCanceled)
		return
	}

	enhancedErr := zerr.With(zerr.Wrap(res.err, domain.ErrTaskExecutionFailed.Error()), "task", res.task)
	state.errs = errors.Join(state.errs, enhancedErr)
	state.s.updateStatus(res.task, StatusFailed)

	if !state.failed {
		state.failed = true
		state.cancel()
	}
}

func (state *runState) handleSuccess(res result) {
	state.s.updateStatus(res.task, StatusCompleted)

	for _, dep := range state.graph.Dependents(res.task) {
		// Only consider dependents that are part of the current execution.
		if _, ok := state.tasks[dep]; ok {
			state.inDegree[dep]--
			if state.inDegree[dep] == 0 {
				state.ready = append(state.ready, dep)
			}
		}
	}
}
