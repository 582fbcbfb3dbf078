// Package domain contains the core domain models of the site build: tasks, the
// dependency graph, configuration, the source layout and watch bindings.
package domain

import (
	"iter"
	"slices"
	"strings"

	"go.trai.ch/zerr"
)

// Graph represents a dependency graph of tasks.
type Graph struct {
	root           string
	tasks          map[string]Task
	dependents     map[string][]string
	executionOrder []string
}

// NewGraph creates a new empty Graph.
func NewGraph() *Graph {
	return &Graph{
		tasks:      make(map[string]Task),
		dependents: make(map[string][]string),
	}
}

// SetRoot sets the project root the graph's tasks operate in.
func (g *Graph) SetRoot(root string) {
	g.root = root
}

// Root returns the project root.
func (g *Graph) Root() string {
	return g.root
}

// AddTask adds a task to the graph.
// It returns an error if a task with the same name already exists.
func (g *Graph) AddTask(t *Task) error {
	if _, exists := g.tasks[t.Name]; exists {
		return zerr.With(ErrTaskAlreadyExists, "task_name", t.Name)
	}
	task := *t
	task.Dependencies = slices.Clone(t.Dependencies)
	g.tasks[t.Name] = task
	return nil
}

// GetTask returns the task with the given name.
func (g *Graph) GetTask(name string) (Task, bool) {
	t, ok := g.tasks[name]
	return t, ok
}

// TaskCount returns the number of tasks in the graph.
func (g *Graph) TaskCount() int {
	return len(g.tasks)
}

// Dependents returns the names of the tasks that depend directly on name.
// It is populated by Validate.
func (g *Graph) Dependents(name string) []string {
	return g.dependents[name]
}

// Validate checks for missing dependencies and cycles using a topological sort.
// It populates the execution order and the reverse edges if successful.
// Tasks are visited in name order so the resulting order is stable between runs.
func (g *Graph) Validate() error {
	g.executionOrder = make([]string, 0, len(g.tasks))
	g.dependents = make(map[string][]string, len(g.tasks))
	visited := make(map[string]int) // 0: unvisited, 1: visiting, 2: visited
	var path []string

	var visit func(u string) error
	visit = func(u string) error {
		visited[u] = 1
		path = append(path, u)

		task := g.tasks[u]
		for _, dep := range task.Dependencies {
			if _, exists := g.tasks[dep]; !exists {
				return zerr.With(zerr.With(ErrMissingDependency, "dependency", dep), "task", u)
			}
			if visited[dep] == 1 {
				return g.buildCycleError(path, dep)
			}
			if visited[dep] == 0 {
				if err := visit(dep); err != nil {
					return err
				}
			}
		}

		visited[u] = 2
		path = path[:len(path)-1]
		g.executionOrder = append(g.executionOrder, u)
		return nil
	}

	names := make([]string, 0, len(g.tasks))
	for name := range g.tasks {
		names = append(names, name)
	}
	slices.Sort(names)

	for _, name := range names {
		if visited[name] == 0 {
			if err := visit(name); err != nil {
				return err
			}
		}
	}

	for _, name := range g.executionOrder {
		for _, dep := range g.tasks[name].Dependencies {
			g.dependents[dep] = append(g.dependents[dep], name)
		}
	}

	return nil
}

// buildCycleError constructs an error with cycle path metadata.
func (g *Graph) buildCycleError(path []string, dep string) error {
	startIdx := slices.Index(path, dep)
	cycle := append(slices.Clone(path[startIdx:]), dep)
	return zerr.With(ErrCycleDetected, "cycle", strings.Join(cycle, " -> "))
}

// Walk returns an iterator that yields tasks in execution order.
// It assumes Validate() has been called and returned nil.
func (g *Graph) Walk() iter.Seq[Task] {
	return func(yield func(Task) bool) {
		for _, name := range g.executionOrder {
			if !yield(g.tasks[name]) {
				return
			}
		}
	}
}

// NewSiteGraph returns the validated graph of the site build:
// clean, then pages, images and copy in parallel, then sass.
// The composite task "build" depends on every leaf.
func NewSiteGraph(root string) (*Graph, error) {
	g := NewGraph()
	g.SetRoot(root)

	tasks := []Task{
		{Name: TaskClean, Description: "Remove the output directory"},
		{Name: TaskPages, Description: "Render pages", Dependencies: []string{TaskClean}},
		{Name: TaskImages, Description: "Copy and optimise images", Dependencies: []string{TaskClean}},
		{Name: TaskCopy, Description: "Copy static assets", Dependencies: []string{TaskClean}},
		{Name: TaskSass, Description: "Compile stylesheets", Dependencies: []string{TaskPages, TaskImages, TaskCopy}},
		{Name: TaskBuild, Description: "Build the site", Kind: KindGroup, Dependencies: []string{TaskSass}},
	}
	for i := range tasks {
		if err := g.AddTask(&tasks[i]); err != nil {
			return nil, err
		}
	}

	if err := g.Validate(); err != nil {
		return nil, err
	}
	return g, nil
}
