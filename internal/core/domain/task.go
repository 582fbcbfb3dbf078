package domain

// TaskKind tells the scheduler whether a task does work itself or only groups its dependencies.
type TaskKind uint8

const (
	// KindStep is a leaf task bound to a step implementation.
	KindStep TaskKind = iota
	// KindGroup is a composite task whose only effect is ordering its dependencies.
	KindGroup
)

// Leaf task names of the site build.
const (
	TaskClean  = "clean"
	TaskCopy   = "copy"
	TaskPages  = "pages"
	TaskImages = "images"
	TaskSass   = "sass"
)

// TaskBuild is the composite task that produces a complete output directory.
const TaskBuild = "build"

// Task represents a unit of work in the build graph.
type Task struct {
	Name         string
	Description  string
	Kind         TaskKind
	Dependencies []string
}

// IsGroup reports whether the task only groups other tasks.
func (t *Task) IsGroup() bool {
	return t.Kind == KindGroup
}
