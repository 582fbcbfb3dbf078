package domain

import "go.trai.ch/zerr"

var (
	// ErrTaskAlreadyExists is returned when attempting to add a task with a name that already exists.
	ErrTaskAlreadyExists = zerr.New("task already exists")

	// ErrMissingDependency is returned when a task references a dependency that doesn't exist in the graph.
	ErrMissingDependency = zerr.New("missing dependency")

	// ErrCycleDetected is returned when a cycle is detected in the task dependency graph.
	ErrCycleDetected = zerr.New("cycle detected")

	// ErrTaskNotFound is returned when a requested task is not found in the graph.
	ErrTaskNotFound = zerr.New("task not found")

	// ErrNoTargetsSpecified is returned when no targets are specified for the run command.
	ErrNoTargetsSpecified = zerr.New("no targets specified")

	// ErrStepNotFound is returned when a leaf task has no step bound to it.
	ErrStepNotFound = zerr.New("no step bound to task")

	// ErrOutputPathOutsideRoot is returned when a destination path escapes the output directory.
	ErrOutputPathOutsideRoot = zerr.New("output path is outside the output directory")

	// ErrUnsafeCleanTarget is returned when the output directory would remove the working directory or a parent of it.
	ErrUnsafeCleanTarget = zerr.New("refusing to remove output directory")

	// ErrConfigReadFailed is returned when the settings file cannot be read.
	ErrConfigReadFailed = zerr.New("failed to read config file")

	// ErrConfigParseFailed is returned when the settings file cannot be parsed.
	ErrConfigParseFailed = zerr.New("failed to parse config file")

	// ErrConfigInvalid is returned when the settings file is missing a required key or holds an invalid value.
	ErrConfigInvalid = zerr.New("invalid config")

	// ErrBuildExecutionFailed is returned when the build execution fails.
	ErrBuildExecutionFailed = zerr.New("build execution failed")

	// ErrTaskExecutionFailed is returned when a task execution fails.
	ErrTaskExecutionFailed = zerr.New("task execution failed")

	// ErrGlobFailed is returned when a glob pattern cannot be expanded.
	ErrGlobFailed = zerr.New("failed to expand glob pattern")

	// ErrCopyFailed is returned when a file cannot be copied into the output directory.
	ErrCopyFailed = zerr.New("failed to copy file")

	// ErrCleanFailed is returned when the output directory cannot be removed.
	ErrCleanFailed = zerr.New("failed to clean output directory")

	// ErrLayoutNotFound is returned when a page names a layout that does not exist.
	ErrLayoutNotFound = zerr.New("layout not found")

	// ErrTemplateParseFailed is returned when a page, layout, partial or helper template cannot be parsed.
	ErrTemplateParseFailed = zerr.New("failed to parse template")

	// ErrTemplateRenderFailed is returned when a page cannot be rendered.
	ErrTemplateRenderFailed = zerr.New("failed to render page")

	// ErrFrontMatterInvalid is returned when a page's front matter is not valid YAML.
	ErrFrontMatterInvalid = zerr.New("invalid front matter")

	// ErrDataLoadFailed is returned when a data file cannot be read or parsed.
	ErrDataLoadFailed = zerr.New("failed to load data file")

	// ErrReservedPartialName is returned when a partial uses a name reserved for the page body.
	ErrReservedPartialName = zerr.New("partial name 'body' is reserved")

	// ErrStylesheetCompile is returned when the preprocessor rejects the entry stylesheet.
	ErrStylesheetCompile = zerr.New("failed to compile stylesheet")

	// ErrStylesheetProcess is returned when a post-processing transform fails.
	ErrStylesheetProcess = zerr.New("failed to process stylesheet")

	// ErrInvalidEngineTarget is returned when a browser target string cannot be parsed.
	ErrInvalidEngineTarget = zerr.New("invalid browser target")

	// ErrImageEncodeFailed is returned when an image cannot be recompressed.
	ErrImageEncodeFailed = zerr.New("failed to recompress image")

	// ErrWriteFailed is returned when an output file cannot be written.
	ErrWriteFailed = zerr.New("failed to write output file")

	// ErrServerFailed is returned when the development server stops unexpectedly.
	ErrServerFailed = zerr.New("development server failed")

	// ErrWatchFailed is returned when the file watcher cannot be started.
	ErrWatchFailed = zerr.New("failed to start file watcher")
)
