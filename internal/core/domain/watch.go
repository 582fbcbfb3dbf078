package domain

import "time"

// WatchDebounce is how long a binding waits for a burst of changes to settle.
const WatchDebounce = 200 * time.Millisecond

// ReloadKind is the kind of refresh a connected browser performs.
type ReloadKind uint8

const (
	// ReloadNone pushes nothing.
	ReloadNone ReloadKind = iota
	// ReloadFull reloads the whole page.
	ReloadFull
	// ReloadCSS swaps stylesheets in place.
	ReloadCSS
)

// String returns the wire name of the reload kind.
func (k ReloadKind) String() string {
	switch k {
	case ReloadFull:
		return "reload"
	case ReloadCSS:
		return "css"
	default:
		return "none"
	}
}

// ReloadEvent is pushed to connected browsers after a successful rebuild.
type ReloadEvent struct {
	Kind ReloadKind
	Path string
	Hash string
}

// WatchBinding maps a set of source globs to the tasks re-run when they change.
type WatchBinding struct {
	Name     string
	Patterns []string
	// ResetPages drops the memoised layouts, partials, data and helpers before the run.
	ResetPages bool
	Targets    []string
	Reload     ReloadKind
}

// DefaultWatchBindings returns the bindings of the development loop.
func DefaultWatchBindings(cfg *Config) []WatchBinding {
	return []WatchBinding{
		{
			Name:     "assets",
			Patterns: cfg.Paths.Assets,
			Targets:  []string{TaskCopy},
			Reload:   ReloadFull,
		},
		{
			Name:     "pages",
			Patterns: []string{"src/pages/**/*.html"},
			Targets:  []string{TaskPages},
			Reload:   ReloadFull,
		},
		{
			Name:       "layouts",
			Patterns:   []string{"src/{layouts,partials}/**/*.html"},
			ResetPages: true,
			Targets:    []string{TaskPages},
			Reload:     ReloadFull,
		},
		{
			Name:       "data",
			Patterns:   []string{"src/data/**/*.{js,json,yml}"},
			ResetPages: true,
			Targets:    []string{TaskPages},
			Reload:     ReloadFull,
		},
		{
			Name:       "helpers",
			Patterns:   []string{"src/helpers/**/*.{js,hbs,html}"},
			ResetPages: true,
			Targets:    []string{TaskPages},
			Reload:     ReloadFull,
		},
		{
			// The stylesheet step pushes its own css event.
			Name:     "styles",
			Patterns: []string{"src/assets/theme/**/*.scss"},
			Targets:  []string{TaskSass},
			Reload:   ReloadNone,
		},
		{
			Name:     "images",
			Patterns: []string{"src/assets/img/**/*"},
			Targets:  []string{TaskImages},
			Reload:   ReloadFull,
		},
	}
}
