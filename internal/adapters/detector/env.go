// Package detector picks the log output mode from the environment.
package detector

import (
	"os"

	"golang.org/x/term"
)

// LogMode represents the log format of the application.
type LogMode int

const (
	// ModePretty prints coloured, human readable lines.
	ModePretty LogMode = iota
	// ModeJSON prints one JSON object per line.
	ModeJSON
)

// DetectEnvironment returns the recommended log mode.
// Non-interactive CI runs get JSON; everything else gets pretty output.
func DetectEnvironment() LogMode {
	isTTY := term.IsTerminal(int(os.Stderr.Fd()))

	ci := os.Getenv("CI")
	isCI := ci == "true" || ci == "1"

	if !isTTY && isCI {
		return ModeJSON
	}
	return ModePretty
}

// ResolveMode applies the --json flag to auto-detection.
func ResolveMode(autoDetected LogMode, forceJSON bool) LogMode {
	if forceJSON {
		return ModeJSON
	}
	return autoDetected
}
