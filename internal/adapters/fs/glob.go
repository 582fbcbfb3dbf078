package fs

import (
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/zerr"
)

// Match is a file selected by a glob list.
type Match struct {
	// Path is the file path relative to the project root.
	Path string
	// Rel is the file path relative to the base of the pattern that selected it.
	Rel string
}

// GlobSet is an ordered list of doublestar patterns. Entries starting with
// "!" exclude files selected by the others.
type GlobSet struct {
	include []string
	exclude []string
}

// NewGlobSet validates patterns and builds a GlobSet.
func NewGlobSet(patterns ...string) (*GlobSet, error) {
	set := &GlobSet{}
	for _, p := range patterns {
		negated := strings.HasPrefix(p, "!")
		clean := path.Clean(filepath.ToSlash(strings.TrimPrefix(p, "!")))
		if !doublestar.ValidatePattern(clean) {
			return nil, zerr.With(zerr.Wrap(doublestar.ErrBadPattern, domain.ErrGlobFailed.Error()), "pattern", p)
		}
		if negated {
			set.exclude = append(set.exclude, clean)
		} else {
			set.include = append(set.include, clean)
		}
	}
	return set, nil
}

// Match reports whether the root-relative path rel is selected by the set.
func (s *GlobSet) Match(rel string) bool {
	rel = filepath.ToSlash(rel)
	if s.excluded(rel) {
		return false
	}
	for _, p := range s.include {
		if doublestar.MatchUnvalidated(p, rel) {
			return true
		}
	}
	return false
}

// Bases returns the static directory prefix of every include pattern.
func (s *GlobSet) Bases() []string {
	bases := make([]string, 0, len(s.include))
	for _, p := range s.include {
		base, _ := splitBase(p)
		bases = append(bases, filepath.FromSlash(base))
	}
	slices.Sort(bases)
	return slices.Compact(bases)
}

// Expand returns the regular files below root selected by the set, sorted by path.
// A file selected by more than one include pattern is reported once, with
// the base of the first pattern that selected it.
func (s *GlobSet) Expand(root string) ([]Match, error) {
	seen := make(map[string]bool)
	var matches []Match

	for _, p := range s.include {
		base, _ := splitBase(p)
		found, err := doublestar.Glob(os.DirFS(root), p, doublestar.WithFilesOnly())
		if err != nil {
			return nil, zerr.With(zerr.Wrap(err, domain.ErrGlobFailed.Error()), "pattern", p)
		}

		for _, f := range found {
			if seen[f] || s.excluded(f) {
				continue
			}
			seen[f] = true

			rel := strings.TrimPrefix(f, base+"/")
			if base == "." {
				rel = f
			}
			matches = append(matches, Match{
				Path: filepath.FromSlash(f),
				Rel:  filepath.FromSlash(rel),
			})
		}
	}

	slices.SortFunc(matches, func(a, b Match) int {
		return strings.Compare(a.Path, b.Path)
	})
	return matches, nil
}

func (s *GlobSet) excluded(rel string) bool {
	for _, p := range s.exclude {
		if doublestar.MatchUnvalidated(p, rel) {
			return true
		}
	}
	return false
}

// splitBase returns the directory prefix before the first meta character.
// A pattern without meta characters names a file, so its base is its directory.
func splitBase(pattern string) (base, rest string) {
	base, rest = doublestar.SplitPattern(pattern)
	if base == "/" {
		base = "."
	}
	return base, rest
}
