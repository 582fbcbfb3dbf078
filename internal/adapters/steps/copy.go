package steps

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"go.trai.ch/kiln/internal/adapters/fs"
	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/core/ports"
)

var _ ports.Step = (*Copy)(nil)

// Copy mirrors the configured asset globs into dist/assets.
type Copy struct {
	root     string
	dist     string
	patterns []string
}

// NewCopy creates the copy step for the project at root.
func NewCopy(cfg *domain.Config, root string) *Copy {
	return &Copy{
		root:     root,
		dist:     cfg.DistDir(root),
		patterns: cfg.Paths.Assets,
	}
}

// Run copies every file selected by the asset globs to dist/assets/<path below the glob base>.
func (c *Copy) Run(ctx context.Context, out io.Writer) error {
	if len(c.patterns) == 0 {
		return nil
	}

	set, err := fs.NewGlobSet(c.patterns...)
	if err != nil {
		return err
	}

	matches, err := set.Expand(c.root)
	if err != nil {
		return err
	}

	dest := domain.AssetsOutput(c.dist)
	for _, m := range matches {
		if err := ctx.Err(); err != nil {
			return err
		}

		target, err := fs.EnsureInside(c.dist, filepath.Join(dest, m.Rel))
		if err != nil {
			return err
		}
		if err := fs.CopyFile(filepath.Join(c.root, m.Path), target); err != nil {
			return err
		}
	}

	_, _ = fmt.Fprintf(out, "copied %d files\n", len(matches))
	return nil
}
