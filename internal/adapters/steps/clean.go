package steps

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.Step = (*Clean)(nil)

// Clean removes the output directory.
type Clean struct {
	root string
	dist string
}

// NewClean creates the clean step for the project at root.
func NewClean(cfg *domain.Config, root string) *Clean {
	return &Clean{root: root, dist: cfg.DistDir(root)}
}

// Run removes the output directory recursively. A missing directory is not an error.
func (c *Clean) Run(_ context.Context, out io.Writer) error {
	if err := c.checkTarget(); err != nil {
		return err
	}

	if _, err := os.Lstat(c.dist); os.IsNotExist(err) {
		return nil
	}

	if err := os.RemoveAll(c.dist); err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrCleanFailed.Error()), "path", c.dist)
	}

	_, _ = fmt.Fprintf(out, "removed %s\n", c.relDist())
	return nil
}

// checkTarget refuses to remove the project root, one of its parents, or a
// directory outside the project.
func (c *Clean) checkTarget() error {
	absRoot, err := filepath.Abs(c.root)
	if err != nil {
		return zerr.Wrap(err, "failed to resolve project root")
	}
	absDist, err := filepath.Abs(c.dist)
	if err != nil {
		return zerr.Wrap(err, "failed to resolve output directory")
	}

	rel, err := filepath.Rel(absRoot, absDist)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return zerr.With(domain.ErrUnsafeCleanTarget, "path", c.dist)
	}
	return nil
}

func (c *Clean) relDist() string {
	if rel, err := filepath.Rel(c.root, c.dist); err == nil {
		return filepath.ToSlash(rel)
	}
	return c.dist
}
