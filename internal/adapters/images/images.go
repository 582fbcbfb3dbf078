// Package images copies site images into the output directory, recompressing
// JPEG files as progressive images in production builds.
package images

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync/atomic"

	"github.com/pixiv/go-libjpeg/jpeg"
	"go.trai.ch/kiln/internal/adapters/fs"
	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/core/ports"
	"go.trai.ch/zerr"
	"golang.org/x/sync/errgroup"
)

var _ ports.Step = (*Optimizer)(nil)

// Optimizer is the images step.
type Optimizer struct {
	root       string
	dist       string
	production bool
	quality    int
	walker     *fs.Walker
}

// NewOptimizer creates the images step for the project at root.
func NewOptimizer(cfg *domain.Config, root string, walker *fs.Walker) *Optimizer {
	return &Optimizer{
		root:       root,
		dist:       cfg.DistDir(root),
		production: cfg.Production,
		quality:    cfg.Images.Quality,
		walker:     walker,
	}
}

// Run copies src/assets/img/** to dist/assets/img/. In production, JPEG files
// are re-encoded; every other file is copied unchanged.
func (o *Optimizer) Run(ctx context.Context, out io.Writer) error {
	srcDir := filepath.Join(o.root, domain.ImagesSrcDir)
	destDir := domain.ImagesOutput(o.dist)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())

	var copied, recompressed atomic.Int64
	for src := range o.walker.WalkFiles(srcDir, nil) {
		if ctx.Err() != nil {
			break
		}

		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			rel, err := filepath.Rel(srcDir, src)
			if err != nil {
				return zerr.With(zerr.Wrap(err, "failed to relativize image path"), "path", src)
			}
			dst, err := fs.EnsureInside(o.dist, filepath.Join(destDir, rel))
			if err != nil {
				return err
			}

			if o.production && isJPEG(src) {
				recompressed.Add(1)
				return o.recompress(src, dst)
			}
			copied.Add(1)
			return fs.CopyFile(src, dst)
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	if o.production {
		_, _ = fmt.Fprintf(out, "optimized %d images, copied %d files\n", recompressed.Load(), copied.Load())
	} else {
		_, _ = fmt.Fprintf(out, "copied %d images\n", copied.Load())
	}
	return nil
}

func (o *Optimizer) recompress(src, dst string) error {
	f, err := os.Open(src) //nolint:gosec // Path is controlled by caller
	if err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrImageEncodeFailed.Error()), "path", src)
	}
	defer f.Close() //nolint:errcheck // Best effort close in defer

	img, err := jpeg.Decode(f, &jpeg.DecoderOptions{})
	if err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrImageEncodeFailed.Error()), "path", src)
	}

	var buf bytes.Buffer
	err = jpeg.Encode(&buf, img, &jpeg.EncoderOptions{
		Quality:         o.quality,
		OptimizeCoding:  true,
		ProgressiveMode: true,
	})
	if err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrImageEncodeFailed.Error()), "path", src)
	}

	return fs.WriteFile(dst, buf.Bytes())
}

func isJPEG(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		return true
	default:
		return false
	}
}
