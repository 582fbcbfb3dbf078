// Package styles compiles the site stylesheet.
//
// The entry stylesheet is compiled by the Sass CLI, expanded by the Tailwind
// CLI and then handed to esbuild, which adds vendor prefixes for the
// configured browsers and, in production, minifies the result.
package styles

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/evanw/esbuild/pkg/api"
	"go.trai.ch/kiln/internal/adapters/fs"
	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.Step = (*Pipeline)(nil)

// CommandRunner runs an external program in dir and returns its standard output.
type CommandRunner interface {
	Run(ctx context.Context, dir, name string, args ...string) ([]byte, error)
}

// Pipeline is the stylesheet step.
type Pipeline struct {
	cfg      *domain.Config
	root     string
	dist     string
	runner   CommandRunner
	reloader ports.Reloader
	logger   ports.Logger

	mu             sync.Mutex
	lastHash       string
	warnedTailwind bool
}

// NewPipeline creates the stylesheet step for the project at root.
// reloader may be nil when no browser is listening.
func NewPipeline(
	cfg *domain.Config,
	root string,
	runner CommandRunner,
	reloader ports.Reloader,
	logger ports.Logger,
) *Pipeline {
	return &Pipeline{
		cfg:      cfg,
		root:     root,
		dist:     cfg.DistDir(root),
		runner:   runner,
		reloader: reloader,
		logger:   logger,
	}
}

// Run compiles, post-processes and writes dist/assets/theme/app.css.
// On failure the previous stylesheet is left in place.
func (p *Pipeline) Run(ctx context.Context, out io.Writer) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	css, err := p.compile(ctx)
	if err != nil {
		return err
	}

	css, err = p.expandUtilities(ctx, css)
	if err != nil {
		return err
	}

	css, err = p.prefix(css)
	if err != nil {
		return err
	}

	if p.cfg.Production {
		if p.cfg.UnCSS.Enabled {
			used, err := usedSelectors(p.dist, p.cfg.UnCSS.Ignore)
			if err != nil {
				return zerr.Wrap(err, domain.ErrStylesheetProcess.Error())
			}
			css, err = purgeUnused(css, used)
			if err != nil {
				return zerr.Wrap(err, domain.ErrStylesheetProcess.Error())
			}
		}

		css, err = p.minify(css)
		if err != nil {
			return err
		}
	}

	target, err := fs.EnsureInside(p.dist, domain.StylesheetOutput(p.dist))
	if err != nil {
		return err
	}
	if err := fs.WriteFile(target, []byte(css)); err != nil {
		return err
	}

	hash := fs.HashBytes([]byte(css))
	_, _ = fmt.Fprintf(out, "wrote %s (%d bytes)\n", p.rel(target), len(css))

	if hash != p.lastHash {
		p.lastHash = hash
		if p.reloader != nil {
			p.reloader.Reload(domain.ReloadEvent{
				Kind: domain.ReloadCSS,
				Path: filepath.ToSlash(p.relDist(target)),
				Hash: hash,
			})
		}
	}
	return nil
}

// compile runs the Sass CLI on the entry stylesheet. Development builds
// carry an inline map back to the Sass sources, which prefix chains.
func (p *Pipeline) compile(ctx context.Context) (string, error) {
	args := []string{"--no-source-map", "--style=expanded"}
	if !p.cfg.Production {
		args = []string{"--embed-source-map", "--embed-sources", "--style=expanded"}
	}
	for _, dir := range p.cfg.Paths.Sass {
		args = append(args, "--load-path="+dir)
	}
	args = append(args, filepath.ToSlash(domain.StyleEntry))

	out, err := p.runner.Run(ctx, p.root, p.cfg.Sass.Binary, args...)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", zerr.With(zerr.Wrap(err, domain.ErrStylesheetCompile.Error()), "entry", filepath.ToSlash(domain.StyleEntry))
	}
	return string(out), nil
}

// expandUtilities runs the Tailwind CLI over the compiled stylesheet. The
// step is skipped when the project has no Tailwind config.
func (p *Pipeline) expandUtilities(ctx context.Context, css string) (string, error) {
	if _, err := os.Stat(filepath.Join(p.root, p.cfg.Tailwind.Config)); err != nil {
		if !p.warnedTailwind {
			p.warnedTailwind = true
			p.logger.Warn(p.cfg.Tailwind.Config + " not found, skipping utility expansion")
		}
		return css, nil
	}

	tmp, err := os.MkdirTemp("", "kiln-tailwind-")
	if err != nil {
		return "", zerr.Wrap(err, domain.ErrStylesheetProcess.Error())
	}
	defer os.RemoveAll(tmp) //nolint:errcheck // Best effort cleanup

	input := filepath.Join(tmp, "app.css")
	if err := os.WriteFile(input, []byte(css), domain.FilePerm); err != nil {
		return "", zerr.Wrap(err, domain.ErrStylesheetProcess.Error())
	}

	out, err := p.runner.Run(ctx, p.root, p.cfg.Tailwind.Binary, "--config", p.cfg.Tailwind.Config, "--input", input)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", zerr.With(zerr.Wrap(err, domain.ErrStylesheetProcess.Error()), "processor", "tailwind")
	}
	return string(out), nil
}

// prefix adds vendor prefixes for the configured browsers. Development
// builds get an inline source map.
func (p *Pipeline) prefix(css string) (string, error) {
	engines, err := parseEngines(p.cfg.Browsers)
	if err != nil {
		return "", err
	}

	opts := api.TransformOptions{
		Loader:     api.LoaderCSS,
		Engines:    engines,
		Sourcefile: "app.css",
		LogLevel:   api.LogLevelSilent,
	}
	if !p.cfg.Production {
		opts.Sourcemap = api.SourceMapInline
		opts.SourcesContent = api.SourcesContentInclude
	}

	return transform(css, opts, "prefix")
}

// minify compresses the stylesheet for the compatibility targets.
func (p *Pipeline) minify(css string) (string, error) {
	engines, err := parseEngines(p.cfg.Compatibility)
	if err != nil {
		return "", err
	}

	return transform(css, api.TransformOptions{
		Loader:           api.LoaderCSS,
		Engines:          engines,
		MinifyWhitespace: true,
		MinifySyntax:     true,
		Sourcefile:       "app.css",
		LogLevel:         api.LogLevelSilent,
	}, "minify")
}

func transform(css string, opts api.TransformOptions, processor string) (string, error) {
	result := api.Transform(css, opts)
	if len(result.Errors) > 0 {
		msgs := make([]string, 0, len(result.Errors))
		for _, m := range result.Errors {
			if m.Location != nil {
				msgs = append(msgs, fmt.Sprintf("%s:%d:%d: %s", m.Location.File, m.Location.Line, m.Location.Column, m.Text))
			} else {
				msgs = append(msgs, m.Text)
			}
		}
		err := zerr.Wrap(zerr.New(strings.Join(msgs, "\n")), domain.ErrStylesheetProcess.Error())
		return "", zerr.With(err, "processor", processor)
	}
	return string(result.Code), nil
}

func (p *Pipeline) rel(path string) string {
	if rel, err := filepath.Rel(p.root, path); err == nil {
		return filepath.ToSlash(rel)
	}
	return path
}

func (p *Pipeline) relDist(path string) string {
	if rel, err := filepath.Rel(p.dist, path); err == nil {
		return rel
	}
	return path
}
