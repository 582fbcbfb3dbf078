// Package pages renders Handlebars page templates into HTML files.
//
// Each page under src/pages is wrapped in a layout from src/layouts. The page
// body is available to the layout as the "body" partial. Partials, data files
// and helper templates are loaded once and kept until Invalidate is called.
package pages

import (
	"context"
	"fmt"
	"io"
	"maps"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/aymerick/raymond"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
	"go.trai.ch/kiln/internal/adapters/fs"
	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.PageRenderer = (*Renderer)(nil)

// Renderer is the pages step.
type Renderer struct {
	root     string
	dist     string
	logger   ports.Logger
	markdown goldmark.Markdown

	mu  sync.Mutex
	lib *library
}

// NewRenderer creates the pages step for the project at root.
func NewRenderer(cfg *domain.Config, root string, logger ports.Logger) *Renderer {
	return &Renderer{
		root:   root,
		dist:   cfg.DistDir(root),
		logger: logger,
		markdown: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithRendererOptions(html.WithUnsafe()),
		),
	}
}

// Invalidate drops the memoised layouts, partials, data and helpers.
func (r *Renderer) Invalidate() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lib = nil
}

// Run renders every page to dist/<path relative to src/pages>.html.
func (r *Renderer) Run(ctx context.Context, out io.Writer) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.lib == nil {
		lib, err := r.loadLibrary()
		if err != nil {
			return err
		}
		r.lib = lib
	}

	pages, err := r.glob(domain.PagesDir, "**/*."+templateExts)
	if err != nil {
		return err
	}

	for _, page := range pages {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := r.renderPage(page); err != nil {
			return err
		}
	}

	_, _ = fmt.Fprintf(out, "rendered %d pages\n", len(pages))
	return nil
}

func (r *Renderer) renderPage(path string) error {
	pagesRoot := filepath.Join(r.root, domain.PagesDir)
	rel, err := filepath.Rel(pagesRoot, path)
	if err != nil {
		return zerr.With(zerr.Wrap(err, "failed to relativize page path"), "path", path)
	}

	content, err := os.ReadFile(path) //nolint:gosec // Path comes from the source tree
	if err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrTemplateParseFailed.Error()), "path", r.rel(path))
	}

	attrs, body, err := splitFrontMatter(content)
	if err != nil {
		return zerr.With(err, "path", r.rel(path))
	}

	layoutName := domain.DefaultLayout
	if name, ok := attrs["layout"].(string); ok && name != "" {
		layoutName = name
	}
	layout, ok := r.lib.layouts[layoutName]
	if !ok {
		err := zerr.With(domain.ErrLayoutNotFound, "layout", layoutName)
		return zerr.With(err, "page", r.rel(path))
	}

	bodyTpl, err := raymond.Parse(string(body))
	if err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrTemplateParseFailed.Error()), "path", r.rel(path))
	}

	page := baseName(path)
	tpl := layout.Clone()
	tpl.RegisterHelpers(sharedHelpers(r.markdown))
	tpl.RegisterHelpers(pageHelpers(page))
	for name, helper := range r.lib.helpers {
		tpl.RegisterHelper(name, templateHelper(helper))
	}
	for name, partial := range r.lib.partials {
		tpl.RegisterPartialTemplate(name, partial)
	}
	tpl.RegisterPartialTemplate(domain.BodyPartial, bodyTpl)

	rendered, err := tpl.Exec(r.pageContext(attrs, page, layoutName, rel))
	if err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrTemplateRenderFailed.Error()), "page", r.rel(path))
	}

	target, err := fs.EnsureInside(r.dist, filepath.Join(r.dist, strings.TrimSuffix(rel, filepath.Ext(rel))+".html"))
	if err != nil {
		return err
	}
	return fs.WriteFile(target, []byte(rendered))
}

// pageContext merges the data files, the page's front matter and the page
// variables, in increasing precedence.
func (r *Renderer) pageContext(attrs map[string]any, page, layout, rel string) map[string]any {
	ctx := make(map[string]any, len(r.lib.data)+len(attrs)+3)
	maps.Copy(ctx, r.lib.data)
	maps.Copy(ctx, attrs)
	ctx["page"] = page
	ctx["layout"] = layout
	ctx["root"] = rootPrefix(rel)
	return ctx
}

// rootPrefix returns the relative URL prefix from a page back to the site root.
func rootPrefix(rel string) string {
	depth := strings.Count(filepath.ToSlash(filepath.Dir(rel)), "/")
	if filepath.Dir(rel) == "." {
		return ""
	}
	return strings.Repeat("../", depth+1)
}
