package pages

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/aymerick/raymond"
	"github.com/bmatcuk/doublestar/v4"
	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/zerr"
	"gopkg.in/yaml.v3"
)

// library is the parsed set of layouts, partials, data and helper templates
// shared by every page of a render.
type library struct {
	layouts  map[string]*raymond.Template
	partials map[string]*raymond.Template
	helpers  map[string]*raymond.Template
	data     map[string]any
}

func (r *Renderer) loadLibrary() (*library, error) {
	lib := &library{
		layouts:  map[string]*raymond.Template{},
		partials: map[string]*raymond.Template{},
		helpers:  map[string]*raymond.Template{},
		data:     map[string]any{},
	}

	if err := r.loadTemplates(domain.LayoutsDir, templateExts, lib.layouts); err != nil {
		return nil, err
	}
	if err := r.loadTemplates(domain.PartialsDir, templateExts, lib.partials); err != nil {
		return nil, err
	}
	if _, ok := lib.partials[domain.BodyPartial]; ok {
		return nil, zerr.With(domain.ErrReservedPartialName, "dir", domain.PartialsDir)
	}
	if err := r.loadHelpers(lib); err != nil {
		return nil, err
	}
	if err := r.loadData(lib); err != nil {
		return nil, err
	}

	return lib, nil
}

const templateExts = "{html,hbs,handlebars}"

// loadTemplates parses every template below dir into dst, keyed by base name.
func (r *Renderer) loadTemplates(dir, exts string, dst map[string]*raymond.Template) error {
	files, err := r.glob(dir, "**/*."+exts)
	if err != nil {
		return err
	}

	for _, file := range files {
		source, err := os.ReadFile(file) //nolint:gosec // Path comes from the source tree
		if err != nil {
			return zerr.With(zerr.Wrap(err, domain.ErrTemplateParseFailed.Error()), "path", r.rel(file))
		}

		tpl, err := raymond.Parse(string(source))
		if err != nil {
			return zerr.With(zerr.Wrap(err, domain.ErrTemplateParseFailed.Error()), "path", r.rel(file))
		}
		dst[baseName(file)] = tpl
	}
	return nil
}

// loadHelpers parses helper templates. Script helpers cannot be evaluated and are skipped.
func (r *Renderer) loadHelpers(lib *library) error {
	scripts, err := r.glob(domain.HelpersDir, "**/*.js")
	if err != nil {
		return err
	}
	for _, script := range scripts {
		r.logger.Warn("skipping script helper " + r.rel(script) + ": only .hbs and .html helpers are supported")
	}

	files, err := r.glob(domain.HelpersDir, "**/*.{hbs,html}")
	if err != nil {
		return err
	}

	for _, file := range files {
		source, err := os.ReadFile(file) //nolint:gosec // Path comes from the source tree
		if err != nil {
			return zerr.With(zerr.Wrap(err, domain.ErrTemplateParseFailed.Error()), "path", r.rel(file))
		}

		// A helper expands inline, so its final newline is dropped.
		tpl, err := raymond.Parse(strings.TrimSuffix(string(source), "\n"))
		if err != nil {
			return zerr.With(zerr.Wrap(err, domain.ErrTemplateParseFailed.Error()), "path", r.rel(file))
		}
		name := baseName(file)
		if isBuiltinHelper(name) {
			r.logger.Warn("skipping helper " + r.rel(file) + ": " + name + " is a built-in helper")
			continue
		}
		lib.helpers[name] = tpl
	}

	// Helper templates see the shared helpers and partials, but not the
	// page-dependent ones.
	for _, tpl := range lib.helpers {
		tpl.RegisterHelpers(sharedHelpers(r.markdown))
		for name, partial := range lib.partials {
			tpl.RegisterPartialTemplate(name, partial)
		}
	}
	return nil
}

// loadData reads every data file into lib.data, keyed by base name.
func (r *Renderer) loadData(lib *library) error {
	scripts, err := r.glob(domain.DataDir, "**/*.js")
	if err != nil {
		return err
	}
	for _, script := range scripts {
		r.logger.Warn("skipping script data file " + r.rel(script) + ": use .json or .yml")
	}

	files, err := r.glob(domain.DataDir, "**/*.{json,yml,yaml}")
	if err != nil {
		return err
	}

	for _, file := range files {
		content, err := os.ReadFile(file) //nolint:gosec // Path comes from the source tree
		if err != nil {
			return zerr.With(zerr.Wrap(err, domain.ErrDataLoadFailed.Error()), "path", r.rel(file))
		}

		// JSON is a subset of YAML.
		var value any
		if err := yaml.Unmarshal(content, &value); err != nil {
			return zerr.With(zerr.Wrap(err, domain.ErrDataLoadFailed.Error()), "path", r.rel(file))
		}
		lib.data[baseName(file)] = value
	}
	return nil
}

// glob returns the absolute paths of the files below root/dir matching pattern, sorted.
func (r *Renderer) glob(dir, pattern string) ([]string, error) {
	base := filepath.Join(r.root, dir)
	matches, err := doublestar.Glob(os.DirFS(base), pattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, domain.ErrGlobFailed.Error()), "pattern", pattern)
	}

	files := make([]string, len(matches))
	for i, m := range matches {
		files[i] = filepath.Join(base, filepath.FromSlash(m))
	}
	return files, nil
}

func (r *Renderer) rel(path string) string {
	if rel, err := filepath.Rel(r.root, path); err == nil {
		return filepath.ToSlash(rel)
	}
	return path
}

func baseName(path string) string {
	name := filepath.Base(path)
	return strings.TrimSuffix(name, filepath.Ext(name))
}
