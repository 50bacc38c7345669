// Package sysprompt composes the layered system prompt sent with every prompt
// skill from embedded text/template files.
package sysprompt

import (
	"io/fs"
	"sort"
	"strings"
	"text/template"

	"github.com/pkg/errors"
)

// Renderer provides prompt template rendering capabilities
type Renderer struct {
	templates *template.Template
	parseErr  error
}

var defaultRenderer = NewRenderer(TemplateFS)

// NewRenderer parses every .tmpl file under templates/ in fsys.
func NewRenderer(fsys fs.FS) *Renderer {
	return NewRendererWithTemplateOverride(fsys, nil)
}

// NewRendererWithTemplateOverride replaces or adds templates keyed by path
// (e.g. templates/sections/profile.tmpl).
func NewRendererWithTemplateOverride(fsys fs.FS, overrides map[string]string) *Renderer {
	r := &Renderer{}
	r.templates, r.parseErr = parseTemplates(fsys, overrides)
	return r
}

// RenderPrompt renders a named template with the provided context
func (r *Renderer) RenderPrompt(name string, ctx *PromptContext) (string, error) {
	if r.parseErr != nil {
		return "", errors.Wrap(r.parseErr, "failed to initialize templates")
	}
	if r.templates.Lookup(name) == nil {
		return "", errors.Errorf("template %s not found", name)
	}

	var buf strings.Builder
	if err := r.templates.ExecuteTemplate(&buf, name, ctx); err != nil {
		return "", errors.Wrapf(err, "failed to execute template %s", name)
	}
	return buf.String(), nil
}

// RenderSystemPrompt renders the system prompt
func (r *Renderer) RenderSystemPrompt(ctx *PromptContext) (string, error) {
	return r.RenderPrompt(SystemTemplate, ctx)
}

func parseTemplates(fsys fs.FS, overrides map[string]string) (*template.Template, error) {
	sources := make(map[string]string)

	err := fs.WalkDir(fsys, "templates", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".tmpl") {
			return nil
		}
		content, err := fs.ReadFile(fsys, path)
		if err != nil {
			return errors.Wrapf(err, "failed to read template file %s", path)
		}
		sources[path] = string(content)
		return nil
	})
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, errors.Wrap(err, "failed to collect templates")
	}

	for path, content := range overrides {
		sources[path] = content
	}

	paths := make([]string, 0, len(sources))
	for path := range sources {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	root := template.New("templates")
	root.Funcs(template.FuncMap{
		"include": func(name string, data any) (string, error) {
			var buf strings.Builder
			err := root.ExecuteTemplate(&buf, name, data)
			return strings.TrimRight(buf.String(), "\n"), err
		},
	})

	for _, path := range paths {
		if _, err := root.New(path).Parse(sources[path]); err != nil {
			return nil, errors.Wrapf(err, "failed to parse template %s", path)
		}
	}
	return root, nil
}
