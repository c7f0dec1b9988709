package mailer

import (
	"bytes"
	"fmt"
	"html/template"
	"io/fs"
	"path"
	"sync"
	texttemplate "text/template"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// Renderer turns markdown notification templates into HTML and plain text.
// Parsed templates and layouts are cached by name; rendered output is not.
type Renderer struct {
	fs          fs.FS
	md          goldmark.Markdown
	templateDir string
	layoutDir   string

	mu        sync.RWMutex
	templates map[string]*cachedTemplate
	layouts   map[string]*template.Template
}

type cachedTemplate struct {
	metadata map[string]any
	tmpl     *texttemplate.Template
}

// RendererConfig configures the renderer.
type RendererConfig struct {
	TemplateDir string // Default: "."
	LayoutDir   string // Default: "layouts"
}

// NewRenderer creates a renderer with the default directory layout.
func NewRenderer(filesystem fs.FS) *Renderer {
	return NewRendererWithConfig(filesystem, RendererConfig{})
}

// NewRendererWithConfig creates a renderer with custom directories.
func NewRendererWithConfig(filesystem fs.FS, cfg RendererConfig) *Renderer {
	if cfg.TemplateDir == "" {
		cfg.TemplateDir = "."
	}
	if cfg.LayoutDir == "" {
		cfg.LayoutDir = "layouts"
	}

	return &Renderer{
		fs:          filesystem,
		templateDir: cfg.TemplateDir,
		layoutDir:   cfg.LayoutDir,
		md:          goldmark.New(goldmark.WithExtensions(extension.Linkify, extension.Strikethrough)),
		templates:   make(map[string]*cachedTemplate),
		layouts:     make(map[string]*template.Template),
	}
}

// RenderResult contains the rendered output and the template's front matter.
type RenderResult struct {
	Metadata map[string]any
	HTML     string
	Text     string // Processed markdown, used as the plain text part
}

// Render executes templateName with data and wraps the result in layout.
func (r *Renderer) Render(layout, templateName string, data any) (*RenderResult, error) {
	cached, err := r.template(templateName)
	if err != nil {
		return nil, err
	}

	var markdown bytes.Buffer
	if err := cached.tmpl.Execute(&markdown, data); err != nil {
		return nil, fmt.Errorf("%w: execute %s: %v", ErrRenderFailed, templateName, err)
	}

	var body bytes.Buffer
	if err := r.md.Convert(markdown.Bytes(), &body); err != nil {
		return nil, fmt.Errorf("%w: convert markdown: %v", ErrRenderFailed, err)
	}

	layoutTmpl, err := r.layout(layout)
	if err != nil {
		return nil, err
	}

	var out bytes.Buffer
	if err := layoutTmpl.Execute(&out, map[string]any{
		"Content":  template.HTML(body.String()), //nolint:gosec // goldmark output with raw HTML disabled
		"Metadata": cached.metadata,
	}); err != nil {
		return nil, fmt.Errorf("%w: execute layout %s: %v", ErrRenderFailed, layout, err)
	}

	return &RenderResult{
		HTML:     out.String(),
		Text:     markdown.String(),
		Metadata: cached.metadata,
	}, nil
}

// MarkdownToHTML converts a markdown document to HTML without a layout.
func (r *Renderer) MarkdownToHTML(src string) (string, error) {
	var buf bytes.Buffer
	if err := r.md.Convert([]byte(src), &buf); err != nil {
		return "", fmt.Errorf("%w: convert markdown: %v", ErrRenderFailed, err)
	}
	return buf.String(), nil
}

func (r *Renderer) template(name string) (*cachedTemplate, error) {
	r.mu.RLock()
	cached, ok := r.templates[name]
	r.mu.RUnlock()
	if ok {
		return cached, nil
	}

	content, err := fs.ReadFile(r.fs, path.Join(r.templateDir, name))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrTemplateNotFound, name, err)
	}

	parsed, err := ParseTemplate(content)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrRenderFailed, name, err)
	}

	tmpl, err := texttemplate.New(name).Parse(parsed.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: parse %s: %v", ErrRenderFailed, name, err)
	}

	cached = &cachedTemplate{metadata: parsed.Metadata, tmpl: tmpl}

	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.templates[name]; ok {
		return existing, nil
	}
	r.templates[name] = cached
	return cached, nil
}

func (r *Renderer) layout(name string) (*template.Template, error) {
	r.mu.RLock()
	cached, ok := r.layouts[name]
	r.mu.RUnlock()
	if ok {
		return cached, nil
	}

	content, err := fs.ReadFile(r.fs, path.Join(r.layoutDir, name))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrLayoutNotFound, name, err)
	}

	tmpl, err := template.New(name).Parse(string(content))
	if err != nil {
		return nil, fmt.Errorf("%w: parse layout %s: %v", ErrRenderFailed, name, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.layouts[name]; ok {
		return existing, nil
	}
	r.layouts[name] = tmpl
	return tmpl, nil
}
