// Package html renders a resolved form definition into a static HTML
// document: a titled container, ordered field blocks with inputs of the
// declared kinds, a submit control, and preview containers where configured.
package html

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"

	"github.com/flosch/pongo2/v6"
	gotemplatepkg "github.com/goliatone/go-template"
	theme "github.com/goliatone/go-theme"
	"github.com/microcosm-cc/bluemonday"

	"github.com/L235/formAssistant/pkg/formdef"
	"github.com/L235/formAssistant/pkg/preview"
	"github.com/L235/formAssistant/pkg/visibility"
)

// Option customises the renderer before construction.
type Option func(*config)

type config struct {
	templateFS fs.FS
	markup     preview.Renderer
	theme      *theme.RendererConfig
}

// WithTemplatesFS supplies an alternate template bundle via fs.FS.
func WithTemplatesFS(files fs.FS) Option {
	return func(cfg *config) {
		if files != nil {
			cfg.templateFS = files
		}
	}
}

// WithTemplatesDir loads templates from a directory on disk.
func WithTemplatesDir(path string) Option {
	return func(cfg *config) {
		if path != "" {
			cfg.templateFS = os.DirFS(path)
		}
	}
}

// WithMarkupRenderer supplies the safe-markup collaborator used for the
// instructions fragment and static blocks. Without one, rich blocks fall
// back to escaped-literal display.
func WithMarkupRenderer(r preview.Renderer) Option {
	return func(cfg *config) {
		if r != nil {
			cfg.markup = r
		}
	}
}

// WithTheme threads a resolved go-theme renderer configuration into the
// rendered chrome: its tokens become CSS custom properties on the container.
func WithTheme(cfg *theme.RendererConfig) Option {
	return func(c *config) {
		c.theme = cfg
	}
}

// WithGoTemplateOptions exists for compatibility with go-template based
// engines and is currently a no-op.
func WithGoTemplateOptions(_ ...gotemplatepkg.Option) Option {
	return func(*config) {}
}

// Renderer renders forms with a pongo2 template set.
type Renderer struct {
	templates *pongo2.TemplateSet
	markup    preview.Renderer
	theme     *theme.RendererConfig
	sanitizer *bluemonday.Policy
}

// New constructs a Renderer applying any provided options.
func New(options ...Option) (*Renderer, error) {
	cfg := config{templateFS: TemplatesFS()}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(&cfg)
	}

	set := pongo2.NewSet("formassistant-html", pongo2.NewFSLoader(cfg.templateFS))
	return &Renderer{
		templates: set,
		markup:    cfg.markup,
		theme:     cfg.theme,
		sanitizer: bluemonday.UGCPolicy(),
	}, nil
}

// questionView is the template-facing projection of one question.
type questionView struct {
	ID        string
	Kind      string
	Label     string
	Required  bool
	Options   []string
	Default   string
	Defaults  []string
	Param     string
	Hidden    bool
	Preview   string
	BlockHTML string // heading text or rendered static markup
}

// Render produces the HTML document for the form. The visibility engine
// determines which questions start hidden and disabled; pass nil to render
// everything visible.
func (r *Renderer) Render(ctx context.Context, form *formdef.FormDefinition, engine *visibility.Engine, rctx formdef.Context) ([]byte, error) {
	if form == nil {
		return nil, fmt.Errorf("html: form definition is required")
	}

	questions := make([]questionView, 0, len(form.Questions))
	for _, q := range form.Questions {
		view := questionView{
			ID:       q.ID,
			Kind:     string(q.Kind),
			Label:    q.Label,
			Required: q.Required,
			Options:  q.Options,
			Default:  q.Default,
			Defaults: q.Defaults,
			Param:    q.Param,
			Preview:  string(q.Preview),
		}
		switch q.Kind {
		case formdef.KindHeading:
			view.BlockHTML = preview.EscapedFallback(q.Text)
		case formdef.KindStatic:
			view.BlockHTML = r.renderRich(ctx, q.Text, rctx.Page)
		default:
			if engine != nil && !engine.Visible(q.ID) {
				view.Hidden = true
			}
		}
		questions = append(questions, view)
	}

	data := pongo2.Context{
		"title":             form.Title,
		"instructions_html": r.renderRich(ctx, form.Instructions, rctx.Page),
		"questions":         questions,
		"preview_mode":      string(form.Preview),
		"theme_class":       themeClass(r.theme),
		"theme_style":       cssVarsStyle(r.theme),
	}

	tpl, err := r.templates.FromFile("templates/form.html.tpl")
	if err != nil {
		return nil, fmt.Errorf("html: load form template: %w", err)
	}
	out, err := tpl.ExecuteBytes(data)
	if err != nil {
		return nil, fmt.Errorf("html: execute form template: %w", err)
	}
	return out, nil
}

// renderRich passes a rich-text block through the markup collaborator,
// sanitizes the result, and falls back to escaped-literal display on failure.
func (r *Renderer) renderRich(ctx context.Context, text, pageHint string) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}
	if r.markup == nil {
		return preview.EscapedFallback(text)
	}
	markup, err := r.markup.RenderMarkup(ctx, text, pageHint)
	if err != nil {
		return preview.EscapedFallback(text)
	}
	return r.sanitizer.Sanitize(markup)
}

func themeClass(cfg *theme.RendererConfig) string {
	if cfg == nil || cfg.Theme == "" {
		return ""
	}
	class := "theme-" + cfg.Theme
	if cfg.Variant != "" {
		class += " theme-" + cfg.Theme + "--" + cfg.Variant
	}
	return class
}

// cssVarsStyle flattens the theme's CSS custom properties into an inline
// style attribute value, sorted for deterministic output.
func cssVarsStyle(cfg *theme.RendererConfig) string {
	if cfg == nil || len(cfg.CSSVars) == 0 {
		return ""
	}
	keys := make([]string, 0, len(cfg.CSSVars))
	for key := range cfg.CSSVars {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	var b strings.Builder
	for _, key := range keys {
		b.WriteString(key)
		b.WriteString(":")
		b.WriteString(cfg.CSSVars[key])
		b.WriteString(";")
	}
	return b.String()
}
