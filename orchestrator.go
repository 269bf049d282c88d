// Package formassistant interprets declarative form configurations and drives
// form sessions against a wiki: resolve the configuration for a page, render
// the form as HTML or fill it interactively, preview wikitext answers, and
// submit the result as a single prepend or append edit.
package formassistant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	theme "github.com/goliatone/go-theme"
	"github.com/google/uuid"

	"github.com/L235/formAssistant/pkg/formdef"
	"github.com/L235/formAssistant/pkg/preview"
	html "github.com/L235/formAssistant/pkg/renderers/html"
	"github.com/L235/formAssistant/pkg/renderers/tui"
	"github.com/L235/formAssistant/pkg/store"
	"github.com/L235/formAssistant/pkg/submit"
	"github.com/L235/formAssistant/pkg/values"
	"github.com/L235/formAssistant/pkg/visibility"
)

// Orchestrator wires the configuration source, page store, and markup
// renderer into the resolve → render/fill → submit sequence.
type Orchestrator struct {
	source       Source
	pages        store.PageStore
	markup       preview.Renderer
	builder      *formdef.Builder
	logger       *slog.Logger
	themeCfg     *theme.RendererConfig
	previewDelay time.Duration
}

// Option customises an Orchestrator.
type Option func(*Orchestrator)

// WithSource sets where the configuration document is fetched from.
func WithSource(s Source) Option {
	return func(o *Orchestrator) {
		if s != nil {
			o.source = s
		}
	}
}

// WithPageStore sets the store submissions are written through and, when the
// source reads a wiki page, configurations are read from.
func WithPageStore(pages store.PageStore) Option {
	return func(o *Orchestrator) {
		if pages != nil {
			o.pages = pages
		}
	}
}

// WithMarkupRenderer enables previews and rich instruction blocks by
// supplying a wikitext-to-markup collaborator.
func WithMarkupRenderer(r preview.Renderer) Option {
	return func(o *Orchestrator) {
		if r != nil {
			o.markup = r
		}
	}
}

// WithLogger routes diagnostics to the given logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithThemeSelector resolves the named theme and variant through a go-theme
// selector and threads the resulting renderer configuration into HTML output.
// Selection failures are deferred to RenderHTML.
func WithThemeSelector(selector theme.ThemeSelector, name, variant string) Option {
	return func(o *Orchestrator) {
		if selector == nil {
			return
		}
		sel, err := selector.Select(name, variant)
		if err != nil {
			o.themeCfg = nil
			return
		}
		o.themeCfg = rendererConfigFromSelection(sel)
	}
}

// WithPreviewDelay overrides the debounce period used by preview controllers
// created through the orchestrator.
func WithPreviewDelay(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.previewDelay = d
		}
	}
}

// New constructs an Orchestrator applying any provided options.
func New(options ...Option) *Orchestrator {
	o := &Orchestrator{
		builder: formdef.NewBuilder(),
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	return o
}

// Resolve fetches the configuration and resolves it against the runtime
// context. It returns (nil, nil) when no entry matches the context's page. A
// context without an instance id is assigned a fresh one.
func (o *Orchestrator) Resolve(ctx context.Context, rctx *formdef.Context) (*formdef.FormDefinition, error) {
	if o.source == nil {
		return nil, errors.New("formassistant: configuration source is required")
	}
	if rctx.InstanceID == "" {
		rctx.InstanceID = uuid.NewString()
	}

	raw, err := o.source.Fetch(ctx)
	if err != nil {
		return nil, err
	}

	form, err := formdef.Resolve(raw, *rctx,
		formdef.WithResolveLogger(o.logger),
		formdef.WithBuilder(o.builder),
	)
	if err != nil {
		return nil, err
	}
	if form == nil {
		o.logger.Debug("no form configured for page", "page", rctx.Page, "qualifier", rctx.Qualifier)
		return nil, nil
	}
	return form, nil
}

// RenderHTML resolves the form for the context and renders it as a static
// HTML document. It returns (nil, nil) when no entry matches.
func (o *Orchestrator) RenderHTML(ctx context.Context, rctx formdef.Context, options ...html.Option) ([]byte, error) {
	form, err := o.Resolve(ctx, &rctx)
	if err != nil || form == nil {
		return nil, err
	}

	state := values.NewState()
	state.ApplyDefaults(form)
	engine := visibility.NewEngine(form, state, visibility.WithLogger(o.logger))

	opts := []html.Option{
		html.WithMarkupRenderer(o.markup),
		html.WithTheme(o.themeCfg),
	}
	opts = append(opts, options...)
	renderer, err := html.New(opts...)
	if err != nil {
		return nil, err
	}
	return renderer.Render(ctx, form, engine, rctx)
}

// Fill resolves the form for the context and conducts an interactive
// terminal session through to submission. It returns (nil, nil) when no
// entry matches or the user backed out before submitting.
func (o *Orchestrator) Fill(ctx context.Context, rctx formdef.Context, options ...tui.Option) (*submit.Outcome, error) {
	form, err := o.Resolve(ctx, &rctx)
	if err != nil || form == nil {
		return nil, err
	}
	if o.pages == nil {
		return nil, errors.New("formassistant: page store is required to submit")
	}

	opts := []tui.Option{
		tui.WithMarkupRenderer(o.markup),
		tui.WithLogger(o.logger),
	}
	opts = append(opts, options...)
	session, err := tui.NewSession(form, o.pages, opts...)
	if err != nil {
		return nil, fmt.Errorf("formassistant: start session: %w", err)
	}
	return session.Run(ctx, rctx)
}

// PreviewController builds a debounced preview controller over the
// orchestrator's markup renderer. Rendered results flow to consumer.
func (o *Orchestrator) PreviewController(consumer preview.Consumer) (*preview.Controller, error) {
	if o.markup == nil {
		return nil, errors.New("formassistant: markup renderer is required for previews")
	}
	opts := []preview.Option{preview.WithLogger(o.logger)}
	if o.previewDelay > 0 {
		opts = append(opts, preview.WithDelay(o.previewDelay))
	}
	return preview.NewController(o.markup, consumer, opts...), nil
}
