// Package tui drives an interactive terminal session over a resolved form
// definition: prompts in declaration order, reactive visibility between
// answers, optional wikitext previews, and a confirmed single-write
// submission.
package tui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/L235/formAssistant/pkg/formdef"
	"github.com/L235/formAssistant/pkg/preview"
	"github.com/L235/formAssistant/pkg/store"
	"github.com/L235/formAssistant/pkg/submit"
	"github.com/L235/formAssistant/pkg/values"
	"github.com/L235/formAssistant/pkg/visibility"
	"github.com/L235/formAssistant/pkg/wikitext"
)

// Session fills one form over a prompt driver.
type Session struct {
	form     *formdef.FormDefinition
	driver   PromptDriver
	state    *values.State
	engine   *visibility.Engine
	pipeline *submit.Pipeline
	markup   preview.Renderer
	logger   *slog.Logger
	pageSize int
}

// Option customises a Session.
type Option func(*Session)

// WithDriver replaces the default survey-backed prompt driver.
func WithDriver(d PromptDriver) Option {
	return func(s *Session) {
		if d != nil {
			s.driver = d
		}
	}
}

// WithMarkupRenderer enables wikitext previews during the session.
func WithMarkupRenderer(r preview.Renderer) Option {
	return func(s *Session) {
		if r != nil {
			s.markup = r
		}
	}
}

// WithLogger routes session diagnostics to the given logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithPageSize caps how many select options are shown at once.
func WithPageSize(n int) Option {
	return func(s *Session) {
		if n > 0 {
			s.pageSize = n
		}
	}
}

// NewSession constructs a Session for the form, writing through pages.
func NewSession(form *formdef.FormDefinition, pages store.PageStore, opts ...Option) (*Session, error) {
	if form == nil {
		return nil, errors.New("tui: form definition is required")
	}
	state := values.NewState()
	state.ApplyDefaults(form)

	s := &Session{
		form:   form,
		driver: newSurveyDriver(),
		state:  state,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}

	engineOpts := []visibility.EngineOption{visibility.WithLogger(s.logger)}
	s.engine = visibility.NewEngine(form, s.state, engineOpts...)
	s.pipeline = submit.NewPipeline(form, s.state, s.engine, pages, submit.WithLogger(s.logger))
	return s, nil
}

// Run conducts the whole session: prompts, previews, confirmation, and the
// submission. The returned outcome is nil when the user backed out before
// submitting.
func (s *Session) Run(ctx context.Context, rctx formdef.Context) (*submit.Outcome, error) {
	if s.form.Title != "" {
		if err := s.driver.Info(ctx, "== "+s.form.Title+" =="); err != nil {
			return nil, err
		}
	}
	if s.form.Instructions != "" {
		if err := s.driver.Info(ctx, s.form.Instructions); err != nil {
			return nil, err
		}
	}

	if err := s.fill(ctx, rctx); err != nil {
		return nil, err
	}

	if s.form.Preview != formdef.PreviewNone {
		if err := s.offerFormPreview(ctx, rctx); err != nil {
			return nil, err
		}
	}

	confirmed, err := s.driver.Confirm(ctx, ConfirmConfig{Message: "Submit?", Default: true})
	if err != nil {
		return nil, err
	}
	if !confirmed {
		return nil, nil
	}

	outcome, err := s.pipeline.Submit(ctx, rctx)
	if err != nil {
		var verr *submit.ValidationError
		if errors.As(err, &verr) {
			_ = s.driver.Info(ctx, verr.Error())
		}
		return nil, err
	}
	s.reportOutcome(ctx, outcome)
	return outcome, nil
}

// fill prompts every visible question. Answers can reveal questions earlier
// in declaration order, so passes repeat until one completes with nothing
// left to ask.
func (s *Session) fill(ctx context.Context, rctx formdef.Context) error {
	answered := make(map[string]struct{})
	for {
		prompted := false
		for i := range s.form.Questions {
			q := s.form.Questions[i]
			if !q.IsInput() {
				if _, done := answered[blockKey(i)]; !done {
					answered[blockKey(i)] = struct{}{}
					if err := s.showBlock(ctx, q); err != nil {
						return err
					}
				}
				continue
			}
			if _, done := answered[q.ID]; done {
				continue
			}
			if !s.engine.Visible(q.ID) {
				continue
			}
			if err := s.prompt(ctx, q, rctx); err != nil {
				return err
			}
			answered[q.ID] = struct{}{}
			s.engine.Recompute(q.ID)
			prompted = true
		}
		if !prompted {
			return nil
		}
	}
}

func blockKey(index int) string {
	return fmt.Sprintf("block:%d", index)
}

func (s *Session) showBlock(ctx context.Context, q *formdef.Question) error {
	switch q.Kind {
	case formdef.KindHeading:
		return s.driver.Info(ctx, "=== "+q.Text+" ===")
	case formdef.KindStatic:
		return s.driver.Info(ctx, q.Text)
	default:
		return nil
	}
}

func (s *Session) prompt(ctx context.Context, q *formdef.Question, rctx formdef.Context) error {
	switch q.Kind {
	case formdef.KindText:
		resp, err := s.driver.Input(ctx, InputConfig{Message: q.Label, Default: q.Default})
		if err != nil {
			return err
		}
		s.state.SetText(q.ID, resp)
	case formdef.KindMultilineText:
		resp, err := s.driver.TextArea(ctx, TextAreaConfig{Message: q.Label, Default: q.Default})
		if err != nil {
			return err
		}
		s.state.SetText(q.ID, resp)
	case formdef.KindSingleSelect:
		idx, err := s.driver.Select(ctx, SelectConfig{
			Message:      q.Label,
			Options:      q.Options,
			DefaultIndex: indexOf(q.Options, q.Default),
			PageSize:     s.pageSize,
		})
		if err != nil {
			return err
		}
		if idx >= 0 && idx < len(q.Options) {
			s.state.SetSelected(q.ID, []string{q.Options[idx]})
		}
	case formdef.KindMultiSelect:
		indices, err := s.driver.MultiSelect(ctx, SelectConfig{
			Message:  q.Label,
			Options:  q.Options,
			Defaults: indicesOf(q.Options, q.Defaults),
			PageSize: s.pageSize,
		})
		if err != nil {
			return err
		}
		s.state.SetSelected(q.ID, valuesFromIndices(q.Options, indices))
	case formdef.KindExclusiveChoice:
		idx, err := s.driver.Select(ctx, SelectConfig{
			Message:      q.Label,
			Options:      q.Options,
			DefaultIndex: indexOf(q.Options, q.Default),
			PageSize:     s.pageSize,
		})
		if err != nil {
			return err
		}
		if idx >= 0 && idx < len(q.Options) {
			s.state.SetSelected(q.ID, []string{q.Options[idx]})
		}
	}

	if q.Preview == formdef.PreviewButton && s.markup != nil {
		return s.offerFieldPreview(ctx, q, rctx)
	}
	return nil
}

func (s *Session) offerFieldPreview(ctx context.Context, q *formdef.Question, rctx formdef.Context) error {
	want, err := s.driver.Confirm(ctx, ConfirmConfig{Message: "Preview this answer?", Default: false})
	if err != nil {
		return err
	}
	if !want {
		return nil
	}
	return s.showPreview(ctx, values.Extract(q, s.state), rctx)
}

func (s *Session) offerFormPreview(ctx context.Context, rctx formdef.Context) error {
	want, err := s.driver.Confirm(ctx, ConfirmConfig{Message: "Preview the submission?", Default: true})
	if err != nil {
		return err
	}
	if !want {
		return nil
	}
	answers := values.Answers(s.form, s.state, s.engine.Visible)
	return s.showPreview(ctx, wikitext.BuildFragment(s.form, answers), rctx)
}

// showPreview renders text through the markup collaborator when one is
// configured; failures and the no-renderer case fall back to the raw text.
func (s *Session) showPreview(ctx context.Context, text string, rctx formdef.Context) error {
	if strings.TrimSpace(text) == "" {
		return s.driver.Info(ctx, "(nothing to preview)")
	}
	if s.markup == nil {
		return s.driver.Info(ctx, text)
	}
	rendered, err := s.markup.RenderMarkup(ctx, text, rctx.Page)
	if err != nil {
		s.logger.Warn("preview render failed", "error", err)
		return s.driver.Info(ctx, text)
	}
	return s.driver.Info(ctx, rendered)
}

func (s *Session) reportOutcome(ctx context.Context, outcome *submit.Outcome) {
	switch outcome.Action.Kind {
	case formdef.PostSubmitMessage:
		_ = s.driver.Info(ctx, outcome.Action.Target)
	case formdef.PostSubmitPage, formdef.PostSubmitRedirect:
		_ = s.driver.Info(ctx, "Submitted. See "+outcome.Action.Target)
	default:
		_ = s.driver.Info(ctx, "Submitted to "+outcome.Target+".")
		if outcome.ResetForm {
			s.state.Reset()
			s.state.ApplyDefaults(s.form)
		}
	}
}
