package formdef

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// Builder turns raw configuration entries into validated FormDefinitions. It
// owns the field-identifier counter: identifiers are assigned in declaration
// order and are never reused across re-resolutions performed through the same
// Builder, matching the lifetime of one form instance.
type Builder struct {
	next   int
	logger *slog.Logger
}

// BuilderOption customises a Builder.
type BuilderOption func(*Builder)

// WithBuilderLogger routes dropped-question warnings to the given logger.
func WithBuilderLogger(l *slog.Logger) BuilderOption {
	return func(b *Builder) {
		if l != nil {
			b.logger = l
		}
	}
}

// NewBuilder constructs a Builder with the supplied options.
func NewBuilder(opts ...BuilderOption) *Builder {
	b := &Builder{}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	if b.logger == nil {
		b.logger = slog.Default()
	}
	return b
}

// Build assembles the immutable FormDefinition from a decoded entry.
// Unsupported question kinds are dropped with a warning; the rest of the form
// still renders.
func (b *Builder) Build(entry rawEntry) (*FormDefinition, error) {
	if strings.TrimSpace(entry.Template.Name) == "" {
		return nil, &ParseError{Err: errors.New("entry is missing a template name")}
	}
	if strings.TrimSpace(entry.TargetPage) == "" {
		return nil, &ParseError{Err: errors.New("entry is missing a target page")}
	}

	form := &FormDefinition{
		Title:        entry.Title,
		Instructions: entry.Instructions,
		TargetPage:   entry.TargetPage,
		Prepend:      entry.Prepend,
		Template:     TemplateRef(entry.Template),
		EditSummary:  entry.EditSummary,
		PostSubmit:   entry.PostSubmit.action(),
		Preview:      NormalizePreviewMode(entry.Preview),
		byParam:      make(map[string]*Question),
		byID:         make(map[string]*Question),
	}

	for _, raw := range entry.Questions {
		question, ok := b.buildQuestion(raw)
		if !ok {
			continue
		}
		form.Questions = append(form.Questions, question)
		if question.ID != "" {
			form.byID[question.ID] = question
		}
		if question.Param != "" {
			if _, exists := form.byParam[question.Param]; exists {
				b.logger.Warn("duplicate output-parameter key; keeping the first",
					"param", question.Param, "field", question.ID)
				question.Param = ""
				continue
			}
			form.byParam[question.Param] = question
		}
	}

	return form, nil
}

func (b *Builder) buildQuestion(raw rawQuestion) (*Question, bool) {
	kind, ok := aliasKind(raw.Type)
	if !ok {
		b.logger.Warn("unsupported question kind dropped", "kind", raw.Type, "label", raw.Label)
		return nil, false
	}

	question := &Question{
		Kind:     kind,
		Label:    raw.Label,
		Required: raw.Required,
		Options:  raw.Options,
		Param:    strings.TrimSpace(raw.TemplateParam),
		Rule:     raw.ShowIf.rule(),
		Preview:  NormalizePreviewMode(raw.Preview),
	}

	switch kind {
	case KindHeading:
		question.Text = raw.Text
		return question, true
	case KindStatic:
		text := raw.HTML
		if text == "" {
			text = raw.Text
		}
		question.Text = text
		return question, true
	}

	question.ID = fmt.Sprintf("field_%d", b.next)
	b.next++

	if kind == KindMultiSelect {
		switch {
		case raw.Default.IsList:
			question.Defaults = raw.Default.List
		case raw.Default.Value != "":
			question.Defaults = []string{raw.Default.Value}
		}
	} else {
		question.Default = raw.Default.Value
		if raw.Default.IsList && len(raw.Default.List) > 0 {
			question.Default = raw.Default.List[0]
		}
	}

	return question, true
}

func aliasKind(raw string) (QuestionKind, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "heading":
		return KindHeading, true
	case "static", "html":
		return KindStatic, true
	case "text":
		return KindText, true
	case "textarea", "multilinetext":
		return KindMultilineText, true
	case "dropdown", "singleselect":
		return KindSingleSelect, true
	case "checkbox", "multiselect":
		return KindMultiSelect, true
	case "radio", "exclusivechoice":
		return KindExclusiveChoice, true
	default:
		return "", false
	}
}
