package formdef

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"

	"gopkg.in/yaml.v3"
)

// ParseError reports a malformed configuration document. Configuration-stage
// failures are terminal for the render attempt: callers log the diagnostic
// and render nothing.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("formdef: parse configuration: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// rawEntry mirrors one form definition as it appears on the wire.
type rawEntry struct {
	FormPage     string         `json:"formPage"`
	Title        string         `json:"title"`
	Instructions string         `json:"instructions"`
	TargetPage   string         `json:"targetPage"`
	Prepend      bool           `json:"prepend"`
	Template     rawTemplate    `json:"template"`
	EditSummary  string         `json:"editSummary"`
	Preview      string         `json:"preview"`
	PostSubmit   *rawPostSubmit `json:"postSubmit"`
	Questions    []rawQuestion  `json:"questions"`
}

// rawTemplate accepts either a bare template name or {"name": ..., "subst": ...}.
type rawTemplate struct {
	Name  string
	Subst bool
}

func (t *rawTemplate) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		t.Name = name
		t.Subst = false
		return nil
	}
	var obj struct {
		Name  string `json:"name"`
		Subst bool   `json:"subst"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("template must be a string or an object: %w", err)
	}
	t.Name = obj.Name
	t.Subst = obj.Subst
	return nil
}

// rawPostSubmit accepts exactly one of the action keys; the first non-empty
// one wins in the order page, redirect, message.
type rawPostSubmit struct {
	Page     string `json:"page"`
	Redirect string `json:"redirect"`
	Message  string `json:"message"`
}

func (p *rawPostSubmit) action() *PostSubmitAction {
	switch {
	case p == nil:
		return nil
	case p.Page != "":
		return &PostSubmitAction{Kind: PostSubmitPage, Target: p.Page}
	case p.Redirect != "":
		return &PostSubmitAction{Kind: PostSubmitRedirect, Target: p.Redirect}
	case p.Message != "":
		return &PostSubmitAction{Kind: PostSubmitMessage, Target: p.Message}
	default:
		return nil
	}
}

type rawQuestion struct {
	Type          string        `json:"type"`
	Label         string        `json:"label"`
	Text          string        `json:"text"`
	HTML          string        `json:"html"`
	Required      bool          `json:"required"`
	Options       []string      `json:"options"`
	Default       flexDefault   `json:"default"`
	TemplateParam string        `json:"templateParam"`
	ShowIf        *rawShowIf    `json:"showIf"`
	Preview       string        `json:"preview"`
}

// flexDefault accepts a scalar default or a list default (multi-select).
type flexDefault struct {
	Value  string
	List   []string
	IsList bool
}

func (d *flexDefault) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		d.List = list
		d.IsList = true
		return nil
	}
	var value string
	if err := json.Unmarshal(data, &value); err != nil {
		return fmt.Errorf("default must be a string or a list of strings: %w", err)
	}
	d.Value = value
	return nil
}

type rawShowIf struct {
	Field  string   `json:"field"`
	Equals string   `json:"equals"`
	AnyOf  []string `json:"anyOf"`
}

func (s *rawShowIf) rule() *VisibilityRule {
	if s == nil || s.Field == "" {
		return nil
	}
	values := s.AnyOf
	if len(values) == 0 {
		values = []string{s.Equals}
	}
	return &VisibilityRule{Field: s.Field, Values: values}
}

// Resolve parses a raw configuration document, selects the entry matching the
// supplied context, validates its shape, and builds the question model. It
// returns (nil, nil) when no entry matches the context: nothing to render.
func Resolve(raw []byte, ctx Context, opts ...ResolveOption) (*FormDefinition, error) {
	cfg := resolveConfig{builder: nil}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.builder == nil {
		cfg.builder = NewBuilder(WithBuilderLogger(cfg.logger))
	}

	doc, err := normalizeJSON(raw)
	if err != nil {
		return nil, &ParseError{Err: err}
	}

	entryBytes, ok, err := matchEntry(doc, ctx)
	if err != nil {
		return nil, &ParseError{Err: err}
	}
	if !ok {
		return nil, nil
	}

	if err := ValidateEntry(entryBytes); err != nil {
		return nil, &ParseError{Err: err}
	}

	var entry rawEntry
	if err := json.Unmarshal(entryBytes, &entry); err != nil {
		return nil, &ParseError{Err: err}
	}

	return cfg.builder.Build(entry)
}

type resolveConfig struct {
	builder *Builder
	logger  *slog.Logger
}

// ResolveOption customises Resolve.
type ResolveOption func(*resolveConfig)

// WithResolveLogger routes resolver and builder diagnostics to the given
// logger.
func WithResolveLogger(l *slog.Logger) ResolveOption {
	return func(cfg *resolveConfig) { cfg.logger = l }
}

// WithBuilder reuses an existing Builder so field identifiers stay unique
// across re-resolutions of the same form instance.
func WithBuilder(b *Builder) ResolveOption {
	return func(cfg *resolveConfig) { cfg.builder = b }
}

// normalizeJSON returns the document as JSON bytes, accepting YAML input as a
// superset the same way the schema loaders do.
func normalizeJSON(raw []byte) ([]byte, error) {
	if json.Valid(raw) {
		return raw, nil
	}
	var doc any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("document is neither valid JSON nor YAML: %w", err)
	}
	out, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// matchEntry locates the form entry for the context. Match order follows the
// source document shapes: exact object key (qualifier suffix tried first),
// then array entries carrying a formPage field, then object values carrying a
// formPage field.
func matchEntry(doc []byte, ctx Context) (json.RawMessage, bool, error) {
	keys := ctx.Keys()

	var object map[string]json.RawMessage
	if err := json.Unmarshal(doc, &object); err == nil {
		for _, key := range keys {
			if entry, ok := object[key]; ok {
				if !looksLikeObject(entry) {
					return nil, false, fmt.Errorf("entry %q is not an object", key)
				}
				return entry, true, nil
			}
		}
		return matchByFormPage(objectValues(object), keys)
	}

	var array []json.RawMessage
	if err := json.Unmarshal(doc, &array); err == nil {
		return matchByFormPage(array, keys)
	}

	return nil, false, fmt.Errorf("document root must be an object or an array")
}

func objectValues(object map[string]json.RawMessage) []json.RawMessage {
	names := make([]string, 0, len(object))
	for name := range object {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]json.RawMessage, 0, len(names))
	for _, name := range names {
		out = append(out, object[name])
	}
	return out
}

func matchByFormPage(entries []json.RawMessage, keys []string) (json.RawMessage, bool, error) {
	for _, key := range keys {
		for _, entry := range entries {
			var probe struct {
				FormPage string `json:"formPage"`
			}
			if err := json.Unmarshal(entry, &probe); err != nil {
				continue
			}
			if probe.FormPage != "" && probe.FormPage == key {
				return entry, true, nil
			}
		}
	}
	return nil, false, nil
}

func looksLikeObject(raw json.RawMessage) bool {
	for _, b := range raw {
		switch b {
		case ' ', '\t', '\n', '\r':
			continue
		case '{':
			return true
		default:
			return false
		}
	}
	return false
}
