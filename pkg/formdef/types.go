package formdef

import "strings"

// QuestionKind enumerates the supported question variants. The wire names
// match the configuration schema; legacy aliases are accepted during
// decoding (see aliasKind).
type QuestionKind string

const (
	KindHeading         QuestionKind = "heading"
	KindStatic          QuestionKind = "static"
	KindText            QuestionKind = "text"
	KindMultilineText   QuestionKind = "textarea"
	KindSingleSelect    QuestionKind = "dropdown"
	KindMultiSelect     QuestionKind = "checkbox"
	KindExclusiveChoice QuestionKind = "radio"
)

// PreviewMode controls how a preview surface refreshes. Unrecognized values
// normalize to PreviewNone.
type PreviewMode string

const (
	PreviewNone   PreviewMode = "none"
	PreviewButton PreviewMode = "button"
	PreviewLive   PreviewMode = "live"
)

// NormalizePreviewMode maps arbitrary configuration input onto a supported
// preview mode, defaulting to PreviewNone.
func NormalizePreviewMode(raw string) PreviewMode {
	switch PreviewMode(strings.ToLower(strings.TrimSpace(raw))) {
	case PreviewButton:
		return PreviewButton
	case PreviewLive:
		return PreviewLive
	default:
		return PreviewNone
	}
}

// TemplateRef names the template the submission fragment invokes. When Subst
// is set the invocation requests one-time irreversible expansion
// ("subst:<name>") instead of substitution-preserving semantics.
type TemplateRef struct {
	Name  string
	Subst bool
}

// VisibilityRule makes a question conditional on another question's current
// value. Field references the controller by output-parameter key or internal
// field identifier; the rule matches when the controller's extracted value
// equals any entry in Values.
type VisibilityRule struct {
	Field  string
	Values []string
}

// Matches reports whether the controller value satisfies the rule.
func (r VisibilityRule) Matches(controllerValue string) bool {
	for _, want := range r.Values {
		if controllerValue == want {
			return true
		}
	}
	return false
}

// PostSubmitKind enumerates the actions available after a successful write.
type PostSubmitKind string

const (
	// PostSubmitNotify is the default: show a transient success notice and
	// reset all inputs.
	PostSubmitNotify PostSubmitKind = "notify"
	// PostSubmitPage navigates to a named wiki page.
	PostSubmitPage PostSubmitKind = "page"
	// PostSubmitRedirect navigates to an explicit URL.
	PostSubmitRedirect PostSubmitKind = "redirect"
	// PostSubmitMessage replaces the rendered form with a rendered static
	// message.
	PostSubmitMessage PostSubmitKind = "message"
)

// PostSubmitAction describes what happens once the write succeeds. Target
// holds the page name, redirect URL, or message text depending on Kind.
type PostSubmitAction struct {
	Kind   PostSubmitKind
	Target string
}

// Question is one entry in a form's ordered question list. Heading and static
// variants are display-only; the input variants carry the interactive
// attributes. ID is assigned at build time (`field_<n>`, declaration order)
// for input questions and is unique within a FormDefinition.
type Question struct {
	ID       string
	Kind     QuestionKind
	Label    string
	Text     string // heading/static display content
	Required bool
	Options  []string
	Default  string
	Defaults []string // multi-select only
	Param    string   // output-parameter key; empty means not submitted
	Rule     *VisibilityRule
	Preview  PreviewMode
}

// IsInput reports whether the question collects a value from the user.
func (q *Question) IsInput() bool {
	switch q.Kind {
	case KindText, KindMultilineText, KindSingleSelect, KindMultiSelect, KindExclusiveChoice:
		return true
	default:
		return false
	}
}

// FormDefinition is the validated root document for one context key. It is
// immutable once built; the lookup indices are populated by the Builder.
type FormDefinition struct {
	Title        string
	Instructions string
	TargetPage   string
	Prepend      bool
	Template     TemplateRef
	EditSummary  string
	PostSubmit   *PostSubmitAction
	Preview      PreviewMode
	Questions    []*Question

	byParam map[string]*Question
	byID    map[string]*Question
}

// QuestionByParam returns the input question carrying the given
// output-parameter key, or nil.
func (f *FormDefinition) QuestionByParam(key string) *Question {
	return f.byParam[key]
}

// QuestionByID returns the question with the given internal field identifier,
// or nil.
func (f *FormDefinition) QuestionByID(id string) *Question {
	return f.byID[id]
}

// InputQuestions returns the interactive questions in declaration order.
func (f *FormDefinition) InputQuestions() []*Question {
	out := make([]*Question, 0, len(f.Questions))
	for _, q := range f.Questions {
		if q.IsInput() {
			out = append(out, q)
		}
	}
	return out
}

// Context identifies the render pass: which page the form is attached to,
// which user is acting, and a per-instance ID used for diagnostics. It is
// passed explicitly wherever page or user identity is needed.
type Context struct {
	Page       string
	Qualifier  string
	Username   string
	InstanceID string
}

// Keys returns the context-key candidates in match order: the page with the
// qualifier suffix first, then the bare page name.
func (c Context) Keys() []string {
	page := strings.TrimSpace(c.Page)
	qualifier := strings.TrimSpace(c.Qualifier)
	if qualifier != "" {
		return []string{page + "/" + qualifier, page}
	}
	return []string{page}
}
