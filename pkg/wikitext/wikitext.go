// Package wikitext builds the destination-document fragment from collected
// answers and resolves placeholder variables in destination locators. Both
// operations are pure functions of the form definition and the answer set.
package wikitext

import (
	"regexp"
	"strings"

	"github.com/L235/formAssistant/pkg/formdef"
)

// paramEscaper encodes HTML-special and template-special characters so a
// value can never break out of the surrounding invocation syntax. Embedded
// line breaks become a single safe escape sequence; the render collaborator
// unescapes entities when the fragment is displayed.
var paramEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&#34;",
	"'", "&#39;",
	"{", "&#123;",
	"|", "&#124;",
	"}", "&#125;",
	"\r\n", "&#10;",
	"\n", "&#10;",
)

// EscapeParam returns the escaped form of a template parameter value.
func EscapeParam(value string) string {
	return paramEscaper.Replace(value)
}

// BuildFragment emits the template invocation for the current answers: one
// |key=value segment per output-parameter-bearing input question, in
// declaration order, wrapped in the configured template name and surrounded
// by newlines. A subst-tagged template requests one-time irreversible
// expansion instead of substitution-preserving semantics.
func BuildFragment(form *formdef.FormDefinition, answers map[string]string) string {
	var b strings.Builder
	name := form.Template.Name
	if form.Template.Subst {
		name = "subst:" + name
	}
	b.WriteString("\n{{")
	b.WriteString(name)
	for _, q := range form.Questions {
		if !q.IsInput() || q.Param == "" {
			continue
		}
		value, ok := answers[q.Param]
		if !ok {
			continue
		}
		b.WriteString("|")
		b.WriteString(q.Param)
		b.WriteString("=")
		b.WriteString(EscapeParam(value))
	}
	b.WriteString("}}\n")
	return b.String()
}

var (
	usernamePattern = regexp.MustCompile(`\{\{USERNAME\}\}`)
	fieldPattern    = regexp.MustCompile(`\{\{FIELD:([^}]+)\}\}`)
)

// ResolveTarget substitutes destination-locator placeholders: {{USERNAME}}
// becomes the acting user's identity and {{FIELD:<key>}} becomes that key's
// current answer. A field reference with no answer is left verbatim so a
// malformed reference stays visible instead of producing a plausible-looking
// but wrong destination.
func ResolveTarget(target, username string, answers map[string]string) string {
	resolved := usernamePattern.ReplaceAllString(target, username)
	return fieldPattern.ReplaceAllStringFunc(resolved, func(match string) string {
		key := fieldPattern.FindStringSubmatch(match)[1]
		if value, ok := answers[key]; ok && value != "" {
			return value
		}
		return match
	})
}

// DefaultSummary is the system-generated edit summary used when the
// configuration does not set one.
func DefaultSummary(prepend bool) string {
	if prepend {
		return "Prepend answers via [[User:L235/formAssistant.js|formAssistant]]"
	}
	return "Append answers via [[User:L235/formAssistant.js|formAssistant]]"
}

// Summary returns the configured edit summary or the default for the form's
// write mode.
func Summary(form *formdef.FormDefinition) string {
	if strings.TrimSpace(form.EditSummary) != "" {
		return form.EditSummary
	}
	return DefaultSummary(form.Prepend)
}
