package formdef

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

const objectDoc = `{
	"Project:Requests": {
		"targetPage": "Project:Requests/List",
		"template": "request",
		"questions": [
			{"type": "text", "label": "Summary", "templateParam": "summary"}
		]
	},
	"Project:Requests/translated": {
		"targetPage": "Project:Requests/Translated",
		"template": "request-translated",
		"questions": [
			{"type": "text", "label": "Zusammenfassung", "templateParam": "summary"}
		]
	}
}`

func TestResolveObjectKeyMatch(t *testing.T) {
	t.Parallel()

	form, err := Resolve([]byte(objectDoc), Context{Page: "Project:Requests"})
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if form == nil {
		t.Fatal("expected a form definition")
	}
	if form.TargetPage != "Project:Requests/List" {
		t.Fatalf("unexpected target page %q", form.TargetPage)
	}
	if form.Template.Name != "request" {
		t.Fatalf("unexpected template %q", form.Template.Name)
	}
}

func TestResolveQualifierSuffixWinsOverBarePage(t *testing.T) {
	t.Parallel()

	form, err := Resolve([]byte(objectDoc), Context{Page: "Project:Requests", Qualifier: "translated"})
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if form == nil {
		t.Fatal("expected a form definition")
	}
	if form.Template.Name != "request-translated" {
		t.Fatalf("qualifier entry not selected, got template %q", form.Template.Name)
	}
}

func TestResolveQualifierFallsBackToBarePage(t *testing.T) {
	t.Parallel()

	form, err := Resolve([]byte(objectDoc), Context{Page: "Project:Requests", Qualifier: "missing"})
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if form == nil || form.Template.Name != "request" {
		t.Fatalf("expected fallback to bare page entry, got %+v", form)
	}
}

func TestResolveArrayFormPage(t *testing.T) {
	t.Parallel()

	doc := `[
		{
			"formPage": "Help:Apply",
			"targetPage": "Help:Apply/Answers",
			"template": "application",
			"questions": [{"type": "text", "label": "Name", "templateParam": "name"}]
		}
	]`
	form, err := Resolve([]byte(doc), Context{Page: "Help:Apply"})
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if form == nil || form.TargetPage != "Help:Apply/Answers" {
		t.Fatalf("array entry not matched: %+v", form)
	}
}

func TestResolveObjectValuesFormPageFallback(t *testing.T) {
	t.Parallel()

	doc := `{
		"anything": {
			"formPage": "Help:Apply",
			"targetPage": "Help:Apply/Answers",
			"template": "application",
			"questions": [{"type": "text", "label": "Name", "templateParam": "name"}]
		}
	}`
	form, err := Resolve([]byte(doc), Context{Page: "Help:Apply"})
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if form == nil {
		t.Fatal("expected formPage scan over object values to match")
	}
}

func TestResolveNoMatchReturnsNil(t *testing.T) {
	t.Parallel()

	form, err := Resolve([]byte(objectDoc), Context{Page: "Project:Other"})
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if form != nil {
		t.Fatalf("expected nil form for unmatched page, got %+v", form)
	}
}

func TestResolveMalformedDocument(t *testing.T) {
	t.Parallel()

	_, err := Resolve([]byte(`{"broken":`), Context{Page: "x"})
	var perr *ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("expected ParseError, got %v", err)
	}
}

func TestResolveAcceptsYAML(t *testing.T) {
	t.Parallel()

	doc := `
Project:Requests:
  targetPage: Project:Requests/List
  template: request
  questions:
    - type: text
      label: Summary
      templateParam: summary
`
	form, err := Resolve([]byte(doc), Context{Page: "Project:Requests"})
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if form == nil || form.Template.Name != "request" {
		t.Fatalf("YAML document not resolved: %+v", form)
	}
}

func TestResolveRejectsEntryWithoutTemplate(t *testing.T) {
	t.Parallel()

	doc := `{
		"Page": {
			"targetPage": "Page/List",
			"questions": []
		}
	}`
	_, err := Resolve([]byte(doc), Context{Page: "Page"})
	var perr *ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("expected ParseError for missing template, got %v", err)
	}
}

func TestResolveTemplateObjectWithSubst(t *testing.T) {
	t.Parallel()

	doc := `{
		"Page": {
			"targetPage": "Page/List",
			"template": {"name": "request", "subst": true},
			"questions": [{"type": "text", "label": "Summary", "templateParam": "summary"}]
		}
	}`
	form, err := Resolve([]byte(doc), Context{Page: "Page"})
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	want := TemplateRef{Name: "request", Subst: true}
	if diff := cmp.Diff(want, form.Template); diff != "" {
		t.Fatalf("template mismatch (-want +got):\n%s", diff)
	}
}

func TestContextKeys(t *testing.T) {
	t.Parallel()

	got := Context{Page: "A", Qualifier: "q"}.Keys()
	want := []string{"A/q", "A"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("keys mismatch (-want +got):\n%s", diff)
	}

	got = Context{Page: "A"}.Keys()
	if diff := cmp.Diff([]string{"A"}, got); diff != "" {
		t.Fatalf("keys mismatch (-want +got):\n%s", diff)
	}
}
