package values

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/L235/formAssistant/pkg/formdef"
)

func TestExtractTrimsScalarText(t *testing.T) {
	t.Parallel()

	q := &formdef.Question{ID: "field_0", Kind: formdef.KindText}
	state := NewState()
	state.SetText("field_0", "  hello world \n")

	if got := Extract(q, state); got != "hello world" {
		t.Fatalf("Extract = %q", got)
	}
}

func TestExtractMultiSelectJoinsInDeclarationOrder(t *testing.T) {
	t.Parallel()

	q := &formdef.Question{
		ID:      "field_0",
		Kind:    formdef.KindMultiSelect,
		Options: []string{"red", "green", "blue"},
	}
	state := NewState()
	state.SetSelected("field_0", []string{"blue", "red"})

	if got := Extract(q, state); got != "red, blue" {
		t.Fatalf("Extract = %q, want declaration-order join", got)
	}
}

func TestExtractSingleSelectReadsSelection(t *testing.T) {
	t.Parallel()

	q := &formdef.Question{
		ID:      "field_0",
		Kind:    formdef.KindSingleSelect,
		Options: []string{"other", "usual"},
	}
	state := NewState()

	if got := Extract(q, state); got != "" {
		t.Fatalf("empty selection should extract to empty string, got %q", got)
	}

	// Dropdown state is written through SetSelected, both by defaults and by
	// the rendering surfaces; extraction must read the same channel.
	state.SetSelected("field_0", []string{"usual"})
	if got := Extract(q, state); got != "usual" {
		t.Fatalf("Extract = %q, want selected label", got)
	}
}

func TestExtractDefaultedDropdown(t *testing.T) {
	t.Parallel()

	doc := `{
		"Page": {
			"targetPage": "Page/List",
			"template": "request",
			"questions": [
				{"type": "dropdown", "label": "Topic", "options": ["a", "b"], "default": "b", "templateParam": "topic"}
			]
		}
	}`
	form, err := formdef.Resolve([]byte(doc), formdef.Context{Page: "Page"})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	state := NewState()
	state.ApplyDefaults(form)
	if got := Extract(form.Questions[0], state); got != "b" {
		t.Fatalf("defaulted dropdown should extract its default, got %q", got)
	}
}

func TestExtractExclusiveChoice(t *testing.T) {
	t.Parallel()

	q := &formdef.Question{
		ID:      "field_0",
		Kind:    formdef.KindExclusiveChoice,
		Options: []string{"yes", "no"},
	}
	state := NewState()

	if got := Extract(q, state); got != "" {
		t.Fatalf("empty selection should extract to empty string, got %q", got)
	}

	state.SetSelected("field_0", []string{"no", "yes"})
	if got := Extract(q, state); got != "no" {
		t.Fatalf("expected first selected label, got %q", got)
	}
}

func TestExtractNonInputIsEmpty(t *testing.T) {
	t.Parallel()

	q := &formdef.Question{Kind: formdef.KindHeading, Text: "About"}
	if got := Extract(q, NewState()); got != "" {
		t.Fatalf("heading extraction should be empty, got %q", got)
	}
}

func buildForm(t *testing.T) *formdef.FormDefinition {
	t.Helper()
	doc := `{
		"Page": {
			"targetPage": "Page/List",
			"template": "request",
			"questions": [
				{"type": "text", "label": "Name", "templateParam": "name"},
				{"type": "text", "label": "Notes"},
				{"type": "text", "label": "Reason", "templateParam": "reason"}
			]
		}
	}`
	form, err := formdef.Resolve([]byte(doc), formdef.Context{Page: "Page"})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	return form
}

func TestAnswersCollectsParamBearingQuestions(t *testing.T) {
	t.Parallel()

	form := buildForm(t)
	state := NewState()
	state.SetText("field_0", "Alice")
	state.SetText("field_1", "scratch")
	state.SetText("field_2", "testing")

	got := Answers(form, state, nil)
	want := map[string]string{"name": "Alice", "reason": "testing"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("answers mismatch (-want +got):\n%s", diff)
	}
}

func TestAnswersHonorsActiveFilter(t *testing.T) {
	t.Parallel()

	form := buildForm(t)
	state := NewState()
	state.SetText("field_0", "Alice")
	state.SetText("field_2", "testing")

	got := Answers(form, state, func(fieldID string) bool { return fieldID != "field_2" })
	want := map[string]string{"name": "Alice"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("filtered answers mismatch (-want +got):\n%s", diff)
	}
}

func TestStateResetAndDefaults(t *testing.T) {
	t.Parallel()

	doc := `{
		"Page": {
			"targetPage": "Page/List",
			"template": "request",
			"questions": [
				{"type": "text", "label": "Name", "default": "anon", "templateParam": "name"},
				{"type": "checkbox", "label": "Tags", "options": ["x", "y"], "default": ["y"], "templateParam": "tags"},
				{"type": "dropdown", "label": "Topic", "options": ["a", "b"], "default": "b", "templateParam": "topic"}
			]
		}
	}`
	form, err := formdef.Resolve([]byte(doc), formdef.Context{Page: "Page"})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	state := NewState()
	state.ApplyDefaults(form)

	if got := state.Text("field_0"); got != "anon" {
		t.Fatalf("text default not applied: %q", got)
	}
	if diff := cmp.Diff([]string{"y"}, state.Selected("field_1")); diff != "" {
		t.Fatalf("multi-select default mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"b"}, state.Selected("field_2")); diff != "" {
		t.Fatalf("dropdown default mismatch (-want +got):\n%s", diff)
	}

	state.Reset()
	if state.Text("field_0") != "" || state.Selected("field_1") != nil {
		t.Fatal("Reset should clear all values")
	}
}
