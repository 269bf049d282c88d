// Package values is the single read path from live input state to a
// question's logical value. There is exactly one derivation rule per question
// kind; preview, validation, and submission all read through it, so the
// engine never holds its own copy of answers.
package values

import (
	"strings"

	"github.com/L235/formAssistant/pkg/formdef"
)

// InputState exposes the current raw control state of the rendering surface.
// Implementations derive answers fresh on every read; nothing is cached
// across input changes.
type InputState interface {
	// Text returns the raw text of a scalar input.
	Text(fieldID string) string
	// Selected returns the currently selected option labels of a choice
	// input, in selection order.
	Selected(fieldID string) []string
}

// Extract returns the question's current logical value as a single string:
// multi-select joins the selected option labels, the single-choice kinds
// yield the selected label or "", scalar kinds yield the trimmed text.
func Extract(q *formdef.Question, in InputState) string {
	if q == nil || !q.IsInput() || in == nil {
		return ""
	}
	switch q.Kind {
	case formdef.KindMultiSelect:
		return strings.Join(orderSelected(q.Options, in.Selected(q.ID)), ", ")
	case formdef.KindSingleSelect, formdef.KindExclusiveChoice:
		// Exactly one value even if the underlying control set somehow holds
		// multiple selections.
		selected := in.Selected(q.ID)
		if len(selected) == 0 {
			return ""
		}
		return selected[0]
	default:
		return strings.TrimSpace(in.Text(q.ID))
	}
}

// orderSelected filters the declared options down to the selected set so the
// joined value is deterministic regardless of click order.
func orderSelected(options, selected []string) []string {
	if len(selected) == 0 {
		return nil
	}
	chosen := make(map[string]struct{}, len(selected))
	for _, label := range selected {
		chosen[label] = struct{}{}
	}
	out := make([]string, 0, len(selected))
	for _, option := range options {
		if _, ok := chosen[option]; ok {
			out = append(out, option)
		}
	}
	return out
}

// Answers collects the current answer set: one entry per output-parameter
// bearing input question. The active filter restricts collection to the
// currently visible field set; a nil filter collects every input question.
func Answers(form *formdef.FormDefinition, in InputState, active func(fieldID string) bool) map[string]string {
	if form == nil {
		return nil
	}
	out := make(map[string]string)
	for _, q := range form.Questions {
		if !q.IsInput() || q.Param == "" {
			continue
		}
		if active != nil && !active(q.ID) {
			continue
		}
		out[q.Param] = Extract(q, in)
	}
	return out
}

// State is an in-memory InputState used by the terminal surface and by tests.
// Hidden questions keep their values; visibility only affects which values
// are collected, not what is stored here.
type State struct {
	texts    map[string]string
	selected map[string][]string
}

// NewState returns an empty State.
func NewState() *State {
	return &State{
		texts:    make(map[string]string),
		selected: make(map[string][]string),
	}
}

// SetText records the raw text of a scalar input.
func (s *State) SetText(fieldID, text string) {
	s.texts[fieldID] = text
}

// SetSelected records the selected option labels of a choice input.
func (s *State) SetSelected(fieldID string, labels []string) {
	s.selected[fieldID] = append([]string(nil), labels...)
}

// Text implements InputState.
func (s *State) Text(fieldID string) string {
	return s.texts[fieldID]
}

// Selected implements InputState.
func (s *State) Selected(fieldID string) []string {
	return s.selected[fieldID]
}

// Reset returns every input to its unfilled state.
func (s *State) Reset() {
	s.texts = make(map[string]string)
	s.selected = make(map[string][]string)
}

// ApplyDefaults seeds the state with each question's declared default value.
func (s *State) ApplyDefaults(form *formdef.FormDefinition) {
	if form == nil {
		return
	}
	for _, q := range form.Questions {
		if !q.IsInput() {
			continue
		}
		switch q.Kind {
		case formdef.KindMultiSelect:
			if len(q.Defaults) > 0 {
				s.SetSelected(q.ID, q.Defaults)
			}
		case formdef.KindSingleSelect, formdef.KindExclusiveChoice:
			if q.Default != "" {
				s.SetSelected(q.ID, []string{q.Default})
			}
		default:
			if q.Default != "" {
				s.SetText(q.ID, q.Default)
			}
		}
	}
}

var _ InputState = (*State)(nil)
