package visibility

import (
	"log/slog"
	"sync"

	"github.com/L235/formAssistant/pkg/formdef"
	"github.com/L235/formAssistant/pkg/values"
)

// binding is one resolved rule: the controlled question and the input
// question whose value drives it.
type binding struct {
	rule         formdef.VisibilityRule
	controllerID string
}

// Transition reports a question whose visibility changed during a
// recomputation. The rendering surface uses it to enable or disable inputs;
// values are preserved across toggles.
type Transition struct {
	FieldID string
	Visible bool
}

// Engine tracks the visible/hidden state of every rule-bearing question in a
// form. Rules are resolved against the form's indices once, at attach time: a
// rule whose controller cannot be found in the same form is reported and the
// question treated as always visible.
type Engine struct {
	mu        sync.Mutex
	form      *formdef.FormDefinition
	inputs    values.InputState
	evaluator Evaluator
	logger    *slog.Logger

	bindings   map[string]binding // controlled field ID -> resolved rule
	controlled map[string][]string
	state      map[string]bool // field ID -> visible
}

// EngineOption customises an Engine.
type EngineOption func(*Engine)

// WithEvaluator replaces the default equality/membership evaluator.
func WithEvaluator(e Evaluator) EngineOption {
	return func(engine *Engine) {
		if e != nil {
			engine.evaluator = e
		}
	}
}

// WithLogger routes unresolved-rule warnings to the given logger.
func WithLogger(l *slog.Logger) EngineOption {
	return func(engine *Engine) {
		if l != nil {
			engine.logger = l
		}
	}
}

// NewEngine attaches the form's visibility rules and computes every
// question's initial state from the current input values.
func NewEngine(form *formdef.FormDefinition, inputs values.InputState, opts ...EngineOption) *Engine {
	engine := &Engine{
		form:       form,
		inputs:     inputs,
		evaluator:  DefaultEvaluator(),
		bindings:   make(map[string]binding),
		controlled: make(map[string][]string),
		state:      make(map[string]bool),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(engine)
		}
	}
	if engine.logger == nil {
		engine.logger = slog.Default()
	}

	for _, q := range form.InputQuestions() {
		engine.state[q.ID] = true
		if q.Rule == nil {
			continue
		}
		controller := resolveController(form, q.Rule.Field)
		if controller == nil || !controller.IsInput() {
			engine.logger.Warn("visibility rule controller not found; treating question as always visible",
				"field", q.ID, "controller", q.Rule.Field)
			continue
		}
		engine.bindings[q.ID] = binding{rule: *q.Rule, controllerID: controller.ID}
		engine.controlled[controller.ID] = append(engine.controlled[controller.ID], q.ID)
	}

	engine.mu.Lock()
	defer engine.mu.Unlock()
	for controlledID, b := range engine.bindings {
		engine.state[controlledID] = engine.evalLocked(b)
	}
	return engine
}

// resolveController looks a controller up by output-parameter key first, then
// by internal field identifier.
func resolveController(form *formdef.FormDefinition, ref string) *formdef.Question {
	if q := form.QuestionByParam(ref); q != nil {
		return q
	}
	return form.QuestionByID(ref)
}

func (e *Engine) evalLocked(b binding) bool {
	controller := e.form.QuestionByID(b.controllerID)
	return e.evaluator.Eval(b.rule, values.Extract(controller, e.inputs))
}

// Recompute re-evaluates every rule controlled by the changed field and
// returns the transitions that occurred. It is a pure synchronous function of
// current input state; calling it with a field that controls nothing returns
// no transitions.
func (e *Engine) Recompute(changedFieldID string) []Transition {
	e.mu.Lock()
	defer e.mu.Unlock()

	var transitions []Transition
	for _, controlledID := range e.controlled[changedFieldID] {
		b := e.bindings[controlledID]
		next := e.evalLocked(b)
		if next == e.state[controlledID] {
			continue
		}
		e.state[controlledID] = next
		transitions = append(transitions, Transition{FieldID: controlledID, Visible: next})
	}
	return transitions
}

// Visible reports whether a question is currently active. Questions without
// rules, and questions whose rules did not resolve, are always visible.
func (e *Engine) Visible(fieldID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	visible, ok := e.state[fieldID]
	if !ok {
		return true
	}
	return visible
}

// ActiveQuestions returns the currently visible input questions in
// declaration order. This is the field set used by required-field validation
// and by submission's output-parameter collection.
func (e *Engine) ActiveQuestions() []*formdef.Question {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []*formdef.Question
	for _, q := range e.form.InputQuestions() {
		if visible, ok := e.state[q.ID]; !ok || visible {
			out = append(out, q)
		}
	}
	return out
}
