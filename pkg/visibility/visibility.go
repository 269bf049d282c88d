// Package visibility keeps the rendered field set consistent with answered
// values: every rule-bearing question holds a visible/hidden state that is
// recomputed synchronously whenever its controlling field changes.
package visibility

import "github.com/L235/formAssistant/pkg/formdef"

// Evaluator decides whether a rule matches the controller's current value.
// The default evaluator implements equality and set membership; callers can
// inject their own for custom matching.
type Evaluator interface {
	Eval(rule formdef.VisibilityRule, controllerValue string) bool
}

// EvaluatorFunc adapts a function into an Evaluator.
type EvaluatorFunc func(rule formdef.VisibilityRule, controllerValue string) bool

// Eval delegates to the underlying function.
func (fn EvaluatorFunc) Eval(rule formdef.VisibilityRule, controllerValue string) bool {
	return fn(rule, controllerValue)
}

// DefaultEvaluator matches when the controller's value equals the expected
// value or is a member of the expected set.
func DefaultEvaluator() Evaluator {
	return EvaluatorFunc(func(rule formdef.VisibilityRule, controllerValue string) bool {
		return rule.Matches(controllerValue)
	})
}
