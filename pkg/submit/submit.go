// Package submit orchestrates the submission pipeline: validate the visible
// field set, build the destination locator and fragment, issue exactly one
// write, and hand the configured post-submit action back to the surface.
package submit

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/L235/formAssistant/pkg/formdef"
	"github.com/L235/formAssistant/pkg/store"
	"github.com/L235/formAssistant/pkg/values"
	"github.com/L235/formAssistant/pkg/visibility"
	"github.com/L235/formAssistant/pkg/wikitext"
)

// State is the pipeline's lifecycle position. Validating and Writing are the
// busy states during which a second submission is refused; the surface keeps
// the submit control disabled while busy.
type State int

const (
	StateIdle State = iota
	StateValidating
	StateWriting
	StateFailed
)

// String names the state for diagnostics.
func (s State) String() string {
	switch s {
	case StateValidating:
		return "validating"
	case StateWriting:
		return "writing"
	case StateFailed:
		return "failed"
	default:
		return "idle"
	}
}

// ErrInFlight reports that a submission is already running. Only one may be
// in flight at a time.
var ErrInFlight = errors.New("submit: a submission is already in flight")

// ValidationError lists every visible required question whose extracted value
// is empty. It is raised before any network effect.
type ValidationError struct {
	Labels []string
}

func (e *ValidationError) Error() string {
	return "please complete required fields: " + strings.Join(e.Labels, ", ")
}

// Outcome describes what the surface should do after a successful write.
type Outcome struct {
	// Action is the configured post-submit action; when the configuration
	// sets none it is the default notify action.
	Action formdef.PostSubmitAction
	// ResetForm is set for the default action: show a transient success
	// notice and return every input to its unfilled state.
	ResetForm bool
	// Target is the resolved destination locator the fragment was written to.
	Target string
}

// Pipeline coordinates one form's submissions.
type Pipeline struct {
	form   *formdef.FormDefinition
	inputs values.InputState
	engine *visibility.Engine
	pages  store.PageStore
	logger *slog.Logger

	mu    sync.Mutex
	state State
}

// Option customises a Pipeline.
type Option func(*Pipeline)

// WithLogger routes submission diagnostics to the given logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// NewPipeline constructs a Pipeline over the form's live state.
func NewPipeline(form *formdef.FormDefinition, inputs values.InputState, engine *visibility.Engine, pages store.PageStore, opts ...Option) *Pipeline {
	p := &Pipeline{
		form:   form,
		inputs: inputs,
		engine: engine,
		pages:  pages,
		state:  StateIdle,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	return p
}

// State reports the pipeline's current lifecycle position.
func (p *Pipeline) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Submit runs the pipeline once: validation against the visible field set,
// then exactly one write. Validation failures abort before any network
// effect and report every offending label. Write failures leave form values
// intact for retry. In every case the pipeline ends ready to accept another
// submission.
func (p *Pipeline) Submit(ctx context.Context, rctx formdef.Context) (*Outcome, error) {
	p.mu.Lock()
	if p.state == StateValidating || p.state == StateWriting {
		p.mu.Unlock()
		return nil, ErrInFlight
	}
	p.state = StateValidating
	p.mu.Unlock()

	active := p.engine.ActiveQuestions()
	activeSet := make(map[string]struct{}, len(active))
	var missing []string
	for _, q := range active {
		activeSet[q.ID] = struct{}{}
		if q.Required && values.Extract(q, p.inputs) == "" {
			missing = append(missing, q.Label)
		}
	}
	if len(missing) > 0 {
		p.setState(StateIdle)
		return nil, &ValidationError{Labels: missing}
	}

	answers := values.Answers(p.form, p.inputs, func(fieldID string) bool {
		_, ok := activeSet[fieldID]
		return ok
	})
	target := wikitext.ResolveTarget(p.form.TargetPage, rctx.Username, answers)
	fragment := wikitext.BuildFragment(p.form, answers)
	mode := store.ModeAppend
	if p.form.Prepend {
		mode = store.ModePrepend
	}

	p.setState(StateWriting)
	err := p.pages.WritePage(ctx, store.WriteRequest{
		Target:  target,
		Text:    fragment,
		Summary: wikitext.Summary(p.form),
		Mode:    mode,
	})
	if err != nil {
		p.setState(StateFailed)
		p.logger.Error("submission write failed", "target", target, "error", err)
		return nil, err
	}

	p.setState(StateIdle)
	outcome := &Outcome{Target: target}
	if p.form.PostSubmit != nil {
		outcome.Action = *p.form.PostSubmit
	} else {
		outcome.Action = formdef.PostSubmitAction{Kind: formdef.PostSubmitNotify}
		outcome.ResetForm = true
	}
	return outcome, nil
}

func (p *Pipeline) setState(s State) {
	p.mu.Lock()
	p.state = s
	p.mu.Unlock()
}
