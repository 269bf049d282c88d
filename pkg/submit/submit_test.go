package submit

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/L235/formAssistant/pkg/formdef"
	"github.com/L235/formAssistant/pkg/store"
	"github.com/L235/formAssistant/pkg/values"
	"github.com/L235/formAssistant/pkg/visibility"
)

// fakeStore records writes and can be told to fail or block.
type fakeStore struct {
	mu      sync.Mutex
	writes  []store.WriteRequest
	failErr error
	block   chan struct{}
}

func (s *fakeStore) ReadPage(context.Context, string) (string, error) {
	return "", store.ErrPageMissing
}

func (s *fakeStore) WritePage(_ context.Context, req store.WriteRequest) error {
	if s.block != nil {
		<-s.block
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failErr != nil {
		return s.failErr
	}
	s.writes = append(s.writes, req)
	return nil
}

func (s *fakeStore) recorded() []store.WriteRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]store.WriteRequest(nil), s.writes...)
}

const pipelineDoc = `{
	"Page": {
		"targetPage": "User talk:{{USERNAME}}",
		"template": "request",
		"questions": [
			{"type": "dropdown", "label": "Topic", "options": ["other", "usual"], "templateParam": "topic"},
			{"type": "text", "label": "Which topic", "required": true, "templateParam": "which",
				"showIf": {"field": "topic", "equals": "other"}},
			{"type": "text", "label": "Reason", "required": true, "templateParam": "reason"}
		]
	}
}`

func newPipeline(t *testing.T) (*Pipeline, *values.State, *visibility.Engine, *fakeStore) {
	t.Helper()
	form, err := formdef.Resolve([]byte(pipelineDoc), formdef.Context{Page: "Page"})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	state := values.NewState()
	engine := visibility.NewEngine(form, state)
	pages := &fakeStore{}
	return NewPipeline(form, state, engine, pages), state, engine, pages
}

func TestSubmitRejectsMissingVisibleRequiredFields(t *testing.T) {
	t.Parallel()

	pipeline, state, engine, pages := newPipeline(t)
	state.SetSelected("field_0", []string{"other"})
	engine.Recompute("field_0")

	_, err := pipeline.Submit(context.Background(), formdef.Context{Username: "Alice"})
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if len(verr.Labels) != 2 {
		t.Fatalf("expected both missing labels, got %v", verr.Labels)
	}
	if !strings.Contains(verr.Error(), "Which topic") || !strings.Contains(verr.Error(), "Reason") {
		t.Fatalf("error should name the offending labels: %v", verr)
	}
	if len(pages.recorded()) != 0 {
		t.Fatal("validation failure must not reach the store")
	}
	if pipeline.State() != StateIdle {
		t.Fatalf("pipeline should return to idle, got %v", pipeline.State())
	}
}

func TestSubmitIgnoresHiddenRequiredFields(t *testing.T) {
	t.Parallel()

	pipeline, state, _, pages := newPipeline(t)
	// "Which topic" stays hidden: topic is not "other".
	state.SetSelected("field_0", []string{"usual"})
	state.SetText("field_2", "because")

	outcome, err := pipeline.Submit(context.Background(), formdef.Context{Username: "Alice"})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	writes := pages.recorded()
	if len(writes) != 1 {
		t.Fatalf("expected exactly one write, got %d", len(writes))
	}
	if writes[0].Target != "User talk:Alice" {
		t.Fatalf("locator not resolved: %q", writes[0].Target)
	}
	if strings.Contains(writes[0].Text, "which=") {
		t.Fatalf("hidden field must not be collected: %q", writes[0].Text)
	}
	if !strings.Contains(writes[0].Text, "|topic=usual") || !strings.Contains(writes[0].Text, "|reason=because") {
		t.Fatalf("fragment missing answers: %q", writes[0].Text)
	}
	if writes[0].Mode != store.ModeAppend {
		t.Fatalf("default mode should be append, got %v", writes[0].Mode)
	}

	if outcome.Action.Kind != formdef.PostSubmitNotify || !outcome.ResetForm {
		t.Fatalf("default outcome should notify and reset, got %+v", outcome)
	}
	if outcome.Target != "User talk:Alice" {
		t.Fatalf("outcome target mismatch: %q", outcome.Target)
	}
}

func TestSubmitPrependMode(t *testing.T) {
	t.Parallel()

	doc := strings.Replace(pipelineDoc, `"template": "request",`, `"template": "request", "prepend": true,`, 1)
	form, err := formdef.Resolve([]byte(doc), formdef.Context{Page: "Page"})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	state := values.NewState()
	state.SetSelected("field_0", []string{"usual"})
	state.SetText("field_2", "because")
	engine := visibility.NewEngine(form, state)
	pages := &fakeStore{}
	pipeline := NewPipeline(form, state, engine, pages)

	if _, err := pipeline.Submit(context.Background(), formdef.Context{Username: "Alice"}); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	writes := pages.recorded()
	if writes[0].Mode != store.ModePrepend {
		t.Fatalf("expected prepend mode, got %v", writes[0].Mode)
	}
	if writes[0].Summary == "" {
		t.Fatal("summary must be set")
	}
}

func TestSubmitWriteFailureRetainsValuesForRetry(t *testing.T) {
	t.Parallel()

	pipeline, state, _, pages := newPipeline(t)
	pages.failErr = errors.New("network down")
	state.SetSelected("field_0", []string{"usual"})
	state.SetText("field_2", "because")

	_, err := pipeline.Submit(context.Background(), formdef.Context{Username: "Alice"})
	if err == nil {
		t.Fatal("expected write failure")
	}
	if pipeline.State() != StateFailed {
		t.Fatalf("expected failed state, got %v", pipeline.State())
	}
	if state.Text("field_2") != "because" {
		t.Fatal("values must be retained after a failed write")
	}

	// A retry from the failed state is allowed and succeeds.
	pages.mu.Lock()
	pages.failErr = nil
	pages.mu.Unlock()
	if _, err := pipeline.Submit(context.Background(), formdef.Context{Username: "Alice"}); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if pipeline.State() != StateIdle {
		t.Fatalf("expected idle after retry, got %v", pipeline.State())
	}
}

func TestSubmitRefusesConcurrentSubmission(t *testing.T) {
	t.Parallel()

	pipeline, state, _, pages := newPipeline(t)
	pages.block = make(chan struct{})
	state.SetSelected("field_0", []string{"usual"})
	state.SetText("field_2", "because")

	done := make(chan error, 1)
	go func() {
		_, err := pipeline.Submit(context.Background(), formdef.Context{Username: "Alice"})
		done <- err
	}()

	// Wait until the first submission is in the writing stage.
	for pipeline.State() != StateWriting {
		time.Sleep(time.Millisecond)
	}

	_, err := pipeline.Submit(context.Background(), formdef.Context{Username: "Alice"})
	if !errors.Is(err, ErrInFlight) {
		t.Fatalf("expected ErrInFlight, got %v", err)
	}

	close(pages.block)
	if err := <-done; err != nil {
		t.Fatalf("first submission: %v", err)
	}
}

func TestSubmitConfiguredPostSubmitAction(t *testing.T) {
	t.Parallel()

	doc := `{
		"Page": {
			"targetPage": "Page/List",
			"template": "request",
			"postSubmit": {"page": "Page/Thanks"},
			"questions": [{"type": "text", "label": "Name", "templateParam": "name"}]
		}
	}`
	form, err := formdef.Resolve([]byte(doc), formdef.Context{Page: "Page"})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	state := values.NewState()
	state.SetText("field_0", "Alice")
	pipeline := NewPipeline(form, state, visibility.NewEngine(form, state), &fakeStore{})

	outcome, err := pipeline.Submit(context.Background(), formdef.Context{Username: "Alice"})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if outcome.Action.Kind != formdef.PostSubmitPage || outcome.Action.Target != "Page/Thanks" {
		t.Fatalf("configured action not propagated: %+v", outcome.Action)
	}
	if outcome.ResetForm {
		t.Fatal("configured actions do not reset the form")
	}
}
