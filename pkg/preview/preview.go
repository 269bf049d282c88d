// Package preview coordinates debounced asynchronous render requests and
// routes results to a consumer. Superseded requests are suppressed at the
// application stage: a result is applied only if its sequence number is the
// latest issued for its target.
package preview

import (
	"context"
	"html"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/microcosm-cc/bluemonday"
)

// Renderer is the external safe-markup collaborator: it turns a raw text
// fragment into display-ready markup, optionally using a destination-context
// hint. On failure the controller falls back to escaped-literal display.
type Renderer interface {
	RenderMarkup(ctx context.Context, text, pageHint string) (string, error)
}

// RendererFunc adapts a function into a Renderer.
type RendererFunc func(ctx context.Context, text, pageHint string) (string, error)

// RenderMarkup delegates to the underlying function.
func (fn RendererFunc) RenderMarkup(ctx context.Context, text, pageHint string) (string, error) {
	return fn(ctx, text, pageHint)
}

// TargetKind distinguishes the two preview surfaces.
type TargetKind string

const (
	// TargetForm is the whole-form preview: the fragment builder's output
	// rendered against the resolved destination context.
	TargetForm TargetKind = "form"
	// TargetField is a per-field preview of that field's current raw text.
	TargetField TargetKind = "field"
)

// Target identifies one display surface. FieldID is empty for the whole-form
// target.
type Target struct {
	Kind    TargetKind
	FieldID string
}

// Consumer receives the display-ready markup for a target. It is invoked at
// most once per issued request, and never for a superseded one.
type Consumer func(target Target, markup string)

var (
	displayPolicyOnce sync.Once
	displayPolicy     *bluemonday.Policy
)

// displaySanitizer strips anything the render collaborator should not have
// produced before the markup reaches a display surface.
func displaySanitizer() *bluemonday.Policy {
	displayPolicyOnce.Do(func() {
		displayPolicy = bluemonday.UGCPolicy()
	})
	return displayPolicy
}

// EscapedFallback returns an HTML-escaped rendering of the literal input,
// preserving line breaks. It is the mandatory fallback when the render
// collaborator fails: raw text is never injected.
func EscapedFallback(text string) string {
	escaped := html.EscapeString(strings.ReplaceAll(text, "\r\n", "\n"))
	return strings.ReplaceAll(escaped, "\n", "<br>")
}

// Controller schedules render requests for preview targets. Live-mode edits
// are debounced: a new change within the quiet period discards the pending
// request and restarts the timer. Each issued request carries a per-target
// sequence number; only the most recent request's result is applied.
type Controller struct {
	renderer Renderer
	consumer Consumer
	delay    time.Duration
	logger   *slog.Logger

	mu      sync.Mutex
	timers  map[Target]*time.Timer
	seq     map[Target]uint64
	closed  bool
	pending sync.WaitGroup
}

// Option customises a Controller.
type Option func(*Controller)

// WithDelay overrides the live-mode quiet period.
func WithDelay(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.delay = d
		}
	}
}

// WithLogger routes render-failure diagnostics to the given logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

const defaultDelay = 500 * time.Millisecond

// NewController constructs a Controller that renders through the given
// collaborator and delivers results to the consumer.
func NewController(renderer Renderer, consumer Consumer, opts ...Option) *Controller {
	c := &Controller{
		renderer: renderer,
		consumer: consumer,
		delay:    defaultDelay,
		timers:   make(map[Target]*time.Timer),
		seq:      make(map[Target]uint64),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c
}

// Schedule queues a debounced render request for the target (live mode). An
// earlier pending request for the same target is discarded and the quiet
// period restarts.
func (c *Controller) Schedule(ctx context.Context, target Target, text, pageHint string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	if timer, ok := c.timers[target]; ok {
		timer.Stop()
	}
	c.timers[target] = time.AfterFunc(c.delay, func() {
		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			return
		}
		delete(c.timers, target)
		seq := c.issueLocked(target)
		c.mu.Unlock()
		c.render(ctx, target, seq, text, pageHint)
	})
}

// RenderNow issues a render request immediately (button mode), reflecting the
// form's value at this instant. It supersedes any pending or in-flight
// request for the same target.
func (c *Controller) RenderNow(ctx context.Context, target Target, text, pageHint string) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	if timer, ok := c.timers[target]; ok {
		timer.Stop()
		delete(c.timers, target)
	}
	seq := c.issueLocked(target)
	c.mu.Unlock()
	c.render(ctx, target, seq, text, pageHint)
}

// issueLocked assigns the next sequence number for a target. Callers must
// hold the mutex.
func (c *Controller) issueLocked(target Target) uint64 {
	c.seq[target]++
	c.pending.Add(1)
	return c.seq[target]
}

// render performs the collaborator call off the calling goroutine and applies
// the result only if no newer request has been issued for the target.
func (c *Controller) render(ctx context.Context, target Target, seq uint64, text, pageHint string) {
	go func() {
		defer c.pending.Done()

		markup, err := c.renderer.RenderMarkup(ctx, text, pageHint)
		if err != nil {
			c.logger.Warn("preview render failed; falling back to escaped literal",
				"target", string(target.Kind), "field", target.FieldID, "error", err)
			markup = EscapedFallback(text)
		} else {
			markup = displaySanitizer().Sanitize(markup)
		}

		c.mu.Lock()
		stale := c.closed || c.seq[target] != seq
		c.mu.Unlock()
		if stale {
			return
		}
		c.consumer(target, markup)
	}()
}

// Close cancels pending debounce timers and waits for in-flight requests to
// settle. Results arriving after Close are discarded.
func (c *Controller) Close() {
	c.mu.Lock()
	c.closed = true
	for target, timer := range c.timers {
		timer.Stop()
		delete(c.timers, target)
	}
	c.mu.Unlock()
	c.pending.Wait()
}
