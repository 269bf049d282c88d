// Package store defines the document-store collaborator contract: reading a
// page's current content and applying exactly one prepend-or-append write per
// submission. The MediaWiki client and the local stores all satisfy it.
package store

import (
	"context"
	"errors"
	"fmt"
)

// WriteMode selects where the fragment lands relative to existing content.
type WriteMode int

const (
	// ModeAppend places the fragment after existing content (the default).
	ModeAppend WriteMode = iota
	// ModePrepend places the fragment before existing content.
	ModePrepend
)

// String returns the wire-ish name of the mode.
func (m WriteMode) String() string {
	if m == ModePrepend {
		return "prepend"
	}
	return "append"
}

// WriteRequest describes one write: the destination locator, the fragment
// text, the edit summary, and the write mode.
type WriteRequest struct {
	Target  string
	Text    string
	Summary string
	Mode    WriteMode
}

// PageStore is the document-store collaborator.
type PageStore interface {
	// ReadPage returns the page's current content. A missing page returns
	// ErrPageMissing.
	ReadPage(ctx context.Context, title string) (string, error)
	// WritePage applies the request's fragment to the target document.
	WritePage(ctx context.Context, req WriteRequest) error
}

// ErrPageMissing reports that the requested page does not exist.
var ErrPageMissing = errors.New("store: page does not exist")

// FetchError wraps a transport failure while reading configuration or page
// content. Configuration-stage fetch failures are terminal for the render
// attempt.
type FetchError struct {
	Title string
	Err   error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("store: fetch %q: %v", e.Title, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// WriteError wraps a failed document write. It is surfaced to the user
// persistently; form values are retained for retry.
type WriteError struct {
	Target string
	Err    error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("store: write %q: %v", e.Target, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// Apply combines existing content with the fragment per the write mode.
func Apply(existing, fragment string, mode WriteMode) string {
	if mode == ModePrepend {
		return fragment + existing
	}
	return existing + fragment
}
