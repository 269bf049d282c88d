package tui

import "errors"

// ErrAborted signals the user aborted the session (e.g., Ctrl+C).
var ErrAborted = errors.New("tui: aborted")
