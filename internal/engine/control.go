// Package engine implements the download engine: recursive content-tree
// traversal and resumable chunked file transfers with pause, cancel,
// throttle and retry controls.
package engine

import "sync/atomic"

// Per-file progress codes outside the 0-100 range.
const (
	// ProgressRetrying signals a failed attempt that will be retried.
	ProgressRetrying = -1

	// ProgressFailed signals a permanently failed transfer (retry budget
	// exhausted).
	ProgressFailed = -2
)

// Signal is a cooperative cancellation flag. The collaborator sets it, the
// engine polls it between folder children and between chunks. It is never
// preemptive: an in-flight read finishes before the signal is observed.
type Signal struct {
	flag atomic.Bool
}

// NewSignal returns an unset Signal.
func NewSignal() *Signal {
	return &Signal{}
}

// Set raises the signal.
func (s *Signal) Set() {
	s.flag.Store(true)
}

// IsSet reports whether the signal has been raised. Safe on a nil receiver.
func (s *Signal) IsSet() bool {
	return s != nil && s.flag.Load()
}

// PauseFunc reports whether the download should currently pause. It is
// polled, not event-driven.
type PauseFunc func() bool

// Callbacks is the engine's entire contract toward the surrounding task
// layer. Every field is optional; nil callbacks are skipped.
type Callbacks struct {
	// Progress receives the byte-level percentage of the file currently
	// transferring.
	Progress func(percent int)

	// FileProgress receives per-file progress keyed by destination path.
	// Percent is 0-100, ProgressRetrying or ProgressFailed; size is the
	// file's total size when known, 0 otherwise.
	FileProgress func(path string, percent int, size int64)

	// NameResolved receives the sanitized top-level name exactly once.
	NameResolved func(name string)

	// OverallProgress receives per-folder completion with the folder's
	// display name as context.
	OverallProgress func(percent int, folderLabel string)

	// Pause is polled before each chunk write; while it returns true the
	// transfer blocks.
	Pause PauseFunc

	// Cancel is polled between folder children and between chunks.
	Cancel *Signal
}

func (c Callbacks) progress(percent int) {
	if c.Progress != nil {
		c.Progress(percent)
	}
}

func (c Callbacks) fileProgress(path string, percent int, size int64) {
	if c.FileProgress != nil {
		c.FileProgress(path, percent, size)
	}
}

func (c Callbacks) nameResolved(name string) {
	if c.NameResolved != nil {
		c.NameResolved(name)
	}
}

func (c Callbacks) overallProgress(percent int, folderLabel string) {
	if c.OverallProgress != nil {
		c.OverallProgress(percent, folderLabel)
	}
}

func (c Callbacks) paused() bool {
	return c.Pause != nil && c.Pause()
}

func (c Callbacks) cancelled() bool {
	return c.Cancel.IsSet()
}
