package tui

import (
	"sync/atomic"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/ulukaya/gofiledl/internal/engine"
)

// Runner bridges the engine and the TUI: engine callbacks become Bubbletea
// messages, key presses become the pause predicate and cancel signal the
// engine polls.
type Runner struct {
	program *tea.Program
	cancel  *engine.Signal
	paused  atomic.Bool
}

// NewRunner creates a runner wired to the given cancel signal.
func NewRunner(cancel *engine.Signal) *Runner {
	r := &Runner{cancel: cancel}

	model := NewModel()
	model.SetControls(r.togglePause, cancel.Set)
	r.program = tea.NewProgram(model, tea.WithAltScreen())

	return r
}

// Run blocks until the TUI exits.
func (r *Runner) Run() error {
	_, err := r.program.Run()
	return err
}

// Callbacks returns the engine callback set backed by this runner.
func (r *Runner) Callbacks() engine.Callbacks {
	return engine.Callbacks{
		NameResolved: func(name string) {
			r.program.Send(NameMsg{Name: name})
		},
		FileProgress: func(path string, percent int, size int64) {
			r.program.Send(FileMsg{Path: path, Percent: percent, Size: size})
		},
		OverallProgress: func(percent int, label string) {
			r.program.Send(FolderMsg{Percent: percent, Label: label})
		},
		Pause:  r.paused.Load,
		Cancel: r.cancel,
	}
}

// Finish tells the TUI the run ended and shuts it down.
func (r *Runner) Finish(err error) {
	r.program.Send(DoneMsg{Err: err})
}

func (r *Runner) togglePause() bool {
	for {
		old := r.paused.Load()
		if r.paused.CompareAndSwap(old, !old) {
			return !old
		}
	}
}
