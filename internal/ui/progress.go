// Package ui renders download progress to a terminal without taking over
// the whole screen, for runs where the interactive TUI is switched off.
package ui

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/ulukaya/gofiledl/internal/engine"
)

// Style selects how progress is rendered.
type Style string

const (
	StyleBar     Style = "bar"     // in-place progress bar per file
	StyleMinimal Style = "minimal" // one line per state change
	StyleJSON    Style = "json"    // one JSON object per line, for scripting
)

// ANSI codes
const (
	colorReset  = "\033[0m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorBold   = "\033[1m"
	clearLine   = "\033[2K\r"
)

// PrinterOption configures a Printer.
type PrinterOption func(*Printer)

// WithOutput sets the output writer.
func WithOutput(w io.Writer) PrinterOption {
	return func(p *Printer) { p.out = w }
}

// WithWidth sets the progress bar width.
func WithWidth(width int) PrinterOption {
	return func(p *Printer) {
		if width > 0 {
			p.width = width
		}
	}
}

// WithStyle selects the render style.
func WithStyle(style Style) PrinterOption {
	return func(p *Printer) { p.style = style }
}

// WithNoColor disables colored output.
func WithNoColor(noColor bool) PrinterOption {
	return func(p *Printer) { p.noColor = noColor }
}

// Printer renders engine callbacks as terminal output. Its methods match
// the engine callback signatures so it can be wired directly.
type Printer struct {
	mu      sync.Mutex
	out     io.Writer
	width   int
	style   Style
	noColor bool
	inline  bool // an unfinished bar line is on screen
	failed  map[string]bool
}

// NewPrinter creates a Printer writing to stdout by default.
func NewPrinter(opts ...PrinterOption) *Printer {
	p := &Printer{
		out:    os.Stdout,
		width:  30,
		style:  StyleBar,
		failed: make(map[string]bool),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Callbacks returns an engine callback set backed by this printer.
func (p *Printer) Callbacks() engine.Callbacks {
	return engine.Callbacks{
		NameResolved:    p.NameResolved,
		FileProgress:    p.FileProgress,
		OverallProgress: p.OverallProgress,
	}
}

// NameResolved announces the top-level content name.
func (p *Printer) NameResolved(name string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.style == StyleJSON {
		fmt.Fprintf(p.out, `{"event":"name","name":%q}`+"\n", name)
		return
	}
	fmt.Fprintf(p.out, "Downloading %s\n", p.color(colorBold, name))
}

// FileProgress renders one file's progress. The negative codes from the
// engine become retry and failure lines.
func (p *Printer) FileProgress(path string, percent int, size int64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	name := filepath.Base(path)

	if p.style == StyleJSON {
		fmt.Fprintf(p.out, `{"event":"file","path":%q,"percent":%d,"size":%d}`+"\n",
			path, percent, size)
		return
	}

	switch {
	case percent == engine.ProgressRetrying:
		p.endInline()
		fmt.Fprintf(p.out, "%s %s\n", p.color(colorYellow, "↻"), name+" retrying")
	case percent == engine.ProgressFailed:
		p.failed[path] = true
		p.endInline()
		fmt.Fprintf(p.out, "%s %s\n", p.color(colorYellow, "✗"), p.color(colorBold, name)+" failed")
	case percent >= 100:
		// The trailing 100 means the file was processed, not that it
		// succeeded; the failure line already told the story.
		if p.failed[path] {
			return
		}
		p.endInline()
		fmt.Fprintf(p.out, "%s %s (%s)\n",
			p.color(colorGreen, "✓"), p.color(colorBold, name), FormatBytes(size))
	case p.style == StyleMinimal:
		// Minimal style stays quiet between the endpoints
	default:
		fmt.Fprintf(p.out, "%s%s %s %3d%%", clearLine, name, p.renderBar(percent), percent)
		p.inline = true
	}
}

// OverallProgress renders folder-level completion.
func (p *Printer) OverallProgress(percent int, label string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.style == StyleJSON {
		fmt.Fprintf(p.out, `{"event":"folder","label":%q,"percent":%d}`+"\n", label, percent)
		return
	}
	if percent >= 100 {
		p.endInline()
		fmt.Fprintf(p.out, "%s folder %s\n", p.color(colorCyan, "▸"), p.color(colorBold, label))
	}
}

// endInline terminates a pending in-place bar line. Callers hold the lock.
func (p *Printer) endInline() {
	if p.inline {
		fmt.Fprint(p.out, clearLine)
		p.inline = false
	}
}

func (p *Printer) renderBar(percent int) string {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	filled := p.width * percent / 100
	bar := strings.Repeat("━", filled) + strings.Repeat("─", p.width-filled)
	return p.color(colorGreen, bar)
}

func (p *Printer) color(code, text string) string {
	if p.noColor {
		return text
	}
	return code + text + colorReset
}

// FormatBytes formats bytes into a human-readable string.
func FormatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}

	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}

	units := []string{"KB", "MB", "GB", "TB", "PB"}
	return fmt.Sprintf("%.1f %s", float64(bytes)/float64(div), units[exp])
}
