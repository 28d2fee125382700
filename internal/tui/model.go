// Package tui provides an interactive terminal interface using Bubbletea.
// It observes the download engine through its callbacks and drives the
// pause predicate and cancel signal from key presses.
package tui

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ulukaya/gofiledl/internal/engine"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("170")).
			MarginBottom(1)

	successStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("42"))

	errorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("196"))

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))

	highlightStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))
)

// fileState tracks where one file is in its lifecycle.
type fileState int

const (
	fileDownloading fileState = iota
	fileRetrying
	fileFailed
	fileDone
)

type fileRow struct {
	path    string
	percent int
	size    int64
	state   fileState
}

// maxVisibleRows bounds the file list so deep trees do not scroll the
// whole terminal.
const maxVisibleRows = 8

// NameMsg carries the resolved top-level content name.
type NameMsg struct {
	Name string
}

// FileMsg carries one per-file progress update.
type FileMsg struct {
	Path    string
	Percent int
	Size    int64
}

// FolderMsg carries folder-level completion.
type FolderMsg struct {
	Percent int
	Label   string
}

// DoneMsg ends the run, with the run's terminal error if any.
type DoneMsg struct {
	Err error
}

// Model is the Bubbletea model for the download TUI.
type Model struct {
	name        string
	rows        []fileRow
	rowIndex    map[string]int
	folderLabel string
	folderPct   int

	paused   bool
	done     bool
	err      error
	quitting bool

	progress progress.Model
	spinner  spinner.Model
	width    int

	onTogglePause func() bool
	onCancel      func()
}

// NewModel creates the TUI model.
func NewModel() Model {
	p := progress.New(
		progress.WithDefaultGradient(),
		progress.WithWidth(40),
		progress.WithoutPercentage(),
	)

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))

	return Model{
		rowIndex: make(map[string]int),
		progress: p,
		spinner:  s,
		width:    80,
	}
}

// SetControls wires the pause toggle and cancel actions.
func (m *Model) SetControls(togglePause func() bool, cancel func()) {
	m.onTogglePause = togglePause
	m.onCancel = cancel
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			if m.onCancel != nil {
				m.onCancel()
			}
			return m, tea.Quit

		case "p", " ":
			if !m.done && m.onTogglePause != nil {
				m.paused = m.onTogglePause()
			}
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.progress.Width = msg.Width - 20
		if m.progress.Width > 60 {
			m.progress.Width = 60
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case NameMsg:
		m.name = msg.Name
		return m, nil

	case FileMsg:
		m.applyFile(msg)
		return m, nil

	case FolderMsg:
		m.folderLabel = msg.Label
		m.folderPct = msg.Percent
		return m, nil

	case DoneMsg:
		m.done = true
		m.err = msg.Err
		return m, tea.Quit
	}

	return m, nil
}

func (m *Model) applyFile(msg FileMsg) {
	i, ok := m.rowIndex[msg.Path]
	if !ok {
		m.rows = append(m.rows, fileRow{path: msg.Path})
		i = len(m.rows) - 1
		m.rowIndex[msg.Path] = i
	}

	row := &m.rows[i]
	if msg.Size > 0 {
		row.size = msg.Size
	}
	switch {
	case msg.Percent == engine.ProgressRetrying:
		row.state = fileRetrying
	case msg.Percent == engine.ProgressFailed:
		row.state = fileFailed
	case msg.Percent >= 100:
		// The engine sends a trailing 100 once a file is fully processed,
		// success or not; a failed row stays failed.
		if row.state == fileFailed {
			return
		}
		row.state = fileDone
		row.percent = 100
	default:
		row.state = fileDownloading
		row.percent = msg.Percent
	}
}

// View implements tea.Model.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder

	title := "gofiledl"
	if m.name != "" {
		title += "  " + m.name
	}
	b.WriteString(titleStyle.Render(title))
	b.WriteString("\n\n")

	b.WriteString(m.renderRows())
	b.WriteString("\n")
	b.WriteString(m.renderFolder())
	b.WriteString("\n\n")
	b.WriteString(m.renderStatus())
	b.WriteString("\n\n")
	b.WriteString(m.renderHelp())

	return b.String()
}

func (m Model) renderRows() string {
	start := 0
	if len(m.rows) > maxVisibleRows {
		start = len(m.rows) - maxVisibleRows
	}

	var b strings.Builder
	for _, row := range m.rows[start:] {
		name := filepath.Base(row.path)

		switch row.state {
		case fileDone:
			b.WriteString(fmt.Sprintf("%s %s %s",
				successStyle.Render("✓"), name, dimStyle.Render(formatBytes(row.size))))
		case fileFailed:
			b.WriteString(fmt.Sprintf("%s %s", errorStyle.Render("✗"), name))
		case fileRetrying:
			b.WriteString(fmt.Sprintf("%s %s %s",
				warningStyle.Render("↻"), name, warningStyle.Render("retrying")))
		default:
			b.WriteString(fmt.Sprintf("%s %s %s",
				m.progress.ViewAs(float64(row.percent)/100), name,
				highlightStyle.Render(fmt.Sprintf("%3d%%", row.percent))))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) renderFolder() string {
	if m.folderLabel == "" {
		return ""
	}
	return dimStyle.Render(fmt.Sprintf("folder %s  %d%%", m.folderLabel, m.folderPct))
}

func (m Model) renderStatus() string {
	switch {
	case m.done && m.err != nil:
		return errorStyle.Render(fmt.Sprintf("✗ Error: %v", m.err))
	case m.done:
		return successStyle.Render("✓ Download complete")
	case m.paused:
		return warningStyle.Render("⏸ Paused")
	case m.name == "":
		return m.spinner.View() + " Connecting..."
	default:
		return successStyle.Render("● Downloading")
	}
}

func (m Model) renderHelp() string {
	keys := []string{"q:quit"}
	if m.paused {
		keys = append([]string{"p:resume"}, keys...)
	} else if !m.done {
		keys = append([]string{"p:pause"}, keys...)
	}
	return dimStyle.Render(strings.Join(keys, " • "))
}

func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
