package ui

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/ulukaya/gofiledl/internal/engine"
)

func newTestPrinter(style Style) (*Printer, *bytes.Buffer) {
	var buf bytes.Buffer
	p := NewPrinter(WithOutput(&buf), WithStyle(style), WithNoColor(true), WithWidth(10))
	return p, &buf
}

func TestPrinter_NameResolved(t *testing.T) {
	p, buf := newTestPrinter(StyleBar)

	p.NameResolved("My Folder")
	if !strings.Contains(buf.String(), "Downloading My Folder") {
		t.Errorf("output = %q", buf.String())
	}
}

func TestPrinter_FileProgress_Bar(t *testing.T) {
	p, buf := newTestPrinter(StyleBar)

	p.FileProgress("/dl/a.txt", 50, 100)
	out := buf.String()
	if !strings.Contains(out, "a.txt") || !strings.Contains(out, "50%") {
		t.Errorf("output = %q", out)
	}
	if !strings.Contains(out, "━━━━━─────") {
		t.Errorf("bar not rendered at half width: %q", out)
	}
}

func TestPrinter_FileProgress_Complete(t *testing.T) {
	p, buf := newTestPrinter(StyleBar)

	p.FileProgress("/dl/a.txt", 100, 2048)
	out := buf.String()
	if !strings.Contains(out, "✓") || !strings.Contains(out, "2.0 KB") {
		t.Errorf("output = %q", out)
	}
	if !strings.HasSuffix(out, "\n") {
		t.Error("completion line should end with newline")
	}
}

func TestPrinter_FileProgress_RetryAndFailure(t *testing.T) {
	p, buf := newTestPrinter(StyleMinimal)

	p.FileProgress("/dl/a.txt", engine.ProgressRetrying, 0)
	p.FileProgress("/dl/a.txt", engine.ProgressFailed, 0)

	out := buf.String()
	if !strings.Contains(out, "retrying") {
		t.Errorf("missing retry line: %q", out)
	}
	if !strings.Contains(out, "failed") {
		t.Errorf("missing failure line: %q", out)
	}
}

func TestPrinter_FailureSuppressesCompletionLine(t *testing.T) {
	p, buf := newTestPrinter(StyleBar)

	p.FileProgress("/dl/a.txt", 0, 100)
	p.FileProgress("/dl/a.txt", engine.ProgressFailed, 100)
	p.FileProgress("/dl/a.txt", 100, 100)

	out := buf.String()
	if !strings.Contains(out, "failed") {
		t.Fatalf("missing failure line: %q", out)
	}
	if strings.Contains(out, "✓") {
		t.Errorf("failed file rendered as complete: %q", out)
	}

	// An unrelated file still completes normally
	p.FileProgress("/dl/b.txt", 100, 100)
	if !strings.Contains(buf.String(), "✓") {
		t.Errorf("successful file missing completion line: %q", buf.String())
	}
}

func TestPrinter_Minimal_QuietMidTransfer(t *testing.T) {
	p, buf := newTestPrinter(StyleMinimal)

	p.FileProgress("/dl/a.txt", 10, 100)
	p.FileProgress("/dl/a.txt", 55, 100)
	if buf.Len() != 0 {
		t.Errorf("minimal style should not print mid-transfer: %q", buf.String())
	}

	p.FileProgress("/dl/a.txt", 100, 100)
	if !strings.Contains(buf.String(), "a.txt") {
		t.Errorf("completion missing: %q", buf.String())
	}
}

func TestPrinter_JSON(t *testing.T) {
	p, buf := newTestPrinter(StyleJSON)

	p.NameResolved("Root")
	p.FileProgress("/dl/a.txt", 42, 100)
	p.OverallProgress(100, "Root")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("lines = %d, want 3", len(lines))
	}

	var file struct {
		Event   string `json:"event"`
		Path    string `json:"path"`
		Percent int    `json:"percent"`
		Size    int64  `json:"size"`
	}
	if err := json.Unmarshal([]byte(lines[1]), &file); err != nil {
		t.Fatalf("line is not JSON: %v", err)
	}
	if file.Event != "file" || file.Percent != 42 || file.Path != "/dl/a.txt" {
		t.Errorf("file event = %+v", file)
	}
}

func TestPrinter_OverallProgress(t *testing.T) {
	p, buf := newTestPrinter(StyleBar)

	p.OverallProgress(50, "Root")
	if buf.Len() != 0 {
		t.Errorf("intermediate folder progress should be silent: %q", buf.String())
	}

	p.OverallProgress(100, "Root")
	if !strings.Contains(buf.String(), "Root") {
		t.Errorf("output = %q", buf.String())
	}
}

func TestPrinter_Callbacks(t *testing.T) {
	p, buf := newTestPrinter(StyleMinimal)

	cb := p.Callbacks()
	if cb.NameResolved == nil || cb.FileProgress == nil || cb.OverallProgress == nil {
		t.Fatal("Callbacks() left hooks nil")
	}

	cb.NameResolved("X")
	if !strings.Contains(buf.String(), "X") {
		t.Errorf("output = %q", buf.String())
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{0, "0 B"},
		{512, "512 B"},
		{1024, "1.0 KB"},
		{1536, "1.5 KB"},
		{1024 * 1024, "1.0 MB"},
		{5 * 1024 * 1024 * 1024, "5.0 GB"},
	}

	for _, tt := range tests {
		if got := FormatBytes(tt.in); got != tt.want {
			t.Errorf("FormatBytes(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
