// Package hooks provides event hooks for download lifecycle events, either
// shell commands or webhook POSTs fired as a run and its files progress.
package hooks

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"strings"
	"time"
)

// Event represents a download lifecycle event.
type Event string

const (
	EventRunStart     Event = "run_start"     // traversal started
	EventRunComplete  Event = "run_complete"  // traversal finished
	EventRunCancelled Event = "run_cancelled" // cancel signal observed
	EventFileStart    Event = "file_start"    // file transfer started
	EventFileComplete Event = "file_complete" // file landed on disk
	EventFileFailed   Event = "file_failed"   // retry budget exhausted
)

// Payload carries the event details hooks receive.
type Payload struct {
	Event     Event     `json:"event"`
	ContentID string    `json:"content_id"`
	Name      string    `json:"name,omitempty"`
	Path      string    `json:"path,omitempty"`
	Size      int64     `json:"size,omitempty"`
	Percent   int       `json:"percent,omitempty"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Duration  float64   `json:"duration_seconds,omitempty"`
}

// NewPayload creates a payload for an event.
func NewPayload(event Event, contentID string) *Payload {
	return &Payload{
		Event:     event,
		ContentID: contentID,
		Timestamp: time.Now(),
	}
}

// WithFile attaches file details.
func (p *Payload) WithFile(name, path string, size int64) *Payload {
	p.Name = name
	p.Path = path
	p.Size = size
	return p
}

// WithError attaches error details.
func (p *Payload) WithError(err error) *Payload {
	if err != nil {
		p.Error = err.Error()
	}
	return p
}

// WithDuration attaches how long the operation took.
func (p *Payload) WithDuration(d time.Duration) *Payload {
	p.Duration = d.Seconds()
	return p
}

// Hook is the interface for all hook types.
type Hook interface {
	Execute(ctx context.Context, payload *Payload) error
	Name() string
}

// CommandHook executes a shell command on events, with the payload exposed
// through GOFILEDL_* environment variables.
type CommandHook struct {
	Command string
	Events  []Event
	Timeout time.Duration
}

// NewCommandHook creates a command hook. Without explicit events it fires
// on file completion and failure.
func NewCommandHook(command string, events ...Event) *CommandHook {
	if len(events) == 0 {
		events = []Event{EventFileComplete, EventFileFailed}
	}
	return &CommandHook{
		Command: command,
		Events:  events,
		Timeout: 30 * time.Second,
	}
}

// Name returns the hook name.
func (h *CommandHook) Name() string {
	return fmt.Sprintf("command:%s", h.Command)
}

// Execute runs the command with environment variables set.
func (h *CommandHook) Execute(ctx context.Context, payload *Payload) error {
	if !eventMatches(h.Events, payload.Event) {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, h.Timeout)
	defer cancel()

	var cmd *exec.Cmd
	if isWindows() {
		cmd = exec.CommandContext(ctx, "cmd", "/C", h.Command)
	} else {
		cmd = exec.CommandContext(ctx, "sh", "-c", h.Command)
	}

	cmd.Env = append(os.Environ(), h.buildEnv(payload)...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("hook command failed: %w (stderr: %s)", err, stderr.String())
	}
	return nil
}

func (h *CommandHook) buildEnv(payload *Payload) []string {
	return []string{
		fmt.Sprintf("GOFILEDL_EVENT=%s", payload.Event),
		fmt.Sprintf("GOFILEDL_CONTENT_ID=%s", payload.ContentID),
		fmt.Sprintf("GOFILEDL_NAME=%s", payload.Name),
		fmt.Sprintf("GOFILEDL_PATH=%s", payload.Path),
		fmt.Sprintf("GOFILEDL_SIZE=%d", payload.Size),
		fmt.Sprintf("GOFILEDL_PERCENT=%d", payload.Percent),
		fmt.Sprintf("GOFILEDL_ERROR=%s", payload.Error),
		fmt.Sprintf("GOFILEDL_DURATION=%.2f", payload.Duration),
	}
}

// WebhookHook sends HTTP POST requests on events.
type WebhookHook struct {
	URL     string
	Events  []Event
	Headers map[string]string
	Timeout time.Duration
	client  *http.Client
}

// NewWebhookHook creates a webhook hook. Without explicit events it fires
// on file completion and failure.
func NewWebhookHook(url string, events ...Event) *WebhookHook {
	if len(events) == 0 {
		events = []Event{EventFileComplete, EventFileFailed}
	}
	return &WebhookHook{
		URL:     url,
		Events:  events,
		Headers: make(map[string]string),
		Timeout: 10 * time.Second,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// WithHeader adds a header to the webhook request.
func (h *WebhookHook) WithHeader(key, value string) *WebhookHook {
	h.Headers[key] = value
	return h
}

// Name returns the hook name.
func (h *WebhookHook) Name() string {
	return fmt.Sprintf("webhook:%s", h.URL)
}

// Execute sends the webhook request.
func (h *WebhookHook) Execute(ctx context.Context, payload *Payload) error {
	if !eventMatches(h.Events, payload.Event) {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, h.Timeout)
	defer cancel()

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "gofiledl-webhook/1.0")
	for key, value := range h.Headers {
		req.Header.Set(key, value)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("sending webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}

func eventMatches(events []Event, event Event) bool {
	for _, e := range events {
		if e == event {
			return true
		}
	}
	return false
}

// Manager fans an event out to multiple hooks.
type Manager struct {
	hooks []Hook
}

// NewManager creates an empty hook manager.
func NewManager() *Manager {
	return &Manager{hooks: make([]Hook, 0)}
}

// Add adds a hook to the manager.
func (m *Manager) Add(hook Hook) {
	m.hooks = append(m.hooks, hook)
}

// AddCommand adds a command hook.
func (m *Manager) AddCommand(command string, events ...Event) {
	m.Add(NewCommandHook(command, events...))
}

// AddWebhook adds a webhook hook.
func (m *Manager) AddWebhook(url string, events ...Event) {
	m.Add(NewWebhookHook(url, events...))
}

// Execute runs all hooks for the given event, collecting failures.
func (m *Manager) Execute(ctx context.Context, payload *Payload) error {
	var errs []string

	for _, hook := range m.hooks {
		if err := hook.Execute(ctx, payload); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", hook.Name(), err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("hook errors: %s", strings.Join(errs, "; "))
	}
	return nil
}

// ExecuteAsync runs all hooks asynchronously (fire and forget).
func (m *Manager) ExecuteAsync(ctx context.Context, payload *Payload) {
	for _, hook := range m.hooks {
		go func(h Hook) {
			_ = h.Execute(ctx, payload)
		}(hook)
	}
}

// Count returns the number of registered hooks.
func (m *Manager) Count() int {
	return len(m.hooks)
}

func isWindows() bool {
	return strings.Contains(strings.ToLower(os.Getenv("OS")), "windows")
}
