// Package tracker persists the set of already-downloaded files per content
// id, enabling incremental re-runs that skip completed transfers.
package tracker

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ulukaya/gofiledl/internal/sanitize"
)

// Record is the on-disk shape of one content id's download history.
type Record struct {
	ContentID string    `json:"content_id"`
	UpdatedAt time.Time `json:"updated_at"`
	Files     []string  `json:"files"`
}

// Tracker tracks downloaded files for a single content id. It is scoped to
// one worker; concurrent trackers for the same content id are not supported.
type Tracker struct {
	mu        sync.Mutex
	dir       string
	contentID string
	patterns  []string
	files     map[string]struct{}
	logger    *zap.Logger
}

// New creates a Tracker for the given content id, eagerly loading any
// existing record from dir. A missing record is an empty history, not an
// error.
func New(dir, contentID string, patterns []string, logger *zap.Logger) (*Tracker, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(patterns) == 0 {
		patterns = sanitize.DefaultRenamePatterns()
	}

	t := &Tracker{
		dir:       dir,
		contentID: contentID,
		patterns:  patterns,
		files:     make(map[string]struct{}),
		logger:    logger,
	}

	if err := t.load(); err != nil {
		return nil, err
	}

	return t, nil
}

// key builds the composite identity of a downloaded file. Both the id and
// the name participate: a renamed file with the same id, or a same-named
// file with a different id, is treated as not yet downloaded.
func key(fileID, fileName string) string {
	return fileID + ":" + fileName
}

// recordPath returns the record file path for this tracker's content id.
func (t *Tracker) recordPath() string {
	return filepath.Join(t.dir, sanitize.Clean(t.contentID)+".json")
}

// load reads the record from disk into memory.
func (t *Tracker) load() error {
	data, err := os.ReadFile(t.recordPath())
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading tracker record: %w", err)
	}

	var record Record
	if err := json.Unmarshal(data, &record); err != nil {
		return fmt.Errorf("parsing tracker record: %w", err)
	}

	for _, f := range record.Files {
		t.files[f] = struct{}{}
	}

	t.logger.Debug("loaded tracker record",
		zap.String("content_id", t.contentID),
		zap.Int("files", len(t.files)))
	return nil
}

// save rewrites the full record atomically (temp file + rename).
// Must be called with the mutex held.
func (t *Tracker) save() error {
	if err := os.MkdirAll(t.dir, 0755); err != nil {
		return fmt.Errorf("creating tracker directory: %w", err)
	}

	record := Record{
		ContentID: t.contentID,
		UpdatedAt: time.Now(),
		Files:     make([]string, 0, len(t.files)),
	}
	for f := range t.files {
		record.Files = append(record.Files, f)
	}

	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling tracker record: %w", err)
	}

	path := t.recordPath()
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("writing tracker record: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming tracker record: %w", err)
	}

	return nil
}

// IsDownloaded reports whether the (id, name) pair was recorded as
// downloaded by a previous run.
func (t *Tracker) IsDownloaded(fileID, fileName string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	_, ok := t.files[key(fileID, fileName)]
	return ok
}

// MarkDownloaded records a completed transfer and immediately persists the
// record (write-through, no batching).
func (t *Tracker) MarkDownloaded(fileID, fileName string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.files[key(fileID, fileName)] = struct{}{}
	return t.save()
}

// Count returns the number of recorded files.
func (t *Tracker) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.files)
}

// FindExistingFolder looks for a directory under parentDir that matches
// folderName, tolerating provider-side renames such as "⭐NEW FILES in Foo"
// vs an on-disk "Foo". An exact match is tried first; otherwise each entry
// is compared after prefix normalization and the first match wins.
func (t *Tracker) FindExistingFolder(folderName, parentDir string) (string, bool) {
	exact := filepath.Join(parentDir, sanitize.Clean(folderName))
	if info, err := os.Stat(exact); err == nil && info.IsDir() {
		return exact, true
	}

	target := sanitize.Normalize(folderName, t.patterns)
	if target == "" {
		return "", false
	}

	entries, err := os.ReadDir(parentDir)
	if err != nil {
		return "", false
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if sanitize.Normalize(entry.Name(), t.patterns) == target {
			return filepath.Join(parentDir, entry.Name()), true
		}
	}

	return "", false
}
