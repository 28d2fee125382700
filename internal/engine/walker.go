package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/ulukaya/gofiledl/internal/gofile"
	"github.com/ulukaya/gofiledl/internal/sanitize"
	"github.com/ulukaya/gofiledl/internal/tracker"
)

// ContentFetcher resolves a content id to its metadata node.
type ContentFetcher interface {
	FetchContent(ctx context.Context, contentID, password string) (*gofile.ContentNode, error)
}

// ErrInvalidURL marks a share URL that does not point at a known download
// host.
var ErrInvalidURL = errors.New("invalid download url")

const defaultURLPrefix = "https://gofile.io/d/"

// ContentIDFromURL extracts the content id from a share URL. The URL must
// start with the given prefix; the id is the last path segment.
func ContentIDFromURL(rawURL, prefix string) (string, error) {
	if prefix == "" {
		prefix = defaultURLPrefix
	}
	if !strings.HasPrefix(rawURL, prefix) {
		return "", fmt.Errorf("%w: %s", ErrInvalidURL, rawURL)
	}
	id := strings.TrimPrefix(rawURL, prefix)
	if i := strings.IndexAny(id, "?#"); i >= 0 {
		id = id[:i]
	}
	id = strings.Trim(id, "/")
	if i := strings.LastIndex(id, "/"); i >= 0 {
		id = id[i+1:]
	}
	if id == "" {
		return "", fmt.Errorf("%w: %s", ErrInvalidURL, rawURL)
	}
	return id, nil
}

// Request carries the parameters of one download run. Either ContentID or
// URL must be set; URL wins when both are.
type Request struct {
	Dir         string
	ContentID   string
	URL         string
	Password    string
	Incremental bool
	StripEmoji  bool
}

// WalkerOption configures a Walker.
type WalkerOption func(*Walker)

// WithWalkerLogger sets the logger.
func WithWalkerLogger(logger *zap.Logger) WalkerOption {
	return func(w *Walker) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// WithTrackerDir sets where incremental-download records are stored.
// Defaults to a ".gofiledl" directory under the destination.
func WithTrackerDir(dir string) WalkerOption {
	return func(w *Walker) { w.trackerDir = dir }
}

// WithURLPrefix overrides the accepted share-URL prefix.
func WithURLPrefix(prefix string) WalkerOption {
	return func(w *Walker) { w.urlPrefix = prefix }
}

// WithRenamePatterns sets the folder-rename prefixes the tracker tolerates
// when matching an existing directory.
func WithRenamePatterns(patterns []string) WalkerOption {
	return func(w *Walker) { w.patterns = patterns }
}

// WithVerifier installs a post-download checksum check, called with the
// destination path and the hex md5 the API reported for the file.
func WithVerifier(fn func(path, md5 string) error) WalkerOption {
	return func(w *Walker) { w.verify = fn }
}

// Walker drives a recursive download: it fetches the content tree and
// hands each file to the Transfer, containing per-child failures so one
// broken entry never takes down its siblings.
type Walker struct {
	fetcher    ContentFetcher
	transfer   *Transfer
	logger     *zap.Logger
	trackerDir string
	urlPrefix  string
	patterns   []string
	verify     func(path, md5 string) error
}

// NewWalker creates a Walker downloading through the given fetcher and
// transfer.
func NewWalker(fetcher ContentFetcher, transfer *Transfer, opts ...WalkerOption) *Walker {
	w := &Walker{
		fetcher:  fetcher,
		transfer: transfer,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// walkState is the per-run context threaded through the recursion.
type walkState struct {
	password   string
	stripEmoji bool
	tracker    *tracker.Tracker
	cb         Callbacks
}

// Run resolves the request's target and downloads it into req.Dir. Errors
// from individual children inside folders are logged and contained; only
// top-level failures (bad URL, unreachable root, unwritable destination)
// surface here.
func (w *Walker) Run(ctx context.Context, req Request, cb Callbacks) error {
	if req.URL != "" {
		id, err := ContentIDFromURL(req.URL, w.urlPrefix)
		if err != nil {
			return err
		}
		req.ContentID = id
	}
	if req.ContentID == "" {
		return errors.New("either a content id or a download url is required")
	}
	if req.Dir == "" {
		req.Dir = "."
	}

	st := &walkState{
		password:   req.Password,
		stripEmoji: req.StripEmoji,
		cb:         cb,
	}

	if req.Incremental {
		dir := w.trackerDir
		if dir == "" {
			dir = filepath.Join(req.Dir, ".gofiledl")
		}
		tr, err := tracker.New(dir, req.ContentID, w.patterns, w.logger)
		if err != nil {
			return fmt.Errorf("initializing download tracker: %w", err)
		}
		st.tracker = tr
	}

	return w.walk(ctx, req.ContentID, req.Dir, st, true)
}

func (w *Walker) walk(ctx context.Context, contentID, dir string, st *walkState, top bool) error {
	node, err := w.fetcher.FetchContent(ctx, contentID, st.password)
	if err != nil {
		return fmt.Errorf("fetching content %s: %w", contentID, err)
	}
	if node.Type == gofile.NodeFolder {
		return w.walkFolder(ctx, node, dir, st, top)
	}
	return w.walkFile(ctx, node, dir, st, top)
}

// displayName sanitizes a node's name, falling back to an id-derived name
// when sanitization leaves nothing.
func (w *Walker) displayName(node *gofile.ContentNode, stripEmoji bool) string {
	raw := node.Name
	if stripEmoji {
		raw = sanitize.StripEmoji(raw)
	}
	name := sanitize.Clean(raw)
	if name == "" {
		name = sanitize.Fallback(node.ID)
	}
	return name
}

func (w *Walker) walkFolder(ctx context.Context, node *gofile.ContentNode, parentDir string, st *walkState, top bool) error {
	name := w.displayName(node, st.stripEmoji)
	if top {
		st.cb.nameResolved(name)
	}

	dirPath := filepath.Join(parentDir, name)
	if st.tracker != nil {
		// A provider-side rename must not fork a second directory; reuse
		// the one a previous run created.
		if existing, ok := st.tracker.FindExistingFolder(node.Name, parentDir); ok {
			dirPath = existing
		}
	}
	if err := os.MkdirAll(dirPath, 0755); err != nil {
		return fmt.Errorf("creating folder %s: %w", dirPath, err)
	}

	total := len(node.Children)
	completed := 0
	for _, child := range node.Children {
		if st.cb.cancelled() {
			w.logger.Info("download cancelled",
				zap.String("folder", name),
				zap.Int("completed", completed),
				zap.Int("total", total))
			break
		}

		var err error
		if child.Type == gofile.NodeFolder {
			err = w.walk(ctx, child.ID, dirPath, st, false)
		} else {
			_, err = w.processFile(ctx, child, dirPath, st)
		}
		if err != nil {
			w.logger.Error("folder entry failed",
				zap.String("folder", name),
				zap.String("child", child.ID),
				zap.Error(err))
		}

		completed++
		st.cb.overallProgress(completed*100/total, name)
	}

	st.cb.overallProgress(100, name)
	return nil
}

// walkFile handles a share that points directly at a single file.
func (w *Walker) walkFile(ctx context.Context, node *gofile.ContentNode, dir string, st *walkState, top bool) error {
	if top {
		st.cb.nameResolved(w.displayName(node, st.stripEmoji))
	}

	path, err := w.processFile(ctx, node, dir, st)
	// The trailing 100 means "processing finished", success or not; the
	// transfer's own codes carry the failure detail.
	st.cb.fileProgress(path, 100, node.Size)
	return err
}

// processFile downloads one file node into dir, honoring the incremental
// tracker and the optional checksum verifier. It returns the destination
// path it resolved for the node.
func (w *Walker) processFile(ctx context.Context, node *gofile.ContentNode, dir string, st *walkState) (string, error) {
	name := sanitize.Clean(node.Name)
	if name == "" {
		name = sanitize.Fallback(node.ID)
	}
	path := filepath.Join(dir, name)

	if st.tracker != nil && st.tracker.IsDownloaded(node.ID, node.Name) {
		w.logger.Debug("already downloaded, skipping", zap.String("path", path))
		st.cb.fileProgress(path, 100, node.Size)
		return path, nil
	}

	if node.Link == "" {
		return path, fmt.Errorf("file %s has no download link", node.ID)
	}

	st.cb.fileProgress(path, 0, node.Size)
	if err := w.transfer.Download(ctx, node.Link, path, st.cb); err != nil {
		return path, err
	}

	if w.verify != nil && node.MD5 != "" {
		if err := w.verify(path, node.MD5); err != nil {
			w.logger.Warn("checksum mismatch",
				zap.String("path", path),
				zap.Error(err))
		}
	}

	if st.tracker != nil {
		if err := st.tracker.MarkDownloaded(node.ID, node.Name); err != nil {
			w.logger.Warn("recording completed download failed",
				zap.String("path", path),
				zap.Error(err))
		}
	}
	return path, nil
}
