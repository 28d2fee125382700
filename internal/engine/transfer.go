package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
)

// RangeOpener opens a download link for reading at a byte offset. The
// returned total is the full file size when the server reports one, 0
// otherwise.
type RangeOpener interface {
	OpenRange(ctx context.Context, link string, offset int64) (io.ReadCloser, int64, error)
}

// ErrCancelled is returned when a transfer stops because the cancel signal
// was raised. The partial file is kept for a later resume.
var ErrCancelled = errors.New("transfer cancelled")

// TransferError reports a permanently failed transfer after the retry
// budget ran out. The partial file has been removed by then.
type TransferError struct {
	Path     string
	Attempts int
	Err      error
}

func (e *TransferError) Error() string {
	return fmt.Sprintf("transfer of %s failed after %d attempts: %v", e.Path, e.Attempts, e.Err)
}

func (e *TransferError) Unwrap() error { return e.Err }

// TransferOption configures a Transfer.
type TransferOption func(*Transfer)

// WithChunkSize sets the read buffer size.
func WithChunkSize(n int) TransferOption {
	return func(t *Transfer) {
		if n > 0 {
			t.chunkSize = n
		}
	}
}

// WithRetries sets how many extra attempts follow a failed first one.
func WithRetries(n int) TransferOption {
	return func(t *Transfer) {
		if n >= 0 {
			t.retries = n
		}
	}
}

// WithRetryDelay sets the fixed wait between attempts.
func WithRetryDelay(d time.Duration) TransferOption {
	return func(t *Transfer) { t.retryDelay = d }
}

// WithPausePoll sets how often the pause predicate is re-checked while
// paused.
func WithPausePoll(d time.Duration) TransferOption {
	return func(t *Transfer) {
		if d > 0 {
			t.pausePoll = d
		}
	}
}

// WithThrottle attaches a bandwidth throttle. A nil throttle disables
// limiting.
func WithThrottle(th *Throttle) TransferOption {
	return func(t *Transfer) { t.throttle = th }
}

// WithTransferLogger sets the logger.
func WithTransferLogger(logger *zap.Logger) TransferOption {
	return func(t *Transfer) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// Transfer streams single files to disk with resume, pause, cancel,
// throttle and retry support. Bytes are staged in a ".part" sidecar which
// is renamed over the destination only after a complete download.
type Transfer struct {
	opener     RangeOpener
	chunkSize  int
	retries    int
	retryDelay time.Duration
	pausePoll  time.Duration
	throttle   *Throttle
	logger     *zap.Logger
}

// NewTransfer creates a Transfer reading from the given opener.
func NewTransfer(opener RangeOpener, opts ...TransferOption) *Transfer {
	t := &Transfer{
		opener:     opener,
		chunkSize:  32 * 1024,
		retries:    3,
		retryDelay: 2 * time.Second,
		pausePoll:  500 * time.Millisecond,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Download fetches link into destPath. An existing partial is resumed from
// its current size via a Range request; each retry attempt re-stats the
// partial so progress made before a failure is never re-downloaded. On
// success the partial is atomically renamed over destPath. On cancel the
// partial is kept. When the retry budget is exhausted the partial is
// removed, a permanent-failure progress code is emitted and a
// *TransferError returned.
func (t *Transfer) Download(ctx context.Context, link, destPath string, cb Callbacks) error {
	if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
		return fmt.Errorf("creating destination directory: %w", err)
	}

	partPath := destPath + ".part"

	var lastErr error
	for attempt := 0; attempt <= t.retries; attempt++ {
		if attempt > 0 {
			cb.fileProgress(destPath, ProgressRetrying, 0)
			t.logger.Warn("retrying transfer",
				zap.String("path", destPath),
				zap.Int("attempt", attempt+1),
				zap.Error(lastErr))
			if err := sleepCtx(ctx, t.retryDelay); err != nil {
				return err
			}
		}

		total, err := t.attempt(ctx, link, partPath, destPath, cb)
		if err == nil {
			if err := os.Rename(partPath, destPath); err != nil {
				return fmt.Errorf("finalizing download: %w", err)
			}
			cb.fileProgress(destPath, 100, total)
			return nil
		}
		if errors.Is(err, ErrCancelled) || errors.Is(err, context.Canceled) {
			return err
		}
		lastErr = err
	}

	os.Remove(partPath)
	cb.fileProgress(destPath, ProgressFailed, 0)
	t.logger.Error("transfer failed permanently",
		zap.String("path", destPath),
		zap.Int("attempts", t.retries+1),
		zap.Error(lastErr))
	return &TransferError{Path: destPath, Attempts: t.retries + 1, Err: lastErr}
}

// attempt performs one download pass, appending to the partial file.
func (t *Transfer) attempt(ctx context.Context, link, partPath, destPath string, cb Callbacks) (int64, error) {
	var offset int64
	if info, err := os.Stat(partPath); err == nil {
		offset = info.Size()
	}

	body, total, err := t.opener.OpenRange(ctx, link, offset)
	if err != nil {
		return 0, err
	}
	defer body.Close()

	f, err := os.OpenFile(partPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return total, fmt.Errorf("opening partial file: %w", err)
	}
	defer f.Close()

	downloaded := offset
	buf := make([]byte, t.chunkSize)
	for {
		n, readErr := body.Read(buf)
		if n > 0 {
			// Pause gates the write, not the read: a chunk already on the
			// wire is held until the predicate clears.
			if err := t.waitWhilePaused(ctx, cb); err != nil {
				return total, err
			}
			if _, err := f.Write(buf[:n]); err != nil {
				return total, fmt.Errorf("writing chunk: %w", err)
			}
			downloaded += int64(n)

			// Unknown total reports 0% rather than dividing by zero.
			percent := 0
			if total > 0 {
				percent = int(downloaded * 100 / total)
			}
			cb.progress(percent)
			cb.fileProgress(destPath, percent, total)

			if cb.cancelled() {
				return total, ErrCancelled
			}
			if err := t.throttle.Wait(ctx, int64(n)); err != nil {
				return total, err
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return total, fmt.Errorf("reading response: %w", readErr)
		}
	}

	if total > 0 && downloaded < total {
		return total, fmt.Errorf("short body: got %d of %d bytes", downloaded, total)
	}
	return total, nil
}

// waitWhilePaused blocks while the pause predicate holds, still honoring
// cancellation.
func (t *Transfer) waitWhilePaused(ctx context.Context, cb Callbacks) error {
	for cb.paused() {
		if cb.cancelled() {
			return ErrCancelled
		}
		if err := sleepCtx(ctx, t.pausePoll); err != nil {
			return err
		}
	}
	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
