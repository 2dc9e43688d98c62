package camera

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/time/rate"

	"github.com/oshokin/catpoint/internal/logger"
)

const (
	// DefaultSettleDelay is how long a file must stay unchanged before it is read.
	DefaultSettleDelay = 200 * time.Millisecond
	// DefaultBurst is the number of images that may be processed back to back.
	DefaultBurst = 1
)

// errWatcherClosed is returned when fsnotify closes its channels unexpectedly.
var errWatcherClosed = errors.New("watcher channel closed")

// imageExtensions lists the file extensions treated as camera images.
//
//nolint:gochecknoglobals // Read-only lookup table.
var imageExtensions = []string{".png", ".jpg", ".jpeg", ".gif"}

// ImageProcessor consumes camera images.
type ImageProcessor interface {
	ProcessImage(ctx context.Context, image []byte) (bool, error)
}

// Watcher submits images written to a directory.
type Watcher struct {
	// dir is the watched inbox directory.
	dir string
	// processor receives the image contents.
	processor ImageProcessor
	// limiter throttles submissions.
	limiter *rate.Limiter
	// settle is the debounce delay after the last write.
	settle time.Duration
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithRate limits submissions to perSecond images with the given burst.
func WithRate(perSecond float64, burst int) Option {
	return func(w *Watcher) {
		if perSecond <= 0 {
			return
		}

		if burst <= 0 {
			burst = DefaultBurst
		}

		w.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// WithSettleDelay overrides DefaultSettleDelay.
func WithSettleDelay(delay time.Duration) Option {
	return func(w *Watcher) {
		if delay > 0 {
			w.settle = delay
		}
	}
}

// NewWatcher creates a watcher for dir. Without WithRate submissions are unlimited.
func NewWatcher(dir string, processor ImageProcessor, opts ...Option) *Watcher {
	w := &Watcher{
		dir:       filepath.Clean(dir),
		processor: processor,
		limiter:   rate.NewLimiter(rate.Inf, DefaultBurst),
		settle:    DefaultSettleDelay,
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Run watches the directory until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	if err := os.MkdirAll(w.dir, 0o750); err != nil {
		return fmt.Errorf("create camera directory: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("fsnotify.NewWatcher: %w", err)
	}

	defer func() {
		_ = watcher.Close()
	}()

	if err = watcher.Add(w.dir); err != nil {
		return fmt.Errorf("watch directory %s: %w", w.dir, err)
	}

	ctx = logger.WithName(ctx, "camera")
	logger.InfoKV(ctx, "Watching camera directory", "dir", w.dir)

	timer := time.NewTimer(w.settle)
	timer.Stop()

	defer timer.Stop()

	pending := make(map[string]struct{})

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return errWatcherClosed
			}

			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}

			if !isImage(event.Name) {
				continue
			}

			pending[event.Name] = struct{}{}

			timer.Reset(w.settle)
		case <-timer.C:
			w.flush(ctx, pending)
		case err, ok := <-watcher.Errors:
			if !ok {
				return errWatcherClosed
			}

			logger.WarnKV(ctx, "fsnotify watcher error", "error", err)
		}
	}
}

// flush submits every pending file in name order and clears the set.
// Files left when ctx is cancelled are dropped.
func (w *Watcher) flush(ctx context.Context, pending map[string]struct{}) {
	names := make([]string, 0, len(pending))
	for name := range pending {
		names = append(names, name)
	}

	clear(pending)
	slices.Sort(names)

	for _, name := range names {
		if err := w.limiter.Wait(ctx); err != nil {
			return
		}

		w.submit(ctx, name)
	}
}

// submit reads one file and passes it to the processor, logging failures.
func (w *Watcher) submit(ctx context.Context, path string) {
	data, err := os.ReadFile(path) //nolint:gosec // Path comes from the watched directory.
	if err != nil {
		logger.WarnKV(ctx, "Failed to read camera image", "path", path, "error", err)

		return
	}

	if len(data) == 0 {
		return
	}

	containsCat, err := w.processor.ProcessImage(ctx, data)
	if err != nil {
		logger.WarnKV(ctx, "Failed to process camera image", "path", path, "error", err)

		return
	}

	logger.InfoKV(ctx, "Camera image processed", "path", filepath.Base(path), "cat_detected", containsCat)
}

// isImage reports whether the file extension is a supported image type.
func isImage(path string) bool {
	return slices.Contains(imageExtensions, strings.ToLower(filepath.Ext(path)))
}
