package watch

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"intake/internal/logging"
)

const defaultSettleDelay = 500 * time.Millisecond

// Watcher reports transcript files dropped into a folder. A file is only
// reported once its writes have settled, so a transfer in progress is never
// picked up half-written.
type Watcher struct {
	folder string
	settle time.Duration
	logger *slog.Logger

	fs    *fsnotify.Watcher
	paths chan string

	mu      sync.Mutex
	pending map[string]*time.Timer
}

// Option adjusts watcher behavior.
type Option func(*Watcher)

// WithSettleDelay overrides how long a file must stay quiet before it is
// reported.
func WithSettleDelay(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.settle = d
		}
	}
}

// New builds a watcher over folder.
func New(folder string, logger *slog.Logger, opts ...Option) (*Watcher, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fs watcher: %w", err)
	}
	if err := fs.Add(folder); err != nil {
		_ = fs.Close()
		return nil, fmt.Errorf("watch %s: %w", folder, err)
	}

	w := &Watcher{
		folder:  folder,
		settle:  defaultSettleDelay,
		logger:  logging.NewComponentLogger(logger, "watcher"),
		fs:      fs,
		paths:   make(chan string, 16),
		pending: make(map[string]*time.Timer),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Paths returns the channel of settled transcript paths.
func (w *Watcher) Paths() <-chan string {
	return w.paths
}

// Run processes filesystem events until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fs.Close()
	defer w.cancelPending()

	w.logger.Info("watching folder", logging.String("folder", w.folder))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			w.handleEvent(event)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watcher error", logging.Error(err))
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if !strings.EqualFold(filepath.Ext(event.Name), ".txt") {
		return
	}
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return
	}

	path := event.Name
	w.mu.Lock()
	defer w.mu.Unlock()
	if timer, exists := w.pending[path]; exists {
		timer.Reset(w.settle)
		return
	}
	w.pending[path] = time.AfterFunc(w.settle, func() {
		w.mu.Lock()
		delete(w.pending, path)
		w.mu.Unlock()

		select {
		case w.paths <- path:
			w.logger.Info("transcript detected", logging.String("path", path))
		default:
			w.logger.Warn("transcript dropped, consumer behind", logging.String("path", path))
		}
	})
}

func (w *Watcher) cancelPending() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for path, timer := range w.pending {
		timer.Stop()
		delete(w.pending, path)
	}
}
