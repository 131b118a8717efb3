// Package watcher monitors the inbox directory for dropped PDF files. Events
// are debounced per file so a PDF still being copied in is only reported
// once it has settled.
package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Handler receives the path of a settled PDF file.
type Handler func(ctx context.Context, path string)

// InboxWatcher watches one directory for incoming PDFs.
type InboxWatcher struct {
	dir      string
	settle   time.Duration
	handler  Handler
	logger   *slog.Logger
	watcher  *fsnotify.Watcher
	pending  map[string]*time.Timer
	mu       sync.Mutex
	done     chan struct{}
	stopOnce sync.Once
}

// Options configures the inbox watcher.
type Options struct {
	// Settle is how long a file must stay quiet before it is reported.
	// Zero means one second.
	Settle time.Duration
}

// New creates a watcher for dir, creating the directory if needed.
func New(dir string, handler Handler, logger *slog.Logger, opts Options) (*InboxWatcher, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create inbox dir: %w", err)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	settle := opts.Settle
	if settle <= 0 {
		settle = time.Second
	}

	return &InboxWatcher{
		dir:     dir,
		settle:  settle,
		handler: handler,
		logger:  logger,
		watcher: fw,
		pending: make(map[string]*time.Timer),
		done:    make(chan struct{}),
	}, nil
}

// Start begins watching. It returns immediately; events are handled on a
// background goroutine until Stop is called or ctx is cancelled.
func (w *InboxWatcher) Start(ctx context.Context) error {
	if err := w.watcher.Add(w.dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", w.dir, err)
	}
	w.logger.Info("watching inbox", "dir", w.dir)

	go w.run(ctx)
	return nil
}

// Stop stops watching and cancels pending settle timers.
func (w *InboxWatcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.done)
		_ = w.watcher.Close()

		w.mu.Lock()
		for path, timer := range w.pending {
			timer.Stop()
			delete(w.pending, path)
		}
		w.mu.Unlock()
	})
}

func (w *InboxWatcher) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			w.Stop()
			return
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			if !strings.EqualFold(filepath.Ext(event.Name), ".pdf") {
				continue
			}
			w.touch(ctx, event.Name)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("inbox watch error", "error", err)
		}
	}
}

// touch resets the settle timer for a file. The handler fires once the file
// has been quiet for the settle window.
func (w *InboxWatcher) touch(ctx context.Context, path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if timer, ok := w.pending[path]; ok {
		timer.Reset(w.settle)
		return
	}
	w.pending[path] = time.AfterFunc(w.settle, func() {
		w.mu.Lock()
		delete(w.pending, path)
		w.mu.Unlock()

		select {
		case <-w.done:
			return
		default:
		}
		// The file may have been removed while settling.
		if _, err := os.Stat(path); err != nil {
			return
		}
		w.logger.Info("inbox file settled", "path", path)
		w.handler(ctx, path)
	})
}
