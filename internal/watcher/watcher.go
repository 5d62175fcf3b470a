// Package watcher runs a handler for every supported image that appears in a
// directory.
package watcher

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/hashicorp/go-hclog"
	"github.com/pkg/errors"

	"github.com/ironsheep/image-normalizer-mcp/internal/imaging"
)

// DefaultDebounce is how long a file must stay quiet before it is handled.
const DefaultDebounce = 500 * time.Millisecond

// Handler processes one file. Errors are logged and reported as events.
type Handler func(path string) error

// Event is the outcome of one handler run.
type Event struct {
	Path string
	Err  error
}

// Options configures a Watcher. Zero values select the defaults.
type Options struct {
	Debounce time.Duration
	Catalog  *imaging.FormatCatalog
	Logger   hclog.Logger
}

// Watcher monitors a single directory (not its subdirectories). Creates and
// writes of supported images are debounced per path, then passed to the
// handler one file at a time.
type Watcher struct {
	dir      string
	handler  Handler
	debounce time.Duration
	catalog  *imaging.FormatCatalog
	logger   hclog.Logger

	watcher *fsnotify.Watcher
	events  chan Event
	done    chan struct{}

	mu      sync.Mutex
	pending map[string]*time.Timer
	started bool
	stopped bool
	running sync.WaitGroup
	handle  sync.Mutex
}

// New creates a watcher for dir. Call Start to begin monitoring.
func New(dir string, handler Handler, opts Options) (*Watcher, error) {
	if handler == nil {
		return nil, errors.New("watcher: handler is nil")
	}
	info, err := os.Stat(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to stat watch directory %s", dir)
	}
	if !info.IsDir() {
		return nil, errors.Errorf("watch path %s is not a directory", dir)
	}

	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.Catalog == nil {
		opts.Catalog = imaging.Formats()
	}
	if opts.Logger == nil {
		opts.Logger = hclog.NewNullLogger()
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create fsnotify watcher")
	}

	return &Watcher{
		dir:      dir,
		handler:  handler,
		debounce: opts.Debounce,
		catalog:  opts.Catalog,
		logger:   opts.Logger.Named("watcher"),
		watcher:  fsWatcher,
		events:   make(chan Event, 100),
		done:     make(chan struct{}),
		pending:  make(map[string]*time.Timer),
	}, nil
}

// Start begins monitoring the directory.
func (w *Watcher) Start() error {
	if err := w.watcher.Add(w.dir); err != nil {
		return errors.Wrapf(err, "failed to watch folder %s", w.dir)
	}
	w.logger.Info("watching folder", "dir", w.dir, "debounce", w.debounce)

	w.mu.Lock()
	w.started = true
	w.mu.Unlock()
	go w.processEvents()
	return nil
}

func (w *Watcher) processEvents() {
	defer close(w.done)

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			if !w.accepts(event.Name) {
				continue
			}
			w.schedule(event.Name)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("watcher error", "error", err)
		}
	}
}

// accepts skips hidden and temporary files, which is also how atomic writes
// stage their output.
func (w *Watcher) accepts(path string) bool {
	if strings.HasPrefix(filepath.Base(path), ".") {
		return false
	}
	return w.catalog.IsSupportedPath(path)
}

func (w *Watcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stopped {
		return
	}
	if timer, exists := w.pending[path]; exists {
		timer.Stop()
	}
	w.pending[path] = time.AfterFunc(w.debounce, func() { w.fire(path) })
}

func (w *Watcher) fire(path string) {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return
	}
	delete(w.pending, path)
	w.running.Add(1)
	w.mu.Unlock()
	defer w.running.Done()

	// The file may be gone again by the time it settles.
	if info, err := os.Stat(path); err != nil || !info.Mode().IsRegular() {
		return
	}

	w.handle.Lock()
	err := w.handler(path)
	w.handle.Unlock()

	if err != nil {
		w.logger.Error("failed to handle file", "path", path, "error", err)
	} else {
		w.logger.Debug("handled file", "path", path)
	}

	select {
	case w.events <- Event{Path: path, Err: err}:
	default:
		w.logger.Warn("event channel full, dropping event", "path", path)
	}
}

// Events returns the channel of handler outcomes. It is closed by Stop.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// Stop cancels pending files, waits for a running handler to return and closes
// the event channel. It must be called at most once.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	started := w.started
	w.stopped = true
	for path, timer := range w.pending {
		timer.Stop()
		delete(w.pending, path)
	}
	w.mu.Unlock()

	err := w.watcher.Close()
	if started {
		<-w.done
	}
	w.running.Wait()
	close(w.events)
	return err
}
