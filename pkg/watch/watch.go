// Package watch triggers a reindex when a vault's files change, using
// fsnotify the way the retrieval pack's filesystem adapter does, minus
// its worker-framework scaffolding: a reindex is a single idempotent
// call, not a supervised long-running task, so a plain goroutine and a
// debounce timer are enough.
package watch

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce coalesces a burst of filesystem events (e.g. an
// editor's write-then-rename save) into a single reindex.
const DefaultDebounce = 300 * time.Millisecond

// Option configures a Watcher.
type Option func(*options)

type options struct {
	debounce time.Duration
	logger   *slog.Logger
	ignore   []string
}

// WithDebounce overrides DefaultDebounce.
func WithDebounce(d time.Duration) Option {
	return func(o *options) { o.debounce = d }
}

// WithLogger attaches a logger; nil is safe and disables logging.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithIgnore adds directory names (matched against any path segment)
// that should never trigger a reindex, beyond .cast and .git, which are
// always ignored.
func WithIgnore(segments ...string) Option {
	return func(o *options) { o.ignore = append(o.ignore, segments...) }
}

// Watcher watches a vault root and invokes a callback, debounced, after
// a burst of filesystem activity settles.
type Watcher struct {
	root    string
	opts    options
	fsw     *fsnotify.Watcher
	onEvent func()
}

// New creates a Watcher rooted at root. It does not dispatch events
// until Run is called.
func New(root string, onEvent func(), opts ...Option) (*Watcher, error) {
	o := options{debounce: DefaultDebounce}
	for _, opt := range opts {
		opt(&o)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{root: root, opts: o, fsw: fsw, onEvent: onEvent}
	if err := w.addRecursive(root); err != nil {
		_ = fsw.Close()
		return nil, err
	}
	return w, nil
}

func (w *Watcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if w.ignored(path) {
			return filepath.SkipDir
		}
		return w.fsw.Add(path)
	})
}

func (w *Watcher) ignored(path string) bool {
	rel, err := filepath.Rel(w.root, path)
	if err != nil {
		return false
	}
	for _, seg := range strings.Split(rel, string(filepath.Separator)) {
		if seg == ".cast" || seg == ".git" {
			return true
		}
		for _, ig := range w.opts.ignore {
			if seg == ig {
				return true
			}
		}
	}
	return false
}

// Run blocks, dispatching debounced reindex callbacks, until ctx is
// canceled or the watcher errors unrecoverably.
func (w *Watcher) Run(ctx context.Context) error {
	log := w.opts.logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	defer w.fsw.Close()

	var timer *time.Timer
	var timerC <-chan time.Time

	resetDebounce := func() {
		if timer != nil {
			timer.Stop()
		}
		timer = time.NewTimer(w.opts.debounce)
		timerC = timer.C
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if w.ignored(ev.Name) {
				continue
			}
			if ev.Has(fsnotify.Create) {
				if info, err := statDir(ev.Name); err == nil && info {
					_ = w.fsw.Add(ev.Name)
				}
			}
			log.Debug("watch event", "path", ev.Name, "op", ev.Op.String())
			resetDebounce()

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			log.Error("watch error", "err", err)

		case <-timerC:
			timerC = nil
			w.onEvent()
		}
	}
}

// Close stops the underlying fsnotify watcher.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}

func statDir(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		return false, err
	}
	return info.IsDir(), nil
}
