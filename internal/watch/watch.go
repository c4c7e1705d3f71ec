package watch

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"

	"github.com/Emberfield/autodoc/internal/walker"
)

// DefaultDebounce is the quiet period before a batch of changes fires.
const DefaultDebounce = 500 * time.Millisecond

// Options controls a Watcher.
type Options struct {
	Extensions     map[string]bool
	IgnorePatterns []string
	Debounce       time.Duration
	Logger         *logrus.Logger
}

// Watcher reports batches of changed source files under a root.
type Watcher struct {
	fs       *fsnotify.Watcher
	root     string
	opts     Options
	ignores  *walker.Matcher
	logger   *logrus.Logger
	debounce time.Duration
}

// New watches root and every non-ignored directory below it.
func New(root string, opts Options) (*Watcher, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		fs:       fw,
		root:     absRoot,
		opts:     opts,
		ignores:  walker.LoadIgnores(absRoot, opts.IgnorePatterns),
		logger:   opts.Logger,
		debounce: opts.Debounce,
	}
	if w.logger == nil {
		w.logger = logrus.StandardLogger()
	}
	if w.debounce <= 0 {
		w.debounce = DefaultDebounce
	}

	if err := w.addTree(absRoot); err != nil {
		fw.Close()
		return nil, err
	}
	return w, nil
}

// Run blocks until ctx is cancelled, calling onChange with the changed
// paths after each quiet period. onChange runs on the watcher goroutine, so
// events arriving meanwhile are batched for the next call.
func (w *Watcher) Run(ctx context.Context, onChange func(paths []string)) error {
	defer w.fs.Close()

	pending := make(map[string]bool)
	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}

	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()

		case event, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			if event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := w.addTree(event.Name); err != nil {
						w.logger.WithError(err).WithField("dir", event.Name).Warn("cannot watch new directory")
					}
					continue
				}
			}
			if !w.relevant(event.Name) {
				continue
			}
			pending[event.Name] = true
			timer.Reset(w.debounce)

		case <-timer.C:
			if len(pending) == 0 {
				continue
			}
			paths := make([]string, 0, len(pending))
			for p := range pending {
				paths = append(paths, p)
			}
			pending = make(map[string]bool)
			onChange(paths)

		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			w.logger.WithError(err).Warn("file watcher error")
		}
	}
}

func (w *Watcher) relevant(path string) bool {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if !w.opts.Extensions[ext] {
		return false
	}
	rel, err := filepath.Rel(w.root, path)
	if err != nil {
		return false
	}
	return !w.ignores.Match(filepath.Base(path), filepath.ToSlash(rel))
}

func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return err
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != w.root {
			rel, _ := filepath.Rel(w.root, path)
			if w.ignores.Match(d.Name(), filepath.ToSlash(rel)) {
				return filepath.SkipDir
			}
		}
		return w.fs.Add(path)
	})
}
