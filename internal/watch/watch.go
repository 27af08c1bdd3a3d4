// Package watch reports changes to markdown notes under a vault root.
package watch

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
)

type Watcher struct {
	root   string
	logger *log.Logger
	fsw    *fsnotify.Watcher
}

// New watches root and every non-hidden directory below it.
func New(root string, logger *log.Logger) (*Watcher, error) {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{root: root, logger: logger, fsw: fsw}
	if err := w.addTree(root); err != nil {
		_ = fsw.Close()
		return nil, err
	}
	return w, nil
}

// Run calls onChange for every write, create, remove or rename of a .md file
// until ctx is done.
func (w *Watcher) Run(ctx context.Context, onChange func(path string)) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			w.handle(ev, onChange)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", "error", err)
		}
	}
}

func (w *Watcher) Close() error {
	return w.fsw.Close()
}

func (w *Watcher) handle(ev fsnotify.Event, onChange func(string)) {
	if ev.Has(fsnotify.Create) {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			if !hidden(filepath.Base(ev.Name)) {
				_ = w.addTree(ev.Name)
			}
			return
		}
	}
	if !strings.HasSuffix(strings.ToLower(ev.Name), ".md") {
		return
	}
	if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
		return
	}
	w.logger.Debug("note changed", "path", ev.Name, "op", ev.Op.String())
	onChange(ev.Name)
}

func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != w.root && hidden(d.Name()) {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			w.logger.Warn("cannot watch directory", "path", path, "error", err)
		}
		return nil
	})
}

func hidden(name string) bool {
	return strings.HasPrefix(name, ".")
}
