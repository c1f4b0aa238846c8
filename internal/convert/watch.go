// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
)

// DebounceDelay is how long a watcher waits after the last change before
// converting.
const DebounceDelay = 200 * time.Millisecond

// Watcher reconverts org files under a root directory as they change.
type Watcher struct {
	conv     *Converter
	root     string
	dest     string
	out      io.Writer
	fs       *fsnotify.Watcher
	debounce time.Duration
}

// NewWatcher watches root and all its subdirectories. Converted files go
// under dest and status lines to out. Call Run to start processing events.
func (c *Converter) NewWatcher(root, dest string, out io.Writer) (*Watcher, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", root)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating file watcher: %w", err)
	}
	w := &Watcher{conv: c, root: root, dest: dest, out: out, fs: fw, debounce: DebounceDelay}
	if err := w.addTree(root); err != nil {
		fw.Close()
		return nil, err
	}
	return w, nil
}

// Close stops watching.
func (w *Watcher) Close() error {
	return w.fs.Close()
}

// addTree adds dir and every directory below it, except hidden ones such
// as the ledger directory.
func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		if err := w.fs.Add(path); err != nil {
			return fmt.Errorf("watching %s: %w", path, err)
		}
		w.conv.log.Debug("watching", "dir", path)
		return nil
	})
}

// Run processes file events until ctx is done. Changed files are collected
// until no event arrived for the debounce delay and are then converted as
// one batch.
func (w *Watcher) Run(ctx context.Context) error {
	pending := make(map[string]bool)
	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := w.addTree(event.Name); err != nil {
						w.conv.log.Warn("watching new directory", "dir", event.Name, "err", err)
					}
					continue
				}
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if !w.selected(event.Name) {
				continue
			}
			w.conv.log.Debug("change detected, debouncing", "file", event.Name)
			pending[event.Name] = true
			timer.Reset(w.debounce)

		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			w.conv.log.Error("watcher error", "err", err)

		case <-timer.C:
			w.flush(ctx, pending)
			clear(pending)
		}
	}
}

func (w *Watcher) flush(ctx context.Context, pending map[string]bool) {
	files := make([]string, 0, len(pending))
	for f := range pending {
		if _, err := os.Stat(f); err == nil {
			files = append(files, f)
		}
	}
	if len(files) == 0 {
		return
	}
	slices.Sort(files)

	jobs, err := Jobs(w.root, w.dest, files)
	if err != nil {
		w.conv.log.Error("building export paths", "err", err)
		return
	}
	w.conv.ConvertBatch(ctx, jobs, w.out)
}

// selected applies the same rules as Discover to a single path.
func (w *Watcher) selected(path string) bool {
	if filepath.Ext(path) != orgExt || IsIndexFile(w.root, path) {
		return false
	}
	rel, err := filepath.Rel(w.root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return false
	}
	rel = filepath.ToSlash(rel)
	if excluded(rel, w.conv.cfg.Exclude) {
		return false
	}
	for _, pattern := range w.conv.cfg.Include {
		if ok, err := doublestar.Match(pattern, rel); err == nil && ok {
			return true
		}
	}
	return false
}
