package watcher

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Event represents a change to one of the followed files.
type Event struct {
	Path string
	Op   fsnotify.Op
}

// Watcher reports changes to a fixed set of files. It watches their parent
// directories so a file that is removed and re-created (log rotation) keeps
// producing events without being re-added.
type Watcher struct {
	fsw     *fsnotify.Watcher
	events  chan Event
	paths   []string
	tracked map[string]bool
	log     *zap.Logger
}

// New expands the glob patterns and watches every matched file. It fails
// when no pattern matches any file.
func New(patterns []string, log *zap.Logger) (*Watcher, error) {
	if log == nil {
		log = zap.NewNop()
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}

	w := &Watcher{
		fsw:     fsw,
		events:  make(chan Event, 256),
		tracked: make(map[string]bool),
		log:     log,
	}

	dirs := make(map[string]bool)
	for _, pattern := range patterns {
		matches, err := expandGlob(pattern)
		if err != nil {
			log.Warn("cannot expand pattern", zap.String("pattern", pattern), zap.Error(err))
			continue
		}
		for _, m := range matches {
			abs, err := filepath.Abs(m)
			if err != nil || w.tracked[abs] {
				continue
			}
			dir := filepath.Dir(abs)
			if !dirs[dir] {
				if err := fsw.Add(dir); err != nil {
					log.Warn("cannot watch directory", zap.String("dir", dir), zap.Error(err))
					continue
				}
				dirs[dir] = true
			}
			w.tracked[abs] = true
			w.paths = append(w.paths, abs)
		}
	}

	if len(w.paths) == 0 {
		fsw.Close()
		return nil, fmt.Errorf("no files matched %v", patterns)
	}
	return w, nil
}

// Events returns the channel of changes to followed files. It is closed when
// Start returns.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// Paths returns the absolute paths of the followed files.
func (w *Watcher) Paths() []string {
	return w.paths
}

// Start forwards write, create, remove and rename events for followed files.
// It blocks until the context is cancelled.
func (w *Watcher) Start(ctx context.Context) {
	defer w.fsw.Close()
	defer close(w.events)

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if !w.tracked[ev.Name] || !relevant(ev.Op) {
				continue
			}
			select {
			case w.events <- Event{Path: ev.Name, Op: ev.Op}:
			case <-ctx.Done():
				return
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.log.Warn("watcher error", zap.Error(err))
		}
	}
}

// relevant reports whether op can change what a tailer reads.
func relevant(op fsnotify.Op) bool {
	return op.Has(fsnotify.Write) || op.Has(fsnotify.Create) ||
		op.Has(fsnotify.Remove) || op.Has(fsnotify.Rename)
}

// expandGlob resolves a glob pattern to matching file paths.
// Supports recursive patterns like /var/log/**/*.log via doublestar.
func expandGlob(pattern string) ([]string, error) {
	return doublestar.FilepathGlob(pattern, doublestar.WithFilesOnly(), doublestar.WithFailOnIOErrors())
}
