package tailer

import (
	"bufio"
	"context"
	"io"
	"os"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/atikulmunna/logtally/internal/watcher"
)

// Tailer reads lines appended to the watched files and merges them into a
// single stream. It implements feed.Feed.
type Tailer struct {
	mu        sync.Mutex
	files     map[string]*trackedFile
	out       chan string
	watch     *watcher.Watcher
	fromStart bool
	log       *zap.Logger
}

type trackedFile struct {
	path   string
	file   *os.File
	r      *bufio.Reader
	offset int64
	buf    string // partial line without its newline yet
}

// New creates a Tailer over the files of w. With fromStart, existing content
// is read first; otherwise only lines appended after Start are delivered.
func New(w *watcher.Watcher, fromStart bool, log *zap.Logger) *Tailer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Tailer{
		files:     make(map[string]*trackedFile),
		out:       make(chan string, 512),
		watch:     w,
		fromStart: fromStart,
		log:       log,
	}
}

// Next returns the next complete line, including its newline. It returns
// io.EOF once Start has returned and every buffered line was consumed.
func (t *Tailer) Next(ctx context.Context) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case line, ok := <-t.out:
		if !ok {
			return "", io.EOF
		}
		return line, nil
	}
}

// Start begins processing watcher events. Blocks until the context is
// cancelled or the watcher stops.
func (t *Tailer) Start(ctx context.Context) {
	defer close(t.out)
	defer t.closeAll()

	for _, p := range t.watch.Paths() {
		t.openFile(p, t.fromStart)
		if t.fromStart && !t.readNewLines(ctx, p) {
			return
		}
	}

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-t.watch.Events():
			if !ok {
				return
			}
			if !t.handleEvent(ctx, ev) {
				return
			}
		}
	}
}

// handleEvent dispatches watcher events. It returns false once ctx is done.
func (t *Tailer) handleEvent(ctx context.Context, ev watcher.Event) bool {
	switch {
	case ev.Op.Has(fsnotify.Create):
		// Re-created after rotation: the new file is read from its start.
		t.closeFile(ev.Path)
		t.openFile(ev.Path, true)
		return t.readNewLines(ctx, ev.Path)

	case ev.Op.Has(fsnotify.Write):
		return t.readNewLines(ctx, ev.Path)

	case ev.Op.Has(fsnotify.Remove), ev.Op.Has(fsnotify.Rename):
		t.closeFile(ev.Path)
	}
	return true
}

// openFile starts tracking path at its start or its current end.
func (t *Tailer) openFile(path string, fromStart bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.files[path]; exists {
		return
	}

	f, err := os.Open(path)
	if err != nil {
		t.log.Warn("cannot open file", zap.String("path", path), zap.Error(err))
		return
	}

	var offset int64
	if !fromStart {
		if offset, err = f.Seek(0, io.SeekEnd); err != nil {
			t.log.Warn("cannot seek", zap.String("path", path), zap.Error(err))
			offset = 0
		}
	}

	t.files[path] = &trackedFile{
		path:   path,
		file:   f,
		r:      bufio.NewReader(f),
		offset: offset,
	}
}

// readNewLines reads from the last offset to EOF and emits complete lines.
// A trailing partial line is kept until its newline arrives. It returns false
// if ctx was cancelled while emitting.
func (t *Tailer) readNewLines(ctx context.Context, path string) bool {
	t.mu.Lock()
	tf, ok := t.files[path]
	t.mu.Unlock()
	if !ok {
		return true
	}

	// Truncated in place (copytruncate rotation): start over.
	if info, err := tf.file.Stat(); err == nil && info.Size() < tf.offset {
		t.log.Info("file truncated", zap.String("path", path))
		if _, err := tf.file.Seek(0, io.SeekStart); err == nil {
			tf.r.Reset(tf.file)
			tf.offset = 0
			tf.buf = ""
		}
	}

	for {
		chunk, err := tf.r.ReadString('\n')
		tf.offset += int64(len(chunk))
		if err != nil {
			tf.buf += chunk
			if err != io.EOF {
				t.log.Warn("read error", zap.String("path", path), zap.Error(err))
			}
			return true
		}

		line := tf.buf + chunk
		tf.buf = ""
		select {
		case t.out <- line:
		case <-ctx.Done():
			return false
		}
	}
}

// closeFile releases a tracked file.
func (t *Tailer) closeFile(path string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if tf, ok := t.files[path]; ok {
		tf.file.Close()
		delete(t.files, path)
	}
}

// closeAll closes all tracked file handles.
func (t *Tailer) closeAll() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for path, tf := range t.files {
		tf.file.Close()
		delete(t.files, path)
	}
}
