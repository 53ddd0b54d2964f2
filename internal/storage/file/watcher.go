package file

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"mamaboss/internal/storage"
)

// Change identifies a document touched on disk.
type Change struct {
	Scope string
	Key   string
}

// Watcher reports document changes made under the data directory, by this
// process or any other. Bursts for the same document are coalesced.
type Watcher struct {
	root     string
	fsw      *fsnotify.Watcher
	logger   *slog.Logger
	debounce time.Duration

	mu      sync.Mutex
	pending map[Change]struct{}
}

func NewWatcher(root string, debounce time.Duration, logger *slog.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	if debounce <= 0 {
		debounce = 100 * time.Millisecond
	}
	return &Watcher{
		root:     root,
		fsw:      fsw,
		logger:   logger,
		debounce: debounce,
		pending:  make(map[Change]struct{}),
	}, nil
}

// Run watches until ctx is done, calling onChange for each settled change.
func (w *Watcher) Run(ctx context.Context, onChange func(Change)) error {
	defer w.fsw.Close()

	if err := w.fsw.Add(w.root); err != nil {
		return err
	}
	entries, err := os.ReadDir(w.root)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if e.IsDir() {
			w.add(filepath.Join(w.root, e.Name()))
		}
	}

	w.logger.Info("Data directory watcher started", "root", w.root, "debounce", w.debounce)

	ticker := time.NewTicker(w.debounce)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			w.handle(ev)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("Watcher error", "error", err)

		case <-ticker.C:
			for _, c := range w.drain() {
				onChange(c)
			}
		}
	}
}

func (w *Watcher) add(dir string) {
	if err := w.fsw.Add(dir); err != nil {
		w.logger.Warn("Failed to watch directory", "path", dir, "error", err)
	}
}

func (w *Watcher) handle(ev fsnotify.Event) {
	if ev.Has(fsnotify.Create) && filepath.Dir(ev.Name) == filepath.Clean(w.root) {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			w.add(ev.Name)
			return
		}
	}

	name := filepath.Base(ev.Name)
	if strings.HasPrefix(name, ".") || !strings.HasSuffix(name, docExt) {
		return
	}
	if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
		return
	}

	scope := filepath.Base(filepath.Dir(ev.Name))
	if scope == globalDir {
		scope = storage.GlobalScope
	}

	w.mu.Lock()
	w.pending[Change{Scope: scope, Key: strings.TrimSuffix(name, docExt)}] = struct{}{}
	w.mu.Unlock()
}

func (w *Watcher) drain() []Change {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.pending) == 0 {
		return nil
	}
	out := make([]Change, 0, len(w.pending))
	for c := range w.pending {
		out = append(out, c)
	}
	clear(w.pending)
	return out
}
