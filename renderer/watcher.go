package renderer

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// ShaderWatcher records which programs in a shader directory changed on
// disk. The frame thread drains it with Changed and recompiles.
type ShaderWatcher struct {
	Dir string

	watcher *fsnotify.Watcher
	logger  *slog.Logger

	mu      sync.Mutex
	pending map[string]bool
	done    chan struct{}
}

// NewShaderWatcher starts watching dir.
func NewShaderWatcher(dir string, logger *slog.Logger) (*ShaderWatcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("shader watcher: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watch shader dir %q: %w", dir, err)
	}
	w := &ShaderWatcher{
		Dir:     dir,
		watcher: watcher,
		logger:  logger,
		pending: make(map[string]bool),
		done:    make(chan struct{}),
	}
	go w.run()
	return w, nil
}

func (w *ShaderWatcher) run() {
	defer close(w.done)
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			names := programsForFile(event.Name)
			if len(names) == 0 {
				continue
			}
			w.logger.Debug("shader changed", "file", event.Name, "programs", names)
			w.mu.Lock()
			for _, n := range names {
				w.pending[n] = true
			}
			w.mu.Unlock()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("shader watcher", "err", err)
		}
	}
}

// Changed returns and clears the programs changed since the last call,
// sorted by name.
func (w *ShaderWatcher) Changed() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.pending) == 0 {
		return nil
	}
	out := make([]string, 0, len(w.pending))
	for n := range w.pending {
		out = append(out, n)
	}
	clear(w.pending)
	slices.Sort(out)
	return out
}

func (w *ShaderWatcher) Close() error {
	err := w.watcher.Close()
	<-w.done
	return err
}

// programsForFile maps a changed file to the programs that must be rebuilt.
// A changed chunk rebuilds every program.
func programsForFile(file string) []string {
	base := filepath.Base(file)
	ext := filepath.Ext(base)
	switch ext {
	case ".glsl":
		return slices.Clone(Programs)
	case ".vert", ".frag":
		name := strings.TrimSuffix(base, ext)
		if slices.Contains(Programs, name) {
			return []string{name}
		}
	}
	return nil
}
