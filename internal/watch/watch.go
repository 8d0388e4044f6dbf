// Package watch reloads the YAML config while the process runs. Pattern
// and source updates apply without a restart; server and pool settings
// still require one.
package watch

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"FeedWatcher/internal/config"
)

// debounce absorbs the write bursts editors and atomic-rename saves
// produce for a single logical change.
const debounce = 500 * time.Millisecond

// Watcher re-parses one config file on change and hands the result to
// apply.
type Watcher struct {
	path   string
	apply  func(config.Config)
	logger *slog.Logger
	fs     *fsnotify.Watcher
}

// New watches the directory containing path. Watching the directory
// instead of the file survives rename-based saves.
func New(path string, apply func(config.Config), logger *slog.Logger) (*Watcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fs.Add(filepath.Dir(path)); err != nil {
		fs.Close()
		return nil, err
	}
	return &Watcher{path: path, apply: apply, logger: logger, fs: fs}, nil
}

// Run blocks until ctx is cancelled, applying debounced reloads.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fs.Close()

	var timer *time.Timer
	var pending <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.path) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(debounce)
				pending = timer.C
			} else {
				timer.Reset(debounce)
			}
		case <-pending:
			timer = nil
			pending = nil
			w.reload()
		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("config watch error", "error", err)
		}
	}
}

func (w *Watcher) reload() {
	raw, err := os.ReadFile(w.path)
	if err != nil {
		w.logger.Error("config reload read failed", "path", w.path, "error", err)
		return
	}
	cfg, err := config.Parse(raw)
	if err != nil {
		w.logger.Error("config reload parse failed, keeping previous config", "path", w.path, "error", err)
		return
	}
	w.logger.Info("config reloaded", "path", w.path)
	w.apply(cfg)
}
