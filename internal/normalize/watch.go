package normalize

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watcher keeps a Normalizer's dictionary in sync with a phrase file.
//
// The parent directory is watched rather than the file itself so that
// editors which save by rename are picked up. A file that fails to parse
// leaves the previous dictionary active.
type Watcher struct {
	path    string
	norm    *Normalizer
	logger  *zap.Logger
	watcher *fsnotify.Watcher

	// onReload is called after every reload attempt (for testing).
	onReload func(error)
}

// NewWatcher loads path into n and starts watching it for changes.
// Call Run to process events.
func NewWatcher(path string, n *Normalizer, logger *zap.Logger) (*Watcher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve phrase file: %w", err)
	}

	d, err := LoadDictionaryFile(abs)
	if err != nil {
		return nil, err
	}
	n.SetDictionary(d)

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := fw.Add(filepath.Dir(abs)); err != nil {
		fw.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}

	logger.Info("phrase file loaded", zap.String("path", abs), zap.Int("phrases", d.Len()))
	return &Watcher{path: abs, norm: n, logger: logger, watcher: fw}, nil
}

// Run processes file events until ctx is cancelled, then releases the
// underlying watcher.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.watcher.Close()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			w.handleEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("phrase watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if filepath.Clean(event.Name) != w.path {
		return
	}
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
		return
	}

	d, err := LoadDictionaryFile(w.path)
	if err != nil {
		w.logger.Warn("phrase file reload failed, keeping previous dictionary",
			zap.String("path", w.path), zap.Error(err))
	} else {
		w.norm.SetDictionary(d)
		w.logger.Info("phrase file reloaded", zap.String("path", w.path), zap.Int("phrases", d.Len()))
	}

	if w.onReload != nil {
		w.onReload(err)
	}
}
