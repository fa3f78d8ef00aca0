package backend

import (
	"context"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// ConfigWatcher re-reads the config file whenever it changes on disk.
type ConfigWatcher struct {
	watcher *fsnotify.Watcher
	path    string
	logger  *zap.Logger
	done    chan struct{}
}

// WatchConfig starts watching the config file at path. onChange receives
// each successfully parsed revision; malformed revisions are logged and
// skipped. The watcher stops when ctx is done or Close is called.
func WatchConfig(ctx context.Context, path string, logger *zap.Logger, onChange func(*Config)) (*ConfigWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	// watch the directory so editors that replace the file are seen
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return nil, err
	}
	w := &ConfigWatcher{
		watcher: watcher,
		path:    filepath.Clean(path),
		logger:  logger,
		done:    make(chan struct{}),
	}
	go w.run(ctx, onChange)
	return w, nil
}

func (w *ConfigWatcher) run(ctx context.Context, onChange func(*Config)) {
	defer close(w.done)
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path || !event.Has(fsnotify.Write|fsnotify.Create) {
				continue
			}
			cfg, err := ReadConfigFile(w.path)
			if err != nil {
				w.logger.Warn("ignoring unreadable config change", zap.String("path", w.path), zap.Error(err))
				continue
			}
			w.logger.Debug("config file changed", zap.String("path", w.path))
			onChange(cfg)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("config watcher error", zap.Error(err))
		}
	}
}

// Close stops the watcher and waits for it to exit.
func (w *ConfigWatcher) Close() error {
	err := w.watcher.Close()
	<-w.done
	return err
}
