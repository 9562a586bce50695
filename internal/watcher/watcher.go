// Package watcher reloads the configuration file when it changes on disk,
// so API keys, debug level, and request logging can be adjusted without a
// restart.
package watcher

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	log "github.com/sirupsen/logrus"

	"github.com/router-for-me/PerplexityProxyAPI/internal/config"
)

const reloadDebounce = 500 * time.Millisecond

// Watcher observes one configuration file and invokes a callback with the
// freshly parsed configuration after every change.
type Watcher struct {
	configPath string
	onReload   func(*config.Config)
}

// NewWatcher creates a watcher for configPath. onReload runs on the
// watcher goroutine after each successful reload.
func NewWatcher(configPath string, onReload func(*config.Config)) *Watcher {
	return &Watcher{configPath: configPath, onReload: onReload}
}

// Start watches until ctx is cancelled. Editors replace files rather than
// write them in place, so the parent directory is watched and events are
// debounced before reloading.
func (w *Watcher) Start(ctx context.Context) error {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() {
		_ = fsWatcher.Close()
	}()

	if err = fsWatcher.Add(filepath.Dir(w.configPath)); err != nil {
		return err
	}
	log.Debugf("watching %s for configuration changes", w.configPath)

	var debounce *time.Timer
	var debounceC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-fsWatcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.configPath) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if debounce == nil {
				debounce = time.NewTimer(reloadDebounce)
				debounceC = debounce.C
			} else {
				debounce.Reset(reloadDebounce)
			}
		case <-debounceC:
			debounce = nil
			debounceC = nil
			w.reload()
		case err, ok := <-fsWatcher.Errors:
			if !ok {
				return nil
			}
			log.Warnf("config watcher error: %v", err)
		}
	}
}

func (w *Watcher) reload() {
	cfg, err := config.LoadConfig(w.configPath)
	if err != nil {
		log.Errorf("failed to reload config: %v", err)
		return
	}
	log.Infof("configuration reloaded from %s", w.configPath)
	if w.onReload != nil {
		w.onReload(cfg)
	}
}
