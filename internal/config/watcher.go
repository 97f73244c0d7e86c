package config

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/epicmotionSD/openconductor-sub010/pkg/logging"
)

// PricingWatcher monitors config.yaml for changes and re-applies the pricing
// table without a restart. Only a successfully parsed file is applied; a
// broken rewrite keeps the last good table in effect.
type PricingWatcher struct {
	mu sync.Mutex

	configDir string

	// onChange receives each successfully re-parsed pricing table.
	onChange func(PricingConfig)

	// fsWatcher is the fsnotify watcher
	fsWatcher *fsnotify.Watcher

	// stopCh signals the watcher to stop
	stopCh chan struct{}

	// running indicates if the watcher is active
	running bool

	// debounceTimer helps prevent rapid successive reloads
	debounceTimer *time.Timer
	debounceMu    sync.Mutex
}

// DefaultDebounceInterval is the time to wait before re-reading the file
// after the last change event is detected. Editors often produce several
// writes per save.
const DefaultDebounceInterval = 500 * time.Millisecond

// NewPricingWatcher creates a watcher over the config directory.
func NewPricingWatcher(configDir string, onChange func(PricingConfig)) *PricingWatcher {
	return &PricingWatcher{
		configDir: configDir,
		onChange:  onChange,
	}
}

// Start begins watching for pricing changes.
func (w *PricingWatcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	if err := watcher.Add(w.configDir); err != nil {
		watcher.Close()
		return err
	}

	w.fsWatcher = watcher
	w.stopCh = make(chan struct{})
	w.running = true

	// Capture channels before releasing lock to avoid race conditions
	eventsCh := w.fsWatcher.Events
	errorsCh := w.fsWatcher.Errors

	go w.processEvents(eventsCh, errorsCh)

	logging.Info("Config", "Watching %s for pricing changes", w.configDir)
	return nil
}

// processEvents handles fsnotify events.
// The channels are passed as parameters to avoid race conditions with Stop().
func (w *PricingWatcher) processEvents(eventsCh <-chan fsnotify.Event, errorsCh <-chan error) {
	for {
		select {
		case <-w.stopCh:
			return

		case event, ok := <-eventsCh:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-errorsCh:
			if !ok {
				return
			}
			logging.Error("Config", err, "fsnotify error")
		}
	}
}

// handleEvent processes a single fsnotify event.
func (w *PricingWatcher) handleEvent(event fsnotify.Event) {
	if filepath.Base(event.Name) != configFileName {
		return
	}

	// Only handle write and create events
	if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
		return
	}

	logging.Debug("Config", "Config file changed: %s", event.Name)
	w.triggerReloadDebounced()
}

// triggerReloadDebounced re-reads the config after a debounce period.
func (w *PricingWatcher) triggerReloadDebounced() {
	w.debounceMu.Lock()
	defer w.debounceMu.Unlock()

	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}

	w.debounceTimer = time.AfterFunc(DefaultDebounceInterval, func() {
		w.mu.Lock()
		running := w.running
		callback := w.onChange
		dir := w.configDir
		w.mu.Unlock()

		if !running || callback == nil {
			return
		}

		cfg, err := LoadConfig(dir)
		if err != nil {
			logging.Warn("Config", "Pricing reload skipped, config unreadable: %v", err)
			return
		}
		if err := cfg.Validate(); err != nil {
			logging.Warn("Config", "Pricing reload skipped, config invalid: %v", err)
			return
		}

		logging.Info("Config", "Applying updated pricing table")
		callback(cfg.Pricing)
	})
}

// Stop gracefully stops the watcher.
func (w *PricingWatcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return nil
	}

	w.running = false
	close(w.stopCh)

	w.debounceMu.Lock()
	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
		w.debounceTimer = nil
	}
	w.debounceMu.Unlock()

	if w.fsWatcher != nil {
		if err := w.fsWatcher.Close(); err != nil {
			logging.Warn("Config", "Error closing fsnotify watcher: %v", err)
		}
		w.fsWatcher = nil
	}

	logging.Info("Config", "Stopped pricing watcher")
	return nil
}

// IsRunning returns whether the watcher is currently active.
func (w *PricingWatcher) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}
