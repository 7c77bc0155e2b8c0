package config

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// ReloadedEvent represents a config reload event.
type ReloadedEvent struct {
	Timestamp   time.Time
	PublicPaths []string
	Error       error
}

// FileWatcher monitors the config file and hot-reloads the public path
// allow-list. Only the allow-list is reloaded: secrets, listeners, and
// store settings require a restart.
type FileWatcher struct {
	watcher  *fsnotify.Watcher
	path     string
	cfg      *Config
	logger   *zap.Logger
	debounce time.Duration

	mu         sync.Mutex
	timer      *time.Timer
	eventChan  chan ReloadedEvent
	stopChan   chan struct{}
	isWatching bool
}

// NewFileWatcher creates a watcher for the given config file.
func NewFileWatcher(path string, cfg *Config, logger *zap.Logger) (*FileWatcher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	return &FileWatcher{
		watcher:   watcher,
		path:      path,
		cfg:       cfg,
		logger:    logger,
		debounce:  500 * time.Millisecond,
		eventChan: make(chan ReloadedEvent, 10),
		stopChan:  make(chan struct{}),
	}, nil
}

// Watch starts watching the config file's directory for changes.
// Editors typically replace rather than rewrite files, so watching the
// directory survives rename-based saves.
func (fw *FileWatcher) Watch(ctx context.Context) error {
	fw.mu.Lock()
	if fw.isWatching {
		fw.mu.Unlock()
		return fmt.Errorf("watcher is already running")
	}
	fw.isWatching = true
	fw.mu.Unlock()

	if err := fw.watcher.Add(filepath.Dir(fw.path)); err != nil {
		fw.mu.Lock()
		fw.isWatching = false
		fw.mu.Unlock()
		return fmt.Errorf("failed to add path to watcher: %w", err)
	}

	fw.logger.Info("Starting config file watcher",
		zap.String("path", fw.path),
		zap.Duration("debounce", fw.debounce),
	)

	go fw.watchLoop(ctx)
	return nil
}

// Events returns the channel of reload events.
func (fw *FileWatcher) Events() <-chan ReloadedEvent {
	return fw.eventChan
}

// Stop halts the watcher and releases the fsnotify handle.
func (fw *FileWatcher) Stop() error {
	close(fw.stopChan)
	return fw.watcher.Close()
}

func (fw *FileWatcher) watchLoop(ctx context.Context) {
	defer func() {
		fw.mu.Lock()
		fw.isWatching = false
		fw.mu.Unlock()
		fw.logger.Info("Config file watcher stopped")
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-fw.stopChan:
			return

		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			if fw.shouldProcessEvent(event) {
				fw.scheduleReload()
			}

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			fw.logger.Error("Watcher error", zap.Error(err))
		}
	}
}

// shouldProcessEvent filters events down to writes touching the config file.
func (fw *FileWatcher) shouldProcessEvent(event fsnotify.Event) bool {
	if filepath.Clean(event.Name) != filepath.Clean(fw.path) {
		return false
	}
	return event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0
}

// scheduleReload debounces bursts of file events into a single reload.
func (fw *FileWatcher) scheduleReload() {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	if fw.timer != nil {
		fw.timer.Stop()
	}
	fw.timer = time.AfterFunc(fw.debounce, fw.reload)
}

func (fw *FileWatcher) reload() {
	event := ReloadedEvent{Timestamp: time.Now()}

	fresh, err := Load(fw.path)
	if err != nil {
		fw.logger.Warn("Config reload failed, keeping previous public paths",
			zap.String("path", fw.path),
			zap.Error(err),
		)
		event.Error = err
	} else {
		fw.cfg.SetPublicPaths(fresh.Auth.PublicPaths)
		event.PublicPaths = fresh.Auth.PublicPaths
		fw.logger.Info("Reloaded public path allow-list",
			zap.Strings("public_paths", event.PublicPaths),
		)
	}

	select {
	case fw.eventChan <- event:
	default:
		// Slow consumer; drop rather than block the watcher.
	}
}
