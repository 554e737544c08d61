package config

import (
	"context"
	"log"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

type Manager struct {
	mu       sync.RWMutex
	path     string
	config   *Config
	onReload []func(*Config)
	watcher  *fsnotify.Watcher
	wg       sync.WaitGroup
}

func NewManager() (*Manager, error) {
	log.Printf("Config manager: initializing configuration system...")

	configPath, err := GetConfigPath()
	if err != nil {
		return nil, err
	}
	if _, err := Load(); err != nil {
		log.Printf("Config manager: failed to load initial configuration: %v", err)
		return nil, err
	}
	return NewManagerAt(configPath)
}

// NewManagerAt manages the config file at path, which must exist.
func NewManagerAt(path string) (*Manager, error) {
	config, err := LoadFile(path)
	if err != nil {
		log.Printf("Config manager: failed to load initial configuration: %v", err)
		return nil, err
	}

	log.Printf("Config manager: validating initial configuration...")
	if err := config.Validate(); err != nil {
		log.Printf("Config manager: validation warning: %v", err)
	}

	m := &Manager{
		path:   path,
		config: config,
	}

	log.Printf("Config manager: initialization completed successfully")
	return m, nil
}

func (m *Manager) Path() string {
	return m.path
}

func (m *Manager) GetConfig() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()

	// Return a copy to prevent external modification
	configCopy := *m.config
	return &configCopy
}

// OnReload registers fn to receive every successfully validated reload.
func (m *Manager) OnReload(fn func(*Config)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onReload = append(m.onReload, fn)
}

func (m *Manager) StartWatching(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	m.watcher = watcher

	// Watch the directory: editors and Save replace the file by rename.
	if err := watcher.Add(filepath.Dir(m.path)); err != nil {
		watcher.Close()
		return err
	}

	m.wg.Add(1)
	go m.watchLoop(ctx)

	log.Printf("Config manager: watching %s for changes", m.path)
	return nil
}

func (m *Manager) Stop() {
	if m.watcher != nil {
		m.watcher.Close()
	}
	m.wg.Wait()
}

func (m *Manager) watchLoop(ctx context.Context) {
	defer m.wg.Done()
	configFileName := filepath.Base(m.path)

	for {
		select {
		case event, ok := <-m.watcher.Events:
			if !ok {
				return
			}

			if filepath.Base(event.Name) != configFileName {
				continue
			}

			if event.Op&fsnotify.Write == fsnotify.Write || event.Op&fsnotify.Create == fsnotify.Create {
				log.Printf("Config manager: file change detected: %s. Reloading config...", event.Name)
				m.Reload()
			}

		case err, ok := <-m.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("Config watcher error: %v", err)

		case <-ctx.Done():
			return
		}
	}
}

// Reload re-reads the file. An unreadable or invalid file keeps the current
// config.
func (m *Manager) Reload() bool {
	log.Printf("Config manager: starting configuration reload...")

	newConfig, err := LoadFile(m.path)
	if err != nil {
		log.Printf("Config manager: failed to reload config: %v", err)
		return false
	}

	log.Printf("Config manager: validating new configuration...")
	if err := newConfig.Validate(); err != nil {
		log.Printf("Config manager: invalid config after reload: %v", err)
		return false
	}

	m.mu.Lock()
	m.config = newConfig
	callbacks := append([]func(*Config){}, m.onReload...)
	m.mu.Unlock()

	for _, fn := range callbacks {
		configCopy := *newConfig
		fn(&configCopy)
	}

	log.Printf("Config manager: configuration successfully reloaded")
	return true
}
