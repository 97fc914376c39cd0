package config

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// ChangeListener 在配置文件变更且重新校验通过后调用。
type ChangeListener func(*Config)

// Watcher 监听主配置文件，变更时整体重新 Load。
type Watcher struct {
	path string
	v    *viper.Viper

	mu      sync.RWMutex
	current *Config
	version int64
	stopped atomic.Bool
}

// Watch 加载配置并开始监听 FS 事件。重新加载失败时保留旧配置。
func Watch(path string, onChange ChangeListener, onError func(error)) (*Watcher, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("config watcher requires path")
	}
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config failed: %w", err)
	}
	w := &Watcher{path: path, v: v, current: cfg, version: 1}
	v.OnConfigChange(func(evt fsnotify.Event) {
		if w.stopped.Load() {
			return
		}
		if !evt.Has(fsnotify.Write) && !evt.Has(fsnotify.Create) {
			return
		}
		next, err := Load(w.path)
		if err != nil {
			if onError != nil {
				onError(fmt.Errorf("config reload failed (%s): %w", evt.Name, err))
			}
			return
		}
		w.mu.Lock()
		if w.stopped.Load() {
			w.mu.Unlock()
			return
		}
		w.current = next
		w.version++
		w.mu.Unlock()
		if onChange != nil {
			onChange(next)
		}
	})
	v.WatchConfig()
	return w, nil
}

// Current 返回最近一次成功加载的配置。
func (w *Watcher) Current() *Config {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

func (w *Watcher) Version() int64 {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.version
}

// Stop 停止应用后续的文件变更。viper 不支持取消监听，停止后事件被直接丢弃。
func (w *Watcher) Stop() {
	if w == nil {
		return
	}
	w.stopped.Store(true)
}

func (w *Watcher) Stopped() bool {
	return w != nil && w.stopped.Load()
}
