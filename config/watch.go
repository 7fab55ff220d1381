package config

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"asmm-quoter/infrastructure/logger"
)

// Watcher reloads the config file whenever it is written or replaced.
// Each accepted reload hands a freshly validated AppConfig to the
// callback; files that fail to load are logged and skipped, so the
// previous config stays in force.
type Watcher struct {
	Path string
	// Cooldown 两次重载之间的最小间隔，避免编辑器连续写入引发抖动。
	Cooldown time.Duration
	Logger   *logger.Logger
}

// Start blocks until ctx is done.
func (w Watcher) Start(ctx context.Context, onUpdate func(AppConfig)) error {
	log := w.Logger
	if log == nil {
		log = logger.NewNop()
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fw.Close()

	// 监听目录：很多编辑器以 rename 方式保存，直接监听文件会丢事件
	target := filepath.Clean(w.Path)
	if err := fw.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("watch %s: %w", target, err)
	}

	var lastReload time.Time
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if w.Cooldown > 0 && time.Since(lastReload) < w.Cooldown {
				continue
			}
			cfg, err := LoadWithEnvOverrides(target)
			if err != nil {
				log.LogReject("config_reload", err, map[string]interface{}{"path": target})
				continue
			}
			lastReload = time.Now()
			log.Info("config reloaded", zap.String("path", target))
			if onUpdate != nil {
				onUpdate(cfg)
			}
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			log.Warn("config watcher error", zap.Error(err))
		}
	}
}
