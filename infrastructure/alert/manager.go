// Package alert fans quoting failures out to notification channels with
// per-key throttling.
package alert

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"asmm-quoter/errs"
)

// Level 告警级别
type Level int

const (
	LevelWarning Level = iota
	LevelError
	LevelCritical
)

func (l Level) String() string {
	switch l {
	case LevelWarning:
		return "WARNING"
	case LevelError:
		return "ERROR"
	case LevelCritical:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

// Alert 告警信息
type Alert struct {
	Level     Level
	Source    string // 触发的操作，如 quote / fill
	Message   string
	Timestamp time.Time
	Fields    map[string]interface{}
}

// key 限流键：同一来源同一消息只发一次。
func (a Alert) key() string {
	return fmt.Sprintf("%s:%s:%s", a.Level, a.Source, a.Message)
}

// FromError 按错误类别定级：数值溢出与定义域错误为 CRITICAL，
// 报价生成失败为 ERROR，其余为 WARNING。
func FromError(source string, err error) Alert {
	kind := errs.KindOf(err)
	level := LevelWarning
	switch kind {
	case errs.KindOverflow, errs.KindDomain:
		level = LevelCritical
	case errs.KindInvalidQuoteGeneration:
		level = LevelError
	}
	fields := map[string]interface{}{"kind": kind.String()}
	if f := errs.FieldOf(err); f != "" {
		fields["field"] = f
	}
	return Alert{Level: level, Source: source, Message: err.Error(), Fields: fields}
}

// Channel 告警通道接口
type Channel interface {
	Send(alert Alert) error
	Name() string
}

// Throttler 告警限流器
type Throttler struct {
	lastSent map[string]time.Time
	interval time.Duration
	mu       sync.Mutex
}

// NewThrottler 创建限流器；interval <= 0 时不限流。
func NewThrottler(interval time.Duration) *Throttler {
	return &Throttler{
		lastSent: make(map[string]time.Time),
		interval: interval,
	}
}

// Allow 检查 now 时刻是否允许发送 key。
func (t *Throttler) Allow(key string, now time.Time) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	last, ok := t.lastSent[key]
	if ok && now.Sub(last) < t.interval {
		return false
	}
	t.lastSent[key] = now
	return true
}

// Clear 清空所有限流记录
func (t *Throttler) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lastSent = make(map[string]time.Time)
}

// Manager 告警管理器
type Manager struct {
	mu       sync.RWMutex
	channels []Channel
	throttle *Throttler
	now      func() time.Time
}

// NewManager 创建告警管理器
func NewManager(throttleInterval time.Duration, channels ...Channel) *Manager {
	return &Manager{
		channels: channels,
		throttle: NewThrottler(throttleInterval),
		now:      time.Now,
	}
}

// Notify 发送到所有通道。被限流时返回 false；通道错误合并返回。
func (m *Manager) Notify(a Alert) (bool, error) {
	if a.Timestamp.IsZero() {
		a.Timestamp = m.now()
	}
	if !m.throttle.Allow(a.key(), a.Timestamp) {
		return false, nil
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	var failed []error
	for _, ch := range m.channels {
		if err := ch.Send(a); err != nil {
			failed = append(failed, fmt.Errorf("channel %s: %w", ch.Name(), err))
		}
	}
	return true, errors.Join(failed...)
}

// AddChannel 添加告警通道
func (m *Manager) AddChannel(ch Channel) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.channels = append(m.channels, ch)
}

// Channels 返回通道名称
func (m *Manager) Channels() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.channels))
	for _, ch := range m.channels {
		names = append(names, ch.Name())
	}
	return names
}

// ResetThrottle 重置限流器
func (m *Manager) ResetThrottle() {
	m.throttle.Clear()
}
