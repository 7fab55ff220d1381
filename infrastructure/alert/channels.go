package alert

import (
	"sync"

	"go.uber.org/zap"

	"asmm-quoter/infrastructure/logger"
)

// LogChannel 通过结构化日志输出告警
type LogChannel struct {
	logger *logger.Logger
	name   string
}

// NewLogChannel 创建日志告警通道；log 为 nil 时丢弃。
func NewLogChannel(name string, log *logger.Logger) *LogChannel {
	if log == nil {
		log = logger.NewNop()
	}
	return &LogChannel{logger: log, name: name}
}

func (c *LogChannel) Send(a Alert) error {
	fields := []zap.Field{
		zap.String("event", "alert"),
		zap.String("level", a.Level.String()),
		zap.String("source", a.Source),
		zap.Time("ts", a.Timestamp),
	}
	for k, v := range a.Fields {
		fields = append(fields, zap.Any(k, v))
	}
	c.logger.Error(a.Message, fields...)
	return nil
}

func (c *LogChannel) Name() string { return c.name }

// MemoryChannel 在内存中保存告警，供测试与离线检查。
type MemoryChannel struct {
	mu     sync.Mutex
	name   string
	alerts []Alert
	err    error
}

func NewMemoryChannel(name string) *MemoryChannel {
	return &MemoryChannel{name: name}
}

func (c *MemoryChannel) Send(a Alert) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.alerts = append(c.alerts, a)
	return nil
}

func (c *MemoryChannel) Name() string { return c.name }

// Alerts 返回已接收告警的副本
func (c *MemoryChannel) Alerts() []Alert {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Alert(nil), c.alerts...)
}

// FailWith 使后续 Send 返回 err；nil 恢复正常。
func (c *MemoryChannel) FailWith(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.err = err
}
