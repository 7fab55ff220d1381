// Package logschema lists the structured fields each log event must carry,
// so log consumers (pnl reports, dashboards) can rely on them.
package logschema

import (
	"fmt"
	"sort"
	"strings"
)

// Schema 定义每个日志事件所需的关键字段，便于集中校验。
type Schema struct {
	Event    string
	Required []string
}

var schemas = map[string]Schema{
	"quote_event": {
		Event:    "quote_event",
		Required: []string{"event", "model", "mid", "inventory", "volatility", "ttl_ms", "reservation", "spread", "bid", "ask", "ts"},
	},
	"fill_event": {
		Event:    "fill_event",
		Required: []string{"event", "delta", "price", "position", "realized", "ts"},
	},
	"reject_event": {
		Event:    "reject_event",
		Required: []string{"event", "reason", "kind", "ts"},
	},
	"error_event": {
		Event:    "error_event",
		Required: []string{"error", "kind", "ts"},
	},
}

// Known 返回所有事件名，便于外部生成文档。
func Known() []string {
	names := make([]string, 0, len(schemas))
	for k := range schemas {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Required 返回事件要求的字段；未知事件返回 nil。
func Required(event string) []string {
	return append([]string(nil), schemas[event].Required...)
}

// Validate 检查日志字段是否包含 schema 中要求的 key；未登记的事件不校验。
func Validate(event string, fields map[string]interface{}) error {
	s, ok := schemas[event]
	if !ok {
		return nil
	}
	var missing []string
	for _, key := range s.Required {
		if _, exists := fields[key]; !exists {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%s: missing fields: %s", event, strings.Join(missing, ","))
	}
	return nil
}
