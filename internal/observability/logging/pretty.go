package logging

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
)

// prettyLogger writes one human line per entry; events are dropped
type prettyLogger struct {
	writer   io.Writer
	closer   io.Closer
	minLevel int
	mu       sync.Mutex
}

func (p *prettyLogger) log(level, component, msg string, fields ...any) {
	if levelPriority(level) < p.minLevel {
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "guardrail: %s: %s: %s", level, component, msg)

	m := fieldMap(fields)
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, m[k])
	}
	b.WriteString("\n")

	p.mu.Lock()
	defer p.mu.Unlock()
	_, _ = io.WriteString(p.writer, b.String())
}

func (p *prettyLogger) Debug(component, msg string, fields ...any) {
	p.log(LevelDebug, component, msg, fields...)
}

func (p *prettyLogger) Info(component, msg string, fields ...any) {
	p.log(LevelInfo, component, msg, fields...)
}

func (p *prettyLogger) Warn(component, msg string, fields ...any) {
	p.log(LevelWarn, component, msg, fields...)
}

func (p *prettyLogger) Error(component, msg string, fields ...any) {
	p.log(LevelError, component, msg, fields...)
}

func (p *prettyLogger) Event(ctx context.Context, event string, fields map[string]any) {}

func (p *prettyLogger) Close() error {
	if p.closer != nil {
		return p.closer.Close()
	}
	return nil
}
