package logging

import (
	"context"
	"fmt"
	"io"
	"os"
)

// Logger is carried on the context. Fields are alternating key/value pairs.
type Logger interface {
	Debug(component, msg string, fields ...any)
	Info(component, msg string, fields ...any)
	Warn(component, msg string, fields ...any)
	Error(component, msg string, fields ...any)
	Event(ctx context.Context, event string, fields map[string]any)
	Close() error
}

type loggerKey struct{}

func WithLogger(ctx context.Context, l Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, l)
}

// From never returns nil; commands run without a configured logger in tests.
func From(ctx context.Context) Logger {
	if l, ok := ctx.Value(loggerKey{}).(Logger); ok {
		return l
	}
	return noopLogger{}
}

func NewLogger(cfg Config) (Logger, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	if cfg.Format != "" && cfg.Format != FormatPretty && cfg.Format != FormatJSONL {
		return nil, fmt.Errorf("unknown log format %q (want pretty or jsonl)", cfg.Format)
	}

	w, closer, err := openOutput(cfg.Output)
	if err != nil {
		return nil, err
	}

	if cfg.Format == FormatJSONL {
		return &jsonlLogger{writer: w, closer: closer, minLevel: levelPriority(level)}, nil
	}
	return &prettyLogger{writer: w, closer: closer, minLevel: levelPriority(level)}, nil
}

func openOutput(output string) (io.Writer, io.Closer, error) {
	switch output {
	case "", OutputStderr:
		return os.Stderr, nil, nil
	case OutputStdout:
		return os.Stdout, nil, nil
	}
	f, err := os.OpenFile(output, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log output: %w", err)
	}
	return f, f, nil
}

type noopLogger struct{}

func (noopLogger) Debug(component, msg string, fields ...any)                     {}
func (noopLogger) Info(component, msg string, fields ...any)                      {}
func (noopLogger) Warn(component, msg string, fields ...any)                      {}
func (noopLogger) Error(component, msg string, fields ...any)                     {}
func (noopLogger) Event(ctx context.Context, event string, fields map[string]any) {}
func (noopLogger) Close() error                                                   { return nil }
