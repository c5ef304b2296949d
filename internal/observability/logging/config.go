package logging

import (
	"fmt"
	"strings"
)

// Config selects the log sink. Format is "pretty" or "jsonl"; Output is
// "stderr", "stdout" or a file path opened for append.
type Config struct {
	Format string
	Level  string
	Output string
}

func DefaultConfig() Config {
	return Config{
		Format: FormatPretty,
		Level:  LevelWarn,
		Output: OutputStderr,
	}
}

const (
	FormatPretty = "pretty"
	FormatJSONL  = "jsonl"
)

const (
	OutputStderr = "stderr"
	OutputStdout = "stdout"
)

const (
	LevelDebug = "debug"
	LevelInfo  = "info"
	LevelWarn  = "warn"
	LevelError = "error"
)

var levels = []string{LevelDebug, LevelInfo, LevelWarn, LevelError}

// ParseLevel normalises a level name. Empty means warn.
func ParseLevel(s string) (string, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return LevelWarn, nil
	}
	if s == "warning" {
		return LevelWarn, nil
	}
	for _, l := range levels {
		if s == l {
			return l, nil
		}
	}
	return "", fmt.Errorf("unknown log level %q (want %s)", s, strings.Join(levels, ", "))
}

func levelPriority(level string) int {
	for i, l := range levels {
		if level == l {
			return i
		}
	}
	return 1
}
