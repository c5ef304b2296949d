package verify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/guardrail-dev/guardrail/internal/patterns"
	"github.com/guardrail-dev/guardrail/internal/policy"
	"github.com/joho/godotenv"
)

// FileExists requires every path to be a regular file.
func FileExists(paths ...string) Predicate {
	return func(ctx context.Context) error {
		var missing []string
		for _, p := range paths {
			info, err := os.Stat(p)
			if err != nil || !info.Mode().IsRegular() {
				missing = append(missing, p)
			}
		}
		if len(missing) > 0 {
			return fmt.Errorf("missing: %s", strings.Join(missing, ", "))
		}
		return nil
	}
}

func DirExists(paths ...string) Predicate {
	return func(ctx context.Context) error {
		var missing []string
		for _, p := range paths {
			info, err := os.Stat(p)
			if err != nil || !info.IsDir() {
				missing = append(missing, p)
			}
		}
		if len(missing) > 0 {
			return fmt.Errorf("directory missing: %s", strings.Join(missing, ", "))
		}
		return nil
	}
}

// JSONValid requires every path to parse as JSON.
func JSONValid(paths ...string) Predicate {
	return func(ctx context.Context) error {
		for _, p := range paths {
			data, err := os.ReadFile(p)
			if err != nil {
				return fmt.Errorf("cannot read %s: %w", p, err)
			}
			var v any
			if err := json.Unmarshal(data, &v); err != nil {
				return fmt.Errorf("invalid JSON in %s: %w", p, err)
			}
		}
		return nil
	}
}

// Executable requires every file matching the glob to carry an execute bit.
func Executable(pattern string) Predicate {
	return func(ctx context.Context) error {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return fmt.Errorf("bad pattern %q: %w", pattern, err)
		}
		if len(matches) == 0 {
			return fmt.Errorf("no files match %s", pattern)
		}

		var notExec []string
		for _, m := range matches {
			info, err := os.Stat(m)
			if err != nil {
				notExec = append(notExec, m)
				continue
			}
			if info.IsDir() {
				continue
			}
			if info.Mode().Perm()&0o111 == 0 {
				notExec = append(notExec, filepath.Base(m))
			}
		}
		if len(notExec) > 0 {
			return fmt.Errorf("not executable: %s", strings.Join(notExec, ", "))
		}
		return nil
	}
}

// SymlinksValid requires every symlink under dir to resolve. An absent dir
// has nothing to dangle.
func SymlinksValid(dir string) Predicate {
	return func(ctx context.Context) error {
		if _, err := os.Stat(dir); errors.Is(err, fs.ErrNotExist) {
			return nil
		}

		var broken []string
		err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return nil
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if d.Type()&fs.ModeSymlink == 0 {
				return nil
			}
			if _, err := os.Stat(path); err != nil {
				rel, relErr := filepath.Rel(dir, path)
				if relErr != nil {
					rel = path
				}
				broken = append(broken, rel)
			}
			return nil
		})
		if err != nil {
			return err
		}
		if len(broken) > 0 {
			return fmt.Errorf("broken symlinks: %s", strings.Join(broken, ", "))
		}
		return nil
	}
}

// CommandAvailable requires name on PATH.
func CommandAvailable(name string) Predicate {
	return func(ctx context.Context) error {
		if _, err := exec.LookPath(name); err != nil {
			return fmt.Errorf("%s not found on PATH", name)
		}
		return nil
	}
}

// EnvFileKeys requires each key to be present and non-empty in a dotenv
// file. Values are never reported.
func EnvFileKeys(path string, keys []string) Predicate {
	return func(ctx context.Context) error {
		env, err := godotenv.Read(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("env file not found: %s", path)
			}
			return fmt.Errorf("cannot parse %s: %w", path, err)
		}

		var missing, empty []string
		for _, k := range keys {
			v, ok := env[k]
			switch {
			case !ok:
				missing = append(missing, k)
			case strings.TrimSpace(v) == "":
				empty = append(empty, k)
			}
		}

		var parts []string
		if len(missing) > 0 {
			parts = append(parts, "missing "+strings.Join(missing, ", "))
		}
		if len(empty) > 0 {
			parts = append(parts, "empty "+strings.Join(empty, ", "))
		}
		if len(parts) > 0 {
			return errors.New(strings.Join(parts, "; "))
		}
		return nil
	}
}

// HookEvents requires the settings document's hooks map to declare every
// event with at least one entry, and min hook entries overall.
func HookEvents(path string, events []string, min int) Predicate {
	return func(ctx context.Context) error {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("cannot read %s: %w", path, err)
		}

		hooksMap, err := extractHooksMap(data)
		if err != nil {
			return fmt.Errorf("%s: %w", filepath.Base(path), err)
		}

		var absent []string
		for _, event := range events {
			if groups, ok := hooksMap[event].([]any); !ok || len(groups) == 0 {
				absent = append(absent, event)
			}
		}
		if len(absent) > 0 {
			return fmt.Errorf("no hooks for %s", strings.Join(absent, ", "))
		}

		if count := countHooks(hooksMap); count < min {
			return fmt.Errorf("%d hooks installed, want at least %d", count, min)
		}
		return nil
	}
}

func extractHooksMap(data []byte) (map[string]any, error) {
	var parsed map[string]any
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}

	raw, ok := parsed["hooks"]
	if !ok {
		return nil, errors.New("no hooks section")
	}
	hooksMap, ok := raw.(map[string]any)
	if !ok {
		return nil, errors.New("hooks section is not an object")
	}
	return hooksMap, nil
}

// countHooks counts command entries across every event's matcher groups
func countHooks(hooksMap map[string]any) int {
	count := 0
	for _, raw := range hooksMap {
		groups, ok := raw.([]any)
		if !ok {
			continue
		}
		for _, g := range groups {
			group, ok := g.(map[string]any)
			if !ok {
				count++
				continue
			}
			if hooks, ok := group["hooks"].([]any); ok {
				count += len(hooks)
			} else {
				count++
			}
		}
	}
	return count
}

// MinFileCount requires at least min files matching the glob.
func MinFileCount(pattern string, min int) Predicate {
	return func(ctx context.Context) error {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return fmt.Errorf("bad pattern %q: %w", pattern, err)
		}
		count := 0
		for _, m := range matches {
			if info, err := os.Stat(m); err == nil && info.Mode().IsRegular() {
				count++
			}
		}
		if count < min {
			return fmt.Errorf("found %d files matching %s, want at least %d", count, filepath.Base(pattern), min)
		}
		return nil
	}
}

// PatternSchema fails closed: the schema must exist, compile, and carry the
// supported version.
func PatternSchema(path string) Predicate {
	return func(ctx context.Context) error {
		schema, err := patterns.Load(path)
		if err != nil {
			if errors.Is(err, patterns.ErrSchemaNotFound) {
				return fmt.Errorf("pattern schema not found: %s", path)
			}
			return err
		}
		if err := patterns.CheckVersion(schema.Version); err != nil {
			return err
		}
		if schema.RuleCount() == 0 {
			return errors.New("pattern schema declares no rules")
		}
		return nil
	}
}

// Expr evaluates a CEL expression with the decoded document bound to input.
func Expr(engine *policy.Engine, path, expr string) Predicate {
	return func(ctx context.Context) error {
		input, err := policy.LoadInput(path)
		if err != nil {
			return err
		}
		ok, err := engine.Eval(ctx, expr, input)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("expression is false: %s", expr)
		}
		return nil
	}
}
