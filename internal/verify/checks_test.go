package verify

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/guardrail-dev/guardrail/internal/policy"
)

func writeFile(t *testing.T, dir, name, content string, mode os.FileMode) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), mode); err != nil {
		t.Fatal(err)
	}
	return path
}

const settings = `{
  "permissions": {"deny": ["Read(./.env)"]},
  "hooks": {
    "PreToolUse": [{"matcher": "Bash", "hooks": [{"type": "command", "command": "a"}, {"type": "command", "command": "b"}]}],
    "SessionStart": [{"hooks": [{"type": "command", "command": "c"}]}],
    "Stop": []
  }
}`

func TestPredicates(t *testing.T) {
	dir := t.TempDir()
	settingsPath := writeFile(t, dir, "settings.json", settings, 0o644)
	writeFile(t, dir, "broken.json", "{", 0o644)
	writeFile(t, dir, "hooks/run.sh", "#!/bin/sh\n", 0o755)
	writeFile(t, dir, "scripts/a.sh", "#!/bin/sh\n", 0o755)
	writeFile(t, dir, "scripts/b.sh", "#!/bin/sh\n", 0o644)
	writeFile(t, dir, "commands/one.md", "# one", 0o644)
	writeFile(t, dir, "commands/two.md", "# two", 0o644)
	writeFile(t, dir, ".env", "API_KEY=abc\nEMPTY=\n# comment\nQUOTED=\"x y\"\n", 0o600)
	writeFile(t, dir, "nohooks.json", `{"model": "x"}`, 0o644)

	links := filepath.Join(dir, "links")
	if err := os.MkdirAll(links, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink(settingsPath, filepath.Join(links, "good")); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}
	brokenLinks := filepath.Join(dir, "broken-links")
	if err := os.MkdirAll(brokenLinks, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink(filepath.Join(dir, "nowhere"), filepath.Join(brokenLinks, "bad")); err != nil {
		t.Fatal(err)
	}

	engine, err := policy.NewEngine()
	if err != nil {
		t.Fatal(err)
	}
	p := func(name string) string { return filepath.Join(dir, name) }

	tests := []struct {
		name    string
		pred    Predicate
		wantErr string // empty means pass
	}{
		{"file exists", FileExists(p("settings.json")), ""},
		{"file missing", FileExists(p("settings.json"), p("CLAUDE.md")), "CLAUDE.md"},
		{"file is dir", FileExists(p("hooks")), "missing"},
		{"dir exists", DirExists(p("commands")), ""},
		{"dir missing", DirExists(p("agents")), "directory missing"},
		{"json valid", JSONValid(p("settings.json")), ""},
		{"json invalid", JSONValid(p("broken.json")), "invalid JSON"},
		{"json missing", JSONValid(p("absent.json")), "cannot read"},
		{"executable", Executable(p("hooks/*.sh")), ""},
		{"not executable", Executable(p("scripts/*.sh")), "b.sh"},
		{"executable no match", Executable(p("bin/*")), "no files match"},
		{"symlinks ok", SymlinksValid(links), ""},
		{"symlinks broken", SymlinksValid(brokenLinks), "bad"},
		{"symlinks dir absent", SymlinksValid(p("absent")), ""},
		{"command available", CommandAvailable("sh"), ""},
		{"command missing", CommandAvailable("definitely-not-a-real-binary-xyz"), "not found on PATH"},
		{"env keys present", EnvFileKeys(p(".env"), []string{"API_KEY", "QUOTED"}), ""},
		{"env key missing", EnvFileKeys(p(".env"), []string{"API_KEY", "TOKEN"}), "missing TOKEN"},
		{"env key empty", EnvFileKeys(p(".env"), []string{"EMPTY"}), "empty EMPTY"},
		{"env file absent", EnvFileKeys(p("nope.env"), []string{"A"}), "env file not found"},
		{"hooks ok", HookEvents(settingsPath, []string{"PreToolUse", "SessionStart"}, 3), ""},
		{"hooks event empty", HookEvents(settingsPath, []string{"Stop"}, 0), "no hooks for Stop"},
		{"hooks too few", HookEvents(settingsPath, nil, 4), "3 hooks installed"},
		{"hooks section absent", HookEvents(p("nohooks.json"), []string{"PreToolUse"}, 0), "no hooks section"},
		{"min files", MinFileCount(p("commands/*.md"), 2), ""},
		{"min files short", MinFileCount(p("commands/*.md"), 3), "found 2 files"},
		{"expr true", Expr(engine, settingsPath, `"Read(./.env)" in input.permissions.deny`), ""},
		{"expr false", Expr(engine, settingsPath, `size(input.hooks) > 5`), "expression is false"},
		{"expr bad input", Expr(engine, p("broken.json"), `true`), "invalid JSON"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.pred(context.Background())
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("expected pass, got %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected failure containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestEnvFileKeys_NeverReportsValues(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, ".env", "API_KEY=sk-very-secret\n", 0o600)

	err := EnvFileKeys(path, []string{"API_KEY", "OTHER"})(context.Background())
	if err == nil {
		t.Fatal("expected failure")
	}
	if strings.Contains(err.Error(), "sk-very-secret") {
		t.Errorf("detail leaks value: %v", err)
	}
}

func TestPatternSchema(t *testing.T) {
	dir := t.TempDir()
	valid := writeFile(t, dir, "patterns.json", `{"schema_version": "1.0",
	  "secrets": {"patterns": [{"name": "aws-key", "regex": "AKIA[0-9A-Z]{16}", "severity": "critical"}]}}`, 0o644)
	newer := writeFile(t, dir, "newer.json", `{"schema_version": "1.2",
	  "secrets": {"patterns": [{"name": "aws-key", "regex": "AKIA[0-9A-Z]{16}", "severity": "critical"}]}}`, 0o644)
	empty := writeFile(t, dir, "empty.json", `{"schema_version": "1.0"}`, 0o644)
	broken := writeFile(t, dir, "broken.json", `{"schema_version": "1.0",
	  "secrets": {"patterns": [{"name": "bad", "regex": "(", "severity": "high"}]}}`, 0o644)

	tests := []struct {
		name    string
		path    string
		wantErr string
	}{
		{"valid", valid, ""},
		{"absent", filepath.Join(dir, "absent.json"), "not found"},
		{"other minor version", newer, "1.2"},
		{"no rules", empty, "no rules"},
		{"bad regex", broken, "bad"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := PatternSchema(tt.path)(context.Background())
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("expected pass, got %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}
