package scanner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// DefaultGitTimeout bounds every git subprocess
const DefaultGitTimeout = 5 * time.Second

// ContentSource resolves candidate content on demand
type ContentSource interface {
	Content(ctx context.Context, path string) ([]byte, error)
}

// GitIndex reads the staged (index) version of a file, not the working tree.
type GitIndex struct {
	Dir     string
	Timeout time.Duration
}

func (g *GitIndex) Content(ctx context.Context, path string) ([]byte, error) {
	// ":<path>" addresses stage 0 of the index
	return runGit(ctx, g.Dir, g.Timeout, "show", ":"+filepath.ToSlash(path))
}

// WorkTree reads files from disk, relative to Root.
type WorkTree struct {
	Root string
}

func (w *WorkTree) Content(_ context.Context, path string) ([]byte, error) {
	full := path
	if !filepath.IsAbs(path) && w.Root != "" {
		full = filepath.Join(w.Root, path)
	}
	return os.ReadFile(full)
}

// StagedPaths lists added, copied, modified and renamed paths in the index.
// Deleted paths are excluded.
func StagedPaths(ctx context.Context, dir string, timeout time.Duration) ([]string, error) {
	out, err := runGit(ctx, dir, timeout, "diff", "--cached", "--name-only", "--diff-filter=ACMR", "-z")
	if err != nil {
		return nil, fmt.Errorf("failed to list staged files: %w", err)
	}

	var paths []string
	for _, p := range strings.Split(string(out), "\x00") {
		if p != "" {
			paths = append(paths, p)
		}
	}
	return paths, nil
}

// ErrGitTimeout is returned when a git subprocess exceeds its bound
var ErrGitTimeout = errors.New("git subprocess timed out")

func runGit(ctx context.Context, dir string, timeout time.Duration, args ...string) ([]byte, error) {
	if timeout <= 0 {
		timeout = DefaultGitTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return nil, fmt.Errorf("%w after %s: git %s", ErrGitTimeout, timeout, args[0])
	}
	if err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return nil, fmt.Errorf("git %s: %s", args[0], msg)
	}
	return out, nil
}
