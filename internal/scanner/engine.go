// Package scanner applies the pattern schema to candidate paths, staged
// content and proposed shell commands.
package scanner

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"github.com/guardrail-dev/guardrail/internal/models"
	"github.com/guardrail-dev/guardrail/internal/observability/logging"
	"github.com/guardrail-dev/guardrail/internal/patterns"
)

// contentCategories are matched against file content
var contentCategories = []models.Category{models.CategorySecrets, models.CategoryPII}

// Engine evaluates a compiled schema. Safe for sequential reuse.
type Engine struct {
	schema *patterns.CompiledSchema
}

func NewEngine(schema *patterns.CompiledSchema) *Engine {
	return &Engine{schema: schema}
}

// ScanFiles checks paths against blocked_paths and their content against
// secrets and pii.
func (e *Engine) ScanFiles(ctx context.Context, paths []string, src ContentSource) *models.ScanReport {
	return e.Scan(ctx, paths, nil, src)
}

// ScanCommands checks proposed shell commands against blocked_commands.
func (e *Engine) ScanCommands(ctx context.Context, commands []string) *models.ScanReport {
	return e.Scan(ctx, nil, commands, nil)
}

// Scan evaluates every rule against every candidate and returns all findings.
func (e *Engine) Scan(ctx context.Context, paths, commands []string, src ContentSource) *models.ScanReport {
	report := newReport(len(paths) + len(commands))
	report.SchemaVersion = e.schema.Version
	report.Fingerprint = e.schema.Fingerprint

	for _, path := range dedupe(paths) {
		e.scanFile(ctx, report, path, src)
	}
	for i, command := range commands {
		for _, rule := range e.schema.Rules(models.CategoryBlockedCommands) {
			if rule.Pattern.MatchString(command) {
				report.Findings = append(report.Findings, newFinding(rule, fmt.Sprintf("command[%d]", i), 0))
			}
		}
	}

	SortFindings(report.Findings)
	return report
}

func (e *Engine) scanFile(ctx context.Context, report *models.ScanReport, path string, src ContentSource) {
	log := logging.From(ctx)
	slashPath := filepath.ToSlash(path)

	// path rules never need content, and binary files are not exempt
	for _, rule := range e.schema.Rules(models.CategoryBlockedPaths) {
		if rule.Pattern.MatchString(slashPath) {
			report.Findings = append(report.Findings, newFinding(rule, path, 0))
		}
	}

	if src == nil || !e.hasContentRules() {
		return
	}

	data, err := src.Content(ctx, path)
	if err != nil {
		log.Warn("scanner", "content not scanned: file unreadable", "path", path, "error", err.Error())
		report.Unreadable = append(report.Unreadable, models.Unreadable{Path: path, Reason: err.Error()})
		return
	}

	if IsBinary(data) {
		log.Debug("scanner", "binary content skipped", "path", path)
		report.BinarySkipped = append(report.BinarySkipped, path)
		return
	}
	report.FilesScanned++

	for _, category := range contentCategories {
		for _, rule := range e.schema.Rules(category) {
			loc := rule.Pattern.FindIndex(data)
			if loc == nil {
				continue
			}
			line := bytes.Count(data[:loc[0]], []byte{'\n'}) + 1
			report.Findings = append(report.Findings, newFinding(rule, path, line))
		}
	}
}

func (e *Engine) hasContentRules() bool {
	for _, c := range contentCategories {
		if len(e.schema.Rules(c)) > 0 {
			return true
		}
	}
	return false
}

// SortFindings orders by category, then path, then rule name.
func SortFindings(findings []models.Finding) {
	sort.SliceStable(findings, func(i, j int) bool {
		a, b := findings[i], findings[j]
		if a.Category != b.Category {
			return a.Category.Order() < b.Category.Order()
		}
		if a.Path != b.Path {
			return a.Path < b.Path
		}
		return a.Rule < b.Rule
	})
}

func newFinding(rule patterns.CompiledRule, path string, line int) models.Finding {
	return models.Finding{
		Category: rule.Category,
		Rule:     rule.Name,
		Severity: rule.Severity,
		Path:     path,
		Line:     line,
	}
}

func newReport(candidates int) *models.ScanReport {
	return &models.ScanReport{
		Timestamp:  time.Now().UTC(),
		Candidates: candidates,
		Findings:   []models.Finding{},
	}
}

func dedupe(paths []string) []string {
	seen := make(map[string]bool, len(paths))
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out
}
