package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/guardrail-dev/guardrail/internal/models"
)

const (
	outcomeAllowed = "ALLOWED"
	outcomeBlocked = "BLOCKED"
)

// ScanOutput JSON output structure
type ScanOutput struct {
	Outcome       string              `json:"outcome"`
	SchemaVersion string              `json:"schemaVersion,omitempty"`
	Fingerprint   string              `json:"schemaFingerprint,omitempty"`
	SchemaMissing bool                `json:"schemaMissing,omitempty"`
	Summary       ScanSummary         `json:"summary"`
	Findings      []models.Finding    `json:"findings"`
	BinarySkipped []string            `json:"binarySkipped,omitempty"`
	Unreadable    []models.Unreadable `json:"unreadable,omitempty"`
}

// ScanSummary counts by category
type ScanSummary struct {
	Candidates     int `json:"candidates"`
	FilesScanned   int `json:"filesScanned"`
	Secrets        int `json:"secrets"`
	PII            int `json:"pii"`
	BlockedPaths   int `json:"blockedPaths"`
	BlockedCommand int `json:"blockedCommands"`
	Total          int `json:"total"`
}

// BuildScanOutput from a report
func BuildScanOutput(report *models.ScanReport) *ScanOutput {
	counts := report.CountByCategory()
	out := &ScanOutput{
		Outcome:       outcomeAllowed,
		SchemaVersion: report.SchemaVersion,
		Fingerprint:   report.Fingerprint,
		SchemaMissing: report.SchemaMissing,
		Summary: ScanSummary{
			Candidates:     report.Candidates,
			FilesScanned:   report.FilesScanned,
			Secrets:        counts[models.CategorySecrets],
			PII:            counts[models.CategoryPII],
			BlockedPaths:   counts[models.CategoryBlockedPaths],
			BlockedCommand: counts[models.CategoryBlockedCommands],
			Total:          len(report.Findings),
		},
		Findings:      report.Findings,
		BinarySkipped: report.BinarySkipped,
		Unreadable:    report.Unreadable,
	}
	if out.Findings == nil {
		out.Findings = []models.Finding{}
	}
	if !report.Allowed() {
		out.Outcome = outcomeBlocked
	}
	return out
}

// FormatScanJSON indented JSON
func FormatScanJSON(report *models.ScanReport) ([]byte, error) {
	return json.MarshalIndent(BuildScanOutput(report), "", "  ")
}

// palette applies ANSI colours unless disabled
type palette bool

func (p palette) paint(color, s string) string {
	if !p || color == "" {
		return s
	}
	return color + s + colorReset
}

// FormatScanText human readable. Findings name the rule and location, never the match.
func FormatScanText(report *models.ScanReport, color bool) string {
	p := palette(color)
	var sb strings.Builder

	if report.Allowed() {
		sb.WriteString(p.paint(colorGreen, "guardrail scan: ALLOWED"))
		sb.WriteString(fmt.Sprintf(" (%d candidates, %d files scanned)\n", report.Candidates, report.FilesScanned))
	} else {
		sb.WriteString(p.paint(colorRed, "guardrail scan: BLOCKED"))
		sb.WriteString(fmt.Sprintf(" (%d findings in %d candidates)\n", len(report.Findings), report.Candidates))
	}

	if report.SchemaMissing {
		sb.WriteString(p.paint(colorYellow, "! pattern schema not found, scanning disabled"))
		sb.WriteString("\n")
	} else if report.SchemaVersion != "" {
		sb.WriteString(fmt.Sprintf("Schema: v%s\n", report.SchemaVersion))
	}

	if len(report.Findings) > 0 {
		sb.WriteString("\n")
		groups := groupFindings(report.Findings)
		for _, c := range models.Categories {
			findings := groups[c]
			if len(findings) == 0 {
				continue
			}
			sb.WriteString(p.paint(colorRed, fmt.Sprintf("%s (%d)", categoryHeading(c), len(findings))))
			sb.WriteString("\n")
			for _, f := range findings {
				sb.WriteString(fmt.Sprintf("  ✗ %s  %s [%s]\n", findingLocation(f), f.Rule, f.Severity))
			}
			sb.WriteString("\n")
		}
	}

	if n := len(report.BinarySkipped); n > 0 {
		sb.WriteString(fmt.Sprintf("Skipped %d binary file(s)\n", n))
	}
	for _, u := range report.Unreadable {
		sb.WriteString(p.paint(colorYellow, fmt.Sprintf("! unreadable: %s (%s)", u.Path, u.Reason)))
		sb.WriteString("\n")
	}

	return sb.String()
}

// groupFindings keeps the report's order within each category
func groupFindings(findings []models.Finding) map[models.Category][]models.Finding {
	groups := make(map[models.Category][]models.Finding)
	for _, f := range findings {
		groups[f.Category] = append(groups[f.Category], f)
	}
	return groups
}

func categoryHeading(c models.Category) string {
	return strings.ToUpper(strings.ReplaceAll(string(c), "_", " "))
}

func findingLocation(f models.Finding) string {
	if f.Line > 0 {
		return fmt.Sprintf("%s:%d", f.Path, f.Line)
	}
	return f.Path
}
