package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/guardrail-dev/guardrail/internal/models"
)

const (
	resultHealthy   = "HEALTHY"
	resultUnhealthy = "UNHEALTHY"
)

// VerifyOutput JSON output structure
type VerifyOutput struct {
	Result  string `json:"result"`
	Summary string `json:"summary"`
	*models.VerifyReport
}

// BuildVerifyOutput wraps a report with its verdict
func BuildVerifyOutput(report *models.VerifyReport) *VerifyOutput {
	result := resultHealthy
	if report.Failed > 0 {
		result = resultUnhealthy
	}
	return &VerifyOutput{
		Result:       result,
		Summary:      buildVerifySummary(report.Passed, report.Failed, report.Warned, report.Total),
		VerifyReport: report,
	}
}

// FormatVerifyJSON indented JSON
func FormatVerifyJSON(report *models.VerifyReport) ([]byte, error) {
	return json.MarshalIndent(BuildVerifyOutput(report), "", "  ")
}

func statusIcon(status models.CheckStatus) string {
	switch status {
	case models.CheckPass:
		return "✓"
	case models.CheckWarn:
		return "!"
	default:
		return "✗"
	}
}

func statusColor(status models.CheckStatus) string {
	switch status {
	case models.CheckPass:
		return colorGreen
	case models.CheckWarn:
		return colorYellow
	default:
		return colorRed
	}
}

// FormatVerifyText groups results by section and ends with the tally.
func FormatVerifyText(report *models.VerifyReport, color bool) string {
	p := palette(color)
	out := BuildVerifyOutput(report)
	var sb strings.Builder

	verdictColor := colorGreen
	if out.Result == resultUnhealthy {
		verdictColor = colorRed
	}
	sb.WriteString(p.paint(colorBold, "guardrail verify"))
	sb.WriteString(fmt.Sprintf(": %s\n", report.Root))
	sb.WriteString(p.paint(verdictColor, out.Result))
	sb.WriteString(fmt.Sprintf(" (%s)\n", out.Summary))

	for _, section := range report.Sections() {
		sb.WriteString("\n")
		sb.WriteString(p.paint(colorBold, section))
		sb.WriteString("\n")
		for _, r := range report.Results {
			if r.Section != section {
				continue
			}
			sb.WriteString("  ")
			sb.WriteString(p.paint(statusColor(r.Status), statusIcon(r.Status)))
			sb.WriteString(" ")
			sb.WriteString(r.Label)
			if r.Detail != "" && r.Status != models.CheckPass {
				sb.WriteString(": ")
				sb.WriteString(r.Detail)
			}
			sb.WriteString("\n")
		}
	}

	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("Passed: %d\n", report.Passed))
	sb.WriteString(fmt.Sprintf("Failed: %d\n", report.Failed))
	sb.WriteString(fmt.Sprintf("Warnings: %d\n", report.Warned))

	return sb.String()
}

func buildVerifySummary(passes, fails, warns, total int) string {
	parts := []string{fmt.Sprintf("%d/%d checks passed", passes, total)}
	if warns > 0 {
		w := fmt.Sprintf("%d warning", warns)
		if warns > 1 {
			w += "s"
		}
		parts = append(parts, w)
	}
	if fails > 0 {
		parts = append(parts, fmt.Sprintf("%d failed", fails))
	}
	return strings.Join(parts, ", ")
}
