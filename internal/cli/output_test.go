package cli

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/guardrail-dev/guardrail/internal/models"
)

func blockedReport() *models.ScanReport {
	return &models.ScanReport{
		SchemaVersion: "1.0",
		Candidates:    4,
		FilesScanned:  2,
		BinarySkipped: []string{"logo.png"},
		Unreadable:    []models.Unreadable{{Path: "locked.txt", Reason: "permission denied"}},
		Findings: []models.Finding{
			{Category: models.CategorySecrets, Rule: "aws-key", Severity: models.SeverityCritical, Path: "config.txt", Line: 3},
			{Category: models.CategoryBlockedPaths, Rule: "dotenv", Severity: models.SeverityHigh, Path: ".env"},
		},
	}
}

func TestFormatScanText(t *testing.T) {
	tests := []struct {
		name    string
		report  *models.ScanReport
		want    []string
		notWant []string
	}{
		{
			name:   "blocked",
			report: blockedReport(),
			want: []string{
				"guardrail scan: BLOCKED (2 findings in 4 candidates)",
				"SECRETS (1)\n  ✗ config.txt:3  aws-key [critical]",
				"BLOCKED PATHS (1)\n  ✗ .env  dotenv [high]",
				"Skipped 1 binary file(s)",
				"! unreadable: locked.txt (permission denied)",
			},
			notWant: []string{"PII", "ALLOWED"},
		},
		{
			name:    "allowed",
			report:  &models.ScanReport{SchemaVersion: "1.0", Candidates: 2, FilesScanned: 2},
			want:    []string{"guardrail scan: ALLOWED (2 candidates, 2 files scanned)", "Schema: v1.0"},
			notWant: []string{"BLOCKED", "✗"},
		},
		{
			name:    "schema missing",
			report:  &models.ScanReport{SchemaMissing: true, Candidates: 1},
			want:    []string{"ALLOWED", "pattern schema not found, scanning disabled"},
			notWant: []string{"Schema: v"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FormatScanText(tt.report, false)
			for _, w := range tt.want {
				if !strings.Contains(got, w) {
					t.Errorf("output missing %q:\n%s", w, got)
				}
			}
			for _, w := range tt.notWant {
				if strings.Contains(got, w) {
					t.Errorf("output should not contain %q:\n%s", w, got)
				}
			}
			if strings.Contains(got, "\033[") {
				t.Error("colour disabled but ANSI codes present")
			}
		})
	}
}

func TestFormatScanText_Color(t *testing.T) {
	got := FormatScanText(blockedReport(), true)
	if !strings.Contains(got, colorRed+"guardrail scan: BLOCKED"+colorReset) {
		t.Errorf("expected red verdict:\n%q", got)
	}
}

func TestFormatScanJSON(t *testing.T) {
	data, err := FormatScanJSON(blockedReport())
	if err != nil {
		t.Fatalf("FormatScanJSON failed: %v", err)
	}

	var parsed ScanOutput
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if parsed.Outcome != outcomeBlocked {
		t.Errorf("outcome = %s, want %s", parsed.Outcome, outcomeBlocked)
	}
	want := ScanSummary{Candidates: 4, FilesScanned: 2, Secrets: 1, BlockedPaths: 1, Total: 2}
	if parsed.Summary != want {
		t.Errorf("summary = %+v, want %+v", parsed.Summary, want)
	}

	empty, err := FormatScanJSON(&models.ScanReport{})
	if err != nil {
		t.Fatalf("FormatScanJSON failed: %v", err)
	}
	if !strings.Contains(string(empty), `"findings": []`) {
		t.Errorf("findings should encode as an empty array: %s", empty)
	}
}

func verifyReport() *models.VerifyReport {
	r := &models.VerifyReport{Root: "/home/dev/.claude"}
	r.Record(models.CheckResult{Section: "Core files", Label: "settings.json present", Status: models.CheckPass})
	r.Record(models.CheckResult{Section: "Security", Label: "pattern schema valid", Status: models.CheckFail, Detail: "pattern schema not found: x"})
	r.Record(models.CheckResult{Section: "Core files", Label: "CLAUDE.md present", Status: models.CheckWarn, Detail: "missing: CLAUDE.md"})
	return r
}

func TestFormatVerifyText(t *testing.T) {
	got := FormatVerifyText(verifyReport(), false)

	for _, want := range []string{
		"guardrail verify: /home/dev/.claude\nUNHEALTHY (1/3 checks passed, 1 warning, 1 failed)\n",
		"Core files\n  ✓ settings.json present\n  ! CLAUDE.md present: missing: CLAUDE.md\n",
		"Security\n  ✗ pattern schema valid: pattern schema not found: x\n",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
	if !strings.HasSuffix(got, "\nPassed: 1\nFailed: 1\nWarnings: 1\n") {
		t.Errorf("output must end with the tally:\n%s", got)
	}
	if strings.Index(got, "Core files") > strings.Index(got, "Security") {
		t.Error("sections should keep first-seen order")
	}
}

func TestFormatVerifyJSON(t *testing.T) {
	data, err := FormatVerifyJSON(verifyReport())
	if err != nil {
		t.Fatalf("FormatVerifyJSON failed: %v", err)
	}
	var parsed struct {
		Result  string               `json:"result"`
		Summary string               `json:"summary"`
		Results []models.CheckResult `json:"results"`
		Passed  int                  `json:"passed"`
		Failed  int                  `json:"failed"`
		Warned  int                  `json:"warned"`
	}
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if parsed.Result != resultUnhealthy || len(parsed.Results) != 3 || parsed.Passed+parsed.Failed+parsed.Warned != 3 {
		t.Errorf("parsed = %+v", parsed)
	}
}

func TestBuildVerifySummary(t *testing.T) {
	tests := []struct {
		passes, fails, warns, total int
		want                        string
	}{
		{5, 0, 0, 5, "5/5 checks passed"},
		{4, 0, 1, 5, "4/5 checks passed, 1 warning"},
		{3, 0, 2, 5, "3/5 checks passed, 2 warnings"},
		{3, 2, 0, 5, "3/5 checks passed, 2 failed"},
		{2, 1, 2, 5, "2/5 checks passed, 2 warnings, 1 failed"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := buildVerifySummary(tt.passes, tt.fails, tt.warns, tt.total); got != tt.want {
				t.Errorf("buildVerifySummary() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExtractCommand(t *testing.T) {
	if got := extractCommand([]string{"git", "push", "--force"}); got != "git push --force" {
		t.Errorf("extractCommand() = %q", got)
	}
}
