package models

import "time"

// CheckStatus outcome of one check
type CheckStatus string

const (
	CheckPass CheckStatus = "pass"
	CheckFail CheckStatus = "fail"
	CheckWarn CheckStatus = "warn"
)

// CheckResult single checklist entry outcome
type CheckResult struct {
	Section string      `json:"section"`
	Label   string      `json:"label"`
	Status  CheckStatus `json:"status"`
	Detail  string      `json:"detail,omitempty"`
}

// VerifyReport aggregate health
type VerifyReport struct {
	Timestamp time.Time     `json:"timestamp"`
	Root      string        `json:"root"`
	Results   []CheckResult `json:"results"`
	Passed    int           `json:"passed"`
	Failed    int           `json:"failed"`
	Warned    int           `json:"warned"`
	Total     int           `json:"total"`
}

// Record appends r and updates the tally.
func (v *VerifyReport) Record(r CheckResult) {
	v.Results = append(v.Results, r)
	v.Total++
	switch r.Status {
	case CheckPass:
		v.Passed++
	case CheckWarn:
		v.Warned++
	default:
		v.Failed++
	}
}

// ExitCode is non-zero iff any hard failure was recorded.
func (v *VerifyReport) ExitCode() int {
	if v.Failed > 0 {
		return 1
	}
	return 0
}

// Sections returns section names in first-seen order.
func (v *VerifyReport) Sections() []string {
	var names []string
	seen := make(map[string]bool)
	for _, r := range v.Results {
		if !seen[r.Section] {
			seen[r.Section] = true
			names = append(names, r.Section)
		}
	}
	return names
}
