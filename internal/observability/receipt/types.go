// Package receipt writes one evidence record per CLI invocation.
package receipt

// ReceiptSchemaVersion current
const ReceiptSchemaVersion = "1.0"

// Receipt structure
type Receipt struct {
	SchemaVersion string         `json:"schema_version"`
	OpID          string         `json:"op_id"`
	TsStart       string         `json:"ts_start"`
	TsEnd         string         `json:"ts_end"`
	Command       string         `json:"command"`
	Args          []string       `json:"args"`
	ArgsRedacted  bool           `json:"args_redacted,omitempty"`
	Result        Result         `json:"result"`
	Patterns      *PatternsRef   `json:"patterns,omitempty"`
	Scan          *ScanSummary   `json:"scan,omitempty"`
	Verify        *VerifySummary `json:"verify,omitempty"`
}

// Result of the command. Error is already truncated.
type Result struct {
	Status string `json:"status"` // success, blocked or error
	Error  string `json:"error,omitempty"`
}

// PatternsRef identifies the schema document a run used
type PatternsRef struct {
	Path          string `json:"path"`
	SHA256        string `json:"sha256,omitempty"`
	SchemaVersion string `json:"schema_version,omitempty"`
	Missing       bool   `json:"missing,omitempty"`
}

// ScanSummary counts only; rule names and paths stay in the report
type ScanSummary struct {
	Candidates    int            `json:"candidates"`
	FilesScanned  int            `json:"files_scanned"`
	BinarySkipped int            `json:"binary_skipped"`
	Unreadable    int            `json:"unreadable"`
	Findings      int            `json:"findings"`
	ByCategory    map[string]int `json:"by_category,omitempty"`
	Allowed       bool           `json:"allowed"`
	Fingerprint   string         `json:"schema_fingerprint,omitempty"`
}

// VerifySummary tally
type VerifySummary struct {
	Passed int `json:"passed"`
	Failed int `json:"failed"`
	Warned int `json:"warned"`
	Total  int `json:"total"`
}
