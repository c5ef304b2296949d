package models

import "time"

// Finding is one rule match against one path, file or command.
// It never carries the matched text.
type Finding struct {
	Category Category `json:"category"`
	Rule     string   `json:"rule"`
	Severity Severity `json:"severity"`
	Path     string   `json:"path"`
	Line     int      `json:"line,omitempty"`
}

// Unreadable records a candidate whose content could not be read
type Unreadable struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

// ScanReport is the Scan Engine output
type ScanReport struct {
	Timestamp     time.Time    `json:"timestamp"`
	SchemaVersion string       `json:"schemaVersion,omitempty"`
	Fingerprint   string       `json:"schemaFingerprint,omitempty"`
	SchemaMissing bool         `json:"schemaMissing,omitempty"`
	Candidates    int          `json:"candidates"`
	FilesScanned  int          `json:"filesScanned"`
	BinarySkipped []string     `json:"binarySkipped,omitempty"`
	Unreadable    []Unreadable `json:"unreadable,omitempty"`
	Findings      []Finding    `json:"findings"`
}

// Allowed reports whether the operation may proceed.
func (r *ScanReport) Allowed() bool {
	return len(r.Findings) == 0
}

// CountByCategory tallies findings
func (r *ScanReport) CountByCategory() map[Category]int {
	counts := make(map[Category]int)
	for _, f := range r.Findings {
		counts[f.Category]++
	}
	return counts
}
