package differ

import "github.com/guardrail-dev/guardrail/internal/models"

// SeverityLevel 0=safe, 1=mod, 2=crit
type SeverityLevel int

const (
	SeveritySafe SeverityLevel = iota
	SeverityModerate
	SeverityCritical
)

var ruleRank = map[string]int{
	string(models.SeverityLow):      0,
	string(models.SeverityMedium):   1,
	string(models.SeverityHigh):     2,
	string(models.SeverityCritical): 3,
}

// GetSeverity rates a rule severity edit. Downgrades weaken enforcement.
func GetSeverity(oldSeverity, newSeverity string) SeverityLevel {
	if ruleRank[newSeverity] < ruleRank[oldSeverity] {
		return SeverityModerate
	}
	return SeveritySafe
}

// SeverityString to lowercase
func SeverityString(s SeverityLevel) string {
	switch s {
	case SeverityCritical:
		return "critical"
	case SeverityModerate:
		return "moderate"
	case SeveritySafe:
		return "info"
	default:
		return "unknown"
	}
}
