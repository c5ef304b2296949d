package models

// Severity of a pattern rule. Reporting only: every match blocks.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Category names a rule group in the pattern schema
type Category string

const (
	CategorySecrets         Category = "secrets"
	CategoryPII             Category = "pii"
	CategoryBlockedPaths    Category = "blocked_paths"
	CategoryBlockedCommands Category = "blocked_commands"
)

// Categories in reporting order
var Categories = []Category{
	CategorySecrets,
	CategoryPII,
	CategoryBlockedPaths,
	CategoryBlockedCommands,
}

// Order returns the reporting position of c, or len(Categories) if unknown.
func (c Category) Order() int {
	for i, known := range Categories {
		if known == c {
			return i
		}
	}
	return len(Categories)
}

// PatternSchema is the on-disk pattern document
type PatternSchema struct {
	SchemaVersion   string  `json:"schema_version" yaml:"schema_version" jsonschema:"description=Semantic version of the pattern document"`
	Secrets         RuleSet `json:"secrets" yaml:"secrets"`
	PII             RuleSet `json:"pii" yaml:"pii"`
	BlockedPaths    RuleSet `json:"blocked_paths" yaml:"blocked_paths"`
	BlockedCommands RuleSet `json:"blocked_commands" yaml:"blocked_commands"`
}

// RuleSet wraps the patterns of one category
type RuleSet struct {
	Patterns []PatternRule `json:"patterns" yaml:"patterns" validate:"dive"`
}

// PatternRule single detection rule
type PatternRule struct {
	Name        string   `json:"name" yaml:"name" validate:"required" jsonschema:"required"`
	Regex       string   `json:"regex" yaml:"regex" validate:"required" jsonschema:"required,description=RE2 regular expression"`
	Severity    Severity `json:"severity" yaml:"severity" validate:"required,oneof=low medium high critical" jsonschema:"required,enum=low,enum=medium,enum=high,enum=critical"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
}

// RuleSet returns the rules of category c.
func (s *PatternSchema) RuleSet(c Category) *RuleSet {
	switch c {
	case CategorySecrets:
		return &s.Secrets
	case CategoryPII:
		return &s.PII
	case CategoryBlockedPaths:
		return &s.BlockedPaths
	case CategoryBlockedCommands:
		return &s.BlockedCommands
	default:
		return nil
	}
}
