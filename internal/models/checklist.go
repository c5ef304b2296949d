package models

// Check kinds understood by the verification engine
const (
	CheckKindFileExists    = "file_exists"
	CheckKindDirExists     = "dir_exists"
	CheckKindJSONValid     = "json_valid"
	CheckKindExecutable    = "executable"
	CheckKindSymlinks      = "symlinks_valid"
	CheckKindCommand       = "command_available"
	CheckKindEnvFile       = "env_file"
	CheckKindHookEvents    = "hook_events"
	CheckKindMinFiles      = "min_files"
	CheckKindPatternSchema = "pattern_schema"
	CheckKindExpr          = "expr"
)

// Checklist is the operator-declared verification document
type Checklist struct {
	Name     string             `yaml:"name"`
	Sections []ChecklistSection `yaml:"sections" validate:"required,min=1,dive"`
}

// ChecklistSection groups checks for reporting
type ChecklistSection struct {
	Name   string            `yaml:"name" validate:"required"`
	Checks []CheckDefinition `yaml:"checks" validate:"required,min=1,dive"`
}

// CheckDefinition declares one check
type CheckDefinition struct {
	Label    string   `yaml:"label" validate:"required"`
	Kind     string   `yaml:"kind" validate:"required,oneof=file_exists dir_exists json_valid executable symlinks_valid command_available env_file hook_events min_files pattern_schema expr"`
	Severity string   `yaml:"severity,omitempty" validate:"omitempty,oneof=fail warn"`
	Path     string   `yaml:"path,omitempty"`
	Paths    []string `yaml:"paths,omitempty"`
	Command  string   `yaml:"command,omitempty"`
	Keys     []string `yaml:"keys,omitempty"`
	Events   []string `yaml:"events,omitempty"`
	Min      int      `yaml:"min,omitempty" validate:"min=0"`
	Expr     string   `yaml:"expr,omitempty"`
}

// Targets returns Path followed by Paths.
func (d CheckDefinition) Targets() []string {
	var out []string
	if d.Path != "" {
		out = append(out, d.Path)
	}
	return append(out, d.Paths...)
}

// FailStatus is the status a failing predicate records.
func (d CheckDefinition) FailStatus() CheckStatus {
	if d.Severity == "warn" {
		return CheckWarn
	}
	return CheckFail
}
