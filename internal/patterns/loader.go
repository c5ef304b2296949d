// Package patterns loads and validates the pattern schema shared by the scan
// and verification engines.
package patterns

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/go-playground/validator/v10"
	"github.com/guardrail-dev/guardrail/internal/models"
	"gopkg.in/yaml.v3"
)

// SupportedSchemaVersion is the only version verification accepts.
const SupportedSchemaVersion = "1.0"

// Format of a pattern document
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

var validate = validator.New()

var supportedVersion = semver.MustParse(SupportedSchemaVersion)

// CompiledRule is a validated rule with its regex compiled
type CompiledRule struct {
	models.PatternRule
	Category models.Category
	Pattern  *regexp.Regexp
}

// CompiledSchema typed, validated pattern set
type CompiledSchema struct {
	Version     string
	Source      string
	Fingerprint string
	rules       map[models.Category][]CompiledRule
}

// Rules returns the rules of c in document order.
func (s *CompiledSchema) Rules(c models.Category) []CompiledRule {
	return s.rules[c]
}

// RuleCount total rules across categories
func (s *CompiledSchema) RuleCount() int {
	n := 0
	for _, rs := range s.rules {
		n += len(rs)
	}
	return n
}

// FormatFromPath picks YAML for .yaml/.yml, JSON otherwise.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// Load reads, validates and compiles the pattern schema at path.
func Load(path string) (*CompiledSchema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &NotFoundError{Path: path}
		}
		return nil, fmt.Errorf("failed to read pattern schema: %w", err)
	}

	schema, err := Parse(data, FormatFromPath(path))
	if err != nil {
		var me *MalformedError
		if errors.As(err, &me) {
			me.Path = path
		}
		return nil, err
	}
	schema.Source = path
	return schema, nil
}

// Decode parses the document without validating rules.
func Decode(data []byte, format Format) (*models.PatternSchema, error) {
	var doc models.PatternSchema
	var err error
	if format == FormatYAML {
		err = yaml.Unmarshal(data, &doc)
	} else {
		err = json.Unmarshal(data, &doc)
	}
	if err != nil {
		return nil, &MalformedError{Err: fmt.Errorf("failed to parse %s: %w", format, err)}
	}
	return &doc, nil
}

// Parse decodes and compiles a pattern document.
func Parse(data []byte, format Format) (*CompiledSchema, error) {
	doc, err := Decode(data, format)
	if err != nil {
		return nil, err
	}
	return Compile(doc)
}

// Compile validates doc and compiles every regex eagerly.
func Compile(doc *models.PatternSchema) (*CompiledSchema, error) {
	if err := checkMajor(doc.SchemaVersion); err != nil {
		return nil, &MalformedError{Err: err}
	}

	compiled := &CompiledSchema{
		Version: doc.SchemaVersion,
		rules:   make(map[models.Category][]CompiledRule, len(models.Categories)),
	}

	var problems []RuleError
	for _, category := range models.Categories {
		seen := make(map[string]bool)
		for i, rule := range doc.RuleSet(category).Patterns {
			name := rule.Name
			if name == "" {
				name = fmt.Sprintf("#%d", i)
			}

			if err := validate.Struct(rule); err != nil {
				problems = append(problems, RuleError{Category: category, Rule: name, Err: describeValidation(err)})
				continue
			}
			if seen[rule.Name] {
				problems = append(problems, RuleError{Category: category, Rule: name, Err: errors.New("duplicate rule name")})
				continue
			}
			seen[rule.Name] = true

			re, err := regexp.Compile(rule.Regex)
			if err != nil {
				problems = append(problems, RuleError{Category: category, Rule: name, Err: err})
				continue
			}

			compiled.rules[category] = append(compiled.rules[category], CompiledRule{
				PatternRule: rule,
				Category:    category,
				Pattern:     re,
			})
		}
	}

	if len(problems) > 0 {
		return nil, &MalformedError{Rules: problems}
	}
	fp, err := Fingerprint(doc)
	if err != nil {
		return nil, &MalformedError{Err: err}
	}
	compiled.Fingerprint = fp
	return compiled, nil
}

// CheckVersion accepts exactly SupportedSchemaVersion. Loading is more
// lenient (same major); verification is not, so "1.0.0" and "v1.0" fail here.
func CheckVersion(v string) error {
	if v != SupportedSchemaVersion {
		return fmt.Errorf("schema_version %q is not supported (want %q)", v, SupportedSchemaVersion)
	}
	return nil
}

// checkMajor allows forward-compatible minor/patch bumps
func checkMajor(v string) error {
	if v == "" {
		return errors.New("schema_version is required")
	}
	parsed, err := semver.NewVersion(v)
	if err != nil {
		return fmt.Errorf("schema_version %q is not a semantic version", v)
	}
	if parsed.Major() != supportedVersion.Major() {
		return fmt.Errorf("schema_version %q has unsupported major version (want %d.x)", v, supportedVersion.Major())
	}
	return nil
}

func describeValidation(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := strings.ToLower(fe.Field())
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, field+" is required")
		case "oneof":
			msgs = append(msgs, fmt.Sprintf("%s %q must be one of: %s", field, fe.Value(), fe.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s failed %s", field, fe.Tag()))
		}
	}
	return errors.New(strings.Join(msgs, "; "))
}
