package verify

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/guardrail-dev/guardrail/internal/models"
	"github.com/guardrail-dev/guardrail/internal/policy"
	"gopkg.in/yaml.v3"
)

//go:embed defaults/checklist.yaml
var defaultChecklist []byte

var validate = validator.New()

// DefaultChecklistDocument returns a copy of the built-in checklist YAML.
func DefaultChecklistDocument() []byte {
	out := make([]byte, len(defaultChecklist))
	copy(out, defaultChecklist)
	return out
}

func DefaultChecklist() (*models.Checklist, error) {
	return ParseChecklist(defaultChecklist)
}

// LoadChecklist reads and validates a checklist file.
func LoadChecklist(path string) (*models.Checklist, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read checklist: %w", err)
	}
	cl, err := ParseChecklist(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cl, nil
}

// ParseChecklist decodes strictly: unknown keys are errors.
func ParseChecklist(data []byte) (*models.Checklist, error) {
	var cl models.Checklist
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cl); err != nil {
		return nil, fmt.Errorf("failed to parse checklist YAML: %w", err)
	}

	if err := validate.Struct(&cl); err != nil {
		return nil, fmt.Errorf("invalid checklist: %w", describeValidation(err))
	}

	var problems []string
	for _, section := range cl.Sections {
		for _, def := range section.Checks {
			if err := checkFields(def); err != nil {
				problems = append(problems, fmt.Sprintf("%s/%s: %v", section.Name, def.Label, err))
			}
		}
	}
	if len(problems) > 0 {
		return nil, fmt.Errorf("invalid checklist:\n  %s", strings.Join(problems, "\n  "))
	}

	return &cl, nil
}

// checkFields enforces the fields each kind needs
func checkFields(def models.CheckDefinition) error {
	switch def.Kind {
	case models.CheckKindFileExists, models.CheckKindDirExists, models.CheckKindJSONValid:
		if len(def.Targets()) == 0 {
			return errors.New("path or paths required")
		}
	case models.CheckKindExecutable, models.CheckKindSymlinks:
		if def.Path == "" {
			return errors.New("path required")
		}
	case models.CheckKindMinFiles:
		if def.Path == "" || def.Min < 1 {
			return errors.New("path and min >= 1 required")
		}
	case models.CheckKindCommand:
		if def.Command == "" {
			return errors.New("command required")
		}
	case models.CheckKindEnvFile:
		if def.Path == "" || len(def.Keys) == 0 {
			return errors.New("path and keys required")
		}
	case models.CheckKindHookEvents:
		if def.Path == "" || (len(def.Events) == 0 && def.Min == 0) {
			return errors.New("path and events or min required")
		}
	case models.CheckKindExpr:
		if def.Path == "" || def.Expr == "" {
			return errors.New("path and expr required")
		}
	case models.CheckKindPatternSchema:
		if def.Severity == "warn" {
			return errors.New("pattern_schema checks always fail closed; severity warn not allowed")
		}
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
		msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
	}
	return errors.New(strings.Join(msgs, "; "))
}

// Build turns a checklist into runnable checks. Relative paths resolve
// against root; a pattern_schema check without a path uses patternsPath.
func Build(cl *models.Checklist, root, patternsPath string) ([]Check, error) {
	engine, err := policy.NewEngine()
	if err != nil {
		return nil, err
	}

	exprs := map[string]string{}
	for _, section := range cl.Sections {
		for _, def := range section.Checks {
			if def.Kind == models.CheckKindExpr {
				exprs[section.Name+"/"+def.Label] = def.Expr
			}
		}
	}
	if err := engine.CompileAndValidate(exprs); err != nil {
		return nil, err
	}

	resolve := func(p string) string { return ResolvePath(root, p) }

	var checks []Check
	for _, section := range cl.Sections {
		for _, def := range section.Checks {
			var targets []string
			for _, t := range def.Targets() {
				targets = append(targets, resolve(t))
			}

			var pred Predicate
			switch def.Kind {
			case models.CheckKindFileExists:
				pred = FileExists(targets...)
			case models.CheckKindDirExists:
				pred = DirExists(targets...)
			case models.CheckKindJSONValid:
				pred = JSONValid(targets...)
			case models.CheckKindExecutable:
				pred = Executable(resolve(def.Path))
			case models.CheckKindSymlinks:
				pred = SymlinksValid(resolve(def.Path))
			case models.CheckKindCommand:
				pred = CommandAvailable(def.Command)
			case models.CheckKindEnvFile:
				pred = EnvFileKeys(resolve(def.Path), def.Keys)
			case models.CheckKindHookEvents:
				pred = HookEvents(resolve(def.Path), def.Events, def.Min)
			case models.CheckKindMinFiles:
				pred = MinFileCount(resolve(def.Path), def.Min)
			case models.CheckKindPatternSchema:
				path := patternsPath
				if def.Path != "" {
					path = resolve(def.Path)
				}
				pred = PatternSchema(path)
			case models.CheckKindExpr:
				pred = Expr(engine, resolve(def.Path), def.Expr)
			default:
				return nil, fmt.Errorf("unknown check kind %q", def.Kind)
			}

			severity := def.FailStatus()
			if def.Kind == models.CheckKindPatternSchema {
				severity = models.CheckFail
			}
			checks = append(checks, Check{
				Label:     def.Label,
				Section:   section.Name,
				Severity:  severity,
				Predicate: pred,
			})
		}
	}
	return checks, nil
}

// ResolvePath expands a leading ~ and joins relative paths onto root.
func ResolvePath(root, p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			p = filepath.Join(home, strings.TrimPrefix(p, "~"))
		}
	}
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(root, p)
}
