package differ

import (
	"fmt"
	"sort"
	"strings"

	"github.com/guardrail-dev/guardrail/internal/models"
	"github.com/wI2L/jsondiff"
)

// ChangeKind classifies a translated patch operation
type ChangeKind string

const (
	ChangeVersion     ChangeKind = "schema_version_changed"
	ChangeRuleAdded   ChangeKind = "rule_added"
	ChangeRuleRemoved ChangeKind = "rule_removed"
	ChangeRegex       ChangeKind = "regex_changed"
	ChangeSeverity    ChangeKind = "severity_changed"
	ChangeDescription ChangeKind = "description_changed"
)

// Change is one human-readable difference
type Change struct {
	Kind     ChangeKind
	Category models.Category
	Rule     string
	Old      string
	New      string
	Severity SeverityLevel
}

func (c Change) ref() string {
	return string(c.Category) + "/" + c.Rule
}

// String renders the change as a single line
func (c Change) String() string {
	switch c.Kind {
	case ChangeVersion:
		return fmt.Sprintf("schema_version changed (%s → %s)", c.Old, c.New)
	case ChangeRuleAdded:
		return fmt.Sprintf("rule added: %s (%s)", c.ref(), c.New)
	case ChangeRuleRemoved:
		return "rule removed: " + c.ref()
	case ChangeRegex:
		return "regex changed: " + c.ref()
	case ChangeSeverity:
		return fmt.Sprintf("severity changed: %s (%s → %s)", c.ref(), c.Old, c.New)
	case ChangeDescription:
		return "description changed: " + c.ref()
	default:
		return "changed: " + c.ref()
	}
}

// Translate patches to english, one line per change
func Translate(result *Result) []string {
	if result == nil || len(result.Changes) == 0 {
		return nil
	}

	lines := make([]string, 0, len(result.Changes))
	for _, c := range result.Changes {
		lines = append(lines, c.String())
	}
	return lines
}

func translate(patch jsondiff.Patch, oldView, newView schemaView) []Change {
	var changes []Change
	seen := make(map[string]bool)

	for _, op := range patch {
		change, ok := translateOperation(op, oldView, newView)
		if !ok {
			continue
		}
		key := string(change.Kind) + "|" + change.ref()
		if seen[key] {
			continue
		}
		seen[key] = true
		changes = append(changes, change)
	}

	sort.SliceStable(changes, func(i, j int) bool {
		a, b := changes[i], changes[j]
		if (a.Kind == ChangeVersion) != (b.Kind == ChangeVersion) {
			return a.Kind == ChangeVersion
		}
		if a.Category != b.Category {
			return a.Category.Order() < b.Category.Order()
		}
		return a.Rule < b.Rule
	})
	return changes
}

func translateOperation(op jsondiff.Operation, oldView, newView schemaView) (Change, bool) {
	parts := splitPointer(op.Path)

	if len(parts) == 1 && parts[0] == "schema_version" {
		return Change{
			Kind:     ChangeVersion,
			Old:      oldView.SchemaVersion,
			New:      newView.SchemaVersion,
			Severity: SeverityModerate,
		}, true
	}

	// /categories/<category>/<rule>[/<field>]
	if len(parts) < 3 || parts[0] != "categories" {
		return Change{}, false
	}
	category, rule := models.Category(parts[1]), parts[2]
	oldRule, hadOld := oldView.Categories[category][rule]
	newRule, hasNew := newView.Categories[category][rule]

	change := Change{Category: category, Rule: rule}

	if len(parts) == 3 {
		switch op.Type {
		case jsondiff.OperationAdd:
			change.Kind, change.New, change.Severity = ChangeRuleAdded, newRule.Severity, SeveritySafe
		case jsondiff.OperationRemove:
			change.Kind, change.Old, change.Severity = ChangeRuleRemoved, oldRule.Severity, SeverityCritical
		default:
			return Change{}, false
		}
		return change, true
	}

	if !hadOld || !hasNew {
		return Change{}, false
	}

	switch parts[3] {
	case "regex":
		change.Kind, change.Old, change.New, change.Severity = ChangeRegex, oldRule.Regex, newRule.Regex, SeverityModerate
	case "severity":
		change.Kind, change.Old, change.New = ChangeSeverity, oldRule.Severity, newRule.Severity
		change.Severity = GetSeverity(oldRule.Severity, newRule.Severity)
	case "description":
		change.Kind, change.Severity = ChangeDescription, SeveritySafe
	default:
		return Change{}, false
	}
	return change, true
}

// splitPointer decodes an RFC 6901 pointer into its reference tokens
func splitPointer(ptr string) []string {
	ptr = strings.TrimPrefix(ptr, "/")
	if ptr == "" {
		return nil
	}
	parts := strings.Split(ptr, "/")
	for i, p := range parts {
		parts[i] = strings.ReplaceAll(strings.ReplaceAll(p, "~1", "/"), "~0", "~")
	}
	return parts
}
