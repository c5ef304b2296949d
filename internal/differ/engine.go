package differ

import (
	"encoding/json"
	"fmt"

	"github.com/guardrail-dev/guardrail/internal/models"
	"github.com/wI2L/jsondiff"
)

// Result of comparing two pattern documents
type Result struct {
	HasChanges bool
	Patch      jsondiff.Patch // RFC 6902 patch over the keyed form
	Changes    []Change
}

// ruleView is a rule keyed by name so patches address rules, not indexes
type ruleView struct {
	Regex       string `json:"regex"`
	Severity    string `json:"severity"`
	Description string `json:"description,omitempty"`
}

type schemaView struct {
	SchemaVersion string                                  `json:"schema_version"`
	Categories    map[models.Category]map[string]ruleView `json:"categories"`
}

func keyed(doc *models.PatternSchema) schemaView {
	view := schemaView{
		SchemaVersion: doc.SchemaVersion,
		Categories:    make(map[models.Category]map[string]ruleView, len(models.Categories)),
	}
	for _, c := range models.Categories {
		rules := map[string]ruleView{}
		for _, r := range doc.RuleSet(c).Patterns {
			rules[r.Name] = ruleView{Regex: r.Regex, Severity: string(r.Severity), Description: r.Description}
		}
		view.Categories[c] = rules
	}
	return view
}

// CompareSchemas diffs two decoded pattern documents
func CompareSchemas(oldDoc, newDoc *models.PatternSchema) (*Result, error) {
	oldView, newView := keyed(oldDoc), keyed(newDoc)

	oldJSON, err := json.Marshal(oldView)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal old schema: %w", err)
	}
	newJSON, err := json.Marshal(newView)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal new schema: %w", err)
	}

	patch, err := jsondiff.CompareJSON(oldJSON, newJSON)
	if err != nil {
		return nil, fmt.Errorf("failed to compute diff: %w", err)
	}

	changes := translate(patch, oldView, newView)
	return &Result{
		HasChanges: len(changes) > 0,
		Patch:      patch,
		Changes:    changes,
	}, nil
}
