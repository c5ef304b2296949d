package scanner

import (
	"context"
	"errors"

	"github.com/guardrail-dev/guardrail/internal/models"
	"github.com/guardrail-dev/guardrail/internal/observability/logging"
	"github.com/guardrail-dev/guardrail/internal/patterns"
)

// Request is one scan invocation's candidate set
type Request struct {
	SchemaPath string
	Paths      []string
	Commands   []string
	Source     ContentSource
}

// Run loads the schema and scans the request.
//
// An empty candidate set returns an allowed report without touching the
// schema. A missing schema fails open: the report is allowed and flagged
// SchemaMissing. A malformed schema is returned as an error.
func Run(ctx context.Context, req Request) (*models.ScanReport, error) {
	log := logging.From(ctx)

	candidates := len(req.Paths) + len(req.Commands)
	if candidates == 0 {
		return newReport(0), nil
	}

	schema, err := patterns.Load(req.SchemaPath)
	if err != nil {
		if errors.Is(err, patterns.ErrSchemaNotFound) {
			log.Warn("scanner", "pattern schema missing, scanning disabled (fail-open)", "path", req.SchemaPath)
			report := newReport(candidates)
			report.SchemaMissing = true
			return report, nil
		}
		return nil, err
	}

	log.Debug("scanner", "pattern schema loaded", "path", req.SchemaPath, "version", schema.Version, "rules", schema.RuleCount())
	return NewEngine(schema).Scan(ctx, req.Paths, req.Commands, req.Source), nil
}
