package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/guardrail-dev/guardrail/internal/differ"
	"github.com/guardrail-dev/guardrail/internal/models"
	"github.com/guardrail-dev/guardrail/internal/observability"
	"github.com/guardrail-dev/guardrail/internal/observability/logging"
	otelobs "github.com/guardrail-dev/guardrail/internal/observability/otel"
	"github.com/guardrail-dev/guardrail/internal/observability/receipt"
	"github.com/guardrail-dev/guardrail/internal/patterns"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/attribute"
)

// GetPatternsCmd exports the patterns command group
func GetPatternsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "patterns",
		Short: "Pattern schema management commands",
		Long:  `Validate, inspect, create and compare pattern schema documents.`,
	}
	cmd.AddCommand(getPatternsValidateCmd())
	cmd.AddCommand(getPatternsSchemaCmd())
	cmd.AddCommand(getPatternsInitCmd())
	cmd.AddCommand(getPatternsDiffCmd())
	return cmd
}

func getPatternsValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate [path]",
		Short: "Validate a pattern schema",
		Long: `Load and compile a pattern schema, reporting every invalid rule.
Defaults to the configured patterns path.`,
		Args:         cobra.MaximumNArgs(1),
		SilenceUsage: true,
		RunE:         runPatternsValidate,
	}
}

func runPatternsValidate(cmd *cobra.Command, args []string) (err error) {
	ctx := cmd.Context()
	cfg := configFrom(ctx)
	path := cfg.Patterns
	if len(args) == 1 {
		path = args[0]
	}

	var schema *patterns.CompiledSchema
	sess := receipt.Start(ctx, "guardrail patterns validate", os.Args[1:])
	defer func() {
		version := ""
		if schema != nil {
			version = schema.Version
		}
		_ = sess.Finish(err, receipt.WithPatterns(path, version, errors.Is(err, patterns.ErrSchemaNotFound)))
	}()

	log := logging.From(ctx)
	start := time.Now()

	ctx, endSpan := otelobs.StartSpan(ctx, otelobs.SpanPatternsValidate,
		attribute.String("guardrail.op_id", observability.OpID(ctx)),
		attribute.String("guardrail.patterns.path", path),
	)
	defer func() { endSpan(err) }()

	log.Event(ctx, "patterns.validate.start", nil)
	var resultStatus string
	defer func() {
		log.Event(ctx, "patterns.validate.complete", map[string]any{
			"duration_ms": time.Since(start).Milliseconds(),
			"result":      resultStatus,
		})
	}()

	schema, err = patterns.Load(path)
	if err == nil {
		err = patterns.CheckVersion(schema.Version)
	}
	if err != nil {
		resultStatus = "invalid"
		return &ExitError{Code: ExitBlocked, Err: err}
	}

	resultStatus = "valid"
	fmt.Fprint(cmd.OutOrStdout(), formatSchemaSummary(path, schema, !cfg.Headless))
	return nil
}

func formatSchemaSummary(path string, schema *patterns.CompiledSchema, color bool) string {
	p := palette(color)
	var sb strings.Builder
	sb.WriteString(p.paint(colorGreen, "✓"))
	sb.WriteString(fmt.Sprintf(" %s: schema v%s, %d rules\n", path, schema.Version, schema.RuleCount()))
	sb.WriteString(fmt.Sprintf("  fingerprint       %s\n", schema.Fingerprint))
	for _, c := range models.Categories {
		sb.WriteString(fmt.Sprintf("  %-17s %d\n", c, len(schema.Rules(c))))
	}
	return sb.String()
}

func getPatternsSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:          "schema",
		Short:        "Print the JSON Schema of the pattern document format",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := patterns.JSONSchema()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		},
	}
}

func getPatternsInitCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Write the built-in pattern schema",
		Long: `Write the built-in pattern schema to the configured patterns path.
An existing file is left untouched unless --force is given.`,
		Args:         cobra.MaximumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := configFrom(cmd.Context()).Patterns
			if len(args) == 1 {
				path = args[0]
			}
			if err := writeDefaultSchema(path, force); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote pattern schema to %s\n", path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing schema")
	return cmd
}

func writeDefaultSchema(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return usageError("%s already exists (use --force to overwrite)", path)
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(path, patterns.DefaultDocument(), 0644); err != nil {
		return fmt.Errorf("failed to write pattern schema: %w", err)
	}
	return nil
}

// DiffOutputItem detail
type DiffOutputItem struct {
	Type     string `json:"type"`
	Severity string `json:"severity"`
	Category string `json:"category,omitempty"`
	Rule     string `json:"rule,omitempty"`
	Message  string `json:"message"`
}

func getPatternsDiffCmd() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "diff <old> <new>",
		Short: "Compare two pattern schemas",
		Long: `Report rule-level differences between two pattern schema documents.
Exit 0 when identical, 1 when they differ.

Example:
  guardrail patterns diff patterns.json patterns.new.json`,
		Args:         cobra.ExactArgs(2),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != formatText && format != formatJSON {
				return usageError("unknown format %q (want text or json)", format)
			}
			result, err := diffSchemaFiles(args[0], args[1])
			if err != nil {
				return usageError("%w", err)
			}
			logging.From(cmd.Context()).Event(cmd.Context(), "patterns.diff.complete", map[string]any{
				"changes": differ.Translate(result),
			})

			out := cmd.OutOrStdout()
			if format == formatJSON {
				data, err := json.MarshalIndent(buildDiffOutput(result), "", "  ")
				if err != nil {
					return fmt.Errorf("failed to marshal diff: %w", err)
				}
				fmt.Fprintln(out, string(data))
			} else {
				printSchemaDiff(out, result, !configFrom(cmd.Context()).Headless)
			}

			if result.HasChanges {
				return blocked()
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", formatText, "Output format: text or json")
	return cmd
}

func diffSchemaFiles(oldPath, newPath string) (*differ.Result, error) {
	oldDoc, err := decodeSchemaFile(oldPath)
	if err != nil {
		return nil, err
	}
	newDoc, err := decodeSchemaFile(newPath)
	if err != nil {
		return nil, err
	}
	return differ.CompareSchemas(oldDoc, newDoc)
}

func decodeSchemaFile(path string) (*models.PatternSchema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	doc, err := patterns.Decode(data, patterns.FormatFromPath(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

func buildDiffOutput(result *differ.Result) []DiffOutputItem {
	items := []DiffOutputItem{}
	for _, c := range result.Changes {
		items = append(items, DiffOutputItem{
			Type:     string(c.Kind),
			Severity: differ.SeverityString(c.Severity),
			Category: string(c.Category),
			Rule:     c.Rule,
			Message:  c.String(),
		})
	}
	return items
}

func printSchemaDiff(w io.Writer, result *differ.Result, color bool) {
	p := palette(color)
	if !result.HasChanges {
		fmt.Fprintln(w, p.paint(colorGreen, "✓ No changes detected"))
		return
	}

	fmt.Fprintln(w, p.paint(colorYellow, fmt.Sprintf("%d change(s) detected", len(result.Changes))))
	for _, c := range result.Changes {
		fmt.Fprintf(w, "  %s\n", p.paint(getColorForSeverity(c.Severity), "• "+c.String()))
	}
}

func getColorForSeverity(severity differ.SeverityLevel) string {
	switch severity {
	case differ.SeverityCritical:
		return colorRed
	case differ.SeverityModerate:
		return colorYellow
	case differ.SeveritySafe:
		return colorGreen
	default:
		return ""
	}
}
