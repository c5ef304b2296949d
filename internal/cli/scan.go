package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/guardrail-dev/guardrail/internal/models"
	"github.com/guardrail-dev/guardrail/internal/observability"
	"github.com/guardrail-dev/guardrail/internal/observability/logging"
	otelobs "github.com/guardrail-dev/guardrail/internal/observability/otel"
	"github.com/guardrail-dev/guardrail/internal/observability/receipt"
	"github.com/guardrail-dev/guardrail/internal/patterns"
	"github.com/guardrail-dev/guardrail/internal/scanner"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/attribute"
)

const (
	formatText = "text"
	formatJSON = "json"
)

type scanOptions struct {
	staged bool
	files  []string
	format string
	repo   string
}

// GetScanCmd exports the scan command
func GetScanCmd() *cobra.Command {
	opts := &scanOptions{}

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Scan staged files for secrets, PII and blocked paths",
		Long: `Scan the files staged for commit against the pattern schema.
Content is read from the git index, so unstaged edits do not hide a staged secret.

Exit 1 blocks the commit. A missing pattern schema allows it with a warning.

Example (pre-commit hook):
  guardrail scan --staged`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScan(cmd, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.staged, "staged", true, "Scan the files staged in the git index")
	cmd.Flags().StringSliceVar(&opts.files, "files", nil, "Scan these working tree files instead of the index")
	cmd.Flags().StringVarP(&opts.format, "format", "f", formatText, "Output format: text or json")
	cmd.Flags().StringVar(&opts.repo, "repo", ".", "Repository directory")

	cmd.AddCommand(getScanCommandCmd())
	return cmd
}

func getScanCommandCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "command -- <shell command>",
		Short: "Check a shell command against blocked command patterns",
		Long: `Check a shell command before it runs.

Example:
  guardrail scan command -- git push --force origin main`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			command := extractCommand(args)
			if command == "" {
				return usageError("no command provided. Usage: guardrail scan command -- <command>")
			}
			return executeScan(cmd, "guardrail scan command", format, scanner.Request{
				Commands: []string{command},
			})
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", formatText, "Output format: text or json")
	return cmd
}

func runScan(cmd *cobra.Command, opts *scanOptions) error {
	cfg := configFrom(cmd.Context())

	req := scanner.Request{}
	if len(opts.files) > 0 {
		req.Paths = opts.files
		req.Source = &scanner.WorkTree{Root: opts.repo}
	} else {
		if !opts.staged {
			return usageError("nothing to scan: pass --staged or --files")
		}
		paths, err := scanner.StagedPaths(cmd.Context(), opts.repo, cfg.GitTimeout.Std())
		if err != nil {
			return usageError("cannot enumerate staged files: %w", err)
		}
		req.Paths = paths
		req.Source = &scanner.GitIndex{Dir: opts.repo, Timeout: cfg.GitTimeout.Std()}
	}

	return executeScan(cmd, "guardrail scan", opts.format, req)
}

func executeScan(cmd *cobra.Command, name, format string, req scanner.Request) (err error) {
	if format != formatText && format != formatJSON {
		return usageError("unknown format %q (want text or json)", format)
	}

	ctx := cmd.Context()
	cfg := configFrom(ctx)
	req.SchemaPath = cfg.Patterns

	var report *models.ScanReport
	sess := receipt.Start(ctx, name, os.Args[1:])
	defer func() {
		var opts []receipt.Option
		if report != nil {
			opts = append(opts,
				receipt.WithPatterns(cfg.Patterns, report.SchemaVersion, report.SchemaMissing),
				receipt.WithScan(report))
		}
		outcome := err
		var exitErr *ExitError
		if errors.As(err, &exitErr) && exitErr.Code == ExitBlocked {
			outcome = fmt.Errorf("%w: %d findings", receipt.ErrBlocked, len(report.Findings))
		}
		_ = sess.Finish(outcome, opts...)
	}()

	log := logging.From(ctx)
	start := time.Now()

	ctx, endSpan := otelobs.StartSpan(ctx, otelobs.SpanScan,
		attribute.String("guardrail.op_id", observability.OpID(ctx)),
		attribute.String("guardrail.command", name),
		attribute.Int("guardrail.scan.candidates", len(req.Paths)+len(req.Commands)),
	)
	defer func() { endSpan(err) }()

	log.Event(ctx, "scan.start", map[string]any{"candidates": len(req.Paths) + len(req.Commands)})

	var resultStatus string
	defer func() {
		fields := map[string]any{
			"duration_ms": time.Since(start).Milliseconds(),
			"result":      resultStatus,
		}
		if report != nil {
			fields["findings"] = len(report.Findings)
			fields["files_scanned"] = report.FilesScanned
		}
		log.Event(ctx, "scan.complete", fields)
	}()

	report, err = scanner.Run(ctx, req)
	if err != nil {
		resultStatus = "error"
		if errors.Is(err, patterns.ErrSchemaMalformed) {
			return usageError("%w", err)
		}
		return err
	}

	otelobs.SetAttributes(ctx,
		attribute.Int("guardrail.scan.findings", len(report.Findings)),
		attribute.Bool("guardrail.scan.schema_missing", report.SchemaMissing),
	)

	// JSON is the machine result on stdout; the human report, findings
	// included, goes to stderr where git shows hook output.
	if format == formatJSON {
		data, mErr := FormatScanJSON(report)
		if mErr != nil {
			resultStatus = "error"
			return fmt.Errorf("failed to marshal report: %w", mErr)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
	} else {
		fmt.Fprint(cmd.ErrOrStderr(), FormatScanText(report, !cfg.Headless))
	}

	if !report.Allowed() {
		resultStatus = "blocked"
		return blocked()
	}
	resultStatus = "allowed"
	return nil
}

// extractCommand joins the arguments after "--"
func extractCommand(args []string) string {
	if len(args) == 0 {
		osArgs := os.Args
		for i, arg := range osArgs {
			if arg == "--" && i < len(osArgs)-1 {
				return strings.Join(osArgs[i+1:], " ")
			}
		}
		return ""
	}
	return strings.Join(args, " ")
}
