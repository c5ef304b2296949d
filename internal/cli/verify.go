package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/guardrail-dev/guardrail/internal/config"
	"github.com/guardrail-dev/guardrail/internal/models"
	"github.com/guardrail-dev/guardrail/internal/observability"
	"github.com/guardrail-dev/guardrail/internal/observability/logging"
	otelobs "github.com/guardrail-dev/guardrail/internal/observability/otel"
	"github.com/guardrail-dev/guardrail/internal/observability/receipt"
	"github.com/guardrail-dev/guardrail/internal/verify"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/attribute"
)

type verifyOptions struct {
	format string
	watch  bool
}

// GetVerifyCmd exports the verify command
func GetVerifyCmd() *cobra.Command {
	opts := &verifyOptions{}

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Run the health checklist against the configuration tree",
		Long: `Evaluate every check in the checklist and print a grouped report.
Failed checks exit 1. Warnings are reported but never change the exit code.

Examples:
  guardrail verify
  guardrail verify --checklist ./checklist.yaml --format json
  guardrail verify --watch`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVerify(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.format, "format", "f", formatText, "Output format: text or json")
	cmd.Flags().BoolVarP(&opts.watch, "watch", "w", false, "Re-run when files under the root change")
	return cmd
}

func runVerify(cmd *cobra.Command, opts *verifyOptions) (err error) {
	if opts.format != formatText && opts.format != formatJSON {
		return usageError("unknown format %q (want text or json)", opts.format)
	}

	ctx := cmd.Context()
	cfg := configFrom(ctx)

	var report *models.VerifyReport
	sess := receipt.Start(ctx, "guardrail verify", os.Args[1:])
	defer func() {
		outcome := err
		if report != nil && report.Failed > 0 && outcome != nil {
			outcome = fmt.Errorf("%w: %d checks failed", receipt.ErrBlocked, report.Failed)
		}
		_ = sess.Finish(outcome, receipt.WithVerify(report))
	}()

	checks, err := loadChecks(cfg)
	if err != nil {
		return usageError("%w", err)
	}

	report = verifyOnce(ctx, cmd, cfg, checks, opts.format)
	if opts.watch {
		return watchVerify(cmd, cfg, checks, opts.format)
	}

	if report.Failed > 0 {
		return blocked()
	}
	return nil
}

func loadChecks(cfg *config.Config) ([]verify.Check, error) {
	var cl *models.Checklist
	var err error
	if cfg.Checklist != "" {
		cl, err = verify.LoadChecklist(cfg.Checklist)
	} else {
		cl, err = verify.DefaultChecklist()
	}
	if err != nil {
		return nil, err
	}
	return verify.Build(cl, cfg.Root, cfg.Patterns)
}

func verifyOnce(ctx context.Context, cmd *cobra.Command, cfg *config.Config, checks []verify.Check, format string) (report *models.VerifyReport) {
	log := logging.From(ctx)
	start := time.Now()

	ctx, endSpan := otelobs.StartSpan(ctx, otelobs.SpanVerify,
		attribute.String("guardrail.op_id", observability.OpID(ctx)),
		attribute.String("guardrail.verify.root", cfg.Root),
		attribute.Int("guardrail.verify.checks", len(checks)),
	)

	log.Event(ctx, "verify.start", map[string]any{"checks": len(checks)})

	report = verify.Run(ctx, checks, verify.Options{
		Root:    cfg.Root,
		Timeout: cfg.CheckTimeout.Std(),
	})

	otelobs.SetAttributes(ctx,
		attribute.Int("guardrail.verify.passed", report.Passed),
		attribute.Int("guardrail.verify.failed", report.Failed),
		attribute.Int("guardrail.verify.warned", report.Warned),
	)
	var spanErr error
	if report.Failed > 0 {
		spanErr = fmt.Errorf("%d checks failed", report.Failed)
	}
	endSpan(spanErr)

	resultStatus := "healthy"
	if report.Failed > 0 {
		resultStatus = "unhealthy"
	}
	log.Event(ctx, "verify.complete", map[string]any{
		"duration_ms": time.Since(start).Milliseconds(),
		"result":      resultStatus,
		"passed":      report.Passed,
		"failed":      report.Failed,
		"warned":      report.Warned,
	})

	printVerify(ctx, cmd, cfg, report, format)
	return report
}

func printVerify(ctx context.Context, cmd *cobra.Command, cfg *config.Config, report *models.VerifyReport, format string) {
	out := cmd.OutOrStdout()
	if format == formatJSON {
		data, err := FormatVerifyJSON(report)
		if err != nil {
			logging.From(ctx).Error("verify", "failed to marshal report", "error", err.Error())
			return
		}
		fmt.Fprintln(out, string(data))
		return
	}
	fmt.Fprint(out, FormatVerifyText(report, !cfg.Headless))
}

// watchVerify re-runs the checklist on file changes until interrupted.
func watchVerify(cmd *cobra.Command, cfg *config.Config, checks []verify.Check, format string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Fprintf(cmd.ErrOrStderr(), "watching %s (Ctrl-C to stop)\n", cfg.Root)
	err := verify.Watch(ctx, cfg.Root, verify.DefaultDebounce, func(ctx context.Context) {
		if ctx.Err() != nil {
			return
		}
		verifyOnce(ctx, cmd, cfg, checks, format)
	})
	if err != nil && ctx.Err() == nil {
		return fmt.Errorf("watch failed: %w", err)
	}
	return nil
}
