package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/guardrail-dev/guardrail/internal/config"
	"github.com/guardrail-dev/guardrail/internal/observability"
	"github.com/guardrail-dev/guardrail/internal/observability/logging"
	otelobs "github.com/guardrail-dev/guardrail/internal/observability/otel"
	"github.com/guardrail-dev/guardrail/internal/observability/receipt"
	"github.com/guardrail-dev/guardrail/internal/version"
	"github.com/spf13/cobra"
)

// ANSI color codes for terminal output
const (
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorBold   = "\033[1m"
	colorReset  = "\033[0m"
)

// Exit codes
const (
	ExitOK      = 0
	ExitBlocked = 1
	ExitUsage   = 2
)

// ExitError carries a process exit code out of RunE.
// A nil Err means the command already reported the outcome.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exit status %d", e.Code)
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error { return e.Err }

func blocked() error { return &ExitError{Code: ExitBlocked} }

func usageError(format string, args ...any) error {
	return &ExitError{Code: ExitUsage, Err: fmt.Errorf(format, args...)}
}

type cfgKey struct{}

func withConfig(ctx context.Context, cfg *config.Config) context.Context {
	return context.WithValue(ctx, cfgKey{}, cfg)
}

// configFrom returns the resolved config, or defaults when run outside the root command.
func configFrom(ctx context.Context) *config.Config {
	if cfg, ok := ctx.Value(cfgKey{}).(*config.Config); ok {
		return cfg
	}
	return config.Default()
}

// globalFlags are the persistent flags shared by every command
type globalFlags struct {
	root      string
	patterns  string
	checklist string
	headless  bool

	logFormat string
	logLevel  string
	logOutput string

	otelEnabled     bool
	otelEndpoint    string
	otelProtocol    string
	otelInsecure    bool
	otelSampleRatio float64

	receiptPath string
	receiptMode string
}

// app owns the per-invocation resources opened in PersistentPreRunE
type app struct {
	flags   globalFlags
	closers []func()
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// NewRootCmd builds the command tree. Call the returned cleanup after Execute.
func NewRootCmd() (*cobra.Command, func()) {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "guardrail",
		Short: "Secret scanning and health checks for AI assistant configuration",
		Long: `guardrail: pre-commit and pre-command secret scanning plus a health
checklist for an AI coding assistant's configuration tree.

Exit codes: 0 allowed/healthy, 1 blocked/failed, 2 usage or input error.`,
		Version:       version.BuildVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&a.flags.root, "root", "", "Configuration tree root (default ~/.claude)")
	pf.StringVar(&a.flags.patterns, "patterns", "", "Pattern schema path (default <root>/security/patterns.json)")
	pf.StringVar(&a.flags.checklist, "checklist", "", "Verification checklist YAML (default: built-in)")
	pf.BoolVar(&a.flags.headless, "headless", false, "Disable colour output")

	pf.StringVar(&a.flags.logFormat, "log-format", logging.FormatPretty, "Log format: pretty or jsonl")
	pf.StringVar(&a.flags.logLevel, "log-level", logging.LevelWarn, "Log level: debug, info, warn, error")
	pf.StringVar(&a.flags.logOutput, "log-output", "stderr", "Log output: stderr or a file path")

	pf.BoolVar(&a.flags.otelEnabled, "otel", false, "Enable OpenTelemetry tracing")
	pf.StringVar(&a.flags.otelEndpoint, "otel-endpoint", "", "OTLP endpoint")
	pf.StringVar(&a.flags.otelProtocol, "otel-protocol", otelobs.ProtocolHTTP, "OTLP protocol: otlphttp or otlpgrpc")
	pf.BoolVar(&a.flags.otelInsecure, "otel-insecure", false, "Allow insecure OTLP connections")
	pf.Float64Var(&a.flags.otelSampleRatio, "otel-sample-ratio", 1.0, "Trace sample ratio (0..1)")

	pf.StringVar(&a.flags.receiptPath, "receipt", "", "Write an audit receipt to this path")
	pf.StringVar(&a.flags.receiptMode, "receipt-mode", string(receipt.ModeOverwrite), "Receipt mode: overwrite or append")

	rootCmd.AddCommand(GetScanCmd())
	rootCmd.AddCommand(GetVerifyCmd())
	rootCmd.AddCommand(GetPatternsCmd())
	rootCmd.AddCommand(GetVersionCmd())

	return rootCmd, a.close
}

// setup resolves config and attaches logger, tracer and receipt writer to the context.
func (a *app) setup(cmd *cobra.Command) error {
	f := a.flags

	cfg, err := config.Load(&config.Config{
		Root:      f.root,
		Patterns:  f.patterns,
		Checklist: f.checklist,
		Headless:  f.headless,
	})
	if err != nil {
		return usageError("%w", err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = observability.WithOpID(ctx)
	ctx = withConfig(ctx, cfg)

	logger, err := logging.NewLogger(logging.Config{
		Format: f.logFormat,
		Level:  f.logLevel,
		Output: f.logOutput,
	})
	if err != nil {
		return usageError("logging: %w", err)
	}
	a.closers = append(a.closers, func() { _ = logger.Close() })
	ctx = logging.WithLogger(ctx, logger)

	otelCfg := otelobs.DefaultConfig()
	otelCfg.Enabled = f.otelEnabled
	otelCfg.Endpoint = f.otelEndpoint
	otelCfg.Protocol = f.otelProtocol
	otelCfg.Insecure = f.otelInsecure
	otelCfg.SampleRatio = f.otelSampleRatio
	if err := otelCfg.Validate(); err != nil {
		return usageError("%w", err)
	}
	if otelCfg.Enabled {
		handle, err := otelobs.Init(ctx, otelCfg)
		if err != nil {
			return usageError("otel: %w", err)
		}
		a.closers = append(a.closers, func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = handle.Shutdown(shutdownCtx)
		})
		ctx = otelobs.WithHandle(ctx, handle)
	}

	if f.receiptPath != "" {
		w, err := receipt.NewWriter(f.receiptPath, f.receiptMode)
		if err != nil {
			return usageError("%w", err)
		}
		a.closers = append(a.closers, func() { _ = w.Close() })
		ctx = receipt.WithWriter(ctx, w)
	}

	cmd.SetContext(ctx)
	return nil
}

// Execute runs the root command and exits with the mapped code
func Execute() {
	rootCmd, cleanup := NewRootCmd()
	err := rootCmd.ExecuteContext(context.Background())
	cleanup()
	os.Exit(exitCode(err, os.Stderr))
}

// exitCode maps a command error to a process exit code, printing it when needed.
// Errors that are not ExitError are usage or input errors.
func exitCode(err error, stderr io.Writer) int {
	if err == nil {
		return ExitOK
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		if exitErr.Err != nil {
			fmt.Fprintf(stderr, "guardrail: %v\n", exitErr.Err)
		}
		return exitErr.Code
	}
	fmt.Fprintf(stderr, "guardrail: %v\n", err)
	return ExitUsage
}
