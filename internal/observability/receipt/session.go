package receipt

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"os"
	"time"

	"github.com/guardrail-dev/guardrail/internal/models"
	"github.com/guardrail-dev/guardrail/internal/observability"
)

// MaxErrorLength caps the error text kept in a receipt.
const MaxErrorLength = 2048

// Result statuses
const (
	StatusSuccess = "success"
	StatusBlocked = "blocked"
	StatusError   = "error"
)

// ErrBlocked marks an outcome the command deliberately refused: findings in a
// scan or failed required checks in verify.
var ErrBlocked = errors.New("blocked")

// Session spans one command from Start to Finish.
type Session struct {
	ctx     context.Context
	start   time.Time
	command string
	args    []string
}

func Start(ctx context.Context, cmd string, args []string) *Session {
	return &Session{ctx: ctx, start: time.Now(), command: cmd, args: args}
}

// Option configures receipt
type Option func(*Receipt)

// WithPatterns records the schema path, its digest and version.
func WithPatterns(path, version string, missing bool) Option {
	return func(r *Receipt) {
		if path == "" {
			return
		}
		ref := &PatternsRef{Path: path, SchemaVersion: version, Missing: missing}
		if hash, err := computeSHA256(path); err == nil {
			ref.SHA256 = hash
		}
		r.Patterns = ref
	}
}

// WithScan summarizes a scan report
func WithScan(report *models.ScanReport) Option {
	return func(r *Receipt) {
		if report == nil {
			return
		}
		byCategory := map[string]int{}
		for c, n := range report.CountByCategory() {
			byCategory[string(c)] = n
		}
		r.Scan = &ScanSummary{
			Candidates:    report.Candidates,
			FilesScanned:  report.FilesScanned,
			BinarySkipped: len(report.BinarySkipped),
			Unreadable:    len(report.Unreadable),
			Findings:      len(report.Findings),
			ByCategory:    byCategory,
			Allowed:       report.Allowed(),
			Fingerprint:   report.Fingerprint,
		}
	}
}

// WithVerify summarizes a verification report
func WithVerify(report *models.VerifyReport) Option {
	return func(r *Receipt) {
		if report == nil {
			return
		}
		r.Verify = &VerifySummary{
			Passed: report.Passed,
			Failed: report.Failed,
			Warned: report.Warned,
			Total:  report.Total,
		}
	}
}

// Finish writes the receipt if a writer is configured. Errors wrapping
// ErrBlocked are recorded as blocked, anything else as error.
func (s *Session) Finish(err error, opts ...Option) error {
	w := From(s.ctx)
	if w == nil {
		return nil
	}

	args, redacted := RedactArgs(s.args)
	r := Receipt{
		SchemaVersion: ReceiptSchemaVersion,
		OpID:          observability.OpID(s.ctx),
		TsStart:       s.start.Format(time.RFC3339Nano),
		TsEnd:         time.Now().Format(time.RFC3339Nano),
		Command:       s.command,
		Args:          args,
		ArgsRedacted:  redacted,
		Result:        resultFor(err),
	}
	for _, opt := range opts {
		opt(&r)
	}
	return w.Write(r)
}

func resultFor(err error) Result {
	switch {
	case err == nil:
		return Result{Status: StatusSuccess}
	case errors.Is(err, ErrBlocked):
		return Result{Status: StatusBlocked, Error: truncateError(err.Error())}
	default:
		return Result{Status: StatusError, Error: truncateError(err.Error())}
	}
}

func computeSHA256(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

func truncateError(s string) string {
	if len(s) <= MaxErrorLength {
		return s
	}
	return s[:MaxErrorLength-len("...")] + "..."
}
