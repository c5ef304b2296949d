// Package verify evaluates an ordered checklist against the configuration
// tree. Every check runs to completion regardless of what earlier checks did.
package verify

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/guardrail-dev/guardrail/internal/models"
	"github.com/guardrail-dev/guardrail/internal/observability/logging"
)

// DefaultCheckTimeout bounds a single predicate
const DefaultCheckTimeout = 10 * time.Second

// Predicate returns nil when the invariant holds, otherwise the failure detail.
type Predicate func(ctx context.Context) error

// Check is one independent invariant.
type Check struct {
	Label     string
	Section   string
	Severity  models.CheckStatus // recorded when Predicate fails; empty means fail
	Predicate Predicate
}

func (c Check) failStatus() models.CheckStatus {
	if c.Severity == models.CheckWarn {
		return models.CheckWarn
	}
	return models.CheckFail
}

// EvaluationError wraps a predicate that panicked or overran its timeout.
type EvaluationError struct {
	Label string
	Err   error
}

func (e *EvaluationError) Error() string {
	return fmt.Sprintf("check %q could not be evaluated: %v", e.Label, e.Err)
}

func (e *EvaluationError) Unwrap() error {
	return e.Err
}

// Options for Run
type Options struct {
	Root    string
	Timeout time.Duration // per check, DefaultCheckTimeout when zero
}

// Run evaluates checks in order and tallies the outcome.
func Run(ctx context.Context, checks []Check, opts Options) *models.VerifyReport {
	log := logging.From(ctx)
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultCheckTimeout
	}

	report := &models.VerifyReport{
		Timestamp: time.Now().UTC(),
		Root:      opts.Root,
		Results:   make([]models.CheckResult, 0, len(checks)),
	}

	for _, c := range checks {
		result := models.CheckResult{Section: c.Section, Label: c.Label, Status: models.CheckPass}

		if err := evaluate(ctx, c, timeout); err != nil {
			result.Status = c.failStatus()
			result.Detail = err.Error()
			var evalErr *EvaluationError
			if errors.As(err, &evalErr) {
				log.Warn("verify", "check evaluation error", "label", c.Label, "error", evalErr.Err.Error())
				result.Detail = evalErr.Err.Error()
			}
		}

		log.Debug("verify", "check evaluated", "section", c.Section, "label", c.Label, "status", string(result.Status))
		report.Record(result)
	}

	return report
}

// evaluate isolates a predicate: panics and overruns become errors.
func evaluate(ctx context.Context, c Check, timeout time.Duration) error {
	if c.Predicate == nil {
		return &EvaluationError{Label: c.Label, Err: fmt.Errorf("no predicate")}
	}

	checkCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				logging.From(ctx).Debug("verify", "check panicked", "label", c.Label, "stack", string(debug.Stack()))
				done <- &EvaluationError{Label: c.Label, Err: fmt.Errorf("panic: %v", r)}
			}
		}()
		done <- c.Predicate(checkCtx)
	}()

	select {
	case err := <-done:
		return err
	case <-checkCtx.Done():
		if err := ctx.Err(); err != nil {
			return &EvaluationError{Label: c.Label, Err: err}
		}
		return &EvaluationError{Label: c.Label, Err: fmt.Errorf("timed out after %s", timeout)}
	}
}
