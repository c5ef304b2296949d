// Package policy evaluates CEL expressions against decoded configuration
// documents.
package policy

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/cel-go/cel"
)

// costLimit bounds a single evaluation
const costLimit = 1_000_000

// Engine is the policy evaluation engine using CEL
type Engine struct {
	env *cel.Env

	mu       sync.Mutex
	programs map[string]cel.Program
}

func NewEngine() (*Engine, error) {
	env, err := cel.NewEnv(
		cel.Variable("input", cel.DynType),
		cel.CrossTypeNumericComparisons(true),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	return &Engine{env: env, programs: map[string]cel.Program{}}, nil
}

// Compile parses and type-checks expr. The expression must yield a bool.
func (e *Engine) Compile(expr string) (cel.Program, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if prg, ok := e.programs[expr]; ok {
		return prg, nil
	}

	ast, issues := e.env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("CEL compile error: %w", issues.Err())
	}
	if out := ast.OutputType(); !out.IsExactType(cel.BoolType) && !out.IsExactType(cel.DynType) {
		return nil, fmt.Errorf("expression must return bool, got %s", out)
	}

	prg, err := e.env.Program(ast,
		cel.CostLimit(costLimit),
		cel.InterruptCheckFrequency(100),
	)
	if err != nil {
		return nil, fmt.Errorf("CEL program error: %w", err)
	}

	e.programs[expr] = prg
	return prg, nil
}

// Eval runs expr with input bound to the `input` variable.
func (e *Engine) Eval(ctx context.Context, expr string, input any) (bool, error) {
	prg, err := e.Compile(expr)
	if err != nil {
		return false, err
	}

	out, _, err := prg.ContextEval(ctx, map[string]any{"input": input})
	if err != nil {
		return false, fmt.Errorf("CEL evaluation error: %w", err)
	}

	passed, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("expression must return bool, got %T", out.Value())
	}
	return passed, nil
}

// CompileAndValidate compiles every expression, keyed by label, and reports
// all failures together.
func (e *Engine) CompileAndValidate(exprs map[string]string) error {
	labels := make([]string, 0, len(exprs))
	for label := range exprs {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	var errors []string
	for _, label := range labels {
		if _, err := e.Compile(exprs[label]); err != nil {
			errors = append(errors, fmt.Sprintf("check %q: %v", label, err))
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("expression validation failed:\n  %s", strings.Join(errors, "\n  "))
	}

	return nil
}
