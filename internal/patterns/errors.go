package patterns

import (
	"errors"
	"fmt"
	"strings"

	"github.com/guardrail-dev/guardrail/internal/models"
)

var (
	// ErrSchemaNotFound means the pattern document does not exist.
	ErrSchemaNotFound = errors.New("pattern schema not found")
	// ErrSchemaMalformed means the document or one of its rules is unusable.
	ErrSchemaMalformed = errors.New("pattern schema malformed")
)

// NotFoundError carries the missing path
type NotFoundError struct {
	Path string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("pattern schema not found: %s", e.Path)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrSchemaNotFound
}

// RuleError identifies one broken rule
type RuleError struct {
	Category models.Category
	Rule     string
	Err      error
}

func (e RuleError) Error() string {
	return fmt.Sprintf("%s/%s: %v", e.Category, e.Rule, e.Err)
}

// MalformedError is returned for unparsable documents and invalid rules.
// Rules lists every offending rule, not just the first.
type MalformedError struct {
	Path  string
	Rules []RuleError
	Err   error
}

func (e *MalformedError) Error() string {
	var sb strings.Builder
	sb.WriteString("pattern schema malformed")
	if e.Path != "" {
		sb.WriteString(" (" + e.Path + ")")
	}
	if e.Err != nil {
		sb.WriteString(": " + e.Err.Error())
	}
	for _, re := range e.Rules {
		sb.WriteString("\n  " + re.Error())
	}
	return sb.String()
}

func (e *MalformedError) Is(target error) bool {
	return target == ErrSchemaMalformed
}

func (e *MalformedError) Unwrap() error {
	return e.Err
}
