package receipt

import (
	"regexp"
	"strings"
	"sync"

	"github.com/guardrail-dev/guardrail/internal/models"
	"github.com/guardrail-dev/guardrail/internal/patterns"
)

const redactedValue = "[REDACTED]"

// sensitiveFlags take a secret as their value, with or without "=".
var sensitiveFlags = map[string]bool{
	"token": true, "access-token": true, "refresh-token": true, "identity-token": true,
	"key": true, "api-key": true, "apikey": true, "private-key": true,
	"password": true, "secret": true, "pat": true, "auth": true, "bearer": true,
	"credential": true, "credentials": true, "otel-headers": true,
}

// Prefixes of vendor tokens too short or truncated for the schema rules.
var sensitivePrefixes = []string{
	"sk-", "ghp_", "github_pat_", "gho_", "ghu_", "ghs_",
	"xoxb-", "xoxp-", "AKIA", "ya29.", "AIza", "npm_", "pypi-",
}

var (
	jwtRegex        = regexp.MustCompile(`^[A-Za-z0-9_-]{10,}\.[A-Za-z0-9_-]{10,}\.[A-Za-z0-9_-]{10,}$`)
	longSecretRegex = regexp.MustCompile(`^[A-Za-z0-9+/=_-]{32,}$`)
)

// builtinSecretRules are the secrets rules of the embedded pattern schema.
var builtinSecretRules = sync.OnceValue(func() []*regexp.Regexp {
	schema, err := patterns.Default()
	if err != nil {
		return nil
	}
	var out []*regexp.Regexp
	for _, r := range schema.Rules(models.CategorySecrets) {
		out = append(out, r.Pattern)
	}
	return out
})

// RedactArgs replaces secret-looking CLI arguments with [REDACTED] and
// reports whether anything was replaced. A quoted shell command (as passed to
// `scan command --`) is redacted word by word.
func RedactArgs(args []string) ([]string, bool) {
	if len(args) == 0 {
		return args, false
	}

	out := make([]string, len(args))
	changed := false
	for i := 0; i < len(args); i++ {
		arg := args[i]

		if s, ok := redactAssignment(arg); ok {
			out[i], changed = s, true
			continue
		}
		if strings.Contains(arg, "=") {
			out[i] = arg
			continue
		}

		if strings.HasPrefix(arg, "-") && sensitiveFlags[flagName(arg)] && i+1 < len(args) {
			out[i], out[i+1] = arg, redactedValue
			i++
			changed = true
			continue
		}

		if strings.ContainsAny(arg, " \t") {
			if s, ok := redactWords(arg); ok {
				out[i], changed = s, true
				continue
			}
		}

		if isSensitiveValue(arg) {
			out[i], changed = redactedValue, true
			continue
		}
		out[i] = arg
	}
	return out, changed
}

// redactAssignment handles name=value and --flag=value.
func redactAssignment(s string) (string, bool) {
	eq := strings.Index(s, "=")
	if eq <= 0 {
		return s, false
	}
	if sensitiveFlags[flagName(s[:eq])] || isSensitiveValue(s[eq+1:]) {
		return s[:eq+1] + redactedValue, true
	}
	return s, false
}

func redactWords(arg string) (string, bool) {
	words := strings.Fields(arg)
	changed := false
	for i, w := range words {
		w = strings.Trim(w, `"'`)
		if s, ok := redactAssignment(w); ok {
			words[i], changed = s, true
		} else if !strings.Contains(w, "=") && isSensitiveValue(w) {
			words[i], changed = redactedValue, true
		}
	}
	if !changed {
		return arg, false
	}
	return strings.Join(words, " "), true
}

func flagName(s string) string {
	return strings.ToLower(strings.TrimLeft(s, "-"))
}

func isSensitiveValue(value string) bool {
	for _, prefix := range sensitivePrefixes {
		if strings.HasPrefix(value, prefix) {
			return true
		}
	}
	for _, re := range builtinSecretRules() {
		if re.MatchString(value) {
			return true
		}
	}
	if jwtRegex.MatchString(value) {
		return true
	}
	// paths and hostnames are long too
	return !strings.ContainsAny(value, "/.") && longSecretRegex.MatchString(value)
}
