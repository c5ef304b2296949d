package patterns

import (
	"math"
	"strings"
	"testing"
)

func TestCanonicalize(t *testing.T) {
	tests := []struct {
		name  string
		input any
		want  string
	}{
		{"sorted keys", map[string]any{"z": "last", "a": "first", "m": "middle"}, `{"a":"first","m":"middle","z":"last"}`},
		{"integer", map[string]any{"n": float64(42)}, `{"n":42}`},
		{"negative zero", map[string]any{"n": math.Copysign(0, -1)}, `{"n":0}`},
		{"float", map[string]any{"n": 3.14}, `{"n":3.14}`},
		{"quotes", map[string]any{"s": `say "hi"`}, `{"s":"say \"hi\""}`},
		{"backslash", map[string]any{"s": `\d{3}`}, `{"s":"\\d{3}"}`},
		{"control", map[string]any{"s": "a\x01b"}, `{"s":"a\u0001b"}`},
		{"unicode kept", map[string]any{"s": "emoji: 🎉"}, `{"s":"emoji: 🎉"}`},
		{"nested", map[string]any{"b": []any{"x", true, nil}, "a": map[string]any{"d": 1.0, "c": 2.0}}, `{"a":{"c":2,"d":1},"b":["x",true,null]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Canonicalize(tt.input)
			if err != nil {
				t.Fatalf("Canonicalize failed: %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("Canonicalize() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestCanonicalize_RejectsNonFinite(t *testing.T) {
	for _, f := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		if _, err := Canonicalize(map[string]any{"n": f}); err == nil {
			t.Errorf("Canonicalize(%v) should fail", f)
		}
	}
}

func TestCompareUTF16(t *testing.T) {
	// U+1F600 encodes as surrogates 0xD83D..., which sort below U+FFFD in UTF-16
	if compareUTF16("\U0001F600", "\uFFFD") >= 0 {
		t.Error("astral rune should sort before U+FFFD by UTF-16 code units")
	}
	if compareUTF16("a", "ab") >= 0 || compareUTF16("b", "a") <= 0 || compareUTF16("x", "x") != 0 {
		t.Error("basic ordering broken")
	}
}

const validYAML = `schema_version: "1.0"
blocked_commands:
  patterns:
    - {name: force-push, regex: "git push --force", severity: medium}
secrets:
  patterns:
    - {name: aws-key, regex: 'AKIA[0-9A-Z]{16}', severity: critical}
    - {name: gh-token, regex: 'ghp_[A-Za-z0-9]{36}', severity: high}
pii:
  patterns:
    - {name: ssn, regex: '\d{3}-\d{2}-\d{4}', severity: high}
blocked_paths:
  patterns:
    - {name: dotenv, regex: '(^|/)\.env$', severity: high}
`

func TestFingerprint_FormatIndependent(t *testing.T) {
	fromJSON, err := Parse([]byte(validDoc), FormatJSON)
	if err != nil {
		t.Fatalf("Parse JSON failed: %v", err)
	}
	fromYAML, err := Parse([]byte(validYAML), FormatYAML)
	if err != nil {
		t.Fatalf("Parse YAML failed: %v", err)
	}

	if !strings.HasPrefix(fromJSON.Fingerprint, "sha256:") {
		t.Errorf("Fingerprint = %q, want sha256: prefix", fromJSON.Fingerprint)
	}
	if fromJSON.Fingerprint != fromYAML.Fingerprint {
		t.Errorf("JSON and YAML fingerprints differ:\n%s\n%s", fromJSON.Fingerprint, fromYAML.Fingerprint)
	}
}

func TestFingerprint_ChangesWithRules(t *testing.T) {
	doc, err := Decode([]byte(validDoc), FormatJSON)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	before, err := Fingerprint(doc)
	if err != nil {
		t.Fatalf("Fingerprint failed: %v", err)
	}

	doc.Secrets.Patterns[0].Regex = "AKIA[0-9A-Z]{12}"
	after, err := Fingerprint(doc)
	if err != nil {
		t.Fatalf("Fingerprint failed: %v", err)
	}
	if before == after {
		t.Error("fingerprint should change when a regex changes")
	}
}
