package differ

import "testing"

func TestSeverityString(t *testing.T) {
	tests := []struct {
		level    SeverityLevel
		expected string
	}{
		{SeverityCritical, "critical"},
		{SeverityModerate, "moderate"},
		{SeveritySafe, "info"},
		{SeverityLevel(99), "unknown"}, // out-of-range value
		{SeverityLevel(-1), "unknown"}, // negative value
	}

	for _, tt := range tests {
		got := SeverityString(tt.level)
		if got != tt.expected {
			t.Errorf("SeverityString(%d) = %q, want %q", tt.level, got, tt.expected)
		}
	}
}

func TestGetSeverity(t *testing.T) {
	tests := []struct {
		old, new string
		want     SeverityLevel
	}{
		{"high", "low", SeverityModerate},
		{"critical", "medium", SeverityModerate},
		{"low", "critical", SeveritySafe},
		{"high", "high", SeveritySafe},
	}

	for _, tt := range tests {
		if got := GetSeverity(tt.old, tt.new); got != tt.want {
			t.Errorf("GetSeverity(%s, %s) = %v, want %v", tt.old, tt.new, got, tt.want)
		}
	}
}
