package scanner

import (
	"bytes"
	"unicode/utf8"

	"github.com/gabriel-vasile/mimetype"
)

// sniffLen matches git's own binary heuristic window
const sniffLen = 8000

// binaryRatio is the share of non-text bytes above which content is binary
const binaryRatio = 0.3

// formatRatio applies when mimetype recognises a non-text format. A magic
// prefix alone is not enough: the bytes after it must also look non-text.
const formatRatio = 0.1

// IsBinary reports whether data looks like binary content.
// Only the first sniffLen bytes are inspected.
func IsBinary(data []byte) bool {
	if len(data) == 0 {
		return false
	}
	prefix := data
	if len(prefix) > sniffLen {
		prefix = prefix[:sniffLen]
	}

	if bytes.IndexByte(prefix, 0) >= 0 {
		return true
	}

	mt := mimetype.Detect(prefix)
	for m := mt; m != nil; m = m.Parent() {
		if m.Is("text/plain") {
			return false
		}
	}

	ratio := nonTextRatio(prefix)
	if !mt.Is("application/octet-stream") {
		return ratio > formatRatio
	}
	return ratio > binaryRatio
}

// nonTextRatio counts invalid UTF-8 and control bytes
func nonTextRatio(b []byte) float64 {
	if len(b) == 0 {
		return 0
	}
	bad := 0
	for i := 0; i < len(b); {
		r, size := utf8.DecodeRune(b[i:])
		switch {
		case r == utf8.RuneError && size == 1:
			// a rune cut off at the sniff boundary is not evidence
			if len(b)-i >= utf8.UTFMax {
				bad++
			}
		case r < 0x20 && r != '\n' && r != '\r' && r != '\t' && r != '\f' && r != '\b':
			bad++
		}
		i += size
	}
	return float64(bad) / float64(len(b))
}
