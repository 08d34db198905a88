// Package scan inspects content payloads for smuggled instructions:
// invisible Unicode, direction overrides, tag-character channels, and
// suspiciously dense encoded substrings.
package scan

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Finding is one smuggling indicator located in the input.
type Finding struct {
	Category    string // "zero-width", "bidi-override", "tag-char", "control-char", "encoded-payload"
	Description string
	Position    int    // byte offset in the input
	Codepoint   string // e.g. "U+200B"; empty for encoded-payload findings
}

// Result holds the outcome of scanning one payload.
type Result struct {
	Clean    bool
	Findings []Finding
}

// Content scans a payload and reports every smuggling indicator found.
func Content(input string) Result {
	result := Result{Clean: true}

	i := 0
	for i < len(input) {
		r, size := utf8.DecodeRuneInString(input[i:])
		if f, found := classifyRune(r, i); found {
			result.Clean = false
			result.Findings = append(result.Findings, f)
		}
		i += size
	}

	if f, found := denseEncodedRun(input); found {
		result.Clean = false
		result.Findings = append(result.Findings, f)
	}
	return result
}

func classifyRune(r rune, pos int) (Finding, bool) {
	cp := fmt.Sprintf("U+%04X", r)

	if isZeroWidth(r) {
		return Finding{
			Category:    "zero-width",
			Description: "zero-width character can hide content from display",
			Position:    pos,
			Codepoint:   cp,
		}, true
	}
	if isBidiOverride(r) {
		return Finding{
			Category:    "bidi-override",
			Description: "bidirectional override makes displayed text differ from logical text",
			Position:    pos,
			Codepoint:   cp,
		}, true
	}
	if r >= 0xE0001 && r <= 0xE007F {
		return Finding{
			Category:    "tag-char",
			Description: "Unicode tag character can carry hidden instructions",
			Position:    pos,
			Codepoint:   cp,
		}, true
	}
	if isUnsafeControl(r) {
		return Finding{
			Category:    "control-char",
			Description: "control character embedded in content",
			Position:    pos,
			Codepoint:   cp,
		}, true
	}
	return Finding{}, false
}

func isZeroWidth(r rune) bool {
	switch r {
	case '\u200B', // ZERO WIDTH SPACE
		'\u200C', // ZERO WIDTH NON-JOINER
		'\u200D', // ZERO WIDTH JOINER
		'\uFEFF', // ZERO WIDTH NO-BREAK SPACE
		'\u2060', // WORD JOINER
		'\u180E': // MONGOLIAN VOWEL SEPARATOR
		return true
	}
	return false
}

func isBidiOverride(r rune) bool {
	switch r {
	case '\u202A', '\u202B', '\u202C', '\u202D', '\u202E',
		'\u2066', '\u2067', '\u2068', '\u2069':
		return true
	}
	return false
}

func isUnsafeControl(r rune) bool {
	if r == '\t' || r == '\n' || r == '\r' {
		return false
	}
	if r <= 0x1F || r == 0x7F {
		return true
	}
	// C1 range, excluding valid multibyte continuations already decoded.
	return r >= 0x80 && r <= 0x9F
}

// Encoded-payload heuristic: a long unbroken run of base64-alphabet
// characters inside otherwise prose-like content. Legitimate output (hashes,
// tokens under test) rarely exceeds this length in a text payload.
const (
	minEncodedRun = 256
)

func denseEncodedRun(input string) (Finding, bool) {
	runStart := -1
	for i := 0; i <= len(input); i++ {
		inRun := i < len(input) && isBase64Char(input[i])
		switch {
		case inRun && runStart < 0:
			runStart = i
		case !inRun && runStart >= 0:
			if i-runStart >= minEncodedRun && looksEncoded(input[runStart:i]) {
				return Finding{
					Category: "encoded-payload",
					Description: fmt.Sprintf("%d-character encoded run may conceal instructions",
						i-runStart),
					Position: runStart,
				}, true
			}
			runStart = -1
		}
	}
	return Finding{}, false
}

func isBase64Char(b byte) bool {
	return b >= 'A' && b <= 'Z' || b >= 'a' && b <= 'z' ||
		b >= '0' && b <= '9' || b == '+' || b == '/' || b == '='
}

// looksEncoded filters out long words and repeated padding: real base64 has
// mixed case and digits throughout.
func looksEncoded(run string) bool {
	var upper, lower, digit int
	for i := 0; i < len(run); i++ {
		switch {
		case run[i] >= 'A' && run[i] <= 'Z':
			upper++
		case run[i] >= 'a' && run[i] <= 'z':
			lower++
		case run[i] >= '0' && run[i] <= '9':
			digit++
		}
	}
	n := len(run)
	return upper > n/10 && lower > n/10 && digit > n/20 &&
		!strings.Contains(run, "====")
}
