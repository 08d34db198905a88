// Package redact recognizes secret-shaped substrings in agent output and
// produces safe display forms for warning messages and audit logs.
package redact

import (
	"regexp"
)

// secretPattern couples a token-shape regexp with a human-readable kind.
type secretPattern struct {
	kind string
	re   *regexp.Regexp
}

var secretPatterns = []secretPattern{
	// Cloud provider keys
	{"AWS access key", regexp.MustCompile(`AKIA[0-9A-Z]{16}`)},
	{"AWS secret", regexp.MustCompile(`(?i)aws_secret_access_key\s*[=:]\s*['"]?[A-Za-z0-9/+=]{40}['"]?`)},
	{"GCP service account key", regexp.MustCompile(`"private_key_id"\s*:\s*"[0-9a-f]{40}"`)},

	// Forge tokens
	{"GitHub token", regexp.MustCompile(`gh[pousr]_[A-Za-z0-9]{36,}`)},
	{"GitLab token", regexp.MustCompile(`glpat-[A-Za-z0-9_\-]{20,}`)},

	// SaaS tokens
	{"Slack token", regexp.MustCompile(`xox[baprs]-[0-9]{10,13}-[0-9A-Za-z-]{10,}`)},
	{"Stripe key", regexp.MustCompile(`[sr]k_live_[0-9a-zA-Z]{24,}`)},
	{"Anthropic key", regexp.MustCompile(`sk-ant-[A-Za-z0-9\-_]{24,}`)},

	// Key material and auth headers
	{"private key", regexp.MustCompile(`-----BEGIN (RSA |EC |DSA |OPENSSH |PGP )?PRIVATE KEY-----`)},
	{"bearer token", regexp.MustCompile(`(?i)\bbearer\s+[A-Za-z0-9._\-]{24,}`)},
	{"basic auth URL", regexp.MustCompile(`https?://[^\s:/]+:[^\s@/]+@`)},
	{"JWT", regexp.MustCompile(`eyJ[A-Za-z0-9_-]{8,}\.eyJ[A-Za-z0-9_-]{8,}\.[A-Za-z0-9_-]{8,}`)},

	// Generic assignments
	{"API key assignment", regexp.MustCompile(`(?i)(api[_-]?key|secret[_-]?key|access[_-]?token|auth[_-]?token)\s*[=:]\s*['"]?[A-Za-z0-9_\-]{16,}['"]?`)},
	{"password assignment", regexp.MustCompile(`(?i)(password|passwd|pwd)\s*[=:]\s*['"]?[^\s'"]{8,}['"]?`)},
}

const placeholder = "[REDACTED]"

// Match describes one recognized secret without carrying its value.
type Match struct {
	// Kind names the secret shape, e.g. "GitHub token".
	Kind string
	// Redacted is a display form safe for messages and logs: a short
	// prefix of the match followed by the redaction placeholder.
	Redacted string
}

// FindSecret returns the first secret-shaped substring recognized in the
// input. The raw value is never returned.
func FindSecret(input string) (Match, bool) {
	for _, p := range secretPatterns {
		loc := p.re.FindStringIndex(input)
		if loc == nil {
			continue
		}
		return Match{Kind: p.kind, Redacted: redactedForm(input[loc[0]:loc[1]])}, true
	}
	return Match{}, false
}

// redactedForm keeps just enough prefix to identify the token family.
func redactedForm(value string) string {
	const keep = 6
	if len(value) <= keep {
		return placeholder
	}
	return value[:keep] + placeholder
}

// Redact replaces every recognized secret shape in the input with the
// placeholder. Applied to content before it reaches a log or a sink.
func Redact(input string) string {
	out := input
	for _, p := range secretPatterns {
		out = p.re.ReplaceAllString(out, placeholder)
	}
	return out
}
